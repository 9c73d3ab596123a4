package http

// This file implements utilities for parsing and validating HTTP request data.
// Bodies may be JSON or form-encoded; both decode into the same forms.

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"spese-analytics/internal/core"
	"spese-analytics/internal/services"
	"spese-analytics/internal/validation"
)

const maxBodyBytes = 1 << 20

// RequestBodyParser handles different content types for request body parsing.
// It reads the body once and answers lookups from either JSON or form data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: invalid JSON body", errBadRequest)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(body)
	if p.err != nil {
		p.err = fmt.Errorf("%w: invalid form body", errBadRequest)
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// GetList returns a JSON array, or the repeated and comma-separated values
// of a form field.
func (p *RequestBodyParser) GetList(key string) []string {
	var raw []string
	switch {
	case p.jsonData != nil:
		switch v := p.jsonData[key].(type) {
		case []any:
			for _, item := range v {
				raw = append(raw, stringValue(item))
			}
		case string:
			raw = strings.Split(v, ",")
		}
	case p.formData != nil:
		for _, v := range p.formData[key] {
			raw = append(raw, strings.Split(v, ",")...)
		}
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = strings.TrimSpace(sanitizeInput(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// expenseForm is the inbound shape of a create or update request.
type expenseForm struct {
	Amount      string   `json:"amount" validate:"required"`
	Category    string   `json:"category" validate:"required,max=100"`
	PaymentMode string   `json:"payment_mode" validate:"required,max=100"`
	Tags        []string `json:"tags" validate:"max=20,dive,max=50"`
	Remarks     string   `json:"remarks" validate:"max=500"`
	Date        string   `json:"date"`
	Type        string   `json:"type" validate:"omitempty,oneof=expense investment"`
}

// parseExpense decodes and validates an expense body. A missing date means
// now.
func parseExpense(r *http.Request, now time.Time) (core.Expense, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return core.Expense{}, err
	}
	form := expenseForm{
		Amount:      p.Get("amount"),
		Category:    p.Get("category"),
		PaymentMode: p.Get("payment_mode"),
		Tags:        p.GetList("tags"),
		Remarks:     p.Get("remarks"),
		Date:        p.Get("date"),
		Type:        p.Get("type"),
	}
	if err := validation.Struct(form); err != nil {
		return core.Expense{}, err
	}

	cents, err := core.ParseDecimalToCents(form.Amount)
	if err != nil {
		return core.Expense{}, err
	}

	date := now
	if form.Date != "" {
		date, err = parseDate(form.Date)
		if err != nil {
			return core.Expense{}, err
		}
	}

	return core.Expense{
		Amount:      core.Money{Cents: cents},
		Category:    form.Category,
		PaymentMode: form.PaymentMode,
		Tags:        form.Tags,
		Remarks:     form.Remarks,
		Date:        date,
		Type:        core.ExpenseType(form.Type),
	}, nil
}

// parseDate accepts YYYY-MM-DD or an RFC 3339 instant.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(core.DayLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", errBadRequest, s)
}

type incomeForm struct {
	Amount string `json:"amount" validate:"required"`
	Source string `json:"source" validate:"max=100"`
	Month  string `json:"month"`
}

func parseIncome(r *http.Request) (core.Income, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return core.Income{}, err
	}
	form := incomeForm{
		Amount: p.Get("amount"),
		Source: p.Get("source"),
		Month:  p.Get("month"),
	}
	if err := validation.Struct(form); err != nil {
		return core.Income{}, err
	}
	cents, err := core.ParseDecimalToCents(form.Amount)
	if err != nil {
		return core.Income{}, err
	}
	return core.Income{Amount: core.Money{Cents: cents}, Source: form.Source, Month: form.Month}, nil
}

// parseRange reads the range query parameter, defaulting to the last 30 days.
func parseRange(q url.Values) (core.RangeKey, error) {
	v := strings.TrimSpace(q.Get("range"))
	if v == "" {
		return core.Last30Days, nil
	}
	return core.ParseRangeKey(v)
}

// parseDashboardOptions reads tags=all and remainder=true.
func parseDashboardOptions(q url.Values) services.DashboardOptions {
	return services.DashboardOptions{
		ShowAllTags:      strings.EqualFold(q.Get("tags"), "all"),
		IncludeRemainder: parseBool(q.Get("remainder")),
	}
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

// parseLimit reads the limit query parameter. Empty means the service
// default.
func parseLimit(q url.Values) (int, error) {
	v := strings.TrimSpace(q.Get("limit"))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid limit %q", errBadRequest, v)
	}
	return n, nil
}
