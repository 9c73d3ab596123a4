package api

import (
	"net/url"
	"time"

	"spese-analytics/internal/core"
)

type entryDTO struct {
	Name  string  `json:"name" validate:"required"`
	Total float64 `json:"total" validate:"gte=0"`
}

type breakdownDTO struct {
	ByCategory    []entryDTO `json:"byCategory" validate:"dive"`
	ByPaymentMode []entryDTO `json:"byPaymentMode" validate:"dive"`
	ByTag         []entryDTO `json:"byTag" validate:"dive"`
}

func toBreakdown(in []entryDTO) core.Breakdown {
	out := make(core.Breakdown, 0, len(in))
	for _, e := range in {
		out = append(out, core.BreakdownEntry{Name: e.Name, Total: e.Total})
	}
	return out
}

func (d breakdownDTO) toCore() core.AnalyticsBreakdown {
	return core.AnalyticsBreakdown{
		ByCategory:    toBreakdown(d.ByCategory),
		ByPaymentMode: toBreakdown(d.ByPaymentMode),
		ByTag:         toBreakdown(d.ByTag),
	}
}

// timeseriesPointDTO keeps an absent or null total apart from zero.
type timeseriesPointDTO struct {
	Date  string   `json:"date"`
	Total *float64 `json:"total"`
}

// expenseDTO mirrors the API record. The API names its key "_id".
type expenseDTO struct {
	ID          string   `json:"_id,omitempty"`
	Amount      float64  `json:"amount"`
	Category    string   `json:"category"`
	PaymentMode string   `json:"payment_mode"`
	Tags        []string `json:"tags"`
	Remarks     string   `json:"remarks"`
	Date        string   `json:"date,omitempty"`
	Type        string   `json:"type,omitempty"`
}

func expenseFromCore(e core.Expense) expenseDTO {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return expenseDTO{
		Amount:      e.Amount.Float(),
		Category:    e.Category,
		PaymentMode: e.PaymentMode,
		Tags:        tags,
		Remarks:     e.Remarks,
		Type:        string(e.Type),
	}
}

func (d expenseDTO) toCore() core.Expense {
	e := core.Expense{
		ID:          d.ID,
		Amount:      core.MoneyFromFloat(d.Amount),
		Category:    d.Category,
		PaymentMode: d.PaymentMode,
		Tags:        d.Tags,
		Remarks:     d.Remarks,
		Type:        core.ExpenseType(d.Type),
	}
	if e.Type == "" {
		e.Type = core.TypeExpense
	}
	e.Date = parseAPIDate(d.Date)
	return e
}

// parseAPIDate accepts the ISO forms the API emits, with or without a zone.
func parseAPIDate(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05", "Mon, 02 Jan 2006 15:04:05 GMT", core.DayLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

type incomeDTO struct {
	Amount float64 `json:"amount"`
	Source string  `json:"source"`
	Month  string  `json:"month,omitempty"`
}

func pathEscape(s string) string { return url.PathEscape(s) }
