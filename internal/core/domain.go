package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	TypeExpense    ExpenseType = "expense"
	TypeInvestment ExpenseType = "investment"
)

// InvestmentCategory is the category that marks a record as an investment.
const InvestmentCategory = "Investment"

// MonthLayout is the YYYY-MM layout used for income months and exports.
const MonthLayout = "2006-01"

type (
	ExpenseType string

	Money struct {
		Cents int64
	}

	Expense struct {
		ID          string
		Amount      Money
		Category    string
		PaymentMode string
		Tags        []string
		Remarks     string
		Date        time.Time
		Type        ExpenseType
	}

	Income struct {
		Amount Money
		Source string
		Month  string // YYYY-MM
	}

	// Stats holds month-to-date and year-to-date totals as reported upstream.
	Stats struct {
		MTDIncome      float64 `json:"mtdIncome" yaml:"mtdIncome"`
		YTDIncome      float64 `json:"ytdIncome" yaml:"ytdIncome"`
		MTDInvestments float64 `json:"mtdInvestments" yaml:"mtdInvestments"`
		YTDInvestments float64 `json:"ytdInvestments" yaml:"ytdInvestments"`
		MTDExpenses    float64 `json:"mtdExpenses" yaml:"mtdExpenses"`
		YTDExpenses    float64 `json:"ytdExpenses" yaml:"ytdExpenses"`
	}
)

// Categories and payment modes offered by the expense form.
var (
	Categories = []string{
		"Groceries", "Bills & Utilities", "Transport", "Entertainment",
		"Healthcare", InvestmentCategory, "Other",
	}
	PaymentModes = []string{"Cash", "UPI", "Credit Card", "Debit Card", "Net Banking"}
)

var (
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyPaymentMode   = errors.New("empty payment mode")
	ErrInvalidExpenseType = errors.New("invalid expense type")
	ErrNotFound           = errors.New("not found")
	ErrRemarksTooLong     = errors.New("remarks too long (max 500 characters)")
)

func (t ExpenseType) IsValid() bool {
	return t == TypeExpense || t == TypeInvestment
}

// TypeForCategory infers the record type from its category.
func TypeForCategory(category string) ExpenseType {
	if strings.EqualFold(strings.TrimSpace(category), InvestmentCategory) {
		return TypeInvestment
	}
	return TypeExpense
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(e.PaymentMode) == "" {
		return ErrEmptyPaymentMode
	}
	if e.Type != "" && !e.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidExpenseType, e.Type)
	}
	if len(e.Remarks) > 500 {
		return ErrRemarksTooLong
	}
	return nil
}

func (i Income) Validate() error {
	if i.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if i.Month != "" {
		if _, err := ParseMonth(i.Month); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeTags trims every tag, drops empty ones and removes duplicates,
// keeping the first occurrence order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ParseMonth parses a strict YYYY-MM value and returns the first instant of
// that month in UTC.
func ParseMonth(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[4] != '-' {
		return time.Time{}, fmt.Errorf("%w: %q (use YYYY-MM)", ErrInvalidMonth, s)
	}
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q (use YYYY-MM)", ErrInvalidMonth, s)
	}
	return t.UTC(), nil
}

// MonthOf formats t as YYYY-MM in UTC.
func MonthOf(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}

// RecentMonths returns the last n months ending with now's month, newest
// first, as offered by the export picker.
func RecentMonths(now time.Time, n int) []string {
	first := time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, first.AddDate(0, -i, 0).Format(MonthLayout))
	}
	return out
}
