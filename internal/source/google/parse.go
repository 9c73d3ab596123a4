package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"spese-analytics/internal/core"
)

// Expense sheet columns, in order.
var expenseHeader = []string{"Date", "Category", "Payment Mode", "Amount", "Tags", "Type", "Remarks", "ID"}

// Income sheet columns, in order.
var incomeHeader = []string{"Month", "Amount", "Source"}

type columns struct {
	date, category, payment, amount, tags, typ, remarks, id int
}

// expenseColumns locates the columns by header name, falling back to the
// default layout when the first row is not a header.
func expenseColumns(header []string) (columns, bool) {
	c := columns{
		date:     indexOf(header, "Date"),
		category: indexOf(header, "Category"),
		payment:  indexOf(header, "Payment Mode"),
		amount:   indexOf(header, "Amount"),
		tags:     indexOf(header, "Tags"),
		typ:      indexOf(header, "Type"),
		remarks:  indexOf(header, "Remarks"),
		id:       indexOf(header, "ID"),
	}
	if c.date == -1 || c.category == -1 || c.amount == -1 {
		return columns{0, 1, 2, 3, 4, 5, 6, 7}, false
	}
	return c, true
}

// parseExpenses converts a values matrix into records. Rows with an
// unparseable date or amount are skipped. Rows without an ID column value
// get a row-based one so they can still be addressed.
func parseExpenses(values [][]any) []core.Expense {
	if len(values) == 0 {
		return nil
	}
	cols, hasHeader := expenseColumns(toStrings(values[0]))
	start := 0
	if hasHeader {
		start = 1
	}
	out := make([]core.Expense, 0, len(values)-start)
	for i := start; i < len(values); i++ {
		row := toStrings(values[i])
		date, ok := parseSheetDate(safeGet(row, cols.date))
		if !ok {
			continue
		}
		cents, ok := parseAmountToCents(safeGet(row, cols.amount))
		if !ok {
			continue
		}
		e := core.Expense{
			ID:          safeGet(row, cols.id),
			Amount:      core.Money{Cents: cents},
			Category:    safeGet(row, cols.category),
			PaymentMode: safeGet(row, cols.payment),
			Tags:        core.NormalizeTags(strings.Split(safeGet(row, cols.tags), ",")),
			Remarks:     safeGet(row, cols.remarks),
			Date:        date,
			Type:        core.ExpenseType(strings.ToLower(safeGet(row, cols.typ))),
		}
		if !e.Type.IsValid() {
			e.Type = core.TypeForCategory(e.Category)
		}
		if e.ID == "" {
			e.ID = fmt.Sprintf("row-%d", i+1)
		}
		out = append(out, e)
	}
	return out
}

func expenseRow(e core.Expense) []any {
	return []any{
		e.Date.UTC().Format(core.DayLayout),
		e.Category,
		e.PaymentMode,
		e.Amount.Float(),
		strings.Join(e.Tags, ", "),
		string(e.Type),
		e.Remarks,
		e.ID,
	}
}

func parseIncomes(values [][]any) []core.Income {
	var out []core.Income
	for _, raw := range values {
		row := toStrings(raw)
		month := safeGet(row, 0)
		if _, err := core.ParseMonth(month); err != nil {
			continue
		}
		cents, ok := parseAmountToCents(safeGet(row, 1))
		if !ok {
			continue
		}
		out = append(out, core.Income{Month: month, Amount: core.Money{Cents: cents}, Source: safeGet(row, 2)})
	}
	return out
}

// findRow returns the 1-based sheet row whose column col equals key, or 0.
func findRow(values [][]any, col int, key string) int {
	for i, raw := range values {
		if strings.EqualFold(safeGet(toStrings(raw), col), key) {
			return i + 1
		}
	}
	return 0
}

func parseSheetDate(s string) (time.Time, bool) {
	for _, layout := range []string{core.DayLayout, time.RFC3339, "02/01/2006", "2/1/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseAmountToCents accepts sheet-formatted numbers such as "12.5", "12,50"
// or "1,234.50".
func parseAmountToCents(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return core.MoneyFromFloat(f).Cents, true
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
