package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"spese-analytics/internal/core"
)

// ExportHeader is the column layout of a monthly export.
var ExportHeader = []string{"Date", "Category", "Payment Mode", "Amount", "Tags", "Remarks"}

// ExportCSV renders records in the export layout. Tags are joined with ", ".
func ExportCSV(records []core.Expense) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ExportHeader); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	for _, e := range records {
		row := []string{
			e.Date.UTC().Format(core.DayLayout),
			e.Category,
			e.PaymentMode,
			strconv.FormatFloat(e.Amount.Float(), 'f', -1, 64),
			strings.Join(e.Tags, ", "),
			e.Remarks,
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportFilename is the attachment name used for a month.
func ExportFilename(month string) string {
	return "expenses-" + month + ".csv"
}
