package http

import (
	"fmt"
	"net/http"
	"strings"

	"spese-analytics/internal/core"
	"spese-analytics/internal/log"
)

// expenseView is the JSON form of a record.
type expenseView struct {
	ID          string   `json:"id"`
	Amount      float64  `json:"amount"`
	Category    string   `json:"category"`
	PaymentMode string   `json:"payment_mode"`
	Tags        []string `json:"tags"`
	Remarks     string   `json:"remarks,omitempty"`
	Date        string   `json:"date"`
	Type        string   `json:"type"`
}

func newExpenseView(e core.Expense) expenseView {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return expenseView{
		ID:          e.ID,
		Amount:      e.Amount.Float(),
		Category:    e.Category,
		PaymentMode: e.PaymentMode,
		Tags:        tags,
		Remarks:     e.Remarks,
		Date:        e.Date.UTC().Format(core.DayLayout),
		Type:        string(e.Type),
	}
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query())
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	items, err := s.svc.RecentExpenses(r.Context(), limit)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	out := make([]expenseView, 0, len(items))
	for _, e := range items {
		out = append(out, newExpenseView(e))
	}
	NewJSONResponse().Body(map[string]any{"expenses": out}).Write(w)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	e, err := parseExpense(r, s.now())
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	saved, err := s.svc.CreateExpense(r.Context(), e)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/expenses/"+saved.ID).
		Body(newExpenseView(saved)).
		Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	e, err := parseExpense(r, s.now())
	if err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	if err := s.svc.UpdateExpense(r.Context(), id, e); err != nil {
		writeError(w, r, log.OpUpdate, err)
		return
	}
	e.ID = id
	NewJSONResponse().Body(newExpenseView(e)).Write(w)
}

// handleExportMonth streams the CSV export of ?month=YYYY-MM.
func (s *Server) handleExportMonth(w http.ResponseWriter, r *http.Request) {
	month := strings.TrimSpace(r.URL.Query().Get("month"))
	if month == "" {
		writeError(w, r, log.OpExport, fmt.Errorf("%w: month is required", core.ErrInvalidMonth))
		return
	}
	body, err := s.svc.ExportMonth(r.Context(), month)
	if err != nil {
		writeError(w, r, log.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="expenses-%s.csv"`, month))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
