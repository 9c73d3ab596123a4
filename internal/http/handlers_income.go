package http

import (
	"net/http"

	"spese-analytics/internal/log"
)

type incomeView struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
	Source string  `json:"source,omitempty"`
}

// handleSetIncome upserts the income of a month, the current one when the
// body names none.
func (s *Server) handleSetIncome(w http.ResponseWriter, r *http.Request) {
	in, err := parseIncome(r)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	saved, err := s.svc.SetIncome(r.Context(), in)
	if err != nil {
		writeError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().Body(incomeView{
		Month:  saved.Month,
		Amount: saved.Amount.Float(),
		Source: saved.Source,
	}).Write(w)
}
