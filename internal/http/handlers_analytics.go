package http

import (
	"net/http"
	"strings"

	"spese-analytics/internal/core"
	"spese-analytics/internal/log"
	"spese-analytics/internal/report"
	"spese-analytics/internal/services"
)

type timeseriesResponse struct {
	Range  services.RangeInfo      `json:"range"`
	Points []core.TimeseriesPoint `json:"points"`
}

type categoryTrendResponse struct {
	Category string                    `json:"category"`
	Type     core.TrendType            `json:"type"`
	Points   []core.CategoryTrendPoint `json:"points"`
}

// handleAnalytics serves the shaped dashboard of one window.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key, err := parseRange(q)
	if err != nil {
		writeError(w, r, log.OpBreakdown, err)
		return
	}
	d, err := s.svc.Dashboard(r.Context(), key, parseDashboardOptions(q))
	if err != nil {
		writeError(w, r, log.OpBreakdown, err)
		return
	}
	NewJSONResponse().Body(d).Write(w)
}

func (s *Server) handleTimeseries(w http.ResponseWriter, r *http.Request) {
	key, err := parseRange(r.URL.Query())
	if err != nil {
		writeError(w, r, log.OpTimeseries, err)
		return
	}
	info, points, err := s.svc.Timeseries(r.Context(), key)
	if err != nil {
		writeError(w, r, log.OpTimeseries, err)
		return
	}
	NewJSONResponse().Body(timeseriesResponse{Range: info, Points: points}).Write(w)
}

func (s *Server) handleCategoryTrend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := strings.TrimSpace(q.Get("category"))
	if category == "" {
		writeError(w, r, log.OpCategoryTrend, core.ErrEmptyCategory)
		return
	}
	trend := strings.TrimSpace(q.Get("type"))
	points, err := s.svc.CategoryTrend(r.Context(), category, trend)
	if err != nil {
		writeError(w, r, log.OpCategoryTrend, err)
		return
	}
	NewJSONResponse().Body(categoryTrendResponse{
		Category: category,
		Type:     trendOrDaily(trend),
		Points:   points,
	}).Write(w)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		writeError(w, r, log.OpStats, err)
		return
	}
	NewJSONResponse().Body(stats).Write(w)
}

// handleReport renders the dashboard of a window as a downloadable file.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := report.ParseFormat(q.Get("format"))
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}
	key, err := parseRange(q)
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}
	// Reports always carry every tag.
	opts := parseDashboardOptions(q)
	opts.ShowAllTags = true
	d, err := s.svc.Dashboard(r.Context(), key, opts)
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}
	body, err := report.Bytes(format, d)
	s.metrics.ReportExport(string(format), err)
	if err != nil {
		writeError(w, r, log.OpReport, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.Filename(d, format)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func trendOrDaily(s string) core.TrendType {
	if s == "" {
		return core.TrendDaily
	}
	return core.TrendType(strings.ToLower(s))
}
