package http

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"spese-analytics/internal/core"
	"spese-analytics/internal/log"
	"spese-analytics/internal/services"
)

type rangeLink struct {
	Short  string
	Label  string
	Active bool
}

type indexPage struct {
	Ranges       []rangeLink
	Dashboard    services.Dashboard
	Stats        core.Stats
	Recent       []core.Expense
	Categories   []string
	PaymentModes []string
	Error        string
	Partial      string
	// StatsRefreshMs drives the client-side stats poll.
	StatsRefreshMs int64
}

// handleIndex renders the dashboard for the selected range. The breakdown is
// required; stats and recent records degrade to a notice when they fail.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	page := indexPage{
		Categories:     core.Categories,
		PaymentModes:   core.PaymentModes,
		StatsRefreshMs: s.statsPoll.Milliseconds(),
	}

	key, err := parseRange(q)
	if err != nil {
		page.Error = err.Error()
		key = core.Last30Days
	}
	for _, k := range core.RangeKeys {
		page.Ranges = append(page.Ranges, rangeLink{Short: k.Short(), Label: k.Label(), Active: k == key})
	}

	var statsErr, recentErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := s.svc.Dashboard(gctx, key, parseDashboardOptions(q))
		page.Dashboard = d
		return err
	})
	g.Go(func() error {
		page.Stats, statsErr = s.svc.Stats(gctx)
		return nil
	})
	g.Go(func() error {
		page.Recent, recentErr = s.svc.RecentExpenses(gctx, services.DefaultRecentLimit)
		return nil
	})

	status := http.StatusOK
	if err := g.Wait(); err != nil {
		status = errorStatus(err)
		page.Error = "analytics unavailable"
		log.FromContext(ctx).ErrorContext(ctx, "dashboard render failed",
			log.FieldRangeKey, key, log.FieldError, err)
	}
	if statsErr != nil || recentErr != nil {
		page.Partial = "some panels could not be loaded"
		log.FromContext(ctx).WarnContext(ctx, "dashboard panels degraded",
			"stats_error", statsErr, "recent_error", recentErr)
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", page); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "template execution failed", log.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// handleHealth reports liveness. It never touches the upstream.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":       "healthy",
		"timestamp":    s.now().UTC().Format(time.RFC3339),
		"uptime":       time.Since(s.started).Round(time.Second).String(),
		"requests":     s.tracer.Total(),
		"suspicious":   s.detector.Suspicious(),
		"rate_limited": s.limiter.Hits(),
	}).Write(w)
}

// handleReady reports whether the upstream answers a ping.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.readyWait)
	defer cancel()

	checks := map[string]string{"templates": "ok", "upstream": "ok"}
	status := http.StatusOK
	if err := s.svc.Ping(ctx); err != nil {
		checks["upstream"] = err.Error()
		status = http.StatusServiceUnavailable
		log.FromContext(ctx).WarnContext(ctx, "readiness check failed", log.FieldError, err)
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	NewJSONResponse().Status(status).Body(map[string]any{
		"status":    state,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}
