package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"spese-analytics/internal/core"
	"spese-analytics/internal/log"
	"spese-analytics/internal/metrics"
	"spese-analytics/internal/middleware/ratelimit"
	"spese-analytics/internal/middleware/security"
	"spese-analytics/internal/middleware/trace"
	"spese-analytics/internal/services"
	appweb "spese-analytics/web"
)

// Analytics is the part of services.AnalyticsService the handlers use.
type Analytics interface {
	Dashboard(ctx context.Context, key core.RangeKey, opts services.DashboardOptions) (services.Dashboard, error)
	Timeseries(ctx context.Context, key core.RangeKey) (services.RangeInfo, []core.TimeseriesPoint, error)
	Stats(ctx context.Context) (core.Stats, error)
	CategoryTrend(ctx context.Context, category string, trend string) ([]core.CategoryTrendPoint, error)
	RecentExpenses(ctx context.Context, limit int) ([]core.Expense, error)
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	UpdateExpense(ctx context.Context, id string, e core.Expense) error
	SetIncome(ctx context.Context, in core.Income) (core.Income, error)
	ExportMonth(ctx context.Context, month string) ([]byte, error)
	Ping(ctx context.Context) error
}

var _ Analytics = (*services.AnalyticsService)(nil)

// Options configures a Server. Zero values are usable.
type Options struct {
	Metrics   *metrics.Metrics
	Logger    *log.Logger
	RateLimit ratelimit.Config
	Headers   security.HeadersConfig
	// ReadyTimeout bounds the upstream ping of /readyz.
	ReadyTimeout time.Duration
	// StatsRefresh is how often the page polls /api/stats. Zero disables it.
	StatsRefresh time.Duration
}

// Server serves the dashboard page and the analytics API.
type Server struct {
	*http.Server
	svc       Analytics
	templates *template.Template
	metrics   *metrics.Metrics
	logger    *log.Logger
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	readyWait time.Duration
	statsPoll time.Duration
	started   time.Time
	now       func() time.Time
}

// NewServer builds the mux and middleware chain. It fails only when the
// embedded templates do not parse.
func NewServer(addr string, svc Analytics, opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.RateLimit.RequestsPerMinute <= 0 {
		opts.RateLimit = ratelimit.DefaultConfig()
	}
	if opts.Headers.CSP == "" {
		opts.Headers = security.DefaultHeadersConfig()
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = 5 * time.Second
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"amount": formatAmount,
		"day":    func(t time.Time) string { return t.Format(core.DayLayout) },
		"join":   joinTags,
		"dict":   dict,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		svc:       svc,
		templates: tmpl,
		metrics:   opts.Metrics,
		logger:    logger,
		limiter:   ratelimit.NewLimiter(opts.RateLimit),
		detector:  security.NewDetector(),
		readyWait: opts.ReadyTimeout,
		statsPoll: opts.StatsRefresh,
		started:   time.Now(),
		now:       time.Now,
	}
	s.tracer = trace.NewMiddleware(logger, opts.Metrics, s.detector.ClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	var handler http.Handler = mux
	handler = s.tracer.Middleware(handler)
	handler = s.detector.Middleware(handler)
	handler = security.Headers(opts.Headers)(handler)

	s.Server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(mux *http.ServeMux) {
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("GET /static/", security.StaticAssets(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	mux.HandleFunc("GET /api/analytics", s.handleAnalytics)
	mux.HandleFunc("GET /api/analytics/timeseries", s.handleTimeseries)
	mux.HandleFunc("GET /api/analytics/category-trend", s.handleCategoryTrend)
	mux.HandleFunc("GET /api/analytics/report", s.handleReport)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("GET /api/expenses/export", s.handleExportMonth)
	mux.Handle("POST /api/expenses", s.limited(s.handleCreateExpense))
	mux.Handle("PUT /api/expenses/{id}", s.limited(s.handleUpdateExpense))
	mux.Handle("POST /api/income", s.limited(s.handleSetIncome))
}

// limited applies the per-client rate limit to write endpoints.
func (s *Server) limited(h http.HandlerFunc) http.Handler {
	return s.limiter.Middleware(s.detector.ClientIP, func(w http.ResponseWriter, r *http.Request) {
		log.FromContext(r.Context()).WarnContext(r.Context(), "rate limit exceeded",
			log.FieldClientIP, s.detector.ClientIP(r))
		TooManyRequestsError().Write(w)
	})(h)
}

// Shutdown stops the limiter janitor and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}
