package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"spese-analytics/internal/analytics"
	"spese-analytics/internal/cache"
	"spese-analytics/internal/core"
	"spese-analytics/internal/log"
	"spese-analytics/internal/metrics"
	"spese-analytics/internal/source"
)

// Limits for RecentExpenses.
const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 100
)

// Cache invalidation reasons.
const (
	ReasonWrite  = "write"
	ReasonRemote = "remote"
)

// AnalyticsConfig tunes an AnalyticsService.
type AnalyticsConfig struct {
	// TagCap is the number of tags shown unless all tags are requested.
	TagCap int

	// Snapshot quantizes "now" before a range is resolved so that requests
	// inside the same interval share one upstream query and cache entry.
	// Zero resolves against the exact current instant.
	Snapshot time.Duration

	// Upstream names the source in logs.
	Upstream string

	// LoadTimeout bounds one shared upstream load. Loads are detached from
	// the caller that started them so other waiters are not failed by its
	// cancellation.
	LoadTimeout time.Duration
}

// DefaultLoadTimeout applies when AnalyticsConfig.LoadTimeout is not set.
const DefaultLoadTimeout = 30 * time.Second

func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		TagCap:      analytics.DefaultTagCap,
		Snapshot:    12 * time.Second,
		Upstream:    "api",
		LoadTimeout: DefaultLoadTimeout,
	}
}

// DashboardOptions selects how the tag breakdown is trimmed. Category and
// payment-mode breakdowns are never capped.
type DashboardOptions struct {
	ShowAllTags      bool
	IncludeRemainder bool
}

// RangeInfo describes the window a dashboard was computed for.
type RangeInfo struct {
	Key   core.RangeKey `json:"key"`
	Short string        `json:"short"`
	Label string        `json:"label"`
	Start string        `json:"start"`
	End   string        `json:"end"`
}

func newRangeInfo(r core.ResolvedRange) RangeInfo {
	return RangeInfo{
		Key:   r.Key,
		Short: r.Key.Short(),
		Label: r.Key.Label(),
		Start: r.StartISO(),
		End:   r.EndISO(),
	}
}

// Dashboard is the display-ready analytics for one window.
type Dashboard struct {
	Range         RangeInfo              `json:"range"`
	Total         float64                `json:"total"`
	ByCategory    core.ShapedBreakdown   `json:"byCategory"`
	ByPaymentMode core.ShapedBreakdown   `json:"byPaymentMode"`
	ByTag         core.ShapedBreakdown   `json:"byTag"`
	Timeseries    []core.TimeseriesPoint `json:"timeseries"`
}

// AnalyticsService fronts a Source with caching, request de-duplication and
// the shaping rules of the dashboard.
type AnalyticsService struct {
	source  source.Source
	cache   cache.Store
	metrics *metrics.Metrics
	logger  *log.Logger
	slog    *log.StructuredLogger
	group   singleflight.Group
	cfg     AnalyticsConfig
	now     func() time.Time

	// gen is bumped by Invalidate. Loads started under an older generation
	// are not written back.
	mu  sync.RWMutex
	gen atomic.Uint64
}

// NewAnalyticsService wires a service. store and m may be nil: a nil store
// disables caching and a nil m records nothing.
func NewAnalyticsService(src source.Source, store cache.Store, m *metrics.Metrics, logger *log.Logger, cfg AnalyticsConfig) *AnalyticsService {
	if logger == nil {
		logger = log.Discard()
	}
	if store == nil {
		store = noStore{}
	}
	if cfg.TagCap < 0 {
		cfg.TagCap = 0
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}
	logger = logger.WithComponent(log.ComponentAnalytics)
	return &AnalyticsService{
		source:  src,
		cache:   store,
		metrics: m,
		logger:  logger,
		slog:    log.NewStructuredLogger(logger),
		cfg:     cfg,
		now:     time.Now,
	}
}

// snapshot returns the instant ranges are resolved against.
func (s *AnalyticsService) snapshot() time.Time {
	now := s.now().UTC()
	if s.cfg.Snapshot > 0 {
		now = now.Truncate(s.cfg.Snapshot)
	}
	return now
}

// cached serves key from the store, or loads it once for all concurrent
// callers and stores the result. Load errors are never cached. A caller
// whose ctx ends stops waiting without failing the shared load.
func cached[T any](ctx context.Context, s *AnalyticsService, op, key string, load func(context.Context) (T, error)) (T, bool, error) {
	var out T
	hit, err := s.cache.Get(ctx, key, &out)
	if err != nil {
		s.logger.WarnContext(ctx, "cache read failed", log.FieldCacheKey, key, log.FieldError, err)
	}
	s.metrics.CacheLookup(hit)
	if hit {
		return out, true, nil
	}

	gen := s.gen.Load()
	ch := s.group.DoChan(fmt.Sprintf("%d/%s", gen, key), func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.LoadTimeout)
		defer cancel()

		start := time.Now()
		val, err := load(lctx)
		s.metrics.ObserveUpstream(op, time.Since(start), err)
		if err != nil {
			return nil, err
		}
		s.store(lctx, gen, key, val)
		return val, nil
	})
	select {
	case <-ctx.Done():
		return out, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return out, false, res.Err
		}
		return res.Val.(T), false, nil
	}
}

// store writes val unless the cache was invalidated since gen was read.
func (s *AnalyticsService) store(ctx context.Context, gen uint64, key string, val any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.gen.Load() != gen {
		s.logger.DebugContext(ctx, "dropping load from before invalidation", log.FieldCacheKey, key)
		return
	}
	if err := s.cache.Set(ctx, key, val); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", log.FieldCacheKey, key, log.FieldError, err)
	}
}

func (s *AnalyticsService) breakdown(ctx context.Context, r core.ResolvedRange, query string) (core.AnalyticsBreakdown, error) {
	start := time.Now()
	out, hit, err := cached(ctx, s, log.OpBreakdown, "breakdown?"+query, func(ctx context.Context) (core.AnalyticsBreakdown, error) {
		return s.source.ReadBreakdown(ctx, r)
	})
	if err != nil {
		return core.AnalyticsBreakdown{}, fmt.Errorf("breakdown: %w", err)
	}
	s.slog.LogUpstreamFetch(ctx, log.OpBreakdown, r, s.cfg.Upstream, time.Since(start), hit)
	return out, nil
}

func (s *AnalyticsService) timeseries(ctx context.Context, r core.ResolvedRange, query string) ([]core.TimeseriesPoint, error) {
	start := time.Now()
	out, hit, err := cached(ctx, s, log.OpTimeseries, "timeseries?"+query, func(ctx context.Context) ([]core.TimeseriesPoint, error) {
		points, err := s.source.ReadTimeseries(ctx, r)
		if err != nil {
			return nil, err
		}
		return analytics.Normalize(points)
	})
	if err != nil {
		return nil, fmt.Errorf("timeseries: %w", err)
	}
	s.slog.LogUpstreamFetch(ctx, log.OpTimeseries, r, s.cfg.Upstream, time.Since(start), hit)
	if out == nil {
		out = []core.TimeseriesPoint{}
	}
	return out, nil
}

// Dashboard resolves key, fetches the grouped totals and the daily series
// concurrently and shapes them for display.
func (s *AnalyticsService) Dashboard(ctx context.Context, key core.RangeKey, opts DashboardOptions) (Dashboard, error) {
	r, err := analytics.Resolve(key, s.snapshot())
	if err != nil {
		return Dashboard{}, err
	}
	query := analytics.Build(analytics.RangeParams(r))

	var (
		raw    core.AnalyticsBreakdown
		points []core.TimeseriesPoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		raw, err = s.breakdown(gctx, r, query)
		return err
	})
	g.Go(func() error {
		var err error
		points, err = s.timeseries(gctx, r, query)
		return err
	})
	if err := g.Wait(); err != nil {
		if !errors.Is(err, context.Canceled) {
			s.slog.LogError(ctx, "dashboard fetch failed", err, log.OpResolve, log.NewFields().WithRange(r))
		}
		return Dashboard{}, err
	}

	tagOpts := analytics.ShapeOptions{Cap: s.cfg.TagCap, IncludeRemainder: opts.IncludeRemainder}
	if opts.ShowAllTags {
		tagOpts.Cap = 0
	}

	byCategory := analytics.Shape(raw.ByCategory, analytics.ShapeOptions{})
	return Dashboard{
		Range:         newRangeInfo(r),
		Total:         byCategory.Total,
		ByCategory:    byCategory,
		ByPaymentMode: analytics.Shape(raw.ByPaymentMode, analytics.ShapeOptions{}),
		ByTag:         analytics.Shape(raw.ByTag, tagOpts),
		Timeseries:    points,
	}, nil
}

// Timeseries returns the normalized daily series of a window.
func (s *AnalyticsService) Timeseries(ctx context.Context, key core.RangeKey) (RangeInfo, []core.TimeseriesPoint, error) {
	r, err := analytics.Resolve(key, s.snapshot())
	if err != nil {
		return RangeInfo{}, nil, err
	}
	points, err := s.timeseries(ctx, r, analytics.Build(analytics.RangeParams(r)))
	if err != nil {
		return RangeInfo{}, nil, err
	}
	return newRangeInfo(r), points, nil
}

func (s *AnalyticsService) Stats(ctx context.Context) (core.Stats, error) {
	out, _, err := cached(ctx, s, log.OpStats, "stats", s.source.ReadStats)
	if err != nil {
		return core.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return out, nil
}

// CategoryTrend returns the trend of one category. An empty trend type means
// daily.
func (s *AnalyticsService) CategoryTrend(ctx context.Context, category string, trend string) ([]core.CategoryTrendPoint, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, core.ErrEmptyCategory
	}
	t, err := core.ParseTrendType(trend)
	if err != nil {
		return nil, err
	}
	key := "trend?" + analytics.Build(analytics.Params{{Key: "category", Value: category}, {Key: "type", Value: string(t)}})
	out, _, err := cached(ctx, s, log.OpCategoryTrend, key, func(ctx context.Context) ([]core.CategoryTrendPoint, error) {
		return s.source.ReadCategoryTrend(ctx, category, t)
	})
	if err != nil {
		return nil, fmt.Errorf("category trend: %w", err)
	}
	if out == nil {
		out = []core.CategoryTrendPoint{}
	}
	return out, nil
}

// RecentExpenses lists the newest records. limit <= 0 means the default and
// larger values are clamped to MaxRecentLimit.
func (s *AnalyticsService) RecentExpenses(ctx context.Context, limit int) ([]core.Expense, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	items, err := s.source.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func prepareExpense(e core.Expense) (core.Expense, error) {
	e.Category = strings.TrimSpace(e.Category)
	e.PaymentMode = strings.TrimSpace(e.PaymentMode)
	e.Remarks = strings.TrimSpace(e.Remarks)
	e.Tags = core.NormalizeTags(e.Tags)
	if e.Type == "" {
		e.Type = core.TypeForCategory(e.Category)
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (s *AnalyticsService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e, err := prepareExpense(e)
	if err != nil {
		return core.Expense{}, err
	}
	saved, err := s.source.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	s.slog.LogExpenseSaved(ctx, log.OpCreate, saved)
	s.Invalidate(ctx, ReasonWrite)
	return saved, nil
}

func (s *AnalyticsService) UpdateExpense(ctx context.Context, id string, e core.Expense) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("expense id: %w", core.ErrNotFound)
	}
	e, err := prepareExpense(e)
	if err != nil {
		return err
	}
	if err := s.source.UpdateExpense(ctx, id, e); err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	e.ID = id
	s.slog.LogExpenseSaved(ctx, log.OpUpdate, e)
	s.Invalidate(ctx, ReasonWrite)
	return nil
}

// SetIncome upserts the income of a month, the current one when unset.
func (s *AnalyticsService) SetIncome(ctx context.Context, in core.Income) (core.Income, error) {
	in.Month = strings.TrimSpace(in.Month)
	if in.Month == "" {
		in.Month = core.MonthOf(s.now())
	}
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	if err := s.source.SetIncome(ctx, in); err != nil {
		return core.Income{}, fmt.Errorf("set income: %w", err)
	}
	s.logger.InfoContext(ctx, "income saved", log.FieldMonth, in.Month, log.FieldAmount, in.Amount.String())
	s.Invalidate(ctx, ReasonWrite)
	return in, nil
}

// ExportMonth returns the CSV export of a YYYY-MM month.
func (s *AnalyticsService) ExportMonth(ctx context.Context, month string) ([]byte, error) {
	month = strings.TrimSpace(month)
	if _, err := core.ParseMonth(month); err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := s.source.ExportMonth(ctx, month)
	s.metrics.ObserveUpstream(log.OpExport, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", month, err)
	}
	return out, nil
}

// Invalidate drops every cached payload. Loads already in flight are not
// stored and later callers start fresh ones.
func (s *AnalyticsService) Invalidate(ctx context.Context, reason string) {
	s.mu.Lock()
	s.gen.Add(1)
	err := s.cache.Purge(ctx)
	s.mu.Unlock()
	if err != nil {
		s.logger.WarnContext(ctx, "cache purge failed", log.FieldReason, reason, log.FieldError, err)
		return
	}
	s.metrics.Invalidation(reason)
	s.logger.DebugContext(ctx, "analytics cache invalidated", log.FieldReason, reason)
}

// Ping reports whether the upstream answers.
func (s *AnalyticsService) Ping(ctx context.Context) error {
	return s.source.Ping(ctx)
}

// Warm fetches every window and the stats so the next reads hit the cache.
// A failing window does not stop the others; all errors are joined.
func (s *AnalyticsService) Warm(ctx context.Context) error {
	var errs []error
	for _, key := range core.RangeKeys {
		if _, err := s.Dashboard(ctx, key, DashboardOptions{}); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	if _, err := s.Stats(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type noStore struct{}

func (noStore) Get(context.Context, string, any) (bool, error) { return false, nil }
func (noStore) Set(context.Context, string, any) error         { return nil }
func (noStore) Purge(context.Context) error                    { return nil }
