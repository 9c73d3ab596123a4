package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spese-analytics/internal/amqp"
	"spese-analytics/internal/metrics"
	"spese-analytics/internal/services"
)

const (
	JobWarm       = "warm"
	JobInvalidate = "invalidate"
)

// Warmer is the part of the analytics service the worker drives.
type Warmer interface {
	Warm(ctx context.Context) error
	Invalidate(ctx context.Context, reason string)
}

// ChangeConsumer delivers change events published by other dashboards.
type ChangeConsumer interface {
	ConsumeChanges(ctx context.Context, handler func(context.Context, *amqp.ChangeEvent) error) error
}

// RefreshWorkerConfig holds configuration for the refresh worker
type RefreshWorkerConfig struct {
	// Interval is how often every range is re-fetched (default: 12s)
	Interval time.Duration
}

// DefaultRefreshWorkerConfig returns the dashboard's refresh cadence.
func DefaultRefreshWorkerConfig() RefreshWorkerConfig {
	return RefreshWorkerConfig{Interval: 12 * time.Second}
}

// RefreshWorker keeps the analytics cache warm on a fixed interval and drops
// it whenever another dashboard announces a write.
type RefreshWorker struct {
	warmer   Warmer
	consumer ChangeConsumer
	metrics  *metrics.Metrics
	config   RefreshWorkerConfig

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// NewRefreshWorker creates a worker. consumer may be nil when AMQP is off.
func NewRefreshWorker(warmer Warmer, consumer ChangeConsumer, m *metrics.Metrics, config RefreshWorkerConfig) *RefreshWorker {
	if config.Interval <= 0 {
		config.Interval = DefaultRefreshWorkerConfig().Interval
	}
	return &RefreshWorker{
		warmer:   warmer,
		consumer: consumer,
		metrics:  m,
		config:   config,
	}
}

// Start begins the refresh loop. Returns an error if already running.
func (w *RefreshWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("refresh worker is already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.runLoop(runCtx)
	}()
	if w.consumer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.consumeLoop(runCtx)
		}()
	}
	go func() {
		wg.Wait()
		close(w.doneCh)
	}()

	slog.InfoContext(ctx, "Refresh worker started",
		"interval", w.config.Interval,
		"consume_changes", w.consumer != nil)

	return nil
}

// Stop cancels the loops and waits for them to return.
func (w *RefreshWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	cancel, done := w.cancel, w.doneCh
	w.mu.Unlock()

	cancel()

	select {
	case <-done:
		slog.InfoContext(ctx, "Refresh worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Refresh worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	return nil
}

// IsRunning returns whether the worker is currently running
func (w *RefreshWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *RefreshWorker) runLoop(ctx context.Context) {
	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	// Warm immediately on startup
	w.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *RefreshWorker) refresh(ctx context.Context) {
	start := time.Now()
	err := w.warmer.Warm(ctx)
	if ctx.Err() != nil {
		return
	}
	w.metrics.RefreshRun(JobWarm, err)
	if err != nil {
		slog.WarnContext(ctx, "Dashboard refresh failed", "error", err, "duration", time.Since(start))
		return
	}
	slog.DebugContext(ctx, "Dashboard refreshed", "duration", time.Since(start))
}

func (w *RefreshWorker) consumeLoop(ctx context.Context) {
	err := w.consumer.ConsumeChanges(ctx, w.HandleChange)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		slog.ErrorContext(ctx, "Change consumer stopped", "error", err)
	}
}

// HandleChange drops the cache in response to a remote write.
func (w *RefreshWorker) HandleChange(ctx context.Context, ev *amqp.ChangeEvent) error {
	slog.InfoContext(ctx, "Processing change event",
		"kind", ev.Kind,
		"id", ev.ID,
		"month", ev.Month)

	w.warmer.Invalidate(ctx, services.ReasonRemote)
	w.metrics.RefreshRun(JobInvalidate, nil)
	return nil
}
