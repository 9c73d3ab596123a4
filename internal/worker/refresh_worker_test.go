package worker

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"spese-analytics/internal/amqp"
	"spese-analytics/internal/metrics"
	"spese-analytics/internal/services"
)

type fakeWarmer struct {
	warms   atomic.Int32
	err     error
	mu      sync.Mutex
	reasons []string
}

func (f *fakeWarmer) Warm(context.Context) error {
	f.warms.Add(1)
	return f.err
}

func (f *fakeWarmer) Invalidate(_ context.Context, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reasons = append(f.reasons, reason)
}

func (f *fakeWarmer) invalidations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reasons...)
}

// fakeConsumer replays events then blocks until the context ends.
type fakeConsumer struct {
	events []*amqp.ChangeEvent
}

func (c *fakeConsumer) ConsumeChanges(ctx context.Context, handler func(context.Context, *amqp.ChangeEvent) error) error {
	for _, ev := range c.events {
		if err := handler(ctx, ev); err != nil {
			return err
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func scrape(m *metrics.Metrics) string {
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	return rec.Body.String()
}

func TestDefaultRefreshWorkerConfig(t *testing.T) {
	if got := DefaultRefreshWorkerConfig().Interval; got != 12*time.Second {
		t.Errorf("expected Interval 12s, got %v", got)
	}
	w := NewRefreshWorker(&fakeWarmer{}, nil, nil, RefreshWorkerConfig{})
	if w.config.Interval != 12*time.Second {
		t.Errorf("zero interval should fall back to default, got %v", w.config.Interval)
	}
}

func TestRefreshWorker_Lifecycle(t *testing.T) {
	warmer := &fakeWarmer{}
	m := metrics.New()
	w := NewRefreshWorker(warmer, nil, m, RefreshWorkerConfig{Interval: 10 * time.Millisecond})

	if w.IsRunning() {
		t.Fatal("worker should not be running initially")
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Start(context.Background()); err == nil {
		t.Error("expected error when starting already running worker")
	}

	waitFor(t, func() bool { return warmer.warms.Load() >= 3 })

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if w.IsRunning() {
		t.Error("worker should not be running after Stop")
	}

	n := warmer.warms.Load()
	time.Sleep(30 * time.Millisecond)
	if warmer.warms.Load() != n {
		t.Error("worker kept warming after Stop")
	}
	if body := scrape(m); !strings.Contains(body, `spese_analytics_refresh_runs_total{job="warm",result="success"}`) {
		t.Errorf("refresh runs not recorded:\n%s", body)
	}
}

func TestRefreshWorker_StopNotRunning(t *testing.T) {
	w := NewRefreshWorker(&fakeWarmer{}, nil, nil, DefaultRefreshWorkerConfig())
	if err := w.Stop(context.Background()); err != nil {
		t.Errorf("Stop on idle worker: %v", err)
	}
}

func TestRefreshWorker_WarmErrorKeepsRunning(t *testing.T) {
	warmer := &fakeWarmer{err: errors.New("upstream down")}
	m := metrics.New()
	w := NewRefreshWorker(warmer, nil, m, RefreshWorkerConfig{Interval: 10 * time.Millisecond})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop(context.Background())

	waitFor(t, func() bool { return warmer.warms.Load() >= 2 })
	waitFor(t, func() bool {
		return strings.Contains(scrape(m), `spese_analytics_refresh_runs_total{job="warm",result="error"}`)
	})
}

func TestRefreshWorker_ConsumesChanges(t *testing.T) {
	warmer := &fakeWarmer{}
	consumer := &fakeConsumer{events: []*amqp.ChangeEvent{
		amqp.NewChangeEvent(amqp.KindExpenseCreated, "7", "2024-03"),
		amqp.NewChangeEvent(amqp.KindIncomeSet, "", "2024-03"),
	}}
	w := NewRefreshWorker(warmer, consumer, nil, RefreshWorkerConfig{Interval: time.Hour})
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, func() bool { return len(warmer.invalidations()) == 2 })
	for _, r := range warmer.invalidations() {
		if r != services.ReasonRemote {
			t.Errorf("reason = %q, want %q", r, services.ReasonRemote)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
