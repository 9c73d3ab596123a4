package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"spese-analytics/internal/core"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentAnalytics, Output: &buf})
	logger.Info("hello", "k", "v")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if rec["component"] != ComponentAnalytics || rec["k"] != "v" {
		t.Fatalf("unexpected record: %v", rec)
	}

	buf.Reset()
	logger.WithComponent(ComponentCache).Warn("child")
	if !strings.Contains(buf.String(), `"component":"cache"`) {
		t.Fatalf("child component missing: %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Fatalf("fallback component = %q", got.Component())
	}
	l := Discard().WithComponent(ComponentHTTP)
	ctx := NewContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatalf("logger not found in context")
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf}))
	r := httptest.NewRequest(http.MethodGet, "/api/analytics?range=30d", nil)

	sl.LogHTTPEnd(context.Background(), r, 503, 12, "10.0.0.1")
	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Fatalf("5xx should log at error: %q", buf.String())
	}
	buf.Reset()
	sl.LogHTTPEnd(context.Background(), r, 404, 1, "10.0.0.1")
	if !strings.Contains(buf.String(), `"level":"WARN"`) {
		t.Fatalf("4xx should log at warn: %q", buf.String())
	}

	buf.Reset()
	rng := core.ResolvedRange{Key: core.MonthToDate, Start: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)}
	sl.LogUpstreamFetch(context.Background(), OpBreakdown, rng, "api", 5*time.Millisecond, true)
	if !strings.Contains(buf.String(), `"range_key":"monthToDate"`) || !strings.Contains(buf.String(), `"cache_hit":true`) {
		t.Fatalf("fetch fields missing: %q", buf.String())
	}

	buf.Reset()
	sl.LogError(context.Background(), "boom", errors.New("bad"), OpExport, nil)
	if !strings.Contains(buf.String(), `"error":"bad"`) {
		t.Fatalf("error field missing: %q", buf.String())
	}
}
