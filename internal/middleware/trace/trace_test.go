package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"spese-analytics/internal/log"
	"spese-analytics/internal/metrics"
)

func TestMiddleware_RequestID(t *testing.T) {
	mw := NewMiddleware(nil, nil, nil)

	var seen string
	h := mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		if log.FromContext(r.Context()).Component() == "unknown" {
			t.Error("request logger missing from context")
		}
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if !strings.HasPrefix(seen, "req_") || len(seen) != 20 {
			t.Errorf("request id = %q", seen)
		}
		if rec.Header().Get(HeaderRequestID) != seen {
			t.Errorf("response header = %q, want %q", rec.Header().Get(HeaderRequestID), seen)
		}
	})

	t.Run("propagated", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(HeaderRequestID, "abc-123")
		h.ServeHTTP(httptest.NewRecorder(), r)
		if seen != "abc-123" {
			t.Errorf("request id = %q, want abc-123", seen)
		}
	})

	t.Run("rejected", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(HeaderRequestID, "bad id\n")
		h.ServeHTTP(httptest.NewRecorder(), r)
		if seen == "bad id\n" || !strings.HasPrefix(seen, "req_") {
			t.Errorf("request id = %q", seen)
		}
	})

	if mw.Total() != 3 {
		t.Errorf("Total = %d, want 3", mw.Total())
	}
}

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	m := metrics.New()
	mw := NewMiddleware(log.Discard(), m, func(r *http.Request) string { return "1.2.3.4" })

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/expenses/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	h := mw.Middleware(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/expenses/42", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`spese_analytics_http_requests_total{code="404",route="GET /api/expenses/{id}"} 1`,
		`spese_analytics_http_requests_total{code="404",route="unmatched"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}

func TestResponseWriter_KeepsFirstStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	_, _ = rw.Write([]byte("ok"))
	if rw.statusCode != http.StatusOK {
		t.Errorf("status = %d", rw.statusCode)
	}
}
