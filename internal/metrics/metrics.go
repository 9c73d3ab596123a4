// Package metrics exposes dashboard counters and latencies in the
// Prometheus format. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "spese_analytics_"

	resultSuccess = "success"
	resultError   = "error"
)

type Metrics struct {
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	refreshRuns      *prometheus.CounterVec
	invalidations    *prometheus.CounterVec
	reportExports    *prometheus.CounterVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		upstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "upstream_requests_total",
				Help: "Total upstream reads and writes by operation and result",
			},
			[]string{"operation", "result"},
		),
		upstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "upstream_latency_seconds",
				Help:    "Upstream call latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cache_lookups_total",
				Help: "Analytics cache lookups by result",
			},
			[]string{"result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by route and status code",
			},
			[]string{"route", "code"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		refreshRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "refresh_runs_total",
				Help: "Background refresh runs by job and result",
			},
			[]string{"job", "result"},
		),
		invalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cache_invalidations_total",
				Help: "Analytics cache invalidations by reason",
			},
			[]string{"reason"},
		),
		reportExports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_exports_total",
				Help: "Rendered reports by format and result",
			},
			[]string{"format", "result"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.upstreamRequests,
		m.upstreamLatency,
		m.cacheLookups,
		m.httpRequests,
		m.httpLatency,
		m.refreshRuns,
		m.invalidations,
		m.reportExports,
	)
	return m
}

func result(err error) string {
	if err != nil {
		return resultError
	}
	return resultSuccess
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveUpstream(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.upstreamRequests.WithLabelValues(operation, result(err)).Inc()
	m.upstreamLatency.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) ObserveHTTP(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpLatency.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) RefreshRun(job string, err error) {
	if m == nil {
		return
	}
	m.refreshRuns.WithLabelValues(job, result(err)).Inc()
}

func (m *Metrics) Invalidation(reason string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(reason).Inc()
}

func (m *Metrics) ReportExport(format string, err error) {
	if m == nil {
		return
	}
	m.reportExports.WithLabelValues(format, result(err)).Inc()
}
