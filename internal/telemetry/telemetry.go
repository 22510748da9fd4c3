// Package telemetry defines the Prometheus metrics exposed on
// /metrics and the HTTP middleware that feeds the request metrics.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// =============================================================================
// Collector Metrics
// =============================================================================

var (
	// PollsTotal counts source polls by outcome.
	PollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "climated_source_polls_total",
		Help: "Number of source polls, labeled by source and status.",
	}, []string{"source", "status"})

	// PollDuration observes poll latency per source.
	PollDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "climated_source_poll_duration_seconds",
		Help:    "Source poll duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	// RowsIngested counts rows written per source.
	RowsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "climated_source_rows_total",
		Help: "Number of rows ingested, labeled by source.",
	}, []string{"source"})
)

// =============================================================================
// HTTP Metrics
// =============================================================================

var (
	// HTTPRequestsTotal counts API requests by route and status code.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "climated_http_requests_total",
		Help: "Number of HTTP requests, labeled by method, route, and status.",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency per route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "climated_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds, labeled by route.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"route"})
)

// =============================================================================
// Cache Metrics
// =============================================================================

var (
	// CacheHits counts metric-payload cache hits.
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "climated_cache_hits_total",
		Help: "Number of metric cache hits.",
	})

	// CacheMisses counts metric-payload cache misses.
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "climated_cache_misses_total",
		Help: "Number of metric cache misses.",
	})
)

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// =============================================================================
// Middleware
// =============================================================================

// statusRecorder captures the response status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency per route. Route labels
// use the mux path template so metrics don't explode on path variables.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
