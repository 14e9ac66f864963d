// Package metrics exposes Prometheus collectors for phase runs, per-phase
// item outcomes, and HTTP request latency (§4.9 "Metrics endpoint", §11).
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PhaseRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dailydigest_phase_runs_total",
		Help: "Count of orchestrator phase invocations by phase and outcome.",
	}, []string{"phase", "outcome"})

	ItemOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dailydigest_item_outcomes_total",
		Help: "Count of per-item outcomes within a phase, by phase and status.",
	}, []string{"phase", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dailydigest_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status class.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "status_class"})
)

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTP wraps a handler, recording request latency into
// HTTPRequestDuration under the given route label.
func ObserveHTTP(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		statusClass := statusClassOf(sw.status)
		HTTPRequestDuration.WithLabelValues(route, statusClass).Observe(time.Since(start).Seconds())
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func statusClassOf(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
