// Package observe registers and exposes the service's Prometheus
// metrics. Counters are incremented by the feature handlers and the
// notify pipeline; the /metrics endpoint is mounted in bootstrap.
package observe

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clubhub_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	mutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clubhub_mutations_total",
			Help: "Total relationship mutations by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
	notifyPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clubhub_notify_published_total",
			Help: "Total notification envelopes handed to the publisher.",
		},
	)
	notifyFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clubhub_notify_failed_total",
			Help: "Total notification sends that failed (logged, never propagated).",
		},
	)
	notifyDeadLetterTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clubhub_notify_dead_letter_total",
			Help: "Total notification envelopes routed to the dead-letter log.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		mutationsTotal,
		notifyPublishedTotal,
		notifyFailedTotal,
		notifyDeadLetterTotal,
	)
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler { return promhttp.Handler() }

// Mutation records one mutation attempt. outcome is "ok" or "error".
func Mutation(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	mutationsTotal.WithLabelValues(operation, outcome).Inc()
}

// NotifyPublished counts envelopes handed to the publisher.
func NotifyPublished() { notifyPublishedTotal.Inc() }

// NotifyFailed counts swallowed send failures.
func NotifyFailed() { notifyFailedTotal.Inc() }

// NotifyDeadLetter counts envelopes that ended in the dead-letter log.
func NotifyDeadLetter() { notifyDeadLetterTotal.Inc() }

// HTTPMetrics is chi middleware recording request counts and latency.
func HTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
