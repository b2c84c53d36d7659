// Package metrics provides Prometheus instrumentation for the DCA engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EnrollmentsTotal counts accepted enrollments.
	EnrollmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dca_enrollments_total",
		Help: "Total number of accepted enrollments",
	})

	// BatchesTotal counts batch executions by outcome.
	BatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dca_batches_total",
		Help: "Total number of batch executions",
	}, []string{"status"})

	// BatchDuration tracks end-to-end batch execution time.
	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dca_batch_duration_seconds",
		Help:    "Batch execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	// PurchasesTotal counts executed purchases.
	PurchasesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dca_purchases_total",
		Help: "Total number of executed purchases",
	})

	// InvestmentsFinished counts plans that reached zero remaining balance.
	InvestmentsFinished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dca_investments_finished_total",
		Help: "Total number of completed investment plans",
	})

	// BatchSkipsTotal counts per-user no-ops inside batches, by reason.
	BatchSkipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dca_batch_skips_total",
		Help: "Per-user skips inside batch executions",
	}, []string{"reason"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dca_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dca_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dca_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
