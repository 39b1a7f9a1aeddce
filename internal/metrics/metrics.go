// Package metrics provides Prometheus instrumentation for the options engine.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ComputationsTotal counts analytics computations, partitioned by operation.
	ComputationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "options_computations_total",
		Help: "Total number of analytics computations",
	}, []string{"operation"})

	// ComputationLatency tracks computation latency by operation.
	ComputationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "options_computation_latency_seconds",
		Help:    "Analytics computation latency in seconds",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"operation"})

	// ValidationFailures counts rejected inputs by offending field.
	ValidationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "options_validation_failures_total",
		Help: "Contract inputs rejected by the validator",
	}, []string{"field"})

	// WatchdogTriggers counts watchdog evaluations that crossed the threshold.
	WatchdogTriggers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "options_watchdog_triggers_total",
		Help: "Theta watchdog evaluations that triggered",
	})

	// ProviderFailures counts failed external data lookups.
	ProviderFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "options_provider_failures_total",
		Help: "External data lookups that fell back to manual values",
	}, []string{"operation"})

	// ExpiredContracts counts computations on contracts past expiration.
	ExpiredContracts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "options_expired_contracts_total",
		Help: "Computations served by the intrinsic value fallback",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "options_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "options_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "options_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// ObserveComputation records one computation of the named operation.
func ObserveComputation(operation string, start time.Time) {
	ComputationsTotal.WithLabelValues(operation).Inc()
	ComputationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

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

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
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

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack lets the websocket upgrader take over connections behind this middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}
