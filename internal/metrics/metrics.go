// Package metrics exposes the application's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	toasts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradernet",
			Subsystem: "notify",
			Name:      "toasts_total",
			Help:      "Toast dispatches, by live-layer action.",
		},
		[]string{"action"},
	)

	persisted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradernet",
			Subsystem: "notify",
			Name:      "persisted_total",
			Help:      "Notification store writes, by result.",
		},
		[]string{"result"},
	)

	logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradernet",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts, by resulting status.",
		},
		[]string{"status"},
	)

	resolutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradernet",
			Subsystem: "auth",
			Name:      "gateway_resolutions_total",
			Help:      "Auth gateway resolutions, by outcome.",
		},
		[]string{"outcome"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tradernet",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests handled by tradernetd.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tradernet",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		toasts, persisted, logins, resolutions,
		httpRequests, httpDuration,
	)
}

// RecordToast counts a dispatch; action is "shown" or "updated".
func RecordToast(action string) {
	toasts.WithLabelValues(action).Inc()
}

// RecordPersist counts a notification store write.
func RecordPersist(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	persisted.WithLabelValues(result).Inc()
}

// RecordLogin counts a login attempt by status.
func RecordLogin(status string) {
	logins.WithLabelValues(status).Inc()
}

// RecordResolution counts a gateway resolution by outcome.
func RecordResolution(outcome string) {
	resolutions.WithLabelValues(outcome).Inc()
}

// Handler serves the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument wraps an HTTP handler with request counting and timing.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		httpRequests.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
