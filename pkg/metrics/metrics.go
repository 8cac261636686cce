package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metrics for a service
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight *prometheus.GaugeVec
	DBConnPoolStats  *prometheus.GaugeVec

	InteractionsCreated *prometheus.CounterVec
	InteractionsDeleted *prometheus.CounterVec
	ReconcilerPulls     prometheus.Counter
	ReconcilerPushes    prometheus.Counter
	ReconcilerPushFails prometheus.Counter
}

// NewMetrics creates a new metrics instance
func NewMetrics(serviceName string) *Metrics {
	return newMetrics(serviceName, prometheus.DefaultRegisterer)
}

// NewTestMetrics creates a metrics instance on a private registry; used in
// tests so repeated registration does not panic.
func NewTestMetrics(serviceName string) *Metrics {
	return newMetrics(serviceName, prometheus.NewRegistry())
}

func newMetrics(serviceName string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "yaopets",
				Subsystem: serviceName,
				Name:      "requests_total",
				Help:      "Total number of requests",
			},
			[]string{"method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "yaopets",
				Subsystem: serviceName,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		RequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "yaopets",
				Subsystem: serviceName,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
			[]string{"method"},
		),
		DBConnPoolStats: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "yaopets",
				Subsystem: serviceName,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"stat"}, // stat can be: open, in_use, idle, wait_count, etc.
		),
		InteractionsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "yaopets",
				Subsystem: serviceName,
				Name:      "interactions_created_total",
				Help:      "Interactions created, by kind",
			},
			[]string{"kind"},
		),
		InteractionsDeleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "yaopets",
				Subsystem: serviceName,
				Name:      "interactions_deleted_total",
				Help:      "Interactions deleted, by kind",
			},
			[]string{"kind"},
		),
		ReconcilerPulls: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "yaopets",
				Subsystem: serviceName,
				Name:      "reconciler_pulls_total",
				Help:      "Server-side interactions materialized into the local cache",
			},
		),
		ReconcilerPushes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "yaopets",
				Subsystem: serviceName,
				Name:      "reconciler_pushes_total",
				Help:      "Local-only interactions pushed to the server",
			},
		),
		ReconcilerPushFails: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "yaopets",
				Subsystem: serviceName,
				Name:      "reconciler_push_failures_total",
				Help:      "Push attempts that failed and were left for the next pass",
			},
		),
	}
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// routeLabel resolves the matched route template so path parameters do not
// mint a new label value per post or comment ID
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unmatched"
}

// Middleware returns an HTTP middleware that records request metrics
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method := r.Method + " " + routeLabel(r)

			// Track requests in flight
			m.RequestsInFlight.WithLabelValues(method).Inc()
			defer m.RequestsInFlight.WithLabelValues(method).Dec()

			// Track request duration
			start := time.Now()
			defer func() {
				duration := time.Since(start).Seconds()
				m.RequestDuration.WithLabelValues(method).Observe(duration)
			}()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			m.RequestCounter.WithLabelValues(method, strconv.Itoa(rec.status)).Inc()
		})
	}
}

// RecordDBPoolStats records database connection pool statistics
func (m *Metrics) RecordDBPoolStats(open, inUse, idle int, waitCount int64, waitDuration time.Duration) {
	m.DBConnPoolStats.WithLabelValues("open").Set(float64(open))
	m.DBConnPoolStats.WithLabelValues("in_use").Set(float64(inUse))
	m.DBConnPoolStats.WithLabelValues("idle").Set(float64(idle))
	m.DBConnPoolStats.WithLabelValues("wait_count").Set(float64(waitCount))
	m.DBConnPoolStats.WithLabelValues("wait_duration_ms").Set(float64(waitDuration.Milliseconds()))
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}
