package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "snooptrade"

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Upstream API metrics
	UpstreamRequestsTotal *prometheus.CounterVec
	UpstreamErrorsTotal   *prometheus.CounterVec
	UpstreamDuration      *prometheus.HistogramVec

	// Dashboard metrics
	PipelineDroppedTotal      *prometheus.CounterVec
	DashboardTransitionsTotal *prometheus.CounterVec

	// Session metrics
	SessionAuthenticationsTotal prometheus.Counter
	SessionInvalidationsTotal   *prometheus.CounterVec
	SessionsExpiredTotal        prometheus.Counter

	// Session store metrics
	StoreOpDuration  *prometheus.HistogramVec
	StoreErrorsTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		UpstreamRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "requests_total",
				Help:      "Total number of SnoopTrade API requests",
			},
			[]string{"operation"},
		),
		UpstreamErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "errors_total",
				Help:      "Total number of failed SnoopTrade API requests",
			},
			[]string{"operation", "status"},
		),
		UpstreamDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "duration_seconds",
				Help:      "Duration of SnoopTrade API calls in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"operation"},
		),

		PipelineDroppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "dropped_records_total",
				Help:      "Records dropped while normalizing upstream data",
			},
			[]string{"kind", "reason"},
		),
		DashboardTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dashboard",
				Name:      "transitions_total",
				Help:      "Dashboard state transitions",
			},
			[]string{"from", "to"},
		),

		SessionAuthenticationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "authentications_total",
				Help:      "Access tokens stored on a session",
			},
		),
		SessionInvalidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "invalidations_total",
				Help:      "Sessions destroyed, by reason",
			},
			[]string{"reason"},
		),
		SessionsExpiredTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session",
				Name:      "expired_total",
				Help:      "Expired sessions removed by the sweep",
			},
		),

		StoreOpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "session_store",
				Name:      "op_duration_seconds",
				Help:      "Duration of session store operations in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"backend", "operation"},
		),
		StoreErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "session_store",
				Name:      "errors_total",
				Help:      "Total number of session store errors",
			},
			[]string{"backend", "operation"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "response_size_bytes",
				Help:      "Size of HTTP responses in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"service"},
		),
	}

	return m
}

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	globalMetrics = NewMetrics(nil)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		return InitMetrics()
	}
	return globalMetrics
}

// RecordUpstreamRequest records a SnoopTrade API request
func (m *Metrics) RecordUpstreamRequest(operation string) {
	m.UpstreamRequestsTotal.WithLabelValues(operation).Inc()
}

// RecordUpstreamError records a failed SnoopTrade API request.
// status is the HTTP status code, or "network" when none was received.
func (m *Metrics) RecordUpstreamError(operation, status string) {
	m.UpstreamErrorsTotal.WithLabelValues(operation, status).Inc()
}

// RecordUpstreamDuration records the duration of a SnoopTrade API call
func (m *Metrics) RecordUpstreamDuration(operation string, duration time.Duration) {
	m.UpstreamDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDropped records records discarded by the normalization pipeline
func (m *Metrics) RecordDropped(kind, reason string, n int) {
	if n <= 0 {
		return
	}
	m.PipelineDroppedTotal.WithLabelValues(kind, reason).Add(float64(n))
}

// RecordTransition records a dashboard state change
func (m *Metrics) RecordTransition(from, to string) {
	m.DashboardTransitionsTotal.WithLabelValues(from, to).Inc()
}

// SessionAuthenticated records a token stored on a session
func (m *Metrics) SessionAuthenticated() {
	m.SessionAuthenticationsTotal.Inc()
}

// RecordSessionInvalidation records a destroyed session
func (m *Metrics) RecordSessionInvalidation(reason string) {
	m.SessionInvalidationsTotal.WithLabelValues(reason).Inc()
}

// RecordSessionsExpired records sessions purged by a sweep.
// Keys evicted by a Redis TTL never pass through here.
func (m *Metrics) RecordSessionsExpired(n int64) {
	if n <= 0 {
		return
	}
	m.SessionsExpiredTotal.Add(float64(n))
}

// RecordStoreOp records a session store operation
func (m *Metrics) RecordStoreOp(backend, operation string, duration time.Duration) {
	m.StoreOpDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordStoreError records a session store error
func (m *Metrics) RecordStoreError(backend, operation string) {
	m.StoreErrorsTotal.WithLabelValues(backend, operation).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration, responseSize int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// SetCircuitBreakerState sets the current state of a circuit breaker
func (m *Metrics) SetCircuitBreakerState(service string, state int) {
	m.CircuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(service string) {
	m.CircuitBreakerTrips.WithLabelValues(service).Inc()
}

// Timer is a helper for timing operations
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func (m *Metrics) NewTimer() *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: m,
	}
}

// ObserveUpstream records the upstream call duration
func (t *Timer) ObserveUpstream(operation string) {
	t.metrics.RecordUpstreamDuration(operation, time.Since(t.start))
}

// ObserveStore records the session store operation duration
func (t *Timer) ObserveStore(backend, operation string) {
	t.metrics.RecordStoreOp(backend, operation, time.Since(t.start))
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
