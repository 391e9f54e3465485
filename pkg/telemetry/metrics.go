package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the admission and audit core.
type Metrics struct {
	// Rate limiter metrics
	decisionsTotal *prometheus.CounterVec
	fallbacksTotal prometheus.Counter
	bucketsSwept   prometheus.Counter

	// Audit pipeline metrics
	entriesQueued  prometheus.Counter
	entriesDropped prometheus.Counter
	entriesWritten prometheus.Counter
	flushFailures  prometheus.Counter
	flushDuration  prometheus.Histogram
	flushEntries   prometheus.Histogram
	queueDepth     prometheus.Gauge

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates a metrics instance backed by a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_ratelimit_decisions_total",
				Help: "Total admission decisions by backend and outcome",
			},
			[]string{"backend", "outcome"},
		),

		fallbacksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aegis_ratelimit_fallbacks_total",
				Help: "Total decisions degraded to the memory backend after a Redis failure",
			},
		),

		bucketsSwept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aegis_ratelimit_buckets_swept_total",
				Help: "Total stale local buckets removed by the background sweep",
			},
		),

		entriesQueued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aegis_audit_entries_queued_total",
				Help: "Total audit entries accepted by the queue",
			},
		),

		entriesDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aegis_audit_entries_dropped_total",
				Help: "Total audit entries rejected because the queue was full or closed",
			},
		),

		entriesWritten: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aegis_audit_entries_written_total",
				Help: "Total audit entries persisted by the batch writer",
			},
		),

		flushFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "aegis_audit_flush_failures_total",
				Help: "Total batch writes that failed; their entries are discarded",
			},
		),

		flushDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aegis_audit_flush_duration_seconds",
				Help:    "Durable-store batch write latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		flushEntries: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "aegis_audit_flush_entries",
				Help:    "Number of entries per flushed batch",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
			},
		),

		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "aegis_audit_queue_depth",
				Help: "Current number of audit entries waiting in the queue",
			},
		),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aegis_http_requests_total",
				Help: "Total HTTP requests by method, endpoint and status code",
			},
			[]string{"method", "endpoint", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aegis_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.decisionsTotal,
		m.fallbacksTotal,
		m.bucketsSwept,
		m.entriesQueued,
		m.entriesDropped,
		m.entriesWritten,
		m.flushFailures,
		m.flushDuration,
		m.flushEntries,
		m.queueDepth,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)

	return m
}

// RecordDecision counts one admission decision.
func (m *Metrics) RecordDecision(backend string, allowed bool) {
	outcome := "denied"
	if allowed {
		outcome = "allowed"
	}
	m.decisionsTotal.WithLabelValues(backend, outcome).Inc()
}

// RecordFallback counts one decision degraded to the memory backend.
func (m *Metrics) RecordFallback() {
	m.fallbacksTotal.Inc()
}

// RecordSweep counts local buckets removed by one sweep pass.
func (m *Metrics) RecordSweep(removed int) {
	m.bucketsSwept.Add(float64(removed))
}

// RecordEnqueue counts one queue admission attempt.
func (m *Metrics) RecordEnqueue(accepted bool) {
	if accepted {
		m.entriesQueued.Inc()
	} else {
		m.entriesDropped.Inc()
	}
}

// RecordFlush records the outcome of one durable batch write.
func (m *Metrics) RecordFlush(entries int, duration time.Duration, err error) {
	m.flushDuration.Observe(duration.Seconds())
	m.flushEntries.Observe(float64(entries))
	if err != nil {
		m.flushFailures.Inc()
		return
	}
	m.entriesWritten.Add(float64(entries))
}

// SetQueueDepth updates the queue depth gauge.
func (m *Metrics) SetQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Handler returns an HTTP handler serving the private registry in Prometheus
// exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
