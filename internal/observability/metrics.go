package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	Registry            *prometheus.Registry
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
	storeWrites         *prometheus.CounterVec
	workflowTransitions *prometheus.CounterVec
	reportsGenerated    *prometheus.CounterVec
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"method", "path", "status"},
		),
		httpErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_errors_total",
				Help: "HTTP errors by domain error code",
			},
			[]string{"method", "path", "code"},
		),
		storeWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_batches_total",
				Help: "Document store batches by outcome",
			},
			[]string{"outcome"},
		),
		workflowTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "workflow_transitions_total",
				Help: "Client workflow transitions by event and outcome",
			},
			[]string{"event", "outcome"},
		),
		reportsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reports_generated_total",
				Help: "Exported reports by kind and format",
			},
			[]string{"kind", "format"},
		),
	}
	m.Registry.MustRegister(
		m.httpRequestDuration,
		m.httpErrors,
		m.storeWrites,
		m.workflowTransitions,
		m.reportsGenerated,
		prometheus.NewGoCollector(),
	)
	return m
}

// RecordRequest observes request latency.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.httpErrors.WithLabelValues(method, path, code).Inc()
}

// RecordStoreBatch counts a store batch.
func (m *Metrics) RecordStoreBatch(err error) {
	if m == nil {
		return
	}
	m.storeWrites.WithLabelValues(outcome(err)).Inc()
}

// RecordTransition counts a workflow transition attempt.
func (m *Metrics) RecordTransition(event string, err error) {
	if m == nil {
		return
	}
	m.workflowTransitions.WithLabelValues(event, outcome(err)).Inc()
}

// RecordReport counts a generated report.
func (m *Metrics) RecordReport(kind, format string) {
	if m == nil {
		return
	}
	m.reportsGenerated.WithLabelValues(kind, format).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
