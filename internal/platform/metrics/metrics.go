package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the assignment engine.
type Metrics struct {
	AssignmentsTotal        *prometheus.CounterVec
	TransitionsTotal        *prometheus.CounterVec
	InvalidTransitionsTotal prometheus.Counter
	StaleStateRetriesTotal  prometheus.Counter
	NotificationFailures    prometheus.Counter
	RequestDuration         *prometheus.HistogramVec
}

// New creates and registers all metrics against the given registerer. Pass
// prometheus.DefaultRegisterer in main; tests use a fresh registry so
// repeated construction does not panic.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AssignmentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "complyflow_assignments_total",
			Help: "Assignments created, labelled by assignment reason.",
		}, []string{"reason"}),
		TransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "complyflow_workflow_transitions_total",
			Help: "Workflow item state transitions applied, labelled by event.",
		}, []string{"event"}),
		InvalidTransitionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "complyflow_workflow_invalid_transitions_total",
			Help: "State machine events rejected for the item's current status.",
		}),
		StaleStateRetriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "complyflow_stale_state_retries_total",
			Help: "Ledger retries after an optimistic-concurrency conflict.",
		}),
		NotificationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "complyflow_notification_failures_total",
			Help: "Notification rows that failed to persist (best-effort path).",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "complyflow_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// ObserveRequest records one HTTP request observation.
func (m *Metrics) ObserveRequest(route, status string, d time.Duration) {
	m.RequestDuration.WithLabelValues(route, status).Observe(d.Seconds())
}
