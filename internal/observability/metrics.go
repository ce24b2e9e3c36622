package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTransitions counts successful workflow transitions by from/to status.
	RequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mfl_request_transitions_total",
		Help: "Total number of successful facility-request status transitions",
	}, []string{"from", "to"})

	// RequestTransitionConflicts counts lost concurrent transition attempts.
	RequestTransitionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mfl_request_transition_conflicts_total",
		Help: "Total number of transitions rejected due to concurrent modification",
	})

	// RequestRejections counts rejections by the rejecting role.
	RequestRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mfl_request_rejections_total",
		Help: "Total number of rejected facility requests by reviewer role",
	}, []string{"role"})

	// WebhookDeliveries counts outbound publish notifications by outcome.
	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mfl_webhook_deliveries_total",
		Help: "Total number of webhook delivery attempts by outcome",
	}, []string{"outcome"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mfl_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct{}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics() *DatabaseMetrics {
	return &DatabaseMetrics{}
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
