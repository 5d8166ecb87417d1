package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit publisher.
type Metrics struct {
	Emitted         prometheus.Counter
	Dropped         prometheus.Counter
	PersistFailures prometheus.Counter
	PersistDuration prometheus.Histogram
}

// NewMetrics registers and returns the publisher metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Emitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "coffer_audit_events_emitted_total",
			Help: "Total number of audit events successfully persisted",
		}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "coffer_audit_events_dropped_total",
			Help: "Total number of audit events dropped by a saturated async buffer",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "coffer_audit_persist_failures_total",
			Help: "Total number of audit event persistence failures",
		}),
		PersistDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "coffer_audit_persist_duration_seconds",
			Help:    "Time spent persisting audit events",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
