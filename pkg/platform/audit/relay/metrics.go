package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit relay.
type Metrics struct {
	Published   prometheus.Counter
	Failures    prometheus.Counter
	BreakerOpen prometheus.Gauge
}

// NewMetrics registers and returns the relay metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "coffer_audit_relay_published_total",
			Help: "Total number of audit events published to Kafka",
		}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "coffer_audit_relay_failures_total",
			Help: "Total number of failed audit relay produce attempts",
		}),
		BreakerOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "coffer_audit_relay_breaker_open",
			Help: "Whether the relay circuit breaker is open (1) or closed (0)",
		}),
	}
}
