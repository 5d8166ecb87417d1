package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the treasury module.
type Metrics struct {
	// Operation counts by operation and outcome
	Operations *prometheus.CounterVec

	// Operation latencies by operation
	Duration *prometheus.HistogramVec

	// Pot balance after the most recent operation
	PotBalance prometheus.Gauge

	// Dust swept into the pot
	DustSwept prometheus.Counter
}

// New creates a new Metrics instance with all treasury metrics registered.
func New() *Metrics {
	return &Metrics{
		Operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "coffer_treasury_operations_total",
			Help: "Total treasury operations by operation and outcome",
		}, []string{"op", "outcome"}), // op: "donate", "allocate", "absorb_imbalance"

		Duration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "coffer_treasury_operation_duration_seconds",
			Help:    "Duration of treasury operations including ledger and audit writes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"op"}),

		PotBalance: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "coffer_treasury_pot_balance",
			Help: "Pot balance observed after the most recent treasury operation",
		}),

		DustSwept: promauto.NewCounter(prometheus.CounterOpts{
			Name: "coffer_treasury_dust_swept_total",
			Help: "Total currency swept from the dust pool into the pot",
		}),
	}
}

// ObserveOperation records one finished treasury operation.
func (m *Metrics) ObserveOperation(op, outcome string, d time.Duration) {
	if m != nil {
		m.Operations.WithLabelValues(op, outcome).Inc()
		m.Duration.WithLabelValues(op).Observe(d.Seconds())
	}
}

// SetPotBalance records the pot balance after an operation.
func (m *Metrics) SetPotBalance(balance uint64) {
	if m != nil {
		m.PotBalance.Set(float64(balance))
	}
}

// AddDustSwept records dust absorbed into the pot by the sweeper.
func (m *Metrics) AddDustSwept(amount uint64) {
	if m != nil {
		m.DustSwept.Add(float64(amount))
	}
}
