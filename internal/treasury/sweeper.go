package treasury

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"coffer/internal/ledger"
	"coffer/internal/treasury/metrics"
)

const defaultSweepInterval = time.Minute

// Absorber consumes a surplus into the pot. Satisfied by *Service.
type Absorber interface {
	AbsorbImbalance(ctx context.Context, s *ledger.Surplus) (ledger.Amount, error)
}

// Sweeper periodically drains the ledger's dust pool into the pot. Reaped
// remainders are the only currency that exists outside accounts; sweeping
// them keeps issuance fully accounted for on the pot's books.
type Sweeper struct {
	collector ledger.DustCollector
	absorber  Absorber
	runner    Runner
	logger    *slog.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperLogger sets the sweeper logger.
func WithSweeperLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

// WithSweeperMetrics sets the metrics collector.
func WithSweeperMetrics(m *metrics.Metrics) SweeperOption {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

// WithSweeperRunner makes each sweep pass run inside one transaction, so a
// failed absorb restores the dust pool instead of losing the collected value.
func WithSweeperRunner(r Runner) SweeperOption {
	return func(s *Sweeper) {
		s.runner = r
	}
}

// NewSweeper creates a sweeper draining collector into absorber every
// interval. A non-positive interval falls back to one minute.
func NewSweeper(collector ledger.DustCollector, absorber Absorber, interval time.Duration, opts ...SweeperOption) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	s := &Sweeper{
		collector: collector,
		absorber:  absorber,
		runner:    PassthroughRunner{},
		logger:    slog.Default(),
		interval:  interval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps on a ticker until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.ErrorContext(ctx, "dust sweep failed", "error", err)
			}
		}
	}
}

// Sweep drains the dust pool once. An empty pool is a no-op.
func (s *Sweeper) Sweep(ctx context.Context) error {
	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		surplus, err := s.collector.CollectDust(ctx)
		if err != nil {
			return fmt.Errorf("collect dust: %w", err)
		}
		amount := surplus.Peek()
		if amount == 0 {
			return nil
		}

		balance, err := s.absorber.AbsorbImbalance(ctx, surplus)
		if err != nil {
			return fmt.Errorf("absorb dust: %w", err)
		}

		s.metrics.AddDustSwept(uint64(amount))
		s.logger.InfoContext(ctx, "dust swept into pot",
			"amount", amount,
			"pot_balance", balance,
		)
		return nil
	})
}
