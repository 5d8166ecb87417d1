// Package relay drains the audit outbox into Kafka.
//
// Delivery is at-least-once: events are marked relayed only after the broker
// acknowledges the produce, so a crash between produce and mark re-sends the
// batch and consumers must dedupe on event ID. A circuit breaker throttles
// the loop to probe batches while the broker is down.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "coffer/pkg/platform/audit"
	"coffer/pkg/platform/circuit"
)

// Topic carries treasury audit events. Single partition: downstream
// consumers rely on the global event order.
const Topic = "coffer.treasury.events"

const (
	defaultBatchSize    = 100
	defaultPollInterval = 2 * time.Second
)

// Producer is the part of kgo.Client the relay needs.
type Producer interface {
	ProduceSync(ctx context.Context, records ...*kgo.Record) kgo.ProduceResults
}

// Relay moves unrelayed audit events from the outbox to Kafka.
type Relay struct {
	outbox   audit.Outbox
	producer Producer
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *Metrics

	batchSize    int
	pollInterval time.Duration
}

// Option configures a Relay.
type Option func(*Relay)

// WithLogger sets the relay logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

// WithBatchSize caps how many events one pass drains.
func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithPollInterval sets how often the outbox is polled.
func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// New creates a relay over the given outbox and producer.
func New(outbox audit.Outbox, producer Producer, opts ...Option) *Relay {
	r := &Relay{
		outbox:       outbox,
		producer:     producer,
		breaker:      circuit.New("audit-relay"),
		logger:       slog.Default(),
		batchSize:    defaultBatchSize,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewProducer builds a Kafka client configured for the relay.
func NewProducer(brokers []string) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(Topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// EnsureTopic creates the relay topic when the broker does not have it yet.
func EnsureTopic(ctx context.Context, client *kgo.Client) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, Topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %s: %w", res.Topic, res.Err)
		}
	}
	return nil
}

// Run polls the outbox until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.relayOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "audit relay pass failed", "error", err)
			}
		}
	}
}

// relayOnce drains one batch. While the breaker is open only a single event
// is sent per pass to probe the broker without flooding it.
func (r *Relay) relayOnce(ctx context.Context) error {
	batch := r.batchSize
	if r.breaker.IsOpen() {
		batch = 1
	}

	events, err := r.outbox.ListUnrelayed(ctx, batch)
	if err != nil {
		return fmt.Errorf("list unrelayed audit events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	records := make([]*kgo.Record, len(events))
	ids := make([]uuid.UUID, len(events))
	for i, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal audit event %s: %w", event.ID, err)
		}
		records[i] = &kgo.Record{
			Topic: Topic,
			Key:   []byte(event.Action),
			Value: payload,
		}
		ids[i] = event.ID
	}

	if err := r.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		if _, change := r.breaker.RecordFailure(); change.Opened {
			r.logger.WarnContext(ctx, "audit relay breaker opened", "breaker", r.breaker.Name())
			if r.metrics != nil {
				r.metrics.BreakerOpen.Set(1)
			}
		}
		if r.metrics != nil {
			r.metrics.Failures.Inc()
		}
		return fmt.Errorf("produce audit batch: %w", err)
	}

	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.logger.InfoContext(ctx, "audit relay breaker closed", "breaker", r.breaker.Name())
		if r.metrics != nil {
			r.metrics.BreakerOpen.Set(0)
		}
	}

	if err := r.outbox.MarkRelayed(ctx, ids...); err != nil {
		return fmt.Errorf("mark audit events relayed: %w", err)
	}

	if r.metrics != nil {
		r.metrics.Published.Add(float64(len(events)))
	}
	return nil
}
