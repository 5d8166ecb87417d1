// Package audit records treasury operations for compliance and operational
// visibility. The publisher is fail-closed by default: an operation whose
// audit event cannot be persisted must not report success.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrBufferFull is returned by Emit when the async inbox cannot accept
// another event. Fail-closed callers must treat it as a persistence failure.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher writes audit events to a Store.
//
// By default Emit is synchronous: the caller blocks until the event is
// persisted, and a persistence error must fail the calling operation.
// WithAsyncBuffer switches to a buffered inbox drained by a background
// goroutine, trading the fail-closed guarantee for latency.
type Publisher struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics

	inbox chan Event
	wg    sync.WaitGroup
	once  sync.Once
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer makes Emit enqueue instead of persist inline. Events are
// dropped with ErrBufferFull when the buffer is saturated.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan Event, size)
		}
	}
}

// WithLogger sets a logger for persistence failures.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) PublisherOption {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// NewPublisher creates a publisher over the given store.
func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records one event. A zero ID and CreatedAt are filled in.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Action == "" {
		return fmt.Errorf("audit event requires an action")
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	if p.inbox == nil {
		return p.persist(ctx, event)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		if p.metrics != nil {
			p.metrics.Dropped.Inc()
		}
		return ErrBufferFull
	}
}

// List returns stored events matching the query, newest first.
func (p *Publisher) List(ctx context.Context, query Query) ([]Event, error) {
	return p.store.List(ctx, query)
}

// Close drains the async inbox. It is a no-op for a synchronous publisher
// and safe to call more than once.
func (p *Publisher) Close() {
	if p.inbox == nil {
		return
	}
	p.once.Do(func() { close(p.inbox) })
	p.wg.Wait()
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.inbox {
		if err := p.persist(context.Background(), event); err != nil && p.logger != nil {
			p.logger.Error("async audit append failed",
				"action", event.Action,
				"error", err,
			)
		}
	}
}

func (p *Publisher) persist(ctx context.Context, event Event) error {
	start := time.Now()

	if err := p.store.Append(ctx, event); err != nil {
		if p.metrics != nil {
			p.metrics.PersistFailures.Inc()
		}
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit persistence failed",
				"action", event.Action,
				"actor", event.Actor,
				"error", err,
			)
		}
		return fmt.Errorf("audit persistence failed: %w", err)
	}

	if p.metrics != nil {
		p.metrics.PersistDuration.Observe(time.Since(start).Seconds())
		p.metrics.Emitted.Inc()
	}
	return nil
}
