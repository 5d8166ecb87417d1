package audit

import (
	"context"

	"github.com/google/uuid"
)

//go:generate mockgen -source=store.go -destination=../../../mocks/audit/mock_store.go -package=mockaudit

// Store persists treasury audit events. Append must be idempotent on the
// event ID so a retried write cannot duplicate the trail.
type Store interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context, query Query) ([]Event, error)
}

// Outbox is a Store that tracks relay delivery. The Kafka relay drains
// unrelayed events oldest first and marks them only after the broker
// acknowledges the write, giving at-least-once delivery.
type Outbox interface {
	Store
	ListUnrelayed(ctx context.Context, limit int) ([]Event, error)
	MarkRelayed(ctx context.Context, ids ...uuid.UUID) error
}
