package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"coffer/pkg/domain"
	audit "coffer/pkg/platform/audit"
	txcontext "coffer/pkg/platform/tx"
)

// Store implements audit.Outbox on PostgreSQL. Append joins whatever
// transaction the caller carries in ctx, so a treasury operation and its
// audit entry commit or roll back together. The Kafka relay drains rows
// whose relayed_at is still NULL.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the audit tables when absent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS audit_events (
			id          UUID PRIMARY KEY,
			action      TEXT NOT NULL,
			actor       TEXT NOT NULL DEFAULT '',
			subject     TEXT NOT NULL DEFAULT '',
			amount      BIGINT NOT NULL CHECK (amount >= 0),
			pot_balance BIGINT NOT NULL CHECK (pot_balance >= 0),
			metadata    JSONB NOT NULL DEFAULT '{}',
			created_at  TIMESTAMPTZ NOT NULL,
			relayed_at  TIMESTAMPTZ
		);
		CREATE INDEX IF NOT EXISTS audit_events_unrelayed_idx
			ON audit_events (created_at) WHERE relayed_at IS NULL;
		CREATE INDEX IF NOT EXISTS audit_events_actor_idx
			ON audit_events (actor, created_at DESC);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *Store) execer(ctx context.Context) txcontext.Querier {
	return txcontext.Default(ctx, s.db)
}

// Append inserts an audit event. Idempotent via ON CONFLICT DO NOTHING so a
// retried write cannot duplicate the trail.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	metadata := []byte("{}")
	if len(event.Metadata) > 0 {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("marshal audit metadata: %w", err)
		}
	}

	const query = `
		INSERT INTO audit_events (id, action, actor, subject, amount, pot_balance, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		string(event.Action),
		string(event.Actor),
		string(event.Subject),
		int64(event.Amount),
		int64(event.PotBalance),
		metadata,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// List returns matching events newest first.
func (s *Store) List(ctx context.Context, query audit.Query) ([]audit.Event, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = audit.DefaultQueryLimit
	}

	const q = `
		SELECT id, action, actor, subject, amount, pot_balance, metadata, created_at
		FROM audit_events
		WHERE ($1 = '' OR actor = $1)
		  AND ($2 = '' OR action = $2)
		ORDER BY created_at DESC, id
		LIMIT $3
	`
	rows, err := s.db.QueryContext(ctx, q, string(query.Actor), string(query.Action), limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListUnrelayed returns events not yet delivered to the broker, oldest first.
func (s *Store) ListUnrelayed(ctx context.Context, limit int) ([]audit.Event, error) {
	const q = `
		SELECT id, action, actor, subject, amount, pot_balance, metadata, created_at
		FROM audit_events
		WHERE relayed_at IS NULL
		ORDER BY created_at ASC, id
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query unrelayed audit events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// MarkRelayed stamps the given events as delivered.
func (s *Store) MarkRelayed(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}

	const q = `UPDATE audit_events SET relayed_at = $1 WHERE id = ANY($2::uuid[])`
	if _, err := s.db.ExecContext(ctx, q, time.Now().UTC(), pq.Array(raw)); err != nil {
		return fmt.Errorf("mark audit events relayed: %w", err)
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event

	for rows.Next() {
		var (
			event    audit.Event
			action   string
			actor    string
			subject  string
			amount   int64
			balance  int64
			metadata []byte
		)
		err := rows.Scan(
			&event.ID,
			&action,
			&actor,
			&subject,
			&amount,
			&balance,
			&metadata,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}

		event.Action = audit.Action(action)
		event.Actor = domain.AccountID(actor)
		event.Subject = domain.AccountID(subject)
		event.Amount = uint64(amount)
		event.PotBalance = uint64(balance)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal audit metadata: %w", err)
			}
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
