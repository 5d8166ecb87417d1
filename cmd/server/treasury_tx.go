package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "coffer/pkg/domain-errors"
	txcontext "coffer/pkg/platform/tx"
)

const defaultTreasuryTxTimeout = 5 * time.Second

// treasuryPostgresTx runs a treasury operation inside one SQL transaction so
// the balance movement and its audit event commit or roll back together.
type treasuryPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newTreasuryPostgresTx(db *sql.DB) *treasuryPostgresTx {
	return &treasuryPostgresTx{db: db}
}

func (t *treasuryPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	// Join the ambient transaction when the caller already opened one, as the
	// dust sweeper does around collect-and-absorb. Nesting would deadlock on
	// the rows the outer transaction holds.
	if _, ok := txcontext.From(ctx); ok {
		return fn(ctx)
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTreasuryTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit()
}
