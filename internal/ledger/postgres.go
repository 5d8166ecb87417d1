package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"coffer/pkg/domain"
	txcontext "coffer/pkg/platform/tx"
)

// PostgresLedger stores balances in Postgres. Mutations run in a transaction
// with both account rows locked in sorted order; callers that need a ledger
// write and their own writes to commit together put a *sql.Tx in context via
// pkg/platform/tx.
type PostgresLedger struct {
	db      *sql.DB
	minimum Amount
}

// NewPostgresLedger creates a ledger over db. Call EnsureSchema before use.
func NewPostgresLedger(db *sql.DB, minimum Amount) *PostgresLedger {
	return &PostgresLedger{db: db, minimum: minimum}
}

// EnsureSchema creates the ledger tables and meta rows if they are missing.
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ledger_accounts (
			account TEXT PRIMARY KEY,
			balance BIGINT NOT NULL CHECK (balance >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS ledger_meta (
			key TEXT PRIMARY KEY,
			value BIGINT NOT NULL CHECK (value >= 0)
		)`,
		`INSERT INTO ledger_meta (key, value)
		 VALUES ('total_issuance', 0), ('dust_pool', 0)
		 ON CONFLICT (key) DO NOTHING`,
	}
	for _, stmt := range statements {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure ledger schema: %w", err)
		}
	}
	return nil
}

func (l *PostgresLedger) MinimumBalance() Amount {
	return l.minimum
}

func (l *PostgresLedger) FreeBalance(ctx context.Context, account domain.AccountID) (Amount, error) {
	var balance int64
	err := txcontext.Default(ctx, l.db).
		QueryRowContext(ctx, `SELECT balance FROM ledger_accounts WHERE account = $1`, account.String()).
		Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return Amount(balance), nil
}

// inTx runs fn inside the ambient transaction when one is present, otherwise
// inside a transaction of its own.
func (l *PostgresLedger) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if tx, ok := txcontext.From(ctx); ok {
		return fn(tx)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

// lockBalance reads an account's balance under FOR UPDATE. Missing rows
// return exists=false without acquiring a lock.
func lockBalance(ctx context.Context, tx *sql.Tx, account domain.AccountID) (Amount, bool, error) {
	var balance int64
	err := tx.QueryRowContext(ctx,
		`SELECT balance FROM ledger_accounts WHERE account = $1 FOR UPDATE`,
		account.String(),
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lock account %s: %w", account, err)
	}
	return Amount(balance), true, nil
}

func addMeta(ctx context.Context, tx *sql.Tx, key string, delta Amount) error {
	if delta == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE ledger_meta SET value = value + $1 WHERE key = $2`,
		int64(delta), key,
	); err != nil {
		return fmt.Errorf("update %s: %w", key, err)
	}
	return nil
}

func (l *PostgresLedger) Transfer(ctx context.Context, from, to domain.AccountID, amount Amount, policy ExistencePolicy) error {
	if amount == 0 {
		return nil
	}
	if amount > math.MaxInt64 {
		return ErrOverflow
	}

	return l.inTx(ctx, func(tx *sql.Tx) error {
		// Lock rows in sorted order to avoid deadlocks between concurrent
		// opposite-direction transfers.
		first, second := from, to
		if second < first {
			first, second = second, first
		}
		balances := map[domain.AccountID]Amount{}
		exists := map[domain.AccountID]bool{}
		for _, account := range []domain.AccountID{first, second} {
			b, ok, err := lockBalance(ctx, tx, account)
			if err != nil {
				return err
			}
			balances[account] = b
			exists[account] = ok
		}

		fromBalance := balances[from]
		if fromBalance < amount {
			return ErrInsufficientFunds
		}
		if from == to {
			return nil
		}

		toBalance := balances[to]
		newTo := toBalance + amount
		if newTo < toBalance || newTo > math.MaxInt64 {
			return ErrOverflow
		}
		if !exists[to] && newTo < l.minimum {
			return ErrBelowMinimum
		}

		newFrom := fromBalance - amount
		reap := newFrom < l.minimum
		if reap && policy == KeepAlive {
			return ErrWouldReap
		}

		if reap {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM ledger_accounts WHERE account = $1`, from.String(),
			); err != nil {
				return fmt.Errorf("reap account %s: %w", from, err)
			}
			if err := addMeta(ctx, tx, "dust_pool", newFrom); err != nil {
				return err
			}
		} else {
			if _, err := tx.ExecContext(ctx,
				`UPDATE ledger_accounts SET balance = $1 WHERE account = $2`,
				int64(newFrom), from.String(),
			); err != nil {
				return fmt.Errorf("debit account %s: %w", from, err)
			}
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_accounts (account, balance) VALUES ($1, $2)
			 ON CONFLICT (account) DO UPDATE SET balance = ledger_accounts.balance + $3`,
			to.String(), int64(newTo), int64(amount),
		); err != nil {
			return fmt.Errorf("credit account %s: %w", to, err)
		}
		return nil
	})
}

func (l *PostgresLedger) ResolveCreating(ctx context.Context, account domain.AccountID, s *Surplus) (Amount, error) {
	amount, minted, err := s.take()
	if err != nil {
		return 0, err
	}
	if amount > math.MaxInt64 {
		s.refund()
		return 0, ErrOverflow
	}

	var resulting Amount
	err = l.inTx(ctx, func(tx *sql.Tx) error {
		current, exists, err := lockBalance(ctx, tx, account)
		if err != nil {
			return err
		}
		if amount == 0 {
			resulting = current
			return nil
		}

		next := current + amount
		if next < current || next > math.MaxInt64 {
			return ErrOverflow
		}
		if minted {
			if err := addMeta(ctx, tx, "total_issuance", amount); err != nil {
				return err
			}
		}
		if !exists && next < l.minimum {
			// Too small to create the account; the value survives as dust.
			resulting = 0
			return addMeta(ctx, tx, "dust_pool", amount)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_accounts (account, balance) VALUES ($1, $2)
			 ON CONFLICT (account) DO UPDATE SET balance = $2`,
			account.String(), int64(next),
		); err != nil {
			return fmt.Errorf("credit account %s: %w", account, err)
		}
		resulting = next
		return nil
	})
	if err != nil {
		s.refund()
		return 0, err
	}
	return resulting, nil
}

func (l *PostgresLedger) EnsureMinimumBalance(ctx context.Context, account domain.AccountID) (Amount, error) {
	var resulting Amount
	err := l.inTx(ctx, func(tx *sql.Tx) error {
		current, exists, err := lockBalance(ctx, tx, account)
		if err != nil {
			return err
		}
		if exists && current >= l.minimum {
			resulting = current
			return nil
		}
		if err := addMeta(ctx, tx, "total_issuance", l.minimum-current); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_accounts (account, balance) VALUES ($1, $2)
			 ON CONFLICT (account) DO UPDATE SET balance = $2`,
			account.String(), int64(l.minimum),
		); err != nil {
			return fmt.Errorf("raise account %s to minimum: %w", account, err)
		}
		resulting = l.minimum
		return nil
	})
	if err != nil {
		return 0, err
	}
	return resulting, nil
}

func (l *PostgresLedger) CollectDust(ctx context.Context) (*Surplus, error) {
	var collected Amount
	err := l.inTx(ctx, func(tx *sql.Tx) error {
		var value int64
		if err := tx.QueryRowContext(ctx,
			`SELECT value FROM ledger_meta WHERE key = 'dust_pool' FOR UPDATE`,
		).Scan(&value); err != nil {
			return fmt.Errorf("lock dust pool: %w", err)
		}
		if value == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE ledger_meta SET value = 0 WHERE key = 'dust_pool'`,
		); err != nil {
			return fmt.Errorf("drain dust pool: %w", err)
		}
		collected = Amount(value)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newDustSurplus(collected), nil
}

// SetBalance forces an account to an exact balance, minting or burning the
// difference. Genesis and test setup only.
func (l *PostgresLedger) SetBalance(ctx context.Context, account domain.AccountID, amount Amount) error {
	if amount > math.MaxInt64 {
		return ErrOverflow
	}
	return l.inTx(ctx, func(tx *sql.Tx) error {
		current, _, err := lockBalance(ctx, tx, account)
		if err != nil {
			return err
		}
		if amount >= current {
			if err := addMeta(ctx, tx, "total_issuance", amount-current); err != nil {
				return err
			}
		} else {
			if _, err := tx.ExecContext(ctx,
				`UPDATE ledger_meta SET value = value - $1 WHERE key = 'total_issuance'`,
				int64(current-amount),
			); err != nil {
				return fmt.Errorf("update total_issuance: %w", err)
			}
		}
		if amount == 0 {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM ledger_accounts WHERE account = $1`, account.String(),
			); err != nil {
				return fmt.Errorf("delete account %s: %w", account, err)
			}
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_accounts (account, balance) VALUES ($1, $2)
			 ON CONFLICT (account) DO UPDATE SET balance = $2`,
			account.String(), int64(amount),
		); err != nil {
			return fmt.Errorf("seed account %s: %w", account, err)
		}
		return nil
	})
}

// TotalIssuance reports all currency the ledger knows about, including dust.
func (l *PostgresLedger) TotalIssuance(ctx context.Context) (Amount, error) {
	return l.meta(ctx, "total_issuance")
}

// DustPool reports uncollected dust.
func (l *PostgresLedger) DustPool(ctx context.Context) (Amount, error) {
	return l.meta(ctx, "dust_pool")
}

func (l *PostgresLedger) meta(ctx context.Context, key string) (Amount, error) {
	var value int64
	err := txcontext.Default(ctx, l.db).
		QueryRowContext(ctx, `SELECT value FROM ledger_meta WHERE key = $1`, key).
		Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("query %s: %w", key, err)
	}
	return Amount(value), nil
}
