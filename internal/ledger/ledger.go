// Package ledger provides balance accounting with existential-deposit
// semantics. Accounts below the minimum balance are not kept: debits that
// would leave less than the minimum reap the account and the remainder moves
// to a dust pool instead of vanishing, so total issuance is conserved.
//
// Three backends implement the same interface: an in-memory map for tests
// and development, Postgres for production, and Redis for cache-grade
// deployments. Services depend on the interface only.
package ledger

import (
	"context"

	"coffer/pkg/domain"
)

//go:generate mockgen -source=ledger.go -destination=../../mocks/ledger/mock_ledger.go -package=mockledger

// Amount is a non-negative quantity of the ledger's single currency.
type Amount uint64

// ExistencePolicy states what a transfer may do to the sender's account.
type ExistencePolicy uint8

const (
	// AllowReap permits the debit to empty the sender below the minimum
	// balance; the account is removed and the remainder becomes dust.
	AllowReap ExistencePolicy = iota
	// KeepAlive refuses debits that would reap the sender.
	KeepAlive
)

func (p ExistencePolicy) String() string {
	if p == KeepAlive {
		return "keep_alive"
	}
	return "allow_reap"
}

// Ledger is the balance store treasury operations run against.
//
// All mutations are atomic: on error no balance has changed. Implementations
// backed by SQL honor an ambient transaction from pkg/platform/tx so callers
// can commit a transfer together with their own writes.
type Ledger interface {
	// MinimumBalance returns the existential deposit: the smallest balance
	// an account may hold and still exist.
	MinimumBalance() Amount

	// FreeBalance returns the account's balance, zero when the account does
	// not exist. It never creates the account.
	FreeBalance(ctx context.Context, account domain.AccountID) (Amount, error)

	// Transfer moves amount from one account to another.
	//
	// It fails with ErrInsufficientFunds when the sender holds less than
	// amount, with ErrBelowMinimum when the credit would create the
	// receiver under the minimum balance, and with ErrWouldReap when policy
	// is KeepAlive and the debit would kill the sender. A zero amount or a
	// self-transfer succeeds without touching any account.
	Transfer(ctx context.Context, from, to domain.AccountID, amount Amount, policy ExistencePolicy) error

	// ResolveCreating credits a surplus into the account, creating it when
	// the result meets the minimum balance, and returns the resulting
	// balance. A surplus too small to create the account is returned to the
	// dust pool rather than dropped. The surplus is consumed either way.
	ResolveCreating(ctx context.Context, account domain.AccountID, s *Surplus) (Amount, error)

	// EnsureMinimumBalance raises the account to at least the minimum
	// balance, minting the difference, and returns the resulting balance.
	// Bootstrap-only: ordinary operations never mint.
	EnsureMinimumBalance(ctx context.Context, account domain.AccountID) (Amount, error)
}

// DustCollector drains the dust pool accumulated by reaped accounts.
// Implemented by every backend; consumed by the treasury sweeper.
type DustCollector interface {
	// CollectDust atomically empties the dust pool and returns it as a
	// surplus. It returns a zero surplus when the pool is empty.
	CollectDust(ctx context.Context) (*Surplus, error)
}
