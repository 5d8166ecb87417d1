package treasury

import (
	"context"
	"fmt"

	"coffer/internal/ledger"
	"coffer/pkg/domain"
	"coffer/pkg/platform/audit"
)

// Bootstrap seeds the genesis balances and guarantees the pot account exists
// at or above the minimum balance, so the first sub-minimum donation cannot
// be refused for creating an account below the minimum. It runs once at
// startup, before the service accepts traffic.
//
// When auditLog is non-nil a single pot_bootstrapped event records the
// amount minted for the pot (zero when genesis already funded it).
func Bootstrap(ctx context.Context, l ledger.SeedLedger, auditLog AuditLog, g ledger.Genesis) error {
	if err := ledger.ApplyGenesis(ctx, l, g); err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}

	pot := domain.DeriveAccountID(PotTag)
	before, err := l.FreeBalance(ctx, pot)
	if err != nil {
		return fmt.Errorf("read pot balance: %w", err)
	}
	after, err := l.EnsureMinimumBalance(ctx, pot)
	if err != nil {
		return fmt.Errorf("bootstrap pot account: %w", err)
	}

	if auditLog == nil {
		return nil
	}
	return auditLog.Emit(ctx, audit.Event{
		Action:     audit.ActionPotBootstrapped,
		Subject:    pot,
		Amount:     uint64(after - before),
		PotBalance: uint64(after),
	})
}
