package treasury

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"coffer/internal/ledger"
	"coffer/pkg/domain"
	"coffer/pkg/platform/audit"
	auditmem "coffer/pkg/platform/audit/store/memory"
)

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	pot := domain.DeriveAccountID(PotTag)

	genesis := ledger.Genesis{Accounts: map[domain.AccountID]ledger.Amount{
		"acct-1": 13,
		"acct-2": 11,
		"acct-3": 1,
		"acct-4": 3,
		"acct-5": 19,
	}}

	t.Run("seeds genesis and mints the pot minimum", func(t *testing.T) {
		l := ledger.NewInMemoryLedger(1)
		store := auditmem.NewInMemoryStore()

		require.NoError(t, Bootstrap(ctx, l, audit.NewPublisher(store), genesis))

		potBalance, err := l.FreeBalance(ctx, pot)
		require.NoError(t, err)
		require.Equal(t, ledger.Amount(1), potBalance)

		donor, err := l.FreeBalance(ctx, "acct-1")
		require.NoError(t, err)
		require.Equal(t, ledger.Amount(13), donor)

		// 47 in genesis accounts plus 1 minted for the pot.
		require.Equal(t, ledger.Amount(48), l.TotalIssuance())

		events, err := store.List(ctx, audit.Query{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.Equal(t, audit.ActionPotBootstrapped, events[0].Action)
		require.Equal(t, pot, events[0].Subject)
		require.Equal(t, uint64(1), events[0].Amount)
		require.Equal(t, uint64(1), events[0].PotBalance)
	})

	t.Run("genesis that already funds the pot mints nothing", func(t *testing.T) {
		l := ledger.NewInMemoryLedger(1)
		store := auditmem.NewInMemoryStore()
		funded := ledger.Genesis{Accounts: map[domain.AccountID]ledger.Amount{
			"acct-1": 13,
			pot:      5,
		}}

		require.NoError(t, Bootstrap(ctx, l, audit.NewPublisher(store), funded))

		potBalance, err := l.FreeBalance(ctx, pot)
		require.NoError(t, err)
		require.Equal(t, ledger.Amount(5), potBalance)

		events, err := store.List(ctx, audit.Query{})
		require.NoError(t, err)
		require.Len(t, events, 1)
		require.Equal(t, uint64(0), events[0].Amount)
		require.Equal(t, uint64(5), events[0].PotBalance)
	})

	t.Run("nil audit log skips the event", func(t *testing.T) {
		l := ledger.NewInMemoryLedger(1)

		require.NoError(t, Bootstrap(ctx, l, nil, genesis))

		potBalance, err := l.FreeBalance(ctx, pot)
		require.NoError(t, err)
		require.Equal(t, ledger.Amount(1), potBalance)
	})

	t.Run("rerunning is idempotent", func(t *testing.T) {
		l := ledger.NewInMemoryLedger(1)

		require.NoError(t, Bootstrap(ctx, l, nil, genesis))
		require.NoError(t, Bootstrap(ctx, l, nil, genesis))

		require.Equal(t, ledger.Amount(48), l.TotalIssuance())
	})

	t.Run("genesis balance below the minimum is refused", func(t *testing.T) {
		l := ledger.NewInMemoryLedger(10)

		err := Bootstrap(ctx, l, nil, genesis)
		require.Error(t, err)
		require.Contains(t, err.Error(), "apply genesis")
	})
}
