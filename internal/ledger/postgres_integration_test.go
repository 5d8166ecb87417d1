//go:build integration

package ledger_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"coffer/internal/ledger"
	"coffer/pkg/domain"
	txcontext "coffer/pkg/platform/tx"
	"coffer/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	ledger   *ledger.PostgresLedger
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.ledger = ledger.NewPostgresLedger(s.postgres.DB, 2)
	s.Require().NoError(s.ledger.EnsureSchema(context.Background()))
}

func (s *PostgresLedgerSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx, "ledger_accounts"))
	_, err := s.postgres.DB.ExecContext(ctx, `UPDATE ledger_meta SET value = 0`)
	s.Require().NoError(err)
}

func (s *PostgresLedgerSuite) seed(balances map[domain.AccountID]ledger.Amount) {
	ctx := context.Background()
	for account, balance := range balances {
		s.Require().NoError(s.ledger.SetBalance(ctx, account, balance))
	}
}

func (s *PostgresLedgerSuite) TestTransfer_MovesFunds() {
	ctx := context.Background()
	s.seed(map[domain.AccountID]ledger.Amount{"acct-1": 13, "acct-2": 11})

	s.Require().NoError(s.ledger.Transfer(ctx, "acct-1", "acct-2", 10, ledger.AllowReap))

	from, err := s.ledger.FreeBalance(ctx, "acct-1")
	s.Require().NoError(err)
	to, err := s.ledger.FreeBalance(ctx, "acct-2")
	s.Require().NoError(err)
	s.Equal(ledger.Amount(3), from)
	s.Equal(ledger.Amount(21), to)
}

func (s *PostgresLedgerSuite) TestTransfer_InsufficientFunds() {
	ctx := context.Background()
	s.seed(map[domain.AccountID]ledger.Amount{"acct-4": 3, "acct-5": 19})

	err := s.ledger.Transfer(ctx, "acct-4", "acct-5", 20, ledger.AllowReap)
	s.Require().ErrorIs(err, ledger.ErrInsufficientFunds)

	from, _ := s.ledger.FreeBalance(ctx, "acct-4")
	to, _ := s.ledger.FreeBalance(ctx, "acct-5")
	s.Equal(ledger.Amount(3), from)
	s.Equal(ledger.Amount(19), to)
}

func (s *PostgresLedgerSuite) TestTransfer_ReapsSender() {
	ctx := context.Background()
	s.seed(map[domain.AccountID]ledger.Amount{"sender": 15, "receiver": 50})

	s.Require().NoError(s.ledger.Transfer(ctx, "sender", "receiver", 14, ledger.AllowReap))

	balance, err := s.ledger.FreeBalance(ctx, "sender")
	s.Require().NoError(err)
	s.Equal(ledger.Amount(0), balance, "sender should be reaped")

	dust, err := s.ledger.DustPool(ctx)
	s.Require().NoError(err)
	s.Equal(ledger.Amount(1), dust)

	issuance, err := s.ledger.TotalIssuance(ctx)
	s.Require().NoError(err)
	s.Equal(ledger.Amount(65), issuance)
}

func (s *PostgresLedgerSuite) TestTransfer_KeepAlive() {
	ctx := context.Background()
	s.seed(map[domain.AccountID]ledger.Amount{"sender": 15, "receiver": 50})

	err := s.ledger.Transfer(ctx, "sender", "receiver", 14, ledger.KeepAlive)
	s.Require().ErrorIs(err, ledger.ErrWouldReap)
}

func (s *PostgresLedgerSuite) TestTransfer_BelowMinimumCreation() {
	ctx := context.Background()
	s.seed(map[domain.AccountID]ledger.Amount{"rich": 100})

	err := s.ledger.Transfer(ctx, "rich", "newcomer", 1, ledger.AllowReap)
	s.Require().ErrorIs(err, ledger.ErrBelowMinimum)

	s.Require().NoError(s.ledger.Transfer(ctx, "rich", "newcomer", 2, ledger.AllowReap))
}

func (s *PostgresLedgerSuite) TestResolveCreating() {
	ctx := context.Background()

	balance, err := s.ledger.ResolveCreating(ctx, "pot", ledger.NewSurplus(7))
	s.Require().NoError(err)
	s.Equal(ledger.Amount(7), balance)

	issuance, err := s.ledger.TotalIssuance(ctx)
	s.Require().NoError(err)
	s.Equal(ledger.Amount(7), issuance, "minted surplus raises issuance")

	s.Run("sub-minimum surplus survives as dust", func() {
		balance, err := s.ledger.ResolveCreating(ctx, "tiny", ledger.NewSurplus(1))
		s.Require().NoError(err)
		s.Equal(ledger.Amount(0), balance)

		dust, err := s.ledger.DustPool(ctx)
		s.Require().NoError(err)
		s.Equal(ledger.Amount(1), dust)
	})
}

func (s *PostgresLedgerSuite) TestEnsureMinimumBalance() {
	ctx := context.Background()

	balance, err := s.ledger.EnsureMinimumBalance(ctx, "pot")
	s.Require().NoError(err)
	s.Equal(ledger.Amount(2), balance)

	s.Run("idempotent", func() {
		again, err := s.ledger.EnsureMinimumBalance(ctx, "pot")
		s.Require().NoError(err)
		s.Equal(ledger.Amount(2), again)

		issuance, err := s.ledger.TotalIssuance(ctx)
		s.Require().NoError(err)
		s.Equal(ledger.Amount(2), issuance)
	})
}

func (s *PostgresLedgerSuite) TestCollectDust() {
	ctx := context.Background()
	s.seed(map[domain.AccountID]ledger.Amount{"sender": 15, "receiver": 50})
	s.Require().NoError(s.ledger.Transfer(ctx, "sender", "receiver", 14, ledger.AllowReap))

	surplus, err := s.ledger.CollectDust(ctx)
	s.Require().NoError(err)
	s.Equal(ledger.Amount(1), surplus.Peek())

	dust, err := s.ledger.DustPool(ctx)
	s.Require().NoError(err)
	s.Equal(ledger.Amount(0), dust)

	s.Run("resolving collected dust conserves issuance", func() {
		issuanceBefore, err := s.ledger.TotalIssuance(ctx)
		s.Require().NoError(err)

		balance, err := s.ledger.ResolveCreating(ctx, "receiver", surplus)
		s.Require().NoError(err)
		s.Equal(ledger.Amount(65), balance)

		issuanceAfter, err := s.ledger.TotalIssuance(ctx)
		s.Require().NoError(err)
		s.Equal(issuanceBefore, issuanceAfter)
	})
}

// TestAmbientTransaction verifies a transfer joins a caller-owned transaction
// and disappears when that transaction rolls back.
func (s *PostgresLedgerSuite) TestAmbientTransaction() {
	ctx := context.Background()
	s.seed(map[domain.AccountID]ledger.Amount{"acct-1": 13, "acct-2": 11})

	tx, err := s.postgres.DB.BeginTx(ctx, nil)
	s.Require().NoError(err)
	txCtx := txcontext.WithTx(ctx, tx)

	s.Require().NoError(s.ledger.Transfer(txCtx, "acct-1", "acct-2", 10, ledger.AllowReap))

	inTx, err := s.ledger.FreeBalance(txCtx, "acct-2")
	s.Require().NoError(err)
	s.Equal(ledger.Amount(21), inTx, "read inside the tx sees the transfer")

	s.Require().NoError(tx.Rollback())

	after, err := s.ledger.FreeBalance(ctx, "acct-2")
	s.Require().NoError(err)
	s.Equal(ledger.Amount(11), after, "rolled back transfer must not persist")
}

// TestConcurrentTransfers_Conserve hammers the ledger from many goroutines
// and verifies no currency is created or destroyed.
func (s *PostgresLedgerSuite) TestConcurrentTransfers_Conserve() {
	ctx := context.Background()
	accounts := []domain.AccountID{"acct-a", "acct-b", "acct-c", "acct-d"}
	for _, account := range accounts {
		s.Require().NoError(s.ledger.SetBalance(ctx, account, 100))
	}

	const goroutines = 16
	const transfersEach = 25

	var wg sync.WaitGroup
	var unexpected atomic.Int32
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < transfersEach; i++ {
				from := accounts[rng.Intn(len(accounts))]
				to := accounts[rng.Intn(len(accounts))]
				amount := ledger.Amount(rng.Intn(30))
				err := s.ledger.Transfer(ctx, from, to, amount, ledger.AllowReap)
				if err != nil && !errors.Is(err, ledger.ErrInsufficientFunds) && !errors.Is(err, ledger.ErrBelowMinimum) {
					unexpected.Add(1)
				}
			}
		}(int64(g))
	}
	wg.Wait()
	s.Equal(int32(0), unexpected.Load(), "no unexpected transfer errors")

	var sum ledger.Amount
	for _, account := range accounts {
		balance, err := s.ledger.FreeBalance(ctx, account)
		s.Require().NoError(err)
		sum += balance
	}
	dust, err := s.ledger.DustPool(ctx)
	s.Require().NoError(err)
	issuance, err := s.ledger.TotalIssuance(ctx)
	s.Require().NoError(err)
	s.Equal(issuance, sum+dust, "balances plus dust must equal issuance")
}
