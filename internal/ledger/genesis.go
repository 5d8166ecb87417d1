package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"coffer/pkg/domain"
	dErrors "coffer/pkg/domain-errors"
)

// Genesis is the initial balance distribution applied before the service
// accepts traffic.
type Genesis struct {
	Accounts map[domain.AccountID]Amount `json:"accounts"`
}

// Seeder sets absolute balances, minting or burning the difference.
// Implemented by every backend; used by genesis bootstrap and tests.
type Seeder interface {
	SetBalance(ctx context.Context, account domain.AccountID, amount Amount) error
}

// SeedLedger is a ledger that can also be seeded.
type SeedLedger interface {
	Ledger
	Seeder
}

// LoadGenesisFile reads a genesis distribution from a JSON file of the form
// {"accounts": {"alice": 13, "bob": 11}}. Account IDs are validated.
func LoadGenesisFile(path string) (Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, fmt.Errorf("read genesis file: %w", err)
	}

	var file struct {
		Accounts map[string]uint64 `json:"accounts"`
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return Genesis{}, dErrors.Wrap(err, dErrors.CodeValidation, "genesis file is not valid JSON")
	}

	g := Genesis{Accounts: make(map[domain.AccountID]Amount, len(file.Accounts))}
	for name, balance := range file.Accounts {
		account, err := domain.ParseAccountID(name)
		if err != nil {
			return Genesis{}, dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("genesis account %q", name))
		}
		g.Accounts[account] = Amount(balance)
	}
	return g, nil
}

// ApplyGenesis seeds every genesis balance. Accounts are applied in sorted
// order so repeated runs touch the store deterministically. Balances below
// the minimum are rejected up front: genesis must not create dust.
func ApplyGenesis(ctx context.Context, l SeedLedger, g Genesis) error {
	minimum := l.MinimumBalance()

	accounts := make([]domain.AccountID, 0, len(g.Accounts))
	for account, balance := range g.Accounts {
		if balance < minimum {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("genesis balance for %s is below the minimum balance", account))
		}
		accounts = append(accounts, account)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })

	for _, account := range accounts {
		if err := l.SetBalance(ctx, account, g.Accounts[account]); err != nil {
			return fmt.Errorf("seed genesis balance for %s: %w", account, err)
		}
	}
	return nil
}
