package ledger

import (
	"context"
	"sync"

	"coffer/pkg/domain"
)

// InMemoryLedger keeps balances in a map. Intended for tests and local
// development; safe for concurrent use.
type InMemoryLedger struct {
	mu       sync.RWMutex
	minimum  Amount
	balances map[domain.AccountID]Amount
	dust     Amount
	issuance Amount
}

// NewInMemoryLedger creates an empty ledger with the given minimum balance.
func NewInMemoryLedger(minimum Amount) *InMemoryLedger {
	return &InMemoryLedger{
		minimum:  minimum,
		balances: make(map[domain.AccountID]Amount),
	}
}

func (l *InMemoryLedger) MinimumBalance() Amount {
	return l.minimum
}

func (l *InMemoryLedger) FreeBalance(_ context.Context, account domain.AccountID) (Amount, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account], nil
}

func (l *InMemoryLedger) Transfer(_ context.Context, from, to domain.AccountID, amount Amount, policy ExistencePolicy) error {
	if amount == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fromBalance := l.balances[from]
	if fromBalance < amount {
		return ErrInsufficientFunds
	}
	// A self-transfer still requires the funds but moves nothing.
	if from == to {
		return nil
	}

	toBalance, toExists := l.balances[to]
	newTo := toBalance + amount
	if newTo < toBalance {
		return ErrOverflow
	}
	if !toExists && newTo < l.minimum {
		return ErrBelowMinimum
	}

	newFrom := fromBalance - amount
	reap := newFrom < l.minimum
	if reap && policy == KeepAlive {
		return ErrWouldReap
	}

	if reap {
		delete(l.balances, from)
		l.dust += newFrom
	} else {
		l.balances[from] = newFrom
	}
	l.balances[to] = newTo
	return nil
}

func (l *InMemoryLedger) ResolveCreating(_ context.Context, account domain.AccountID, s *Surplus) (Amount, error) {
	amount, minted, err := s.take()
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	current, exists := l.balances[account]
	if amount == 0 {
		return current, nil
	}

	next := current + amount
	if next < current {
		s.refund()
		return 0, ErrOverflow
	}
	if minted {
		l.issuance += amount
	}
	if !exists && next < l.minimum {
		// Too small to create the account; the value survives as dust.
		l.dust += amount
		return 0, nil
	}
	l.balances[account] = next
	return next, nil
}

func (l *InMemoryLedger) EnsureMinimumBalance(_ context.Context, account domain.AccountID) (Amount, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, exists := l.balances[account]
	if exists && current >= l.minimum {
		return current, nil
	}
	l.issuance += l.minimum - current
	l.balances[account] = l.minimum
	return l.minimum, nil
}

func (l *InMemoryLedger) CollectDust(_ context.Context) (*Surplus, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	collected := l.dust
	l.dust = 0
	return newDustSurplus(collected), nil
}

// SetBalance forces an account to an exact balance, minting or burning the
// difference. Genesis and test setup only.
func (l *InMemoryLedger) SetBalance(_ context.Context, account domain.AccountID, amount Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.balances[account]
	if amount >= current {
		l.issuance += amount - current
	} else {
		l.issuance -= current - amount
	}
	if amount == 0 {
		delete(l.balances, account)
		return nil
	}
	l.balances[account] = amount
	return nil
}

// TotalIssuance reports all currency the ledger knows about, including dust.
func (l *InMemoryLedger) TotalIssuance() Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.issuance
}

// DustPool reports uncollected dust.
func (l *InMemoryLedger) DustPool() Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dust
}
