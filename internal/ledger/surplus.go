package ledger

import (
	"sync"

	"coffer/pkg/platform/sentinel"
)

// Surplus is currency that exists but is credited to no account: dust from
// reaped accounts, or value recorded outside the tracked ledger. It is
// consumed exactly once, by Ledger.ResolveCreating.
type Surplus struct {
	mu     sync.Mutex
	amount Amount
	spent  bool
	// minted marks value entering from outside the ledger; resolving it
	// raises total issuance. Dust surpluses are already counted.
	minted bool
}

// NewSurplus wraps value that originates outside the tracked ledger.
// Absorbing it raises total issuance by the surplus amount.
func NewSurplus(amount Amount) *Surplus {
	return &Surplus{amount: amount, minted: true}
}

// newDustSurplus wraps value drained from a backend's dust pool.
func newDustSurplus(amount Amount) *Surplus {
	return &Surplus{amount: amount}
}

// Peek returns the surplus amount without consuming it.
func (s *Surplus) Peek() Amount {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spent {
		return 0
	}
	return s.amount
}

// take consumes the surplus. Backends call it exactly once per resolve;
// a second take fails with sentinel.ErrAlreadyUsed.
func (s *Surplus) take() (amount Amount, minted bool, err error) {
	if s == nil {
		return 0, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spent {
		return 0, false, sentinel.ErrAlreadyUsed
	}
	s.spent = true
	return s.amount, s.minted, nil
}

// refund re-arms a surplus after a failed resolve so the value is not lost.
func (s *Surplus) refund() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spent = false
}
