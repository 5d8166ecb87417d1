package ledger

import "errors"

// Sentinel errors for balance facts. Backends return these (optionally
// wrapped) so services can translate them into domain errors; driver and
// transport failures are wrapped separately and carry no sentinel.
var (
	// ErrInsufficientFunds: the debited account holds less than the amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrBelowMinimum: the credit would create an account under the minimum
	// balance.
	ErrBelowMinimum = errors.New("below minimum balance")
	// ErrWouldReap: a KeepAlive debit would drop the sender below the
	// minimum balance.
	ErrWouldReap = errors.New("transfer would reap sender")
	// ErrOverflow: the operation would overflow a balance or total issuance.
	ErrOverflow = errors.New("amount overflow")
)
