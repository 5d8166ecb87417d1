// Package sentinel holds cross-layer sentinel errors: factual states that
// infrastructure reports and services translate into domain errors. Balance
// absence is deliberately not one of them — a missing ledger account reads
// as zero, so the treasury has no not-found case to signal.
package sentinel

import "errors"

// ErrAlreadyUsed reports a one-shot resource consumed twice, such as a
// surplus that was already credited to an account.
var ErrAlreadyUsed = errors.New("already used")
