package domain

import (
	"strings"

	dErrors "coffer/pkg/domain-errors"
)

// AccountID is a validated ledger account identifier.
// Invariant: 1-64 characters drawn from [a-z0-9:_-].
//
// Usage: construct via ParseAccountID at trust boundaries; direct casting
// bypasses validation and is reserved for values the module derived itself.
type AccountID string

// KeylessPrefix marks accounts derived from a module tag. No signing key
// exists for these accounts, so they can never appear as a signed origin.
const KeylessPrefix = "keyless:"

// MaxAccountIDLength bounds identifiers for storage keys and indexes.
const MaxAccountIDLength = 64

// ParseAccountID constructs an AccountID from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, too long, or
// contains characters outside [a-z0-9:_-]; no other errors are expected.
func ParseAccountID(s string) (AccountID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account id cannot be empty")
	}
	if len(s) > MaxAccountIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "account id must be 64 characters or less")
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == ':' || c == '_' || c == '-':
		default:
			return "", dErrors.New(dErrors.CodeInvalidInput, "account id may only contain lowercase letters, digits, ':', '_' and '-'")
		}
	}
	return AccountID(s), nil
}

// String returns the string representation of the account ID.
func (a AccountID) String() string {
	return string(a)
}

// IsZero returns true if the account ID is empty.
func (a AccountID) IsZero() bool {
	return a == ""
}

// IsKeyless reports whether the account was derived from a module tag rather
// than backed by a signing key.
func (a AccountID) IsKeyless() bool {
	return strings.HasPrefix(string(a), KeylessPrefix)
}
