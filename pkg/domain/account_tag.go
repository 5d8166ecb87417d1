package domain

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	dErrors "coffer/pkg/domain-errors"
)

// AccountTag is a fixed 8-byte module identifier. Each subsystem that owns a
// keyless account declares exactly one tag; the tag alone determines the
// account (see DeriveAccountID).
type AccountTag [8]byte

// accountTagDomain separates tag-derived hashes from any other use of the
// same hash function.
const accountTagDomain = "modl"

// ParseAccountTag constructs an AccountTag from a string.
//
// Errors: returns CodeInvalidInput unless the value is exactly 8 bytes.
func ParseAccountTag(s string) (AccountTag, error) {
	if len(s) != len(AccountTag{}) {
		return AccountTag{}, dErrors.New(dErrors.CodeInvalidInput, "account tag must be exactly 8 bytes")
	}
	var t AccountTag
	copy(t[:], s)
	return t, nil
}

// MustAccountTag is ParseAccountTag for compile-time literals. It panics on
// invalid input and belongs in package-level const-like declarations only.
func MustAccountTag(s string) AccountTag {
	t, err := ParseAccountTag(s)
	if err != nil {
		panic(fmt.Sprintf("domain: invalid account tag %q: %v", s, err))
	}
	return t
}

// String returns the raw 8-character tag.
func (t AccountTag) String() string {
	return string(t[:])
}

// DeriveAccountID maps a module tag to its keyless account. The function is
// pure: it never touches the ledger, and the same tag always yields the same
// account, whether or not that account holds funds yet.
func DeriveAccountID(tag AccountTag) AccountID {
	sum := blake2b.Sum256(append([]byte(accountTagDomain), tag[:]...))
	return AccountID(KeylessPrefix + hex.EncodeToString(sum[:8]))
}
