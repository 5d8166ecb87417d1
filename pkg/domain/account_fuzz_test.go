//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseAccountID tests that parsing never panics on arbitrary input and
// that accepted values round-trip unchanged.
func FuzzParseAccountID(f *testing.F) {
	f.Add("")
	f.Add("alice")
	f.Add("keyless:0011aabb22cc33dd")
	f.Add("'; DROP TABLE ledger_accounts;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("alice\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseAccountID(input)

		if err == nil {
			roundTrip, err2 := ParseAccountID(id.String())
			if err2 != nil {
				t.Errorf("valid ID failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed ID value")
			}
		}

		// Non-UTF8 input must be rejected; the charset is ASCII-only.
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}
