package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEnsureSigned verifies the capability check: only signed origins expose
// an acting account. Privileged authority is deliberately not an account.
func TestEnsureSigned(t *testing.T) {
	t.Run("signed origin yields the account", func(t *testing.T) {
		account, err := EnsureSigned(SignedOrigin("alice"))
		require.NoError(t, err)
		assert.Equal(t, AccountID("alice"), account)
	})

	t.Run("privileged origin is rejected", func(t *testing.T) {
		_, err := EnsureSigned(PrivilegedOrigin())
		assert.ErrorIs(t, err, ErrBadOrigin)
	})

	t.Run("system origin is rejected", func(t *testing.T) {
		_, err := EnsureSigned(SystemOrigin())
		assert.ErrorIs(t, err, ErrBadOrigin)
	})

	t.Run("zero origin is rejected", func(t *testing.T) {
		_, err := EnsureSigned(Origin{})
		assert.ErrorIs(t, err, ErrBadOrigin)
	})
}

func TestEnsurePrivileged(t *testing.T) {
	t.Run("privileged origin passes", func(t *testing.T) {
		assert.NoError(t, EnsurePrivileged(PrivilegedOrigin()))
	})

	t.Run("signed origin is rejected regardless of account", func(t *testing.T) {
		assert.ErrorIs(t, EnsurePrivileged(SignedOrigin("alice")), ErrBadOrigin)
		assert.ErrorIs(t, EnsurePrivileged(SignedOrigin(DeriveAccountID(MustAccountTag("cofferv1")))), ErrBadOrigin)
	})

	t.Run("system origin is rejected", func(t *testing.T) {
		assert.ErrorIs(t, EnsurePrivileged(SystemOrigin()), ErrBadOrigin)
	})
}

func TestOrigin_String(t *testing.T) {
	assert.Equal(t, "signed(alice)", SignedOrigin("alice").String())
	assert.Equal(t, "privileged", PrivilegedOrigin().String())
	assert.Equal(t, "system", SystemOrigin().String())
	assert.Equal(t, "none", Origin{}.String())
	assert.True(t, Origin{}.IsZero())
}
