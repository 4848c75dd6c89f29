package service

import (
	"testing"

	errs "github.com/learnsphere/auth-service/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{"valid password", "Passw0rd!", true},
		{"valid with symbol", "Str0ng+Enough", true},
		{"too short", "P4s!wor", false},
		{"no uppercase", "passw0rd!", false},
		{"no lowercase", "PASSW0RD!", false},
		{"no digit", "Password!", false},
		{"no special character", "Passw0rdX", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePasswordStrength(tt.password)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, errs.ErrWeakPassword)
			}
		})
	}
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("Passw0rd!")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "Passw0rd!", hash)

	assert.True(t, h.Compare(hash, "Passw0rd!"))
	assert.False(t, h.Compare(hash, "wrong-password"))
	assert.False(t, h.Compare("not-a-bcrypt-hash", "Passw0rd!"))
}

func TestNewPasswordHasher_InvalidCost(t *testing.T) {
	// A cost below bcrypt's minimum falls back to the library default.
	h := NewPasswordHasher(0)
	hash, err := h.Hash("Passw0rd!")
	require.NoError(t, err)
	assert.True(t, h.Compare(hash, "Passw0rd!"))
}
