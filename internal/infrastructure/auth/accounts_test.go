package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/lhtc/classpoint/internal/domain/shared"
)

func cheapHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAccounts_Verify(t *testing.T) {
	accounts, err := ParseAccounts([]string{
		"Trần Hoài Thanh:" + cheapHash(t, "secret"),
		" GVBM : " + cheapHash(t, "321"),
	})
	require.NoError(t, err)
	assert.True(t, accounts.Enabled())
	assert.Equal(t, []string{"GVBM", "Trần Hoài Thanh"}, accounts.Usernames())

	assert.NoError(t, accounts.Verify("Trần Hoài Thanh", "secret"))
	assert.NoError(t, accounts.Verify("GVBM", "321"))

	err = accounts.Verify("GVBM", "wrong")
	assert.True(t, errors.Is(err, shared.ErrUnauthorized))
	err = accounts.Verify("nobody", "321")
	assert.True(t, errors.Is(err, shared.ErrUnauthorized))
}

func TestParseAccounts_Errors(t *testing.T) {
	tests := []struct {
		name    string
		entries []string
	}{
		{"missing colon", []string{"teacher"}},
		{"empty user", []string{":" + "$2a$04$abc"}},
		{"not a bcrypt hash", []string{"teacher:plaintext"}},
		{"duplicate", []string{"t:" + cheapHash(t, "a"), "t:" + cheapHash(t, "b")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAccounts(tt.entries)
			assert.Error(t, err)
		})
	}
}

func TestParseAccounts_Empty(t *testing.T) {
	accounts, err := ParseAccounts(nil)
	require.NoError(t, err)
	assert.False(t, accounts.Enabled())
	var none *Accounts
	assert.False(t, none.Enabled())
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("hoaithanha2")
	require.NoError(t, err)

	accounts, err := ParseAccounts([]string{"teacher:" + hash})
	require.NoError(t, err)
	assert.NoError(t, accounts.Verify("teacher", "hoaithanha2"))

	_, err = HashPassword("")
	assert.True(t, shared.IsValidation(err))
}
