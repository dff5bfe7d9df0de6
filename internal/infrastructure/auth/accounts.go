// Package auth verifies teacher accounts. Passwords are stored as bcrypt
// hashes; accounts come from configuration as "username:hash" pairs.
package auth

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/lhtc/classpoint/internal/domain/shared"
)

// dummyHash is compared against when the username is unknown so that
// unknown users and wrong passwords take the same time.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("classpoint"), bcrypt.MinCost)

// Accounts is a read-only set of teacher accounts.
type Accounts struct {
	hashes map[string][]byte
}

// ParseAccounts parses "username:bcrypt-hash" entries. Usernames may contain
// spaces and non-ASCII letters; the first colon separates the hash.
func ParseAccounts(entries []string) (*Accounts, error) {
	a := &Accounts{hashes: make(map[string][]byte, len(entries))}
	for i, entry := range entries {
		user, hash, ok := strings.Cut(entry, ":")
		user = strings.TrimSpace(user)
		hash = strings.TrimSpace(hash)
		if !ok || user == "" || hash == "" {
			return nil, fmt.Errorf("auth: account %d: expected username:hash", i+1)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("auth: account %q: %w", user, err)
		}
		if _, dup := a.hashes[user]; dup {
			return nil, fmt.Errorf("auth: account %q defined twice", user)
		}
		a.hashes[user] = []byte(hash)
	}
	return a, nil
}

// Enabled reports whether any account is configured.
func (a *Accounts) Enabled() bool {
	return a != nil && len(a.hashes) > 0
}

// Usernames returns the configured usernames sorted.
func (a *Accounts) Usernames() []string {
	names := make([]string, 0, len(a.hashes))
	for n := range a.hashes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Verify checks a username/password pair. Any mismatch yields
// shared.ErrUnauthorized without saying which half was wrong.
func (a *Accounts) Verify(username, password string) error {
	hash, ok := a.hashes[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return shared.NewDomainError("auth", "Verify", shared.ErrUnauthorized, "invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return shared.NewDomainError("auth", "Verify", shared.ErrUnauthorized, "invalid username or password")
	}
	return nil
}

// HashPassword hashes a password with bcrypt.DefaultCost, for building
// AUTH_ACCOUNTS entries.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", shared.Invalid("auth", "HashPassword", "password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}
