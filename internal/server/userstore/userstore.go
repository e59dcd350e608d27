// Package userstore persists user credentials for tradernetd. Passwords are
// stored as bcrypt hashes; the password_expired flag drives the
// ACCOUNT_PASSWORD_EXPIRED login status.
package userstore

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/rapscallion45/tradernet/internal/domain/identity"
)

// ErrNotFound is returned when no user exists with the given username.
var ErrNotFound = errors.New("user not found")

// User is a stored account record.
type User struct {
	ID              int64  `db:"id"`
	Username        string `db:"username"`
	PasswordHash    string `db:"password_hash"`
	PasswordExpired bool   `db:"password_expired"`
}

// Identity returns the session identity for the account.
func (u User) Identity() identity.Identity {
	return identity.Identity{ID: u.ID, Username: u.Username}
}

// Store is the credential store contract.
type Store interface {
	GetByUsername(ctx context.Context, username string) (User, error)
	// Create registers a user; expired marks the initial password as
	// already expired (forces a reset on first login).
	Create(ctx context.Context, username, password string, expired bool) (User, error)
	// SetPassword replaces the password and clears the expired flag.
	SetPassword(ctx context.Context, username, newPassword string) error
	Close() error
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(u User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
