package userstore

import (
	"context"
	"fmt"
	"sync"
)

// Memory is the in-process user store used when no database is configured.
type Memory struct {
	mu     sync.RWMutex
	nextID int64
	users  map[string]User
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{nextID: 1, users: make(map[string]User)}
}

func (m *Memory) GetByUsername(_ context.Context, username string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[username]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) Create(_ context.Context, username, password string, expired bool) (User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return User{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[username]; exists {
		return User{}, fmt.Errorf("user %s already exists", username)
	}

	u := User{ID: m.nextID, Username: username, PasswordHash: hash, PasswordExpired: expired}
	m.nextID++
	m.users[username] = u
	return u, nil
}

func (m *Memory) SetPassword(_ context.Context, username, newPassword string) error {
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[username]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = hash
	u.PasswordExpired = false
	m.users[username] = u
	return nil
}

func (m *Memory) Close() error {
	return nil
}
