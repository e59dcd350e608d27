// Package tokenstore tracks issued session tokens so logout can revoke them
// before their JWT expiry.
package tokenstore

import (
	"context"
	"sync"
	"time"
)

// Store records live session tokens by their JWT id.
type Store interface {
	Save(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error
	Valid(ctx context.Context, tokenID string) (bool, error)
	Revoke(ctx context.Context, tokenID string) error
	Close() error
}

// Memory is the in-process token store used when no redis address is
// configured.
type Memory struct {
	mu      sync.Mutex
	expires map[string]time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{expires: make(map[string]time.Time)}
}

func (m *Memory) Save(_ context.Context, tokenID string, _ int64, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[tokenID] = time.Now().Add(ttl)
	return nil
}

func (m *Memory) Valid(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.expires[tokenID]
	if !ok {
		return false, nil
	}
	if time.Now().After(exp) {
		delete(m.expires, tokenID)
		return false, nil
	}
	return true, nil
}

func (m *Memory) Revoke(_ context.Context, tokenID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expires, tokenID)
	return nil
}

func (m *Memory) Close() error {
	return nil
}
