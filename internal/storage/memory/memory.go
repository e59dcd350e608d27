// Package memory provides an in-memory notification store. It is safe for
// concurrent use and is primarily intended for tests and ephemeral sessions.
package memory

import (
	"context"
	"sync"

	"github.com/rapscallion45/tradernet/internal/domain/notification"
	"github.com/rapscallion45/tradernet/internal/storage"
)

// Store keeps notifications in an ordered slice guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	entries []notification.Notification
	index   map[string]int
}

var _ storage.NotificationStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{index: make(map[string]int)}
}

func (s *Store) List(_ context.Context) ([]notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]notification.Notification, 0, len(s.entries))
	for _, n := range s.entries {
		out = append(out, n.Clone())
	}
	return out, nil
}

func (s *Store) Upsert(_ context.Context, n notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[n.ID]; ok {
		s.entries[i] = n.Clone()
		return nil
	}
	s.index[n.ID] = len(s.entries)
	s.entries = append(s.entries, n.Clone())
	return nil
}

func (s *Store) RemoveByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return storage.ErrNotFound
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.entries); j++ {
		s.index[s.entries[j].ID] = j
	}
	return nil
}

func (s *Store) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
	s.index = make(map[string]int)
	return nil
}

func (s *Store) Close() error {
	return nil
}
