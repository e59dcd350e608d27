// Package session holds the process-wide authenticated-user state. The store
// is the single source of truth for "who is logged in"; readers subscribe or
// poll, and all writes go through Set/Clear.
package session

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/rapscallion45/tradernet/internal/domain/identity"
)

type subscriber struct {
	id int64
	fn func(identity.Identity)
}

// Store is a mutex-guarded identity cell with synchronous subscriber
// fan-out. It has no network or storage side effects of its own.
type Store struct {
	mu     sync.RWMutex
	cur    identity.Identity
	subs   []subscriber
	nextID int64
	log    zerolog.Logger
}

// New creates an empty, unauthenticated store.
func New(log zerolog.Logger) *Store {
	return &Store{log: log.With().Str("component", "session").Logger()}
}

// Current returns the identity of the logged-in user. It never fails; the
// zero identity means unauthenticated.
func (s *Store) Current() identity.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Session returns the current session with its derived authenticated flag.
func (s *Store) Session() identity.Session {
	return identity.Session{Identity: s.Current()}
}

// Authenticated reports whether an identity is present.
func (s *Store) Authenticated() bool {
	return !s.Current().IsZero()
}

// Set replaces the identity wholly and notifies subscribers synchronously in
// registration order.
func (s *Store) Set(id identity.Identity) {
	s.mu.Lock()
	s.cur = id
	subs := append([]subscriber(nil), s.subs...)
	s.mu.Unlock()

	s.log.Debug().Str("username", id.Username).Msg("session replaced")
	for _, sub := range subs {
		sub.fn(id)
	}
}

// Clear resets the store to the unauthenticated default.
func (s *Store) Clear() {
	s.Set(identity.Identity{})
}

// Subscribe registers fn to run on every write. The returned cancel func
// removes the subscription; it is safe to call more than once.
func (s *Store) Subscribe(fn func(identity.Identity)) (cancel func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}
