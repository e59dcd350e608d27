package session

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/rapscallion45/tradernet/internal/domain/identity"
)

func TestStoreDefaultsUnauthenticated(t *testing.T) {
	s := New(zerolog.Nop())

	require.True(t, s.Current().IsZero())
	require.False(t, s.Authenticated())
	require.False(t, s.Session().Authenticated())
}

func TestStoreSetAndClear(t *testing.T) {
	s := New(zerolog.Nop())

	s.Set(identity.Identity{ID: 7, Username: "alice"})
	require.Equal(t, "alice", s.Current().Username)
	require.True(t, s.Authenticated())
	require.True(t, s.Session().Authenticated())

	s.Clear()
	require.True(t, s.Current().IsZero())
	require.False(t, s.Authenticated())
}

func TestStoreNotifiesSubscribersInOrder(t *testing.T) {
	s := New(zerolog.Nop())

	var order []string
	s.Subscribe(func(id identity.Identity) { order = append(order, "first:"+id.Username) })
	s.Subscribe(func(id identity.Identity) { order = append(order, "second:"+id.Username) })

	s.Set(identity.Identity{Username: "bob"})
	require.Equal(t, []string{"first:bob", "second:bob"}, order)
}

func TestStoreSubscribeCancel(t *testing.T) {
	s := New(zerolog.Nop())

	calls := 0
	cancel := s.Subscribe(func(identity.Identity) { calls++ })

	s.Set(identity.Identity{Username: "carol"})
	cancel()
	cancel() // second cancel is a no-op
	s.Clear()

	require.Equal(t, 1, calls)
}

func TestStoreSubscriberMayReadCurrent(t *testing.T) {
	s := New(zerolog.Nop())

	var seen identity.Identity
	s.Subscribe(func(identity.Identity) { seen = s.Current() })

	s.Set(identity.Identity{Username: "dave"})
	require.Equal(t, "dave", seen.Username)
}
