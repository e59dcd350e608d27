package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rapscallion45/tradernet/internal/domain/notification"
	"github.com/rapscallion45/tradernet/internal/storage"
)

func entry(id, title string) notification.Notification {
	return notification.Notification{
		ID:        id,
		Title:     title,
		Message:   []string{"msg"},
		Variant:   notification.VariantInfo,
		Timestamp: notification.Now(),
	}
}

func TestStoreInsertionOrder(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, entry("a", "first")))
	require.NoError(t, s.Upsert(ctx, entry("b", "second")))
	require.NoError(t, s.Upsert(ctx, entry("c", "third")))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []string{"a", "b", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
}

func TestStoreUpsertReplacesInPlace(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, entry("a", "first")))
	require.NoError(t, s.Upsert(ctx, entry("b", "second")))
	require.NoError(t, s.Upsert(ctx, entry("a", "updated")))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].ID)
	require.Equal(t, "updated", got[0].Title)
}

func TestStoreRemoveByID(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, entry("a", "first")))
	require.NoError(t, s.Upsert(ctx, entry("b", "second")))
	require.NoError(t, s.Upsert(ctx, entry("c", "third")))

	require.NoError(t, s.RemoveByID(ctx, "b"))
	require.ErrorIs(t, s.RemoveByID(ctx, "b"), storage.ErrNotFound)

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, []string{got[0].ID, got[1].ID})

	// order bookkeeping must survive removal
	require.NoError(t, s.RemoveByID(ctx, "c"))
	got, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "a", got[0].ID)
}

func TestStoreClearAll(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, entry("a", "first")))
	require.NoError(t, s.Upsert(ctx, entry("b", "second")))
	require.NoError(t, s.ClearAll(ctx))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Empty(t, got)

	// store remains usable after clear
	require.NoError(t, s.Upsert(ctx, entry("d", "fourth")))
	got, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestStoreReturnsClones(t *testing.T) {
	s := New()
	ctx := context.Background()

	n := entry("a", "first")
	require.NoError(t, s.Upsert(ctx, n))

	got, err := s.List(ctx)
	require.NoError(t, err)
	got[0].Message[0] = "mutated"

	again, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, "msg", again[0].Message[0])
}
