package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rapscallion45/tradernet/internal/domain/notification"
	"github.com/rapscallion45/tradernet/internal/storage"
	"github.com/rapscallion45/tradernet/internal/storage/memory"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *memory.Store) {
	t.Helper()
	store := memory.New()
	d := NewDispatcher(store)
	t.Cleanup(d.Close)
	return d, store
}

func TestToastIdempotentByID(t *testing.T) {
	d, store := newTestDispatcher(t)
	ctx := context.Background()

	d.Toast(ctx, notification.Notification{ID: "x", Variant: notification.VariantInfo, Message: []string{"first"}})
	d.Toast(ctx, notification.Notification{ID: "x", Variant: notification.VariantInfo, Message: []string{"second"}})

	live := d.Live()
	require.Len(t, live, 1)
	require.Equal(t, []string{"second"}, live[0].Message)

	persisted, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	require.Equal(t, []string{"second"}, persisted[0].Message)
}

func TestToastNoPrematurePersistence(t *testing.T) {
	d, store := newTestDispatcher(t)
	ctx := context.Background()

	d.Toast(ctx, notification.Notification{ID: "p", Variant: notification.VariantInfo, Loading: true})

	persisted, err := store.List(ctx)
	require.NoError(t, err)
	require.Empty(t, persisted)

	d.Toast(ctx, notification.Notification{ID: "p", Variant: notification.VariantInfo, Progress: notification.ProgressOf(100)})

	persisted, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	require.Equal(t, "p", persisted[0].ID)
}

func TestToastAutoDismiss(t *testing.T) {
	store := memory.New()
	d := NewDispatcher(store, WithAutoDismiss(20*time.Millisecond))
	defer d.Close()
	ctx := context.Background()

	d.Toast(ctx, notification.Notification{ID: "x", Variant: notification.VariantSuccess})
	require.Len(t, d.Live(), 1)

	require.Eventually(t, func() bool { return len(d.Live()) == 0 }, 2*time.Second, 5*time.Millisecond)

	// dismissal only touches the live layer
	persisted, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
}

func TestToastErrorNeverAutoDismisses(t *testing.T) {
	store := memory.New()
	d := NewDispatcher(store, WithAutoDismiss(20*time.Millisecond))
	defer d.Close()
	ctx := context.Background()

	d.Toast(ctx, notification.Notification{ID: "err", Variant: notification.VariantError})

	time.Sleep(100 * time.Millisecond)
	require.Len(t, d.Live(), 1)

	d.Dismiss("err")
	require.Empty(t, d.Live())
}

func TestToastLoadingNeverAutoDismisses(t *testing.T) {
	store := memory.New()
	d := NewDispatcher(store, WithAutoDismiss(20*time.Millisecond))
	defer d.Close()
	ctx := context.Background()

	d.Toast(ctx, notification.Notification{ID: "load", Variant: notification.VariantInfo, Loading: true})

	time.Sleep(100 * time.Millisecond)
	require.Len(t, d.Live(), 1)
}

func TestToastMissingIDDropped(t *testing.T) {
	d, store := newTestDispatcher(t)
	ctx := context.Background()

	d.Toast(ctx, notification.Notification{Variant: notification.VariantInfo})

	require.Empty(t, d.Live())
	persisted, err := store.List(ctx)
	require.NoError(t, err)
	require.Empty(t, persisted)

	// dispatcher keeps working for well-formed ids
	d.Toast(ctx, notification.Notification{ID: "ok", Variant: notification.VariantInfo})
	require.Len(t, d.Live(), 1)
}

type failingStore struct {
	storage.NotificationStore
}

func (failingStore) Upsert(context.Context, notification.Notification) error {
	return errors.New("disk full")
}

func TestToastPersistFailureKeepsLiveToast(t *testing.T) {
	d := NewDispatcher(failingStore{NotificationStore: memory.New()})
	defer d.Close()

	d.Toast(context.Background(), notification.Notification{ID: "x", Variant: notification.VariantInfo})

	require.Len(t, d.Live(), 1)
}

func TestMarkAllReadLeavesLiveToasts(t *testing.T) {
	d, store := newTestDispatcher(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		d.Toast(ctx, notification.Notification{ID: id, Variant: notification.VariantError})
	}

	persisted, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 3)

	require.NoError(t, d.MarkAllRead(ctx))

	persisted, err = store.List(ctx)
	require.NoError(t, err)
	require.Empty(t, persisted)
	require.Len(t, d.Live(), 3)
}

func TestRemovePersistedEntry(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	d.Toast(ctx, notification.Notification{ID: "a", Variant: notification.VariantError})
	require.NoError(t, d.Remove(ctx, "a"))
	require.ErrorIs(t, d.Remove(ctx, "a"), storage.ErrNotFound)
}

func TestDrawerNewestFirst(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	d.Toast(ctx, notification.Notification{ID: "a", Variant: notification.VariantInfo, Timestamp: 1})
	d.Toast(ctx, notification.Notification{ID: "b", Variant: notification.VariantInfo, Timestamp: 2})

	drawer, err := d.Drawer(ctx)
	require.NoError(t, err)
	require.Len(t, drawer, 2)
	require.Equal(t, "b", drawer[0].ID)
	require.Equal(t, "a", drawer[1].ID)
}

func TestListAfterUpsertSameTask(t *testing.T) {
	d, store := newTestDispatcher(t)
	ctx := context.Background()

	d.Toast(ctx, notification.Notification{ID: "x", Variant: notification.VariantInfo})

	persisted, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
}
