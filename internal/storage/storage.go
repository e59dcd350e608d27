// Package storage defines the persistent notification store contract. A
// notification is written here only once it has reached a terminal state;
// implementations keep insertion order stable across in-place updates.
package storage

import (
	"context"
	"errors"

	"github.com/rapscallion45/tradernet/internal/domain/notification"
)

// ErrNotFound is returned when no entry exists for the requested id.
var ErrNotFound = errors.New("notification not found")

// NotificationStore is the durable, across-restart notification list backing
// the notification drawer.
type NotificationStore interface {
	// List returns all entries in insertion order.
	List(ctx context.Context) ([]notification.Notification, error)
	// Upsert replaces the entry with the same id in place, or appends.
	Upsert(ctx context.Context, n notification.Notification) error
	// RemoveByID deletes one entry; ErrNotFound if absent.
	RemoveByID(ctx context.Context, id string) error
	// ClearAll empties the store ("mark all as read").
	ClearAll(ctx context.Context) error
	// Close releases underlying resources.
	Close() error
}

// ForDisplay prepares stored entries for the drawer: newest first, and any
// entry erroneously left in a non-terminal state is dropped rather than
// rendered half-finished.
func ForDisplay(entries []notification.Notification) []notification.Notification {
	out := make([]notification.Notification, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Terminal() {
			out = append(out, entries[i])
		}
	}
	return out
}
