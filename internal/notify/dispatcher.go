// Package notify implements the toast dispatcher: it decides, per incoming
// notification, whether to show a new live toast, update an existing one in
// place, and whether the entry is terminal and must be written to the
// persistent notification store.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rapscallion45/tradernet/internal/domain/notification"
	"github.com/rapscallion45/tradernet/internal/metrics"
	"github.com/rapscallion45/tradernet/internal/storage"
)

// DefaultAutoDismiss is how long a dismissable toast stays visible.
const DefaultAutoDismiss = 3 * time.Second

// Dispatcher owns the live (transient) notification layer and gates writes
// to the persistent store. It never fails: persistence errors are logged and
// swallowed so the live toast stays visible.
type Dispatcher struct {
	store       storage.NotificationStore
	log         zerolog.Logger
	autoDismiss time.Duration

	mu     sync.Mutex
	live   []notification.Notification
	timers map[string]*time.Timer
	closed bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = log.With().Str("component", "notify").Logger() }
}

// WithAutoDismiss overrides the auto-dismiss delay.
func WithAutoDismiss(delay time.Duration) Option {
	return func(d *Dispatcher) { d.autoDismiss = delay }
}

// NewDispatcher creates a dispatcher backed by the given persistent store.
func NewDispatcher(store storage.NotificationStore, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:       store,
		log:         zerolog.Nop(),
		autoDismiss: DefaultAutoDismiss,
		timers:      make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Toast shows, updates or persists a notification. A missing id is a caller
// contract violation: the call is dropped with a warning and dispatch for
// other ids is unaffected. Updates to the same id apply in call order.
func (d *Dispatcher) Toast(ctx context.Context, n notification.Notification) {
	if n.ID == "" {
		d.log.Warn().Msg("dropping toast without id")
		return
	}
	n = Normalize(n)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}

	existing := d.liveIndexLocked(n.ID)
	if existing >= 0 {
		d.live[existing] = n
		metrics.RecordToast("updated")
	} else {
		d.live = append(d.live, n)
		metrics.RecordToast("shown")
	}

	// Errors and not-yet-terminal entries stay until dismissed explicitly
	// or superseded by a later update; everything else auto-dismisses.
	if timer, ok := d.timers[n.ID]; ok {
		timer.Stop()
		delete(d.timers, n.ID)
	}
	if n.Terminal() && n.Variant != notification.VariantError && d.autoDismiss > 0 {
		id := n.ID
		d.timers[id] = time.AfterFunc(d.autoDismiss, func() { d.Dismiss(id) })
	}
	d.mu.Unlock()

	if n.Terminal() {
		err := d.store.Upsert(ctx, n)
		metrics.RecordPersist(err)
		if err != nil {
			d.log.Warn().Err(err).Str("id", n.ID).Msg("persist notification failed; keeping live toast")
		}
	}
}

// Live returns the currently shown notifications in display order.
func (d *Dispatcher) Live() []notification.Notification {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]notification.Notification, 0, len(d.live))
	for _, n := range d.live {
		out = append(out, n.Clone())
	}
	return out
}

// Dismiss removes one live toast. Persisted entries are untouched.
func (d *Dispatcher) Dismiss(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.timers[id]; ok {
		timer.Stop()
		delete(d.timers, id)
	}
	if i := d.liveIndexLocked(id); i >= 0 {
		d.live = append(d.live[:i], d.live[i+1:]...)
	}
}

// Drawer returns persisted notifications ready for display: newest first,
// non-terminal leftovers filtered out.
func (d *Dispatcher) Drawer(ctx context.Context) ([]notification.Notification, error) {
	entries, err := d.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return storage.ForDisplay(entries), nil
}

// MarkAllRead clears the persisted set. Live toasts are unaffected.
func (d *Dispatcher) MarkAllRead(ctx context.Context) error {
	return d.store.ClearAll(ctx)
}

// Remove deletes one persisted entry by id.
func (d *Dispatcher) Remove(ctx context.Context, id string) error {
	return d.store.RemoveByID(ctx, id)
}

// Close stops all pending auto-dismiss timers. The persistent store is not
// closed; its lifetime belongs to the caller.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	for id, timer := range d.timers {
		timer.Stop()
		delete(d.timers, id)
	}
}

func (d *Dispatcher) liveIndexLocked(id string) int {
	for i, n := range d.live {
		if n.ID == id {
			return i
		}
	}
	return -1
}
