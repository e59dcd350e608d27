package notify

import "github.com/rapscallion45/tradernet/internal/domain/notification"

// Normalize fills in dispatcher defaults: a title derived from the variant
// when none was supplied, and a timestamp when the caller left it zero.
func Normalize(n notification.Notification) notification.Notification {
	out := n.Clone()
	if out.Title == "" {
		out.Title = out.Variant.DefaultTitle()
	}
	if out.Timestamp == 0 {
		out.Timestamp = notification.Now()
	}
	return out
}

// Apply is the pure de-duplication decision at the heart of the dispatcher.
// It computes the next live and persisted sets for an incoming notification:
// an existing live entry with the same id is updated in place rather than
// stacked, and the entry joins the persisted set only once terminal. Both
// inputs are left untouched.
func Apply(live, persisted []notification.Notification, incoming notification.Notification) (nextLive, nextPersisted []notification.Notification) {
	incoming = Normalize(incoming)

	nextLive = upsert(live, incoming)
	nextPersisted = append([]notification.Notification(nil), persisted...)
	if incoming.Terminal() {
		nextPersisted = upsert(persisted, incoming)
	}
	return nextLive, nextPersisted
}

func upsert(entries []notification.Notification, n notification.Notification) []notification.Notification {
	out := make([]notification.Notification, 0, len(entries)+1)
	replaced := false
	for _, e := range entries {
		if e.ID == n.ID {
			out = append(out, n)
			replaced = true
			continue
		}
		out = append(out, e)
	}
	if !replaced {
		out = append(out, n)
	}
	return out
}
