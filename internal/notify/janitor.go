package notify

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/rapscallion45/tradernet/internal/domain/notification"
	"github.com/rapscallion45/tradernet/internal/storage"
)

// Janitor sweeps the persistent store on a schedule, deleting entries stuck
// in a non-terminal state and, when maxAge is positive, entries older than
// maxAge. The sweep is housekeeping only; correctness never depends on it.
type Janitor struct {
	store  storage.NotificationStore
	log    zerolog.Logger
	maxAge time.Duration
	cron   *cron.Cron
}

// NewJanitor builds a janitor running sweep on the given cron schedule
// (standard 5-field spec, e.g. "*/10 * * * *").
func NewJanitor(store storage.NotificationStore, schedule string, maxAge time.Duration, log zerolog.Logger) (*Janitor, error) {
	j := &Janitor{
		store:  store,
		log:    log.With().Str("component", "notify_janitor").Logger(),
		maxAge: maxAge,
		cron:   cron.New(),
	}
	if _, err := j.cron.AddFunc(schedule, func() { j.Sweep(context.Background()) }); err != nil {
		return nil, err
	}
	return j, nil
}

// Start begins the schedule.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep runs one pass immediately.
func (j *Janitor) Sweep(ctx context.Context) {
	entries, err := j.store.List(ctx)
	if err != nil {
		j.log.Warn().Err(err).Msg("janitor list failed")
		return
	}

	cutoff := int64(0)
	if j.maxAge > 0 {
		cutoff = time.Now().Add(-j.maxAge).UnixMilli()
	}

	removed := 0
	for _, n := range entries {
		if j.shouldRemove(n, cutoff) {
			if err := j.store.RemoveByID(ctx, n.ID); err != nil {
				j.log.Warn().Err(err).Str("id", n.ID).Msg("janitor remove failed")
				continue
			}
			removed++
		}
	}
	if removed > 0 {
		j.log.Info().Int("removed", removed).Msg("swept notification store")
	}
}

func (j *Janitor) shouldRemove(n notification.Notification, cutoff int64) bool {
	if !n.Terminal() {
		return true
	}
	return cutoff > 0 && n.Timestamp < cutoff
}
