// Package bbolt provides a BoltDB-backed notification store so the drawer
// survives restarts.
package bbolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/rapscallion45/tradernet/internal/domain/notification"
	"github.com/rapscallion45/tradernet/internal/storage"
)

const (
	entriesBucket = "notifications"
	indexBucket   = "notifications_by_id"
)

// Store persists notifications in a BoltDB file. Entries are keyed by a
// monotonic sequence number so iteration yields insertion order; a second
// bucket maps notification id to its sequence key, which lets Upsert replace
// an entry in place without disturbing the order.
type Store struct {
	db *bbolt.DB
}

var _ storage.NotificationStore = (*Store)(nil)

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open notification db: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) List(ctx context.Context) ([]notification.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []notification.Notification
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(entriesBucket))
		if bucket == nil {
			return fmt.Errorf("notifications bucket is missing")
		}
		return bucket.ForEach(func(_, payload []byte) error {
			var n notification.Notification
			if err := json.Unmarshal(payload, &n); err != nil {
				return fmt.Errorf("unmarshal notification: %w", err)
			}
			out = append(out, n)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Upsert(ctx context.Context, n notification.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(n.ID) == "" {
		return fmt.Errorf("notification id is required")
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		entries := tx.Bucket([]byte(entriesBucket))
		index := tx.Bucket([]byte(indexBucket))
		if entries == nil || index == nil {
			return fmt.Errorf("notification buckets are missing")
		}

		key := index.Get([]byte(n.ID))
		if key == nil {
			seq, err := entries.NextSequence()
			if err != nil {
				return fmt.Errorf("next sequence: %w", err)
			}
			key = seqKey(seq)
			if err := index.Put([]byte(n.ID), key); err != nil {
				return fmt.Errorf("index notification: %w", err)
			}
		}
		return entries.Put(key, payload)
	})
}

func (s *Store) RemoveByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		entries := tx.Bucket([]byte(entriesBucket))
		index := tx.Bucket([]byte(indexBucket))
		if entries == nil || index == nil {
			return fmt.Errorf("notification buckets are missing")
		}

		key := index.Get([]byte(id))
		if key == nil {
			return storage.ErrNotFound
		}
		if err := entries.Delete(key); err != nil {
			return fmt.Errorf("delete notification: %w", err)
		}
		return index.Delete([]byte(id))
	})
}

func (s *Store) ClearAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{entriesBucket, indexBucket} {
			if err := tx.DeleteBucket([]byte(name)); err != nil && err != bbolt.ErrBucketNotFound {
				return fmt.Errorf("clear %s bucket: %w", name, err)
			}
			if _, err := tx.CreateBucket([]byte(name)); err != nil {
				return fmt.Errorf("recreate %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{entriesBucket, indexBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
