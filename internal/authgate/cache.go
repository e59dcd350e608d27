package authgate

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rapscallion45/tradernet/internal/domain/identity"
)

// FileCache stores the last-known identity as JSON on disk. Loading it back
// performs no server validation, so it must only be wired into a Gateway via
// the explicit WithTrustedCache opt-in.
type FileCache struct {
	path string
}

var _ IdentityCache = (*FileCache)(nil)

// NewFileCache builds a cache at path. The file is created on first Store.
func NewFileCache(path string) *FileCache {
	return &FileCache{path: filepath.Clean(path)}
}

// Load reads the cached identity; ok is false when no usable cache exists.
func (c *FileCache) Load() (identity.Identity, bool) {
	payload, err := os.ReadFile(c.path)
	if err != nil {
		return identity.Identity{}, false
	}
	var id identity.Identity
	if err := json.Unmarshal(payload, &id); err != nil || id.IsZero() {
		return identity.Identity{}, false
	}
	return id, true
}

// Store writes the identity for the next process start.
func (c *FileCache) Store(id identity.Identity) error {
	payload, err := json.Marshal(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(c.path, payload, 0o600)
}

// Clear removes the cache; a missing file is not an error.
func (c *FileCache) Clear() error {
	err := os.Remove(c.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
