package pptp

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// ErrStale is returned by Cache.Load when a Ruby file changed after the
// target was cached.
var ErrStale = errors.New("cached target is stale")

// Cache stores loaded targets as JSON files, one per distribution
// directory.
type Cache struct {
	Dir string
}

// DefaultCache returns a cache in the user's XDG cache directory.
func DefaultCache() *Cache {
	return &Cache{Dir: filepath.Join(xdg.CacheHome, "geppetto", "targets")}
}

type targetCache struct {
	Target    *Target   `json:"target"`
	Timestamp time.Time `json:"timestamp"`
	Dir       string    `json:"dir"`
}

// cacheKey generates a cache key for a distribution directory
func cacheKey(dir string) string {
	h := sha256.Sum256([]byte(dir))
	return hex.EncodeToString(h[:])
}

func (c *Cache) path(dir string) string {
	return filepath.Join(c.Dir, cacheKey(dir)+".json")
}

// Load returns the cached target for dir.
func (c *Cache) Load(dir string) (*Target, error) {
	data, err := os.ReadFile(c.path(dir))
	if err != nil {
		return nil, err // Cache miss
	}

	var cached targetCache
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}

	if cached.Dir != dir || cached.Target == nil {
		return nil, fmt.Errorf("cache corruption: directory mismatch")
	}

	changed, err := changedSince(dir, cached.Timestamp)
	if err != nil {
		return nil, err
	}
	if changed {
		return nil, ErrStale
	}
	return cached.Target, nil
}

// Save stores a target under its directory.
func (c *Cache) Save(t *Target) error {
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return err
	}

	cached := targetCache{
		Target:    t,
		Timestamp: time.Now(),
		Dir:       t.Dir,
	}

	data, err := json.MarshalIndent(cached, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.path(t.Dir), data, 0644)
}

// changedSince reports whether any Ruby file below dir was modified after
// ts.
func changedSince(dir string, ts time.Time) (bool, error) {
	changed := false
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".rb") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(ts) {
			changed = true
			return filepath.SkipAll
		}
		return nil
	})
	return changed, err
}
