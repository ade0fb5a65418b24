package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Cache memoizes compiled specs by the hash of their module name and source.
// When Dir is set, specs are also persisted there as JSON so later processes
// can skip compilation.
type Cache struct {
	mu      sync.RWMutex
	dir     string
	entries map[string]*Spec
	stats   CacheStats
	logger  *slog.Logger
}

// CacheStats counts lookups.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Stored int   `json:"stored"`
}

// NewCache creates a cache. An empty dir keeps entries in memory only.
func NewCache(dir string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}
	return &Cache{dir: dir, entries: map[string]*Spec{}, logger: logger}, nil
}

// Key returns the cache key for a source compiled under moduleName.
func Key(moduleName, source string) string {
	h := sha256.New()
	h.Write([]byte(moduleName))
	h.Write([]byte{0})
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached spec for key.
func (c *Cache) Get(key string) (*Spec, bool) {
	c.mu.RLock()
	spec, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok && c.dir != "" {
		spec, ok = c.load(key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	if _, present := c.entries[key]; !present {
		c.entries[key] = spec
		c.stats.Stored = len(c.entries)
	}
	return spec, true
}

// Put stores spec under key.
func (c *Cache) Put(key string, spec *Spec) error {
	c.mu.Lock()
	c.entries[key] = spec
	c.stats.Stored = len(c.entries)
	c.mu.Unlock()

	if c.dir == "" {
		return nil
	}
	data, err := Encode(spec, FormatJSON)
	if err != nil {
		return err
	}
	path := c.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// GetOrCompile returns the cached spec for (moduleName, source) or stores the
// result of compile. Specs returned by the cache are shared and must not be
// mutated.
func (c *Cache) GetOrCompile(moduleName, source string, compile func() (*Spec, error)) (*Spec, error) {
	key := Key(moduleName, source)
	if spec, ok := c.Get(key); ok {
		return spec, nil
	}
	spec, err := compile()
	if err != nil {
		return nil, err
	}
	if err := c.Put(key, spec); err != nil {
		return nil, err
	}
	return spec, nil
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Clear drops every entry, including persisted ones.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]*Spec{}
	c.stats = CacheStats{}
	if c.dir == "" {
		return nil
	}
	matches, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.dir, key+".json")
}

func (c *Cache) load(key string) (*Spec, bool) {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return nil, false
	}
	spec, err := Decode(data, FormatJSON)
	if err != nil {
		c.logger.Warn("discarding unreadable cache entry", "key", key, "error", err)
		_ = os.Remove(c.path(key))
		return nil, false
	}
	return spec, true
}
