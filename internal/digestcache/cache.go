package digestcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"rommate/internal/logging"
)

// Entry is one cached digest triple.
type Entry struct {
	Key      string    `json:"key"`
	Path     string    `json:"path"`
	Skip     int64     `json:"skip,omitempty"`
	CRC32    string    `json:"crc32"`
	MD5      string    `json:"md5"`
	SHA1     string    `json:"sha1"`
	CachedAt time.Time `json:"cached_at"`
}

// Cache provides thread-safe access to the digest cache file.
type Cache struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCache opens the cache at path. An empty path yields a cache on which
// every operation is a no-op.
func NewCache(path string, logger *slog.Logger) *Cache {
	logger = logging.NewComponentLogger(logger, "digestcache")

	c := &Cache{
		path:    path,
		logger:  logger,
		entries: make(map[string]Entry),
	}
	if path == "" {
		return c
	}

	if err := c.load(); err != nil {
		logging.WarnWithContext(logger, "failed to load digest cache", "digestcache_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the cache file or run `rommate cache clear`"),
			logging.String(logging.FieldImpact, "digests will be recomputed"))
	}
	return c
}

// Path returns the backing file.
func (c *Cache) Path() string { return c.path }

// Lookup returns the entry stored under key.
func (c *Cache) Lookup(key string) (Entry, bool) {
	key = strings.TrimSpace(key)
	if key == "" || c.path == "" {
		return Entry{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	return entry, ok
}

// Store adds or replaces an entry and persists the cache.
func (c *Cache) Store(entry Entry) error {
	entry.Key = strings.TrimSpace(entry.Key)
	if entry.Key == "" {
		return errors.New("digest cache key cannot be empty")
	}
	if c.path == "" {
		return nil
	}
	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[entry.Key] = entry
	if err := c.save(); err != nil {
		return fmt.Errorf("persist digest cache: %w", err)
	}
	c.logger.Debug("cached digests",
		logging.String(logging.FieldPath, entry.Path),
		logging.Int64("skip", entry.Skip),
		logging.String("crc32", entry.CRC32))
	return nil
}

// Remove deletes every entry recorded for path.
func (c *Cache) Remove(path string) (int, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, errors.New("path cannot be empty")
	}
	if c.path == "" {
		return 0, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if entry.Path == path {
			delete(c.entries, key)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := c.save(); err != nil {
		return removed, fmt.Errorf("persist digest cache: %w", err)
	}
	return removed, nil
}

// List returns all entries, newest first.
func (c *Cache) List() []Entry {
	if c.path == "" {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.sorted()
}

// Clear drops every entry and persists the empty cache.
func (c *Cache) Clear() error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Entry)
	if err := c.save(); err != nil {
		return fmt.Errorf("persist digest cache: %w", err)
	}
	c.logger.Debug("cleared digest cache")
	return nil
}

// Count returns the number of cached entries.
func (c *Cache) Count() int {
	if c.path == "" {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

func (c *Cache) sorted() []Entry {
	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CachedAt.Equal(entries[j].CachedAt) {
			return entries[i].CachedAt.After(entries[j].CachedAt)
		}
		return entries[i].Key < entries[j].Key
	})
	return entries
}

func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}
	c.entries = make(map[string]Entry, len(entries))
	for _, entry := range entries {
		if strings.TrimSpace(entry.Key) != "" {
			c.entries[entry.Key] = entry
		}
	}

	c.logger.Debug("loaded digest cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String(logging.FieldPath, c.path))
	return nil
}

// save writes the cache via a temp file and rename. Callers hold mu.
func (c *Cache) save() error {
	data, err := json.MarshalIndent(c.sorted(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
