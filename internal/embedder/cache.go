package embedder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

const cacheFileName = "embeddings.json"

// Cache is an in-memory LRU of embedding vectors keyed by model and
// content hash, optionally persisted to a JSON file between runs.
type Cache struct {
	lru  *lru.Cache[string, []float32]
	path string
}

// NewCache creates a cache with the given capacity. If dir is non-empty
// the cache is backed by a file there and previously saved entries are
// loaded immediately. A missing or corrupt file starts the cache empty.
func NewCache(size int, dir string) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	l, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	c := &Cache{lru: l}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		c.path = filepath.Join(dir, cacheFileName)
		c.load()
	}
	return c, nil
}

// Get returns a copy of the cached vector so callers cannot mutate the
// cached value.
func (c *Cache) Get(key string) ([]float32, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out, true
}

// Set stores a vector; LRU eviction applies at capacity.
func (c *Cache) Set(key string, vector []float32) {
	v := make([]float32, len(vector))
	copy(v, vector)
	c.lru.Add(key, v)
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge empties the cache.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Save writes the cache contents to the backing file, if configured.
// The file is replaced atomically.
func (c *Cache) Save() error {
	if c.path == "" {
		return nil
	}

	entries := make(map[string][]float32, c.lru.Len())
	for _, key := range c.lru.Keys() {
		if v, ok := c.lru.Peek(key); ok {
			entries[key] = v
		}
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}

func (c *Cache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return
	}
	var entries map[string][]float32
	if err := json.Unmarshal(data, &entries); err != nil {
		return
	}
	for key, v := range entries {
		c.lru.Add(key, v)
	}
}
