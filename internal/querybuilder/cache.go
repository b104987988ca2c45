package querybuilder

import "sync"

// unknownVersion is the cache key component for unparseable versions.
const unknownVersion = "unknown"

// Key identifies one compiled query.
type Key struct {
	Identity  string
	Operation string
	Version   string // normalized "major.minor.patch" or "unknown"
}

func (k Key) String() string {
	return k.Identity + "|" + k.Operation + "|" + k.Version
}

// Cache stores compiled queries. Implementations must be safe for
// concurrent use and must never expose partially written values.
type Cache interface {
	Get(key Key) (string, bool)
	Put(key Key, query string)
	Len() int
}

// MapCache is the default Cache: a mutex-guarded map with no eviction.
type MapCache struct {
	mu      sync.RWMutex
	queries map[Key]string
}

// NewMapCache returns an empty MapCache.
func NewMapCache() *MapCache {
	return &MapCache{queries: make(map[Key]string)}
}

func (c *MapCache) Get(key Key) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.queries[key]
	return q, ok
}

// Put stores query under key. Racing writers store equal values, so the
// last write wins.
func (c *MapCache) Put(key Key, query string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries[key] = query
}

func (c *MapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.queries)
}
