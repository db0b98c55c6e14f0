// Package reportcache memoizes aggregation results with a TTL and a bounded
// entry count, so repeated dashboard loads within a short window skip the
// upstream fetches entirely.
package reportcache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Cache is a TTL + size bounded memo table. Keys are built from arbitrary
// JSON-encodable parts; values are opaque. Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	maxSize int

	hits   int64
	misses int64

	now func() time.Time
}

type entry struct {
	value   any
	label   string
	savedAt time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the default 10 minute entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithMaxSize overrides the default 200 entry bound.
func WithMaxSize(n int) Option {
	return func(c *Cache) { c.maxSize = n }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     10 * time.Minute,
		maxSize: 200,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds a cache key from a label plus any JSON-encodable parts. The
// label survives hashing so targeted invalidation can match on it.
type Key struct {
	Label string
	hash  string
}

// NewKey hashes the parts into a stable key under the given label.
func NewKey(label string, parts ...any) Key {
	raw, err := json.Marshal(parts)
	if err != nil {
		// unencodable parts still need a distinct, stable-ish key
		raw = []byte(fmt.Sprintf("%v", parts))
	}
	sum := md5.Sum(append([]byte(label+"\x00"), raw...))
	return Key{Label: label, hash: hex.EncodeToString(sum[:])}
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.hash]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.now().Sub(e.savedAt) >= c.ttl {
		delete(c.entries, key.hash)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Set stores a value, evicting the oldest entry when the cache is full.
func (c *Cache) Set(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.savedAt.Before(oldest) {
				oldestKey = k
				oldest = e.savedAt
			}
		}
		delete(c.entries, oldestKey)
	}

	c.entries[key.hash] = entry{value: value, label: key.Label, savedAt: c.now()}
}

// Clear drops all entries and resets the hit/miss counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry)
	c.hits = 0
	c.misses = 0
}

// ClearLabel drops every entry stored under the given label and returns the
// number removed. Used when a configuration mutation invalidates one family
// of results.
func (c *Cache) ClearLabel(label string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if e.label == label {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
}

// Stats returns current counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Hits: c.hits, Misses: c.misses, Size: len(c.entries), MaxSize: c.maxSize}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total) * 100
	}
	return s
}
