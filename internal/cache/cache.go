// Package cache is an in-process result cache with TTL, tags and
// priority-based eviction.
package cache

import (
	"encoding/json"
	"path"
	"slices"
	"sync"
	"time"
)

type Priority int

const (
	PriorityLow Priority = iota - 1
	PriorityNormal
	PriorityHigh
)

type Options struct {
	TTL      time.Duration
	Tags     []string
	Priority Priority
	// Size overrides the computed entry size, which is the length of the
	// JSON encoding of the value.
	Size int64
}

type Stats struct {
	TotalItems   int
	TotalSize    int64
	ExpiredItems int
	// CacheEfficiency is hits / (hits + misses), 0 before the first read.
	CacheEfficiency float64
}

type entry struct {
	value     any
	tags      []string
	priority  Priority
	size      int64
	expiresAt time.Time
	storedAt  time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	items   map[string]*entry
	size    int64
	maxSize int64
	hits    int64
	misses  int64
	now     func() time.Time
}

type Option func(*Cache)

// WithMaxSize bounds the summed entry size; 0 means unbounded.
func WithMaxSize(n int64) Option {
	return func(c *Cache) { c.maxSize = n }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(opts ...Option) *Cache {
	c := &Cache{items: make(map[string]*entry), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores value under key. It returns false when the entry alone exceeds
// the max size and was not stored.
func (c *Cache) Set(key string, value any, opts Options) bool {
	size := opts.Size
	if size <= 0 {
		size = sizeOf(value)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize > 0 && size > c.maxSize {
		return false
	}

	now := c.now()
	e := &entry{
		value:    value,
		tags:     slices.Clone(opts.Tags),
		priority: opts.Priority,
		size:     size,
		storedAt: now,
	}
	if opts.TTL > 0 {
		e.expiresAt = now.Add(opts.TTL)
	}

	c.removeLocked(key)
	c.items[key] = e
	c.size += size
	c.evictLocked(key)
	return true
}

// Get returns the value under key. Expired entries are dropped on read and
// count as misses.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if ok && e.expired(c.now()) {
		c.removeLocked(key)
		ok = false
	}
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Invalidate drops every entry whose key matches the glob pattern or which
// carries pattern as a tag. It returns the number of entries removed.
func (c *Cache) Invalidate(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.items {
		if matchKey(pattern, k) || slices.Contains(e.tags, pattern) {
			c.removeLocked(k)
			n++
		}
	}
	return n
}

func (c *Cache) InvalidateTag(tag string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.items {
		if slices.Contains(e.tags, tag) {
			c.removeLocked(k)
			n++
		}
	}
	return n
}

func (c *Cache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// Clear drops all entries and resets the hit counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*entry)
	c.size, c.hits, c.misses = 0, 0, 0
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	s := Stats{TotalItems: len(c.items), TotalSize: c.size}
	for _, e := range c.items {
		if e.expired(now) {
			s.ExpiredItems++
		}
	}
	if total := c.hits + c.misses; total > 0 {
		s.CacheEfficiency = float64(c.hits) / float64(total)
	}
	return s
}

func (c *Cache) removeLocked(key string) {
	if e, ok := c.items[key]; ok {
		c.size -= e.size
		delete(c.items, key)
	}
}

// evictLocked frees space until the cache fits its bound. Expired entries go
// first, then the lowest priority, oldest first. keep is never evicted.
func (c *Cache) evictLocked(keep string) {
	if c.maxSize <= 0 || c.size <= c.maxSize {
		return
	}
	now := c.now()
	for k, e := range c.items {
		if k != keep && e.expired(now) {
			c.removeLocked(k)
		}
	}

	type candidate struct {
		key string
		e   *entry
	}
	var order []candidate
	for k, e := range c.items {
		if k != keep {
			order = append(order, candidate{k, e})
		}
	}
	slices.SortFunc(order, func(a, b candidate) int {
		if a.e.priority != b.e.priority {
			return int(a.e.priority - b.e.priority)
		}
		if d := a.e.storedAt.Compare(b.e.storedAt); d != 0 {
			return d
		}
		if a.key < b.key {
			return -1
		}
		return 1
	})
	for _, cand := range order {
		if c.size <= c.maxSize {
			return
		}
		c.removeLocked(cand.key)
	}
}

func matchKey(pattern, key string) bool {
	if pattern == key {
		return true
	}
	ok, err := path.Match(pattern, key)
	return err == nil && ok
}

func sizeOf(v any) int64 {
	switch t := v.(type) {
	case nil:
		return 0
	case string:
		return int64(len(t))
	case []byte:
		return int64(len(t))
	}
	b, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return int64(len(b))
}
