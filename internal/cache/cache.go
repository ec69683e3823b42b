// Package cache is a capacity- and TTL-bounded LRU store of raw scrape
// results keyed by normalized query. Only unannotated output is cached so
// the same entry can serve arbitrary future keywords without re-scraping.
package cache

import (
	"container/list"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cliphawk/cliphawk/internal/scrape"
	"github.com/cliphawk/cliphawk/internal/types"
)

// Entry is the cached value for one (search, maxCount) pair.
type Entry struct {
	Items     []types.VideoRecord
	Metrics   *scrape.RunMetrics
	CreatedAt time.Time
}

// Key builds the normalized cache key: lowercased, trimmed search text
// plus the result cap.
func Key(search string, maxCount int) string {
	return strings.ToLower(strings.TrimSpace(search)) + "+" + strconv.Itoa(maxCount)
}

type node struct {
	key   string
	entry *Entry
}

// Cache is a mutex-guarded LRU with optional TTL. TTL 0 disables expiry.
type Cache struct {
	mu    sync.Mutex
	ll    *list.List // front = most recently used
	items map[string]*list.Element
	ttl   time.Duration
	cap   int

	now func() time.Time
}

// New creates a Cache with the given TTL and capacity.
func New(ttl time.Duration, maxEntries int) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Cache{
		ll:    list.New(),
		items: make(map[string]*list.Element, maxEntries),
		ttl:   ttl,
		cap:   maxEntries,
		now:   time.Now,
	}
}

// Get returns the fresh entry for key, marking it most-recently-used.
// Expired entries are evicted and reported as absent.
func (c *Cache) Get(key string) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	n := el.Value.(*node)

	if c.ttl > 0 && c.now().Sub(n.entry.CreatedAt) >= c.ttl {
		c.ll.Remove(el)
		delete(c.items, key)
		return nil, false
	}

	c.ll.MoveToFront(el)
	return n.entry, true
}

// Set stores the entry under key, stamping CreatedAt and resetting
// recency. Existing entries for the key are replaced; least-recently-used
// entries are evicted while the cache exceeds capacity.
func (c *Cache) Set(key string, e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}

	e.CreatedAt = c.now()
	c.items[key] = c.ll.PushFront(&node{key: key, entry: e})

	for c.ll.Len() > c.cap {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*node).key)
	}
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Purge drops all entries.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element, c.cap)
}
