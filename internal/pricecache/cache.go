package pricecache

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTTL is how long a rendered price message stays valid.
const DefaultTTL = 30 * time.Minute

// Entry is one cached rendering. Price is zero when the page had no parseable price.
type Entry struct {
	Message   string
	FetchedAt time.Time
	Price     decimal.Decimal
}

// Item is an entry with its key, as listed by Snapshot.
type Item struct {
	Metal string
	City  string
	Entry
	Fresh bool
}

type key struct {
	metal string
	city  string
}

// Option customises a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Cache maps (metal, city) to the last successful fetch.
// Expired entries are kept but reported as absent.
type Cache struct {
	mu      sync.RWMutex
	entries map[key]Entry
	ttl     time.Duration
	now     func() time.Time
}

// New builds a cache; ttl <= 0 falls back to DefaultTTL.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		entries: make(map[key]Entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured validity window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the entry if it was fetched less than TTL ago.
func (c *Cache) Get(metal, city string) (Entry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[newKey(metal, city)]
	c.mu.RUnlock()

	if !ok || !c.fresh(entry) {
		return Entry{}, false
	}
	return entry, true
}

// Set overwrites the entry for (metal, city), stamped with the current time.
func (c *Cache) Set(metal, city, message string, price decimal.Decimal) {
	entry := Entry{Message: message, FetchedAt: c.now(), Price: price}

	c.mu.Lock()
	c.entries[newKey(metal, city)] = entry
	c.mu.Unlock()
}

// Len counts entries, stale ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot lists every entry sorted by metal then city.
func (c *Cache) Snapshot() []Item {
	c.mu.RLock()
	items := make([]Item, 0, len(c.entries))
	for k, e := range c.entries {
		items = append(items, Item{Metal: k.metal, City: k.city, Entry: e})
	}
	c.mu.RUnlock()

	for i := range items {
		items[i].Fresh = c.fresh(items[i].Entry)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Metal != items[j].Metal {
			return items[i].Metal < items[j].Metal
		}
		return items[i].City < items[j].City
	})
	return items
}

// Age returns how long ago the entry was fetched.
func (c *Cache) Age(e Entry) time.Duration {
	return c.now().Sub(e.FetchedAt)
}

func (c *Cache) fresh(e Entry) bool {
	return c.now().Sub(e.FetchedAt) < c.ttl
}

func newKey(metal, city string) key {
	return key{metal: strings.ToLower(metal), city: strings.ToLower(city)}
}
