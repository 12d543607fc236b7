// Package cache holds per-user case listings in memory so repeated fetches
// by the same client do not hit the store. Entries expire after a TTL and
// are invalidated whenever one of the user's cases is written.
package cache

import (
	"strconv"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/agentstation/casesync/pkg/cases"
)

const userPrefix = "cases:user:"

// Cache wraps go-cache with typed accessors for case listings.
type Cache struct {
	store  *gocache.Cache
	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a cache. defaultTTL is how long a listing stays valid;
// cleanupInterval is how often expired entries are purged.
func New(defaultTTL, cleanupInterval time.Duration) *Cache {
	return &Cache{
		store: gocache.New(defaultTTL, cleanupInterval),
	}
}

// UserKey returns the cache key for author's listing.
func UserKey(author int64) string {
	return userPrefix + strconv.FormatInt(author, 10)
}

// Cases returns a copy of the cached listing for author.
func (c *Cache) Cases(author int64) ([]cases.Case, bool) {
	v, ok := c.store.Get(UserKey(author))
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	list, ok := v.([]cases.Case)
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return clone(list), true
}

// SetCases caches a copy of list as author's listing.
func (c *Cache) SetCases(author int64, list []cases.Case) {
	c.store.Set(UserKey(author), clone(list), gocache.DefaultExpiration)
}

// Invalidate drops author's listing.
func (c *Cache) Invalidate(author int64) {
	c.store.Delete(UserKey(author))
}

// Clear removes all items from the cache.
func (c *Cache) Clear() {
	c.store.Flush()
}

// ItemCount returns the number of items in the cache, expired ones included
// until the next cleanup.
func (c *Cache) ItemCount() int {
	return c.store.ItemCount()
}

// Stats returns cache statistics.
type Stats struct {
	ItemCount int   `json:"item_count"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
}

// GetStats returns current cache statistics.
func (c *Cache) GetStats() Stats {
	return Stats{
		ItemCount: c.store.ItemCount(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
	}
}

func clone(list []cases.Case) []cases.Case {
	out := make([]cases.Case, len(list))
	for i, c := range list {
		out[i] = c.Clone()
	}
	return out
}
