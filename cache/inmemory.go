package cache

import (
	"sync"
	"time"

	"github.com/mvessel/divvy/database"
	"github.com/mvessel/divvy/ledger"
)

// entry is a memoized value with the time it was computed
type entry struct {
	at       time.Time
	balances []ledger.UserBalance
	net      float64
}

// InMemoryCache implements the Cache interface for an in memory cache. A
// single mutex guards the map; the HTTP server calls in from multiple
// goroutines.
type InMemoryCache struct {
	mtx     sync.Mutex
	entries map[string]entry
	now     func() time.Time // overridable in tests
}

// NewInMemoryCache creates an instance of InMemoryCache
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// GroupBalances returns the balances of a group, recomputing when the cached
// value is older than the freshness window
func (c *InMemoryCache) GroupBalances(db database.Database, groupID string) []ledger.UserBalance {
	key := "group:" + groupID

	c.mtx.Lock()
	e, exists := c.entries[key]
	c.mtx.Unlock()
	if exists && c.now().Sub(e.at) < freshnessWindow {
		return e.balances
	}

	balances := computeGroupBalances(db, groupID)

	c.mtx.Lock()
	c.entries[key] = entry{at: c.now(), balances: balances}
	c.mtx.Unlock()

	return balances
}

// NetBalance returns a user's cross-group net balance, recomputing when the
// cached value is older than the freshness window
func (c *InMemoryCache) NetBalance(db database.Database, userID string) float64 {
	key := "net:" + userID

	c.mtx.Lock()
	e, exists := c.entries[key]
	c.mtx.Unlock()
	if exists && c.now().Sub(e.at) < freshnessWindow {
		return e.net
	}

	net := computeNetBalance(db, userID)

	c.mtx.Lock()
	c.entries[key] = entry{at: c.now(), net: net}
	c.mtx.Unlock()

	return net
}

// Invalidate drops every entry. The whole cache goes at once; entries are
// not invalidated per group.
func (c *InMemoryCache) Invalidate() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.entries = make(map[string]entry)
}
