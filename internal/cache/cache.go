// Package cache is the optional in-process cache layer (component 10):
// validated JWT claims and order-book snapshots, both cheap to recompute,
// are kept here only to spare repeat work on a hot session path. A Redis
// client behind the same interface is a documented extension point for
// when CACHE_URL points at an external instance; it is left unimplemented
// because no example repo in the pack carries a Redis client to ground it
// on (DESIGN.md).
package cache

import (
	gocache "github.com/patrickmn/go-cache"

	appconfig "github.com/abdoElHodaky/tradSys/internal/config"
)

// Cache is a small key-value store with per-key TTL, backed by an
// in-process go-cache instance.
type Cache struct {
	claims    *gocache.Cache
	snapshots *gocache.Cache
}

// New builds a Cache from the configured TTLs (spec.md §6.3, component 10).
func New(cfg *appconfig.Config) *Cache {
	return &Cache{
		claims:    gocache.New(cfg.Cache.ClaimsTTL, cfg.Cache.CleanupInterval),
		snapshots: gocache.New(cfg.Cache.SnapshotTTL, cfg.Cache.CleanupInterval),
	}
}

// PutClaims caches a validated principal_id under its raw JWT string so a
// reused token within the TTL window skips re-validation.
func (c *Cache) PutClaims(token string, principalID string) {
	c.claims.SetDefault(token, principalID)
}

// GetClaims returns the cached principal_id for token, if still valid.
func (c *Cache) GetClaims(token string) (string, bool) {
	v, ok := c.claims.Get(token)
	if !ok {
		return "", false
	}
	principalID, ok := v.(string)
	return principalID, ok
}

// PutSnapshot caches a symbol's book snapshot for initial_state reuse
// across sessions that register within the same short window.
func (c *Cache) PutSnapshot(symbol string, snapshot interface{}) {
	c.snapshots.SetDefault(symbol, snapshot)
}

// GetSnapshot returns the cached snapshot for symbol, if still valid.
func (c *Cache) GetSnapshot(symbol string) (interface{}, bool) {
	return c.snapshots.Get(symbol)
}

// InvalidateSnapshot drops symbol's cached snapshot, called after a trade
// changes the book's resting state.
func (c *Cache) InvalidateSnapshot(symbol string) {
	c.snapshots.Delete(symbol)
}
