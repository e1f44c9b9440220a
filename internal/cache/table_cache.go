// Package cache memoizes ephemeris tables so that repeated requests for the
// same body, observer and window are served without recomputation.
//
// Entries expire TTL after they were generated. A background loop evicts
// expired entries; when the cache is full the oldest entry is dropped.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/star/starcalc/internal/body"
	"github.com/star/starcalc/internal/ephemeris"
	"github.com/star/starcalc/internal/geodesy"
	"github.com/star/starcalc/internal/metrics"
)

// Config holds cache configuration loaded from environment variables.
type Config struct {
	TTL        time.Duration // Entry lifetime (default: 10m)
	MaxEntries int           // Upper bound on cached tables (default: 256)
}

// Key identifies one table. Two requests share a table only if every field
// matches exactly.
type Key struct {
	Body      string
	Observer  geodesy.GeodeticCoordinate
	StartSec  int64 // Unix seconds
	StartNsec int   // within the second
	Step      time.Duration
	Horizon   time.Duration
}

// KeyFor builds the cache key for a table request.
func KeyFor(b body.Body, obs geodesy.GeodeticCoordinate, start time.Time, step, horizon time.Duration) Key {
	return Key{
		Body:      b.Name(),
		Observer:  obs,
		StartSec:  start.Unix(),
		StartNsec: start.Nanosecond(),
		Step:      step,
		Horizon:   horizon,
	}
}

// Entry wraps a table with generation metadata.
type Entry struct {
	Table       *ephemeris.Table
	GeneratedAt time.Time
}

// TableCache is an in-memory cache of ephemeris tables in front of a
// Generator. Safe for concurrent use by multiple goroutines.
type TableCache struct {
	mu      sync.RWMutex
	entries map[Key]*Entry

	config Config
	gen    *ephemeris.Generator
	logger *slog.Logger
	now    func() time.Time

	// Counters (lock-free).
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewTableCache creates a cache that fills misses from gen.
func NewTableCache(config Config, gen *ephemeris.Generator, logger *slog.Logger) *TableCache {
	if config.TTL <= 0 {
		config.TTL = 10 * time.Minute
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 256
	}

	logger.Info("cache initialized",
		"ttl_seconds", config.TTL.Seconds(),
		"max_entries", config.MaxEntries,
	)

	return &TableCache{
		entries: make(map[Key]*Entry),
		config:  config,
		gen:     gen,
		logger:  logger,
		now:     time.Now,
	}
}

// RoundToStep rounds a timestamp down to the nearest step boundary.
// Callers defaulting the start to "now" use it so lookups hit consistently.
func RoundToStep(t time.Time, step time.Duration) time.Time {
	return t.UTC().Truncate(step)
}

// Get returns the table for key, or nil if it is absent or expired.
func (c *TableCache) Get(key Key) *ephemeris.Table {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().Sub(entry.GeneratedAt) < c.config.TTL {
		c.hits.Add(1)
		metrics.IncCacheHits()
		return entry.Table
	}

	c.misses.Add(1)
	metrics.IncCacheMisses()
	return nil
}

// Generate returns a cached table or computes and stores a new one.
// Tables with failed rows and partial tables from a cancelled context are
// returned but not cached.
func (c *TableCache) Generate(ctx context.Context, b body.Body, obs geodesy.GeodeticCoordinate, start time.Time, step, horizon time.Duration) (*ephemeris.Table, error) {
	key := KeyFor(b, obs, start, step, horizon)
	if t := c.Get(key); t != nil {
		return t, nil
	}

	table, err := c.gen.GenerateWith(ctx, b, obs, start, step, horizon)
	if err != nil {
		return table, err
	}
	if table.Failed == 0 {
		c.put(key, table)
	}
	return table, nil
}

// put stores a table, evicting the oldest entry when full. Caller must not hold mu.
func (c *TableCache) put(key Key, table *ephemeris.Table) {
	entry := &Entry{Table: table, GeneratedAt: c.now()}

	var evicted int
	c.mu.Lock()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.config.MaxEntries {
		var oldestKey Key
		var oldest time.Time
		for k, e := range c.entries {
			if oldest.IsZero() || e.GeneratedAt.Before(oldest) {
				oldestKey, oldest = k, e.GeneratedAt
			}
		}
		delete(c.entries, oldestKey)
		evicted = 1
	}
	c.entries[key] = entry
	count := len(c.entries)
	c.mu.Unlock()

	if evicted > 0 {
		c.evictions.Add(1)
		metrics.AddCacheEvictions(1)
	}
	metrics.SetCacheEntries(count)
}

// evictExpired removes entries older than the TTL.
func (c *TableCache) evictExpired() int {
	cutoff := c.now().Add(-c.config.TTL)
	var removed int

	c.mu.Lock()
	for k, e := range c.entries {
		if !e.GeneratedAt.After(cutoff) {
			delete(c.entries, k)
			removed++
		}
	}
	count := len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.AddCacheEvictions(removed)
		metrics.SetCacheEntries(count)
		c.logger.Debug("cache eviction", "entries_removed", removed)
	}

	return removed
}

// Stats returns current cache statistics.
func (c *TableCache) Stats() Stats {
	c.mu.RLock()
	count := len(c.entries)
	var rows int
	for _, e := range c.entries {
		rows += len(e.Table.Rows)
	}
	c.mu.RUnlock()

	return Stats{
		Entries:   count,
		Rows:      rows,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// Stats holds cache statistics.
type Stats struct {
	Entries   int
	Rows      int
	Hits      int64
	Misses    int64
	Evictions int64
}
