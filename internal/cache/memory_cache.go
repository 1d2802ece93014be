// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

// Package cache provides the bounded in-memory day-bucket store backing the
// calendar coordinator.
package cache

import (
	"sync"
	"time"

	"github.com/pistachi73/sessioncal/internal/models"
)

// Config holds the memory cache tuning parameters. All fields are required;
// construction rejects zero values at the config layer.
//
// PrefetchDistance and BatchSize are carried here for the coordinator's
// convenience; the cache itself enforces only MaxSize and MaxAge.
type Config struct {
	// MaxSize is the maximum number of day buckets, not total sessions.
	MaxSize int

	// MaxAge is the time-to-live of a bucket, measured from its last write.
	MaxAge time.Duration

	// PrefetchDistance controls how far adjacent prefetch reaches.
	PrefetchDistance int

	// BatchSize is the maximum number of days per upstream fetch.
	BatchSize int
}

// entry is one day bucket, a node in the recency list.
// head.next is the most recently used, tail.prev the least.
type entry struct {
	key      models.DayKey
	sessions []models.LayoutSession
	cachedAt time.Time
	hitCount int64
	prev     *entry
	next     *entry
}

// Stats is a point-in-time summary of cache contents.
type Stats struct {
	// Size is the number of live day buckets.
	Size int `json:"size"`

	// TotalSessions sums the lengths of all buckets.
	TotalSessions int `json:"totalSessions"`

	// AvgHitCount is the mean hit count across buckets, 0 when empty.
	AvgHitCount float64 `json:"avgHitCount"`

	// OldestEntry is the minimum cachedAt across buckets. Zero when the
	// cache is empty.
	OldestEntry time.Time `json:"oldestEntry"`
}

// MemoryCache maps a DayKey to the laid-out sessions of that calendar day,
// with strict LRU eviction by bucket count and lazy TTL expiry on read.
//
// It follows the doubly-linked-list-plus-map pattern: O(1) get, set, delete
// and eviction. Both reads and writes refresh recency. Expired entries are
// discovered lazily and removed by Get/Has rather than by a background
// sweeper.
//
// Returned session slices are defensive copies; session values inside them
// are shared snapshots and must not be mutated. Safe for concurrent use.
type MemoryCache struct {
	mu    sync.Mutex
	cfg   Config
	items map[models.DayKey]*entry
	head  *entry
	tail  *entry

	// now is swappable for expiry tests.
	now func() time.Time
}

// New creates an empty MemoryCache with the given configuration.
func New(cfg Config) *MemoryCache {
	c := &MemoryCache{
		cfg:   cfg,
		items: make(map[models.DayKey]*entry, cfg.MaxSize),
		head:  &entry{},
		tail:  &entry{},
		now:   time.Now,
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Set writes or overwrites the bucket for key with a snapshot copy of
// sessions, resetting its age and hit count. If key is new and the cache is
// full, the least recently used bucket is evicted before inserting;
// updating an existing key never evicts. The key becomes most recently
// used.
func (c *MemoryCache) Set(key models.DayKey, sessions []models.LayoutSession) {
	snapshot := make([]models.LayoutSession, len(sessions))
	copy(snapshot, sessions)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.items[key]; ok {
		e.sessions = snapshot
		e.cachedAt = c.now()
		e.hitCount = 1
		c.moveToFront(e)
		return
	}

	if len(c.items) >= c.cfg.MaxSize {
		c.evictOldest()
	}

	e := &entry{
		key:      key,
		sessions: snapshot,
		cachedAt: c.now(),
		hitCount: 1,
	}
	c.addToFront(e)
	c.items[key] = e
}

// Get returns a copy of the bucket's sessions. A missing or expired key
// returns (nil, false); an expired entry is removed on discovery and counts
// as a miss. A hit increments the bucket's hit count and refreshes its
// recency.
func (c *MemoryCache) Get(key models.DayKey) ([]models.LayoutSession, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if c.expired(e) {
		c.removeEntry(e)
		return nil, false
	}

	e.hitCount++
	c.moveToFront(e)

	out := make([]models.LayoutSession, len(e.sessions))
	copy(out, e.sessions)
	return out, true
}

// Has reports whether key holds a live bucket. Unlike Get it does not touch
// the hit count or recency, but it shares Get's expiry semantics: an
// expired entry is treated as absent and removed.
func (c *MemoryCache) Has(key models.DayKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return false
	}
	if c.expired(e) {
		c.removeEntry(e)
		return false
	}
	return true
}

// Delete removes the bucket for key. Returns true if anything was removed.
func (c *MemoryCache) Delete(key models.DayKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeEntry(e)
	return true
}

// Clear empties the cache in one step.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[models.DayKey]*entry, c.cfg.MaxSize)
	c.head.next = c.tail
	c.tail.prev = c.head
}

// Stats summarizes the current contents. Expired-but-unread entries still
// count; they are only reaped when touched.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{Size: len(c.items)}
	if s.Size == 0 {
		return s
	}

	var hits int64
	for _, e := range c.items {
		s.TotalSessions += len(e.sessions)
		hits += e.hitCount
		if s.OldestEntry.IsZero() || e.cachedAt.Before(s.OldestEntry) {
			s.OldestEntry = e.cachedAt
		}
	}
	s.AvgHitCount = float64(hits) / float64(s.Size)
	return s
}

// Len returns the number of live buckets.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// AccessOrder returns the bucket keys ordered least recently used first,
// for diagnostics and tests.
func (c *MemoryCache) AccessOrder() []models.DayKey {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]models.DayKey, 0, len(c.items))
	for e := c.tail.prev; e != c.head; e = e.prev {
		keys = append(keys, e.key)
	}
	return keys
}

// Config returns the configuration the cache was built with.
func (c *MemoryCache) Config() Config {
	return c.cfg
}

// Internal methods, called with the lock held.

func (c *MemoryCache) expired(e *entry) bool {
	return c.now().Sub(e.cachedAt) >= c.cfg.MaxAge
}

func (c *MemoryCache) addToFront(e *entry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *MemoryCache) moveToFront(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.addToFront(e)
}

func (c *MemoryCache) removeEntry(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.items, e.key)
}

func (c *MemoryCache) evictOldest() {
	oldest := c.tail.prev
	if oldest == c.head {
		return
	}
	c.removeEntry(oldest)
}
