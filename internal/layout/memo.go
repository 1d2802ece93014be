// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

package layout

import "github.com/pistachi73/sessioncal/internal/models"

// memoEntry is a node in the memo's doubly-linked recency list.
type memoEntry struct {
	key    string
	layout []models.LayoutSession
	prev   *memoEntry
	next   *memoEntry
}

// memoCache is a bounded LRU of computed layouts. It uses a doubly-linked
// list for ordering and a map for O(1) lookup; head.next is the most
// recently used, tail.prev the least. Callers hold the grouper's lock.
type memoCache struct {
	capacity int
	items    map[string]*memoEntry
	head     *memoEntry
	tail     *memoEntry
}

func newMemoCache(capacity int) *memoCache {
	if capacity <= 0 {
		capacity = 256
	}
	c := &memoCache{
		capacity: capacity,
		items:    make(map[string]*memoEntry, capacity),
		head:     &memoEntry{},
		tail:     &memoEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

func (c *memoCache) get(key string) ([]models.LayoutSession, bool) {
	entry, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(entry)
	return entry.layout, true
}

func (c *memoCache) put(key string, layout []models.LayoutSession) {
	if entry, ok := c.items[key]; ok {
		entry.layout = layout
		c.moveToFront(entry)
		return
	}

	entry := &memoEntry{key: key, layout: layout}
	c.addToFront(entry)
	c.items[key] = entry

	for len(c.items) > c.capacity {
		oldest := c.tail.prev
		if oldest == c.head {
			break
		}
		c.remove(oldest)
	}
}

func (c *memoCache) len() int { return len(c.items) }

func (c *memoCache) addToFront(entry *memoEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *memoCache) moveToFront(entry *memoEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *memoCache) remove(entry *memoEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}
