// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

// Package layout assigns non-overlapping display columns to time-ranged
// sessions so a calendar renderer can draw them side by side.
//
// The grouper partitions the input into clusters of temporally-overlapping
// sessions using a sweep line over start/end boundaries, then assigns each
// session a zero-based column index and the cluster's total column count.
// Two heaps drive the column assignment: one tracks occupied columns by
// their release time, the other holds freed column indices so the lowest
// available column is always reused first.
package layout

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pistachi73/sessioncal/internal/models"
)

const (
	boundaryEnd = iota
	boundaryStart
)

// boundary is one endpoint of a session's time range.
type boundary struct {
	at   time.Time
	kind int
	idx  int // index into the input slice
}

// occupiedColumn tracks a column holding a session until its end time.
type occupiedColumn struct {
	end time.Time
	col int
}

// Grouper computes display columns for sets of sessions. Results are
// memoized by the content of the input set (session id, start, end), so
// repeated calls with the same sessions, even reordered, return a cached
// layout without re-running the sweep.
//
// Safe for concurrent use.
type Grouper struct {
	mu   sync.Mutex
	memo *memoCache
}

// NewGrouper creates a Grouper whose memo retains at most memoCapacity
// computed layouts, evicting the least recently used beyond that.
func NewGrouper(memoCapacity int) *Grouper {
	return &Grouper{memo: newMemoCache(memoCapacity)}
}

// Group partitions sessions into overlap clusters and assigns columns.
//
// The result preserves chronological start order within and across
// clusters, is deterministic for a given input set, and is independent of
// input order. Callers must treat the returned slice as read-only: it may
// be shared with other callers via the memo.
func (g *Grouper) Group(sessions []models.Session) []models.LayoutSession {
	if len(sessions) == 0 {
		return []models.LayoutSession{}
	}

	key := memoKey(sessions)

	g.mu.Lock()
	if cached, ok := g.memo.get(key); ok {
		g.mu.Unlock()
		return cached
	}
	g.mu.Unlock()

	result := sweep(sessions)

	g.mu.Lock()
	g.memo.put(key, result)
	g.mu.Unlock()

	return result
}

// MemoLen reports the number of memoized layouts, for diagnostics.
func (g *Grouper) MemoLen() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.memo.len()
}

// memoKey canonicalizes a session set as its sorted (id, start, end)
// triples. Keying on content rather than ids alone means an edited session
// (same id, new time range) never resurfaces a stale layout.
func memoKey(sessions []models.Session) string {
	parts := make([]string, len(sessions))
	for i, s := range sessions {
		parts[i] = strconv.FormatInt(s.ID, 10) + ":" +
			strconv.FormatInt(s.Start.UnixNano(), 10) + ":" +
			strconv.FormatInt(s.End.UnixNano(), 10)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// sweep runs the sweep-line pass over session boundaries.
func sweep(sessions []models.Session) []models.LayoutSession {
	boundaries := make([]boundary, 0, 2*len(sessions))
	for i, s := range sessions {
		boundaries = append(boundaries,
			boundary{at: s.Start, kind: boundaryStart, idx: i},
			boundary{at: s.End, kind: boundaryEnd, idx: i},
		)
	}

	// An end boundary at the same instant as a start is processed first, so
	// a session ending exactly when another begins does not overlap it.
	// Same-kind ties break on session id, keeping the sweep independent of
	// input order.
	sort.SliceStable(boundaries, func(a, b int) bool {
		if !boundaries[a].at.Equal(boundaries[b].at) {
			return boundaries[a].at.Before(boundaries[b].at)
		}
		if boundaries[a].kind != boundaries[b].kind {
			return boundaries[a].kind < boundaries[b].kind
		}
		return sessions[boundaries[a].idx].ID < sessions[boundaries[b].idx].ID
	})

	occupied := newMinHeap[occupiedColumn](func(a, b occupiedColumn) bool {
		if !a.end.Equal(b.end) {
			return a.end.Before(b.end)
		}
		return a.col < b.col
	})
	free := newMinHeap[int](func(a, b int) bool { return a < b })

	result := make([]models.LayoutSession, 0, len(sessions))
	active := make(map[int64]struct{}, len(sessions))

	clusterFrom := 0 // first index in result belonging to the open cluster
	maxColumns := 0

	for _, b := range boundaries {
		s := sessions[b.idx]

		switch b.kind {
		case boundaryStart:
			// Release every column whose session ended at or before this
			// instant. Deferring the release to here is what makes the
			// end-before-start tie-break effective.
			for occupied.len() > 0 && !occupied.peek().end.After(b.at) {
				free.push(occupied.pop().col)
			}

			var col int
			if free.len() > 0 {
				col = free.pop()
			} else {
				col = maxColumns
				maxColumns++
			}
			occupied.push(occupiedColumn{end: s.End, col: col})
			active[s.ID] = struct{}{}

			result = append(result, models.LayoutSession{
				Session:     s,
				ColumnIndex: col,
			})

		case boundaryEnd:
			delete(active, s.ID)
		}

		if len(active) == 0 && clusterFrom < len(result) {
			// Cluster finished: patch the final column count onto every
			// session accumulated in it and reset per-cluster state.
			for i := clusterFrom; i < len(result); i++ {
				result[i].TotalColumns = maxColumns
			}
			clusterFrom = len(result)
			maxColumns = 0
			occupied.reset()
			free.reset()
		}
	}

	return result
}
