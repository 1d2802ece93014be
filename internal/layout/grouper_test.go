// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

package layout

import (
	"testing"
	"time"

	"github.com/pistachi73/sessioncal/internal/models"
)

var base = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

// sess builds a session running from base+startMin to base+endMin.
func sess(id int64, startMin, endMin int) models.Session {
	return models.Session{
		ID:    id,
		Start: base.Add(time.Duration(startMin) * time.Minute),
		End:   base.Add(time.Duration(endMin) * time.Minute),
	}
}

func TestGroup_Empty(t *testing.T) {
	g := NewGrouper(16)
	out := g.Group(nil)
	if len(out) != 0 {
		t.Errorf("Expected empty output, got %d sessions", len(out))
	}
}

func TestGroup_SingleSession(t *testing.T) {
	g := NewGrouper(16)
	out := g.Group([]models.Session{sess(1, 540, 600)})

	if len(out) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(out))
	}
	if out[0].ColumnIndex != 0 {
		t.Errorf("Expected column 0, got %d", out[0].ColumnIndex)
	}
	if out[0].TotalColumns != 1 {
		t.Errorf("Expected 1 total column, got %d", out[0].TotalColumns)
	}
}

func TestGroup_NonOverlappingAllColumnZero(t *testing.T) {
	g := NewGrouper(16)
	input := []models.Session{
		sess(1, 540, 600),  // 9:00-10:00
		sess(2, 610, 670),  // 10:10-11:10
		sess(3, 700, 760),  // 11:40-12:40
		sess(4, 800, 1000), // 13:20-16:40
	}

	out := g.Group(input)
	if len(out) != len(input) {
		t.Fatalf("Expected %d sessions, got %d", len(input), len(out))
	}
	for _, s := range out {
		if s.ColumnIndex != 0 || s.TotalColumns != 1 {
			t.Errorf("Session %d: expected col 0/1, got %d/%d", s.ID, s.ColumnIndex, s.TotalColumns)
		}
	}
}

func TestGroup_TouchingSessionsDoNotOverlap(t *testing.T) {
	g := NewGrouper(16)
	// A ends exactly when B starts; the end boundary is processed before the
	// start boundary so they must land in separate clusters.
	out := g.Group([]models.Session{
		sess(1, 540, 600), // 9:00-10:00
		sess(2, 600, 660), // 10:00-11:00
	})

	for _, s := range out {
		if s.ColumnIndex != 0 {
			t.Errorf("Session %d: expected column 0, got %d", s.ID, s.ColumnIndex)
		}
		if s.TotalColumns != 1 {
			t.Errorf("Session %d: expected 1 total column, got %d", s.ID, s.TotalColumns)
		}
	}
}

func TestGroup_OverlappingPair(t *testing.T) {
	g := NewGrouper(16)
	out := g.Group([]models.Session{
		sess(1, 540, 600), // 9:00-10:00
		sess(2, 570, 630), // 9:30-10:30
	})

	if len(out) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(out))
	}
	for _, s := range out {
		if s.TotalColumns != 2 {
			t.Errorf("Session %d: expected 2 total columns, got %d", s.ID, s.TotalColumns)
		}
	}
	if out[0].ColumnIndex == out[1].ColumnIndex {
		t.Errorf("Overlapping sessions share column %d", out[0].ColumnIndex)
	}
}

func TestGroup_ColumnReuse(t *testing.T) {
	g := NewGrouper(16)
	// A occupies column 0 until 10:00, B column 1 until 11:00. C starts at
	// 10:00 and must reuse the freed column 0, keeping the cluster at two
	// columns total.
	out := g.Group([]models.Session{
		sess(1, 540, 600), // A 9:00-10:00
		sess(2, 540, 660), // B 9:00-11:00
		sess(3, 600, 630), // C 10:00-10:30
	})

	byID := make(map[int64]models.LayoutSession)
	for _, s := range out {
		byID[s.ID] = s
	}

	if byID[3].ColumnIndex != 0 {
		t.Errorf("Expected C to reuse column 0, got %d", byID[3].ColumnIndex)
	}
	for id, s := range byID {
		if s.TotalColumns != 2 {
			t.Errorf("Session %d: expected 2 total columns, got %d", id, s.TotalColumns)
		}
	}
}

func TestGroup_TripleOverlap(t *testing.T) {
	g := NewGrouper(16)
	out := g.Group([]models.Session{
		sess(1, 540, 660),
		sess(2, 560, 680),
		sess(3, 580, 700),
	})

	cols := make(map[int]bool)
	for _, s := range out {
		if s.TotalColumns != 3 {
			t.Errorf("Session %d: expected 3 total columns, got %d", s.ID, s.TotalColumns)
		}
		cols[s.ColumnIndex] = true
	}
	for c := 0; c < 3; c++ {
		if !cols[c] {
			t.Errorf("Expected column %d to be assigned", c)
		}
	}
}

func TestGroup_InvariantsHold(t *testing.T) {
	g := NewGrouper(16)
	input := []models.Session{
		sess(1, 0, 120),
		sess(2, 60, 180),
		sess(3, 120, 240), // touches 2's end region but overlaps it
		sess(4, 300, 360),
		sess(5, 300, 330),
		sess(6, 320, 400),
		sess(7, 500, 560),
	}

	out := g.Group(input)
	if len(out) != len(input) {
		t.Fatalf("Expected %d sessions out, got %d", len(input), len(out))
	}
	for _, s := range out {
		if s.ColumnIndex < 0 || s.ColumnIndex >= s.TotalColumns {
			t.Errorf("Session %d: column %d out of range [0, %d)", s.ID, s.ColumnIndex, s.TotalColumns)
		}
	}

	// Output preserves chronological start order.
	for i := 1; i < len(out); i++ {
		if out[i].Start.Before(out[i-1].Start) {
			t.Errorf("Output not in chronological start order at index %d", i)
		}
	}
}

func TestGroup_OrderIndependent(t *testing.T) {
	input := []models.Session{
		sess(1, 540, 600),
		sess(2, 570, 630),
		sess(3, 620, 680),
		sess(4, 900, 960),
	}
	reversed := make([]models.Session, len(input))
	for i, s := range input {
		reversed[len(input)-1-i] = s
	}

	a := NewGrouper(16).Group(input)
	b := NewGrouper(16).Group(reversed)

	layoutOf := func(out []models.LayoutSession) map[int64][2]int {
		m := make(map[int64][2]int)
		for _, s := range out {
			m[s.ID] = [2]int{s.ColumnIndex, s.TotalColumns}
		}
		return m
	}

	la, lb := layoutOf(a), layoutOf(b)
	for id, want := range la {
		if got, ok := lb[id]; !ok || got != want {
			t.Errorf("Session %d: layout differs across input orders: %v vs %v", id, want, got)
		}
	}
}

func TestGroup_MemoizesByContent(t *testing.T) {
	g := NewGrouper(16)
	input := []models.Session{sess(1, 540, 600), sess(2, 570, 630)}

	first := g.Group(input)
	reordered := []models.Session{input[1], input[0]}
	second := g.Group(reordered)

	if g.MemoLen() != 1 {
		t.Errorf("Expected 1 memo entry after reordered call, got %d", g.MemoLen())
	}
	if len(first) != len(second) {
		t.Fatalf("Memoized result length mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].ColumnIndex != second[i].ColumnIndex {
			t.Errorf("Memoized result differs at index %d", i)
		}
	}
}

func TestGroup_ContentChangeInvalidatesMemo(t *testing.T) {
	g := NewGrouper(16)
	a := sess(1, 540, 600)
	b := sess(2, 570, 630)

	out := g.Group([]models.Session{a, b})
	if out[0].TotalColumns != 2 {
		t.Fatalf("Expected overlap before edit, got %d columns", out[0].TotalColumns)
	}

	// Same ids, new time range for b: no longer overlapping. A content-keyed
	// memo must recompute rather than serve the stale two-column layout.
	b2 := sess(2, 700, 760)
	out = g.Group([]models.Session{a, b2})
	for _, s := range out {
		if s.TotalColumns != 1 {
			t.Errorf("Session %d: expected recomputed single column, got %d", s.ID, s.TotalColumns)
		}
	}
	if g.MemoLen() != 2 {
		t.Errorf("Expected 2 memo entries, got %d", g.MemoLen())
	}
}

func TestGroup_MemoEvictsBeyondCapacity(t *testing.T) {
	g := NewGrouper(2)
	g.Group([]models.Session{sess(1, 0, 10)})
	g.Group([]models.Session{sess(2, 0, 10)})
	g.Group([]models.Session{sess(3, 0, 10)})

	if g.MemoLen() != 2 {
		t.Errorf("Expected memo capped at 2 entries, got %d", g.MemoLen())
	}
}

func TestGroup_MultipleClustersConservation(t *testing.T) {
	g := NewGrouper(16)
	input := []models.Session{
		sess(1, 0, 60), sess(2, 30, 90), // cluster 1
		sess(3, 200, 260),                  // cluster 2
		sess(4, 400, 460), sess(5, 420, 480), sess(6, 440, 500), // cluster 3
	}

	out := g.Group(input)
	if len(out) != len(input) {
		t.Fatalf("Cluster sizes do not sum to input size: %d != %d", len(out), len(input))
	}

	totals := make(map[int64]int)
	for _, s := range out {
		totals[s.ID] = s.TotalColumns
	}
	if totals[1] != 2 || totals[2] != 2 {
		t.Errorf("Cluster 1: expected 2 columns, got %d/%d", totals[1], totals[2])
	}
	if totals[3] != 1 {
		t.Errorf("Cluster 2: expected 1 column, got %d", totals[3])
	}
	if totals[4] != 3 || totals[5] != 3 || totals[6] != 3 {
		t.Errorf("Cluster 3: expected 3 columns, got %d/%d/%d", totals[4], totals[5], totals[6])
	}
}
