// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

package daterange

import (
	"testing"
	"time"

	"github.com/pistachi73/sessioncal/internal/models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fakeProber is a set-backed cache presence probe.
type fakeProber map[models.DayKey]bool

func (p fakeProber) Has(key models.DayKey) bool { return p[key] }

func proberWithDays(days ...time.Time) fakeProber {
	p := make(fakeProber)
	for _, d := range days {
		p[models.NewDayKey(d)] = true
	}
	return p
}

func TestParseView(t *testing.T) {
	for _, s := range []string{"day", "week", "month", "agenda"} {
		if _, err := ParseView(s); err != nil {
			t.Errorf("ParseView(%q): unexpected error %v", s, err)
		}
	}
	if _, err := ParseView("fortnight"); err == nil {
		t.Error("Expected error for unknown view")
	}
}

func TestOptimalFetchRange_Day(t *testing.T) {
	tests := []struct {
		name             string
		prefetchDistance int
		wantStart        time.Time
		wantEnd          time.Time
	}{
		{"distance 3", 3, date(2024, 6, 12), date(2024, 6, 18)},
		{"distance over cap", 10, date(2024, 6, 12), date(2024, 6, 18)},
		{"distance 1", 1, date(2024, 6, 14), date(2024, 6, 16)},
		{"distance 0", 0, date(2024, 6, 15), date(2024, 6, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := OptimalFetchRange(date(2024, 6, 15), ViewDay, tt.prefetchDistance)
			if !r.Start.Equal(tt.wantStart) || !r.End.Equal(tt.wantEnd) {
				t.Errorf("Expected [%v, %v], got %v", tt.wantStart, tt.wantEnd, r)
			}
		})
	}
}

func TestOptimalFetchRange_Week(t *testing.T) {
	// 2024-06-15 is a Saturday; its week runs Monday 06-10 to Sunday 06-16.
	r := OptimalFetchRange(date(2024, 6, 15), ViewWeek, 0)
	if !r.Start.Equal(date(2024, 6, 10)) || !r.End.Equal(date(2024, 6, 16)) {
		t.Errorf("Expected [2024-06-10, 2024-06-16], got %v", r)
	}

	r = OptimalFetchRange(date(2024, 6, 15), ViewWeek, 1)
	if !r.Start.Equal(date(2024, 6, 3)) || !r.End.Equal(date(2024, 6, 23)) {
		t.Errorf("Expected [2024-06-03, 2024-06-23], got %v", r)
	}

	// A Monday stays the start of its own week.
	r = OptimalFetchRange(date(2024, 6, 10), ViewWeek, 0)
	if !r.Start.Equal(date(2024, 6, 10)) {
		t.Errorf("Expected Monday to anchor its week, got %v", r)
	}
}

func TestOptimalFetchRange_Month(t *testing.T) {
	// June 2024 starts Saturday and ends Sunday: the grid runs from Monday
	// May 27 through Sunday June 30, exactly five weeks.
	r := OptimalFetchRange(date(2024, 6, 15), ViewMonth, 5)
	if !r.Start.Equal(date(2024, 5, 27)) || !r.End.Equal(date(2024, 6, 30)) {
		t.Errorf("Expected [2024-05-27, 2024-06-30], got %v", r)
	}
	if r.Days()%7 != 0 {
		t.Errorf("Month grid must span a multiple of 7 days, got %d", r.Days())
	}

	// February 2024 (leap year, starts Thursday).
	r = OptimalFetchRange(date(2024, 2, 10), ViewMonth, 0)
	if !r.Start.Equal(date(2024, 1, 29)) || !r.End.Equal(date(2024, 3, 3)) {
		t.Errorf("Expected [2024-01-29, 2024-03-03], got %v", r)
	}
	if r.Days()%7 != 0 {
		t.Errorf("Month grid must span a multiple of 7 days, got %d", r.Days())
	}
}

func TestOptimalFetchRange_Agenda(t *testing.T) {
	r := OptimalFetchRange(date(2024, 6, 15), ViewAgenda, 2)
	if !r.Start.Equal(date(2024, 6, 15)) {
		t.Errorf("Expected agenda to start at the given date, got %v", r.Start)
	}
	if r.Days() != 30 {
		t.Errorf("Expected 30-day agenda window, got %d days", r.Days())
	}
}

func TestSplitIntoBatches(t *testing.T) {
	r := models.NewDateRange(date(2024, 6, 1), date(2024, 6, 10)) // 10 days

	batches := SplitIntoBatches(r, 4)
	if len(batches) != 3 {
		t.Fatalf("Expected 3 batches, got %d", len(batches))
	}

	wantDays := []int{4, 4, 2}
	for i, b := range batches {
		if b.Days() != wantDays[i] {
			t.Errorf("Batch %d: expected %d days, got %d", i, wantDays[i], b.Days())
		}
	}
	if !batches[0].Start.Equal(r.Start) || !batches[2].End.Equal(r.End) {
		t.Error("Batches must cover the full range in order")
	}
	if !batches[1].Start.Equal(batches[0].End.AddDate(0, 0, 1)) {
		t.Error("Batches must be consecutive")
	}
}

func TestSplitIntoBatches_SingleBatch(t *testing.T) {
	r := models.NewDateRange(date(2024, 6, 1), date(2024, 6, 3))

	batches := SplitIntoBatches(r, 7)
	if len(batches) != 1 {
		t.Fatalf("Expected 1 batch, got %d", len(batches))
	}
	if batches[0] != r {
		t.Errorf("Expected range returned unchanged, got %v", batches[0])
	}
}

func TestIsRangeCached(t *testing.T) {
	p := proberWithDays(date(2024, 6, 10), date(2024, 6, 11), date(2024, 6, 12))

	if !IsRangeCached(models.NewDateRange(date(2024, 6, 10), date(2024, 6, 12)), p) {
		t.Error("Expected fully cached range to report cached")
	}
	if IsRangeCached(models.NewDateRange(date(2024, 6, 10), date(2024, 6, 13)), p) {
		t.Error("Expected range with a missing day to report not cached")
	}
}

func TestMissingRanges(t *testing.T) {
	// Cache holds days 10-12; querying 10-14 leaves exactly {13, 14}.
	p := proberWithDays(date(2024, 6, 10), date(2024, 6, 11), date(2024, 6, 12))

	missing := MissingRanges(models.NewDateRange(date(2024, 6, 10), date(2024, 6, 14)), p)
	if len(missing) != 1 {
		t.Fatalf("Expected 1 missing range, got %d", len(missing))
	}
	if !missing[0].Start.Equal(date(2024, 6, 13)) || !missing[0].End.Equal(date(2024, 6, 14)) {
		t.Errorf("Expected [2024-06-13, 2024-06-14], got %v", missing[0])
	}
}

func TestMissingRanges_FullyCached(t *testing.T) {
	p := proberWithDays(date(2024, 6, 10), date(2024, 6, 11))

	missing := MissingRanges(models.NewDateRange(date(2024, 6, 10), date(2024, 6, 11)), p)
	if len(missing) != 0 {
		t.Errorf("Expected no missing ranges, got %v", missing)
	}
}

func TestMissingRanges_FullyMissing(t *testing.T) {
	r := models.NewDateRange(date(2024, 6, 10), date(2024, 6, 14))

	missing := MissingRanges(r, fakeProber{})
	if len(missing) != 1 || missing[0] != r {
		t.Errorf("Expected the input range back, got %v", missing)
	}
}

func TestMissingRanges_MultipleGaps(t *testing.T) {
	p := proberWithDays(date(2024, 6, 11), date(2024, 6, 13))

	missing := MissingRanges(models.NewDateRange(date(2024, 6, 10), date(2024, 6, 14)), p)
	if len(missing) != 3 {
		t.Fatalf("Expected 3 gaps, got %d: %v", len(missing), missing)
	}
	for i, want := range []time.Time{date(2024, 6, 10), date(2024, 6, 12), date(2024, 6, 14)} {
		if !missing[i].Start.Equal(want) || !missing[i].End.Equal(want) {
			t.Errorf("Gap %d: expected single day %v, got %v", i, want, missing[i])
		}
	}
}
