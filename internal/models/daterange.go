// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

package models

import (
	"fmt"
	"time"
)

// DateRange is an inclusive range of civil calendar days.
// Start and End are normalized to midnight, Start <= End.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewDateRange builds a normalized inclusive range: both endpoints are
// truncated to midnight and swapped if given out of order.
func NewDateRange(start, end time.Time) DateRange {
	s := Midnight(start)
	e := Midnight(end)
	if e.Before(s) {
		s, e = e, s
	}
	return DateRange{Start: s, End: e}
}

// Midnight truncates t to the start of its civil day, preserving location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Days returns the number of calendar days covered by the range, inclusive.
// A single-day range has length 1.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Contains reports whether the civil day of t falls within the range.
func (r DateRange) Contains(t time.Time) bool {
	d := Midnight(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// EachDay calls fn once per day in the range, in chronological order.
// fn receives the midnight instant of each day.
func (r DateRange) EachDay(fn func(day time.Time)) {
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}

// Signature is the canonical representation of the range used as a
// deduplication key for in-flight fetch tasks. Two requests for the exact
// same day span share one signature.
func (r DateRange) Signature() string {
	return fmt.Sprintf("%s_%s", NewDayKey(r.Start), NewDayKey(r.End))
}

func (r DateRange) String() string {
	return fmt.Sprintf("[%s, %s]", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
}
