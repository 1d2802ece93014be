// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

package models

import (
	"fmt"
	"time"
)

// DayKey uniquely identifies one civil calendar day. It is the sole key
// space of the memory cache: two sessions whose start instants fall on the
// same local calendar day share one DayKey bucket.
//
// Format: "{year}-{month}-{day}", month 1-based, no zero padding
// (e.g. "2024-6-15").
type DayKey string

// NewDayKey derives the DayKey for the civil day containing t,
// in t's location.
func NewDayKey(t time.Time) DayKey {
	y, m, d := t.Date()
	return DayKey(fmt.Sprintf("%d-%d-%d", y, int(m), d))
}

// Time reconstructs the midnight instant of the key's day in loc.
// Returns an error for keys that do not parse as a calendar day.
func (k DayKey) Time(loc *time.Location) (time.Time, error) {
	var y, m, d int
	if _, err := fmt.Sscanf(string(k), "%d-%d-%d", &y, &m, &d); err != nil {
		return time.Time{}, fmt.Errorf("malformed day key %q: %w", k, err)
	}
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc), nil
}
