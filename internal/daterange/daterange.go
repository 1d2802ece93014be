// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

// Package daterange computes the day ranges a calendar view needs: the
// optimal fetch window for a view around a date, batch splitting for
// upstream requests, and gap detection against the cache.
//
// All functions are pure; the calendar view is passed as configuration,
// never held as state.
package daterange

import (
	"fmt"
	"time"

	"github.com/pistachi73/sessioncal/internal/models"
)

// View discriminates the calendar views the UI can render.
type View string

const (
	ViewDay    View = "day"
	ViewWeek   View = "week"
	ViewMonth  View = "month"
	ViewAgenda View = "agenda"
)

// dayPrefetchCap limits day-view prefetch padding to 3 days either side,
// a 7-day window at most, regardless of the configured distance.
const dayPrefetchCap = 3

// agendaWindowDays is the forward-looking span of the agenda view.
const agendaWindowDays = 30

// ParseView validates a view discriminator from user input.
func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case ViewDay, ViewWeek, ViewMonth, ViewAgenda:
		return v, nil
	}
	return "", fmt.Errorf("unknown calendar view %q", s)
}

// Prober is the read-only cache presence check gap detection runs against.
// Satisfied by *cache.MemoryCache.
type Prober interface {
	Has(key models.DayKey) bool
}

// OptimalFetchRange returns the inclusive day range view needs around date,
// padded for prefetch.
//
// Day view is padded by min(prefetchDistance, 3) days either side. Week
// view covers the Monday-Sunday week containing date, expanded by
// prefetchDistance weeks on each side when positive. Month view covers the
// full calendar grid (first of month rounded back to Monday, last of month
// rounded forward to Sunday, a multiple of 7 days); prefetch distance does
// not apply. Agenda view is a fixed forward window from date.
func OptimalFetchRange(date time.Time, view View, prefetchDistance int) models.DateRange {
	day := models.Midnight(date)

	switch view {
	case ViewDay:
		pad := prefetchDistance
		if pad > dayPrefetchCap {
			pad = dayPrefetchCap
		}
		if pad < 0 {
			pad = 0
		}
		return models.NewDateRange(day.AddDate(0, 0, -pad), day.AddDate(0, 0, pad))

	case ViewWeek:
		start := startOfWeek(day)
		end := start.AddDate(0, 0, 6)
		if prefetchDistance > 0 {
			start = start.AddDate(0, 0, -7*prefetchDistance)
			end = end.AddDate(0, 0, 7*prefetchDistance)
		}
		return models.NewDateRange(start, end)

	case ViewMonth:
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
		last := first.AddDate(0, 1, -1)
		start := startOfWeek(first)
		end := last.AddDate(0, 0, 6-weekdayIndex(last))
		// Monday/Sunday alignment already yields a multiple of 7; extend
		// defensively if it ever does not.
		for models.NewDateRange(start, end).Days()%7 != 0 {
			end = end.AddDate(0, 0, 1)
		}
		return models.NewDateRange(start, end)

	default: // ViewAgenda
		return models.NewDateRange(day, day.AddDate(0, 0, agendaWindowDays-1))
	}
}

// SplitIntoBatches splits r into consecutive inclusive sub-ranges of at
// most batchSize days, preserving order; the final batch may be shorter.
// A range fitting one batch is returned unchanged as a single element.
func SplitIntoBatches(r models.DateRange, batchSize int) []models.DateRange {
	if batchSize <= 0 || r.Days() <= batchSize {
		return []models.DateRange{r}
	}

	var batches []models.DateRange
	for start := r.Start; !start.After(r.End); start = start.AddDate(0, 0, batchSize) {
		end := start.AddDate(0, 0, batchSize-1)
		if end.After(r.End) {
			end = r.End
		}
		batches = append(batches, models.DateRange{Start: start, End: end})
	}
	return batches
}

// IsRangeCached reports whether every day of r has a live cache entry.
func IsRangeCached(r models.DateRange, cache Prober) bool {
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		if !cache.Has(models.NewDayKey(d)) {
			return false
		}
	}
	return true
}

// MissingRanges returns the minimal ordered list of maximal contiguous
// sub-ranges of r whose days are absent from the cache. A fully cached
// range yields nil; a fully missing range yields r itself.
func MissingRanges(r models.DateRange, cache Prober) []models.DateRange {
	var missing []models.DateRange
	var runStart time.Time
	inRun := false

	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		if cache.Has(models.NewDayKey(d)) {
			if inRun {
				missing = append(missing, models.DateRange{Start: runStart, End: d.AddDate(0, 0, -1)})
				inRun = false
			}
			continue
		}
		if !inRun {
			runStart = d
			inRun = true
		}
	}
	if inRun {
		missing = append(missing, models.DateRange{Start: runStart, End: r.End})
	}
	return missing
}

// startOfWeek returns the Monday of the week containing day.
func startOfWeek(day time.Time) time.Time {
	return day.AddDate(0, 0, -weekdayIndex(day))
}

// weekdayIndex maps Monday..Sunday to 0..6.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
