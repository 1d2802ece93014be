// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

package models

import "time"

// EventType discriminates cache change notifications.
type EventType string

const (
	// EventDayUpdated signals that a day bucket was (re)written from a
	// confirmed fetch.
	EventDayUpdated EventType = "day-updated"

	// EventOptimisticUpdate signals that a day bucket was mutated locally
	// ahead of server confirmation.
	EventOptimisticUpdate EventType = "optimistic-update"

	// EventCacheCleared signals that the entire cache was wiped.
	EventCacheCleared EventType = "cache-cleared"
)

// CacheEvent describes the net effect of one cache mutation performed
// through the coordinator. Every mutation is paired with exactly one event,
// emitted in the order the mutation logically occurred.
//
// Date and Sessions are zero for EventCacheCleared.
type CacheEvent struct {
	Type     EventType       `json:"type"`
	Date     time.Time       `json:"date,omitempty"`
	Sessions []LayoutSession `json:"sessions,omitempty"`
}
