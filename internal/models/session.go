// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

// Package models defines the core data types shared across the calendar
// cache-and-layout engine: sessions, day keys, date ranges, and cache events.
package models

import "time"

// Hub is the owning group a session belongs to (a tutoring hub).
// The display color is used by the renderer to tint the session block.
type Hub struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Participant is a lightweight summary of one session attendee.
type Participant struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Session is a scheduled occurrence supplied by the remote data source.
//
// Sessions are immutable snapshots: the cache layer never mutates a
// session's identity or time range in place. Any change is represented by a
// whole replacement Session written through the coordinator.
type Session struct {
	ID           int64         `json:"id"`
	Start        time.Time     `json:"start"`
	End          time.Time     `json:"end"`
	Hub          Hub           `json:"hub"`
	Participants []Participant `json:"participants,omitempty"`
}

// LayoutSession is a Session decorated with its computed horizontal slot.
//
// ColumnIndex and TotalColumns are derived, transient attributes: they are
// recomputed on every grouping pass and have no meaning outside a single
// grouping computation.
type LayoutSession struct {
	Session
	ColumnIndex  int `json:"columnIndex"`
	TotalColumns int `json:"totalColumns"`
}
