// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

// Package api exposes the cache coordinator over HTTP: synchronous day
// reads, view ensures, optimistic mutations, invalidation, and stats.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/pistachi73/sessioncal/internal/coordinator"
	"github.com/pistachi73/sessioncal/internal/daterange"
	"github.com/pistachi73/sessioncal/internal/models"
)

// dateFormat is the wire format for calendar dates in paths and queries.
const dateFormat = "2006-01-02"

// Handler carries the API's dependencies.
type Handler struct {
	coord     *coordinator.Coordinator
	startTime time.Time
}

// NewHandler creates the API handler around a coordinator.
func NewHandler(coord *coordinator.Coordinator) *Handler {
	return &Handler{
		coord:     coord,
		startTime: time.Now(),
	}
}

// ensureRequest is the body of POST /api/v1/ensure.
type ensureRequest struct {
	Date         string `json:"date"`
	View         string `json:"view"`
	Force        bool   `json:"force"`
	SkipPrefetch bool   `json:"skipPrefetch"`
}

// optimisticRequest is the body of POST /api/v1/days/{date}/optimistic.
type optimisticRequest struct {
	Op      string         `json:"op"`
	Session models.Session `json:"session"`
}

// GetDaySessions handles GET /api/v1/days/{date}/sessions.
// It is a synchronous cache read: a miss yields an empty list, never a
// fetch.
func (h *Handler) GetDaySessions(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(dateFormat, chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DATE", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":     date.Format(dateFormat),
		"sessions": h.coord.GetDaySessions(date),
	})
}

// EnsureData handles POST /api/v1/ensure: it guarantees the cache covers
// the requested view around the date, fetching missing ranges.
func (h *Handler) EnsureData(w http.ResponseWriter, r *http.Request) {
	var req ensureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	date, err := time.Parse(dateFormat, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DATE", err.Error())
		return
	}
	view, err := daterange.ParseView(req.View)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_VIEW", err.Error())
		return
	}

	opts := coordinator.EnsureOptions{Force: req.Force, SkipPrefetch: req.SkipPrefetch}
	if err := h.coord.EnsureDataForView(r.Context(), date, view, opts); err != nil {
		writeError(w, http.StatusBadGateway, "FETCH_FAILED", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// OptimisticUpdate handles POST /api/v1/days/{date}/optimistic: a local
// create/update/delete applied ahead of server confirmation.
func (h *Handler) OptimisticUpdate(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(dateFormat, chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DATE", err.Error())
		return
	}

	var req optimisticRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}

	if err := h.coord.OptimisticUpdate(date, coordinator.Operation(req.Op), req.Session); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_OPERATION", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":     date.Format(dateFormat),
		"sessions": h.coord.GetDaySessions(date),
	})
}

// InvalidateRange handles DELETE /api/v1/sessions?from=...&to=...: it
// drops every day bucket in the inclusive range without refetching.
func (h *Handler) InvalidateRange(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(dateFormat, r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_RANGE", fmt.Sprintf("from: %v", err))
		return
	}
	to, err := time.Parse(dateFormat, r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_RANGE", fmt.Sprintf("to: %v", err))
		return
	}

	h.coord.InvalidateRange(models.NewDateRange(from, to))
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// ClearCache handles DELETE /api/v1/cache.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.coord.Clear()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// GetStats handles GET /api/v1/stats.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.coord.Stats())
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.startTime).String(),
	})
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
