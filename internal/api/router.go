// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pistachi73/sessioncal/internal/metrics"
)

// NewRouter builds the HTTP surface: the versioned API, health, metrics,
// and an optional websocket endpoint for cache event streaming.
func NewRouter(h *Handler, ws http.HandlerFunc) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/days/{date}/sessions", h.GetDaySessions)
		r.Post("/days/{date}/optimistic", h.OptimisticUpdate)
		r.Post("/ensure", h.EnsureData)
		r.Delete("/sessions", h.InvalidateRange)
		r.Delete("/cache", h.ClearCache)
		r.Get("/stats", h.GetStats)
	})

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	if ws != nil {
		r.Get("/ws", ws)
	}

	return r
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// metricsMiddleware records per-route request durations using the chi
// route pattern, so path parameters do not explode label cardinality.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		timer := metrics.NewHTTPTimer()
		next.ServeHTTP(sr, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		timer.Observe(r.Method, route, strconv.Itoa(sr.status))
	})
}
