// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

// Package metrics exposes Prometheus instrumentation for the calendar
// cache engine: upstream fetch latency and failures, prefetch activity,
// cache occupancy, and event fan-out.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Upstream fetch metrics

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sessioncal_fetch_duration_seconds",
			Help:    "Duration of upstream session fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessioncal_fetches_total",
			Help: "Total number of upstream session fetches",
		},
		[]string{"outcome"}, // "success", "error"
	)

	FetchesDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessioncal_fetches_deduplicated_total",
			Help: "Total number of fetch calls that joined an in-flight request instead of issuing their own",
		},
	)

	InflightFetches = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessioncal_inflight_fetches",
			Help: "Current number of in-flight upstream fetch signatures",
		},
	)

	// Prefetch metrics

	PrefetchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessioncal_prefetches_total",
			Help: "Total number of background prefetch operations started",
		},
	)

	PrefetchesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessioncal_prefetches_skipped_total",
			Help: "Total number of prefetches skipped because the range was queued or cached",
		},
	)

	PrefetchErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessioncal_prefetch_errors_total",
			Help: "Total number of absorbed background prefetch failures",
		},
	)

	// Cache metrics

	CacheDayBuckets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessioncal_cache_day_buckets",
			Help: "Current number of live day buckets in the memory cache",
		},
	)

	CacheSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessioncal_cache_sessions",
			Help: "Current total number of sessions held across all day buckets",
		},
	)

	// Event metrics

	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sessioncal_events_emitted_total",
			Help: "Total number of cache change events emitted",
		},
		[]string{"type"}, // "day-updated", "optimistic-update", "cache-cleared"
	)

	ListenerPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sessioncal_listener_panics_total",
			Help: "Total number of listener panics absorbed during event emission",
		},
	)

	// HTTP metrics

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sessioncal_http_request_duration_seconds",
			Help:    "Duration of HTTP API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// HTTPTimer measures a single HTTP request for HTTPRequestDuration.
type HTTPTimer struct {
	start time.Time
}

// NewHTTPTimer starts timing an HTTP request.
func NewHTTPTimer() *HTTPTimer {
	return &HTTPTimer{start: time.Now()}
}

// Observe records the elapsed time under the given labels.
func (t *HTTPTimer) Observe(method, route, status string) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(time.Since(t.start).Seconds())
}

// ObserveFetch records one upstream fetch with its duration and outcome.
func ObserveFetch(d time.Duration, err error) {
	FetchDuration.Observe(d.Seconds())
	if err != nil {
		FetchesTotal.WithLabelValues("error").Inc()
		return
	}
	FetchesTotal.WithLabelValues("success").Inc()
}
