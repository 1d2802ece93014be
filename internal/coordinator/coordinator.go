// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

// Package coordinator orchestrates the calendar session cache: it decides
// which date ranges to fetch for a view, deduplicates in-flight requests,
// prefetches adjacent ranges in the background, applies optimistic local
// mutations, and fans change events out to subscribers.
//
// One Coordinator exclusively owns one MemoryCache; nothing else writes to
// it. There is no package-level instance: construct one per application
// scope and tear it down with Close.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/pistachi73/sessioncal/internal/cache"
	"github.com/pistachi73/sessioncal/internal/daterange"
	"github.com/pistachi73/sessioncal/internal/layout"
	"github.com/pistachi73/sessioncal/internal/logging"
	"github.com/pistachi73/sessioncal/internal/metrics"
	"github.com/pistachi73/sessioncal/internal/models"
)

// ErrClosed is returned by operations invoked after Close.
var ErrClosed = errors.New("coordinator is closed")

// Fetcher is the external data-fetch collaborator. It returns the sessions
// whose start instant falls within the inclusive day range, pre-filtered
// for the caller's visibility.
type Fetcher interface {
	FetchSessions(ctx context.Context, r models.DateRange) ([]models.Session, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, r models.DateRange) ([]models.Session, error)

// FetchSessions implements Fetcher.
func (f FetcherFunc) FetchSessions(ctx context.Context, r models.DateRange) ([]models.Session, error) {
	return f(ctx, r)
}

// Listener receives cache change events. See Subscribe.
type Listener func(models.CacheEvent)

// Operation discriminates optimistic local mutations.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// EnsureOptions tunes one EnsureDataForView call.
type EnsureOptions struct {
	// Force treats the whole computed range as missing, refetching even
	// cached days.
	Force bool

	// SkipPrefetch suppresses the background adjacent-range prefetch that
	// normally follows a fetch.
	SkipPrefetch bool
}

// Config holds coordinator construction parameters.
type Config struct {
	// Cache configures the owned MemoryCache.
	Cache cache.Config

	// LayoutMemoSize bounds the column-layout memo.
	LayoutMemoSize int
}

// Stats is a point-in-time snapshot of coordinator state.
type Stats struct {
	Memory         cache.Stats `json:"memory"`
	ActiveRequests int         `json:"activeRequests"`
	PrefetchQueue  int         `json:"prefetchQueue"`
}

// fetchTask is one in-flight fetch shared by every caller requesting the
// same range signature. err is written before done is closed.
type fetchTask struct {
	done chan struct{}
	err  error
}

// registration pairs a listener with its subscription id so unsubscribe
// removes exactly the right entry.
type registration struct {
	id int
	fn Listener
}

// Coordinator owns the memory cache and mediates every read and write the
// UI layer performs against it.
//
// Synchronous operations (GetDaySessions, OptimisticUpdate, InvalidateRange,
// Clear, Stats) never block on the network. EnsureDataForView and the
// prefetch path suspend only at the Fetcher boundary; the coordinator's
// mutex is never held across a fetch.
type Coordinator struct {
	cfg     Config
	fetcher Fetcher
	cache   *cache.MemoryCache
	grouper *layout.Grouper
	log     zerolog.Logger

	mu          sync.Mutex
	inflight    map[string]*fetchTask
	prefetching map[string]struct{}
	listeners   []registration
	nextID      int
	closed      bool

	prefetchWG sync.WaitGroup
}

// New creates a Coordinator with its own MemoryCache and layout grouper.
func New(cfg Config, fetcher Fetcher) *Coordinator {
	return &Coordinator{
		cfg:         cfg,
		fetcher:     fetcher,
		cache:       cache.New(cfg.Cache),
		grouper:     layout.NewGrouper(cfg.LayoutMemoSize),
		log:         logging.With().Str("component", "coordinator").Logger(),
		inflight:    make(map[string]*fetchTask),
		prefetching: make(map[string]struct{}),
	}
}

// Close tears the coordinator down: subsequent mutations fail with
// ErrClosed, listeners are dropped, and Close blocks until background
// prefetch goroutines finish.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.listeners = nil
	c.mu.Unlock()

	c.prefetchWG.Wait()
}

// EnsureDataForView guarantees the cache holds every day the given view
// needs around date, fetching any missing sub-ranges in batches.
//
// When the full computed range is already cached this returns immediately
// without fetching or emitting anything. Concurrent calls covering an
// identical batch signature share one underlying fetch. On success each
// fetched day bucket is laid out, written to the cache, and announced with
// one day-updated event, in chronological day order per batch.
//
// A fetch failure is returned to the caller; this path is not best-effort.
// Unless opts.SkipPrefetch, a successful fetch is followed by a
// fire-and-forget prefetch of the adjacent ranges.
func (c *Coordinator) EnsureDataForView(ctx context.Context, date time.Time, view daterange.View, opts EnsureOptions) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	r := daterange.OptimalFetchRange(date, view, c.cfg.Cache.PrefetchDistance)

	var missing []models.DateRange
	if opts.Force {
		missing = []models.DateRange{r}
	} else {
		missing = daterange.MissingRanges(r, c.cache)
	}

	if len(missing) == 0 {
		return nil
	}

	for _, m := range missing {
		for _, batch := range daterange.SplitIntoBatches(m, c.cfg.Cache.BatchSize) {
			if err := c.fetchBatch(ctx, batch); err != nil {
				return err
			}
		}
	}

	if !opts.SkipPrefetch {
		c.PrefetchAdjacentData(context.WithoutCancel(ctx), date, view)
	}
	return nil
}

// fetchBatch fetches one batch range, joining an identical in-flight fetch
// when one exists. The owning call applies results and emits events; every
// joiner observes the same error value.
func (c *Coordinator) fetchBatch(ctx context.Context, r models.DateRange) error {
	sig := r.Signature()

	c.mu.Lock()
	if task, ok := c.inflight[sig]; ok {
		c.mu.Unlock()
		metrics.FetchesDeduplicated.Inc()
		select {
		case <-task.done:
			return task.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	task := &fetchTask{done: make(chan struct{})}
	c.inflight[sig] = task
	c.mu.Unlock()
	metrics.InflightFetches.Inc()

	start := time.Now()
	sessions, err := c.fetcher.FetchSessions(ctx, r)
	metrics.ObserveFetch(time.Since(start), err)

	if err != nil {
		err = fmt.Errorf("fetch %s: %w", r, err)
		c.log.Error().Err(err).Str("range", sig).Msg("session fetch failed")
	} else {
		c.applyFetched(r, sessions)
	}

	c.mu.Lock()
	delete(c.inflight, sig)
	c.mu.Unlock()
	metrics.InflightFetches.Dec()

	task.err = err
	close(task.done)
	return err
}

// applyFetched buckets fetched sessions by their start day, lays out each
// bucket, writes it, and emits one day-updated event per day in
// chronological order. Every day of the fetched range is written, including
// days with no sessions, so gap detection treats the range as covered.
func (c *Coordinator) applyFetched(r models.DateRange, sessions []models.Session) {
	byDay := make(map[models.DayKey][]models.Session)
	for _, s := range sessions {
		key := models.NewDayKey(s.Start)
		byDay[key] = append(byDay[key], s)
	}

	r.EachDay(func(day time.Time) {
		key := models.NewDayKey(day)
		laid := c.grouper.Group(byDay[key])
		c.cache.Set(key, laid)
		c.emit(models.CacheEvent{
			Type:     models.EventDayUpdated,
			Date:     day,
			Sessions: laid,
		})
	})
}

// PrefetchAdjacentData warms the ranges a user is most likely to navigate
// to next: the windows immediately before and after the view's optimal
// range for day view, the adjacent weeks for week view. Month view is a
// no-op (its single fetch already covers the full grid), as is agenda.
//
// Each candidate range is skipped when already queued for prefetch or fully
// cached. Fetching happens in background goroutines; failures are logged
// and absorbed, never surfaced, so prefetch cannot destabilize the
// foreground.
func (c *Coordinator) PrefetchAdjacentData(ctx context.Context, date time.Time, view daterange.View) {
	r := daterange.OptimalFetchRange(date, view, c.cfg.Cache.PrefetchDistance)

	var candidates []models.DateRange
	switch view {
	case daterange.ViewDay:
		width := r.Days()
		candidates = []models.DateRange{
			models.NewDateRange(r.Start.AddDate(0, 0, -width), r.Start.AddDate(0, 0, -1)),
			models.NewDateRange(r.End.AddDate(0, 0, 1), r.End.AddDate(0, 0, width)),
		}
	case daterange.ViewWeek:
		candidates = []models.DateRange{
			models.NewDateRange(r.Start.AddDate(0, 0, -7), r.Start.AddDate(0, 0, -1)),
			models.NewDateRange(r.End.AddDate(0, 0, 1), r.End.AddDate(0, 0, 7)),
		}
	default:
		return
	}

	for _, candidate := range candidates {
		c.queuePrefetch(ctx, candidate)
	}
}

// queuePrefetch starts a background fetch of candidate's missing days
// unless the range is already queued or fully cached.
func (c *Coordinator) queuePrefetch(ctx context.Context, candidate models.DateRange) {
	sig := candidate.Signature()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if _, queued := c.prefetching[sig]; queued {
		c.mu.Unlock()
		metrics.PrefetchesSkipped.Inc()
		return
	}
	if daterange.IsRangeCached(candidate, c.cache) {
		c.mu.Unlock()
		metrics.PrefetchesSkipped.Inc()
		return
	}
	c.prefetching[sig] = struct{}{}
	// Add while still holding c.mu, before Close can see closed=true and
	// call Wait on a counter this launch has not reached yet.
	c.prefetchWG.Add(1)
	c.mu.Unlock()

	metrics.PrefetchesTotal.Inc()
	go func() {
		defer c.prefetchWG.Done()
		defer func() {
			c.mu.Lock()
			delete(c.prefetching, sig)
			c.mu.Unlock()
		}()

		for _, m := range daterange.MissingRanges(candidate, c.cache) {
			for _, batch := range daterange.SplitIntoBatches(m, c.cfg.Cache.BatchSize) {
				if err := c.fetchBatch(ctx, batch); err != nil {
					metrics.PrefetchErrors.Inc()
					c.log.Warn().Err(err).Str("range", sig).Msg("background prefetch failed")
					return
				}
			}
		}
	}()
}

// GetDaySessions returns the cached laid-out sessions for the date's day,
// or an empty slice on a miss. It never returns nil and never triggers a
// fetch.
func (c *Coordinator) GetDaySessions(date time.Time) []models.LayoutSession {
	if sessions, ok := c.cache.Get(models.NewDayKey(date)); ok {
		return sessions
	}
	return []models.LayoutSession{}
}

// OptimisticUpdate mutates the date's day bucket locally ahead of server
// confirmation: insert for OpCreate, replace-by-id for OpUpdate,
// remove-by-id for OpDelete, against the current cached list (empty when
// absent). The resulting bucket is re-laid-out, written, and announced with
// one optimistic-update event.
//
// No data source contact happens here; reconciliation is the caller's
// responsibility, e.g. a later forced EnsureDataForView.
func (c *Coordinator) OptimisticUpdate(date time.Time, op Operation, session models.Session) error {
	// The whole read-modify-write must stay under c.mu so concurrent
	// mutations of the same day cannot interleave and drop each other's
	// changes. Listeners run after the unlock from a snapshot.
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	key := models.NewDayKey(date)
	current, _ := c.cache.Get(key)

	sessions := make([]models.Session, 0, len(current)+1)
	for _, ls := range current {
		sessions = append(sessions, ls.Session)
	}

	switch op {
	case OpCreate:
		sessions = append(sessions, session)
	case OpUpdate:
		for i := range sessions {
			if sessions[i].ID == session.ID {
				sessions[i] = session
			}
		}
	case OpDelete:
		kept := sessions[:0]
		for _, s := range sessions {
			if s.ID != session.ID {
				kept = append(kept, s)
			}
		}
		sessions = kept
	default:
		c.mu.Unlock()
		return fmt.Errorf("unknown optimistic operation %q", op)
	}

	laid := c.grouper.Group(sessions)
	c.cache.Set(key, laid)
	listeners := c.snapshotListenersLocked()
	c.mu.Unlock()

	c.deliver(listeners, models.CacheEvent{
		Type:     models.EventOptimisticUpdate,
		Date:     models.Midnight(date),
		Sessions: laid,
	})
	return nil
}

// InvalidateRange deletes every day bucket whose key falls within the
// inclusive range. It does not refetch and emits no event; callers needing
// confirmation should rerun EnsureDataForView.
func (c *Coordinator) InvalidateRange(r models.DateRange) {
	r.EachDay(func(day time.Time) {
		c.cache.Delete(models.NewDayKey(day))
	})
}

// Clear wipes the memory cache, the pending-fetch map, and the prefetch
// queue, then emits one cache-cleared event. Fetches already in flight
// complete against the cleared state.
func (c *Coordinator) Clear() {
	c.mu.Lock()
	c.inflight = make(map[string]*fetchTask)
	c.prefetching = make(map[string]struct{})
	c.mu.Unlock()

	c.cache.Clear()
	c.emit(models.CacheEvent{Type: models.EventCacheCleared})
}

// Stats snapshots cache contents and request-tracking counts, refreshing
// the occupancy gauges as a side effect.
func (c *Coordinator) Stats() Stats {
	c.mu.Lock()
	active := len(c.inflight)
	queued := len(c.prefetching)
	c.mu.Unlock()

	mem := c.cache.Stats()
	metrics.CacheDayBuckets.Set(float64(mem.Size))
	metrics.CacheSessions.Set(float64(mem.TotalSessions))

	return Stats{
		Memory:         mem,
		ActiveRequests: active,
		PrefetchQueue:  queued,
	}
}

// Subscribe registers a listener for cache events and returns its
// unsubscribe function. Calling the returned function removes exactly that
// listener; repeated calls are safe no-ops.
func (c *Coordinator) Subscribe(fn Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners = append(c.listeners, registration{id: id, fn: fn})
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, reg := range c.listeners {
			if reg.id == id {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// emit synchronously invokes every registered listener in registration
// order. A panicking listener is recovered and logged; it neither stops
// emission to the remaining listeners nor propagates to the mutation that
// triggered the event.
func (c *Coordinator) emit(ev models.CacheEvent) {
	c.mu.Lock()
	listeners := c.snapshotListenersLocked()
	c.mu.Unlock()

	c.deliver(listeners, ev)
}

func (c *Coordinator) snapshotListenersLocked() []registration {
	listeners := make([]registration, len(c.listeners))
	copy(listeners, c.listeners)
	return listeners
}

func (c *Coordinator) deliver(listeners []registration, ev models.CacheEvent) {
	metrics.EventsEmitted.WithLabelValues(string(ev.Type)).Inc()
	for _, reg := range listeners {
		c.invoke(reg, ev)
	}
}

func (c *Coordinator) invoke(reg registration, ev models.CacheEvent) {
	defer func() {
		if r := recover(); r != nil {
			metrics.ListenerPanics.Inc()
			c.log.Warn().
				Interface("panic", r).
				Str("event", string(ev.Type)).
				Msg("cache event listener panicked")
		}
	}()
	reg.fn(ev)
}
