// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

// Package source implements the coordinator's external data-fetch
// collaborator as an HTTP client against the platform's session API.
//
// The client is deliberately retry-free: a failed fetch surfaces to the
// coordinator unchanged. What it does add around the raw transport is a
// client-side rate limit and a circuit breaker, so a struggling upstream
// is shielded from fetch storms rather than hammered by them.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/pistachi73/sessioncal/internal/config"
	"github.com/pistachi73/sessioncal/internal/logging"
	"github.com/pistachi73/sessioncal/internal/models"
)

// ErrUpstreamUnavailable wraps circuit-breaker rejections so callers can
// distinguish "upstream is known bad" from an individual request failure.
var ErrUpstreamUnavailable = errors.New("session source unavailable")

// requestIDHeader carries the per-request correlation id to the upstream.
const requestIDHeader = "X-Request-ID"

// sessionsResponse is the upstream payload envelope.
type sessionsResponse struct {
	Sessions []models.Session `json:"sessions"`
}

// Client fetches session records over HTTP. It satisfies
// coordinator.Fetcher.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]models.Session]
	log     zerolog.Logger
}

// NewClient builds a session source client from configuration.
func NewClient(cfg config.SourceConfig) *Client {
	log := logging.With().Str("component", "source").Logger()

	breaker := gobreaker.NewCircuitBreaker[[]models.Session](gobreaker.Settings{
		Name:    "session-source",
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state transition")
		},
	})

	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		breaker: breaker,
		log:     log,
	}
}

// FetchSessions returns the sessions whose start instant falls within the
// inclusive day range. Calls are rate-limited and breaker-guarded; a
// rejection by the open breaker wraps ErrUpstreamUnavailable.
func (c *Client) FetchSessions(ctx context.Context, r models.DateRange) ([]models.Session, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	sessions, err := c.breaker.Execute(func() ([]models.Session, error) {
		return c.fetch(ctx, r)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
		return nil, err
	}
	return sessions, nil
}

// fetch performs one GET against the sessions endpoint.
func (c *Client) fetch(ctx context.Context, r models.DateRange) ([]models.Session, error) {
	url := fmt.Sprintf("%s/api/sessions?from=%s&to=%s",
		c.baseURL,
		r.Start.Format("2006-01-02"),
		r.End.Format("2006-01-02"),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set(requestIDHeader, requestID)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sessions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck
		return nil, fmt.Errorf("fetch sessions: upstream returned %s", resp.Status)
	}

	var payload sessionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}

	c.log.Debug().
		Str("request_id", requestID).
		Str("range", r.Signature()).
		Int("sessions", len(payload.Sessions)).
		Dur("elapsed", time.Since(start)).
		Msg("fetched sessions")

	return payload.Sessions, nil
}
