// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

// Command server runs the calendar session cache service: it keeps a
// windowed in-memory cache of laid-out tutoring sessions, fetches missing
// ranges from the upstream session API, and streams cache change events
// to connected calendar clients over websockets.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pistachi73/sessioncal/internal/api"
	"github.com/pistachi73/sessioncal/internal/cache"
	"github.com/pistachi73/sessioncal/internal/config"
	"github.com/pistachi73/sessioncal/internal/coordinator"
	"github.com/pistachi73/sessioncal/internal/logging"
	"github.com/pistachi73/sessioncal/internal/source"
	"github.com/pistachi73/sessioncal/internal/supervisor"
	"github.com/pistachi73/sessioncal/internal/supervisor/services"
	"github.com/pistachi73/sessioncal/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("listen_addr", cfg.Server.ListenAddr).
		Str("source_url", cfg.Source.BaseURL).
		Int("cache_size", cfg.Cache.MaxMemoryCacheSize).
		Msg("starting sessioncal server")

	client := source.NewClient(cfg.Source)

	coord := coordinator.New(coordinator.Config{
		Cache: cache.Config{
			MaxSize:          cfg.Cache.MaxMemoryCacheSize,
			MaxAge:           cfg.Cache.MaxMemoryCacheAge,
			PrefetchDistance: cfg.Cache.PrefetchDistance,
			BatchSize:        cfg.Cache.BatchSize,
		},
		LayoutMemoSize: cfg.Cache.LayoutMemoSize,
	}, client)
	defer coord.Close()

	hub := websocket.NewHub()
	unsubscribe := coord.Subscribe(hub.BroadcastCacheEvent)
	defer unsubscribe()

	router := api.NewRouter(api.NewHandler(coord), hub.ServeWS)
	server := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddEventService(services.NewHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("shutdown signal received")
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("shutdown finished with error")
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor stopped unexpectedly")
		}
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("service did not stop within timeout")
		}
	}

	logging.Info().Msg("sessioncal server stopped")
}
