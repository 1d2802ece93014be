// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingService struct {
	serves atomic.Int64
}

func (s *countingService) Serve(ctx context.Context) error {
	s.serves.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func (s *countingService) String() string { return "counting" }

func TestTreeRunsServicesInBothLayers(t *testing.T) {
	tree := NewTree(discardLogger(), DefaultTreeConfig())

	eventSvc := &countingService{}
	apiSvc := &countingService{}
	tree.AddEventService(eventSvc)
	tree.AddAPIService(apiSvc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for eventSvc.serves.Load() == 0 || apiSvc.serves.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("services never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want nil or context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop")
	}
}

func TestTreeZeroConfigDefaults(t *testing.T) {
	tree := NewTree(discardLogger(), TreeConfig{})
	def := DefaultTreeConfig()

	if tree.config.FailureThreshold != def.FailureThreshold {
		t.Errorf("FailureThreshold = %v, want %v", tree.config.FailureThreshold, def.FailureThreshold)
	}
	if tree.config.ShutdownTimeout != def.ShutdownTimeout {
		t.Errorf("ShutdownTimeout = %v, want %v", tree.config.ShutdownTimeout, def.ShutdownTimeout)
	}
}
