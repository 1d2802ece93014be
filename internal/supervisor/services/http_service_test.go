// Sessioncal - Tutoring Calendar Session Cache and Layout Engine
// Copyright 2026 pistachi73
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/pistachi73/sessioncal

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

// fakeServer blocks in ListenAndServe until Shutdown is called.
type fakeServer struct {
	startErr error
	started  atomic.Bool
	shutdown atomic.Bool
	stop     chan struct{}
}

func newFakeServer() *fakeServer {
	return &fakeServer{stop: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started.Store(true)
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(_ context.Context) error {
	f.shutdown.Store(true)
	close(f.stop)
	return nil
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	srv := newFakeServer()
	svc := NewHTTPServerService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.Now().Add(time.Second)
	for !srv.started.Load() {
		if time.Now().After(deadline) {
			t.Fatal("server never started")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	if !srv.shutdown.Load() {
		t.Error("Shutdown was not called")
	}
}

func TestHTTPServerServiceStartFailure(t *testing.T) {
	srv := newFakeServer()
	srv.startErr = errors.New("address in use")
	svc := NewHTTPServerService(srv, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, srv.startErr) {
		t.Errorf("Serve() = %v, want wrapped start error", err)
	}
}

func TestHTTPServerServiceName(t *testing.T) {
	svc := NewHTTPServerService(newFakeServer(), 0)
	if svc.String() != "http-server" {
		t.Errorf("String() = %q, want http-server", svc.String())
	}
}

type fakeHub struct {
	ran atomic.Bool
}

func (f *fakeHub) RunWithContext(ctx context.Context) error {
	f.ran.Store(true)
	<-ctx.Done()
	return ctx.Err()
}

func TestHubServiceDelegates(t *testing.T) {
	hub := &fakeHub{}
	svc := NewHubService(hub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if !hub.ran.Load() {
		t.Error("hub.RunWithContext was not invoked")
	}
	if svc.String() != "websocket-hub" {
		t.Errorf("String() = %q, want websocket-hub", svc.String())
	}
}
