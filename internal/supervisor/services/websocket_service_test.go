// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	ws "github.com/tomtom215/livegrid/internal/websocket"
)

// flakyHub fails its first failures runs, then blocks until cancelled.
type flakyHub struct {
	failures int32
	runs     atomic.Int32
	running  chan struct{}
}

func (h *flakyHub) Name() string { return "flaky" }

func (h *flakyHub) RunWithContext(ctx context.Context) error {
	if n := h.runs.Add(1); n <= h.failures {
		return errors.New("hub crashed")
	}
	close(h.running)
	<-ctx.Done()
	return ctx.Err()
}

func TestWebSocketHubServiceWrapsHub(t *testing.T) {
	hub := ws.NewHub("viewer")
	svc := NewWebSocketHubService(hub)
	if svc.String() != "websocket-hub-viewer" {
		t.Errorf("String() = %q, want websocket-hub-viewer", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	hub.Broadcast("connection_state", map[string]string{"state": "connected"})
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestWebSocketHubServiceRestartsAfterCrash(t *testing.T) {
	hub := &flakyHub{failures: 2, running: make(chan struct{})}

	sup := suture.New("test-sup", suture.Spec{
		FailureThreshold: 5,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          time.Second,
	})
	sup.Add(NewWebSocketHubService(hub))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	select {
	case <-hub.running:
	case <-time.After(2 * time.Second):
		t.Fatalf("hub not running after %d runs", hub.runs.Load())
	}
	if got := hub.runs.Load(); got != 3 {
		t.Errorf("runs = %d, want 3", got)
	}

	cancel()
	<-errCh
}
