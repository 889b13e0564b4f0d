// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

//go:build nats

package simulator

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/livegrid/internal/connection"
	"github.com/tomtom215/livegrid/internal/engine"
	"github.com/tomtom215/livegrid/internal/models"
)

func TestNATSEndToEnd(t *testing.T) {
	srv, err := NewEmbeddedServer("127.0.0.1", -1)
	if err != nil {
		t.Fatalf("embedded server: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx) //nolint:errcheck
	})
	if !srv.IsRunning() {
		t.Fatal("server not running")
	}

	gen := NewGenerator(GeneratorConfig{Symbols: 3, Seed: 9})
	eng := engine.New(engine.DefaultConfig(), engine.WithScheduler(engine.NewManualScheduler()))
	defer eng.Destroy()
	eng.Initialize(gen.Rows())

	tr, err := connection.NewNATSTransport("test.rows")
	if err != nil {
		t.Fatal(err)
	}
	// OnConnect runs after the interest set has been flushed to the server.
	connected := make(chan struct{})
	m := connection.NewManager(connection.Config{
		URL:       srv.ClientURL(),
		OnConnect: func() { close(connected) },
	}, tr, eng)
	if err := m.Subscribe([]string{models.WildcardSymbol}); err != nil {
		t.Fatal(err)
	}
	m.Connect()
	defer m.Disconnect()

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatalf("viewer never connected, state %v", m.State())
	}
	deadline := time.Now().Add(5 * time.Second)

	pub, err := NewNATSPublisher(srv.ClientURL(), "test.rows")
	if err != nil {
		t.Fatal(err)
	}
	defer pub.Close()

	var last models.RowUpdate
	for i := 0; i < 20; i++ {
		last = gen.Next()
		if err := pub.Publish(last); err != nil {
			t.Fatal(err)
		}
	}

	for {
		r, _ := eng.GetRow(last.RowID)
		match := true
		for f, v := range last.Updates {
			if !models.ValuesEqual(r.Fields[f], v) {
				match = false
			}
		}
		if match && m.Status().MessagesReceived == 20 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("last update not applied: row %+v, update %+v, received %d",
				r.Fields, last.Updates, m.Status().MessagesReceived)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if m.Status().MalformedMessages != 0 {
		t.Errorf("malformed = %d", m.Status().MalformedMessages)
	}
}
