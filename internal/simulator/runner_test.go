// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package simulator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/livegrid/internal/metrics"
	"github.com/tomtom215/livegrid/internal/models"
)

type recordingPublisher struct {
	name string
	fail bool

	mu      sync.Mutex
	updates []models.RowUpdate
}

func (p *recordingPublisher) Name() string { return p.name }

func (p *recordingPublisher) Publish(u models.RowUpdate) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.mu.Lock()
	p.updates = append(p.updates, u)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.updates)
}

func TestNewRunnerRejectsBadRate(t *testing.T) {
	for _, r := range []float64{0, -5} {
		if _, err := NewRunner(NewGenerator(GeneratorConfig{}), r); err == nil {
			t.Errorf("NewRunner(rate=%v) succeeded", r)
		}
	}
}

func TestRunnerPublishesUntilCancelled(t *testing.T) {
	good := &recordingPublisher{name: "test-good"}
	bad := &recordingPublisher{name: "test-bad", fail: true}
	r, err := NewRunner(NewGenerator(GeneratorConfig{Symbols: 10}), 2000, good, bad)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for good.count() < 50 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d updates published", good.count())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}

	n := good.count()
	if got := r.Published(); got != uint64(n) {
		t.Errorf("Published = %d, publisher saw %d", got, n)
	}
	if got := testutil.ToFloat64(metrics.SimulatorUpdatesPublished.WithLabelValues("test-good")); got != float64(n) {
		t.Errorf("metric = %v, want %d", got, n)
	}
	if got := testutil.ToFloat64(metrics.SimulatorUpdatesPublished.WithLabelValues("test-bad")); got != 0 {
		t.Errorf("failing publisher counted %v", got)
	}
}

func TestRunnerPacing(t *testing.T) {
	p := &recordingPublisher{name: "test-pacing"}
	r, err := NewRunner(NewGenerator(GeneratorConfig{Symbols: 5}), 100, p)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = r.Serve(ctx) //nolint:errcheck

	// 100/s for 200ms is about 20 updates plus the initial burst token.
	if n := p.count(); n < 5 || n > 40 {
		t.Errorf("published %d updates in 200ms at 100/s", n)
	}
}

func TestSetRate(t *testing.T) {
	r, err := NewRunner(NewGenerator(GeneratorConfig{}), 10)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.SetRate(5000); err != nil {
		t.Fatal(err)
	}
	if r.Rate() != 5000 {
		t.Errorf("Rate = %v", r.Rate())
	}
	if err := r.SetRate(0); err == nil {
		t.Error("SetRate(0) accepted")
	}
	if r.String() != "simulator" {
		t.Errorf("String = %q", r.String())
	}
}

type fakeHub struct {
	symbol, msgType string
	data            interface{}
}

func (h *fakeHub) Publish(symbol, msgType string, data interface{}) {
	h.symbol, h.msgType, h.data = symbol, msgType, data
}

func TestHubPublisher(t *testing.T) {
	hub := &fakeHub{}
	p := NewHubPublisher(hub)
	u := models.RowUpdate{RowID: "SYM001", Updates: map[string]interface{}{"price": 1.0}}
	if err := p.Publish(u); err != nil {
		t.Fatal(err)
	}
	if hub.symbol != "SYM001" || hub.msgType != models.MsgRowUpdate {
		t.Errorf("published %q/%q", hub.symbol, hub.msgType)
	}
	if got, ok := hub.data.(models.RowUpdate); !ok || got.RowID != "SYM001" {
		t.Errorf("data = %#v", hub.data)
	}
}
