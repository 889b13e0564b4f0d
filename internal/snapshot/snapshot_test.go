// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package snapshot

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/livegrid/internal/engine"
	"github.com/tomtom215/livegrid/internal/logging"
	"github.com/tomtom215/livegrid/internal/metrics"
	"github.com/tomtom215/livegrid/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

func testRows() []models.RowRecord {
	return []models.RowRecord{
		models.NewRowRecord("SYM000", map[string]interface{}{"price": 100.0, "volume": 10.0}),
		models.NewRowRecord("SYM001", map[string]interface{}{"price": 50.0, "volume": 5.0}),
	}
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(StoreConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng := engine.New(engine.DefaultConfig(), engine.WithScheduler(engine.NewManualScheduler()))
	t.Cleanup(eng.Destroy)
	return eng
}

type fakeFetcher struct {
	rows  []models.RowRecord
	err   error
	calls atomic.Int32
}

func (f *fakeFetcher) FetchRows(context.Context) ([]models.RowRecord, error) {
	f.calls.Add(1)
	return f.rows, f.err
}

func TestClientFetchRows(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
		wantN   int
	}{
		{
			name:   "success",
			status: http.StatusOK,
			body:   `{"status":"success","data":[{"id":"SYM000","price":1.5},{"id":7,"price":2}],"metadata":{"count":2}}`,
			wantN:  2,
		},
		{
			name:    "http error",
			status:  http.StatusServiceUnavailable,
			body:    "down for maintenance",
			wantErr: "status 503: down for maintenance",
		},
		{
			name:    "error envelope",
			status:  http.StatusOK,
			body:    `{"status":"error","data":null,"error":{"code":"INTERNAL","message":"boom"}}`,
			wantErr: "boom",
		},
		{
			name:    "bad json",
			status:  http.StatusOK,
			body:    `{"status":`,
			wantErr: "decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != RowsPath {
					t.Errorf("path = %q", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			rows, err := NewClient(DefaultClientConfig(srv.URL + "/")).FetchRows(t.Context())
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(rows) != tt.wantN {
				t.Fatalf("rows = %d, want %d", len(rows), tt.wantN)
			}
			if rows[1].ID != "7" || rows[0].Fields["price"] != 1.5 {
				t.Errorf("rows = %+v", rows)
			}
		})
	}
}

func TestClientBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := DefaultClientConfig(srv.URL)
	cfg.MinRequests = 3
	cfg.OpenTimeout = time.Hour
	c := NewClient(cfg)

	for i := 0; i < 3; i++ {
		if _, err := c.FetchRows(t.Context()); err == nil {
			t.Fatal("expected failure")
		}
	}
	if c.State() != "open" {
		t.Fatalf("state = %s, want open", c.State())
	}
	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("snapshot-api")); got != 2 {
		t.Errorf("breaker gauge = %v, want 2", got)
	}

	_, err := c.FetchRows(t.Context())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("err = %v, want ErrOpenState", err)
	}
	if hits.Load() != 3 {
		t.Errorf("server hits = %d, want 3", hits.Load())
	}
}

func TestStoreSaveLoad(t *testing.T) {
	s := openTestStore(t)

	if _, err := s.Load(); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("Load on empty store = %v", err)
	}
	if _, err := s.SavedAt(); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("SavedAt on empty store = %v", err)
	}

	rows := testRows()
	rows = append(rows, models.NewRowRecord("SYM002", map[string]interface{}{"name": "third"}))
	if err := s.Save(rows); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0].ID != "SYM000" || got[2].Fields["name"] != "third" {
		t.Fatalf("loaded %+v", got)
	}
	if at, err := s.SavedAt(); err != nil || time.Since(at) > time.Minute {
		t.Errorf("SavedAt = %v, %v", at, err)
	}

	// A smaller snapshot replaces the old one entirely.
	if err := s.Save(rows[:1]); err != nil {
		t.Fatal(err)
	}
	got, err = s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "SYM000" {
		t.Errorf("after shrink loaded %+v", got)
	}
}

func TestOpenStoreRequiresPath(t *testing.T) {
	if _, err := OpenStore(StoreConfig{}); err == nil {
		t.Error("expected error without path")
	}
}

func TestBootstrap(t *testing.T) {
	stored := []models.RowRecord{models.NewRowRecord("OLD", map[string]interface{}{"price": 1.0})}

	tests := []struct {
		name       string
		fetchErr   error
		seedStore  bool
		withLoader bool
		wantSource Source
		wantFirst  models.RowID
		wantErr    bool
	}{
		{name: "producer", withLoader: true, wantSource: SourceProducer, wantFirst: "SYM000"},
		{name: "fallback to store", fetchErr: errors.New("refused"), seedStore: true, withLoader: true, wantSource: SourceStore, wantFirst: "OLD"},
		{name: "empty store", fetchErr: errors.New("refused"), withLoader: true, wantErr: true},
		{name: "no loader", fetchErr: errors.New("refused"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newTestEngine(t)
			f := &fakeFetcher{rows: testRows(), err: tt.fetchErr}

			var loader Loader
			if tt.withLoader {
				s := openTestStore(t)
				if tt.seedStore {
					if err := s.Save(stored); err != nil {
						t.Fatal(err)
					}
				}
				loader = s
			}

			src, err := NewSyncer(f, loader, eng, time.Second).Bootstrap(t.Context())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if len(eng.GetRows()) != 0 {
					t.Error("engine initialized despite error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if src != tt.wantSource {
				t.Errorf("source = %s, want %s", src, tt.wantSource)
			}
			if rows := eng.GetRows(); len(rows) == 0 || rows[0].ID != tt.wantFirst {
				t.Errorf("engine rows = %+v", rows)
			}
		})
	}
}

func TestResyncFeedsProcessUpdate(t *testing.T) {
	eng := newTestEngine(t)
	eng.Initialize(testRows())

	f := &fakeFetcher{rows: []models.RowRecord{
		models.NewRowRecord("SYM000", map[string]interface{}{"price": 101.0, "volume": 10.0}),
		models.NewRowRecord("SYM001", map[string]interface{}{"price": 50.0, "volume": 5.0}),
		models.NewRowRecord("NEW", map[string]interface{}{"price": 1.0}),
	}}
	s := NewSyncer(f, nil, eng, time.Second)

	res, err := s.Resync(t.Context())
	if err != nil {
		t.Fatal(err)
	}
	want := ResyncResult{Rows: 3, Changed: 1, Unknown: 1}
	if res != want {
		t.Errorf("result = %+v, want %+v", res, want)
	}
	if r, _ := eng.GetRow("SYM000"); r.Fields["price"] != 101.0 {
		t.Errorf("price = %v", r.Fields["price"])
	}
	if eng.Metrics().PendingUpdates != 1 {
		t.Errorf("pending = %d, want 1", eng.Metrics().PendingUpdates)
	}

	f.err = errors.New("down")
	if _, err := s.Resync(t.Context()); err == nil {
		t.Error("expected fetch error")
	}
}

func TestHandleConnectSkipsFirstConnection(t *testing.T) {
	eng := newTestEngine(t)
	f := &fakeFetcher{rows: testRows()}
	s := NewSyncer(f, nil, eng, time.Second)
	if _, err := s.Bootstrap(t.Context()); err != nil {
		t.Fatal(err)
	}

	s.HandleConnect()
	s.Wait()
	if f.calls.Load() != 1 {
		t.Fatalf("first connect fetched %d extra times", f.calls.Load()-1)
	}

	s.HandleConnect()
	s.HandleConnect()
	s.Wait()
	if f.calls.Load() != 3 {
		t.Errorf("reconnects fetched %d times, want 2", f.calls.Load()-1)
	}
}

func TestHandleConnectBootstrapsAfterFailedStart(t *testing.T) {
	eng := newTestEngine(t)
	f := &fakeFetcher{rows: testRows(), err: errors.New("connection refused")}
	s := NewSyncer(f, nil, eng, time.Second)

	var inits atomic.Int32
	s.OnInitialize(func() { inits.Add(1) })

	if _, err := s.Bootstrap(t.Context()); err == nil {
		t.Fatal("expected bootstrap error")
	}
	if s.Ready() {
		t.Fatal("ready after failed bootstrap")
	}

	// Producer still down on the first connection.
	s.HandleConnect()
	s.Wait()
	if s.Ready() || len(eng.GetRows()) != 0 {
		t.Fatal("initialized while producer is down")
	}

	// Producer is back; the next connection loads the rows.
	f.err = nil
	s.HandleConnect()
	s.Wait()
	if !s.Ready() {
		t.Fatal("not ready after producer recovered")
	}
	if n := len(eng.GetRows()); n != 2 {
		t.Fatalf("engine rows = %d, want 2", n)
	}
	if inits.Load() != 1 {
		t.Errorf("OnInitialize ran %d times, want 1", inits.Load())
	}

	r := eng.ProcessUpdate(models.RowUpdate{
		RowID:   "SYM000",
		Updates: map[string]interface{}{"price": 101.0},
	})
	if r.Err != nil {
		t.Fatalf("ProcessUpdate after late bootstrap: %v", r.Err)
	}

	// Further connections resync instead of reinitializing.
	calls := f.calls.Load()
	s.HandleConnect()
	s.Wait()
	if f.calls.Load() != calls+1 || inits.Load() != 1 {
		t.Errorf("reconnect: fetches %d, inits %d", f.calls.Load()-calls, inits.Load())
	}
}

func TestSaver(t *testing.T) {
	store := openTestStore(t)
	eng := newTestEngine(t)
	saver := NewSaver(store, eng, time.Hour)

	saver.SaveNow()
	if _, err := store.Load(); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("empty cache was saved: %v", err)
	}

	eng.Initialize(testRows())
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- saver.Serve(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("saver did not stop")
	}

	rows, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Errorf("saved %d rows on shutdown, want 2", len(rows))
	}
	if saver.String() != "snapshot-saver" {
		t.Errorf("String = %q", saver.String())
	}
}
