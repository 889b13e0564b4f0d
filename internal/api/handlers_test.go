// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/livegrid/internal/models"
	"github.com/tomtom215/livegrid/internal/render"
	ws "github.com/tomtom215/livegrid/internal/websocket"
)

type fakeEngine struct {
	mu     sync.Mutex
	rows   map[models.RowID]models.RowRecord
	paused bool
}

func newFakeEngine(ids ...string) *fakeEngine {
	e := &fakeEngine{rows: make(map[models.RowID]models.RowRecord)}
	for i, id := range ids {
		e.rows[models.RowID(id)] = models.NewRowRecord(models.RowID(id), map[string]interface{}{"price": float64(100 + i)})
	}
	return e
}

func (e *fakeEngine) GetRows() []models.RowRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.RowRecord, 0, len(e.rows))
	for _, r := range e.rows {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (e *fakeEngine) GetRow(id models.RowID) (models.RowRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.rows[id]
	return r, ok
}

func (e *fakeEngine) Metrics() models.EngineMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.EngineMetrics{RowCount: len(e.rows), FPS: 60}
}

func (e *fakeEngine) Pause()            { e.mu.Lock(); e.paused = true; e.mu.Unlock() }
func (e *fakeEngine) Resume()           { e.mu.Lock(); e.paused = false; e.mu.Unlock() }
func (e *fakeEngine) IsPaused() bool    { e.mu.Lock(); defer e.mu.Unlock(); return e.paused }
func (e *fakeEngine) IsThrottled() bool { return false }

type fakeConnection struct {
	mu        sync.Mutex
	state     models.ConnectionState
	symbols   map[string]bool
	failApply error
}

func newFakeConnection() *fakeConnection {
	return &fakeConnection{state: models.StateConnected, symbols: map[string]bool{"*": true}}
}

func (c *fakeConnection) Status() models.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	syms := make([]string, 0, len(c.symbols))
	for s := range c.symbols {
		syms = append(syms, s)
	}
	sort.Strings(syms)
	return models.ConnectionStatus{State: c.state, URL: "ws://upstream/ws", Symbols: syms}
}

func (c *fakeConnection) Connect() {
	c.mu.Lock()
	c.state = models.StateConnecting
	c.mu.Unlock()
}

func (c *fakeConnection) Disconnect() {
	c.mu.Lock()
	c.state = models.StateDisconnected
	c.mu.Unlock()
}

func (c *fakeConnection) Subscribe(symbols []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range symbols {
		c.symbols[s] = true
	}
	return c.failApply
}

func (c *fakeConnection) Unsubscribe(symbols []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range symbols {
		delete(c.symbols, s)
	}
	return c.failApply
}

type fakeSink struct {
	mu      sync.Mutex
	visible []models.RowID
}

func (s *fakeSink) SetVisible(ids []models.RowID, _ render.RowSource) []models.RowID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = ids
	return ids
}

func (s *fakeSink) Snapshot(src render.RowSource) models.FramePatch {
	var out models.FramePatch
	for _, r := range src.GetRows() {
		out.Patches = append(out.Patches, models.CellPatch{RowID: r.ID, Field: "price", Text: "x"})
	}
	return out
}

func (s *fakeSink) Visible() []models.RowID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visible
}

type viewerFixture struct {
	engine *fakeEngine
	conn   *fakeConnection
	sink   *fakeSink
	hub    *ws.Hub
	router http.Handler
}

func newViewerFixture(t *testing.T) *viewerFixture {
	t.Helper()
	f := &viewerFixture{
		engine: newFakeEngine("SYM001", "SYM002", "SYM003"),
		conn:   newFakeConnection(),
		sink:   &fakeSink{},
		hub:    ws.NewHub("api-test"),
	}
	mw := NewChiMiddleware(&ChiMiddlewareConfig{
		CORSAllowedOrigins: []string{"http://grid.local"},
		RateLimitDisabled:  true,
	})
	h := NewViewerHandler(ViewerDeps{
		Engine:         f.engine,
		Connection:     f.conn,
		Sink:           f.sink,
		Hub:            f.hub,
		AllowedOrigins: mw.AllowedOrigins(),
	})
	f.router = NewViewerRouter(h, mw)
	return f
}

func (f *viewerFixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, models.APIResponse) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: response is not JSON: %v (%s)", method, path, err, rec.Body.String())
	}
	return rec, resp
}

// dataAs re-decodes the generic Data field into v.
func dataAs(t *testing.T, resp models.APIResponse, v interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode data: %v (%s)", err, raw)
	}
}

func TestViewerRoutes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantCode   string
		check      func(t *testing.T, f *viewerFixture, resp models.APIResponse)
	}{
		{
			name: "all rows", method: http.MethodGet, path: "/api/v1/rows", wantStatus: http.StatusOK,
			check: func(t *testing.T, _ *viewerFixture, resp models.APIResponse) {
				var rows []models.RowRecord
				dataAs(t, resp, &rows)
				if len(rows) != 3 || resp.Metadata.Count != 3 {
					t.Errorf("rows = %d, count = %d", len(rows), resp.Metadata.Count)
				}
			},
		},
		{
			name: "filtered rows", method: http.MethodGet, path: "/api/v1/rows?symbols=SYM002,NOPE", wantStatus: http.StatusOK,
			check: func(t *testing.T, _ *viewerFixture, resp models.APIResponse) {
				var rows []models.RowRecord
				dataAs(t, resp, &rows)
				if len(rows) != 1 || rows[0].ID != "SYM002" {
					t.Errorf("rows = %+v", rows)
				}
			},
		},
		{name: "one row", method: http.MethodGet, path: "/api/v1/rows/SYM001", wantStatus: http.StatusOK},
		{name: "unknown row", method: http.MethodGet, path: "/api/v1/rows/NOPE", wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
		{
			name: "engine metrics", method: http.MethodGet, path: "/api/v1/metrics", wantStatus: http.StatusOK,
			check: func(t *testing.T, _ *viewerFixture, resp models.APIResponse) {
				var m models.EngineMetrics
				dataAs(t, resp, &m)
				if m.RowCount != 3 || m.FPS != 60 {
					t.Errorf("metrics = %+v", m)
				}
			},
		},
		{name: "connection status", method: http.MethodGet, path: "/api/v1/connection", wantStatus: http.StatusOK},
		{
			name: "disconnect", method: http.MethodPost, path: "/api/v1/connection/disconnect", wantStatus: http.StatusOK,
			check: func(t *testing.T, f *viewerFixture, _ models.APIResponse) {
				if f.conn.Status().State != models.StateDisconnected {
					t.Errorf("state = %v", f.conn.Status().State)
				}
			},
		},
		{name: "connect", method: http.MethodPost, path: "/api/v1/connection/connect", wantStatus: http.StatusAccepted},
		{
			name: "subscribe", method: http.MethodPost, path: "/api/v1/subscriptions",
			body: `{"symbols":["SYM001","SYM002"]}`, wantStatus: http.StatusOK,
			check: func(t *testing.T, f *viewerFixture, resp models.APIResponse) {
				if resp.Metadata.Count != 3 {
					t.Errorf("count = %d, want 3", resp.Metadata.Count)
				}
			},
		},
		{
			name: "unsubscribe", method: http.MethodDelete, path: "/api/v1/subscriptions",
			body: `{"symbols":["*"]}`, wantStatus: http.StatusOK,
			check: func(t *testing.T, f *viewerFixture, _ models.APIResponse) {
				if len(f.conn.Status().Symbols) != 0 {
					t.Errorf("symbols = %v", f.conn.Status().Symbols)
				}
			},
		},
		{name: "subscribe empty", method: http.MethodPost, path: "/api/v1/subscriptions", body: `{"symbols":[]}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "subscribe bad symbol", method: http.MethodPost, path: "/api/v1/subscriptions", body: `{"symbols":["a b"]}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "subscribe no body", method: http.MethodPost, path: "/api/v1/subscriptions", wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "subscribe bad json", method: http.MethodPost, path: "/api/v1/subscriptions", body: `{`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{
			name: "pause", method: http.MethodPost, path: "/api/v1/engine/pause", wantStatus: http.StatusOK,
			check: func(t *testing.T, f *viewerFixture, resp models.APIResponse) {
				var st models.EngineState
				dataAs(t, resp, &st)
				if !st.Paused || !f.engine.IsPaused() {
					t.Errorf("state = %+v", st)
				}
			},
		},
		{
			name: "resume", method: http.MethodPost, path: "/api/v1/engine/resume", wantStatus: http.StatusOK,
			check: func(t *testing.T, f *viewerFixture, _ models.APIResponse) {
				if f.engine.IsPaused() {
					t.Error("engine still paused")
				}
			},
		},
		{
			name: "set visible", method: http.MethodPut, path: "/api/v1/render/visible",
			body: `{"rowIds":["SYM003","SYM001"]}`, wantStatus: http.StatusOK,
			check: func(t *testing.T, f *viewerFixture, resp models.APIResponse) {
				var got models.VisibleRowsResponse
				dataAs(t, resp, &got)
				if len(got.Visible) != 2 || len(got.Revealed) != 2 {
					t.Errorf("response = %+v", got)
				}
			},
		},
		{name: "set visible unknown row", method: http.MethodPut, path: "/api/v1/render/visible", body: `{"rowIds":["SYM001","GHOST"]}`, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{
			name: "set visible empty resets", method: http.MethodPut, path: "/api/v1/render/visible",
			body: `{"rowIds":[]}`, wantStatus: http.StatusOK,
			check: func(t *testing.T, _ *viewerFixture, resp models.APIResponse) {
				var got models.VisibleRowsResponse
				dataAs(t, resp, &got)
				if got.Visible == nil || got.Revealed == nil {
					t.Errorf("lists must encode as [] not null: %+v", got)
				}
			},
		},
		{name: "wrong method", method: http.MethodGet, path: "/api/v1/engine/pause", wantStatus: http.StatusMethodNotAllowed, wantCode: "METHOD_NOT_ALLOWED"},
		{name: "unknown path", method: http.MethodGet, path: "/api/v1/nothing", wantStatus: http.StatusNotFound, wantCode: "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newViewerFixture(t)
			rec, resp := f.do(t, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != "" {
				if resp.Status != "error" || resp.Error == nil || resp.Error.Code != tt.wantCode {
					t.Fatalf("error = %+v, want code %s", resp.Error, tt.wantCode)
				}
			} else if resp.Status != "success" {
				t.Fatalf("status field = %q", resp.Status)
			}
			if tt.check != nil {
				tt.check(t, f, resp)
			}
		})
	}
}

func TestSubscribeUpstreamFailure(t *testing.T) {
	f := newViewerFixture(t)
	f.conn.failApply = errors.New("write: broken pipe")

	rec, resp := f.do(t, http.MethodPost, "/api/v1/subscriptions", `{"symbols":["SYM009"]}`)
	if rec.Code != http.StatusBadGateway || resp.Error.Code != "UPSTREAM_ERROR" {
		t.Fatalf("status = %d, error = %+v", rec.Code, resp.Error)
	}
	// The interest set still changed and will be re-sent on reconnect.
	if !f.conn.symbols["SYM009"] {
		t.Error("interest set not updated")
	}
}

func TestViewerHealth(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		setup      func(f *viewerFixture)
		wantStatus int
		wantHealth string
	}{
		{name: "healthy", path: "/api/v1/health", wantStatus: http.StatusOK, wantHealth: "healthy"},
		{
			name: "degraded while reconnecting", path: "/api/v1/health",
			setup:      func(f *viewerFixture) { f.conn.state = models.StateReconnecting },
			wantStatus: http.StatusOK, wantHealth: "degraded",
		},
		{name: "live", path: "/api/v1/health/live", wantStatus: http.StatusOK},
		{name: "ready", path: "/api/v1/health/ready", wantStatus: http.StatusOK},
		{
			name: "not ready without rows", path: "/api/v1/health/ready",
			setup:      func(f *viewerFixture) { f.engine.rows = map[models.RowID]models.RowRecord{} },
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newViewerFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}
			rec, resp := f.do(t, http.MethodGet, tt.path, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantHealth == "" {
				return
			}
			var h models.HealthStatus
			dataAs(t, resp, &h)
			if h.Status != tt.wantHealth || h.Service != "viewer" || h.Rows != 3 {
				t.Errorf("health = %+v", h)
			}
		})
	}
}

func TestViewerPrometheusEndpoint(t *testing.T) {
	f := newViewerFixture(t)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics output missing default collectors")
	}
}
