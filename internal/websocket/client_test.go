// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/livegrid/internal/models"
)

// serveHub upgrades every request and attaches it to hub.
func serveHub(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn)
		hub.Register <- client
		client.Start()
	}))
	t.Cleanup(srv.Close)
	return srv
}

// dialWebSocket establishes a WebSocket connection to the test server
func dialWebSocket(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func read(t *testing.T, conn *websocket.Conn) models.Envelope {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return env
}

func TestClientProtocol(t *testing.T) {
	hub := startHub(t, "test-protocol")
	conn := dialWebSocket(t, serveHub(t, hub))
	waitUntil(t, func() bool { return hub.ClientCount() == 1 })

	tests := []struct {
		name     string
		msg      string
		wantType string
		check    func(t *testing.T, env models.Envelope)
	}{
		{
			name:     "ping",
			msg:      `{"type":"ping"}`,
			wantType: models.MsgPong,
		},
		{
			name:     "subscribe",
			msg:      `{"type":"subscribe","data":{"symbols":["SYM002","SYM001"]}}`,
			wantType: models.MsgSubscribed,
			check: func(t *testing.T, env models.Envelope) {
				var req models.SubscriptionRequest
				if err := json.Unmarshal(env.Data, &req); err != nil {
					t.Fatal(err)
				}
				if len(req.Symbols) != 2 || req.Symbols[0] != "SYM001" {
					t.Errorf("symbols = %v", req.Symbols)
				}
			},
		},
		{
			name:     "unsubscribe",
			msg:      `{"type":"unsubscribe","data":{"symbols":["SYM002"]}}`,
			wantType: models.MsgSubscribed,
			check: func(t *testing.T, env models.Envelope) {
				var req models.SubscriptionRequest
				if err := json.Unmarshal(env.Data, &req); err != nil {
					t.Fatal(err)
				}
				if len(req.Symbols) != 1 || req.Symbols[0] != "SYM001" {
					t.Errorf("symbols = %v", req.Symbols)
				}
			},
		},
		{
			name:     "invalid symbol",
			msg:      `{"type":"subscribe","data":{"symbols":["bad symbol!"]}}`,
			wantType: models.MsgError,
		},
		{
			name:     "empty symbols",
			msg:      `{"type":"subscribe","data":{"symbols":[]}}`,
			wantType: models.MsgError,
		},
		{
			name:     "unknown type",
			msg:      `{"type":"trade"}`,
			wantType: models.MsgError,
		},
		{
			name:     "not json",
			msg:      `hello`,
			wantType: models.MsgError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, conn, tt.msg)
			env := read(t, conn)
			if env.Type != tt.wantType {
				t.Fatalf("type = %q, want %q (data %s)", env.Type, tt.wantType, env.Data)
			}
			if tt.check != nil {
				tt.check(t, env)
			}
		})
	}

	// The connection survived every bad request and still receives
	// messages for its interest set.
	hub.Publish("SYM002", models.MsgRowUpdate, map[string]string{"rowId": "SYM002"})
	hub.Publish("SYM001", models.MsgRowUpdate, map[string]string{"rowId": "SYM001"})
	env := read(t, conn)
	if !strings.Contains(string(env.Data), "SYM001") {
		t.Errorf("got %s, want only the SYM001 update", env.Data)
	}
}

func TestClientDisconnectUnregisters(t *testing.T) {
	hub := startHub(t, "test-disconnect")
	conn := dialWebSocket(t, serveHub(t, hub))
	waitUntil(t, func() bool { return hub.ClientCount() == 1 })

	if err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")); err != nil {
		t.Fatal(err)
	}
	waitUntil(t, func() bool { return hub.ClientCount() == 0 })
}

func TestConnectionConstants(t *testing.T) {
	if pingPeriod >= pongWait {
		t.Errorf("pingPeriod %v must be less than pongWait %v", pingPeriod, pongWait)
	}
	if writeWait != 10*time.Second || maxMessageSize != 512*1024 {
		t.Errorf("unexpected limits: writeWait=%v maxMessageSize=%d", writeWait, maxMessageSize)
	}
}
