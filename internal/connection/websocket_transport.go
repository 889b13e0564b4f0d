// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package connection

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/livegrid/internal/metrics"
	"github.com/tomtom215/livegrid/internal/models"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = 30 * time.Second

	// Maximum inbound message size.
	maxMessageSize = 512 * 1024
)

// WebSocketTransport dials websocket feeds speaking the envelope protocol.
type WebSocketTransport struct {
	Dialer     *websocket.Dialer
	Header     http.Header
	PingPeriod time.Duration
	PongWait   time.Duration
	WriteWait  time.Duration
}

// NewWebSocketTransport returns a transport with the default keepalive
// settings (ping every 30s, pong expected within 60s).
func NewWebSocketTransport() *WebSocketTransport {
	return &WebSocketTransport{
		Dialer: &websocket.Dialer{
			HandshakeTimeout:  10 * time.Second,
			EnableCompression: true,
		},
		PingPeriod: pingPeriod,
		PongWait:   pongWait,
		WriteWait:  writeWait,
	}
}

// Dial implements Transport.
func (t *WebSocketTransport) Dial(ctx context.Context, url string) (Conn, error) {
	dialer := t.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, url, t.Header)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &wsConn{
		conn:      conn,
		pongWait:  orDefault(t.PongWait, pongWait),
		writeWait: orDefault(t.WriteWait, writeWait),
		done:      make(chan struct{}),
	}
	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set read deadline: %w", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	go c.pingLoop(orDefault(t.PingPeriod, pingPeriod))
	return c, nil
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// wsConn serializes writes: gorilla allows one concurrent writer, and both
// the ping loop and SetInterest write.
type wsConn struct {
	conn      *websocket.Conn
	pongWait  time.Duration
	writeWait time.Duration

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// ReadMessage implements Conn. Any inbound frame extends the read deadline.
func (c *wsConn) ReadMessage() ([]byte, error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return nil, ErrNotConnected
			default:
			}
			metrics.ConnectionErrors.WithLabelValues("read").Inc()
			return nil, err
		}
		if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
			return nil, err
		}
		if mt == websocket.TextMessage || mt == websocket.BinaryMessage {
			return data, nil
		}
	}
}

// SetInterest implements Conn.
func (c *wsConn) SetInterest(subscribe bool, symbols []string) error {
	msgType := models.MsgUnsubscribe
	if subscribe {
		msgType = models.MsgSubscribe
	}
	payload, err := json.Marshal(models.OutboundMessage{
		Type: msgType,
		Data: models.SubscriptionRequest{Symbols: symbols},
	})
	if err != nil {
		return fmt.Errorf("encode %s: %w", msgType, err)
	}
	return c.write(websocket.TextMessage, payload)
}

func (c *wsConn) write(messageType int, data []byte) error {
	select {
	case <-c.done:
		return ErrNotConnected
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return err
	}
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		metrics.ConnectionErrors.WithLabelValues("write").Inc()
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// pingLoop keeps the connection alive until Close. A failed ping is left
// for the reader to observe as a read error.
func (c *wsConn) pingLoop(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close implements Conn.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		// Best effort: the peer may already be gone.
		_ = c.conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}
