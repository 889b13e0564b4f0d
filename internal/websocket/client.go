// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package websocket

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/livegrid/internal/logging"
	"github.com/tomtom215/livegrid/internal/models"
	"github.com/tomtom215/livegrid/internal/validation"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512 KB

	sendQueueSize = 256
)

// clientIDCounter gives clients monotonically increasing ids so the hub
// can iterate them in a stable order.
var clientIDCounter atomic.Uint64

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu       sync.RWMutex
	all      bool
	interest map[string]struct{}
	greeting [][]byte
}

// NewClient creates a client with an empty interest set.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:       clientIDCounter.Add(1),
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendQueueSize),
		interest: make(map[string]struct{}),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// Wants reports whether symbol is in the client's interest set.
func (c *Client) Wants(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.all {
		return true
	}
	_, ok := c.interest[symbol]
	return ok
}

// Subscribe adds symbols to the interest set. "*" selects every symbol.
func (c *Client) Subscribe(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range symbols {
		if s == models.WildcardSymbol {
			c.all = true
			continue
		}
		c.interest[s] = struct{}{}
	}
}

// Unsubscribe removes symbols. Unsubscribing "*" clears the whole set.
func (c *Client) Unsubscribe(symbols []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range symbols {
		if s == models.WildcardSymbol {
			c.all = false
			c.interest = make(map[string]struct{})
			return
		}
		delete(c.interest, s)
	}
}

// Symbols returns the interest set, sorted, with "*" first when set.
func (c *Client) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.interest)+1)
	for s := range c.interest {
		out = append(out, s)
	}
	sort.Strings(out)
	if c.all {
		out = append([]string{models.WildcardSymbol}, out...)
	}
	return out
}

// Send queues a message for this client only. It never blocks; a full
// queue drops the message. The hub lock guards against sending on a queue
// the hub has already closed.
func (c *Client) Send(msgType string, data interface{}) {
	payload, err := MarshalMessage(models.OutboundMessage{Type: msgType, Data: data})
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if !c.hub.clients[c] {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// Greet queues a message to be delivered as soon as the hub registers the
// client, ahead of any broadcast. Call it before sending on hub.Register.
func (c *Client) Greet(msgType string, data interface{}) error {
	payload, err := MarshalMessage(models.OutboundMessage{Type: msgType, Data: data})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.greeting = append(c.greeting, payload)
	c.mu.Unlock()
	return nil
}

// handle processes one inbound client message.
func (c *Client) handle(data []byte) {
	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.Send(models.MsgError, models.ErrorData{Message: "invalid message"})
		return
	}

	switch env.Type {
	case models.MsgPing:
		c.Send(models.MsgPong, nil)

	case models.MsgSubscribe, models.MsgUnsubscribe:
		var req models.SubscriptionRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			c.Send(models.MsgError, models.ErrorData{Message: "invalid subscription payload"})
			return
		}
		if verr := validation.ValidateStruct(&req); verr != nil {
			c.Send(models.MsgError, models.ErrorData{Message: verr.Error()})
			return
		}
		if env.Type == models.MsgSubscribe {
			c.Subscribe(req.Symbols)
		} else {
			c.Unsubscribe(req.Symbols)
		}
		c.Send(models.MsgSubscribed, models.SubscriptionRequest{Symbols: c.Symbols()})

	default:
		c.Send(models.MsgError, models.ErrorData{Message: "unknown message type " + env.Type})
	}
}

// readPump pumps messages from the websocket connection to the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close() // Explicitly ignore error - best-effort cleanup
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logging.Warn().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close error")
			}
			return
		}
		c.handle(data)
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // Explicitly ignore error - best-effort cleanup
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
