// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/livegrid/internal/logging"
	"github.com/tomtom215/livegrid/internal/metrics"
	"github.com/tomtom215/livegrid/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// broadcastQueueSize bounds messages waiting for the hub loop.
const broadcastQueueSize = 1024

// outbound is a pre-encoded message. An empty symbol reaches every
// client; otherwise only clients interested in the symbol.
type outbound struct {
	symbol  string
	payload []byte
}

// Hub maintains the set of active clients and fans messages out to them.
// Messages are encoded once, before they are queued.
type Hub struct {
	name       string
	clients    map[*Client]bool
	broadcast  chan outbound
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
	log        zerolog.Logger
}

// NewHub creates a hub. name labels its metrics and log lines
// ("stream" on the simulator, "viewer" on the viewer).
func NewHub(name string) *Hub {
	return &Hub{
		name:       name,
		broadcast:  make(chan outbound, broadcastQueueSize),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		log:        logging.WithComponent("websocket-hub").With().Str("hub", name).Logger(),
	}
}

// Name returns the hub's metrics label.
func (h *Hub) Name() string {
	return h.name
}

// RunWithContext runs the hub until ctx is canceled, then closes every
// client and returns ctx.Err().
//
// Each iteration handles shutdown first, then client lifecycle events,
// then broadcasts, so a client is always registered before it can be
// addressed.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case msg := <-h.broadcast:
			h.broadcastToClients(msg)
		}
	}
}

// Serve implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	return h.RunWithContext(ctx)
}

// String implements fmt.Stringer for supervisor logging.
func (h *Hub) String() string {
	return "websocket-hub-" + h.name
}

func (h *Hub) register(client *Client) {
	client.mu.Lock()
	greeting := client.greeting
	client.greeting = nil
	client.mu.Unlock()

	h.mu.Lock()
	h.clients[client] = true
	for _, payload := range greeting {
		select {
		case client.send <- payload:
		default:
		}
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.WithLabelValues(h.name).Set(float64(n))
	h.log.Info().Uint64("client_id", client.id).Int("total_clients", n).Msg("websocket client connected")
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WSConnections.WithLabelValues(h.name).Set(float64(n))
	h.log.Info().Uint64("client_id", client.id).Int("total_clients", n).Msg("websocket client disconnected")
}

func (h *Hub) shutdown(ctx context.Context) {
	n := h.ClientCount()
	h.closeAllClients()

	reason := ShutdownReasonContextCanceled
	if ctx.Err() == context.DeadlineExceeded {
		reason = ShutdownReasonContextDeadline
	}
	// Cancellation is the expected path, so no error field.
	h.log.Info().
		Str("reason", string(reason)).
		Int("clients_closed", n).
		Msg("websocket hub stopped")
}

// sortedClientsLocked returns clients in id order so delivery order is
// reproducible.
func (h *Hub) sortedClientsLocked() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients delivers msg to every interested client. A client
// whose queue is full is disconnected rather than allowed to stall the hub.
func (h *Hub) broadcastToClients(msg outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var toRemove []*Client
	sent := 0
	for _, client := range h.sortedClientsLocked() {
		if msg.symbol != "" && !client.Wants(msg.symbol) {
			continue
		}
		select {
		case client.send <- msg.payload:
			sent++
		default:
			toRemove = append(toRemove, client)
		}
	}

	metrics.WSMessagesSent.WithLabelValues(h.name).Add(float64(sent))
	for _, client := range toRemove {
		metrics.WSMessagesDropped.WithLabelValues(h.name).Inc()
		h.log.Warn().Uint64("client_id", client.id).Msg("client send queue full, disconnecting")
		close(client.send)
		delete(h.clients, client)
	}
	if len(toRemove) > 0 {
		metrics.WSConnections.WithLabelValues(h.name).Set(float64(len(h.clients)))
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, client := range h.sortedClientsLocked() {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnections.WithLabelValues(h.name).Set(0)
}

// Broadcast sends a typed message to every client.
func (h *Hub) Broadcast(msgType string, data interface{}) {
	h.enqueue("", msgType, data)
}

// Publish sends a typed message to clients interested in symbol.
func (h *Hub) Publish(symbol, msgType string, data interface{}) {
	if symbol == "" {
		symbol = models.WildcardSymbol
	}
	h.enqueue(symbol, msgType, data)
}

func (h *Hub) enqueue(symbol, msgType string, data interface{}) {
	payload, err := MarshalMessage(models.OutboundMessage{Type: msgType, Data: data})
	if err != nil {
		h.log.Error().Err(err).Str("message_type", msgType).Msg("failed to encode broadcast")
		return
	}
	select {
	case h.broadcast <- outbound{symbol: symbol, payload: payload}:
	default:
		metrics.WSMessagesDropped.WithLabelValues(h.name).Inc()
		h.log.Warn().Str("message_type", msgType).Msg("broadcast channel full, dropping message")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MarshalMessage encodes an outbound message.
func MarshalMessage(msg models.OutboundMessage) ([]byte, error) {
	return json.Marshal(msg)
}
