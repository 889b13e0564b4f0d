// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/livegrid/internal/logging"
	"github.com/tomtom215/livegrid/internal/models"
	ws "github.com/tomtom215/livegrid/internal/websocket"
)

// Feed is the part of *simulator.Runner the simulator API uses.
type Feed interface {
	Rate() float64
	SetRate(perSecond float64) error
	Published() uint64
}

// RowLister is satisfied by *simulator.Generator.
type RowLister interface {
	Rows() []models.RowRecord
}

// SimulatorHandler serves the simulator HTTP API.
type SimulatorHandler struct {
	feed      Feed
	rows      RowLister
	hub       *ws.Hub
	upgrader  websocket.Upgrader
	startTime time.Time
}

// NewSimulatorHandler creates the simulator handler. Stream consumers are
// usually services rather than browsers, so upgrades without an Origin
// header are accepted.
func NewSimulatorHandler(feed Feed, rows RowLister, hub *ws.Hub, allowedOrigins []string) *SimulatorHandler {
	return &SimulatorHandler{
		feed:      feed,
		rows:      rows,
		hub:       hub,
		upgrader:  newUpgrader(originPolicy{allowed: allowedOrigins, allowMissing: true}),
		startTime: time.Now(),
	}
}

// Rows returns the latest value of every generated row.
func (h *SimulatorHandler) Rows(w http.ResponseWriter, _ *http.Request) {
	rows := h.rows.Rows()
	respondSuccess(w, http.StatusOK, rows, len(rows))
}

// Rate returns the current publish rate.
func (h *SimulatorHandler) Rate(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, h.rateStatus(), 0)
}

// SetRate changes the publish rate.
func (h *SimulatorHandler) SetRate(w http.ResponseWriter, r *http.Request) {
	var req models.RateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.feed.SetRate(req.PerSecond); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	respondSuccess(w, http.StatusOK, h.rateStatus(), 0)
}

func (h *SimulatorHandler) rateStatus() models.RateStatus {
	return models.RateStatus{
		PerSecond: h.feed.Rate(),
		Published: h.feed.Published(),
		Symbols:   len(h.rows.Rows()),
	}
}

// Health reports the simulator as healthy while it is serving.
func (h *SimulatorHandler) Health(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, models.HealthStatus{
		Status:  "healthy",
		Service: "simulator",
		Version: Version,
		Uptime:  time.Since(h.startTime).Seconds(),
		Rows:    len(h.rows.Rows()),
		Clients: h.hub.ClientCount(),
	}, 0)
}

// WebSocket attaches a stream consumer to the hub. It receives nothing
// until it subscribes.
func (h *SimulatorHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn)
	select {
	case h.hub.Register <- client:
	case <-r.Context().Done():
		_ = conn.Close()
		return
	}
	client.Start()
}
