// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package api

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/livegrid/internal/models"
	"github.com/tomtom215/livegrid/internal/render"
	ws "github.com/tomtom215/livegrid/internal/websocket"
)

// Version is reported by the health endpoints. Overridden at link time.
var Version = "dev"

// Engine is the part of *engine.Engine the viewer API uses.
type Engine interface {
	GetRows() []models.RowRecord
	GetRow(id models.RowID) (models.RowRecord, bool)
	Metrics() models.EngineMetrics
	Pause()
	Resume()
	IsPaused() bool
	IsThrottled() bool
}

// Connection is the part of *connection.Manager the viewer API uses.
type Connection interface {
	Status() models.ConnectionStatus
	Connect()
	Disconnect()
	Subscribe(symbols []string) error
	Unsubscribe(symbols []string) error
}

// Sink is the part of *render.HubSink the viewer API uses.
type Sink interface {
	SetVisible(ids []models.RowID, src render.RowSource) []models.RowID
	Snapshot(src render.RowSource) models.FramePatch
	Visible() []models.RowID
}

// BreakerState reports the snapshot client's circuit breaker state.
type BreakerState interface {
	State() string
}

// ViewerHandler serves the viewer HTTP API.
type ViewerHandler struct {
	engine    Engine
	conn      Connection
	sink      Sink
	hub       *ws.Hub
	snapshot  BreakerState
	upgrader  websocket.Upgrader
	startTime time.Time
}

// ViewerDeps are the components behind the viewer API. Snapshot may be nil
// when snapshot resync is disabled.
type ViewerDeps struct {
	Engine         Engine
	Connection     Connection
	Sink           Sink
	Hub            *ws.Hub
	Snapshot       BreakerState
	AllowedOrigins []string
}

// NewViewerHandler creates the viewer handler.
func NewViewerHandler(deps ViewerDeps) *ViewerHandler {
	return &ViewerHandler{
		engine:    deps.Engine,
		conn:      deps.Connection,
		sink:      deps.Sink,
		hub:       deps.Hub,
		snapshot:  deps.Snapshot,
		upgrader:  newUpgrader(originPolicy{allowed: deps.AllowedOrigins}),
		startTime: time.Now(),
	}
}
