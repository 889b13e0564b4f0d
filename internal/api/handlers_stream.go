// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package api

import (
	"net/http"

	"github.com/tomtom215/livegrid/internal/logging"
	"github.com/tomtom215/livegrid/internal/models"
	ws "github.com/tomtom215/livegrid/internal/websocket"
)

// WebSocket upgrades a browser connection onto the viewer hub. The client
// first receives the connection state and the visible rows, then every
// frame's patches.
func (h *ViewerHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn)
	if err := client.Greet(models.MsgConnectionState, h.conn.Status()); err != nil {
		logging.Error().Err(err).Msg("Failed to encode connection state greeting")
	}
	if err := client.Greet(models.MsgSnapshot, h.sink.Snapshot(h.engine)); err != nil {
		logging.Error().Err(err).Msg("Failed to encode snapshot greeting")
	}

	select {
	case h.hub.Register <- client:
	case <-r.Context().Done():
		_ = conn.Close()
		return
	}
	client.Start()
}
