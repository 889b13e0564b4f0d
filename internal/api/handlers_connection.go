// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package api

import (
	"net/http"

	"github.com/tomtom215/livegrid/internal/models"
)

// ConnectionStatus returns the upstream connection status.
func (h *ViewerHandler) ConnectionStatus(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, h.conn.Status(), 0)
}

// Connect starts a connection attempt. The attempt runs in the background,
// so the response carries the state at the time of the call.
func (h *ViewerHandler) Connect(w http.ResponseWriter, _ *http.Request) {
	h.conn.Connect()
	respondSuccess(w, http.StatusAccepted, h.conn.Status(), 0)
}

// Disconnect closes the connection and cancels any pending reconnect.
func (h *ViewerHandler) Disconnect(w http.ResponseWriter, _ *http.Request) {
	h.conn.Disconnect()
	respondSuccess(w, http.StatusOK, h.conn.Status(), 0)
}

// Subscribe adds symbols to the upstream interest set.
func (h *ViewerHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	h.changeSubscriptions(w, r, h.conn.Subscribe)
}

// Unsubscribe removes symbols from the upstream interest set.
func (h *ViewerHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	h.changeSubscriptions(w, r, h.conn.Unsubscribe)
}

func (h *ViewerHandler) changeSubscriptions(w http.ResponseWriter, r *http.Request, apply func([]string) error) {
	var req models.SubscriptionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	// The interest set is updated even when telling the producer fails;
	// it is re-sent on the next connect.
	if err := apply(req.Symbols); err != nil {
		respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Failed to update upstream subscription", err)
		return
	}
	status := h.conn.Status()
	respondSuccess(w, http.StatusOK, status, len(status.Symbols))
}
