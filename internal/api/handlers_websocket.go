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
)

// originPolicy decides which websocket upgrades are accepted.
type originPolicy struct {
	allowed []string
	// allowMissing accepts requests without an Origin header. Browsers
	// always send one; upstream consumers such as the viewer do not.
	allowMissing bool
}

// newUpgrader creates a WebSocket upgrader with origin checking and timeouts.
func newUpgrader(policy originPolicy) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      policy.check,
	}
}

func (p originPolicy) check(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	if origin == "" {
		if !p.allowMissing {
			logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		}
		return p.allowMissing
	}

	for _, allowed := range p.allowed {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected: origin not allowed")
	return false
}
