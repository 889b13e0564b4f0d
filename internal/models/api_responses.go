// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package models

import (
	"time"
)

// APIResponse is the envelope used by every HTTP endpoint.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": [{"id": "SYM001", "price": 101.25}],
//	  "metadata": {"timestamp": "2026-01-10T12:00:00Z", "count": 1}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count,omitempty"`
}

// APIError represents an error response with structured error details.
//
// Common error codes:
//   - VALIDATION_ERROR: Invalid input parameters
//   - NOT_FOUND: Resource doesn't exist
//   - CONFLICT: Operation not valid in the current state
//   - RATE_LIMIT_EXCEEDED: Too many requests
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// EngineMetrics is the read-only metrics surface of the update engine.
type EngineMetrics struct {
	AvgFrameTime    float64 `json:"avgFrameTime"`
	FPS             float64 `json:"fps"`
	PendingUpdates  int     `json:"pendingUpdates"`
	ActiveFlashes   int     `json:"activeFlashes"`
	RowCount        int     `json:"rowCount"`
	IsThrottled     bool    `json:"isThrottled"`
	DroppedUpdates  uint64  `json:"droppedUpdates"`
	RejectedUpdates uint64  `json:"rejectedUpdates"`
}

// ConnectionStatus describes the upstream connection for the API.
type ConnectionStatus struct {
	State             ConnectionState `json:"state"`
	URL               string          `json:"url"`
	ReconnectAttempts int             `json:"reconnectAttempts"`
	MessagesReceived  uint64          `json:"messagesReceived"`
	MalformedMessages uint64          `json:"malformedMessages"`
	Symbols           []string        `json:"symbols"`
	SessionID         string          `json:"sessionId,omitempty"`
}

// HealthStatus is returned by /api/v1/health on both binaries. Fields that
// do not apply to a binary are omitted.
type HealthStatus struct {
	Status     string  `json:"status"`
	Service    string  `json:"service"`
	Version    string  `json:"version"`
	Uptime     float64 `json:"uptime"`
	Connection string  `json:"connection,omitempty"`
	Snapshot   string  `json:"snapshot,omitempty"`
	Rows       int     `json:"rows"`
	Clients    int     `json:"clients"`
	Paused     bool    `json:"paused,omitempty"`
	Throttled  bool    `json:"throttled,omitempty"`
}

// EngineState is returned by the pause and resume endpoints.
type EngineState struct {
	Paused    bool `json:"paused"`
	Throttled bool `json:"throttled"`
}

// VisibleRowsRequest replaces the set of rendered rows. An empty list
// returns to the configured leading window.
type VisibleRowsRequest struct {
	RowIDs []RowID `json:"rowIds" validate:"max=10000,dive,required"`
}

// VisibleRowsResponse reports the rendered rows after a change and the
// rows that were re-sent because they just became visible.
type VisibleRowsResponse struct {
	Visible  []RowID `json:"visible"`
	Revealed []RowID `json:"revealed"`
}

// RateRequest changes the simulator publish rate.
type RateRequest struct {
	PerSecond float64 `json:"perSecond" validate:"gt=0,lte=1000000"`
}

// RateStatus describes the simulator publish rate.
type RateStatus struct {
	PerSecond float64 `json:"perSecond"`
	Published uint64  `json:"published"`
	Symbols   int     `json:"symbols"`
}
