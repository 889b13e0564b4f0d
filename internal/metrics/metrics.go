// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the update pipeline:
// - Update engine (ingestion, buffering, frame drains, throttle, flashes)
// - Upstream connection (state, reconnects, ingress validation)
// - WebSocket hub fan-out
// - Simulator output

// Rejection reasons used with EngineUpdatesRejected.
const (
	RejectUnknownRow = "unknown_row"
	RejectDestroyed  = "destroyed"
	RejectEmpty      = "empty"
)

var (
	// Engine Metrics
	EngineUpdatesAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "livegrid_engine_row_updates_accepted_total",
			Help: "Row updates that changed at least one cached field",
		},
	)

	EngineUpdatesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livegrid_engine_row_updates_rejected_total",
			Help: "Row updates dropped before touching the row cache",
		},
		[]string{"reason"}, // "unknown_row", "destroyed", "empty"
	)

	EngineCellUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "livegrid_engine_cell_updates_total",
			Help: "Cell-level changes appended to the update buffer",
		},
	)

	EngineCellUpdatesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "livegrid_engine_cell_updates_dropped_total",
			Help: "Buffered cell changes evicted by the drop-oldest policy before being drawn",
		},
	)

	EngineCellPatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livegrid_engine_cell_patches_total",
			Help: "Drained cell changes by outcome",
		},
		[]string{"outcome"}, // "written", "offscreen"
	)

	EnginePendingUpdates = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "livegrid_engine_pending_updates",
			Help: "Cell changes currently waiting in the update buffer",
		},
	)

	EngineActiveFlashes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "livegrid_engine_active_flashes",
			Help: "Cells with an active flash highlight window",
		},
	)

	EngineThrottled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "livegrid_engine_throttled",
			Help: "1 while the engine is in throttled (degraded) mode",
		},
	)

	EngineFrameInterval = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "livegrid_engine_frame_interval_seconds",
			Help:    "Time between consecutive frame ticks",
			Buckets: []float64{0.004, 0.008, 0.016, 0.025, 0.033, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	EngineBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "livegrid_engine_batch_size",
			Help:    "Cell changes drained per frame tick",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	EngineFramesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livegrid_engine_frames_skipped_total",
			Help: "Frame ticks that rescheduled without draining",
		},
		[]string{"reason"}, // "throttled", "interval"
	)

	// Connection Metrics
	ConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "livegrid_connection_state",
			Help: "Upstream connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting, 4=failed)",
		},
	)

	ConnectionReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "livegrid_connection_reconnect_attempts_total",
			Help: "Scheduled reconnect attempts",
		},
	)

	ConnectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livegrid_connection_errors_total",
			Help: "Transport errors by phase",
		},
		[]string{"phase"}, // "dial", "read", "write", "inbox_full"
	)

	ConnectionMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "livegrid_connection_messages_received_total",
			Help: "Raw messages read from the upstream transport",
		},
	)

	ConnectionMessagesMalformed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "livegrid_connection_messages_malformed_total",
			Help: "Upstream messages that failed parsing or validation",
		},
	)

	// WebSocket Hub Metrics
	WSConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "livegrid_websocket_connections",
			Help: "Current number of connected websocket clients",
		},
		[]string{"hub"},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livegrid_websocket_messages_sent_total",
			Help: "Messages queued to websocket clients",
		},
		[]string{"hub"},
	)

	WSMessagesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livegrid_websocket_messages_dropped_total",
			Help: "Messages dropped because the hub or a client queue was full",
		},
		[]string{"hub"},
	)

	// Simulator Metrics
	SimulatorUpdatesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livegrid_simulator_updates_published_total",
			Help: "Synthetic row updates published",
		},
		[]string{"publisher"},
	)

	// Snapshot Metrics
	SnapshotOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livegrid_snapshot_operations_total",
			Help: "Snapshot fetch/save/load operations by result",
		},
		[]string{"operation", "result"},
	)

	// HTTP API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livegrid_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"server", "method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "livegrid_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"server", "method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "livegrid_api_active_requests",
			Help: "Current number of active API requests",
		},
		[]string{"server"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "livegrid_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordFrame records one frame tick: the interval since the previous tick
// and how many cell changes were drained.
func RecordFrame(interval time.Duration, drained int) {
	if interval > 0 {
		EngineFrameInterval.Observe(interval.Seconds())
	}
	if drained > 0 {
		EngineBatchSize.Observe(float64(drained))
	}
}

// SetThrottled mirrors the engine throttle flag.
func SetThrottled(throttled bool) {
	if throttled {
		EngineThrottled.Set(1)
		return
	}
	EngineThrottled.Set(0)
}

// RecordSnapshot counts a snapshot operation outcome.
func RecordSnapshot(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	SnapshotOperations.WithLabelValues(operation, result).Inc()
}

// RecordAPIRequest records one completed HTTP request. endpoint is the
// route pattern, not the raw path.
func RecordAPIRequest(server, method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(server, method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(server, method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(server string, inc bool) {
	if inc {
		APIActiveRequests.WithLabelValues(server).Inc()
	} else {
		APIActiveRequests.WithLabelValues(server).Dec()
	}
}
