// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

/*
Package metrics exposes Prometheus collectors for the LiveGrid pipeline.

All collectors are registered with the default registry through promauto
and served by the viewer and simulator at /metrics:

	curl http://localhost:8080/metrics

# Engine

  - livegrid_engine_row_updates_accepted_total
  - livegrid_engine_row_updates_rejected_total{reason}
  - livegrid_engine_cell_updates_total
  - livegrid_engine_cell_updates_dropped_total
  - livegrid_engine_cell_patches_total{outcome}
  - livegrid_engine_pending_updates, livegrid_engine_active_flashes
  - livegrid_engine_throttled
  - livegrid_engine_frame_interval_seconds, livegrid_engine_batch_size

# Connection

  - livegrid_connection_state
  - livegrid_connection_reconnect_attempts_total
  - livegrid_connection_errors_total{phase}
  - livegrid_connection_messages_received_total
  - livegrid_connection_messages_malformed_total

# Fan-out and snapshots

  - livegrid_websocket_connections{hub}
  - livegrid_websocket_messages_sent_total{hub}
  - livegrid_websocket_messages_dropped_total{hub}
  - livegrid_simulator_updates_published_total{publisher}
  - livegrid_snapshot_operations_total{operation,result}
  - livegrid_circuit_breaker_state{name}

The engine also keeps its own EngineMetrics snapshot for the JSON API;
these collectors are the scrape-friendly mirror of the same numbers.
*/
package metrics
