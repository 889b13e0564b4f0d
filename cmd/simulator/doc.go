// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

/*
Command simulator is a synthetic market-data producer for the viewer.

It generates random-walk quotes for SIM_SYMBOLS rows at SIM_RATE updates
per second and serves them the way a real producer would:

	GET  /api/v1/rows     full snapshot (bootstrap and resync source)
	GET  /api/v1/rate     current pacing and counters
	PUT  /api/v1/rate     change the update rate
	GET  /api/v1/health
	GET  /ws              row_update stream, filtered by subscribe messages
	GET  /metrics         Prometheus metrics

# Supervisor Tree

	RootSupervisor ("simulator")
	├── IngestSupervisor ("ingest-layer")
	│   ├── Embedded NATS server (optional, -tags nats)
	│   └── Runner (token bucket pacing, fan-out to publishers)
	├── RenderSupervisor ("render-layer")
	│   └── WebSocket Hub (stream clients)
	└── APISupervisor ("api-layer")
	    └── HTTP Server

# NATS

Built with -tags nats and NATS_ENABLED=true, every update is also published
on NATS_SUBJECT_PREFIX.<rowId>. NATS_EMBEDDED=true starts an in-process
server on NATS_HOST:NATS_PORT; otherwise NATS_URL is used.

	go build -tags nats ./cmd/simulator

Without the tag a warning is logged and only the websocket stream runs.

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains, the
runner stops pacing and the NATS publisher is drained before exit.
*/
package main
