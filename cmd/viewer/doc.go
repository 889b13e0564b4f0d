// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

/*
Command viewer subscribes to a row update feed, batches the updates into
frames and pushes cell patches and flash highlights to browser clients.

# Application Architecture

	RootSupervisor ("viewer")
	├── IngestSupervisor ("ingest-layer")
	│   └── Connection Manager (websocket or nats transport, backoff)
	├── RenderSupervisor ("render-layer")
	│   ├── Update Engine (destroyed on shutdown after pending resyncs)
	│   ├── WebSocket Hub (browser clients)
	│   └── Snapshot Saver (badger warm-start store, optional)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi router)

Startup order:

 1. Configuration: Koanf v2 (defaults, config file, environment)
 2. Logging: zerolog, bridged to slog for the supervisor
 3. Render pipeline: hub, hub sink and engine
 4. Snapshot: fetch rows from SNAPSHOT_URL, falling back to the store
 5. Connection manager with the FEED_SYMBOLS interest set
 6. HTTP server and supervisor tree

After every reconnect except the first, the snapshot is fetched again and
replayed through the engine so cells changed during the outage flash.

# Build Tags

	go build ./cmd/viewer              # websocket feed only
	go build -tags nats ./cmd/viewer   # FEED_TRANSPORT=nats available

# Signal Handling

SIGINT and SIGTERM cancel the root context. Services get the supervisor's
shutdown timeout to stop; those that do not are logged.
*/
package main
