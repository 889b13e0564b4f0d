// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

/*
Package config provides layered configuration for the viewer and simulator.

Configuration is loaded with Koanf v2 from defaults, an optional YAML file
(CONFIG_PATH, ./config.yaml or /etc/livegrid/config.yaml) and environment
variables, in increasing order of precedence. Validate runs the
go-playground validator over the struct tags and then the cross-field
rules.

# Environment Variables

Engine:
  - FLASH_DURATION: highlight duration (default: 500ms)
  - BATCH_INTERVAL: minimum time between frames (default: 16ms)
  - ENABLE_FLASH: directional highlights (default: true)
  - MAX_UPDATES_PER_FRAME: patches drained per frame (default: 100)
  - CPU_THRESHOLD: fraction of the frame budget before throttling (default: 0.8)
  - MAX_BUFFER_SIZE: pending patch bound, 0 for unbounded (default: 10000)

Connection:
  - FEED_TRANSPORT: websocket or nats (default: websocket)
  - FEED_URL: upstream URL (default: ws://127.0.0.1:8090/ws)
  - RECONNECT, RECONNECT_DELAY, MAX_RECONNECT_DELAY, RECONNECT_ATTEMPTS
  - DIAL_TIMEOUT: per-attempt dial timeout (default: 10s)
  - FEED_SYMBOLS: comma-separated interest set (default: *)

Snapshot:
  - SNAPSHOT_ENABLED, SNAPSHOT_URL (default: http://127.0.0.1:8090)
  - SNAPSHOT_TIMEOUT, SNAPSHOT_STORE_PATH, SNAPSHOT_SAVE_INTERVAL

Viewer HTTP:
  - HTTP_HOST, HTTP_PORT (default: 8080), HTTP_TIMEOUT
  - CORS_ORIGINS, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
  - VISIBLE_ROWS: rows counted as on screen, 0 for all (default: 50)

Simulator:
  - SIM_HOST, SIM_PORT (default: 8090)
  - SIM_SYMBOLS (default: 100), SIM_PREFIX (default: SYM)
  - SIM_RATE: updates per second (default: 1000)
  - SIM_MAX_FIELDS, SIM_VOLATILITY, SIM_SEED

NATS (-tags nats builds):
  - NATS_ENABLED, NATS_URL, NATS_EMBEDDED, NATS_HOST, NATS_PORT
  - NATS_SUBJECT_PREFIX (default: livegrid.rows)

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Usage

	cfg, err := config.LoadWithKoanf()
	if err != nil {
	    log.Fatal(err)
	}
	eng := engine.New(cfg.EngineSettings())
*/
package config
