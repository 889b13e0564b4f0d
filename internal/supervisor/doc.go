// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

/*
Package supervisor provides process supervision for the viewer and the
simulator using suture v4.

# Overview

Both binaries build the same three-layer tree:

	Root ("viewer" or "simulator")
	├── ingest-layer
	│   ├── connection-manager       (viewer)
	│   ├── simulator                (simulator)
	│   └── nats-server              (simulator, -tags nats with NATS_EMBEDDED)
	├── render-layer
	│   ├── update-engine            (viewer)
	│   ├── websocket-hub-<name>
	│   └── snapshot-saver           (viewer, when a store path is set)
	└── api-layer
	    └── viewer-http / simulator-http

A failing upstream connection is restarted inside the ingest layer while
the HTTP API keeps serving the last known rows.

# Usage

	logger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree("viewer", logger, supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddIngestService(manager)
	tree.AddRenderService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService("viewer-http", server, 10*time.Second))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

# Failure Handling

Each failure increments a counter that decays over FailureDecay seconds.
Past FailureThreshold the supervisor waits FailureBackoff before the next
restart. Services return ctx.Err() on shutdown and suture.ErrDoNotRestart
when a restart cannot help.

Supervisor events are logged through sutureslog into the zerolog logger
(see logging.NewSlogLogger).

If services do not stop within ShutdownTimeout, UnstoppedServiceReport
lists them.
*/
package supervisor
