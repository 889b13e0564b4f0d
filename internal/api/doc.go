// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

/*
Package api provides the HTTP surfaces of the viewer and the simulator,
both built on the Chi router.

# Viewer

	GET    /api/v1/health                 overall health
	GET    /api/v1/health/live            liveness
	GET    /api/v1/health/ready           readiness (rows loaded)
	GET    /api/v1/rows                   Row Cache snapshot, ?symbols=A,B filters
	GET    /api/v1/rows/{id}              one row
	GET    /api/v1/metrics                engine metrics
	GET    /api/v1/connection             upstream connection status
	POST   /api/v1/connection/connect     start (or restart) the connection
	POST   /api/v1/connection/disconnect  close the connection, stop reconnecting
	POST   /api/v1/subscriptions          add symbols to the interest set
	DELETE /api/v1/subscriptions          remove symbols from the interest set
	POST   /api/v1/engine/pause           stop applying frames
	POST   /api/v1/engine/resume          apply buffered frames again
	PUT    /api/v1/render/visible         replace the rendered row set
	GET    /ws                            browser patch stream
	GET    /metrics                       Prometheus

Browser clients on /ws receive a snapshot of the visible rows first, then
cell_patch, cell_flash, snapshot and connection_state messages.

# Simulator

	GET /api/v1/health  health
	GET /api/v1/rows    current generator rows (the snapshot the viewer resyncs from)
	GET /api/v1/rate    publish rate
	PUT /api/v1/rate    change the publish rate
	GET /ws             row_update stream, filtered by each client's subscriptions
	GET /metrics        Prometheus

All JSON responses use the models.APIResponse envelope.
*/
package api
