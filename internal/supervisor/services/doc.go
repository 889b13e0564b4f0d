// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

/*
Package services provides suture.Service wrappers for components whose
lifecycle is not already a Serve(ctx) method.

  - HTTPServerService: ListenAndServe with graceful Shutdown
  - WebSocketHubService: names a hub for supervisor logs
  - EngineService: destroys the update engine after background resyncs finish
  - NATSServerService: shuts the embedded NATS server down with the tree

The connection manager, simulator runner and snapshot saver implement
suture.Service themselves and are added to the tree directly.

Return behavior follows suture: ctx.Err() on shutdown, an error to be
restarted, suture.ErrDoNotRestart to stay down.
*/
package services
