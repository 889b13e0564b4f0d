// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

/*
Package snapshot keeps the viewer's row cache consistent with the producer
across restarts and outages.

Components:

  - Client: GET /api/v1/rows on the producer, behind a sony/gobreaker
    circuit breaker so a dead producer is not hammered during reconnects.
  - Store: BadgerDB last-value store. Rows live under "row:<position>" so a
    prefix scan returns them in row order.
  - Syncer: Bootstrap initializes the engine (producer first, stored
    snapshot as fallback); HandleConnect retries Bootstrap on each
    connection until one succeeds, then resyncs after every reconnect by
    feeding producer rows through ProcessUpdate. OnInitialize hooks run
    after each successful load.
  - Saver: suture service persisting the row cache on an interval and on
    shutdown.
*/
package snapshot
