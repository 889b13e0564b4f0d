// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

/*
Package websocket provides the server side of the live update streams.

Two binaries use it. The simulator runs a "stream" hub that publishes
row_update messages to upstream consumers, filtered by each client's
interest set. The viewer runs a "viewer" hub that broadcasts rendered
cell_patch and cell_flash frames to browser clients.

Key Components:

  - Hub: owns the client set and fans pre-encoded messages out to it
  - Client: one websocket connection with its read and write goroutines
    and its symbol interest set

Architecture:

	┌──────────┐
	│   Hub    │ ← Broadcast (every client) / Publish (interested clients)
	└────┬─────┘
	     │
	┌────┴─────┬─────────┬─────────┐
	│ Client1  │ Client2 │ Client3 │
	│ {SYM001} │ {*}     │ {}      │
	└──────────┴─────────┴─────────┘

Client Protocol:

	→ {"type":"subscribe","data":{"symbols":["SYM001","SYM002"]}}
	← {"type":"subscribed","data":{"symbols":["SYM001","SYM002"]}}
	→ {"type":"unsubscribe","data":{"symbols":["SYM002"]}}
	→ {"type":"ping"}
	← {"type":"pong"}

"*" subscribes to every symbol. Invalid requests are answered with an
error message; the connection stays open.

Backpressure:

Each client has a 256-message send queue. A client that falls behind is
disconnected instead of slowing the hub; drops are counted in
livegrid_websocket_messages_dropped_total{hub}.

Connection settings:

  - writeWait: 10 seconds
  - pongWait: 60 seconds
  - pingPeriod: 54 seconds
  - maxMessageSize: 512 KB

See Also:

  - internal/api: websocket upgrade endpoints
  - internal/render: viewer frames sent through the hub
  - internal/simulator: stream publisher
*/
package websocket
