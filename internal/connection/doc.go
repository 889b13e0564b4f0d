// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

/*
Package connection owns the upstream real-time transport: dialing,
reconnect with exponential backoff, the subscription interest set and
ingress validation of row updates before they reach the engine.

# State machine

	disconnected -> connecting -> connected
	connecting|connected --error--> reconnecting   (reconnect on, attempts left)
	                               failed          (reconnect on, attempts exhausted)
	                               disconnected    (reconnect off)
	reconnecting --timer--> connecting

failed is terminal until Connect is called. Disconnect cancels any pending
reconnect and no automatic retry follows it.

Reconnect delay for attempt i is min(MaxReconnectDelay, ReconnectDelay*2^i).
The attempt counter resets only when a connection is fully established or
on a manual Connect.

# Transports

WebSocketTransport (gorilla/websocket) is always available and speaks the
envelope protocol from internal/models. NATSTransport subscribes to
"<prefix>.<symbol>" subjects and is compiled with -tags nats; without the tag
NewNATSTransport returns ErrNATSNotEnabled.

# Ingress

ParseMessage accepts {"type":"row_update","data":{...}} envelopes or a bare
RowUpdate object. Control messages return ErrIgnoredMessage; anything that
fails decoding or validation returns ErrMalformedMessage and is counted.
*/
package connection
