// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package models

import "github.com/goccy/go-json"

// Websocket message types.
const (
	// Producer -> consumer
	MsgRowUpdate  = "row_update"
	MsgPong       = "pong"
	MsgSubscribed = "subscribed"
	MsgError      = "error"

	// Consumer -> producer
	MsgSubscribe   = "subscribe"
	MsgUnsubscribe = "unsubscribe"
	MsgPing        = "ping"

	// Viewer -> browser
	MsgSnapshot        = "snapshot"
	MsgCellPatch       = "cell_patch"
	MsgCellFlash       = "cell_flash"
	MsgConnectionState = "connection_state"
)

// WildcardSymbol subscribes to every row.
const WildcardSymbol = "*"

// Envelope is the inbound framing of every websocket message. Data is left
// raw so the payload is decoded only once the type is known.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// OutboundMessage is the outbound framing.
type OutboundMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// SubscriptionRequest is the payload of subscribe and unsubscribe messages
// and of the subscriptions API.
type SubscriptionRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=1,max=1000,dive,symbol|eq=*"`
}

// ErrorData is the payload of an error message.
type ErrorData struct {
	Message string `json:"message"`
}

// CellPatch is one rendered cell change sent to browser clients.
type CellPatch struct {
	RowID RowID  `json:"rowId"`
	Field string `json:"field"`
	Text  string `json:"text"`
	Flash string `json:"flash,omitempty"`
}

// FramePatch groups the cell patches of one engine frame.
type FramePatch struct {
	Patches []CellPatch   `json:"patches"`
	Cleared []CellKeyJSON `json:"cleared,omitempty"`
}

// CellKeyJSON is the wire form of a CellKey.
type CellKeyJSON struct {
	RowID RowID  `json:"rowId"`
	Field string `json:"field"`
}
