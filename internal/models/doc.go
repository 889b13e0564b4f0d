// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

/*
Package models defines the data structures shared by the viewer, the
simulator and their HTTP and websocket surfaces.

Key Components:

  - RowID, RowRecord: a row's identity and its flat field map. RowRecord
    marshals as {"id": ..., <field>: <value>, ...}.
  - RowUpdate: a partial update (rowId, updates, timestamp) as it arrives
    from the feed.
  - CellUpdate, CellKey: one changed cell with its previous value and
    direction, as delivered to cell subscribers.
  - Direction: the highlight of a numeric change, from ChangeDirection.
  - ConnectionState, ConnectionStatus: upstream connection lifecycle.
  - Envelope, OutboundMessage: {"type", "data"} websocket framing, with the
    Msg* constants naming every message type.
  - FramePatch, CellPatch: one rendered frame as sent to browsers.
  - APIResponse, APIError, Metadata: the REST envelope.

Value Semantics:

Field values are JSON values. AsNumber accepts every Go numeric type and
json.Number; numeric strings stay strings. ValuesEqual compares numbers by
value so 1 and 1.0 are equal. FormatValue renders floats with two decimals
and nil as an empty string.

Thread Safety:

Models are plain values. RowRecord.Clone copies the field map; callers that
hand records across goroutines clone first.
*/
package models
