// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package models

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// RowID identifies a row. Upstream producers may send either a string or a
// number; both are normalized to their string form on decode.
type RowID string

// String implements fmt.Stringer.
func (id RowID) String() string {
	return string(id)
}

// UnmarshalJSON accepts `"SYM001"`, `42` and `42.0`.
func (id *RowID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("row id: %w", err)
		}
		*id = RowID(s)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("row id must be a string or number: %w", err)
	}
	*id = RowID(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// RowRecord is one row of the live dataset: an identity plus an open
// field->value mapping. On the wire the fields are flattened next to "id".
type RowRecord struct {
	ID     RowID
	Fields map[string]interface{}
}

// NewRowRecord builds a record from an id and its fields.
func NewRowRecord(id RowID, fields map[string]interface{}) RowRecord {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	return RowRecord{ID: id, Fields: fields}
}

// Get returns the value of field and whether it is present.
func (r RowRecord) Get(field string) (interface{}, bool) {
	v, ok := r.Fields[field]
	return v, ok
}

// Clone returns a copy whose field map can be mutated independently.
// Values themselves are shared; the pipeline treats them as immutable.
func (r RowRecord) Clone() RowRecord {
	fields := make(map[string]interface{}, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return RowRecord{ID: r.ID, Fields: fields}
}

// MarshalJSON flattens the record: {"id": ..., "price": ..., ...}.
func (r RowRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["id"] = r.ID
	return json.Marshal(out)
}

// UnmarshalJSON reads a flattened record. The "id" key is required.
func (r *RowRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("row record: %w", err)
	}
	idRaw, ok := raw["id"]
	if !ok {
		return fmt.Errorf("row record: missing id")
	}
	var id RowID
	if err := id.UnmarshalJSON(idRaw); err != nil {
		return err
	}
	delete(raw, "id")

	fields := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		var val interface{}
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("row record field %q: %w", k, err)
		}
		fields[k] = val
	}
	r.ID = id
	r.Fields = fields
	return nil
}

// RowUpdate is the ingress message: a set of field changes for one row.
// Timestamp is epoch milliseconds as sent by the producer.
type RowUpdate struct {
	RowID     RowID                  `json:"rowId" validate:"required"`
	Updates   map[string]interface{} `json:"updates" validate:"required,min=1"`
	Timestamp int64                  `json:"timestamp" validate:"gte=0"`
}

// CellUpdate is one accepted field change waiting for visual application.
type CellUpdate struct {
	RowID     RowID       `json:"rowId"`
	Field     string      `json:"field"`
	OldValue  interface{} `json:"oldValue"`
	NewValue  interface{} `json:"newValue"`
	Timestamp int64       `json:"timestamp"`
}

// CellKey addresses a single cell. Used as the flash window map key.
type CellKey struct {
	RowID RowID
	Field string
}

// Key returns the cell key of the update.
func (u CellUpdate) Key() CellKey {
	return CellKey{RowID: u.RowID, Field: u.Field}
}
