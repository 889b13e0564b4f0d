// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package models

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/goccy/go-json"
)

// Direction is the sign of a numeric change, used for flash highlights.
type Direction int

const (
	// DirectionNone clears a highlight.
	DirectionNone Direction = iota
	DirectionUp
	DirectionDown
)

// String returns "up", "down" or "none".
func (d Direction) String() string {
	switch d {
	case DirectionUp:
		return "up"
	case DirectionDown:
		return "down"
	default:
		return "none"
	}
}

// MarshalJSON encodes the direction as its string form.
func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// AsNumber reports whether v is numeric and returns it as float64.
// json.Number is accepted so callers can decode with UseNumber.
func AsNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// exactInt returns an integer value as magnitude and sign so int64 and
// uint64 values beyond float64 precision compare exactly.
func exactInt(v interface{}) (mag uint64, neg, ok bool) {
	var i int64
	switch n := v.(type) {
	case int:
		i = int64(n)
	case int8:
		i = int64(n)
	case int16:
		i = int64(n)
	case int32:
		i = int64(n)
	case int64:
		i = n
	case uint:
		return uint64(n), false, true
	case uint8:
		return uint64(n), false, true
	case uint16:
		return uint64(n), false, true
	case uint32:
		return uint64(n), false, true
	case uint64:
		return n, false, true
	case json.Number:
		if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
			return u, false, true
		}
		p, err := n.Int64()
		if err != nil {
			return 0, false, false
		}
		i = p
	default:
		return 0, false, false
	}
	if i < 0 {
		return uint64(-(i + 1)) + 1, true, true
	}
	return uint64(i), false, true
}

// compareInts orders two exact integers, returning -1, 0 or 1. ok is false
// unless both are integers.
func compareInts(a, b interface{}) (cmp int, ok bool) {
	ma, na, okA := exactInt(a)
	mb, nb, okB := exactInt(b)
	if !okA || !okB {
		return 0, false
	}
	switch {
	case na != nb:
		if na {
			return -1, true
		}
		return 1, true
	case ma == mb:
		return 0, true
	case (ma < mb) != na:
		return -1, true
	default:
		return 1, true
	}
}

// ValuesEqual decides whether a write is a no-op. Numbers compare by value
// regardless of Go type (1 == 1.0), comparable values with ==, and maps or
// slices decoded from JSON structurally. Two integers compare exactly.
func ValuesEqual(a, b interface{}) bool {
	if cmp, ok := compareInts(a, b); ok {
		return cmp == 0
	}
	if na, ok := AsNumber(a); ok {
		nb, ok := AsNumber(b)
		return ok && na == nb
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// ChangeDirection returns up if next > prev, down otherwise. Both values must be numeric.
func ChangeDirection(prev, next interface{}) (Direction, bool) {
	if cmp, ok := compareInts(next, prev); ok {
		if cmp > 0 {
			return DirectionUp, true
		}
		return DirectionDown, true
	}
	p, ok := AsNumber(prev)
	if !ok {
		return DirectionNone, false
	}
	n, ok := AsNumber(next)
	if !ok {
		return DirectionNone, false
	}
	if n > p {
		return DirectionUp, true
	}
	return DirectionDown, true
}

// FormatValue renders a cell value as display text: floats with two
// decimals, integral types plainly, nil as the empty string.
func FormatValue(v interface{}) string {
	switch n := v.(type) {
	case nil:
		return ""
	case string:
		return n
	case float64:
		return strconv.FormatFloat(n, 'f', 2, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', 2, 32)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	case json.Number:
		return n.String()
	case bool:
		return strconv.FormatBool(n)
	default:
		return fmt.Sprint(v)
	}
}
