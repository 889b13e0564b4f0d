// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package connection

import (
	"context"
	"errors"
)

var (
	// ErrNotConnected is returned by Conn methods after Close.
	ErrNotConnected = errors.New("not connected")

	// ErrNATSNotEnabled is returned when the binary was built without -tags nats.
	ErrNATSNotEnabled = errors.New("NATS transport not enabled (build with -tags nats)")
)

// Transport dials an upstream feed.
type Transport interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is an established upstream connection. ReadMessage is called from a
// single goroutine; SetInterest and Close may be called concurrently with it.
type Conn interface {
	// ReadMessage blocks until the next raw message or a terminal error.
	ReadMessage() ([]byte, error)

	// SetInterest adds (subscribe=true) or removes symbols from the set the
	// producer delivers on this connection.
	SetInterest(subscribe bool, symbols []string) error

	Close() error
}
