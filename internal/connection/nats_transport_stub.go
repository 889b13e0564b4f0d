// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

//go:build !nats

package connection

// NewNATSTransport returns ErrNATSNotEnabled in non-NATS builds.
func NewNATSTransport(_ string) (Transport, error) {
	return nil, ErrNATSNotEnabled
}
