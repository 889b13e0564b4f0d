// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package main

import (
	"fmt"

	"github.com/tomtom215/livegrid/internal/config"
	"github.com/tomtom215/livegrid/internal/connection"
)

// newTransport picks the feed transport. The nats transport returns
// connection.ErrNATSNotEnabled unless the binary is built with -tags nats.
func newTransport(cfg *config.Config) (connection.Transport, error) {
	switch cfg.Connection.Transport {
	case "nats":
		t, err := connection.NewNATSTransport(cfg.NATS.SubjectPrefix)
		if err != nil {
			return nil, fmt.Errorf("nats transport: %w", err)
		}
		return t, nil
	case "websocket", "":
		return connection.NewWebSocketTransport(), nil
	default:
		return nil, fmt.Errorf("unknown feed transport %q", cfg.Connection.Transport)
	}
}
