// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

//go:build !nats

package main

import (
	"errors"
	"testing"

	"github.com/tomtom215/livegrid/internal/config"
	"github.com/tomtom215/livegrid/internal/connection"
)

func TestNewTransport(t *testing.T) {
	tests := []struct {
		name      string
		transport string
		wantErr   error
		wantAny   bool
	}{
		{name: "websocket", transport: "websocket"},
		{name: "empty defaults to websocket", transport: ""},
		{name: "nats without build tag", transport: "nats", wantErr: connection.ErrNATSNotEnabled},
		{name: "unknown", transport: "udp", wantAny: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Connection.Transport = tt.transport
			cfg.NATS.SubjectPrefix = "livegrid.rows"

			tr, err := newTransport(cfg)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("newTransport() error = %v, want %v", err, tt.wantErr)
				}
			case tt.wantAny:
				if err == nil {
					t.Fatal("newTransport() error = nil, want error")
				}
			default:
				if err != nil {
					t.Fatalf("newTransport() error = %v", err)
				}
				if _, ok := tr.(*connection.WebSocketTransport); !ok {
					t.Errorf("newTransport() = %T, want *connection.WebSocketTransport", tr)
				}
			}
		})
	}
}
