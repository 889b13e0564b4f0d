// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package services

import (
	"context"
	"errors"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/livegrid/internal/logging"
)

// ErrNATSServerNotRunning is logged when the embedded server stopped on
// its own. It cannot be restarted in place.
var ErrNATSServerNotRunning = errors.New("embedded NATS server is not running")

// EmbeddedNATSServer matches *simulator.EmbeddedServer.
type EmbeddedNATSServer interface {
	Shutdown(ctx context.Context) error
	IsRunning() bool
}

// NATSServerService ties an already started embedded NATS server to the
// supervisor so it is shut down with the tree.
type NATSServerService struct {
	server          EmbeddedNATSServer
	shutdownTimeout time.Duration
	pollInterval    time.Duration
}

// NewNATSServerService creates a new embedded NATS server service.
func NewNATSServerService(server EmbeddedNATSServer, shutdownTimeout time.Duration) *NATSServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &NATSServerService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		pollInterval:    time.Second,
	}
}

// Serve implements suture.Service. A server that dies is reported once and
// not restarted.
func (s *NATSServerService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		if !s.server.IsRunning() {
			logging.Error().Err(ErrNATSServerNotRunning).Msg("NATS stream stopped, simulator continues on websocket only")
			return suture.ErrDoNotRestart
		}
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
			defer cancel()
			if err := s.server.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// String implements fmt.Stringer for logging.
func (s *NATSServerService) String() string {
	return "nats-server"
}
