// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

//go:build !nats

package simulator

import (
	"context"

	"github.com/tomtom215/livegrid/internal/models"
)

// NATSPublisher is a stub for non-NATS builds.
type NATSPublisher struct{}

// NewNATSPublisher returns ErrNATSNotEnabled in non-NATS builds.
func NewNATSPublisher(_, _ string) (*NATSPublisher, error) {
	return nil, ErrNATSNotEnabled
}

// Name implements Publisher.
func (p *NATSPublisher) Name() string { return "nats" }

// Publish returns ErrNATSNotEnabled.
func (p *NATSPublisher) Publish(models.RowUpdate) error { return ErrNATSNotEnabled }

// Close is a no-op stub.
func (p *NATSPublisher) Close() error { return nil }

// EmbeddedServer is a stub for non-NATS builds.
type EmbeddedServer struct{}

// NewEmbeddedServer returns ErrNATSNotEnabled in non-NATS builds.
func NewEmbeddedServer(_ string, _ int) (*EmbeddedServer, error) {
	return nil, ErrNATSNotEnabled
}

// ClientURL returns an empty string.
func (s *EmbeddedServer) ClientURL() string { return "" }

// Shutdown is a no-op stub.
func (s *EmbeddedServer) Shutdown(context.Context) error { return nil }

// IsRunning always returns false.
func (s *EmbeddedServer) IsRunning() bool { return false }
