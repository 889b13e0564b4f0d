// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package simulator

import (
	"errors"

	"github.com/tomtom215/livegrid/internal/models"
)

// ErrNATSNotEnabled is returned by NATS constructors in builds without the
// nats tag.
var ErrNATSNotEnabled = errors.New("NATS support not enabled (build with -tags nats)")

// Publisher delivers generated updates to consumers.
type Publisher interface {
	Name() string
	Publish(u models.RowUpdate) error
}

// StreamHub is satisfied by *websocket.Hub.
type StreamHub interface {
	Publish(symbol, msgType string, data interface{})
}

// HubPublisher sends each update as a row_update message to the websocket
// clients subscribed to its row.
type HubPublisher struct {
	hub StreamHub
}

// NewHubPublisher creates a publisher over hub.
func NewHubPublisher(hub StreamHub) *HubPublisher {
	return &HubPublisher{hub: hub}
}

// Name implements Publisher.
func (p *HubPublisher) Name() string { return "websocket" }

// Publish implements Publisher.
func (p *HubPublisher) Publish(u models.RowUpdate) error {
	p.hub.Publish(string(u.RowID), models.MsgRowUpdate, u)
	return nil
}
