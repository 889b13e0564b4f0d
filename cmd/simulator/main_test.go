// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

//go:build !nats

package main

import (
	"testing"

	"github.com/tomtom215/livegrid/internal/config"
)

func TestInitNATSWithoutBuildTag(t *testing.T) {
	tests := []struct {
		name     string
		enabled  bool
		embedded bool
	}{
		{name: "disabled", enabled: false},
		{name: "embedded server", enabled: true, embedded: true},
		{name: "external server", enabled: true, embedded: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.NATS.Enabled = tt.enabled
			cfg.NATS.EmbeddedServer = tt.embedded
			cfg.NATS.URL = "nats://127.0.0.1:4222"
			cfg.NATS.SubjectPrefix = "livegrid.rows"

			pub, srv := initNATS(cfg)
			if pub != nil || srv != nil {
				t.Errorf("initNATS() = %v, %v, want nil, nil", pub, srv)
			}
		})
	}
}
