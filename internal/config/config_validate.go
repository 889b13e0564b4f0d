// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package config

import (
	"fmt"
	"net/url"

	"github.com/tomtom215/livegrid/internal/validation"
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Validate checks struct tags first, then the cross-field rules tags
// cannot express.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateConnection(); err != nil {
		return err
	}

	if err := c.validateSnapshot(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateNATS(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateConnection checks the reconnect window and that the URL scheme
// matches the transport.
func (c *Config) validateConnection() error {
	if c.Connection.MaxReconnectDelay < c.Connection.ReconnectDelay {
		return fmt.Errorf("MAX_RECONNECT_DELAY (%s) must be >= RECONNECT_DELAY (%s)",
			c.Connection.MaxReconnectDelay, c.Connection.ReconnectDelay)
	}

	u, err := url.Parse(c.Connection.URL)
	if err != nil {
		return fmt.Errorf("FEED_URL is invalid: %w", err)
	}
	switch c.Connection.Transport {
	case "websocket":
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("FEED_URL must be ws:// or wss:// for the websocket transport, got %s", u.Scheme)
		}
	case "nats":
		if err := validateNATSURL(c.Connection.URL); err != nil {
			return fmt.Errorf("FEED_URL is invalid for the nats transport: %w", err)
		}
	}
	return nil
}

// validateSnapshot validates snapshot settings (only if enabled)
func (c *Config) validateSnapshot() error {
	if !c.Snapshot.Enabled {
		return nil
	}
	if c.Snapshot.URL == "" {
		return fmt.Errorf("SNAPSHOT_URL is required when SNAPSHOT_ENABLED=true")
	}
	return validateHTTPURL(c.Snapshot.URL, "SNAPSHOT_URL")
}

// validateServer validates both listen ports and the rate limit window.
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Simulator.Port < 1 || c.Simulator.Port > 65535 {
		return fmt.Errorf("SIM_PORT must be between 1 and 65535")
	}
	if c.Server.RateLimitDisabled {
		return nil
	}
	if c.Server.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1 (or set DISABLE_RATE_LIMIT=true)")
	}
	if c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

// validateNATS validates NATS configuration (only if enabled)
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.EmbeddedServer {
		if c.NATS.Port < 1 || c.NATS.Port > 65535 {
			return fmt.Errorf("NATS_PORT must be between 1 and 65535")
		}
		return nil
	}
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	return nil
}

// validateLogging validates the logging configuration
func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
