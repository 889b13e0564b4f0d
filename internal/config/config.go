// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package config

import (
	"time"

	"github.com/tomtom215/livegrid/internal/connection"
	"github.com/tomtom215/livegrid/internal/engine"
	"github.com/tomtom215/livegrid/internal/logging"
	"github.com/tomtom215/livegrid/internal/snapshot"
)

// Config holds configuration for both binaries. The viewer reads engine,
// connection, snapshot, render and server; the simulator reads simulator
// and nats. Logging is shared.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values from defaultConfig
//  2. Config File: optional YAML file (CONFIG_PATH or the default paths)
//  3. Environment Variables: override any setting
type Config struct {
	Engine     EngineConfig     `koanf:"engine"`
	Connection ConnectionConfig `koanf:"connection"`
	Snapshot   SnapshotConfig   `koanf:"snapshot"`
	Render     RenderConfig     `koanf:"render"`
	Server     ServerConfig     `koanf:"server"`
	Simulator  SimulatorConfig  `koanf:"simulator"`
	NATS       NATSConfig       `koanf:"nats"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// EngineConfig mirrors engine.Config.
type EngineConfig struct {
	FlashDuration         time.Duration `koanf:"flash_duration" validate:"gt=0"`
	BatchInterval         time.Duration `koanf:"batch_interval" validate:"gte=0"`
	EnableFlash           bool          `koanf:"enable_flash"`
	MaxUpdatesPerFrame    int           `koanf:"max_updates_per_frame" validate:"gte=1"`
	CPUThreshold          float64       `koanf:"cpu_threshold" validate:"gt=0,lte=1"`
	MaxBufferSize         int           `koanf:"max_buffer_size" validate:"gte=0"`
	EnableLiveSorting     bool          `koanf:"enable_live_sorting"`
	EnableRankingMovement bool          `koanf:"enable_ranking_movement"`
}

// ConnectionConfig describes the upstream feed.
type ConnectionConfig struct {
	// Transport is "websocket" or "nats". NATS needs a -tags nats build.
	Transport         string        `koanf:"transport" validate:"oneof=websocket nats"`
	URL               string        `koanf:"url" validate:"required,streamurl"`
	Reconnect         bool          `koanf:"reconnect"`
	ReconnectDelay    time.Duration `koanf:"reconnect_delay" validate:"gt=0"`
	MaxReconnectDelay time.Duration `koanf:"max_reconnect_delay" validate:"gt=0"`
	ReconnectAttempts int           `koanf:"reconnect_attempts" validate:"gte=0"`
	DialTimeout       time.Duration `koanf:"dial_timeout" validate:"gt=0"`
	// Symbols is the initial interest set. "*" selects every row.
	Symbols []string `koanf:"symbols" validate:"dive,required"`
}

// SnapshotConfig controls bootstrap, resync and warm start.
type SnapshotConfig struct {
	Enabled      bool          `koanf:"enabled"`
	URL          string        `koanf:"url"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"`
	StorePath    string        `koanf:"store_path"`
	SaveInterval time.Duration `koanf:"save_interval" validate:"gt=0"`
}

// RenderConfig sizes the visible-row window of the hub sink.
type RenderConfig struct {
	// VisibleRows is how many leading rows count as on screen. 0 means all.
	VisibleRows int `koanf:"visible_rows" validate:"gte=0"`
}

// ServerConfig holds the viewer's HTTP settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// SimulatorConfig drives the synthetic producer.
type SimulatorConfig struct {
	Host               string  `koanf:"host"`
	Port               int     `koanf:"port"`
	Symbols            int     `koanf:"symbols" validate:"gte=1,lte=100000"`
	Prefix             string  `koanf:"prefix" validate:"required,symbol"`
	Rate               float64 `koanf:"rate" validate:"gt=0"`
	MaxFieldsPerUpdate int     `koanf:"max_fields_per_update" validate:"gte=1,lte=8"`
	Volatility         float64 `koanf:"volatility" validate:"gt=0,lt=1"`
	Seed               int64   `koanf:"seed"`
}

// NATSConfig configures the optional NATS path (build tag nats).
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	SubjectPrefix  string `koanf:"subject_prefix" validate:"required"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes the caller file and line.
	// Default: false
	Caller bool `koanf:"caller"`
}

// EngineSettings converts to the engine's configuration.
func (c *Config) EngineSettings() engine.Config {
	return engine.Config{
		FlashDuration:         c.Engine.FlashDuration,
		BatchInterval:         c.Engine.BatchInterval,
		EnableFlash:           c.Engine.EnableFlash,
		MaxUpdatesPerFrame:    c.Engine.MaxUpdatesPerFrame,
		CPUThreshold:          c.Engine.CPUThreshold,
		MaxBufferSize:         c.Engine.MaxBufferSize,
		EnableLiveSorting:     c.Engine.EnableLiveSorting,
		EnableRankingMovement: c.Engine.EnableRankingMovement,
	}
}

// ConnectionSettings converts to the connection manager's configuration.
// Hooks are left for the caller to set.
func (c *Config) ConnectionSettings() connection.Config {
	return connection.Config{
		URL:               c.Connection.URL,
		Reconnect:         c.Connection.Reconnect,
		ReconnectDelay:    c.Connection.ReconnectDelay,
		MaxReconnectDelay: c.Connection.MaxReconnectDelay,
		ReconnectAttempts: c.Connection.ReconnectAttempts,
		DialTimeout:       c.Connection.DialTimeout,
	}
}

// SnapshotClientSettings converts to the snapshot client configuration.
func (c *Config) SnapshotClientSettings() snapshot.ClientConfig {
	cfg := snapshot.DefaultClientConfig(c.Snapshot.URL)
	cfg.Timeout = c.Snapshot.Timeout
	return cfg
}

// LoggingSettings converts to the logging package configuration.
func (c *Config) LoggingSettings() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Format = c.Logging.Format
	cfg.Caller = c.Logging.Caller
	return cfg
}
