// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/livegrid/config.yaml",
	"/etc/livegrid/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			FlashDuration:      500 * time.Millisecond,
			BatchInterval:      16 * time.Millisecond,
			EnableFlash:        true,
			MaxUpdatesPerFrame: 100,
			CPUThreshold:       0.8,
			MaxBufferSize:      10000,
		},
		Connection: ConnectionConfig{
			Transport:         "websocket",
			URL:               "ws://127.0.0.1:8090/ws",
			Reconnect:         true,
			ReconnectDelay:    time.Second,
			MaxReconnectDelay: 30 * time.Second,
			ReconnectAttempts: 10,
			DialTimeout:       10 * time.Second,
			Symbols:           []string{"*"},
		},
		Snapshot: SnapshotConfig{
			Enabled:      true,
			URL:          "http://127.0.0.1:8090",
			Timeout:      10 * time.Second,
			StorePath:    "/data/livegrid/snapshot",
			SaveInterval: 30 * time.Second,
		},
		Render: RenderConfig{
			VisibleRows: 50,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Simulator: SimulatorConfig{
			Host:               "0.0.0.0",
			Port:               8090,
			Symbols:            100,
			Prefix:             "SYM",
			Rate:               1000,
			MaxFieldsPerUpdate: 3,
			Volatility:         0.002,
			Seed:               1,
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			Host:           "127.0.0.1",
			Port:           4222,
			SubjectPrefix:  "livegrid.rows",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// FEED_URL -> connection.url, SIM_RATE -> simulator.rate
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Post-process slice fields from comma-separated strings
	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"connection.symbols",
	"server.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings while the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
var envMappings = map[string]string{
	// Engine
	"flash_duration":          "engine.flash_duration",
	"batch_interval":          "engine.batch_interval",
	"enable_flash":            "engine.enable_flash",
	"max_updates_per_frame":   "engine.max_updates_per_frame",
	"cpu_threshold":           "engine.cpu_threshold",
	"max_buffer_size":         "engine.max_buffer_size",
	"enable_live_sorting":     "engine.enable_live_sorting",
	"enable_ranking_movement": "engine.enable_ranking_movement",

	// Connection
	"feed_transport":      "connection.transport",
	"feed_url":            "connection.url",
	"reconnect":           "connection.reconnect",
	"reconnect_delay":     "connection.reconnect_delay",
	"max_reconnect_delay": "connection.max_reconnect_delay",
	"reconnect_attempts":  "connection.reconnect_attempts",
	"dial_timeout":        "connection.dial_timeout",
	"feed_symbols":        "connection.symbols",

	// Snapshot
	"snapshot_enabled":       "snapshot.enabled",
	"snapshot_url":           "snapshot.url",
	"snapshot_timeout":       "snapshot.timeout",
	"snapshot_store_path":    "snapshot.store_path",
	"snapshot_save_interval": "snapshot.save_interval",

	// Render
	"visible_rows": "render.visible_rows",

	// Server
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_reqs",
	"rate_limit_window":   "server.rate_limit_window",
	"disable_rate_limit":  "server.rate_limit_disabled",

	// Simulator
	"sim_host":       "simulator.host",
	"sim_port":       "simulator.port",
	"sim_symbols":    "simulator.symbols",
	"sim_prefix":     "simulator.prefix",
	"sim_rate":       "simulator.rate",
	"sim_max_fields": "simulator.max_fields_per_update",
	"sim_volatility": "simulator.volatility",
	"sim_seed":       "simulator.seed",

	// NATS
	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded_server",
	"nats_host":           "nats.host",
	"nats_port":           "nats.port",
	"nats_subject_prefix": "nats.subject_prefix",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - FEED_URL -> connection.url
//   - SIM_RATE -> simulator.rate
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// For unmapped keys, return empty string to skip them
	// This prevents random environment variables from polluting config
	return ""
}
