// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package engine

import "time"

// Frame budget constants in milliseconds.
const (
	frameBudgetMs     = 16.67
	throttleRecoverMs = 16.0
)

// Config is the immutable per-engine configuration.
type Config struct {
	// FlashDuration is how long a flash highlight stays active.
	FlashDuration time.Duration

	// BatchInterval is the minimum time between two drained frames.
	// Throttled mode doubles it.
	BatchInterval time.Duration

	// EnableFlash turns directional flash highlights on or off.
	EnableFlash bool

	// MaxUpdatesPerFrame caps how many buffered patches one tick drains.
	MaxUpdatesPerFrame int

	// CPUThreshold is the fraction of the 16.67ms frame budget the rolling
	// average frame time may use before the engine throttles.
	CPUThreshold float64

	// MaxBufferSize bounds pending patches (drop-oldest). 0 is unbounded.
	MaxBufferSize int

	// EnableLiveSorting and EnableRankingMovement are accepted for
	// configuration compatibility. The engine does not act on them.
	EnableLiveSorting     bool
	EnableRankingMovement bool
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		FlashDuration:      500 * time.Millisecond,
		BatchInterval:      16 * time.Millisecond,
		EnableFlash:        true,
		MaxUpdatesPerFrame: 100,
		CPUThreshold:       0.8,
		MaxBufferSize:      10000,
	}
}

// withDefaults fills non-positive numeric fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.FlashDuration <= 0 {
		c.FlashDuration = def.FlashDuration
	}
	if c.BatchInterval < 0 {
		c.BatchInterval = 0
	}
	if c.MaxUpdatesPerFrame <= 0 {
		c.MaxUpdatesPerFrame = def.MaxUpdatesPerFrame
	}
	if c.CPUThreshold <= 0 {
		c.CPUThreshold = def.CPUThreshold
	}
	if c.MaxBufferSize < 0 {
		c.MaxBufferSize = 0
	}
	return c
}
