// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package connection

import (
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	ms := time.Millisecond
	tests := []struct {
		name    string
		attempt int
		base    time.Duration
		max     time.Duration
		want    time.Duration
	}{
		{"first attempt", 0, 100 * ms, 1000 * ms, 100 * ms},
		{"second attempt", 1, 100 * ms, 1000 * ms, 200 * ms},
		{"third attempt", 2, 100 * ms, 1000 * ms, 400 * ms},
		{"fourth attempt", 3, 100 * ms, 1000 * ms, 800 * ms},
		{"capped", 4, 100 * ms, 1000 * ms, 1000 * ms},
		{"far past cap", 60, 100 * ms, 1000 * ms, 1000 * ms},
		{"exact power of two cap", 3, 100 * ms, 800 * ms, 800 * ms},
		{"negative attempt", -1, 100 * ms, 1000 * ms, 100 * ms},
		{"base above max", 0, 5 * time.Second, time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BackoffDelay(tt.attempt, tt.base, tt.max); got != tt.want {
				t.Errorf("BackoffDelay(%d, %v, %v) = %v, want %v", tt.attempt, tt.base, tt.max, got, tt.want)
			}
		})
	}
}
