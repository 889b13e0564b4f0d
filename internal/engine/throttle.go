// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package engine

import "time"

// frameAction is what a tick should do after the throttle check.
type frameAction int

const (
	frameDrain frameAction = iota
	frameSkipThrottled
	frameSkipInterval
)

// throttle keeps the rolling frame-time average and the throttled flag.
type throttle struct {
	limitMs   float64
	avgMs     float64
	throttled bool
	lastFrame time.Time
	lastBatch time.Time
}

func newThrottle(cpuThreshold float64) throttle {
	return throttle{limitMs: frameBudgetMs * cpuThreshold}
}

// observe folds the interval since the previous tick into the average and
// updates the throttled flag. The first tick after a reset only records its
// time. It returns the measured interval.
func (t *throttle) observe(now time.Time) time.Duration {
	var elapsed time.Duration
	if !t.lastFrame.IsZero() {
		elapsed = now.Sub(t.lastFrame)
		ms := float64(elapsed) / float64(time.Millisecond)
		t.avgMs = t.avgMs*0.9 + ms*0.1
	}
	t.lastFrame = now

	if t.avgMs > t.limitMs {
		t.throttled = true
	} else if t.throttled && t.avgMs < throttleRecoverMs {
		t.throttled = false
	}
	return elapsed
}

// decide applies the frame-rate floor: twice the batch interval while
// throttled, the batch interval otherwise.
func (t *throttle) decide(now time.Time, batchInterval time.Duration) frameAction {
	if t.lastBatch.IsZero() {
		return frameDrain
	}
	since := now.Sub(t.lastBatch)
	if t.throttled && since < 2*batchInterval {
		return frameSkipThrottled
	}
	if since < batchInterval {
		return frameSkipInterval
	}
	return frameDrain
}

// idle forgets the previous tick so a loop restarted after a quiet period
// does not fold the quiet period into the average.
func (t *throttle) idle() {
	t.lastFrame = time.Time{}
}

func (t *throttle) fps() float64 {
	if t.avgMs <= 0 {
		return 0
	}
	return 1000 / t.avgMs
}

func (t *throttle) reset() {
	limit := t.limitMs
	*t = throttle{limitMs: limit}
}
