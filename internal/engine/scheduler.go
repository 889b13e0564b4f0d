// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package engine

import (
	"sync"
	"time"
)

// Handle identifies a scheduled frame callback. The zero Handle is never
// returned by a scheduler.
type Handle uint64

// FrameScheduler runs a callback at the next frame. Cancel on an unknown or
// already-fired handle is a no-op.
type FrameScheduler interface {
	ScheduleNextTick(cb func(now time.Time)) Handle
	Cancel(h Handle)
}

// DefaultTickInterval is the TimerScheduler period used when none is given.
// It is shorter than the default batch interval so an unloaded engine
// stays below the throttle threshold.
const DefaultTickInterval = 10 * time.Millisecond

// TimerScheduler is a FrameScheduler backed by time.AfterFunc.
type TimerScheduler struct {
	interval time.Duration

	mu     sync.Mutex
	next   Handle
	timers map[Handle]*time.Timer
}

// NewTimerScheduler creates a scheduler that fires callbacks interval after
// they are scheduled.
func NewTimerScheduler(interval time.Duration) *TimerScheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &TimerScheduler{
		interval: interval,
		timers:   make(map[Handle]*time.Timer),
	}
}

// ScheduleNextTick implements FrameScheduler.
func (s *TimerScheduler) ScheduleNextTick(cb func(now time.Time)) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	h := s.next
	s.timers[h] = time.AfterFunc(s.interval, func() {
		s.mu.Lock()
		_, live := s.timers[h]
		delete(s.timers, h)
		s.mu.Unlock()
		if live {
			cb(time.Now())
		}
	})
	return h
}

// Cancel implements FrameScheduler.
func (s *TimerScheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[h]; ok {
		t.Stop()
		delete(s.timers, h)
	}
}

// Pending returns the number of scheduled, not yet fired callbacks.
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// ManualScheduler is a FrameScheduler for tests: callbacks only run when
// Fire is called.
type ManualScheduler struct {
	mu      sync.Mutex
	next    Handle
	pending map[Handle]func(time.Time)
	order   []Handle
}

// NewManualScheduler creates an empty ManualScheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{pending: make(map[Handle]func(time.Time))}
}

// ScheduleNextTick implements FrameScheduler.
func (s *ManualScheduler) ScheduleNextTick(cb func(now time.Time)) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.pending[s.next] = cb
	s.order = append(s.order, s.next)
	return s.next
}

// Cancel implements FrameScheduler.
func (s *ManualScheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, h)
}

// Pending returns the number of outstanding callbacks.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Fire runs every callback outstanding at call time with now and returns
// how many ran. Callbacks scheduled while firing wait for the next Fire.
func (s *ManualScheduler) Fire(now time.Time) int {
	s.mu.Lock()
	var due []func(time.Time)
	for _, h := range s.order {
		if cb, ok := s.pending[h]; ok {
			due = append(due, cb)
			delete(s.pending, h)
		}
	}
	s.order = s.order[:0]
	s.mu.Unlock()

	for _, cb := range due {
		cb(now)
	}
	return len(due)
}
