// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package engine

import (
	"time"

	"github.com/tomtom215/livegrid/internal/models"
)

// FlashWindow is an active directional highlight on one cell.
type FlashWindow struct {
	Direction models.Direction
	Start     time.Time
	Duration  time.Duration
}

// activeAt reports whether the window still covers now.
func (w FlashWindow) activeAt(now time.Time) bool {
	return now.Before(w.Start.Add(w.Duration))
}

// flashSet tracks flash windows by cell. A new window for a cell replaces
// the previous one. Guarded by the engine lock.
type flashSet struct {
	windows map[models.CellKey]FlashWindow
}

func newFlashSet() *flashSet {
	return &flashSet{windows: make(map[models.CellKey]FlashWindow)}
}

func (f *flashSet) start(key models.CellKey, dir models.Direction, now time.Time, d time.Duration) {
	f.windows[key] = FlashWindow{Direction: dir, Start: now, Duration: d}
}

// active returns the window for key if it covers now.
func (f *flashSet) active(key models.CellKey, now time.Time) (FlashWindow, bool) {
	w, ok := f.windows[key]
	if !ok || !w.activeAt(now) {
		return FlashWindow{}, false
	}
	return w, true
}

// expire removes every window with start+duration <= now and returns
// their keys.
func (f *flashSet) expire(now time.Time) []models.CellKey {
	var expired []models.CellKey
	for key, w := range f.windows {
		if !w.activeAt(now) {
			expired = append(expired, key)
			delete(f.windows, key)
		}
	}
	return expired
}

// keys returns all tracked cells.
func (f *flashSet) keys() []models.CellKey {
	out := make([]models.CellKey, 0, len(f.windows))
	for key := range f.windows {
		out = append(out, key)
	}
	return out
}

func (f *flashSet) len() int { return len(f.windows) }

func (f *flashSet) reset() {
	f.windows = make(map[models.CellKey]FlashWindow)
}
