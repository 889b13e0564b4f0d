// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package engine

import (
	"sync"

	"github.com/tomtom215/livegrid/internal/models"
)

// Target is an addressable rendered cell returned by RenderSink.Locate.
// Its concrete type belongs to the sink.
type Target interface{}

// RenderSink is the view layer the engine patches. Locate returns false when
// the cell is not currently rendered; the patch is then skipped and the view
// must re-read the row cache when the cell becomes visible.
//
// The engine serializes all calls into a sink. A sink must not call back
// into the engine's mutating methods.
type RenderSink interface {
	Locate(rowID models.RowID, field string) (Target, bool)
	Write(target Target, text string)
	SetHighlight(target Target, dir models.Direction)
}

// FrameSink is optionally implemented by sinks that want to batch the
// patches of one frame, e.g. to send a single network message.
type FrameSink interface {
	BeginFrame()
	EndFrame()
}

// HeadlessSink renders nothing. Every cell is reported as off-screen.
type HeadlessSink struct{}

// Locate implements RenderSink.
func (HeadlessSink) Locate(models.RowID, string) (Target, bool) { return nil, false }

// Write implements RenderSink.
func (HeadlessSink) Write(Target, string) {}

// SetHighlight implements RenderSink.
func (HeadlessSink) SetHighlight(Target, models.Direction) {}

// Patch is a single sink write captured by RecordingSink.
type Patch struct {
	Key  models.CellKey
	Text string
}

// RecordingSink is an in-memory RenderSink that renders every cell unless
// hidden with Hide. It records writes and current highlights.
type RecordingSink struct {
	mu         sync.Mutex
	hidden     map[models.CellKey]bool
	hiddenRows map[models.RowID]bool
	writes     []Patch
	highlights map[models.CellKey]models.Direction
	frames     int
}

// NewRecordingSink creates an empty RecordingSink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{
		hidden:     make(map[models.CellKey]bool),
		hiddenRows: make(map[models.RowID]bool),
		highlights: make(map[models.CellKey]models.Direction),
	}
}

// Hide marks one cell as not rendered.
func (s *RecordingSink) Hide(rowID models.RowID, field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hidden[models.CellKey{RowID: rowID, Field: field}] = true
}

// HideRow marks every cell of a row as not rendered.
func (s *RecordingSink) HideRow(rowID models.RowID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hiddenRows[rowID] = true
}

// Locate implements RenderSink.
func (s *RecordingSink) Locate(rowID models.RowID, field string) (Target, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.CellKey{RowID: rowID, Field: field}
	if s.hidden[key] || s.hiddenRows[rowID] {
		return nil, false
	}
	return key, true
}

// Write implements RenderSink.
func (s *RecordingSink) Write(target Target, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, Patch{Key: target.(models.CellKey), Text: text})
}

// SetHighlight implements RenderSink.
func (s *RecordingSink) SetHighlight(target Target, dir models.Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := target.(models.CellKey)
	if dir == models.DirectionNone {
		delete(s.highlights, key)
		return
	}
	s.highlights[key] = dir
}

// BeginFrame implements FrameSink.
func (s *RecordingSink) BeginFrame() {
	s.mu.Lock()
	s.frames++
	s.mu.Unlock()
}

// EndFrame implements FrameSink.
func (s *RecordingSink) EndFrame() {}

// Writes returns a copy of all recorded writes.
func (s *RecordingSink) Writes() []Patch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Patch(nil), s.writes...)
}

// Highlight returns the current highlight of a cell.
func (s *RecordingSink) Highlight(rowID models.RowID, field string) models.Direction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highlights[models.CellKey{RowID: rowID, Field: field}]
}

// HighlightCount returns the number of highlighted cells.
func (s *RecordingSink) HighlightCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.highlights)
}

// Frames returns how many frames drew patches.
func (s *RecordingSink) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}
