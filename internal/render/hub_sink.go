// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

// Package render turns engine frames into websocket messages for browser
// clients.
package render

import (
	"sort"
	"sync"

	"github.com/tomtom215/livegrid/internal/engine"
	"github.com/tomtom215/livegrid/internal/models"
)

// Broadcaster is satisfied by *websocket.Hub.
type Broadcaster interface {
	Broadcast(msgType string, data interface{})
}

// RowSource is satisfied by *engine.Engine.
type RowSource interface {
	GetRows() []models.RowRecord
}

// HubSink is an engine.RenderSink that treats a window of rows as rendered
// and sends each frame's patches as one cell_patch message.
//
// Rows are visible when they are in the explicit set given to SetVisible,
// or, with no explicit set, when they are among the first windowSize rows
// of the order given to SetOrder. A windowSize of 0 renders every row.
type HubSink struct {
	out        Broadcaster
	format     engine.Formatter
	windowSize int

	mu       sync.Mutex
	position map[models.RowID]int
	explicit map[models.RowID]struct{}
	frame    *models.FramePatch
	index    map[models.CellKey]int
}

// NewHubSink creates a sink. format may be nil for the default formatting.
func NewHubSink(out Broadcaster, windowSize int, format engine.Formatter) *HubSink {
	if format == nil {
		format = func(_ string, v interface{}) string { return models.FormatValue(v) }
	}
	if windowSize < 0 {
		windowSize = 0
	}
	return &HubSink{
		out:        out,
		format:     format,
		windowSize: windowSize,
		position:   make(map[models.RowID]int),
	}
}

// SetOrder records the display order of rows. Call it after every
// engine Initialize.
func (s *HubSink) SetOrder(ids []models.RowID) {
	position := make(map[models.RowID]int, len(ids))
	for i, id := range ids {
		position[id] = i
	}
	s.mu.Lock()
	s.position = position
	s.mu.Unlock()
}

func (s *HubSink) visibleLocked(id models.RowID) bool {
	if s.explicit != nil {
		_, ok := s.explicit[id]
		return ok
	}
	if s.windowSize == 0 {
		return true
	}
	pos, ok := s.position[id]
	return ok && pos < s.windowSize
}

// Locate implements engine.RenderSink.
func (s *HubSink) Locate(rowID models.RowID, field string) (engine.Target, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.visibleLocked(rowID) {
		return nil, false
	}
	return models.CellKey{RowID: rowID, Field: field}, true
}

// Write implements engine.RenderSink. Outside a frame the patch is sent
// on its own.
func (s *HubSink) Write(target engine.Target, text string) {
	key := target.(models.CellKey)
	s.mu.Lock()
	if s.frame == nil {
		s.mu.Unlock()
		s.out.Broadcast(models.MsgCellPatch, models.FramePatch{
			Patches: []models.CellPatch{{RowID: key.RowID, Field: key.Field, Text: text}},
		})
		return
	}
	if i, ok := s.index[key]; ok {
		s.frame.Patches[i].Text = text
	} else {
		s.index[key] = len(s.frame.Patches)
		s.frame.Patches = append(s.frame.Patches, models.CellPatch{RowID: key.RowID, Field: key.Field, Text: text})
	}
	s.mu.Unlock()
}

// SetHighlight implements engine.RenderSink. A highlight on a cell written
// in the same frame rides on that patch; a cleared highlight is listed in
// the frame's cleared set.
func (s *HubSink) SetHighlight(target engine.Target, dir models.Direction) {
	key := target.(models.CellKey)
	s.mu.Lock()
	if s.frame != nil {
		if dir == models.DirectionNone {
			s.frame.Cleared = append(s.frame.Cleared, models.CellKeyJSON{RowID: key.RowID, Field: key.Field})
			s.mu.Unlock()
			return
		}
		if i, ok := s.index[key]; ok {
			s.frame.Patches[i].Flash = dir.String()
			s.mu.Unlock()
			return
		}
	}
	s.mu.Unlock()

	flash := models.CellPatch{RowID: key.RowID, Field: key.Field}
	if dir != models.DirectionNone {
		flash.Flash = dir.String()
	}
	s.out.Broadcast(models.MsgCellFlash, flash)
}

// BeginFrame implements engine.FrameSink.
func (s *HubSink) BeginFrame() {
	s.mu.Lock()
	s.frame = &models.FramePatch{}
	s.index = make(map[models.CellKey]int)
	s.mu.Unlock()
}

// EndFrame implements engine.FrameSink.
func (s *HubSink) EndFrame() {
	s.mu.Lock()
	f := s.frame
	s.frame = nil
	s.index = nil
	s.mu.Unlock()

	if f != nil && (len(f.Patches) > 0 || len(f.Cleared) > 0) {
		s.out.Broadcast(models.MsgCellPatch, *f)
	}
}

// SetVisible replaces the explicit visible set; an empty set returns to
// window mode. Rows that become visible have missed patches while hidden,
// so their current values are re-read from src and sent as a snapshot.
// It returns the newly visible row ids.
func (s *HubSink) SetVisible(ids []models.RowID, src RowSource) []models.RowID {
	s.mu.Lock()
	var next map[models.RowID]struct{}
	if len(ids) > 0 {
		next = make(map[models.RowID]struct{}, len(ids))
		for _, id := range ids {
			next[id] = struct{}{}
		}
	}

	wasVisible := make(map[models.RowID]bool)
	for id := range s.position {
		wasVisible[id] = s.visibleLocked(id)
	}
	for id := range s.explicit {
		wasVisible[id] = true
	}
	s.explicit = next

	var revealed []models.RowID
	candidates := ids
	if next == nil {
		candidates = make([]models.RowID, 0, len(s.position))
		for id := range s.position {
			candidates = append(candidates, id)
		}
	}
	for _, id := range candidates {
		if !wasVisible[id] && s.visibleLocked(id) {
			revealed = append(revealed, id)
		}
	}
	s.mu.Unlock()

	sort.Slice(revealed, func(i, j int) bool { return revealed[i] < revealed[j] })
	if len(revealed) > 0 && src != nil {
		want := make(map[models.RowID]bool, len(revealed))
		for _, id := range revealed {
			want[id] = true
		}
		var rows []models.RowRecord
		for _, r := range src.GetRows() {
			if want[r.ID] {
				rows = append(rows, r)
			}
		}
		s.out.Broadcast(models.MsgSnapshot, s.patchesFor(rows))
	}
	return revealed
}

// Snapshot returns the rendered text of every visible row in src, for a
// client that has just connected.
func (s *HubSink) Snapshot(src RowSource) models.FramePatch {
	rows := src.GetRows()
	s.mu.Lock()
	visible := rows[:0:0]
	for _, r := range rows {
		if s.visibleLocked(r.ID) {
			visible = append(visible, r)
		}
	}
	s.mu.Unlock()
	return s.patchesFor(visible)
}

// Visible returns the ids currently rendered, in display order.
func (s *HubSink) Visible() []models.RowID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RowID
	if s.explicit != nil {
		for id := range s.explicit {
			out = append(out, id)
		}
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out
	}
	for id := range s.position {
		if s.visibleLocked(id) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.position[out[i]] < s.position[out[j]] })
	return out
}

func (s *HubSink) patchesFor(rows []models.RowRecord) models.FramePatch {
	out := models.FramePatch{Patches: make([]models.CellPatch, 0, len(rows)*8)}
	for _, r := range rows {
		fields := make([]string, 0, len(r.Fields))
		for f := range r.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			out.Patches = append(out.Patches, models.CellPatch{
				RowID: r.ID,
				Field: f,
				Text:  s.format(f, r.Fields[f]),
			})
		}
	}
	return out
}
