// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

/*
Package engine implements the LiveGrid update engine: the authoritative row
cache, the buffer of pending cell patches, flash highlight windows, and the
frame loop that drains the buffer into a RenderSink at a bounded rate.

# Producer and consumer paths

ProcessUpdate is the producer path. It runs on the caller's goroutine
(usually the connection reader), mutates the row cache immediately, appends
one CellUpdate per changed field to the buffer, registers flash windows and
notifies cell subscribers before returning. It never blocks on rendering.

The consumer path is a frame tick scheduled through a FrameScheduler. Each
tick measures the interval since the previous tick, maintains a rolling
average, and either reschedules (frame-rate floor or throttled mode) or
drains up to MaxUpdatesPerFrame patches, writes them to the sink, expires
flash windows and notifies row subscribers with a snapshot.

	eng := engine.New(engine.DefaultConfig(),
	    engine.WithSink(sink),
	    engine.WithScheduler(engine.NewTimerScheduler(10*time.Millisecond)),
	)
	eng.Initialize(rows)
	unsub := eng.OnCellUpdate(func(u models.CellUpdate) { ... })
	defer unsub()

	eng.ProcessUpdate(models.RowUpdate{RowID: "SYM001", Updates: map[string]interface{}{"price": 101.5}})

# Scheduling

At most one frame callback is outstanding. The loop stops when the buffer
is empty and no flash window is active, and is restarted by the next
accepted update. Pause and Resume only cancel and restart the loop;
ingestion keeps mutating the cache while paused.

Tests drive the loop deterministically with ManualScheduler and WithClock.

# Buffer bound

MaxBufferSize bounds the pending patch buffer. When full, the oldest patch
is dropped and counted. The row cache is unaffected: a dropped patch only
means an intermediate visual state is skipped.
*/
package engine
