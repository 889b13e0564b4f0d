// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package engine

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/livegrid/internal/logging"
	"github.com/tomtom215/livegrid/internal/metrics"
	"github.com/tomtom215/livegrid/internal/models"
)

// Errors reported in ProcessResult. They are never returned to transport
// code as failures; the update is simply dropped.
var (
	ErrUnknownRow      = errors.New("unknown row")
	ErrEmptyUpdate     = errors.New("update has no fields")
	ErrEngineDestroyed = errors.New("engine destroyed")
)

// ProcessResult describes what ProcessUpdate did with one RowUpdate.
type ProcessResult struct {
	// Changed is the number of fields whose value changed.
	Changed int
	// Err is ErrUnknownRow, ErrEmptyUpdate or ErrEngineDestroyed when the
	// update was dropped.
	Err error
}

// Formatter renders a cell value as text for the sink.
type Formatter func(field string, value interface{}) string

// Option configures an Engine.
type Option func(*Engine)

// WithScheduler sets the frame scheduler. Default: a TimerScheduler with
// DefaultTickInterval.
func WithScheduler(s FrameScheduler) Option {
	return func(e *Engine) { e.scheduler = s }
}

// WithSink sets the render sink. Default: HeadlessSink.
func WithSink(s RenderSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithClock sets the time source used for flash windows and missing
// update timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithFormatter overrides value formatting.
func WithFormatter(f Formatter) Option {
	return func(e *Engine) { e.format = f }
}

// WithLogger sets the engine logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Engine owns the row cache, the update buffer and the flash windows, and
// drives the frame loop that patches the render sink.
type Engine struct {
	cfg       Config
	scheduler FrameScheduler
	sink      RenderSink
	now       func() time.Time
	format    Formatter
	log       zerolog.Logger
	rejectLog zerolog.Logger

	mu        sync.Mutex
	cache     *rowCache
	buf       *updateBuffer
	flashes   *flashSet
	thr       throttle
	pending   Handle
	token     uint64 // identifies the outstanding callback; 0 when none
	seq       uint64
	loopIdle  bool
	paused    bool
	destroyed bool
	gen       uint64 // bumped by Clear and Destroy; frames from older gens are discarded
	dropped   uint64
	rejected  uint64

	// sinkMu serializes calls into the sink, which happen outside mu.
	sinkMu sync.Mutex

	rowSubs  registry[[]models.RowRecord]
	cellSubs registry[models.CellUpdate]
}

// New creates an engine. Non-positive numeric fields in cfg take their
// defaults.
//
//nolint:gocritic // Config is small and immutable
func New(cfg Config, opts ...Option) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:       cfg,
		now:       time.Now,
		sink:      HeadlessSink{},
		format:    func(_ string, v interface{}) string { return models.FormatValue(v) },
		log:       logging.WithComponent("engine"),
		rejectLog: logging.Sampled("engine", 5, time.Second),
		cache:     newRowCache(),
		buf:       newUpdateBuffer(cfg.MaxBufferSize),
		flashes:   newFlashSet(),
		thr:       newThrottle(cfg.CPUThreshold),
		loopIdle:  true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.scheduler == nil {
		e.scheduler = NewTimerScheduler(DefaultTickInterval)
	}
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Initialize replaces the row cache with copies of rows and clears pending
// patches and flash windows. Row subscribers receive the new snapshot.
func (e *Engine) Initialize(rows []models.RowRecord) {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.cancelLocked()
	e.cache.load(rows)
	e.buf.reset()
	e.flashes.reset()
	e.thr.reset()
	e.loopIdle = true
	var snapshot []models.RowRecord
	if e.rowSubs.len() > 0 {
		snapshot = e.cache.snapshot()
	}
	count := e.cache.len()
	e.mu.Unlock()

	e.publishGauges(0, 0)
	e.log.Info().Int("rows", count).Msg("row cache initialized")
	if snapshot != nil {
		e.rowSubs.notify(snapshot)
	}
}

// ProcessUpdate applies u to the row cache immediately, buffers one patch
// per changed field, registers flash windows for numeric changes and
// notifies cell subscribers before returning. Updates for unknown rows are
// dropped. Ingestion continues while the engine is paused.
//
//nolint:gocritic // RowUpdate is consumed by value
func (e *Engine) ProcessUpdate(u models.RowUpdate) ProcessResult {
	now := e.now()

	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		metrics.EngineUpdatesRejected.WithLabelValues(metrics.RejectDestroyed).Inc()
		return ProcessResult{Err: ErrEngineDestroyed}
	}

	row, ok := e.cache.get(u.RowID)
	if !ok {
		e.rejected++
		e.mu.Unlock()
		metrics.EngineUpdatesRejected.WithLabelValues(metrics.RejectUnknownRow).Inc()
		e.rejectLog.Warn().Str("row_id", u.RowID.String()).Msg("update for unknown row dropped")
		return ProcessResult{Err: ErrUnknownRow}
	}
	if len(u.Updates) == 0 {
		e.rejected++
		e.mu.Unlock()
		metrics.EngineUpdatesRejected.WithLabelValues(metrics.RejectEmpty).Inc()
		return ProcessResult{Err: ErrEmptyUpdate}
	}

	ts := u.Timestamp
	if ts == 0 {
		ts = now.UnixMilli()
	}

	fields := make([]string, 0, len(u.Updates))
	for f := range u.Updates {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var changes []models.CellUpdate
	var dropped int
	for _, field := range fields {
		next := u.Updates[field]
		prev := row.Fields[field]
		if models.ValuesEqual(prev, next) {
			continue
		}
		row.Fields[field] = next

		cu := models.CellUpdate{
			RowID:     u.RowID,
			Field:     field,
			OldValue:  prev,
			NewValue:  next,
			Timestamp: ts,
		}
		if e.buf.push(cu) {
			dropped++
		}
		if e.cfg.EnableFlash {
			if dir, numeric := models.ChangeDirection(prev, next); numeric {
				e.flashes.start(cu.Key(), dir, now, e.cfg.FlashDuration)
			}
		}
		changes = append(changes, cu)
	}
	e.dropped += uint64(dropped)

	if len(changes) > 0 {
		e.scheduleLocked()
	}
	pending, active := e.buf.len(), e.flashes.len()
	e.mu.Unlock()

	if len(changes) == 0 {
		return ProcessResult{}
	}

	metrics.EngineUpdatesAccepted.Inc()
	metrics.EngineCellUpdates.Add(float64(len(changes)))
	if dropped > 0 {
		metrics.EngineCellUpdatesDropped.Add(float64(dropped))
	}
	e.publishGauges(pending, active)

	for _, cu := range changes {
		e.cellSubs.notify(cu)
	}
	return ProcessResult{Changed: len(changes)}
}

// ApplyBatch runs one frame at now. It replaces any pending frame callback,
// so the single-outstanding-callback rule holds. It is a no-op while paused.
func (e *Engine) ApplyBatch(now time.Time) {
	e.mu.Lock()
	if e.destroyed || e.paused {
		e.mu.Unlock()
		return
	}
	e.cancelLocked()
	f := e.frameLocked(now)
	e.mu.Unlock()
	e.applyFrame(f)
}

// tick is the scheduled frame callback.
func (e *Engine) tick(token uint64, now time.Time) {
	e.mu.Lock()
	if token != e.token || e.destroyed || e.paused {
		// Stale: cancelled, replaced or torn down after being queued.
		e.mu.Unlock()
		return
	}
	e.token = 0
	e.pending = 0
	f := e.frameLocked(now)
	e.mu.Unlock()
	e.applyFrame(f)
}

// patch is one drained cell change with the flash to show on it.
type patch struct {
	update models.CellUpdate
	flash  models.Direction
}

// frame is the sink work computed under the lock and applied after it.
type frame struct {
	gen      uint64
	interval time.Duration
	patches  []patch
	expired  []models.CellKey
	rows     []models.RowRecord
	pending  int
	active   int
}

// frameLocked runs the throttle check, drains the buffer and expires
// flash windows. Must be called with mu held.
func (e *Engine) frameLocked(now time.Time) frame {
	f := frame{gen: e.gen, interval: e.thr.observe(now)}
	metrics.SetThrottled(e.thr.throttled)

	switch e.thr.decide(now, e.cfg.BatchInterval) {
	case frameSkipThrottled:
		metrics.EngineFramesSkipped.WithLabelValues("throttled").Inc()
		e.continueLocked()
		f.pending, f.active = e.buf.len(), e.flashes.len()
		return f
	case frameSkipInterval:
		metrics.EngineFramesSkipped.WithLabelValues("interval").Inc()
		e.continueLocked()
		f.pending, f.active = e.buf.len(), e.flashes.len()
		return f
	}

	batch := e.buf.drain(e.cfg.MaxUpdatesPerFrame)
	e.thr.lastBatch = now

	f.patches = groupByRow(batch, func(cu models.CellUpdate) models.Direction {
		if w, ok := e.flashes.active(cu.Key(), now); ok {
			return w.Direction
		}
		return models.DirectionNone
	})
	f.expired = e.flashes.expire(now)
	if len(batch) > 0 && e.rowSubs.len() > 0 {
		f.rows = e.cache.snapshot()
	}

	e.continueLocked()
	f.pending, f.active = e.buf.len(), e.flashes.len()
	return f
}

// groupByRow orders drained updates by the first appearance of their row,
// keeping FIFO order within a row.
func groupByRow(batch []models.CellUpdate, flashOf func(models.CellUpdate) models.Direction) []patch {
	if len(batch) == 0 {
		return nil
	}
	index := make(map[models.RowID]int)
	var groups [][]models.CellUpdate
	for _, cu := range batch {
		i, ok := index[cu.RowID]
		if !ok {
			i = len(groups)
			index[cu.RowID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], cu)
	}

	out := make([]patch, 0, len(batch))
	for _, g := range groups {
		for _, cu := range g {
			out = append(out, patch{update: cu, flash: flashOf(cu)})
		}
	}
	return out
}

// applyFrame writes a frame to the sink and notifies row subscribers.
func (e *Engine) applyFrame(f frame) {
	metrics.RecordFrame(f.interval, len(f.patches))
	e.publishGauges(f.pending, f.active)

	if len(f.patches) > 0 || len(f.expired) > 0 {
		var written, offscreen int

		e.sinkMu.Lock()
		// Destroy or Clear may have run between frameLocked and here.
		if !e.currentGen(f.gen) {
			e.sinkMu.Unlock()
			return
		}
		fs, batched := e.sink.(FrameSink)
		if batched {
			fs.BeginFrame()
		}
		for _, p := range f.patches {
			target, ok := e.sink.Locate(p.update.RowID, p.update.Field)
			if !ok {
				offscreen++
				continue
			}
			e.sink.Write(target, e.format(p.update.Field, p.update.NewValue))
			if p.flash != models.DirectionNone {
				e.sink.SetHighlight(target, p.flash)
			}
			written++
		}
		for _, key := range f.expired {
			if target, ok := e.sink.Locate(key.RowID, key.Field); ok {
				e.sink.SetHighlight(target, models.DirectionNone)
			}
		}
		if batched {
			fs.EndFrame()
		}
		e.sinkMu.Unlock()

		metrics.EngineCellPatches.WithLabelValues("written").Add(float64(written))
		metrics.EngineCellPatches.WithLabelValues("offscreen").Add(float64(offscreen))
	}

	if f.rows != nil && e.currentGen(f.gen) {
		e.rowSubs.notify(f.rows)
	}
}

func (e *Engine) currentGen(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen == e.gen && !e.destroyed
}

// scheduleLocked requests a frame unless one is already outstanding.
func (e *Engine) scheduleLocked() {
	if e.token != 0 || e.paused || e.destroyed {
		return
	}
	if e.loopIdle {
		e.thr.idle()
		e.loopIdle = false
	}
	e.seq++
	token := e.seq
	e.token = token
	e.pending = e.scheduler.ScheduleNextTick(func(now time.Time) {
		e.tick(token, now)
	})
}

// continueLocked reschedules while there is buffered or flash work and
// otherwise lets the loop go idle.
func (e *Engine) continueLocked() {
	if e.buf.len() > 0 || e.flashes.len() > 0 {
		e.scheduleLocked()
		return
	}
	if e.token == 0 {
		e.loopIdle = true
	}
}

func (e *Engine) cancelLocked() {
	if e.token == 0 {
		return
	}
	e.scheduler.Cancel(e.pending)
	e.token = 0
	e.pending = 0
}

// Pause stops the frame loop. Updates are still ingested.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed || e.paused {
		return
	}
	e.paused = true
	e.cancelLocked()
	e.log.Debug().Int("pending", e.buf.len()).Msg("engine paused")
}

// Resume restarts the frame loop if there is pending work.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed || !e.paused {
		return
	}
	e.paused = false
	e.loopIdle = true
	e.continueLocked()
	e.log.Debug().Int("pending", e.buf.len()).Msg("engine resumed")
}

// IsPaused reports whether the frame loop is paused.
func (e *Engine) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// IsThrottled reports whether the engine is in throttled mode.
func (e *Engine) IsThrottled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.thr.throttled
}

// IsFlashActive reports whether a flash window covers (rowID, field) at now.
func (e *Engine) IsFlashActive(rowID models.RowID, field string, now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.flashes.active(models.CellKey{RowID: rowID, Field: field}, now)
	return ok
}

// FlashWindow returns the flash window tracked for a cell, active or not
// yet expired by a frame.
func (e *Engine) FlashWindow(rowID models.RowID, field string) (FlashWindow, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.flashes.windows[models.CellKey{RowID: rowID, Field: field}]
	return w, ok
}

// GetRows returns a copy of every row in initialization order.
func (e *Engine) GetRows() []models.RowRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.snapshot()
}

// GetRow returns a copy of one row.
func (e *Engine) GetRow(id models.RowID) (models.RowRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.cache.get(id)
	if !ok {
		return models.RowRecord{}, false
	}
	return r.Clone(), true
}

// RowIDs returns row ids in initialization order.
func (e *Engine) RowIDs() []models.RowID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.ids()
}

// OnUpdate subscribes to row snapshots, delivered after each frame that
// drew patches and after Initialize.
func (e *Engine) OnUpdate(fn func(rows []models.RowRecord)) Unsubscribe {
	if e.isDestroyed() {
		return func() {}
	}
	return e.rowSubs.add(fn)
}

// OnCellUpdate subscribes to cell changes, delivered synchronously from
// ProcessUpdate.
func (e *Engine) OnCellUpdate(fn func(u models.CellUpdate)) Unsubscribe {
	if e.isDestroyed() {
		return func() {}
	}
	return e.cellSubs.add(fn)
}

// Metrics returns the read-only metrics surface.
func (e *Engine) Metrics() models.EngineMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return models.EngineMetrics{
		AvgFrameTime:    e.thr.avgMs,
		FPS:             e.thr.fps(),
		PendingUpdates:  e.buf.len(),
		ActiveFlashes:   e.flashes.len(),
		RowCount:        e.cache.len(),
		IsThrottled:     e.thr.throttled,
		DroppedUpdates:  e.dropped,
		RejectedUpdates: e.rejected,
	}
}

// Clear cancels the frame loop and empties the row cache, the buffer and
// the flash windows. Subscribers stay registered.
func (e *Engine) Clear() {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.gen++
	e.cancelLocked()
	e.cache.reset()
	e.buf.reset()
	e.flashes.reset()
	e.thr.reset()
	e.loopIdle = true
	e.mu.Unlock()
	e.publishGauges(0, 0)
}

// Destroy tears the engine down: the loop is cancelled, highlights still on
// screen are removed, state is cleared and all subscribers are released.
// Every method is a no-op afterwards.
func (e *Engine) Destroy() {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return
	}
	e.destroyed = true
	e.gen++
	e.cancelLocked()
	lit := e.flashes.keys()
	e.cache.reset()
	e.buf.reset()
	e.flashes.reset()
	e.thr.reset()
	e.mu.Unlock()

	if len(lit) > 0 {
		e.sinkMu.Lock()
		for _, key := range lit {
			if target, ok := e.sink.Locate(key.RowID, key.Field); ok {
				e.sink.SetHighlight(target, models.DirectionNone)
			}
		}
		e.sinkMu.Unlock()
	}

	e.rowSubs.clear()
	e.cellSubs.clear()
	e.publishGauges(0, 0)
	metrics.SetThrottled(false)
	e.log.Debug().Msg("engine destroyed")
}

func (e *Engine) isDestroyed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroyed
}

func (e *Engine) publishGauges(pending, active int) {
	metrics.EnginePendingUpdates.Set(float64(pending))
	metrics.EngineActiveFlashes.Set(float64(active))
}
