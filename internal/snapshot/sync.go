// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/livegrid/internal/engine"
	"github.com/tomtom215/livegrid/internal/logging"
	"github.com/tomtom215/livegrid/internal/metrics"
	"github.com/tomtom215/livegrid/internal/models"
)

// Fetcher retrieves the producer's current rows.
type Fetcher interface {
	FetchRows(ctx context.Context) ([]models.RowRecord, error)
}

// Loader returns a previously stored snapshot.
type Loader interface {
	Load() ([]models.RowRecord, error)
}

// Engine is the part of the update engine the syncer drives.
type Engine interface {
	Initialize(rows []models.RowRecord)
	ProcessUpdate(u models.RowUpdate) engine.ProcessResult
}

// Source says where the initial rows came from.
type Source string

const (
	SourceProducer Source = "producer"
	SourceStore    Source = "store"
)

// ResyncResult summarizes one resync pass.
type ResyncResult struct {
	Rows    int
	Changed int
	Unknown int
}

// Syncer loads the initial rows and reconciles the engine after reconnects.
type Syncer struct {
	fetcher Fetcher
	loader  Loader
	eng     Engine
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger

	onInit   func()
	bootMu   sync.Mutex
	ready    atomic.Bool
	connects atomic.Uint64
	wg       sync.WaitGroup
}

// NewSyncer creates a syncer. loader may be nil to disable warm starts.
func NewSyncer(fetcher Fetcher, loader Loader, eng Engine, timeout time.Duration) *Syncer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Syncer{
		fetcher: fetcher,
		loader:  loader,
		eng:     eng,
		timeout: timeout,
		now:     time.Now,
		log:     logging.WithComponent("snapshot"),
	}
}

// OnInitialize registers fn to run after every successful Bootstrap, once
// the engine holds the new rows. Set it before the first Bootstrap.
func (s *Syncer) OnInitialize(fn func()) {
	s.onInit = fn
}

// Ready reports whether a Bootstrap has succeeded.
func (s *Syncer) Ready() bool {
	return s.ready.Load()
}

func (s *Syncer) initialize(rows []models.RowRecord) {
	s.eng.Initialize(rows)
	s.ready.Store(true)
	if s.onInit != nil {
		s.onInit()
	}
}

// Bootstrap initializes the engine from the producer, falling back to the
// stored snapshot when the fetch fails.
func (s *Syncer) Bootstrap(ctx context.Context) (Source, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, fetchErr := s.fetcher.FetchRows(ctx)
	if fetchErr == nil {
		s.initialize(rows)
		s.log.Info().Int("rows", len(rows)).Msg("initialized from producer snapshot")
		return SourceProducer, nil
	}

	if s.loader == nil {
		return "", fmt.Errorf("fetch snapshot: %w", fetchErr)
	}
	rows, loadErr := s.loader.Load()
	metrics.RecordSnapshot("load", loadErr)
	if loadErr != nil {
		return "", fmt.Errorf("fetch snapshot: %w; load stored snapshot: %w", fetchErr, loadErr)
	}

	s.initialize(rows)
	s.log.Warn().
		Err(fetchErr).
		Int("rows", len(rows)).
		Msg("producer snapshot unavailable, initialized from stored snapshot")
	return SourceStore, nil
}

// Resync fetches the producer rows and feeds each through ProcessUpdate,
// so unchanged cells stay quiet and changed ones flash as usual. Rows the
// engine does not know are counted and skipped.
func (s *Syncer) Resync(ctx context.Context) (ResyncResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.fetcher.FetchRows(ctx)
	if err != nil {
		return ResyncResult{}, fmt.Errorf("resync: %w", err)
	}

	res := ResyncResult{Rows: len(rows)}
	ts := s.now().UnixMilli()
	for i := range rows {
		if len(rows[i].Fields) == 0 {
			continue
		}
		r := s.eng.ProcessUpdate(models.RowUpdate{
			RowID:     rows[i].ID,
			Updates:   rows[i].Fields,
			Timestamp: ts,
		})
		switch {
		case errors.Is(r.Err, engine.ErrUnknownRow):
			res.Unknown++
		case r.Err != nil:
			return res, fmt.Errorf("resync: %w", r.Err)
		default:
			res.Changed += r.Changed
		}
	}

	metrics.RecordSnapshot("resync", nil)
	s.log.Info().
		Int("rows", res.Rows).
		Int("changed_cells", res.Changed).
		Int("unknown_rows", res.Unknown).
		Msg("resynced after reconnect")
	return res, nil
}

// HandleConnect is a connection OnConnect hook. Until a Bootstrap has
// succeeded, every connection retries it in the background. After that the
// first connection is skipped and every later one triggers a Resync.
func (s *Syncer) HandleConnect() {
	n := s.connects.Add(1)
	if !s.ready.Load() {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.retryBootstrap()
		}()
		return
	}
	if n == 1 {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.Resync(context.Background()); err != nil {
			metrics.RecordSnapshot("resync", err)
			s.log.Warn().Err(err).Msg("resync after reconnect failed")
		}
	}()
}

// retryBootstrap runs one Bootstrap unless a concurrent one already won.
func (s *Syncer) retryBootstrap() {
	s.bootMu.Lock()
	defer s.bootMu.Unlock()
	if s.ready.Load() {
		return
	}
	source, err := s.Bootstrap(context.Background())
	if err != nil {
		s.log.Warn().Err(err).Msg("bootstrap on connect failed, will retry on next connection")
		return
	}
	s.log.Info().Str("source", string(source)).Msg("row cache bootstrapped on connect")
}

// Wait blocks until background resyncs finish.
func (s *Syncer) Wait() {
	s.wg.Wait()
}
