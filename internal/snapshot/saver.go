// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package snapshot

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/livegrid/internal/logging"
	"github.com/tomtom215/livegrid/internal/metrics"
	"github.com/tomtom215/livegrid/internal/models"
)

// RowSource supplies the rows to persist.
type RowSource interface {
	GetRows() []models.RowRecord
}

// Saver is a suture service that periodically persists the row cache.
type Saver struct {
	store    *Store
	src      RowSource
	interval time.Duration
	log      zerolog.Logger
}

// NewSaver creates a saver writing every interval.
func NewSaver(store *Store, src RowSource, interval time.Duration) *Saver {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Saver{
		store:    store,
		src:      src,
		interval: interval,
		log:      logging.WithComponent("snapshot-saver"),
	}
}

// Serve implements suture.Service. It saves once more on shutdown.
func (s *Saver) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.SaveNow()
			return ctx.Err()
		case <-ticker.C:
			s.SaveNow()
		}
	}
}

// SaveNow writes the current rows. An empty cache never overwrites a
// stored snapshot.
func (s *Saver) SaveNow() {
	rows := s.src.GetRows()
	if len(rows) == 0 {
		return
	}
	err := s.store.Save(rows)
	metrics.RecordSnapshot("save", err)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to save row snapshot")
		return
	}
	s.log.Debug().Int("rows", len(rows)).Msg("row snapshot saved")
}

// String implements fmt.Stringer for supervisor logging.
func (s *Saver) String() string {
	return "snapshot-saver"
}
