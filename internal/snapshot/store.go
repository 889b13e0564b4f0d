// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package snapshot

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/livegrid/internal/logging"
	"github.com/tomtom215/livegrid/internal/models"
)

// Key layout. Rows are stored under zero-padded positions so a prefix scan
// returns them in row order.
const (
	rowPrefix  = "row:"
	savedAtKey = "meta:saved_at"
)

// ErrNoSnapshot is returned by Load when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no stored snapshot")

// StoreConfig configures the badger store.
type StoreConfig struct {
	// Path is the badger directory. Empty with InMemory set keeps
	// everything in memory.
	Path       string
	InMemory   bool
	SyncWrites bool
}

// Store keeps the last known row snapshot for warm starts.
type Store struct {
	db *badger.DB
}

// OpenStore opens (or creates) the snapshot store.
func OpenStore(cfg StoreConfig) (*Store, error) {
	if cfg.Path == "" && !cfg.InMemory {
		return nil, fmt.Errorf("snapshot store path is required")
	}
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Msg("Snapshot store opened")
	return &Store{db: db}, nil
}

func rowKey(i int) []byte {
	return []byte(fmt.Sprintf("%s%010d", rowPrefix, i))
}

// Save replaces the stored snapshot with rows.
func (s *Store) Save(rows []models.RowRecord) error {
	existing, err := s.count()
	if err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for i := range rows {
		data, err := json.Marshal(rows[i])
		if err != nil {
			return fmt.Errorf("marshal row %s: %w", rows[i].ID, err)
		}
		if err := wb.Set(rowKey(i), data); err != nil {
			return fmt.Errorf("write row %s: %w", rows[i].ID, err)
		}
	}
	for i := len(rows); i < existing; i++ {
		if err := wb.Delete(rowKey(i)); err != nil {
			return fmt.Errorf("delete stale row: %w", err)
		}
	}

	stamp, err := time.Now().UTC().MarshalBinary()
	if err != nil {
		return err
	}
	if err := wb.Set([]byte(savedAtKey), stamp); err != nil {
		return fmt.Errorf("write saved_at: %w", err)
	}
	return wb.Flush()
}

// Load returns the stored rows in their saved order.
func (s *Store) Load() ([]models.RowRecord, error) {
	var rows []models.RowRecord
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(rowPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var r models.RowRecord
				if err := json.Unmarshal(val, &r); err != nil {
					return err
				}
				rows = append(rows, r)
				return nil
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoSnapshot
	}
	return rows, nil
}

// SavedAt returns when the snapshot was last saved.
func (s *Store) SavedAt() (time.Time, error) {
	var t time.Time
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(savedAtKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNoSnapshot
		}
		if err != nil {
			return err
		}
		return item.Value(t.UnmarshalBinary)
	})
	return t, err
}

func (s *Store) count() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(rowPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
