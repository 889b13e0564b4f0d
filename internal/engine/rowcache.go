// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package engine

import "github.com/tomtom215/livegrid/internal/models"

// rowCache is the authoritative row state, kept in initialization order.
// Guarded by the engine lock.
type rowCache struct {
	order []models.RowID
	rows  map[models.RowID]*models.RowRecord
}

func newRowCache() *rowCache {
	return &rowCache{rows: make(map[models.RowID]*models.RowRecord)}
}

// load replaces the cache with copies of rows. A repeated id keeps its
// first position and its last fields.
func (c *rowCache) load(rows []models.RowRecord) {
	c.order = make([]models.RowID, 0, len(rows))
	c.rows = make(map[models.RowID]*models.RowRecord, len(rows))
	for _, r := range rows {
		clone := r.Clone()
		if _, dup := c.rows[r.ID]; !dup {
			c.order = append(c.order, r.ID)
		}
		c.rows[r.ID] = &clone
	}
}

func (c *rowCache) get(id models.RowID) (*models.RowRecord, bool) {
	r, ok := c.rows[id]
	return r, ok
}

// snapshot returns copies of all rows in order.
func (c *rowCache) snapshot() []models.RowRecord {
	out := make([]models.RowRecord, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.rows[id].Clone())
	}
	return out
}

func (c *rowCache) ids() []models.RowID {
	return append([]models.RowID(nil), c.order...)
}

func (c *rowCache) len() int { return len(c.order) }

func (c *rowCache) reset() {
	c.order = nil
	c.rows = make(map[models.RowID]*models.RowRecord)
}
