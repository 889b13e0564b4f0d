// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package engine

import "github.com/tomtom215/livegrid/internal/models"

const minBufferCapacity = 64

// updateBuffer is a FIFO ring of pending cell patches. It grows on demand
// up to limit (0 = unbounded); when full, push evicts the oldest entry.
// Not safe for concurrent use; the engine lock guards it.
type updateBuffer struct {
	items []models.CellUpdate
	head  int
	size  int
	limit int
}

func newUpdateBuffer(limit int) *updateBuffer {
	return &updateBuffer{limit: limit}
}

// push appends u and reports whether an older entry was dropped.
func (b *updateBuffer) push(u models.CellUpdate) (dropped bool) {
	if b.limit > 0 && b.size == b.limit {
		b.items[b.head] = models.CellUpdate{}
		b.head = (b.head + 1) % len(b.items)
		b.size--
		dropped = true
	}
	if b.size == len(b.items) {
		b.grow()
	}
	b.items[(b.head+b.size)%len(b.items)] = u
	b.size++
	return dropped
}

func (b *updateBuffer) grow() {
	newCap := len(b.items) * 2
	if newCap < minBufferCapacity {
		newCap = minBufferCapacity
	}
	if b.limit > 0 && newCap > b.limit {
		newCap = b.limit
	}
	items := make([]models.CellUpdate, newCap)
	for i := 0; i < b.size; i++ {
		items[i] = b.items[(b.head+i)%len(b.items)]
	}
	b.items = items
	b.head = 0
}

// drain removes and returns up to n entries in insertion order.
func (b *updateBuffer) drain(n int) []models.CellUpdate {
	if n > b.size {
		n = b.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]models.CellUpdate, n)
	for i := 0; i < n; i++ {
		idx := (b.head + i) % len(b.items)
		out[i] = b.items[idx]
		b.items[idx] = models.CellUpdate{}
	}
	b.head = (b.head + n) % len(b.items)
	b.size -= n
	return out
}

func (b *updateBuffer) len() int { return b.size }

func (b *updateBuffer) reset() {
	b.items = nil
	b.head = 0
	b.size = 0
}
