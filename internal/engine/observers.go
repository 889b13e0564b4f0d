// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package engine

import "sync"

// Unsubscribe removes a subscription. Calling it more than once is a no-op.
type Unsubscribe func()

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// registry is a typed observer list that notifies in subscription order.
type registry[T any] struct {
	mu   sync.RWMutex
	next uint64
	subs []subscriber[T]
}

func (r *registry[T]) add(fn func(T)) Unsubscribe {
	r.mu.Lock()
	r.next++
	id := r.next
	r.subs = append(r.subs, subscriber[T]{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id) })
	}
}

func (r *registry[T]) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.subs {
		if s.id == id {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			return
		}
	}
}

// notify calls every subscriber with v. remove never edits the backing
// array in place, so the snapshot stays stable and a
// callback may unsubscribe itself.
func (r *registry[T]) notify(v T) {
	r.mu.RLock()
	subs := r.subs
	r.mu.RUnlock()
	for _, s := range subs {
		s.fn(v)
	}
}

func (r *registry[T]) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func (r *registry[T]) clear() {
	r.mu.Lock()
	r.subs = nil
	r.mu.Unlock()
}
