// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package services

import (
	"context"
)

// Destroyer matches *engine.Engine.
type Destroyer interface {
	Destroy()
}

// Waiter matches *snapshot.Syncer: background work that must finish
// before the engine goes away.
type Waiter interface {
	Wait()
}

// EngineService owns the update engine's lifetime. The engine itself is
// driven by its frame scheduler, so Serve only waits for shutdown, lets
// in-flight resyncs finish and then destroys the engine, which cancels
// the pending frame and clears all flash state.
type EngineService struct {
	engine Destroyer
	wait   []Waiter
}

// NewEngineService creates the service. waiters are drained before Destroy.
func NewEngineService(engine Destroyer, waiters ...Waiter) *EngineService {
	return &EngineService{engine: engine, wait: waiters}
}

// Serve implements suture.Service.
func (s *EngineService) Serve(ctx context.Context) error {
	<-ctx.Done()
	for _, w := range s.wait {
		w.Wait()
	}
	s.engine.Destroy()
	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (s *EngineService) String() string {
	return "update-engine"
}
