// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package simulator

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/livegrid/internal/logging"
	"github.com/tomtom215/livegrid/internal/metrics"
)

// Runner paces the generator with a token bucket and fans every update out
// to the publishers.
type Runner struct {
	gen     *Generator
	limiter *rate.Limiter
	pubs    []Publisher
	log     zerolog.Logger
	errLog  zerolog.Logger

	published atomic.Uint64
}

// NewRunner creates a runner emitting perSecond updates per second.
func NewRunner(gen *Generator, perSecond float64, pubs ...Publisher) (*Runner, error) {
	if perSecond <= 0 {
		return nil, fmt.Errorf("simulator rate must be positive, got %v", perSecond)
	}
	return &Runner{
		gen:     gen,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burstFor(perSecond)),
		pubs:    pubs,
		log:     logging.WithComponent("simulator"),
		errLog:  logging.Sampled("simulator", 5, time.Second),
	}, nil
}

// burstFor allows about 10ms worth of updates at once, so high rates do
// not need a timer wakeup per message.
func burstFor(perSecond float64) int {
	b := int(perSecond / 100)
	if b < 1 {
		return 1
	}
	return b
}

// Serve implements suture.Service.
func (r *Runner) Serve(ctx context.Context) error {
	r.log.Info().
		Float64("rate", float64(r.limiter.Limit())).
		Int("publishers", len(r.pubs)).
		Msg("simulator started")

	for {
		if err := r.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				r.log.Info().Uint64("published", r.published.Load()).Msg("simulator stopped")
				return ctx.Err()
			}
			return fmt.Errorf("rate limiter: %w", err)
		}

		u := r.gen.Next()
		for _, p := range r.pubs {
			if err := p.Publish(u); err != nil {
				r.errLog.Warn().Err(err).Str("publisher", p.Name()).Msg("publish failed")
				continue
			}
			metrics.SimulatorUpdatesPublished.WithLabelValues(p.Name()).Inc()
		}
		r.published.Add(1)
	}
}

// String implements fmt.Stringer for supervisor logging.
func (r *Runner) String() string {
	return "simulator"
}

// Published returns the number of updates generated so far.
func (r *Runner) Published() uint64 {
	return r.published.Load()
}

// Rate returns the current updates-per-second target.
func (r *Runner) Rate() float64 {
	return float64(r.limiter.Limit())
}

// SetRate changes the pace without restarting.
func (r *Runner) SetRate(perSecond float64) error {
	if perSecond <= 0 {
		return fmt.Errorf("simulator rate must be positive, got %v", perSecond)
	}
	r.limiter.SetLimit(rate.Limit(perSecond))
	r.limiter.SetBurst(burstFor(perSecond))
	r.log.Info().Float64("rate", perSecond).Msg("simulator rate changed")
	return nil
}

// Generator returns the underlying generator.
func (r *Runner) Generator() *Generator {
	return r.gen
}
