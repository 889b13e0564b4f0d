// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package simulator

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/tomtom215/livegrid/internal/models"
)

// Fields are the columns of every simulated row, in display order.
var Fields = []string{"price", "change", "changePercent", "volume", "bid", "ask", "high", "low"}

// GeneratorConfig configures the synthetic market.
type GeneratorConfig struct {
	Symbols            int
	Prefix             string
	MaxFieldsPerUpdate int
	// Volatility is the largest relative price step per update.
	Volatility float64
	Seed       int64
}

// DefaultGeneratorConfig returns 100 symbols, up to 3 fields per update
// and 0.2% maximum steps.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbols:            100,
		Prefix:             "SYM",
		MaxFieldsPerUpdate: 3,
		Volatility:         0.002,
		Seed:               1,
	}
}

type quote struct {
	open, price, high, low, bid, ask float64
	volume                           int64
}

func (q *quote) value(field string) interface{} {
	switch field {
	case "price":
		return q.price
	case "change":
		return round2(q.price - q.open)
	case "changePercent":
		return round2((q.price - q.open) / q.open * 100)
	case "volume":
		return q.volume
	case "bid":
		return q.bid
	case "ask":
		return q.ask
	case "high":
		return q.high
	case "low":
		return q.low
	default:
		return nil
	}
}

// Generator produces a bounded random walk over a fixed set of symbols.
// It is safe for concurrent use.
type Generator struct {
	cfg GeneratorConfig
	now func() time.Time

	mu     sync.Mutex
	rng    *rand.Rand
	ids    []models.RowID
	quotes []quote
}

// NewGenerator seeds the market. The same seed yields the same sequence.
func NewGenerator(cfg GeneratorConfig) *Generator {
	def := DefaultGeneratorConfig()
	if cfg.Symbols <= 0 {
		cfg.Symbols = def.Symbols
	}
	if cfg.Prefix == "" {
		cfg.Prefix = def.Prefix
	}
	if cfg.MaxFieldsPerUpdate <= 0 {
		cfg.MaxFieldsPerUpdate = def.MaxFieldsPerUpdate
	}
	if cfg.MaxFieldsPerUpdate > len(Fields) {
		cfg.MaxFieldsPerUpdate = len(Fields)
	}
	if cfg.Volatility <= 0 {
		cfg.Volatility = def.Volatility
	}

	g := &Generator{
		cfg:    cfg,
		now:    time.Now,
		rng:    rand.New(rand.NewSource(cfg.Seed)), //nolint:gosec // synthetic data
		ids:    make([]models.RowID, cfg.Symbols),
		quotes: make([]quote, cfg.Symbols),
	}
	width := len(fmt.Sprint(cfg.Symbols - 1))
	if width < 3 {
		width = 3
	}
	for i := range g.quotes {
		g.ids[i] = models.RowID(fmt.Sprintf("%s%0*d", cfg.Prefix, width, i))
		open := round2(10 + g.rng.Float64()*490)
		g.quotes[i] = quote{open: open, price: open, high: open, low: open, volume: g.rng.Int63n(100000)}
		g.quotes[i].setSpread()
	}
	return g
}

func (q *quote) setSpread() {
	spread := math.Max(0.01, round2(q.price*0.0005))
	q.bid = round2(q.price - spread)
	q.ask = round2(q.price + spread)
}

// IDs returns the symbol ids in order.
func (g *Generator) IDs() []models.RowID {
	return append([]models.RowID(nil), g.ids...)
}

// Rows returns the current value of every row.
func (g *Generator) Rows() []models.RowRecord {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]models.RowRecord, len(g.quotes))
	for i := range g.quotes {
		fields := make(map[string]interface{}, len(Fields))
		for _, f := range Fields {
			fields[f] = g.quotes[i].value(f)
		}
		out[i] = models.NewRowRecord(g.ids[i], fields)
	}
	return out
}

// Next advances one random symbol and returns an update carrying between
// 1 and MaxFieldsPerUpdate of its fields.
func (g *Generator) Next() models.RowUpdate {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := g.rng.Intn(len(g.quotes))
	q := &g.quotes[i]

	step := (g.rng.Float64()*2 - 1) * g.cfg.Volatility
	q.price = round2(clamp(q.price*(1+step), q.open*0.5, q.open*1.5))
	if q.price < 0.01 {
		q.price = 0.01
	}
	q.high = math.Max(q.high, q.price)
	q.low = math.Min(q.low, q.price)
	q.volume += g.rng.Int63n(1000) + 1
	q.setSpread()

	k := 1 + g.rng.Intn(g.cfg.MaxFieldsPerUpdate)
	updates := make(map[string]interface{}, k)
	for _, j := range g.rng.Perm(len(Fields))[:k] {
		updates[Fields[j]] = q.value(Fields[j])
	}

	return models.RowUpdate{
		RowID:     g.ids[i],
		Updates:   updates,
		Timestamp: g.now().UnixMilli(),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
