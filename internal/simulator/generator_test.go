// LiveGrid - Real-time Row Update Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/livegrid

package simulator

import (
	"reflect"
	"testing"

	"github.com/tomtom215/livegrid/internal/models"
	"github.com/tomtom215/livegrid/internal/validation"
)

func TestGeneratorIDs(t *testing.T) {
	tests := []struct {
		name    string
		cfg     GeneratorConfig
		first   models.RowID
		last    models.RowID
		symbols int
	}{
		{"defaults", GeneratorConfig{}, "SYM000", "SYM099", 100},
		{"wide", GeneratorConfig{Symbols: 1500, Prefix: "T"}, "T0000", "T1499", 1500},
		{"small", GeneratorConfig{Symbols: 3}, "SYM000", "SYM002", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := NewGenerator(tt.cfg).IDs()
			if len(ids) != tt.symbols || ids[0] != tt.first || ids[len(ids)-1] != tt.last {
				t.Errorf("ids = %d [%s..%s], want %d [%s..%s]",
					len(ids), ids[0], ids[len(ids)-1], tt.symbols, tt.first, tt.last)
			}
		})
	}
}

func TestGeneratorIsDeterministic(t *testing.T) {
	cfg := GeneratorConfig{Symbols: 10, Seed: 42}
	a, b := NewGenerator(cfg), NewGenerator(cfg)
	for i := 0; i < 100; i++ {
		ua, ub := a.Next(), b.Next()
		if ua.RowID != ub.RowID || !reflect.DeepEqual(ua.Updates, ub.Updates) {
			t.Fatalf("update %d differs: %+v vs %+v", i, ua, ub)
		}
	}
}

func TestGeneratorUpdatesAreValid(t *testing.T) {
	g := NewGenerator(GeneratorConfig{Symbols: 5, MaxFieldsPerUpdate: 4, Volatility: 0.05, Seed: 7})
	opens := make(map[models.RowID]float64)
	for _, r := range g.Rows() {
		opens[r.ID] = r.Fields["price"].(float64)
	}

	known := make(map[string]bool)
	for _, f := range Fields {
		known[f] = true
	}

	for i := 0; i < 2000; i++ {
		u := g.Next()
		if verr := validation.ValidateStruct(&u); verr != nil {
			t.Fatalf("invalid update %+v: %v", u, verr)
		}
		if n := len(u.Updates); n < 1 || n > 4 {
			t.Fatalf("update carries %d fields", n)
		}
		for f := range u.Updates {
			if !known[f] {
				t.Fatalf("unknown field %q", f)
			}
		}
		if u.Timestamp == 0 {
			t.Fatal("timestamp not set")
		}
	}

	for _, r := range g.Rows() {
		price := r.Fields["price"].(float64)
		open := opens[r.ID]
		if price < open*0.5-0.01 || price > open*1.5+0.01 {
			t.Errorf("%s price %v escaped bounds around open %v", r.ID, price, open)
		}
		if r.Fields["high"].(float64) < price || r.Fields["low"].(float64) > price {
			t.Errorf("%s high/low do not bracket price: %+v", r.ID, r.Fields)
		}
		if r.Fields["bid"].(float64) >= r.Fields["ask"].(float64) {
			t.Errorf("%s bid >= ask: %+v", r.ID, r.Fields)
		}
	}
}

func TestRowsReflectLatestUpdate(t *testing.T) {
	g := NewGenerator(GeneratorConfig{Symbols: 2, Seed: 3})
	u := g.Next()

	var found bool
	for _, r := range g.Rows() {
		if r.ID != u.RowID {
			continue
		}
		found = true
		for f, v := range u.Updates {
			if !reflect.DeepEqual(r.Fields[f], v) {
				t.Errorf("%s.%s = %v in snapshot, %v in update", r.ID, f, r.Fields[f], v)
			}
		}
		if len(r.Fields) != len(Fields) {
			t.Errorf("snapshot row has %d fields, want %d", len(r.Fields), len(Fields))
		}
	}
	if !found {
		t.Fatalf("row %s missing from snapshot", u.RowID)
	}
}
