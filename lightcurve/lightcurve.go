// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package lightcurve defines the capability interface for pluggable
// brightness calculators and the registry that indexes them by name.
//
// Implementations live in their own packages and add themselves to the
// process catalog from init, the same way database/sql drivers do:
//
//	import _ "github.com/ffutop/surveysim/lightcurve/sinusoidal"
//
// The catalog is only a list. Names are checked for uniqueness when a
// Registry is built from it.
package lightcurve

import (
	"context"
	"fmt"
	"sync"

	"github.com/ffutop/surveysim/internal/table"
)

// Model computes a per-row magnitude offset for a chunk of observations.
type Model interface {
	// NameID is the stable, globally unique identifier used to select the
	// model from configuration.
	NameID() string

	// RequiredColumns lists the input columns Compute reads.
	RequiredColumns() []string

	// Compute returns one magnitude offset per row of b.
	Compute(ctx context.Context, b *table.Batch) ([]float64, error)
}

// Constructor creates a fresh model instance.
type Constructor func() Model

var (
	catalogMu sync.Mutex
	catalog   []Constructor
)

// Register adds a constructor to the process catalog.
func Register(ctor Constructor) {
	if ctor == nil {
		panic("lightcurve: Register constructor is nil")
	}
	catalogMu.Lock()
	defer catalogMu.Unlock()
	catalog = append(catalog, ctor)
}

// Catalog returns a snapshot of every registered constructor, in
// registration order.
func Catalog() []Constructor {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	return append([]Constructor(nil), catalog...)
}

// Apply checks that b carries every column m requires, then runs m.
func Apply(ctx context.Context, m Model, b *table.Batch) ([]float64, error) {
	for _, col := range m.RequiredColumns() {
		if !b.Has(col) {
			return nil, fmt.Errorf("lightcurve model %q: %w: %s", m.NameID(), table.ErrMissingColumn, col)
		}
	}

	out, err := m.Compute(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("lightcurve model %q: %w", m.NameID(), err)
	}
	if len(out) != b.NumRows() {
		return nil, fmt.Errorf("lightcurve model %q returned %d values for %d rows", m.NameID(), len(out), b.NumRows())
	}
	return out, nil
}
