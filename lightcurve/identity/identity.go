// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package identity

import (
	"context"

	"github.com/ffutop/surveysim/internal/table"
	"github.com/ffutop/surveysim/lightcurve"
)

// Name is the registry identifier of this model.
const Name = "identity"

func init() {
	lightcurve.Register(New)
}

// Model leaves every magnitude unchanged.
type Model struct{}

// New creates an identity model.
func New() lightcurve.Model {
	return &Model{}
}

func (m *Model) NameID() string {
	return Name
}

func (m *Model) RequiredColumns() []string {
	return nil
}

// Compute returns a zero offset for every row.
func (m *Model) Compute(ctx context.Context, b *table.Batch) ([]float64, error) {
	return make([]float64, b.NumRows()), nil
}
