// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package sinusoidal

import (
	"context"
	"fmt"
	"math"

	"github.com/ffutop/surveysim/internal/table"
	"github.com/ffutop/surveysim/lightcurve"
)

// Name is the registry identifier of this model.
const Name = "sinusoidal"

// Per-object input columns.
const (
	ColumnAmplitude = "LCA"
	ColumnPeriod    = "Period"
	ColumnEpoch     = "Time0"
	ColumnTime      = "fieldMJD_TAI"
)

func init() {
	lightcurve.Register(New)
}

// Model is a single-harmonic variation:
//
//	dmag = LCA * sin(2*pi*(fieldMJD_TAI - Time0) / Period)
//
// with Period and Time0 in days.
type Model struct{}

// New creates a sinusoidal model.
func New() lightcurve.Model {
	return &Model{}
}

func (m *Model) NameID() string {
	return Name
}

func (m *Model) RequiredColumns() []string {
	return []string{ColumnTime, ColumnAmplitude, ColumnPeriod, ColumnEpoch}
}

func (m *Model) Compute(ctx context.Context, b *table.Batch) ([]float64, error) {
	t, err := b.Floats(ColumnTime)
	if err != nil {
		return nil, err
	}
	amp, err := b.Floats(ColumnAmplitude)
	if err != nil {
		return nil, err
	}
	period, err := b.Floats(ColumnPeriod)
	if err != nil {
		return nil, err
	}
	epoch, err := b.Floats(ColumnEpoch)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(t))
	for i := range t {
		if !(period[i] > 0) {
			return nil, fmt.Errorf("row %d: period must be positive, got %v", i, period[i])
		}
		out[i] = amp[i] * math.Sin(2*math.Pi*(t[i]-epoch[i])/period[i])
	}
	return out, nil
}
