// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package output

import (
	"fmt"

	"github.com/ffutop/surveysim/internal/config"
	"github.com/ffutop/surveysim/internal/table"
)

// TimeColumn is rounded to TimeDecimals on every write.
const (
	TimeColumn   = "fieldMJD_TAI"
	TimeDecimals = 5
)

// BasicColumns is the column list, in output order, of the basic projection.
var BasicColumns = []string{
	table.IDColumn,
	"fieldMJD_TAI",
	"fieldRA_deg",
	"fieldDec_deg",
	"RA_deg",
	"Dec_deg",
	"astrometricSigma_deg",
	"optFilter",
	"trailedSourceMag",
	"trailedSourceMagSigma",
	"fiveSigmaDepth_mag",
	"phase_deg",
	"Range_LTC_km",
	"RangeRate_LTC_km_s",
}

// PositionColumns are rounded to position_decimals when present.
var PositionColumns = []string{
	"fieldRA_deg",
	"fieldDec_deg",
	"RA_deg",
	"Dec_deg",
	"astrometricSigma_deg",
	"RATrue_deg",
	"DecTrue_deg",
}

// MagnitudeColumns are rounded to magnitude_decimals when present.
var MagnitudeColumns = []string{
	"PSFMag",
	"trailedSourceMag",
	"trailedSourceMagTrue",
	"PSFMagTrue",
	"PSFMagSigma",
	"trailedSourceMagSigma",
	"fieldFiveSigmaDepth_mag",
	"fiveSigmaDepth_mag",
}

// Prepare projects and rounds a chunk for output. The input is not modified.
//
// Rounding is half-to-even on the scaled value (see table.RoundHalfEven).
// Position and magnitude columns missing from the projection are skipped.
func Prepare(cfg config.OutputConfig, in *table.Batch) (*table.Batch, error) {
	var (
		out *table.Batch
		err error
	)
	switch cfg.Size {
	case config.SizeBasic:
		out, err = in.Select(BasicColumns...)
		if err != nil {
			return nil, fmt.Errorf("basic output: %w", err)
		}
	case config.SizeAll:
		out = in.Clone()
	default:
		return nil, config.ValidateSize(cfg.Size)
	}

	if err := out.Round(TimeColumn, TimeDecimals); err != nil {
		return nil, err
	}

	if cfg.PositionDecimals != nil {
		if err := roundPresent(out, PositionColumns, *cfg.PositionDecimals); err != nil {
			return nil, err
		}
	}
	if cfg.MagnitudeDecimals != nil {
		if err := roundPresent(out, MagnitudeColumns, *cfg.MagnitudeDecimals); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func roundPresent(b *table.Batch, cols []string, decimals int) error {
	for _, col := range cols {
		if !b.Has(col) {
			continue
		}
		if err := b.Round(col, decimals); err != nil {
			return err
		}
	}
	return nil
}
