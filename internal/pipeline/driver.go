// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ffutop/surveysim/internal/table"
	"github.com/ffutop/surveysim/lightcurve"
)

// MagnitudeColumns receive the lightcurve offset when present.
var MagnitudeColumns = []string{
	"trailedSourceMagTrue",
	"PSFMagTrue",
	"trailedSourceMag",
	"PSFMag",
}

// Sink receives finished chunks. endChunk is one past the index of the
// chunk's last object.
type Sink interface {
	Write(ctx context.Context, b *table.Batch, endChunk int) error
}

// Summary describes a completed run.
type Summary struct {
	Objects int
	Chunks  int
	Rows    int
}

// Driver splits observations into chunks of whole objects and feeds them
// to a sink, one chunk at a time.
type Driver struct {
	Sink      Sink
	Model     lightcurve.Model // nil means no lightcurve offset
	ChunkSize int
	Logger    *slog.Logger
}

// NewDriver creates a new Driver.
func NewDriver(sink Sink, model lightcurve.Model, chunkSize int, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		Sink:      sink,
		Model:     model,
		ChunkSize: chunkSize,
		Logger:    logger,
	}
}

// Run processes obs chunk by chunk. Objects keep their first-appearance
// order and every row of an object lands in the same chunk. The first
// failing chunk stops the run; earlier chunks stay written.
func (d *Driver) Run(ctx context.Context, obs *table.Batch) (Summary, error) {
	var sum Summary
	if d.ChunkSize <= 0 {
		return sum, fmt.Errorf("chunk size must be positive, got %d", d.ChunkSize)
	}

	objects, err := groupByObject(obs)
	if err != nil {
		return sum, err
	}
	sum.Objects = len(objects)

	for start := 0; start < len(objects); start += d.ChunkSize {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		end := min(start+d.ChunkSize, len(objects))

		var idx []int
		for _, rows := range objects[start:end] {
			idx = append(idx, rows...)
		}
		chunk := obs.Take(idx)

		if d.Model != nil {
			if err := d.applyLightcurve(ctx, chunk); err != nil {
				return sum, fmt.Errorf("chunk ending at %d: %w", end, err)
			}
		}

		if err := d.Sink.Write(ctx, chunk, end); err != nil {
			return sum, err
		}

		sum.Chunks++
		sum.Rows += len(idx)
		d.Logger.Debug("Chunk written", "start", start, "end", end, "rows", len(idx))
	}
	return sum, nil
}

func (d *Driver) applyLightcurve(ctx context.Context, chunk *table.Batch) error {
	delta, err := lightcurve.Apply(ctx, d.Model, chunk)
	if err != nil {
		return err
	}
	for _, col := range MagnitudeColumns {
		if !chunk.Has(col) {
			continue
		}
		if err := chunk.AddTo(col, delta); err != nil {
			return err
		}
	}
	return nil
}

// groupByObject returns the row indices of each object in order of first appearance.
func groupByObject(obs *table.Batch) ([][]int, error) {
	ids, ok := obs.Column(table.IDColumn)
	if !ok {
		return nil, fmt.Errorf("%w: %s", table.ErrMissingColumn, table.IDColumn)
	}

	pos := make(map[string]int)
	var objects [][]int
	for i := 0; i < ids.Len(); i++ {
		id := ids.Text(i)
		j, ok := pos[id]
		if !ok {
			j = len(objects)
			pos[id] = j
			objects = append(objects, nil)
		}
		objects[j] = append(objects[j], i)
	}
	return objects, nil
}
