// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package output

import (
	"context"

	"github.com/ffutop/surveysim/internal/table"
)

// Writer appends prepared chunks to one persistent store.
type Writer interface {
	// Append adds the rows of b to the store, creating it if absent.
	// key identifies the chunk; only the hierarchical store uses it.
	// Append may modify b.
	Append(ctx context.Context, b *table.Batch, key string) error

	// Path returns the store location, or "" for non-persistent writers.
	Path() string

	// Close releases any resources held by the writer.
	Close() error
}
