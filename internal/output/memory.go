// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package output

import (
	"context"
	"sync"

	"github.com/ffutop/surveysim/internal/table"
)

// MemoryWriter keeps appended chunks in memory (non-persistent).
type MemoryWriter struct {
	mu      sync.Mutex
	batches []*table.Batch
	keys    []string
}

func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{}
}

func (mw *MemoryWriter) Append(ctx context.Context, b *table.Batch, key string) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.batches = append(mw.batches, b.Clone())
	mw.keys = append(mw.keys, key)
	return nil
}

// Batches returns the chunks appended so far, in order.
func (mw *MemoryWriter) Batches() []*table.Batch {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return append([]*table.Batch(nil), mw.batches...)
}

// Keys returns the chunk keys appended so far, in order.
func (mw *MemoryWriter) Keys() []string {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return append([]string(nil), mw.keys...)
}

func (mw *MemoryWriter) Path() string {
	return ""
}

func (mw *MemoryWriter) Close() error {
	return nil
}
