// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package output

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"unicode"

	"github.com/ffutop/surveysim/internal/table"
)

// HierarchicalWriter appends each chunk as a group block of a hierarchical
// table file. Groups are keyed by the caller's chunk key.
type HierarchicalWriter struct {
	path   string
	logger *slog.Logger
}

// NewHierarchicalWriter creates a new HierarchicalWriter. The file is
// created on first Append.
func NewHierarchicalWriter(path string, logger *slog.Logger) *HierarchicalWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HierarchicalWriter{
		path:   path,
		logger: logger,
	}
}

func (hw *HierarchicalWriter) Append(ctx context.Context, b *table.Batch, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// The store has no nullable text type, so identities are always written as plain text.
	if b.Has(table.IDColumn) {
		if err := b.ToText(table.IDColumn); err != nil {
			return err
		}
	}

	// Keys such as "100" are not identifier-like. That only matters to tools
	// that expose groups as attributes, so the notice stays at debug level.
	if !isNaturalName(key) {
		hw.logger.Debug("Group key is not a natural name", "key", key)
	}

	block, err := encodeBlock(key, b)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(hw.path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.OpenFile(hw.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open hierarchical file: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return err
	}

	if fi.Size() == 0 {
		if _, err := f.Write(fileHeader()); err != nil {
			return fmt.Errorf("failed to write file header: %w", err)
		}
	} else {
		h := make([]byte, headerSize)
		if _, err := f.ReadAt(h, 0); err != nil {
			return fmt.Errorf("%w: %v", errCorrupt, err)
		}
		if err := checkHeader(h); err != nil {
			return fmt.Errorf("refusing to append to %s: %w", hw.path, err)
		}
	}

	if _, err := f.Write(block); err != nil {
		return fmt.Errorf("failed to write group %q: %w", key, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync file to disk: %w", err)
	}
	return f.Close()
}

func (hw *HierarchicalWriter) Path() string {
	return hw.path
}

func (hw *HierarchicalWriter) Close() error {
	return nil
}

// isNaturalName reports whether key is a valid identifier.
func isNaturalName(key string) bool {
	if key == "" {
		return false
	}
	for i, r := range key {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
