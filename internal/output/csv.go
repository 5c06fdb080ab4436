// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package output

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ffutop/surveysim/internal/table"
)

// CSVWriter appends chunks to a comma separated file.
// The header row is written only by the append that creates the file.
type CSVWriter struct {
	path string
}

// NewCSVWriter creates a new CSVWriter. The file is not touched until the
// first Append.
func NewCSVWriter(path string) *CSVWriter {
	return &CSVWriter{
		path: path,
	}
}

func (cw *CSVWriter) Append(ctx context.Context, b *table.Batch, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	header := false
	if _, err := os.Stat(cw.path); errors.Is(err, fs.ErrNotExist) {
		header = true
	} else if err != nil {
		return fmt.Errorf("failed to stat csv file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cw.path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f, err := os.OpenFile(cw.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := table.WriteCSV(w, b, header); err != nil {
		return fmt.Errorf("failed to write csv rows: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write csv file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync csv file to disk: %w", err)
	}
	return f.Close()
}

func (cw *CSVWriter) Path() string {
	return cw.path
}

// Close is a no-op; each Append opens and closes the file.
func (cw *CSVWriter) Close() error {
	return nil
}

// ReadCSV reads a CSV store back into one batch.
func ReadCSV(path string) (*table.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return table.ReadCSV(bufio.NewReader(f))
}
