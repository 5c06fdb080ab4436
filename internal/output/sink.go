// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package output

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ffutop/surveysim/internal/config"
	"github.com/ffutop/surveysim/internal/table"
)

// Destination is where a run's store lives: a directory and a file stem
// without extension.
type Destination struct {
	Dir  string
	Stem string
}

// Path joins the destination with a format suffix such as ".csv".
func (d Destination) Path(suffix string) string {
	return filepath.Join(d.Dir, d.Stem+suffix)
}

// Suffix returns the file extension used for format.
func Suffix(format string) (string, error) {
	switch format {
	case config.FormatCSV:
		return ".csv", nil
	case config.FormatSQLite:
		return ".db", nil
	case config.FormatHDF5, config.FormatH5:
		return ".h5", nil
	}
	return "", &config.ValueError{Key: "output.output_format", Value: format, Accepted: config.Formats}
}

// Sink prepares chunks and appends them to the configured store.
type Sink struct {
	cfg     config.OutputConfig
	writer  Writer
	logger  *slog.Logger
	metrics *Metrics
	verbose bool
}

// Option configures a Sink.
type Option func(*Sink)

// WithLogger sets the logger used for confirmations and verbose steps.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sink) { s.logger = l }
}

// WithWriter replaces the format writer, e.g. with a MemoryWriter for dry runs.
func WithWriter(w Writer) Option {
	return func(s *Sink) { s.writer = w }
}

// WithMetrics sets the collectors updated on each write.
func WithMetrics(m *Metrics) Option {
	return func(s *Sink) { s.metrics = m }
}

// WithVerbose logs each pipeline step at info level.
func WithVerbose(v bool) Option {
	return func(s *Sink) { s.verbose = v }
}

// New validates cfg and creates a sink writing under dest.
// No file is created until the first Write.
func New(cfg config.OutputConfig, dest Destination, opts ...Option) (*Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Sink{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}

	if s.writer == nil {
		suffix, err := Suffix(cfg.Format)
		if err != nil {
			return nil, err
		}
		path := dest.Path(suffix)

		switch cfg.Format {
		case config.FormatCSV:
			s.writer = NewCSVWriter(path)
		case config.FormatSQLite:
			s.writer = NewSQLWriter(path, s.logger)
		case config.FormatHDF5, config.FormatH5:
			s.writer = NewHierarchicalWriter(path, s.logger)
		}
		s.logger.Debug("Initializing result sink", "format", cfg.Format, "path", path)
	}
	return s, nil
}

// Write prepares b and appends it to the store. endChunk is the index one
// past the chunk's last object; the hierarchical store uses it as group key.
// pipeline.Driver clips endChunk to the object count, so a short final chunk
// is keyed by the number of objects rather than by start+chunk_size.
// Failures are not retried.
func (s *Sink) Write(ctx context.Context, b *table.Batch, endChunk int) error {
	prepared, err := Prepare(s.cfg, b)
	if err != nil {
		return err
	}

	s.verboseLog("Constructing output path...")
	s.verboseLog(fmt.Sprintf("Output to %s...", s.describe()), "path", s.writer.Path())

	start := time.Now()
	rows := prepared.NumRows()
	if err := s.writer.Append(ctx, prepared, strconv.Itoa(endChunk)); err != nil {
		s.metrics.Failures.WithLabelValues(s.cfg.Format).Inc()
		return fmt.Errorf("failed to write chunk ending at %d: %w", endChunk, err)
	}

	s.metrics.Duration.WithLabelValues(s.cfg.Format).Observe(time.Since(start).Seconds())
	s.metrics.Rows.WithLabelValues(s.cfg.Format).Add(float64(rows))
	s.metrics.Chunks.WithLabelValues(s.cfg.Format).Inc()
	return nil
}

// Path returns the store location.
func (s *Sink) Path() string {
	return s.writer.Path()
}

// Close closes the underlying writer.
func (s *Sink) Close() error {
	return s.writer.Close()
}

func (s *Sink) describe() string {
	switch s.cfg.Format {
	case config.FormatCSV:
		return "CSV file"
	case config.FormatSQLite:
		return "sqlite3 database"
	default:
		return "HDF5 binary file"
	}
}

func (s *Sink) verboseLog(msg string, args ...any) {
	if s.verbose {
		s.logger.Info(msg, args...)
	}
}
