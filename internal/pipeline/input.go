// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package pipeline

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ffutop/surveysim/internal/table"
)

// ExpandInputs resolves glob patterns (doublestar syntax, so "obs/**/*.csv"
// works) into a list of files. Matches of one pattern are sorted; patterns
// keep their order and a file matched twice is listed once.
// A pattern that matches nothing is an error.
func ExpandInputs(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("no input files given")
	}

	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid input pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("input pattern %q matched no files", pattern)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	return files, nil
}

// LoadObservations reads observation CSV files and concatenates them in
// order. All files must carry the same columns in the same order. A column
// inferred as integer in one file and float in another is read as float;
// any other kind disagreement turns both sides to text.
func LoadObservations(paths []string, logger *slog.Logger) (*table.Batch, error) {
	if logger == nil {
		logger = slog.Default()
	}

	all := table.New()
	for _, path := range paths {
		b, err := readCSVFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if all.NumColumns() > 0 {
			if err := unify(all, b); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
		if err := all.Append(b); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		logger.Debug("Loaded observations", "file", path, "rows", b.NumRows())
	}
	return all, nil
}

func readCSVFile(path string) (*table.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return table.ReadCSV(bufio.NewReader(f))
}

// unify reconciles column kinds of two batches with the same column names.
func unify(a, b *table.Batch) error {
	an, bn := a.Names(), b.Names()
	if len(an) != len(bn) {
		return fmt.Errorf("schema mismatch: %d columns, file has %d", len(an), len(bn))
	}
	for i, name := range an {
		if bn[i] != name {
			return fmt.Errorf("schema mismatch at column %d: %s vs %s", i, name, bn[i])
		}
		ac, _ := a.Column(name)
		bc, _ := b.Column(name)
		if ac.Kind == bc.Kind {
			continue
		}
		if ac.Kind != table.KindString && bc.Kind != table.KindString {
			if err := a.ToFloat(name); err != nil {
				return err
			}
			if err := b.ToFloat(name); err != nil {
				return err
			}
			continue
		}
		if err := a.ToText(name); err != nil {
			return err
		}
		if err := b.ToText(name); err != nil {
			return err
		}
	}
	return nil
}
