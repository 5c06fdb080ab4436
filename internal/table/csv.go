// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// IDColumn is the object identity column. It is always read as text.
const IDColumn = "ObjID"

// WriteCSV writes the rows of b as comma separated text. The header row is
// written only when header is true. No row-index column is written.
func WriteCSV(w io.Writer, b *Batch, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write(b.Names()); err != nil {
			return err
		}
	}

	record := make([]string, b.NumColumns())
	for i := 0; i < b.NumRows(); i++ {
		for j, c := range b.columns {
			record[j] = c.Text(i)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV reads a headed CSV table. Column kinds are inferred: a column whose
// values all parse as integers is KindInt, one whose values all parse as
// floats (empty cells read as NaN) is KindFloat, anything else is KindString.
// The ObjID column is always KindString.
func ReadCSV(r io.Reader) (*Batch, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return New(), nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	cells := make([][]string, len(header))
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record: %w", err)
		}
		for j, v := range rec {
			cells[j] = append(cells[j], v)
		}
	}

	b := New()
	for j, name := range header {
		if err := b.AddColumn(inferColumn(name, cells[j])); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func inferColumn(name string, vals []string) *Column {
	if name == IDColumn {
		return &Column{Name: name, Kind: KindString, Strings: orEmpty(vals)}
	}

	if ints, ok := parseInts(vals); ok {
		return &Column{Name: name, Kind: KindInt, Ints: ints}
	}
	if floats, ok := parseFloats(vals); ok {
		return &Column{Name: name, Kind: KindFloat, Floats: floats}
	}
	return &Column{Name: name, Kind: KindString, Strings: orEmpty(vals)}
}

func parseInts(vals []string) ([]int64, bool) {
	if len(vals) == 0 {
		return nil, false
	}
	out := make([]int64, len(vals))
	for i, s := range vals {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func parseFloats(vals []string) ([]float64, bool) {
	out := make([]float64, len(vals))
	for i, s := range vals {
		if s == "" {
			out[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func orEmpty(vals []string) []string {
	if vals == nil {
		return []string{}
	}
	return vals
}
