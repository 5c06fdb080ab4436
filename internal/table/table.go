// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package table

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMissingColumn is returned when an operation names a column the batch does not have.
var ErrMissingColumn = errors.New("missing column")

// Kind is the storage type of a column.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	}
	return "unknown"
}

// Column holds the values of one named column. Only the slice matching Kind is used.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Ints    []int64
	Strings []string
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	switch c.Kind {
	case KindFloat:
		return len(c.Floats)
	case KindInt:
		return len(c.Ints)
	default:
		return len(c.Strings)
	}
}

// Text formats row i as text. NaN floats format as the empty string.
// Floats are written in positional notation and always carry a decimal
// point, so 150000000 is "150000000.0" and reads back as a float.
func (c *Column) Text(i int) string {
	switch c.Kind {
	case KindFloat:
		v := c.Floats[i]
		if math.IsNaN(v) {
			return ""
		}
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if !math.IsInf(v, 0) && !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	case KindInt:
		return strconv.FormatInt(c.Ints[i], 10)
	default:
		return c.Strings[i]
	}
}

// Value returns row i as float64, int64 or string.
func (c *Column) Value(i int) any {
	switch c.Kind {
	case KindFloat:
		return c.Floats[i]
	case KindInt:
		return c.Ints[i]
	default:
		return c.Strings[i]
	}
}

func (c *Column) clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	switch c.Kind {
	case KindFloat:
		out.Floats = append([]float64(nil), c.Floats...)
	case KindInt:
		out.Ints = append([]int64(nil), c.Ints...)
	default:
		out.Strings = append([]string(nil), c.Strings...)
	}
	return out
}

func (c *Column) take(idx []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	switch c.Kind {
	case KindFloat:
		out.Floats = make([]float64, len(idx))
		for j, i := range idx {
			out.Floats[j] = c.Floats[i]
		}
	case KindInt:
		out.Ints = make([]int64, len(idx))
		for j, i := range idx {
			out.Ints[j] = c.Ints[i]
		}
	default:
		out.Strings = make([]string, len(idx))
		for j, i := range idx {
			out.Strings[j] = c.Strings[i]
		}
	}
	return out
}

// Batch is an ordered, column-uniform table of observation rows.
// All columns hold the same number of rows.
type Batch struct {
	columns []*Column
	index   map[string]int
}

// New creates an empty batch.
func New() *Batch {
	return &Batch{index: make(map[string]int)}
}

// AddColumn appends c to the batch. The name must be new and the length must
// match the existing row count.
func (b *Batch) AddColumn(c *Column) error {
	if _, exists := b.index[c.Name]; exists {
		return fmt.Errorf("column %q already exists", c.Name)
	}
	if len(b.columns) > 0 && c.Len() != b.NumRows() {
		return fmt.Errorf("column %q has %d rows, batch has %d", c.Name, c.Len(), b.NumRows())
	}
	b.index[c.Name] = len(b.columns)
	b.columns = append(b.columns, c)
	return nil
}

// AddFloat appends a float column.
func (b *Batch) AddFloat(name string, vals []float64) error {
	return b.AddColumn(&Column{Name: name, Kind: KindFloat, Floats: vals})
}

// AddInt appends an integer column.
func (b *Batch) AddInt(name string, vals []int64) error {
	return b.AddColumn(&Column{Name: name, Kind: KindInt, Ints: vals})
}

// AddString appends a text column.
func (b *Batch) AddString(name string, vals []string) error {
	return b.AddColumn(&Column{Name: name, Kind: KindString, Strings: vals})
}

// NumRows returns the number of rows.
func (b *Batch) NumRows() int {
	if len(b.columns) == 0 {
		return 0
	}
	return b.columns[0].Len()
}

// NumColumns returns the number of columns.
func (b *Batch) NumColumns() int {
	return len(b.columns)
}

// Names returns the column names in order.
func (b *Batch) Names() []string {
	names := make([]string, len(b.columns))
	for i, c := range b.columns {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order. The slice must not be modified.
func (b *Batch) Columns() []*Column {
	return b.columns
}

// Has reports whether the batch has a column called name.
func (b *Batch) Has(name string) bool {
	_, ok := b.index[name]
	return ok
}

// Column returns the named column.
func (b *Batch) Column(name string) (*Column, bool) {
	i, ok := b.index[name]
	if !ok {
		return nil, false
	}
	return b.columns[i], true
}

// Floats returns the values of a float column.
func (b *Batch) Floats(name string) ([]float64, error) {
	c, ok := b.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	switch c.Kind {
	case KindFloat:
		return c.Floats, nil
	case KindInt:
		out := make([]float64, len(c.Ints))
		for i, v := range c.Ints {
			out[i] = float64(v)
		}
		return out, nil
	}
	return nil, fmt.Errorf("column %q is %s, not numeric", name, c.Kind)
}

// Select returns a copy holding only the named columns, in the given order.
func (b *Batch) Select(names ...string) (*Batch, error) {
	out := New()
	for _, name := range names {
		c, ok := b.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		if err := out.AddColumn(c.clone()); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Clone returns a deep copy of the batch.
func (b *Batch) Clone() *Batch {
	out := New()
	for _, c := range b.columns {
		out.index[c.Name] = len(out.columns)
		out.columns = append(out.columns, c.clone())
	}
	return out
}

// Take returns a copy holding the rows at idx, in that order.
func (b *Batch) Take(idx []int) *Batch {
	out := New()
	for _, c := range b.columns {
		out.index[c.Name] = len(out.columns)
		out.columns = append(out.columns, c.take(idx))
	}
	return out
}

// Drop removes the named column and reports whether it was present.
func (b *Batch) Drop(name string) bool {
	i, ok := b.index[name]
	if !ok {
		return false
	}
	b.columns = append(b.columns[:i], b.columns[i+1:]...)
	delete(b.index, name)
	for j := i; j < len(b.columns); j++ {
		b.index[b.columns[j].Name] = j
	}
	return true
}

// Append adds the rows of other to b. Both batches must have the same
// column names and kinds in the same order.
func (b *Batch) Append(other *Batch) error {
	if len(b.columns) == 0 {
		*b = *other.Clone()
		return nil
	}
	if len(other.columns) != len(b.columns) {
		return fmt.Errorf("schema mismatch: %d columns, appending %d", len(b.columns), len(other.columns))
	}
	for i, c := range b.columns {
		oc := other.columns[i]
		if oc.Name != c.Name || oc.Kind != c.Kind {
			return fmt.Errorf("schema mismatch at column %d: %s(%s) vs %s(%s)", i, c.Name, c.Kind, oc.Name, oc.Kind)
		}
	}
	for i, c := range b.columns {
		oc := other.columns[i]
		switch c.Kind {
		case KindFloat:
			c.Floats = append(c.Floats, oc.Floats...)
		case KindInt:
			c.Ints = append(c.Ints, oc.Ints...)
		default:
			c.Strings = append(c.Strings, oc.Strings...)
		}
	}
	return nil
}

// AddTo adds delta element-wise to a numeric column. Integer columns are
// promoted to float.
func (b *Batch) AddTo(name string, delta []float64) error {
	c, ok := b.Column(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	if len(delta) != c.Len() {
		return fmt.Errorf("column %q has %d rows, delta has %d", name, c.Len(), len(delta))
	}
	if err := b.ToFloat(name); err != nil {
		return err
	}
	for i, d := range delta {
		c.Floats[i] += d
	}
	return nil
}

// ToFloat promotes an integer column to float in place.
func (b *Batch) ToFloat(name string) error {
	c, ok := b.Column(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	switch c.Kind {
	case KindFloat:
		return nil
	case KindInt:
		vals := make([]float64, len(c.Ints))
		for i, n := range c.Ints {
			vals[i] = float64(n)
		}
		c.Kind, c.Floats, c.Ints = KindFloat, vals, nil
		return nil
	}
	return fmt.Errorf("column %q is %s, not numeric", name, c.Kind)
}

// ToText converts the named column to its text representation in place.
func (b *Batch) ToText(name string) error {
	c, ok := b.Column(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	if c.Kind == KindString {
		return nil
	}
	strs := make([]string, c.Len())
	for i := range strs {
		strs[i] = c.Text(i)
	}
	c.Kind, c.Strings, c.Floats, c.Ints = KindString, strs, nil, nil
	return nil
}
