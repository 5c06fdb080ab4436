// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package table

import (
	"fmt"
	"math"
)

// RoundHalfEven rounds v to the given number of decimal places, resolving
// ties to the even neighbour of the scaled value (numpy's rounding mode).
// NaN and Inf are returned unchanged.
func RoundHalfEven(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	scale := math.Pow10(decimals)
	scaled := v * scale
	if math.IsInf(scaled, 0) {
		return v
	}
	return math.RoundToEven(scaled) / scale
}

// Round rounds a float column in place. Integer columns are already exact
// and are left alone.
func (b *Batch) Round(name string, decimals int) error {
	c, ok := b.Column(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	switch c.Kind {
	case KindInt:
		return nil
	case KindString:
		return fmt.Errorf("cannot round %s column %q", c.Kind, name)
	}
	for i, v := range c.Floats {
		c.Floats[i] = RoundHalfEven(v, decimals)
	}
	return nil
}
