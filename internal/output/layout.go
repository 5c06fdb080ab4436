// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package output

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"

	"github.com/ffutop/surveysim/internal/table"
)

// Hierarchical table file layout. All integers are little endian.
//
// File header (8 bytes):
//   - magic "SSHT" (4 bytes)
//   - version uint16
//   - reserved uint16
//
// Then zero or more group blocks, each:
//   - marker "GRP1" (4 bytes)
//   - payload length uint32
//   - payload
//   - CRC-32 (IEEE) of payload, uint32
//
// Payload:
//   - key: uint16 length + bytes
//   - column count uint16, then per column: uint16 name length + name, uint8 kind
//   - row count uint64
//   - column data, column after column:
//     float/int: 8 bytes per row; string: uint32 length + bytes per row
//
// Blocks sharing a key form one group; their rows concatenate in file order.
const (
	fileMagic     = "SSHT"
	fileVersion   = 1
	headerSize    = 8
	blockMarker   = "GRP1"
	blockOverhead = 4 + 4 + 4
)

var errCorrupt = errors.New("corrupt hierarchical table file")

func fileHeader() []byte {
	h := make([]byte, 0, headerSize)
	h = append(h, fileMagic...)
	h = binary.LittleEndian.AppendUint16(h, fileVersion)
	h = binary.LittleEndian.AppendUint16(h, 0)
	return h
}

func checkHeader(h []byte) error {
	if len(h) < headerSize || string(h[:4]) != fileMagic {
		return fmt.Errorf("%w: bad magic", errCorrupt)
	}
	if v := binary.LittleEndian.Uint16(h[4:6]); v != fileVersion {
		return fmt.Errorf("%w: unsupported version %d", errCorrupt, v)
	}
	return nil
}

// encodeBlock serializes one chunk as a framed group block.
func encodeBlock(key string, b *table.Batch) ([]byte, error) {
	if len(key) > math.MaxUint16 {
		return nil, fmt.Errorf("group key too long: %d bytes", len(key))
	}
	if b.NumColumns() > math.MaxUint16 {
		return nil, fmt.Errorf("too many columns: %d", b.NumColumns())
	}

	p := binary.LittleEndian.AppendUint16(nil, uint16(len(key)))
	p = append(p, key...)
	p = binary.LittleEndian.AppendUint16(p, uint16(b.NumColumns()))
	for _, c := range b.Columns() {
		if len(c.Name) > math.MaxUint16 {
			return nil, fmt.Errorf("column name too long: %q", c.Name)
		}
		p = binary.LittleEndian.AppendUint16(p, uint16(len(c.Name)))
		p = append(p, c.Name...)
		p = append(p, byte(c.Kind))
	}

	rows := b.NumRows()
	p = binary.LittleEndian.AppendUint64(p, uint64(rows))
	for _, c := range b.Columns() {
		switch c.Kind {
		case table.KindFloat:
			for _, v := range c.Floats {
				p = binary.LittleEndian.AppendUint64(p, math.Float64bits(v))
			}
		case table.KindInt:
			for _, v := range c.Ints {
				p = binary.LittleEndian.AppendUint64(p, uint64(v))
			}
		default:
			for _, s := range c.Strings {
				p = binary.LittleEndian.AppendUint32(p, uint32(len(s)))
				p = append(p, s...)
			}
		}
	}

	if len(p) > math.MaxUint32 {
		return nil, fmt.Errorf("chunk too large: %d bytes", len(p))
	}

	out := make([]byte, 0, len(p)+blockOverhead)
	out = append(out, blockMarker...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(p)))
	out = append(out, p...)
	out = binary.LittleEndian.AppendUint32(out, crc32.ChecksumIEEE(p))
	return out, nil
}

// decoder reads a payload front to back. Strings are copied out of buf.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.off+n > len(d.buf) {
		d.err = fmt.Errorf("%w: payload truncated at byte %d", errCorrupt, d.off)
		return nil
	}
	s := d.buf[d.off : d.off+n]
	d.off += n
	return s
}

func (d *decoder) u8() byte {
	if s := d.take(1); s != nil {
		return s[0]
	}
	return 0
}

func (d *decoder) u16() uint16 {
	if s := d.take(2); s != nil {
		return binary.LittleEndian.Uint16(s)
	}
	return 0
}

func (d *decoder) u32() uint32 {
	if s := d.take(4); s != nil {
		return binary.LittleEndian.Uint32(s)
	}
	return 0
}

func (d *decoder) u64() uint64 {
	if s := d.take(8); s != nil {
		return binary.LittleEndian.Uint64(s)
	}
	return 0
}

func (d *decoder) str(n int) string {
	return string(d.take(n))
}

// decodePayload parses one block payload.
func decodePayload(p []byte) (string, *table.Batch, error) {
	d := &decoder{buf: p}
	key := d.str(int(d.u16()))

	ncols := int(d.u16())
	cols := make([]*table.Column, ncols)
	for i := range cols {
		name := d.str(int(d.u16()))
		kind := table.Kind(d.u8())
		if d.err == nil && kind > table.KindString {
			return "", nil, fmt.Errorf("%w: unknown column kind %d", errCorrupt, kind)
		}
		cols[i] = &table.Column{Name: name, Kind: kind}
	}

	rows := d.u64()
	if d.err != nil {
		return "", nil, d.err
	}
	// Every row costs at least 4 bytes in any column, so this bounds rows by the payload size.
	if ncols > 0 && rows > uint64(len(p)) {
		return "", nil, fmt.Errorf("%w: row count %d exceeds payload", errCorrupt, rows)
	}

	n := int(rows)
	for _, c := range cols {
		switch c.Kind {
		case table.KindFloat:
			c.Floats = make([]float64, n)
			for i := range c.Floats {
				c.Floats[i] = math.Float64frombits(d.u64())
			}
		case table.KindInt:
			c.Ints = make([]int64, n)
			for i := range c.Ints {
				c.Ints[i] = int64(d.u64())
			}
		default:
			c.Strings = make([]string, n)
			for i := range c.Strings {
				c.Strings[i] = d.str(int(d.u32()))
			}
		}
		if d.err != nil {
			return "", nil, d.err
		}
	}
	if d.off != len(p) {
		return "", nil, fmt.Errorf("%w: %d trailing payload bytes", errCorrupt, len(p)-d.off)
	}

	b := table.New()
	for _, c := range cols {
		if err := b.AddColumn(c); err != nil {
			return "", nil, fmt.Errorf("%w: %v", errCorrupt, err)
		}
	}
	return key, b, nil
}
