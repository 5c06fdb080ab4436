// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package output

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/ffutop/surveysim/internal/table"
)

// Group is one keyed table of a hierarchical file.
type Group struct {
	Key   string
	Batch *table.Batch
}

// ReadHierarchical memory-maps a hierarchical table file and returns its
// groups in order of first appearance. Blocks that share a key are
// concatenated. Nothing returned aliases the mapping.
func ReadHierarchical(path string) ([]Group, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() < headerSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", errCorrupt, path, fi.Size())
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap failed: %w", err)
	}
	defer data.Unmap()

	if err := checkHeader(data[:headerSize]); err != nil {
		return nil, err
	}

	var groups []Group
	index := make(map[string]int)

	off := headerSize
	for off < len(data) {
		if len(data)-off < blockOverhead || string(data[off:off+4]) != blockMarker {
			return nil, fmt.Errorf("%w: bad block at offset %d", errCorrupt, off)
		}
		n := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		end := off + 8 + n + 4
		if n < 0 || end > len(data) {
			return nil, fmt.Errorf("%w: truncated block at offset %d", errCorrupt, off)
		}

		payload := data[off+8 : off+8+n]
		if crc32.ChecksumIEEE(payload) != binary.LittleEndian.Uint32(data[off+8+n:end]) {
			return nil, fmt.Errorf("%w: checksum mismatch in block at offset %d", errCorrupt, off)
		}

		key, b, err := decodePayload(payload)
		if err != nil {
			return nil, fmt.Errorf("block at offset %d: %w", off, err)
		}

		if i, ok := index[key]; ok {
			if err := groups[i].Batch.Append(b); err != nil {
				return nil, fmt.Errorf("group %q: %w", key, err)
			}
		} else {
			index[key] = len(groups)
			groups = append(groups, Group{Key: key, Batch: b})
		}
		off = end
	}
	return groups, nil
}

// ReadGroup returns the group stored under key.
func ReadGroup(path, key string) (*table.Batch, error) {
	groups, err := ReadHierarchical(path)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if g.Key == key {
			return g.Batch, nil
		}
	}
	return nil, fmt.Errorf("group %q not found in %s", key, path)
}
