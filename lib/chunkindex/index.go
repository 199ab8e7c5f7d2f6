// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkindex

import (
	"errors"
	"fmt"
	"sort"
)

// ErrOutOfRange is returned when an offset lies at or beyond the end
// of the virtual file.
var ErrOutOfRange = errors.New("offset beyond end of virtual file")

// ErrEmptyRange is returned by Lookup for a zero-length range, which
// has no last byte and therefore no chunk-local end.
var ErrEmptyRange = errors.New("empty range")

// Descriptor is one row of the chunk table.
type Descriptor struct {
	// ID is the opaque remote identifier of the chunk.
	ID string `yaml:"id" json:"id" cbor:"id"`

	// End is the global offset of the chunk's last byte (inclusive).
	End uint64 `yaml:"end" json:"end" cbor:"end"`
}

// Location is the result of a Lookup: the chunk covering the start
// of a range and the range expressed in chunk-local offsets.
type Location struct {
	// Chunk is the zero-based position of the chunk in the table.
	Chunk int

	// ID is the chunk's remote identifier.
	ID string

	// ChunkStart and ChunkEnd are the chunk's global bounds, inclusive.
	ChunkStart uint64
	ChunkEnd   uint64

	// LocalStart and LocalEnd are the requested range's first and
	// last byte relative to ChunkStart. When Spans is set LocalEnd
	// lies past the chunk's last local byte.
	LocalStart uint64
	LocalEnd   uint64

	// Spans reports that the requested range continues into the
	// next chunk.
	Spans bool
}

// Segment is the part of a global range that falls inside one chunk.
type Segment struct {
	Chunk int
	ID    string

	// Offset is the global offset of the segment's first byte and
	// Length its size in bytes.
	Offset uint64
	Length uint64

	// LocalStart and LocalEnd bound the segment within its chunk,
	// inclusive.
	LocalStart uint64
	LocalEnd   uint64

	// ChunkStart is the global offset of the chunk's first byte.
	ChunkStart uint64
}

// Index is an immutable ordered chunk table.
type Index struct {
	chunks []Descriptor
}

// New validates descriptors and builds an Index. The slice is copied;
// later changes by the caller do not affect the Index.
func New(descriptors []Descriptor) (*Index, error) {
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("chunk table is empty")
	}

	chunks := make([]Descriptor, len(descriptors))
	copy(chunks, descriptors)

	for i, chunk := range chunks {
		if chunk.ID == "" {
			return nil, fmt.Errorf("chunk %d: empty id", i)
		}
		if i > 0 && chunk.End <= chunks[i-1].End {
			return nil, fmt.Errorf("chunk %d (%s): end offset %d does not follow previous end %d",
				i, chunk.ID, chunk.End, chunks[i-1].End)
		}
	}

	return &Index{chunks: chunks}, nil
}

// Size returns the length of the virtual file in bytes.
func (index *Index) Size() uint64 {
	return index.chunks[len(index.chunks)-1].End + 1
}

// Len returns the number of chunks.
func (index *Index) Len() int {
	return len(index.chunks)
}

// Descriptors returns a copy of the table rows.
func (index *Index) Descriptors() []Descriptor {
	rows := make([]Descriptor, len(index.chunks))
	copy(rows, index.chunks)
	return rows
}

// Contains reports whether offset lies inside the virtual file.
func (index *Index) Contains(offset uint64) bool {
	return offset < index.Size()
}

// chunkStart returns the global offset of chunk i's first byte.
func (index *Index) chunkStart(i int) uint64 {
	if i == 0 {
		return 0
	}
	return index.chunks[i-1].End + 1
}

// find returns the position of the first chunk whose End >= offset,
// or -1 if offset is past the last chunk.
func (index *Index) find(offset uint64) int {
	position := sort.Search(len(index.chunks), func(i int) bool {
		return index.chunks[i].End >= offset
	})
	if position == len(index.chunks) {
		return -1
	}
	return position
}

// Lookup returns the chunk covering offset and the chunk-local bounds
// of [offset, offset+length-1]. LocalStart is offset minus the
// chunk's first global offset, so it is zero immediately after a
// boundary.
func (index *Index) Lookup(offset uint64, length uint32) (Location, error) {
	if length == 0 {
		return Location{}, ErrEmptyRange
	}

	position := index.find(offset)
	if position < 0 {
		return Location{}, fmt.Errorf("%w: offset %d, size %d", ErrOutOfRange, offset, index.Size())
	}

	chunk := index.chunks[position]
	start := index.chunkStart(position)
	last := offset + uint64(length) - 1

	return Location{
		Chunk:      position,
		ID:         chunk.ID,
		ChunkStart: start,
		ChunkEnd:   chunk.End,
		LocalStart: offset - start,
		LocalEnd:   last - start,
		Spans:      last > chunk.End,
	}, nil
}

// Split decomposes [offset, offset+length-1] into per-chunk segments
// in file order. The range is clamped to the end of the file, so the
// segments may cover fewer than length bytes. A zero length yields
// no segments.
func (index *Index) Split(offset uint64, length uint64) ([]Segment, error) {
	position := index.find(offset)
	if position < 0 {
		return nil, fmt.Errorf("%w: offset %d, size %d", ErrOutOfRange, offset, index.Size())
	}
	if length == 0 {
		return nil, nil
	}

	last := offset + length - 1
	if last < offset || last >= index.Size() {
		last = index.Size() - 1
	}

	var segments []Segment
	current := offset
	for ; position < len(index.chunks) && current <= last; position++ {
		chunk := index.chunks[position]
		start := index.chunkStart(position)
		end := min(chunk.End, last)

		segments = append(segments, Segment{
			Chunk:      position,
			ID:         chunk.ID,
			Offset:     current,
			Length:     end - current + 1,
			LocalStart: current - start,
			LocalEnd:   end - start,
			ChunkStart: start,
		})
		current = end + 1
	}
	return segments, nil
}
