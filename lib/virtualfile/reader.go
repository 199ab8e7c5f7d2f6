// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package virtualfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/chunkfs/lib/chunkcipher"
	"github.com/bureau-foundation/chunkfs/lib/chunkindex"
	"github.com/bureau-foundation/chunkfs/lib/fetch"
)

// DefaultThreshold is the conventional size of the encrypted head of
// the file: reads starting in the first 64 KiB are decrypted.
const DefaultThreshold uint64 = 64 << 10

// DefaultMaxParallelFetches bounds concurrent segment fetches of one
// split read when Config.MaxParallelFetches is zero.
const DefaultMaxParallelFetches = 4

// BoundaryPolicy selects how a read crossing a chunk boundary is
// served.
type BoundaryPolicy int

const (
	// BoundarySplit serves the read as one segment per chunk.
	BoundarySplit BoundaryPolicy = iota

	// BoundaryReject fails the read with ErrBoundarySpan.
	BoundaryReject
)

func (policy BoundaryPolicy) String() string {
	switch policy {
	case BoundarySplit:
		return "split"
	case BoundaryReject:
		return "reject"
	default:
		return fmt.Sprintf("policy(%d)", int(policy))
	}
}

// ParseBoundaryPolicy parses "split" or "reject". The empty string
// selects BoundarySplit.
func ParseBoundaryPolicy(name string) (BoundaryPolicy, error) {
	switch name {
	case "", "split":
		return BoundarySplit, nil
	case "reject":
		return BoundaryReject, nil
	default:
		return 0, fmt.Errorf("unknown boundary policy %q (want split or reject)", name)
	}
}

// Config holds the collaborators of a Reader.
type Config struct {
	// Index maps virtual offsets to chunks. Required.
	Index *chunkindex.Index

	// Fetcher retrieves chunk bytes. Required.
	Fetcher fetch.Fetcher

	// Decryptor opens encrypted chunks. Required when Threshold > 0.
	Decryptor chunkcipher.Decryptor

	// Threshold is the global offset below which segments are read
	// through the decrypt path. Zero disables decryption.
	Threshold uint64

	// Boundary selects the handling of reads that cross chunks.
	Boundary BoundaryPolicy

	// MaxParallelFetches bounds concurrent segment fetches within one
	// split read. Defaults to DefaultMaxParallelFetches.
	MaxParallelFetches int

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Reader serves reads of the virtual file. It holds only immutable
// state and is safe for concurrent use.
type Reader struct {
	index       *chunkindex.Index
	fetcher     fetch.Fetcher
	decryptor   chunkcipher.Decryptor
	threshold   uint64
	boundary    BoundaryPolicy
	maxParallel int
	logger      *slog.Logger
}

// New validates config and returns a Reader.
func New(config Config) (*Reader, error) {
	if config.Index == nil {
		return nil, fmt.Errorf("virtualfile: chunk index is required")
	}
	if config.Fetcher == nil {
		return nil, fmt.Errorf("virtualfile: fetcher is required")
	}
	if config.Threshold > 0 && config.Decryptor == nil {
		return nil, fmt.Errorf("virtualfile: decryptor is required with a threshold of %d", config.Threshold)
	}
	if config.Boundary != BoundarySplit && config.Boundary != BoundaryReject {
		return nil, fmt.Errorf("virtualfile: invalid boundary policy %d", int(config.Boundary))
	}
	for _, descriptor := range config.Index.Descriptors() {
		if descriptor.End > math.MaxInt64 {
			return nil, fmt.Errorf("virtualfile: chunk %q ends at %d, beyond the fetchable range", descriptor.ID, descriptor.End)
		}
	}

	maxParallel := config.MaxParallelFetches
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallelFetches
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if !onChunkBoundary(config.Index, config.Threshold) {
		logger.Warn("decryption threshold falls inside a chunk; reads past it in that chunk take the raw path",
			"threshold", config.Threshold,
		)
	}

	return &Reader{
		index:       config.Index,
		fetcher:     config.Fetcher,
		decryptor:   config.Decryptor,
		threshold:   config.Threshold,
		boundary:    config.Boundary,
		maxParallel: maxParallel,
		logger:      logger,
	}, nil
}

// Size returns the length of the virtual file in bytes.
func (r *Reader) Size() uint64 { return r.index.Size() }

// Read returns the bytes at [offset, offset+length). A read running
// past the end of the file is shortened to end there. A zero-length
// read inside the file returns an empty slice without network access.
// The result is never padded or truncated: either every byte of the
// (shortened) range is returned, or an error.
func (r *Reader) Read(ctx context.Context, offset uint64, length uint32) ([]byte, error) {
	if !r.index.Contains(offset) {
		return nil, r.fail(&ReadError{Kind: KindOutOfRange, Offset: offset, Length: length, Err: chunkindex.ErrOutOfRange})
	}
	if length == 0 {
		return []byte{}, nil
	}

	if available := r.index.Size() - offset; uint64(length) > available {
		length = uint32(available)
	}

	location, err := r.index.Lookup(offset, length)
	if err != nil {
		return nil, r.fail(&ReadError{Kind: KindOutOfRange, Offset: offset, Length: length, Err: err})
	}

	if !location.Spans {
		data, err := r.readSegment(ctx, chunkindex.Segment{
			Chunk:      location.Chunk,
			ID:         location.ID,
			Offset:     offset,
			Length:     uint64(length),
			LocalStart: location.LocalStart,
			LocalEnd:   location.LocalEnd,
			ChunkStart: location.ChunkStart,
		})
		if err != nil {
			return nil, r.fail(annotate(err, offset, length))
		}
		return data, nil
	}

	if r.boundary == BoundaryReject {
		return nil, r.fail(&ReadError{Kind: KindBoundarySpan, Offset: offset, Length: length, ChunkID: location.ID, Err: ErrBoundarySpan})
	}

	segments, err := r.index.Split(offset, uint64(length))
	if err != nil {
		return nil, r.fail(&ReadError{Kind: KindOutOfRange, Offset: offset, Length: length, Err: err})
	}

	results := make([][]byte, len(segments))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.maxParallel)
	for i, segment := range segments {
		group.Go(func() error {
			data, err := r.readSegment(groupCtx, segment)
			if err != nil {
				return err
			}
			results[i] = data
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, r.fail(annotate(err, offset, length))
	}

	output := make([]byte, 0, length)
	for _, data := range results {
		output = append(output, data...)
	}
	return output, nil
}

// readSegment reads one segment through the path its global offset
// selects. Errors are *ReadError values without read coordinates.
func (r *Reader) readSegment(ctx context.Context, segment chunkindex.Segment) ([]byte, error) {
	if segment.Offset < r.threshold {
		return r.readDecrypted(ctx, segment)
	}
	return r.readRaw(ctx, segment)
}

func (r *Reader) readDecrypted(ctx context.Context, segment chunkindex.Segment) ([]byte, error) {
	r.logger.Debug("virtual read",
		"offset", segment.Offset,
		"length", segment.Length,
		"branch", "decrypt",
		"chunk", segment.ID,
	)

	ciphertext, err := r.fetcher.Fetch(ctx, segment.ID, nil)
	if err != nil {
		return nil, &ReadError{Kind: KindFetch, ChunkID: segment.ID, Err: err}
	}

	plaintext, err := r.decryptor.Decrypt(ciphertext)
	if err != nil {
		return nil, &ReadError{Kind: KindAuthentication, ChunkID: segment.ID, Err: err}
	}

	if uint64(len(plaintext)) <= segment.LocalEnd {
		return nil, &ReadError{
			Kind:    KindIntegrity,
			ChunkID: segment.ID,
			Err:     fmt.Errorf("%w: plaintext is %d bytes, read needs byte %d", ErrIntegrity, len(plaintext), segment.LocalEnd),
		}
	}
	return bytes.Clone(plaintext[segment.LocalStart : segment.LocalEnd+1]), nil
}

func (r *Reader) readRaw(ctx context.Context, segment chunkindex.Segment) ([]byte, error) {
	r.logger.Debug("virtual read",
		"offset", segment.Offset,
		"length", segment.Length,
		"branch", "raw",
		"chunk", segment.ID,
	)

	sub := &fetch.Range{Start: int64(segment.LocalStart), End: int64(segment.LocalEnd)}
	data, err := r.fetcher.Fetch(ctx, segment.ID, sub)
	if err != nil {
		return nil, &ReadError{Kind: KindFetch, ChunkID: segment.ID, Err: err}
	}
	if uint64(len(data)) != segment.Length {
		return nil, &ReadError{
			Kind:    KindFetch,
			ChunkID: segment.ID,
			Err: &fetch.Error{
				ChunkID: segment.ID,
				Range:   sub,
				Kind:    fetch.KindShortBody,
				Message: fmt.Sprintf("fetcher returned %d bytes for a %d-byte range", len(data), segment.Length),
			},
		}
	}
	return data, nil
}

// onChunkBoundary reports whether offset is the first byte of a chunk
// or lies outside the file.
func onChunkBoundary(index *chunkindex.Index, offset uint64) bool {
	if offset == 0 || offset >= index.Size() {
		return true
	}
	location, err := index.Lookup(offset, 1)
	return err == nil && location.LocalStart == 0
}

// annotate fills in the read coordinates of a segment error.
func annotate(err error, offset uint64, length uint32) error {
	var readErr *ReadError
	if errors.As(err, &readErr) {
		annotated := *readErr
		annotated.Offset = offset
		annotated.Length = length
		return &annotated
	}
	return &ReadError{Kind: KindFetch, Offset: offset, Length: length, Err: err}
}

// fail logs a failed read. Out-of-range reads are not logged: the
// mount answers them as end of file.
func (r *Reader) fail(err error) error {
	if kind, _ := KindOf(err); kind == KindOutOfRange {
		return err
	}
	r.logger.Error("virtual read failed", "error", err)
	return err
}
