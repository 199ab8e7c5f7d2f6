// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chunkpack turns a local file into a chunk store directory
// and a chunk table: the inverse of the read pipeline. Chunks that
// begin below the threshold are sealed with a chunkcipher.Encryptor;
// the rest are stored as plaintext so they can be range-read directly.
package chunkpack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/chunkfs/lib/chunkcipher"
	"github.com/bureau-foundation/chunkfs/lib/chunkindex"
)

// DefaultChunkSize is used when Options.ChunkSize is zero.
const DefaultChunkSize = 4 << 20

// Options configures Pack.
type Options struct {
	// OutputDir receives one file per chunk, named by ChunkID. It is
	// created if missing.
	OutputDir string

	// TablePath, when set, is where the chunk table is written. The
	// format follows the file name (see chunkindex.WriteTable).
	TablePath string

	// ChunkSize is the plaintext size of every chunk but the last.
	ChunkSize int64

	// Threshold is the global offset below which chunks are sealed.
	// A chunk boundary is always placed at the threshold so that no
	// chunk straddles it.
	Threshold uint64

	// Encryptor seals chunks below Threshold. Required when Threshold
	// is nonzero.
	Encryptor chunkcipher.Encryptor

	Logger *slog.Logger
}

// Result describes a packed file.
type Result struct {
	// Descriptors are the chunk table rows, in file order.
	Descriptors []chunkindex.Descriptor

	// Size is the plaintext length of the packed file.
	Size uint64

	// Sealed counts chunks stored encrypted.
	Sealed int

	// Written counts chunk files created. Chunks whose content was
	// already present in OutputDir are not rewritten.
	Written int
}

// Pack reads source to EOF and stores it as chunks in options.OutputDir.
// An empty source is an error because a chunk table cannot be empty.
func Pack(ctx context.Context, source io.Reader, options Options) (*Result, error) {
	if options.OutputDir == "" {
		return nil, fmt.Errorf("chunkpack: output directory is required")
	}
	if options.ChunkSize < 0 {
		return nil, fmt.Errorf("chunkpack: chunk size must not be negative")
	}
	if options.ChunkSize == 0 {
		options.ChunkSize = DefaultChunkSize
	}
	if options.Threshold > 0 && options.Encryptor == nil {
		return nil, fmt.Errorf("chunkpack: an encryptor is required when threshold is %d", options.Threshold)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(options.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("chunkpack: creating output directory: %w", err)
	}

	result := &Result{}
	buffer := make([]byte, options.ChunkSize)
	var offset uint64

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		size := nextChunkSize(offset, uint64(options.ChunkSize), options.Threshold)
		count, err := io.ReadFull(source, buffer[:size])
		if count == 0 && (err == io.EOF || err == io.ErrUnexpectedEOF) {
			break
		}
		if err != nil && err != io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("chunkpack: reading source at offset %d: %w", offset, err)
		}
		last := err == io.ErrUnexpectedEOF
		plaintext := buffer[:count]

		sealed := offset < options.Threshold
		stored := plaintext
		if sealed {
			stored, err = options.Encryptor.Encrypt(plaintext)
			if err != nil {
				return nil, fmt.Errorf("chunkpack: sealing chunk at offset %d: %w", offset, err)
			}
			result.Sealed++
		}

		id := ChunkID(stored)
		created, err := writeChunk(options.OutputDir, id, stored)
		if err != nil {
			return nil, err
		}
		if created {
			result.Written++
		}

		end := offset + uint64(count) - 1
		result.Descriptors = append(result.Descriptors, chunkindex.Descriptor{ID: id, End: end})
		logger.Debug("packed chunk",
			"chunk", id,
			"offset", offset,
			"size", count,
			"sealed", sealed,
			"created", created,
		)
		offset = end + 1

		if last {
			break
		}
	}

	if len(result.Descriptors) == 0 {
		return nil, fmt.Errorf("chunkpack: source is empty")
	}
	result.Size = offset
	if options.Threshold > offset {
		logger.Warn("threshold lies beyond end of file; every chunk is sealed",
			"threshold", options.Threshold,
			"size", offset,
		)
	}

	if options.TablePath != "" {
		if err := chunkindex.WriteTable(options.TablePath, result.Descriptors); err != nil {
			return nil, fmt.Errorf("chunkpack: %w", err)
		}
	}

	logger.Info("packed file",
		"size", result.Size,
		"chunks", len(result.Descriptors),
		"sealed", result.Sealed,
		"written", result.Written,
	)
	return result, nil
}

// PackFile is Pack over the contents of the file at path.
func PackFile(ctx context.Context, path string, options Options) (*Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("chunkpack: %w", err)
	}
	defer file.Close()
	return Pack(ctx, file, options)
}

// nextChunkSize returns the plaintext size of the chunk starting at
// offset: chunkSize, shortened if needed to end exactly at threshold.
func nextChunkSize(offset, chunkSize, threshold uint64) uint64 {
	if offset < threshold && threshold-offset < chunkSize {
		return threshold - offset
	}
	return chunkSize
}

// writeChunk stores data as dir/id through a temporary file and
// rename. It reports false when the chunk already exists; chunk IDs
// are content digests, so an existing file has the same bytes.
func writeChunk(dir, id string, data []byte) (bool, error) {
	path := filepath.Join(dir, id)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("chunkpack: %w", err)
	}

	temporary, err := os.CreateTemp(dir, "."+id+".*")
	if err != nil {
		return false, fmt.Errorf("chunkpack: %w", err)
	}
	defer os.Remove(temporary.Name())

	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		return false, fmt.Errorf("chunkpack: writing chunk %s: %w", id, err)
	}
	if err := temporary.Close(); err != nil {
		return false, fmt.Errorf("chunkpack: writing chunk %s: %w", id, err)
	}
	if err := os.Rename(temporary.Name(), path); err != nil {
		return false, fmt.Errorf("chunkpack: installing chunk %s: %w", id, err)
	}
	return true, nil
}
