// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package virtualfile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBoundarySpan is returned under BoundaryReject for a read that
// continues past the end of its first chunk.
var ErrBoundarySpan = errors.New("read spans a chunk boundary")

// ErrIntegrity means decrypted or fetched content is shorter than the
// chunk table promises.
var ErrIntegrity = errors.New("chunk content does not match the chunk table")

// Kind classifies a read failure.
type Kind int

const (
	// KindOutOfRange means the read starts at or past the end of the
	// virtual file.
	KindOutOfRange Kind = iota

	// KindBoundarySpan means the read crosses a chunk boundary and
	// the reader rejects such reads.
	KindBoundarySpan

	// KindFetch wraps a *fetch.Error.
	KindFetch

	// KindAuthentication means an encrypted chunk failed to decrypt.
	KindAuthentication

	// KindIntegrity means a chunk's content is shorter than its table
	// entry.
	KindIntegrity
)

func (kind Kind) String() string {
	switch kind {
	case KindOutOfRange:
		return "out of range"
	case KindBoundarySpan:
		return "boundary span"
	case KindFetch:
		return "fetch"
	case KindAuthentication:
		return "authentication"
	case KindIntegrity:
		return "integrity"
	default:
		return fmt.Sprintf("kind(%d)", int(kind))
	}
}

// ReadError describes a failed read of the virtual file.
type ReadError struct {
	Kind   Kind
	Offset uint64
	Length uint32

	// ChunkID names the chunk whose segment failed, if any.
	ChunkID string

	Err error
}

func (e *ReadError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "read %d+%d: %s", e.Offset, e.Length, e.Kind)
	if e.ChunkID != "" {
		fmt.Fprintf(&builder, " (chunk %q)", e.ChunkID)
	}
	if e.Err != nil {
		fmt.Fprintf(&builder, ": %v", e.Err)
	}
	return builder.String()
}

func (e *ReadError) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *ReadError in err's chain.
func KindOf(err error) (Kind, bool) {
	var readErr *ReadError
	if errors.As(err, &readErr) {
		return readErr.Kind, true
	}
	return 0, false
}
