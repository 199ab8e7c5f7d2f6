// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Fetcher retrieves chunk content. Implementations are safe for
// concurrent use.
type Fetcher interface {
	// Fetch returns the bytes of chunkID. A nil sub fetches the whole
	// chunk; otherwise exactly sub.Len() bytes starting at sub.Start
	// are returned.
	Fetch(ctx context.Context, chunkID string, sub *Range) ([]byte, error)
}

// Range is an inclusive chunk-local byte range.
type Range struct {
	Start int64
	End   int64
}

// Len returns the number of bytes in the range.
func (r Range) Len() int64 { return r.End - r.Start + 1 }

// String formats the range as an HTTP Range header value.
func (r Range) String() string { return fmt.Sprintf("bytes=%d-%d", r.Start, r.End) }

func (r Range) validate() error {
	if r.Start < 0 || r.End < r.Start {
		return fmt.Errorf("invalid range [%d, %d]", r.Start, r.End)
	}
	return nil
}

// Kind classifies a fetch failure.
type Kind int

const (
	// KindTransport is a connection-level failure: DNS, TLS, reset,
	// or a cancelled context.
	KindTransport Kind = iota

	// KindTimeout means the per-fetch deadline expired.
	KindTimeout

	// KindUnauthorized is an HTTP 401 or 403, or the object store's
	// access-denied equivalent.
	KindUnauthorized

	// KindNotFound means the chunk does not exist remotely.
	KindNotFound

	// KindStatus is any other unexpected status.
	KindStatus

	// KindShortBody means the response carried fewer bytes than were
	// requested.
	KindShortBody

	// KindInvalidRange means the caller passed a malformed Range.
	KindInvalidRange
)

func (kind Kind) String() string {
	switch kind {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not found"
	case KindStatus:
		return "unexpected status"
	case KindShortBody:
		return "short body"
	case KindInvalidRange:
		return "invalid range"
	default:
		return fmt.Sprintf("kind(%d)", int(kind))
	}
}

// Error describes a failed fetch.
type Error struct {
	ChunkID string

	// Range is the requested sub-range, nil for a whole-chunk fetch.
	Range *Range

	Kind Kind

	// StatusCode is the HTTP status when one was received.
	StatusCode int

	// Message carries detail such as a truncated error body.
	Message string

	Err error
}

func (e *Error) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "fetch chunk %q", e.ChunkID)
	if e.Range != nil {
		fmt.Fprintf(&builder, " %s", e.Range)
	}
	fmt.Fprintf(&builder, ": %s", e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&builder, " (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&builder, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&builder, ": %v", e.Err)
	}
	return builder.String()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first *Error in err's chain. The
// second result is false when err carries no *Error.
func KindOf(err error) (Kind, bool) {
	var fetchErr *Error
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind, true
	}
	return 0, false
}

// IsTimeout reports whether err is a fetch timeout.
func IsTimeout(err error) bool { return hasKind(err, KindTimeout) }

// IsUnauthorized reports whether the remote rejected the credentials.
func IsUnauthorized(err error) bool { return hasKind(err, KindUnauthorized) }

// IsNotFound reports whether the chunk does not exist remotely.
func IsNotFound(err error) bool { return hasKind(err, KindNotFound) }

func hasKind(err error, kind Kind) bool {
	found, ok := KindOf(err)
	return ok && found == kind
}

// checkBody verifies that body is exactly the requested bytes.
// wholeLength is the declared length of a whole-chunk response, or
// -1 when the server did not declare one.
func checkBody(chunkID string, sub *Range, body []byte, wholeLength int64) error {
	var expected int64
	switch {
	case sub != nil:
		expected = sub.Len()
	case wholeLength >= 0:
		expected = wholeLength
	default:
		return nil
	}

	got := int64(len(body))
	switch {
	case got < expected:
		return &Error{
			ChunkID: chunkID,
			Range:   sub,
			Kind:    KindShortBody,
			Message: fmt.Sprintf("received %d of %d bytes", got, expected),
		}
	case got > expected:
		return &Error{
			ChunkID: chunkID,
			Range:   sub,
			Kind:    KindStatus,
			Message: fmt.Sprintf("received %d bytes, expected %d", got, expected),
		}
	}
	return nil
}

// contextError classifies a failure that happened while ctx (the
// caller's context) or attemptCtx (bounded by the per-fetch timeout)
// was done. It returns nil when neither context explains err.
func contextError(ctx, attemptCtx context.Context, chunkID string, sub *Range, err error) *Error {
	if ctx.Err() != nil {
		return &Error{ChunkID: chunkID, Range: sub, Kind: KindTransport, Message: err.Error(), Err: ctx.Err()}
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return &Error{ChunkID: chunkID, Range: sub, Kind: KindTimeout, Err: err}
	}
	return nil
}
