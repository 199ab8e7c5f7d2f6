// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"errors"
	"fmt"
	"io"
)

// MaxBodySize is the default bound on a chunk body: 4 GiB, the
// largest chunk the packer will produce. This exists solely to stop a
// pathological response from exhausting memory; callers that know the
// expected length pass a tighter limit.
const MaxBodySize int64 = 4 << 30

// maxErrorBodySize bounds error bodies, which only feed log messages.
// Object stores answer errors with short XML or JSON documents.
const maxErrorBodySize int64 = 4 << 10

// ErrBodyTooLarge is returned by ReadBody when the body exceeds the
// limit.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// ReadBody reads body up to limit bytes. Use instead of io.ReadAll
// when reading chunk bodies. A body longer than limit is an error
// rather than a silent truncation. A limit <= 0 uses MaxBodySize.
//
// expected, when positive, pre-sizes the buffer (typically from
// Content-Length or the requested range length) so a well-behaved
// response is read without reallocation.
func ReadBody(body io.Reader, limit int64, expected int64) ([]byte, error) {
	if limit <= 0 {
		limit = MaxBodySize
	}

	capacity := int64(512)
	if expected > 0 && expected <= limit {
		capacity = expected + 1
	}
	buffer := make([]byte, 0, capacity)

	// Read one byte past the limit to distinguish "exactly limit"
	// from "more than limit".
	reader := io.LimitReader(body, limit+1)
	for {
		// Grow by append's policy once the pre-sized buffer is full.
		if len(buffer) == cap(buffer) {
			buffer = append(buffer, 0)[:len(buffer)]
		}
		read, err := reader.Read(buffer[len(buffer):cap(buffer)])
		buffer = buffer[:len(buffer)+read]
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	if int64(len(buffer)) > limit {
		return nil, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, limit)
	}
	return buffer, nil
}

// ErrorBody reads an HTTP error response body and returns it as a
// string for diagnostic error messages. Read errors are silently
// ignored: a partial or empty body is still useful in an error
// message.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, maxErrorBodySize))
	return string(data)
}
