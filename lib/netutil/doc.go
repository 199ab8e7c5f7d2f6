// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP body I/O utilities for chunkfs.
//
// [ReadBody] bounds every chunk body the fetch layer and the
// development chunk server read, so a misbehaving or malicious server
// cannot exhaust memory by streaming more than a chunk's worth of
// data. A body over the limit is an error ([ErrBodyTooLarge]), never a
// silent truncation: a truncated chunk would decrypt as an
// authentication failure or, on the raw path, return short data.
//
// [ErrorBody] reads the start of an error response for diagnostic
// messages. It is for logs only and is bounded far more tightly.
//
// Streaming responses are out of scope; a chunk is always read whole
// (or as a whole sub-range) before it is returned to the caller.
package netutil
