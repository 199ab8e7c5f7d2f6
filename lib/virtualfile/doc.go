// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package virtualfile serves byte-range reads of a file whose content
// lives in remote chunks.
//
// A [Reader] resolves each read against a [chunkindex.Index], then
// picks one of two paths per chunk segment by comparing the segment's
// global offset with the configured threshold:
//
//   - below the threshold the chunk is stored encrypted, so the whole
//     chunk is fetched, authenticated and decrypted, and the requested
//     bytes are sliced out of the plaintext by chunk-local offset;
//   - at or above it the chunk is stored in the clear and only the
//     requested sub-range is fetched.
//
// Reads that cross a chunk boundary are either split into per-chunk
// segments fetched concurrently, or rejected, depending on
// [BoundaryPolicy]. Nothing is cached; every read goes to the remote.
package virtualfile
