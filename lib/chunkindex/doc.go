// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chunkindex translates global byte offsets of the virtual
// file into chunk-local byte ranges.
//
// An [Index] is an ordered table of [Descriptor] rows. Each row names
// a remotely stored chunk and the inclusive global offset of its last
// byte; chunk i covers (End[i-1], End[i]], and the first chunk starts
// at offset 0. The representation makes the chunks contiguous by
// construction: [New] only has to check that End strictly increases.
//
// [Index.Lookup] reports the chunk that covers the start of a range
// and whether the range runs past that chunk's end. It never resolves
// the crossing itself; [Index.Split] produces the per-chunk
// decomposition for callers that choose to read across boundaries.
//
// An Index is immutable after New and safe for concurrent lookups
// without locking.
//
// Tables are loaded from YAML, JSON/JSONC, or CBOR files with
// [LoadTable], optionally compressed with zstd or LZ4 (".cbor.zst").
package chunkindex
