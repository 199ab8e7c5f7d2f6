// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding configuration used for
// binary chunk table files.
//
// Chunk tables are authored as YAML or JSONC for small files and
// stored as CBOR when they are generated by chunkfs-pack for large
// files. The encoder uses Core Deterministic Encoding (RFC 8949 §4.2)
// so the same table always produces identical bytes, which keeps
// table files diffable by hash.
//
//	data, err := codec.Marshal(rows)
//	err = codec.Unmarshal(data, &rows)
package codec
