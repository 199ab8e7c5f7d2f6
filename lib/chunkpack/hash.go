// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkpack

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// chunkDomainKey keys the BLAKE3 hash that names stored chunks. The
// bytes are the ASCII domain name zero-padded to 32 bytes. Changing
// it renames every chunk ever packed.
var chunkDomainKey = [32]byte{
	'c', 'h', 'u', 'n', 'k', 'f', 's', '.', 's', 't', 'o', 'r', 'e', 'd', '.',
	'c', 'h', 'u', 'n', 'k', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// ChunkID returns the identifier of a stored chunk: the hex-encoded
// keyed BLAKE3 digest of the bytes as stored (ciphertext for sealed
// chunks).
func ChunkID(stored []byte) string {
	hasher, err := blake3.NewKeyed(chunkDomainKey[:])
	if err != nil {
		panic("chunkpack: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(stored)
	return hex.EncodeToString(hasher.Sum(nil))
}
