// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chunkcipher reverses the confidentiality transform applied
// to chunks that sit below the selective-decryption threshold.
//
// Both schemes are whole-message authenticated ciphers: a chunk must
// be fetched in full before any of its bytes can be trusted, and a
// ciphertext that fails verification yields [ErrAuthentication]
// rather than altered plaintext.
//
//   - [SchemeAEAD] ("xchacha20poly1305", the default) stores blobs as
//     [version][24-byte nonce][ciphertext+tag]. The chunk key is derived
//     from a 32-byte master key with HKDF-SHA256.
//   - [SchemeFernet] ("fernet") accepts Fernet tokens, the format used
//     by earlier chunk uploaders, keyed by a base64url Fernet key.
//
// Implementations are pure functions of their input and key and are
// safe for concurrent use.
package chunkcipher
