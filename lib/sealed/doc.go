// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts and decrypts chunkfs credential bundles with
// age x25519 keys (filippo.io/age).
//
// Sealed bundles are stored as base64 text so they can live in a
// config repository or be pasted into a secret manager. Identities
// and decrypted plaintext are held in [secret.Buffer] values.
//
//   - [GenerateKeypair] creates an identity for a mount host
//   - [Encrypt] seals plaintext to one or more recipients
//   - [Decrypt] opens a bundle with an identity
//   - [ReadIdentity] loads an identity file, skipping comment lines
package sealed
