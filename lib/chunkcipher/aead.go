// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkcipher

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/bureau-foundation/chunkfs/lib/secret"
)

// KeySize is the size of the AEAD master key in bytes.
const KeySize = 32

// BlobVersion is the first byte of every AEAD chunk blob. It is also
// the additional authenticated data, so changing it fails
// authentication.
const BlobVersion byte = 0x01

// BlobOverhead is the ciphertext expansion per chunk: version byte,
// XChaCha20 nonce, and Poly1305 tag.
const BlobOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// hkdfInfoChunk separates the chunk key from any other key derived
// from the same master key.
var hkdfInfoChunk = []byte("chunkfs.chunk.enc.v1")

// AEAD is the XChaCha20-Poly1305 chunk cipher.
type AEAD struct {
	aead cipher.AEAD
}

// NewAEAD derives the chunk key from a 32-byte master key. The master
// key buffer is only read during construction.
func NewAEAD(masterKey *secret.Buffer) (*AEAD, error) {
	if masterKey == nil {
		return nil, fmt.Errorf("chunk master key is required")
	}
	if masterKey.Len() != KeySize {
		return nil, fmt.Errorf("chunk master key must be %d bytes, got %d", KeySize, masterKey.Len())
	}

	reader := hkdf.New(sha256.New, masterKey.Bytes(), nil, hkdfInfoChunk)
	derived := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, derived); err != nil {
		secret.Zero(derived)
		return nil, fmt.Errorf("HKDF key derivation failed: %w", err)
	}
	defer secret.Zero(derived)

	aead, err := chacha20poly1305.NewX(derived)
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}
	return &AEAD{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce:
//
//	[Version: 1 byte] [Nonce: 24 bytes] [Ciphertext+Tag: N+16 bytes]
func (a *AEAD) Encrypt(plaintext []byte) ([]byte, error) {
	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("generating random nonce: %w", err)
	}

	output := make([]byte, 1+len(nonce), BlobOverhead+len(plaintext))
	output[0] = BlobVersion
	copy(output[1:], nonce[:])

	return a.aead.Seal(output, nonce[:], plaintext, []byte{BlobVersion}), nil
}

// Decrypt opens a blob produced by Encrypt.
func (a *AEAD) Decrypt(blob []byte) ([]byte, error) {
	if len(blob) < BlobOverhead {
		return nil, authenticationError("blob is %d bytes, minimum is %d", len(blob), BlobOverhead)
	}
	if blob[0] != BlobVersion {
		return nil, authenticationError("blob version %d is not supported (expected %d)", blob[0], BlobVersion)
	}

	nonce := blob[1 : 1+chacha20poly1305.NonceSizeX]
	ciphertext := blob[1+chacha20poly1305.NonceSizeX:]

	plaintext, err := a.aead.Open(nil, nonce, ciphertext, blob[:1])
	if err != nil {
		return nil, authenticationError("%v", err)
	}
	return plaintext, nil
}
