// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkcipher

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/chunkfs/lib/secret"
)

// ErrAuthentication is the only error a Decryptor returns: the
// ciphertext was malformed or failed integrity verification.
var ErrAuthentication = errors.New("chunk ciphertext failed authentication")

// Decryptor recovers plaintext from a complete chunk ciphertext.
type Decryptor interface {
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Encryptor produces ciphertext that the matching Decryptor accepts.
type Encryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
}

// Cipher is both halves of a scheme.
type Cipher interface {
	Decryptor
	Encryptor
}

// Scheme names a chunk encryption format in configuration.
type Scheme string

const (
	SchemeAEAD   Scheme = "xchacha20poly1305"
	SchemeFernet Scheme = "fernet"
)

// New returns the Cipher for scheme keyed by key. The key buffer is
// only read during construction and may be closed once New returns.
// An empty scheme selects SchemeAEAD.
func New(scheme Scheme, key *secret.Buffer) (Cipher, error) {
	switch scheme {
	case SchemeAEAD, "":
		return NewAEAD(key)
	case SchemeFernet:
		return NewFernet(key)
	default:
		return nil, fmt.Errorf("unknown chunk encryption scheme %q", scheme)
	}
}

// authenticationError wraps a scheme-specific cause so that callers
// can match ErrAuthentication with errors.Is while logs keep the
// detail.
func authenticationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuthentication, fmt.Sprintf(format, args...))
}
