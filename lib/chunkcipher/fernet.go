// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkcipher

import (
	"fmt"
	"time"

	"github.com/fernet/fernet-go"

	"github.com/bureau-foundation/chunkfs/lib/secret"
)

// noTTL disables the token timestamp check in VerifyAndDecrypt.
const noTTL time.Duration = -1

// Fernet accepts chunks stored as Fernet tokens (AES-128-CBC with an
// HMAC-SHA256 over the whole token). Token age is not checked: chunks
// are written once and read for as long as the table references them.
type Fernet struct {
	keys []*fernet.Key
}

// NewFernet parses a base64url Fernet key. The key buffer is only read
// during construction.
func NewFernet(key *secret.Buffer) (*Fernet, error) {
	if key == nil {
		return nil, fmt.Errorf("fernet key is required")
	}
	parsed, err := fernet.DecodeKey(key.String())
	if err != nil {
		return nil, fmt.Errorf("parsing fernet key: %w", err)
	}
	return &Fernet{keys: []*fernet.Key{parsed}}, nil
}

// Encrypt produces a Fernet token for plaintext.
func (f *Fernet) Encrypt(plaintext []byte) ([]byte, error) {
	token, err := fernet.EncryptAndSign(plaintext, f.keys[0])
	if err != nil {
		return nil, fmt.Errorf("fernet encrypt: %w", err)
	}
	return token, nil
}

// Decrypt verifies and decrypts a Fernet token.
func (f *Fernet) Decrypt(token []byte) ([]byte, error) {
	plaintext := fernet.VerifyAndDecrypt(token, noTTL, f.keys)
	if plaintext == nil {
		return nil, authenticationError("fernet token of %d bytes did not verify", len(token))
	}
	return plaintext, nil
}
