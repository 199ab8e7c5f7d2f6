// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkcipher

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/fernet/fernet-go"

	"github.com/bureau-foundation/chunkfs/lib/secret"
)

// Keys are stored as text so that key files and credential bundles
// survive whitespace trimming: hex for SchemeAEAD, the standard
// base64url encoding for SchemeFernet.

// DecodeKey converts a textual key into the form New expects. The
// encoded buffer is borrowed. The caller closes the result.
func DecodeKey(scheme Scheme, encoded *secret.Buffer) (*secret.Buffer, error) {
	if encoded == nil {
		return nil, fmt.Errorf("chunk key is required")
	}
	switch scheme {
	case SchemeAEAD, "":
		text := encoded.Bytes()
		if len(text) != hex.EncodedLen(KeySize) {
			return nil, fmt.Errorf("chunk key must be %d hex characters, got %d", hex.EncodedLen(KeySize), len(text))
		}
		raw := make([]byte, KeySize)
		if _, err := hex.Decode(raw, text); err != nil {
			secret.Zero(raw)
			return nil, fmt.Errorf("decoding chunk key: %w", err)
		}
		return secret.NewFromBytes(raw)
	case SchemeFernet:
		if _, err := fernet.DecodeKey(encoded.String()); err != nil {
			return nil, fmt.Errorf("parsing fernet key: %w", err)
		}
		return secret.NewFromBytes([]byte(encoded.String()))
	default:
		return nil, fmt.Errorf("unknown chunk encryption scheme %q", scheme)
	}
}

// GenerateKey returns a new random key for scheme in its textual form.
func GenerateKey(scheme Scheme) (*secret.Buffer, error) {
	switch scheme {
	case SchemeAEAD, "":
		raw := make([]byte, KeySize)
		defer secret.Zero(raw)
		if _, err := rand.Read(raw); err != nil {
			return nil, fmt.Errorf("generating chunk key: %w", err)
		}
		return secret.NewFromBytes([]byte(hex.EncodeToString(raw)))
	case SchemeFernet:
		var key fernet.Key
		if err := key.Generate(); err != nil {
			return nil, fmt.Errorf("generating fernet key: %w", err)
		}
		return secret.NewFromBytes([]byte(key.Encode()))
	default:
		return nil, fmt.Errorf("unknown chunk encryption scheme %q", scheme)
	}
}
