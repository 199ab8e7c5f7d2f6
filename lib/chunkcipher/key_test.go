// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkcipher

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bureau-foundation/chunkfs/lib/secret"
)

func textBuffer(t *testing.T, text string) *secret.Buffer {
	t.Helper()
	buffer, err := secret.NewFromBytes([]byte(text))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

func TestGeneratedKeysDecodeAndWork(t *testing.T) {
	for _, scheme := range []Scheme{SchemeAEAD, SchemeFernet} {
		t.Run(string(scheme), func(t *testing.T) {
			encoded, err := GenerateKey(scheme)
			if err != nil {
				t.Fatalf("GenerateKey: %v", err)
			}
			defer encoded.Close()

			key, err := DecodeKey(scheme, encoded)
			if err != nil {
				t.Fatalf("DecodeKey: %v", err)
			}
			defer key.Close()

			cipher, err := New(scheme, key)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			sealed, err := cipher.Encrypt([]byte("chunk"))
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}
			opened, err := cipher.Decrypt(sealed)
			if err != nil {
				t.Fatalf("Decrypt: %v", err)
			}
			if !bytes.Equal(opened, []byte("chunk")) {
				t.Errorf("round trip = %q", opened)
			}
		})
	}
}

func TestDecodeAEADKey(t *testing.T) {
	hexKey := strings.Repeat("0f", KeySize)
	key, err := DecodeKey(SchemeAEAD, textBuffer(t, hexKey))
	if err != nil {
		t.Fatalf("DecodeKey: %v", err)
	}
	defer key.Close()
	if !bytes.Equal(key.Bytes(), bytes.Repeat([]byte{0x0f}, KeySize)) {
		t.Errorf("decoded key = %x", key.Bytes())
	}
}

func TestDecodeKeyRejects(t *testing.T) {
	tests := []struct {
		name   string
		scheme Scheme
		text   string
	}{
		{"short hex", SchemeAEAD, "abcd"},
		{"non-hex", SchemeAEAD, strings.Repeat("zz", KeySize)},
		{"bad fernet", SchemeFernet, "not-a-fernet-key"},
		{"unknown scheme", Scheme("rot13"), "key"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := DecodeKey(test.scheme, textBuffer(t, test.text)); err == nil {
				t.Error("DecodeKey succeeded, want error")
			}
		})
	}
	if _, err := DecodeKey(SchemeAEAD, nil); err == nil {
		t.Error("DecodeKey(nil) succeeded")
	}
	if _, err := GenerateKey(Scheme("rot13")); err == nil {
		t.Error("GenerateKey with an unknown scheme succeeded")
	}
}
