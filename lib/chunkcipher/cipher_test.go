// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkcipher

import (
	"bytes"
	"crypto/rand"
	"errors"
	"sync"
	"testing"

	"github.com/fernet/fernet-go"

	"github.com/bureau-foundation/chunkfs/lib/secret"
)

func testMasterKey(t *testing.T) *secret.Buffer {
	t.Helper()
	raw := make([]byte, KeySize)
	if _, err := rand.Read(raw); err != nil {
		t.Fatal(err)
	}
	key, err := secret.NewFromBytes(raw)
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	t.Cleanup(func() { key.Close() })
	return key
}

func testFernetKey(t *testing.T) *secret.Buffer {
	t.Helper()
	var key fernet.Key
	if err := key.Generate(); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	buffer, err := secret.NewFromBytes([]byte(key.Encode()))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

func testCiphers(t *testing.T) map[Scheme]Cipher {
	t.Helper()
	aead, err := New(SchemeAEAD, testMasterKey(t))
	if err != nil {
		t.Fatalf("New(aead): %v", err)
	}
	fernetCipher, err := New(SchemeFernet, testFernetKey(t))
	if err != nil {
		t.Fatalf("New(fernet): %v", err)
	}
	return map[Scheme]Cipher{SchemeAEAD: aead, SchemeFernet: fernetCipher}
}

func TestRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("x"),
		[]byte("the first segment of the virtual file"),
		bytes.Repeat([]byte{0xa5}, 64*1024),
	}

	for scheme, cipher := range testCiphers(t) {
		for _, payload := range payloads {
			ciphertext, err := cipher.Encrypt(payload)
			if err != nil {
				t.Fatalf("%s Encrypt: %v", scheme, err)
			}
			if bytes.Contains(ciphertext, payload) && len(payload) > 16 {
				t.Errorf("%s ciphertext contains plaintext", scheme)
			}
			plaintext, err := cipher.Decrypt(ciphertext)
			if err != nil {
				t.Fatalf("%s Decrypt: %v", scheme, err)
			}
			if !bytes.Equal(plaintext, payload) {
				t.Errorf("%s round trip of %d bytes did not recover input", scheme, len(payload))
			}
		}
	}
}

func TestTamperedCiphertextFailsAuthentication(t *testing.T) {
	payload := []byte("chunk zero plaintext, sixty-four kilobytes in production")

	for scheme, cipher := range testCiphers(t) {
		ciphertext, err := cipher.Encrypt(payload)
		if err != nil {
			t.Fatalf("%s Encrypt: %v", scheme, err)
		}

		// Flip one bit in the header and the body. Fernet tokens are
		// base64 text, where the final character can carry unused bits,
		// so the trailing tag position is only checked for AEAD.
		positions := []int{0, 1, len(ciphertext) / 2}
		if scheme == SchemeAEAD {
			positions = append(positions, len(ciphertext)-1)
		}
		for _, position := range positions {
			tampered := bytes.Clone(ciphertext)
			tampered[position] ^= 0x01

			plaintext, err := cipher.Decrypt(tampered)
			if !errors.Is(err, ErrAuthentication) {
				t.Errorf("%s: bit flip at %d: error = %v, want ErrAuthentication", scheme, position, err)
			}
			if plaintext != nil {
				t.Errorf("%s: bit flip at %d returned plaintext", scheme, position)
			}
		}
	}
}

func TestMalformedCiphertext(t *testing.T) {
	for scheme, cipher := range testCiphers(t) {
		for _, input := range [][]byte{nil, {}, {BlobVersion}, []byte("not a chunk")} {
			if _, err := cipher.Decrypt(input); !errors.Is(err, ErrAuthentication) {
				t.Errorf("%s Decrypt(%q) error = %v, want ErrAuthentication", scheme, input, err)
			}
		}
	}
}

func TestWrongKeyFailsAuthentication(t *testing.T) {
	first, err := NewAEAD(testMasterKey(t))
	if err != nil {
		t.Fatal(err)
	}
	second, err := NewAEAD(testMasterKey(t))
	if err != nil {
		t.Fatal(err)
	}

	ciphertext, err := first.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := second.Decrypt(ciphertext); !errors.Is(err, ErrAuthentication) {
		t.Errorf("Decrypt under wrong key error = %v, want ErrAuthentication", err)
	}
}

func TestAEADBlobLayout(t *testing.T) {
	cipher, err := NewAEAD(testMasterKey(t))
	if err != nil {
		t.Fatal(err)
	}
	ciphertext, err := cipher.Encrypt(make([]byte, 100))
	if err != nil {
		t.Fatal(err)
	}
	if ciphertext[0] != BlobVersion {
		t.Errorf("version byte = %#x, want %#x", ciphertext[0], BlobVersion)
	}
	if len(ciphertext) != 100+BlobOverhead {
		t.Errorf("ciphertext length = %d, want %d", len(ciphertext), 100+BlobOverhead)
	}
}

func TestNewRejectsBadKeys(t *testing.T) {
	short, err := secret.NewFromBytes([]byte("too-short"))
	if err != nil {
		t.Fatal(err)
	}
	defer short.Close()

	if _, err := New(SchemeAEAD, short); err == nil {
		t.Error("expected error for short AEAD key")
	}
	if _, err := New(SchemeFernet, short); err == nil {
		t.Error("expected error for malformed fernet key")
	}
	if _, err := New("rot13", short); err == nil {
		t.Error("expected error for unknown scheme")
	}
	if _, err := NewAEAD(nil); err == nil {
		t.Error("expected error for nil key")
	}
}

func TestConcurrentDecrypt(t *testing.T) {
	for scheme, cipher := range testCiphers(t) {
		payload := bytes.Repeat([]byte(scheme), 1000)
		ciphertext, err := cipher.Encrypt(payload)
		if err != nil {
			t.Fatal(err)
		}

		var group sync.WaitGroup
		failures := make(chan error, 32)
		for range 32 {
			group.Add(1)
			go func() {
				defer group.Done()
				plaintext, err := cipher.Decrypt(ciphertext)
				if err != nil {
					failures <- err
					return
				}
				if !bytes.Equal(plaintext, payload) {
					failures <- errors.New("plaintext mismatch")
				}
			}()
		}
		group.Wait()
		close(failures)
		for err := range failures {
			t.Errorf("%s concurrent Decrypt: %v", scheme, err)
		}
	}
}
