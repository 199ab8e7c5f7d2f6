// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func generate(t *testing.T) *Keypair {
	t.Helper()
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	t.Cleanup(func() { keypair.Close() })
	return keypair
}

func TestGenerateKeypair(t *testing.T) {
	keypair := generate(t)
	if !strings.HasPrefix(keypair.PrivateKey.String(), "AGE-SECRET-KEY-1") {
		t.Error("private key lacks AGE-SECRET-KEY-1 prefix")
	}
	if !strings.HasPrefix(keypair.PublicKey, "age1") {
		t.Errorf("PublicKey = %q, want age1 prefix", keypair.PublicKey)
	}
	if err := ParsePublicKey(keypair.PublicKey); err != nil {
		t.Errorf("ParsePublicKey: %v", err)
	}
	if generate(t).PublicKey == keypair.PublicKey {
		t.Error("two keypairs share a public key")
	}
}

func TestEncryptDecrypt(t *testing.T) {
	keypair := generate(t)
	plaintext := `{"token":"abc","key":"def"}`

	ciphertext, err := Encrypt([]byte(plaintext), []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := base64.StdEncoding.DecodeString(ciphertext); err != nil {
		t.Errorf("ciphertext is not base64: %v", err)
	}

	decrypted, err := Decrypt(ciphertext+"\n", keypair.PrivateKey)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	defer decrypted.Close()
	if decrypted.String() != plaintext {
		t.Errorf("decrypted = %q, want %q", decrypted.String(), plaintext)
	}
}

func TestMultipleRecipients(t *testing.T) {
	host := generate(t)
	escrow := generate(t)

	ciphertext, err := Encrypt([]byte("payload"), []string{host.PublicKey, escrow.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	for name, keypair := range map[string]*Keypair{"host": host, "escrow": escrow} {
		decrypted, err := Decrypt(ciphertext, keypair.PrivateKey)
		if err != nil {
			t.Fatalf("%s: Decrypt: %v", name, err)
		}
		if decrypted.String() != "payload" {
			t.Errorf("%s: decrypted = %q", name, decrypted.String())
		}
		decrypted.Close()
	}
}

func TestDecryptFailures(t *testing.T) {
	keypair := generate(t)
	stranger := generate(t)

	ciphertext, err := Encrypt([]byte("payload"), []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := Decrypt(ciphertext, stranger.PrivateKey); err == nil {
		t.Error("Decrypt with the wrong identity succeeded")
	}
	if _, err := Decrypt("not base64!", keypair.PrivateKey); err == nil {
		t.Error("Decrypt of invalid base64 succeeded")
	}
	if _, err := Decrypt(base64.StdEncoding.EncodeToString([]byte("garbage")), keypair.PrivateKey); err == nil {
		t.Error("Decrypt of non-age data succeeded")
	}
}

func TestEncryptValidation(t *testing.T) {
	if _, err := Encrypt([]byte("x"), nil); err == nil {
		t.Error("Encrypt with no recipients succeeded")
	}
	if _, err := Encrypt([]byte("x"), []string{"age1invalid"}); err == nil {
		t.Error("Encrypt with an invalid recipient succeeded")
	}
	if err := ParsePublicKey("ssh-ed25519 AAAA"); err == nil {
		t.Error("ParsePublicKey accepted a non-age key")
	}
}

func TestReadIdentity(t *testing.T) {
	keypair := generate(t)
	path := filepath.Join(t.TempDir(), "identity.txt")
	content := "# created: 2026-01-01T00:00:00Z\n# public key: " + keypair.PublicKey + "\n\n" +
		keypair.PrivateKey.String() + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	identity, err := ReadIdentity(path)
	if err != nil {
		t.Fatalf("ReadIdentity: %v", err)
	}
	defer identity.Close()
	if identity.String() != keypair.PrivateKey.String() {
		t.Error("identity does not match the generated private key")
	}

	tests := map[string]string{
		"comments only": "# nothing here\n",
		"invalid key":   "AGE-SECRET-KEY-1NOTAKEY\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "identity.txt")
			if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}
			if _, err := ReadIdentity(path); err == nil {
				t.Error("ReadIdentity succeeded, want error")
			}
		})
	}

	if _, err := ReadIdentity(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("ReadIdentity of a missing file succeeded")
	}
}
