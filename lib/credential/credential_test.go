// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/chunkfs/lib/sealed"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestSourcesValidate(t *testing.T) {
	tests := []struct {
		name    string
		sources Sources
		wantErr string
	}{
		{"token only", Sources{TokenFile: "token"}, ""},
		{"token and key", Sources{TokenFile: "token", KeyFile: "key"}, ""},
		{"stdin token", Sources{TokenFile: "-", KeyFile: "key"}, ""},
		{"sealed", Sources{SealedBundle: "bundle", IdentityFile: "id"}, ""},
		{"key only", Sources{KeyFile: "key"}, ""},
		{"nothing", Sources{}, "one of token_file, key_file, or sealed_bundle"},
		{"sealed without identity", Sources{SealedBundle: "bundle"}, "requires identity_file"},
		{"both forms", Sources{SealedBundle: "bundle", IdentityFile: "id", TokenFile: "token"}, "cannot be combined"},
		{"two stdin", Sources{TokenFile: "-", KeyFile: "-"}, "both read stdin"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.sources.Validate()
			if test.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("Validate = %v, want error containing %q", err, test.wantErr)
			}
		})
	}
}

func TestLoadFromFiles(t *testing.T) {
	dir := t.TempDir()
	credentials, err := Load(Sources{
		TokenFile: writeFile(t, dir, "token", "bearer-value\n"),
		KeyFile:   writeFile(t, dir, "key", "  key-value  \n"),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer credentials.Close()

	if credentials.Token.String() != "bearer-value" {
		t.Errorf("token = %q", credentials.Token.String())
	}
	if credentials.Key == nil || credentials.Key.String() != "key-value" {
		t.Error("key not loaded and trimmed")
	}
}

func TestLoadTokenWithoutKey(t *testing.T) {
	credentials, err := Load(Sources{TokenFile: writeFile(t, t.TempDir(), "token", "bearer")})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer credentials.Close()
	if credentials.Key != nil {
		t.Error("Key is set without a key file")
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	token := writeFile(t, dir, "token", "bearer")
	empty := writeFile(t, dir, "empty", "\n")

	tests := []struct {
		name    string
		sources Sources
	}{
		{"missing token file", Sources{TokenFile: filepath.Join(dir, "absent")}},
		{"empty token", Sources{TokenFile: empty}},
		{"missing key file", Sources{TokenFile: token, KeyFile: filepath.Join(dir, "absent")}},
		{"missing identity", Sources{SealedBundle: token, IdentityFile: filepath.Join(dir, "absent")}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Load(test.sources); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}
}

func TestSealedBundleRoundTrip(t *testing.T) {
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer keypair.Close()

	bundle, err := Seal([]byte("bearer-value"), []byte("key-value"), []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	dir := t.TempDir()
	credentials, err := Load(Sources{
		SealedBundle: writeFile(t, dir, "bundle.age", bundle+"\n"),
		IdentityFile: writeFile(t, dir, "identity.txt", "# host\n"+keypair.PrivateKey.String()+"\n"),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer credentials.Close()

	if credentials.Token.String() != "bearer-value" {
		t.Errorf("token = %q", credentials.Token.String())
	}
	if credentials.Key == nil || credentials.Key.String() != "key-value" {
		t.Error("key missing from opened bundle")
	}
}

func TestSealWithoutKey(t *testing.T) {
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer keypair.Close()

	bundle, err := Seal([]byte("bearer"), nil, []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	credentials, err := Open(bundle, keypair.PrivateKey)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer credentials.Close()
	if credentials.Key != nil {
		t.Error("Key is set for a bundle without a key")
	}
}

func TestOpenRejectsBadBundles(t *testing.T) {
	keypair, err := sealed.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer keypair.Close()

	if _, err := Seal(nil, []byte("key"), []string{keypair.PublicKey}); err == nil {
		t.Error("Seal without a token succeeded")
	}

	for name, plaintext := range map[string]string{
		"not json": "token=abc",
		"no token": `{"key":"abc"}`,
	} {
		t.Run(name, func(t *testing.T) {
			ciphertext, err := sealed.Encrypt([]byte(plaintext), []string{keypair.PublicKey})
			if err != nil {
				t.Fatalf("Encrypt: %v", err)
			}
			if _, err := Open(ciphertext, keypair.PrivateKey); err == nil {
				t.Error("Open succeeded, want error")
			}
		})
	}
}

func TestLoadKeyWithoutToken(t *testing.T) {
	credentials, err := Load(Sources{KeyFile: writeFile(t, t.TempDir(), "key", "key-value")})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer credentials.Close()
	if credentials.Token != nil {
		t.Error("Token is set without a token file")
	}
	if credentials.Key == nil || credentials.Key.String() != "key-value" {
		t.Error("key not loaded")
	}
}
