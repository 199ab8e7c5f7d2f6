// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"

	"github.com/bureau-foundation/chunkfs/lib/secret"
)

// Keypair is an age x25519 identity and its recipient string.
type Keypair struct {
	// PrivateKey is the AGE-SECRET-KEY-1... identity.
	PrivateKey *secret.Buffer

	// PublicKey is the age1... recipient, safe to publish.
	PublicKey string
}

// Close zeroes and releases the private key. Safe to call twice.
func (k *Keypair) Close() error {
	if k.PrivateKey != nil {
		return k.PrivateKey.Close()
	}
	return nil
}

// GenerateKeypair creates a new x25519 identity.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age identity: %w", err)
	}

	// The identity's string form stays on the heap until collected;
	// age offers no byte-level accessor.
	privateKey, err := secret.NewFromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("protecting private key: %w", err)
	}
	return &Keypair{
		PrivateKey: privateKey,
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// Encrypt seals plaintext to every recipient and returns standard
// base64 of the age ciphertext.
func Encrypt(plaintext []byte, recipientKeys []string) (string, error) {
	if len(recipientKeys) == 0 {
		return "", fmt.Errorf("at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(strings.TrimSpace(key))
		if err != nil {
			return "", fmt.Errorf("parsing recipient %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipients...)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return "", fmt.Errorf("encrypting: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing age encryption: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext.Bytes()), nil
}

// Decrypt opens a base64 bundle produced by Encrypt. Surrounding
// whitespace, including the trailing newline of a bundle file, is
// ignored. The identity is borrowed. The caller closes the returned
// buffer.
func Decrypt(ciphertext string, identity *secret.Buffer) (*secret.Buffer, error) {
	parsed, err := age.ParseX25519Identity(identity.String())
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(raw), parsed)
	if err != nil {
		return nil, fmt.Errorf("decrypting bundle: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("reading decrypted bundle: %w", err)
	}
	if len(plaintext) == 0 {
		return nil, fmt.Errorf("decrypted bundle is empty")
	}

	buffer, err := secret.NewFromBytes(plaintext)
	if err != nil {
		return nil, fmt.Errorf("protecting decrypted bundle: %w", err)
	}
	return buffer, nil
}

// ParsePublicKey reports whether publicKey is a valid x25519 recipient.
func ParsePublicKey(publicKey string) error {
	if _, err := age.ParseX25519Recipient(publicKey); err != nil {
		return fmt.Errorf("invalid age public key: %w", err)
	}
	return nil
}

// ReadIdentity loads an identity file in the format written by
// age-keygen: comment lines starting with "#", blank lines, and one
// AGE-SECRET-KEY-1 line. Only the first key is used.
func ReadIdentity(path string) (*secret.Buffer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening identity file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		key := bytes.Clone(line)
		if _, err := age.ParseX25519Identity(string(key)); err != nil {
			secret.Zero(key)
			return nil, fmt.Errorf("%s: invalid age identity", path)
		}
		return secret.NewFromBytes(key)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}
	return nil, fmt.Errorf("%s: no identity found", path)
}
