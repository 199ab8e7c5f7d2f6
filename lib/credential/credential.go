// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"errors"
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/bureau-foundation/chunkfs/lib/sealed"
	"github.com/bureau-foundation/chunkfs/lib/secret"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// bundle is the plaintext of a sealed credential bundle.
type bundle struct {
	Token string `json:"token"`
	Key   string `json:"key,omitempty"`
}

// Credentials holds the loaded secrets. Token is nil when only a key
// file was configured (an s3 store authenticates through the AWS
// chain). Key is nil when no decryption key was configured.
type Credentials struct {
	Token *secret.Buffer
	Key   *secret.Buffer
}

// Close zeroes and releases every secret. Safe to call twice.
func (c *Credentials) Close() error {
	var errs []error
	if c.Token != nil {
		errs = append(errs, c.Token.Close())
	}
	if c.Key != nil {
		errs = append(errs, c.Key.Close())
	}
	return errors.Join(errs...)
}

// Sources names where secrets are read from. Either SealedBundle (with
// IdentityFile) or TokenFile and KeyFile are used, not both.
type Sources struct {
	// TokenFile and KeyFile hold one secret each. "-" reads the first
	// line of stdin; at most one of them may be "-".
	TokenFile string
	KeyFile   string

	// SealedBundle is a file holding the base64 output of Seal.
	SealedBundle string

	// IdentityFile is the age identity that opens SealedBundle.
	IdentityFile string
}

// Validate checks that Sources names exactly one form.
func (s Sources) Validate() error {
	switch {
	case s.SealedBundle != "" && (s.TokenFile != "" || s.KeyFile != ""):
		return fmt.Errorf("sealed_bundle cannot be combined with token_file or key_file")
	case s.SealedBundle != "" && s.IdentityFile == "":
		return fmt.Errorf("sealed_bundle requires identity_file")
	case s.SealedBundle == "" && s.TokenFile == "" && s.KeyFile == "":
		return fmt.Errorf("one of token_file, key_file, or sealed_bundle is required")
	case s.TokenFile == "-" && s.KeyFile == "-":
		return fmt.Errorf("token_file and key_file cannot both read stdin")
	}
	return nil
}

// Load reads the secrets named by sources.
func Load(sources Sources) (*Credentials, error) {
	if err := sources.Validate(); err != nil {
		return nil, err
	}

	if sources.SealedBundle != "" {
		identity, err := sealed.ReadIdentity(sources.IdentityFile)
		if err != nil {
			return nil, err
		}
		defer identity.Close()

		ciphertext, err := os.ReadFile(sources.SealedBundle)
		if err != nil {
			return nil, fmt.Errorf("reading sealed bundle: %w", err)
		}
		return Open(string(ciphertext), identity)
	}

	credentials := &Credentials{}
	if sources.TokenFile != "" {
		token, err := secret.ReadFromPath(sources.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("reading token: %w", err)
		}
		credentials.Token = token
	}
	if sources.KeyFile != "" {
		key, err := secret.ReadFromPath(sources.KeyFile)
		if err != nil {
			credentials.Close()
			return nil, fmt.Errorf("reading decryption key: %w", err)
		}
		credentials.Key = key
	}
	return credentials, nil
}

// Seal encodes token and key as a bundle and encrypts it to the
// recipients. key may be empty.
func Seal(token, key []byte, recipients []string) (string, error) {
	if len(token) == 0 {
		return "", fmt.Errorf("token is required")
	}
	plaintext, err := jsonAPI.Marshal(bundle{Token: string(token), Key: string(key)})
	if err != nil {
		return "", fmt.Errorf("encoding bundle: %w", err)
	}
	defer secret.Zero(plaintext)
	return sealed.Encrypt(plaintext, recipients)
}

// Open decrypts a bundle with identity and returns its secrets.
func Open(ciphertext string, identity *secret.Buffer) (*Credentials, error) {
	plaintext, err := sealed.Decrypt(ciphertext, identity)
	if err != nil {
		return nil, err
	}
	defer plaintext.Close()

	var decoded bundle
	if err := jsonAPI.Unmarshal(plaintext.Bytes(), &decoded); err != nil {
		return nil, fmt.Errorf("parsing credential bundle: %w", err)
	}
	if decoded.Token == "" {
		return nil, fmt.Errorf("credential bundle has no token")
	}

	token, err := secret.NewFromBytes([]byte(decoded.Token))
	if err != nil {
		return nil, err
	}
	credentials := &Credentials{Token: token}
	if decoded.Key != "" {
		credentials.Key, err = secret.NewFromBytes([]byte(decoded.Key))
		if err != nil {
			credentials.Close()
			return nil, err
		}
	}
	return credentials, nil
}
