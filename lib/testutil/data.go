// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"crypto/rand"
	"os"
)

// RandomBytes returns size bytes from crypto/rand. Random content
// makes every chunk distinct, so no chunk is deduplicated by accident.
func RandomBytes(t TB, size int) []byte {
	t.Helper()
	data := make([]byte, size)
	if _, err := rand.Read(data); err != nil {
		t.Fatalf("generating %d random bytes: %v", size, err)
	}
	return data
}

// WriteFile writes data to path with owner-only permissions, the mode
// secret files are expected to have.
func WriteFile(t TB, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
