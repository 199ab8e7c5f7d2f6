// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential loads the two secrets a mount needs: the bearer
// token presented to the chunk store and the chunk decryption key.
//
// Secrets come either from individual files (or stdin via "-") or from
// a sealed bundle: an age-encrypted JSON object
//
//	{"token": "...", "key": "..."}
//
// opened with the mount host's identity file. Both forms produce
// [secret.Buffer] values; nothing in this package keeps a secret on
// the Go heap longer than the decode step.
package credential
