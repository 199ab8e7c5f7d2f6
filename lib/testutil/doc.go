// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for chunkfs packages.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern for goroutines started by a test, so a hung fetch or server
// fails the test instead of the whole binary.
//
// [RandomBytes] and [WriteFile] build virtual file sources and the
// token and key files that commands read.
//
// All helpers call t.Fatalf on failure. This package has no chunkfs
// dependencies.
package testutil
