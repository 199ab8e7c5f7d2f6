// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the two time operations chunkfs needs (the
// current time and a one-shot timer channel) so that retry backoff in
// the fetch layer can be driven deterministically from tests.
//
// Production code injects [Real]. Tests inject [Fake] and move time
// forward explicitly with [FakeClock.Advance]; [FakeClock.WaitForWaiters]
// lets a test block until the code under test has started waiting.
package clock
