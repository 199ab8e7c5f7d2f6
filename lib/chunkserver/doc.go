// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chunkserver serves chunk files from a local directory over
// HTTP with bearer-token authentication and byte-range support. It is
// a development and test stand-in for the remote chunk store: any
// fetch.HTTPFetcher configured with the server's /chunks base URL can
// read from it.
package chunkserver
