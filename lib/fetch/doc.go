// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fetch retrieves chunk bytes from remote storage.
//
// A [Fetcher] returns either a whole chunk or an inclusive chunk-local
// byte range of it. Two backends are provided: [HTTPFetcher], which
// issues authenticated HTTP GET requests with a Range header, and
// [S3Fetcher], which reads objects from an S3-compatible store.
//
// Fetchers never return partial data. A response that does not cover
// the requested bytes is an [Error] with [KindShortBody]; every other
// failure is an [Error] whose Kind classifies it for callers that map
// errors onto filesystem error codes. Nothing is cached: each call
// performs at least one network round trip.
package fetch
