// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service holds process plumbing shared by the chunkfs
// binaries: the standard structured logger ([NewLogger]) and an HTTP
// server with graceful shutdown ([HTTPServer]) used by the
// development chunk server.
package service
