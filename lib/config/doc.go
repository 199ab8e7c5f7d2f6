// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the YAML configuration for chunkfs binaries.
//
// Configuration is read from a single file named by the CHUNKFS_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). There is no discovery and no search path.
//
// The file may carry development, staging, and production sections.
// The section matching [Config].Environment is decoded over the base
// values, so it only needs the keys that differ. ${VAR} and
// ${VAR:-default} are expanded in path and URL fields after loading.
//
// Secrets never appear in the file: the credentials section names
// files (or a sealed bundle) instead. Sizes such as chunks.threshold
// accept plain byte counts or binary suffixes ("64KiB", "4M").
package config
