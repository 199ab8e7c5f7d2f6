// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chunkfs mounts a FUSE filesystem that passes a local
// directory through unchanged and overlays one read-only virtual file
// whose bytes come from a [Source].
//
// Every path other than the virtual file is served by the go-fuse
// loopback node against the backing directory. The virtual file lives
// at the root; it is opened with FOPEN_DIRECT_IO so the kernel page
// cache never holds its content, and each read is forwarded to the
// Source. Names that would shadow the virtual file (create, mkdir,
// rename onto it, unlink) are refused.
//
// [Errno] maps Source errors onto the errno values returned to the
// kernel.
package chunkfs
