// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkfs

import (
	"context"
	"errors"
	"syscall"

	"github.com/bureau-foundation/chunkfs/lib/fetch"
	"github.com/bureau-foundation/chunkfs/lib/virtualfile"
)

// Errno maps a Source.Read error to the errno returned for a FUSE
// read. A read starting at or past the end of the file maps to 0 and
// is answered with zero bytes (end of file).
func Errno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		return syscall.EINTR
	}

	kind, ok := virtualfile.KindOf(err)
	if ok {
		switch kind {
		case virtualfile.KindOutOfRange:
			return 0
		case virtualfile.KindBoundarySpan:
			return syscall.EINVAL
		case virtualfile.KindAuthentication, virtualfile.KindIntegrity:
			return syscall.EIO
		}
	}

	if fetch.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return syscall.ETIMEDOUT
	}
	return syscall.EIO
}
