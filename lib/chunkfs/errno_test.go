// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkfs

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/bureau-foundation/chunkfs/lib/chunkcipher"
	"github.com/bureau-foundation/chunkfs/lib/fetch"
	"github.com/bureau-foundation/chunkfs/lib/virtualfile"
)

func TestErrno(t *testing.T) {
	fetchErr := func(kind fetch.Kind) error {
		return &virtualfile.ReadError{
			Kind: virtualfile.KindFetch,
			Err:  &fetch.Error{ChunkID: "A", Kind: kind},
		}
	}

	tests := []struct {
		name string
		err  error
		want syscall.Errno
	}{
		{"nil", nil, 0},
		{"out of range", &virtualfile.ReadError{Kind: virtualfile.KindOutOfRange}, 0},
		{"boundary span", &virtualfile.ReadError{Kind: virtualfile.KindBoundarySpan, Err: virtualfile.ErrBoundarySpan}, syscall.EINVAL},
		{"authentication", &virtualfile.ReadError{Kind: virtualfile.KindAuthentication, Err: chunkcipher.ErrAuthentication}, syscall.EIO},
		{"integrity", &virtualfile.ReadError{Kind: virtualfile.KindIntegrity, Err: virtualfile.ErrIntegrity}, syscall.EIO},
		{"fetch timeout", fetchErr(fetch.KindTimeout), syscall.ETIMEDOUT},
		{"fetch not found", fetchErr(fetch.KindNotFound), syscall.EIO},
		{"fetch unauthorized", fetchErr(fetch.KindUnauthorized), syscall.EIO},
		{"fetch short body", fetchErr(fetch.KindShortBody), syscall.EIO},
		{"deadline", fmt.Errorf("wrapped: %w", context.DeadlineExceeded), syscall.ETIMEDOUT},
		{"cancelled", &virtualfile.ReadError{
			Kind: virtualfile.KindFetch,
			Err:  &fetch.Error{Kind: fetch.KindTransport, Err: context.Canceled},
		}, syscall.EINTR},
		{"unclassified", errors.New("disk on fire"), syscall.EIO},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Errno(test.err); got != test.want {
				t.Errorf("Errno(%v) = %v, want %v", test.err, got, test.want)
			}
		})
	}
}
