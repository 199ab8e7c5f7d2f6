// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkfs

import (
	"context"
	"log/slog"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// virtualBlockSize is reported as st_blksize, a hint for read sizes.
const virtualBlockSize = 64 << 10

// Source provides the content of the virtual file.
type Source interface {
	// Size returns the file length in bytes.
	Size() uint64

	// Read returns up to length bytes at offset. A shorter result
	// means the read reached the end of the file.
	Read(ctx context.Context, offset uint64, length uint32) ([]byte, error)
}

// virtualFileNode is the overlaid read-only file.
type virtualFileNode struct {
	gofuse.Inode
	source    Source
	mountTime time.Time

	// reads bounds concurrent Source reads; a send acquires a slot.
	reads chan struct{}

	logger *slog.Logger
}

var _ gofuse.InodeEmbedder = (*virtualFileNode)(nil)
var _ gofuse.NodeGetattrer = (*virtualFileNode)(nil)
var _ gofuse.NodeSetattrer = (*virtualFileNode)(nil)
var _ gofuse.NodeOpener = (*virtualFileNode)(nil)
var _ gofuse.NodeReader = (*virtualFileNode)(nil)

func newVirtualFileNode(source Source, maxConcurrentReads int, mountTime time.Time, logger *slog.Logger) *virtualFileNode {
	return &virtualFileNode{
		source:    source,
		mountTime: mountTime,
		reads:     make(chan struct{}, maxConcurrentReads),
		logger:    logger,
	}
}

func (v *virtualFileNode) fillAttr(out *fuse.Attr) {
	out.Mode = syscall.S_IFREG | 0o444
	out.Nlink = 1
	out.Size = v.source.Size()
	out.Blocks = (out.Size + 511) / 512
	out.Blksize = virtualBlockSize
	out.SetTimes(&v.mountTime, &v.mountTime, &v.mountTime)
}

func (v *virtualFileNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	v.fillAttr(&out.Attr)
	return 0
}

// Setattr rejects every change: the file is read-only, including
// truncation by an O_TRUNC open.
func (v *virtualFileNode) Setattr(_ context.Context, _ gofuse.FileHandle, _ *fuse.SetAttrIn, _ *fuse.AttrOut) syscall.Errno {
	return syscall.EROFS
}

func (v *virtualFileNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_TRUNC|syscall.O_APPEND) != 0 {
		return nil, 0, syscall.EROFS
	}
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (v *virtualFileNode) Read(ctx context.Context, f gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if off < 0 {
		return nil, syscall.EINVAL
	}
	if len(dest) == 0 {
		return fuse.ReadResultData(nil), 0
	}

	select {
	case v.reads <- struct{}{}:
	case <-ctx.Done():
		return nil, syscall.EINTR
	}
	defer func() { <-v.reads }()

	data, err := v.source.Read(ctx, uint64(off), uint32(len(dest)))
	if err != nil {
		errno := Errno(err)
		if errno == 0 {
			return fuse.ReadResultData(nil), 0
		}
		v.logger.Error("virtual file read failed",
			"offset", off,
			"length", len(dest),
			"errno", errno,
			"error", err,
		)
		return nil, errno
	}
	return fuse.ReadResultData(data), 0
}
