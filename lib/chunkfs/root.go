// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkfs

import (
	"context"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// rootNode is the loopback root of the backing directory with the
// virtual file added as a persistent child.
type rootNode struct {
	gofuse.LoopbackNode
	options *Options
	virtual *virtualFileNode
}

var _ gofuse.InodeEmbedder = (*rootNode)(nil)
var _ gofuse.NodeOnAdder = (*rootNode)(nil)
var _ gofuse.NodeWrapChilder = (*rootNode)(nil)
var _ gofuse.NodeLookuper = (*rootNode)(nil)
var _ gofuse.NodeOpendirHandler = (*rootNode)(nil)
var _ gofuse.NodeReaddirer = (*rootNode)(nil)
var _ gofuse.NodeCreater = (*rootNode)(nil)
var _ gofuse.NodeMkdirer = (*rootNode)(nil)
var _ gofuse.NodeMknoder = (*rootNode)(nil)
var _ gofuse.NodeSymlinker = (*rootNode)(nil)
var _ gofuse.NodeLinker = (*rootNode)(nil)
var _ gofuse.NodeUnlinker = (*rootNode)(nil)
var _ gofuse.NodeRmdirer = (*rootNode)(nil)
var _ gofuse.NodeRenamer = (*rootNode)(nil)

func newRootNode(options *Options, dev uint64) *rootNode {
	loopback := &gofuse.LoopbackRoot{
		Path: options.BackingDir,
		Dev:  dev,
	}
	root := &rootNode{
		LoopbackNode: gofuse.LoopbackNode{RootData: loopback},
		options:      options,
		virtual: newVirtualFileNode(
			options.Source,
			options.MaxConcurrentReads,
			options.Clock.Now(),
			options.Logger,
		),
	}
	loopback.RootNode = root
	return root
}

func (r *rootNode) OnAdd(ctx context.Context) {
	child := r.NewPersistentInode(ctx, r.virtual, gofuse.StableAttr{Mode: syscall.S_IFREG})
	r.AddChild(r.options.VirtualName, child, true)
}

// WrapChild wraps every loopback node created under the root so that
// renames from subdirectories cannot land on the virtual name either.
func (r *rootNode) WrapChild(ctx context.Context, ops gofuse.InodeEmbedder) gofuse.InodeEmbedder {
	if loopback, ok := ops.(*gofuse.LoopbackNode); ok {
		return &passthroughNode{LoopbackNode: loopback, root: r}
	}
	return ops
}

func (r *rootNode) isVirtual(name string) bool {
	return name == r.options.VirtualName
}

func (r *rootNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	if r.isVirtual(name) {
		r.virtual.fillAttr(&out.Attr)
		out.Ino = r.virtual.StableAttr().Ino
		return r.virtual.EmbeddedInode(), 0
	}
	return r.LoopbackNode.Lookup(ctx, name, out)
}

// OpendirHandle lists the backing directory with the virtual file
// added. A backing entry with the virtual name is hidden.
func (r *rootNode) OpendirHandle(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	stream, errno := r.Readdir(ctx)
	if errno != 0 {
		return nil, 0, errno
	}
	return stream, 0, 0
}

func (r *rootNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	backing, errno := gofuse.NewLoopbackDirStream(r.RootData.Path)
	if errno != 0 {
		return nil, errno
	}
	defer backing.Close()

	entries := []fuse.DirEntry{{
		Name: r.options.VirtualName,
		Mode: syscall.S_IFREG,
		Ino:  r.virtual.StableAttr().Ino,
	}}
	for backing.HasNext() {
		entry, errno := backing.Next()
		if errno != 0 {
			return nil, errno
		}
		if r.isVirtual(entry.Name) {
			continue
		}
		entries = append(entries, entry)
	}
	return gofuse.NewListDirStream(entries), 0
}

func (r *rootNode) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	if r.isVirtual(name) {
		return nil, nil, 0, syscall.EEXIST
	}
	return r.LoopbackNode.Create(ctx, name, flags, mode, out)
}

func (r *rootNode) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	if r.isVirtual(name) {
		return nil, syscall.EEXIST
	}
	return r.LoopbackNode.Mkdir(ctx, name, mode, out)
}

func (r *rootNode) Mknod(ctx context.Context, name string, mode, rdev uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	if r.isVirtual(name) {
		return nil, syscall.EEXIST
	}
	return r.LoopbackNode.Mknod(ctx, name, mode, rdev, out)
}

func (r *rootNode) Symlink(ctx context.Context, target, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	if r.isVirtual(name) {
		return nil, syscall.EEXIST
	}
	return r.LoopbackNode.Symlink(ctx, target, name, out)
}

func (r *rootNode) Link(ctx context.Context, target gofuse.InodeEmbedder, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	if r.isVirtual(name) {
		return nil, syscall.EEXIST
	}
	if target.EmbeddedInode() == r.virtual.EmbeddedInode() {
		return nil, syscall.EPERM
	}
	return r.LoopbackNode.Link(ctx, target, name, out)
}

func (r *rootNode) Unlink(ctx context.Context, name string) syscall.Errno {
	if r.isVirtual(name) {
		return syscall.EPERM
	}
	return r.LoopbackNode.Unlink(ctx, name)
}

func (r *rootNode) Rmdir(ctx context.Context, name string) syscall.Errno {
	if r.isVirtual(name) {
		return syscall.ENOTDIR
	}
	return r.LoopbackNode.Rmdir(ctx, name)
}

func (r *rootNode) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	if r.isVirtual(name) || r.targetsVirtual(newParent, newName) {
		return syscall.EPERM
	}
	return r.LoopbackNode.Rename(ctx, name, newParent, newName, flags)
}

func (r *rootNode) targetsVirtual(parent gofuse.InodeEmbedder, name string) bool {
	return parent.EmbeddedInode() == r.EmbeddedInode() && r.isVirtual(name)
}

// passthroughNode is a loopback node below the root.
type passthroughNode struct {
	*gofuse.LoopbackNode
	root *rootNode
}

var _ gofuse.NodeWrapChilder = (*passthroughNode)(nil)
var _ gofuse.NodeRenamer = (*passthroughNode)(nil)

func (p *passthroughNode) WrapChild(ctx context.Context, ops gofuse.InodeEmbedder) gofuse.InodeEmbedder {
	return p.root.WrapChild(ctx, ops)
}

func (p *passthroughNode) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	if p.root.targetsVirtual(newParent, newName) {
		return syscall.EPERM
	}
	return p.LoopbackNode.Rename(ctx, name, newParent, newName, flags)
}
