// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chunkfs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/bureau-foundation/chunkfs/lib/clock"
)

// DefaultMaxConcurrentReads bounds in-flight virtual file reads when
// Options.MaxConcurrentReads is zero.
const DefaultMaxConcurrentReads = 16

// Options configures the mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	// It is created if it does not exist.
	Mountpoint string

	// BackingDir is the local directory passed through at the root
	// of the mount.
	BackingDir string

	// VirtualName is the name of the virtual file in the root
	// directory. It must be a single path component.
	VirtualName string

	// Source provides the virtual file's content.
	Source Source

	// MaxConcurrentReads bounds virtual file reads in flight. Reads
	// beyond the bound wait for a slot. Zero uses
	// DefaultMaxConcurrentReads.
	MaxConcurrentReads int

	// AllowOther permits other users (including root) to access
	// the mount. Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Debug logs every FUSE request.
	Debug bool

	// Clock provides the virtual file's timestamps. If nil, defaults
	// to clock.Real().
	Clock clock.Clock

	// Logger receives diagnostic messages. If nil, errors go to
	// stderr.
	Logger *slog.Logger
}

func (options *Options) validate() error {
	if options.Mountpoint == "" {
		return fmt.Errorf("mountpoint is required")
	}
	if options.BackingDir == "" {
		return fmt.Errorf("backing directory is required")
	}
	if options.Source == nil {
		return fmt.Errorf("virtual file source is required")
	}
	name := options.VirtualName
	if name == "" || name == "." || name == ".." || strings.ContainsRune(name, '/') || strings.ContainsRune(name, 0) {
		return fmt.Errorf("virtual file name %q must be a single path component", name)
	}
	if options.MaxConcurrentReads < 0 {
		return fmt.Errorf("max concurrent reads must not be negative, got %d", options.MaxConcurrentReads)
	}

	backing, err := filepath.Abs(options.BackingDir)
	if err != nil {
		return fmt.Errorf("resolving backing directory: %w", err)
	}
	mountpoint, err := filepath.Abs(options.Mountpoint)
	if err != nil {
		return fmt.Errorf("resolving mountpoint: %w", err)
	}
	if backing == mountpoint || strings.HasPrefix(mountpoint, backing+string(filepath.Separator)) {
		return fmt.Errorf("mountpoint %s must not be inside backing directory %s", mountpoint, backing)
	}
	options.BackingDir = backing
	options.Mountpoint = mountpoint
	return nil
}

// Mount mounts the filesystem. The caller must call Unmount on the
// returned Server when done.
func Mount(options Options) (*fuse.Server, error) {
	if err := options.validate(); err != nil {
		return nil, err
	}
	if options.MaxConcurrentReads == 0 {
		options.MaxConcurrentReads = DefaultMaxConcurrentReads
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	var backingStat syscall.Stat_t
	if err := syscall.Stat(options.BackingDir, &backingStat); err != nil {
		return nil, fmt.Errorf("backing directory %s: %w", options.BackingDir, err)
	}
	if backingStat.Mode&syscall.S_IFMT != syscall.S_IFDIR {
		return nil, fmt.Errorf("backing directory %s is not a directory", options.BackingDir)
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	root := newRootNode(&options, uint64(backingStat.Dev))

	// Passthrough entries may change underneath the mount, so the
	// kernel keeps them only briefly.
	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second
	negativeTimeout := 100 * time.Millisecond

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:        "chunkfs",
			Name:          "chunkfs",
			AllowOther:    options.AllowOther,
			MaxBackground: options.MaxConcurrentReads,
			Debug:         options.Debug,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("chunkfs mounted",
		"mountpoint", options.Mountpoint,
		"backing_dir", options.BackingDir,
		"virtual_file", options.VirtualName,
		"size", options.Source.Size(),
	)
	return server, nil
}
