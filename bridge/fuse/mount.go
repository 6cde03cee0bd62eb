// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fuse bridges lib/imgfs's engine to the kernel via go-fuse,
// implementing the mount operation table (init, getattr, readdir,
// mkdir, create, open, read, write, unlink, rmdir, rename, statfs,
// ...) on top of the engine's mount facade.
package fuse

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"imgfs/lib/imgfs"
)

// Options configures the mount.
type Options struct {
	// Mountpoint is the directory the filesystem is mounted on. Created
	// if absent.
	Mountpoint string

	// Engine is the already-opened mount facade to serve.
	Engine *imgfs.FS

	// ReadOnly rejects every mutating operation with EROFS at the
	// bridge layer, without needing a separate read-only engine mode.
	ReadOnly bool

	// AllowOther sets the allow_other FUSE mount option.
	AllowOther bool

	// Debug enables go-fuse's request-tracing log output.
	Debug bool

	// FsName is reported to the kernel as the device name.
	FsName string

	// Logger receives diagnostic messages. A no-op logger is used if
	// nil.
	Logger *slog.Logger
}

// Mount mounts the engine at the configured mountpoint and returns the
// running FUSE server. The caller must call Unmount when done.
func Mount(opts Options) (*fuse.Server, error) {
	if opts.Mountpoint == "" {
		return nil, fmt.Errorf("bridge/fuse: mountpoint is required")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("bridge/fuse: engine is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	}
	if opts.FsName == "" {
		opts.FsName = "imgfs"
	}

	if err := os.MkdirAll(opts.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("bridge/fuse: creating mountpoint %s: %w", opts.Mountpoint, err)
	}

	root := &node{engine: opts.Engine, ino: opts.Engine.RootIno(), readOnly: opts.ReadOnly, logger: opts.Logger}

	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second

	server, err := gofuse.Mount(opts.Mountpoint, root, &gofuse.Options{
		EntryTimeout: &entryTimeout,
		AttrTimeout:  &attrTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     opts.FsName,
			Name:       "imgfs",
			AllowOther: opts.AllowOther,
			Debug:      opts.Debug,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("bridge/fuse: mounting at %s: %w", opts.Mountpoint, err)
	}

	opts.Logger.Info("imgfs mounted", "mountpoint", opts.Mountpoint, "read_only", opts.ReadOnly)
	return server, nil
}
