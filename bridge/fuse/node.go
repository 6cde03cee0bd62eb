// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"context"
	"log/slog"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"imgfs/lib/imgfs"
)

// Fixed permission bits: directories are 0755, regular files are 0644.
// Ownership and timestamps are not modeled.
const (
	dirMode  = syscall.S_IFDIR | 0o755
	fileMode = syscall.S_IFREG | 0o644
)

// node is one mounted inode. Its only persistent state is the engine
// inode number it represents — attributes are always re-read from the
// engine rather than cached on the node.
type node struct {
	gofuse.Inode

	engine   *imgfs.FS
	ino      uint32
	readOnly bool
	logger   *slog.Logger
}

var (
	_ gofuse.InodeEmbedder = (*node)(nil)
	_ gofuse.NodeLookuper  = (*node)(nil)
	_ gofuse.NodeReaddirer = (*node)(nil)
	_ gofuse.NodeGetattrer = (*node)(nil)
	_ gofuse.NodeOpener    = (*node)(nil)
	_ gofuse.NodeReader    = (*node)(nil)
	_ gofuse.NodeWriter    = (*node)(nil)
	_ gofuse.NodeCreater   = (*node)(nil)
	_ gofuse.NodeMkdirer   = (*node)(nil)
	_ gofuse.NodeUnlinker  = (*node)(nil)
	_ gofuse.NodeRmdirer   = (*node)(nil)
	_ gofuse.NodeRenamer   = (*node)(nil)
	_ gofuse.NodeStatfser  = (*node)(nil)
	_ gofuse.NodeFlusher   = (*node)(nil)
	_ gofuse.NodeFsyncer   = (*node)(nil)
)

// errno translates an imgfs error Kind into the matching errno the
// kernel expects back from a FUSE request.
func errno(err error) syscall.Errno {
	switch imgfs.KindOf(err) {
	case imgfs.Ok:
		return 0
	case imgfs.IO:
		return syscall.EIO
	case imgfs.NoMemory:
		return syscall.ENOMEM
	case imgfs.Full:
		return syscall.ENOSPC
	case imgfs.NotFound:
		return syscall.ENOENT
	case imgfs.NotDir:
		return syscall.ENOTDIR
	case imgfs.IsDir:
		return syscall.EISDIR
	case imgfs.Exists:
		return syscall.EEXIST
	case imgfs.CrossDevice:
		return syscall.EXDEV
	case imgfs.NotEmpty:
		return syscall.ENOTEMPTY
	case imgfs.BadMagic, imgfs.BadBlockSize, imgfs.BadDimensions:
		return syscall.EIO
	case imgfs.Loop:
		return syscall.ELOOP
	default:
		return syscall.EINVAL
	}
}

func (n *node) child(ino uint32) *node {
	return &node{engine: n.engine, ino: ino, readOnly: n.readOnly, logger: n.logger}
}

func fillAttr(out *fuse.Attr, in *imgfs.Inode) {
	if in.IsDir() {
		out.Mode = dirMode
	} else {
		out.Mode = fileMode
	}
	out.Ino = uint64(in.Ino)
	out.Size = uint64(in.Size)
	out.Blocks = uint64(in.BlockCount)
}

func (n *node) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	in, err := n.engine.Stat(n.ino)
	if err != nil {
		return errno(err)
	}
	fillAttr(&out.Attr, in)
	return 0
}

func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	childIno, err := n.engine.Lookup(n.ino, name)
	if err != nil {
		return nil, errno(err)
	}
	in, err := n.engine.Stat(childIno)
	if err != nil {
		return nil, errno(err)
	}
	fillAttr(&out.Attr, in)

	mode := uint32(fileMode)
	if in.IsDir() {
		mode = dirMode
	}
	child := n.NewInode(ctx, n.child(childIno), gofuse.StableAttr{Mode: mode, Ino: uint64(childIno)})
	return child, 0
}

func (n *node) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	entries, err := n.engine.Readdir(n.ino)
	if err != nil {
		return nil, errno(err)
	}

	fuseEntries := make([]fuse.DirEntry, 0, len(entries)+2)
	fuseEntries = append(fuseEntries,
		fuse.DirEntry{Name: ".", Mode: dirMode, Ino: uint64(n.ino)},
		fuse.DirEntry{Name: "..", Mode: dirMode},
	)
	for _, e := range entries {
		mode := uint32(fileMode)
		if child, err := n.engine.Stat(e.Ino); err == nil && child.IsDir() {
			mode = dirMode
		}
		fuseEntries = append(fuseEntries, fuse.DirEntry{Name: e.Name, Mode: mode, Ino: uint64(e.Ino)})
	}
	return &sliceDirStream{entries: fuseEntries}, 0
}

// sliceDirStream implements gofuse.DirStream over a fixed slice of
// entries, the same shape as every Readdir call produces since the
// engine never returns a partial listing.
type sliceDirStream struct {
	entries []fuse.DirEntry
	index   int
}

func (s *sliceDirStream) HasNext() bool { return s.index < len(s.entries) }

func (s *sliceDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.index >= len(s.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	entry := s.entries[s.index]
	s.index++
	return entry, 0
}

func (s *sliceDirStream) Close() {}

func (n *node) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if n.readOnly && flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *node) Read(ctx context.Context, f gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	got, err := n.engine.Read(n.ino, off, dest)
	if err != nil {
		return nil, errno(err)
	}
	return fuse.ReadResultData(dest[:got]), 0
}

func (n *node) Write(ctx context.Context, f gofuse.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	if n.readOnly {
		return 0, syscall.EROFS
	}
	written, err := n.engine.Write(n.ino, off, data)
	if err != nil {
		return uint32(written), errno(err)
	}
	return uint32(written), 0
}

func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	if n.readOnly {
		return nil, nil, 0, syscall.EROFS
	}
	in, err := n.engine.Create(n.ino, name)
	if err != nil {
		return nil, nil, 0, errno(err)
	}
	fillAttr(&out.Attr, in)
	child := n.NewInode(ctx, n.child(in.Ino), gofuse.StableAttr{Mode: fileMode, Ino: uint64(in.Ino)})
	return child, nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	if n.readOnly {
		return nil, syscall.EROFS
	}
	in, err := n.engine.Mkdir(n.ino, name)
	if err != nil {
		return nil, errno(err)
	}
	fillAttr(&out.Attr, in)
	child := n.NewInode(ctx, n.child(in.Ino), gofuse.StableAttr{Mode: dirMode, Ino: uint64(in.Ino)})
	return child, 0
}

func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	if n.readOnly {
		return syscall.EROFS
	}
	return errno(n.engine.Unlink(n.ino, name))
}

func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	if n.readOnly {
		return syscall.EROFS
	}
	return errno(n.engine.Rmdir(n.ino, name))
}

func (n *node) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	if n.readOnly {
		return syscall.EROFS
	}
	target, ok := newParent.(*node)
	if !ok {
		return syscall.EINVAL
	}
	return errno(n.engine.Rename(n.ino, name, target.ino, newName))
}

// Flush and Fsync are no-ops: every Write call already persists its
// data through the engine before returning, so there is nothing left
// to force out here.
func (n *node) Flush(ctx context.Context, f gofuse.FileHandle) syscall.Errno {
	return 0
}

func (n *node) Fsync(ctx context.Context, f gofuse.FileHandle, flags uint32) syscall.Errno {
	return 0
}

func (n *node) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	total, free := n.engine.Statfs()
	out.Blocks = uint64(total)
	out.Bfree = uint64(free)
	out.Bavail = uint64(free)
	out.Bsize = imgfsBlockSize
	out.NameLen = imgfs.MaxNameLen
	return 0
}

// imgfsBlockSize mirrors raster.BlockSize without importing lib/raster
// directly into the bridge package; statfs reports it as the
// filesystem's fragment/block size.
const imgfsBlockSize = 125000
