// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imgfs

import (
	"sync"

	"imgfs/lib/raster"
)

// FS is the mount facade: it owns the in-memory superblock and bitmap
// for the lifetime of a mounted instance and serializes every
// operation behind a single mutex, so the engine behaves as a single
// blocking actor even when the caller (the FUSE bridge) issues
// requests from multiple goroutines.
type FS struct {
	mu sync.Mutex

	dir    string
	sb     Superblock
	bm     *Bitmap
	cipher Cipher
}

// Open reads the superblock and bitmap at dir and returns a mounted
// FS. cipher may be nil for an unencrypted filesystem; it must be
// non-nil if the on-disk superblock reports FlagEncrypted.
func Open(dir string, cipher Cipher) (*FS, error) {
	var sb Superblock
	if err := ReadSuperblock(&sb, dir); err != nil {
		return nil, err
	}
	if sb.Encrypted() && cipher == nil {
		return nil, wrapf(Invalid, "Open", nil)
	}
	bm, err := ReadBitmap(dir, sb.TotalBlocks)
	if err != nil {
		return nil, err
	}
	return &FS{dir: dir, sb: sb, bm: bm, cipher: cipher}, nil
}

// Close releases the mount facade. Every operation already persists
// eagerly, so Close has nothing to flush; it exists for symmetry with
// Open and to give the bridge a place to release its own resources.
func (fs *FS) Close() error { return nil }

// RootIno returns the root directory's inode number.
func (fs *FS) RootIno() uint32 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.sb.RootInode
}

// Stat reads the inode numbered ino.
func (fs *FS) Stat(ino uint32) (*Inode, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return ReadInode(ino, fs.dir, fs.cipher)
}

// Lookup resolves name within the directory numbered parentIno.
func (fs *FS) Lookup(parentIno uint32, name string) (uint32, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	parent, err := ReadInode(parentIno, fs.dir, fs.cipher)
	if err != nil {
		return 0, err
	}
	if !parent.IsDir() {
		return 0, wrapf(NotDir, "Lookup", nil)
	}
	return DirLookup(parent, fs.dir, name, fs.cipher)
}

// Readdir lists the occupied entries of the directory numbered ino.
func (fs *FS) Readdir(ino uint32) ([]DirEntry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	in, err := ReadInode(ino, fs.dir, fs.cipher)
	if err != nil {
		return nil, err
	}
	if !in.IsDir() {
		return nil, wrapf(NotDir, "Readdir", nil)
	}
	return DirList(in, fs.dir, fs.cipher)
}

// Resolve walks an absolute path from the root, returning the inode it
// names.
func (fs *FS) Resolve(path string) (*Inode, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	root, err := ReadInode(fs.sb.RootInode, fs.dir, fs.cipher)
	if err != nil {
		return nil, err
	}
	return Resolve(root, fs.dir, path, fs.cipher)
}

func (fs *FS) createChild(parentIno uint32, name string, isDir bool) (*Inode, error) {
	parent, err := ReadInode(parentIno, fs.dir, fs.cipher)
	if err != nil {
		return nil, err
	}
	if !parent.IsDir() {
		return nil, wrapf(NotDir, "createChild", nil)
	}

	childIno, err := CreateInode(fs.bm, isDir, fs.dir, fs.cipher)
	if err != nil {
		return nil, err
	}

	if err := DirAdd(fs.bm, parent, fs.dir, name, childIno, fs.cipher); err != nil {
		FreeBlocks(fs.bm, childIno, 1)
		_ = WriteBitmap(fs.bm, fs.dir)
		return nil, err
	}

	return ReadInode(childIno, fs.dir, fs.cipher)
}

// Create makes a new regular file named name inside the directory
// numbered parentIno.
func (fs *FS) Create(parentIno uint32, name string) (*Inode, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.createChild(parentIno, name, false)
}

// Mkdir makes a new directory named name inside the directory numbered
// parentIno.
func (fs *FS) Mkdir(parentIno uint32, name string) (*Inode, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.createChild(parentIno, name, true)
}

// Unlink removes the regular-file entry named name from the directory
// numbered parentIno and frees its blocks.
func (fs *FS) Unlink(parentIno uint32, name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, err := ReadInode(parentIno, fs.dir, fs.cipher)
	if err != nil {
		return err
	}
	childIno, err := DirLookup(parent, fs.dir, name, fs.cipher)
	if err != nil {
		return err
	}
	child, err := ReadInode(childIno, fs.dir, fs.cipher)
	if err != nil {
		return err
	}
	if child.IsDir() {
		return wrapf(IsDir, "Unlink", nil)
	}

	for i := uint32(0); i < child.BlockCount; i++ {
		FreeBlocks(fs.bm, child.Blocks[i], 1)
	}
	FreeBlocks(fs.bm, childIno, 1)
	if err := WriteBitmap(fs.bm, fs.dir); err != nil {
		return err
	}
	return DirRemove(parent, fs.dir, name, fs.cipher)
}

// Rmdir removes the empty directory named name from the directory
// numbered parentIno. Returns ErrNotEmpty if the child directory still
// has entries.
func (fs *FS) Rmdir(parentIno uint32, name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	parent, err := ReadInode(parentIno, fs.dir, fs.cipher)
	if err != nil {
		return err
	}
	childIno, err := DirLookup(parent, fs.dir, name, fs.cipher)
	if err != nil {
		return err
	}
	child, err := ReadInode(childIno, fs.dir, fs.cipher)
	if err != nil {
		return err
	}
	if !child.IsDir() {
		return wrapf(NotDir, "Rmdir", nil)
	}

	entries, err := DirList(child, fs.dir, fs.cipher)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return wrapf(NotEmpty, "Rmdir", nil)
	}

	if child.BlockCount > 0 {
		FreeBlocks(fs.bm, child.Blocks[0], 1)
	}
	FreeBlocks(fs.bm, childIno, 1)
	if err := WriteBitmap(fs.bm, fs.dir); err != nil {
		return err
	}
	return DirRemove(parent, fs.dir, name, fs.cipher)
}

// Read copies up to len(out) bytes starting at offset from the file
// numbered ino, returning the number of bytes actually read (0 at or
// past end-of-file).
func (fs *FS) Read(ino uint32, offset int64, out []byte) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in, err := ReadInode(ino, fs.dir, fs.cipher)
	if err != nil {
		return 0, err
	}
	if in.IsDir() {
		return 0, wrapf(IsDir, "Read", nil)
	}
	if offset < 0 || uint32(offset) >= in.Size {
		return 0, nil
	}

	remaining := in.Size - uint32(offset)
	n := len(out)
	if uint32(n) > remaining {
		n = int(remaining)
	}

	read := 0
	for read < n {
		abs := uint32(offset) + uint32(read)
		blockIdx := abs / raster.BlockSize
		intraOff := abs % raster.BlockSize
		chunk := raster.BlockSize - int(intraOff)
		if chunk > n-read {
			chunk = n - read
		}

		block := make([]byte, raster.BlockSize)
		if err := raster.ReadBlock(fs.dir, in.Blocks[blockIdx], block, raster.BlockSize); err != nil {
			return read, fromRaster("Read", err)
		}
		copy(out[read:read+chunk], block[intraOff:intraOff+uint32(chunk)])
		read += chunk
	}
	return read, nil
}

// Write writes data at offset into the file numbered ino, growing the
// file (via Resize) as needed, and returns the number of bytes
// written.
func (fs *FS) Write(ino uint32, offset int64, data []byte) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	in, err := ReadInode(ino, fs.dir, fs.cipher)
	if err != nil {
		return 0, err
	}
	if in.IsDir() {
		return 0, wrapf(IsDir, "Write", nil)
	}
	if offset < 0 {
		return 0, wrapf(Invalid, "Write", nil)
	}

	end := uint32(offset) + uint32(len(data))
	if end > in.Size {
		if err := Resize(fs.bm, in, end, fs.dir, fs.cipher); err != nil {
			return 0, err
		}
	}

	written := 0
	for written < len(data) {
		abs := uint32(offset) + uint32(written)
		blockIdx := abs / raster.BlockSize
		intraOff := abs % raster.BlockSize
		chunk := raster.BlockSize - int(intraOff)
		if chunk > len(data)-written {
			chunk = len(data) - written
		}

		block := make([]byte, raster.BlockSize)
		if intraOff != 0 || chunk != raster.BlockSize {
			if err := raster.ReadBlock(fs.dir, in.Blocks[blockIdx], block, raster.BlockSize); err != nil {
				return written, fromRaster("Write", err)
			}
		}
		copy(block[intraOff:intraOff+uint32(chunk)], data[written:written+chunk])
		if err := raster.WriteBlock(fs.dir, in.Blocks[blockIdx], block, raster.BlockSize); err != nil {
			return written, fromRaster("Write", err)
		}
		written += chunk
	}

	return written, nil
}

// Rename moves the entry named oldName (inside the directory numbered
// parentIno) to newName inside the directory numbered newParentIno.
// Cross-directory rename is rejected with ErrCrossDevice.
func (fs *FS) Rename(parentIno uint32, oldName string, newParentIno uint32, newName string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if parentIno != newParentIno {
		return wrapf(CrossDevice, "Rename", nil)
	}

	parent, err := ReadInode(parentIno, fs.dir, fs.cipher)
	if err != nil {
		return err
	}
	childIno, err := DirLookup(parent, fs.dir, oldName, fs.cipher)
	if err != nil {
		return err
	}

	if err := DirAdd(fs.bm, parent, fs.dir, newName, childIno, fs.cipher); err != nil {
		return err
	}
	return DirRemove(parent, fs.dir, oldName, fs.cipher)
}

// Statfs reports total_blocks and the number of free blocks.
func (fs *FS) Statfs() (total, free uint32) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.sb.TotalBlocks, fs.sb.TotalBlocks - fs.bm.Popcount()
}
