// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imgfs

import (
	"encoding/binary"
	"fmt"

	"imgfs/lib/raster"
)

const (
	// MaxDirectBlocks is the number of direct data-block pointers an
	// inode carries. The specification has no indirect blocks, so this
	// is also the maximum number of blocks a file or directory can own.
	MaxDirectBlocks = 10

	// inodeHeaderSize is the fixed wire size of an inode record. The
	// remainder of the block (raster.BlockSize - inodeHeaderSize bytes)
	// is zero padding.
	inodeHeaderSize = 128

	inoOffIno        = 0
	inoOffSize       = 4
	inoOffBlockCount = 8
	inoOffFlags      = 12
	inoOffBlocks     = 16
	inoOffIndirect   = inoOffBlocks + 4*MaxDirectBlocks // 56

	// FlagDirectory is inode.Flags bit 0: this inode is a directory.
	FlagDirectory uint8 = 1 << 0
)

// Cipher wraps/unwraps an inode or directory block's plaintext payload
// when the filesystem's encrypted flag is set. A nil Cipher (the
// default) means metadata is stored in the clear. See lib/imgfs/crypt
// for the concrete implementation.
type Cipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// Inode is the in-memory form of one fixed-size inode record. Its own
// block index doubles as the inode number (Ino).
type Inode struct {
	Ino        uint32
	Size       uint32
	BlockCount uint32
	Flags      uint8
	Blocks     [MaxDirectBlocks]uint32
}

// IsDir reports whether this inode is a directory.
func (in *Inode) IsDir() bool { return in.Flags&FlagDirectory != 0 }

func encodeInode(in *Inode) []byte {
	buf := make([]byte, inodeHeaderSize)
	binary.LittleEndian.PutUint32(buf[inoOffIno:], in.Ino)
	binary.LittleEndian.PutUint32(buf[inoOffSize:], in.Size)
	binary.LittleEndian.PutUint32(buf[inoOffBlockCount:], in.BlockCount)
	buf[inoOffFlags] = in.Flags
	for i, b := range in.Blocks {
		binary.LittleEndian.PutUint32(buf[inoOffBlocks+4*i:], b)
	}
	// inoOffIndirect and everything past it stays zero: indirect blocks
	// are reserved and never used by this engine.
	return buf
}

func decodeInode(buf []byte) *Inode {
	in := &Inode{
		Ino:        binary.LittleEndian.Uint32(buf[inoOffIno:]),
		Size:       binary.LittleEndian.Uint32(buf[inoOffSize:]),
		BlockCount: binary.LittleEndian.Uint32(buf[inoOffBlockCount:]),
		Flags:      buf[inoOffFlags],
	}
	for i := range in.Blocks {
		in.Blocks[i] = binary.LittleEndian.Uint32(buf[inoOffBlocks+4*i:])
	}
	return in
}

// WriteInode persists in to its own block (in.Ino), optionally sealing
// the header through cipher first. cipher may be nil.
func WriteInode(in *Inode, dir string, cipher Cipher) error {
	buf := encodeInode(in)
	if cipher != nil {
		sealed, err := cipher.Seal(buf)
		if err != nil {
			return wrapf(IO, "WriteInode", err)
		}
		buf = sealed
	}
	if err := raster.WriteBlock(dir, in.Ino, buf, len(buf)); err != nil {
		return fromRaster("WriteInode", err)
	}
	return nil
}

// ReadInode reads the inode stored in block ino.
func ReadInode(ino uint32, dir string, cipher Cipher) (*Inode, error) {
	n := inodeHeaderSize
	if cipher != nil {
		n = envelopeSize(inodeHeaderSize)
	}
	buf := make([]byte, n)
	if err := raster.ReadBlock(dir, ino, buf, n); err != nil {
		return nil, fromRaster("ReadInode", err)
	}
	if cipher != nil {
		opened, err := cipher.Open(buf)
		if err != nil {
			return nil, wrapf(IO, "ReadInode", err)
		}
		buf = opened
	}
	return decodeInode(buf), nil
}

// CreateInode reserves one block via Alloc, writes a zeroed inode
// record there (with the directory flag set as requested), persists
// both the inode and the bitmap, and returns the new inode number.
//
// On any failure after the block has been reserved, CreateInode rolls
// back: it frees the block in bm and attempts (best-effort) to
// re-persist the bitmap before returning ErrFull or the I/O error.
func CreateInode(bm *Bitmap, isDir bool, dir string, cipher Cipher) (uint32, error) {
	ino, ok := Alloc(bm, 1)
	if !ok {
		return 0, wrapf(Full, "CreateInode", nil)
	}

	in := &Inode{Ino: ino}
	if isDir {
		in.Flags |= FlagDirectory
	}

	if err := WriteInode(in, dir, cipher); err != nil {
		FreeBlocks(bm, ino, 1)
		_ = WriteBitmap(bm, dir) // best-effort rollback persistence
		return 0, err
	}

	if err := WriteBitmap(bm, dir); err != nil {
		FreeBlocks(bm, ino, 1)
		_ = WriteBitmap(bm, dir)
		return 0, err
	}

	return ino, nil
}

// Resize grows or shrinks in to exactly newSize bytes, (de)allocating
// direct blocks as needed. All-or-nothing: on failure, in and bm are
// restored to their prior state (and the bitmap re-persisted on a
// best-effort basis if it had already been written); on success the
// bitmap is persisted before the inode, so a crash between the two
// leaks blocks but never leaves a dangling reference.
func Resize(bm *Bitmap, in *Inode, newSize uint32, dir string, cipher Cipher) error {
	req := (newSize + raster.BlockSize - 1) / raster.BlockSize
	if newSize == 0 {
		req = 0
	}
	if req > MaxDirectBlocks {
		return wrapf(Full, "Resize", fmt.Errorf("requires %d blocks, max %d", req, MaxDirectBlocks))
	}

	var allocated []uint32
	var freed []uint32

	switch {
	case req > in.BlockCount:
		for i := in.BlockCount; i < req; i++ {
			b, ok := Alloc(bm, 1)
			if !ok {
				for _, a := range allocated {
					FreeBlocks(bm, a, 1)
				}
				return wrapf(Full, "Resize", fmt.Errorf("no space for block %d of %d", i+1, req))
			}
			allocated = append(allocated, b)
		}
	case req < in.BlockCount:
		for i := req; i < in.BlockCount; i++ {
			freed = append(freed, in.Blocks[i])
			FreeBlocks(bm, in.Blocks[i], 1)
		}
	}

	// bm now reflects the new allocation in memory. Persist it before
	// touching in at all, so a write failure leaves both bm and in
	// exactly as they were: roll the in-memory bitmap back to match the
	// unwritten disk state rather than leaving blocks allocated (or
	// freed) in memory but not recorded on disk.
	if err := WriteBitmap(bm, dir); err != nil {
		for _, a := range allocated {
			FreeBlocks(bm, a, 1)
		}
		for _, f := range freed {
			bm.Set(f)
		}
		return err
	}

	prev := *in
	for i, b := range allocated {
		in.Blocks[in.BlockCount+uint32(i)] = b
	}
	for i := req; i < in.BlockCount; i++ {
		in.Blocks[i] = 0
	}

	in.BlockCount = req
	in.Size = newSize
	if err := WriteInode(in, dir, cipher); err != nil {
		*in = prev
		for _, a := range allocated {
			FreeBlocks(bm, a, 1)
		}
		for _, f := range freed {
			bm.Set(f)
		}
		_ = WriteBitmap(bm, dir) // best-effort rollback persistence
		return err
	}
	return nil
}
