// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imgfs

import (
	"bytes"
	"encoding/binary"

	"imgfs/lib/raster"
)

const (
	// MaxNameLen is the longest name a directory entry can hold,
	// excluding the NUL terminator.
	MaxNameLen = 255

	dirEntrySize = 4 + 256 // ino u32 + name u8[256]

	// DirSlots is the number of entry slots in one directory block.
	DirSlots = raster.BlockSize / dirEntrySize
)

// dirEntry is the in-memory form of one directory slot. Ino == 0 marks
// an empty slot.
type dirEntry struct {
	Ino  uint32
	Name [256]byte
}

func encodeDirEntry(e dirEntry) []byte {
	buf := make([]byte, dirEntrySize)
	binary.LittleEndian.PutUint32(buf[0:4], e.Ino)
	copy(buf[4:], e.Name[:])
	return buf
}

func decodeDirEntry(buf []byte) dirEntry {
	var e dirEntry
	e.Ino = binary.LittleEndian.Uint32(buf[0:4])
	copy(e.Name[:], buf[4:dirEntrySize])
	return e
}

func nameToBytes(name string) ([256]byte, bool) {
	var out [256]byte
	if len(name) > MaxNameLen {
		return out, false
	}
	copy(out[:], name)
	return out, true
}

// namesEqual compares two NUL-terminated name fields under the
// length-limited rule: only the first MaxNameLen bytes participate, so
// two names differing only beyond that boundary compare equal.
func namesEqual(a, b [256]byte) bool {
	return bytes.Equal(a[:MaxNameLen], b[:MaxNameLen])
}

func loadDirBlock(in *Inode, dir string, cipher Cipher) ([]byte, error) {
	n := raster.BlockSize
	if cipher != nil {
		n = envelopeSize(raster.BlockSize)
	}
	buf := make([]byte, n)
	if err := raster.ReadBlock(dir, in.Blocks[0], buf, n); err != nil {
		return nil, fromRaster("loadDirBlock", err)
	}
	if cipher != nil {
		opened, err := cipher.Open(buf)
		if err != nil {
			return nil, wrapf(IO, "loadDirBlock", err)
		}
		buf = opened
	}
	return buf, nil
}

func storeDirBlock(in *Inode, dir string, buf []byte, cipher Cipher) error {
	payload := buf
	if cipher != nil {
		sealed, err := cipher.Seal(buf)
		if err != nil {
			return wrapf(IO, "storeDirBlock", err)
		}
		payload = sealed
	}
	if err := raster.WriteBlock(dir, in.Blocks[0], payload, len(payload)); err != nil {
		return fromRaster("storeDirBlock", err)
	}
	return nil
}

// DirAdd inserts a (name, childIno) entry into dirInode, allocating its
// single data block on first use. Returns ErrExists if name is already
// present, ErrFull if the directory block has no free slot (or no
// block could be allocated), ErrInvalid if name is empty or too long.
func DirAdd(bm *Bitmap, dirInode *Inode, dir, name string, childIno uint32, cipher Cipher) error {
	nameBytes, ok := nameToBytes(name)
	if name == "" || !ok {
		return wrapf(Invalid, "DirAdd", nil)
	}

	if dirInode.BlockCount == 0 {
		block, allocOK := Alloc(bm, 1)
		if !allocOK {
			return wrapf(Full, "DirAdd", nil)
		}
		if err := raster.CreateEmptyBlock(dir, block); err != nil {
			FreeBlocks(bm, block, 1)
			return fromRaster("DirAdd", err)
		}
		dirInode.Blocks[0] = block
		dirInode.BlockCount = 1
		dirInode.Size = 0
		if err := WriteBitmap(bm, dir); err != nil {
			return err
		}
		if err := WriteInode(dirInode, dir, cipher); err != nil {
			return err
		}
	}

	buf, err := loadDirBlock(dirInode, dir, cipher)
	if err != nil {
		return err
	}

	freeIdx := -1
	for i := 0; i < DirSlots; i++ {
		entry := decodeDirEntry(buf[i*dirEntrySize:])
		if entry.Ino == 0 {
			if freeIdx == -1 {
				freeIdx = i
			}
			continue
		}
		if namesEqual(entry.Name, nameBytes) {
			return wrapf(Exists, "DirAdd", nil)
		}
	}
	if freeIdx == -1 {
		return wrapf(Full, "DirAdd", nil)
	}

	entry := dirEntry{Ino: childIno, Name: nameBytes}
	copy(buf[freeIdx*dirEntrySize:], encodeDirEntry(entry))

	if err := storeDirBlock(dirInode, dir, buf, cipher); err != nil {
		return err
	}
	dirInode.Size += dirEntrySize
	return WriteInode(dirInode, dir, cipher)
}

// DirRemove deletes the entry named name from dirInode. Returns
// ErrNotFound if no such entry exists.
func DirRemove(dirInode *Inode, dir, name string, cipher Cipher) error {
	nameBytes, ok := nameToBytes(name)
	if !ok {
		return wrapf(Invalid, "DirRemove", nil)
	}
	if dirInode.BlockCount == 0 {
		return wrapf(NotFound, "DirRemove", nil)
	}

	buf, err := loadDirBlock(dirInode, dir, cipher)
	if err != nil {
		return err
	}

	for i := 0; i < DirSlots; i++ {
		off := i * dirEntrySize
		entry := decodeDirEntry(buf[off:])
		if entry.Ino == 0 || !namesEqual(entry.Name, nameBytes) {
			continue
		}
		binary.LittleEndian.PutUint32(buf[off:off+4], 0)
		buf[off+4] = 0
		if err := storeDirBlock(dirInode, dir, buf, cipher); err != nil {
			return err
		}
		dirInode.Size -= dirEntrySize
		return WriteInode(dirInode, dir, cipher)
	}
	return wrapf(NotFound, "DirRemove", nil)
}

// DirLookup returns the inode number bound to name within dirInode, or
// ErrNotFound.
func DirLookup(dirInode *Inode, dir, name string, cipher Cipher) (uint32, error) {
	nameBytes, ok := nameToBytes(name)
	if !ok {
		return 0, wrapf(Invalid, "DirLookup", nil)
	}
	if dirInode.BlockCount == 0 {
		return 0, wrapf(NotFound, "DirLookup", nil)
	}

	buf, err := loadDirBlock(dirInode, dir, cipher)
	if err != nil {
		return 0, err
	}

	for i := 0; i < DirSlots; i++ {
		entry := decodeDirEntry(buf[i*dirEntrySize:])
		if entry.Ino != 0 && namesEqual(entry.Name, nameBytes) {
			return entry.Ino, nil
		}
	}
	return 0, wrapf(NotFound, "DirLookup", nil)
}

// DirEntry is the externally visible form of one occupied directory
// slot, returned by DirList for readdir-style consumers.
type DirEntry struct {
	Name string
	Ino  uint32
}

// DirList returns every occupied entry in dirInode, in slot order.
func DirList(dirInode *Inode, dir string, cipher Cipher) ([]DirEntry, error) {
	if dirInode.BlockCount == 0 {
		return nil, nil
	}
	buf, err := loadDirBlock(dirInode, dir, cipher)
	if err != nil {
		return nil, err
	}

	var entries []DirEntry
	for i := 0; i < DirSlots; i++ {
		entry := decodeDirEntry(buf[i*dirEntrySize:])
		if entry.Ino == 0 {
			continue
		}
		end := bytes.IndexByte(entry.Name[:], 0)
		if end == -1 {
			end = len(entry.Name)
		}
		entries = append(entries, DirEntry{Name: string(entry.Name[:end]), Ino: entry.Ino})
	}
	return entries, nil
}
