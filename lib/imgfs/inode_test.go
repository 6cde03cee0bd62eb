// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imgfs

import (
	"errors"
	"testing"

	"imgfs/lib/raster"
)

func TestInodeEncodeDecodeRoundTrip(t *testing.T) {
	in := &Inode{
		Ino:        7,
		Size:       250_000,
		BlockCount: 2,
		Flags:      FlagDirectory,
	}
	in.Blocks[0] = 42
	in.Blocks[1] = 43

	buf := encodeInode(in)
	if len(buf) != inodeHeaderSize {
		t.Fatalf("encodeInode length = %d, want %d", len(buf), inodeHeaderSize)
	}

	got := decodeInode(buf)
	if *got != *in {
		t.Errorf("decodeInode(encodeInode(in)) = %+v, want %+v", got, in)
	}
}

func TestWriteReadInodeRoundTrip(t *testing.T) {
	dir := t.TempDir()

	want := &Inode{Ino: 3, Size: 10, BlockCount: 1}
	want.Blocks[0] = 9

	if err := WriteInode(want, dir, nil); err != nil {
		t.Fatalf("WriteInode: %v", err)
	}

	got, err := ReadInode(3, dir, nil)
	if err != nil {
		t.Fatalf("ReadInode: %v", err)
	}
	if *got != *want {
		t.Errorf("ReadInode = %+v, want %+v", got, want)
	}
}

func TestCreateInodeAllocatesAndPersists(t *testing.T) {
	dir := t.TempDir()
	bm := NewBitmap(16)

	ino, err := CreateInode(bm, true, dir, nil)
	if err != nil {
		t.Fatalf("CreateInode: %v", err)
	}
	if bm.Test(0) == false || bm.Test(1) == false {
		t.Fatal("superblock/bitmap blocks unexpectedly freed")
	}
	if !bm.Test(ino) {
		t.Errorf("bit %d not set after CreateInode", ino)
	}

	in, err := ReadInode(ino, dir, nil)
	if err != nil {
		t.Fatalf("ReadInode: %v", err)
	}
	if !in.IsDir() {
		t.Error("IsDir() = false, want true")
	}
	if in.Ino != ino {
		t.Errorf("in.Ino = %d, want %d", in.Ino, ino)
	}

	onDisk, err := ReadBitmap(dir, 16)
	if err != nil {
		t.Fatalf("ReadBitmap: %v", err)
	}
	if !onDisk.Test(ino) {
		t.Error("persisted bitmap does not reflect the new inode's block")
	}
}

func TestCreateInodeFailsWhenFull(t *testing.T) {
	dir := t.TempDir()
	bm := NewBitmap(2) // only blocks 0 and 1 exist, both already used.

	_, err := CreateInode(bm, false, dir, nil)
	if !errors.Is(err, ErrFull) {
		t.Fatalf("CreateInode error = %v, want ErrFull", err)
	}
}

// TestResizeMonotonic checks property: after Resize(inode, s) succeeds,
// block_count == ceil(s/BlockSize) and size == s, for a grow and a
// shrink. The failure half is covered by the two tests below.
func TestResizeMonotonic(t *testing.T) {
	dir := t.TempDir()
	bm := NewBitmap(32)
	ino, err := CreateInode(bm, false, dir, nil)
	if err != nil {
		t.Fatalf("CreateInode: %v", err)
	}
	in, err := ReadInode(ino, dir, nil)
	if err != nil {
		t.Fatalf("ReadInode: %v", err)
	}

	if err := Resize(bm, in, 2*raster.BlockSize+1, dir, nil); err != nil {
		t.Fatalf("Resize grow: %v", err)
	}
	if in.BlockCount != 3 {
		t.Errorf("BlockCount = %d, want 3", in.BlockCount)
	}
	if in.Size != 2*raster.BlockSize+1 {
		t.Errorf("Size = %d, want %d", in.Size, 2*raster.BlockSize+1)
	}

	reread, err := ReadInode(ino, dir, nil)
	if err != nil {
		t.Fatalf("ReadInode after resize: %v", err)
	}
	if *reread != *in {
		t.Errorf("persisted inode = %+v, want %+v", reread, in)
	}

	savedBlocks := in.Blocks
	savedCount := in.BlockCount
	savedSize := in.Size

	if err := Resize(bm, in, 1, dir, nil); err != nil {
		t.Fatalf("Resize shrink: %v", err)
	}
	if in.BlockCount != 1 {
		t.Errorf("BlockCount after shrink = %d, want 1", in.BlockCount)
	}
	if in.Size != 1 {
		t.Errorf("Size after shrink = %d, want 1", in.Size)
	}
	for i := uint32(1); i < savedCount; i++ {
		if bm.Test(savedBlocks[i]) {
			t.Errorf("block %d still marked used after shrink", savedBlocks[i])
		}
	}
	_ = savedSize
}

func TestResizeRejectsMoreThanMaxDirectBlocks(t *testing.T) {
	dir := t.TempDir()
	bm := NewBitmap(32)
	ino, err := CreateInode(bm, false, dir, nil)
	if err != nil {
		t.Fatalf("CreateInode: %v", err)
	}
	in, err := ReadInode(ino, dir, nil)
	if err != nil {
		t.Fatalf("ReadInode: %v", err)
	}

	err = Resize(bm, in, uint32(MaxDirectBlocks+1)*raster.BlockSize, dir, nil)
	if !errors.Is(err, ErrFull) {
		t.Fatalf("Resize error = %v, want ErrFull", err)
	}
	if in.BlockCount != 0 || in.Size != 0 {
		t.Errorf("inode mutated on rejected resize: BlockCount=%d Size=%d", in.BlockCount, in.Size)
	}
}

func TestResizeFailureLeavesBitmapUnchanged(t *testing.T) {
	dir := t.TempDir()
	// Tiny filesystem: blocks 0,1 reserved, one more free block (2) for
	// the inode itself, leaving zero free blocks for data.
	bm := NewBitmap(3)
	ino, err := CreateInode(bm, false, dir, nil)
	if err != nil {
		t.Fatalf("CreateInode: %v", err)
	}
	in, err := ReadInode(ino, dir, nil)
	if err != nil {
		t.Fatalf("ReadInode: %v", err)
	}
	before := bm.Clone()

	err = Resize(bm, in, raster.BlockSize, dir, nil)
	if !errors.Is(err, ErrFull) {
		t.Fatalf("Resize error = %v, want ErrFull", err)
	}
	if in.BlockCount != 0 {
		t.Errorf("BlockCount = %d, want 0 after rejected grow", in.BlockCount)
	}
	for i := uint32(0); i < bm.total; i++ {
		if bm.Test(i) != before.Test(i) {
			t.Errorf("bit %d changed after failed resize", i)
		}
	}
}
