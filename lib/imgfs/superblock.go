// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imgfs

import (
	"encoding/binary"
	"fmt"

	"imgfs/lib/raster"
)

// Superblock format constants.
const (
	// Magic is the fixed 32-bit constant identifying this format.
	Magic uint32 = 0x42465753 // "BFWS": Block-File Worst-fit Store.

	// BlockBits is the bit-capacity a conformant block must report
	// (1,000,000 bits = raster.BlockSize bytes).
	BlockBits uint32 = 1_000_000

	// superblockSize is the total on-disk header size.
	superblockSize = 64

	// FlagEncrypted marks that inode/directory payloads are wrapped by
	// lib/imgfs/crypt before reaching the block codec.
	FlagEncrypted uint32 = 1 << 0

	// FlagResizable is reserved for a future online-resize feature;
	// this engine never sets or interprets it, but preserves it across
	// read/write round-trips.
	FlagResizable uint32 = 1 << 1

	// knownFlags is the set of flag bits this format defines. Any
	// other bit set is a format violation.
	knownFlags = FlagEncrypted | FlagResizable

	sbOffMagic       = 0
	sbOffTotalBlocks = 4
	sbOffRootInode   = 8
	sbOffBlockSize   = 12
	sbOffFlags       = 16
	sbOffReserved    = 20 // 11 x u32 = 44 bytes, offsets 20..63.

	sbOffSalt       = 24 // 16 bytes, within the reserved region.
	sbOffScryptLogN = 40
	sbOffScryptR    = 44
	sbOffScryptP    = 48
)

// Superblock is the in-memory form of logical block 0: the filesystem's
// global metadata (magic, geometry, root inode, encryption flags and
// key-derivation parameters).
type Superblock struct {
	Magic       uint32
	TotalBlocks uint32
	RootInode   uint32
	BlockSize   uint32
	Flags       uint32

	// Salt and ScryptLogN/R/P are meaningful only when Flags&FlagEncrypted
	// is set; they live in the reserved region of the wire format and are
	// zero otherwise. See lib/imgfs/crypt.
	Salt        [16]byte
	ScryptLogN  uint32
	ScryptR     uint32
	ScryptP     uint32
}

// InitSuperblock zeroes sb and sets Magic, TotalBlocks, BlockSize, and a
// root inode of 0 (the caller overwrites RootInode once the root inode
// has actually been allocated — see Format).
func InitSuperblock(sb *Superblock, total uint32) {
	*sb = Superblock{
		Magic:       Magic,
		TotalBlocks: total,
		RootInode:   0,
		BlockSize:   BlockBits,
		Flags:       0,
	}
}

// Encrypted reports whether sb's FlagEncrypted bit is set.
func (sb *Superblock) Encrypted() bool {
	return sb.Flags&FlagEncrypted != 0
}

// WriteSuperblock serializes sb as the 64-byte header at the start of
// block 0's payload, zero-padding the rest of the block.
func WriteSuperblock(sb *Superblock, dir string) error {
	buf := make([]byte, superblockSize)
	binary.LittleEndian.PutUint32(buf[sbOffMagic:], sb.Magic)
	binary.LittleEndian.PutUint32(buf[sbOffTotalBlocks:], sb.TotalBlocks)
	binary.LittleEndian.PutUint32(buf[sbOffRootInode:], sb.RootInode)
	binary.LittleEndian.PutUint32(buf[sbOffBlockSize:], sb.BlockSize)
	binary.LittleEndian.PutUint32(buf[sbOffFlags:], sb.Flags)
	if sb.Flags&FlagEncrypted != 0 {
		copy(buf[sbOffSalt:sbOffSalt+16], sb.Salt[:])
		binary.LittleEndian.PutUint32(buf[sbOffScryptLogN:], sb.ScryptLogN)
		binary.LittleEndian.PutUint32(buf[sbOffScryptR:], sb.ScryptR)
		binary.LittleEndian.PutUint32(buf[sbOffScryptP:], sb.ScryptP)
	}

	if err := raster.WriteBlock(dir, 0, buf, len(buf)); err != nil {
		return fromRaster("WriteSuperblock", err)
	}
	return nil
}

// ReadSuperblock reads and validates block 0's header into sb. Returns
// ErrBadMagic or ErrBadBlockSize on a format mismatch, ErrIO on any
// underlying read failure.
func ReadSuperblock(sb *Superblock, dir string) error {
	buf := make([]byte, superblockSize)
	if err := raster.ReadBlock(dir, 0, buf, len(buf)); err != nil {
		return fromRaster("ReadSuperblock", err)
	}

	sb.Magic = binary.LittleEndian.Uint32(buf[sbOffMagic:])
	sb.TotalBlocks = binary.LittleEndian.Uint32(buf[sbOffTotalBlocks:])
	sb.RootInode = binary.LittleEndian.Uint32(buf[sbOffRootInode:])
	sb.BlockSize = binary.LittleEndian.Uint32(buf[sbOffBlockSize:])
	sb.Flags = binary.LittleEndian.Uint32(buf[sbOffFlags:])

	if sb.Magic != Magic {
		return wrapf(BadMagic, "ReadSuperblock", fmt.Errorf("got %#x, want %#x", sb.Magic, Magic))
	}
	if sb.BlockSize != BlockBits {
		return wrapf(BadBlockSize, "ReadSuperblock", fmt.Errorf("got %d, want %d", sb.BlockSize, BlockBits))
	}
	if sb.Flags&^knownFlags != 0 {
		return wrapf(BadMagic, "ReadSuperblock", fmt.Errorf("unknown flag bits set: %#x", sb.Flags&^knownFlags))
	}

	if sb.Flags&FlagEncrypted != 0 {
		copy(sb.Salt[:], buf[sbOffSalt:sbOffSalt+16])
		sb.ScryptLogN = binary.LittleEndian.Uint32(buf[sbOffScryptLogN:])
		sb.ScryptR = binary.LittleEndian.Uint32(buf[sbOffScryptR:])
		sb.ScryptP = binary.LittleEndian.Uint32(buf[sbOffScryptP:])
	}

	return nil
}
