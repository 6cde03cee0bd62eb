// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imgfs

import (
	"fmt"
	"os"

	"imgfs/lib/raster"
)

// MinBlocks is the smallest total_blocks a filesystem can have: the
// superblock, the bitmap, and the root inode each need one block.
const MinBlocks = 3

// FormatOptions controls Format's behavior. The zero value formats an
// unencrypted filesystem.
type FormatOptions struct {
	// Encrypt, when set, turns on FlagEncrypted and populates the
	// superblock's salt and scrypt parameters from Salt, LogN, R and P. The caller
	// is responsible for deriving the actual key and supplying a Cipher
	// to later operations; Format itself never sees the passphrase.
	Encrypt bool
	Salt    [16]byte
	LogN    uint32
	R       uint32
	P       uint32
}

// Format initializes a new filesystem of totalBlocks blocks rooted at
// dir, creating dir if absent. It writes the superblock and bitmap,
// allocates and persists the root directory inode, and ensures every
// remaining block index has a backing (empty) image file.
//
// cipher must be non-nil when opts.Encrypt is set, so the root inode
// is sealed at creation time rather than written in the clear; it is
// ignored otherwise.
func Format(dir string, totalBlocks uint32, opts FormatOptions, cipher Cipher) error {
	if totalBlocks < MinBlocks {
		return wrapf(Invalid, "Format", fmt.Errorf("total_blocks=%d, minimum is %d", totalBlocks, MinBlocks))
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return wrapf(IO, "Format", err)
	}

	var sb Superblock
	InitSuperblock(&sb, totalBlocks)
	if opts.Encrypt {
		sb.Flags |= FlagEncrypted
		sb.Salt = opts.Salt
		sb.ScryptLogN = opts.LogN
		sb.ScryptR = opts.R
		sb.ScryptP = opts.P
	}

	if opts.Encrypt && cipher == nil {
		return wrapf(Invalid, "Format", fmt.Errorf("encryption requested but no cipher supplied"))
	}

	bm := NewBitmap(totalBlocks)

	var rootCipher Cipher
	if opts.Encrypt {
		rootCipher = cipher
	}
	rootIno, err := CreateInode(bm, true, dir, rootCipher)
	if err != nil {
		return err
	}
	sb.RootInode = rootIno

	if err := WriteSuperblock(&sb, dir); err != nil {
		return err
	}
	if err := WriteBitmap(bm, dir); err != nil {
		return err
	}

	for i := uint32(0); i < totalBlocks; i++ {
		if i == 0 || i == bitmapBlock || i == rootIno {
			continue
		}
		if _, err := os.Stat(raster.Path(dir, i)); err == nil {
			continue
		}
		if err := raster.CreateEmptyBlock(dir, i); err != nil {
			return fromRaster("Format", err)
		}
	}

	return nil
}
