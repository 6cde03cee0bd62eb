// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imgfs

import (
	"errors"
	"os"
	"testing"

	"imgfs/lib/imgfs/crypt"
	"imgfs/lib/raster"
	"imgfs/lib/secret"
)

// testCipher derives a throwaway Context from a fixed passphrase, for
// tests that need a real Cipher without prompting for one.
func testCipher(t *testing.T) Cipher {
	t.Helper()
	passphrase, err := secret.NewFromBytes([]byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("secret.NewFromBytes: %v", err)
	}
	defer passphrase.Close()

	salt, err := crypt.RandomSalt()
	if err != nil {
		t.Fatalf("crypt.RandomSalt: %v", err)
	}
	key, err := crypt.DeriveKey(passphrase, salt, crypt.DefaultLogN, crypt.DefaultR, crypt.DefaultP)
	if err != nil {
		t.Fatalf("crypt.DeriveKey: %v", err)
	}
	ctx, err := crypt.NewContext(key)
	if err != nil {
		t.Fatalf("crypt.NewContext: %v", err)
	}
	t.Cleanup(func() { ctx.Close() })
	return ctx
}

func TestFormatProducesReadableFilesystem(t *testing.T) {
	dir := t.TempDir()
	const total = 16

	if err := Format(dir, total, FormatOptions{}, nil); err != nil {
		t.Fatalf("Format: %v", err)
	}

	var sb Superblock
	if err := ReadSuperblock(&sb, dir); err != nil {
		t.Fatalf("ReadSuperblock: %v", err)
	}
	if sb.TotalBlocks != total {
		t.Errorf("TotalBlocks = %d, want %d", sb.TotalBlocks, total)
	}
	if sb.Encrypted() {
		t.Error("unencrypted Format produced an encrypted superblock")
	}

	bm, err := ReadBitmap(dir, total)
	if err != nil {
		t.Fatalf("ReadBitmap: %v", err)
	}
	if !bm.Test(0) || !bm.Test(1) || !bm.Test(sb.RootInode) {
		t.Error("superblock, bitmap, or root inode block not marked used")
	}

	root, err := ReadInode(sb.RootInode, dir, nil)
	if err != nil {
		t.Fatalf("ReadInode(root): %v", err)
	}
	if !root.IsDir() {
		t.Error("root inode is not a directory")
	}
	if root.Ino != sb.RootInode {
		t.Errorf("root.Ino = %d, want %d", root.Ino, sb.RootInode)
	}

	for i := uint32(0); i < total; i++ {
		if _, err := os.Stat(raster.Path(dir, i)); err != nil {
			t.Errorf("block %d has no backing image file: %v", i, err)
		}
	}
}

func TestFormatRejectsTooFewBlocks(t *testing.T) {
	dir := t.TempDir()
	err := Format(dir, 2, FormatOptions{}, nil)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("Format(2 blocks) error = %v, want ErrInvalid", err)
	}
}

func TestFormatEncryptedSetsSuperblockFields(t *testing.T) {
	dir := t.TempDir()
	opts := FormatOptions{
		Encrypt: true,
		LogN:    15,
		R:       8,
		P:       1,
	}
	opts.Salt[0] = 0xAB

	if err := Format(dir, 8, opts, testCipher(t)); err != nil {
		t.Fatalf("Format: %v", err)
	}

	var sb Superblock
	if err := ReadSuperblock(&sb, dir); err != nil {
		t.Fatalf("ReadSuperblock: %v", err)
	}
	if !sb.Encrypted() {
		t.Fatal("Encrypted() = false, want true")
	}
	if sb.Salt[0] != 0xAB || sb.ScryptLogN != 15 || sb.ScryptR != 8 || sb.ScryptP != 1 {
		t.Errorf("scrypt params not round-tripped: %+v", sb)
	}
}

func TestFormatEncryptedRejectsNilCipher(t *testing.T) {
	dir := t.TempDir()
	err := Format(dir, 8, FormatOptions{Encrypt: true}, nil)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("Format(encrypt, nil cipher) error = %v, want ErrInvalid", err)
	}
}

// TestFormatEncryptedMountReaddirRoundTrip exercises the full
// mkfs-equivalent-to-mount-to-readdir path for an encrypted filesystem:
// Format seals the root inode with the supplied cipher, Open
// successfully opens it back with the same cipher, and Readdir and
// Create/Mkdir on the root work without an authentication failure.
func TestFormatEncryptedMountReaddirRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cipher := testCipher(t)

	opts := FormatOptions{Encrypt: true, LogN: crypt.DefaultLogN, R: crypt.DefaultR, P: crypt.DefaultP}
	if err := Format(dir, 16, opts, cipher); err != nil {
		t.Fatalf("Format: %v", err)
	}

	fs, err := Open(dir, cipher)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer fs.Close()

	entries, err := fs.Readdir(fs.RootIno())
	if err != nil {
		t.Fatalf("Readdir(root): %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("Readdir(root) = %v, want empty", entries)
	}

	if _, err := fs.Create(fs.RootIno(), "hello.txt"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := fs.Mkdir(fs.RootIno(), "sub"); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	entries, err = fs.Readdir(fs.RootIno())
	if err != nil {
		t.Fatalf("Readdir(root) after writes: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Readdir(root) after writes = %v, want 2 entries", entries)
	}
}

func TestFormatCreatesTargetDirectory(t *testing.T) {
	base := t.TempDir()
	target := base + "/nested/fs"

	if err := Format(target, 4, FormatOptions{}, nil); err != nil {
		t.Fatalf("Format: %v", err)
	}
	if info, err := os.Stat(target); err != nil || !info.IsDir() {
		t.Fatalf("target directory not created: %v", err)
	}
}
