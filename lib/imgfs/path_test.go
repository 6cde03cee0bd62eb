// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imgfs

import (
	"errors"
	"testing"
)

func buildTestTree(t *testing.T) (dir string, bm *Bitmap, root *Inode) {
	t.Helper()
	dir = t.TempDir()
	bm = NewBitmap(64)

	rootIno, err := CreateInode(bm, true, dir, nil)
	if err != nil {
		t.Fatalf("CreateInode(root): %v", err)
	}
	root, err = ReadInode(rootIno, dir, nil)
	if err != nil {
		t.Fatalf("ReadInode(root): %v", err)
	}

	subIno, err := CreateInode(bm, true, dir, nil)
	if err != nil {
		t.Fatalf("CreateInode(sub): %v", err)
	}
	if err := DirAdd(bm, root, dir, "sub", subIno, nil); err != nil {
		t.Fatalf("DirAdd(sub): %v", err)
	}
	sub, err := ReadInode(subIno, dir, nil)
	if err != nil {
		t.Fatalf("ReadInode(sub): %v", err)
	}

	fileIno, err := CreateInode(bm, false, dir, nil)
	if err != nil {
		t.Fatalf("CreateInode(file): %v", err)
	}
	if err := DirAdd(bm, sub, dir, "leaf.txt", fileIno, nil); err != nil {
		t.Fatalf("DirAdd(leaf.txt): %v", err)
	}

	return dir, bm, root
}

func TestResolveNestedPath(t *testing.T) {
	dir, _, root := buildTestTree(t)

	in, err := Resolve(root, dir, "/sub/leaf.txt", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if in.IsDir() {
		t.Error("resolved leaf.txt as a directory")
	}
}

func TestResolveRootPath(t *testing.T) {
	dir, _, root := buildTestTree(t)

	in, err := Resolve(root, dir, "/", nil)
	if err != nil {
		t.Fatalf("Resolve(/): %v", err)
	}
	if in.Ino != root.Ino {
		t.Errorf("Resolve(/) = inode %d, want %d", in.Ino, root.Ino)
	}
}

func TestResolveIgnoresRepeatedAndTrailingSlashes(t *testing.T) {
	dir, _, root := buildTestTree(t)

	in, err := Resolve(root, dir, "//sub//leaf.txt/", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want, err := Resolve(root, dir, "/sub/leaf.txt", nil)
	if err != nil {
		t.Fatalf("Resolve(canonical): %v", err)
	}
	if in.Ino != want.Ino {
		t.Errorf("Resolve with slash noise = inode %d, want %d", in.Ino, want.Ino)
	}
}

func TestResolveMissingComponentIsNotFound(t *testing.T) {
	dir, _, root := buildTestTree(t)

	_, err := Resolve(root, dir, "/sub/missing", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Resolve error = %v, want ErrNotFound", err)
	}
}

func TestResolveThroughFileIsNotDir(t *testing.T) {
	dir, _, root := buildTestTree(t)

	_, err := Resolve(root, dir, "/sub/leaf.txt/extra", nil)
	if !errors.Is(err, ErrNotDir) {
		t.Fatalf("Resolve error = %v, want ErrNotDir", err)
	}
}

func TestResolveParentSplitsBasename(t *testing.T) {
	dir, _, root := buildTestTree(t)

	parent, base, err := ResolveParent(root, dir, "/sub/leaf.txt", nil)
	if err != nil {
		t.Fatalf("ResolveParent: %v", err)
	}
	if base != "leaf.txt" {
		t.Errorf("base = %q, want %q", base, "leaf.txt")
	}
	wantParentIno, err := DirLookup(root, dir, "sub", nil)
	if err != nil {
		t.Fatalf("DirLookup(sub): %v", err)
	}
	if parent.Ino != wantParentIno {
		t.Errorf("parent.Ino = %d, want %d", parent.Ino, wantParentIno)
	}
}

func TestResolveParentAtTopLevel(t *testing.T) {
	dir, _, root := buildTestTree(t)

	parent, base, err := ResolveParent(root, dir, "/newfile", nil)
	if err != nil {
		t.Fatalf("ResolveParent: %v", err)
	}
	if base != "newfile" {
		t.Errorf("base = %q, want %q", base, "newfile")
	}
	if parent.Ino != root.Ino {
		t.Errorf("parent.Ino = %d, want root %d", parent.Ino, root.Ino)
	}
}
