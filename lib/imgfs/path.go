// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package imgfs

import "strings"

// Resolve walks path (an absolute, slash-separated path) from the root
// inode, returning the inode it names. Empty tokens (from a leading,
// trailing, or doubled slash) are ignored. Resolve fails NotDir if an
// intermediate component is not a directory, NotFound if a component is
// absent.
func Resolve(root *Inode, dir, path string, cipher Cipher) (*Inode, error) {
	current := root
	for _, token := range strings.Split(path, "/") {
		if token == "" {
			continue
		}
		if !current.IsDir() {
			return nil, wrapf(NotDir, "Resolve", nil)
		}
		ino, err := DirLookup(current, dir, token, cipher)
		if err != nil {
			return nil, err
		}
		next, err := ReadInode(ino, dir, cipher)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// ResolveParent resolves the parent directory of path and returns it
// alongside the final path component (the basename), for callers that
// need to mutate a directory entry rather than read through it. The FS
// methods take a parent inode number and do not call it.
func ResolveParent(root *Inode, dir, path string, cipher Cipher) (*Inode, string, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, "", wrapf(Invalid, "ResolveParent", nil)
	}
	idx := strings.LastIndex(trimmed, "/")
	if idx == -1 {
		parent, err := Resolve(root, dir, "/", cipher)
		if err != nil {
			return nil, "", err
		}
		return parent, trimmed, nil
	}
	parent, err := Resolve(root, dir, trimmed[:idx], cipher)
	if err != nil {
		return nil, "", err
	}
	return parent, trimmed[idx+1:], nil
}
