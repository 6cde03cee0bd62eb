// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadBridgeOptionsStripsComments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.jsonc")
	contents := `{
  // allow other users to see the mount
  "allow_other": true,
  /* debug tracing */
  "debug": false,
  "fs_name": "myimgfs"
}`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	opts, err := LoadBridgeOptions(path)
	if err != nil {
		t.Fatalf("LoadBridgeOptions: %v", err)
	}
	if !opts.AllowOther {
		t.Error("AllowOther = false, want true")
	}
	if opts.FsName != "myimgfs" {
		t.Errorf("FsName = %q, want %q", opts.FsName, "myimgfs")
	}
}

func TestDefaultBridgeOptionsFsName(t *testing.T) {
	opts := DefaultBridgeOptions()
	if opts.FsName != "imgfs" {
		t.Errorf("FsName = %q, want %q", opts.FsName, "imgfs")
	}
}
