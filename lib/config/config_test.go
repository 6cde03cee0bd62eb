// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultHasSensibleZeroValues(t *testing.T) {
	cfg := Default()
	if cfg.Mkfs.TotalBlocks == 0 {
		t.Error("Default().Mkfs.TotalBlocks is zero")
	}
	if cfg.Mkfs.ScryptLogN == 0 {
		t.Error("Default().Mkfs.ScryptLogN is zero")
	}
}

func TestLoadFileMergesOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "imgfs.yaml")
	contents := "mkfs:\n  total_blocks: 256\n  encrypt: true\nmount:\n  read_only: true\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Mkfs.TotalBlocks != 256 {
		t.Errorf("TotalBlocks = %d, want 256", cfg.Mkfs.TotalBlocks)
	}
	if !cfg.Mkfs.Encrypt {
		t.Error("Encrypt = false, want true")
	}
	if !cfg.Mount.ReadOnly {
		t.Error("Mount.ReadOnly = false, want true")
	}
	// A field absent from the file keeps its Default() value.
	if cfg.Mkfs.ScryptLogN != 15 {
		t.Errorf("ScryptLogN = %d, want 15 (unset in file, default retained)", cfg.Mkfs.ScryptLogN)
	}
}

func TestLoadRequiresEnvironmentVariable(t *testing.T) {
	os.Unsetenv("IMGFS_CONFIG")
	if _, err := Load(); err == nil {
		t.Error("Load() with IMGFS_CONFIG unset should fail")
	}
}

func TestLoadFileRejectsMissingFile(t *testing.T) {
	if _, err := LoadFile("/nonexistent/imgfs.yaml"); err == nil {
		t.Error("LoadFile on a missing path should fail")
	}
}
