// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// BridgeOptions configures the FUSE mount bridge (see bridge/fuse).
// Unlike the main YAML config, this file is JSONC (JSON with // and /*
// */ comments allowed) to match the go-fuse ecosystem's convention of
// commentable mount-option files.
type BridgeOptions struct {
	// AllowOther sets FUSE's allow_other mount option.
	AllowOther bool `json:"allow_other"`

	// Debug enables go-fuse's own request-tracing log output.
	Debug bool `json:"debug"`

	// MaxReadAheadKB is a read-ahead window in KiB. It is parsed but not
	// passed to the mount: imgfs-mount and bridge/fuse do not read it, so
	// go-fuse's default read-ahead always applies.
	MaxReadAheadKB int `json:"max_read_ahead_kb"`

	// FsName is reported to the kernel as the mounted filesystem's
	// device name, visible in `mount` and `df` output.
	FsName string `json:"fs_name"`
}

// DefaultBridgeOptions returns the options used when no bridge config
// file is given.
func DefaultBridgeOptions() *BridgeOptions {
	return &BridgeOptions{
		FsName: "imgfs",
	}
}

// LoadBridgeOptions reads and strips comments from a JSONC file at
// path, merging it onto DefaultBridgeOptions().
func LoadBridgeOptions(path string) (*BridgeOptions, error) {
	opts := DefaultBridgeOptions()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading bridge options %s: %w", path, err)
	}

	stripped := jsonc.ToJSON(raw)
	if err := json.Unmarshal(stripped, opts); err != nil {
		return nil, fmt.Errorf("config: parsing bridge options %s: %w", path, err)
	}
	return opts, nil
}
