// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the imgfs command
// line tools.
//
// Configuration is loaded from a single file specified by:
//   - IMGFS_CONFIG environment variable, or
//   - -config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the defaults mkfs and mount apply when a flag is not
// explicitly given on the command line.
type Config struct {
	// Mkfs configures imgfs-mkfs's defaults.
	Mkfs MkfsConfig `yaml:"mkfs"`

	// Mount configures imgfs-mount's defaults.
	Mount MountConfig `yaml:"mount"`

	// Check configures imgfs-fsck's defaults.
	Check CheckConfig `yaml:"check"`
}

// MkfsConfig is the mkfs section of the config file.
type MkfsConfig struct {
	// TotalBlocks is the default block count for a new filesystem.
	TotalBlocks uint32 `yaml:"total_blocks"`

	// Encrypt defaults imgfs-mkfs's -encrypt flag.
	Encrypt bool `yaml:"encrypt"`

	// ScryptLogN, ScryptR, and ScryptP are the default key-derivation
	// cost parameters for a newly formatted encrypted filesystem.
	ScryptLogN uint32 `yaml:"scrypt_log_n"`
	ScryptR    uint32 `yaml:"scrypt_r"`
	ScryptP    uint32 `yaml:"scrypt_p"`
}

// MountConfig is the mount section of the config file.
type MountConfig struct {
	// ReadOnly defaults imgfs-mount's -ro flag.
	ReadOnly bool `yaml:"read_only"`

	// BridgeConfig is the default path to the JSONC bridge options
	// file (see lib/config/bridge.go), empty meaning "none".
	BridgeConfig string `yaml:"bridge_config"`
}

// CheckConfig is the check section of the config file.
type CheckConfig struct {
	// Fix defaults imgfs-fsck's -f flag.
	Fix bool `yaml:"fix"`

	// ReportPath is the default destination for a serialized report,
	// empty meaning "don't write one".
	ReportPath string `yaml:"report_path"`

	// CompressReport is parsed but not read by imgfs-fsck, which has no
	// -z flag; it compresses a report only when the path ends in .zst.
	CompressReport bool `yaml:"compress_report"`
}

// Default returns the configuration used when no file is loaded. These
// defaults exist to give every field a sensible zero value, not as a
// silent fallback — a command that needs configuration still requires
// an explicit -config flag or IMGFS_CONFIG variable.
func Default() *Config {
	return &Config{
		Mkfs: MkfsConfig{
			TotalBlocks: 1024,
			ScryptLogN:  15,
			ScryptR:     8,
			ScryptP:     1,
		},
		Mount: MountConfig{},
		Check: CheckConfig{},
	}
}

// Load reads configuration from the IMGFS_CONFIG environment variable.
// Returns an error if the variable is unset.
func Load() (*Config, error) {
	path := os.Getenv("IMGFS_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("config: IMGFS_CONFIG is not set; pass -config or set the environment variable")
	}
	return LoadFile(path)
}

// LoadFile reads and parses a configuration file at path, merging it
// onto Default().
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
