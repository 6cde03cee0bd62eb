// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command imgfs-mkfs formats a directory of raster block images into a
// fresh imgfs filesystem.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"imgfs/lib/config"
	"imgfs/lib/imgfs"
	"imgfs/lib/imgfs/crypt"
	"imgfs/lib/secret"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := newLogger()

	defaults := config.Default().Mkfs
	if path := os.Getenv("IMGFS_CONFIG"); path != "" {
		cfg, err := config.LoadFile(path)
		if err != nil {
			logger.Error("loading configuration", "error", err)
			return 1
		}
		defaults = cfg.Mkfs
	}

	flags := flag.NewFlagSet("imgfs-mkfs", flag.ContinueOnError)
	blocks := flags.Uint("b", uint(defaults.TotalBlocks), "total number of blocks")
	encrypt := flags.Bool("encrypt", defaults.Encrypt, "encrypt inode and directory metadata (prompts for a passphrase on stdin)")
	configPath := flags.String("config", "", "path to a YAML configuration file (overrides IMGFS_CONFIG)")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: imgfs-mkfs [-b blocks] [-encrypt] [-config path] <dir>\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 1
	}

	if *configPath != "" {
		cfg, err := config.LoadFile(*configPath)
		if err != nil {
			logger.Error("loading configuration", "error", err)
			return 1
		}
		defaults = cfg.Mkfs
		if !flagPassed(flags, "b") {
			*blocks = uint(defaults.TotalBlocks)
		}
		if !flagPassed(flags, "encrypt") {
			*encrypt = defaults.Encrypt
		}
	}

	if flags.NArg() != 1 {
		flags.Usage()
		return 1
	}
	dir := flags.Arg(0)

	opts := imgfs.FormatOptions{}
	var cipher imgfs.Cipher
	if *encrypt {
		passphrase, err := secret.ReadFromPath("-")
		if err != nil {
			logger.Error("reading passphrase", "error", err)
			return 1
		}
		defer passphrase.Close()

		salt, err := crypt.RandomSalt()
		if err != nil {
			logger.Error("generating salt", "error", err)
			return 1
		}

		logN := defaults.ScryptLogN
		r := defaults.ScryptR
		p := defaults.ScryptP
		if logN == 0 {
			logN, r, p = crypt.DefaultLogN, crypt.DefaultR, crypt.DefaultP
		}

		key, err := crypt.DeriveKey(passphrase, salt, logN, r, p)
		if err != nil {
			logger.Error("deriving key", "error", err)
			return 1
		}
		defer key.Close()

		ctx, err := crypt.NewContext(key)
		if err != nil {
			logger.Error("constructing cipher", "error", err)
			return 1
		}
		defer ctx.Close()
		cipher = ctx

		opts.Encrypt = true
		opts.Salt = salt
		opts.LogN, opts.R, opts.P = logN, r, p
	}

	if err := imgfs.Format(dir, uint32(*blocks), opts, cipher); err != nil {
		logger.Error("format failed", "dir", dir, "error", err)
		return 1
	}

	logger.Info("filesystem formatted", "dir", dir, "blocks", *blocks, "encrypted", *encrypt)
	return 0
}

func flagPassed(flags *flag.FlagSet, name string) bool {
	found := false
	flags.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("IMGFS_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
