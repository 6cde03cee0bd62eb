// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command imgfs-mount mounts an imgfs filesystem directory through
// FUSE at a given mount point.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"imgfs/bridge/fuse"
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

	defaults := config.Default().Mount
	if path := os.Getenv("IMGFS_CONFIG"); path != "" {
		if cfg, err := config.LoadFile(path); err == nil {
			defaults = cfg.Mount
		}
	}

	flags := flag.NewFlagSet("imgfs-mount", flag.ContinueOnError)
	readOnly := flags.Bool("ro", defaults.ReadOnly, "mount read-only")
	bridgeConfigPath := flags.String("bridge-config", defaults.BridgeConfig, "path to a JSONC bridge options file")
	encrypted := flags.Bool("encrypt", false, "the filesystem's metadata is encrypted (prompts for a passphrase on stdin)")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: imgfs-mount [-bridge-config path] [-ro] [-encrypt] <fs_dir> <mount_point>\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 1
	}

	if flags.NArg() != 2 {
		flags.Usage()
		return 1
	}

	fsDir, err := filepath.Abs(flags.Arg(0))
	if err != nil {
		logger.Error("resolving filesystem directory", "error", err)
		return 1
	}
	mountPoint := flags.Arg(1)

	var cipher imgfs.Cipher
	if *encrypted {
		var sb imgfs.Superblock
		if err := imgfs.ReadSuperblock(&sb, fsDir); err != nil {
			logger.Error("reading superblock", "error", err)
			return 1
		}

		passphrase, err := secret.ReadFromPath("-")
		if err != nil {
			logger.Error("reading passphrase", "error", err)
			return 1
		}
		defer passphrase.Close()

		key, err := crypt.DeriveKey(passphrase, sb.Salt, sb.ScryptLogN, sb.ScryptR, sb.ScryptP)
		if err != nil {
			logger.Error("deriving key", "error", err)
			return 1
		}
		ctx, err := crypt.NewContext(key)
		if err != nil {
			logger.Error("constructing cipher", "error", err)
			return 1
		}
		defer ctx.Close()
		cipher = ctx
	}

	engine, err := imgfs.Open(fsDir, cipher)
	if err != nil {
		logger.Error("opening filesystem", "dir", fsDir, "error", err)
		return 1
	}
	defer engine.Close()

	bridgeOpts := config.DefaultBridgeOptions()
	if *bridgeConfigPath != "" {
		loaded, err := config.LoadBridgeOptions(*bridgeConfigPath)
		if err != nil {
			logger.Error("loading bridge options", "error", err)
			return 1
		}
		bridgeOpts = loaded
	}

	server, err := fuse.Mount(fuse.Options{
		Mountpoint: mountPoint,
		Engine:     engine,
		ReadOnly:   *readOnly,
		AllowOther: bridgeOpts.AllowOther,
		Debug:      bridgeOpts.Debug,
		FsName:     bridgeOpts.FsName,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("mounting", "error", err)
		return 1
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		logger.Info("unmounting", "mount_point", mountPoint)
		if err := server.Unmount(); err != nil {
			logger.Error("unmount failed", "error", err)
		}
	}()

	server.Wait()
	return 0
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("IMGFS_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
