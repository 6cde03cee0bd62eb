// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command imgfs-fsck checks (and optionally repairs) the consistency
// of an imgfs filesystem.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"imgfs/lib/config"
	"imgfs/lib/imgfs"
	"imgfs/lib/imgfs/crypt"
	"imgfs/lib/secret"
)

// Exit codes, per the filesystem's compatibility surface.
const (
	exitClean    = 0
	exitRepaired = 1
	exitDirty    = 4
	exitOpError  = 8
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := newLogger()

	defaults := config.Default().Check
	if path := os.Getenv("IMGFS_CONFIG"); path != "" {
		if cfg, err := config.LoadFile(path); err == nil {
			defaults = cfg.Check
		}
	}

	flags := flag.NewFlagSet("imgfs-fsck", flag.ContinueOnError)
	fix := flags.Bool("f", defaults.Fix, "repair what can be repaired")
	yes := flags.Bool("y", false, "assume yes: repair without a confirmation prompt")
	verbose := flags.Bool("v", false, "print every issue found, not just a summary")
	reportPath := flags.String("report", defaults.ReportPath, "write a CBOR report to this path (zstd-compressed if it ends in .zst)")
	encrypted := flags.Bool("encrypt", false, "the filesystem's metadata is encrypted (prompts for a passphrase on stdin)")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: imgfs-fsck [-f] [-y] [-v] [-report path.cbor[.zst]] [-encrypt] <dir>\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return exitOpError
	}

	if flags.NArg() != 1 {
		flags.Usage()
		return exitOpError
	}
	dir := flags.Arg(0)

	doFix := *fix || *yes
	if *fix && !*yes {
		logger.Warn("repairing without per-issue confirmation: the checker applies all repairs in one pass")
	}

	var cipher imgfs.Cipher
	if *encrypted {
		var sb imgfs.Superblock
		if err := imgfs.ReadSuperblock(&sb, dir); err != nil {
			logger.Error("reading superblock", "error", err)
			return exitOpError
		}

		passphrase, err := secret.ReadFromPath("-")
		if err != nil {
			logger.Error("reading passphrase", "error", err)
			return exitOpError
		}
		defer passphrase.Close()

		key, err := crypt.DeriveKey(passphrase, sb.Salt, sb.ScryptLogN, sb.ScryptR, sb.ScryptP)
		if err != nil {
			logger.Error("deriving key", "error", err)
			return exitOpError
		}
		ctx, err := crypt.NewContext(key)
		if err != nil {
			logger.Error("constructing cipher", "error", err)
			return exitOpError
		}
		defer ctx.Close()
		cipher = ctx
	}

	report, err := imgfs.Check(dir, doFix, cipher)
	if err != nil {
		logger.Error("check failed", "dir", dir, "error", err)
		return exitOpError
	}

	if *verbose || report.Classification != imgfs.Clean {
		for _, issue := range report.Issues {
			level := slog.LevelWarn
			if !issue.Warning && !issue.Fixed {
				level = slog.LevelError
			}
			logger.Log(context.Background(), level, issue.Code, "detail", issue.Detail, "fixed", issue.Fixed, "warning", issue.Warning)
		}
	}

	if *reportPath != "" {
		compress := strings.HasSuffix(*reportPath, ".zst")
		data, err := imgfs.EncodeReport(report, compress)
		if err != nil {
			logger.Error("encoding report", "error", err)
			return exitOpError
		}
		if err := os.WriteFile(*reportPath, data, 0o644); err != nil {
			logger.Error("writing report", "path", *reportPath, "error", err)
			return exitOpError
		}
	}

	logger.Info("check complete", "dir", dir, "classification", report.Classification.String(), "issues", len(report.Issues))

	switch report.Classification {
	case imgfs.Clean:
		return exitClean
	case imgfs.Repaired:
		return exitRepaired
	case imgfs.Dirty:
		return exitDirty
	default:
		return exitOpError
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("IMGFS_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
