// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command imgfs-browse is a read-only terminal UI for inspecting an
// imgfs filesystem's directory tree and inode metadata without
// mounting it through FUSE.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"imgfs/lib/imgfs"
	"imgfs/lib/imgfs/crypt"
	"imgfs/lib/secret"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("imgfs-browse", flag.ContinueOnError)
	maxDepth := flags.Int("depth", 100, "maximum navigable directory depth (cycle guard)")
	encrypted := flags.Bool("encrypt", false, "the filesystem's metadata is encrypted (prompts for a passphrase on stdin)")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: imgfs-browse [-depth n] [-encrypt] <dir>\n")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return 1
	}
	dir := flags.Arg(0)

	var cipher imgfs.Cipher
	if *encrypted {
		var sb imgfs.Superblock
		if err := imgfs.ReadSuperblock(&sb, dir); err != nil {
			fmt.Fprintf(os.Stderr, "imgfs-browse: reading superblock: %v\n", err)
			return 1
		}
		passphrase, err := secret.ReadFromPath("-")
		if err != nil {
			fmt.Fprintf(os.Stderr, "imgfs-browse: reading passphrase: %v\n", err)
			return 1
		}
		defer passphrase.Close()
		key, err := crypt.DeriveKey(passphrase, sb.Salt, sb.ScryptLogN, sb.ScryptR, sb.ScryptP)
		if err != nil {
			fmt.Fprintf(os.Stderr, "imgfs-browse: deriving key: %v\n", err)
			return 1
		}
		ctx, err := crypt.NewContext(key)
		if err != nil {
			fmt.Fprintf(os.Stderr, "imgfs-browse: constructing cipher: %v\n", err)
			return 1
		}
		defer ctx.Close()
		cipher = ctx
	}

	engine, err := imgfs.Open(dir, cipher)
	if err != nil {
		fmt.Fprintf(os.Stderr, "imgfs-browse: opening filesystem: %v\n", err)
		return 1
	}
	defer engine.Close()

	m, err := newModel(engine, *maxDepth)
	if err != nil {
		fmt.Fprintf(os.Stderr, "imgfs-browse: %v\n", err)
		return 1
	}

	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "imgfs-browse: %v\n", err)
		return 1
	}
	return 0
}
