// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ledgerfs/ledgerfs/cmd/ledgerfs/cli"
	"github.com/spf13/pflag"
)

func putCommand() *cli.Command {
	var (
		configPath string
		name       string
	)
	return &cli.Command{
		Name:    "put",
		Summary: "chunk a local file and record it in the vault",
		Description: `Read a local file, split it into fixed-size chunks, store each chunk
in the blob store, and mine one ledger block per chunk. The file is
recorded under its base name unless --name says otherwise.

Recorded files are immutable: putting a name that already exists
fails, and chunks recorded before the failure are ignored by reads.`,
		Usage: "ledgerfs put <path> [flags]",
		Examples: []cli.Example{
			{
				Description: "Record a file under its own name",
				Command:     "ledgerfs put report.pdf",
			},
			{
				Description: "Record a file under a different name",
				Command:     "ledgerfs put /tmp/build-7f3a.log --name build.log",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("put", pflag.ContinueOnError)
			addConfigFlag(flags, &configPath)
			flags.StringVar(&name, "name", "", "record the file under this name instead of its base name")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("put takes exactly one path argument, got %d", len(args))
			}
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			if len(data) == 0 {
				return fmt.Errorf("%s is empty; empty files are not recorded", path)
			}
			fileName := name
			if fileName == "" {
				fileName = filepath.Base(path)
			}

			ctx := context.Background()
			v, closeStore, err := openVault(ctx, configPath)
			if err != nil {
				return err
			}
			defer closeStore()

			blocks, err := v.WriteFile(ctx, fileName, data)
			if err != nil {
				return fmt.Errorf("recording %s: %w", fileName, err)
			}
			if err := closeStore(); err != nil {
				return fmt.Errorf("closing blob store: %w", err)
			}
			fmt.Printf("recorded %s: %d bytes in %d chunks\n", fileName, len(data), len(blocks))
			return nil
		},
	}
}
