// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ledgerfs/ledgerfs/cmd/ledgerfs/cli"
	"github.com/spf13/pflag"
)

func catCommand() *cli.Command {
	var (
		configPath string
		outPath    string
	)
	return &cli.Command{
		Name:    "cat",
		Summary: "reconstruct a recorded file and write it out",
		Description: `Fetch every chunk of a recorded file from the blob store, verify each
against the digest mined into its ledger block, and write the
reassembled content to stdout (or to --output).

Reconstruction is all-or-nothing: a missing chunk, a digest mismatch,
or a gap in the recorded chunk sequence fails the whole read. Nothing
is written on failure.`,
		Usage: "ledgerfs cat <name> [flags]",
		Examples: []cli.Example{
			{
				Description: "Stream a recorded file to stdout",
				Command:     "ledgerfs cat report.pdf > /tmp/report.pdf",
			},
			{
				Description: "Write a recorded file to a path",
				Command:     "ledgerfs cat build.log --output /tmp/build.log",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("cat", pflag.ContinueOnError)
			addConfigFlag(flags, &configPath)
			flags.StringVarP(&outPath, "output", "o", "", "write to this path instead of stdout")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("cat takes exactly one file name, got %d arguments", len(args))
			}
			name := args[0]

			ctx := context.Background()
			v, closeStore, err := openVault(ctx, configPath)
			if err != nil {
				return err
			}
			defer closeStore()

			data, err := v.ReadFile(ctx, name)
			if err != nil {
				return fmt.Errorf("reading %s: %w", name, err)
			}
			if outPath == "" {
				if _, err := os.Stdout.Write(data); err != nil {
					return fmt.Errorf("writing to stdout: %w", err)
				}
				return nil
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}
			return nil
		},
	}
}
