// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/ledgerfs/ledgerfs/cmd/ledgerfs/cli"
	"github.com/ledgerfs/ledgerfs/lib/codec"
	"github.com/spf13/pflag"
)

func inspectCommand() *cli.Command {
	var configPath string
	return &cli.Command{
		Name:    "inspect",
		Summary: "dump the raw ledger document in CBOR diagnostic notation",
		Description: `Read the persisted ledger document and print it as RFC 8949 Extended
Diagnostic Notation (EDN) without decoding it into typed blocks.

Unlike blocks --json, inspect never opens the vault: it shows the exact
on-disk representation even when the document is too damaged for the
chain to load, which is exactly when you need to see what the bytes
actually say.`,
		Usage: "ledgerfs inspect [path] [flags]",
		Examples: []cli.Example{
			{
				Description: "Inspect the configured ledger document",
				Command:     "ledgerfs inspect",
			},
			{
				Description: "Inspect a document copied from another machine",
				Command:     "ledgerfs inspect /tmp/ledger.cbor",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
			addConfigFlag(flags, &configPath)
			return flags
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("inspect takes at most one document path, got %d arguments", len(args))
			}

			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := loadConfig(configPath)
				if err != nil {
					return err
				}
				path = cfg.Ledger.Path
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading ledger document: %w", err)
			}
			if len(data) == 0 {
				return fmt.Errorf("%s is empty: no blocks have been recorded", path)
			}

			notation, err := codec.Diagnose(data)
			if err != nil {
				return fmt.Errorf("diagnosing %s: %w", path, err)
			}
			fmt.Println(notation)
			return nil
		},
	}
}
