// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ledgerfs/ledgerfs/cmd/ledgerfs/cli"
	"github.com/ledgerfs/ledgerfs/lib/config"
	"github.com/ledgerfs/ledgerfs/lib/vault"
	"github.com/ledgerfs/ledgerfs/lib/version"
	"github.com/spf13/pflag"
)

// rootCommand builds the complete ledgerfs CLI command tree.
func rootCommand() *cli.Command {
	return &cli.Command{
		Name: "ledgerfs",
		Description: `LedgerFS: tamper-evident content-addressed file storage.

Files are split into fixed-size chunks stored in a content-addressed
blob store. Every chunk write is mined as a proof-of-work block on a
hash-linked ledger, so later tampering with chunk bytes or recorded
history is detectable on read and by the verifier.`,
		Subcommands: []*cli.Command{
			putCommand(),
			catCommand(),
			lsCommand(),
			verifyCommand(),
			blocksCommand(),
			infoCommand(),
			inspectCommand(),
			{
				Name:    "version",
				Summary: "print version information",
				Run: func(args []string) error {
					fmt.Printf("ledgerfs %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Record a file in the vault",
				Command:     "ledgerfs put report.pdf",
			},
			{
				Description: "Stream a recorded file to stdout",
				Command:     "ledgerfs cat report.pdf",
			},
			{
				Description: "List recorded files with sizes",
				Command:     "ledgerfs ls --long",
			},
			{
				Description: "Re-check every block and every stored chunk",
				Command:     "ledgerfs verify --deep",
			},
		},
	}
}

// addConfigFlag registers the --config flag every vault-touching
// command carries.
func addConfigFlag(flags *pflag.FlagSet, configPath *string) {
	flags.StringVar(configPath, "config", "", "config file path (overrides LEDGERFS_CONFIG)")
}

// loadConfig resolves configuration for one CLI invocation: an
// explicit --config path wins, then the LEDGERFS_CONFIG environment
// variable, then built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	switch {
	case path != "":
		return config.LoadFile(path)
	case os.Getenv("LEDGERFS_CONFIG") != "":
		return config.Load()
	default:
		return config.Default(), nil
	}
}

// openVault loads configuration and opens the vault it describes. The
// returned cleanup releases the blob store; callers must run it before
// exit (badger buffers writes until close).
func openVault(ctx context.Context, configPath string) (*vault.Vault, func() error, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	return vault.Open(ctx, cfg, cli.NewCommandLogger())
}
