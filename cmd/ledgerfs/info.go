// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ledgerfs/ledgerfs/cmd/ledgerfs/cli"
	"github.com/ledgerfs/ledgerfs/lib/ledger"
	"github.com/spf13/pflag"
)

// vaultInfo is the composite status record emitted by info --json.
type vaultInfo struct {
	Chain      ledger.Info `json:"chain"`
	Store      string      `json:"store"`
	ChunkSize  int         `json:"chunk_size"`
	LedgerPath string      `json:"ledger_path"`
}

func infoCommand() *cli.Command {
	var (
		configPath string
		asJSON     bool
	)
	return &cli.Command{
		Name:    "info",
		Summary: "show vault status",
		Description: `Show a snapshot of the vault: chain length, tail hash, proof-of-work
difficulty, recorded file count, the configured blob store stack, and
the chunk size writes are split at.`,
		Usage: "ledgerfs info [flags]",
		Examples: []cli.Example{
			{
				Description: "Show vault status",
				Command:     "ledgerfs info",
			},
			{
				Description: "Status for scripting",
				Command:     "ledgerfs info --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("info", pflag.ContinueOnError)
			addConfigFlag(flags, &configPath)
			flags.BoolVar(&asJSON, "json", false, "emit status as JSON")
			return flags
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("info takes no positional arguments, got %q", args[0])
			}

			ctx := context.Background()
			v, closeStore, err := openVault(ctx, configPath)
			if err != nil {
				return err
			}
			defer closeStore()

			status := vaultInfo{
				Chain:      v.Ledger().Info(),
				Store:      v.Store().String(),
				ChunkSize:  v.ChunkSize(),
				LedgerPath: v.Ledger().Path(),
			}
			if asJSON {
				return cli.WriteJSON(status)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "chain length\t%d\n", status.Chain.Length)
			fmt.Fprintf(w, "tail hash\t%s\n", status.Chain.TailHash)
			fmt.Fprintf(w, "difficulty\t%d\n", status.Chain.Difficulty)
			fmt.Fprintf(w, "files\t%d\n", status.Chain.FileCount)
			fmt.Fprintf(w, "store\t%s\n", status.Store)
			fmt.Fprintf(w, "chunk size\t%d\n", status.ChunkSize)
			fmt.Fprintf(w, "ledger path\t%s\n", status.LedgerPath)
			return w.Flush()
		},
	}
}
