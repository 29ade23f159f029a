// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ledgerfs/ledgerfs/cmd/ledgerfs/cli"
	"github.com/spf13/pflag"
)

func blocksCommand() *cli.Command {
	var (
		configPath string
		fileName   string
		asJSON     bool
	)
	return &cli.Command{
		Name:    "blocks",
		Summary: "dump the ledger's blocks",
		Description: `Print every block on the chain in order, one line per block. With
--file only the named file's blocks are printed. The plain listing
abbreviates block hashes; --json emits complete blocks, including
digests, addresses, and nonces.`,
		Usage: "ledgerfs blocks [flags]",
		Examples: []cli.Example{
			{
				Description: "Dump the whole chain",
				Command:     "ledgerfs blocks",
			},
			{
				Description: "Show the blocks recording one file",
				Command:     "ledgerfs blocks --file report.pdf",
			},
			{
				Description: "Full block records for scripting",
				Command:     "ledgerfs blocks --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("blocks", pflag.ContinueOnError)
			addConfigFlag(flags, &configPath)
			flags.StringVar(&fileName, "file", "", "show only this file's blocks")
			flags.BoolVar(&asJSON, "json", false, "emit complete blocks as JSON")
			return flags
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("blocks takes no positional arguments, got %q", args[0])
			}

			ctx := context.Background()
			v, closeStore, err := openVault(ctx, configPath)
			if err != nil {
				return err
			}
			defer closeStore()

			chain := v.Ledger()
			blocks := chain.Blocks()
			if fileName != "" {
				blocks = chain.BlocksForFile(fileName)
			}
			if asJSON {
				return cli.WriteJSON(blocks)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "INDEX\tTIME\tFILE\tCHUNK\tSIZE\tHASH")
			for _, block := range blocks {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%.12s\n",
					block.Index,
					block.Time().UTC().Format(time.RFC3339),
					block.FileName,
					block.ChunkIndex,
					block.ChunkSize,
					block.Hash)
			}
			return w.Flush()
		},
	}
}
