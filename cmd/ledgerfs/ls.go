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

func lsCommand() *cli.Command {
	var (
		configPath string
		long       bool
		asJSON     bool
	)
	return &cli.Command{
		Name:    "ls",
		Summary: "list recorded files",
		Description: `List every file recorded on the ledger, sorted by name. Sizes and
chunk counts are derived from the recorded blocks; the blob store is
not consulted.`,
		Usage: "ledgerfs ls [flags]",
		Examples: []cli.Example{
			{
				Description: "List file names",
				Command:     "ledgerfs ls",
			},
			{
				Description: "Include sizes, chunk counts, and timestamps",
				Command:     "ledgerfs ls --long",
			},
			{
				Description: "Machine-readable listing",
				Command:     "ledgerfs ls --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("ls", pflag.ContinueOnError)
			addConfigFlag(flags, &configPath)
			flags.BoolVarP(&long, "long", "l", false, "show size, chunk count, and modification time")
			flags.BoolVar(&asJSON, "json", false, "emit the listing as JSON")
			return flags
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("ls takes no positional arguments, got %q", args[0])
			}

			ctx := context.Background()
			v, closeStore, err := openVault(ctx, configPath)
			if err != nil {
				return err
			}
			defer closeStore()

			files := v.List()
			if asJSON {
				return cli.WriteJSON(files)
			}
			if !long {
				for _, info := range files {
					fmt.Println(info.Name)
				}
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSIZE\tCHUNKS\tMODIFIED")
			for _, info := range files {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n",
					info.Name, info.Size, info.Chunks,
					info.Modified.UTC().Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}
