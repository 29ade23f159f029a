// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

// ledgerfs-mount exposes a vault as a FUSE filesystem. It opens the
// configured blob store and ledger, probes the store backend, mounts
// the filesystem, and serves until SIGINT or SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ledgerfs/ledgerfs/lib/config"
	"github.com/ledgerfs/ledgerfs/lib/vault"
	vaultfuse "github.com/ledgerfs/ledgerfs/lib/vault/fuse"
	"github.com/ledgerfs/ledgerfs/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")

	var (
		configPath string
		mountpoint string
		allowOther bool
	)
	flag.StringVar(&configPath, "config", "", "config file path (overrides LEDGERFS_CONFIG)")
	flag.StringVar(&mountpoint, "mountpoint", "", "mount directory (overrides fuse.mountpoint from the config)")
	flag.BoolVar(&allowOther, "allow-other", false, "let other users access the mount")
	flag.Parse()

	if showVersion {
		fmt.Printf("ledgerfs-mount %s\n", version.Info())
		return nil
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := resolveConfig(configPath)
	if err != nil {
		return err
	}
	if mountpoint != "" {
		cfg.Fuse.Mountpoint = mountpoint
	}
	if allowOther {
		cfg.Fuse.AllowOther = true
	}
	if cfg.Fuse.Mountpoint == "" {
		return fmt.Errorf("no mountpoint: set fuse.mountpoint in the config or pass --mountpoint")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	v, closeStore, err := vault.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Error("failed to close blob store", "error", err)
		}
	}()

	// A dead backend should fail startup, not surface later as EIO
	// on every open file.
	if err := vault.Probe(ctx, v.Store()); err != nil {
		return fmt.Errorf("blob store unreachable: %w", err)
	}

	// LIFO defer order unmounts the filesystem before the blob store
	// closes, so no open file is served from a closed store.
	server, err := vaultfuse.Mount(vaultfuse.Options{
		Mountpoint: cfg.Fuse.Mountpoint,
		Vault:      v,
		AllowOther: cfg.Fuse.AllowOther,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("mounting vault filesystem: %w", err)
	}
	defer func() {
		if err := server.Unmount(); err != nil {
			logger.Error("failed to unmount vault filesystem", "error", err)
		} else {
			logger.Info("vault filesystem unmounted", "mountpoint", cfg.Fuse.Mountpoint)
		}
	}()

	logger.Info("ledgerfs-mount running",
		"mountpoint", cfg.Fuse.Mountpoint,
		"store", v.Store().String(),
		"chain_length", v.Ledger().Len(),
		"files", len(v.Files()),
	)

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// resolveConfig resolves configuration the same way the CLI does: an
// explicit --config path wins, then LEDGERFS_CONFIG, then defaults.
func resolveConfig(path string) (*config.Config, error) {
	switch {
	case path != "":
		return config.LoadFile(path)
	case os.Getenv("LEDGERFS_CONFIG") != "":
		return config.Load()
	default:
		return config.Default(), nil
	}
}
