// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for LedgerFS
// commands and daemons.
//
// Configuration is loaded from a single file specified by either the
// LEDGERFS_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There are no fallbacks, no ~/.config
// discovery, and no automatic file search. This ensures
// deterministic, auditable configuration with no hidden overrides.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${LEDGERFS_ROOT}, and ${VAR:-default} patterns are
// expanded. No other environment variables override config values.
//
// [Default] supplies a complete single-machine configuration (badger
// blobs and the ledger under ~/.local/share/ledgerfs), so commands
// work without a file for local use; anything pointing at a remote
// store wants an explicit file.
//
// Key exports:
//
//   - [Config] -- master struct with Vault, Ledger, Store, Fuse
//   - [Default] -- returns a Config with local defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends only on lib/chunk and lib/ledger for their
// default constants.
package config
