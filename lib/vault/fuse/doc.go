// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package fuse mounts a vault as a filesystem, so ordinary tools read
// and write ledger-backed files without knowing about chunks, blocks,
// or mining.
//
// The namespace is flat: the mount root lists every recorded file
// plus any entries created since the mount that have not been
// committed yet. There are no directories.
//
// # Read path
//
// Opening a recorded file runs the vault's read pipeline once: every
// chunk is fetched, re-verified against its recorded digest, and the
// file is reassembled in memory. Reads at any offset are then served
// from that buffer, and the kernel page cache is enabled because
// recorded content never changes. A file that fails verification
// cannot be opened; the open returns EIO rather than serving bytes
// the ledger does not vouch for.
//
// # Write path
//
// Create registers a transient entry and returns a buffering handle.
// Writes grow the buffer; nothing touches the store or the ledger
// until the handle is flushed on close, when the whole buffer runs
// through the write pipeline in one pass. A file is therefore chunked
// across its full content, not per write(2) call.
//
// Zero-byte files are never committed: the entry exists while the
// kernel remembers it, but it appends no blocks and does not survive
// a remount.
//
// # Append-only policy
//
// Recorded files are immutable. Unlink, Rename, Mkdir, re-opening a
// recorded file for writing, and truncation all fail with EPERM or
// EROFS. The ledger offers no mutation to expose.
package fuse
