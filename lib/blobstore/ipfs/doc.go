// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package ipfs implements the blob store against a Kubo daemon's HTTP
// RPC API (/api/v0). Chunks are added with pinning so the daemon's
// garbage collector never reclaims them, and addresses are the CIDs
// Kubo assigns, which makes deduplication inherent: identical bytes
// produce identical CIDs.
//
// Because CIDs come from the daemon, this backend has native content
// addressing and cannot sit behind the sealed encryption wrapper (the
// ciphertext would get a ciphertext CID and the plaintext address
// contract would break).
//
// Get rides the daemon's normal resolution, so a chunk pinned on
// another node is fetched over the network, bounded by the call
// timeout. Has deliberately passes offline=true: it answers "is this
// block here" without trolling the DHT for it.
package ipfs
