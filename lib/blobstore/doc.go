// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package blobstore defines the content-addressed blob store contract
// and provides the in-memory implementation and the read-through cache
// wrapper. Backend implementations (badger, ipfs, s3, sealed) live in
// subpackages.
//
// A blob store holds chunk payloads keyed by opaque string addresses.
// The write pipeline stores each chunk once and records the returned
// address in a ledger block; the read pipeline resolves addresses back
// to bytes. Stores are expected to be:
//
//   - Content-addressed: Put of identical bytes returns the same
//     address (local stores derive it from the chunk-domain digest of
//     the plaintext, so at-rest compression or encryption never
//     changes an address and duplicate chunks store once).
//   - Byte-exact: Get returns exactly the bytes given to Put. Any
//     transformation applied at rest must be reversed on read.
//   - Fallible: operations return errors; unknown addresses map to
//     [ErrNotFound]. Callers own retry policy; stores never retry
//     internally.
package blobstore
