// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package badgerstore implements the blob store on an embedded
// badger key/value database. This is the default durable backend for
// single-host vaults: no daemon, no network, crash-safe value log.
//
// Keys are the canonical content addresses (hex chunk digests of the
// plaintext). Values carry a one-byte compression tag, the uncompressed
// length, and the possibly-compressed payload, so the at-rest encoding
// can change per blob (incompressible chunks fall back to raw bytes)
// without touching addresses.
package badgerstore
