// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed wraps another blob store with age encryption at
// rest. Blobs are encrypted to one or more X25519 recipients before
// they reach the inner store and decrypted with a local identity on
// the way back out, so the inner backend (badger directory, S3
// bucket) only ever holds ciphertext.
//
// Addresses stay derived from the plaintext via
// [blobstore.AddressForData]. age ciphertext is randomized (a fresh
// ephemeral key per encryption), so deriving addresses from
// ciphertext would give identical chunks distinct addresses and
// defeat deduplication. The inner store must therefore implement
// [blobstore.PutterAt]; backends with native content addressing
// (IPFS) cannot sit behind this wrapper.
//
// The flip side of plaintext-derived addresses is that an address is
// a verifiable fingerprint of its chunk: anyone holding both the
// address and a candidate plaintext can confirm a match. The wrapper
// protects confidentiality of chunk contents, not existence of known
// content.
//
// A store opened with recipients but no identity file is write-only
// (an archiver); one opened with an identity file but no recipients
// is read-only (an auditor). At least one of the two is required.
package sealed
