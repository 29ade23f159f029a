// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger implements the tamper-evident hash chain that records
// every chunk ever written: which file it belongs to, its position,
// its content digest, and the blob store address holding its bytes.
//
// Each block's hash is the block-domain BLAKE3 digest of a canonical
// binary encoding of its fields and must carry a proof-of-work: at
// least the configured number of leading zero hex digits. Blocks link
// through prev_hash; the first block links to the all-zero sentinel.
// An empty vault has an empty chain — there is no synthetic genesis
// block.
//
// The chain is append-only. Mutation of any recorded field changes
// that block's hash, which breaks either the recomputed hash, the
// proof-of-work, or the successor's prev_hash link; the verifier
// reports all three as [Violation] values. Violations are findings,
// not errors: verification of a damaged chain succeeds and returns
// what it found.
//
// Persistence is a single CBOR document written atomically via a temp
// file and rename. A document that fails structural validation on load
// (undecodable, block count mismatch, first block not linked to the
// sentinel) is rejected with [ErrCorruptLedger]; there is no automatic
// repair.
package ledger
