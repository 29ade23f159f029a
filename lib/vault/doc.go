// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package vault wires chunking, the blob store, and the block ledger
// into the write and read pipelines.
//
// A write splits the file at the vault's fixed chunk size and, per
// chunk in order, stores the bytes in the blob store and appends a
// mined block recording the chunk's digest and blob address. Chunk
// i+1 is only processed after chunk i's block is durably recorded, so
// a crash mid-write leaves an incomplete file, never a corrupt one.
// Files are immutable once written: a name already in the ledger
// cannot be written again, which is what keeps each file's chunk
// indexes contiguous and duplicate-free.
//
// A read fetches the file's blocks in chunk order, re-fetches each
// chunk from the blob store, recomputes its digest against the
// recorded one, and concatenates. Any mismatch fails the whole read;
// there is no partial output.
//
// Verification comes in increasing depths: VerifyChain re-checks
// every hash, proof-of-work, and link in the whole chain; VerifyFile
// applies the per-block checks to one file's view (a documented
// partial check); DeepVerifyFile additionally re-fetches the file's
// chunks from the blob store, reporting unavailable or tampered
// chunks as violations alongside the ledger findings; DeepVerify
// runs the full chain check plus the chunk checks for every recorded
// file.
//
// Writers are serialized by a vault-wide mutex. Reads run
// concurrently and may observe a prefix of an in-flight write, which
// is snapshot semantics, not an error.
//
// [Open] and [OpenStore] assemble a vault from a config.Config,
// including the sealed encryption and read-cache wrappers.
package vault
