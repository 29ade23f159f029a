// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"context"
	"errors"

	"github.com/ledgerfs/ledgerfs/lib/digest"
)

// ErrNotFound is returned by Get and reported by Has when no blob
// exists at the given address. Backends map their native not-found
// conditions (badger.ErrKeyNotFound, S3 NoSuchKey, Kubo merkledag
// errors) to this sentinel so callers can test with errors.Is.
var ErrNotFound = errors.New("blobstore: blob not found")

// Store is the content-addressed blob store used by the write and
// read pipelines. Addresses are opaque strings chosen by the store on
// Put; callers persist them in ledger blocks and present them back to
// Get verbatim.
type Store interface {
	// Put stores data and returns its address. Storing the same bytes
	// twice returns the same address and does not duplicate storage.
	Put(ctx context.Context, data []byte) (string, error)

	// Get returns the bytes stored at address. Returns an error
	// wrapping ErrNotFound when the address is unknown.
	Get(ctx context.Context, address string) ([]byte, error)

	// Has reports whether a blob exists at address without fetching
	// its bytes.
	Has(ctx context.Context, address string) (bool, error)

	// String identifies the store kind and location for logs and CLI
	// output.
	String() string
}

// PutterAt is implemented by backends that can persist a payload under
// a caller-chosen address instead of deriving one from the payload
// bytes. Wrapping stores that transform payloads at rest need it: the
// sealed store records the plaintext address while the stored bytes
// are ciphertext, which the inner store could never compute the
// address from. Backends with native addressing (IPFS) cannot
// implement it.
type PutterAt interface {
	// PutAt stores data under address, overwriting any existing blob
	// there.
	PutAt(ctx context.Context, address string, data []byte) error
}

// AddressForData returns the canonical local address for a chunk
// payload: the hex chunk-domain digest of the plaintext. All local
// backends (memory, badger) address blobs this way; remote backends
// with native addressing (IPFS CIDs, S3 keys) may differ.
func AddressForData(data []byte) string {
	return digest.HashChunk(data).String()
}
