// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package chunk splits file content into fixed-size chunks for
// content-addressed storage. Chunk boundaries are purely positional:
// every chunk except the last is exactly the configured size, and the
// last carries the remainder. Fixed-size splitting keeps the mapping
// between a ledger block and its byte range trivially computable from
// the chunk index alone.
package chunk

import (
	"fmt"

	"github.com/ledgerfs/ledgerfs/lib/digest"
)

// DefaultSize is the default chunk size in bytes. Changing a vault's
// size re-chunks nothing already recorded: files written under
// different sizes coexist, since every block carries its own chunk
// length.
const DefaultSize = 1024

// Chunk is a single fixed-size piece of a file: a contiguous byte
// range with its position and precomputed chunk-domain digest.
type Chunk struct {
	// Index is the 0-based position of this chunk within its file,
	// in byte order.
	Index uint32

	// Data is the chunk's raw bytes. This is a slice into the original
	// input — it is only valid until the input buffer is modified.
	Data []byte

	// Digest is the chunk-domain BLAKE3 digest of Data.
	Digest digest.Digest
}

// Split cuts data into consecutive chunks of size bytes. Every chunk
// except the last is exactly size bytes; the last holds the remainder.
// Empty input yields no chunks. The data slice is not copied — the
// caller must not modify it while the chunks are in use.
//
// Panics if size is not positive; configuration validation rejects
// such sizes long before data reaches this point.
func Split(data []byte, size int) []Chunk {
	if size <= 0 {
		panic(fmt.Sprintf("chunk.Split: non-positive chunk size %d", size))
	}
	if len(data) == 0 {
		return nil
	}

	chunks := make([]Chunk, 0, Count(len(data), size))
	for offset := 0; offset < len(data); offset += size {
		end := offset + size
		if end > len(data) {
			end = len(data)
		}
		piece := data[offset:end]
		chunks = append(chunks, Chunk{
			Index:  uint32(offset / size),
			Data:   piece,
			Digest: digest.HashChunk(piece),
		})
	}
	return chunks
}

// Count returns the number of chunks a payload of length bytes splits
// into at the given size: ceil(length/size). Zero length counts zero
// chunks.
func Count(length, size int) int {
	if size <= 0 {
		panic(fmt.Sprintf("chunk.Count: non-positive chunk size %d", size))
	}
	return (length + size - 1) / size
}
