// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"encoding/binary"
	"time"

	"github.com/ledgerfs/ledgerfs/lib/digest"
)

// canonicalVersion is the version byte leading every block hash
// preimage. Bumping it invalidates every recorded block hash, so it
// only changes together with the preimage layout.
const canonicalVersion = 0x01

// Block is one link of the hash chain: the durable record of a single
// chunk write. Fields use json tags because blocks appear both in the
// CBOR ledger document and in CLI --json output.
type Block struct {
	// Index is the block's position in the chain, 0-based.
	Index uint64 `json:"index"`

	// Timestamp is the block creation time in Unix nanoseconds. An
	// integer rather than time.Time keeps the persisted document and
	// the hash preimage byte-identical across encode/decode cycles
	// (CBOR time encoding truncates to seconds).
	Timestamp int64 `json:"timestamp"`

	// FileName is the name of the file this chunk belongs to.
	FileName string `json:"file_name"`

	// ChunkIndex is the chunk's 0-based position within its file.
	// For any file the recorded indexes are contiguous from zero.
	ChunkIndex uint32 `json:"chunk_index"`

	// ChunkSize is the byte length of this chunk. A file's total size
	// is the sum of ChunkSize over its blocks.
	ChunkSize uint64 `json:"chunk_size"`

	// ChunkDigest is the chunk-domain digest of the chunk plaintext,
	// re-checked against fetched bytes on every read.
	ChunkDigest digest.Digest `json:"chunk_digest"`

	// BlobAddress is the blob store address holding the chunk bytes.
	BlobAddress string `json:"blob_address"`

	// PrevHash is the hash of the preceding block, or the all-zero
	// sentinel for the first block in the chain.
	PrevHash digest.Digest `json:"prev_hash"`

	// Nonce is the proof-of-work nonce found by the miner.
	Nonce uint64 `json:"nonce"`

	// Hash is the block-domain digest of the canonical encoding of all
	// fields above. It satisfies the chain's difficulty.
	Hash digest.Digest `json:"hash"`
}

// Time returns the block timestamp as a time.Time.
func (b *Block) Time() time.Time {
	return time.Unix(0, b.Timestamp)
}

// appendPreimage appends the canonical hash preimage to buf and
// returns the extended slice. The layout is fixed and versioned:
//
//	version byte
//	index            uint64 big-endian
//	timestamp        int64 big-endian (Unix nanoseconds)
//	file name        uint32 length prefix + bytes
//	chunk index      uint32 big-endian
//	chunk size       uint64 big-endian
//	chunk digest     32 raw bytes
//	blob address     uint32 length prefix + bytes
//	prev hash        32 raw bytes
//	nonce            uint64 big-endian
//
// Every field that identifies the chunk or its position participates;
// the stored Hash does not. Length prefixes keep the encoding
// injective: no two distinct field combinations share a preimage.
func (b *Block) appendPreimage(buf []byte) []byte {
	buf = append(buf, canonicalVersion)
	buf = binary.BigEndian.AppendUint64(buf, b.Index)
	buf = binary.BigEndian.AppendUint64(buf, uint64(b.Timestamp))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(b.FileName)))
	buf = append(buf, b.FileName...)
	buf = binary.BigEndian.AppendUint32(buf, b.ChunkIndex)
	buf = binary.BigEndian.AppendUint64(buf, b.ChunkSize)
	buf = append(buf, b.ChunkDigest[:]...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(b.BlobAddress)))
	buf = append(buf, b.BlobAddress...)
	buf = append(buf, b.PrevHash[:]...)
	buf = binary.BigEndian.AppendUint64(buf, b.Nonce)
	return buf
}

// Preimage returns the canonical hash preimage of the block.
func (b *Block) Preimage() []byte {
	return b.appendPreimage(nil)
}

// ComputeHash returns the block-domain digest of the canonical
// preimage. For an untampered block this equals b.Hash.
func (b *Block) ComputeHash() digest.Digest {
	return digest.HashBlock(b.Preimage())
}

// meetsDifficulty reports whether d carries at least difficulty
// leading zero hex digits.
func meetsDifficulty(d digest.Digest, difficulty int) bool {
	return d.LeadingZeroHexDigits() >= difficulty
}
