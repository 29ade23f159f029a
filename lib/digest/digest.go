// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest provides the cryptographic hashing layer: 32-byte
// BLAKE3 digests with keyed domain separation between chunk content
// and ledger block encodings.
package digest

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Size is the digest length in bytes.
const Size = 32

// Digest is a 32-byte BLAKE3 digest. All digests in the system (chunk
// content, block hashes, chain links) are this size. The zero value is
// the chain sentinel: the previous-hash of the first ledger block.
type Digest [Size]byte

// domainKey is a 32-byte key for BLAKE3 keyed hashing. Domain
// separation ensures that the same input bytes produce different
// digests in different contexts, preventing cross-domain collisions.
type domainKey [Size]byte

// Domain separation keys. These are fixed constants — changing them
// invalidates every digest recorded in that domain. The byte values
// are the ASCII encoding of the domain name, zero-padded to 32 bytes,
// so the keys stay inspectable in hex dumps and debuggers (BLAKE3
// keyed mode treats the key as an opaque 32-byte value either way).
var (
	chunkDomainKey = domainKey{
		'l', 'e', 'd', 'g', 'e', 'r', 'f', 's', '.', 'c', 'h', 'u', 'n', 'k', 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	blockDomainKey = domainKey{
		'l', 'e', 'd', 'g', 'e', 'r', 'f', 's', '.', 'b', 'l', 'o', 'c', 'k', 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// HashChunk computes the chunk-domain digest of the given plaintext.
// This is the digest recorded in ledger blocks and re-checked on every
// read. Chunk digests are always computed on uncompressed bytes so
// that at-rest compression or encryption in a blob store never changes
// a chunk's identity.
func HashChunk(data []byte) Digest {
	return keyedHash(chunkDomainKey, data)
}

// HashBlock computes the block-domain digest of a canonical block
// encoding. Block hashes live in a separate domain from chunk digests
// so a block encoding can never collide with chunk content.
func HashBlock(preimage []byte) Digest {
	return keyedHash(blockDomainKey, preimage)
}

// BlockHasher is a reusable block-domain hasher. The proof-of-work
// search evaluates the block digest once per candidate nonce; reusing
// one hasher via Reset avoids allocating per attempt, the dominant
// allocation source in mining.
type BlockHasher struct {
	hasher *blake3.Hasher
}

// NewBlockHasher returns a hasher bound to the block domain.
func NewBlockHasher() *BlockHasher {
	// NewKeyed requires exactly 32 bytes, which domainKey guarantees.
	// The error is only returned for wrong key length, so this cannot
	// fail with our fixed-size type.
	hasher, err := blake3.NewKeyed(blockDomainKey[:])
	if err != nil {
		panic("digest: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return &BlockHasher{hasher: hasher}
}

// Sum computes the block-domain digest of preimage, reusing the
// underlying hasher state. Reset preserves the key; it returns the
// hasher to its initial keyed state.
func (h *BlockHasher) Sum(preimage []byte) Digest {
	h.hasher.Reset()
	h.hasher.Write(preimage)
	var d Digest
	copy(d[:], h.hasher.Sum(nil))
	return d
}

// IsZero reports whether d is the zero digest, the chain sentinel.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// LeadingZeroHexDigits returns the number of leading zeros in the
// hex encoding of d. This is the proof-of-work difficulty measure: a
// block hash at difficulty k has at least k leading zero hex digits.
func (d Digest) LeadingZeroHexDigits() int {
	count := 0
	for _, b := range d {
		if b == 0 {
			count += 2
			continue
		}
		if b>>4 == 0 {
			count++
		}
		break
	}
	return count
}

// String returns the hex encoding of d. This is the canonical format
// used in the ledger document, logs, and CLI output.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalText implements encoding.TextMarshaler. The codec layer
// encodes text marshalers as text strings, so digests appear in the
// persisted ledger document as hex rather than raw bytes.
func (d Digest) MarshalText() ([]byte, error) {
	text := make([]byte, hex.EncodedLen(len(d)))
	hex.Encode(text, d[:])
	return text, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Parse parses a 64-character hex string into a Digest.
func Parse(hexString string) (Digest, error) {
	var d Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return d, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != Size {
		return d, fmt.Errorf("digest is %d bytes, want %d", len(decoded), Size)
	}
	copy(d[:], decoded)
	return d, nil
}

// keyedHash computes the BLAKE3 keyed hash with the given domain key.
func keyedHash(key domainKey, data []byte) Digest {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("digest: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var d Digest
	copy(d[:], hasher.Sum(nil))
	return d
}
