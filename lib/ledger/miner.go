// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/ledgerfs/ledgerfs/lib/digest"
)

// DefaultDifficulty is the default proof-of-work difficulty: the
// number of leading zero hex digits a block hash must carry. Expected
// mining cost is 16^difficulty digest evaluations per block.
const DefaultDifficulty = 3

// ErrMiningExhausted is returned when the nonce search space cap is
// reached without finding a conforming hash. A capped miner that
// exhausts its budget fails the append outright; it never records a
// block whose hash misses the difficulty.
var ErrMiningExhausted = errors.New("ledger: proof-of-work search exhausted")

// Miner finds proof-of-work nonces. The zero value is unusable;
// construct with the difficulty the chain was created with.
type Miner struct {
	// Difficulty is the required number of leading zero hex digits.
	Difficulty int

	// MaxNonce caps the number of nonces tried per block. Zero means
	// unbounded (the full uint64 space). At realistic difficulties the
	// search terminates long before any sensible cap; the cap exists
	// so operators can bound worst-case append latency.
	MaxNonce uint64
}

// Mine searches nonces from zero upward and returns the first nonce
// whose block hash satisfies the difficulty, along with that hash.
// The block's Nonce and Hash fields are not modified; the caller
// assigns them. Mining runs to completion on the calling goroutine —
// appends are all-or-nothing, so there is no point abandoning a
// half-done search.
func (m Miner) Mine(b *Block) (uint64, digest.Digest, error) {
	// The nonce is the last 8 bytes of the preimage. Build the buffer
	// once and rewrite those bytes per attempt; the hasher is reused
	// the same way.
	preimage := b.appendPreimage(nil)
	nonceOffset := len(preimage) - 8
	hasher := digest.NewBlockHasher()

	for nonce := uint64(0); ; nonce++ {
		if m.MaxNonce > 0 && nonce >= m.MaxNonce {
			return 0, digest.Digest{}, fmt.Errorf("%w after %d attempts at difficulty %d",
				ErrMiningExhausted, m.MaxNonce, m.Difficulty)
		}

		binary.BigEndian.PutUint64(preimage[nonceOffset:], nonce)
		hash := hasher.Sum(preimage)
		if meetsDifficulty(hash, m.Difficulty) {
			return nonce, hash, nil
		}

		if nonce == math.MaxUint64 {
			return 0, digest.Digest{}, fmt.Errorf("%w: full nonce space searched at difficulty %d",
				ErrMiningExhausted, m.Difficulty)
		}
	}
}
