// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"errors"
	"fmt"
	"testing"
)

func TestMineFindsConformingHash(t *testing.T) {
	block := sampleBlock()
	miner := Miner{Difficulty: 2}

	nonce, hash, err := miner.Mine(&block)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}

	if !meetsDifficulty(hash, 2) {
		t.Errorf("mined hash %s does not meet difficulty 2", hash)
	}

	// The returned pair is consistent: assigning the nonce and
	// recomputing reproduces the hash.
	block.Nonce = nonce
	if got := block.ComputeHash(); got != hash {
		t.Errorf("recomputed hash %s, Mine returned %s", got, hash)
	}
}

func TestMineDeterministic(t *testing.T) {
	// The linear search always finds the smallest conforming nonce,
	// so mining the same block twice gives identical results.
	block := sampleBlock()
	miner := Miner{Difficulty: 2}

	nonce1, hash1, err := miner.Mine(&block)
	if err != nil {
		t.Fatal(err)
	}
	nonce2, hash2, err := miner.Mine(&block)
	if err != nil {
		t.Fatal(err)
	}

	if nonce1 != nonce2 || hash1 != hash2 {
		t.Errorf("Mine not deterministic: (%d, %s) vs (%d, %s)",
			nonce1, hash1, nonce2, hash2)
	}
}

func TestMineDoesNotMutateBlock(t *testing.T) {
	block := sampleBlock()
	saved := block

	miner := Miner{Difficulty: 1}
	if _, _, err := miner.Mine(&block); err != nil {
		t.Fatal(err)
	}

	if block != saved {
		t.Error("Mine mutated the block")
	}
}

func TestMineDifficultyZeroAcceptsFirstNonce(t *testing.T) {
	block := sampleBlock()
	miner := Miner{Difficulty: 0}

	nonce, _, err := miner.Mine(&block)
	if err != nil {
		t.Fatal(err)
	}
	if nonce != 0 {
		t.Errorf("difficulty 0 mined nonce %d, want 0", nonce)
	}
}

func TestMineExhaustion(t *testing.T) {
	// Three attempts at difficulty 10 cannot plausibly succeed
	// (3 in 16^10 odds); the capped search must fail, not fall back
	// to a non-conforming nonce.
	block := sampleBlock()
	miner := Miner{Difficulty: 10, MaxNonce: 3}

	_, _, err := miner.Mine(&block)
	if err == nil {
		t.Fatal("capped Mine succeeded at difficulty 10 within 3 attempts")
	}
	if !errors.Is(err, ErrMiningExhausted) {
		t.Errorf("Mine error = %v, want ErrMiningExhausted", err)
	}
}

func TestMineUncappedIgnoresMaxNonceZero(t *testing.T) {
	// MaxNonce zero means unbounded, not "zero attempts".
	block := sampleBlock()
	miner := Miner{Difficulty: 1, MaxNonce: 0}

	if _, _, err := miner.Mine(&block); err != nil {
		t.Fatalf("uncapped Mine failed: %v", err)
	}
}

func BenchmarkMine(b *testing.B) {
	for _, difficulty := range []int{1, 2, 3} {
		b.Run(fmt.Sprintf("difficulty=%d", difficulty), func(b *testing.B) {
			miner := Miner{Difficulty: difficulty}
			block := sampleBlock()
			b.ReportAllocs()
			for b.Loop() {
				// Vary the block so each iteration mines fresh work.
				block.Index++
				miner.Mine(&block)
			}
		})
	}
}
