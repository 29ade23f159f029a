// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import "fmt"

// ViolationKind classifies what a verification pass found.
type ViolationKind string

const (
	// ViolationHashMismatch: the block's stored hash does not equal
	// the recomputed digest of its canonical encoding. Some recorded
	// field was altered after mining.
	ViolationHashMismatch ViolationKind = "hash_mismatch"

	// ViolationProofOfWork: the stored hash does not carry the
	// required leading zero hex digits. The block was never validly
	// mined at this difficulty.
	ViolationProofOfWork ViolationKind = "proof_of_work_invalid"

	// ViolationChainBroken: linkage is damaged. A block's prev_hash
	// does not match its predecessor's hash, the first block is not
	// linked to the zero sentinel, a block's recorded index disagrees
	// with its position, or a file's chunk indexes have gaps or
	// duplicates.
	ViolationChainBroken ViolationKind = "chain_broken"
)

// Violation is a single verification finding. Violations are values,
// not errors: a verification pass over a damaged chain succeeds and
// returns everything it found.
type Violation struct {
	Kind       ViolationKind `json:"kind"`
	BlockIndex uint64        `json:"block_index"`
	FileName   string        `json:"file_name,omitempty"`
	Detail     string        `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("block %d [%s]: %s", v.BlockIndex, v.Kind, v.Detail)
}

// VerifyChain re-derives every block hash, re-checks every
// proof-of-work, and re-checks every prev_hash link from the first
// block to the tail. All violations are collected; verification never
// stops at the first finding. A nil result means the chain is intact.
//
// Verification runs on a snapshot, so writers are blocked only for
// the copy, not for the hashing.
func (l *Ledger) VerifyChain() []Violation {
	blocks := l.Blocks()
	difficulty := l.miner.Difficulty

	var violations []Violation
	for i := range blocks {
		block := &blocks[i]
		violations = append(violations, verifyBlock(block, difficulty)...)

		// Positional checks against the chain itself.
		if block.Index != uint64(i) {
			violations = append(violations, Violation{
				Kind:       ViolationChainBroken,
				BlockIndex: block.Index,
				FileName:   block.FileName,
				Detail: fmt.Sprintf("block at chain position %d records index %d",
					i, block.Index),
			})
		}
		if i == 0 {
			if !block.PrevHash.IsZero() {
				violations = append(violations, Violation{
					Kind:       ViolationChainBroken,
					BlockIndex: block.Index,
					FileName:   block.FileName,
					Detail: fmt.Sprintf("first block prev_hash %s is not the zero sentinel",
						block.PrevHash),
				})
			}
			continue
		}
		if block.PrevHash != blocks[i-1].Hash {
			violations = append(violations, Violation{
				Kind:       ViolationChainBroken,
				BlockIndex: block.Index,
				FileName:   block.FileName,
				Detail: fmt.Sprintf("prev_hash %s does not match block %d hash %s",
					block.PrevHash, blocks[i-1].Index, blocks[i-1].Hash),
			})
		}
	}
	return violations
}

// VerifyFile checks the blocks recording name's chunks: hash
// recomputation and proof-of-work per block, chunk index contiguity
// from zero, and prev_hash linkage between the file's blocks that are
// adjacent in the chain. Linkage through interleaved blocks of other
// files is not visible here; VerifyChain is the authoritative check.
// The result is nil both for an intact file and for an unknown name —
// callers distinguish the two via the file view.
func (l *Ledger) VerifyFile(name string) []Violation {
	view := l.BlocksForFile(name)
	difficulty := l.miner.Difficulty

	var violations []Violation
	for k := range view {
		block := &view[k]
		violations = append(violations, verifyBlock(block, difficulty)...)

		if block.ChunkIndex != uint32(k) {
			violations = append(violations, Violation{
				Kind:       ViolationChainBroken,
				BlockIndex: block.Index,
				FileName:   name,
				Detail: fmt.Sprintf("chunk index %d at file position %d: indexes must be contiguous from 0",
					block.ChunkIndex, k),
			})
		}

		// Globally adjacent blocks of the same file must link directly.
		if k > 0 && block.Index == view[k-1].Index+1 && block.PrevHash != view[k-1].Hash {
			violations = append(violations, Violation{
				Kind:       ViolationChainBroken,
				BlockIndex: block.Index,
				FileName:   name,
				Detail: fmt.Sprintf("prev_hash %s does not match adjacent block %d hash %s",
					block.PrevHash, view[k-1].Index, view[k-1].Hash),
			})
		}
	}
	return violations
}

// verifyBlock runs the per-block checks shared by chain and file
// verification: stored hash against recomputed hash, and stored hash
// against the difficulty.
func verifyBlock(block *Block, difficulty int) []Violation {
	var violations []Violation

	computed := block.ComputeHash()
	if computed != block.Hash {
		violations = append(violations, Violation{
			Kind:       ViolationHashMismatch,
			BlockIndex: block.Index,
			FileName:   block.FileName,
			Detail: fmt.Sprintf("stored hash %s, recomputed %s",
				block.Hash, computed),
		})
	}

	if !meetsDifficulty(block.Hash, difficulty) {
		violations = append(violations, Violation{
			Kind:       ViolationProofOfWork,
			BlockIndex: block.Index,
			FileName:   block.FileName,
			Detail: fmt.Sprintf("hash %s has %d leading zero hex digits, difficulty requires %d",
				block.Hash, block.Hash.LeadingZeroHexDigits(), difficulty),
		})
	}

	return violations
}
