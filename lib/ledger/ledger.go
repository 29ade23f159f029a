// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/ledgerfs/ledgerfs/lib/codec"
	"github.com/ledgerfs/ledgerfs/lib/digest"
)

// documentVersion is the version of the persisted chain document.
const documentVersion = 1

// ErrCorruptLedger is returned by Open when the persisted document
// fails structural validation. A corrupt ledger is fatal: the caller
// must not write through it, and repair is a human decision.
var ErrCorruptLedger = errors.New("ledger: corrupt ledger document")

// ErrPersist is returned by Append when the updated document could
// not be written durably. The in-memory chain is rolled back, so the
// failed append leaves no trace.
var ErrPersist = errors.New("ledger: persisting document failed")

// ErrEmptyFileName is returned by Append for the empty file name,
// which the chain reserves as unaddressable.
var ErrEmptyFileName = errors.New("ledger: empty file name")

// document is the persisted chain envelope. CBOR-only.
type document struct {
	Version    int     `cbor:"version"`
	BlockCount uint64  `cbor:"block_count"`
	Blocks     []Block `cbor:"blocks"`
}

// Ledger is the append-only hash chain. One instance owns one
// document file; all mutation goes through Append under the write
// lock. Reads take the read lock and may run concurrently with each
// other; no read ever observes a half-appended chain.
type Ledger struct {
	mu     sync.RWMutex
	path   string
	miner  Miner
	blocks []Block
	logger *slog.Logger
}

// Open loads the chain document at path, or starts an empty chain
// when no document exists yet. The document is validated structurally:
// undecodable bytes, a block count disagreeing with the recorded
// blocks, or a first block not linked to the all-zero sentinel are all
// ErrCorruptLedger. If logger is nil, a quiet stderr logger is used.
func Open(path string, miner Miner, logger *slog.Logger) (*Ledger, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	ledger := &Ledger{path: path, miner: miner, logger: logger}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// First run: empty chain, no genesis block. The document
			// appears with the first append.
			return ledger, nil
		}
		return nil, fmt.Errorf("reading ledger document %s: %w", path, err)
	}

	var doc document
	if err := codec.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrCorruptLedger, path, err)
	}
	if doc.Version != documentVersion {
		return nil, fmt.Errorf("%w: document version %d, want %d",
			ErrCorruptLedger, doc.Version, documentVersion)
	}
	if doc.BlockCount != uint64(len(doc.Blocks)) {
		return nil, fmt.Errorf("%w: block count %d does not match %d recorded blocks",
			ErrCorruptLedger, doc.BlockCount, len(doc.Blocks))
	}
	if len(doc.Blocks) > 0 && !doc.Blocks[0].PrevHash.IsZero() {
		return nil, fmt.Errorf("%w: first block prev_hash %s is not the zero sentinel",
			ErrCorruptLedger, doc.Blocks[0].PrevHash)
	}

	ledger.blocks = doc.Blocks
	logger.Info("ledger loaded",
		"path", path,
		"blocks", len(doc.Blocks),
		"difficulty", miner.Difficulty,
	)
	return ledger, nil
}

// Append mines and appends a block recording one chunk write. The
// block links to the current tail (or the zero sentinel on an empty
// chain), receives the next index, and is persisted before Append
// returns. On persistence failure the in-memory chain is rolled back
// and the error wraps ErrPersist: an append either fully happens or
// leaves no trace.
func (l *Ledger) Append(fileName string, chunkIndex uint32, chunkSize uint64, chunkDigest digest.Digest, blobAddress string) (Block, error) {
	if fileName == "" {
		return Block{}, ErrEmptyFileName
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	block := Block{
		Index:       uint64(len(l.blocks)),
		Timestamp:   time.Now().UnixNano(),
		FileName:    fileName,
		ChunkIndex:  chunkIndex,
		ChunkSize:   chunkSize,
		ChunkDigest: chunkDigest,
		BlobAddress: blobAddress,
		PrevHash:    l.tailHashLocked(),
	}

	nonce, hash, err := l.miner.Mine(&block)
	if err != nil {
		return Block{}, fmt.Errorf("mining block %d: %w", block.Index, err)
	}
	block.Nonce = nonce
	block.Hash = hash

	l.blocks = append(l.blocks, block)
	if err := l.persistLocked(); err != nil {
		l.blocks = l.blocks[:len(l.blocks)-1]
		return Block{}, fmt.Errorf("%w: %w", ErrPersist, err)
	}

	l.logger.Debug("block appended",
		"index", block.Index,
		"file", fileName,
		"chunk_index", chunkIndex,
		"nonce", nonce,
		"hash", hash,
	)
	return block, nil
}

// Len returns the number of blocks in the chain.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blocks)
}

// Blocks returns a copy of the whole chain in append order.
func (l *Ledger) Blocks() []Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	blocks := make([]Block, len(l.blocks))
	copy(blocks, l.blocks)
	return blocks
}

// BlocksForFile returns the blocks recording name's chunks, sorted by
// chunk index. The result is empty for unknown names.
func (l *Ledger) BlocksForFile(name string) []Block {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var view []Block
	for _, block := range l.blocks {
		if block.FileName == name {
			view = append(view, block)
		}
	}
	// Chain order is already chunk order for a well-formed chain; the
	// sort makes the view deterministic even for damaged chains so the
	// verifier sees a stable sequence.
	sort.Slice(view, func(i, j int) bool {
		return view[i].ChunkIndex < view[j].ChunkIndex
	})
	return view
}

// AllFiles returns the distinct file names in the chain, sorted.
func (l *Ledger) AllFiles() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[string]bool)
	var names []string
	for _, block := range l.blocks {
		if seen[block.FileName] {
			continue
		}
		seen[block.FileName] = true
		names = append(names, block.FileName)
	}
	sort.Strings(names)
	return names
}

// TailHash returns the hash of the last block, or the zero sentinel
// for an empty chain. The next appended block links to this value.
func (l *Ledger) TailHash() digest.Digest {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tailHashLocked()
}

func (l *Ledger) tailHashLocked() digest.Digest {
	if len(l.blocks) == 0 {
		return digest.Digest{}
	}
	return l.blocks[len(l.blocks)-1].Hash
}

// Info summarizes the chain for status surfaces.
type Info struct {
	Length     uint64        `json:"length"`
	TailHash   digest.Digest `json:"tail_hash"`
	Difficulty int           `json:"difficulty"`
	FileCount  int           `json:"file_count"`
}

// Info returns a snapshot summary of the chain.
func (l *Ledger) Info() Info {
	l.mu.RLock()
	defer l.mu.RUnlock()

	seen := make(map[string]bool)
	for _, block := range l.blocks {
		seen[block.FileName] = true
	}
	return Info{
		Length:     uint64(len(l.blocks)),
		TailHash:   l.tailHashLocked(),
		Difficulty: l.miner.Difficulty,
		FileCount:  len(seen),
	}
}

// Difficulty returns the proof-of-work difficulty the chain mines at.
func (l *Ledger) Difficulty() int {
	return l.miner.Difficulty
}

// Path returns the document path. The CLI reads the raw document from
// here for diagnostic output.
func (l *Ledger) Path() string {
	return l.path
}

// persistLocked writes the whole chain document atomically: marshal,
// write to a temp file in the document's directory, rename over the
// final path. Callers hold the write lock.
func (l *Ledger) persistLocked() error {
	doc := document{
		Version:    documentVersion,
		BlockCount: uint64(len(l.blocks)),
		Blocks:     l.blocks,
	}
	data, err := codec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling ledger document: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating ledger directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp ledger file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up the temp file on any error path.
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing ledger document: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("syncing ledger document: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp ledger file: %w", err)
	}

	if err := os.Rename(tmpPath, l.path); err != nil {
		return fmt.Errorf("renaming ledger document to %s: %w", l.path, err)
	}

	success = true
	return nil
}
