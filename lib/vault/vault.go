// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ledgerfs/ledgerfs/lib/blobstore"
	"github.com/ledgerfs/ledgerfs/lib/chunk"
	"github.com/ledgerfs/ledgerfs/lib/digest"
	"github.com/ledgerfs/ledgerfs/lib/ledger"
)

var (
	// ErrFileNotFound is returned by ReadFile and Stat for names the
	// ledger has no blocks for.
	ErrFileNotFound = errors.New("vault: file not found")

	// ErrFileExists is returned by WriteFile for names already in
	// the ledger. Files are immutable; rewriting a name would give
	// it duplicate chunk indexes.
	ErrFileExists = errors.New("vault: file already exists")

	// ErrInvalidName is returned by WriteFile for names the vault
	// cannot record: empty, containing a path separator, or
	// containing a NUL byte.
	ErrInvalidName = errors.New("vault: invalid file name")

	// ErrChunkTampered is returned by ReadFile when fetched chunk
	// bytes do not match the digest recorded at write time.
	ErrChunkTampered = errors.New("vault: chunk content does not match recorded digest")

	// ErrReconstruction is returned by ReadFile when the reassembled
	// file disagrees with the ledger's recorded layout (size sum or
	// chunk index sequence). It signals ledger-side damage the
	// per-chunk digest checks cannot see.
	ErrReconstruction = errors.New("vault: reconstructed file disagrees with recorded layout")
)

// Violation kinds added by DeepVerifyFile on top of the ledger's own.
const (
	// ViolationChunkUnavailable: the blob store could not produce
	// the chunk bytes (missing, or the fetch failed).
	ViolationChunkUnavailable ledger.ViolationKind = "chunk_unavailable"

	// ViolationChunkTampered: the blob store produced bytes whose
	// digest does not match the one recorded at write time.
	ViolationChunkTampered ledger.ViolationKind = "chunk_tampered"
)

// Options configures a Vault.
type Options struct {
	// ChunkSize is the fixed chunk size in bytes. Zero means
	// chunk.DefaultSize.
	ChunkSize int

	// Store holds chunk payloads. Required.
	Store blobstore.Store

	// Ledger records chunk blocks. Required.
	Ledger *ledger.Ledger

	// Logger receives pipeline diagnostics. If nil, a quiet stderr
	// logger is used.
	Logger *slog.Logger
}

// Vault owns the write and read pipelines over one ledger and one
// blob store.
type Vault struct {
	chunkSize int
	store     blobstore.Store
	ledger    *ledger.Ledger
	logger    *slog.Logger

	// writeMu serializes whole-file writes so each file's blocks
	// land contiguously in the chain.
	writeMu sync.Mutex
}

// New assembles a vault from options.
func New(options Options) (*Vault, error) {
	if options.Store == nil {
		return nil, fmt.Errorf("vault: a blob store is required")
	}
	if options.Ledger == nil {
		return nil, fmt.Errorf("vault: a ledger is required")
	}
	if options.ChunkSize < 0 {
		return nil, fmt.Errorf("vault: chunk size %d is negative", options.ChunkSize)
	}
	if options.ChunkSize == 0 {
		options.ChunkSize = chunk.DefaultSize
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	return &Vault{
		chunkSize: options.ChunkSize,
		store:     options.Store,
		ledger:    options.Ledger,
		logger:    options.Logger,
	}, nil
}

// ChunkSize returns the vault's fixed chunk size in bytes.
func (v *Vault) ChunkSize() int {
	return v.chunkSize
}

// Store returns the blob store the vault writes to.
func (v *Vault) Store() blobstore.Store {
	return v.store
}

// Ledger returns the vault's block ledger.
func (v *Vault) Ledger() *ledger.Ledger {
	return v.ledger
}

// ValidateName reports whether a file name can be recorded: non-empty,
// no path separator, no NUL byte. The flat namespace has no
// directories, and a name with a separator would be unreachable
// through the filesystem adapter.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case strings.ContainsRune(name, '/'):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidName, name)
	}
	return nil
}

// WriteFile runs the write pipeline: split data into chunks, and per
// chunk in order, store the bytes and append a mined block. The
// returned slice holds the appended blocks in chunk order.
//
// A failure mid-file aborts the remaining chunks and returns the
// blocks appended so far along with the error: earlier chunks stay
// recorded, so a partially written file is incomplete, never corrupt.
// There are no multi-chunk atomic writes.
//
// Writing zero bytes appends nothing and returns an empty slice; the
// name stays unknown to the ledger.
func (v *Vault) WriteFile(ctx context.Context, name string, data []byte) ([]ledger.Block, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	if len(v.ledger.BlocksForFile(name)) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrFileExists, name)
	}

	chunks := chunk.Split(data, v.chunkSize)
	if len(chunks) == 0 {
		v.logger.Debug("empty write ignored", "file", name)
		return nil, nil
	}

	blocks := make([]ledger.Block, 0, len(chunks))
	for _, c := range chunks {
		address, err := v.store.Put(ctx, c.Data)
		if err != nil {
			return blocks, fmt.Errorf("storing chunk %d of %s: %w", c.Index, name, err)
		}

		block, err := v.ledger.Append(name, c.Index, uint64(len(c.Data)), c.Digest, address)
		if err != nil {
			return blocks, fmt.Errorf("recording chunk %d of %s: %w", c.Index, name, err)
		}
		blocks = append(blocks, block)

		v.logger.Debug("chunk recorded",
			"file", name,
			"chunk", c.Index,
			"bytes", len(c.Data),
			"address", address,
			"block", block.Index,
		)
	}

	v.logger.Info("file written",
		"file", name,
		"bytes", len(data),
		"chunks", len(chunks),
		"store", v.store.String(),
	)
	return blocks, nil
}

// ReadFile runs the read pipeline: fetch every chunk of name from the
// blob store in chunk order, re-check each chunk's digest against the
// recorded one, and concatenate. There is no partial output: any
// missing, tampered, or misordered chunk fails the whole read.
func (v *Vault) ReadFile(ctx context.Context, name string) ([]byte, error) {
	view := v.ledger.BlocksForFile(name)
	if len(view) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}

	var total uint64
	for _, block := range view {
		total += block.ChunkSize
	}

	content := make([]byte, 0, total)
	for i, block := range view {
		// A gap or duplicate in the view means blocks were lost or
		// forged; concatenation would silently build a wrong file.
		if block.ChunkIndex != uint32(i) {
			return nil, fmt.Errorf("%w: %s records chunk %d at position %d",
				ErrReconstruction, name, block.ChunkIndex, i)
		}

		data, err := v.store.Get(ctx, block.BlobAddress)
		if err != nil {
			return nil, fmt.Errorf("fetching chunk %d of %s from %s: %w",
				block.ChunkIndex, name, v.store.String(), err)
		}
		if digest.HashChunk(data) != block.ChunkDigest {
			return nil, fmt.Errorf("%w: %s chunk %d (address %s)",
				ErrChunkTampered, name, block.ChunkIndex, block.BlobAddress)
		}
		content = append(content, data...)
	}

	if uint64(len(content)) != total {
		return nil, fmt.Errorf("%w: %s reassembled to %d bytes, ledger records %d",
			ErrReconstruction, name, len(content), total)
	}
	return content, nil
}

// FileInfo is the ledger-derived metadata for one file.
type FileInfo struct {
	// Name is the file name as recorded.
	Name string `json:"name"`

	// Size is the file's byte length, summed from its blocks.
	Size uint64 `json:"size"`

	// Chunks is the number of recorded chunks.
	Chunks int `json:"chunks"`

	// Created is the timestamp of the file's first block.
	Created time.Time `json:"created"`

	// Modified is the timestamp of the file's last block. For a file
	// written in one call this is moments after Created.
	Modified time.Time `json:"modified"`
}

// Stat returns the ledger-derived metadata for name.
func (v *Vault) Stat(name string) (FileInfo, error) {
	view := v.ledger.BlocksForFile(name)
	if len(view) == 0 {
		return FileInfo{}, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	return fileInfoFromView(name, view), nil
}

// List returns metadata for every recorded file, sorted by name.
func (v *Vault) List() []FileInfo {
	names := v.ledger.AllFiles()
	infos := make([]FileInfo, 0, len(names))
	for _, name := range names {
		view := v.ledger.BlocksForFile(name)
		if len(view) == 0 {
			continue
		}
		infos = append(infos, fileInfoFromView(name, view))
	}
	return infos
}

// Files returns the recorded file names, sorted.
func (v *Vault) Files() []string {
	return v.ledger.AllFiles()
}

func fileInfoFromView(name string, view []ledger.Block) FileInfo {
	info := FileInfo{
		Name:     name,
		Chunks:   len(view),
		Created:  view[0].Time(),
		Modified: view[0].Time(),
	}
	for _, block := range view {
		info.Size += block.ChunkSize
		if t := block.Time(); t.After(info.Modified) {
			info.Modified = t
		}
		if t := block.Time(); t.Before(info.Created) {
			info.Created = t
		}
	}
	return info
}

// VerifyChain re-verifies the whole chain. See ledger.VerifyChain.
func (v *Vault) VerifyChain() []ledger.Violation {
	return v.ledger.VerifyChain()
}

// VerifyFile re-verifies one file's blocks. This is the documented
// partial check; see ledger.VerifyFile.
func (v *Vault) VerifyFile(name string) []ledger.Violation {
	return v.ledger.VerifyFile(name)
}

// DeepVerifyFile runs VerifyFile and additionally re-fetches every
// chunk of name from the blob store, re-checking the stored bytes
// against the recorded digests. Fetch failures and digest mismatches
// are reported as violations, not errors: the report covers
// everything wrong with the file, and an unreachable store shows up
// as every chunk unavailable rather than a partial answer.
func (v *Vault) DeepVerifyFile(ctx context.Context, name string) []ledger.Violation {
	violations := v.ledger.VerifyFile(name)
	return append(violations, v.verifyChunks(ctx, name)...)
}

// DeepVerify is the full audit: everything VerifyChain covers, plus a
// re-fetch and digest re-check of every chunk behind every recorded
// file. Store findings are appended in file name order.
func (v *Vault) DeepVerify(ctx context.Context) []ledger.Violation {
	violations := v.ledger.VerifyChain()
	for _, name := range v.Files() {
		violations = append(violations, v.verifyChunks(ctx, name)...)
	}
	return violations
}

// verifyChunks re-fetches name's chunks and checks the stored bytes
// against the digests mined into the chain.
func (v *Vault) verifyChunks(ctx context.Context, name string) []ledger.Violation {
	var violations []ledger.Violation

	for _, block := range v.ledger.BlocksForFile(name) {
		data, err := v.store.Get(ctx, block.BlobAddress)
		if err != nil {
			violations = append(violations, ledger.Violation{
				Kind:       ViolationChunkUnavailable,
				BlockIndex: block.Index,
				FileName:   name,
				Detail: fmt.Sprintf("chunk %d at address %s: %v",
					block.ChunkIndex, block.BlobAddress, err),
			})
			continue
		}
		if digest.HashChunk(data) != block.ChunkDigest {
			violations = append(violations, ledger.Violation{
				Kind:       ViolationChunkTampered,
				BlockIndex: block.Index,
				FileName:   name,
				Detail: fmt.Sprintf("chunk %d at address %s: stored bytes do not match recorded digest",
					block.ChunkIndex, block.BlobAddress),
			})
		}
	}
	return violations
}
