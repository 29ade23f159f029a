// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package badgerstore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/shirou/gopsutil/disk"

	"github.com/ledgerfs/ledgerfs/lib/blobstore"
)

// valueHeaderSize is the fixed value prefix: 1 tag byte + 4 bytes of
// big-endian uncompressed length.
const valueHeaderSize = 5

// Options configures a badger-backed blob store.
type Options struct {
	// Path is the database directory. Created if absent.
	Path string

	// Compression selects the at-rest algorithm for new blobs.
	// Incompressible blobs fall back to raw bytes per blob.
	Compression CompressionTag

	// NoSync disables synchronous writes. Throughput at the cost of
	// the last few writes on a crash; the ledger append that follows
	// a Put is what makes a chunk durable-visible, so the default
	// stays synchronous.
	NoSync bool

	// MinimumFreeBytes refuses to open the store when the filesystem
	// holding Path has less free space. Zero disables the check.
	MinimumFreeBytes uint64

	// Logger receives diagnostic messages. If nil, a quiet stderr
	// logger is used.
	Logger *slog.Logger
}

var (
	_ blobstore.Store    = (*Store)(nil)
	_ blobstore.PutterAt = (*Store)(nil)
)

// Store is a badger-backed content-addressed blob store.
type Store struct {
	db          *badger.DB
	path        string
	compression CompressionTag
	logger      *slog.Logger
}

// Open opens (or creates) the store at options.Path.
func Open(options Options) (*Store, error) {
	if options.Path == "" {
		return nil, fmt.Errorf("badgerstore: path is required")
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	if err := os.MkdirAll(options.Path, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w", options.Path, err)
	}

	if options.MinimumFreeBytes > 0 {
		usage, err := disk.Usage(options.Path)
		if err != nil {
			return nil, fmt.Errorf("checking free space for %s: %w", options.Path, err)
		}
		if usage.Free < options.MinimumFreeBytes {
			return nil, fmt.Errorf("badgerstore: %s has %d bytes free, need at least %d",
				options.Path, usage.Free, options.MinimumFreeBytes)
		}
	}

	opts := badger.DefaultOptions(options.Path)
	// Badger's own logger prints unconditionally; diagnostics go
	// through our slog instead.
	opts.Logger = nil
	opts.SyncWrites = !options.NoSync

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger database at %s: %w", options.Path, err)
	}

	options.Logger.Info("blob store opened",
		"backend", "badger",
		"path", options.Path,
		"compression", options.Compression,
		"sync_writes", !options.NoSync,
	)

	return &Store{
		db:          db,
		path:        options.Path,
		compression: options.Compression,
		logger:      options.Logger,
	}, nil
}

// Put implements blobstore.Store. Duplicate content is detected by
// address and not re-written, so re-storing a chunk is free.
func (s *Store) Put(_ context.Context, data []byte) (string, error) {
	address := blobstore.AddressForData(data)
	key := []byte(address)

	// Existence check first: skips recompression for duplicates.
	exists, err := s.hasKey(key)
	if err != nil {
		return "", fmt.Errorf("badger store: checking %s: %w", address, err)
	}
	if exists {
		return address, nil
	}

	value, err := encodeValue(data, s.compression)
	if err != nil {
		return "", fmt.Errorf("badger store: encoding blob %s: %w", address, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return "", fmt.Errorf("badger store: writing %s: %w", address, err)
	}
	return address, nil
}

// PutAt implements blobstore.PutterAt. The sealed wrapper uses it to
// store ciphertext under a plaintext-derived address; compression
// still applies (and falls back to raw for the incompressible
// ciphertext case).
func (s *Store) PutAt(_ context.Context, address string, data []byte) error {
	value, err := encodeValue(data, s.compression)
	if err != nil {
		return fmt.Errorf("badger store: encoding blob %s: %w", address, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(address), value)
	})
	if err != nil {
		return fmt.Errorf("badger store: writing %s: %w", address, err)
	}
	return nil
}

// Get implements blobstore.Store. The returned bytes are exactly what
// Put received; plaintext digest verification against the ledger
// belongs to the read pipeline, not here.
func (s *Store) Get(_ context.Context, address string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(address))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("badger store: address %s: %w", address, blobstore.ErrNotFound)
		}
		return nil, fmt.Errorf("badger store: reading %s: %w", address, err)
	}

	data, err := decodeValue(value)
	if err != nil {
		return nil, fmt.Errorf("badger store: decoding %s: %w", address, err)
	}
	return data, nil
}

// Has implements blobstore.Store.
func (s *Store) Has(_ context.Context, address string) (bool, error) {
	exists, err := s.hasKey([]byte(address))
	if err != nil {
		return false, fmt.Errorf("badger store: checking %s: %w", address, err)
	}
	return exists, nil
}

func (s *Store) hasKey(key []byte) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Close flushes and closes the database. The store is unusable
// afterwards.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing badger database: %w", err)
	}
	return nil
}

func (s *Store) String() string {
	return "badger(" + s.path + ")"
}

// encodeValue builds the at-rest value: tag byte, big-endian
// uncompressed length, payload. Incompressible data falls back to a
// raw encoding with CompressionNone.
func encodeValue(data []byte, tag CompressionTag) ([]byte, error) {
	payload, err := compressChunk(data, tag)
	if err != nil {
		if errors.Is(err, errIncompressible) {
			payload = data
			tag = CompressionNone
		} else {
			return nil, err
		}
	}

	value := make([]byte, valueHeaderSize+len(payload))
	value[0] = byte(tag)
	binary.BigEndian.PutUint32(value[1:valueHeaderSize], uint32(len(data)))
	copy(value[valueHeaderSize:], payload)
	return value, nil
}

// decodeValue reverses encodeValue.
func decodeValue(value []byte) ([]byte, error) {
	if len(value) < valueHeaderSize {
		return nil, fmt.Errorf("value is %d bytes, want at least %d", len(value), valueHeaderSize)
	}
	tag := CompressionTag(value[0])
	uncompressedSize := int(binary.BigEndian.Uint32(value[1:valueHeaderSize]))
	return decompressChunk(value[valueHeaderSize:], tag, uncompressedSize)
}
