// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package vault

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerfs/ledgerfs/lib/blobstore"
	"github.com/ledgerfs/ledgerfs/lib/blobstore/badgerstore"
	"github.com/ledgerfs/ledgerfs/lib/blobstore/ipfs"
	"github.com/ledgerfs/ledgerfs/lib/blobstore/s3"
	"github.com/ledgerfs/ledgerfs/lib/blobstore/sealed"
	"github.com/ledgerfs/ledgerfs/lib/config"
	"github.com/ledgerfs/ledgerfs/lib/ledger"
)

// noopClose is the cleanup for backends with nothing to release.
func noopClose() error { return nil }

// OpenStore builds the blob store described by cfg: the configured
// backend, wrapped in sealed encryption and the read cache when those
// are configured. The returned cleanup closes the backend; call it
// once the store is no longer used.
//
// The config must already validate; OpenStore reports backend errors
// (unreachable daemon, unopenable database), not configuration shape
// errors.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (blobstore.Store, func() error, error) {
	var (
		store      blobstore.Store
		closeStore = noopClose
	)

	switch cfg.Store.Backend {
	case "memory":
		store = blobstore.NewMemory()

	case "badger":
		compression := badgerstore.CompressionZstd
		if cfg.Store.Badger.Compression != "" {
			var err error
			compression, err = badgerstore.ParseCompressionTag(cfg.Store.Badger.Compression)
			if err != nil {
				return nil, nil, fmt.Errorf("opening blob store: %w", err)
			}
		}
		badgerStore, err := badgerstore.Open(badgerstore.Options{
			Path:             cfg.Store.Badger.Path,
			Compression:      compression,
			NoSync:           cfg.Store.Badger.NoSync,
			MinimumFreeBytes: cfg.Store.Badger.MinimumFreeBytes,
			Logger:           logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening blob store: %w", err)
		}
		store, closeStore = badgerStore, badgerStore.Close

	case "ipfs":
		var timeout time.Duration
		if cfg.Store.IPFS.Timeout != "" {
			var err error
			timeout, err = time.ParseDuration(cfg.Store.IPFS.Timeout)
			if err != nil {
				return nil, nil, fmt.Errorf("opening blob store: parsing ipfs timeout: %w", err)
			}
		}
		ipfsStore, err := ipfs.New(ipfs.Options{
			APIURL:  cfg.Store.IPFS.APIURL,
			Timeout: timeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening blob store: %w", err)
		}
		store = ipfsStore

	case "s3":
		s3Store, err := s3.New(ctx, s3.Options{
			Endpoint:        cfg.Store.S3.Endpoint,
			Region:          cfg.Store.S3.Region,
			Bucket:          cfg.Store.S3.Bucket,
			AccessKeyID:     cfg.Store.S3.AccessKeyID,
			SecretAccessKey: cfg.Store.S3.SecretAccessKey,
			PathStyle:       cfg.Store.S3.PathStyle,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening blob store: %w", err)
		}
		store = s3Store

	default:
		return nil, nil, fmt.Errorf("opening blob store: unknown backend %q", cfg.Store.Backend)
	}

	if cfg.SealedEnabled() {
		sealedStore, err := sealed.Wrap(store, sealed.Options{
			Recipients:   cfg.Store.Sealed.Recipients,
			IdentityFile: cfg.Store.Sealed.IdentityFile,
		})
		if err != nil {
			closeStore()
			return nil, nil, fmt.Errorf("opening blob store: %w", err)
		}
		store = sealedStore
	}

	if cfg.Store.CacheSize > 0 {
		cache, err := blobstore.NewCache(store, cfg.Store.CacheSize)
		if err != nil {
			closeStore()
			return nil, nil, fmt.Errorf("opening blob store: %w", err)
		}
		store = cache
	}

	return store, closeStore, nil
}

// Probe checks the backend behind store is alive: Version for the
// Kubo backend, Ping for the S3 backend, nothing for local stores
// (opening them already proved them usable). Wrappers are unwrapped
// via their Inner accessor, so the store OpenStore returned can be
// probed directly.
func Probe(ctx context.Context, store blobstore.Store) error {
	switch s := store.(type) {
	case *ipfs.Store:
		if _, err := s.Version(ctx); err != nil {
			return fmt.Errorf("probing %s: %w", s, err)
		}
		return nil
	case *s3.Store:
		if err := s.Ping(ctx); err != nil {
			return fmt.Errorf("probing %s: %w", s, err)
		}
		return nil
	case interface{ Inner() blobstore.Store }:
		return Probe(ctx, s.Inner())
	default:
		return nil
	}
}

// Open opens the ledger and blob store described by cfg and
// assembles the vault. The returned cleanup closes the blob store.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Vault, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, nil, fmt.Errorf("preparing data directories: %w", err)
	}

	store, closeStore, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	miner := ledger.Miner{
		Difficulty: cfg.Ledger.Difficulty,
		MaxNonce:   cfg.Ledger.MaxNonce,
	}
	chain, err := ledger.Open(cfg.Ledger.Path, miner, logger)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("opening ledger: %w", err)
	}

	v, err := New(Options{
		ChunkSize: cfg.Vault.ChunkSize,
		Store:     store,
		Ledger:    chain,
		Logger:    logger,
	})
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	return v, closeStore, nil
}
