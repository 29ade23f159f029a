// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

var _ Store = (*Cache)(nil)

// Cache is a read-through LRU wrapper around another Store. Reads of
// recently used chunks (directory listings re-stat files, FUSE reads
// the same file repeatedly) skip the backend entirely. Writes populate
// the cache on the way through.
//
// Cached values are the plaintext chunk bytes keyed by address, so the
// cache sits correctly in front of compressing or encrypting backends.
type Cache struct {
	inner   Store
	entries *lru.Cache[string, []byte]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCache wraps inner with an LRU holding at most capacity blobs.
func NewCache(inner Store, capacity int) (*Cache, error) {
	entries, err := lru.New[string, []byte](capacity)
	if err != nil {
		return nil, fmt.Errorf("creating blob cache: %w", err)
	}
	return &Cache{inner: inner, entries: entries}, nil
}

// Inner returns the wrapped store.
func (c *Cache) Inner() Store {
	return c.inner
}

// Put implements Store. The blob is stored in the backend first; the
// cache is only populated once the backend accepted it, so a cached
// entry always implies a durable blob.
func (c *Cache) Put(ctx context.Context, data []byte) (string, error) {
	address, err := c.inner.Put(ctx, data)
	if err != nil {
		return "", err
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	c.entries.Add(address, stored)
	return address, nil
}

// Get implements Store. The returned slice is a copy; callers may not
// see each other's buffers.
func (c *Cache) Get(ctx context.Context, address string) ([]byte, error) {
	if cached, ok := c.entries.Get(address); ok {
		c.hits.Add(1)
		data := make([]byte, len(cached))
		copy(data, cached)
		return data, nil
	}
	c.misses.Add(1)

	data, err := c.inner.Get(ctx, address)
	if err != nil {
		return nil, err
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	c.entries.Add(address, stored)
	return data, nil
}

// Has implements Store. A cache hit answers without touching the
// backend; a miss defers to it.
func (c *Cache) Has(ctx context.Context, address string) (bool, error) {
	if c.entries.Contains(address) {
		return true, nil
	}
	return c.inner.Has(ctx, address)
}

// Stats returns the lifetime hit and miss counts.
func (c *Cache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Cache) String() string {
	return "cache(" + c.inner.String() + ")"
}
