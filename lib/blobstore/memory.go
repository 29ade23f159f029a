// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package blobstore

import (
	"context"
	"fmt"
	"sync"
)

var (
	_ Store    = (*Memory)(nil)
	_ PutterAt = (*Memory)(nil)
)

// Memory is a map-backed Store. It is the development and test
// backend; nothing about it is durable.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Put implements Store. The data is copied, so the caller may reuse
// its buffer.
func (m *Memory) Put(_ context.Context, data []byte) (string, error) {
	address := AddressForData(data)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.blobs[address]; !exists {
		stored := make([]byte, len(data))
		copy(stored, data)
		m.blobs[address] = stored
	}
	return address, nil
}

// PutAt implements PutterAt. The data is copied.
func (m *Memory) PutAt(_ context.Context, address string, data []byte) error {
	stored := make([]byte, len(data))
	copy(stored, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[address] = stored
	return nil
}

// Get implements Store. The returned slice is a copy.
func (m *Memory) Get(_ context.Context, address string) ([]byte, error) {
	m.mu.RLock()
	stored, exists := m.blobs[address]
	m.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("memory store: address %s: %w", address, ErrNotFound)
	}
	data := make([]byte, len(stored))
	copy(data, stored)
	return data, nil
}

// Has implements Store.
func (m *Memory) Has(_ context.Context, address string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.blobs[address]
	return exists, nil
}

// Len returns the number of distinct blobs held. Tests use this to
// check deduplication.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

// Corrupt overwrites the blob at address with data, bypassing content
// addressing. It exists so integrity tests can simulate blob-side
// tampering; returns false when the address is unknown.
func (m *Memory) Corrupt(address string, data []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.blobs[address]; !exists {
		return false
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	m.blobs[address] = stored
	return true
}

// Delete removes the blob at address. Tests use this to simulate a
// blob store that lost data.
func (m *Memory) Delete(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, address)
}

func (m *Memory) String() string {
	return "memory"
}
