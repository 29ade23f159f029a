// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"context"
	"errors"
	"sync"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/ledgerfs/ledgerfs/lib/vault"
)

// writeHandle buffers data for an in-progress write and runs the write
// pipeline on Flush. Returned by Create and by re-opens of the pending
// entry.
//
// The buffer grows to hold all written data in memory. On the closing
// Flush the complete content goes through Vault.WriteFile in one pass,
// so chunking covers the whole file regardless of how the kernel split
// the incoming write(2) calls.
type writeHandle struct {
	state *mountState
	name  string

	mu     sync.Mutex
	buffer []byte

	// written flips once the pipeline has recorded the content.
	// Dup'd descriptors flush the same handle more than once; the
	// pipeline must run at most once.
	written bool
}

var (
	_ gofuse.FileReader   = (*writeHandle)(nil)
	_ gofuse.FileWriter   = (*writeHandle)(nil)
	_ gofuse.FileFlusher  = (*writeHandle)(nil)
	_ gofuse.FileReleaser = (*writeHandle)(nil)
)

func (h *writeHandle) size() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return uint64(len(h.buffer))
}

// truncate resizes the buffer. Only pending content can be resized.
func (h *writeHandle) truncate(size uint64) syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.written {
		return syscall.EPERM
	}
	switch {
	case size < uint64(len(h.buffer)):
		h.buffer = h.buffer[:size]
	case size > uint64(len(h.buffer)):
		grown := make([]byte, size)
		copy(grown, h.buffer)
		h.buffer = grown
	}
	return 0
}

// Read serves the buffered content, so a just-written file reads back
// before it is committed.
func (h *writeHandle) Read(_ context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if off >= int64(len(h.buffer)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(h.buffer)) {
		end = int64(len(h.buffer))
	}
	n := copy(dest, h.buffer[off:end])
	return fuse.ReadResultData(dest[:n]), 0
}

// Write appends data at the given offset, growing the buffer as
// needed. Supports both sequential writes (the common case for cp,
// shell redirection, curl) and random-offset writes.
func (h *writeHandle) Write(_ context.Context, data []byte, offset int64) (uint32, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.written {
		return 0, syscall.EPERM
	}

	endOffset := offset + int64(len(data))
	if endOffset > int64(len(h.buffer)) {
		grown := make([]byte, endOffset)
		copy(grown, h.buffer)
		h.buffer = grown
	}
	copy(h.buffer[offset:], data)
	return uint32(len(data)), 0
}

// Flush commits the buffered content. Called on every close of a
// descriptor for this handle; the pipeline runs on the first close
// that sees content. An empty buffer commits nothing: zero-byte files
// stay transient.
func (h *writeHandle) Flush(ctx context.Context) syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.written || len(h.buffer) == 0 {
		return 0
	}

	if _, err := h.state.vault.WriteFile(ctx, h.name, h.buffer); err != nil {
		h.state.logger.Error("write pipeline failed",
			"file", h.name,
			"bytes", len(h.buffer),
			"error", err,
		)
		switch {
		case errors.Is(err, vault.ErrFileExists):
			// Lost a race with another writer of the same name; the
			// recorded file wins and this entry is obsolete.
			h.state.removeTransient(h.name)
			return syscall.EEXIST
		case errors.Is(err, vault.ErrInvalidName):
			return syscall.EINVAL
		default:
			// Left pending: a later close retries the pipeline.
			return syscall.EIO
		}
	}

	h.written = true
	h.state.removeTransient(h.name)
	return 0
}

// Release is called when the last reference to the handle is dropped.
// Commit is handled in Flush.
func (h *writeHandle) Release(_ context.Context) syscall.Errno {
	return 0
}

// pendingFileNode is the inode for a created-but-uncommitted file. It
// reports the buffered size while the write is in progress, so
// create(2) followed by stat(2) behaves normally, and keeps serving
// the content after commit until the kernel forgets the entry.
type pendingFileNode struct {
	gofuse.Inode
	state  *mountState
	name   string
	handle *writeHandle
}

var (
	_ gofuse.InodeEmbedder = (*pendingFileNode)(nil)
	_ gofuse.NodeGetattrer = (*pendingFileNode)(nil)
	_ gofuse.NodeSetattrer = (*pendingFileNode)(nil)
	_ gofuse.NodeOpener    = (*pendingFileNode)(nil)
)

func (p *pendingFileNode) Getattr(_ context.Context, _ gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFREG | 0o644
	out.Size = p.handle.size()
	return 0
}

func (p *pendingFileNode) Setattr(_ context.Context, _ gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok {
		if errno := p.handle.truncate(size); errno != 0 {
			return errno
		}
	}
	out.Mode = syscall.S_IFREG | 0o644
	out.Size = p.handle.size()
	return 0
}

func (p *pendingFileNode) Open(_ context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		p.handle.mu.Lock()
		written := p.handle.written
		p.handle.mu.Unlock()
		if written {
			// The content is recorded now; further writes are
			// modifications, which the ledger does not allow.
			return nil, 0, syscall.EPERM
		}
	}
	return p.handle, fuse.FOPEN_DIRECT_IO, 0
}
