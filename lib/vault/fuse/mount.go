// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package fuse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/ledgerfs/ledgerfs/lib/vault"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	// It is created if it does not exist.
	Mountpoint string

	// Vault provides the read and write pipelines.
	Vault *vault.Vault

	// AllowOther permits other users (including root) to access the
	// mount. Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. If nil, a quiet stderr
	// logger is used.
	Logger *slog.Logger
}

// Mount mounts the vault filesystem at the configured mountpoint. The
// caller must call Unmount on the returned server when done.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Vault == nil {
		return nil, fmt.Errorf("vault is required")
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	state := &mountState{
		vault:     options.Vault,
		logger:    options.Logger,
		transient: make(map[string]*pendingFileNode),
	}
	root := &rootNode{state: state}

	entryTimeout := 1 * time.Second
	attrTimeout := 1 * time.Second
	negativeTimeout := 100 * time.Millisecond

	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &negativeTimeout,
		MountOptions: fuse.MountOptions{
			FsName:     "ledgerfs",
			Name:       "ledgerfs",
			AllowOther: options.AllowOther,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("vault filesystem mounted", "mountpoint", options.Mountpoint)
	return server, nil
}

// mountState is shared by every node of one mount: the vault and the
// transient entries created since the mount but not yet committed.
type mountState struct {
	vault  *vault.Vault
	logger *slog.Logger

	// mu protects transient. Entries are added by Create and removed
	// once their content is recorded in the ledger.
	mu        sync.Mutex
	transient map[string]*pendingFileNode
}

func (s *mountState) lookupTransient(name string) (*pendingFileNode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.transient[name]
	return node, ok
}

func (s *mountState) removeTransient(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.transient, name)
}

// rootNode is the single directory of the mount. Its children are the
// ledger's recorded files plus the transient entries.
type rootNode struct {
	gofuse.Inode
	state *mountState
}

var (
	_ gofuse.InodeEmbedder = (*rootNode)(nil)
	_ gofuse.NodeGetattrer = (*rootNode)(nil)
	_ gofuse.NodeLookuper  = (*rootNode)(nil)
	_ gofuse.NodeReaddirer = (*rootNode)(nil)
	_ gofuse.NodeCreater   = (*rootNode)(nil)
	_ gofuse.NodeUnlinker  = (*rootNode)(nil)
	_ gofuse.NodeRenamer   = (*rootNode)(nil)
	_ gofuse.NodeMkdirer   = (*rootNode)(nil)
)

func (r *rootNode) Getattr(ctx context.Context, f gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o755
	return 0
}

func (r *rootNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	info, err := r.state.vault.Stat(name)
	if err == nil {
		node := &fileNode{state: r.state, info: info}
		child := r.NewPersistentInode(ctx, node, gofuse.StableAttr{Mode: syscall.S_IFREG})
		out.Mode = syscall.S_IFREG | 0o444
		out.Size = info.Size
		return child, 0
	}
	if !errors.Is(err, vault.ErrFileNotFound) {
		r.state.logger.Error("stat failed", "file", name, "error", err)
		return nil, syscall.EIO
	}

	if pending, ok := r.state.lookupTransient(name); ok {
		out.Mode = syscall.S_IFREG | 0o644
		out.Size = pending.handle.size()
		return pending.EmbeddedInode(), 0
	}
	return nil, syscall.ENOENT
}

func (r *rootNode) Readdir(ctx context.Context) (gofuse.DirStream, syscall.Errno) {
	recorded := r.state.vault.Files()

	seen := make(map[string]bool, len(recorded))
	entries := make([]fuse.DirEntry, 0, len(recorded))
	for _, name := range recorded {
		seen[name] = true
		entries = append(entries, fuse.DirEntry{Name: name, Mode: syscall.S_IFREG})
	}

	r.state.mu.Lock()
	for name := range r.state.transient {
		if !seen[name] {
			entries = append(entries, fuse.DirEntry{Name: name, Mode: syscall.S_IFREG})
		}
	}
	r.state.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return &sliceDirStream{entries: entries}, 0
}

func (r *rootNode) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	if err := vault.ValidateName(name); err != nil {
		return nil, nil, 0, syscall.EINVAL
	}
	if _, err := r.state.vault.Stat(name); err == nil {
		// Recorded files are immutable; they cannot be re-created.
		return nil, nil, 0, syscall.EEXIST
	}

	r.state.mu.Lock()
	if existing, ok := r.state.transient[name]; ok {
		r.state.mu.Unlock()
		out.Mode = syscall.S_IFREG | 0o644
		out.Size = existing.handle.size()
		return existing.EmbeddedInode(), existing.handle, fuse.FOPEN_DIRECT_IO, 0
	}
	handle := &writeHandle{state: r.state, name: name}
	node := &pendingFileNode{state: r.state, name: name, handle: handle}
	r.state.transient[name] = node
	r.state.mu.Unlock()

	child := r.NewPersistentInode(ctx, node, gofuse.StableAttr{Mode: syscall.S_IFREG})
	out.Mode = syscall.S_IFREG | 0o644
	return child, handle, fuse.FOPEN_DIRECT_IO, 0
}

func (r *rootNode) Unlink(ctx context.Context, name string) syscall.Errno {
	// Append-only: nothing recorded is ever removed. Transient
	// entries stay too; they vanish on their own at remount.
	return syscall.EPERM
}

func (r *rootNode) Rename(ctx context.Context, name string, newParent gofuse.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	return syscall.EPERM
}

func (r *rootNode) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	// The namespace is flat.
	return nil, syscall.EPERM
}

// fileNode is a recorded file. The first open reconstructs and
// verifies the whole file; reads are then served from memory.
type fileNode struct {
	gofuse.Inode
	state *mountState
	info  vault.FileInfo

	// mu protects content (lazy reconstruction).
	mu      sync.Mutex
	content []byte
}

var (
	_ gofuse.InodeEmbedder = (*fileNode)(nil)
	_ gofuse.NodeGetattrer = (*fileNode)(nil)
	_ gofuse.NodeSetattrer = (*fileNode)(nil)
	_ gofuse.NodeOpener    = (*fileNode)(nil)
	_ gofuse.NodeReader    = (*fileNode)(nil)
)

func (f *fileNode) Getattr(ctx context.Context, fh gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFREG | 0o444
	out.Size = f.info.Size
	out.Blocks = (out.Size + 511) / 512
	out.Blksize = uint32(f.state.vault.ChunkSize())
	modified := f.info.Modified
	out.SetTimes(nil, &modified, &modified)
	return 0
}

func (f *fileNode) Setattr(ctx context.Context, fh gofuse.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	if size, ok := in.GetSize(); ok && size != f.info.Size {
		return syscall.EPERM
	}
	return f.Getattr(ctx, fh, out)
}

func (f *fileNode) Open(ctx context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR) != 0 {
		return nil, 0, syscall.EROFS
	}

	if err := f.ensureContent(ctx); err != nil {
		f.state.logger.Error("read pipeline failed",
			"file", f.info.Name,
			"error", err,
		)
		return nil, 0, syscall.EIO
	}

	// Recorded content is immutable, so the kernel page cache is
	// always valid.
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (f *fileNode) Read(ctx context.Context, fh gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if err := f.ensureContent(ctx); err != nil {
		return nil, syscall.EIO
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if off >= int64(len(f.content)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(f.content)) {
		end = int64(len(f.content))
	}
	n := copy(dest, f.content[off:end])
	return fuse.ReadResultData(dest[:n]), 0
}

func (f *fileNode) ensureContent(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.content != nil {
		return nil
	}
	content, err := f.state.vault.ReadFile(ctx, f.info.Name)
	if err != nil {
		return err
	}
	f.content = content
	return nil
}

// sliceDirStream implements fs.DirStream from a slice of entries.
type sliceDirStream struct {
	entries []fuse.DirEntry
	index   int
}

func (s *sliceDirStream) HasNext() bool {
	return s.index < len(s.entries)
}

func (s *sliceDirStream) Next() (fuse.DirEntry, syscall.Errno) {
	if s.index >= len(s.entries) {
		return fuse.DirEntry{}, syscall.EINVAL
	}
	entry := s.entries[s.index]
	s.index++
	return entry, 0
}

func (s *sliceDirStream) Close() {}
