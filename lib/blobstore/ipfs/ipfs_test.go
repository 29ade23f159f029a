// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package ipfs

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ledgerfs/ledgerfs/lib/blobstore"
)

// fakeKubo is an httptest handler speaking just enough of the Kubo
// RPC API for the store: add, cat, block/stat, version.
type fakeKubo struct {
	mu     sync.Mutex
	blocks map[string][]byte
	adds   int
}

func newFakeKubo() *fakeKubo {
	return &fakeKubo{blocks: make(map[string][]byte)}
}

// fakeCID derives a deterministic CID-shaped address, mirroring that
// identical bytes get identical CIDs from a real daemon.
func fakeCID(data []byte) string {
	sum := sha256.Sum256(data)
	return "Qm" + hex.EncodeToString(sum[:16])
}

func (f *fakeKubo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case "/api/v0/add":
		file, _, err := r.FormFile("file")
		if err != nil {
			writeKuboError(w, fmt.Sprintf("reading form file: %v", err))
			return
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			writeKuboError(w, fmt.Sprintf("reading chunk: %v", err))
			return
		}

		cid := fakeCID(data)
		f.mu.Lock()
		f.blocks[cid] = data
		f.adds++
		f.mu.Unlock()

		json.NewEncoder(w).Encode(map[string]string{
			"Name": "chunk",
			"Hash": cid,
			"Size": fmt.Sprint(len(data)),
		})

	case "/api/v0/cat":
		cid := r.URL.Query().Get("arg")
		f.mu.Lock()
		data, exists := f.blocks[cid]
		f.mu.Unlock()
		if !exists {
			writeKuboError(w, "ipld: could not find node")
			return
		}
		w.Write(data)

	case "/api/v0/block/stat":
		cid := r.URL.Query().Get("arg")
		f.mu.Lock()
		data, exists := f.blocks[cid]
		f.mu.Unlock()
		if !exists {
			writeKuboError(w, "block was not found locally (offline)")
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"Key": cid, "Size": len(data)})

	case "/api/v0/version":
		json.NewEncoder(w).Encode(map[string]string{"Version": "0.29.0-fake"})

	default:
		writeKuboError(w, fmt.Sprintf("unknown endpoint %s", r.URL.Path))
	}
}

func writeKuboError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]any{
		"Message": message,
		"Code":    0,
		"Type":    "error",
	})
}

func newTestStore(t *testing.T) (*Store, *fakeKubo) {
	t.Helper()
	fake := newFakeKubo()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	store, err := New(Options{APIURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store, fake
}

func TestPutGetRoundtrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	data := []byte("chunk bound for ipfs")
	address, err := store.Put(ctx, data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if address == "" {
		t.Fatal("Put returned empty address")
	}

	got, err := store.Get(ctx, address)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get = %q, want %q", got, data)
	}
}

func TestPutAddressIsDeterministic(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	data := []byte("pinned twice")
	addr1, err := store.Put(ctx, data)
	if err != nil {
		t.Fatal(err)
	}
	addr2, err := store.Put(ctx, data)
	if err != nil {
		t.Fatal(err)
	}

	if addr1 != addr2 {
		t.Errorf("identical payloads got different CIDs: %s vs %s", addr1, addr2)
	}
	fake.mu.Lock()
	held := len(fake.blocks)
	fake.mu.Unlock()
	if held != 1 {
		t.Errorf("daemon holds %d blocks, want 1", held)
	}
}

func TestGetMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "QmMissing")
	if !errors.Is(err, blobstore.ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
}

func TestHas(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	address, err := store.Put(ctx, []byte("present"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	exists, err := store.Has(ctx, address)
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	if !exists {
		t.Error("Has = false for a pinned block")
	}

	exists, err = store.Has(ctx, "QmMissing")
	if err != nil {
		t.Fatalf("Has on missing block: %v", err)
	}
	if exists {
		t.Error("Has = true for an unknown CID")
	}
}

func TestVersion(t *testing.T) {
	store, _ := newTestStore(t)

	version, err := store.Version(context.Background())
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if version != "0.29.0-fake" {
		t.Errorf("Version = %q, want %q", version, "0.29.0-fake")
	}
}

func TestVersionUnreachableDaemon(t *testing.T) {
	server := httptest.NewServer(newFakeKubo())
	store, err := New(Options{APIURL: server.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	server.Close()

	if _, err := store.Version(context.Background()); err == nil {
		t.Error("Version succeeded against a closed daemon")
	}
}

func TestNewValidatesURL(t *testing.T) {
	tests := []struct {
		name   string
		apiURL string
	}{
		{"empty", ""},
		{"bad scheme", "ftp://127.0.0.1:5001"},
		{"garbage", "http://[::1"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := New(Options{APIURL: test.apiURL}); err == nil {
				t.Errorf("New(%q) succeeded, want error", test.apiURL)
			}
		})
	}
}

func TestIsNotFoundMessage(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"merkledag: not found", true},
		{"ipld: could not find node", true},
		{"block was not found locally (offline)", true},
		{"context deadline exceeded", false},
		{"invalid cid", false},
	}
	for _, test := range tests {
		if got := isNotFoundMessage(test.message); got != test.want {
			t.Errorf("isNotFoundMessage(%q) = %v, want %v", test.message, got, test.want)
		}
	}
}
