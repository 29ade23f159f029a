// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filippo.io/age"

	"github.com/ledgerfs/ledgerfs/lib/blobstore"
)

// newTestIdentity generates an age keypair and writes the identity to
// a file, returning the recipient public key and the file path.
func newTestIdentity(t *testing.T) (recipient, identityFile string) {
	t.Helper()
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("generating identity: %v", err)
	}
	path := filepath.Join(t.TempDir(), "identity.txt")
	if err := os.WriteFile(path, []byte(identity.String()+"\n"), 0o600); err != nil {
		t.Fatalf("writing identity file: %v", err)
	}
	return identity.Recipient().String(), path
}

func TestPutGetRoundtrip(t *testing.T) {
	recipient, identityFile := newTestIdentity(t)
	inner := blobstore.NewMemory()
	store, err := Wrap(inner, Options{
		Recipients:   []string{recipient},
		IdentityFile: identityFile,
	})
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	ctx := context.Background()

	data := []byte("confidential chunk payload")
	address, err := store.Put(ctx, data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if address != blobstore.AddressForData(data) {
		t.Errorf("address %s is not plaintext-derived, want %s", address, blobstore.AddressForData(data))
	}

	got, err := store.Get(ctx, address)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get = %q, want %q", got, data)
	}
}

func TestInnerStoreHoldsCiphertext(t *testing.T) {
	recipient, identityFile := newTestIdentity(t)
	inner := blobstore.NewMemory()
	store, err := Wrap(inner, Options{
		Recipients:   []string{recipient},
		IdentityFile: identityFile,
	})
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	ctx := context.Background()

	data := []byte("must never appear at rest")
	address, err := store.Put(ctx, data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	atRest, err := inner.Get(ctx, address)
	if err != nil {
		t.Fatalf("inner Get: %v", err)
	}
	if bytes.Contains(atRest, data) {
		t.Error("plaintext visible in inner store")
	}
	if !bytes.HasPrefix(atRest, []byte("age-encryption.org/v1")) {
		t.Errorf("stored bytes lack the age header, got prefix %q", atRest[:min(len(atRest), 24)])
	}
}

func TestPutDeduplicates(t *testing.T) {
	recipient, identityFile := newTestIdentity(t)
	inner := blobstore.NewMemory()
	store, err := Wrap(inner, Options{
		Recipients:   []string{recipient},
		IdentityFile: identityFile,
	})
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	ctx := context.Background()

	data := []byte("stored twice, held once")
	addr1, err := store.Put(ctx, data)
	if err != nil {
		t.Fatal(err)
	}
	addr2, err := store.Put(ctx, data)
	if err != nil {
		t.Fatal(err)
	}

	if addr1 != addr2 {
		t.Errorf("identical payloads got different addresses: %s vs %s", addr1, addr2)
	}
	if inner.Len() != 1 {
		t.Errorf("inner store holds %d blobs after duplicate put, want 1", inner.Len())
	}
}

func TestWriteOnlyStore(t *testing.T) {
	recipient, _ := newTestIdentity(t)
	store, err := Wrap(blobstore.NewMemory(), Options{Recipients: []string{recipient}})
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	ctx := context.Background()

	address, err := store.Put(ctx, []byte("archived"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := store.Get(ctx, address); err == nil {
		t.Error("Get succeeded without an identity")
	} else if !strings.Contains(err.Error(), "write-only") {
		t.Errorf("Get error = %v, want write-only explanation", err)
	}
}

func TestReadOnlyStore(t *testing.T) {
	recipient, identityFile := newTestIdentity(t)
	inner := blobstore.NewMemory()

	// Seed via a writable wrapper, then reopen read-only.
	writer, err := Wrap(inner, Options{Recipients: []string{recipient}})
	if err != nil {
		t.Fatalf("Wrap writer: %v", err)
	}
	ctx := context.Background()
	data := []byte("sealed earlier")
	address, err := writer.Put(ctx, data)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	reader, err := Wrap(inner, Options{IdentityFile: identityFile})
	if err != nil {
		t.Fatalf("Wrap reader: %v", err)
	}
	got, err := reader.Get(ctx, address)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Get = %q, want %q", got, data)
	}

	if _, err := reader.Put(ctx, []byte("new")); err == nil {
		t.Error("Put succeeded without recipients")
	}
}

func TestWrongIdentityFailsDecryption(t *testing.T) {
	recipient, _ := newTestIdentity(t)
	_, otherIdentityFile := newTestIdentity(t)

	inner := blobstore.NewMemory()
	store, err := Wrap(inner, Options{
		Recipients:   []string{recipient},
		IdentityFile: otherIdentityFile,
	})
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	ctx := context.Background()

	address, err := store.Put(ctx, []byte("for someone else"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := store.Get(ctx, address); err == nil {
		t.Error("Get decrypted with the wrong identity")
	}
}

func TestGetUnknownAddress(t *testing.T) {
	recipient, identityFile := newTestIdentity(t)
	store, err := Wrap(blobstore.NewMemory(), Options{
		Recipients:   []string{recipient},
		IdentityFile: identityFile,
	})
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}

	_, err = store.Get(context.Background(), "deadbeef")
	if !errors.Is(err, blobstore.ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
}

func TestHasDelegates(t *testing.T) {
	recipient, identityFile := newTestIdentity(t)
	inner := blobstore.NewMemory()
	store, err := Wrap(inner, Options{
		Recipients:   []string{recipient},
		IdentityFile: identityFile,
	})
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
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
		t.Error("Has = false for a stored blob")
	}

	exists, err = store.Has(ctx, "deadbeef")
	if err != nil {
		t.Fatalf("Has: %v", err)
	}
	if exists {
		t.Error("Has = true for an unknown address")
	}
}

// contentOnlyStore hides Memory's PutAt so Wrap sees a store without
// caller-chosen addressing.
type contentOnlyStore struct {
	inner *blobstore.Memory
}

func (c *contentOnlyStore) Put(ctx context.Context, data []byte) (string, error) {
	return c.inner.Put(ctx, data)
}

func (c *contentOnlyStore) Get(ctx context.Context, address string) ([]byte, error) {
	return c.inner.Get(ctx, address)
}

func (c *contentOnlyStore) Has(ctx context.Context, address string) (bool, error) {
	return c.inner.Has(ctx, address)
}

func (c *contentOnlyStore) String() string { return "content-only" }

func TestWrapRejectsNativeAddressing(t *testing.T) {
	recipient, _ := newTestIdentity(t)
	_, err := Wrap(&contentOnlyStore{inner: blobstore.NewMemory()}, Options{
		Recipients: []string{recipient},
	})
	if err == nil {
		t.Fatal("Wrap accepted a store without PutAt")
	}
}

func TestWrapRejectsEmptyOptions(t *testing.T) {
	if _, err := Wrap(blobstore.NewMemory(), Options{}); err == nil {
		t.Fatal("Wrap accepted options with neither recipients nor identity file")
	}
}

func TestWrapRejectsBadRecipient(t *testing.T) {
	_, err := Wrap(blobstore.NewMemory(), Options{Recipients: []string{"not-an-age-key"}})
	if err == nil {
		t.Fatal("Wrap accepted a malformed recipient key")
	}
}

func TestString(t *testing.T) {
	recipient, _ := newTestIdentity(t)
	store, err := Wrap(blobstore.NewMemory(), Options{Recipients: []string{recipient}})
	if err != nil {
		t.Fatalf("Wrap: %v", err)
	}
	if got := store.String(); got != "sealed(memory)" {
		t.Errorf("String() = %q, want %q", got, "sealed(memory)")
	}
}
