// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"filippo.io/age"

	"github.com/ledgerfs/ledgerfs/lib/blobstore"
)

// Options configures a sealed store.
type Options struct {
	// Recipients are age X25519 public keys (age1...) that new blobs
	// are encrypted to. Required for Put; a store without recipients
	// is read-only.
	Recipients []string

	// IdentityFile is the path of an age identities file
	// (AGE-SECRET-KEY-1... lines, comments allowed) used for
	// decryption. Required for Get; a store without identities is
	// write-only.
	IdentityFile string
}

var _ blobstore.Store = (*Store)(nil)

// Store encrypts blobs before handing them to an inner store and
// decrypts them on the way back out. See the package documentation
// for the addressing contract.
type Store struct {
	inner      blobstore.Store
	putter     blobstore.PutterAt
	recipients []age.Recipient
	identities []age.Identity
}

// Wrap builds a sealed store around inner. The inner store must
// implement [blobstore.PutterAt] so ciphertext can be stored under
// the plaintext-derived address.
func Wrap(inner blobstore.Store, options Options) (*Store, error) {
	putter, ok := inner.(blobstore.PutterAt)
	if !ok {
		return nil, fmt.Errorf("sealed store: inner store %s cannot store under caller-chosen addresses", inner)
	}
	if len(options.Recipients) == 0 && options.IdentityFile == "" {
		return nil, fmt.Errorf("sealed store: no recipients and no identity file configured")
	}

	store := &Store{inner: inner, putter: putter}

	for _, key := range options.Recipients {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return nil, fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		store.recipients = append(store.recipients, recipient)
	}

	if options.IdentityFile != "" {
		file, err := os.Open(options.IdentityFile)
		if err != nil {
			return nil, fmt.Errorf("opening identity file: %w", err)
		}
		defer file.Close()

		identities, err := age.ParseIdentities(file)
		if err != nil {
			return nil, fmt.Errorf("parsing identity file %s: %w", options.IdentityFile, err)
		}
		store.identities = identities
	}

	return store, nil
}

// Put implements blobstore.Store. The address is computed from the
// plaintext before encryption. Blobs already present in the inner
// store are not re-encrypted, so a duplicate chunk costs one
// existence check and no ciphertext upload.
func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	if len(s.recipients) == 0 {
		return "", fmt.Errorf("sealed store: no recipients configured, store is read-only")
	}
	address := blobstore.AddressForData(data)

	exists, err := s.inner.Has(ctx, address)
	if err != nil {
		return "", fmt.Errorf("sealed store: checking %s: %w", address, err)
	}
	if exists {
		return address, nil
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, s.recipients...)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(data); err != nil {
		return "", fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing age encryption: %w", err)
	}

	if err := s.putter.PutAt(ctx, address, ciphertext.Bytes()); err != nil {
		return "", fmt.Errorf("sealed store: storing %s: %w", address, err)
	}
	return address, nil
}

// Get implements blobstore.Store. Inner-store errors pass through
// unwrapped so blobstore.ErrNotFound stays visible to errors.Is.
func (s *Store) Get(ctx context.Context, address string) ([]byte, error) {
	if len(s.identities) == 0 {
		return nil, fmt.Errorf("sealed store: no identities configured, store is write-only")
	}

	ciphertext, err := s.inner.Get(ctx, address)
	if err != nil {
		return nil, err
	}

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), s.identities...)
	if err != nil {
		return nil, fmt.Errorf("sealed store: decrypting %s: %w", address, err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("sealed store: reading decrypted blob %s: %w", address, err)
	}
	return plaintext, nil
}

// Has implements blobstore.Store.
func (s *Store) Has(ctx context.Context, address string) (bool, error) {
	return s.inner.Has(ctx, address)
}

// Inner returns the wrapped store.
func (s *Store) Inner() blobstore.Store {
	return s.inner
}

func (s *Store) String() string {
	return "sealed(" + s.inner.String() + ")"
}
