// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package s3 implements the blob store against an S3-compatible
// object store (AWS S3, MinIO, Ceph RGW). Addresses are the canonical
// plaintext-derived form from [blobstore.AddressForData]; object keys
// shard the address two characters deep ("aabbcc..." becomes
// "aa/bbcc...") so bucket listings stay navigable.
//
// The bucket must already exist. Credentials come from the static
// pair in Options when set, otherwise from the SDK's ambient chain
// (environment, shared config, IMDS). MinIO deployments set Endpoint
// to the server URL and PathStyle to true, since MinIO does not serve
// virtual-hosted bucket addressing.
package s3
