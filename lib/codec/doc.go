// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides LedgerFS's standard CBOR encoding configuration.
//
// LedgerFS uses two serialization formats with a clear boundary:
//
//   - CBOR for durable state: the persisted ledger document and any
//     on-disk metadata records. Durable state must re-encode to the
//     exact same bytes across processes and releases.
//   - JSON for external surfaces: CLI --json output and nothing else.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every LedgerFS package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations:
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
//
// # Struct Tag Rules
//
// The struct tag on a type documents its serialization format:
//
//   - `cbor` tag: this type is ONLY ever serialized as CBOR and never
//     appears in CLI JSON output. Example: the on-disk ledger document
//     envelope.
//   - `json` tag: this type may be serialized as BOTH JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags as fallback when `cbor` tags
//     are absent, so a single `json` tag controls field naming and
//     omitempty for both formats. Example: ledger blocks, which live in
//     the CBOR document and in `ledgerfs blocks --json` output.
//
// Never use both `cbor` and `json` tags on the same field. The tag
// choice documents the contract.
package codec
