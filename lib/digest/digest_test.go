// Copyright 2026 The LedgerFS Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestDomainKeysAreDistinct(t *testing.T) {
	// Domain separation means the same input produces different digests
	// in different domains.
	input := []byte("the same input bytes for both domains")

	chunkDigest := HashChunk(input)
	blockDigest := HashBlock(input)

	if chunkDigest == blockDigest {
		t.Error("chunk and block domain produced the same digest for identical input")
	}
}

func TestHashChunkDeterministic(t *testing.T) {
	input := []byte("deterministic input")

	d1 := HashChunk(input)
	d2 := HashChunk(input)
	if d1 != d2 {
		t.Error("HashChunk produced different results for the same input")
	}
}

func TestHashChunkEmptyInput(t *testing.T) {
	// Empty input still produces a valid (non-zero) keyed digest.
	d := HashChunk(nil)
	if d.IsZero() {
		t.Error("HashChunk returned zero digest for nil input")
	}

	d2 := HashChunk([]byte{})
	if d2.IsZero() {
		t.Error("HashChunk returned zero digest for empty slice")
	}

	// nil and empty slice produce the same digest.
	if d != d2 {
		t.Error("HashChunk(nil) != HashChunk([]byte{})")
	}
}

func TestBlockHasherMatchesHashBlock(t *testing.T) {
	hasher := NewBlockHasher()
	inputs := [][]byte{
		[]byte("first candidate"),
		[]byte("second candidate"),
		nil,
		[]byte("first candidate"),
	}

	for _, input := range inputs {
		got := hasher.Sum(input)
		want := HashBlock(input)
		if got != want {
			t.Errorf("BlockHasher.Sum(%q) = %s, want %s", input, got, want)
		}
	}
}

func TestIsZero(t *testing.T) {
	var zero Digest
	if !zero.IsZero() {
		t.Error("zero digest reported as non-zero")
	}
	if HashChunk([]byte("x")).IsZero() {
		t.Error("non-zero digest reported as zero")
	}
}

func TestLeadingZeroHexDigits(t *testing.T) {
	tests := []struct {
		name string
		hex  string
		want int
	}{
		{"no_zeros", "ff" + strings.Repeat("00", 31), 0},
		{"one_zero", "0f" + strings.Repeat("ab", 31), 1},
		{"two_zeros", "00f" + "f" + strings.Repeat("ab", 30), 2},
		{"three_zeros", "000f" + strings.Repeat("ab", 30), 3},
		{"five_zeros", "00000f" + "ff" + strings.Repeat("ab", 29), 5},
		{"all_zeros", strings.Repeat("00", 32), 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(tt.hex)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.hex, err)
			}
			if got := d.LeadingZeroHexDigits(); got != tt.want {
				t.Errorf("LeadingZeroHexDigits() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStringFormat(t *testing.T) {
	d := HashChunk([]byte("test"))
	formatted := d.String()

	if len(formatted) != 64 {
		t.Errorf("String length = %d, want 64", len(formatted))
	}

	// Verify it's valid hex.
	if _, err := hex.DecodeString(formatted); err != nil {
		t.Errorf("String produced invalid hex: %v", err)
	}
}

func TestParseRoundtrip(t *testing.T) {
	original := HashChunk([]byte("roundtrip test"))

	parsed, err := Parse(original.String())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if parsed != original {
		t.Errorf("Parse roundtrip failed: got %s, want %s", parsed, original)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"too_short", "abcdef"},
		{"too_long", strings.Repeat("ab", 33)},
		{"invalid_hex", strings.Repeat("zz", 32)},
		{"odd_length", strings.Repeat("a", 63)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Errorf("Parse(%q) succeeded, want error", tt.input)
			}
		})
	}
}

func TestTextMarshalRoundtrip(t *testing.T) {
	original := HashChunk([]byte("text marshal"))

	text, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	if string(text) != original.String() {
		t.Errorf("MarshalText = %q, want %q", text, original.String())
	}

	var decoded Digest
	if err := decoded.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if decoded != original {
		t.Errorf("text roundtrip: got %s, want %s", decoded, original)
	}
}

func TestUnmarshalTextRejectsGarbage(t *testing.T) {
	var d Digest
	if err := d.UnmarshalText([]byte("not hex at all")); err == nil {
		t.Error("UnmarshalText accepted invalid input")
	}
}
