//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

// Package linkinput implements the typed query record(s) and database
// shapes consumed by the linkage circuit: bitmask payloads, optional
// (missing) field entries, and the client/server input views.
package linkinput

// Bitmask is a byte sequence standing in for a privacy-preserving field
// encoding (e.g. a Bloom filter of n-grams, or a fixed-width integer).
type Bitmask []byte

// ByteWidth returns the number of bytes needed to hold bitWidth bits.
func ByteWidth(bitWidth int) int {
	return (bitWidth + 7) / 8
}

// NewBitmask returns a zero-valued Bitmask sized for bitWidth bits.
func NewBitmask(bitWidth int) Bitmask {
	return make(Bitmask, ByteWidth(bitWidth))
}

// Entry is an optional Bitmask field value. A missing entry is the
// distinguished "no value" marker: it contributes zero weight wherever
// it is compared.
type Entry struct {
	value   Bitmask
	present bool
}

// Missing returns the distinguished "no value" entry.
func Missing() Entry {
	return Entry{}
}

// Present returns an entry holding value.
func Present(value Bitmask) Entry {
	return Entry{value: value, present: true}
}

// IsPresent reports whether the entry holds a value.
func (e Entry) IsPresent() bool {
	return e.present
}

// Value returns the entry's bitmask. Its result is unspecified for a
// missing entry; callers should check IsPresent first.
func (e Entry) Value() Bitmask {
	return e.value
}

// ValueOrZero returns the entry's bitmask if present, or a zero-valued
// bitmask of the given bit width otherwise. This mirrors the source's
// value_or(Bitmask(bytesize)) pattern used when materialising circuit
// input shares.
func (e Entry) ValueOrZero(bitWidth int) Bitmask {
	if e.present {
		return e.value
	}
	return NewBitmask(bitWidth)
}

// Delta returns 1 if the entry is present, 0 otherwise — the arithmetic
// δ flag used throughout the weight computation.
func (e Entry) Delta() uint64 {
	if e.present {
		return 1
	}
	return 0
}
