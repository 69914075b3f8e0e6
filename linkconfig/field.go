//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

package linkconfig

import (
	"fmt"
	"math"
)

// Comparator selects how two values of a field are compared.
type Comparator int

// Field comparators.
const (
	// SetSimilarity compares two bitmasks by their set-similarity
	// coefficient (a Dice-style coefficient over popcounts), suited to
	// Bloom-filter-encoded fields such as n-gram sets of names.
	SetSimilarity Comparator = iota
	// Equality compares two values bit-for-bit.
	Equality
)

func (c Comparator) String() string {
	switch c {
	case SetSimilarity:
		return "SET_SIMILARITY"
	case Equality:
		return "EQUALITY"
	default:
		return fmt.Sprintf("Comparator(%d)", int(c))
	}
}

// FieldDescriptor describes one linkable field.
type FieldDescriptor struct {
	// Name identifies the field; it is the key used in ClientInput and
	// ServerInput record maps.
	Name string
	// Weight is the field's contribution to the link score. Must be a
	// positive finite real.
	Weight float64
	// Comparator selects the per-field comparison gadget.
	Comparator Comparator
	// BitWidth is the payload width in bits.
	BitWidth int
	// TypeHint is an optional, purely informational annotation (e.g.
	// "firstname", "birthdate") that the core never interprets.
	TypeHint string
}

// ByteWidth returns the number of bytes needed to hold BitWidth bits.
func (f FieldDescriptor) ByteWidth() int {
	return (f.BitWidth + 7) / 8
}

func (f FieldDescriptor) validate(op string) error {
	if f.Name == "" {
		return NewError(InvalidConfig, op, fmt.Errorf("field has empty name"))
	}
	if !(f.Weight > 0) {
		return NewError(InvalidConfig, op,
			fmt.Errorf("field %q: weight must be positive, got %v", f.Name, f.Weight))
	}
	if math.IsNaN(f.Weight) || math.IsInf(f.Weight, 0) {
		return NewError(InvalidConfig, op,
			fmt.Errorf("field %q: weight must be finite, got %v", f.Name, f.Weight))
	}
	if f.BitWidth <= 0 {
		return NewError(InvalidConfig, op,
			fmt.Errorf("field %q: bit_width must be positive, got %d", f.Name, f.BitWidth))
	}
	switch f.Comparator {
	case SetSimilarity, Equality:
	default:
		return NewError(InvalidConfig, op,
			fmt.Errorf("field %q: unknown comparator %v", f.Name, f.Comparator))
	}
	return nil
}

// ExchangeGroup lists the names of fields that are interchangeable
// under permutation (e.g. first name / maiden name / birth name). Order
// within the group only matters for the documented lexicographic
// permutation enumeration and its tie-break.
type ExchangeGroup []string
