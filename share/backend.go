//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

// Package share defines the abstract secure-computation backend contract
// that the linkage circuit is built against: boolean and arithmetic
// shares, the gates that combine them, and the two roles of a two-party
// protocol. Everything above this package — gadgets, circuitbuilder,
// engine — depends only on this interface, never on a concrete MPC
// protocol.
package share

import "fmt"

// Role identifies which of the two parties a share, an input or a reveal
// belongs to.
type Role int

// The two parties of the protocol.
const (
	Client Role = iota
	Server
)

func (r Role) String() string {
	switch r {
	case Client:
		return "Client"
	case Server:
		return "Server"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// BoolShare is an opaque handle to a boolean-shared value carrying NVals
// SIMD lanes of Width bits each. Its Handle field is owned entirely by
// the Backend that created it; callers must never inspect or construct
// one directly.
type BoolShare struct {
	Width  int
	NVals  int
	Handle any
}

// ArithShare is an opaque handle to an arithmetic-shared value carrying
// NVals SIMD lanes of Width bits each.
type ArithShare struct {
	Width  int
	NVals  int
	Handle any
}

// Backend is the abstract secure-computation contract the core linkage
// engine depends on. It exposes constant and private share construction,
// the boolean and arithmetic gate set, share-type conversions, an
// external sub-circuit hook for integer division, and reveal operations.
// A concrete implementation may evaluate gates immediately in the clear
// (share/clearbackend), or exchange real shares over a transport
// (netbackend); the core is written against this interface alone and
// never reaches below it.
type Backend interface {
	// Role reports which party this backend instance acts as.
	Role() Role
	// NumWires reports the number of boolean wires allocated so far, for
	// diagnostics and reporting only; it has no effect on correctness.
	NumWires() int

	// ConstBool returns a boolean share every lane of which is the
	// public constant v.
	ConstBool(v bool, nvals int) BoolShare
	// ConstArith returns an arithmetic share every lane of which is the
	// public constant v, truncated to width bits.
	ConstArith(v uint64, width, nvals int) ArithShare
	// InputBool shares a private boolean value contributed by role. On
	// the contributing party value holds the true payload; on the other
	// party its content is ignored.
	InputBool(role Role, value []byte, width, nvals int) BoolShare
	// InputArith shares a private arithmetic value contributed by role,
	// one uint64 per SIMD lane.
	InputArith(role Role, value []uint64, width, nvals int) ArithShare
	// DummyBool returns a boolean share with unspecified content, used to
	// materialise a wire shape (e.g. a running accumulator) before its
	// real value is known.
	DummyBool(width, nvals int) BoolShare
	// DummyArith is DummyBool's arithmetic counterpart.
	DummyArith(width, nvals int) ArithShare

	// And computes the lane-wise logical AND of two equal-shaped boolean
	// shares.
	And(a, b BoolShare) BoolShare
	// Xor computes the lane-wise logical XOR of two equal-shaped boolean
	// shares.
	Xor(a, b BoolShare) BoolShare
	// Or computes the lane-wise logical OR of two equal-shaped boolean
	// shares.
	Or(a, b BoolShare) BoolShare
	// Inv computes the lane-wise logical NOT of a boolean share.
	Inv(a BoolShare) BoolShare
	// ShiftLeft shifts every lane of a left by the public constant n
	// bits, widening as needed.
	ShiftLeft(a BoolShare, n int) BoolShare
	// Add computes the lane-wise sum of two arithmetic shares, zero
	// extending the narrower operand to the width of the wider one; the
	// result has that wider width.
	Add(a, b ArithShare) ArithShare
	// Mul computes the lane-wise product of two arithmetic shares, zero
	// extending the narrower operand to the width of the wider one; the
	// result has that wider width.
	Mul(a, b ArithShare) ArithShare
	// EqBool computes the lane-wise equality of two equal-shaped boolean
	// shares, returning a single-bit-wide result.
	EqBool(a, b BoolShare) BoolShare
	// LtBool computes the lane-wise strict less-than of two equal-shaped
	// boolean shares, returning a single-bit-wide result.
	LtBool(a, b BoolShare) BoolShare
	// EqArith computes the lane-wise equality of two arithmetic shares,
	// zero extending the narrower operand, and returns a single-bit-wide
	// boolean result.
	EqArith(a, b ArithShare) BoolShare
	// LtArith computes the lane-wise strict less-than of two arithmetic
	// shares, zero extending the narrower operand, and returns a
	// single-bit-wide boolean result.
	LtArith(a, b ArithShare) BoolShare

	// DivFile evaluates a pre-compiled integer-division sub-circuit
	// loaded from path against dividend and divisor, both width bits
	// wide, returning the quotient. This is the file-driven divider
	// gadget spec.md's set-similarity coefficient relies on; no backend
	// is required to support arbitrary widths, only the widths the
	// precision planner actually produces.
	DivFile(path string, dividend, divisor BoolShare, width int) (BoolShare, error)

	// BoolToArith converts a boolean share to an arithmetic share of the
	// same width and lane count.
	BoolToArith(a BoolShare) ArithShare
	// ArithToBool converts an arithmetic share to a boolean share of the
	// same width and lane count.
	ArithToBool(a ArithShare) BoolShare

	// RevealBool opens a boolean share to role, returning a share whose
	// Handle carries the plaintext bits on that party and is unspecified
	// on the other.
	RevealBool(a BoolShare, to Role) BoolShare
	// RevealArith opens an arithmetic share to role.
	RevealArith(a ArithShare, to Role) ArithShare

	// Execute runs the accumulated gate program to completion. Backends
	// that evaluate eagerly may implement this as a no-op.
	Execute() error
	// Reset discards all shares and gate state, returning the backend to
	// its just-constructed condition so it can be reused for another
	// circuit build.
	Reset() error
}
