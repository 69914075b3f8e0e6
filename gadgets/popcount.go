//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

// Package gadgets implements the secure-circuit building blocks the
// linkage circuit is assembled from: population count, the
// set-similarity coefficient, field equality and weight, and the
// quotient-based group and row maximisation reductions. Every gadget is
// written against share.Backend alone, mirroring the teacher's
// compiler/circuits gate-building style (Hamming, adders, comparators)
// but expressed at the whole-value share level rather than individual
// wires.
package gadgets

import "github.com/torbrenner/SecureEpilinker/share"

// Popcount returns the population count of x's Width bits, as an
// arithmetic share of outWidth bits. It is built the way the teacher's
// Hamming/adder-tree gadgets are: every bit is isolated with a
// mask-and-compare pair rather than an unavailable right-shift, then the
// per-bit indicator bits are summed with a linear chain of Add gates.
// outWidth must be large enough to hold x.Width without overflow;
// callers size it from numeric.HammingWeightBits.
func Popcount(b share.Backend, x share.BoolShare, outWidth uint) share.ArithShare {
	sum := b.ConstArith(0, int(outWidth), x.NVals)
	for i := 0; i < x.Width; i++ {
		bit := isolateBit(b, x, i)
		sum = b.Add(sum, bit)
	}
	return sum
}

// isolateBit extracts bit i of x as a 1-bit arithmetic indicator: 1 if
// the bit is set, 0 otherwise. It is implemented entirely with the
// gates the backend contract exposes (And, ArithToBool/BoolToArith,
// EqArith), never a right shift, since the contract only offers a
// public-constant left shift.
func isolateBit(b share.Backend, x share.BoolShare, i int) share.ArithShare {
	maskArith := b.ConstArith(uint64(1)<<uint(i), x.Width, x.NVals)
	maskBool := b.ArithToBool(maskArith)
	masked := b.And(x, maskBool)
	maskedArith := b.BoolToArith(masked)
	isSet := b.EqArith(maskedArith, maskArith)
	return b.BoolToArith(isSet)
}
