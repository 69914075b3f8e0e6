//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

package gadgets

import "github.com/torbrenner/SecureEpilinker/share"

// EqualityCoeff computes the EQUALITY comparator's fixed-point score: an
// arithmetic share equal to 2^setSimPrec when x and y are bit-for-bit
// equal, and zero otherwise — the same scale set_similarity coefficients
// live on, so both comparator kinds combine directly in field_weight.
func EqualityCoeff(b share.Backend, x, y share.BoolShare, setSimPrec uint) share.ArithShare {
	eq := b.EqBool(x, y)
	scaled := b.ShiftLeft(eq, int(setSimPrec))
	return b.BoolToArith(scaled)
}
