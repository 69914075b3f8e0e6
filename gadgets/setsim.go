//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

package gadgets

import "github.com/torbrenner/SecureEpilinker/share"

// SetSimilarityCoeff computes the Dice-style set-similarity coefficient
// of two equal-width bitmasks, fixed-point scaled by 2^setSimPrec:
// floor((popcount(x AND y) << (setSimPrec+1)) / (popcount(x)+popcount(y))).
// The division is the one place the secure circuit actually divides,
// via the file-driven integer-division gadget at dividerPath, whose
// input width must equal hwBits+setSimPrec+1 (16 in the precision
// planner's safe mode). A zero denominator (both sides empty) is
// defined by the loaded divider circuit to yield a zero coefficient,
// matching the clear evaluator's explicit guard.
func SetSimilarityCoeff(b share.Backend, x, y share.BoolShare, hwBits, setSimPrec uint,
	dividerPath string) (share.ArithShare, error) {

	andBits := b.And(x, y)
	andPop := Popcount(b, andBits, hwBits)
	hwx := Popcount(b, x, hwBits+1)
	hwy := Popcount(b, y, hwBits+1)
	denom := b.Add(hwx, hwy)

	dividerWidth := int(hwBits + setSimPrec + 1)
	dividend := b.ShiftLeft(b.ArithToBool(andPop), int(setSimPrec)+1)
	divisorWide := b.Add(denom, b.ConstArith(0, dividerWidth, denom.NVals))
	divisor := b.ArithToBool(divisorWide)

	quotientBits, err := b.DivFile(dividerPath, dividend, divisor, dividerWidth)
	if err != nil {
		return share.ArithShare{}, err
	}
	return b.BoolToArith(quotientBits), nil
}
