//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

package gadgets

import "github.com/torbrenner/SecureEpilinker/share"

// WidenArith zero extends a to width if it is narrower, using the
// Add-with-a-wider-zero-constant idiom: a real circuit backend allocates
// extra all-zero high wires for free, so this costs nothing beyond the
// one gate call the Backend interface already charges for Add.
func WidenArith(b share.Backend, a share.ArithShare, width int) share.ArithShare {
	if a.Width >= width {
		return a
	}
	return b.Add(a, b.ConstArith(0, width, a.NVals))
}

// FieldWeight computes one field-pair's (field weight, weight)
// contribution to a row's total score quotient, mirroring clearlink's
// fieldWeight gadget-for-gadget: the presence-gated average weight times
// the comparator coefficient. comp must already have been produced by
// SetSimilarityCoeff or EqualityCoeff. Every returned share is widened
// to machineWidth, the single fixed-point register width the rest of
// the row's arithmetic is carried in, mirroring the clear evaluator's
// use of one native unsigned integer type throughout instead of
// per-value bit-width tracking.
func FieldWeight(b share.Backend, deltaX, deltaY share.BoolShare, rescaledWeight uint64,
	comp share.ArithShare, machineWidth int) (fw, w share.ArithShare) {

	deltaXArith := WidenArith(b, b.BoolToArith(deltaX), machineWidth)
	deltaYArith := WidenArith(b, b.BoolToArith(deltaY), machineWidth)
	delta := b.Mul(deltaXArith, deltaYArith)

	weightConst := b.ConstArith(rescaledWeight, machineWidth, delta.NVals)
	weight := b.Mul(weightConst, delta)

	compWide := WidenArith(b, comp, machineWidth)
	fw = b.Mul(weight, compWide)
	w = weight
	return fw, w
}
