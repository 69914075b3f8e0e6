//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

package gadgets

import "github.com/torbrenner/SecureEpilinker/share"

// QuotientLess returns a boolean share that is 1 when a is strictly less
// than c as a numerator/denominator ratio, using cross-multiplication so
// the circuit never divides — the secure counterpart of clearlink's
// quotientLess. A zero-denominator quotient is defined to lose against a
// positive-denominator quotient, and to tie (not-less) against another
// zero-denominator quotient.
func QuotientLess(b share.Backend, a, c share.ArithQuotient) share.BoolShare {
	zeroA := b.ConstArith(0, a.Den.Width, a.Den.NVals)
	zeroC := b.ConstArith(0, c.Den.Width, c.Den.NVals)
	aZero := b.EqArith(a.Den, zeroA)
	cZero := b.EqArith(c.Den, zeroC)
	notAZero := b.Inv(aZero)
	notCZero := b.Inv(cZero)

	crossLess := b.LtArith(b.Mul(a.Num, c.Den), b.Mul(c.Num, a.Den))

	aZeroOnly := b.And(aZero, notCZero)
	neitherZero := b.And(b.And(notAZero, notCZero), crossLess)
	return b.Or(aZeroOnly, neitherZero)
}

// ArithSelect returns ifTrue when sel is 1, ifFalse otherwise, using the
// standard secret-shared multiplex identity sel*ifTrue + (1-sel)*ifFalse
// — no subtraction gate is needed since (1-sel) is computed with Inv.
func ArithSelect(b share.Backend, sel share.BoolShare, ifTrue, ifFalse share.ArithShare) share.ArithShare {
	width := ifTrue.Width
	if ifFalse.Width > width {
		width = ifFalse.Width
	}
	selArith := WidenArith(b, b.BoolToArith(sel), width)
	notSelArith := WidenArith(b, b.BoolToArith(b.Inv(sel)), width)
	return b.Add(b.Mul(selArith, ifTrue), b.Mul(notSelArith, ifFalse))
}

// MaxQuotient returns whichever of a, c is the larger ratio, breaking
// ties (including the both-zero-denominator case) in favour of a.
func MaxQuotient(b share.Backend, a, c share.ArithQuotient) share.ArithQuotient {
	cWins := QuotientLess(b, a, c)
	return share.ArithQuotient{
		Num: ArithSelect(b, cWins, c.Num, a.Num),
		Den: ArithSelect(b, cWins, c.Den, a.Den),
	}
}

// ReduceMaxQuotient folds MaxQuotient over quotients left to right,
// mirroring the left-to-right stable reduction clearlink's
// groupBestWeight and evaluateFixed use — the first maximal element
// encountered wins ties. It panics if quotients is empty; its caller
// (the exchange group permutation search) always supplies at least one
// candidate. Rows are reduced by ArgMax instead.
func ReduceMaxQuotient(b share.Backend, quotients []share.ArithQuotient) share.ArithQuotient {
	if len(quotients) == 0 {
		panic("gadgets: ReduceMaxQuotient of empty slice")
	}
	best := quotients[0]
	for _, q := range quotients[1:] {
		best = MaxQuotient(b, best, q)
	}
	return best
}
