//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

package gadgets

import "github.com/torbrenner/SecureEpilinker/share"

// IndexedQuotient pairs a row's score quotient with an attached target
// share — the database index that survives whichever reduction produces
// this quotient. It is the payload argmax-with-target permutes.
type IndexedQuotient struct {
	Quotient share.ArithQuotient
	Index    share.ArithShare
}

// MaxIndexedQuotient generalises MaxQuotient to also carry along the
// winning row's index, permuting it the same way the quotient itself is
// selected.
func MaxIndexedQuotient(b share.Backend, a, c IndexedQuotient) IndexedQuotient {
	cWins := QuotientLess(b, a.Quotient, c.Quotient)
	return IndexedQuotient{
		Quotient: share.ArithQuotient{
			Num: ArithSelect(b, cWins, c.Quotient.Num, a.Quotient.Num),
			Den: ArithSelect(b, cWins, c.Quotient.Den, a.Quotient.Den),
		},
		Index: ArithSelect(b, cWins, c.Index, a.Index),
	}
}

// ArgMax reduces rows to the single IndexedQuotient with the maximal
// quotient, left to right, ties favouring the earliest row — this is the
// "argmax with target" gadget of spec.md §4.5, used to extract the
// winning database index alongside its (N*, D*) score.
func ArgMax(b share.Backend, rows []IndexedQuotient) IndexedQuotient {
	if len(rows) == 0 {
		panic("gadgets: ArgMax of empty slice")
	}
	best := rows[0]
	for _, r := range rows[1:] {
		best = MaxIndexedQuotient(b, best, r)
	}
	return best
}
