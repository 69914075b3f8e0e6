//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

// Package clearlink implements the clear-text reference evaluator: the
// same weighted set-similarity/equality link score as the secure
// circuit, computed directly over plaintext values in three numeric
// instantiations (32-bit and 64-bit integer fixed-point, and IEEE-754
// double). It is the oracle the secure path is validated against.
package clearlink

import (
	"sort"

	"github.com/torbrenner/SecureEpilinker/linkconfig"
)

// Result is the link decision for one query record against a database,
// common to all three numeric instantiations.
type Result struct {
	WinningIndex int
	IsMatch      bool
	IsTentative  bool
	NumeratorF   float64 // score numerator, widened to float64 for reporting
	DenominatorF float64 // score denominator, widened to float64 for reporting
}

// sortedGroup returns the fields of an exchange group ordered by their
// position in the configuration's field insertion order — the "domain"
// side of the group's permutation, held fixed while the "codomain" side
// is permuted.
func sortedGroup(cfg *linkconfig.LinkConfig, group linkconfig.ExchangeGroup) []string {
	order := make(map[string]int, cfg.N())
	for i, name := range cfg.FieldNames() {
		order[name] = i
	}
	out := append([]string(nil), group...)
	sort.Slice(out, func(i, j int) bool { return order[out[i]] < order[out[j]] })
	return out
}

// permutationIndices enumerates all permutations of {0,...,n-1} in
// lexicographic order, starting from and including the identity. This
// is the Go equivalent of std::next_permutation's enumeration order,
// used so the earliest (identity) permutation is generated first and
// therefore wins ties in the stable left-to-right group-max reduction.
func permutationIndices(n int) [][]int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	var out [][]int
	for {
		out = append(out, append([]int(nil), perm...))
		if !nextPermutation(perm) {
			break
		}
	}
	return out
}

// nextPermutation advances perm to its lexicographically next
// permutation in place, returning false if perm was already the last
// (fully descending) permutation.
func nextPermutation(perm []int) bool {
	n := len(perm)
	if n < 2 {
		return false
	}
	i := n - 2
	for i >= 0 && perm[i] >= perm[i+1] {
		i--
	}
	if i < 0 {
		return false
	}
	j := n - 1
	for perm[j] <= perm[i] {
		j--
	}
	perm[i], perm[j] = perm[j], perm[i]
	for l, r := i+1, n-1; l < r; l, r = l+1, r-1 {
		perm[l], perm[r] = perm[r], perm[l]
	}
	return true
}
