//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

package clearlink

import (
	"bytes"
	"fmt"

	"github.com/torbrenner/SecureEpilinker/linkconfig"
	"github.com/torbrenner/SecureEpilinker/linkinput"
	"github.com/torbrenner/SecureEpilinker/numeric"
)

// Unsigned is the set of integer widths the fixed-point evaluator can
// be instantiated with.
type Unsigned interface {
	~uint32 | ~uint64
}

// quotient is a numerator/denominator pair evaluated in the clear,
// exactly mirroring the secure circuit's ArithQuotient.
type quotient[T Unsigned] struct {
	num, den T
}

// quotientLess reports whether a is strictly less than b as a
// numerator/denominator ratio, using cross-multiplication so no actual
// division ever happens — matching the secure comparator. A
// zero-denominator quotient never wins: it is defined as less than any
// positive-denominator quotient, and tied (not less) against another
// zero-denominator quotient, so ties resolve to whichever the caller
// already holds as champion.
func quotientLess[T Unsigned](a, b quotient[T]) bool {
	if a.den == 0 && b.den == 0 {
		return false
	}
	if a.den == 0 {
		return true
	}
	if b.den == 0 {
		return false
	}
	return a.num*b.den < b.num*a.den
}

// EvaluateFixed32 runs the clear-text reference evaluator using 32-bit
// unsigned fixed-point arithmetic.
func EvaluateFixed32(cfg *linkconfig.LinkConfig, client linkinput.ClientInput,
	server linkinput.ServerInput) (Result, error) {
	return evaluateFixed[uint32](cfg, client, server)
}

// EvaluateFixed64 runs the clear-text reference evaluator using 64-bit
// unsigned fixed-point arithmetic.
func EvaluateFixed64(cfg *linkconfig.LinkConfig, client linkinput.ClientInput,
	server linkinput.ServerInput) (Result, error) {
	return evaluateFixed[uint64](cfg, client, server)
}

func evaluateFixed[T Unsigned](cfg *linkconfig.LinkConfig, client linkinput.ClientInput,
	server linkinput.ServerInput) (Result, error) {

	const op = "clearlink.evaluateFixed"

	if err := linkinput.ValidateClient(cfg, client); err != nil {
		return Result{}, err
	}
	if err := linkinput.ValidateServer(cfg, server); err != nil {
		return Result{}, err
	}
	if client.NVals != server.NVals {
		return Result{}, linkconfig.NewError(linkconfig.ShapeMismatch, op,
			fmt.Errorf("client nvals=%d does not match server nvals=%d",
				client.NVals, server.NVals))
	}

	nvals := server.NVals
	rowQuotients := make([]quotient[T], nvals)

	for j := 0; j < nvals; j++ {
		fw, w := rowFieldWeights[T](cfg, client, server, j)
		rowQuotients[j] = quotient[T]{num: fw, den: w}
	}

	winner := 0
	for j := 1; j < nvals; j++ {
		if quotientLess(rowQuotients[winner], rowQuotients[j]) {
			winner = j
		}
	}

	setSimPrec := cfg.SetSimPrec()
	thresholdT := T(uint64(cfg.MatchThreshold() * float64(uint64(1)<<setSimPrec)))
	tthresholdT := T(uint64(cfg.EffectiveTentThreshold() * float64(uint64(1)<<setSimPrec)))

	best := rowQuotients[winner]
	match := best.den != 0 && thresholdT*best.den < best.num
	tent := best.den != 0 && tthresholdT*best.den < best.num

	return Result{
		WinningIndex: winner,
		IsMatch:      match,
		IsTentative:  tent,
		NumeratorF:   float64(best.num),
		DenominatorF: float64(best.den),
	}, nil
}

// rowFieldWeights computes the total (numerator, denominator) field
// weight for database row j, summing the best-permutation weight of
// each exchange group (in configuration order) and the weight of each
// ungrouped field (in configuration order).
func rowFieldWeights[T Unsigned](cfg *linkconfig.LinkConfig, client linkinput.ClientInput,
	server linkinput.ServerInput, row int) (fw, w T) {

	for _, group := range cfg.ExchangeGroups() {
		gfw, gw := groupBestWeight[T](cfg, client, server, row, group)
		fw += gfw
		w += gw
	}
	for _, name := range cfg.UngroupedFields() {
		f, _ := cfg.Field(name)
		cEntry := client.Record[name]
		sEntry := server.Database[name][row]
		ffw, fww := fieldWeight[T](cfg, cEntry, f, sEntry, f)
		fw += ffw
		w += fww
	}
	return fw, w
}

func groupBestWeight[T Unsigned](cfg *linkconfig.LinkConfig, client linkinput.ClientInput,
	server linkinput.ServerInput, row int, group linkconfig.ExchangeGroup) (fw, w T) {

	sg := sortedGroup(cfg, group)
	var best quotient[T]
	first := true
	for _, perm := range permutationIndices(len(sg)) {
		var sumFW, sumW T
		for i, p := range perm {
			ileft := sg[i]
			iright := sg[p]
			fLeft, _ := cfg.Field(ileft)
			fRight, _ := cfg.Field(iright)
			cEntry := client.Record[ileft]
			sEntry := server.Database[iright][row]
			ffw, fww := fieldWeight[T](cfg, cEntry, fLeft, sEntry, fRight)
			sumFW += ffw
			sumW += fww
		}
		cand := quotient[T]{num: sumFW, den: sumW}
		if first || quotientLess(best, cand) {
			best = cand
			first = false
		}
	}
	return best.num, best.den
}

// fieldWeight computes one field-pair's (field weight, weight)
// contribution, mirroring the secure circuit's field_weight gadget:
// the comparison score times the rescaled average weight, gated by
// both sides' presence flags.
func fieldWeight[T Unsigned](cfg *linkconfig.LinkConfig,
	clientEntry linkinput.Entry, fLeft linkconfig.FieldDescriptor,
	serverEntry linkinput.Entry, fRight linkconfig.FieldDescriptor) (fw, w T) {

	weightR := T(cfg.RescaledWeight(fLeft, fRight))
	delta := T(clientEntry.Delta()) * T(serverEntry.Delta())
	weight := weightR * delta

	clientVal := clientEntry.ValueOrZero(fLeft.BitWidth)
	serverVal := serverEntry.ValueOrZero(fRight.BitWidth)

	var comp T
	switch fLeft.Comparator {
	case linkconfig.SetSimilarity:
		hwx := numeric.Popcount(clientVal)
		hwy := numeric.Popcount(serverVal)
		denom := T(hwx) + T(hwy)
		if denom != 0 {
			andCount := numeric.PopcountAnd(clientVal, serverVal)
			comp = (T(andCount) << (cfg.SetSimPrec() + 1)) / denom
		}
	case linkconfig.Equality:
		if bytes.Equal(clientVal, serverVal) {
			comp = T(1) << cfg.SetSimPrec()
		}
	}

	return weight * comp, weight
}
