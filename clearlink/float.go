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

// quotientF is the IEEE-754 double counterpart of quotient[T]: no
// fixed-point precision is spent, since real division is exact.
type quotientF struct {
	num, den float64
}

func quotientLessF(a, b quotientF) bool {
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

// EvaluateFloat runs the clear-text reference evaluator using IEEE-754
// double arithmetic, with no fixed-point scaling: it is the exact real
// computation the fixed-point instantiations approximate.
func EvaluateFloat(cfg *linkconfig.LinkConfig, client linkinput.ClientInput,
	server linkinput.ServerInput) (Result, error) {

	const op = "clearlink.EvaluateFloat"

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
	rows := make([]quotientF, nvals)
	for j := 0; j < nvals; j++ {
		rows[j] = rowFieldWeightsF(cfg, client, server, j)
	}

	winner := 0
	for j := 1; j < nvals; j++ {
		if quotientLessF(rows[winner], rows[j]) {
			winner = j
		}
	}

	best := rows[winner]
	match := best.den != 0 && best.num > cfg.MatchThreshold()*best.den
	tent := best.den != 0 && best.num > cfg.EffectiveTentThreshold()*best.den

	return Result{
		WinningIndex: winner,
		IsMatch:      match,
		IsTentative:  tent,
		NumeratorF:   best.num,
		DenominatorF: best.den,
	}, nil
}

func rowFieldWeightsF(cfg *linkconfig.LinkConfig, client linkinput.ClientInput,
	server linkinput.ServerInput, row int) quotientF {

	var total quotientF
	for _, group := range cfg.ExchangeGroups() {
		g := groupBestWeightF(cfg, client, server, row, group)
		total.num += g.num
		total.den += g.den
	}
	for _, name := range cfg.UngroupedFields() {
		f, _ := cfg.Field(name)
		cEntry := client.Record[name]
		sEntry := server.Database[name][row]
		fw, w := fieldWeightF(cfg, cEntry, f, sEntry, f)
		total.num += fw
		total.den += w
	}
	return total
}

func groupBestWeightF(cfg *linkconfig.LinkConfig, client linkinput.ClientInput,
	server linkinput.ServerInput, row int, group linkconfig.ExchangeGroup) quotientF {

	sg := sortedGroup(cfg, group)
	var best quotientF
	first := true
	for _, perm := range permutationIndices(len(sg)) {
		var sum quotientF
		for i, p := range perm {
			ileft := sg[i]
			iright := sg[p]
			fLeft, _ := cfg.Field(ileft)
			fRight, _ := cfg.Field(iright)
			cEntry := client.Record[ileft]
			sEntry := server.Database[iright][row]
			fw, w := fieldWeightF(cfg, cEntry, fLeft, sEntry, fRight)
			sum.num += fw
			sum.den += w
		}
		if first || quotientLessF(best, sum) {
			best = sum
			first = false
		}
	}
	return best
}

func fieldWeightF(cfg *linkconfig.LinkConfig, clientEntry linkinput.Entry,
	fLeft linkconfig.FieldDescriptor, serverEntry linkinput.Entry,
	fRight linkconfig.FieldDescriptor) (fw, w float64) {

	weight := (fLeft.Weight + fRight.Weight) / 2 * float64(clientEntry.Delta()) * float64(serverEntry.Delta())

	clientVal := clientEntry.ValueOrZero(fLeft.BitWidth)
	serverVal := serverEntry.ValueOrZero(fRight.BitWidth)

	var comp float64
	switch fLeft.Comparator {
	case linkconfig.SetSimilarity:
		hwx := numeric.Popcount(clientVal)
		hwy := numeric.Popcount(serverVal)
		if hwx+hwy > 0 {
			andCount := numeric.PopcountAnd(clientVal, serverVal)
			comp = 2 * float64(andCount) / float64(hwx+hwy)
		}
	case linkconfig.Equality:
		if bytes.Equal(clientVal, serverVal) {
			comp = 1
		}
	}

	return weight * comp, weight
}
