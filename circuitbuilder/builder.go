//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

// Package circuitbuilder assembles the linkage circuit from the
// gadgets package's building blocks: per-field comparators, exchange
// group maximisation, row aggregation, and the final argmax-with-target
// and threshold reveal. It is the secure counterpart of clearlink's
// fixed-point evaluator, driving a share.Backend instead of native
// arithmetic.
//
// The abstract backend contract has no lane-slicing or lane-permute
// primitive, so the builder does not rely on true multi-lane SIMD: every
// share it allocates carries NVals=1, and the "parallel over database
// rows" and "permute over exchange-group members" work described in
// spec.md is done as an ordinary Go loop over scalar gadget calls. A
// concrete backend remains free to batch these calls into real SIMD
// lanes internally; the builder's output is identical either way.
package circuitbuilder

import (
	"fmt"
	"sort"

	"github.com/torbrenner/SecureEpilinker/gadgets"
	"github.com/torbrenner/SecureEpilinker/linkconfig"
	"github.com/torbrenner/SecureEpilinker/linkinput"
	"github.com/torbrenner/SecureEpilinker/numeric"
	"github.com/torbrenner/SecureEpilinker/share"
)

// Result is the revealed output of one build_circuit run: the winning
// database row's index and the boolean match/tentative decisions.
// Numerator and Denominator are only populated when the builder's Debug
// flag is set, matching the original DEBUG_SEL_RESULT fields.
type Result struct {
	Index       share.ArithShare
	Match       share.BoolShare
	Tent        share.BoolShare
	Numerator   share.ArithShare
	Denominator share.ArithShare
}

// Builder holds the state a single build_circuit run needs: the backend
// gates are emitted against, the validated link configuration, and the
// path to the file-driven integer-division sub-circuit.
type Builder struct {
	Backend     share.Backend
	Config      *linkconfig.LinkConfig
	DividerPath string
	// Debug, when true, additionally reveals the winning row's raw
	// (numerator, denominator) pair alongside index/match/tent.
	Debug bool
}

// New returns a Builder ready to build one circuit against b using cfg.
func New(b share.Backend, cfg *linkconfig.LinkConfig, dividerPath string) *Builder {
	return &Builder{Backend: b, Config: cfg, DividerPath: dividerPath}
}

const opBuild = "circuitbuilder.Build"

// Build runs the seven-step linkage circuit: constants, inputs, per-field
// weights, aggregation, argmax over rows, threshold tests, and reveal.
func (bld *Builder) Build(client linkinput.ClientInput, server linkinput.ServerInput) (Result, error) {
	if err := linkinput.ValidateClient(bld.Config, client); err != nil {
		return Result{}, err
	}
	if err := linkinput.ValidateServer(bld.Config, server); err != nil {
		return Result{}, err
	}
	if client.NVals != server.NVals {
		return Result{}, linkconfig.NewError(linkconfig.ShapeMismatch, opBuild,
			fmt.Errorf("client nvals=%d does not match server nvals=%d",
				client.NVals, server.NVals))
	}

	nvals := server.NVals
	machineWidth := bld.Config.MachineBitWidth()
	setSimPrec := bld.Config.SetSimPrec()
	scale := float64(uint64(1) << setSimPrec)

	// step 1: set_constants
	indexWidth := int(numeric.CeilLog2Min1(uint64(nvals)))
	T := bld.Backend.ConstArith(uint64(bld.Config.MatchThreshold()*scale), machineWidth, 1)
	Tt := bld.Backend.ConstArith(uint64(bld.Config.EffectiveTentThreshold()*scale), machineWidth, 1)

	// steps 2-4: set_inputs, per-field weights, per-row aggregation
	rows := make([]gadgets.IndexedQuotient, nvals)
	for j := 0; j < nvals; j++ {
		q, err := bld.rowQuotient(client, server, j)
		if err != nil {
			return Result{}, err
		}
		rows[j] = gadgets.IndexedQuotient{
			Quotient: q,
			Index:    bld.Backend.ConstArith(uint64(j), indexWidth, 1),
		}
	}

	// step 5: argmax over lanes (rows)
	winner := gadgets.ArgMax(bld.Backend, rows)

	// step 6: threshold tests. A zero-denominator winner always has a
	// zero numerator too (every field_weight gates its weight by
	// presence), so T*0 < 0 and Tt*0 < 0 are both false without an
	// explicit denominator guard.
	match := bld.Backend.LtArith(bld.Backend.Mul(T, winner.Quotient.Den), winner.Quotient.Num)
	tent := bld.Backend.LtArith(bld.Backend.Mul(Tt, winner.Quotient.Den), winner.Quotient.Num)

	// step 7: reveal
	res := Result{
		Index: bld.revealArith(winner.Index),
		Match: bld.revealBool(match),
		Tent:  bld.revealBool(tent),
	}
	if bld.Debug {
		res.Numerator = bld.revealArith(winner.Quotient.Num)
		res.Denominator = bld.revealArith(winner.Quotient.Den)
	}
	return res, nil
}

func (bld *Builder) revealArith(a share.ArithShare) share.ArithShare {
	bld.Backend.RevealArith(a, share.Client)
	return bld.Backend.RevealArith(a, share.Server)
}

func (bld *Builder) revealBool(a share.BoolShare) share.BoolShare {
	bld.Backend.RevealBool(a, share.Client)
	return bld.Backend.RevealBool(a, share.Server)
}

// rowQuotient computes one database row's total (numerator, denominator)
// quotient: the sum of each exchange group's best permutation and each
// ungrouped field's own weight, in configuration order.
func (bld *Builder) rowQuotient(client linkinput.ClientInput, server linkinput.ServerInput,
	row int) (share.ArithQuotient, error) {

	var totalFW, totalW share.ArithShare
	first := true
	accumulate := func(fw, w share.ArithShare) {
		if first {
			totalFW, totalW = fw, w
			first = false
			return
		}
		totalFW = bld.Backend.Add(totalFW, fw)
		totalW = bld.Backend.Add(totalW, w)
	}

	for _, group := range bld.Config.ExchangeGroups() {
		gfw, gw, err := bld.groupBestWeight(client, server, row, group)
		if err != nil {
			return share.ArithQuotient{}, err
		}
		accumulate(gfw, gw)
	}
	for _, name := range bld.Config.UngroupedFields() {
		f, _ := bld.Config.Field(name)
		cEntry := client.Record[name]
		sEntry := server.Database[name][row]
		fw, w, err := bld.fieldWeight(cEntry, f, sEntry, f)
		if err != nil {
			return share.ArithQuotient{}, err
		}
		accumulate(fw, w)
	}
	return share.ArithQuotient{Num: totalFW, Den: totalW}, nil
}

// groupBestWeight enumerates an exchange group's permutations and
// reduces to the maximal-quotient candidate, mirroring clearlink's
// groupBestWeight gadget-for-gadget.
func (bld *Builder) groupBestWeight(client linkinput.ClientInput, server linkinput.ServerInput,
	row int, group linkconfig.ExchangeGroup) (fw, w share.ArithShare, err error) {

	sg := sortedGroup(bld.Config, group)
	candidates := make([]share.ArithQuotient, 0, int(numeric.Factorial(len(sg))))

	for _, perm := range permutationIndices(len(sg)) {
		var sumFW, sumW share.ArithShare
		first := true
		for i, p := range perm {
			ileft := sg[i]
			iright := sg[p]
			fLeft, _ := bld.Config.Field(ileft)
			fRight, _ := bld.Config.Field(iright)
			cEntry := client.Record[ileft]
			sEntry := server.Database[iright][row]

			ffw, fww, ferr := bld.fieldWeight(cEntry, fLeft, sEntry, fRight)
			if ferr != nil {
				return share.ArithShare{}, share.ArithShare{}, ferr
			}
			if first {
				sumFW, sumW = ffw, fww
				first = false
				continue
			}
			sumFW = bld.Backend.Add(sumFW, ffw)
			sumW = bld.Backend.Add(sumW, fww)
		}
		candidates = append(candidates, share.ArithQuotient{Num: sumFW, Den: sumW})
	}

	best := gadgets.ReduceMaxQuotient(bld.Backend, candidates)
	return best.Num, best.Den, nil
}

// fieldWeight shares one field pair's client/server payloads and
// presence flags as private inputs, dispatches to the comparator gadget
// the field descriptor names, and returns field_weight's (fw, w) pair.
func (bld *Builder) fieldWeight(clientEntry linkinput.Entry, fLeft linkconfig.FieldDescriptor,
	serverEntry linkinput.Entry, fRight linkconfig.FieldDescriptor) (fw, w share.ArithShare, err error) {

	b := bld.Backend

	x := b.InputBool(share.Client, clientEntry.ValueOrZero(fLeft.BitWidth), fLeft.BitWidth, 1)
	y := b.InputBool(share.Server, serverEntry.ValueOrZero(fRight.BitWidth), fRight.BitWidth, 1)
	deltaX := b.InputBool(share.Client, []byte{byte(clientEntry.Delta())}, 1, 1)
	deltaY := b.InputBool(share.Server, []byte{byte(serverEntry.Delta())}, 1, 1)

	var comp share.ArithShare
	switch fLeft.Comparator {
	case linkconfig.SetSimilarity:
		comp, err = gadgets.SetSimilarityCoeff(b, x, y, bld.Config.HWBits(), bld.Config.SetSimPrec(), bld.DividerPath)
		if err != nil {
			return share.ArithShare{}, share.ArithShare{},
				linkconfig.NewError(linkconfig.BackendError, "circuitbuilder.fieldWeight", err)
		}
	case linkconfig.Equality:
		comp = gadgets.EqualityCoeff(b, x, y, bld.Config.SetSimPrec())
	default:
		return share.ArithShare{}, share.ArithShare{},
			linkconfig.NewError(linkconfig.InvalidConfig, "circuitbuilder.fieldWeight",
				fmt.Errorf("field %q: unknown comparator %v", fLeft.Name, fLeft.Comparator))
	}

	rescaled := bld.Config.RescaledWeight(fLeft, fRight)
	fw, w = gadgets.FieldWeight(b, deltaX, deltaY, rescaled, comp, bld.Config.MachineBitWidth())
	return fw, w, nil
}

// sortedGroup returns an exchange group's fields ordered by their
// position in the configuration's field insertion order.
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
// lexicographic order, starting from and including the identity, so the
// stable left-to-right reduction in ReduceMaxQuotient favours it on
// ties.
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
