//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

package linkconfig

import (
	"fmt"

	"github.com/torbrenner/SecureEpilinker/numeric"
)

// PrecisionMode selects how a LinkConfig distributes the machine
// bit-width budget between the set-similarity coefficient and the field
// weights.
type PrecisionMode int

// Precision modes.
const (
	// SafePrecision reserves just enough bits for the set-similarity
	// coefficient that the fixed-shape 16-bit integer-division gadget
	// can consume it directly, and spends the rest on weight precision.
	// This is the default.
	SafePrecision PrecisionMode = iota
	// IdealPrecision distributes the available bits evenly across the
	// set-similarity coefficient and the two weight factors, without
	// regard to the 16-bit division gadget's input width. Configs built
	// with IdealPrecision cannot use the file-driven 16-bit divider
	// gadget as-is; they exist for analysis and for backends whose
	// divider is not width-constrained.
	IdealPrecision
)

// planSafe implements spec.md §4.2 "Safe mode": the secure
// integer-division gadget operates on 16-bit inputs, so the dividend
// (popcount(a AND b) << (prec+1)) must fit in 16 bits.
func planSafe(n int, maxSetWidth uint, machineBitWidth int) (setSimPrec, weightPrec uint, err error) {
	hwBits := numeric.HammingWeightBits(maxSetWidth)
	if hwBits+1 > 16 {
		return 0, 0, fmt.Errorf(
			"set-similarity payload of %d bits needs %d hamming-weight bits, "+
				"exceeding the 16-bit divider budget", maxSetWidth, hwBits)
	}
	setSimPrec = 16 - 1 - hwBits

	budget := uint(machineBitWidth) - numeric.CeilLog2(uint64(n*n))
	if setSimPrec > budget {
		return 0, 0, fmt.Errorf(
			"set-similarity precision %d exceeds the %d-bit machine budget for %d fields",
			setSimPrec, machineBitWidth, n)
	}
	weightPrec = (budget - setSimPrec) / 2
	return setSimPrec, weightPrec, nil
}

// planIdeal implements spec.md §4.2 "Ideal mode": distribute the
// available machine_bit_width - ceil_log2(n^2) bits evenly across
// {set_sim_prec, weight_prec, weight_prec} (thirds). One leftover bit
// goes to set_sim_prec; two leftover bits go to weight_prec, which is
// counted twice.
func planIdeal(n int, machineBitWidth int) (setSimPrec, weightPrec uint) {
	budget := uint(machineBitWidth) - numeric.CeilLog2(uint64(n*n))
	setSimPrec = budget / 3
	weightPrec = setSimPrec
	switch budget % 3 {
	case 1:
		setSimPrec++
	case 2:
		weightPrec++
	}
	return setSimPrec, weightPrec
}

// checkPrecisionBudget re-verifies the overflow invariant of spec.md §3:
// set_sim_prec + 2*weight_prec + ceil_log2(n^2) <= machine_bit_width.
func checkPrecisionBudget(setSimPrec, weightPrec uint, n, machineBitWidth int) error {
	used := setSimPrec + 2*weightPrec + numeric.CeilLog2(uint64(n*n))
	if used > uint(machineBitWidth) {
		return fmt.Errorf(
			"precision budget exceeded: set_sim_prec(%d) + 2*weight_prec(%d) + ceil_log2(n^2)(%d) = %d > machine_bit_width(%d)",
			setSimPrec, weightPrec, numeric.CeilLog2(uint64(n*n)), used, machineBitWidth)
	}
	return nil
}

// TentativeThresholdPolicy computes the effective tentative-match
// threshold from the configured tentative threshold, the match
// threshold and the matching_mode flag. This is a documented policy
// hook: the source threads matching_mode through many layers without a
// precise specification of its effect on the tentative threshold, so
// callers who need matching_mode to change threshold semantics supply
// their own policy instead of the engine guessing one.
type TentativeThresholdPolicy func(matchingMode bool, tent, match float64) float64

// StandardTentativePolicy is the default TentativeThresholdPolicy: the
// tentative threshold is used unchanged regardless of matching_mode.
func StandardTentativePolicy(_ bool, tent, _ float64) float64 {
	return tent
}
