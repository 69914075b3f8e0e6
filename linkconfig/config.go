//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

// Package linkconfig implements the validated, immutable description of
// a linkage schema: the fields being compared, their exchange groups,
// the match/tentative-match thresholds and the fixed-point precision
// planner that keeps the secure circuit's arithmetic from overflowing.
package linkconfig

import (
	"fmt"

	"github.com/torbrenner/SecureEpilinker/numeric"
)

// LinkConfig is the immutable, validated description of a linkage
// schema. It is created once and shared read-only by the clear-text
// evaluator and the secure circuit builder.
type LinkConfig struct {
	fieldOrder      []string
	fields          map[string]FieldDescriptor
	grouped         map[string]bool
	exchangeGroups  []ExchangeGroup
	matchThreshold  float64
	tentThreshold   float64
	matchingMode    bool
	machineBitWidth int
	policy          TentativeThresholdPolicy

	setSimPrec uint
	weightPrec uint
	maxWeight  float64
	hwBits     uint
}

// Option configures optional LinkConfig construction behaviour.
type Option func(*options)

type options struct {
	precisionMode PrecisionMode
	policy        TentativeThresholdPolicy
}

// WithPrecisionMode selects the precision planner mode. The default is
// SafePrecision.
func WithPrecisionMode(mode PrecisionMode) Option {
	return func(o *options) { o.precisionMode = mode }
}

// WithTentativePolicy overrides the default TentativeThresholdPolicy.
func WithTentativePolicy(policy TentativeThresholdPolicy) Option {
	return func(o *options) { o.policy = policy }
}

const opNew = "linkconfig.New"

// New validates fields, groups and thresholds, plans fixed-point
// precisions, and returns an immutable LinkConfig. Field order in the
// fields slice fixes the configuration's insertion order.
func New(fields []FieldDescriptor, groups []ExchangeGroup,
	matchThreshold, tentThreshold float64, matchingMode bool,
	machineBitWidth int, opts ...Option) (*LinkConfig, error) {

	opt := options{precisionMode: SafePrecision, policy: StandardTentativePolicy}
	for _, o := range opts {
		o(&opt)
	}

	if len(fields) == 0 {
		return nil, NewError(InvalidConfig, opNew, fmt.Errorf("no fields specified"))
	}
	if machineBitWidth <= 0 {
		return nil, NewError(InvalidConfig, opNew,
			fmt.Errorf("machine_bit_width must be positive, got %d", machineBitWidth))
	}

	fieldOrder := make([]string, 0, len(fields))
	fieldMap := make(map[string]FieldDescriptor, len(fields))
	var maxWeight float64
	var maxSetWidth uint

	for _, f := range fields {
		if err := f.validate(opNew); err != nil {
			return nil, err
		}
		if _, dup := fieldMap[f.Name]; dup {
			return nil, NewError(InvalidConfig, opNew,
				fmt.Errorf("duplicate field name %q", f.Name))
		}
		fieldMap[f.Name] = f
		fieldOrder = append(fieldOrder, f.Name)
		if f.Weight > maxWeight {
			maxWeight = f.Weight
		}
		if f.Comparator == SetSimilarity && uint(f.BitWidth) > maxSetWidth {
			maxSetWidth = uint(f.BitWidth)
		}
	}

	grouped, err := validateExchangeGroups(groups, fieldMap, opNew)
	if err != nil {
		return nil, err
	}

	if err := validateThresholds(matchThreshold, tentThreshold, opNew); err != nil {
		return nil, err
	}

	n := len(fieldOrder)
	var setSimPrec, weightPrec uint
	switch opt.precisionMode {
	case IdealPrecision:
		setSimPrec, weightPrec = planIdeal(n, machineBitWidth)
	default:
		setSimPrec, weightPrec, err = planSafe(n, maxSetWidth, machineBitWidth)
		if err != nil {
			return nil, NewError(InvalidConfig, opNew, err)
		}
	}
	if err := checkPrecisionBudget(setSimPrec, weightPrec, n, machineBitWidth); err != nil {
		return nil, NewError(PrecisionOverflow, opNew, err)
	}

	return &LinkConfig{
		fieldOrder:      fieldOrder,
		fields:          fieldMap,
		grouped:         grouped,
		exchangeGroups:  groups,
		matchThreshold:  matchThreshold,
		tentThreshold:   tentThreshold,
		matchingMode:    matchingMode,
		machineBitWidth: machineBitWidth,
		policy:          opt.policy,
		setSimPrec:      setSimPrec,
		weightPrec:      weightPrec,
		maxWeight:       maxWeight,
		hwBits:          numeric.HammingWeightBits(maxSetWidth),
	}, nil
}

func validateExchangeGroups(groups []ExchangeGroup, fields map[string]FieldDescriptor,
	op string) (map[string]bool, error) {

	grouped := make(map[string]bool)
	for _, group := range groups {
		if len(group) == 0 {
			return nil, NewError(InvalidConfig, op, fmt.Errorf("exchange group is empty"))
		}
		if len(group) > numeric.MaxExchangeGroupSize {
			return nil, NewError(InvalidConfig, op, fmt.Errorf(
				"exchange group %v has %d fields, exceeding the maximum of %d",
				group, len(group), numeric.MaxExchangeGroupSize))
		}
		var first FieldDescriptor
		for i, name := range group {
			f, ok := fields[name]
			if !ok {
				return nil, NewError(InvalidConfig, op,
					fmt.Errorf("exchange group references unknown field %q", name))
			}
			if grouped[name] {
				return nil, NewError(InvalidConfig, op, fmt.Errorf(
					"field %q appears in more than one exchange group", name))
			}
			grouped[name] = true
			if i == 0 {
				first = f
				continue
			}
			if f.Comparator != first.Comparator {
				return nil, NewError(InvalidConfig, op, fmt.Errorf(
					"exchange group mixes comparators: %q is %v, %q is %v",
					group[0], first.Comparator, name, f.Comparator))
			}
			if f.BitWidth != first.BitWidth {
				return nil, NewError(InvalidConfig, op, fmt.Errorf(
					"exchange group mixes bit widths: %q is %d, %q is %d",
					group[0], first.BitWidth, name, f.BitWidth))
			}
		}
	}
	return grouped, nil
}

func validateThresholds(match, tent float64, op string) error {
	if match < 0 || match > 1 {
		return NewError(InvalidConfig, op,
			fmt.Errorf("match_t must be in [0,1], got %v", match))
	}
	if tent < 0 || tent > match {
		return NewError(InvalidConfig, op,
			fmt.Errorf("tent_t must be in [0, match_t], got %v (match_t=%v)", tent, match))
	}
	return nil
}

// SetPrecisions overrides the planned set-similarity and weight
// precisions, re-checking the overflow invariant. This mirrors the
// original evaluator's explicit set_precisions() escape hatch.
func (c *LinkConfig) SetPrecisions(setSimPrec, weightPrec uint) error {
	if err := checkPrecisionBudget(setSimPrec, weightPrec, len(c.fieldOrder), c.machineBitWidth); err != nil {
		return NewError(PrecisionOverflow, "linkconfig.SetPrecisions", err)
	}
	c.setSimPrec = setSimPrec
	c.weightPrec = weightPrec
	return nil
}

// FieldNames returns field names in configuration insertion order.
func (c *LinkConfig) FieldNames() []string {
	out := make([]string, len(c.fieldOrder))
	copy(out, c.fieldOrder)
	return out
}

// Field returns the descriptor for name and whether it exists.
func (c *LinkConfig) Field(name string) (FieldDescriptor, bool) {
	f, ok := c.fields[name]
	return f, ok
}

// N returns the number of configured fields.
func (c *LinkConfig) N() int {
	return len(c.fieldOrder)
}

// ExchangeGroups returns the configured exchange groups, in
// configuration order.
func (c *LinkConfig) ExchangeGroups() []ExchangeGroup {
	out := make([]ExchangeGroup, len(c.exchangeGroups))
	copy(out, c.exchangeGroups)
	return out
}

// UngroupedFields returns the field names that belong to no exchange
// group, in configuration insertion order.
func (c *LinkConfig) UngroupedFields() []string {
	var out []string
	for _, name := range c.fieldOrder {
		if !c.grouped[name] {
			out = append(out, name)
		}
	}
	return out
}

// MatchThreshold returns the configured match threshold.
func (c *LinkConfig) MatchThreshold() float64 { return c.matchThreshold }

// TentThreshold returns the configured tentative-match threshold.
func (c *LinkConfig) TentThreshold() float64 { return c.tentThreshold }

// EffectiveTentThreshold applies the configured TentativeThresholdPolicy
// to the configured tentative threshold.
func (c *LinkConfig) EffectiveTentThreshold() float64 {
	return c.policy(c.matchingMode, c.tentThreshold, c.matchThreshold)
}

// MatchingMode returns the configured matching_mode flag.
func (c *LinkConfig) MatchingMode() bool { return c.matchingMode }

// MachineBitWidth returns the backend's arithmetic width.
func (c *LinkConfig) MachineBitWidth() int { return c.machineBitWidth }

// SetSimPrec returns the planned set-similarity fractional-bit count.
func (c *LinkConfig) SetSimPrec() uint { return c.setSimPrec }

// WeightPrec returns the planned weight fractional-bit count.
func (c *LinkConfig) WeightPrec() uint { return c.weightPrec }

// MaxWeight returns the maximum field weight, used to rescale all
// weights into the configured precision.
func (c *LinkConfig) MaxWeight() float64 { return c.maxWeight }

// HWBits returns the number of bits reserved for a set-similarity
// field's population count.
func (c *LinkConfig) HWBits() uint { return c.hwBits }

// RescaledWeight returns the average of two fields' weights, rescaled
// into the configured weight precision.
func (c *LinkConfig) RescaledWeight(a, b FieldDescriptor) uint64 {
	return numeric.RescaleWeight((a.Weight+b.Weight)/2, c.maxWeight, c.weightPrec)
}
