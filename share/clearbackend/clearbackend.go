//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

// Package clearbackend implements the plaintext oracle share.Backend:
// every gate is evaluated immediately on unshared values, so the
// linkage engine and circuit builder can be exercised and cross-checked
// against the clear-text evaluator without any real MPC transport. It
// backs the CLI's --local-only mode. Grounded on the teacher's
// Circuit.Compute plaintext gate evaluator.
package clearbackend

import (
	"fmt"
	"os"
	"sync"

	"github.com/torbrenner/SecureEpilinker/share"
)

// Backend is the plaintext oracle implementation of share.Backend. Every
// share.BoolShare and share.ArithShare it produces carries a []uint64
// Handle, one plaintext lane value masked to the share's width — there
// is no secret sharing, no randomness and no network traffic.
type Backend struct {
	role     share.Role
	numWires int

	mu           sync.Mutex
	dividerCache map[string]*bristolCircuit
}

// New returns a plaintext oracle backend acting as role. role is only
// reported by Role(); Input* and Reveal* ignore it, and the backend
// evaluates every gate regardless of which party would "really" hold
// the input.
func New(role share.Role) *Backend {
	return &Backend{role: role, dividerCache: make(map[string]*bristolCircuit)}
}

// Role implements share.Backend.
func (b *Backend) Role() share.Role { return b.role }

// NumWires implements share.Backend. It counts SIMD-lane gate outputs
// produced so far, a diagnostic proxy for circuit size since the
// plaintext backend never allocates real boolean wires.
func (b *Backend) NumWires() int { return b.numWires }

func mask(width int) uint64 {
	if width <= 0 {
		return 0
	}
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(width)) - 1
}

func repeat(v uint64, nvals int) []uint64 {
	out := make([]uint64, nvals)
	for i := range out {
		out[i] = v
	}
	return out
}

func lanes(s share.BoolShare) []uint64   { return s.Handle.([]uint64) }
func alanes(s share.ArithShare) []uint64 { return s.Handle.([]uint64) }

// ConstBool implements share.Backend.
func (b *Backend) ConstBool(v bool, nvals int) share.BoolShare {
	var bit uint64
	if v {
		bit = 1
	}
	b.numWires += nvals
	return share.BoolShare{Width: 1, NVals: nvals, Handle: repeat(bit, nvals)}
}

// ConstArith implements share.Backend.
func (b *Backend) ConstArith(v uint64, width, nvals int) share.ArithShare {
	b.numWires += nvals
	return share.ArithShare{Width: width, NVals: nvals, Handle: repeat(v&mask(width), nvals)}
}

func byteWidth(bits int) int { return (bits + 7) / 8 }

func decodeLane(value []byte, offset, width int) uint64 {
	var v uint64
	bw := byteWidth(width)
	for i := 0; i < bw; i++ {
		v |= uint64(value[offset+i]) << uint(8*i)
	}
	return v & mask(width)
}

// InputBool implements share.Backend. value is a flat little-endian
// buffer of nvals lanes, byteWidth(width) bytes each.
func (b *Backend) InputBool(_ share.Role, value []byte, width, nvals int) share.BoolShare {
	bw := byteWidth(width)
	out := make([]uint64, nvals)
	for i := 0; i < nvals; i++ {
		out[i] = decodeLane(value, i*bw, width)
	}
	b.numWires += nvals
	return share.BoolShare{Width: width, NVals: nvals, Handle: out}
}

// InputArith implements share.Backend.
func (b *Backend) InputArith(_ share.Role, value []uint64, width, nvals int) share.ArithShare {
	m := mask(width)
	out := make([]uint64, nvals)
	for i := 0; i < nvals && i < len(value); i++ {
		out[i] = value[i] & m
	}
	b.numWires += nvals
	return share.ArithShare{Width: width, NVals: nvals, Handle: out}
}

// DummyBool implements share.Backend.
func (b *Backend) DummyBool(width, nvals int) share.BoolShare {
	return share.BoolShare{Width: width, NVals: nvals, Handle: make([]uint64, nvals)}
}

// DummyArith implements share.Backend.
func (b *Backend) DummyArith(width, nvals int) share.ArithShare {
	return share.ArithShare{Width: width, NVals: nvals, Handle: make([]uint64, nvals)}
}

func (b *Backend) boolBinOp(a, bs share.BoolShare, op func(x, y uint64) uint64) share.BoolShare {
	av, bv := lanes(a), lanes(bs)
	out := make([]uint64, len(av))
	w := mask(a.Width)
	for i := range av {
		out[i] = op(av[i], bv[i]) & w
	}
	b.numWires += len(av)
	return share.BoolShare{Width: a.Width, NVals: a.NVals, Handle: out}
}

// And implements share.Backend.
func (b *Backend) And(a, bs share.BoolShare) share.BoolShare {
	return b.boolBinOp(a, bs, func(x, y uint64) uint64 { return x & y })
}

// Xor implements share.Backend.
func (b *Backend) Xor(a, bs share.BoolShare) share.BoolShare {
	return b.boolBinOp(a, bs, func(x, y uint64) uint64 { return x ^ y })
}

// Or implements share.Backend.
func (b *Backend) Or(a, bs share.BoolShare) share.BoolShare {
	return b.boolBinOp(a, bs, func(x, y uint64) uint64 { return x | y })
}

// Inv implements share.Backend.
func (b *Backend) Inv(a share.BoolShare) share.BoolShare {
	av := lanes(a)
	w := mask(a.Width)
	out := make([]uint64, len(av))
	for i := range av {
		out[i] = (^av[i]) & w
	}
	b.numWires += len(av)
	return share.BoolShare{Width: a.Width, NVals: a.NVals, Handle: out}
}

// ShiftLeft implements share.Backend.
func (b *Backend) ShiftLeft(a share.BoolShare, n int) share.BoolShare {
	av := lanes(a)
	newWidth := a.Width + n
	w := mask(newWidth)
	out := make([]uint64, len(av))
	for i := range av {
		out[i] = (av[i] << uint(n)) & w
	}
	b.numWires += len(av)
	return share.BoolShare{Width: newWidth, NVals: a.NVals, Handle: out}
}

func widthOf(a, b share.ArithShare) int {
	if a.Width > b.Width {
		return a.Width
	}
	return b.Width
}

// Add implements share.Backend.
func (b *Backend) Add(a, bs share.ArithShare) share.ArithShare {
	av, bv := alanes(a), alanes(bs)
	width := widthOf(a, bs)
	w := mask(width)
	out := make([]uint64, len(av))
	for i := range av {
		out[i] = (av[i] + bv[i]) & w
	}
	b.numWires += len(av)
	return share.ArithShare{Width: width, NVals: a.NVals, Handle: out}
}

// Mul implements share.Backend.
func (b *Backend) Mul(a, bs share.ArithShare) share.ArithShare {
	av, bv := alanes(a), alanes(bs)
	width := widthOf(a, bs)
	w := mask(width)
	out := make([]uint64, len(av))
	for i := range av {
		out[i] = (av[i] * bv[i]) & w
	}
	b.numWires += len(av)
	return share.ArithShare{Width: width, NVals: a.NVals, Handle: out}
}

// EqBool implements share.Backend.
func (b *Backend) EqBool(a, bs share.BoolShare) share.BoolShare {
	av, bv := lanes(a), lanes(bs)
	out := make([]uint64, len(av))
	for i := range av {
		if av[i] == bv[i] {
			out[i] = 1
		}
	}
	b.numWires += len(av)
	return share.BoolShare{Width: 1, NVals: a.NVals, Handle: out}
}

// LtBool implements share.Backend.
func (b *Backend) LtBool(a, bs share.BoolShare) share.BoolShare {
	av, bv := lanes(a), lanes(bs)
	out := make([]uint64, len(av))
	for i := range av {
		if av[i] < bv[i] {
			out[i] = 1
		}
	}
	b.numWires += len(av)
	return share.BoolShare{Width: 1, NVals: a.NVals, Handle: out}
}

// EqArith implements share.Backend.
func (b *Backend) EqArith(a, bs share.ArithShare) share.BoolShare {
	av, bv := alanes(a), alanes(bs)
	out := make([]uint64, len(av))
	for i := range av {
		if av[i] == bv[i] {
			out[i] = 1
		}
	}
	b.numWires += len(av)
	return share.BoolShare{Width: 1, NVals: a.NVals, Handle: out}
}

// LtArith implements share.Backend.
func (b *Backend) LtArith(a, bs share.ArithShare) share.BoolShare {
	av, bv := alanes(a), alanes(bs)
	out := make([]uint64, len(av))
	for i := range av {
		if av[i] < bv[i] {
			out[i] = 1
		}
	}
	b.numWires += len(av)
	return share.BoolShare{Width: 1, NVals: a.NVals, Handle: out}
}

// DivFile implements share.Backend, evaluating a Bristol Fashion
// division circuit loaded from path against every SIMD lane of dividend
// and divisor. Parsed circuits are cached by path so a builder that
// calls DivFile once per row only pays the parse cost once.
func (b *Backend) DivFile(path string, dividend, divisor share.BoolShare, width int) (share.BoolShare, error) {
	circ, err := b.loadDivider(path)
	if err != nil {
		return share.BoolShare{}, err
	}
	dv, ds := lanes(dividend), lanes(divisor)
	out := make([]uint64, len(dv))
	for i := range dv {
		q, err := circ.eval(dv[i], ds[i])
		if err != nil {
			return share.BoolShare{}, fmt.Errorf("clearbackend: divider %s: %w", path, err)
		}
		out[i] = q & mask(width)
	}
	b.numWires += len(dv)
	return share.BoolShare{Width: width, NVals: dividend.NVals, Handle: out}, nil
}

func (b *Backend) loadDivider(path string) (*bristolCircuit, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.dividerCache[path]; ok {
		return c, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("clearbackend: opening divider circuit: %w", err)
	}
	defer f.Close()
	c, err := parseBristolCircuit(f)
	if err != nil {
		return nil, err
	}
	b.dividerCache[path] = c
	return c, nil
}

// BoolToArith implements share.Backend.
func (b *Backend) BoolToArith(a share.BoolShare) share.ArithShare {
	av := lanes(a)
	out := make([]uint64, len(av))
	copy(out, av)
	return share.ArithShare{Width: a.Width, NVals: a.NVals, Handle: out}
}

// ArithToBool implements share.Backend.
func (b *Backend) ArithToBool(a share.ArithShare) share.BoolShare {
	av := alanes(a)
	out := make([]uint64, len(av))
	copy(out, av)
	return share.BoolShare{Width: a.Width, NVals: a.NVals, Handle: out}
}

// RevealBool implements share.Backend. The clear backend already holds
// the plaintext, so reveal is the identity operation regardless of to.
func (b *Backend) RevealBool(a share.BoolShare, _ share.Role) share.BoolShare {
	return a
}

// RevealArith implements share.Backend.
func (b *Backend) RevealArith(a share.ArithShare, _ share.Role) share.ArithShare {
	return a
}

// Execute implements share.Backend. Every gate above is evaluated
// eagerly, so there is nothing left to run.
func (b *Backend) Execute() error { return nil }

// Reset implements share.Backend, clearing the divider circuit cache and
// diagnostic wire counter.
func (b *Backend) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dividerCache = make(map[string]*bristolCircuit)
	b.numWires = 0
	return nil
}

var _ share.Backend = (*Backend)(nil)
