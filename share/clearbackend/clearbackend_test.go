//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

package clearbackend

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/torbrenner/SecureEpilinker/share"
)

func TestConstAndInputBool(t *testing.T) {
	b := New(share.Client)
	c := b.ConstBool(true, 3)
	if got := lanes(c); got[0] != 1 || got[1] != 1 || got[2] != 1 {
		t.Fatalf("ConstBool lanes = %v", got)
	}

	in := b.InputBool(share.Client, []byte{0x0F, 0xFF}, 8, 2)
	got := lanes(in)
	if got[0] != 0x0F || got[1] != 0xFF {
		t.Fatalf("InputBool lanes = %v", got)
	}
}

func TestBoolGates(t *testing.T) {
	b := New(share.Server)
	a := b.InputBool(share.Server, []byte{0b1010, 0b1111}, 4, 2)
	c := b.InputBool(share.Server, []byte{0b0110, 0b0000}, 4, 2)

	and := lanes(b.And(a, c))
	if and[0] != 0b0010 || and[1] != 0b0000 {
		t.Fatalf("And = %v", and)
	}
	xor := lanes(b.Xor(a, c))
	if xor[0] != 0b1100 || xor[1] != 0b1111 {
		t.Fatalf("Xor = %v", xor)
	}
	or := lanes(b.Or(a, c))
	if or[0] != 0b1110 || or[1] != 0b1111 {
		t.Fatalf("Or = %v", or)
	}
	inv := lanes(b.Inv(a))
	if inv[0] != 0b0101 || inv[1] != 0b0000 {
		t.Fatalf("Inv = %v", inv)
	}
	shifted := b.ShiftLeft(a, 2)
	if shifted.Width != 6 {
		t.Fatalf("ShiftLeft width = %d, want 6", shifted.Width)
	}
	if got := lanes(shifted); got[0] != 0b101000 {
		t.Fatalf("ShiftLeft = %v", got)
	}
}

func TestArithGatesAndComparators(t *testing.T) {
	b := New(share.Client)
	x := b.InputArith(share.Client, []uint64{5, 250}, 8, 2)
	y := b.InputArith(share.Client, []uint64{3, 10}, 8, 2)

	sum := alanes(b.Add(x, y))
	if sum[0] != 8 || sum[1] != 4 { // 250+10=260 wraps mod 256 to 4
		t.Fatalf("Add = %v", sum)
	}
	prod := alanes(b.Mul(x, y))
	if prod[0] != 15 {
		t.Fatalf("Mul = %v", prod)
	}
	eq := lanes(b.EqArith(x, x))
	if eq[0] != 1 || eq[1] != 1 {
		t.Fatalf("EqArith = %v", eq)
	}
	lt := lanes(b.LtArith(y, x))
	if lt[0] != 1 || lt[1] != 1 {
		t.Fatalf("LtArith = %v", lt)
	}
}

func TestShareConversionRoundTrip(t *testing.T) {
	b := New(share.Client)
	a := b.InputArith(share.Client, []uint64{42}, 16, 1)
	bs := b.ArithToBool(a)
	back := b.BoolToArith(bs)
	if alanes(back)[0] != 42 {
		t.Fatalf("round trip = %v", alanes(back))
	}
}

func TestRevealIsIdentity(t *testing.T) {
	b := New(share.Server)
	a := b.ConstArith(7, 8, 1)
	if got := alanes(b.RevealArith(a, share.Client))[0]; got != 7 {
		t.Fatalf("RevealArith = %d, want 7", got)
	}
}

// writeANDCircuit writes a minimal one-gate Bristol Fashion circuit
// computing the AND of a single dividend bit and a single divisor bit.
// It stands in for a real division circuit file purely to exercise the
// parser and lane-by-lane evaluator; DivFile itself is generic over
// whatever gate list the file contains.
func writeANDCircuit(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "and.txt")
	const contents = "1 3\n1 1 1\n\n2 1 0 1 2 AND\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing fixture circuit: %v", err)
	}
	return path
}

func TestDivFileEvaluatesLoadedCircuit(t *testing.T) {
	dir := t.TempDir()
	path := writeANDCircuit(t, dir)

	b := New(share.Client)
	dividend := b.InputBool(share.Client, []byte{1, 1, 0}, 1, 3)
	divisor := b.InputBool(share.Client, []byte{1, 0, 0}, 1, 3)

	out, err := b.DivFile(path, dividend, divisor, 1)
	if err != nil {
		t.Fatalf("DivFile: %v", err)
	}
	got := lanes(out)
	want := []uint64{1, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("lane %d = %d, want %d", i, got[i], want[i])
		}
	}

	// Second call should hit the parsed-circuit cache and produce the
	// same result.
	out2, err := b.DivFile(path, dividend, divisor, 1)
	if err != nil {
		t.Fatalf("DivFile (cached): %v", err)
	}
	if lanes(out2)[0] != got[0] {
		t.Fatal("cached DivFile result differs from first call")
	}
}
