//
// Copyright (c) 2026 Torbjörn Brenner
//
// All rights reserved.
//

package numeric

import "testing"

func TestCeilLog2(t *testing.T) {
	cases := []struct {
		n    uint64
		want uint
	}{
		{0, 0}, {1, 0}, {2, 1}, {3, 2}, {4, 2}, {5, 3}, {8, 3}, {9, 4},
	}
	for _, c := range cases {
		got := CeilLog2(c.n)
		if got != c.want {
			t.Errorf("CeilLog2(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}

func TestCeilLog2Min1(t *testing.T) {
	if got := CeilLog2Min1(0); got != 1 {
		t.Errorf("CeilLog2Min1(0) = %d, want 1", got)
	}
	if got := CeilLog2Min1(1); got != 1 {
		t.Errorf("CeilLog2Min1(1) = %d, want 1", got)
	}
	if got := CeilLog2Min1(9); got != 4 {
		t.Errorf("CeilLog2Min1(9) = %d, want 4", got)
	}
}

func TestHammingWeightBits(t *testing.T) {
	// A payload of 8 bits can have a popcount of 0..8, needing 4 bits.
	if got := HammingWeightBits(8); got != 4 {
		t.Errorf("HammingWeightBits(8) = %d, want 4", got)
	}
}

func TestRescaleWeightRange(t *testing.T) {
	prec := uint(8)
	maxW := 10.0
	for _, w := range []float64{0, 1, 2.5, 5, 7.3, 10} {
		got := RescaleWeight(w, maxW, prec)
		max := uint64(1)<<prec - 1
		if got > max {
			t.Errorf("RescaleWeight(%v) = %d exceeds max %d", w, got, max)
		}
	}
	if got := RescaleWeight(0, maxW, prec); got != 0 {
		t.Errorf("RescaleWeight(0) = %d, want 0", got)
	}
	if got := RescaleWeight(maxW, maxW, prec); got != (uint64(1)<<prec - 1) {
		t.Errorf("RescaleWeight(max) = %d, want %d", got, uint64(1)<<prec-1)
	}
}

func TestRescaleWeightMonotone(t *testing.T) {
	prec := uint(6)
	maxW := 5.0
	prev := uint64(0)
	for w := 0.0; w <= maxW; w += 0.1 {
		got := RescaleWeight(w, maxW, prec)
		if got < prev {
			t.Errorf("RescaleWeight not monotone at w=%v: %d < %d", w, got, prev)
		}
		prev = got
	}
}

func TestRescaleWeightHalfAwayFromZero(t *testing.T) {
	// weight/maxWeight * max_el = 0.5 exactly -> rounds to 1, not 0 (banker's).
	got := RescaleWeightMode(1, 2, 1, RoundHalfAwayFromZero)
	// prec=1 -> max_el = 1; 1/2*1 = 0.5 is a tie.
	if got != 1 {
		t.Errorf("RescaleWeightMode(1, 2, 1) = %d, want 1", got)
	}
}

func TestPopcount(t *testing.T) {
	if got := Popcount([]byte{0xFF}); got != 8 {
		t.Errorf("Popcount(0xFF) = %d, want 8", got)
	}
	if got := Popcount([]byte{0x00}); got != 0 {
		t.Errorf("Popcount(0x00) = %d, want 0", got)
	}
	if got := Popcount([]byte{0b01110111}); got != 6 {
		t.Errorf("Popcount(0b01110111) = %d, want 6", got)
	}
}

func TestPopcountAnd(t *testing.T) {
	a := []byte{0b01110111}
	b := []byte{0b11101110}
	if got := PopcountAnd(a, b); got != 4 {
		t.Errorf("PopcountAnd = %d, want 4", got)
	}
}

func TestPopcountAndMismatchedLengthPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on mismatched lengths")
		}
	}()
	PopcountAnd([]byte{1}, []byte{1, 2})
}

func TestFactorial(t *testing.T) {
	cases := []struct {
		n    int
		want uint64
	}{
		{0, 1}, {1, 1}, {2, 2}, {3, 6}, {8, 40320},
	}
	for _, c := range cases {
		if got := Factorial(c.n); got != c.want {
			t.Errorf("Factorial(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}
