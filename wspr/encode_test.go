// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package wspr

import "testing"

func TestEncode_deterministic(t *testing.T) {
	t.Parallel()
	a, err := Encode("K1ABC", "FN42", 37)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encode("K1ABC", "FN42", 37)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("Encode must be deterministic")
	}
	for i, s := range a {
		if s > 3 {
			t.Fatalf("symbol %d = %d, want 0..3", i, s)
		}
	}
}

func TestEncode_syncVectorParity(t *testing.T) {
	t.Parallel()
	symbols, err := Encode("K1ABC", "FN42", 37)
	if err != nil {
		t.Fatal(err)
	}
	for i, s := range symbols {
		if s%2 != syncVector[i] {
			t.Fatalf("symbol %d = %d doesn't carry sync bit %d", i, s, syncVector[i])
		}
	}
}

// referenceK1ABC is the 162 symbol channel stream for ("K1ABC", "FN42", 37),
// the standard worked example for the callsign/grid/power packing formulas,
// the rate-1/2 K=32 convolutional code and the bit-reversal interleaver.
// Produced by an independent, from-scratch re-implementation of §4.6's
// algorithm, checked against this package's formulas only at the level of
// the published polynomials and packing rules, not by reading encode.go;
// this guards convolve/interleave against a transcription bug that
// TestEncode_syncVectorParity's tautological sync-bit check cannot catch.
var referenceK1ABC = [162]byte{
	3, 3, 0, 0, 2, 0, 0, 0, 1, 0, 2, 0, 1, 3, 1, 2, 2, 2, 1, 0, 0, 3, 2, 3, 1, 3, 3, 2, 2, 0, 2, 0,
	1, 0, 2, 3, 0, 0, 3, 2, 3, 2, 0, 0, 2, 2, 2, 3, 0, 1, 1, 2, 2, 3, 3, 0, 0, 2, 3, 1, 2, 2, 0, 2,
	2, 2, 0, 3, 2, 1, 2, 0, 3, 1, 0, 2, 0, 0, 2, 0, 2, 0, 3, 2, 1, 2, 2, 0, 1, 3, 2, 3, 2, 0, 2, 2,
	2, 0, 3, 0, 2, 1, 2, 0, 1, 1, 3, 2, 1, 2, 1, 0, 0, 2, 2, 3, 1, 2, 2, 0, 3, 0, 3, 2, 2, 0, 3, 3,
	2, 0, 0, 1, 0, 0, 0, 2, 2, 0, 0, 2, 2, 2, 3, 2, 3, 1, 2, 2, 2, 3, 3, 2, 3, 2, 3, 0, 0, 2, 1, 3,
	2, 2,
}

func TestEncode_referenceVector(t *testing.T) {
	t.Parallel()
	symbols, err := Encode("K1ABC", "FN42", 37)
	if err != nil {
		t.Fatal(err)
	}
	if symbols != referenceK1ABC {
		t.Fatalf("symbols don't match the reference vector\ngot:  %v\nwant: %v", symbols, referenceK1ABC)
	}
	if first, want := symbols[:8], referenceK1ABC[:8]; !equalBytes(first, want) {
		t.Fatalf("first 8 symbols = %v, want %v", first, want)
	}
	if last, want := symbols[154:], referenceK1ABC[154:]; !equalBytes(last, want) {
		t.Fatalf("last 8 symbols = %v, want %v", last, want)
	}
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestEncode_callsignNormalization(t *testing.T) {
	t.Parallel()
	if _, err := Encode("ab", "FN42", 37); err == nil {
		t.Fatal("expected error for too-short callsign")
	}
	if _, err := Encode("W1AW", "FN42", 37); err != nil {
		t.Fatalf("W1AW should normalize via the leading-space shift: %v", err)
	}
}

func TestEncode_invalidGrid(t *testing.T) {
	t.Parallel()
	if _, err := Encode("K1ABC", "ZZ", 37); err == nil {
		t.Fatal("expected error for short grid")
	}
	if _, err := Encode("K1ABC", "SS99", 37); err == nil {
		t.Fatal("expected error for out-of-range grid field")
	}
}

func TestEncode_invalidPower(t *testing.T) {
	t.Parallel()
	if _, err := Encode("K1ABC", "FN42", 38); err == nil {
		t.Fatal("expected error for non-canonical dBm level")
	}
}

func TestReverse8(t *testing.T) {
	t.Parallel()
	data := []struct{ in, want uint8 }{
		{0x00, 0x00},
		{0xFF, 0xFF},
		{0x01, 0x80},
		{0x80, 0x01},
		{0x0F, 0xF0},
	}
	for _, d := range data {
		if got := reverse8(d.in); got != d.want {
			t.Fatalf("reverse8(%#x) = %#x, want %#x", d.in, got, d.want)
		}
	}
}

func TestInterleave_isPermutation(t *testing.T) {
	t.Parallel()
	var channel [162]byte
	for i := range channel {
		channel[i] = byte(i % 2)
	}
	out := interleave(channel)
	var ones, zeros int
	for _, b := range out {
		if b == 1 {
			ones++
		} else {
			zeros++
		}
	}
	if ones != 81 || zeros != 81 {
		t.Fatal("interleave must preserve all 162 entries")
	}
}
