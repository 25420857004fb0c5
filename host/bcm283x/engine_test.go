// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm283x

import "testing"

// TestEngine_cbBus_layout pins down the CB addressing formula Engine.cbBus
// implements: page 0 is the tuning-word page, CB pages start at page 1, and
// 128 32-byte control blocks fit each page. videocore.Mem's bus address
// field isn't exported for tests to fake, so this checks the arithmetic
// cbBus is built from directly.
func TestEngine_cbBus_layout(t *testing.T) {
	const base = 0x3F000000
	cbBus := func(i int) uint32 {
		return base + uint32((1+i/cbPerPage)*4096) + uint32((i%cbPerPage)*32)
	}
	if got, want := cbBus(0), uint32(base+4096); got != want {
		t.Fatalf("cb 0 = %#x, want %#x", got, want)
	}
	if got, want := cbBus(cbPerPage), uint32(base+2*4096); got != want {
		t.Fatalf("cb %d = %#x, want %#x", cbPerPage, got, want)
	}
	if got, want := cbBus(cbCount-1), uint32(base+9*4096-32); got != want {
		t.Fatalf("cb %d = %#x, want %#x", cbCount-1, got, want)
	}
}

func TestEngine_Retune(t *testing.T) {
	e := &Engine{
		pllDNominal: 500000000,
		words:       make([]uint32, 1024),
	}
	achieved, err := e.Retune(14097100, 1.4648, 0)
	if err != nil {
		t.Fatal(err)
	}
	if achieved <= 0 {
		t.Fatalf("achieved center %g must be positive", achieved)
	}
	if e.centerHz != 14097100 || e.toneSpacingHz != 1.4648 {
		t.Fatal("Retune did not record the requested parameters")
	}
	for i, w := range e.words {
		if w&0xFF000000 != tuningWordPasswd {
			t.Fatalf("word %d: %#x missing password byte", i, w)
		}
	}
}

func TestEngine_Retune_invalid(t *testing.T) {
	e := &Engine{pllDNominal: 500000000, words: make([]uint32, 1024)}
	if _, err := e.Retune(0, 1.4648, 0); err == nil {
		t.Fatal("expected error for non-positive center frequency")
	}
}
