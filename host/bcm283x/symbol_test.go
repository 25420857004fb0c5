// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm283x

import "testing"

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := &Engine{pllDNominal: 500000000, words: make([]uint32, 1024)}
	if _, err := e.Retune(14097100, 1.4648, 0); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestEmitSymbol_badIndex(t *testing.T) {
	e := newTestEngine(t)
	if err := e.EmitSymbol(-1, 0.1); err == nil {
		t.Fatal("expected error for symbol index -1")
	}
	if err := e.EmitSymbol(4, 0.1); err == nil {
		t.Fatal("expected error for symbol index 4")
	}
}

func TestEmitSymbol_offTarget(t *testing.T) {
	e := newTestEngine(t)
	// Pretend the frequency moved out from under the tuning table without a
	// Retune: the target no longer sits between tuning_word[0] and
	// tuning_word[1].
	e.centerHz += 10 * e.toneSpacingHz
	if err := e.EmitSymbol(0, 0.1); err == nil {
		t.Fatal("expected out-of-range target frequency error")
	}
}

// TestEmitSymbol_stopRequested exercises the stop-flag fast path without
// touching DMA hardware state: the flag is observed before the loop ever
// calls patchDivider/patchLength, which would dereference the (nil in this
// test) dmaMemory.
func TestEmitSymbol_stopRequested(t *testing.T) {
	e := newTestEngine(t)
	e.RequestStop()
	if err := e.EmitSymbol(0, 0.1); err != nil {
		t.Fatal(err)
	}
}

func TestEngine_stopFlag(t *testing.T) {
	e := &Engine{}
	if e.stopRequested() {
		t.Fatal("stop flag should start clear")
	}
	e.RequestStop()
	if !e.stopRequested() {
		t.Fatal("RequestStop should set the flag")
	}
	e.clearStop()
	if e.stopRequested() {
		t.Fatal("clearStop should clear the flag")
	}
}
