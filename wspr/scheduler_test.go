// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package wspr

import (
	"sync"
	"testing"
)

// fakeCarrier is a test double standing in for *bcm283x.Engine: it records
// calls instead of touching DMA/clock registers.
type fakeCarrier struct {
	mu sync.Mutex

	retuneCalls int
	armed       bool
	disarmed    bool
	emitCalls   []int // symbolIndex per EmitSymbol call

	retuneErr error
	emitErr   error
}

func (f *fakeCarrier) Retune(centerHz, toneSpacingHz, ppm float64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retuneCalls++
	if f.retuneErr != nil {
		return 0, f.retuneErr
	}
	return centerHz, nil
}

func (f *fakeCarrier) ArmCarrier(driveIndex uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armed = true
	return nil
}

func (f *fakeCarrier) DisarmCarrier() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disarmed = true
	return nil
}

func (f *fakeCarrier) EmitSymbol(symbolIndex int, durationS float64) error {
	f.mu.Lock()
	f.emitCalls = append(f.emitCalls, symbolIndex)
	err := f.emitErr
	f.mu.Unlock()
	return err
}

func (f *fakeCarrier) RequestStop() {}

func (f *fakeCarrier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.emitCalls)
}

func TestScheduler_ArmWSPR(t *testing.T) {
	t.Parallel()
	fc := &fakeCarrier{}
	s := newScheduler(fc)
	cfg := Config{Callsign: "K1ABC", Grid: "FN42", PowerDBm: 37}
	frame, err := s.Arm(cfg, 14097100)
	if err != nil {
		t.Fatal(err)
	}
	if frame.tone {
		t.Fatal("expected a WSPR frame, got tone")
	}
	if frame.symbolPeriod != wspr2SymbolPeriod {
		t.Fatalf("14.097MHz should classify WSPR-2, got symbol period %g", frame.symbolPeriod)
	}
	if fc.retuneCalls != 1 {
		t.Fatalf("expected exactly one Retune call, got %d", fc.retuneCalls)
	}
}

func TestScheduler_ArmWSPR15Band(t *testing.T) {
	t.Parallel()
	fc := &fakeCarrier{}
	s := newScheduler(fc)
	cfg := Config{Callsign: "K1ABC", Grid: "FN42", PowerDBm: 37}
	frame, err := s.Arm(cfg, 137612.5)
	if err != nil {
		t.Fatal(err)
	}
	if frame.symbolPeriod != wspr15SymbolPeriod {
		t.Fatalf("137.6125kHz should classify WSPR-15, got symbol period %g", frame.symbolPeriod)
	}
}

func TestScheduler_ArmTone(t *testing.T) {
	t.Parallel()
	fc := &fakeCarrier{}
	s := newScheduler(fc)
	cfg := Config{Mode: Tone, TestToneHz: 14097100}
	frame, err := s.Arm(cfg, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !frame.tone {
		t.Fatal("expected a tone frame")
	}
}

func TestScheduler_ArmEncoderError(t *testing.T) {
	t.Parallel()
	s := newScheduler(&fakeCarrier{})
	if _, err := s.Arm(Config{Callsign: "x", Grid: "FN42", PowerDBm: 37}, 14097100); err == nil {
		t.Fatal("expected an encoder input error for an invalid callsign")
	}
}

func TestScheduler_Transmit(t *testing.T) {
	t.Parallel()
	fc := &fakeCarrier{}
	s := newScheduler(fc)
	frame, err := s.Arm(Config{Callsign: "K1ABC", Grid: "FN42", PowerDBm: 37}, 14097100)
	if err != nil {
		t.Fatal(err)
	}

	var started, finished bool
	var label string
	var elapsed float64
	s.OnTransmissionStarted = func(l string, freq float64) { started = true }
	s.OnTransmissionFinished = func(l string, e float64) { finished, label, elapsed = true, l, e }

	if err := s.Transmit(frame, true); err != nil {
		t.Fatal(err)
	}
	if !started || !finished {
		t.Fatal("expected both callbacks to fire")
	}
	if !fc.armed || !fc.disarmed {
		t.Fatal("expected ArmCarrier and DisarmCarrier to be called")
	}
	if fc.calls() != 162 {
		t.Fatalf("expected 162 EmitSymbol calls, got %d", fc.calls())
	}
	if elapsed < 0 {
		t.Fatalf("elapsed must be non-negative, got %g", elapsed)
	}
	if label == "" {
		t.Fatal("expected a non-empty label")
	}
}

func TestScheduler_Transmit_cancellation(t *testing.T) {
	t.Parallel()
	fc := &fakeCarrier{}
	s := newScheduler(fc)
	frame, err := s.Arm(Config{Callsign: "K1ABC", Grid: "FN42", PowerDBm: 37}, 14097100)
	if err != nil {
		t.Fatal(err)
	}

	var label string
	s.OnTransmissionFinished = func(l string, e float64) { label = l }

	s.OnTransmissionStarted = func(l string, freq float64) { s.RequestStop() }
	if err := s.Transmit(frame, true); err != nil {
		t.Fatal(err)
	}
	if fc.calls() >= 162 {
		t.Fatal("expected cancellation to cut the symbol loop short")
	}
	if !fc.disarmed {
		t.Fatal("cancellation must still reach KeyOff")
	}
	if label == "" || label[len(label)-len("(cancelled)"):] != "(cancelled)" {
		t.Fatalf("expected a cancelled label, got %q", label)
	}
}

func TestScheduler_UpdatePPM(t *testing.T) {
	t.Parallel()
	s := newScheduler(&fakeCarrier{})
	if err := s.UpdatePPM(1000); err == nil {
		t.Fatal("expected an out-of-range ppm error")
	}
	if err := s.UpdatePPM(11.135); err != nil {
		t.Fatal(err)
	}
	if got := s.reloadPPM(0); got != 11.135 {
		t.Fatalf("reloadPPM = %g, want 11.135", got)
	}
	if got := s.reloadPPM(7); got != 7 {
		t.Fatalf("a second reloadPPM with no new update should return the fallback, got %g", got)
	}
}

func TestClassifyMode(t *testing.T) {
	t.Parallel()
	if sp, _ := classifyMode(14097100); sp != wspr2SymbolPeriod {
		t.Fatal("14.0971MHz should classify WSPR-2")
	}
	if sp, _ := classifyMode(475812.5); sp != wspr15SymbolPeriod {
		t.Fatal("475.8125kHz should classify WSPR-15")
	}
	if sp, _ := classifyMode(1838212.5); sp != wspr15SymbolPeriod {
		t.Fatal("1838.2125kHz should classify WSPR-15")
	}
}
