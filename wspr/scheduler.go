// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package wspr

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"wsprtx.io/x/wsprtx/host/bcm283x"
)

// carrier is the subset of *bcm283x.Engine a Scheduler drives. Abstracted
// out so tests can supply a fake instead of touching /dev/mem.
type carrier interface {
	Retune(centerHz, toneSpacingHz, ppm float64) (float64, error)
	ArmCarrier(driveIndex uint32) error
	DisarmCarrier() error
	EmitSymbol(symbolIndex int, durationS float64) error
	RequestStop()
}

var _ carrier = (*bcm283x.Engine)(nil)

// toneSymbolIndex and toneModeSpacingHz let Tone mode ride the same
// two-divider dithering EmitSymbol always does, with a tone spacing narrow
// enough that the ±0.5 tone-spacing deviation from center is negligible for
// antenna/filter testing.
const (
	toneSymbolIndex   = 1
	toneModeSpacingHz = 0.01
)

// windowPoll is the sleep granularity of the wall-clock window wait.
const windowPoll = time.Millisecond

// Frame is a fully armed transmission: the carrier is tuned, the symbol
// stream (if any) is encoded, and Transmit is ready to key the clock on.
type Frame struct {
	label        string
	centerHz     float64
	symbolPeriod float64
	driveIndex   uint32
	symbols      [162]byte
	tone         bool
}

// CenterFrequencyHz is the achieved center frequency, which may differ
// slightly from the requested one (see bcm283x.Engine.Retune).
func (f *Frame) CenterFrequencyHz() float64 { return f.centerHz }

// Scheduler runs the Idle -> Armed -> KeyOn -> Transmit loop -> KeyOff ->
// Idle lifecycle against a carrier. One Scheduler drives one carrier; there
// is no concurrent access from multiple goroutines to Arm/Transmit, only to
// the control methods (RequestStop, RequestDisable, UpdatePPM).
type Scheduler struct {
	engine carrier

	stopReq    int32 // atomic
	disableReq int32 // atomic

	ppmMu      sync.Mutex
	currentPPM float64
	ppmPending int32 // atomic

	// OnTransmissionStarted fires once KeyOn completes, before the symbol
	// loop begins. OnTransmissionFinished fires once KeyOff completes.
	OnTransmissionStarted  func(label string, frequencyHz float64)
	OnTransmissionFinished func(label string, elapsedS float64)
}

// NewScheduler returns a Scheduler driving the process-wide DMA carrier
// engine. bcm283x must have completed Init first.
func NewScheduler() (*Scheduler, error) {
	e, err := bcm283x.Transmitter()
	if err != nil {
		return nil, err
	}
	return &Scheduler{engine: e}, nil
}

// newScheduler builds a Scheduler around an arbitrary carrier, for tests.
func newScheduler(e carrier) *Scheduler {
	return &Scheduler{engine: e}
}

// RequestStop asks a running or waiting Transmit call to cancel: it proceeds
// straight to KeyOff and reports back to Idle. Safe to call from any
// goroutine.
func (s *Scheduler) RequestStop() {
	atomic.StoreInt32(&s.stopReq, 1)
	s.engine.RequestStop()
}

// RequestDisable asks a running Transmit call to soft-stop at the next
// symbol boundary: KeyOff runs, but the scheduler is ready for another Arm
// immediately, unlike RequestStop.
func (s *Scheduler) RequestDisable() {
	atomic.StoreInt32(&s.disableReq, 1)
}

// Stopped reports whether RequestStop has been called. Callers looping over
// multiple frames check this between Arm/Transmit calls to know when to
// exit rather than arming another frame.
func (s *Scheduler) Stopped() bool {
	return s.stopRequested()
}

func (s *Scheduler) stopRequested() bool {
	return atomic.LoadInt32(&s.stopReq) != 0
}

func (s *Scheduler) disableRequested() bool {
	return atomic.LoadInt32(&s.disableReq) != 0
}

// UpdatePPM queues a new drift-correction value, applied at the next Arm
// rather than mid-frame. A magnitude over the safety bound is rejected and
// the last good value is kept.
func (s *Scheduler) UpdatePPM(ppm float64) error {
	if math.Abs(ppm) > maxPPM {
		return &PpmOutOfRangeError{PPM: ppm}
	}
	s.ppmMu.Lock()
	s.currentPPM = ppm
	s.ppmMu.Unlock()
	atomic.StoreInt32(&s.ppmPending, 1)
	return nil
}

// reloadPPM returns the queued PPM value and clears the pending flag, or
// fallback if no update has arrived since the last reload.
func (s *Scheduler) reloadPPM(fallback float64) float64 {
	if atomic.SwapInt32(&s.ppmPending, 0) == 0 {
		return fallback
	}
	s.ppmMu.Lock()
	defer s.ppmMu.Unlock()
	return s.currentPPM
}

// Arm encodes (for WSPR mode) and tunes a Frame for centerHz, one entry of
// cfg.CenterFrequencies. Callers rotating across multiple configured
// frequencies call Arm once per frequency.
func (s *Scheduler) Arm(cfg Config, centerHz float64) (*Frame, error) {
	ppm := s.reloadPPM(cfg.PPM)

	if cfg.Mode == Tone {
		achieved, err := s.engine.Retune(cfg.TestToneHz, toneModeSpacingHz, ppm)
		if err != nil {
			return nil, &FrequencyOutOfBandError{FrequencyHz: cfg.TestToneHz, Reason: err.Error()}
		}
		return &Frame{label: "tone", centerHz: achieved, driveIndex: cfg.DriveIndex, tone: true}, nil
	}

	symbols, err := Encode(cfg.Callsign, cfg.Grid, cfg.PowerDBm)
	if err != nil {
		return nil, err
	}

	symbolPeriod, offsetRange := classifyMode(centerHz)
	if cfg.UseOffset {
		centerHz += (rand.Float64()*2 - 1) * offsetRange
	}
	toneSpacingHz := 1 / symbolPeriod

	achieved, err := s.engine.Retune(centerHz, toneSpacingHz, ppm)
	if err != nil {
		return nil, &FrequencyOutOfBandError{FrequencyHz: centerHz, Reason: err.Error()}
	}
	return &Frame{
		label:        frameLabel(cfg),
		centerHz:     achieved,
		symbolPeriod: symbolPeriod,
		driveIndex:   cfg.DriveIndex,
		symbols:      symbols,
	}, nil
}

func frameLabel(cfg Config) string {
	return fmt.Sprintf("%s %s %ddBm", cfg.Callsign, cfg.Grid, cfg.PowerDBm)
}

// Transmit runs frame's KeyOn -> Transmit loop -> KeyOff. When immediate is
// false and frame carries a symbol stream, it first blocks on the WSPR
// minute window; immediate is true for tone mode and test harnesses.
//
// Cancellation via RequestStop/RequestDisable is cooperative: the window
// wait observes RequestStop, and the symbol loop observes both flags
// between symbols, never mid-symbol (EmitSymbol owns that).
func (s *Scheduler) Transmit(frame *Frame, immediate bool) error {
	if !immediate && !frame.tone {
		if s.waitForWindow(frame.symbolPeriod) {
			return nil
		}
	}

	if err := s.engine.ArmCarrier(frame.driveIndex); err != nil {
		return err
	}
	anchor := time.Now()
	if s.OnTransmissionStarted != nil {
		s.OnTransmissionStarted(frame.label, frame.centerHz)
	}

	cancelled := false
	if frame.tone {
		if err := s.engine.EmitSymbol(toneSymbolIndex, 0); err != nil {
			_ = s.engine.DisarmCarrier()
			return err
		}
	} else {
		for i, sym := range frame.symbols {
			if s.stopRequested() || s.disableRequested() {
				cancelled = true
				break
			}
			elapsed := time.Since(anchor).Seconds()
			scheduledEnd := float64(i+1) * frame.symbolPeriod
			duration := clamp(scheduledEnd-elapsed, 0.2, 2*frame.symbolPeriod)
			if err := s.engine.EmitSymbol(int(sym), duration); err != nil {
				_ = s.engine.DisarmCarrier()
				return err
			}
		}
	}

	if err := s.engine.DisarmCarrier(); err != nil {
		return err
	}
	elapsed := time.Since(anchor).Seconds()
	atomic.StoreInt32(&s.disableReq, 0)

	label := frame.label
	if cancelled {
		label += " (cancelled)"
	}
	if s.OnTransmissionFinished != nil {
		s.OnTransmissionFinished(label, elapsed)
	}
	return nil
}

// waitForWindow blocks until the UTC minute is even (WSPR-2) or divisible
// by 15 (WSPR-15) and the second rolls over to 0, then one more second so
// symbol 0 starts at +1s past the minute. It returns true if a stop request
// cut the wait short.
func (s *Scheduler) waitForWindow(symbolPeriod float64) bool {
	mod := 2
	if symbolPeriod == wspr15SymbolPeriod {
		mod = 15
	}
	for {
		if s.stopRequested() {
			return true
		}
		now := time.Now().UTC()
		if now.Minute()%mod == 0 && now.Second() == 0 {
			time.Sleep(time.Second)
			return s.stopRequested()
		}
		time.Sleep(windowPoll)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
