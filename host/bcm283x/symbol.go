// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm283x

import (
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"time"
)

// fPWMClockEmpirical is the measured FIFO word consumption rate of the PWM
// peripheral under this DMA configuration, in words/second. It runs a few
// hundred ppm under the nominal 250MHz/8 = 31.25MHz a naive calculation
// predicts; sizing a symbol's cycle count off the nominal rate instead drifts
// the 162 symbol frame length by whole seconds over a transmission.
const fPWMClockEmpirical = 31156186.6125761

// symbolPatchPoll bounds how long EmitSymbol can block between noticing a
// stop request and actually returning: it's the sleep granularity of the
// wait for the DMA read pointer to clear a CB slot before repatching it.
const symbolPatchPoll = 100 * time.Microsecond

// iterSpread is the symmetric range of the per-iteration cycle count
// randomization (§4.4 step 3): spreads iteration-rate spurs across the band
// instead of concentrating them at one offset.
const iterSpread = 500

// RequestStop asks an in-flight EmitSymbol call to return at the next CB
// patch boundary. Safe to call from any goroutine.
func (e *Engine) RequestStop() {
	atomic.StoreInt32(&e.stopReq, 1)
}

// clearStop resets the stop flag ahead of a new frame.
func (e *Engine) clearStop() {
	atomic.StoreInt32(&e.stopReq, 0)
}

func (e *Engine) stopRequested() bool {
	return atomic.LoadInt32(&e.stopReq) != 0
}

// EmitSymbol dithers the running DMA ring between tuning_word[2k] and
// tuning_word[2k+1] (k = symbolIndex) so the long-term duty cycle
// approximates f_target, for durationS seconds. durationS of 0 runs until
// RequestStop is called (tone mode).
//
// Grounded on wspr_transmit's transmit_symbol: the iteration size is
// randomized each pass and the four control block patches (divider-lower,
// length-lower, divider-upper, length-upper) are emitted in that fixed
// order, each waited for against the DMA engine's current CB register so the
// engine never overwrites a slot still in flight.
func (e *Engine) EmitSymbol(symbolIndex int, durationS float64) error {
	if symbolIndex < 0 || symbolIndex > 3 {
		return fmt.Errorf("bcm283x-dma: symbol index %d out of range", symbolIndex)
	}
	k := symbolIndex
	// fLower/fUpper name the divider-write CB pair (word 2k, word 2k+1), not
	// the frequency ordering: tuning.rebuild gives word 2k the smaller
	// divider, so fLower is actually the higher of the two frequencies and
	// fUpper the lower. The valid target range is therefore
	// [fUpper, fLower], not [fLower, fUpper].
	fLower := e.tuning.freq[2*k]
	fUpper := e.tuning.freq[2*k+1]
	fTarget := e.centerHz - 1.5*e.toneSpacingHz + float64(k)*e.toneSpacingHz
	if fTarget < fUpper || fTarget > fLower {
		return fmt.Errorf("bcm283x-dma: symbol %d target %g Hz outside [%g, %g]", k, fTarget, fUpper, fLower)
	}
	alpha := 1 - (fTarget-fLower)/(fUpper-fLower)

	tone := durationS <= 0
	nTotal := uint64(math.Round(fPWMClockEmpirical * durationS))

	var nSent, nLowerSent uint64
	for tone || nSent < nTotal {
		if e.stopRequested() {
			return nil
		}
		nIter := uint64(int64(1000 + rand.Intn(2*iterSpread+1) - iterSpread))
		if !tone && nSent+nIter > nTotal {
			nIter = nTotal - nSent
		}
		nLowerTarget := uint64(math.Round(alpha * float64(nSent+nIter)))
		nLowerIter := nLowerTarget - nLowerSent
		nUpperIter := nIter - nLowerIter

		if done, err := e.patchDivider(uint32(2 * k)); done || err != nil {
			return err
		}
		if done, err := e.patchLength(uint32(nLowerIter)); done || err != nil {
			return err
		}
		if done, err := e.patchDivider(uint32(2*k + 1)); done || err != nil {
			return err
		}
		if done, err := e.patchLength(uint32(nUpperIter)); done || err != nil {
			return err
		}

		nSent += nIter
		nLowerSent = nLowerTarget
	}
	return nil
}

// waitForSlot polls the DMA channel's current CB register (~100us cadence)
// until it no longer points at CB i, so a store to that slot can't race a
// read still in flight. It returns true if a stop request interrupted the
// wait.
func (e *Engine) waitForSlot(i uint32) bool {
	bus := e.cbBus(int(i))
	for dmaMemory.channels[0].cbAddr == bus {
		if e.stopRequested() {
			return true
		}
		time.Sleep(symbolPatchPoll)
	}
	return false
}

// patchDivider waits for the cursor CB to free up, repoints its SOURCE_AD at
// tuning_word[wordIndex], advances the cursor, and reports whether a stop
// request cut the wait short.
func (e *Engine) patchDivider(wordIndex uint32) (bool, error) {
	if e.waitForSlot(e.cursor) {
		return true, nil
	}
	e.cbs[e.cursor].srcAddr = e.constBus + wordIndex*4
	e.cursor = (e.cursor + 1) % cbCount
	return false, nil
}

// patchLength waits for the cursor CB to free up, sets its TXFR_LEN to n PWM
// cycles, advances the cursor, and reports whether a stop request cut the
// wait short.
func (e *Engine) patchLength(n uint32) (bool, error) {
	if e.waitForSlot(e.cursor) {
		return true, nil
	}
	e.cbs[e.cursor].txLen = dmaTransferLen(n)
	e.cursor = (e.cursor + 1) % cbCount
	return false, nil
}
