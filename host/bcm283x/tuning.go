// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm283x

import (
	"errors"
	"fmt"
	"math"
)

// tuningWordPasswd is the CM_GP0DIV password byte baked into every word of
// the tuning-word page, so a divider-write CB never needs to OR it in at
// runtime.
const tuningWordPasswd = 0x5A << 24

// tuningDividerMask keeps a 12.12 fixed point divider to its 24 significant
// bits before the password byte is added.
const tuningDividerMask = 1<<24 - 1

// truncateDiv12 truncates a frequency ratio to a 12 bit fractional fixed
// point divider: floor(x*4096), clamped to what CM_GP0DIV's divisor field
// can hold.
func truncateDiv12(ratio float64) uint32 {
	v := math.Floor(ratio * 4096)
	if v < 0 {
		v = 0
	}
	if v > tuningDividerMask {
		v = tuningDividerMask
	}
	return uint32(v)
}

// tuningTable holds the 1024 divider words patched into the DMA program's
// divider-write control blocks, and the frequency each one yields, so the
// symbol engine can compute duty cycles without touching hardware.
//
// Entries 0..7 are the eight WSPR divider values (two per tone level, lower
// then upper). Entries 8..1023 are filler values the DMA ring lands on
// between symbols, tuned to sit safely outside any amateur band.
type tuningTable struct {
	dividers [1024]uint32  // 24 bit 12.12 fixed point, password byte not included
	freq     [1024]float64 // Hz, corresponding exactly to dividers[i]
}

// rebuild recomputes the tuning table for a new center frequency, tone
// spacing and PPM correction. It returns the achieved center frequency,
// which may differ from centerHz if the four tones don't share an integer
// divider at the requested center.
func (t *tuningTable) rebuild(pllDNominal, centerHz, toneSpacingHz, ppm float64) (float64, error) {
	if centerHz <= 0 || toneSpacingHz <= 0 {
		return 0, errors.New("bcm283x-dma: center frequency and tone spacing must be positive")
	}
	plld := pllDNominal * (1 - ppm*1e-6)

	divLo := float64(truncateDiv12(plld/(centerHz-1.5*toneSpacingHz))) + 1.0/4096
	divHi := float64(truncateDiv12(plld / (centerHz + 1.5*toneSpacingHz)))
	center := centerHz
	if math.Floor(divLo/4096) != math.Floor(divHi/4096) {
		center = plld/math.Floor(divLo/4096) - 1.6*toneSpacingHz
	}

	for k := 0; k < 4; k++ {
		fk := center - 1.5*toneSpacingHz + float64(k)*toneSpacingHz
		if fk <= 0 {
			return 0, fmt.Errorf("bcm283x-dma: tone %d frequency is non-positive: %g Hz", k, fk)
		}
		lower := truncateDiv12(plld / fk)
		upper := lower + 1
		t.dividers[2*k] = lower
		t.dividers[2*k+1] = upper
		t.freq[2*k] = plld / (float64(lower) / 4096)
		t.freq[2*k+1] = plld / (float64(upper) / 4096)
	}

	for i := 8; i < 1024; i++ {
		div := uint32(500+i-8) << 12
		t.dividers[i] = div
		t.freq[i] = plld / (float64(div) / 4096)
	}

	for k := 0; k < 4; k++ {
		if t.dividers[2*k]>>12 != t.dividers[2*k+1]>>12 {
			return 0, fmt.Errorf("bcm283x-dma: tone %d dividers don't share an integer part: %#x vs %#x", k, t.dividers[2*k], t.dividers[2*k+1])
		}
	}
	return center, nil
}

// wordAt returns the 32 bit little-endian value to write into tuning-word
// page entry i, password byte included.
func (t *tuningTable) wordAt(i int) uint32 {
	return tuningWordPasswd | (t.dividers[i] & tuningDividerMask)
}
