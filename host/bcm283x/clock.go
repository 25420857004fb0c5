// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm283x

import (
	"errors"
	"fmt"
	"strings"

	"wsprtx.io/x/wsprtx/conn/physic"
)

const (
	// 31:24 password
	clockPasswdCtl clockCtl = 0x5A << 24 // PASSWD
	// 23:11 reserved
	clockMashMask clockCtl = 3 << 9 // MASH
	clockMash0    clockCtl = 0 << 9 // src_freq / divI  (ignores divF)
	clockMash1    clockCtl = 1 << 9
	clockMash2    clockCtl = 2 << 9
	clockMash3    clockCtl = 3 << 9 // will cause higher spread
	clockFlip     clockCtl = 1 << 8 // FLIP
	clockBusy     clockCtl = 1 << 7 // BUSY
	// 6 reserved
	clockKill            clockCtl = 1 << 5   // KILL
	clockEnable          clockCtl = 1 << 4   // ENAB
	clockSrcMask         clockCtl = 0xF << 0 // SRC
	clockSrcGND          clockCtl = 0        // 0Hz
	clockSrc19dot2MHz    clockCtl = 1        // 19.2MHz
	clockSrcTestDebug0   clockCtl = 2        // 0Hz
	clockSrcTestDebug1   clockCtl = 3        // 0Hz
	clockSrcPLLA         clockCtl = 4        // 0Hz
	clockSrcPLLC         clockCtl = 5        // 1000MHz (changes with overclock settings)
	clockSrcPLLD         clockCtl = 6        // 500MHz
	clockSrcHDMI         clockCtl = 7        // 216MHz
	// 8-15 == GND.
)

// clockCtl controls the clock properties.
//
// It must not be changed while busy is set or a glitch may occur.
//
// Page 107
type clockCtl uint32

func (c clockCtl) String() string {
	var tokens []string
	if (c>>24)&0xFF == 0x5A {
		tokens = append(tokens, "PWD")
	}
	switch c & clockMashMask {
	case clockMash1:
		tokens = append(tokens, "Mash1")
	case clockMash2:
		tokens = append(tokens, "Mash2")
	case clockMash3:
		tokens = append(tokens, "Mash3")
	}
	if c&clockFlip != 0 {
		tokens = append(tokens, "Flip")
	}
	if c&clockBusy != 0 {
		tokens = append(tokens, "Busy")
	}
	if c&clockKill != 0 {
		tokens = append(tokens, "Kill")
	}
	if c&clockEnable != 0 {
		tokens = append(tokens, "Enable")
	}
	tokens = append(tokens, clockSrcString(c))

	known := clockMashMask | clockFlip | clockBusy | clockKill | clockEnable | clockSrcMask
	if (c>>24)&0xFF == 0x5A {
		known |= 0xFF << 24
	}
	if rem := uint32(c) &^ uint32(known); rem != 0 {
		tokens = append(tokens, fmt.Sprintf("clockCtl(%#x)", rem))
	}
	return strings.Join(tokens, "|")
}

// clockSrcString formats the 4 low bits of a clockCtl as the clock source
// name, including its nominal frequency.
func clockSrcString(c clockCtl) string {
	switch c & clockSrcMask {
	case clockSrcGND:
		return "GND(0Hz)"
	case clockSrc19dot2MHz:
		return "19.2MHz"
	case clockSrcTestDebug0:
		return "Debug0(0Hz)"
	case clockSrcTestDebug1:
		return "Debug1(0Hz)"
	case clockSrcPLLA:
		return "PLLA(0Hz)"
	case clockSrcPLLC:
		// Mirrors a long standing quirk in the upstream clock source table.
		return "PLLD(1000MHz)"
	case clockSrcPLLD:
		return "PLLD(500MHz)"
	case clockSrcHDMI:
		return "HDMI(216MHz)"
	default:
		return fmt.Sprintf("GND(%d)", c&clockSrcMask)
	}
}

const (
	// 31:24 password
	clockPasswdDiv clockDiv = 0x5A << 24 // PASSWD
	// Integer part of the divisor
	clockDiviShift          = 12
	clockDiviMax   clockDiv = (1 << 12) - 1
	clockDiviMask  clockDiv = clockDiviMax << clockDiviShift // DIVI
	// Fractional part of the divisor
	clockDivfMask clockDiv = (1 << 12) - 1 // DIVF
)

// clockDiv is a 12.12 fixed point value.
//
// Page 108
type clockDiv uint32

func (d clockDiv) String() string {
	divi := (d & clockDiviMask) >> clockDiviShift
	if divf := d & clockDivfMask; divf != 0 {
		return fmt.Sprintf("%d.(%d/4095)", divi, divf)
	}
	return fmt.Sprintf("%d.0", divi)
}

// clk19dot2MHz is the nominal frequency of the crystal oscillator common to
// all bcm283x variants.
const clk19dot2MHz physic.Frequency = 19200000 * physic.Hertz

// pllDFreq is the nominal frequency of PLLD, the source used for high
// frequency, low jitter clock generation. It is divided down by overclocking
// on some boards but this driver assumes stock firmware settings.
const pllDFreq physic.Frequency = 500 * physic.MegaHertz

// dmaWaitcyclesMax is the largest value the generator's secondary
// (oversampling) divisor can take; it is not a DMA engine property despite
// the name, it mirrors the bit width of the bcm283x generator's external
// pacing counter.
const dmaWaitcyclesMax = 32

// clockSources lists the clock sources to try, in order of preference: the
// crystal oscillator first since it is jitter-free and always present, then
// PLLD for frequencies the oscillator cannot divide down to exactly.
var clockSources = []struct {
	src  clockCtl
	freq physic.Frequency
}{
	{clockSrc19dot2MHz, clk19dot2MHz},
	{clockSrcPLLD, pllDFreq},
}

// findDivisorExact searches for a (clkDiv, waitCycles) pair such that
// srcFreq / (clkDiv * waitCycles) equals desired exactly.
//
// waitCycles is searched starting at 1 so the smallest secondary divisor is
// preferred; this matches the driver's general bias towards simplicity over
// squeezing every last bit of jitter out of the generator.
func findDivisorExact(srcFreq, desired physic.Frequency, maxWaitCycles uint32) (uint32, uint32) {
	if desired <= 0 || srcFreq <= 0 {
		return 0, 0
	}
	for wc := uint32(1); wc < maxWaitCycles; wc++ {
		denom := desired * physic.Frequency(wc)
		if denom <= 0 {
			continue
		}
		div := int64(srcFreq) / int64(denom)
		if div <= 0 || div > int64(clockDiviMax) {
			continue
		}
		if physic.Frequency(div)*denom == srcFreq {
			return uint32(div), wc
		}
	}
	return 0, 0
}

// calcSource finds a clock source, a divisor and an oversampling factor that
// produce desired exactly, or the lowest exact multiple of desired
// achievable within the generator's divisor range when no exact match
// exists.
func calcSource(desired physic.Frequency, maxWaitCycles uint32) (clockCtl, uint32, uint32, physic.Frequency, error) {
	if desired <= 0 {
		return 0, 0, 0, 0, errors.New("bcm283x-clock: desired frequency must be positive")
	}
	if desired > 25*physic.MegaHertz {
		return 0, 0, 0, 0, errors.New("bcm283x-clock: desired frequency must be <= 25MHz")
	}
	for _, s := range clockSources {
		if div, wc := findDivisorExact(s.freq, desired, maxWaitCycles); wc != 0 {
			return s.src, div, wc, desired, nil
		}
	}
	// No source divides desired exactly; find the lowest frequency that is an
	// exact multiple of desired and fits the generator's range, i.e.
	// oversample.
	for k := physic.Frequency(2); k < 100000; k++ {
		candidate := desired * k
		for _, s := range clockSources {
			if candidate > s.freq {
				continue
			}
			if div, wc := findDivisorExact(s.freq, candidate, maxWaitCycles); wc != 0 {
				return s.src, div, wc, candidate, nil
			}
		}
	}
	return 0, 0, 0, 0, fmt.Errorf("bcm283x-clock: can't find a divisor for %s", desired)
}

// clock represents one clock generator (CM_GP0, CM_GP1, CM_GP2, CM_PCM or
// CM_PWM).
//
// Page 105-108
type clock struct {
	ctl clockCtl
	div clockDiv
}

func (c *clock) String() string {
	return c.ctl.String() + " / " + c.div.String()
}

// set configures the clock to desired, or to the lowest exact multiple of
// desired the generator can produce (see calcSource), enabling it in the
// process. It returns an error when no exact match or multiple is found.
func (c *clock) set(desired physic.Frequency, maxWaitCycles uint32) (physic.Frequency, uint32, error) {
	src, div, waitCycles, actual, err := calcSource(desired, maxWaitCycles)
	if err != nil {
		return 0, 0, err
	}
	if err := c.setRaw(src, uint32(div)<<clockDiviShift); err != nil {
		return 0, 0, err
	}
	return actual, waitCycles, nil
}

// setRaw directly programs the clock's source and 12.12 fixed point divisor.
//
// The generator must be killed and the BUSY bit observed low before
// reprogramming; on real hardware this requires polling the register, which
// errClockRegister short-circuits in tests.
func (c *clock) setRaw(src clockCtl, div uint32) error {
	if src&^clockSrcMask != 0 {
		return errors.New("bcm283x-clock: invalid source")
	}
	if div == 0 {
		return errors.New("bcm283x-clock: invalid divisor")
	}
	if errClockRegister != nil {
		return errClockRegister
	}
	c.ctl = clockPasswdCtl | clockKill
	for c.ctl&clockBusy != 0 {
	}
	c.ctl = clockPasswdCtl | clockMash1 | src
	c.div = clockPasswdDiv | clockDiv(div)
	c.ctl |= clockEnable
	return nil
}

// errClockRegister is swapped out in tests to force setRaw to fail without
// needing a real memory-mapped register.
var errClockRegister error

// clockMap represents the CPU clock generators used for peripheral clocking.
//
// Page 107.
type clockMap struct {
	dummy0 [28]uint32 // 0x00-0x6C are unrelated PLL/camera/DSI clocks.
	gp0    clock      // 0x70 CM_GP0CTL, 0x74 CM_GP0DIV
	gp1    clock      // 0x78 CM_GP1CTL, 0x7C CM_GP1DIV
	gp2    clock      // 0x80 CM_GP2CTL, 0x84 CM_GP2DIV (no DIV on some variants)
	dummy1 [4]uint32
	pcm    clock // 0x98 CM_PCMCTL, 0x9C CM_PCMDIV
	pwm    clock // 0xA0 CM_PWMCTL, 0xA4 CM_PWMDIV
}

// clockMemory is the memory mapped clock generator register block; nil
// until the driver has successfully mapped /dev/gpiomem or /dev/mem.
var clockMemory *clockMap

func (c *clockMap) GoString() string {
	return fmt.Sprintf("{\n  gp0: %s,\n  gp1: %s,\n  gp2: %s,\n  pcm: %sw,\n  pwm: %s,\n}",
		c.gp0.String(), c.gp1.String(), c.gp2.String(), c.pcm.String(), c.pwm.String())
}
