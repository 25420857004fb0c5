// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm283x

import (
	"strings"

	"wsprtx.io/x/wsprtx/host/distro"
	"wsprtx.io/x/wsprtx/host/videocore"
)

// Processor identifies which bcm283x variant the code is running on.
//
// The variant determines the PLLD nominal frequency and the VideoCore
// allocation flag used for the DMA pool.
type Processor int

const (
	// Unknown is returned when the variant could not be determined.
	Unknown Processor = iota
	BCM2835
	BCM2836
	BCM2837
	BCM2711
)

func (p Processor) String() string {
	switch p {
	case BCM2835:
		return "BCM2835"
	case BCM2836:
		return "BCM2836"
	case BCM2837:
		return "BCM2837"
	case BCM2711:
		return "BCM2711"
	default:
		return "Unknown"
	}
}

// pllDFreq returns the nominal PLLD frequency for this variant, in Hz.
//
// BCM2835 carries an empirical -2.5ppm correction measured across boards;
// later variants run PLLD at spec.
func (p Processor) pllDFreq() float64 {
	if p == BCM2711 {
		return 750000000
	}
	freq := 500000000.0
	if p == BCM2835 {
		freq *= 1 - 2.5e-6
	}
	return freq
}

// mailboxAllocFlag returns the VideoCore mailbox allocation flag to use for
// the DMA buffer pool: BCM2835's L2 cache requires the stronger
// L1-nonallocating alias, later SoCs don't.
func (p Processor) mailboxAllocFlag() uint32 {
	if p == BCM2835 {
		return videocore.FlagL1Nonallocating
	}
	return videocore.FlagDirect
}

// GetProcessor returns the bcm283x variant the host is running on, or
// Unknown if it cannot be determined or the host isn't a bcm283x board.
func GetProcessor() Processor {
	hardware, ok := distro.CPUInfo()["Hardware"]
	if !ok {
		return variantFromCompatible()
	}
	switch {
	case strings.Contains(hardware, "BCM2835"):
		return BCM2835
	case strings.Contains(hardware, "BCM2836"):
		return BCM2836
	case strings.Contains(hardware, "BCM2837"):
		return BCM2837
	case strings.Contains(hardware, "BCM2711"):
		return BCM2711
	default:
		return variantFromCompatible()
	}
}

// variantFromCompatible falls back to the device tree "compatible" property,
// used on boards (such as the Raspberry Pi 4) whose /proc/cpuinfo Hardware
// field doesn't carry a recognizable bcm283x model string.
func variantFromCompatible() Processor {
	for _, c := range distro.DTCompatible() {
		switch {
		case strings.Contains(c, "bcm2711"):
			return BCM2711
		case strings.Contains(c, "bcm2837"):
			return BCM2837
		case strings.Contains(c, "bcm2836"):
			return BCM2836
		case strings.Contains(c, "bcm2835"):
			return BCM2835
		}
	}
	return Unknown
}
