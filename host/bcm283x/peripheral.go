// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm283x

import (
	"encoding/binary"
	"errors"
	"io/ioutil"

	"wsprtx.io/x/wsprtx/host/pmem"
)

// Peripheral register windows, as offsets from the SoC peripheral base.
//
// Page 6 of the BCM2835 ARM Peripherals datasheet.
const (
	timerBaseOffset = 0x003000
	dmaBaseOffset   = 0x007000
	padsBaseOffset  = 0x100000
	clockBaseOffset = 0x101000
	pwmBaseOffset   = 0x20C000
)

// legacyPeripheralBase is used when the device tree doesn't expose a "soc"
// node, which only happens on very old kernels.
const legacyPeripheralBase = 0x20000000

// peripheralBase reads the "ranges" property of the device tree's soc node
// to discover where the SoC peripheral block is mapped in physical memory.
// The property is a big-endian 32 bit value at offset 4; some device trees
// place it at offset 8 instead. Absent both, it falls back to the BCM2835
// legacy base.
func peripheralBase() uint64 {
	b, err := ioutil.ReadFile("/proc/device-tree/soc/ranges")
	if err != nil {
		return legacyPeripheralBase
	}
	if v := rangesAt(b, 4); v != 0 {
		return uint64(v)
	}
	if v := rangesAt(b, 8); v != 0 {
		return uint64(v)
	}
	return legacyPeripheralBase
}

func rangesAt(b []byte, offset int) uint32 {
	if len(b) < offset+4 {
		return 0
	}
	return binary.BigEndian.Uint32(b[offset : offset+4])
}

// mapPeripheral memory maps a single 4 KiB register page at base+offset and
// initializes pp to point to it. Every block this driver uses (timer, DMA,
// clock, PWM) starts on its own page, so one page per block is sufficient.
// See pmem.Slice.AsPOD for the shapes pp may take.
func mapPeripheral(base, offset uint64, pp interface{}) error {
	m, err := pmem.Map(base+offset, 4096)
	if err != nil {
		return err
	}
	return m.AsPOD(pp)
}

// errPeripheralMapFailed is returned, wrapped, when the memory window for a
// register block couldn't be mapped; kept distinct so callers can
// distinguish it from a register-level validation failure.
var errPeripheralMapFailed = errors.New("bcm283x: failed to map peripheral window")
