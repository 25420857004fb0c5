// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm283x

import "errors"

// padsPasswd gates writes to any PADS_GPIO_* register, mirroring the clock
// generator's password scheme.
const padsPasswd = 0x5A << 24

// padDriveMax is the largest value the 3 bit drive strength field holds;
// drive_index is clamped to this before being written.
const padDriveMax = 7

// padsMap is the memory mapped register layout of the pads control block
// covering GPIO0-27; GPIO28-45 and GPIO46-53 have their own blocks at
// higher offsets, unused by this driver since GPCLK0 lives on GPIO4.
//
// Page 102.
type padsMap struct {
	dummy0    [11]uint32 // 0x00-0x28 precede PADS_GPIO_0_27.
	gpio0To27 uint32     // 0x2C PADS_GPIO_0_27: password, slew/hysteresis, 3 bit drive strength
}

// padsMemory is the memory mapped pads register block; nil until the driver
// has successfully mapped /dev/mem.
var padsMemory *padsMap

// setDriveStrength programs GPIO0-27's output pad drive current. index is
// 0..7, mapping to 2..16mA in 2mA steps per the datasheet's PADS_GPIO_0_27
// encoding; bits 3 (slew rate limiting) and 4 (hysteresis) are left enabled
// at their power-on default.
func setDriveStrength(index uint32) error {
	if padsMemory == nil {
		return errors.New("bcm283x-pads: padsMemory is nil")
	}
	if index > padDriveMax {
		index = padDriveMax
	}
	padsMemory.gpio0To27 = padsPasswd | 1<<4 | 1<<3 | index
	return nil
}
