// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm283x

import "time"

const (
	// 31:4 reserved
	timerM3 = 1 << 3 // M3
	timerM2 = 1 << 2 // M2
	timerM1 = 1 << 1 // M1
	timerM0 = 1 << 0 // M0
)

// Page 173
type timerCtl uint32

// timerMap is the memory mapped System Timer register layout: a
// free-running 64 bit counter incrementing once per microsecond, split into
// two 32 bit halves, plus four match/compare registers.
//
// Page 172.
type timerMap struct {
	ctl  timerCtl
	low  uint32
	high uint32
	c0   uint32
	c1   uint32
	c2   uint32
	c3   uint32
}

// driverDMA owns the memory mapped register blocks shared by the DMA
// engine, the System Timer and the clock/PWM peripherals it paces symbol
// transmission with.
type driverDMA struct {
	timerMemory *timerMap
}

// drvDMA.timerMemory is nil until host/bcm283x's DMA driver successfully
// maps the peripheral window.
var drvDMA driverDMA

// ReadTime returns the System Timer's free-running counter as a Duration
// since an arbitrary, boot-time epoch. It is monotonic and doesn't reset on
// NTP adjustments, unlike time.Now().
//
// It only uses the low 32 bits of the counter, which wraps around roughly
// every 71 minutes; callers needing longer spans must account for the
// wraparound themselves.
func ReadTime() time.Duration {
	if drvDMA.timerMemory == nil {
		return 0
	}
	return time.Duration(drvDMA.timerMemory.low) * time.Microsecond
}
