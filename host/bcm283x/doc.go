// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bcm283x exposes the GPIO, clock generator and DMA engine of the
// Broadcom bcm283x family of SoCs as used on Raspberry Pi boards.
//
// This driver implements memory-mapped GPIO pin manipulation and clock
// generator tuning; it does not support edge-triggered input, which this
// module's transmit-only use case never needs.
//
// Datasheet
//
// https://www.raspberrypi.org/wp-content/uploads/2012/02/BCM2835-ARM-Peripherals.pdf
//
// Its crowd-sourced errata: http://elinux.org/BCM2835_datasheet_errata
//
// Another doc about PCM and PWM:
// https://fr.scribd.com/doc/127599939/BCM2835-Audio-clocks
package bcm283x
