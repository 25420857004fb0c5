// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm283x

import (
	"errors"
	"fmt"
	"sync"

	"wsprtx.io/x/wsprtx"
	"wsprtx.io/x/wsprtx/conn/gpio"
	"wsprtx.io/x/wsprtx/host/pmem"
	"wsprtx.io/x/wsprtx/host/videocore"
)

// cbPoolPages is the page count handed to the VideoCore mailbox: one page
// for the tuning-word table plus one page per 128 control blocks for the
// 1024 entry ring (1024/128 = 8), matching what wspr_transmit's original
// pool sizing reserved even though only 9 of the 1025 pages it requests are
// ever addressed.
const cbPoolPages = 1025

// cbPerPage is how many 32 byte control blocks fit a 4KiB page.
const cbPerPage = 4096 / 32

// cbCount is the length of the self-running DMA ring; half its entries feed
// the PWM FIFO, the other half patch the GPCLK0 divider.
const cbCount = 8 * cbPerPage

// Engine owns the running DMA program: the mailbox-backed page pool, the
// live view of its 1024 control blocks, and the tuning-word table the
// symbol engine dithers between.
//
// There is exactly one Engine per process; the DMA ring it programs runs
// forever once built; there is no hardware level "stop".
type Engine struct {
	pool *videocore.Mem
	cbs  []controlBlock // live view over pool pages 1..8, bus-addressed sequentially
	constBus uint32 // bus address of pool page 0, the tuning-word page

	tuning tuningTable
	processor Processor
	pllDNominal float64

	centerHz      float64
	toneSpacingHz float64
	ppm           float64

	words []uint32 // live view over pool page 0, 1024 tuning words

	cursor  uint32 // next CB index the symbol engine will patch
	stopReq int32  // atomic; set by RequestStop
}

var (
	engineMu   sync.Mutex
	theEngine  *Engine
)

// Transmitter returns the process-wide Engine, or an error if the DMA
// driver hasn't successfully initialized. The frame scheduler calls this
// once, at setup, rather than holding its own reference across frames.
func Transmitter() (*Engine, error) {
	return engine()
}

// engine returns the process-wide Engine, or an error if the DMA driver
// hasn't successfully initialized.
func engine() (*Engine, error) {
	engineMu.Lock()
	defer engineMu.Unlock()
	if theEngine == nil {
		return nil, errors.New("bcm283x-dma: engine not initialized")
	}
	return theEngine, nil
}

// cbBus returns the bus address of control block i.
func (e *Engine) cbBus(i int) uint32 {
	return e.pool.BusAddr() + uint32((1+i/cbPerPage)*4096) + uint32((i%cbPerPage)*32)
}

// buildProgram constructs the 1024 entry CB ring and arms DMA channel 0. It
// runs once, at first transmission setup.
//
// Grounded on create_dma_pages's layout: even indices feed the PWM FIFO at
// a DREQ pace, odd indices patch CM_GP0DIV; the two halves interleave so
// each "feed, divide" pair advances the tone by exactly one dither step.
func (e *Engine) buildProgram() error {
	if dmaMemory == nil || clockMemory == nil || pwmMemory == nil {
		return errors.New("bcm283x-dma: peripheral windows not mapped")
	}

	e.constBus = e.pool.BusAddr()

	wordRegion := pmem.Slice(e.pool.Bytes()[:4096])
	var words []uint32
	if err := wordRegion.AsPOD(&words); err != nil {
		return fmt.Errorf("bcm283x-dma: %v", err)
	}
	e.words = words

	cbRegion := pmem.Slice(e.pool.Bytes()[4096 : 4096+8*4096])
	var cbs []controlBlock
	if err := cbRegion.AsPOD(&cbs); err != nil {
		return fmt.Errorf("bcm283x-dma: %v", err)
	}
	e.cbs = cbs

	for i := 0; i < cbCount; i++ {
		c := &e.cbs[i]
		if i%2 == 0 {
			// FIFO-feed: drain a dummy word from the const page into
			// PWM_FIF1, DREQ-paced so the ring advances at the PWM clock's
			// rate rather than free-running.
			c.transferInfo = dmaNoWideBursts | dmaDstDReq | dmaPWM
			c.srcAddr = e.constBus + 2048
			c.dstAddr = pwmBusBase + 0x18 // PWM_FIF1
			c.txLen = 4
			c.stride = 0
		} else {
			// Divider-write: an unpaced, single word write to CM_GP0DIV.
			// srcAddr is repatched by the symbol engine on every dither
			// step; it starts out pointing at tuning_word[0].
			c.transferInfo = dmaNoWideBursts
			c.srcAddr = e.constBus
			c.dstAddr = clockBusBase + 0x74 // CM_GP0DIV
			c.txLen = 4
			c.stride = 4
		}
		c.nextCB = e.cbBus((i + 1) % cbCount)
	}

	if err := setPWMClockSource(); err != nil {
		return err
	}
	pwmMemory.reset()
	pwmMemory.rng1 = 32
	pwmMemory.rng2 = 32
	pwmMemory.dmaCfg = enab | 7<<8 | 7
	pwmMemory.ctl = pwen1 | usef1 | rptl1 | pwen2 | usef2 | rptl2

	ch := &dmaMemory.channels[0]
	ch.cs = dmaReset
	ch.nextCB = 0
	ch.transferInfo = 0
	ch.cbAddr = e.cbBus(0)
	ch.cs = dmaActive | 0xF<<dmaPanicPriorityShift | 0xF<<dmaPriorityShift

	// The symbol engine's patch sequence is divider, length, divider, length
	// (odd CB, even CB, odd CB, even CB); starting the cursor on CB 1 (the
	// first divider-write slot) keeps every patchDivider call landing on an
	// odd index and every patchLength call on an even one.
	e.cursor = 1
	return nil
}

// Retune rebuilds the tuning-word table for a new center frequency, tone
// spacing and PPM correction, and writes the resulting divider words into
// the pool's tuning-word page. It returns the achieved center frequency,
// which may differ slightly from centerHz (see tuningTable.rebuild).
//
// Callers must not call Retune while a symbol is in flight; the frame
// scheduler serializes retuning to between frames.
func (e *Engine) Retune(centerHz, toneSpacingHz, ppm float64) (float64, error) {
	achieved, err := e.tuning.rebuild(e.pllDNominal, centerHz, toneSpacingHz, ppm)
	if err != nil {
		return 0, err
	}
	for i := range e.words {
		e.words[i] = e.tuning.wordAt(i)
	}
	e.centerHz, e.toneSpacingHz, e.ppm = centerHz, toneSpacingHz, ppm
	return achieved, nil
}

// pwmBusBase and clockBusBase are the bus address aliases (page 7) of the
// PWM and clock peripheral blocks, used when a control block's destination
// must be expressed as a DMA-visible bus address rather than a struct
// field offset.
const (
	pwmBusBase   = dmaBusPeripheralBase + pwmBaseOffset
	clockBusBase = dmaBusPeripheralBase + clockBaseOffset
)

// driverDMA (declared in timer.go, alongside the timer register block it
// also owns) implements wsprtx.Driver for the DMA/clock/PWM/pads windows
// and the self-running CB ring built on top of them.

func (d *driverDMA) String() string {
	return "bcm283x-dma"
}

func (d *driverDMA) Prerequisites() []string {
	return []string{"bcm283x-gpio"}
}

func (d *driverDMA) Init() (bool, error) {
	if !Present() {
		return false, errors.New("bcm283x CPU not detected")
	}
	base := peripheralBase()
	if err := mapPeripheral(base, timerBaseOffset, &drvDMA.timerMemory); err != nil {
		return true, fmt.Errorf("%w: %w", errPeripheralMapFailed, err)
	}
	if err := mapPeripheral(base, dmaBaseOffset, &dmaMemory); err != nil {
		return true, fmt.Errorf("%w: %w", errPeripheralMapFailed, err)
	}
	if err := mapPeripheral(base, clockBaseOffset, &clockMemory); err != nil {
		return true, fmt.Errorf("%w: %w", errPeripheralMapFailed, err)
	}
	if err := mapPeripheral(base, pwmBaseOffset, &pwmMemory); err != nil {
		return true, fmt.Errorf("%w: %w", errPeripheralMapFailed, err)
	}
	if err := mapPeripheral(base, padsBaseOffset, &padsMemory); err != nil {
		return true, fmt.Errorf("%w: %w", errPeripheralMapFailed, err)
	}

	proc := GetProcessor()
	pool, err := videocore.AllocFlags(cbPoolPages*4096, proc.mailboxAllocFlag())
	if err != nil {
		return true, fmt.Errorf("bcm283x-dma: allocating DMA pool: %v", err)
	}

	e := &Engine{pool: pool, processor: proc, pllDNominal: proc.pllDFreq()}
	if err := e.buildProgram(); err != nil {
		return true, err
	}
	engineMu.Lock()
	theEngine = e
	engineMu.Unlock()
	return true, nil
}

func init() {
	if isArm {
		wsprtx.MustRegister(&driverDMA{})
	}
}

var _ wsprtx.Driver = &driverDMA{}

// ArmCarrier configures GPIO4 for the GPCLK0 alternate function, sets its
// pad drive current and enables the clock generator off PLLD with MASH=3.
// It does not touch CM_GP0DIV: the DMA ring, once running, owns that
// register exclusively.
//
// Called at the KeyOn transition, once the frame's tuning words are in
// place.
func (e *Engine) ArmCarrier(driveIndex uint32) error {
	if clockMemory == nil {
		return errors.New("bcm283x-dma: clockMemory is nil")
	}
	GPIO4.setAlt(alt0)
	if err := setDriveStrength(driveIndex); err != nil {
		return err
	}
	clockMemory.gp0.ctl = clockPasswdCtl | clockMash3 | clockSrcPLLD | clockEnable
	e.clearStop()
	return nil
}

// DisarmCarrier kills the GPCLK0 generator and reverts GPIO4 to input, per
// disable_clock/transmit_off in the reference implementation: the password
// gate and busy-bit poll before clearing source guard against a glitch
// landing mid-cycle.
//
// Called at KeyOff, unconditionally, including on the cancellation path.
func (e *Engine) DisarmCarrier() error {
	if clockMemory == nil {
		return errors.New("bcm283x-dma: clockMemory is nil")
	}
	clockMemory.gp0.ctl = clockPasswdCtl | clockKill
	for clockMemory.gp0.ctl&clockBusy != 0 {
	}
	clockMemory.gp0.ctl = clockPasswdCtl
	return GPIO4.In(gpio.PullNoChange, gpio.None)
}
