// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// The DMA controller is used here for a single purpose: DMA channel 0 runs a
// self-looping ring of control blocks that alternately feeds the PWM FIFO,
// paced by the PWM DReq, and rewrites the GPCLK0 divider register (see
// engine.go).
//
// References
//
// Page 7:
// " Software accessing RAM directly must use physical addresses (based at
// 0x00000000). Software accessing RAM using the DMA engines must use bus
// addresses (based at 0xC0000000) " ... to skip the L1 cache.
//
// " The BCM2835 DMA Controller provides a total of 16 DMA channels. Each
// channel operates independently from the others and is internally arbitrated
// onto one of the 3 system buses. This means that the amount of bandwidth that
// a DMA channel may consume can be controlled by the arbiter settings. "
//
// The CPU has 16 DMA channels but only the first 7 (#0 to #6) can do strides.
// 7~15 have half the bandwidth.

package bcm283x

import (
	"errors"
	"fmt"
	"strings"
)

// dmaBusPeripheralBase is the bus address alias of the peripheral block; DMA
// engines must reference peripheral registers through this alias, not their
// physical address, page 7.
const dmaBusPeripheralBase = 0x7E000000

// Pages 47-50
type dmaStatus uint32

const (
	dmaReset                    dmaStatus = 1 << 31 // RESET
	dmaAbort                    dmaStatus = 1 << 30 // ABORT
	dmaDisDebug                 dmaStatus = 1 << 29 // DISDEBUG
	dmaWaitForOutstandingWrites dmaStatus = 1 << 28 // WAIT_FOR_OUTSTANDING_WRITES
	// 27:24 reserved
	// 23:20 Lowest has higher priority on AXI.
	dmaPanicPriorityShift = 20 // PANIC_PRIORITY
	// 19:16 Lowest has higher priority on AXI.
	dmaPriorityShift = 16 // PRIORITY
	// 15:9 reserved
	dmaErrorStatus dmaStatus = 1 << 8 // ERROR DMA error was detected; must be cleared manually.
	// 7 reserved
	dmaWaitingForOutstandingWrites dmaStatus = 1 << 6 // WAITING_FOR_OUTSTANDING_WRITES
	dmaDreqStopsDMA                dmaStatus = 1 << 5 // DREQ_STOPS_DMA
	dmaPaused                      dmaStatus = 1 << 4 // PAUSED
	dmaDreq                        dmaStatus = 1 << 3 // DREQ
	dmaInterrupt                   dmaStatus = 1 << 2 // INT
	dmaEnd                         dmaStatus = 1 << 1 // END
	dmaActive                      dmaStatus = 1 << 0 // ACTIVE
)

func (d dmaStatus) String() string {
	var tokens []string
	if d&dmaReset != 0 {
		tokens = append(tokens, "Reset")
	}
	if d&dmaAbort != 0 {
		tokens = append(tokens, "Abort")
	}
	if d&dmaDisDebug != 0 {
		tokens = append(tokens, "DisableDebug")
	}
	if d&dmaWaitForOutstandingWrites != 0 {
		tokens = append(tokens, "WaitForOutstandingWrites")
	}
	if d&dmaErrorStatus != 0 {
		tokens = append(tokens, "ErrorStatus")
	}
	if d&dmaWaitingForOutstandingWrites != 0 {
		tokens = append(tokens, "WaitingForOutstandingWrites")
	}
	if d&dmaDreqStopsDMA != 0 {
		tokens = append(tokens, "DreqStopsDMA")
	}
	if d&dmaPaused != 0 {
		tokens = append(tokens, "Paused")
	}
	if d&dmaDreq != 0 {
		tokens = append(tokens, "Dreq")
	}
	if d&dmaInterrupt != 0 {
		tokens = append(tokens, "Interrupt")
	}
	if d&dmaEnd != 0 {
		tokens = append(tokens, "End")
	}
	if d&dmaActive != 0 {
		tokens = append(tokens, "Active")
	}
	if pp := (d >> dmaPanicPriorityShift) & 0xF; pp != 0 {
		tokens = append(tokens, fmt.Sprintf("pp%d", pp))
	}
	if p := (d >> dmaPriorityShift) & 0xF; p != 0 {
		tokens = append(tokens, fmt.Sprintf("p%d", p))
	}
	known := dmaReset | dmaAbort | dmaDisDebug | dmaWaitForOutstandingWrites |
		dmaStatus(0xF)<<dmaPanicPriorityShift | dmaStatus(0xF)<<dmaPriorityShift |
		dmaErrorStatus | dmaWaitingForOutstandingWrites | dmaDreqStopsDMA |
		dmaPaused | dmaDreq | dmaInterrupt | dmaEnd | dmaActive
	if rem := uint32(d) &^ uint32(known); rem != 0 {
		tokens = append(tokens, fmt.Sprintf("dmaStatus(%#x)", rem))
	}
	if len(tokens) == 0 {
		return "0"
	}
	return strings.Join(tokens, "|")
}

// Pages 50-52
type dmaTransferInfo uint32

const (
	// 31:27 reserved
	// Don't do wide writes as 2 beat burst; only for channels 0 to 6
	dmaNoWideBursts dmaTransferInfo = 1 << 26 // NO_WIDE_BURSTS
	// 25:21 Slows down the DMA throughput by setting the number of dummy cycles
	// burnt after each DMA read or write is completed.
	dmaWaitCyclesShift = 21 // WAITS
	// 20:16 Peripheral mapping (1-31) whose ready signal shall be used to
	// control the rate of the transfers. 0 means continuous un-paced transfer.
	//
	// It is the source used to pace the data reads and writes operations, each
	// pace being a DReq (Data Request).
	//
	// Page 61
	dmaFire          dmaTransferInfo = (iota - 2) << 16 // PERMAP; Continuous trigger
	dmaDSI                                        //
	dmaPCMTX                                      //
	dmaPCMRX                                      //
	dmaSMI                                        //
	dmaPWM                                        //
	dmaSPITX                                      //
	dmaSPIRX                                      //
	dmaBSCSPISlaveTX                              //
	dmaBSCSPISlaveRX                              //
	dmaUnused                                     //
	dmaEMMC                                       //
	dmaUARTTX                                     //
	dmaSDHost                                     //
	dmaUARTRX                                     //
	dmaDSI2                                       // Same as dsi
	dmaSlimBusMCTX                                //
	dmaHDMI                                       //
	dmaSlimBusMCRX                                //
	dmaSlimBusDC0                                 //
	dmaSlimBusDC1                                 //
	dmaSlimBusDC2                                 //
	dmaSlimBusDC3                                 //
	dmaSlimBusDC4                                 //
	dmaScalerFifo0                                // Also on SMI; SMI can be disabled with smiDisable
	dmaScalerFifo1                                //
	dmaScalerFifo2                                //
	dmaSlimBusDC5                                 //
	dmaSlimBusDC6                                 //
	dmaSlimBusDC7                                 //
	dmaSlimBusDC8                                 //
	dmaSlimBusDC9                                 //

	dmaBurstLengthShift                 = 12      // BURST_LENGTH 15:12 0 means a single transfer.
	dmaSrcIgnore        dmaTransferInfo = 1 << 11 // SRC_IGNORE Source won't be read, output will be zeros.
	dmaSrcDReq          dmaTransferInfo = 1 << 10 // SRC_DREQ
	dmaSrcWidth128      dmaTransferInfo = 1 << 9  // SRC_WIDTH 128 bits reads if set, 32 bits otherwise.
	dmaSrcInc           dmaTransferInfo = 1 << 8  // SRC_INC Increment read pointer by 32/128bits at each read if set.
	dmaDstIgnore        dmaTransferInfo = 1 << 7  // DEST_IGNORE Do not write.
	dmaDstDReq          dmaTransferInfo = 1 << 6  // DEST_DREQ
	dmaDstWidth         dmaTransferInfo = 1 << 5  // DEST_WIDTH 128 bits writes if set, 32 bits otherwise.
	dmaDstInc           dmaTransferInfo = 1 << 4  // DEST_INC Increment write pointer by 32/128bits at each read if set.
	dmaWaitResp         dmaTransferInfo = 1 << 3  // WAIT_RESP DMA waits for AXI write response.
	// 2 reserved
	// 2D mode interpret of txLen; linear if unset; only for channels 0 to 6.
	dmaTransfer2DMode  dmaTransferInfo = 1 << 1 // TDMODE
	dmaInterruptEnable dmaTransferInfo = 1 << 0 // INTEN Generate an interrupt upon completion.

	dmaPermapMask dmaTransferInfo = 0x1F << 16
)

var dmaPermapNames = [...]string{
	"Fire", "DSI", "PCMTX", "PCMRX", "SMI", "PWM", "SPITX", "SPIRX",
	"BSCSPISlaveTX", "BSCSPISlaveRX", "Unused", "eMMC", "UARTTX", "SDHost",
	"UARTRX", "DSI", "SlimBusMCTX", "HDMI", "SlimBusMCRX", "SlimBusDC0",
	"SlimBusDC1", "SlimBusDC2", "SlimBusDC3", "SlimBusDC4", "ScalerFifo0",
	"ScalerFifo1", "ScalerFifo2", "SlimBusDC5", "SlimBusDC6", "SlimBusDC7",
	"SlimBusDC8", "SlimBusDC9",
}

func (t dmaTransferInfo) String() string {
	var tokens []string
	if t&dmaNoWideBursts != 0 {
		tokens = append(tokens, "NoWideBursts")
	}
	if w := (t >> dmaWaitCyclesShift) & 0x1F; w != 0 {
		tokens = append(tokens, fmt.Sprintf("waits=%d", w))
	}
	if b := (t >> dmaBurstLengthShift) & 0xF; b != 0 {
		tokens = append(tokens, fmt.Sprintf("burst=%d", b))
	}
	if t&dmaSrcIgnore != 0 {
		tokens = append(tokens, "SrcIgnore")
	}
	if t&dmaSrcDReq != 0 {
		tokens = append(tokens, "SrcDReq")
	}
	if t&dmaSrcWidth128 != 0 {
		tokens = append(tokens, "SrcWidth128")
	}
	if t&dmaSrcInc != 0 {
		tokens = append(tokens, "SrcInc")
	}
	if t&dmaDstIgnore != 0 {
		tokens = append(tokens, "DstIgnore")
	}
	if t&dmaDstDReq != 0 {
		tokens = append(tokens, "DstDReq")
	}
	if t&dmaDstWidth != 0 {
		tokens = append(tokens, "DstWidth128")
	}
	if t&dmaDstInc != 0 {
		tokens = append(tokens, "DstInc")
	}
	if t&dmaWaitResp != 0 {
		tokens = append(tokens, "WaitResp")
	}
	if t&dmaTransfer2DMode != 0 {
		tokens = append(tokens, "Transfer2DMode")
	}
	if t&dmaInterruptEnable != 0 {
		tokens = append(tokens, "InterruptEnable")
	}
	if w := (t >> dmaWaitCyclesShift) & 0x1F; w != 0 {
		tokens = append(tokens, fmt.Sprintf("waits=%d", w))
	}
	if b := (t >> dmaBurstLengthShift) & 0xF; b != 0 {
		tokens = append(tokens, fmt.Sprintf("burst=%d", b))
	}
	tokens = append(tokens, dmaPermapNames[(t&dmaPermapMask)>>16])

	known := dmaNoWideBursts | dmaTransferInfo(0x1F)<<dmaWaitCyclesShift | dmaPermapMask |
		dmaTransferInfo(0xF)<<dmaBurstLengthShift | dmaSrcIgnore | dmaSrcDReq |
		dmaSrcWidth128 | dmaSrcInc | dmaDstIgnore | dmaDstDReq | dmaDstWidth |
		dmaDstInc | dmaWaitResp | dmaTransfer2DMode | dmaInterruptEnable
	if rem := uint32(t) &^ uint32(known); rem != 0 {
		tokens = append(tokens, fmt.Sprintf("dmaTransferInfo(%#x)", rem))
	}
	return strings.Join(tokens, "|")
}

// Page 55
type dmaDebug uint32

const (
	// 31:29 reserved
	dmaLite dmaDebug = 1 << 28 // LITE RO set for lite DMA controllers
	// 27:25 version
	dmaVersionShift = 25
	// 24:16 dmaState
	dmaStateShift = 16 // DMA_STATE
	// 15:8  dmaID
	dmaIDShift = 8 // DMA_ID
	// 7:4   outstandingWrites
	dmaOutstandingWritesShift = 4 // OUTSTANDING_WRITES
	// 3     reserved
	dmaReadError           dmaDebug = 1 << 2 // READ_ERROR slave read error; clear by writing a 1
	dmaFIFOError           dmaDebug = 1 << 1 // FIF_ERROR fifo error; clear by writing a 1
	dmaReadLastNotSetError dmaDebug = 1 << 0 // READ_LAST_NOT_SET_ERROR last AXI read signal was not set when expected
)

func (d dmaDebug) String() string {
	var tokens []string
	if d&dmaLite != 0 {
		tokens = append(tokens, "Lite")
	}
	if d&dmaReadError != 0 {
		tokens = append(tokens, "ReadError")
	}
	if d&dmaFIFOError != 0 {
		tokens = append(tokens, "FIFOError")
	}
	if d&dmaReadLastNotSetError != 0 {
		tokens = append(tokens, "ReadLastNotSetError")
	}
	if v := (d >> dmaVersionShift) & 7; v != 0 {
		tokens = append(tokens, fmt.Sprintf("v%d", v))
	}
	if s := (d >> dmaStateShift) & 0x1FF; s != 0 {
		tokens = append(tokens, fmt.Sprintf("state(%x)", s))
	}
	if id := (d >> dmaIDShift) & 0xFF; id != 0 {
		tokens = append(tokens, fmt.Sprintf("#%x", id))
	}
	if ow := (d >> dmaOutstandingWritesShift) & 0xF; ow != 0 {
		tokens = append(tokens, fmt.Sprintf("OutstandingWrites=%d", ow))
	}
	known := dmaLite | dmaDebug(7)<<dmaVersionShift | dmaDebug(0x1FF)<<dmaStateShift |
		dmaDebug(0xFF)<<dmaIDShift | dmaDebug(0xF)<<dmaOutstandingWritesShift |
		dmaReadError | dmaFIFOError | dmaReadLastNotSetError
	if rem := uint32(d) &^ uint32(known); rem != 0 {
		tokens = append(tokens, fmt.Sprintf("dmaDebug(%#x)", rem))
	}
	if len(tokens) == 0 {
		return "0"
	}
	return strings.Join(tokens, "|")
}

// 31:30 0
// 29:16 yLength (only for channels #0 to #6)
// 15:0  xLength
type dmaTransferLen uint32

// 31:16 dstStride byte increment to apply at the end of each row in 2D mode
// 15:0  srcStride byte increment to apply at the end of each row in 2D mode
type dmaStride uint32

func (d dmaStride) String() string {
	if d == 0 {
		return "0x0"
	}
	return fmt.Sprintf("0x%x,0x%x", uint32(d)>>16, uint32(d)&0xFFFF)
}

// controlBlock is a DMA control block, as laid out in memory for the DMA
// engine to read; it chains to the next control block via nextCB, forming
// the ring that drives a continuous tone or bit stream without CPU
// intervention.
//
// Page 40.
type controlBlock struct {
	transferInfo dmaTransferInfo
	srcAddr      uint32
	dstAddr      uint32
	txLen        dmaTransferLen
	stride       dmaStride
	nextCB       uint32
	reserved     [2]uint32
}

// initBlock programs a control block to move txLen bytes from srcAddr to
// dstAddr.
//
// srcIO/dstIO mark srcAddr/dstAddr as peripheral register offsets rather
// than RAM addresses: the transfer is paced by that peripheral's DReq and
// the bus peripheral alias is added to the address automatically. base
// selects the peripheral used for pacing (dmaFire for an unpaced, free
// running transfer).
func (c *controlBlock) initBlock(srcAddr, dstAddr, txLen uint32, srcIO, dstIO bool, base dmaTransferInfo, waits uint32) error {
	if srcIO && dstIO {
		return errors.New("bcm283x-dma: can't set both srcIO and dstIO")
	}
	if srcAddr == 0 && dstAddr == 0 {
		return errors.New("bcm283x-dma: need at least one of srcAddr or dstAddr")
	}
	if srcIO && srcAddr == 0 {
		return errors.New("bcm283x-dma: srcIO requires srcAddr")
	}
	if dstIO && dstAddr == 0 {
		return errors.New("bcm283x-dma: dstIO requires dstAddr")
	}
	if base&^dmaPermapMask != 0 {
		return errors.New("bcm283x-dma: base must not specify anything else than a peripheral mapping")
	}
	if waits > 31 {
		return errors.New("bcm283x-dma: waits must fit 5 bits")
	}
	if base == dmaFire && waits != 0 {
		return errors.New("bcm283x-dma: dmaFire can't use waits")
	}

	ti := dmaNoWideBursts | dmaWaitResp | base | dmaTransferInfo(waits)<<dmaWaitCyclesShift
	switch {
	case srcIO:
		ti |= dmaSrcDReq
	case srcAddr != 0:
		ti |= dmaSrcInc
	default:
		ti |= dmaSrcIgnore
	}
	switch {
	case dstIO:
		ti |= dmaDstDReq
	case dstAddr != 0:
		ti |= dmaDstInc
	default:
		ti |= dmaDstIgnore
	}

	if srcIO {
		srcAddr += dmaBusPeripheralBase
	}
	if dstIO {
		dstAddr += dmaBusPeripheralBase
	}
	c.transferInfo = ti
	c.srcAddr = srcAddr
	c.dstAddr = dstAddr
	c.txLen = dmaTransferLen(txLen)
	c.stride = 0
	c.nextCB = 0
	return nil
}

func (c *controlBlock) GoString() string {
	return fmt.Sprintf("{\n  transferInfo: %s,\n  srcAddr:      0x%x,\n  dstAddr:      0x%x,\n  txLen:        %d,\n  stride:       0x%x,\n  nextCB:       0x%x,\n}",
		c.transferInfo, c.srcAddr, c.dstAddr, uint32(c.txLen), uint32(c.stride), c.nextCB)
}

// dmaChannel is the memory mapped register layout of a single DMA channel.
//
// Page 40.
type dmaChannel struct {
	cs           dmaStatus
	cbAddr       uint32
	transferInfo dmaTransferInfo
	srcAddr      uint32
	dstAddr      uint32
	txLen        dmaTransferLen
	stride       dmaStride
	nextCB       uint32
	debug        dmaDebug
	reserved     [2]uint32
}

// isAvailable returns true if the channel isn't currently running a
// transfer.
func (d *dmaChannel) isAvailable() bool {
	return d.cs&dmaActive == 0
}

// wait checks the channel once, without blocking: it returns an error if a
// hardware error flag is set or if the channel has not reported completion.
func (d *dmaChannel) wait() error {
	if d.debug&dmaReadError != 0 {
		return errors.New("bcm283x-dma: read error")
	}
	if d.debug&dmaFIFOError != 0 {
		return errors.New("bcm283x-dma: fifo error")
	}
	if d.debug&dmaReadLastNotSetError != 0 {
		return errors.New("bcm283x-dma: read last not set error")
	}
	if d.cs&dmaEnd == 0 {
		return errors.New("bcm283x-dma: not done")
	}
	return nil
}

// reset clears the channel's sticky error flags and leaves it idle.
func (d *dmaChannel) reset() {
	d.cs = dmaWaitForOutstandingWrites
	d.debug = dmaReadError | dmaFIFOError | dmaReadLastNotSetError
}

// startIO kicks off the control block chain starting at addr, the bus
// address of the first controlBlock.
func (d *dmaChannel) startIO(addr uint32) {
	d.cbAddr = addr
	d.cs |= dmaActive | 8<<dmaPanicPriorityShift | 8<<dmaPriorityShift
}

func (d *dmaChannel) GoString() string {
	return fmt.Sprintf("{\n  cs:           %s,\n  cbAddr:       0x%x,\n  transferInfo: %s,\n  srcAddr:      0x%x,\n  dstAddr:      0x%x,\n  txLen:        %d,\n  stride:       0x%x,\n  nextCB:       0x%x,\n  debug:        %s,\n  reserved:     {...},\n}",
		d.cs, d.cbAddr, d.transferInfo, d.srcAddr, d.dstAddr, uint32(d.txLen), uint32(d.stride), d.nextCB, d.debug)
}

// dmaMap is the memory mapped register layout covering all 16 DMA channels
// plus the shared interrupt status/enable registers.
//
// Page 39.
type dmaMap struct {
	channels    [15]dmaChannel
	intStatus   uint32
	dummy       [1]uint32
	enable      uint32
	channel15   dmaChannel // channel 15 is aliased at a different base offset
}

func (d *dmaMap) GoString() string {
	var b strings.Builder
	b.WriteString("{\n")
	for i := range d.channels {
		fmt.Fprintf(&b, "  channel%d: %#v,\n", i, &d.channels[i])
	}
	fmt.Fprintf(&b, "  channel15: %#v,\n", &d.channel15)
	b.WriteString("}")
	return b.String()
}

// dmaMemory is the memory mapped DMA controller register block; nil until
// the driver has successfully mapped /dev/mem. The engine only ever drives
// channel 0.
var dmaMemory *dmaMap
