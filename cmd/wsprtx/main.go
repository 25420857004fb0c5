// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// wsprtx transmits a WSPR beacon, or a test tone, from a bcm283x GPIO pin.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"wsprtx.io/x/wsprtx/host"
	"wsprtx.io/x/wsprtx/wspr"
)

// freqList parses a comma-separated list of center frequencies in Hz; the
// scheduler rotates across them, one frame per frequency, when more than
// one is given.
type freqList []float64

func (f *freqList) String() string {
	s := make([]string, len(*f))
	for i, v := range *f {
		s[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(s, ",")
}

func (f *freqList) Set(s string) error {
	*f = nil
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return fmt.Errorf("invalid frequency %q: %v", part, err)
		}
		*f = append(*f, v)
	}
	return nil
}

func mainImpl() error {
	callsign := flag.String("callsign", "", "station callsign")
	grid := flag.String("grid", "", "4 character Maidenhead grid locator")
	power := flag.Int("power", 10, "transmit power, in dBm (one of the canonical WSPR levels)")
	var freqs freqList
	flag.Var(&freqs, "freq", "comma-separated center frequencies, in Hz (rotated across, one frame each)")
	drive := flag.Int("drive", 7, "GPIO pad drive strength index, 0..7")
	ppm := flag.Float64("ppm", 0, "initial PPM correction applied to the PLLD reference")
	useOffset := flag.Bool("offset", true, "apply a random sub-band frequency offset at each frame")
	testTone := flag.Float64("test-tone", 0, "transmit a continuous tone at this frequency instead of a WSPR frame")
	once := flag.Bool("once", false, "transmit a single frame/tone and exit instead of looping forever")
	immediate := flag.Bool("immediate", false, "skip the WSPR minute-window wait; for bench testing")
	verbose := flag.Bool("v", false, "add microsecond timestamps to log lines")
	flag.Parse()

	var logger *log.Logger
	if *verbose {
		logger = log.New(os.Stderr, "wsprtx: ", log.Lmicroseconds)
	} else {
		logger = log.New(os.Stderr, "wsprtx: ", 0)
	}

	cfg := wspr.Config{
		Callsign:          *callsign,
		Grid:              *grid,
		PowerDBm:          *power,
		CenterFrequencies: freqs,
		DriveIndex:        uint32(*drive),
		UseOffset:         *useOffset,
		PPM:               *ppm,
		TestToneHz:        *testTone,
	}
	if *testTone > 0 {
		cfg.Mode = wspr.Tone
	}
	if cfg.Mode != wspr.Tone && len(cfg.CenterFrequencies) == 0 {
		return fmt.Errorf("at least one -freq is required outside -test-tone mode")
	}

	if _, err := host.Init(); err != nil {
		return fmt.Errorf("initializing host drivers: %w", err)
	}
	scheduler, err := wspr.NewScheduler()
	if err != nil {
		return fmt.Errorf("initializing DMA carrier: %w", err)
	}
	scheduler.OnTransmissionStarted = func(label string, frequencyHz float64) {
		logger.Printf("started %q at %.1f Hz", label, frequencyHz)
	}
	scheduler.OnTransmissionFinished = func(label string, elapsedS float64) {
		logger.Printf("finished %q after %.1fs", label, elapsedS)
	}

	halt := make(chan os.Signal, 1)
	signal.Notify(halt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-halt
		logger.Print("stop requested")
		scheduler.RequestStop()
	}()

	centers := cfg.CenterFrequencies
	if cfg.Mode == wspr.Tone {
		centers = []float64{0}
	}
	for i := 0; ; i = (i + 1) % len(centers) {
		frame, err := scheduler.Arm(cfg, centers[i])
		if err != nil {
			return fmt.Errorf("arming frame: %w", err)
		}
		if err := scheduler.Transmit(frame, *immediate); err != nil {
			return fmt.Errorf("transmitting frame: %w", err)
		}
		if scheduler.Stopped() || *once {
			return nil
		}
	}
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "wsprtx: %s.\n", err)
		os.Exit(1)
	}
}
