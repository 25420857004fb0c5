// Copyright 2016 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpiotest

import (
	"flag"
	"io/ioutil"
	"log"
	"os"
	"testing"
	"time"

	"wsprtx.io/x/wsprtx/conn/gpio"
	"wsprtx.io/x/wsprtx/conn/gpio/gpioreg"
)

func TestPin_edgeChannel(t *testing.T) {
	p := &Pin{N: "GPIO1", Num: 1, Fn: "CLK", EdgesChan: make(chan gpio.Level, 1)}
	p.EdgesChan <- gpio.High
	if !p.WaitForEdge(-1) {
		t.Fatal("expected edge")
	}
	if l := p.Read(); l != gpio.High {
		t.Fatalf("unexpected %s", l)
	}
	if p.WaitForEdge(time.Millisecond) {
		t.Fatal("unexpected edge")
	}
	p.EdgesChan <- gpio.Low
	if !p.WaitForEdge(time.Minute) {
		t.Fatal("expected edge")
	}
	if l := p.Read(); l != gpio.Low {
		t.Fatalf("unexpected %s", l)
	}
}

func TestPin_inFail(t *testing.T) {
	p := &Pin{N: "GPIO1", Num: 1, Fn: "CLK"}
	if err := p.In(gpio.Float, gpio.Both); err == nil {
		t.Fatal()
	}
}

func TestLogPinIO(t *testing.T) {
	p := &Pin{}
	l := &LogPinIO{p}
	if l.Real() != p {
		t.Fatal("unexpected real pin")
	}
	// gpio.PinIn
	if err := l.In(gpio.PullNoChange, gpio.None); err != nil {
		t.Fatal(err)
	}
	if v := l.Read(); v != gpio.Low {
		t.Fatalf("unexpected level %v", v)
	}
	if l.Pull() != gpio.PullNoChange {
		t.Fatal("unexpected pull")
	}
	if l.WaitForEdge(0) {
		t.Fatal("unexpected edge")
	}
	// gpio.PinOut
	if err := l.Out(gpio.High); err != nil {
		t.Fatal(err)
	}
	if v := l.Read(); v != gpio.High {
		t.Fatalf("unexpected level %v", v)
	}
	if err := l.PWM(gpio.Half); err != nil {
		t.Fatalf("unexpected failure: %v", err)
	}
}

func TestGpioreg(t *testing.T) {
	if len(gpioreg.All()) != 2 {
		t.Fatal("expected two pins registered for test")
	}
	if gpioreg.ByName("GPIO0") != nil {
		t.Fatal("GPIO0 doesn't exist")
	}
	p := gpioreg.ByName("key")
	if p == nil {
		t.Fatal("key alias missing")
	}
	r, ok := p.(gpio.RealPin)
	if !ok || r.Real().Name() != "GPIO4" {
		t.Fatalf("expected alias to GPIO4, got: %T", p)
	}
}

//

var (
	gpio4 = &Pin{N: "GPIO4", Num: 4, Fn: "CLK"}
	gpio5 = &Pin{N: "GPIO5", Num: 5, Fn: "CLK"}
)

func init() {
	if err := gpioreg.Register(gpio4, false); err != nil {
		panic(err)
	}
	if err := gpioreg.Register(gpio5, false); err != nil {
		panic(err)
	}
	if err := gpioreg.RegisterAlias("key", "GPIO4"); err != nil {
		panic(err)
	}
}

func TestMain(m *testing.M) {
	flag.Parse()
	if !testing.Verbose() {
		log.SetOutput(ioutil.Discard)
	}
	os.Exit(m.Run())
}
