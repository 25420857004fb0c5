// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package gpioreg

import (
	"testing"

	"wsprtx.io/x/wsprtx/conn/gpio"
)

func TestRegister(t *testing.T) {
	defer reset()
	if err := Register(&basicPin{PinIO: gpio.INVALID, N: "GPIO4"}, false); err != nil {
		t.Fatal(err)
	}
	if a := All(); len(a) != 1 {
		t.Fatalf("Expected one pin, got %v", a)
	}
	if a := Aliases(); len(a) != 0 {
		t.Fatalf("Expected zero alias, got %v", a)
	}
	if ByName("GPIO4") == nil {
		t.Fail()
	}
	if ByName("4") != nil {
		t.Fail()
	}
}

func TestRegister_fail(t *testing.T) {
	defer reset()
	if err := Register(&basicPin{PinIO: gpio.INVALID}, false); err == nil {
		t.Fatal("Expected error")
	}
	if err := Register(&basicPin{PinIO: gpio.INVALID, N: "GPIO4"}, false); err != nil {
		t.Fatal(err)
	}
	if err := Register(&basicPin{PinIO: gpio.INVALID, N: "GPIO4"}, false); err == nil {
		t.Fatal("Expected error registering the same name twice")
	}
}

func TestRegisterAlias(t *testing.T) {
	defer reset()
	if err := RegisterAlias("tx-key", "GPIO4"); err != nil {
		t.Fatal(err)
	}
	if p := ByName("tx-key"); p != nil {
		t.Fatalf("unexpected tx-key: %v", p)
	}
	if a := All(); len(a) != 0 {
		t.Fatalf("Expected zero pin, got %v", a)
	}
	if a := Aliases(); len(a) != 0 {
		t.Fatalf("Expected zero alias, got %v", a)
	}
	if err := Register(&basicPin{PinIO: gpio.INVALID, N: "GPIO4"}, false); err != nil {
		t.Fatal(err)
	}
	if a := All(); len(a) != 1 {
		t.Fatalf("Expected one pin, got %v", a)
	}
	if a := Aliases(); len(a) != 1 {
		t.Fatalf("Expected one alias, got %v", a)
	}
	p := ByName("tx-key")
	if p == nil {
		t.Fail()
	} else if r := p.(gpio.RealPin).Real(); r.Name() != "GPIO4" {
		t.Fatalf("Expected real GPIO4, got %v", r)
	} else if s := p.String(); s != "tx-key(GPIO4)" {
		t.Fatal(s)
	}
}

func TestRegisterAlias_fail(t *testing.T) {
	defer reset()
	if err := RegisterAlias("", "GPIO4"); err == nil {
		t.Fatal("Expected error")
	}
	if err := RegisterAlias("tx-key", ""); err == nil {
		t.Fatal("Expected error")
	}
}

func TestUnregister(t *testing.T) {
	defer reset()
	if err := Register(&basicPin{PinIO: gpio.INVALID, N: "GPIO4"}, false); err != nil {
		t.Fatal(err)
	}
	if err := Unregister("GPIO4"); err != nil {
		t.Fatal(err)
	}
	if ByName("GPIO4") != nil {
		t.Fail()
	}
	if err := Unregister("GPIO4"); err == nil {
		t.Fatal("Expected error unregistering an unknown pin")
	}
}

//

// basicPin implements gpio.PinIO as a non-functional pin with an overridden name.
type basicPin struct {
	gpio.PinIO
	N string
}

func (b *basicPin) String() string {
	return b.N
}

func (b *basicPin) Name() string {
	return b.N
}

func reset() {
	mu.Lock()
	defer mu.Unlock()
	byName = map[string]gpio.PinIO{}
	byAlias = map[string]string{}
}
