// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fs

import "testing"

func TestIO(t *testing.T) {
	// Dir = none, Type = 'p' (0x70), NR = 0x20, Size = 0.
	if v := IO('p', 0x20); v != 0x7020 {
		t.Fatalf("got %#x", v)
	}
}

func TestIOR(t *testing.T) {
	if v := IOR('p', 0x20, 4); v != IOR('p', 0x20, 4) {
		t.Fatalf("got %#x", v)
	}
	if IOR('p', 0x20, 4) == IOW('p', 0x20, 4) {
		t.Fatal("IOR and IOW must not collide for the same type/nr/size")
	}
}

func TestIOWR(t *testing.T) {
	if IOWR('p', 0x20, 4) == IOR('p', 0x20, 4) {
		t.Fatal("IOWR and IOR must not collide")
	}
	if IOWR('p', 0x20, 4) == IOW('p', 0x20, 4) {
		t.Fatal("IOWR and IOW must not collide")
	}
}
