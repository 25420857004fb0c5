// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package fs

import (
	"os"
	"testing"
	"time"
)

func TestEvent_Pipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	e := &Event{}
	if err := e.MakeEvent(r.Fd()); err != nil {
		t.Fatal(err)
	}

	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}

	n, err := e.Wait(int(5 * time.Second / time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected one event, got %d", n)
	}
}

func TestIoctl_badFd(t *testing.T) {
	if err := ioctl(0xFFFFFFFF, IO('p', 0), 0); err == nil {
		t.Fatal("expected failure on a bad file descriptor")
	}
}
