// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bcm283x

import (
	"fmt"
	"testing"
)

func TestTruncateDiv12(t *testing.T) {
	t.Parallel()
	data := []struct {
		ratio    float64
		expected uint32
	}{
		{1.0, 4096},
		{1.5, 6144},
		{0, 0},
		{-1, 0},
		{1 << 20, tuningDividerMask},
	}
	for i, line := range data {
		line := line
		t.Run(fmt.Sprintf("#%d", i), func(t *testing.T) {
			t.Parallel()
			if v := truncateDiv12(line.ratio); v != line.expected {
				t.Fatalf("truncateDiv12(%g) = %#x, want %#x", line.ratio, v, line.expected)
			}
		})
	}
}

func TestTuningTable_rebuild(t *testing.T) {
	t.Parallel()
	var tbl tuningTable
	const plld = 500000000.0
	achieved, err := tbl.rebuild(plld, 14097100, 1.4648, 0)
	if err != nil {
		t.Fatal(err)
	}
	if achieved <= 0 {
		t.Fatalf("achieved center %g must be positive", achieved)
	}

	for k := 0; k < 4; k++ {
		lower := tbl.dividers[2*k]
		upper := tbl.dividers[2*k+1]
		if upper != lower+1 {
			t.Fatalf("tone %d: upper divider %d should follow lower %d by 1", k, upper, lower)
		}
		if lower>>12 != upper>>12 {
			t.Fatalf("tone %d: dividers %#x / %#x don't share an integer part", k, lower, upper)
		}
		if tbl.freq[2*k] < tbl.freq[2*k+1] {
			t.Fatalf("tone %d: a larger divider must yield a lower frequency", k)
		}
	}

	for i := 8; i < 1024; i++ {
		if tbl.dividers[i]&0xFFF != 0 {
			t.Fatalf("filler entry %d must be an integer divider, got %#x", i, tbl.dividers[i])
		}
	}
}

func TestTuningTable_rebuild_invalid(t *testing.T) {
	t.Parallel()
	var tbl tuningTable
	if _, err := tbl.rebuild(500000000, 0, 1.4648, 0); err == nil {
		t.Fatal("expected error for non-positive center frequency")
	}
	if _, err := tbl.rebuild(500000000, 14097100, 0, 0); err == nil {
		t.Fatal("expected error for non-positive tone spacing")
	}
}

func TestTuningTable_wordAt(t *testing.T) {
	t.Parallel()
	var tbl tuningTable
	if _, err := tbl.rebuild(500000000, 14097100, 1.4648, 0); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 1024; i++ {
		w := tbl.wordAt(i)
		if w&0xFF000000 != tuningWordPasswd {
			t.Fatalf("entry %d: word %#x missing password byte", i, w)
		}
		if w&tuningDividerMask != tbl.dividers[i] {
			t.Fatalf("entry %d: word %#x doesn't carry divider %#x", i, w, tbl.dividers[i])
		}
	}
}
