// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package wspr encodes WSPR messages and schedules transmissions against a
// bcm283x carrier generator.
package wspr

import (
	"fmt"
	"strings"
)

// dbmSteps are the canonical WSPR power levels, in dBm; power_dbm must be
// one of these.
var dbmSteps = [...]int{0, 3, 7, 10, 13, 17, 20, 23, 27, 30, 33, 37, 40, 43, 47, 50, 53, 57, 60}

// convPoly1 and convPoly2 are the rate-1/2 K=32 convolutional encoder's
// feedback polynomials, fixed by the WSPR protocol.
const (
	convPoly1 = 0xF2D05351
	convPoly2 = 0xE4613C47
)

// syncVector is the canonical 162 entry WSPR sync sequence, published by
// the WSPR protocol and not derivable from anything else in this package.
var syncVector = [162]byte{
	1, 1, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 1, 1, 1, 0, 0, 0,
	1, 0, 0, 1, 0, 1, 1, 1, 1, 0, 0, 0, 0, 0, 1, 0, 0, 1,
	0, 0, 1, 0, 1, 0, 0, 0, 0, 0, 0, 1, 0, 1, 1, 0, 0, 1,
	1, 0, 0, 0, 1, 1, 0, 0, 0, 0, 0, 0, 0, 1, 0, 1, 0, 0,
	1, 1, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 1, 0, 0, 0, 1, 1,
	0, 1, 0, 0, 0, 0, 0, 0, 1, 0, 0, 1, 0, 0, 1, 1, 1, 0,
	1, 0, 1, 0, 0, 0, 0, 1, 1, 0, 0, 0, 1, 0, 1, 0, 0, 0,
	1, 1, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0,
	1, 1, 0, 0, 0, 1, 1, 0, 1, 0, 1, 0, 0, 0, 1, 1, 0, 0,
}

// EncoderInputError reports a callsign, grid or power value that doesn't
// meet the WSPR message format, per the error taxonomy's EncoderInput kind.
type EncoderInputError struct {
	Field  string
	Reason string
}

func (e *EncoderInputError) Error() string {
	return fmt.Sprintf("wspr: invalid %s: %s", e.Field, e.Reason)
}

// nchar maps one WSPR message character to its packing value: digits 0-9,
// letters 10-35, space 36.
func nchar(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10, true
	case c == ' ':
		return 36, true
	default:
		return 0, false
	}
}

// normalizeCallsign upper-cases and right-pads callsign to 6 characters,
// prepending a space when the callsign's digit falls in position 1 instead
// of the position-2 slot the packing formula requires (e.g. "W1AW" ->
// " W1AW").
func normalizeCallsign(callsign string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(callsign))
	if len(c) < 3 || len(c) > 6 {
		return "", &EncoderInputError{"callsign", fmt.Sprintf("%q must be 3-6 characters", callsign)}
	}
	if c[1] >= '0' && c[1] <= '9' {
		c = " " + c
	}
	if len(c) > 6 {
		return "", &EncoderInputError{"callsign", fmt.Sprintf("%q is too long once normalized", callsign)}
	}
	if c[2] < '0' || c[2] > '9' {
		return "", &EncoderInputError{"callsign", fmt.Sprintf("%q must carry a digit in position 3", callsign)}
	}
	for len(c) < 6 {
		c += " "
	}
	return c, nil
}

// packCallsign implements spec's n1 formula over a normalized 6 character
// callsign.
func packCallsign(c string) (uint32, error) {
	vals := make([]int, 6)
	for i := 0; i < 6; i++ {
		v, ok := nchar(c[i])
		if !ok {
			return 0, &EncoderInputError{"callsign", fmt.Sprintf("character %q not in the WSPR alphabet", c[i])}
		}
		vals[i] = v
	}
	n1 := uint32(vals[0])
	n1 = n1*36 + uint32(vals[1])
	n1 = n1*10 + uint32(vals[2])
	n1 = n1*27 + uint32(vals[3]-10)
	n1 = n1*27 + uint32(vals[4]-10)
	n1 = n1*27 + uint32(vals[5]-10)
	return n1, nil
}

// packGridPower implements spec's n2 formula for a 4 character Maidenhead
// locator and a canonical WSPR dBm power level.
func packGridPower(grid string, dBm int) (uint32, error) {
	g := strings.ToUpper(strings.TrimSpace(grid))
	if len(g) != 4 {
		return 0, &EncoderInputError{"grid", fmt.Sprintf("%q must be exactly 4 characters", grid)}
	}
	if g[0] < 'A' || g[0] > 'R' || g[1] < 'A' || g[1] > 'R' {
		return 0, &EncoderInputError{"grid", fmt.Sprintf("%q field letters must be A-R", grid)}
	}
	if g[2] < '0' || g[2] > '9' || g[3] < '0' || g[3] > '9' {
		return 0, &EncoderInputError{"grid", fmt.Sprintf("%q square digits must be 0-9", grid)}
	}
	valid := false
	for _, d := range dbmSteps {
		if d == dBm {
			valid = true
			break
		}
	}
	if !valid {
		return 0, &EncoderInputError{"power", fmt.Sprintf("%d dBm is not a canonical WSPR power level", dBm)}
	}

	n2 := uint32(179-10*int(g[0]-'A')-int(g[2]-'0'))*180 + uint32(10*int(g[1]-'A')+int(g[3]-'0'))
	n2 = n2*128 + uint32(dBm) + 64
	return n2, nil
}

// reverse8 reverses the 8 low bits of v.
func reverse8(v uint8) uint8 {
	var r uint8
	for i := 0; i < 8; i++ {
		r = r<<1 | v&1
		v >>= 1
	}
	return r
}

// convolve runs src (MSB-first within n1<<22|n2, 50 significant bits,
// zero-flushed to 81) through the rate-1/2 K=32 convolutional encoder,
// producing 162 channel bits.
func convolve(n1, n2 uint32) [162]byte {
	// 50 bit source: 28 bits of n1 then 22 bits of n2, flushed to 81 bits.
	var bits [81]byte
	for i := 0; i < 28; i++ {
		bits[i] = byte((n1 >> (27 - i)) & 1)
	}
	for i := 0; i < 22; i++ {
		bits[28+i] = byte((n2 >> (21 - i)) & 1)
	}
	// bits[50:81] are already zero, the flush tail.

	var out [162]byte
	var reg uint32
	for i, b := range bits {
		reg = reg<<1 | uint32(b)
		out[2*i] = parity32(reg & convPoly1)
		out[2*i+1] = parity32(reg & convPoly2)
	}
	return out
}

func parity32(v uint32) byte {
	v ^= v >> 16
	v ^= v >> 8
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return byte(v & 1)
}

// interleave bit-reverse-interleaves a 162 entry channel stream: scanning
// counter i over 0..255, the i-th bit-reversed value j that lands under 162
// names the destination slot for the next source bit.
func interleave(channel [162]byte) [162]byte {
	var out [162]byte
	p := 0
	for i := 0; i < 256; i++ {
		j := reverse8(uint8(i))
		if int(j) < 162 {
			out[j] = channel[p]
			p++
		}
	}
	return out
}

// Encode returns the 162 symbol WSPR-2/WSPR-15 channel stream for callsign,
// grid4 and power_dbm, each symbol in {0,1,2,3}. It's a pure function:
// deterministic, no I/O.
func Encode(callsign, grid4 string, powerDBm int) ([162]byte, error) {
	var symbols [162]byte
	c, err := normalizeCallsign(callsign)
	if err != nil {
		return symbols, err
	}
	n1, err := packCallsign(c)
	if err != nil {
		return symbols, err
	}
	n2, err := packGridPower(grid4, powerDBm)
	if err != nil {
		return symbols, err
	}

	channel := convolve(n1, n2)
	interleaved := interleave(channel)
	for i := range symbols {
		symbols[i] = 2*interleaved[i] + syncVector[i]
	}
	return symbols, nil
}
