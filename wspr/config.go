// Copyright 2018 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package wspr

import "fmt"

// Mode selects what a Scheduler frame transmits.
type Mode int

const (
	// WSPR transmits an encoded 162 symbol frame.
	WSPR Mode = iota
	// Tone transmits a single continuous carrier, for antenna/filter testing.
	Tone
)

func (m Mode) String() string {
	if m == Tone {
		return "tone"
	}
	return "wspr"
}

// wspr2SymbolPeriod and wspr15SymbolPeriod are the WSPR symbol durations in
// seconds, per the protocol: 8192/12000 s, and 8x that for the slow mode.
const (
	wspr2SymbolPeriod  = 8192.0 / 12000.0
	wspr15SymbolPeriod = 8 * wspr2SymbolPeriod
)

// wspr2Offset and wspr15Offset bound the random center-frequency offset
// applied at Arm when Config.UseOffset is set.
const (
	wspr2Offset  = 80.0
	wspr15Offset = 8.0
)

// wspr15Bands lists the narrow sub-bands, in Hz, that select WSPR-15 instead
// of WSPR-2: the classic 2190m, 630m and 160m WSPR-15 calling frequencies.
var wspr15Bands = [...]float64{137612.5, 475812.5, 1838212.5}

// wspr15BandTolerance is how close center must land to one of wspr15Bands to
// be classified WSPR-15.
const wspr15BandTolerance = 100.0

// maxPPM is the safety bound on PPM magnitude: a PPM update whose magnitude
// exceeds this is rejected rather than applied.
const maxPPM = 200.0

// Config is a snapshot of one transmission's parameters, supplied fresh by
// the caller for every run; nothing here is persisted across process
// lifetimes.
type Config struct {
	Callsign string
	Grid     string
	PowerDBm int

	CenterFrequencies []float64
	DriveIndex        uint32
	UseOffset         bool
	UseNTP            bool
	PPM               float64

	Mode       Mode
	TestToneHz float64
}

// FrequencyOutOfBandError reports a center frequency that cannot be
// synthesized within integer-divider alignment.
type FrequencyOutOfBandError struct {
	FrequencyHz float64
	Reason      string
}

func (e *FrequencyOutOfBandError) Error() string {
	return fmt.Sprintf("wspr: %g Hz out of band: %s", e.FrequencyHz, e.Reason)
}

// PpmOutOfRangeError reports a PPM update whose magnitude exceeds maxPPM.
type PpmOutOfRangeError struct {
	PPM float64
}

func (e *PpmOutOfRangeError) Error() string {
	return fmt.Sprintf("wspr: ppm %g exceeds safety bound of %g", e.PPM, maxPPM)
}

// classifyMode picks WSPR-2 vs WSPR-15 for centerHz, per the narrow
// sub-band classifier around the three WSPR-15 calling frequencies.
func classifyMode(centerHz float64) (symbolPeriod, offsetRange float64) {
	for _, band := range wspr15Bands {
		if centerHz >= band-wspr15BandTolerance && centerHz <= band+wspr15BandTolerance {
			return wspr15SymbolPeriod, wspr15Offset
		}
	}
	return wspr2SymbolPeriod, wspr2Offset
}
