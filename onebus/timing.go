// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onebus

import "time"

// Unscaled time slot budgets, in µs.
const (
	resetLowUS         = 480 // master reset pulse
	presenceSampleUS   = 70  // release to presence sample
	presenceRecoveryUS = 410 // presence sample to end of reset
	writeStartUS       = 1   // low time common to both bit values
	write1LowUS        = 15  // rest of a 1 slot before recovery
	write0LowUS        = 60  // rest of a 0 slot before recovery
	writeRecoveryUS    = 60
	readReleaseUS      = 1
	readSampleUS       = 15
	readRecoveryUS     = 45

	// Slave side.
	presenceDelayUS = 15 // rising edge of reset to presence pulse
	presencePulseUS = 60
	slaveHoldUS     = 60 // low time answering a read slot with 0
	slotSampleUS    = 15 // slot window [slotSampleUS, slotEndUS)
	slotEndUS       = 60
)

// timing holds the budgets scaled by the timeout multiplier.
type timing struct {
	resetLow         uint32
	presenceSample   uint32
	presenceRecovery uint32
	writeStart       uint32
	write1Low        uint32
	write0Low        uint32
	writeRecovery    uint32
	readRelease      uint32
	readSample       uint32
	readRecovery     uint32
	presenceDelay    uint32
	presencePulse    uint32
	slaveHold        uint32
	slotSample       uint32
	slotEnd          uint32
}

func newTiming(m uint32) timing {
	return timing{
		resetLow:         resetLowUS * m,
		presenceSample:   presenceSampleUS * m,
		presenceRecovery: presenceRecoveryUS * m,
		writeStart:       writeStartUS * m,
		write1Low:        write1LowUS * m,
		write0Low:        write0LowUS * m,
		writeRecovery:    writeRecoveryUS * m,
		readRelease:      readReleaseUS * m,
		readSample:       readSampleUS * m,
		readRecovery:     readRecoveryUS * m,
		presenceDelay:    presenceDelayUS * m,
		presencePulse:    presencePulseUS * m,
		slaveHold:        slaveHoldUS * m,
		slotSample:       slotSampleUS * m,
		slotEnd:          slotEndUS * m,
	}
}

// reset returns the duration of a full reset and presence sequence.
func (t *timing) reset() time.Duration {
	return time.Duration(t.resetLow+t.presenceSample+t.presenceRecovery) * time.Microsecond
}

// slot returns the longest duration of a single bit, read or write.
func (t *timing) slot() time.Duration {
	w := t.writeStart + t.write0Low + t.writeRecovery
	r := t.readRelease + t.readSample + t.readRecovery
	if r > w {
		w = r
	}
	return time.Duration(w) * time.Microsecond
}

// txDuration returns how long a transaction writing w and reading r bytes
// takes on the wire.
func (t *timing) txDuration(w, r int) time.Duration {
	return t.reset() + time.Duration(8*(w+r))*t.slot()
}
