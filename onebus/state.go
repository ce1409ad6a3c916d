// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onebus

import "strconv"

// State is the phase the engine is in. Exactly one is active at a time and
// it alone decides what the next Tick does.
type State uint8

// All the engine states.
const (
	Idle State = iota
	ResetStart
	ResetWait
	ResetDetectPresence
	WriteBitStart
	WriteBitLow
	WriteBitHigh
	ReadBitStart
	ReadBitSample
	ReadBitComplete
	// Error is reserved for a watchdog policy. The engine never enters it.
	Error
	SlaveListening
	SlaveReading
	SlaveWriting
	AutoDetect
	BusScan
)

var stateNames = [...]string{
	Idle:                "Idle",
	ResetStart:          "ResetStart",
	ResetWait:           "ResetWait",
	ResetDetectPresence: "ResetDetectPresence",
	WriteBitStart:       "WriteBitStart",
	WriteBitLow:         "WriteBitLow",
	WriteBitHigh:        "WriteBitHigh",
	ReadBitStart:        "ReadBitStart",
	ReadBitSample:       "ReadBitSample",
	ReadBitComplete:     "ReadBitComplete",
	Error:               "Error",
	SlaveListening:      "SlaveListening",
	SlaveReading:        "SlaveReading",
	SlaveWriting:        "SlaveWriting",
	AutoDetect:          "AutoDetect",
	BusScan:             "BusScan",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Role is the role a Dev takes at construction.
type Role uint8

const (
	// Auto negotiates the role at runtime by watching the bus.
	Auto Role = iota
	// Master drives transactions.
	Master
	// Slave answers a master.
	Slave
)

func (r Role) String() string {
	switch r {
	case Auto:
		return "auto"
	case Master:
		return "master"
	case Slave:
		return "slave"
	default:
		return "Role(" + strconv.Itoa(int(r)) + ")"
	}
}
