// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bustrace

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Kind classifies a low pulse.
type Kind uint8

// Pulse kinds.
const (
	Reset Kind = iota
	Presence
	Zero
	One
)

func (k Kind) String() string {
	switch k {
	case Reset:
		return "reset"
	case Presence:
		return "presence"
	case Zero:
		return "0"
	case One:
		return "1"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Pulse is a period during which the line was held low.
type Pulse struct {
	Start uint32
	Width uint32
	Kind  Kind
}

// Thresholds in µs at a multiplier of 1. They sit between the nominal
// widths: 480 for a reset, 60 for a 0, 1 to 15 for a 1.
const (
	resetMinUS      = 300
	oneMaxUS        = 30
	presenceStartUS = 240
)

// Decode classifies the low pulses found in edges recorded on a bus using
// timing multiplier m. A pulse still in progress at the end is ignored.
func Decode(edges []Edge, m uint32) []Pulse {
	if m == 0 {
		m = 1
	}
	var out []Pulse
	var start, lastReset uint32
	low, afterReset := false, false
	for _, e := range edges {
		switch {
		case e.Level == gpio.Low && !low:
			low = true
			start = e.At
		case e.Level == gpio.High && low:
			low = false
			p := Pulse{Start: start, Width: e.At - start}
			switch {
			case p.Width >= resetMinUS*m:
				p.Kind = Reset
				lastReset = e.At
				afterReset = true
				out = append(out, p)
				continue
			case afterReset && start-lastReset < presenceStartUS*m:
				p.Kind = Presence
			case p.Width < oneMaxUS*m:
				p.Kind = One
			default:
				p.Kind = Zero
			}
			afterReset = false
			out = append(out, p)
		}
	}
	return out
}

// Frame is what happened on the bus between two resets.
type Frame struct {
	Start    uint32
	Presence bool
	// Data holds the complete bytes, least significant bit first on the
	// wire. Trailing bits that do not form a byte are dropped.
	Data []byte
}

func (f Frame) String() string {
	p := "no presence"
	if f.Presence {
		p = "presence"
	}
	return fmt.Sprintf("@%dµs %s % x", f.Start, p, f.Data)
}

// Frames groups pulses by reset. Bits seen before the first reset are
// ignored.
func Frames(pulses []Pulse) []Frame {
	var out []Frame
	var cur, mask byte
	for _, p := range pulses {
		switch p.Kind {
		case Reset:
			out = append(out, Frame{Start: p.Start})
			cur, mask = 0, 1
		case Presence:
			if len(out) != 0 {
				out[len(out)-1].Presence = true
			}
		default:
			if len(out) == 0 {
				continue
			}
			if p.Kind == One {
				cur |= mask
			}
			mask <<= 1
			if mask == 0 {
				f := &out[len(out)-1]
				f.Data = append(f.Data, cur)
				cur, mask = 0, 1
			}
		}
	}
	return out
}
