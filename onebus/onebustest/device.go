// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onebustest

import "periph.io/x/conn/v3/gpio"

// Presence timing of Device, in µs at multiplier 1.
const (
	resetMinUS      = 480
	presenceDelayUS = 15
	presenceLowUS   = 60
)

// Device is a passive bus device: it answers every reset with a presence
// pulse and ignores everything else. It is enough to make a master see a
// device present without running a second engine.
type Device struct {
	// Resets counts the reset pulses seen.
	Resets int

	pin  *Pin
	clk  *Clock
	mult uint32

	prev  gpio.Level
	fall  uint32
	phase int // 0 listening, 1 delay, 2 pulling
	start uint32
}

// NewDevice attaches a device to l. mult scales its timing like the
// engine's timeout multiplier; 0 means 1.
func NewDevice(l *Line, name string, mult uint32) *Device {
	if mult == 0 {
		mult = 1
	}
	return &Device{pin: l.Pin(name), clk: l.Clock, mult: mult, prev: gpio.High}
}

// Pin returns the pin the device drives.
func (d *Device) Pin() *Pin {
	return d.pin
}

// Tick advances the device. It always returns true.
func (d *Device) Tick() bool {
	now := d.clk.Micros()
	switch d.phase {
	case 1:
		if now-d.start >= presenceDelayUS*d.mult {
			_ = d.pin.Out(gpio.Low)
			d.phase = 2
			d.start = now
		}
		return true
	case 2:
		if now-d.start >= presenceLowUS*d.mult {
			_ = d.pin.In(gpio.PullUp, gpio.NoEdge)
			d.phase = 0
			d.prev = d.pin.Read()
		}
		return true
	}
	l := d.pin.Read()
	if d.prev == gpio.High && l == gpio.Low {
		d.fall = now
	} else if d.prev == gpio.Low && l == gpio.High && now-d.fall >= resetMinUS*d.mult {
		d.Resets++
		d.phase = 1
		d.start = now
	}
	d.prev = l
	return true
}
