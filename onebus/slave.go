// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onebus

import "periph.io/x/conn/v3/gpio"

// edgeState tracks line transitions between two ticks.
type edgeState struct {
	prev    gpio.Level
	fall    uint32 // time of the last falling edge
	sampled bool   // current slot already sampled
}

func (e *edgeState) reset(l gpio.Level) {
	e.prev = l
	e.sampled = true
}

// update records level l seen at now and reports the edges.
func (e *edgeState) update(l gpio.Level, now uint32) (fell, rose bool) {
	fell = e.prev == gpio.High && l == gpio.Low
	rose = e.prev == gpio.Low && l == gpio.High
	e.prev = l
	if fell {
		e.fall = now
		e.sampled = false
	}
	return fell, rose
}

type holdKind uint8

const (
	holdNone          holdKind = iota
	holdPresenceDelay          // line released, waiting to answer a reset
	holdPresence               // driving the presence pulse
	holdBit                    // driving a 0 bit
)

// holdState is a short lived sub-state during which the slave owns the
// line and ignores edges, including the ones it causes itself.
type holdState struct {
	kind  holdKind
	start uint32
	dur   uint32
}

func (h *holdState) begin(k holdKind, now, dur uint32) {
	h.kind = k
	h.start = now
	h.dur = dur
}

// stepSlave is the edge driven decoder. A reset pulse may start at any
// time so every decision is taken relative to the last falling edge rather
// than to a phase the slave started itself.
func (d *Dev) stepSlave(now uint32) {
	if d.hold.kind != holdNone {
		d.stepHold(now)
		return
	}
	l := d.read()
	fell, rose := d.edge.update(l, now)
	if fell || rose {
		d.lastActivity = d.clk.Millis()
	}
	if rose && now-d.edge.fall >= d.t.resetLow {
		d.busReset(now)
		return
	}

	switch d.state {
	case SlaveListening:
		if fell && !d.drained {
			d.cur = 0
			d.mask = 0x01
			d.state = SlaveReading
		}

	case SlaveReading:
		if d.edge.sampled {
			return
		}
		elapsed := now - d.edge.fall
		if elapsed >= d.t.slotEnd {
			// The sample window went by between two ticks.
			d.edge.sampled = true
			d.state = SlaveListening
			return
		}
		if elapsed < d.t.slotSample {
			return
		}
		d.edge.sampled = true
		if l == gpio.High {
			d.cur |= d.mask
		}
		d.mask <<= 1
		if d.mask == 0 {
			d.slaveByte()
		}

	case SlaveWriting:
		if !fell {
			return
		}
		if d.cur&d.mask == 0 {
			d.drive()
			d.hold.begin(holdBit, now, d.t.slaveHold)
		}
		d.mask <<= 1
		if d.mask != 0 {
			return
		}
		if c, ok := d.resp.next(); ok {
			d.cur = c
			d.mask = 0x01
			return
		}
		// Reply sent: the remaining read slots see a released line and
		// read as 1 bits until the next reset.
		d.resp.reset()
		d.drained = true
		d.state = SlaveListening
	}
}

func (d *Dev) stepHold(now uint32) {
	if now-d.hold.start < d.hold.dur {
		return
	}
	if d.hold.kind == holdPresenceDelay {
		d.drive()
		d.hold.begin(holdPresence, now, d.t.presencePulse)
		return
	}
	kind := d.hold.kind
	d.release()
	d.hold.kind = holdNone
	if kind == holdBit && d.read() == gpio.Low {
		// The master opened the next slot while the bit was held.
		d.edge.prev = gpio.High
		d.stepSlave(now)
		return
	}
	d.edge.prev = d.read()
}

// busReset handles a reset pulse: the exchange restarts from scratch and
// a presence pulse is scheduled.
func (d *Dev) busReset(now uint32) {
	d.state = SlaveListening
	d.rx.reset()
	d.resp.reset()
	d.drained = false
	d.edge.sampled = true
	if d.onReset != nil {
		d.onReset()
	}
	d.hold.begin(holdPresenceDelay, now, d.t.presenceDelay)
}

// slaveByte delivers a complete request byte and turns the exchange around
// if the request handler staged a response.
func (d *Dev) slaveByte() {
	d.receive(d.cur)
	if d.onRequest != nil {
		d.responder.d = d
		d.inRequest = true
		d.onRequest(d.rx.bytes(), &d.responder)
		d.inRequest = false
		d.responder.d = nil
	}
	if c, ok := d.resp.next(); ok {
		d.cur = c
		d.mask = 0x01
		d.state = SlaveWriting
		return
	}
	// Nothing to send back: wait for the next byte, or for the end of the
	// exchange, without counting as busy.
	d.state = SlaveListening
}
