// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onebus

import "periph.io/x/conn/v3/gpio"

// Send starts a transaction writing w: a reset, a presence check and the
// bytes of w, least significant bit first.
//
// done is called exactly once from Tick with ok set when a device answered
// the reset and every byte was written. Send returns an error and leaves
// the engine untouched when the node is not master, is busy, or w is empty
// or longer than MaxLength.
func (d *Dev) Send(w []byte, done SendFunc) error {
	return d.Transact(w, 0, done)
}

// Transact is like Send but reads n bytes from the slave once w has been
// written, in the same transaction. Each read byte is delivered through
// OnReceive and is available from Received once done is called.
func (d *Dev) Transact(w []byte, n int, done SendFunc) error {
	if !d.master {
		return ErrNotMaster
	}
	if d.state != Idle {
		return ErrBusy
	}
	if len(w) == 0 || len(w) > MaxLength || n < 0 || n > MaxLength {
		return ErrLength
	}
	d.tx.set(w)
	d.rx.reset()
	d.rxWant = n
	d.done = done
	d.startReset(d.clk.Micros())
	return nil
}

func (d *Dev) startReset(now uint32) {
	d.drive()
	d.opStart = now
	d.state = ResetStart
}

func (d *Dev) startWriteBit(now uint32) {
	d.bit = d.cur & d.mask
	d.drive()
	d.opStart = now
	d.state = WriteBitStart
}

func (d *Dev) startReadByte(now uint32) {
	d.cur = 0
	d.mask = 0x01
	d.startReadBit(now)
}

func (d *Dev) startReadBit(now uint32) {
	d.drive()
	d.opStart = now
	d.state = ReadBitStart
}

// nextByte writes the next queued byte, starts reading the response once
// everything is written, or completes the transaction.
func (d *Dev) nextByte(now uint32) {
	if c, ok := d.tx.next(); ok {
		d.cur = c
		d.mask = 0x01
		d.startWriteBit(now)
		return
	}
	if d.rx.n < d.rxWant {
		d.startReadByte(now)
		return
	}
	d.complete(true)
}

// stepMaster runs the timing engine. Nothing happens until the elapsed
// time of the current phase crosses its threshold.
func (d *Dev) stepMaster(now uint32) {
	elapsed := now - d.opStart
	switch d.state {
	case ResetStart:
		if elapsed >= d.t.resetLow {
			d.release()
			d.opStart = now
			d.state = ResetWait
		}

	case ResetWait:
		if elapsed >= d.t.presenceSample {
			d.lastOK = d.read() == gpio.Low
			d.opStart = now
			d.state = ResetDetectPresence
		}

	case ResetDetectPresence:
		if elapsed >= d.t.presenceRecovery {
			if !d.lastOK {
				d.log.Debug("onebus: no presence", "pin", d.pin.String())
				d.complete(false)
				return
			}
			d.nextByte(now)
		}

	case WriteBitStart:
		if elapsed >= d.t.writeStart {
			if d.bit != 0 {
				d.release()
			}
			d.opStart = now
			d.state = WriteBitLow
		}

	case WriteBitLow:
		low := d.t.write0Low
		if d.bit != 0 {
			low = d.t.write1Low
		}
		if elapsed >= low {
			d.release()
			d.opStart = now
			d.state = WriteBitHigh
		}

	case WriteBitHigh:
		if elapsed >= d.t.writeRecovery {
			d.mask <<= 1
			if d.mask == 0 {
				d.nextByte(now)
			} else {
				d.startWriteBit(now)
			}
		}

	case ReadBitStart:
		if elapsed >= d.t.readRelease {
			d.release()
			d.opStart = now
			d.state = ReadBitSample
		}

	case ReadBitSample:
		if elapsed >= d.t.readSample {
			d.sample = d.read()
			d.opStart = now
			d.state = ReadBitComplete
		}

	case ReadBitComplete:
		if elapsed >= d.t.readRecovery {
			d.cur >>= 1
			if d.sample == gpio.High {
				d.cur |= 0x80
			}
			d.mask <<= 1
			if d.mask != 0 {
				d.startReadBit(now)
				return
			}
			d.receive(d.cur)
			if d.rx.n < d.rxWant {
				d.startReadByte(now)
			} else {
				d.complete(true)
			}
		}
	}
}

// complete ends the master operation and fires the send callback once.
// The state is settled before the callback so it may start a new
// transaction.
func (d *Dev) complete(ok bool) {
	d.lastOK = ok
	d.rxWant = 0
	d.state = d.home()
	if f := d.done; f != nil {
		d.done = nil
		f(ok)
	}
}

// receive appends a decoded byte and hands the buffer to OnReceive.
// Bytes beyond MaxLength are dropped but still reported.
func (d *Dev) receive(c byte) {
	d.rx.append(c)
	if d.onReceive != nil {
		d.onReceive(d.rx.bytes())
	}
}
