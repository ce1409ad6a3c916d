// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onebus

import "periph.io/x/conn/v3/gpio"

// ScanBus issues a reset and reports through done whether any device
// answered with a presence pulse. Devices are not enumerated, done gets 0
// or 1.
//
// The result re-derives the role, whether it was fixed or negotiated: a
// device on the bus makes the node slave, an empty bus keeps it master.
// The role is settled before done is called.
func (d *Dev) ScanBus(done ScanFunc) error {
	if !d.master {
		return ErrNotMaster
	}
	if d.state != Idle {
		return ErrBusy
	}
	d.startScan(d.clk.Micros(), done)
	return nil
}

func (d *Dev) startScan(now uint32, done ScanFunc) {
	d.scanDone = done
	d.found = 0
	d.scanStep = 0
	d.drive()
	d.opStart = now
	d.state = BusScan
}

// stepScan walks the reset windows only.
func (d *Dev) stepScan(now uint32) {
	elapsed := now - d.opStart
	switch d.scanStep {
	case 0:
		if elapsed >= d.t.resetLow {
			d.release()
			d.opStart = now
			d.scanStep = 1
		}
	case 1:
		if elapsed >= d.t.presenceSample {
			if d.read() == gpio.Low {
				d.found++
			}
			d.opStart = now
			d.scanStep = 2
		}
	default:
		if elapsed >= d.t.presenceRecovery {
			d.lastOK = d.found > 0
			d.resolve(d.found == 0)
			if d.auto {
				d.schedulePoll()
			}
			if f := d.scanDone; f != nil {
				d.scanDone = nil
				f(d.found)
			}
		}
	}
}

// stepAutoDetect watches the line for a reset pulse issued by another
// master, or for enough silence to take the bus.
func (d *Dev) stepAutoDetect(now uint32) {
	fell, rose := d.edge.update(d.read(), now)
	ms := d.clk.Millis()
	if fell || rose {
		d.lastActivity = ms
	}
	if rose && now-d.edge.fall >= d.t.resetLow {
		d.resolve(false)
		// The master that reset the bus is waiting for a presence pulse.
		d.busReset(now)
		return
	}
	if ms-d.lastActivity >= d.quiet {
		d.resolve(true)
		d.schedulePoll()
	}
}

// stepPoll re-scans the bus periodically while master in auto mode.
func (d *Dev) stepPoll(now uint32) {
	if !d.auto || d.pollInterval == 0 {
		return
	}
	if int32(d.clk.Millis()-d.nextPoll) < 0 {
		return
	}
	d.log.Debug("onebus: periodic scan", "pin", d.pin.String())
	d.startScan(now, nil)
}

// resolve settles the role and reports it if it changed.
func (d *Dev) resolve(master bool) {
	changed := !d.resolved || d.master != master
	d.master = master
	d.resolved = true
	if master {
		d.state = Idle
	} else {
		d.state = SlaveListening
		d.rx.reset()
		d.drained = false
		d.edge.reset(d.read())
	}
	if !changed {
		return
	}
	d.log.Debug("onebus: role", "pin", d.pin.String(), "master", master)
	if d.onMode != nil {
		d.onMode(master)
	}
}

// schedulePoll picks the next periodic scan uniformly in
// [interval/2, 3*interval/2).
func (d *Dev) schedulePoll() {
	if d.pollInterval == 0 {
		return
	}
	d.nextPoll = d.clk.Millis() + d.pollInterval/2 + d.jitter(d.pollInterval)
}
