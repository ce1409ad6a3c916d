// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package onebus implements a bit-banged single-wire multidrop bus on a
// single GPIO pin.
//
// The line is shared by every node: a master and one or more slaves. Bits
// are encoded in the width of low pulses, using the standard speed 1-Wire
// time slots (reset 480µs, presence sample at 70µs, write 1/0 low 15/60µs,
// read sample at 15µs). Every budget is scaled by Opts.TimeoutMultiplier
// so slow hosts can run the same protocol at a proportionally lower rate.
//
// The engine never blocks. The host calls Dev.Tick as often as it can and
// every decision is taken from the time elapsed since the current phase
// started, so irregular call intervals are fine as long as the call period
// stays below the narrowest window (1µs × multiplier). All callbacks are
// invoked synchronously from within Tick.
//
// A Dev can act as master (Send, Transact, ScanBus), as slave (OnRequest
// with a Responder to stage the reply streamed back in the same
// transaction) or negotiate its role at runtime with BeginAuto.
//
// Bus implements onewire.Bus on top of a master Dev for code written
// against periph.io/x/conn/v3/onewire.
//
// Datasheet
//
// https://www.analog.com/en/resources/technical-articles/guide-to-1wire-communication.html
package onebus
