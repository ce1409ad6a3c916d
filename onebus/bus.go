// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onebus

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/onewire"
)

// Bus adapts a master Dev to onewire.Bus.
//
// Tx blocks, ticking the Dev until the transaction completes, so Bus must
// not be used from the goroutine that otherwise ticks the Dev.
type Bus struct {
	d    *Dev
	idle func()
}

// NewBus returns a onewire.Bus driving d, which must be master.
//
// idle, if not nil, is called between two ticks. It is the place to tick
// other engines sharing the host loop, or to advance a simulated clock.
func NewBus(d *Dev, idle func()) *Bus {
	return &Bus{d: d, idle: idle}
}

func (b *Bus) String() string {
	return b.d.String()
}

// Halt implements conn.Resource.
func (b *Bus) Halt() error {
	return b.d.Halt()
}

// Tx performs a bus transaction: reset, write w, then read len(r) bytes.
//
// The line is released by the pull-up at the end of the transaction; the
// engine cannot drive a strong pull-up so power is ignored.
func (b *Bus) Tx(w, r []byte, power onewire.Pullup) error {
	var done, ok bool
	if err := b.d.Transact(w, len(r), func(success bool) {
		done = true
		ok = success
	}); err != nil {
		return err
	}
	// Twice the wire time; only reached if the clock stops or ticks are
	// starved.
	limit := uint32(2 * b.d.t.txDuration(len(w), len(r)) / time.Microsecond)
	start := b.d.clk.Micros()
	for !done {
		b.d.Tick()
		if b.idle != nil {
			b.idle()
		}
		if !done && b.d.clk.Micros()-start > limit {
			return fmt.Errorf("onebus: transaction timed out in state %s", b.d.State())
		}
	}
	if !ok {
		return busError("onebus: no device present")
	}
	copy(r, b.d.Received())
	return b.d.Err()
}

// Search implements onewire.Bus. ROM search is not supported.
func (b *Bus) Search(alarmOnly bool) ([]onewire.Address, error) {
	return nil, ErrSearchUnsupported
}

var _ onewire.Bus = &Bus{}
var _ conn.Resource = &Bus{}
