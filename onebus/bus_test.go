// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onebus

import (
	"bytes"
	"testing"
	"time"

	"periph.io/x/conn/v3/onewire"

	"github.com/GermanBionicSystems/wirebus/onebus/onebustest"
)

// newBus returns a master Bus whose idle hook ticks a slave engine and the
// simulated clock.
func newBus(t *testing.T, withSlave bool) (*Bus, *Dev) {
	t.Helper()
	l := onebustest.NewLine()
	m, err := New(l.Pin("master"), &Opts{TimeoutMultiplier: 1, Role: Master, Clock: l.Clock})
	if err != nil {
		t.Fatal(err)
	}
	var sl *Dev
	if withSlave {
		if sl, err = New(l.Pin("slave"), &Opts{TimeoutMultiplier: 1, Role: Slave, Clock: l.Clock}); err != nil {
			t.Fatal(err)
		}
	}
	return NewBus(m, func() {
		if sl != nil {
			sl.Tick()
		}
		l.Clock.Advance(time.Microsecond)
	}), sl
}

func TestBus_Tx(t *testing.T) {
	b, sl := newBus(t, true)
	sl.OnRequest(func(data []byte, r *Responder) {
		if len(data) == 2 && data[1] == 0xbe {
			_ = r.Respond([]byte{0xe0, 0x01, 0x00})
		}
	})
	r := make([]byte, 3)
	if err := b.Tx([]byte{0xcc, 0xbe}, r, onewire.WeakPullup); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, []byte{0xe0, 0x01, 0x00}) {
		t.Fatalf("% x", r)
	}
	// Write only, strong pull-up is accepted and ignored.
	if err := b.Tx([]byte{0xcc, 0x44}, nil, onewire.StrongPullup); err != nil {
		t.Fatal(err)
	}
	if s := b.String(); s != "onebus{master(0)}" {
		t.Fatal(s)
	}
	if err := b.Halt(); err != nil {
		t.Fatal(err)
	}
}

func TestBus_noDevice(t *testing.T) {
	b, _ := newBus(t, false)
	err := b.Tx([]byte{0xcc}, nil, onewire.WeakPullup)
	if err == nil {
		t.Fatal("expected error")
	}
	if be, ok := err.(onewire.BusError); !ok || !be.BusError() {
		t.Fatalf("%#v is not a bus error", err)
	}
}

func TestBus_rejected(t *testing.T) {
	b, _ := newBus(t, false)
	if err := b.Tx(nil, nil, onewire.WeakPullup); err != ErrLength {
		t.Fatal(err)
	}
	if a, err := b.Search(false); a != nil || err != ErrSearchUnsupported {
		t.Fatal(err)
	}
}

func TestBus_timeout(t *testing.T) {
	l := onebustest.NewLine()
	m, err := New(l.Pin("master"), &Opts{TimeoutMultiplier: 1, Role: Master, Clock: l.Clock})
	if err != nil {
		t.Fatal(err)
	}
	// The clock jumps past the deadline without the engine ever seeing the
	// end of the reset phase.
	jumped := false
	b := NewBus(m, func() {
		if !jumped {
			jumped = true
			l.Clock.Advance(time.Second)
		}
	})
	if err := b.Tx([]byte{1}, nil, onewire.WeakPullup); err == nil {
		t.Fatal("expected timeout")
	}
}
