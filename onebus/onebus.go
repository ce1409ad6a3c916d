// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onebus

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// MaxLength is the capacity of the transmit, receive and response buffers.
const MaxLength = 64

// Callbacks, all invoked synchronously from Tick. The byte slices alias
// the engine buffers and are only valid for the duration of the call.
type (
	// ReceiveFunc gets the whole receive buffer each time a byte is
	// decoded.
	ReceiveFunc func(data []byte)
	// RequestFunc gets the request received so far at each byte boundary
	// and may stage a reply with r.
	RequestFunc func(data []byte, r *Responder)
	// ResetFunc is called when a slave sees a bus reset.
	ResetFunc func()
	// ModeFunc is called once per role transition.
	ModeFunc func(master bool)
	// ScanFunc gets the number of devices seen by a bus scan (0 or 1).
	ScanFunc func(devices int)
	// SendFunc gets the outcome of a Send or Transact.
	SendFunc func(ok bool)
)

// Opts contains options to pass to the constructor.
type Opts struct {
	// TimeoutMultiplier scales every time slot. Must be at least 1.
	TimeoutMultiplier uint32
	// Role fixes the role at construction. Auto starts in AutoDetect.
	Role Role
	// Quiescence is the bus silence after which an auto detecting node
	// promotes itself to master.
	Quiescence time.Duration
	// Clock defaults to HostClock.
	Clock Clock
	// Jitter returns a uniform value in [0, n). Used to spread periodic
	// bus scans. Defaults to math/rand.
	Jitter func(n uint32) uint32
	// Logger receives role changes and failures at debug level. Nil
	// discards everything.
	Logger *slog.Logger
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	TimeoutMultiplier: 1,
	Role:              Auto,
	Quiescence:        5 * time.Second,
}

// buffer is a fixed capacity byte buffer reused across transactions.
type buffer struct {
	b   [MaxLength]byte
	n   int // valid bytes
	pos int // read cursor
}

func (b *buffer) set(p []byte) {
	b.n = copy(b.b[:], p)
	b.pos = 0
}

func (b *buffer) reset() {
	b.n = 0
	b.pos = 0
}

func (b *buffer) append(c byte) {
	if b.n < len(b.b) {
		b.b[b.n] = c
		b.n++
	}
}

// next returns the next unread byte.
func (b *buffer) next() (byte, bool) {
	if b.pos >= b.n {
		return 0, false
	}
	c := b.b[b.pos]
	b.pos++
	return c, true
}

func (b *buffer) bytes() []byte {
	return b.b[:b.n]
}

// Dev is a node on a software driven single-wire bus.
//
// Dev is not safe for concurrent use; it is meant to be driven by a single
// goroutine calling Tick. Two Dev sharing one physical line must be ticked
// from the same goroutine.
//
// Dev implements a persistent error model for the pin: the first GPIO
// error is kept and returned by Err. Protocol failures (no presence) are
// reported through callbacks and never stop the engine.
type Dev struct {
	pin    gpio.PinIO
	clk    Clock
	log    *slog.Logger
	jitter func(n uint32) uint32
	t      timing
	quiet  uint32 // quiescence in ms
	err    error

	state  State
	master bool
	lastOK bool

	// Timing context.
	opStart uint32
	cur     byte
	mask    byte
	bit     byte
	sample  gpio.Level

	tx     buffer
	rx     buffer
	resp   buffer
	rxWant int
	done   SendFunc

	onReceive ReceiveFunc
	onRequest RequestFunc
	onReset   ResetFunc

	// Role and mode.
	auto         bool
	resolved     bool
	onMode       ModeFunc
	pollInterval uint32 // ms, 0 disables periodic scans
	nextPoll     uint32
	lastActivity uint32

	// Bus scan.
	scanDone ScanFunc
	scanStep int
	found    int

	responder Responder
	inRequest bool
	drained   bool // reply sent, ignore slots until the next reset
	edge      edgeState
	hold      holdState
}

// New returns a bus node driving p.
//
// The line is released immediately. The node starts in AutoDetect unless
// opts.Role fixes it.
func New(p gpio.PinIO, opts *Opts) (*Dev, error) {
	if p == nil {
		return nil, ErrNoPin
	}
	if opts == nil {
		o := DefaultOpts
		opts = &o
	}
	if opts.TimeoutMultiplier == 0 {
		return nil, ErrMultiplier
	}
	d := &Dev{
		pin:    p,
		clk:    opts.Clock,
		log:    opts.Logger,
		jitter: opts.Jitter,
		t:      newTiming(opts.TimeoutMultiplier),
		quiet:  uint32(opts.Quiescence / time.Millisecond),
	}
	if d.clk == nil {
		d.clk = HostClock()
	}
	if d.log == nil {
		d.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.jitter == nil {
		d.jitter = rand.Uint32N
	}
	if d.quiet == 0 {
		d.quiet = uint32(DefaultOpts.Quiescence / time.Millisecond)
	}
	d.release()
	d.edge.reset(d.read())
	d.lastActivity = d.clk.Millis()
	switch opts.Role {
	case Master:
		d.fix(true)
	case Slave:
		d.fix(false)
	default:
		d.auto = true
		d.state = AutoDetect
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("onebus{%s}", d.pin)
}

// Halt implements conn.Resource.
//
// It releases the line. A transaction in progress is not aborted; the next
// Tick continues it.
func (d *Dev) Halt() error {
	return d.pin.In(gpio.PullUp, gpio.NoEdge)
}

// Begin fixes the role of the node and makes it ready on the bus.
func (d *Dev) Begin(master bool) error {
	if d.IsBusy() {
		return ErrBusy
	}
	d.auto = false
	d.release()
	d.edge.reset(d.read())
	d.lastActivity = d.clk.Millis()
	d.fix(master)
	return nil
}

// BeginAuto starts passive role detection.
//
// The node becomes slave as soon as it sees a bus reset issued by another
// master and master after Opts.Quiescence of bus silence. As master, it
// re-scans the bus every poll, randomized within ±50%, and re-derives its
// role from the result. A zero poll disables the periodic scan. f is
// called once per role transition.
func (d *Dev) BeginAuto(poll time.Duration, f ModeFunc) error {
	if d.IsBusy() {
		return ErrBusy
	}
	d.auto = true
	d.resolved = false
	d.master = false
	d.onMode = f
	d.pollInterval = uint32(poll / time.Millisecond)
	d.release()
	d.edge.reset(d.read())
	d.lastActivity = d.clk.Millis()
	d.state = AutoDetect
	return nil
}

// SetMaster fixes the role at runtime. A node still detecting its role
// keeps detecting until it resolves; the flag only decides where completed
// operations return to.
func (d *Dev) SetMaster(master bool) error {
	if d.IsBusy() {
		return ErrBusy
	}
	d.master = master
	if d.state != AutoDetect {
		d.state = d.home()
	}
	return nil
}

// OnReceive sets the callback invoked for every decoded byte.
func (d *Dev) OnReceive(f ReceiveFunc) {
	d.onReceive = f
}

// OnRequest sets the slave callback invoked at each received byte
// boundary.
func (d *Dev) OnRequest(f RequestFunc) {
	d.onRequest = f
}

// OnReset sets the slave callback invoked on a bus reset.
func (d *Dev) OnReset(f ResetFunc) {
	d.onReset = f
}

// IsMaster reports whether the node currently acts as master.
func (d *Dev) IsMaster() bool {
	return d.master
}

// IsBusy reports whether a transaction is in progress: a master operation,
// a bus scan or a slave exchange.
func (d *Dev) IsBusy() bool {
	switch d.state {
	case Idle, AutoDetect, SlaveListening, Error:
		return false
	default:
		return true
	}
}

// State returns the current engine state.
func (d *Dev) State() State {
	return d.state
}

// LastOperationSucceeded reports whether the last reset saw a presence
// pulse and the operation it started completed.
func (d *Dev) LastOperationSucceeded() bool {
	return d.lastOK
}

// Received returns the receive buffer. It aliases engine memory and is
// only valid until the next Tick.
func (d *Dev) Received() []byte {
	return d.rx.bytes()
}

// Err returns the first error returned by the pin, if any.
func (d *Dev) Err() error {
	return d.err
}

// Tick advances the engine. It never blocks.
//
// It returns false when no progress can be made, which only happens in the
// reserved Error state.
func (d *Dev) Tick() bool {
	now := d.clk.Micros()
	switch d.state {
	case AutoDetect:
		d.stepAutoDetect(now)
	case BusScan:
		d.stepScan(now)
	case Idle:
		d.stepPoll(now)
	case SlaveListening, SlaveReading, SlaveWriting:
		d.stepSlave(now)
	case Error:
		return false
	default:
		d.stepMaster(now)
	}
	return true
}

// fix settles the role and moves to its home state.
func (d *Dev) fix(master bool) {
	d.master = master
	d.resolved = true
	d.drained = false
	d.state = d.home()
}

// home is the resting state of the current role.
func (d *Dev) home() State {
	if d.master {
		return Idle
	}
	return SlaveListening
}

// Line access. Errors are persisted rather than returned so the state
// machine keeps its timing.

func (d *Dev) drive() {
	d.setErr(d.pin.Out(gpio.Low))
}

func (d *Dev) release() {
	d.setErr(d.pin.In(gpio.PullUp, gpio.NoEdge))
}

func (d *Dev) read() gpio.Level {
	return d.pin.Read()
}

func (d *Dev) setErr(err error) {
	if err != nil && d.err == nil {
		d.err = err
		d.log.Warn("onebus: pin error", "pin", d.pin.String(), "err", err)
	}
}

var _ conn.Resource = &Dev{}
var _ fmt.Stringer = &Dev{}
