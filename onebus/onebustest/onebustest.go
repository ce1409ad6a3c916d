// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package onebustest simulates a single-wire bus for tests: a virtual
// clock, an open drain line shared by simulated pins, a passive device
// that only answers resets, and a lock-step simulator ticking every node
// once per microsecond.
package onebustest

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Clock is a virtual clock implementing onebus.Clock. It only moves when
// told to.
type Clock struct {
	mu sync.Mutex
	us uint64
}

// Micros implements onebus.Clock.
func (c *Clock) Micros() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint32(c.us)
}

// Millis implements onebus.Clock.
func (c *Clock) Millis() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint32(c.us / 1000)
}

// Advance moves the clock forward by d, rounded down to the microsecond.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.us += uint64(d / time.Microsecond)
	c.mu.Unlock()
}

// Elapsed returns the time since the clock was created.
func (c *Clock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(c.us) * time.Microsecond
}

// Line is an open drain line with a pull-up: it is low as long as any pin
// attached to it drives it low.
type Line struct {
	Clock *Clock

	mu       sync.Mutex
	pins     []*Pin
	last     gpio.Level
	watchers []func(at uint32, l gpio.Level)
}

// NewLine returns a released line with its own clock.
func NewLine() *Line {
	return &Line{Clock: &Clock{}, last: gpio.High}
}

// Pin attaches a new pin to the line.
func (l *Line) Pin(name string) *Pin {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := &Pin{N: name, Num: len(l.pins), line: l}
	l.pins = append(l.pins, p)
	return p
}

// Level returns the current level of the line.
func (l *Line) Level() gpio.Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level()
}

// Watch registers f to be called with the clock time on every level
// change.
func (l *Line) Watch(f func(at uint32, level gpio.Level)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.watchers = append(l.watchers, f)
}

func (l *Line) level() gpio.Level {
	for _, p := range l.pins {
		if p.low {
			return gpio.Low
		}
	}
	return gpio.High
}

// set changes the drive of p and notifies watchers outside of the lock.
func (l *Line) set(p *Pin, low bool) {
	l.mu.Lock()
	p.low = low
	lvl := l.level()
	changed := lvl != l.last
	l.last = lvl
	watchers := l.watchers
	l.mu.Unlock()
	if !changed {
		return
	}
	at := l.Clock.Micros()
	for _, f := range watchers {
		f(at, lvl)
	}
}

// ErrPWM is returned by Pin.PWM.
var ErrPWM = errors.New("onebustest: pwm is not supported")

// Pin is a simulated open drain GPIO attached to a Line. It implements
// gpio.PinIO: Out(gpio.Low) pulls the line low, Out(gpio.High) and In
// release it.
type Pin struct {
	N   string
	Num int

	line *Line
	low  bool
	pull gpio.Pull
}

// String implements conn.Resource.
func (p *Pin) String() string {
	return p.N + "(" + strconv.Itoa(p.Num) + ")"
}

// Halt implements conn.Resource. It releases the line.
func (p *Pin) Halt() error {
	p.line.set(p, false)
	return nil
}

// Name implements pin.Pin.
func (p *Pin) Name() string {
	return p.N
}

// Number implements pin.Pin.
func (p *Pin) Number() int {
	return p.Num
}

// Function implements pin.Pin.
func (p *Pin) Function() string {
	if p.Driving() {
		return "Out/Low"
	}
	return "In/" + p.line.Level().String()
}

// In implements gpio.PinIn.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	if edge != gpio.NoEdge {
		return errors.New("onebustest: edge detection is not supported")
	}
	p.pull = pull
	p.line.set(p, false)
	return nil
}

// Read implements gpio.PinIn and returns the level of the line.
func (p *Pin) Read() gpio.Level {
	return p.line.Level()
}

// WaitForEdge implements gpio.PinIn.
func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	return false
}

// Pull implements gpio.PinIn.
func (p *Pin) Pull() gpio.Pull {
	return p.pull
}

// DefaultPull implements gpio.PinIn.
func (p *Pin) DefaultPull() gpio.Pull {
	return gpio.PullUp
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	p.line.set(p, l == gpio.Low)
	return nil
}

// PWM implements gpio.PinOut.
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return ErrPWM
}

// Driving reports whether p pulls the line low.
func (p *Pin) Driving() bool {
	p.line.mu.Lock()
	defer p.line.mu.Unlock()
	return p.low
}

var _ gpio.PinIO = &Pin{}
