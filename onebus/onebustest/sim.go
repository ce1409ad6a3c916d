// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onebustest

import "time"

// Ticker is anything advanced by the simulator, typically an *onebus.Dev
// or a *Device.
type Ticker interface {
	Tick() bool
}

// Sim ticks every node once per simulated microsecond, in the order they
// were added, then advances the clock.
type Sim struct {
	Line  *Line
	nodes []Ticker
}

// NewSim returns a simulator on a fresh line.
func NewSim() *Sim {
	return &Sim{Line: NewLine()}
}

// Clock returns the simulated clock.
func (s *Sim) Clock() *Clock {
	return s.Line.Clock
}

// Add appends nodes to the tick order.
func (s *Sim) Add(t ...Ticker) {
	s.nodes = append(s.nodes, t...)
}

// Step ticks every node and advances the clock by 1µs.
func (s *Sim) Step() {
	for _, n := range s.nodes {
		n.Tick()
	}
	s.Line.Clock.Advance(time.Microsecond)
}

// Run steps for d.
func (s *Sim) Run(d time.Duration) {
	for i := time.Duration(0); i < d; i += time.Microsecond {
		s.Step()
	}
}

// RunUntil steps until cond returns true or limit elapsed. It reports
// whether cond was met.
func (s *Sim) RunUntil(cond func() bool, limit time.Duration) bool {
	for i := time.Duration(0); i < limit; i += time.Microsecond {
		if cond() {
			return true
		}
		s.Step()
	}
	return cond()
}
