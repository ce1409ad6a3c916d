// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bustrace

import (
	"sync"

	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/wirebus/onebus"
)

// Edge is a level change of the line at a given time in µs.
type Edge struct {
	At    uint32
	Level gpio.Level
}

// Recorder accumulates edges. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	edges []Edge
	limit int
	last  gpio.Level
	init  bool
}

// NewRecorder returns a Recorder keeping at most limit edges. Once full,
// further edges are dropped. A limit of 0 means no limit.
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

// Observe records level l seen at time at. Repeated levels are ignored so
// it can be fed with samples as well as with edges.
func (r *Recorder) Observe(at uint32, l gpio.Level) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.init && l == r.last {
		return
	}
	r.init = true
	r.last = l
	if r.limit > 0 && len(r.edges) >= r.limit {
		return
	}
	r.edges = append(r.edges, Edge{At: at, Level: l})
}

// Edges returns a copy of the recorded edges.
func (r *Recorder) Edges() []Edge {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Edge(nil), r.edges...)
}

// Reset forgets every recorded edge.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges = r.edges[:0]
	r.init = false
}

// Tap wraps p so every level it drives or reads is recorded in r, stamped
// with clk.
//
// Only what p sees is recorded: on real hardware edges caused by other
// devices show up when the engine samples the line.
func Tap(p gpio.PinIO, clk onebus.Clock, r *Recorder) gpio.PinIO {
	return &tapPin{PinIO: p, clk: clk, r: r}
}

type tapPin struct {
	gpio.PinIO
	clk onebus.Clock
	r   *Recorder
}

func (t *tapPin) Out(l gpio.Level) error {
	err := t.PinIO.Out(l)
	if err == nil {
		t.r.Observe(t.clk.Micros(), t.PinIO.Read())
	}
	return err
}

func (t *tapPin) In(pull gpio.Pull, edge gpio.Edge) error {
	err := t.PinIO.In(pull, edge)
	if err == nil {
		t.r.Observe(t.clk.Micros(), t.PinIO.Read())
	}
	return err
}

func (t *tapPin) Read() gpio.Level {
	l := t.PinIO.Read()
	t.r.Observe(t.clk.Micros(), l)
	return l
}
