// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bustrace

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/maruel/ansi256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"

	"github.com/GermanBionicSystems/wirebus/onebus"
	"github.com/GermanBionicSystems/wirebus/onebus/onebustest"
)

// capture runs one request/response transaction on a simulated line and
// returns what the line went through.
func capture(t *testing.T, mult uint32) []Edge {
	t.Helper()
	sim := onebustest.NewSim()
	rec := NewRecorder(0)
	sim.Line.Watch(rec.Observe)
	opts := func(r onebus.Role) *onebus.Opts {
		return &onebus.Opts{TimeoutMultiplier: mult, Role: r, Clock: sim.Clock()}
	}
	m, err := onebus.New(sim.Line.Pin("m"), opts(onebus.Master))
	require.NoError(t, err)
	s, err := onebus.New(sim.Line.Pin("s"), opts(onebus.Slave))
	require.NoError(t, err)
	sim.Add(m, s)
	s.OnRequest(func(data []byte, r *onebus.Responder) {
		if len(data) == 2 {
			require.NoError(t, r.Respond([]byte{0xbe, 0xef}))
		}
	})
	done := false
	require.NoError(t, m.Transact([]byte{0xde, 0xad}, 2, func(ok bool) { done = ok }))
	require.True(t, sim.RunUntil(func() bool { return done }, 20*time.Millisecond))
	return rec.Edges()
}

func TestRecorder(t *testing.T) {
	r := NewRecorder(3)
	r.Observe(1, gpio.High)
	r.Observe(2, gpio.High)
	r.Observe(3, gpio.Low)
	r.Observe(4, gpio.High)
	r.Observe(5, gpio.Low)
	assert.Equal(t, []Edge{{1, gpio.High}, {3, gpio.Low}, {4, gpio.High}}, r.Edges())
	r.Reset()
	assert.Empty(t, r.Edges())
	r.Observe(9, gpio.High)
	assert.Equal(t, []Edge{{9, gpio.High}}, r.Edges())
}

func TestTap(t *testing.T) {
	line := onebustest.NewLine()
	r := NewRecorder(0)
	p := Tap(line.Pin("p"), line.Clock, r)
	assert.Equal(t, gpio.High, p.Read())
	line.Clock.Advance(10 * time.Microsecond)
	require.NoError(t, p.Out(gpio.Low))
	line.Clock.Advance(5 * time.Microsecond)
	require.NoError(t, p.In(gpio.PullUp, gpio.NoEdge))
	assert.Equal(t, []Edge{{0, gpio.High}, {10, gpio.Low}, {15, gpio.High}}, r.Edges())
	assert.Error(t, p.In(gpio.PullUp, gpio.BothEdges))
	assert.Equal(t, "p(0)", p.String())
}

func TestDecode_transaction(t *testing.T) {
	for _, m := range []uint32{1, 3} {
		edges := capture(t, m)
		pulses := Decode(edges, m)
		require.Greater(t, len(pulses), 2, "m=%d", m)
		assert.Equal(t, Reset, pulses[0].Kind)
		assert.Equal(t, Presence, pulses[1].Kind)
		assert.Len(t, pulses, 2+32)
		frames := Frames(pulses)
		require.Len(t, frames, 1)
		assert.True(t, frames[0].Presence)
		assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, frames[0].Data, "m=%d", m)
		assert.Equal(t, "@0µs presence de ad be ef", frames[0].String())
	}
}

func TestDecode_synthetic(t *testing.T) {
	edges := []Edge{
		{0, gpio.High},
		// Stray bit before any reset.
		{10, gpio.Low}, {70, gpio.High},
		{200, gpio.Low}, {680, gpio.High},
		// No presence; a 1 then a 0.
		{1200, gpio.Low}, {1205, gpio.High},
		{1300, gpio.Low}, {1360, gpio.High},
		// Unfinished pulse.
		{1500, gpio.Low},
	}
	pulses := Decode(edges, 1)
	kinds := make([]Kind, len(pulses))
	for i, p := range pulses {
		kinds[i] = p.Kind
	}
	assert.Equal(t, []Kind{Zero, Reset, One, Zero}, kinds)
	assert.Equal(t, uint32(480), pulses[1].Width)
	frames := Frames(pulses)
	require.Len(t, frames, 1)
	assert.False(t, frames[0].Presence)
	assert.Empty(t, frames[0].Data)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "reset", Reset.String())
	assert.Equal(t, "presence", Presence.String())
	assert.Equal(t, "0", Zero.String())
	assert.Equal(t, "1", One.String())
	assert.Equal(t, "Kind(9)", Kind(9).String())
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, RenderPNG(&buf, nil, nil), ErrEmpty)

	edges := capture(t, 1)
	require.NoError(t, RenderPNG(&buf, edges, &PlotOpts{Width: 800, Height: 160, Title: "de ad"}))
	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 160, img.Bounds().Dy())

	buf.Reset()
	require.NoError(t, RenderPNG(&buf, edges, nil))
	img, err = png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, DefaultPlotOpts.Width, img.Bounds().Dx())
}

func TestStrip(t *testing.T) {
	var buf bytes.Buffer
	s := NewStrip(&StripOpts{Columns: 40, Multiplier: 1, W: &buf})
	assert.ErrorIs(t, s.Write(nil), ErrEmpty)
	require.NoError(t, s.Write(capture(t, 1)))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\r\033[0m"))
	assert.True(t, strings.HasSuffix(out, "\033[0m\n"))
	// The reset fills the first cells.
	assert.Contains(t, out, ansi256.Default.Block(resetColor))
	assert.Contains(t, out, ansi256.Default.Block(idleColor))

	buf.Reset()
	require.NoError(t, s.Halt())
	assert.Equal(t, "\033[0m", buf.String())
	assert.Equal(t, "bustrace.Strip", s.String())
}
