// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bustrace

import (
	"bytes"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// StripOpts contains options to pass to NewStrip.
type StripOpts struct {
	// Columns is the number of character cells the capture is squeezed in.
	Columns int
	// Multiplier is the timing multiplier of the bus.
	Multiplier uint32
	Palette    *ansi256.Palette
	// W defaults to a colorable stdout.
	W io.Writer
}

// DefaultStripOpts is the recommended default options.
var DefaultStripOpts = StripOpts{Columns: 80, Multiplier: 1}

// Colors used by Strip.
var (
	idleColor     = color.NRGBA{0x30, 0x30, 0x30, 0xff}
	resetColor    = color.NRGBA{0xff, 0x00, 0x00, 0xff}
	presenceColor = color.NRGBA{0xff, 0xd0, 0x00, 0xff}
	zeroColor     = color.NRGBA{0x00, 0x40, 0xff, 0xff}
	oneColor      = color.NRGBA{0x00, 0xe0, 0xe0, 0xff}
)

// Strip prints a capture as a single row of ANSI colored blocks, one color
// per pulse kind.
type Strip struct {
	w       io.Writer
	cols    int
	mult    uint32
	palette ansi256.Palette
	buf     bytes.Buffer
}

// NewStrip returns a Strip writing to the console by default.
func NewStrip(opts *StripOpts) *Strip {
	if opts == nil {
		opts = &DefaultStripOpts
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	cols := opts.Columns
	if cols <= 0 {
		cols = DefaultStripOpts.Columns
	}
	return &Strip{w: w, cols: cols, mult: opts.Multiplier, palette: *p}
}

func (s *Strip) String() string {
	return "bustrace.Strip"
}

// Write renders edges. A cell covering several pulses shows the most
// significant one: reset, then presence, then 0, then 1.
func (s *Strip) Write(edges []Edge) error {
	if len(edges) == 0 {
		return ErrEmpty
	}
	first, last := edges[0].At, edges[len(edges)-1].At
	span := uint64(last-first) + 1
	cells := make([]color.NRGBA, s.cols)
	rank := make([]int, s.cols)
	for i := range cells {
		cells[i] = idleColor
	}
	for _, p := range Decode(edges, s.mult) {
		c, r := kindColor(p.Kind)
		from := int(uint64(p.Start-first) * uint64(s.cols) / span)
		to := int(uint64(p.Start+p.Width-first) * uint64(s.cols) / span)
		for i := from; i <= to && i < s.cols; i++ {
			if r > rank[i] {
				cells[i] = c
				rank[i] = r
			}
		}
	}
	s.buf.Reset()
	_, _ = s.buf.WriteString("\r\033[0m")
	for _, c := range cells {
		_, _ = io.WriteString(&s.buf, s.palette.Block(c))
	}
	_, _ = s.buf.WriteString("\033[0m\n")
	_, err := s.buf.WriteTo(s.w)
	return err
}

// Halt implements conn.Resource. It restores the terminal colors.
func (s *Strip) Halt() error {
	_, err := s.w.Write([]byte("\033[0m"))
	return err
}

func kindColor(k Kind) (color.NRGBA, int) {
	switch k {
	case Reset:
		return resetColor, 4
	case Presence:
		return presenceColor, 3
	case Zero:
		return zeroColor, 2
	default:
		return oneColor, 1
	}
}
