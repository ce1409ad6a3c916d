// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bustrace

import (
	"errors"
	"fmt"
	"io"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/gpio"
)

// ErrEmpty is returned when there is nothing to render.
var ErrEmpty = errors.New("bustrace: no edges")

// PlotOpts contains options to pass to RenderPNG.
type PlotOpts struct {
	Width  int
	Height int
	// Multiplier is the timing multiplier of the bus, used to label pulses.
	Multiplier uint32
	Title      string
	FontSize   float64
}

// DefaultPlotOpts is the recommended default options.
var DefaultPlotOpts = PlotOpts{
	Width:      1600,
	Height:     240,
	Multiplier: 1,
	FontSize:   12,
}

// RenderPNG draws the waveform described by edges as a PNG image.
//
// The line is drawn high at the top and low at the bottom. Each pulse is
// labelled with its kind and each frame with the bytes decoded from it.
func RenderPNG(w io.Writer, edges []Edge, opts *PlotOpts) error {
	if len(edges) == 0 {
		return ErrEmpty
	}
	if opts == nil {
		opts = &DefaultPlotOpts
	}
	o := *opts
	if o.Width <= 0 {
		o.Width = DefaultPlotOpts.Width
	}
	if o.Height <= 0 {
		o.Height = DefaultPlotOpts.Height
	}
	if o.FontSize <= 0 {
		o.FontSize = DefaultPlotOpts.FontSize
	}
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return fmt.Errorf("bustrace: %w", err)
	}

	const margin = 20.
	first, last := edges[0].At, edges[len(edges)-1].At
	span := float64(last-first) * 1.02
	if span == 0 {
		span = 1
	}
	plotW := float64(o.Width) - 2*margin
	x := func(at uint32) float64 {
		return margin + float64(at-first)/span*plotW
	}
	top := margin + 2*o.FontSize
	bottom := float64(o.Height) - margin - 2*o.FontSize
	y := func(l gpio.Level) float64 {
		if l == gpio.High {
			return top
		}
		return bottom
	}

	dc := gg.NewContext(o.Width, o.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: o.FontSize}))

	dc.SetRGB(0, 0, 0)
	title := o.Title
	if title == "" {
		title = fmt.Sprintf("%d edges over %dµs", len(edges), last-first)
	}
	dc.DrawStringAnchored(title, margin, margin, 0, 0.5)

	dc.SetRGB(0.1, 0.3, 0.8)
	dc.SetLineWidth(1.5)
	dc.MoveTo(x(first), y(edges[0].Level))
	for i := 1; i < len(edges); i++ {
		dc.LineTo(x(edges[i].At), y(edges[i-1].Level))
		dc.LineTo(x(edges[i].At), y(edges[i].Level))
	}
	dc.LineTo(float64(o.Width)-margin, y(edges[len(edges)-1].Level))
	dc.Stroke()

	pulses := Decode(edges, o.Multiplier)
	dc.SetRGB(0.6, 0.1, 0.1)
	for _, p := range pulses {
		label := p.Kind.String()
		if p.Kind == Reset || p.Kind == Presence {
			label = label[:1]
		}
		dc.DrawStringAnchored(label, x(p.Start+p.Width/2), bottom+o.FontSize, 0.5, 0.5)
	}
	dc.SetRGB(0, 0, 0)
	for _, fr := range Frames(pulses) {
		dc.DrawStringAnchored(fmt.Sprintf("% x", fr.Data), x(fr.Start), float64(o.Height)-margin, 0, 0.5)
	}
	return dc.EncodePNG(w)
}
