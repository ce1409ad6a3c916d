// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bustrace records the level changes of a single-wire bus and turns
// them back into something a human can read.
//
// A Recorder collects edges, either from a simulated line or from a real
// pin wrapped with Tap. Decode classifies the low pulses found between the
// edges as resets, presence pulses and data bits, and Frames regroups them
// into the bytes exchanged after each reset.
//
// The capture can be rendered as a PNG waveform with RenderPNG or printed
// to a terminal with a Strip.
package bustrace
