// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package wirebus is a container for a bit-banged single-wire multidrop bus.
//
// The engine lives in onebus, with a simulated line in onebus/onebustest
// for tests and experiments. busloop drives several engines from one
// goroutine, bustrace decodes and draws captured waveforms, and
// cmd/onebus is the command line front end.
package wirebus
