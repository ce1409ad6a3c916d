// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onebus

import "time"

// Clock provides the monotonic counters the engine schedules against.
//
// Both counters wrap; the engine only ever subtracts two readings so the
// wrap is harmless as long as no single phase spans half the range.
type Clock interface {
	Micros() uint32
	Millis() uint32
}

// HostClock returns a Clock backed by the monotonic clock of the Go
// runtime, starting at zero.
func HostClock() Clock {
	return &hostClock{start: time.Now()}
}

type hostClock struct {
	start time.Time
}

func (c *hostClock) Micros() uint32 {
	return uint32(time.Since(c.start) / time.Microsecond)
}

func (c *hostClock) Millis() uint32 {
	return uint32(time.Since(c.start) / time.Millisecond)
}
