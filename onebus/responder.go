// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onebus

// Responder lets a request handler stage the reply streamed back to the
// master in the current transaction.
//
// It is only valid while the RequestFunc it was handed to runs. Keeping it
// and using it later has no effect.
type Responder struct {
	d *Dev
}

// Respond stages p as the reply. The engine starts sending it on the next
// read slot issued by the master. A later call in the same callback
// replaces the reply; an empty p withdraws it and the slave keeps reading
// the request.
//
// Once the reply is sent the slave stops decoding until the next reset:
// extra read slots see a released line and read as 0xff.
func (r *Responder) Respond(p []byte) error {
	if r == nil || r.d == nil || !r.d.inRequest {
		return ErrResponderExpired
	}
	if len(p) > MaxLength {
		return ErrLength
	}
	r.d.resp.set(p)
	return nil
}
