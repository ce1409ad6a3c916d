// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package onebus

import "errors"

var (
	// ErrBusy is returned when a request arrives while a transaction is in
	// progress. Requests are never queued.
	ErrBusy = errors.New("onebus: bus is busy")
	// ErrNotMaster is returned when a master-only operation is requested
	// from a node that is not master.
	ErrNotMaster = errors.New("onebus: not bus master")
	// ErrLength is returned for payloads that are empty or exceed
	// MaxLength.
	ErrLength = errors.New("onebus: invalid length")
	// ErrResponderExpired is returned by Responder.Respond outside of the
	// request callback.
	ErrResponderExpired = errors.New("onebus: responder used outside of request callback")
	// ErrSearchUnsupported is returned by Bus.Search; the engine does not
	// implement ROM addressing.
	ErrSearchUnsupported = errors.New("onebus: search is not supported")
	// ErrMultiplier is returned by New for a zero timeout multiplier.
	ErrMultiplier = errors.New("onebus: timeout multiplier must be at least 1")
	// ErrNoPin is returned by New without a pin.
	ErrNoPin = errors.New("onebus: nil pin")
)

// busError implements error and onewire.BusError.
type busError string

func (e busError) Error() string  { return string(e) }
func (e busError) BusError() bool { return true }
