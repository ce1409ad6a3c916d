// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package busloop drives many bus engines from a single goroutine.
//
// Each engine only makes progress when ticked and must never be ticked
// from two goroutines at once. A Loop owns that goroutine: engines are
// registered by name, possibly from other goroutines, and Run ticks every
// registered engine in turn until its context is done.
package busloop

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Ticker is a cooperatively scheduled engine, such as *onebus.Dev.
type Ticker interface {
	Tick() bool
}

// ErrExists is returned by Add for a name already registered.
var ErrExists = errors.New("busloop: name already registered")

// Opts contains options to pass to New.
type Opts struct {
	// Idle is slept between two passes over the engines. Zero only yields
	// the processor, which is what bit-banged timing needs.
	Idle time.Duration
	// Logger receives registration events. Nil discards them.
	Logger *slog.Logger
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{}

// Loop ticks registered engines.
type Loop struct {
	engines *xsync.MapOf[string, Ticker]
	idle    time.Duration
	log     *slog.Logger
}

// New returns an empty Loop.
func New(opts *Opts) *Loop {
	if opts == nil {
		opts = &DefaultOpts
	}
	l := &Loop{
		engines: xsync.NewMapOf[string, Ticker](),
		idle:    opts.Idle,
		log:     opts.Logger,
	}
	if l.log == nil {
		l.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}

// Add registers t under name.
func (l *Loop) Add(name string, t Ticker) error {
	if _, loaded := l.engines.LoadOrStore(name, t); loaded {
		return ErrExists
	}
	l.log.Debug("busloop: added", "name", name)
	return nil
}

// Remove unregisters name. It is a no-op for unknown names.
func (l *Loop) Remove(name string) {
	if _, ok := l.engines.LoadAndDelete(name); ok {
		l.log.Debug("busloop: removed", "name", name)
	}
}

// Get returns the engine registered under name.
func (l *Loop) Get(name string) (Ticker, bool) {
	return l.engines.Load(name)
}

// Len returns the number of registered engines.
func (l *Loop) Len() int {
	return l.engines.Size()
}

// TickAll ticks every registered engine once and returns how many reported
// progress.
func (l *Loop) TickAll() int {
	n := 0
	l.engines.Range(func(_ string, t Ticker) bool {
		if t.Tick() {
			n++
		}
		return true
	})
	return n
}

// Run ticks the engines until ctx is done and returns its error.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		l.TickAll()
		if l.idle > 0 {
			time.Sleep(l.idle)
		} else {
			runtime.Gosched()
		}
	}
}
