// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/wirebus/common"
	"github.com/GermanBionicSystems/wirebus/onebus"
)

// openPin initializes the host drivers and looks up a GPIO by name.
func openPin(name string) (gpio.PinIO, error) {
	if name == "" {
		return nil, errors.New("--pin is required")
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no pin named %q", name)
	}
	return p, nil
}

func parseRole(s string) (onebus.Role, error) {
	switch s {
	case "auto":
		return onebus.Auto, nil
	case "master":
		return onebus.Master, nil
	case "slave":
		return onebus.Slave, nil
	default:
		return 0, fmt.Errorf("invalid role %q: want master, slave or auto", s)
	}
}

// periodicSender issues a transaction every interval while the node is an
// idle master. It is ticked from the same loop as the node.
type periodicSender struct {
	d     *onebus.Dev
	clk   onebus.Clock
	log   *slog.Logger
	req   []byte
	read  int
	crc   bool
	every uint32 // ms
	next  uint32
}

func (s *periodicSender) Tick() bool {
	if !s.d.IsMaster() || s.d.IsBusy() {
		return false
	}
	now := s.clk.Millis()
	if int32(now-s.next) < 0 {
		return false
	}
	s.next = now + s.every
	err := s.d.Transact(s.req, s.read, func(ok bool) {
		if !ok {
			s.log.Warn("no device answered", "pin", s.d.String())
			return
		}
		got := s.d.Received()
		attrs := []any{"sent", fmt.Sprintf("% x", s.req), "received", fmt.Sprintf("% x", got)}
		if s.crc && s.read != 0 {
			attrs = append(attrs, "crc_ok", common.CheckCRC(got))
		}
		s.log.Info("transaction done", attrs...)
	})
	if err != nil {
		s.log.Debug("send skipped", "err", err)
		return false
	}
	return true
}
