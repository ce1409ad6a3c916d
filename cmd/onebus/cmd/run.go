// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/GermanBionicSystems/wirebus/busloop"
	"github.com/GermanBionicSystems/wirebus/common"
	"github.com/GermanBionicSystems/wirebus/onebus"
)

var (
	runPinName    string
	runRole       string
	runPoll       time.Duration
	runQuiet      time.Duration
	runSend       string
	runEvery      time.Duration
	runRead       int
	runRespond    string
	runRequestLen int
	runCRC        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a bus node on a GPIO pin",
	Long: `Run a bus node on a GPIO pin until interrupted.

A master periodically sends --send and reads --read bytes back. A slave
answers --respond once --request-len bytes were received. In auto mode the
node listens first and takes whichever role the bus leaves to it.

Examples:
  onebus run --pin GPIO4 --role master --send "de ad" --read 2 --every 1s
  onebus run --pin GPIO4 --role slave --respond "be ef" --request-len 2
  onebus run --pin GPIO4 --role auto --poll 10s --send 01 --respond 02`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runPinName, "pin", "p", "",
		"GPIO pin name (e.g., GPIO4)")
	runCmd.Flags().StringVar(&runRole, "role", "auto",
		"node role: master, slave or auto")
	runCmd.Flags().DurationVar(&runPoll, "poll", 0,
		"auto role: rescan the bus this often while master, 0 disables")
	runCmd.Flags().DurationVar(&runQuiet, "quiescence", onebus.DefaultOpts.Quiescence,
		"auto role: bus silence after which the node becomes master")
	runCmd.Flags().StringVar(&runSend, "send", "",
		"master: bytes to send, in hex")
	runCmd.Flags().DurationVar(&runEvery, "every", time.Second,
		"master: interval between two transactions")
	runCmd.Flags().IntVar(&runRead, "read", 0,
		"master: number of bytes to read after each send")
	runCmd.Flags().StringVar(&runRespond, "respond", "",
		"slave: bytes to answer with, in hex")
	runCmd.Flags().IntVar(&runRequestLen, "request-len", 1,
		"slave: answer once that many request bytes were received, checksum included")
	runCmd.Flags().BoolVar(&runCRC, "crc", false,
		"append a CRC8 to sent and answered bytes; a slave ignores requests with a bad one")

	runCmd.MarkFlagRequired("pin")
}

func runRun(cmd *cobra.Command, args []string) error {
	role, err := parseRole(runRole)
	if err != nil {
		return err
	}
	var req, resp []byte
	if runSend != "" {
		if req, err = parseHex(runSend); err != nil {
			return err
		}
	}
	if runRespond != "" {
		if resp, err = parseHex(runRespond); err != nil {
			return err
		}
	}
	if runCRC {
		if len(req) != 0 {
			req = common.AppendCRC(req)
		}
		if len(resp) != 0 {
			resp = common.AppendCRC(resp)
		}
	}
	p, err := openPin(runPinName)
	if err != nil {
		return err
	}
	log := newLogger(os.Stderr)
	clk := onebus.HostClock()
	d, err := onebus.New(p, &onebus.Opts{
		TimeoutMultiplier: multiplier,
		Role:              role,
		Quiescence:        runQuiet,
		Clock:             clk,
		Logger:            log,
	})
	if err != nil {
		return err
	}
	defer d.Halt()

	d.OnReset(func() { log.Debug("bus reset") })
	d.OnReceive(func(data []byte) { log.Debug("received", "data", fmt.Sprintf("% x", data)) })
	d.OnRequest(func(data []byte, r *onebus.Responder) {
		if len(resp) == 0 || len(data) != runRequestLen {
			return
		}
		if runCRC && !common.CheckCRC(data) {
			log.Warn("bad request checksum", "data", fmt.Sprintf("% x", data))
			return
		}
		if err := r.Respond(resp); err != nil {
			log.Error("respond", "err", err)
		}
	})
	if role == onebus.Auto {
		err = d.BeginAuto(runPoll, func(master bool) {
			log.Info("role resolved", "master", master)
		})
		if err != nil {
			return err
		}
	}

	loop := busloop.New(&busloop.Opts{Logger: log})
	if err := loop.Add(d.String(), d); err != nil {
		return err
	}
	if len(req) != 0 {
		s := &periodicSender{d: d, clk: clk, log: log, req: req, read: runRead, crc: runCRC, every: uint32(runEvery / time.Millisecond)}
		if err := loop.Add("sender", s); err != nil {
			return err
		}
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	log.Info("running", "pin", p.String(), "role", role.String(), "multiplier", multiplier)
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if err := d.Err(); err != nil {
		return fmt.Errorf("pin error: %w", err)
	}
	return nil
}
