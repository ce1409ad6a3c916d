// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/GermanBionicSystems/wirebus/busloop"
	"github.com/GermanBionicSystems/wirebus/bustrace"
	"github.com/GermanBionicSystems/wirebus/common"
	"github.com/GermanBionicSystems/wirebus/onebus"
	"github.com/GermanBionicSystems/wirebus/onebus/onebustest"
)

var (
	simRequest  string
	simResponse string
	simPNG      string
	simStrip    bool
	simColumns  int
	simCRC      bool
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Simulate a master/slave exchange",
	Long: `Run a master and a slave engine on a simulated line, in lock step with a
virtual clock. The master writes the request and reads as many bytes as the
slave answers; the decoded waveform is printed.

Examples:
  onebus sim --request "de ad" --response "be ef"
  onebus sim --multiplier 4 --png trace.png`,
	Args: cobra.NoArgs,
	RunE: runSim,
}

func init() {
	rootCmd.AddCommand(simCmd)

	simCmd.Flags().StringVarP(&simRequest, "request", "q", "de ad",
		"bytes written by the master, in hex")
	simCmd.Flags().StringVarP(&simResponse, "response", "r", "be ef",
		"bytes the slave answers once the request is complete, in hex")
	simCmd.Flags().StringVar(&simPNG, "png", "",
		"write the waveform to this PNG file")
	simCmd.Flags().BoolVar(&simStrip, "strip", false,
		"print the waveform as a colored strip")
	simCmd.Flags().IntVar(&simColumns, "columns", 100,
		"width of the colored strip")
	simCmd.Flags().BoolVar(&simCRC, "crc", false,
		"append a CRC8 to the request and the response and check them")
}

// simResult is the outcome of a simulated exchange.
type simResult struct {
	OK       bool
	Slave    []byte
	Master   []byte
	Resets   int
	Elapsed  time.Duration
	Edges    []bustrace.Edge
	Frames   []bustrace.Frame
	Detected bool
	// CRCOK is set when checksums are in use and the response carried a
	// valid one.
	CRCOK bool
}

// simulate runs one transaction on a simulated line. With crc, both
// directions carry a trailing checksum and the slave only answers a request
// whose checksum matches.
func simulate(req, resp []byte, mult uint32, crc bool) (*simResult, error) {
	// Engine events only matter when asked for; a nil logger discards them.
	var logger *slog.Logger
	if verbose {
		logger = newLogger(os.Stderr)
	}
	if crc {
		req = common.AppendCRC(req)
		resp = common.AppendCRC(resp)
	}
	sim := onebustest.NewSim()
	rec := bustrace.NewRecorder(0)
	sim.Line.Watch(rec.Observe)
	master, err := onebus.New(sim.Line.Pin("master"), &onebus.Opts{
		TimeoutMultiplier: mult,
		Role:              onebus.Master,
		Clock:             sim.Clock(),
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}
	slave, err := onebus.New(sim.Line.Pin("slave"), &onebus.Opts{
		TimeoutMultiplier: mult,
		Role:              onebus.Slave,
		Clock:             sim.Clock(),
		Logger:            logger,
	})
	if err != nil {
		return nil, err
	}
	sim.Add(master, slave)

	res := &simResult{}
	slave.OnReset(func() { res.Resets++ })
	slave.OnRequest(func(data []byte, r *onebus.Responder) {
		if len(data) != len(req) {
			return
		}
		res.Slave = append([]byte(nil), data...)
		if crc && !common.CheckCRC(data) {
			return
		}
		_ = r.Respond(resp)
	})
	done := false
	err = master.Transact(req, len(resp), func(ok bool) {
		res.OK = ok
		res.Master = append([]byte(nil), master.Received()...)
		done = true
	})
	if err != nil {
		return nil, err
	}

	loop := busloop.New(nil)
	if err := loop.Add("sim", simTicker{sim}); err != nil {
		return nil, err
	}
	// Generous bound: the wire time plus a full second of margin.
	for limit := 1000000 + int(mult)*(1000+120*8*(len(req)+len(resp))); !done && limit > 0; limit-- {
		loop.TickAll()
	}
	if !done {
		return nil, errors.New("simulation did not complete")
	}
	res.CRCOK = crc && common.CheckCRC(res.Master)
	res.Elapsed = sim.Clock().Elapsed()
	res.Edges = rec.Edges()
	pulses := bustrace.Decode(res.Edges, mult)
	res.Frames = bustrace.Frames(pulses)
	for _, p := range pulses {
		if p.Kind == bustrace.Presence {
			res.Detected = true
		}
	}
	return res, nil
}

// simTicker lets the loop step the whole simulated line.
type simTicker struct {
	s *onebustest.Sim
}

func (t simTicker) Tick() bool {
	t.s.Step()
	return true
}

func runSim(cmd *cobra.Command, args []string) error {
	req, err := parseHex(simRequest)
	if err != nil {
		return err
	}
	resp, err := parseHex(simResponse)
	if err != nil {
		return err
	}
	res, err := simulate(req, resp, multiplier, simCRC)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ok=%t resets=%d presence=%t in %s\n", res.OK, res.Resets, res.Detected, res.Elapsed)
	fmt.Fprintf(out, "slave received:  % x\n", res.Slave)
	fmt.Fprintf(out, "master received: % x\n", res.Master)
	if simCRC {
		fmt.Fprintf(out, "crc ok=%t\n", res.CRCOK)
	}
	if verbose {
		for _, f := range res.Frames {
			fmt.Fprintf(out, "frame %s\n", f)
		}
	}
	if simStrip {
		var w io.Writer
		if out != os.Stdout {
			w = out
		}
		s := bustrace.NewStrip(&bustrace.StripOpts{Columns: simColumns, Multiplier: multiplier, W: w})
		if err := s.Write(res.Edges); err != nil {
			return err
		}
	}
	if simPNG != "" {
		f, err := os.Create(simPNG)
		if err != nil {
			return err
		}
		opts := bustrace.DefaultPlotOpts
		opts.Multiplier = multiplier
		opts.Title = fmt.Sprintf("% x -> % x", req, resp)
		if err := bustrace.RenderPNG(f, res.Edges, &opts); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(out, "waveform written to %s\n", simPNG)
	}
	return nil
}
