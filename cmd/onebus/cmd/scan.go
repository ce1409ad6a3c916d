// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/GermanBionicSystems/wirebus/busloop"
	"github.com/GermanBionicSystems/wirebus/onebus"
)

var scanPinName string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Check for devices on a bus",
	Long: `Issue a single reset on the bus and report whether any device answered
with a presence pulse.

Examples:
  onebus scan --pin GPIO4`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanPinName, "pin", "p", "",
		"GPIO pin name (e.g., GPIO4)")
	scanCmd.MarkFlagRequired("pin")
}

func runScan(cmd *cobra.Command, args []string) error {
	p, err := openPin(scanPinName)
	if err != nil {
		return err
	}
	d, err := onebus.New(p, &onebus.Opts{
		TimeoutMultiplier: multiplier,
		Role:              onebus.Master,
		Logger:            newLogger(os.Stderr),
	})
	if err != nil {
		return err
	}
	defer d.Halt()
	n, err := scan(cmd.Context(), d)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d device(s) present\n", p, n)
	return d.Err()
}

// scan runs one bus scan on d, which must be an idle master.
func scan(ctx context.Context, d *onebus.Dev) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	ctx, found := context.WithCancel(ctx)
	defer found()
	n := -1
	if err := d.ScanBus(func(c int) {
		n = c
		found()
	}); err != nil {
		return 0, err
	}
	loop := busloop.New(nil)
	if err := loop.Add(d.String(), d); err != nil {
		return 0, err
	}
	_ = loop.Run(ctx)
	if n < 0 {
		return 0, fmt.Errorf("scan of %s timed out", d)
	}
	return n, nil
}
