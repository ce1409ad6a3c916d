// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cmd

import (
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/phsym/console-slog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	multiplier uint32
)

var rootCmd = &cobra.Command{
	Use:   "onebus",
	Short: "Single-wire multidrop bus node",
	Long: `Drive a bit-banged single-wire bus from a GPIO pin, as master, slave or
with the role negotiated on the bus, or simulate an exchange and look at the
waveform.

Examples:
  onebus sim --request "de ad" --response "be ef" --strip
  onebus scan --pin GPIO4
  onebus run --pin GPIO4 --role auto --poll 10s`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().Uint32VarP(&multiplier, "multiplier", "m", 1,
		"scale every bus timing by this factor, for slow hosts")
}

// newLogger returns a colored console logger when w is a terminal and a
// JSON logger otherwise.
func newLogger(w io.Writer) *slog.Logger {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return slog.New(console.NewHandler(w, &console.HandlerOptions{Level: level}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "ts"
			}
			return a
		},
	}))
}

// parseHex accepts "dead", "de ad" and "de:ad".
func parseHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "0x", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return b, nil
}
