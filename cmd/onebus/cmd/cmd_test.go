// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GermanBionicSystems/wirebus/common"
	"github.com/GermanBionicSystems/wirebus/onebus"
	"github.com/GermanBionicSystems/wirebus/onebus/onebustest"
)

func TestParseHex(t *testing.T) {
	for _, s := range []string{"dead", "de ad", "de:ad", "0xde 0xad"} {
		b, err := parseHex(s)
		require.NoError(t, err, s)
		assert.Equal(t, []byte{0xde, 0xad}, b, s)
	}
	_, err := parseHex("dea")
	assert.Error(t, err)
	_, err = parseHex("zz")
	assert.Error(t, err)
}

func TestParseRole(t *testing.T) {
	for s, want := range map[string]onebus.Role{"auto": onebus.Auto, "master": onebus.Master, "slave": onebus.Slave} {
		r, err := parseRole(s)
		require.NoError(t, err)
		assert.Equal(t, want, r)
	}
	_, err := parseRole("boss")
	assert.Error(t, err)
}

func TestNewLogger_json(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf)
	l.Debug("hidden")
	l.Info("shown", "k", 1)
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "shown", m["msg"])
	assert.Contains(t, m, "ts")
	assert.True(t, l.Enabled(context.Background(), slog.LevelInfo))
}

func TestSimulate(t *testing.T) {
	for _, m := range []uint32{1, 2} {
		res, err := simulate([]byte{0xde, 0xad}, []byte{0xbe, 0xef}, m, false)
		require.NoError(t, err)
		assert.True(t, res.OK)
		assert.True(t, res.Detected)
		assert.Equal(t, 1, res.Resets)
		assert.Equal(t, []byte{0xde, 0xad}, res.Slave)
		assert.Equal(t, []byte{0xbe, 0xef}, res.Master)
		require.Len(t, res.Frames, 1)
		assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, res.Frames[0].Data)
	}
	_, err := simulate(nil, nil, 1, false)
	assert.ErrorIs(t, err, onebus.ErrLength)
	_, err = simulate([]byte{1}, nil, 0, false)
	assert.ErrorIs(t, err, onebus.ErrMultiplier)
}

func TestSimulate_crc(t *testing.T) {
	res, err := simulate([]byte{0x01, 0x02}, []byte{0x03}, 1, true)
	require.NoError(t, err)
	assert.True(t, res.CRCOK)
	assert.Equal(t, common.AppendCRC([]byte{0x01, 0x02}), res.Slave)
	assert.Equal(t, common.AppendCRC([]byte{0x03}), res.Master)
}

func TestSimCmd(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "trace.png")
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"sim", "--request", "01 02 03", "--response", "aa", "--strip", "--crc", "--png", out})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "ok=true resets=1 presence=true")
	assert.Contains(t, buf.String(), "slave received:  01 02 03 ")
	assert.Contains(t, buf.String(), "crc ok=true\n")
	assert.Contains(t, buf.String(), "\033[0m\n")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	_, err = png.Decode(f)
	require.NoError(t, err)
}

func TestScan_empty(t *testing.T) {
	line := onebustest.NewLine()
	d, err := onebus.New(line.Pin("m"), &onebus.Opts{TimeoutMultiplier: 1, Role: onebus.Master})
	require.NoError(t, err)
	n, err := scan(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, d.LastOperationSucceeded())

	d, err = onebus.New(line.Pin("s"), &onebus.Opts{TimeoutMultiplier: 1, Role: onebus.Slave})
	require.NoError(t, err)
	_, err = scan(context.Background(), d)
	assert.ErrorIs(t, err, onebus.ErrNotMaster)
}

func TestPeriodicSender(t *testing.T) {
	sim := onebustest.NewSim()
	opts := func(r onebus.Role) *onebus.Opts {
		return &onebus.Opts{TimeoutMultiplier: 1, Role: r, Clock: sim.Clock()}
	}
	m, err := onebus.New(sim.Line.Pin("m"), opts(onebus.Master))
	require.NoError(t, err)
	s, err := onebus.New(sim.Line.Pin("s"), opts(onebus.Slave))
	require.NoError(t, err)
	var got [][]byte
	s.OnReceive(func(data []byte) {
		if len(data) == 2 {
			got = append(got, append([]byte(nil), data...))
		}
	})
	sender := &periodicSender{d: m, clk: sim.Clock(), log: newLogger(&bytes.Buffer{}), req: []byte{1, 2}, every: 10}
	sim.Add(sender, m, s)

	sim.Run(25 * time.Millisecond)
	// Sent at 0, 10 and 20ms.
	assert.Len(t, got, 3)
	assert.Equal(t, []byte{1, 2}, got[0])

	require.NoError(t, s.SetMaster(true))
	require.NoError(t, m.SetMaster(false))
	assert.False(t, sender.Tick(), "a slave does not send")
}
