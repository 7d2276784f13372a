// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sampler

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/GermanBionicSystems/sht3x/sht3x"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

const addr = sht3x.DefaultAddress

var (
	opReset      = i2ctest.IO{Addr: addr, W: []byte{0x30, 0xa2}}
	opClear      = i2ctest.IO{Addr: addr, W: []byte{0x30, 0x41}}
	opMeasure    = i2ctest.IO{Addr: addr, W: []byte{0x24, 0x00}}
	opHeaterOn   = i2ctest.IO{Addr: addr, W: []byte{0x30, 0x6d}}
	opHeaterOff  = i2ctest.IO{Addr: addr, W: []byte{0x30, 0x66}}
	opReadStatus = i2ctest.IO{Addr: addr, W: []byte{0xf3, 0x2d}}
	// 107.22 °C, 74.58 %RH
	opRead = i2ctest.IO{Addr: addr, R: []byte{0xde, 0xad, 0x98, 0xbe, 0xef, 0x92}}
)

type harness struct {
	bus    *i2ctest.Playback
	s      *Sampler
	sleeps []time.Duration
	log    bytes.Buffer
}

func newHarness(t *testing.T, opts Opts, ops []i2ctest.IO, sinks ...Sink) *harness {
	t.Helper()
	h := &harness{bus: &i2ctest.Playback{Ops: ops, DontPanic: true}}
	dev, err := sht3x.NewI2C(h.bus, nil)
	if err != nil {
		t.Fatal(err)
	}
	opts.Logger = log.New(&h.log, "", 0)
	h.s = New(dev, opts, sinks...)
	h.s.sleep = func(ctx context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		return ctx.Err()
	}
	h.s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return h
}

func (h *harness) close(t *testing.T) {
	t.Helper()
	if err := h.bus.Close(); err != nil {
		t.Error(err)
	}
}

func TestInit(t *testing.T) {
	h := newHarness(t, Opts{Heater: 2 * time.Second}, []i2ctest.IO{opReset, opClear, opHeaterOn, opHeaterOff})
	if err := h.s.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	expected := []time.Duration{sht3x.CommandWait, sht3x.CommandWait, 2 * time.Second, sht3x.CommandWait}
	if len(h.sleeps) != len(expected) {
		t.Fatalf("sleeps %v expected %v", h.sleeps, expected)
	}
	for i := range expected {
		if h.sleeps[i] != expected[i] {
			t.Errorf("sleep %d = %v expected %v", i, h.sleeps[i], expected[i])
		}
	}
	h.close(t)
}

func TestInitNotAcknowledged(t *testing.T) {
	h := newHarness(t, Opts{}, nil)
	if err := h.s.Init(context.Background()); !errors.Is(err, sht3x.ErrNotAcknowledged) {
		t.Errorf("Init() returned %v", err)
	}
}

func TestSample(t *testing.T) {
	h := newHarness(t, Opts{StatusEvery: 1}, []i2ctest.IO{
		opMeasure, opRead,
		opReadStatus, {Addr: addr, R: []byte{0x80, 0x10, 0xe1}},
	})
	r := h.s.Sample(context.Background())
	if !r.Valid() {
		t.Fatalf("reading not valid: %+v", r)
	}
	if r.Temperature != 107.22 || r.Humidity != 74.58 {
		t.Errorf("reading %v °C %v %%RH", r.Temperature, r.Humidity)
	}
	if !r.StatusRead || r.StatusErr != nil || !r.Status.Has(sht3x.StatusResetDetected) {
		t.Errorf("status %v err=%v read=%t", r.Status, r.StatusErr, r.StatusRead)
	}
	if !r.Time.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("time %v", r.Time)
	}
	if h.sleeps[0] != sht3x.MeasurementWait {
		t.Errorf("waited %v after measure, expected %v", h.sleeps[0], sht3x.MeasurementWait)
	}
	h.close(t)
}

func TestSampleStatusEvery(t *testing.T) {
	h := newHarness(t, Opts{StatusEvery: 2}, []i2ctest.IO{
		opMeasure, opRead,
		opMeasure, opRead,
		opReadStatus, {Addr: addr, R: []byte{0x00, 0x00, 0x81}},
	})
	if r := h.s.Sample(context.Background()); r.StatusRead {
		t.Error("status read on the first cycle")
	}
	if r := h.s.Sample(context.Background()); !r.StatusRead || r.StatusErr != nil {
		t.Errorf("status not read on the second cycle: %+v", r)
	}
	h.close(t)
}

func TestSampleReadFailure(t *testing.T) {
	h := newHarness(t, Opts{}, []i2ctest.IO{opMeasure})
	r := h.s.Sample(context.Background())
	if !errors.Is(r.Err, sht3x.ErrRead) {
		t.Errorf("Err=%v expected ErrRead", r.Err)
	}
	if r.Valid() {
		t.Error("failed reading reported valid")
	}
}

func TestSampleHumidityChecksum(t *testing.T) {
	h := newHarness(t, Opts{}, []i2ctest.IO{
		opMeasure,
		{Addr: addr, R: []byte{0xde, 0xad, 0x98, 0xbe, 0xef, 0x93}},
	})
	r := h.s.Sample(context.Background())
	if r.Err != nil || r.TemperatureErr != nil {
		t.Fatalf("unexpected errors %v %v", r.Err, r.TemperatureErr)
	}
	if r.Temperature != 107.22 {
		t.Errorf("temperature %v", r.Temperature)
	}
	if !errors.Is(r.HumidityErr, sht3x.ErrChecksum) {
		t.Errorf("HumidityErr=%v", r.HumidityErr)
	}
	if r.Valid() {
		t.Error("reading with a bad humidity crc reported valid")
	}
}

func TestRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var got []Reading
	sink := SinkFunc(func(ctx context.Context, r Reading) error {
		got = append(got, r)
		if len(got) == 2 {
			cancel()
		}
		return nil
	})
	failing := SinkFunc(func(context.Context, Reading) error {
		return errors.New("database down")
	})
	h := newHarness(t, Opts{Interval: time.Millisecond}, []i2ctest.IO{
		opReset, opClear,
		opMeasure, opRead,
		opMeasure, opRead,
	}, sink, failing)
	if err := h.s.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("received %d readings expected 2", len(got))
	}
	for _, r := range got {
		if !r.Valid() {
			t.Errorf("invalid reading %+v", r)
		}
	}
	if !strings.Contains(h.log.String(), "sampler: sink: database down") {
		t.Errorf("sink error not logged: %q", h.log.String())
	}
	h.close(t)
}

func TestRunErrors(t *testing.T) {
	h := newHarness(t, Opts{}, nil)
	if err := h.s.Run(context.Background()); err == nil {
		t.Error("Run() accepted a zero interval")
	}
	h = newHarness(t, Opts{Interval: time.Second}, nil)
	if err := h.s.Run(context.Background()); !errors.Is(err, sht3x.ErrNotAcknowledged) {
		t.Errorf("Run() returned %v", err)
	}
}

func TestOnce(t *testing.T) {
	var got []Reading
	sink := SinkFunc(func(ctx context.Context, r Reading) error {
		got = append(got, r)
		return nil
	})
	h := newHarness(t, Opts{}, []i2ctest.IO{opReset, opClear, opMeasure, opRead}, sink)
	r, err := h.s.Once(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !r.Valid() || len(got) != 1 {
		t.Errorf("reading %+v published %d times", r, len(got))
	}
	h.close(t)
}
