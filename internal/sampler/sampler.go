// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sampler owns a SHT3x sensor, runs the measurement sequence with
// the required settle times and hands every result to a set of sinks.
package sampler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/GermanBionicSystems/sht3x/sht3x"
)

// Device is the part of *sht3x.Dev the sampler drives.
type Device interface {
	Reset() error
	ClearStatus() error
	Measure() error
	SetHeater(on bool) error
	Read() (sht3x.RawMeasurement, error)
	Temperature() (float64, error)
	Humidity() (float64, error)
	Status() (sht3x.StatusWord, error)
}

// Reading is the outcome of one measurement cycle. Temperature and humidity
// are checked independently, so one may be valid while the other is not.
type Reading struct {
	Time time.Time
	// Err is set when no measurement could be read at all.
	Err error

	Temperature    float64
	TemperatureErr error
	Humidity       float64
	HumidityErr    error

	// StatusRead is false for cycles that skipped the status register.
	StatusRead bool
	Status     sht3x.StatusWord
	StatusErr  error
}

// Valid reports whether both temperature and humidity can be used.
func (r *Reading) Valid() bool {
	return r.Err == nil && r.TemperatureErr == nil && r.HumidityErr == nil
}

// Sink receives every Reading.
type Sink interface {
	Write(ctx context.Context, r Reading) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, r Reading) error

// Write calls f(ctx, r).
func (f SinkFunc) Write(ctx context.Context, r Reading) error {
	return f(ctx, r)
}

// Opts configures a Sampler.
type Opts struct {
	// Interval between the start of two measurements.
	Interval time.Duration
	// StatusEvery reads the status register every n cycles. 0 never does.
	StatusEvery int
	// Heater runs the heater this long during Init. 0 skips it.
	Heater time.Duration
	// Logger defaults to log.Default().
	Logger *log.Logger
}

// Sampler serializes all access to its Device.
type Sampler struct {
	dev   Device
	opts  Opts
	sinks []Sink
	count int

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New returns a Sampler measuring dev and publishing every reading to sinks.
func New(dev Device, opts Opts, sinks ...Sink) *Sampler {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Sampler{dev: dev, opts: opts, sinks: sinks, sleep: sleepCtx, now: time.Now}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Init resets the sensor, clears its status register and optionally pulses
// the heater to dry the sensing element.
func (s *Sampler) Init(ctx context.Context) error {
	type step struct {
		run  func() error
		wait time.Duration
	}
	steps := []step{
		{s.dev.Reset, sht3x.CommandWait},
		{s.dev.ClearStatus, sht3x.CommandWait},
	}
	if s.opts.Heater > 0 {
		steps = append(steps,
			step{func() error { return s.dev.SetHeater(true) }, s.opts.Heater},
			step{func() error { return s.dev.SetHeater(false) }, sht3x.CommandWait})
	}
	for _, st := range steps {
		if err := st.run(); err != nil {
			return err
		}
		if err := s.sleep(ctx, st.wait); err != nil {
			return err
		}
	}
	return nil
}

// Sample runs one measurement cycle. It never retries; failures are
// recorded in the returned Reading.
func (s *Sampler) Sample(ctx context.Context) Reading {
	r := Reading{Time: s.now()}
	if err := s.dev.Measure(); err != nil {
		r.Err = err
		return r
	}
	if err := s.sleep(ctx, sht3x.MeasurementWait); err != nil {
		r.Err = err
		return r
	}
	if _, err := s.dev.Read(); err != nil {
		r.Err = err
		return r
	}
	r.Temperature, r.TemperatureErr = s.dev.Temperature()
	r.Humidity, r.HumidityErr = s.dev.Humidity()

	s.count++
	if s.opts.StatusEvery > 0 && s.count%s.opts.StatusEvery == 0 {
		r.StatusRead = true
		if err := s.sleep(ctx, sht3x.CommandWait); err != nil {
			r.StatusErr = err
			return r
		}
		r.Status, r.StatusErr = s.dev.Status()
	}
	return r
}

func (s *Sampler) publish(ctx context.Context, r Reading) {
	for _, e := range []error{r.Err, r.TemperatureErr, r.HumidityErr, r.StatusErr} {
		if e != nil && !errors.Is(e, context.Canceled) {
			s.opts.Logger.Printf("sampler: %v", e)
		}
	}
	for _, sink := range s.sinks {
		if err := sink.Write(ctx, r); err != nil {
			s.opts.Logger.Printf("sampler: sink: %v", err)
		}
	}
}

// Run calls Init, then samples every Interval until ctx is done. A sample
// is taken right away. Run returns nil when ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) error {
	if s.opts.Interval <= 0 {
		return errors.New("sampler: interval must be positive")
	}
	if err := s.Init(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		r := s.Sample(ctx)
		if ctx.Err() != nil {
			return nil
		}
		s.publish(ctx, r)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Once runs Init and a single cycle and publishes it.
func (s *Sampler) Once(ctx context.Context) (Reading, error) {
	if err := s.Init(ctx); err != nil {
		return Reading{}, err
	}
	r := s.Sample(ctx)
	s.publish(ctx, r)
	return r, nil
}
