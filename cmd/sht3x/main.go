// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// sht3x samples a SHT3x temperature/humidity sensor and publishes the
// readings to the console, InfluxDB and an HTTP/websocket API.
//
//	sht3x -config sht3x.yaml
//	sht3x -once
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/sht3x/internal/config"
	"github.com/GermanBionicSystems/sht3x/internal/console"
	"github.com/GermanBionicSystems/sht3x/internal/httpapi"
	"github.com/GermanBionicSystems/sht3x/internal/influx"
	"github.com/GermanBionicSystems/sht3x/internal/sampler"
	"github.com/GermanBionicSystems/sht3x/sht3x"
	"github.com/gin-gonic/gin"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

func mainImpl() error {
	cfgPath := flag.String("config", "", "YAML configuration file")
	once := flag.Bool("once", false, "take a single reading and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	if _, err := host.Init(); err != nil {
		return err
	}
	bus, err := i2creg.Open(cfg.Sensor.Bus)
	if err != nil {
		return err
	}
	defer bus.Close()

	opts := sht3x.Opts{Addr: cfg.Sensor.Address}
	if cfg.Sensor.Debug {
		opts.Logger = log.Default()
	}
	dev, err := sht3x.NewI2C(bus, &opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sinks []sampler.Sink
	if cfg.Console.Enabled {
		c := console.New(nil)
		defer c.Halt()
		sinks = append(sinks, c)
	}
	if cfg.Influx.URL != "" {
		s := influx.New(cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket,
			cfg.Influx.Measurement, map[string]string{"sensor": dev.String(), "bus": bus.String()})
		defer s.Close()
		sinks = append(sinks, s)
	}
	httpErr := make(chan error, 1)
	if cfg.HTTP.Listen != "" && !*once {
		gin.SetMode(gin.ReleaseMode)
		api := httpapi.New(nil)
		sinks = append(sinks, api)
		go func() {
			log.Printf("serving on %s", cfg.HTTP.Listen)
			httpErr <- api.ListenAndServe(ctx, cfg.HTTP.Listen)
		}()
	}

	s := sampler.New(dev, sampler.Opts{
		Interval:    time.Duration(cfg.Poll.IntervalMs) * time.Millisecond,
		StatusEvery: cfg.Poll.StatusEvery,
		Heater:      time.Duration(cfg.Sensor.HeaterMs) * time.Millisecond,
	}, sinks...)

	if *once {
		r, err := s.Once(ctx)
		if err != nil {
			return err
		}
		if !r.Valid() {
			return errors.New("no valid reading")
		}
		return nil
	}

	// The sampler owns the bus; wait for it before the deferred Close.
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()
	select {
	case err := <-runErr:
		return err
	case err := <-httpErr:
		stop()
		if rerr := <-runErr; err == nil {
			err = rerr
		}
		return err
	}
}

func main() {
	if err := mainImpl(); err != nil {
		log.Fatalf("sht3x: %v", err)
	}
}
