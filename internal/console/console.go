// Copyright 2017 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package console prints readings to a terminal (stdout) using ANSI color
// codes. Each value is preceded by a color swatch, blue to red for the
// temperature and yellow to blue for the humidity.
package console

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"io"
	"time"

	"github.com/GermanBionicSystems/sht3x/internal/sampler"
	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// Opts represents the options available for the console.
type Opts struct {
	// W defaults to stdout, wrapped so escape codes work on Windows.
	W       io.Writer
	Palette *ansi256.Palette
	// Cold and Hot are the ends of the temperature gradient in °C.
	Cold, Hot float64

	_ struct{}
}

// Dev writes one line per reading.
type Dev struct {
	w         io.Writer
	palette   ansi256.Palette
	cold, hot float64

	buf bytes.Buffer
}

// New returns a Dev that prints to the console. The Opts can be nil.
func New(opts *Opts) *Dev {
	if opts == nil {
		opts = &Opts{}
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	d := &Dev{w: w, palette: *p, cold: opts.Cold, hot: opts.Hot}
	if d.hot <= d.cold {
		d.cold, d.hot = 0, 40
	}
	return d
}

func (d *Dev) String() string {
	return "Console"
}

// Halt resets the terminal attributes.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\033[0m"))
	return err
}

// Write prints r. Implements sampler.Sink.
func (d *Dev) Write(ctx context.Context, r sampler.Reading) error {
	// Reuse the buffer so a reading costs a single write.
	d.buf.Reset()
	_, _ = d.buf.WriteString("\033[0m")
	_, _ = d.buf.WriteString(r.Time.Format(time.TimeOnly))
	if r.Err != nil {
		_, _ = fmt.Fprintf(&d.buf, "  %v", r.Err)
	} else {
		if r.TemperatureErr != nil {
			_, _ = fmt.Fprintf(&d.buf, "  %v", r.TemperatureErr)
		} else {
			_, _ = fmt.Fprintf(&d.buf, "  %s\033[0m %6.2f °C", d.palette.Block(d.temperatureColor(r.Temperature)), r.Temperature)
		}
		if r.HumidityErr != nil {
			_, _ = fmt.Fprintf(&d.buf, "  %v", r.HumidityErr)
		} else {
			_, _ = fmt.Fprintf(&d.buf, "  %s\033[0m %6.2f %%RH", d.palette.Block(humidityColor(r.Humidity)), r.Humidity)
		}
	}
	if r.StatusRead {
		if r.StatusErr != nil {
			_, _ = fmt.Fprintf(&d.buf, "  %v", r.StatusErr)
		} else {
			_, _ = fmt.Fprintf(&d.buf, "  status=%s", r.Status)
		}
	}
	_, _ = d.buf.WriteString("\033[0m\n")
	_, err := d.buf.WriteTo(d.w)
	return err
}

func (d *Dev) temperatureColor(c float64) color.NRGBA {
	f := clamp((c - d.cold) / (d.hot - d.cold))
	return color.NRGBA{R: byte(255 * f), G: 0, B: byte(255 * (1 - f)), A: 255}
}

func humidityColor(rh float64) color.NRGBA {
	f := clamp(rh / 100)
	return color.NRGBA{R: byte(255 * (1 - f)), G: byte(200 - 72*f), B: byte(255 * f), A: 255}
}

func clamp(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

var _ sampler.Sink = &Dev{}
var _ fmt.Stringer = &Dev{}
