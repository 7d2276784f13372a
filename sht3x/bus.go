// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sht3x

import (
	"periph.io/x/conn/v3/i2c"
)

// Bus is the two-wire transport a Dev talks through.
type Bus interface {
	// WriteTo sends w to the device at addr and returns how many bytes the
	// device acknowledged.
	WriteTo(addr uint16, w []byte) (int, error)
	// ReadFrom fills r from the device at addr and returns how many bytes
	// were received.
	ReadFrom(addr uint16, r []byte) (int, error)
}

// I2CBus adapts a periph.io i2c.Bus to Bus.
//
// periph reports a NACK as a failed transaction rather than a count, so a
// write that returns an error is reported as zero acknowledged bytes.
type I2CBus struct {
	Bus i2c.Bus
}

// WriteTo implements Bus.
func (b *I2CBus) WriteTo(addr uint16, w []byte) (int, error) {
	if err := b.Bus.Tx(addr, w, nil); err != nil {
		return 0, err
	}
	return len(w), nil
}

// ReadFrom implements Bus.
func (b *I2CBus) ReadFrom(addr uint16, r []byte) (int, error) {
	if err := b.Bus.Tx(addr, nil, r); err != nil {
		return 0, err
	}
	return len(r), nil
}

func (b *I2CBus) String() string {
	return b.Bus.String()
}

var _ Bus = &I2CBus{}
