// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sht3x

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAcknowledged is returned when the device did not acknowledge
	// every byte of a command. Usually the device is absent or the address
	// is wrong.
	ErrNotAcknowledged = errors.New("sht3x: command not acknowledged")
	// ErrRead is returned when a read did not return the requested number
	// of bytes.
	ErrRead = errors.New("sht3x: read failed")
	// ErrChecksum matches every *ChecksumError.
	ErrChecksum = errors.New("sht3x: invalid checksum")
	// ErrNoMeasurement is returned by Temperature and Humidity before the
	// first successful Read.
	ErrNoMeasurement = errors.New("sht3x: no measurement has been read")
	// ErrUnknownCommand is returned by SendCommand for opcodes the driver
	// does not support.
	ErrUnknownCommand = errors.New("sht3x: unknown command")
)

// Field identifies a CRC protected word returned by the device.
type Field int

const (
	FieldStatus Field = iota
	FieldTemperature
	FieldHumidity
)

func (f Field) String() string {
	switch f {
	case FieldStatus:
		return "status register"
	case FieldTemperature:
		return "temperature value"
	case FieldHumidity:
		return "humidity value"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// ChecksumError reports a data word whose CRC did not match.
type ChecksumError struct {
	Field Field
	// Received is the CRC byte sent by the device, Computed the CRC of the
	// data word as received.
	Received byte
	Computed byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("sht3x: invalid checksum for %s", e.Field)
}

// Is makes errors.Is(err, ErrChecksum) true for every field.
func (e *ChecksumError) Is(target error) bool {
	return target == ErrChecksum
}
