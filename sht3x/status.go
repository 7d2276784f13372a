// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sht3x

import "strings"

// StatusWord is the device status register. Refer to the datasheet, table
// 17.
type StatusWord uint16

const (
	// At least one alert is pending.
	StatusAlertPending StatusWord = 1 << 15
	StatusHeaterOn     StatusWord = 1 << 13
	// Humidity tracking alert.
	StatusRHAlert StatusWord = 1 << 11
	// Temperature tracking alert.
	StatusTempAlert StatusWord = 1 << 10
	// Set after a power on, soft reset or reset pin event. Cleared by
	// ClearStatus.
	StatusResetDetected StatusWord = 1 << 4
	// The last command was not processed, it was invalid or failed its
	// internal checksum.
	StatusCommandFailed StatusWord = 1 << 1
	// The checksum of the last write transfer failed.
	StatusWriteChecksumFailed StatusWord = 1 << 0
)

var statusNames = []struct {
	bit  StatusWord
	name string
}{
	{StatusAlertPending, "AlertPending"},
	{StatusHeaterOn, "HeaterOn"},
	{StatusRHAlert, "RHAlert"},
	{StatusTempAlert, "TempAlert"},
	{StatusResetDetected, "ResetDetected"},
	{StatusCommandFailed, "CommandFailed"},
	{StatusWriteChecksumFailed, "WriteChecksumFailed"},
}

// Has reports whether every bit of flags is set.
func (s StatusWord) Has(flags StatusWord) bool {
	return s&flags == flags
}

func (s StatusWord) String() string {
	var names []string
	for _, n := range statusNames {
		if s.Has(n.bit) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "0"
	}
	return strings.Join(names, "|")
}
