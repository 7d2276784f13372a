// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, the CRC8 calculation protecting the data words of Sensirion
// sensors.
package common

const (
	// CRC8Polynomial is x^8 + x^5 + x^4 + 1. The x^8 term is implied.
	CRC8Polynomial byte = 0x31
	// CRC8Init is the accumulator value before the first byte is fed in.
	CRC8Init byte = 0xff
)

// CRC8 calculates the 8-bit CRC of the byte slice parameter and returns the
// calculated value. Bits are processed most significant first and nothing is
// reflected or XORed on output.
func CRC8(bytes []byte) byte {
	crc := CRC8Init
	for _, val := range bytes {
		crc ^= val
		for range 8 {
			if crc&0x80 == 0 {
				crc <<= 1
			} else {
				crc = (crc << 1) ^ CRC8Polynomial
			}
		}
	}
	return crc
}

// CheckCRC8 reports whether crc is the checksum the device would send for
// data.
func CheckCRC8(data []byte, crc byte) bool {
	return CRC8(data) == crc
}
