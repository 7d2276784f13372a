// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sht3x controls a Sensirion SHT30, SHT31 or SHT35 temperature and
// humidity sensor over I²C.
//
// The driver only uses single shot, high repeatability measurements without
// clock stretching. A measurement is a three step exchange driven by the
// caller:
//
//	dev.Measure()
//	time.Sleep(sht3x.MeasurementWait)
//	dev.Read()
//
// after which Temperature and Humidity decode the stored words. Each data
// word carries its own CRC and is validated when it is decoded, so a
// corrupted humidity word does not hide a good temperature. Sense wraps the
// whole sequence for users of physic.SenseEnv.
//
// # Datasheet
//
// https://sensirion.com/media/documents/213E6A3B/63A5A569/Datasheet_SHT3x_DIS.pdf
//
// # Accuracy
//
//	SHT30: ±0.2 °C, ±2 %RH
//	SHT31: ±0.2 °C, ±2 %RH
//	SHT35: ±0.1 °C, ±1.5 %RH
package sht3x
