// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sht3x

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/GermanBionicSystems/sht3x/common"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Command is a 16 bit device opcode. It is sent MSB first.
type Command uint16

const (
	// Soft reset and re-initialization.
	CmdReset       Command = 0x30a2
	CmdReadStatus  Command = 0xf32d
	CmdClearStatus Command = 0x3041
	// Single shot, high repeatability, clock stretching disabled.
	CmdMeasure   Command = 0x2400
	CmdHeaterOn  Command = 0x306d
	CmdHeaterOff Command = 0x3066
)

func (c Command) String() string {
	switch c {
	case CmdReset:
		return "reset"
	case CmdReadStatus:
		return "read status"
	case CmdClearStatus:
		return "clear status"
	case CmdMeasure:
		return "measure"
	case CmdHeaterOn:
		return "heater on"
	case CmdHeaterOff:
		return "heater off"
	default:
		return fmt.Sprintf("Command(%#04x)", uint16(c))
	}
}

func (c Command) valid() bool {
	switch c {
	case CmdReset, CmdReadStatus, CmdClearStatus, CmdMeasure, CmdHeaterOn, CmdHeaterOff:
		return true
	}
	return false
}

const (
	// DefaultAddress is used when the ADDR pin is pulled low.
	DefaultAddress uint16 = 0x44
	// AlternateAddress is used when the ADDR pin is pulled high.
	AlternateAddress uint16 = 0x45

	// CommandWait is the time the device needs to process a command before
	// it accepts the next one.
	CommandWait = 2 * time.Millisecond
	// MeasurementWait is the maximum duration of a high repeatability
	// measurement. Read must not be called before it has passed.
	MeasurementWait = 16 * time.Millisecond
)

const (
	// Magic numbers for count to value conversions.
	temperatureOffset float64 = -45.0
	temperatureScalar float64 = 175.0
	humidityScalar    float64 = 100.0
	scaleDivisor      float64 = 65535.0

	minSampleInterval = MeasurementWait + CommandWait
)

// RawMeasurement is the measurement as sent by the device: temperature MSB,
// LSB and CRC followed by humidity MSB, LSB and CRC.
type RawMeasurement [6]byte

// RawStatus is the status register as sent by the device: MSB, LSB and CRC.
type RawStatus [3]byte

// Logger receives the driver's debug output. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Opts holds the configuration options for the device.
type Opts struct {
	// Addr is the 7 bit device address. 0 means DefaultAddress.
	Addr uint16
	// Logger receives a trace of every bus transaction. nil disables it.
	Logger Logger
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{Addr: DefaultAddress}

// Dev is a handle to a SHT3x sensor.
//
// Dev is not safe for concurrent use. While SenseContinuous is running it
// owns the device and only Halt may be called.
type Dev struct {
	bus  Bus
	addr uint16
	log  Logger

	// Last measurement returned by Read.
	raw      RawMeasurement
	measured bool

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// New returns a Dev talking to the sensor through b. The Opts can be nil.
func New(b Bus, opts *Opts) (*Dev, error) {
	if b == nil {
		return nil, errors.New("sht3x: nil bus")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.Addr == 0 {
		o.Addr = DefaultAddress
	}
	if o.Addr > 0x7f {
		return nil, fmt.Errorf("sht3x: invalid address %#x", o.Addr)
	}
	if o.Logger == nil {
		o.Logger = nopLogger{}
	}
	return &Dev{bus: b, addr: o.Addr, log: o.Logger}, nil
}

// NewI2C returns a Dev on a periph.io I²C bus. The Opts can be nil.
func NewI2C(b i2c.Bus, opts *Opts) (*Dev, error) {
	if b == nil {
		return nil, errors.New("sht3x: nil bus")
	}
	return New(&I2CBus{Bus: b}, opts)
}

// SendCommand writes cmd to the device. Every byte of the opcode must be
// acknowledged, otherwise the returned error matches ErrNotAcknowledged.
//
// SendCommand does not wait. The caller must let CommandWait pass before
// the next command, and MeasurementWait after CmdMeasure before Read.
func (d *Dev) SendCommand(cmd Command) error {
	if !cmd.valid() {
		return fmt.Errorf("%w %#04x", ErrUnknownCommand, uint16(cmd))
	}
	w := []byte{byte(cmd >> 8), byte(cmd)}
	d.log.Printf("sht3x: sending %s (%#04x) to bus=%v addr=%#x", cmd, uint16(cmd), d.bus, d.addr)
	n, err := d.bus.WriteTo(d.addr, w)
	if n != len(w) {
		if err != nil {
			return fmt.Errorf("%w: %s acked %d of %d bytes: %w", ErrNotAcknowledged, cmd, n, len(w), err)
		}
		return fmt.Errorf("%w: %s acked %d of %d bytes", ErrNotAcknowledged, cmd, n, len(w))
	}
	if err != nil {
		return fmt.Errorf("sht3x: error sending %s %w", cmd, err)
	}
	return nil
}

// Reset issues a soft reset. The device re-initializes and sets
// StatusResetDetected.
func (d *Dev) Reset() error {
	return d.SendCommand(CmdReset)
}

// ClearStatus clears the alert and reset flags of the status register.
func (d *Dev) ClearStatus() error {
	return d.SendCommand(CmdClearStatus)
}

// Measure starts a single shot measurement. Call Read after MeasurementWait.
func (d *Dev) Measure() error {
	return d.SendCommand(CmdMeasure)
}

// SetHeater turns the internal heater on or off. The heater clears
// condensation but skews measurements taken while, and shortly after, it
// runs.
func (d *Dev) SetHeater(on bool) error {
	if on {
		return d.SendCommand(CmdHeaterOn)
	}
	return d.SendCommand(CmdHeaterOff)
}

// Read fetches the result of the last Measure and stores it, replacing the
// previous measurement. CRCs are not checked here, Temperature and Humidity
// check them when decoding. On error the stored measurement is unchanged.
func (d *Dev) Read() (RawMeasurement, error) {
	var r RawMeasurement
	if err := d.readInto(r[:]); err != nil {
		return RawMeasurement{}, err
	}
	d.raw = r
	d.measured = true
	return r, nil
}

// Raw returns the stored measurement and whether Read ever succeeded.
func (d *Dev) Raw() (RawMeasurement, bool) {
	return d.raw, d.measured
}

// Status reads the status register.
func (d *Dev) Status() (StatusWord, error) {
	if err := d.SendCommand(CmdReadStatus); err != nil {
		return 0, err
	}
	var r RawStatus
	if err := d.readInto(r[:]); err != nil {
		return 0, err
	}
	w, err := checkedWord(FieldStatus, r[:])
	if err != nil {
		return 0, err
	}
	return StatusWord(w), nil
}

// Temperature decodes the stored measurement in °C, rounded to 2 decimals.
func (d *Dev) Temperature() (float64, error) {
	count, err := d.count(FieldTemperature)
	if err != nil {
		return 0, err
	}
	return round2(countToCelsius(count)), nil
}

// Humidity decodes the stored measurement in %RH, rounded to 2 decimals.
func (d *Dev) Humidity() (float64, error) {
	count, err := d.count(FieldHumidity)
	if err != nil {
		return 0, err
	}
	return round2(countToPercentRH(count)), nil
}

func (d *Dev) readInto(r []byte) error {
	n, err := d.bus.ReadFrom(d.addr, r)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRead, err)
	}
	if n != len(r) {
		return fmt.Errorf("%w: received %d of %d bytes", ErrRead, n, len(r))
	}
	d.log.Printf("sht3x: read % x from bus=%v addr=%#x", r, d.bus, d.addr)
	return nil
}

// count returns the validated word of f from the stored measurement.
func (d *Dev) count(f Field) (uint16, error) {
	if !d.measured {
		return 0, ErrNoMeasurement
	}
	switch f {
	case FieldTemperature:
		return checkedWord(f, d.raw[0:3])
	case FieldHumidity:
		return checkedWord(f, d.raw[3:6])
	default:
		return 0, fmt.Errorf("sht3x: %s is not part of a measurement", f)
	}
}

// checkedWord returns the big endian word in b[:2] if b[2] is its CRC.
func checkedWord(f Field, b []byte) (uint16, error) {
	if !common.CheckCRC8(b[:2], b[2]) {
		return 0, &ChecksumError{Field: f, Received: b[2], Computed: common.CRC8(b[:2])}
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

func countToCelsius(count uint16) float64 {
	return temperatureOffset + temperatureScalar*float64(count)/scaleDivisor
}

func countToPercentRH(count uint16) float64 {
	return humidityScalar * float64(count) / scaleDivisor
}

func countToTemperature(count uint16) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(countToCelsius(count)*float64(physic.Celsius))
}

func countToHumidity(count uint16) physic.RelativeHumidity {
	return physic.RelativeHumidity(countToPercentRH(count) * float64(physic.PercentRH))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Sense runs a complete measurement and writes the result to e. Implements
// physic.SenseEnv. Pressure is always 0.
//
// If only one of the two words fails its CRC, the other is still written
// to e and the returned error names the bad one.
func (d *Dev) Sense(e *physic.Env) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sense(e)
}

func (d *Dev) sense(e *physic.Env) error {
	e.Temperature = 0
	e.Humidity = 0
	e.Pressure = 0
	if err := d.Measure(); err != nil {
		return err
	}
	time.Sleep(MeasurementWait)
	if _, err := d.Read(); err != nil {
		return err
	}
	var errs []error
	if count, err := d.count(FieldTemperature); err != nil {
		errs = append(errs, err)
	} else {
		e.Temperature = countToTemperature(count)
	}
	if count, err := d.count(FieldHumidity); err != nil {
		errs = append(errs, err)
	} else {
		e.Humidity = countToHumidity(count)
	}
	return errors.Join(errs...)
}

// SenseContinuous measures every interval and sends the results to the
// returned channel. Measurements that fail are dropped. Call Halt to stop,
// the channel is closed once the loop exits. Implements physic.SenseEnv.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < minSampleInterval {
		return nil, errors.New("sht3x: sample interval is < measurement duration")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil, errors.New("sht3x: SenseContinuous already running")
	}
	stop := make(chan struct{})
	d.stop = stop
	ch := make(chan physic.Env, 16)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				var e physic.Env
				d.mu.Lock()
				err := d.sense(&e)
				d.mu.Unlock()
				if err != nil {
					d.log.Printf("%v", err)
					continue
				}
				select {
				case ch <- e:
				case <-stop:
					return
				}
			}
		}
	}()
	return ch, nil
}

// Precision returns the resolution of a single count. Implements
// physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = physic.Temperature(math.Round(temperatureScalar / scaleDivisor * float64(physic.Celsius)))
	e.Humidity = physic.RelativeHumidity(math.Round(humidityScalar / scaleDivisor * float64(physic.PercentRH)))
	e.Pressure = 0
}

// Halt stops a running SenseContinuous and waits for it to exit. The device
// itself has nothing to stop in single shot mode. Implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop != nil {
		close(stop)
		d.wg.Wait()
	}
	return nil
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("sht3x{addr=%#x}", d.addr)
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
