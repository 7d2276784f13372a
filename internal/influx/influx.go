// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package influx stores readings in InfluxDB 2.x.
package influx

import (
	"context"
	"fmt"

	"github.com/GermanBionicSystems/sht3x/internal/sampler"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// pointWriter is satisfied by api.WriteAPIBlocking.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Sink writes one point per reading. Fields that failed their CRC are left
// out of the point; a reading without any usable field is skipped.
type Sink struct {
	w           pointWriter
	measurement string
	tags        map[string]string
	close       func()
}

// New connects to the server at url. tags are added to every point.
func New(url, token, org, bucket, measurement string, tags map[string]string) *Sink {
	client := influxdb2.NewClient(url, token)
	return &Sink{
		w:           client.WriteAPIBlocking(org, bucket),
		measurement: measurement,
		tags:        tags,
		close:       client.Close,
	}
}

// Write implements sampler.Sink.
func (s *Sink) Write(ctx context.Context, r sampler.Reading) error {
	if r.Err != nil {
		return nil
	}
	p := influxdb2.NewPointWithMeasurement(s.measurement).SetTime(r.Time)
	for k, v := range s.tags {
		p.AddTag(k, v)
	}
	fields := 0
	if r.TemperatureErr == nil {
		p.AddField("temperature", r.Temperature)
		fields++
	}
	if r.HumidityErr == nil {
		p.AddField("humidity", r.Humidity)
		fields++
	}
	if r.StatusRead && r.StatusErr == nil {
		p.AddField("status", int64(r.Status))
		fields++
	}
	if fields == 0 {
		return nil
	}
	if err := s.w.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("influx: %w", err)
	}
	return nil
}

// Close releases the client.
func (s *Sink) Close() {
	if s.close != nil {
		s.close()
	}
}

var _ sampler.Sink = &Sink{}
