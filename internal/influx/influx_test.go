// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package influx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GermanBionicSystems/sht3x/internal/sampler"
	"github.com/GermanBionicSystems/sht3x/sht3x"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

type fakeWriter struct {
	points []*write.Point
	err    error
}

func (f *fakeWriter) WritePoint(ctx context.Context, point ...*write.Point) error {
	f.points = append(f.points, point...)
	return f.err
}

func fields(p *write.Point) map[string]any {
	m := map[string]any{}
	for _, f := range p.FieldList() {
		m[f.Key] = f.Value
	}
	return m
}

func TestWrite(t *testing.T) {
	w := &fakeWriter{}
	s := &Sink{w: w, measurement: "environment", tags: map[string]string{"sensor": "sht3x"}}
	ts := time.Unix(1700000000, 0)
	err := s.Write(context.Background(), sampler.Reading{
		Time:        ts,
		Temperature: 21.5,
		Humidity:    40.25,
		StatusRead:  true,
		Status:      sht3x.StatusHeaterOn,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(w.points) != 1 {
		t.Fatalf("wrote %d points", len(w.points))
	}
	p := w.points[0]
	if p.Name() != "environment" || !p.Time().Equal(ts) {
		t.Errorf("point %s at %v", p.Name(), p.Time())
	}
	if tags := p.TagList(); len(tags) != 1 || tags[0].Key != "sensor" || tags[0].Value != "sht3x" {
		t.Errorf("tags %v", tags)
	}
	f := fields(p)
	if f["temperature"] != 21.5 || f["humidity"] != 40.25 || f["status"] != int64(sht3x.StatusHeaterOn) {
		t.Errorf("fields %v", f)
	}
}

func TestWritePartial(t *testing.T) {
	w := &fakeWriter{}
	s := &Sink{w: w, measurement: "environment"}
	err := s.Write(context.Background(), sampler.Reading{
		Temperature: 21.5,
		HumidityErr: &sht3x.ChecksumError{Field: sht3x.FieldHumidity},
	})
	if err != nil {
		t.Fatal(err)
	}
	f := fields(w.points[0])
	if _, ok := f["humidity"]; ok || len(f) != 1 {
		t.Errorf("fields %v", f)
	}
}

func TestWriteSkipped(t *testing.T) {
	w := &fakeWriter{}
	s := &Sink{w: w, measurement: "environment"}
	readings := []sampler.Reading{
		{Err: sht3x.ErrRead},
		{TemperatureErr: sht3x.ErrChecksum, HumidityErr: sht3x.ErrChecksum},
	}
	for _, r := range readings {
		if err := s.Write(context.Background(), r); err != nil {
			t.Error(err)
		}
	}
	if len(w.points) != 0 {
		t.Errorf("wrote %d points for unusable readings", len(w.points))
	}
}

func TestWriteError(t *testing.T) {
	failure := errors.New("unauthorized")
	s := &Sink{w: &fakeWriter{err: failure}, measurement: "environment"}
	if err := s.Write(context.Background(), sampler.Reading{}); !errors.Is(err, failure) {
		t.Errorf("Write() returned %v", err)
	}
	s.Close()
}
