// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package linpot

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"testing"

	"periph.io/x/conn/v3/physic"

	"github.com/opensusp/travelmetry/i2cbus"
	"github.com/opensusp/travelmetry/i2cbus/bustest"
	"github.com/opensusp/travelmetry/monitoring"
	"github.com/opensusp/travelmetry/sensor"
)

const addr uint16 = 0x48

func TestComputeTravel(t *testing.T) {
	tests := []struct {
		raw      uint16
		baseline uint16
		want     uint16
	}{
		{2000, 1234, 766},
		{1234, 1234, 0},
		{1000, 1234, 0}, // below baseline clamps
		{0, 0, 0},
		{5, 0xffff, 6},      // sentinel baseline reads as -1
		{0, 0xffff, 1},      // same, from zero
		{0x8000, 0, 0},      // most negative raw clamps
		{0xffff, 0xfffe, 1}, // both negative, one count apart
		{0x7fff, 0, 0x7fff}, // full positive swing
	}
	for _, test := range tests {
		if got := ComputeTravel(test.raw, test.baseline); got != test.want {
			t.Errorf("ComputeTravel(%#x, %#x) = %d, expected %d", test.raw, test.baseline, got, test.want)
		}
	}
}

func TestMeasureWithoutAvailabilityCheck(t *testing.T) {
	pb := &bustest.Playback{}
	defer pb.Close()

	d := New(pb, sensor.Fork, nil)
	if got := d.Measure(); got != sensor.NoReading {
		t.Errorf("Measure() = %d, expected NoReading", got)
	}
	if pb.Transactions() != 0 {
		t.Errorf("unavailable sensor generated %d transactions", pb.Transactions())
	}
}

func TestStartAndMeasure(t *testing.T) {
	pb := &bustest.Playback{
		Ops: []bustest.IO{
			{Addr: addr, R: []byte{0x00}}, // availability probe
			{Addr: addr, W: []byte{0x00}, KeepBus: true},
			{Addr: addr, R: []byte{0x07, 0xd0}}, // 2000 counts
		},
	}
	defer pb.Close()

	d := New(pb, sensor.Fork, nil)
	if !d.Start(1234, false) {
		t.Fatal("Start failed with an answering device")
	}
	if got := d.Measure(); got != 766 {
		t.Errorf("Measure() = %d, expected 766", got)
	}
}

func TestMeasureReadFailureKeepsAvailability(t *testing.T) {
	pb := &bustest.Playback{
		Ops: []bustest.IO{
			{Addr: addr, R: []byte{0x00}},
			{Addr: addr, W: []byte{0x00}, KeepBus: true, Err: errors.New("nack")},
			{Addr: addr, W: []byte{0x00}, KeepBus: true},
			{Addr: addr, R: []byte{0x04, 0xd2}}, // 1234 counts
		},
	}
	defer pb.Close()

	d := New(pb, sensor.Fork, nil)
	if !d.Start(1234, false) {
		t.Fatal("Start failed")
	}
	if got := d.Measure(); got != sensor.NoReading {
		t.Fatalf("failed read returned %d, expected NoReading", got)
	}
	// A transient fault must not flip availability; the next read runs.
	if got := d.Measure(); got != 0 {
		t.Errorf("Measure() after recovery = %d, expected 0", got)
	}
}

func TestCheckAvailability(t *testing.T) {
	pb := &bustest.Playback{
		Ops: []bustest.IO{
			{Addr: addr, R: []byte{0x00}, Err: errors.New("nack")},
			{Addr: addr, R: []byte{0x00}},
		},
	}
	defer pb.Close()

	d := New(pb, sensor.Fork, nil)
	if d.CheckAvailability() {
		t.Error("expected the first check to fail")
	}
	if got := d.Measure(); got != sensor.NoReading {
		t.Errorf("Measure() after failed check = %d, expected NoReading", got)
	}
	if !d.CheckAvailability() {
		t.Error("expected the second check to succeed")
	}
	if pb.Reads() != 2 {
		t.Errorf("availability checks issued %d reads, expected 2", pb.Reads())
	}
}

func TestStartUnavailableLeavesBaseline(t *testing.T) {
	pb := &bustest.Playback{
		Ops: []bustest.IO{
			{Addr: addr, R: []byte{0x00}, Err: errors.New("nack")},
		},
	}
	defer pb.Close()

	d := New(pb, sensor.Fork, nil)
	if d.Start(1234, false) {
		t.Fatal("Start succeeded with a dead device")
	}
	if got := d.Baseline(); got != sensor.NoReading {
		t.Errorf("failed Start stored baseline %d", got)
	}
}

func TestMeasureUnaffectedByInvertedFlag(t *testing.T) {
	run := func(inverted bool) uint16 {
		pb := &bustest.Playback{
			Ops: []bustest.IO{
				{Addr: addr, R: []byte{0x00}},
				{Addr: addr, W: []byte{0x00}, KeepBus: true},
				{Addr: addr, R: []byte{0x00, 0x96}}, // 150 counts
			},
		}
		defer pb.Close()
		d := New(pb, sensor.Fork, nil)
		if !d.Start(100, inverted) {
			t.Fatal("Start failed")
		}
		return d.Measure()
	}
	plain := run(false)
	flipped := run(true)
	if plain != 50 || flipped != 50 {
		t.Errorf("travel = %d/%d, expected 50 regardless of the flag", plain, flipped)
	}
}

func TestCalibrateExpanded(t *testing.T) {
	pb := &bustest.Playback{
		Ops: []bustest.IO{
			{Addr: addr, W: []byte{0x00}, KeepBus: true},
			{Addr: addr, R: []byte{0x13, 0x88}}, // 5000 counts
			{Addr: addr, R: []byte{0x00}},       // availability probe
			{Addr: addr, W: []byte{0x00}, KeepBus: true},
			{Addr: addr, R: []byte{0x13, 0x88}},
		},
	}
	defer pb.Close()

	d := New(pb, sensor.Fork, nil)
	d.CalibrateExpanded()
	if got := d.Baseline(); got != 5000 {
		t.Fatalf("Baseline() = %d, expected 5000", got)
	}
	if !d.CheckAvailability() {
		t.Fatal("availability check failed")
	}
	// Standing still at the calibrated position reads as zero travel.
	if got := d.Measure(); got != 0 {
		t.Errorf("Measure() = %d, expected 0", got)
	}
}

func TestCalibrateExpandedFailurePoisonsBaseline(t *testing.T) {
	defer func() {
		monitoring.SetLogger(log.Printf)
		monitoring.EnableDebug(false)
	}()
	var logged []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logged = append(logged, fmt.Sprintf(format, v...))
	})
	monitoring.EnableDebug(true)

	pb := &bustest.Playback{
		Ops: []bustest.IO{
			{Addr: addr, R: []byte{0x00}},
			{Addr: addr, W: []byte{0x00}, KeepBus: true, Err: errors.New("nack")},
		},
	}
	defer pb.Close()

	d := New(pb, sensor.Fork, nil)
	if !d.Start(1234, false) {
		t.Fatal("Start failed")
	}
	d.CalibrateExpanded()
	if got := d.Baseline(); got != sensor.NoReading {
		t.Errorf("Baseline() = %d, expected the NoReading sentinel", got)
	}
	found := false
	for _, line := range logged {
		if strings.Contains(line, "calibrate expanded") {
			found = true
		}
	}
	if !found {
		t.Errorf("calibration fault missing from the debug channel: %v", logged)
	}
}

func TestCalibrateCompressed(t *testing.T) {
	pb := &bustest.Playback{}
	defer pb.Close()

	d := New(pb, sensor.Fork, nil)
	d.CalibrateCompressed()
	if pb.Transactions() != 0 {
		t.Errorf("CalibrateCompressed generated %d transactions", pb.Transactions())
	}
	if got := d.Baseline(); got != sensor.NoReading {
		t.Errorf("CalibrateCompressed changed the baseline to %d", got)
	}
}

func TestInit(t *testing.T) {
	pb := &bustest.Playback{
		Ops: []bustest.IO{
			{Addr: addr, W: []byte{0x01, 0xc2, 0xe3}},
		},
	}
	defer pb.Close()

	d := New(pb, sensor.Fork, &Opts{Bus: i2cbus.Config{Frequency: physic.MegaHertz}})
	d.Init()
	if pb.Configures() != 1 {
		t.Errorf("Init configured the bus %d times, expected 1", pb.Configures())
	}
	if got := pb.LastConfig().Frequency; got != physic.MegaHertz {
		t.Errorf("bus frequency %v, expected 1MHz", got)
	}
}

func TestInitConfigWriteFailureIsSilent(t *testing.T) {
	pb := &bustest.Playback{
		Ops: []bustest.IO{
			{Addr: addr, W: []byte{0x01, 0xc2, 0xe3}, Err: errors.New("nack")},
			{Addr: addr, R: []byte{0x00}},
		},
	}
	defer pb.Close()

	d := New(pb, sensor.Fork, nil)
	d.Init()
	if !d.CheckAvailability() {
		t.Error("device must stay reachable after a failed config write")
	}
}

func TestUnwired(t *testing.T) {
	pb := &bustest.Playback{}
	defer pb.Close()

	d := Unwired(pb, sensor.Shock)
	d.Init()
	if d.CheckAvailability() {
		t.Error("unwired sensor reported available")
	}
	if d.Start(1234, false) {
		t.Error("unwired sensor started")
	}
	if got := d.Measure(); got != sensor.NoReading {
		t.Errorf("Measure() = %d, expected NoReading", got)
	}
	d.CalibrateExpanded()
	if got := d.Baseline(); got != sensor.NoReading {
		t.Errorf("Baseline() = %d, expected NoReading", got)
	}
	d.CalibrateCompressed()
	if pb.Transactions() != 0 {
		t.Errorf("unwired sensor generated %d transactions", pb.Transactions())
	}
	// The bus itself is still brought up, converter or not.
	if pb.Configures() != 1 {
		t.Errorf("Init configured the bus %d times, expected 1", pb.Configures())
	}
}

func TestUnwiredNilBus(t *testing.T) {
	d := Unwired(nil, sensor.Shock)
	d.Init()
	if d.CheckAvailability() {
		t.Error("unwired sensor reported available")
	}
	if got := d.Measure(); got != sensor.NoReading {
		t.Errorf("Measure() = %d, expected NoReading", got)
	}
}

func TestSwapBus(t *testing.T) {
	dead := &bustest.Playback{
		Ops: []bustest.IO{
			{Addr: addr, R: []byte{0x00}, Err: errors.New("nack")},
		},
	}
	defer dead.Close()
	alive := &bustest.Playback{
		Ops: []bustest.IO{
			{Addr: addr, R: []byte{0x00}},
		},
	}
	defer alive.Close()

	d := New(dead, sensor.Fork, nil)
	if d.CheckAvailability() {
		t.Fatal("expected the dead bus to fail the probe")
	}
	d.SetBus(alive)
	if !d.CheckAvailability() {
		t.Fatal("the converter did not follow the sensor onto the new bus")
	}
}

func TestString(t *testing.T) {
	if got := New(&bustest.Playback{}, sensor.Fork, nil).String(); got != "linpot{fork, ads1115{0x48}}" {
		t.Errorf("String() = %q", got)
	}
	if got := Unwired(nil, sensor.Shock).String(); got != "linpot{shock, unwired}" {
		t.Errorf("String() = %q", got)
	}
}
