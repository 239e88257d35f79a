// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package linpot implements the suspension sensor capability for
// linear potentiometers read through an ADS1115 analog to digital
// converter.
//
// Each sensor owns at most one converter. Roles left out of the
// configuration get an unwired sensor whose operations return their
// safe defaults without generating bus traffic, so callers hold a
// uniform capability set regardless of what hardware a build carries.
//
// Travel is reported in raw converter counts relative to a baseline
// captured at full extension. Converting counts to millimetres is a
// reporting concern and happens in the session layer.
package linpot

import (
	"fmt"

	"github.com/opensusp/travelmetry/ads1115"
	"github.com/opensusp/travelmetry/i2cbus"
	"github.com/opensusp/travelmetry/monitoring"
	"github.com/opensusp/travelmetry/sensor"
)

// Opts describe the converter attached to a sensor.
type Opts struct {
	// Addr is the converter's bus address. Zero selects
	// ads1115.DefaultAddress.
	Addr uint16
	// Bus is the bring-up applied to the bus during Init.
	Bus i2cbus.Config
}

// Dev is one linear position sensor. The zero value is not usable; use
// New or Unwired.
type Dev struct {
	role   sensor.Role
	bus    i2cbus.Bus
	adc    *ads1115.Dev // nil when the role has no converter wired
	busCfg i2cbus.Config

	baseline  uint16
	available bool
	// inverted is recorded by CalibrateCompressed. No travel math
	// consumes it yet.
	inverted bool
}

// New returns the sensor for role, driving a converter on bus.
func New(bus i2cbus.Bus, role sensor.Role, opts *Opts) *Dev {
	if opts == nil {
		opts = &Opts{}
	}
	addr := opts.Addr
	if addr == 0 {
		addr = ads1115.DefaultAddress
	}
	return &Dev{
		role:     role,
		bus:      bus,
		adc:      ads1115.New(bus, addr),
		busCfg:   opts.Bus,
		baseline: sensor.NoReading,
	}
}

// Unwired returns a sensor for a role with no converter attached. Its
// operations return their safe defaults and generate no device
// traffic. bus may be nil.
func Unwired(bus i2cbus.Bus, role sensor.Role) *Dev {
	return &Dev{role: role, bus: bus, baseline: sensor.NoReading}
}

// resolve returns the converter wired to this sensor after refreshing
// its bus binding, or nil when the role has none. The refresh keeps
// the converter current when the sensor's bus is swapped out, as test
// harnesses and multi-bus setups do.
func (d *Dev) resolve() *ads1115.Dev {
	if d.adc == nil {
		return nil
	}
	d.adc.SetBus(d.bus)
	return d.adc
}

// SetBus replaces the sensor's bus. The converter picks the new bus up
// on its next operation.
func (d *Dev) SetBus(bus i2cbus.Bus) {
	d.bus = bus
}

// Init brings up the bus and pushes the converter configuration:
// single-ended channel 0, ±4.096V gain, continuous conversion at 860
// samples per second.
//
// Init never fails. Configuration trouble is logged to the debug
// channel and left for CheckAvailability to surface.
func (d *Dev) Init() {
	if d.bus != nil {
		if err := d.bus.Configure(d.busCfg); err != nil {
			monitoring.Debugf("linpot: %s: bus configure: %v", d.role, err)
		}
	}
	adc := d.resolve()
	if adc == nil {
		return
	}
	adc.SetInputMux(ads1115.MuxSingle0)
	adc.SetPGA(ads1115.PGA4096)
	adc.SetOperatingMode(ads1115.ModeContinuous)
	adc.SetDataRate(ads1115.Rate860SPS)
	if err := adc.WriteConfig(); err != nil {
		monitoring.Debugf("linpot: %s: %v", d.role, err)
	}
}

// CheckAvailability probes the converter and records the outcome for
// the measuring path. A role with no converter reports false without
// recording anything.
func (d *Dev) CheckAvailability() bool {
	adc := d.resolve()
	if adc == nil {
		return false
	}
	d.available = adc.Probe()
	return d.available
}

// Start verifies the device answers and adopts baseline for travel
// computation. It reports false, leaving the stored baseline
// untouched, when the device is unavailable. The inverted argument is
// currently ignored.
func (d *Dev) Start(baseline uint16, inverted bool) bool {
	if !d.CheckAvailability() {
		return false
	}
	d.baseline = baseline
	return true
}

// Measure returns travel relative to the baseline in converter
// counts. It returns sensor.NoReading without touching the bus when
// the role has no converter or the last availability check failed, and
// when the conversion read itself fails.
func (d *Dev) Measure() uint16 {
	adc := d.resolve()
	if adc == nil || !d.available {
		return sensor.NoReading
	}
	raw, err := adc.ReadConversion()
	if err != nil {
		monitoring.Debugf("linpot: %s: %v", d.role, err)
		return sensor.NoReading
	}
	return ComputeTravel(raw, d.baseline)
}

// CalibrateExpanded samples the sensor at full extension and adopts
// the raw value as the baseline.
//
// The baseline is poisoned with sensor.NoReading before the read so an
// interrupted calibration cannot leave a stale value behind. A failed
// read keeps the sentinel; callers must treat a NoReading baseline as
// uncalibrated.
func (d *Dev) CalibrateExpanded() {
	d.baseline = sensor.NoReading
	adc := d.resolve()
	if adc == nil {
		return
	}
	raw, err := adc.ReadConversion()
	if err != nil {
		monitoring.Debugf("linpot: %s: calibrate expanded: %v", d.role, err)
		return
	}
	d.baseline = raw
}

// CalibrateCompressed records the fully compressed position by
// clearing the inversion flag.
func (d *Dev) CalibrateCompressed() {
	d.inverted = false
}

// Baseline returns the stored baseline. sensor.NoReading means no
// start or calibration has supplied one yet.
func (d *Dev) Baseline() uint16 {
	return d.baseline
}

// Role returns the suspension element this sensor watches.
func (d *Dev) Role() sensor.Role {
	return d.role
}

func (d *Dev) String() string {
	if d.adc == nil {
		return fmt.Sprintf("linpot{%s, unwired}", d.role)
	}
	return fmt.Sprintf("linpot{%s, %s}", d.role, d.adc)
}

// ComputeTravel converts a raw conversion and a stored baseline into
// travel. Both values are reinterpreted as signed 16-bit counts and
// readings below the baseline clamp to zero; they are noise or drift,
// not negative travel. The result stays in raw converter counts.
func ComputeTravel(raw, baseline uint16) uint16 {
	diff := int16(raw) - int16(baseline)
	if diff < 0 {
		return 0
	}
	return uint16(diff)
}

var _ sensor.Sensor = &Dev{}
