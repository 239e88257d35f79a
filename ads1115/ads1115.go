// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ads1115 controls a Texas Instruments ADS1115 16-bit
// analog-to-digital converter over I²C.
//
// The driver covers what a position sensor needs from the chip. The
// Set methods stage fields of the configuration register (input
// multiplexer, programmable gain, operating mode, data rate) in a
// shadow word that WriteConfig commits in a single register write.
// ReadConversion fetches the latest conversion with the usual pointer
// write plus read framing; its two phases fail with distinct errors so
// callers can tell which side of the transaction broke.
//
// Datasheet: https://www.ti.com/lit/ds/symlink/ads1115.pdf
package ads1115

import (
	"errors"
	"fmt"

	"github.com/opensusp/travelmetry/i2cbus"
)

// DefaultAddress is the bus address with the ADDR pin tied to ground.
// The other strappings follow the datasheet: 0x49 for VDD, 0x4a for
// SDA and 0x4b for SCL.
const DefaultAddress uint16 = 0x48

// DefaultConfig is the configuration register value after power-on.
const DefaultConfig uint16 = 0x8583

// Register pointer values.
const (
	regConversion byte = 0x00
	regConfig     byte = 0x01
	regLoThresh   byte = 0x02
	regHiThresh   byte = 0x03
)

// Configuration register field masks.
const (
	muxMask  uint16 = 0x7000
	pgaMask  uint16 = 0x0e00
	modeMask uint16 = 0x0100
	rateMask uint16 = 0x00e0
)

// InputMux selects which inputs feed the converter.
type InputMux uint16

const (
	MuxDiff01  InputMux = 0x0000 // AIN0 and AIN1 differential (chip default)
	MuxDiff03  InputMux = 0x1000
	MuxDiff13  InputMux = 0x2000
	MuxDiff23  InputMux = 0x3000
	MuxSingle0 InputMux = 0x4000 // AIN0 against ground
	MuxSingle1 InputMux = 0x5000
	MuxSingle2 InputMux = 0x6000
	MuxSingle3 InputMux = 0x7000
)

// PGA selects the programmable gain amplifier full-scale range.
type PGA uint16

const (
	PGA6144 PGA = 0x0000 // ±6.144V
	PGA4096 PGA = 0x0200 // ±4.096V
	PGA2048 PGA = 0x0400 // ±2.048V (chip default)
	PGA1024 PGA = 0x0600 // ±1.024V
	PGA512  PGA = 0x0800 // ±0.512V
	PGA256  PGA = 0x0a00 // ±0.256V
)

// OperatingMode selects between continuous conversion and single-shot.
type OperatingMode uint16

const (
	ModeContinuous OperatingMode = 0x0000
	ModeSingleShot OperatingMode = 0x0100 // chip default
)

// DataRate selects the conversion rate.
type DataRate uint16

const (
	Rate8SPS   DataRate = 0x0000
	Rate16SPS  DataRate = 0x0020
	Rate32SPS  DataRate = 0x0040
	Rate64SPS  DataRate = 0x0060
	Rate128SPS DataRate = 0x0080 // chip default
	Rate250SPS DataRate = 0x00a0
	Rate475SPS DataRate = 0x00c0
	Rate860SPS DataRate = 0x00e0
)

// Conversion read failures, one per transaction phase.
var (
	ErrPointerWrite   = errors.New("ads1115: conversion pointer write failed")
	ErrConversionRead = errors.New("ads1115: conversion register read failed")
)

// Dev is a handle to one ADS1115 on a bus.
//
// The configuration word only lives in memory until WriteConfig
// pushes it to the device.
type Dev struct {
	bus    i2cbus.Bus
	addr   uint16
	config uint16
}

// New returns a handle to the converter at addr. No bus traffic
// happens until a configuration or conversion call.
func New(bus i2cbus.Bus, addr uint16) *Dev {
	return &Dev{bus: bus, addr: addr, config: DefaultConfig}
}

// Addr returns the device's 7-bit bus address.
func (d *Dev) Addr() uint16 {
	return d.addr
}

// SetBus rebinds the device to bus. Owners that hand buses around,
// like the sensor resolver, refresh this binding before every use.
func (d *Dev) SetBus(bus i2cbus.Bus) {
	d.bus = bus
}

// SetInputMux stages the input multiplexer selection.
func (d *Dev) SetInputMux(m InputMux) {
	d.config = (d.config &^ muxMask) | uint16(m)
}

// SetPGA stages the programmable gain selection.
func (d *Dev) SetPGA(g PGA) {
	d.config = (d.config &^ pgaMask) | uint16(g)
}

// SetOperatingMode stages the conversion mode selection.
func (d *Dev) SetOperatingMode(m OperatingMode) {
	d.config = (d.config &^ modeMask) | uint16(m)
}

// SetDataRate stages the conversion rate selection.
func (d *Dev) SetDataRate(r DataRate) {
	d.config = (d.config &^ rateMask) | uint16(r)
}

// Config returns the staged configuration word.
func (d *Dev) Config() uint16 {
	return d.config
}

// WriteConfig commits the staged configuration to the device in a
// single register write.
func (d *Dev) WriteConfig() error {
	w := [3]byte{regConfig, byte(d.config >> 8), byte(d.config)}
	n, err := d.bus.Write(d.addr, w[:], false)
	if err != nil {
		return fmt.Errorf("ads1115: config write: %w", err)
	}
	if n != len(w) {
		return fmt.Errorf("ads1115: config write: short transfer (%d of %d bytes)", n, len(w))
	}
	return nil
}

// ReadConversion returns the current value of the conversion register.
//
// The transaction is a one byte register pointer write that keeps the
// bus claimed, then a two byte big endian read. Each phase must move
// its full length; anything less fails with ErrPointerWrite for the
// write phase or ErrConversionRead for the read phase.
func (d *Dev) ReadConversion() (uint16, error) {
	w := [1]byte{regConversion}
	n, err := d.bus.Write(d.addr, w[:], true)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPointerWrite, err)
	}
	if n != len(w) {
		return 0, fmt.Errorf("%w: short transfer (%d of %d bytes)", ErrPointerWrite, n, len(w))
	}
	var r [2]byte
	n, err = d.bus.Read(d.addr, r[:])
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrConversionRead, err)
	}
	if n != len(r) {
		return 0, fmt.Errorf("%w: short transfer (%d of %d bytes)", ErrConversionRead, n, len(r))
	}
	return uint16(r[0])<<8 | uint16(r[1]), nil
}

// Probe checks that a device answers at the configured address with a
// minimal one byte read. It reports presence only; no register is
// selected.
func (d *Dev) Probe() bool {
	var r [1]byte
	n, err := d.bus.Read(d.addr, r[:])
	return err == nil && n == len(r)
}

func (d *Dev) String() string {
	return fmt.Sprintf("ads1115{%#02x}", d.addr)
}
