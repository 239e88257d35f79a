// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package i2cbus defines the bus capability the travelmetry sensor
// drivers are written against.
//
// The interface mirrors a controller level I²C API rather than a
// register oriented one: writes may keep the bus claimed so a
// following read continues the same transaction with a repeated start,
// and both directions report how many bytes actually moved so short
// transfers are observable by callers. Adapters exist for periph.io
// host buses (periphbus) and TinyGo machine buses (tinybus), plus a
// scripted in-memory implementation for tests (bustest).
package i2cbus

import "periph.io/x/conn/v3/physic"

// Config describes how a bus is brought up before first use.
type Config struct {
	// Frequency is the bus clock rate. Zero keeps the adapter's
	// default.
	Frequency physic.Frequency
	// SDAPin and SCLPin name signalling pins whose pull-ups should be
	// enabled during bring-up. Empty names skip pin setup, which is
	// the common case on hosts where the pin mux is fixed.
	SDAPin string
	SCLPin string
}

// Bus is a single I²C bus shared by one or more devices.
//
// Implementations are not required to be safe for concurrent use; the
// travelmetry polling model gives each bus a single logical owner.
type Bus interface {
	// Configure applies cfg to the bus. Implementations make it safe
	// to call once per device sharing the bus.
	Configure(cfg Config) error
	// Write sends p to the device at addr and returns the number of
	// bytes accepted. With keepBus set the bus stays claimed so the
	// next Read continues the same transaction.
	Write(addr uint16, p []byte, keepBus bool) (int, error)
	// Read fills p from the device at addr and returns the number of
	// bytes received.
	Read(addr uint16, p []byte) (int, error)
}

// BusCloser is a Bus that owns its underlying handle.
type BusCloser interface {
	Bus
	Close() error
}
