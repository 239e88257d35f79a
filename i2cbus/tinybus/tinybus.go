// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tinybus adapts a TinyGo machine I²C bus to the i2cbus
// capability, so the same sensor drivers run on microcontroller
// builds.
//
// Anything satisfying tinygo.org/x/drivers.I2C can be wrapped, which
// notably includes machine.I2C. Pin muxing and clock setup belong to
// the machine layer on those targets, so Configure is a no-op here;
// call machine.I2C.Configure before wrapping the bus.
package tinybus

import (
	"fmt"

	"tinygo.org/x/drivers"

	"github.com/opensusp/travelmetry/i2cbus"
)

// Bus wraps a TinyGo I²C bus.
type Bus struct {
	i2c         drivers.I2C
	pending     []byte
	pendingAddr uint16
}

// New wraps an already configured TinyGo bus.
func New(i2c drivers.I2C) *Bus {
	return &Bus{i2c: i2c}
}

// Configure is a no-op; the machine layer owns pin and clock setup.
func (b *Bus) Configure(cfg i2cbus.Config) error {
	return nil
}

// Write sends p to addr. With keepBus set the payload is held back and
// merged with the next Read to the same address into a single
// transaction, which TinyGo issues with a repeated start.
func (b *Bus) Write(addr uint16, p []byte, keepBus bool) (int, error) {
	if err := b.flush(); err != nil {
		return 0, err
	}
	if keepBus {
		b.pending = append(b.pending[:0], p...)
		b.pendingAddr = addr
		return len(p), nil
	}
	if err := b.i2c.Tx(addr, p, nil); err != nil {
		return 0, fmt.Errorf("tinybus: write: %w", err)
	}
	return len(p), nil
}

// Read fills p from addr. A keep-bus write held for the same address
// is sent first in the same transaction.
func (b *Bus) Read(addr uint16, p []byte) (int, error) {
	var w []byte
	if b.pending != nil {
		if b.pendingAddr != addr {
			if err := b.flush(); err != nil {
				return 0, err
			}
		} else {
			w = b.pending
			b.pending = nil
		}
	}
	if err := b.i2c.Tx(addr, w, p); err != nil {
		return 0, fmt.Errorf("tinybus: read: %w", err)
	}
	return len(p), nil
}

func (b *Bus) flush() error {
	if b.pending == nil {
		return nil
	}
	w := b.pending
	b.pending = nil
	if err := b.i2c.Tx(b.pendingAddr, w, nil); err != nil {
		return fmt.Errorf("tinybus: flush held write: %w", err)
	}
	return nil
}

var _ i2cbus.Bus = &Bus{}
