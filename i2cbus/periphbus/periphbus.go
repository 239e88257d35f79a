// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package periphbus adapts a periph.io host I²C bus to the i2cbus
// capability used by the travelmetry drivers.
//
// periph expresses a combined write-then-read as a single Tx call, so
// a keep-bus write is not sent immediately: it is held and merged with
// the following Read into one transaction with a repeated start. That
// matches the register pointer plus read framing the drivers use, at
// the cost that a NACK of the held write only surfaces once the read
// runs. Transactions are all or nothing; a failed transfer reports
// zero bytes moved.
package periphbus

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/opensusp/travelmetry/i2cbus"
)

// Bus wraps a periph i2c.Bus.
type Bus struct {
	bus         i2c.Bus
	pending     []byte
	pendingAddr uint16
	configured  bool
}

// Open initializes the periph host drivers and opens the named bus
// from the host registry. An empty name selects the first available
// bus.
func Open(name string) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periphbus: host init: %w", err)
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("periphbus: open %q: %w", name, err)
	}
	return &Bus{bus: b}, nil
}

// New wraps an already opened periph bus.
func New(b i2c.Bus) *Bus {
	return &Bus{bus: b}
}

// Configure applies the clock rate and pulls up any named signalling
// pins. It runs once; later calls are no-ops so every sensor sharing
// the bus can call it during its own bring-up.
//
// Pin setup only happens when pin names are configured. On most hosts
// the I²C pin mux is fixed and the names should stay empty.
func (b *Bus) Configure(cfg i2cbus.Config) error {
	if b.configured {
		return nil
	}
	if cfg.Frequency != 0 {
		if err := b.bus.SetSpeed(cfg.Frequency); err != nil {
			return fmt.Errorf("periphbus: set speed: %w", err)
		}
	}
	for _, name := range []string{cfg.SDAPin, cfg.SCLPin} {
		if name == "" {
			continue
		}
		p := gpioreg.ByName(name)
		if p == nil {
			return fmt.Errorf("periphbus: no pin %q", name)
		}
		if err := p.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return fmt.Errorf("periphbus: pull up %s: %w", name, err)
		}
	}
	b.configured = true
	return nil
}

// Write sends p to addr. With keepBus set the payload is held back and
// merged with the next Read to the same address into a single
// transaction.
func (b *Bus) Write(addr uint16, p []byte, keepBus bool) (int, error) {
	if err := b.flush(); err != nil {
		return 0, err
	}
	if keepBus {
		b.pending = append(b.pending[:0], p...)
		b.pendingAddr = addr
		return len(p), nil
	}
	if err := b.bus.Tx(addr, p, nil); err != nil {
		return 0, fmt.Errorf("periphbus: write: %w", err)
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
	if err := b.bus.Tx(addr, w, p); err != nil {
		return 0, fmt.Errorf("periphbus: read: %w", err)
	}
	return len(p), nil
}

// flush sends a held keep-bus write that cannot be merged with the
// next operation. The repeated start is lost, but ordering is
// preserved.
func (b *Bus) flush() error {
	if b.pending == nil {
		return nil
	}
	w := b.pending
	b.pending = nil
	if err := b.bus.Tx(b.pendingAddr, w, nil); err != nil {
		return fmt.Errorf("periphbus: flush held write: %w", err)
	}
	return nil
}

// Close releases the underlying bus when it owns its handle.
func (b *Bus) Close() error {
	if c, ok := b.bus.(i2c.BusCloser); ok {
		return c.Close()
	}
	return nil
}

func (b *Bus) String() string {
	return fmt.Sprintf("periphbus{%s}", b.bus)
}

var _ i2cbus.BusCloser = &Bus{}
