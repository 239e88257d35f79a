// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package bustest is meant to be used to test drivers over a fake I²C
// bus.
package bustest

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/opensusp/travelmetry/i2cbus"
)

// IO registers one expected bus operation.
//
// Exactly one of W or R is set per operation: W scripts the payload an
// upcoming Write must send, R scripts the payload handed to an
// upcoming Read. Err and Short inject transport faults.
type IO struct {
	Addr    uint16
	W       []byte
	R       []byte
	KeepBus bool  // expected framing flag on a write
	Err     error // returned instead of a byte count
	Short   bool  // report ShortN bytes moved instead of the full count
	ShortN  int
}

// Playback implements i2cbus.Bus and plays back a recorded I/O flow.
//
// The operations are consumed in order; a call that deviates from the
// script panics unless DontPanic is set, in which case it returns an
// error. A Read sees exactly the scripted R payload, so scripting R
// shorter than the destination buffer produces a short read.
type Playback struct {
	Ops       []IO
	DontPanic bool

	mu      sync.Mutex
	next    int
	writes  int
	reads   int
	configs int
	lastCfg i2cbus.Config
}

// Configure records cfg and counts the call.
func (p *Playback) Configure(cfg i2cbus.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.configs++
	p.lastCfg = cfg
	return nil
}

// Write consumes the next scripted operation, which must be a write of
// exactly this payload.
func (p *Playback) Write(addr uint16, b []byte, keepBus bool) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes++
	if p.next >= len(p.Ops) {
		return 0, p.fail("unexpected Write(%#x, %#v, %t)", addr, b, keepBus)
	}
	op := p.Ops[p.next]
	p.next++
	if op.W == nil {
		return 0, p.fail("Write(%#x, %#v, %t) but a read was scripted", addr, b, keepBus)
	}
	if addr != op.Addr || !bytes.Equal(b, op.W) || keepBus != op.KeepBus {
		return 0, p.fail("unexpected Write(%#x, %#v, %t); expected Write(%#x, %#v, %t)", addr, b, keepBus, op.Addr, op.W, op.KeepBus)
	}
	if op.Err != nil {
		return 0, op.Err
	}
	if op.Short {
		return op.ShortN, nil
	}
	return len(b), nil
}

// Read consumes the next scripted operation, which must be a read, and
// copies its payload into b.
func (p *Playback) Read(addr uint16, b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reads++
	if p.next >= len(p.Ops) {
		return 0, p.fail("unexpected Read(%#x, [%d]byte)", addr, len(b))
	}
	op := p.Ops[p.next]
	p.next++
	if op.R == nil {
		return 0, p.fail("Read(%#x, [%d]byte) but a write was scripted", addr, len(b))
	}
	if addr != op.Addr {
		return 0, p.fail("unexpected Read(%#x, [%d]byte); expected address %#x", addr, len(b), op.Addr)
	}
	if op.Err != nil {
		return 0, op.Err
	}
	if op.Short {
		return op.ShortN, nil
	}
	return copy(b, op.R), nil
}

// Close verifies that all the scripted operations were consumed.
func (p *Playback) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.next != len(p.Ops) {
		return fmt.Errorf("bustest: expected %d operations, got %d", len(p.Ops), p.next)
	}
	return nil
}

// Writes returns how many Write calls the bus has seen, scripted or
// not.
func (p *Playback) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes
}

// Reads returns how many Read calls the bus has seen, scripted or not.
func (p *Playback) Reads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads
}

// Transactions returns the total number of Write and Read calls.
func (p *Playback) Transactions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writes + p.reads
}

// Configures returns how many Configure calls the bus has seen.
func (p *Playback) Configures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.configs
}

// LastConfig returns the configuration most recently applied.
func (p *Playback) LastConfig() i2cbus.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastCfg
}

func (p *Playback) fail(format string, v ...interface{}) error {
	if !p.DontPanic {
		panic(fmt.Sprintf("bustest: "+format, v...))
	}
	return fmt.Errorf("bustest: "+format, v...)
}

var _ i2cbus.BusCloser = &Playback{}
