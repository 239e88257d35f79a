// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package poll drives a fixed-rate sampling loop over a set of registered
// suspension sensors, fanning each batch of readings out to the configured
// outputs and an optional in-process handler.
package poll

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/opensusp/travelmetry/monitoring"
	"github.com/opensusp/travelmetry/output"
	"github.com/opensusp/travelmetry/sensor"
	"github.com/opensusp/travelmetry/session"
)

// Handler receives every batch of samples taken by a Loop. One batch holds
// exactly one sample per registered role, in registration order. The handler
// runs on the loop goroutine, so a slow handler delays the next tick.
type Handler func(batch []session.Sample)

// Opts holds optional parts of a Loop.
type Opts struct {
	// Clock is the time source for the loop. Defaults to the wall clock.
	Clock clock.Clock
	// Outputs receive every batch. A failing output is logged and skipped
	// for that batch; it stays in rotation for the next one.
	Outputs []output.Output
	// Handler, if set, receives every batch after the outputs.
	Handler Handler
}

// Loop samples every sensor in a registry at a fixed interval.
type Loop struct {
	reg      *sensor.Registry
	interval time.Duration
	clk      clock.Clock
	outputs  []output.Output
	handler  Handler
}

// New returns a Loop sampling reg every interval.
func New(reg *sensor.Registry, interval time.Duration, opts Opts) (*Loop, error) {
	if reg == nil {
		return nil, errors.New("nil sensor registry")
	}
	if interval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Loop{
		reg:      reg,
		interval: interval,
		clk:      clk,
		outputs:  opts.Outputs,
		handler:  opts.Handler,
	}, nil
}

// Run blocks, taking one batch of samples per tick until ctx is cancelled.
// It returns the context's error on shutdown.
func (l *Loop) Run(ctx context.Context) error {
	t := l.clk.Ticker(l.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			l.tick()
		}
	}
}

// Sample reads every registered sensor once, returning one sample per role
// in registration order. Sensors that are unavailable or fail to read
// contribute the no-reading sentinel rather than being dropped, so a batch
// always has a stable shape.
func (l *Loop) Sample() []session.Sample {
	roles := l.reg.Roles()
	batch := make([]session.Sample, 0, len(roles))
	at := l.clk.Now()
	for _, role := range roles {
		s := l.reg.Lookup(role)
		batch = append(batch, session.Sample{
			Role:   role,
			Travel: s.Measure(),
			At:     at,
		})
	}
	return batch
}

func (l *Loop) tick() {
	batch := l.Sample()
	for _, out := range l.outputs {
		if err := out.Publish(batch); err != nil {
			monitoring.Logf("output publish failed: %v", err)
		}
	}
	if l.handler != nil {
		l.handler(batch)
	}
}
