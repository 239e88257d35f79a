// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sensor defines the capability shared by every suspension
// position sensor and the registry the polling layer dispatches
// through.
package sensor

import "fmt"

// NoReading is returned by Measure when no sample could be obtained:
// the role has no converter wired, the device is unavailable on the
// bus, or the transaction failed. It doubles as the baseline sentinel
// for an uncalibrated sensor.
const NoReading uint16 = 0xffff

// Role identifies which suspension element a sensor watches.
type Role string

const (
	Fork  Role = "fork"
	Shock Role = "shock"
)

// ParseRole validates a configured role name.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case Fork, Shock:
		return Role(s), nil
	}
	return "", fmt.Errorf("sensor: unknown role %q", s)
}

// Sensor is the contract every linear position sensor implements.
//
// Implementations degrade instead of failing: operations on a sensor
// whose role has no converter wired, or whose device stopped
// answering, return false or NoReading and never block the caller.
type Sensor interface {
	// Init brings up the bus and configures the converter. It never
	// reports device level failure; an unreachable device surfaces
	// later through CheckAvailability.
	Init()
	// CheckAvailability probes the device and records the outcome for
	// the measuring path. It is the only operation that changes the
	// recorded availability.
	CheckAvailability() bool
	// Start adopts the baseline for travel computation. It reports
	// false, leaving the baseline untouched, when the device is
	// unavailable.
	Start(baseline uint16, inverted bool) bool
	// Measure returns the current travel in converter counts, or
	// NoReading.
	Measure() uint16
	// CalibrateExpanded samples the device at full extension and makes
	// that the baseline.
	CalibrateExpanded()
	// CalibrateCompressed records the fully compressed position.
	CalibrateCompressed()
}

// Registry maps each enabled role to its sensor.
//
// It is built once at startup from configuration and never mutated
// afterwards, so the polling owner reads it without locking.
type Registry struct {
	byRole map[Role]Sensor
	roles  []Role
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byRole: make(map[Role]Sensor)}
}

// Add registers the sensor for role, replacing any previous entry.
func (r *Registry) Add(role Role, s Sensor) {
	if _, ok := r.byRole[role]; !ok {
		r.roles = append(r.roles, role)
	}
	r.byRole[role] = s
}

// Lookup returns the sensor for role, or nil when the role is not
// enabled in this configuration.
func (r *Registry) Lookup(role Role) Sensor {
	return r.byRole[role]
}

// Roles returns the enabled roles in registration order.
func (r *Registry) Roles() []Role {
	out := make([]Role, len(r.roles))
	copy(out, r.roles)
	return out
}
