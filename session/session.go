// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package session turns raw travel samples into recorded sessions and
// summary statistics.
//
// The sensor core reports travel in raw converter counts and performs
// no unit conversion. The per-role Calibration applied here is where
// counts become millimetres for everything storage side.
package session

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/opensusp/travelmetry/sensor"
)

// TravelHistBins is the number of travel histogram bins in a summary.
const TravelHistBins = 40

// Sample is one travel reading from one role.
type Sample struct {
	Role   sensor.Role `json:"role"`
	Travel uint16      `json:"travel"` // raw converter counts
	At     time.Time   `json:"at"`
}

// NoReading reports whether the sample carries no usable reading.
func (s Sample) NoReading() bool {
	return s.Travel == sensor.NoReading
}

// Session describes one recording run.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	StartedAt time.Time `json:"started_at"`
	// EndedAt is zero while the session is still recording.
	EndedAt time.Time `json:"ended_at"`
	// SampleRate is the poll rate in samples per second per role.
	SampleRate int `json:"sample_rate"`
}

// New returns a named session started at the given time.
func New(name string, sampleRate int, at time.Time) Session {
	return Session{ID: uuid.New(), Name: name, StartedAt: at, SampleRate: sampleRate}
}

// Calibration converts raw counts into millimetres for one role.
type Calibration struct {
	// CountsPerMM is the converter resolution of the element. A 200mm
	// fork read at ±4.096V full scale on a 3.3V reference comes out to
	// 26400/200 = 132 counts per millimetre.
	CountsPerMM float64 `json:"counts_per_mm"`
	// MaxTravelMM is the element's maximum mechanical travel.
	MaxTravelMM float64 `json:"max_travel_mm"`
}

// TravelMM converts counts to millimetres, clamped to the element's
// mechanical range. A zero calibration converts everything to zero.
func (c Calibration) TravelMM(counts uint16) float64 {
	if c.CountsPerMM <= 0 {
		return 0
	}
	mm := float64(counts) / c.CountsPerMM
	if c.MaxTravelMM > 0 && mm > c.MaxTravelMM {
		mm = c.MaxTravelMM
	}
	return mm
}

// Summary holds the statistics of one role's stream within a session.
// All travel figures are in millimetres.
type Summary struct {
	Role sensor.Role `json:"role"`
	// Count is the number of samples that carried a reading, Misses
	// the number that did not.
	Count     int     `json:"count"`
	Misses    int     `json:"misses"`
	MaxTravel float64 `json:"max_travel"`
	P95Travel float64 `json:"p95_travel"`
	AvgTravel float64 `json:"avg_travel"`
	// Bins holds TravelHistBins+1 edges over the mechanical range and
	// Histogram the per-bin share of samples in percent. Both are nil
	// without a calibrated range.
	Bins      []float64 `json:"bins,omitempty"`
	Histogram []float64 `json:"histogram,omitempty"`
}

// Summarize reduces one role's samples under cal. Samples of other
// roles are ignored.
func Summarize(role sensor.Role, samples []Sample, cal Calibration) Summary {
	sum := Summary{Role: role}
	var travel []float64
	for _, s := range samples {
		if s.Role != role {
			continue
		}
		if s.NoReading() {
			sum.Misses++
			continue
		}
		travel = append(travel, cal.TravelMM(s.Travel))
	}
	sum.Count = len(travel)
	if sum.Count == 0 {
		return sum
	}
	sum.MaxTravel = floats.Max(travel)
	sum.P95Travel = percentile(travel, 95)
	sum.AvgTravel = floats.Sum(travel) / float64(len(travel))
	if cal.MaxTravelMM > 0 {
		sum.Bins = linspace(0, cal.MaxTravelMM, TravelHistBins+1)
		hist := make([]float64, TravelHistBins)
		for _, idx := range digitize(travel, sum.Bins) {
			hist[idx]++
		}
		for i := range hist {
			hist[i] = hist[i] / float64(len(travel)) * 100.0
		}
		sum.Histogram = hist
	}
	return sum
}

// SummarizeAll reduces a mixed stream, one summary per role in order
// of first appearance. Roles without a calibration are summarized with
// the zero conversion.
func SummarizeAll(samples []Sample, cals map[sensor.Role]Calibration) []Summary {
	var order []sensor.Role
	seen := map[sensor.Role]bool{}
	for _, s := range samples {
		if !seen[s.Role] {
			seen[s.Role] = true
			order = append(order, s.Role)
		}
	}
	out := make([]Summary, 0, len(order))
	for _, role := range order {
		out = append(out, Summarize(role, samples, cals[role]))
	}
	return out
}

// percentile returns the nearest-rank p-th percentile of values, with
// p in percent.
func percentile(values []float64, p float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	rank := int(math.Ceil(p / 100.0 * float64(n)))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}

// linspace returns num evenly spaced values over [min, max].
func linspace(min, max float64, num int) []float64 {
	step := (max - min) / float64(num-1)
	out := make([]float64, num)
	for i := range out {
		out[i] = min + step*float64(i)
	}
	return out
}

// digitize maps each value to the index of its bin given the edges.
// A value sitting exactly on an interior edge belongs to the bin to
// its right; values outside the range land in the first or last bin.
func digitize(data, bins []float64) []int {
	out := make([]int, len(data))
	for k, v := range data {
		i := sort.SearchFloat64s(bins, v)
		if i == len(bins) || (i > 0 && v < bins[i]) {
			i--
		}
		if i < 0 {
			i = 0
		}
		if i > len(bins)-2 {
			i = len(bins) - 2
		}
		out[k] = i
	}
	return out
}
