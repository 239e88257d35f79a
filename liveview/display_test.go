// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package liveview

import (
	"image"
	"testing"

	"github.com/opensusp/travelmetry/sensor"
	"github.com/opensusp/travelmetry/session"
)

func TestNewClose(t *testing.T) {
	l := New(&Options{Width: 100, Height: 100})

	if err := l.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
}

func TestBounds(t *testing.T) {
	l := New(&Options{Width: 320, Height: 200})
	if got, want := l.Bounds(), image.Rect(0, 0, 320, 200); got != want {
		t.Errorf("Bounds() = %v, want %v", got, want)
	}
}

func batch(fork, shock uint16) []session.Sample {
	return []session.Sample{
		{Role: sensor.Fork, Travel: fork},
		{Role: sensor.Shock, Travel: shock},
	}
}

func TestPushCapsHistoryAtWidth(t *testing.T) {
	l := New(&Options{Width: 8, Height: 32})

	for i := 0; i < 12; i++ {
		l.Push(batch(uint16(i), 0))
	}

	serie := l.series[sensor.Fork]
	if len(serie) != 8 {
		t.Fatalf("history length = %d, want 8", len(serie))
	}
	// The oldest four samples scrolled off.
	if serie[0] != 4 || serie[7] != 11 {
		t.Errorf("history = %v", serie)
	}
}

func TestPushPaintsLanes(t *testing.T) {
	full := map[sensor.Role]uint16{
		sensor.Fork:  26400,
		sensor.Shock: 26400,
	}
	l := New(&Options{Width: 64, Height: 64, FullScale: full})

	l.Push(batch(26400, 0))

	// A full-scale fork reading fills the rightmost column of the top lane.
	if got, want := l.buffer.At(63, 63/2), roleColor(sensor.Fork); got != want {
		t.Errorf("fork column bottom = %v, want %v", got, want)
	}
	if got, want := l.buffer.At(63, 1), roleColor(sensor.Fork); got != want {
		t.Errorf("fork column top = %v, want %v", got, want)
	}
	// A zero shock reading draws only the one pixel floor of its lane.
	if got, want := l.buffer.At(63, 63), roleColor(sensor.Shock); got != want {
		t.Errorf("shock floor = %v, want %v", got, want)
	}
	if got := l.buffer.At(63, 40); got == roleColor(sensor.Shock) {
		t.Error("zero reading must not fill the shock lane")
	}
}

func TestPushMarksMisses(t *testing.T) {
	l := New(&Options{Width: 16, Height: 32})

	l.Push([]session.Sample{{Role: sensor.Fork, Travel: sensor.NoReading}})

	if got, want := l.buffer.At(15, 1), missMark.C; got != want {
		t.Errorf("miss mark = %v, want %v", got, want)
	}
	if got := l.buffer.At(15, 31); got == roleColor(sensor.Fork) {
		t.Error("a miss must not draw a travel column")
	}
}

func TestPushInvalidatesSnapshots(t *testing.T) {
	l := New(&Options{Width: 16, Height: 16})

	if _, err := l.grabSnapshot(imageConfig{format: PNG}); err != nil {
		t.Fatalf("grabSnapshot() failed: %v", err)
	}
	if len(l.snapshot) != 1 {
		t.Fatalf("snapshot cache size = %d, want 1", len(l.snapshot))
	}

	l.Push(batch(100, 200))

	if len(l.snapshot) != 0 {
		t.Errorf("snapshot cache size after push = %d, want 0", len(l.snapshot))
	}
}
