// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package travelbar

import (
	"bytes"
	"strings"
	"testing"

	"github.com/opensusp/travelmetry/sensor"
)

func TestCells(t *testing.T) {
	b := New(&Opts{Width: 32, Max: 26400, Writer: &bytes.Buffer{}})
	tests := []struct {
		travel uint16
		want   int
	}{
		{0, 0},
		{26400, 32},
		{13200, 16},
		{30000, 32},
		{825, 1},
		{824, 0},
	}
	for _, tt := range tests {
		if got := b.cells(tt.travel); got != tt.want {
			t.Errorf("cells(%d) = %d, want %d", tt.travel, got, tt.want)
		}
	}
}

func TestUpdate(t *testing.T) {
	var buf bytes.Buffer
	b := New(&Opts{Width: 8, Max: 100, Writer: &buf})
	if err := b.Update(50); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "\r\033[0m") {
		t.Errorf("missing carriage return and reset prefix: %q", out)
	}
	if !strings.HasSuffix(out, "\033[0m    50 ") {
		t.Errorf("missing travel count suffix: %q", out)
	}

	buf.Reset()
	if err := b.Update(100); err != nil {
		t.Fatal(err)
	}
	full := buf.String()
	if full == out {
		t.Error("different fill levels must draw differently")
	}
}

func TestUpdateNoReading(t *testing.T) {
	var buf bytes.Buffer
	b := New(&Opts{Width: 8, Max: 100, Writer: &buf})
	if err := b.Update(sensor.NoReading); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "no reading") {
		t.Errorf("sentinel must be labelled: %q", buf.String())
	}
}

func TestDefaults(t *testing.T) {
	b := New(&Opts{Writer: &bytes.Buffer{}})
	if b.width != 32 {
		t.Errorf("default width = %d", b.width)
	}
	if b.max != 0x7fff {
		t.Errorf("default max = %#04x", b.max)
	}
}

func TestClose(t *testing.T) {
	var buf bytes.Buffer
	b := New(&Opts{Width: 4, Writer: &buf})
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "\n\033[0m" {
		t.Errorf("close wrote %q", buf.String())
	}
}

func TestString(t *testing.T) {
	b := New(&Opts{Width: 16, Writer: &bytes.Buffer{}})
	if b.String() != "TravelBar{16}" {
		t.Errorf("String() = %q", b.String())
	}
}
