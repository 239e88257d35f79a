// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package travelbar renders live suspension travel as a single-line bar on
// the terminal using ANSI color codes.
//
// Useful while calibrating a sensor: the bar redraws in place on every
// update, filling left to right from green at full extension to red at
// bottom-out.
package travelbar

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"

	"github.com/opensusp/travelmetry/sensor"
)

// Opts represents the options available for the bar.
type Opts struct {
	// Width is the number of cells drawn. Defaults to 32.
	Width int
	// Max is the travel in converter counts that fills the bar. Defaults
	// to the largest positive reading.
	Max uint16
	// Palette picks the ANSI approximation. Defaults to ansi256.Default.
	Palette *ansi256.Palette
	// Writer receives the escape stream. Defaults to a colorable stdout.
	Writer io.Writer

	_ struct{}
}

// Bar draws travel readings in place on a terminal line.
type Bar struct {
	w       io.Writer
	width   int
	max     uint16
	palette ansi256.Palette

	buf bytes.Buffer
}

var (
	dim  = color.NRGBA{24, 24, 24, 255}
	grey = color.NRGBA{96, 96, 96, 255}
)

// New returns a Bar drawing to the console.
func New(opts *Opts) *Bar {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.Writer
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	width := opts.Width
	if width <= 0 {
		width = 32
	}
	max := opts.Max
	if max == 0 {
		max = 0x7fff
	}
	return &Bar{
		w:       w,
		width:   width,
		max:     max,
		palette: *p,
	}
}

func (b *Bar) String() string {
	return fmt.Sprintf("TravelBar{%d}", b.width)
}

// Update redraws the bar for the given travel reading. The no-reading
// sentinel draws a grey bar instead of a fill level.
func (b *Bar) Update(travel uint16) error {
	// This code is designed to minimize the amount of memory allocated
	// per call.
	b.buf.Reset()
	_, _ = b.buf.WriteString("\r\033[0m")
	if travel == sensor.NoReading {
		for i := 0; i < b.width; i++ {
			_, _ = io.WriteString(&b.buf, b.palette.Block(grey))
		}
		_, _ = b.buf.WriteString("\033[0m no reading ")
	} else {
		filled := b.cells(travel)
		for i := 0; i < b.width; i++ {
			c := dim
			if i < filled {
				c = cellColor(i, b.width)
			}
			_, _ = io.WriteString(&b.buf, b.palette.Block(c))
		}
		fmt.Fprintf(&b.buf, "\033[0m %5d ", travel)
	}
	_, err := b.buf.WriteTo(b.w)
	return err
}

// Close clears the line so the terminal is not left corrupted.
func (b *Bar) Close() error {
	_, err := b.w.Write([]byte("\n\033[0m"))
	return err
}

// cells maps a travel reading to the number of filled cells, saturating
// at full width.
func (b *Bar) cells(travel uint16) int {
	if travel >= b.max {
		return b.width
	}
	return int(uint32(travel) * uint32(b.width) / uint32(b.max))
}

// cellColor fades from green on the extension side to red at bottom-out.
func cellColor(i, width int) color.NRGBA {
	if width <= 1 {
		return color.NRGBA{0, 255, 0, 255}
	}
	f := float64(i) / float64(width-1)
	return color.NRGBA{uint8(255 * f), uint8(255 * (1 - f)), 0, 255}
}

var _ fmt.Stringer = &Bar{}
