// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package liveview serves a live strip chart of suspension travel over HTTP.
// Client requests get an initial snapshot of the chart and are updated
// further on every sample batch.
//
// The primary use case is pointing a phone or a pit laptop at the logger
// while a bike is on the stand or between runs, without installing anything
// on the client.
//
// The protocol used is "MJPEG" (https://en.wikipedia.org/wiki/Motion_JPEG)
// which is often used by IP cameras. Because of its better suitability for
// computer-drawn graphics the PNG image format is used by default. JPEG as
// a format can be selected via Options.Format or using the "format" URL
// parameter.
package liveview

import (
	"image"
	"image/color"
	"image/draw"
	"net/http"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/opensusp/travelmetry/sensor"
	"github.com/opensusp/travelmetry/session"
)

// Options for the live view.
type Options struct {
	// Width and height of the chart buffer. Width is also the number of
	// samples of history kept per role.
	Width, Height int

	// Format specifies the image format to send to clients.
	Format ImageFormat

	// FullScale maps each role to the travel in converter counts that
	// reaches the top of its lane. Roles without an entry use the largest
	// positive reading.
	FullScale map[sensor.Role]uint16
}

// Live renders incoming sample batches into a scrolling chart and streams
// it to HTTP clients.
type Live struct {
	defaultFormat ImageFormat
	fullScale     map[sensor.Role]uint16

	mu       sync.Mutex
	buffer   *image.RGBA
	series   map[sensor.Role][]uint16
	order    []sensor.Role
	clients  map[*client]struct{}
	snapshot map[imageConfig][]byte
}

var _ http.Handler = (*Live)(nil)

var (
	laneDivider = image.NewUniform(color.RGBA{64, 64, 64, 255})
	missMark    = image.NewUniform(color.RGBA{128, 128, 128, 255})
)

// New creates a new live view instance.
func New(opt *Options) *Live {
	buffer := image.NewRGBA(image.Rect(0, 0, opt.Width, opt.Height))

	// By default the alpha channel is set to full transparency. The following
	// draw operation makes it opaque.
	draw.Draw(buffer, buffer.Bounds(), image.Black, image.Point{}, draw.Src)

	return &Live{
		buffer:        buffer,
		fullScale:     opt.FullScale,
		series:        map[sensor.Role][]uint16{},
		clients:       map[*client]struct{}{},
		snapshot:      map[imageConfig][]byte{},
		defaultFormat: opt.Format,
	}
}

// String returns the name of the view.
func (l *Live) String() string {
	return "LiveView"
}

// Close terminates all running client requests asynchronously.
func (l *Live) Close() error {
	l.mu.Lock()
	l.terminateClientsLocked()
	l.mu.Unlock()

	return nil
}

// Bounds reports the chart dimensions.
func (l *Live) Bounds() image.Rectangle {
	return l.buffer.Bounds()
}

// Push appends one batch of samples to the chart and notifies streaming
// clients. Each role scrolls in its own lane, newest sample on the right.
func (l *Live) Push(batch []session.Sample) {
	l.mu.Lock()
	for _, s := range batch {
		if _, ok := l.series[s.Role]; !ok {
			l.order = append(l.order, s.Role)
		}
		serie := append(l.series[s.Role], s.Travel)
		if max := l.buffer.Bounds().Dx(); len(serie) > max {
			serie = serie[len(serie)-max:]
		}
		l.series[s.Role] = serie
	}
	l.paintLocked()
	l.bufferChangedLocked()
	l.mu.Unlock()
}

func (l *Live) paintLocked() {
	b := l.buffer.Bounds()
	draw.Draw(l.buffer, b, image.Black, image.Point{}, draw.Src)
	if len(l.order) == 0 {
		return
	}
	laneH := b.Dy() / len(l.order)
	for i, role := range l.order {
		lane := image.Rect(b.Min.X, b.Min.Y+i*laneH, b.Max.X, b.Min.Y+(i+1)*laneH)
		l.paintLaneLocked(lane, role)
	}
}

func (l *Live) paintLaneLocked(lane image.Rectangle, role sensor.Role) {
	full := l.fullScale[role]
	if full == 0 {
		full = 0x7fff
	}
	src := image.NewUniform(roleColor(role))

	serie := l.series[role]
	x0 := lane.Max.X - len(serie)
	for i, travel := range serie {
		x := x0 + i
		if travel == sensor.NoReading {
			// Dropped samples show as a mark along the top of the lane.
			draw.Draw(l.buffer, image.Rect(x, lane.Min.Y+1, x+1, lane.Min.Y+3), missMark, image.Point{}, draw.Src)
			continue
		}
		if travel > full {
			travel = full
		}
		h := int(uint32(travel) * uint32(lane.Dy()-1) / uint32(full))
		draw.Draw(l.buffer, image.Rect(x, lane.Max.Y-1-h, x+1, lane.Max.Y), src, image.Point{}, draw.Src)
	}

	draw.Draw(l.buffer, image.Rect(lane.Min.X, lane.Min.Y, lane.Max.X, lane.Min.Y+1), laneDivider, image.Point{}, draw.Src)
	(&font.Drawer{
		Dst:  l.buffer,
		Src:  src,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(lane.Min.X+4, lane.Min.Y+basicfont.Face7x13.Ascent+2),
	}).DrawString(string(role))
}

func roleColor(role sensor.Role) color.RGBA {
	switch role {
	case sensor.Fork:
		return color.RGBA{0x2c, 0xa0, 0x2c, 0xff}
	case sensor.Shock:
		return color.RGBA{0x1f, 0x77, 0xb4, 0xff}
	}
	return color.RGBA{0xff, 0xff, 0xff, 0xff}
}
