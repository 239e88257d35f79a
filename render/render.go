// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package render produces session report artifacts: travel trace and
// histogram images plus an interactive HTML chart.
package render

import (
	"fmt"
	"image"
	"math"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/opensusp/travelmetry/sensor"
	"github.com/opensusp/travelmetry/session"
)

const (
	traceWidth  = 1200
	traceHeight = 400
	histWidth   = 600
	histHeight  = 400
)

// regular is parsed once; faces are created per render because a face is
// not safe for concurrent use.
var regular *truetype.Font

func init() {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
	regular = f
}

func face(size float64) font.Face {
	return truetype.NewFace(regular, &truetype.Options{Size: size})
}

// Series is one role's travel over a session, ready to plot.
type Series struct {
	Role sensor.Role
	// Unit is "mm" for calibrated roles and "counts" otherwise.
	Unit string
	// Times holds seconds since session start, one entry per sample.
	Times []float64
	// Travel holds the calibrated reading per sample. Dropped samples are
	// NaN and plot as gaps.
	Travel []float64
	// Max is the full travel range, 0 when unknown.
	Max float64
}

// NewSeries converts one role's raw samples to a plottable series. Roles
// without a calibration fall back to raw converter counts.
func NewSeries(start time.Time, role sensor.Role, samples []session.Sample, cal session.Calibration) Series {
	s := Series{Role: role, Unit: "counts"}
	if cal.CountsPerMM > 0 {
		s.Unit = "mm"
		s.Max = cal.MaxTravelMM
	}
	for _, sm := range samples {
		s.Times = append(s.Times, sm.At.Sub(start).Seconds())
		switch {
		case sm.NoReading():
			s.Travel = append(s.Travel, math.NaN())
		case cal.CountsPerMM > 0:
			s.Travel = append(s.Travel, cal.TravelMM(sm.Travel))
		default:
			s.Travel = append(s.Travel, float64(sm.Travel))
		}
	}
	return s
}

func roleRGB(role sensor.Role) (float64, float64, float64) {
	switch role {
	case sensor.Fork:
		return 0.17, 0.63, 0.17
	case sensor.Shock:
		return 0.12, 0.47, 0.71
	}
	return 0.3, 0.3, 0.3
}

// Trace draws every series as a polyline over time on a shared canvas.
func Trace(title string, series []Series) image.Image {
	dc := gg.NewContext(traceWidth, traceHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	const left, right, top, bottom = 60.0, 20.0, 40.0, 40.0
	plotW := float64(traceWidth) - left - right
	plotH := float64(traceHeight) - top - bottom

	tMax, yMax, unit := 0.0, 0.0, ""
	for _, s := range series {
		if s.Max > yMax {
			yMax = s.Max
		}
		if unit == "" {
			unit = s.Unit
		}
		for i := range s.Times {
			if s.Times[i] > tMax {
				tMax = s.Times[i]
			}
			if !math.IsNaN(s.Travel[i]) && s.Travel[i] > yMax {
				yMax = s.Travel[i]
			}
		}
	}
	if tMax <= 0 {
		tMax = 1
	}
	if yMax <= 0 {
		yMax = 1
	}

	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawLine(left, top, left, top+plotH)
	dc.DrawLine(left, top+plotH, left+plotW, top+plotH)
	dc.Stroke()

	dc.SetFontFace(face(16))
	dc.DrawStringAnchored(title, float64(traceWidth)/2, top/2, 0.5, 0.5)
	dc.SetFontFace(face(12))
	dc.DrawStringAnchored("0", left-8, top+plotH, 1, 0.5)
	dc.DrawStringAnchored(axisLabel(yMax), left-8, top, 1, 0.5)
	dc.DrawStringAnchored(unit, left-8, top+plotH/2, 1, 0.5)
	dc.DrawStringAnchored("s", left+plotW/2, top+plotH+bottom/2, 0.5, 0.5)
	dc.DrawStringAnchored(axisLabel(tMax), left+plotW, top+plotH+bottom/2, 0.5, 0.5)

	for i, s := range series {
		r, g, b := roleRGB(s.Role)
		dc.SetRGB(r, g, b)
		dc.SetLineWidth(1.5)
		pen := false
		for j := range s.Times {
			if math.IsNaN(s.Travel[j]) {
				if pen {
					dc.Stroke()
					pen = false
				}
				continue
			}
			x := left + s.Times[j]/tMax*plotW
			y := top + plotH - s.Travel[j]/yMax*plotH
			if !pen {
				dc.MoveTo(x, y)
				pen = true
			} else {
				dc.LineTo(x, y)
			}
		}
		if pen {
			dc.Stroke()
		}
		dc.DrawStringAnchored(string(s.Role), left+plotW-8, top+16*float64(i+1), 1, 0.5)
	}

	return dc.Image()
}

// Histogram draws the travel distribution of one summarized role as a bar
// chart, x in millimetres and y in percent of samples.
func Histogram(title string, sum session.Summary) image.Image {
	dc := gg.NewContext(histWidth, histHeight)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	const left, right, top, bottom = 50.0, 20.0, 40.0, 40.0
	plotW := float64(histWidth) - left - right
	plotH := float64(histHeight) - top - bottom

	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawLine(left, top, left, top+plotH)
	dc.DrawLine(left, top+plotH, left+plotW, top+plotH)
	dc.Stroke()

	dc.SetFontFace(face(16))
	dc.DrawStringAnchored(title, float64(histWidth)/2, top/2, 0.5, 0.5)
	dc.SetFontFace(face(12))

	if len(sum.Histogram) == 0 {
		dc.DrawStringAnchored("no data", left+plotW/2, top+plotH/2, 0.5, 0.5)
		return dc.Image()
	}

	yMax := 0.0
	for _, pct := range sum.Histogram {
		if pct > yMax {
			yMax = pct
		}
	}
	if yMax <= 0 {
		yMax = 1
	}

	r, g, b := roleRGB(sum.Role)
	barW := plotW / float64(len(sum.Histogram))
	for i, pct := range sum.Histogram {
		h := pct / yMax * plotH
		dc.SetRGB(r, g, b)
		dc.DrawRectangle(left+float64(i)*barW, top+plotH-h, barW-1, h)
		dc.Fill()
	}

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored("0", left, top+plotH+bottom/2, 0.5, 0.5)
	if n := len(sum.Bins); n > 0 {
		dc.DrawStringAnchored(axisLabel(sum.Bins[n-1]), left+plotW, top+plotH+bottom/2, 0.5, 0.5)
	}
	dc.DrawStringAnchored(axisLabel(yMax), left-8, top, 1, 0.5)
	dc.DrawStringAnchored("%", left-8, top+plotH/2, 1, 0.5)

	return dc.Image()
}

func axisLabel(v float64) string {
	return fmt.Sprintf("%.4g", v)
}
