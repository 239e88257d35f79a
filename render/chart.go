// Copyright 2026 The Travelmetry Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package render

import (
	"io"
	"math"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/opensusp/travelmetry/session"
)

// SessionChart renders an interactive line chart of the whole session as a
// standalone HTML document.
func SessionChart(w io.Writer, sess session.Session, series []Series) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "travelmetry session",
			Width:     "1200px",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    sess.Name,
			Subtitle: sess.StartedAt.Format(time.RFC3339),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "s"}),
		charts.WithYAxisOpts(opts.YAxis{Name: axisUnit(series)}),
	)

	line.SetXAxis(timeLabels(series))
	for _, s := range series {
		data := make([]opts.LineData, len(s.Travel))
		for i, v := range s.Travel {
			if math.IsNaN(v) {
				// Gaps render as breaks in the line.
				data[i] = opts.LineData{Value: nil}
				continue
			}
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(string(s.Role), data)
	}

	return line.Render(w)
}

// timeLabels picks the densest series' time axis as the category axis.
func timeLabels(series []Series) []string {
	var times []float64
	for _, s := range series {
		if len(s.Times) > len(times) {
			times = s.Times
		}
	}
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = axisLabel(t)
	}
	return out
}

func axisUnit(series []Series) string {
	for _, s := range series {
		return s.Unit
	}
	return "mm"
}
