// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ioplot draws distributions of per-operation metrics.
package ioplot

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"golang.org/x/ioperf/ioproc"
)

// Options configures a box plot.
type Options struct {
	Title string
	Unit  string

	// LogScale uses a logarithmic Y axis. All values must then be
	// positive.
	LogScale bool

	// Width and Height are the image size in centimeters. If zero,
	// they default to 4cm per group by 12cm.
	Width, Height float64
	DPI           int
}

// BoxPlot writes a PNG image to w with one box per group of groups,
// in key order.
func BoxPlot(w io.Writer, groups map[ioproc.Key][]float64, opts Options) error {
	keys := ioproc.Keys(groups)
	if len(keys) == 0 {
		return errors.New("no data to plot")
	}

	pl := plot.New()
	pl.Title.Text = opts.Title
	pl.Y.Label.Text = opts.Unit
	if opts.LogScale {
		pl.Y.Scale = plot.LogScale{}
		pl.Y.Tick.Marker = plot.LogTicks{}
	}

	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	pl.Add(grid)

	boxWidth := vg.Points(20)
	var names []string
	for i, k := range keys {
		values := plotter.Values(groups[k])
		if opts.LogScale {
			for _, v := range values {
				if v <= 0 {
					return fmt.Errorf("%s: value %v cannot be shown on a log scale", k, v)
				}
			}
		}
		b, err := plotter.NewBoxPlot(boxWidth, float64(i), values)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		b.FillColor = color.Gray{Y: 0xdd}
		pl.Add(b)
		names = append(names, k.String())
	}
	pl.NominalX(names...)

	width, height := opts.Width, opts.Height
	if width == 0 {
		width = 4 * float64(len(keys))
		if width < 8 {
			width = 8
		}
	}
	if height == 0 {
		height = 12
	}
	dpi := opts.DPI
	if dpi == 0 {
		dpi = 96
	}

	can := vgimg.PngCanvas{Canvas: vgimg.NewWith(
		vgimg.UseWH(vg.Length(width)*vg.Centimeter, vg.Length(height)*vg.Centimeter),
		vgimg.UseDPI(dpi),
		vgimg.UseBackgroundColor(color.White))}
	pl.Draw(draw.New(can))
	_, err := can.WriteTo(w)
	return err
}
