// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ioproc

import (
	"fmt"

	"golang.org/x/ioperf/ioop"
)

// A Metric is a named numeric projection of an operation.
type Metric struct {
	Name string
	// Unit is the unit of Value's results, in the notation
	// understood by package iounit.
	Unit  string
	Value func(op *ioop.Operation) float64
}

var metricNames = []string{"bytes", "result", "duration", "seconds", "rate"}

// MetricNames returns the names accepted by NewMetric.
func MetricNames() []string {
	return append([]string(nil), metricNames...)
}

// NewMetric returns the metric called name. resolution is the trace
// clock resolution in ticks per second, used by metrics measured in
// seconds.
func NewMetric(name string, resolution float64) (Metric, error) {
	switch name {
	case "bytes":
		return Metric{name, "B", func(op *ioop.Operation) float64 { return op.BytesRequested }}, nil
	case "result":
		return Metric{name, "B", func(op *ioop.Operation) float64 { return op.BytesResult }}, nil
	case "duration":
		return Metric{name, "ticks", func(op *ioop.Operation) float64 { return float64(op.Duration()) }}, nil
	case "seconds":
		return Metric{name, "sec", func(op *ioop.Operation) float64 { return op.Seconds(resolution) }}, nil
	case "rate":
		return Metric{name, "B/s", func(op *ioop.Operation) float64 { return op.Throughput(resolution) }}, nil
	}
	return Metric{}, fmt.Errorf("unknown metric %q (want one of %v)", name, metricNames)
}
