// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package iomath summarizes distributions of per-operation values,
// such as the transfer rates of all POSIX writes of a trace.
//
// Callers state a distributional assumption and get back a center
// and a confidence interval. Analysis results carry a list of
// warnings, captured as an []error value. These aren't errors that
// prevent analysis, but should be presented to the user along with
// the results.
package iomath

import (
	"fmt"
	"math"

	"github.com/aclements/go-moremath/mathx"
	"github.com/aclements/go-moremath/stats"
	"golang.org/x/exp/slices"
)

// A Sample is a set of values of one metric for one group of
// operations.
type Sample struct {
	// Values are the values, in ascending order.
	Values []float64

	// Warnings is a list of warnings about this sample that
	// should be reported to the user.
	Warnings []error
}

// NewSample constructs a Sample from values. It sorts values in
// place.
func NewSample(values []float64) *Sample {
	slices.Sort(values)
	s := &Sample{Values: values}
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			s.Warnings = append(s.Warnings, fmt.Errorf("sample contains non-finite value %v", v))
			break
		}
	}
	return s
}

func (s *Sample) sample() stats.Sample {
	return stats.Sample{Xs: s.Values, Sorted: true}
}

// Sum returns the sum of the values of s.
func (s *Sample) Sum() float64 {
	return s.sample().Sum()
}

// Bounds returns the smallest and largest values of s.
func (s *Sample) Bounds() (lo, hi float64) {
	return s.sample().Bounds()
}

// An Assumption indicates a distributional assumption about a sample.
type Assumption interface {
	// SummaryLabel returns the name of the summary statistic
	// under this assumption, such as "median" or "mean".
	SummaryLabel() string

	// Summary returns a summary statistic and its confidence
	// interval at the given confidence level for Sample s.
	//
	// Confidence is given in the range [0,1], e.g., 0.95 for 95%
	// confidence.
	Summary(s *Sample, confidence float64) Summary
}

// A Summary summarizes a Sample.
type Summary struct {
	// Center is some measure of the central tendency of a sample.
	Center float64

	// Lo and Hi give the bounds of the confidence interval around
	// Center.
	Lo, Hi float64

	// Confidence is the actual confidence level of the confidence
	// interval given by Lo, Hi. It will be >= the requested
	// confidence level.
	Confidence float64

	// Warnings is a list of warnings about this summary or its
	// confidence interval.
	Warnings []error
}

// PctRangeString returns a string representation of the range of this
// Summary's confidence interval as a percentage.
func (s Summary) PctRangeString() string {
	if math.IsInf(s.Lo, 0) || math.IsInf(s.Hi, 0) {
		return "∞"
	}

	// If the signs of the bounds differ from the center, we can't
	// render it as a percent.
	var csign = mathx.Sign(s.Center)
	if csign != mathx.Sign(s.Lo) || csign != mathx.Sign(s.Hi) {
		return "?"
	}

	// A zero center can only happen here if the bounds are zero
	// too.
	if s.Center == 0 {
		return "0%"
	}

	v := math.Max(s.Hi/s.Center-1, 1-s.Lo/s.Center)
	return fmt.Sprintf("%.0f%%", 100*v)
}
