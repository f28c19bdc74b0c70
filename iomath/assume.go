// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iomath

import (
	"fmt"
	"math"

	"github.com/aclements/go-moremath/stats"
)

// AssumeNormal is an assumption that a sample is normally distributed.
// The summary statistic is the sample mean.
var AssumeNormal = assumeNormal{}

type assumeNormal struct{}

var _ Assumption = assumeNormal{}

func (assumeNormal) SummaryLabel() string {
	return "mean"
}

func (assumeNormal) Summary(s *Sample, confidence float64) Summary {
	if len(s.Values) < 2 {
		mean := s.sample().Mean()
		return Summary{
			Center:     mean,
			Lo:         math.Inf(-1),
			Hi:         math.Inf(1),
			Confidence: 1,
			Warnings:   []error{fmt.Errorf("need >= 2 samples for confidence interval")},
		}
	}
	mean, lo, hi := s.sample().MeanCI(confidence)
	return Summary{
		Center:     mean,
		Lo:         lo,
		Hi:         hi,
		Confidence: confidence,
	}
}

// AssumeNothing is a non-parametric assumption. The summary
// statistic is the sample median and its confidence interval is
// computed from order statistics.
var AssumeNothing = assumeNothing{}

type assumeNothing struct{}

var _ Assumption = assumeNothing{}

func (assumeNothing) SummaryLabel() string {
	return "median"
}

func (assumeNothing) Summary(s *Sample, confidence float64) Summary {
	ci := stats.QuantileCI(len(s.Values), 0.5, confidence)
	median, lo, hi := ci.SampleCI(s.sample())

	var warnings []error
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		op, n := medianSamples(confidence)
		warnings = append(warnings, fmt.Errorf("need %s %d samples for confidence interval at level %v", op, n, confidence))
	}

	return Summary{median, lo, hi, ci.Confidence, warnings}
}

// medianSamples returns the minimum number of samples needed for a
// median confidence interval at the given confidence level, along
// with a comparison operator. If more than 50 samples would be
// needed, it returns ">", 50.
func medianSamples(confidence float64) (op string, n int) {
	const limit = 50
	for n := 2; n <= limit; n++ {
		d := stats.BinomialDist{N: n, P: 0.5}
		if 1-2*d.PMF(0) >= confidence {
			return ">=", n
		}
	}
	return ">", limit
}
