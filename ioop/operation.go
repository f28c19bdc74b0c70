// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ioop

import "fmt"

// An Operation is a completed I/O operation covering the half-open
// interval [Start, End).
//
// Byte counts are float64 because overlap resolution divides an
// operation's bytes among the pieces it is split into.
type Operation struct {
	Mode     Mode
	Paradigm Paradigm

	Start, End Timestamp

	// BytesRequested is the number of bytes the operation asked to
	// transfer and BytesResult the number actually transferred.
	BytesRequested float64
	BytesResult    float64

	Location Location
	// Region is the innermost region that enclosed the operation when
	// it began. It is empty for operations issued outside of any
	// region.
	Region string
}

// New returns an Operation, or an error wrapping ErrInvalidInterval if
// start is not before end.
func New(mode Mode, paradigm Paradigm, loc Location, region string, start, end Timestamp, requested, result float64) (Operation, error) {
	if start >= end {
		return Operation{}, fmt.Errorf("%w: [%d, %d)", ErrInvalidInterval, start, end)
	}
	return Operation{
		Mode:           mode,
		Paradigm:       paradigm,
		Start:          start,
		End:            end,
		BytesRequested: requested,
		BytesResult:    result,
		Location:       loc,
		Region:         region,
	}, nil
}

// Duration returns the length of o's interval in clock ticks. It is
// always positive for Operations constructed by New.
func (o Operation) Duration() Timestamp {
	return o.End - o.Start
}

// Rate returns the requested bytes per clock tick.
func (o Operation) Rate() float64 {
	return o.BytesRequested / float64(o.Duration())
}

// Seconds returns o's duration in seconds for a clock that runs at
// resolution ticks per second.
func (o Operation) Seconds(resolution float64) float64 {
	return float64(o.Duration()) / resolution
}

// Throughput returns the requested bytes per second for a clock that
// runs at resolution ticks per second.
func (o Operation) Throughput(resolution float64) float64 {
	return o.BytesRequested / o.Seconds(resolution)
}

// Overlaps reports whether o and p share any instant. Intervals that
// only touch do not overlap.
func (o Operation) Overlaps(p Operation) bool {
	return o.Start < p.End && p.Start < o.End
}

func (o Operation) String() string {
	return fmt.Sprintf("%s %s @%d [%d, %d) %g/%g B %q", o.Paradigm, o.Mode, o.Location, o.Start, o.End, o.BytesRequested, o.BytesResult, o.Region)
}
