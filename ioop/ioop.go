// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ioop defines the normalized model of a completed parallel
// I/O operation.
//
// An Operation is produced by correlating the begin and complete
// events of a single I/O call recorded at one Location of a trace.
// Operations are immutable values: transformations such as overlap
// resolution construct new Operations rather than modifying existing
// ones.
package ioop

import (
	"fmt"
	"strings"
)

// A Location is an independent execution context of a trace, such as
// an MPI rank or a thread. Each Location has its own chronological
// event stream.
type Location uint64

// A Timestamp is a point in time measured in ticks of the trace clock.
// The number of ticks per second is the clock resolution, which is a
// property of the trace and not of individual timestamps.
type Timestamp int64

// DefaultResolution is the clock resolution assumed when a trace does
// not declare one: one tick per nanosecond.
const DefaultResolution = 1e9

// Mode is the transfer direction of an I/O operation.
type Mode uint8

const (
	Read Mode = iota
	Write

	numModes
)

var modeNames = [numModes]string{
	Read:  "read",
	Write: "write",
}

func (m Mode) String() string {
	if m < numModes {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// ParseMode returns the Mode named by s. It accepts "read" and
// "write" in any letter case.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(m), nil
		}
	}
	return 0, fmt.Errorf("%w: mode %q", ErrUnknownParadigmOrMode, s)
}

// ModeFromCode maps the numeric I/O operation mode recorded by OTF2
// traces to a Mode.
func ModeFromCode(code uint8) (Mode, error) {
	switch code {
	case 0:
		return Read, nil
	case 1:
		return Write, nil
	}
	return 0, fmt.Errorf("%w: mode code %d", ErrUnknownParadigmOrMode, code)
}

// Paradigm is the I/O interface family through which an operation was
// issued.
type Paradigm uint8

const (
	POSIX Paradigm = iota
	MPIIO
	ISOC
	HDF5

	numParadigms
)

var paradigmNames = [numParadigms]string{
	POSIX: "POSIX",
	MPIIO: "MPI-IO",
	ISOC:  "ISOC",
	HDF5:  "HDF5",
}

// paradigmAliases lists the additional spellings accepted by
// ParseParadigm.
var paradigmAliases = map[string]Paradigm{
	"MPIIO": MPIIO,
}

func (p Paradigm) String() string {
	if p < numParadigms {
		return paradigmNames[p]
	}
	return fmt.Sprintf("Paradigm(%d)", uint8(p))
}

// ParseParadigm returns the Paradigm identified by s, which is the
// paradigm identification string used by OTF2 I/O handles ("POSIX",
// "MPI-IO", "ISOC", "HDF5"). Matching is exact.
func ParseParadigm(s string) (Paradigm, error) {
	for p, name := range paradigmNames {
		if s == name {
			return Paradigm(p), nil
		}
	}
	if p, ok := paradigmAliases[s]; ok {
		return p, nil
	}
	return 0, fmt.Errorf("%w: paradigm %q", ErrUnknownParadigmOrMode, s)
}

// Modes returns all modes in order.
func Modes() []Mode {
	return []Mode{Read, Write}
}

// Paradigms returns all paradigms in order.
func Paradigms() []Paradigm {
	return []Paradigm{POSIX, MPIIO, ISOC, HDF5}
}
