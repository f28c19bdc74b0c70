// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package correlate turns streams of trace events into I/O
// Operations.
//
// Each location of a trace has its own Stack of open regions and
// pending I/O operations. A Matcher consumes one location's events in
// order; an Engine routes a multi-location stream to one Matcher per
// location of each input and isolates failures, so that a protocol violation at one
// location does not affect the others. Process does the same work
// with a pool of goroutines.
package correlate

import (
	"errors"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"golang.org/x/ioperf/ioop"
	"golang.org/x/ioperf/tracefmt"
)

// A Source is an ordered stream of trace records. *tracefmt.Reader
// and *tracefmt.Files implement Source.
type Source interface {
	Scan() bool
	Result() tracefmt.Record
	Err() error
}

// An Engine correlates a stream of events from many locations.
type Engine struct {
	opts Options
	locs map[locKey]*locState

	syntax  []*tracefmt.SyntaxError
	skipped map[string]int
}

// A locKey identifies a location within one input of a Files.
type locKey struct {
	input int
	loc   ioop.Location
}

func (k locKey) compare(o locKey) int {
	switch {
	case k.input != o.input:
		return k.input - o.input
	case k.loc < o.loc:
		return -1
	case k.loc > o.loc:
		return 1
	}
	return 0
}

type locState struct {
	m       *Matcher
	err     error
	dropped int
}

// NewEngine returns an Engine with no locations.
func NewEngine(opts Options) *Engine {
	return &Engine{
		opts:    opts,
		locs:    make(map[locKey]*locState),
		skipped: make(map[string]int),
	}
}

func (e *Engine) loc(input int, l ioop.Location) *locState {
	k := locKey{input, l}
	ls, ok := e.locs[k]
	if !ok {
		ls = &locState{m: NewMatcher(l, e.opts)}
		e.locs[k] = ls
	}
	return ls
}

// Add consumes one record. Events are dispatched to their location's
// Matcher. A *tracefmt.SyntaxError that names a location fails that
// location, since its events can no longer be correlated; other
// syntax errors are collected in the Trace. Other records are
// ignored.
func (e *Engine) Add(rec tracefmt.Record) {
	switch rec := rec.(type) {
	case *tracefmt.Event:
		e.addEvent(rec)
	case *tracefmt.SyntaxError:
		if !rec.HasLocation {
			e.syntax = append(e.syntax, rec)
			return
		}
		ls := e.loc(rec.Input, rec.Location)
		if ls.err != nil {
			ls.dropped++
			return
		}
		ls.err = rec
	}
}

func (e *Engine) addEvent(ev *tracefmt.Event) {
	if ev.Kind == tracefmt.KindOther {
		e.skipped[ev.Verb]++
	}
	ls := e.loc(ev.Input, ev.Location)
	if ls.err != nil {
		ls.dropped++
		return
	}
	if err := ls.m.Event(ev); err != nil {
		file, line := ev.Pos()
		ls.err = &EventError{
			Location: ev.Location,
			Time:     ev.Time,
			Kind:     ev.Kind,
			FileName: file,
			Line:     line,
			Err:      err,
		}
	}
}

// Consume adds every record from src and returns src's error, if any.
func (e *Engine) Consume(src Source) error {
	for src.Scan() {
		e.Add(src.Result())
	}
	return src.Err()
}

// Finish returns the correlation results. The Engine should not be
// used afterwards.
func (e *Engine) Finish() *Trace {
	t := &Trace{
		SyntaxErrors: e.syntax,
		Skipped:      e.skipped,
	}
	locs := maps.Keys(e.locs)
	slices.SortFunc(locs, locKey.compare)
	for _, k := range locs {
		ls := e.locs[k]
		res := LocationResult{
			Input:    k.input,
			Location: k.loc,
			Ops:      ls.m.Operations(),
			Err:      ls.err,
			Dropped:  ls.dropped,
		}
		if ls.err == nil {
			res.Warnings = ls.m.Dangling()
		}
		t.Locations = append(t.Locations, res)
	}
	return t
}

// A Trace is the result of correlating a whole event stream.
type Trace struct {
	// Locations holds one result per location, ordered by input
	// and then by location.
	Locations []LocationResult

	// SyntaxErrors are unparseable records that could not be
	// attributed to any location.
	SyntaxErrors []*tracefmt.SyntaxError

	// Skipped counts events of KindOther by verb.
	Skipped map[string]int
}

// A LocationResult is the outcome of correlating one location.
type LocationResult struct {
	// Input is the index of the input the location was read from.
	// See tracefmt.Event.Input.
	Input    int
	Location ioop.Location

	// Ops are the operations completed at this location, in
	// completion order. If Err is non-nil, these are the operations
	// completed before the failure.
	Ops []ioop.Operation

	// Err is the error that stopped correlation of this location,
	// or nil.
	Err error

	// Warnings lists regions and operations left open at the end of
	// the stream, as *DanglingErrors.
	Warnings []error

	// Dropped is the number of events ignored after Err.
	Dropped int
}

// Operations returns the operations of each location that completed
// without error, in the order of Locations.
func (t *Trace) Operations() [][]ioop.Operation {
	var out [][]ioop.Operation
	for _, l := range t.Locations {
		if l.Err == nil {
			out = append(out, l.Ops)
		}
	}
	return out
}

// InputOperations returns the operations of each location of input i
// that completed without error, in ascending location order.
func (t *Trace) InputOperations(i int) [][]ioop.Operation {
	var out [][]ioop.Operation
	for _, l := range t.Locations {
		if l.Input == i && l.Err == nil {
			out = append(out, l.Ops)
		}
	}
	return out
}

// Inputs returns the indexes of the inputs that have at least one
// location, in ascending order.
func (t *Trace) Inputs() []int {
	var out []int
	for _, l := range t.Locations {
		if len(out) == 0 || out[len(out)-1] != l.Input {
			out = append(out, l.Input)
		}
	}
	return out
}

// Err returns the errors of all failed locations joined together, or
// nil if every location succeeded.
func (t *Trace) Err() error {
	var errs []error
	for _, l := range t.Locations {
		if l.Err != nil {
			errs = append(errs, l.Err)
		}
	}
	return errors.Join(errs...)
}

// Warnings returns the warnings of all locations.
func (t *Trace) Warnings() []error {
	var out []error
	for _, l := range t.Locations {
		out = append(out, l.Warnings...)
	}
	return out
}

// merge adds the results of other, which must not share locations
// with t. The caller must restore the order of t.Locations.
func (t *Trace) merge(other *Trace) {
	t.Locations = append(t.Locations, other.Locations...)
	t.SyntaxErrors = append(t.SyntaxErrors, other.SyntaxErrors...)
	if t.Skipped == nil {
		t.Skipped = make(map[string]int)
	}
	for verb, n := range other.Skipped {
		t.Skipped[verb] += n
	}
}
