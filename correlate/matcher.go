// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package correlate

import (
	"fmt"

	"golang.org/x/ioperf/ioop"
	"golang.org/x/ioperf/tracefmt"
)

// Options configures correlation.
type Options struct {
	// AllowTopLevelIO permits I/O begin events outside of any open
	// region. Such operations have an empty Region. By default they
	// are protocol violations.
	AllowTopLevelIO bool

	// Workers is the number of goroutines Process uses. If it is
	// zero, Process uses GOMAXPROCS.
	Workers int
}

// A Matcher correlates the events of a single location into
// Operations.
//
// A Matcher is not safe for concurrent use. Once a method returns an
// error, the Matcher's state is undefined and it should be
// discarded.
type Matcher struct {
	loc   ioop.Location
	opts  Options
	stack Stack

	last    ioop.Timestamp
	started bool

	ops []ioop.Operation
}

// NewMatcher returns a Matcher for events at location loc.
func NewMatcher(loc ioop.Location, opts Options) *Matcher {
	return &Matcher{loc: loc, opts: opts}
}

// advance checks that t does not precede the previous event.
func (m *Matcher) advance(t ioop.Timestamp) error {
	if m.started && t < m.last {
		return fmt.Errorf("%w: time %d precedes previous event at %d", ioop.ErrProtocolViolation, t, m.last)
	}
	m.started, m.last = true, t
	return nil
}

// Enter opens region name.
func (m *Matcher) Enter(t ioop.Timestamp, name string) error {
	if err := m.advance(t); err != nil {
		return err
	}
	m.stack.PushRegion(t, name)
	return nil
}

// Leave closes region name, which must be the innermost entry on the
// stack.
func (m *Matcher) Leave(t ioop.Timestamp, name string) error {
	if err := m.advance(t); err != nil {
		return err
	}
	top, ok := m.stack.Top()
	switch {
	case !ok:
		return fmt.Errorf("%w: leave %q with no open region", ioop.ErrProtocolViolation, name)
	case top.Pending:
		return fmt.Errorf("%w: leave %q while I/O operation %d (%s) is pending", ioop.ErrProtocolViolation, name, top.MatchingID, top.Paradigm)
	case top.Region != name:
		return fmt.Errorf("%w: leave %q but innermost region is %q", ioop.ErrProtocolViolation, name, top.Region)
	}
	m.stack.PopRegion()
	return nil
}

// Begin records the start of an I/O operation.
func (m *Matcher) Begin(t ioop.Timestamp, id uint64, p ioop.Paradigm, mode ioop.Mode, requested uint64) error {
	if err := m.advance(t); err != nil {
		return err
	}
	if _, ok := m.stack.Innermost(); !ok && !m.opts.AllowTopLevelIO {
		return fmt.Errorf("%w: I/O operation %d (%s) begins outside of any region", ioop.ErrProtocolViolation, id, p)
	}
	m.stack.PushPending(Entry{
		Time:           t,
		MatchingID:     id,
		Paradigm:       p,
		Mode:           mode,
		BytesRequested: requested,
	})
	return nil
}

// Complete finishes the pending I/O operation with matching id and
// paradigm p, which may be anywhere on the stack, and records the
// resulting Operation.
func (m *Matcher) Complete(t ioop.Timestamp, id uint64, p ioop.Paradigm, result uint64) error {
	if err := m.advance(t); err != nil {
		return err
	}
	hs := m.stack.Pending(id, p)
	switch len(hs) {
	case 0:
		return fmt.Errorf("%w: no pending I/O operation %d (%s)", ioop.ErrUnmatchedOperation, id, p)
	case 1:
	default:
		return fmt.Errorf("%w: %d pending I/O operations %d (%s)", ioop.ErrAmbiguousMatch, len(hs), id, p)
	}
	begin := m.stack.Remove(hs[0])
	op, err := ioop.New(begin.Mode, p, m.loc, begin.Region, begin.Time, t, float64(begin.BytesRequested), float64(result))
	if err != nil {
		return fmt.Errorf("I/O operation %d (%s): %w", id, p, err)
	}
	m.ops = append(m.ops, op)
	return nil
}

// Event dispatches ev to the Matcher. Events of KindOther are
// checked for time order and otherwise ignored.
func (m *Matcher) Event(ev *tracefmt.Event) error {
	switch ev.Kind {
	case tracefmt.KindEnter:
		return m.Enter(ev.Time, ev.Region)
	case tracefmt.KindLeave:
		return m.Leave(ev.Time, ev.Region)
	case tracefmt.KindIoBegin:
		return m.Begin(ev.Time, ev.MatchingID, ev.Paradigm, ev.Mode, ev.Bytes)
	case tracefmt.KindIoComplete:
		return m.Complete(ev.Time, ev.MatchingID, ev.Paradigm, ev.Bytes)
	}
	return m.advance(ev.Time)
}

// Innermost returns the name of the innermost open region.
func (m *Matcher) Innermost() (string, bool) {
	return m.stack.Innermost()
}

// Operations returns the completed operations in completion order.
func (m *Matcher) Operations() []ioop.Operation {
	return m.ops
}

// Dangling returns a *DanglingError for every entry still on the
// stack, outermost first.
func (m *Matcher) Dangling() []error {
	var errs []error
	for _, e := range m.stack.Entries() {
		errs = append(errs, &DanglingError{Location: m.loc, Entry: e})
	}
	return errs
}
