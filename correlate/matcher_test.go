// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package correlate

import (
	"errors"
	"reflect"
	"testing"

	"golang.org/x/ioperf/ioop"
	"golang.org/x/ioperf/tracefmt"
)

func feed(m *Matcher, evs ...*tracefmt.Event) error {
	for _, ev := range evs {
		if err := m.Event(ev); err != nil {
			return err
		}
	}
	return nil
}

func op(mode ioop.Mode, p ioop.Paradigm, loc ioop.Location, region string, start, end ioop.Timestamp, req, res float64) ioop.Operation {
	return ioop.Operation{Mode: mode, Paradigm: p, Location: loc, Region: region, Start: start, End: end, BytesRequested: req, BytesResult: res}
}

func TestMatcherNested(t *testing.T) {
	// N nested regions with M operations of distinct ids yield
	// exactly M operations with the begin/complete intervals.
	const n, mOps = 5, 20
	m := NewMatcher(2, Options{})
	var want []ioop.Operation
	now := ioop.Timestamp(0)
	tick := func() ioop.Timestamp { now++; return now }
	names := []string{"a", "b", "c", "d", "e"}
	for i := 0; i < n; i++ {
		if err := m.Enter(tick(), names[i]); err != nil {
			t.Fatal(err)
		}
	}
	for id := uint64(0); id < mOps; id++ {
		start := tick()
		if err := m.Begin(start, id, ioop.POSIX, ioop.Write, 10*id); err != nil {
			t.Fatal(err)
		}
		end := tick()
		if err := m.Complete(end, id, ioop.POSIX, 5*id); err != nil {
			t.Fatal(err)
		}
		want = append(want, op(ioop.Write, ioop.POSIX, 2, "e", start, end, float64(10*id), float64(5*id)))
	}
	for i := n - 1; i >= 0; i-- {
		if err := m.Leave(tick(), names[i]); err != nil {
			t.Fatal(err)
		}
	}
	if got := m.Operations(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v\nwant %v", got, want)
	}
	if d := m.Dangling(); len(d) != 0 {
		t.Errorf("unexpected dangling entries %v", d)
	}
}

func TestMatcherOutOfOrder(t *testing.T) {
	m := NewMatcher(0, Options{})
	err := feed(m,
		tracefmt.Enter(0, 0, "main"),
		tracefmt.IoBegin(0, 1, 1, ioop.MPIIO, ioop.Write, 100),
		tracefmt.Enter(0, 2, "MPI_File_iread"),
		tracefmt.IoBegin(0, 3, 2, ioop.MPIIO, ioop.Read, 50),
		// Complete the outer operation first.
		tracefmt.IoComplete(0, 4, 1, ioop.MPIIO, 90),
		tracefmt.IoComplete(0, 5, 2, ioop.MPIIO, 50),
		tracefmt.Leave(0, 6, "MPI_File_iread"),
		tracefmt.Leave(0, 7, "main"),
	)
	if err != nil {
		t.Fatal(err)
	}
	want := []ioop.Operation{
		op(ioop.Write, ioop.MPIIO, 0, "main", 1, 4, 100, 90),
		op(ioop.Read, ioop.MPIIO, 0, "MPI_File_iread", 3, 5, 50, 50),
	}
	if got := m.Operations(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v\nwant %v", got, want)
	}
}

func TestMatcherErrors(t *testing.T) {
	for _, test := range []struct {
		name string
		opts Options
		evs  []*tracefmt.Event
		want error
	}{
		{
			"leave mismatch",
			Options{},
			[]*tracefmt.Event{tracefmt.Enter(0, 1, "Y"), tracefmt.Leave(0, 2, "X")},
			ioop.ErrProtocolViolation,
		},
		{
			"leave empty",
			Options{},
			[]*tracefmt.Event{tracefmt.Leave(0, 2, "X")},
			ioop.ErrProtocolViolation,
		},
		{
			"leave over pending",
			Options{},
			[]*tracefmt.Event{
				tracefmt.Enter(0, 1, "X"),
				tracefmt.IoBegin(0, 2, 1, ioop.POSIX, ioop.Read, 1),
				tracefmt.Leave(0, 3, "X"),
			},
			ioop.ErrProtocolViolation,
		},
		{
			"top-level begin",
			Options{},
			[]*tracefmt.Event{tracefmt.IoBegin(0, 2, 1, ioop.POSIX, ioop.Read, 1)},
			ioop.ErrProtocolViolation,
		},
		{
			"time goes backwards",
			Options{},
			[]*tracefmt.Event{tracefmt.Enter(0, 5, "X"), tracefmt.Enter(0, 4, "Y")},
			ioop.ErrProtocolViolation,
		},
		{
			"unmatched",
			Options{},
			[]*tracefmt.Event{
				tracefmt.Enter(0, 1, "X"),
				tracefmt.IoBegin(0, 2, 1, ioop.POSIX, ioop.Read, 1),
				tracefmt.IoComplete(0, 3, 2, ioop.POSIX, 1),
			},
			ioop.ErrUnmatchedOperation,
		},
		{
			"unmatched paradigm",
			Options{},
			[]*tracefmt.Event{
				tracefmt.Enter(0, 1, "X"),
				tracefmt.IoBegin(0, 2, 1, ioop.POSIX, ioop.Read, 1),
				tracefmt.IoComplete(0, 3, 1, ioop.ISOC, 1),
			},
			ioop.ErrUnmatchedOperation,
		},
		{
			"ambiguous",
			Options{},
			[]*tracefmt.Event{
				tracefmt.Enter(0, 1, "X"),
				tracefmt.IoBegin(0, 2, 1, ioop.POSIX, ioop.Read, 1),
				tracefmt.IoBegin(0, 3, 1, ioop.POSIX, ioop.Read, 1),
				tracefmt.IoComplete(0, 4, 1, ioop.POSIX, 1),
			},
			ioop.ErrAmbiguousMatch,
		},
		{
			"zero duration",
			Options{},
			[]*tracefmt.Event{
				tracefmt.Enter(0, 1, "X"),
				tracefmt.IoBegin(0, 2, 1, ioop.POSIX, ioop.Read, 1),
				tracefmt.IoComplete(0, 2, 1, ioop.POSIX, 1),
			},
			ioop.ErrInvalidInterval,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			err := feed(NewMatcher(0, test.opts), test.evs...)
			if !errors.Is(err, test.want) {
				t.Errorf("got error %v, want %v", err, test.want)
			}
		})
	}
}

func TestMatcherTopLevelIO(t *testing.T) {
	m := NewMatcher(1, Options{AllowTopLevelIO: true})
	err := feed(m,
		tracefmt.IoBegin(1, 2, 1, ioop.ISOC, ioop.Read, 8),
		tracefmt.IoComplete(1, 3, 1, ioop.ISOC, 8),
	)
	if err != nil {
		t.Fatal(err)
	}
	want := []ioop.Operation{op(ioop.Read, ioop.ISOC, 1, "", 2, 3, 8, 8)}
	if got := m.Operations(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMatcherDangling(t *testing.T) {
	m := NewMatcher(4, Options{})
	err := feed(m,
		tracefmt.Enter(4, 1, "main"),
		tracefmt.IoBegin(4, 2, 7, ioop.POSIX, ioop.Write, 8),
		&tracefmt.Event{Kind: tracefmt.KindOther, Verb: "metric", Location: 4, Time: 3},
	)
	if err != nil {
		t.Fatal(err)
	}
	d := m.Dangling()
	if len(d) != 2 {
		t.Fatalf("got %d dangling entries, want 2: %v", len(d), d)
	}
	var de *DanglingError
	if !errors.As(d[0], &de) || de.Entry.Pending || de.Entry.Region != "main" {
		t.Errorf("first dangling entry = %v, want region main", d[0])
	}
	if !errors.As(d[1], &de) || !de.Entry.Pending || de.Entry.MatchingID != 7 {
		t.Errorf("second dangling entry = %v, want pending I/O 7", d[1])
	}
	if inner, _ := m.Innermost(); inner != "main" {
		t.Errorf("Innermost() = %q, want main", inner)
	}
}
