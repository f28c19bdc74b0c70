// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package correlate

import (
	"fmt"

	"golang.org/x/ioperf/ioop"
	"golang.org/x/ioperf/tracefmt"
)

// An EventError reports the event that caused a location to fail.
type EventError struct {
	Location ioop.Location
	Time     ioop.Timestamp
	Kind     tracefmt.Kind

	// FileName and Line give the event's position in its trace
	// file, if known.
	FileName string
	Line     int

	Err error
}

func (e *EventError) Error() string {
	pos := ""
	if e.FileName != "" {
		pos = fmt.Sprintf("%s:%d: ", e.FileName, e.Line)
	}
	return fmt.Sprintf("%slocation %d: %s at %d: %v", pos, e.Location, e.Kind, e.Time, e.Err)
}

func (e *EventError) Unwrap() error {
	return e.Err
}

// A DanglingError reports a region that was never left or an I/O
// operation that never completed by the end of a location's events.
// It is a warning: operations that did complete are still valid.
type DanglingError struct {
	Location ioop.Location
	Entry    Entry
}

func (e *DanglingError) Error() string {
	if e.Entry.Pending {
		return fmt.Sprintf("location %d: I/O operation %d (%s %s) begun at %d never completed", e.Location, e.Entry.MatchingID, e.Entry.Paradigm, e.Entry.Mode, e.Entry.Time)
	}
	return fmt.Sprintf("location %d: region %q entered at %d never left", e.Location, e.Entry.Region, e.Entry.Time)
}
