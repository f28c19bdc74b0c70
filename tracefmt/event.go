// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracefmt

import (
	"fmt"
	"strings"

	"golang.org/x/ioperf/ioop"
)

// Kind is the kind of a trace event.
type Kind uint8

const (
	// KindOther is any event the correlation engine does not
	// interpret. Its verb is recorded in Event.Verb.
	KindOther Kind = iota
	KindEnter
	KindLeave
	KindIoBegin
	KindIoComplete
)

var kindVerbs = map[Kind]string{
	KindEnter:      "enter",
	KindLeave:      "leave",
	KindIoBegin:    "iobegin",
	KindIoComplete: "iocomplete",
}

var verbKinds = map[string]Kind{
	"enter":      KindEnter,
	"leave":      KindLeave,
	"iobegin":    KindIoBegin,
	"iocomplete": KindIoComplete,
}

func (k Kind) String() string {
	if v, ok := kindVerbs[k]; ok {
		return v
	}
	return "other"
}

// An Event is a single timestamped trace event at one location.
//
// Which fields are meaningful depends on Kind:
//
//	KindEnter, KindLeave: Region
//	KindIoBegin:          MatchingID, Paradigm, Mode, Bytes (requested)
//	KindIoComplete:       MatchingID, Paradigm, Bytes (result)
//	KindOther:            Verb, Fields
type Event struct {
	Kind     Kind
	Location ioop.Location
	Time     ioop.Timestamp

	// Input is the index of the input this event was read from
	// within a Files, or 0. Locations of different inputs are
	// unrelated.
	Input int

	Region string

	MatchingID uint64
	Paradigm   ioop.Paradigm
	Mode       ioop.Mode
	Bytes      uint64

	// Verb is the event name as it appeared in the input. For the
	// known kinds it is the canonical verb.
	Verb   string
	Fields []string

	// fileName and line record where this event was read, if it
	// came from a file.
	fileName string
	line     int
}

// Pos returns the file name and line number of e.
func (e *Event) Pos() (fileName string, line int) {
	return e.fileName, e.line
}

// Clone makes a copy of e that does not share storage with e.
func (e *Event) Clone() *Event {
	e2 := *e
	if e.Fields != nil {
		e2.Fields = append([]string(nil), e.Fields...)
	}
	return &e2
}

// Enter returns an enter-region event.
func Enter(loc ioop.Location, t ioop.Timestamp, region string) *Event {
	return &Event{Kind: KindEnter, Verb: "enter", Location: loc, Time: t, Region: region}
}

// Leave returns a leave-region event.
func Leave(loc ioop.Location, t ioop.Timestamp, region string) *Event {
	return &Event{Kind: KindLeave, Verb: "leave", Location: loc, Time: t, Region: region}
}

// IoBegin returns an I/O begin event.
func IoBegin(loc ioop.Location, t ioop.Timestamp, id uint64, p ioop.Paradigm, m ioop.Mode, requested uint64) *Event {
	return &Event{Kind: KindIoBegin, Verb: "iobegin", Location: loc, Time: t, MatchingID: id, Paradigm: p, Mode: m, Bytes: requested}
}

// IoComplete returns an I/O completion event.
func IoComplete(loc ioop.Location, t ioop.Timestamp, id uint64, p ioop.Paradigm, result uint64) *Event {
	return &Event{Kind: KindIoComplete, Verb: "iocomplete", Location: loc, Time: t, MatchingID: id, Paradigm: p, Bytes: result}
}

// String formats e in the trace format, without a trailing newline.
func (e *Event) String() string {
	var b strings.Builder
	switch e.Kind {
	case KindEnter, KindLeave:
		fmt.Fprintf(&b, "%s %d %d %s", e.Kind, e.Location, e.Time, e.Region)
	case KindIoBegin:
		fmt.Fprintf(&b, "%s %d %d %d %s %s %d", e.Kind, e.Location, e.Time, e.MatchingID, e.Paradigm, e.Mode, e.Bytes)
	case KindIoComplete:
		fmt.Fprintf(&b, "%s %d %d %d %s %d", e.Kind, e.Location, e.Time, e.MatchingID, e.Paradigm, e.Bytes)
	default:
		fmt.Fprintf(&b, "%s %d %d", e.Verb, e.Location, e.Time)
		for _, f := range e.Fields {
			b.WriteByte(' ')
			b.WriteString(f)
		}
	}
	return b.String()
}
