// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package correlate

import (
	"golang.org/x/ioperf/ioop"
)

// A Handle identifies an entry of a Stack. It stays valid until the
// entry is removed.
type Handle int32

// noHandle is the nil Handle.
const noHandle Handle = -1

// An Entry is an element of a location's Stack: either an open region
// or a pending I/O begin marker.
type Entry struct {
	// Pending is true for an I/O begin marker and false for a region.
	Pending bool
	Time    ioop.Timestamp

	// Region is the name of an open region. For a pending marker it
	// is the name of the innermost region enclosing it, if any.
	Region string

	MatchingID     uint64
	Paradigm       ioop.Paradigm
	Mode           ioop.Mode
	BytesRequested uint64
}

type pendingKey struct {
	id       uint64
	paradigm ioop.Paradigm
}

type slot struct {
	Entry
	live       bool
	prev, next Handle
	// outer is the innermost region when this entry was pushed.
	outer Handle
}

// A Stack holds the open regions and pending I/O operations of one
// location, innermost last.
//
// Entries live in an arena and are linked by index, so a pending
// marker can be removed from any position in constant time, and
// pending markers are indexed by matching id and paradigm so that
// finding the begin for a completion does not scan the stack.
//
// The zero Stack is empty and ready to use.
type Stack struct {
	slots []slot
	free  []Handle
	top   Handle
	n     int

	// regions is the number of live region entries.
	regions int
	// innermost is the topmost region entry, or noHandle.
	innermost Handle

	pending map[pendingKey][]Handle
}

func (s *Stack) init() {
	if s.pending == nil {
		s.top, s.innermost = noHandle, noHandle
		s.pending = make(map[pendingKey][]Handle)
	}
}

// Len returns the number of entries on s.
func (s *Stack) Len() int {
	return s.n
}

func (s *Stack) alloc(e Entry) Handle {
	s.init()
	var h Handle
	if n := len(s.free); n > 0 {
		h = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		h = Handle(len(s.slots))
		s.slots = append(s.slots, slot{})
	}
	s.slots[h] = slot{Entry: e, live: true, prev: s.top, next: noHandle, outer: s.innermost}
	if s.top != noHandle {
		s.slots[s.top].next = h
	}
	s.top = h
	s.n++
	return h
}

func (s *Stack) release(h Handle) {
	sl := &s.slots[h]
	if sl.prev != noHandle {
		s.slots[sl.prev].next = sl.next
	}
	if sl.next != noHandle {
		s.slots[sl.next].prev = sl.prev
	} else {
		s.top = sl.prev
	}
	*sl = slot{prev: noHandle, next: noHandle, outer: noHandle}
	s.free = append(s.free, h)
	s.n--
}

// PushRegion pushes an open region marker.
func (s *Stack) PushRegion(t ioop.Timestamp, name string) Handle {
	s.init()
	h := s.alloc(Entry{Time: t, Region: name})
	s.innermost = h
	s.regions++
	return h
}

// PushPending pushes a pending I/O begin marker. The marker records
// the innermost open region at the time it is pushed.
func (s *Stack) PushPending(e Entry) Handle {
	s.init()
	e.Pending = true
	e.Region = ""
	if s.innermost != noHandle {
		e.Region = s.slots[s.innermost].Region
	}
	h := s.alloc(e)
	k := pendingKey{e.MatchingID, e.Paradigm}
	s.pending[k] = append(s.pending[k], h)
	return h
}

// Top returns the innermost entry of s.
func (s *Stack) Top() (Entry, bool) {
	if s.n == 0 {
		return Entry{}, false
	}
	return s.slots[s.top].Entry, true
}

// Innermost returns the name of the innermost open region, ignoring
// pending markers.
func (s *Stack) Innermost() (string, bool) {
	if s.regions == 0 {
		return "", false
	}
	return s.slots[s.innermost].Region, true
}

// PopRegion removes the top entry, which must be an open region.
// It reports whether it did so.
func (s *Stack) PopRegion() (Entry, bool) {
	if s.n == 0 || s.slots[s.top].Pending {
		return Entry{}, false
	}
	h := s.top
	e := s.slots[h].Entry
	// Regions are only popped from the top, so the region that was
	// innermost when h was pushed is still live.
	s.innermost = s.slots[h].outer
	s.release(h)
	s.regions--
	return e, true
}

// Pending returns the handles of the pending markers with the given
// matching id and paradigm, outermost first. The caller must not
// modify the returned slice.
func (s *Stack) Pending(id uint64, p ioop.Paradigm) []Handle {
	return s.pending[pendingKey{id, p}]
}

// Remove removes the pending marker h, wherever it is on the stack,
// and returns it.
func (s *Stack) Remove(h Handle) Entry {
	sl := &s.slots[h]
	if !sl.live || !sl.Pending {
		panic("correlate: Remove of a handle that is not a pending marker")
	}
	e := sl.Entry
	k := pendingKey{e.MatchingID, e.Paradigm}
	hs := s.pending[k]
	for i, x := range hs {
		if x == h {
			hs = append(hs[:i], hs[i+1:]...)
			break
		}
	}
	if len(hs) == 0 {
		delete(s.pending, k)
	} else {
		s.pending[k] = hs
	}
	s.release(h)
	return e
}

// Entries returns the entries of s, outermost first.
func (s *Stack) Entries() []Entry {
	out := make([]Entry, s.n)
	i := s.n
	for h := s.top; h != noHandle && s.n > 0; h = s.slots[h].prev {
		i--
		out[i] = s.slots[h].Entry
	}
	return out
}
