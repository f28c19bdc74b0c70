// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package overlap converts temporally overlapping I/O operations into
// a non-overlapping sequence that conserves byte counts.
//
// When two operations of the same mode overlap, the one that starts
// later is kept intact and the earlier one is cut around it. The
// bytes of the earlier operation are divided among its remaining
// pieces in proportion to their durations. This is a fixed policy;
// it does not claim to reconstruct how the operations were actually
// interleaved.
package overlap

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"golang.org/x/ioperf/ioop"
)

// Split cuts cur around next, which must overlap it. It returns the
// part of cur before next and the part after next. A part that would
// have zero duration is nil.
//
// The byte counts of cur are divided between the two parts in
// proportion to their durations. If neither part has any duration,
// both are nil and cur's bytes are not carried anywhere.
//
// If cur and next do not overlap, Split returns an error wrapping
// ioop.ErrPreconditionViolation.
func Split(cur, next ioop.Operation) (pre, post *ioop.Operation, err error) {
	if !cur.Overlaps(next) {
		return nil, nil, fmt.Errorf("%w: split of non-overlapping operations [%d, %d) and [%d, %d)", ioop.ErrPreconditionViolation, cur.Start, cur.End, next.Start, next.End)
	}
	preDur := max0(next.Start - cur.Start)
	postDur := max0(cur.End - next.End)
	total := float64(preDur + postDur)
	if total == 0 {
		return nil, nil, nil
	}
	if preDur > 0 {
		p := cur
		p.End = next.Start
		p.BytesRequested = cur.BytesRequested * float64(preDur) / total
		p.BytesResult = cur.BytesResult * float64(preDur) / total
		pre = &p
	}
	if postDur > 0 {
		p := cur
		p.Start = next.End
		p.BytesRequested = cur.BytesRequested * float64(postDur) / total
		p.BytesResult = cur.BytesResult * float64(postDur) / total
		post = &p
	}
	return pre, post, nil
}

func max0(d ioop.Timestamp) ioop.Timestamp {
	if d < 0 {
		return 0
	}
	return d
}

// A Resolution is the non-overlapping form of a list of operations.
type Resolution struct {
	// Ops are sorted by start time and pairwise non-overlapping.
	Ops []ioop.Operation

	// Warnings lists pieces of operations that were completely
	// covered by later-starting operations, as *ShadowedErrors.
	Warnings []error
}

// A ShadowedError reports part of an operation that lies entirely
// within another operation. Its bytes could not be assigned to any
// piece of the resulting sequence.
type ShadowedError struct {
	Piece ioop.Operation
	By    ioop.Operation
}

func (e *ShadowedError) Error() string {
	return fmt.Sprintf("location %d: %s [%d, %d) with %g bytes is covered by [%d, %d)", e.Piece.Location, e.Piece.Mode, e.Piece.Start, e.Piece.End, e.Piece.BytesRequested, e.By.Start, e.By.End)
}

// Resolve returns ops as a non-overlapping sequence. All operations
// must have the same mode; otherwise Resolve returns an error wrapping
// ioop.ErrPreconditionViolation. ops is not modified.
//
// Operations are processed in order of start time, longer operations
// first among those that start together. Each operation is compared
// with the current one: if they overlap, the part of the current
// operation before the next one is emitted, the part after it is set
// aside, and the next operation becomes current. Set-aside parts
// resume once the operations covering them end. Resolving a sorted,
// non-overlapping list returns it unchanged.
func Resolve(ops []ioop.Operation) (Resolution, error) {
	var r Resolution
	if len(ops) == 0 {
		return r, nil
	}
	for _, op := range ops[1:] {
		if op.Mode != ops[0].Mode {
			return r, fmt.Errorf("%w: cannot resolve %s and %s operations together", ioop.ErrPreconditionViolation, ops[0].Mode, op.Mode)
		}
	}

	sorted := slices.Clone(ops)
	slices.SortStableFunc(sorted, func(a, b ioop.Operation) int {
		switch {
		case a.Start != b.Start:
			return cmpTime(a.Start, b.Start)
		default:
			return cmpTime(b.End, a.End)
		}
	})

	s := sweep{cur: sorted[0]}
	for _, next := range sorted[1:] {
		if err := s.add(next); err != nil {
			return Resolution{}, err
		}
	}
	s.out = append(s.out, s.cur)
	for i := len(s.tails) - 1; i >= 0; i-- {
		s.out = append(s.out, s.tails[i])
	}
	r.Ops, r.Warnings = s.out, s.warnings
	return r, nil
}

func cmpTime(a, b ioop.Timestamp) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

type sweep struct {
	cur ioop.Operation
	out []ioop.Operation

	// tails are the set-aside trailing parts of operations that
	// were cut around a later one. They are disjoint, ordered with
	// the earliest last, and all start at or after cur.End.
	tails []ioop.Operation

	warnings []error
}

func (s *sweep) add(next ioop.Operation) error {
	for {
		if s.cur.End > next.Start {
			pre, post, err := Split(s.cur, next)
			if err != nil {
				return err
			}
			if pre != nil {
				s.out = append(s.out, *pre)
			}
			if post != nil {
				s.tails = append(s.tails, *post)
			} else if pre == nil {
				s.warnings = append(s.warnings, &ShadowedError{s.cur, next})
			}
			break
		}
		s.out = append(s.out, s.cur)
		if n := len(s.tails); n > 0 && s.tails[n-1].Start < next.Start {
			s.cur = s.tails[n-1]
			s.tails = s.tails[:n-1]
			continue
		}
		break
	}
	s.cur = next
	return s.clip(next)
}

// clip cuts the set-aside tails that overlap next.
func (s *sweep) clip(next ioop.Operation) error {
	for n := len(s.tails); n > 0; n = len(s.tails) {
		t := s.tails[n-1]
		if t.Start >= next.End {
			return nil
		}
		if t.End > next.End {
			_, post, err := Split(t, next)
			if err != nil {
				return err
			}
			s.tails[n-1] = *post
			return nil
		}
		s.warnings = append(s.warnings, &ShadowedError{t, next})
		s.tails = s.tails[:n-1]
	}
	return nil
}

// ResolveByMode resolves the operations of each mode in ops
// independently.
func ResolveByMode(ops []ioop.Operation) (map[ioop.Mode]Resolution, error) {
	byMode := make(map[ioop.Mode][]ioop.Operation)
	for _, op := range ops {
		byMode[op.Mode] = append(byMode[op.Mode], op)
	}
	out := make(map[ioop.Mode]Resolution, len(byMode))
	modes := maps.Keys(byMode)
	slices.Sort(modes)
	for _, m := range modes {
		r, err := Resolve(byMode[m])
		if err != nil {
			return nil, err
		}
		out[m] = r
	}
	return out, nil
}

// ResolveAll resolves every location's operations by mode. For each
// input list it returns the resolved operations of each mode in mode
// order, each sorted by start time. The warnings of all resolutions
// are returned together.
func ResolveAll(opsets [][]ioop.Operation) (resolved [][]ioop.Operation, warnings []error, err error) {
	resolved = make([][]ioop.Operation, 0, len(opsets))
	for _, ops := range opsets {
		byMode, err := ResolveByMode(ops)
		if err != nil {
			return nil, nil, err
		}
		var loc []ioop.Operation
		for _, m := range ioop.Modes() {
			r, ok := byMode[m]
			if !ok {
				continue
			}
			loc = append(loc, r.Ops...)
			warnings = append(warnings, r.Warnings...)
		}
		resolved = append(resolved, loc)
	}
	return resolved, warnings, nil
}
