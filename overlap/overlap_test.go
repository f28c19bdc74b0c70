// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package overlap

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"golang.org/x/ioperf/ioop"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func w(start, end ioop.Timestamp, bytes float64) ioop.Operation {
	return ioop.Operation{Mode: ioop.Write, Paradigm: ioop.POSIX, Start: start, End: end, BytesRequested: bytes, BytesResult: bytes}
}

func TestSplit(t *testing.T) {
	pre, post, err := Split(w(0, 10, 100), w(3, 6, 60))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(w(0, 3, 100*3.0/7), *pre, approx); diff != "" {
		t.Errorf("pre-piece (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(w(6, 10, 100*4.0/7), *post, approx); diff != "" {
		t.Errorf("post-piece (-want +got):\n%s", diff)
	}
	if sum := pre.BytesRequested + post.BytesRequested; math.Abs(sum-100) > 1e-9 {
		t.Errorf("pre+post bytes requested = %v, want 100", sum)
	}
	if sum := pre.BytesResult + post.BytesResult; math.Abs(sum-100) > 1e-9 {
		t.Errorf("pre+post bytes result = %v, want 100", sum)
	}
}

func TestSplitPartial(t *testing.T) {
	// next runs past the end of cur: no post-piece.
	pre, post, err := Split(w(0, 10, 50), w(4, 12, 1))
	if err != nil {
		t.Fatal(err)
	}
	if post != nil {
		t.Errorf("unexpected post-piece %v", post)
	}
	if diff := cmp.Diff(w(0, 4, 50), *pre, approx); diff != "" {
		t.Errorf("pre-piece (-want +got):\n%s", diff)
	}

	// Degenerate: next covers cur entirely.
	pre, post, err = Split(w(2, 5, 50), w(2, 5, 1))
	if err != nil || pre != nil || post != nil {
		t.Errorf("Split of identical intervals = %v, %v, %v; want nil pieces", pre, post, err)
	}
}

func TestSplitPrecondition(t *testing.T) {
	for _, pair := range [][2]ioop.Operation{
		{w(0, 5, 1), w(5, 8, 1)}, // touching
		{w(0, 5, 1), w(7, 8, 1)},
		{w(7, 8, 1), w(0, 5, 1)},
	} {
		if _, _, err := Split(pair[0], pair[1]); !errors.Is(err, ioop.ErrPreconditionViolation) {
			t.Errorf("Split(%v, %v): got error %v, want ErrPreconditionViolation", pair[0], pair[1], err)
		}
	}
}

func TestResolve(t *testing.T) {
	for _, test := range []struct {
		name   string
		in     []ioop.Operation
		want   []ioop.Operation
		shadow int
	}{
		{
			"two-way",
			[]ioop.Operation{w(3, 6, 60), w(0, 10, 100)},
			[]ioop.Operation{w(0, 3, 100*3.0/7), w(3, 6, 60), w(6, 10, 100*4.0/7)},
			0,
		},
		{
			"touching",
			[]ioop.Operation{w(0, 5, 1), w(5, 8, 2)},
			[]ioop.Operation{w(0, 5, 1), w(5, 8, 2)},
			0,
		},
		{
			"staggered",
			[]ioop.Operation{w(0, 10, 10), w(5, 15, 10)},
			[]ioop.Operation{w(0, 5, 10), w(5, 15, 10)},
			0,
		},
		{
			"equal start",
			[]ioop.Operation{w(0, 4, 8), w(0, 10, 60)},
			[]ioop.Operation{w(0, 4, 8), w(4, 10, 60)},
			0,
		},
		{
			"nested three-way",
			// B inside A, C inside B.
			[]ioop.Operation{w(0, 100, 100), w(10, 50, 40), w(20, 30, 7)},
			[]ioop.Operation{
				w(0, 10, 100 * 10.0 / 60),
				w(10, 20, 40 * 10.0 / 30),
				w(20, 30, 7),
				w(30, 50, 40 * 20.0 / 30),
				w(50, 100, 100 * 50.0 / 60),
			},
			0,
		},
		{
			"tail resumes before next",
			[]ioop.Operation{w(0, 100, 100), w(10, 20, 5), w(40, 50, 5)},
			[]ioop.Operation{
				w(0, 10, 100 * 10.0 / 90),
				w(10, 20, 5),
				w(20, 40, 100 * 80.0 / 90 * 20 / 70),
				w(40, 50, 5),
				w(50, 100, 100 * 80.0 / 90 * 50 / 70),
			},
			0,
		},
		{
			"tail clipped by later op",
			// A's tail [20,100) is clipped to [30,100) by C and
			// keeps all of its bytes.
			[]ioop.Operation{w(0, 100, 90), w(10, 20, 5), w(15, 30, 5)},
			[]ioop.Operation{
				w(0, 10, 90 * 10.0 / 90),
				w(10, 15, 5),
				w(15, 30, 5),
				w(30, 100, 90 * 80.0 / 90),
			},
			0,
		},
		{
			"identical",
			[]ioop.Operation{w(0, 10, 10), w(0, 10, 20)},
			[]ioop.Operation{w(0, 10, 20)},
			1,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			r, err := Resolve(test.in)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.want, r.Ops, approx); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if len(r.Warnings) != test.shadow {
				t.Errorf("got warnings %v, want %d", r.Warnings, test.shadow)
			}
			for _, w := range r.Warnings {
				var se *ShadowedError
				if !errors.As(w, &se) {
					t.Errorf("warning %v is not a *ShadowedError", w)
				}
			}
		})
	}
}

func TestResolveDoesNotModifyInput(t *testing.T) {
	in := []ioop.Operation{w(3, 6, 60), w(0, 10, 100)}
	orig := append([]ioop.Operation(nil), in...)
	if _, err := Resolve(in); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(orig, in); diff != "" {
		t.Errorf("input modified (-before +after):\n%s", diff)
	}
}

func TestResolveMixedModes(t *testing.T) {
	r := w(0, 1, 1)
	r.Mode = ioop.Read
	if _, err := Resolve([]ioop.Operation{w(0, 5, 1), r}); !errors.Is(err, ioop.ErrPreconditionViolation) {
		t.Errorf("got error %v, want ErrPreconditionViolation", err)
	}
}

func TestResolveEmpty(t *testing.T) {
	r, err := Resolve(nil)
	if err != nil || len(r.Ops) != 0 || len(r.Warnings) != 0 {
		t.Errorf("Resolve(nil) = %+v, %v", r, err)
	}
}

func randomOps(rng *rand.Rand) []ioop.Operation {
	ops := make([]ioop.Operation, rng.Intn(8))
	for i := range ops {
		start := ioop.Timestamp(rng.Intn(30))
		end := start + 1 + ioop.Timestamp(rng.Intn(20))
		ops[i] = w(start, end, float64(rng.Intn(100)))
		ops[i].BytesResult = float64(rng.Intn(100))
	}
	return ops
}

func TestResolveProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for iter := 0; iter < 5000; iter++ {
		in := randomOps(rng)
		r, err := Resolve(in)
		if err != nil {
			t.Fatal(err)
		}

		// Sorted and non-overlapping.
		for i, op := range r.Ops {
			if op.Start >= op.End {
				t.Fatalf("%v: empty piece %v", in, op)
			}
			if i > 0 {
				prev := r.Ops[i-1]
				if prev.End > op.Start || prev.Start >= op.Start {
					t.Fatalf("%v: pieces %v and %v out of order or overlapping", in, prev, op)
				}
			}
		}

		// Bytes are conserved, counting shadowed pieces.
		var wantReq, wantRes, gotReq, gotRes float64
		for _, op := range in {
			wantReq += op.BytesRequested
			wantRes += op.BytesResult
		}
		for _, op := range r.Ops {
			gotReq += op.BytesRequested
			gotRes += op.BytesResult
		}
		for _, warn := range r.Warnings {
			p := warn.(*ShadowedError).Piece
			gotReq += p.BytesRequested
			gotRes += p.BytesResult
		}
		if math.Abs(wantReq-gotReq) > 1e-6 || math.Abs(wantRes-gotRes) > 1e-6 {
			t.Fatalf("%v: bytes %v/%v resolved to %v/%v", in, wantReq, wantRes, gotReq, gotRes)
		}

		// Resolving again changes nothing.
		r2, err := Resolve(r.Ops)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(r.Ops, r2.Ops); diff != "" || len(r2.Warnings) != 0 {
			t.Fatalf("%v: second resolution differs (-first +second):\n%s", in, diff)
		}
	}
}

func TestResolveByMode(t *testing.T) {
	rd := func(start, end ioop.Timestamp, bytes float64) ioop.Operation {
		op := w(start, end, bytes)
		op.Mode = ioop.Read
		return op
	}
	// Reads and writes overlap each other but are never merged.
	in := []ioop.Operation{w(0, 10, 10), rd(2, 4, 1), w(20, 30, 1), rd(3, 8, 5)}
	got, err := ResolveByMode(in)
	if err != nil {
		t.Fatal(err)
	}
	want := map[ioop.Mode]Resolution{
		ioop.Write: {Ops: []ioop.Operation{w(0, 10, 10), w(20, 30, 1)}},
		ioop.Read:  {Ops: []ioop.Operation{rd(2, 3, 1), rd(3, 8, 5)}},
	}
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	all, warnings, err := ResolveAll([][]ioop.Operation{in, nil})
	if err != nil {
		t.Fatal(err)
	}
	wantAll := [][]ioop.Operation{{rd(2, 3, 1), rd(3, 8, 5), w(0, 10, 10), w(20, 30, 1)}, nil}
	if diff := cmp.Diff(wantAll, all, approx); diff != "" || len(warnings) != 0 {
		t.Errorf("ResolveAll (-want +got):\n%s\nwarnings: %v", diff, warnings)
	}
}
