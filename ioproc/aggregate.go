// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ioproc groups per-operation values by mode and paradigm.
//
// Aggregate is a pure fold: it projects every operation to a value
// and collects the values of each (mode, paradigm) group in traversal
// order. Because the traversal order of the input is fixed (ascending
// location, then operation order within a location), the output is
// reproducible regardless of how the operations were produced.
package ioproc

import "golang.org/x/ioperf/ioop"

// Aggregate applies project to every operation of every list in
// opsets, in order, and groups the results by Key. Every key in the
// result has at least one value. Aggregate does not modify opsets.
func Aggregate[V any](project func(op *ioop.Operation) V, opsets ...[]ioop.Operation) map[Key][]V {
	out := make(map[Key][]V)
	for _, ops := range opsets {
		for i := range ops {
			op := &ops[i]
			k := KeyOf(op)
			out[k] = append(out[k], project(op))
		}
	}
	return out
}

// Merge appends the groups of src to those of dst and returns dst.
// Merging the partial results of consecutive runs of opsets gives the
// same result as a single Aggregate over all of them.
func Merge[V any](dst, src map[Key][]V) map[Key][]V {
	if dst == nil {
		dst = make(map[Key][]V, len(src))
	}
	for k, vs := range src {
		if len(vs) == 0 {
			continue
		}
		dst[k] = append(dst[k], vs...)
	}
	return dst
}

// Count returns the number of values in each group.
func Count[V any](m map[Key][]V) map[Key]int {
	out := make(map[Key]int, len(m))
	for k, vs := range m {
		out[k] = len(vs)
	}
	return out
}
