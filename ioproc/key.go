// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ioproc

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"golang.org/x/ioperf/ioop"
)

// A Key identifies a group of operations: those with the same mode
// and paradigm. Keys are comparable.
type Key struct {
	Mode     ioop.Mode
	Paradigm ioop.Paradigm
}

// KeyOf returns the group key of op.
func KeyOf(op *ioop.Operation) Key {
	return Key{op.Mode, op.Paradigm}
}

func (k Key) String() string {
	return k.Paradigm.String() + " " + k.Mode.String()
}

// Less reports whether k sorts before o: by mode, then by paradigm.
func (k Key) Less(o Key) bool {
	if k.Mode != o.Mode {
		return k.Mode < o.Mode
	}
	return k.Paradigm < o.Paradigm
}

// SortKeys sorts keys using Key.Less.
func SortKeys(keys []Key) {
	slices.SortFunc(keys, func(a, b Key) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
}

// Keys returns the keys of m in sorted order.
func Keys[V any](m map[Key][]V) []Key {
	keys := maps.Keys(m)
	SortKeys(keys)
	return keys
}
