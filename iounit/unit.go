// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package iounit formats I/O quantities such as byte counts,
// durations and transfer rates with SI or binary prefixes.
package iounit

import (
	"fmt"
	"strings"
)

// A Class specifies what class of unit prefixes are in use.
type Class int

const (
	// Decimal indicates values of a given unit should be scaled
	// by powers of 1000, using SI prefixes such as "k" and "M".
	Decimal Class = iota

	// Binary indicates values of a given unit should be scaled by
	// powers of 1024, using IEC prefixes such as "Ki" and "Mi".
	Binary
)

func (c Class) String() string {
	switch c {
	case Decimal:
		return "Decimal"
	case Binary:
		return "Binary"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

var byteUnits = map[string]bool{"B": true, "bytes": true}

// ClassOf returns the Class of unit. If unit counts bytes in its
// numerator, as in "B" or "B/s", this is Binary. Otherwise, it is
// Decimal.
func ClassOf(unit string) Class {
	num, _, _ := strings.Cut(unit, "/")
	for _, tok := range strings.FieldsFunc(num, func(r rune) bool { return r == '*' || r == '-' || r == ' ' }) {
		if byteUnits[tok] {
			return Binary
		}
	}
	return Decimal
}

// Format formats val with at least three significant digits,
// followed by the prefixed unit, as in "4.000KiB".
func Format(val float64, unit string) string {
	return Scale(val, ClassOf(unit)) + unit
}
