// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iounit

import (
	"fmt"
	"math"
	"strconv"
)

// A Scaler represents a scaling factor for a number and
// its scientific representation.
type Scaler struct {
	Prec   int     // Digits after the decimal point
	Factor float64 // Unscaled value of 1 Prefix (e.g., 1 k => 1000)
	Prefix string  // Unit prefix ("k", "M", "Ki", etc)
}

// Format formats val and appends the unit prefix according to the
// given scale. For example, if the Scaler has class Decimal,
// Format(123456789) returns "123.5M".
func (s Scaler) Format(val float64) string {
	buf := make([]byte, 0, 20)
	buf = strconv.AppendFloat(buf, val/s.Factor, 'f', s.Prec, 64)
	buf = append(buf, s.Prefix...)
	return string(buf)
}

// NoOpScaler formats numbers with the fewest digits that represent
// the exact value, and no prefix. It is meant for machine-readable
// output such as CSV.
var NoOpScaler = Scaler{-1, 1, ""}

// A prefix is one step of a prefix ladder, with the smallest values
// that print as 100.0, 10.00 and 1.000 in it.
type prefix struct {
	factor        float64
	name          string
	t100, t10, t1 float64
}

var (
	siPrefixes  = ladder(10, 3, 12, []string{"T", "G", "M", "k", "", "m", "µ", "n"})
	iecPrefixes = ladder(2, 10, 40, []string{"Ti", "Gi", "Mi", "Ki", ""})
)

// ladder returns prefixes for powers base^top, base^(top-step), ...
//
// Decimal thresholds are derived by parsing their printed form, so
// that they agree exactly with how Format rounds. Binary ones are
// exact multiples of a power of two.
func ladder(base float64, step, top int, names []string) []prefix {
	var out []prefix
	exp := top
	for _, name := range names {
		f := math.Pow(base, float64(exp))
		thresh := func(v float64) float64 {
			if base == 10 {
				t, _ := strconv.ParseFloat(fmt.Sprintf("%ve%d", v, exp), 64)
				return t
			}
			return v * f
		}
		out = append(out, prefix{f, name, thresh(99.995), thresh(9.9995), thresh(0.99995)})
		exp -= step
	}
	return out
}

// Scale formats val using at least three significant digits,
// appending an SI or binary prefix.
func Scale(val float64, cls Class) string {
	return CommonScale([]float64{val}, cls).Format(val)
}

// CommonScale returns a Scaler that shows at least three significant
// digits for every value in vals.
func CommonScale(vals []float64, cls Class) Scaler {
	// The scale is set by the non-zero value closest to zero.
	var min float64
	for _, v := range vals {
		v = math.Abs(v)
		if v != 0 && !math.IsInf(v, 0) && !math.IsNaN(v) && (min == 0 || v < min) {
			min = v
		}
	}
	if min == 0 {
		return Scaler{3, 1, ""}
	}

	var prefixes []prefix
	switch cls {
	default:
		panic(fmt.Sprintf("bad Class %v", cls))
	case Decimal:
		prefixes = siPrefixes
	case Binary:
		prefixes = iecPrefixes
	}

	for _, p := range prefixes {
		switch {
		case min >= p.t100:
			return Scaler{1, p.factor, p.name}
		case min >= p.t10:
			return Scaler{2, p.factor, p.name}
		case min >= p.t1:
			return Scaler{3, p.factor, p.name}
		}
	}
	// Smaller than the smallest prefix: add digits after the
	// decimal point until three are significant, up to ten.
	p := prefixes[len(prefixes)-1]
	prec := 3
	for v := min / p.factor; v < 0.99995 && prec < 10; v *= 10 {
		prec++
	}
	return Scaler{prec, p.factor, p.name}
}
