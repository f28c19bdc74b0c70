// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// tracefilter reads I/O event traces from input files, filters them,
// and writes the matching events to stdout. If no inputs are provided,
// it reads from stdin.
//
// Usage:
//
//	tracefilter [-loc list] [-kinds list] [inputs...]
//
// The -loc flag takes a comma-separated list of locations and
// inclusive ranges, such as "0,4-7". The -kinds flag takes a
// comma-separated list of event verbs, such as "iobegin,iocomplete".
// Configuration lines are always copied.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/ioperf/ioop"
	"golang.org/x/ioperf/tracefmt"
)

func main() {
	if err := tracefilter(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "tracefilter: %s\n", err)
		os.Exit(1)
	}
}

func tracefilter(w, wErr io.Writer, args []string) error {
	flags := flag.NewFlagSet("tracefilter", flag.ContinueOnError)
	flags.SetOutput(wErr)
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), `Usage: tracefilter [flags] [inputs...]

tracefilter reads I/O event traces from input files, filters them,
and writes the matching events to stdout. If no inputs are provided,
it reads from stdin.

Flags:
`)
		flags.PrintDefaults()
	}
	flagLoc := flags.String("loc", "", "keep only events of locations in `list` (e.g. 0,4-7)")
	flagKinds := flags.String("kinds", "", "keep only events with verbs in `list` (e.g. iobegin,iocomplete)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	locs, err := parseLocations(*flagLoc)
	if err != nil {
		return err
	}
	var verbs map[string]bool
	if *flagKinds != "" {
		verbs = make(map[string]bool)
		for _, v := range strings.Split(*flagKinds, ",") {
			verbs[strings.TrimSpace(v)] = true
		}
	}

	writer := tracefmt.NewWriter(w)
	files := tracefmt.Files{Paths: flags.Args(), AllowStdin: true}
	for files.Scan() {
		rec := files.Result()
		switch rec := rec.(type) {
		case *tracefmt.SyntaxError:
			// Non-fatal parse error. Warn but keep going.
			fmt.Fprintln(wErr, rec)
			continue
		case *tracefmt.Event:
			if locs != nil && !locs.contains(rec.Location) {
				continue
			}
			if verbs != nil && !verbs[rec.Verb] {
				continue
			}
		}

		if err := writer.Write(rec); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}
	return files.Err()
}

// A locSet is a set of location ranges.
type locSet []struct{ lo, hi ioop.Location }

func (s locSet) contains(l ioop.Location) bool {
	for _, r := range s {
		if r.lo <= l && l <= r.hi {
			return true
		}
	}
	return false
}

// parseLocations parses a list like "0,4-7". An empty list returns a
// nil set, which callers treat as matching everything.
func parseLocations(list string) (locSet, error) {
	if list == "" {
		return nil, nil
	}
	var s locSet
	for _, f := range strings.Split(list, ",") {
		loS, hiS, isRange := strings.Cut(strings.TrimSpace(f), "-")
		lo, err := strconv.ParseUint(loS, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad location %q in -loc", f)
		}
		hi := lo
		if isRange {
			hi, err = strconv.ParseUint(hiS, 10, 64)
			if err != nil || hi < lo {
				return nil, fmt.Errorf("bad location range %q in -loc", f)
			}
		}
		s = append(s, struct{ lo, hi ioop.Location }{ioop.Location(lo), ioop.Location(hi)})
	}
	return s, nil
}
