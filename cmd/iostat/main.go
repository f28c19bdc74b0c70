// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Iostat computes I/O statistics from event traces.
//
// Usage:
//
//	iostat [flags] trace...
//
// Iostat reads each trace file (or standard input if none are given),
// pairs I/O begin and complete events into operations, divides
// overlapping operations of the same mode between them, and prints a
// table with one row for each combination of I/O mode and paradigm.
// Each row gives the number of operations, a summary of the metric
// selected by -metric with its confidence interval, and the total
// number of bytes requested.
//
// The trace format is line oriented:
//
//	resolution: 1000000000
//	enter   <location> <time> <region>
//	iobegin <location> <time> <id> <paradigm> <mode> <bytes>
//	iocomplete <location> <time> <id> <paradigm> <bytes>
//	leave   <location> <time> <region>
//
// Each trace file is a separate trace with its own clock resolution:
// location 0 of one file is unrelated to location 0 of another.
// Locations are independent too: if the events of one location are
// inconsistent, iostat reports the error, leaves that location out of
// the statistics, and exits with status 1 after printing the report.
//
// The -metric flag selects what to summarize for each operation:
// bytes (requested), result (bytes transferred), duration (clock
// ticks), seconds, or rate (requested bytes per second).
//
// The -assume flag selects the summary: "nothing" (the default) uses
// the median and a distribution-free confidence interval, while
// "normal" uses the mean and a Student's t interval.
//
// The -format flag selects the output format: text, csv, or html.
//
// With -plot file.png, iostat also writes a box plot of the metric for
// each row.
//
// With -strict=false, I/O operations issued outside of any region are
// accepted instead of failing their location.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"
	"golang.org/x/ioperf/correlate"
	"golang.org/x/ioperf/internal/texttab"
	"golang.org/x/ioperf/iomath"
	"golang.org/x/ioperf/ioop"
	"golang.org/x/ioperf/ioplot"
	"golang.org/x/ioperf/ioproc"
	"golang.org/x/ioperf/iounit"
	"golang.org/x/ioperf/overlap"
	"golang.org/x/ioperf/tracefmt"
)

func main() {
	if err := iostat(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		if !errors.Is(err, errLocationsFailed) {
			fmt.Fprintf(os.Stderr, "iostat: %s\n", err)
		}
		os.Exit(1)
	}
}

// errLocationsFailed is returned after the report has been printed if
// some locations could not be correlated.
var errLocationsFailed = errors.New("some locations failed")

var assumptions = map[string]iomath.Assumption{
	"nothing": iomath.AssumeNothing,
	"normal":  iomath.AssumeNormal,
}

func iostat(w, wErr io.Writer, args []string) error {
	flags := flag.NewFlagSet("iostat", flag.ContinueOnError)
	flags.SetOutput(wErr)
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), `Usage: iostat [flags] trace...

iostat summarizes the I/O operations recorded in event traces. See
"go doc golang.org/x/ioperf/cmd/iostat" for details.

Flags:
`)
		flags.PrintDefaults()
	}
	flagMetric := flags.String("metric", "rate", "summarize `metric`: "+strings.Join(ioproc.MetricNames(), ", "))
	flagAssume := flags.String("assume", "nothing", "distribution `assumption`: nothing (median) or normal (mean)")
	flagConfidence := flags.Float64("confidence", 0.95, "confidence `level` of intervals")
	flagResolve := flags.Bool("resolve", true, "divide overlapping operations of the same mode")
	flagFormat := flags.String("format", "text", "print results in `format`: text, csv, or html")
	flagPlot := flags.String("plot", "", "write a box plot to `file` (PNG)")
	flagStrict := flags.Bool("strict", true, "fail locations that issue I/O outside of any region")
	flagJobs := flags.Int("j", runtime.GOMAXPROCS(0), "correlate locations with `n` workers")
	flagVerbose := flags.Bool("v", false, "log warnings and progress")
	if err := flags.Parse(args); err != nil {
		return err
	}

	level := slog.LevelError
	if *flagVerbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(wErr, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: dropTime,
	}))

	assume, ok := assumptions[*flagAssume]
	if !ok {
		return fmt.Errorf("unknown -assume %q", *flagAssume)
	}
	if !(*flagConfidence > 0 && *flagConfidence < 1) {
		return fmt.Errorf("-confidence must be between 0 and 1")
	}
	switch *flagFormat {
	case "text", "csv", "html":
	default:
		return fmt.Errorf("unknown -format %q", *flagFormat)
	}
	// Validate the metric name before reading any input.
	metric, err := ioproc.NewMetric(*flagMetric, ioop.DefaultResolution)
	if err != nil {
		return err
	}

	// Correlate.
	files := &tracefmt.Files{Paths: flags.Args(), AllowStdin: true}
	opts := correlate.Options{AllowTopLevelIO: !*flagStrict, Workers: *flagJobs}
	trace, err := correlate.Process(context.Background(), files, opts)
	if err != nil {
		return err
	}

	failed := false
	for _, l := range trace.Locations {
		file := files.InputName(l.Input)
		if l.Err != nil {
			failed = true
			logger.Error("location failed", "file", file, "location", l.Location, "err", l.Err, "dropped", l.Dropped)
			continue
		}
		logger.Debug("location done", "file", file, "location", l.Location, "ops", len(l.Ops))
	}
	for _, err := range trace.SyntaxErrors {
		logger.Error("syntax error", "err", err)
	}
	for _, err := range trace.Warnings() {
		logger.Warn("incomplete trace", "err", err)
	}
	verbs := maps.Keys(trace.Skipped)
	slices.Sort(verbs)
	for _, verb := range verbs {
		logger.Debug("skipped events", "verb", verb, "count", trace.Skipped[verb])
	}

	// Resolve overlaps and aggregate each input with its own clock.
	values := make(map[ioproc.Key][]float64)
	bytes := make(map[ioproc.Key][]float64)
	for _, in := range trace.Inputs() {
		resolution, err := tracefmt.Resolution(files.InputConfig(in))
		if err != nil {
			return fmt.Errorf("%s: %w", files.InputName(in), err)
		}
		m, err := ioproc.NewMetric(*flagMetric, resolution)
		if err != nil {
			return err
		}
		opsets := trace.InputOperations(in)
		if *flagResolve {
			var warnings []error
			opsets, warnings, err = overlap.ResolveAll(opsets)
			if err != nil {
				return err
			}
			for _, err := range warnings {
				logger.Warn("overlap", "file", files.InputName(in), "err", err)
			}
		}
		ioproc.Merge(values, ioproc.Aggregate(m.Value, opsets...))
		ioproc.Merge(bytes, ioproc.Aggregate(func(op *ioop.Operation) float64 { return op.BytesRequested }, opsets...))
	}

	tab := buildTable(values, bytes, metric, assume, *flagConfidence, *flagFormat == "csv", logger)
	switch *flagFormat {
	case "text":
		err = tab.Text(w)
	case "csv":
		err = tab.CSV(w)
	case "html":
		err = texttab.HTML(w, []*texttab.Table{tab})
	}
	if err != nil {
		return err
	}

	if *flagPlot != "" {
		if err := writePlot(*flagPlot, values, metric); err != nil {
			return err
		}
	}

	if failed {
		return errLocationsFailed
	}
	return nil
}

// buildTable summarizes values, which must use metric's unit, into a
// table with one row per key. If raw is set, numbers are printed
// exactly and intervals as separate columns.
func buildTable(values, bytes map[ioproc.Key][]float64, metric ioproc.Metric, assume iomath.Assumption, confidence float64, raw bool, logger *slog.Logger) *texttab.Table {
	label := assume.SummaryLabel() + " " + metric.Name
	var tab *texttab.Table
	if raw {
		tab = texttab.New("", "mode", "paradigm", "n", label+" ("+metric.Unit+")", "lo", "hi", "bytes")
	} else {
		tab = texttab.New(fmt.Sprintf("%s (%s, %v confidence)", label, metric.Unit, confidence), "operation", "n", label, "±", "bytes")
		tab.SetAlign(1, texttab.Right).SetAlign(2, texttab.Right).SetAlign(4, texttab.Right)
	}

	keys := ioproc.Keys(values)
	summaries := make([]iomath.Summary, len(keys))
	centers := make([]float64, len(keys))
	for i, k := range keys {
		s := iomath.NewSample(values[k])
		summaries[i] = assume.Summary(s, confidence)
		centers[i] = summaries[i].Center
		for _, err := range append(s.Warnings, summaries[i].Warnings...) {
			logger.Warn("summary", "key", k.String(), "err", err)
		}
	}

	scaler := iounit.CommonScale(centers, iounit.ClassOf(metric.Unit))
	notes := make(map[string]int)
	for i, k := range keys {
		total := 0.0
		for _, b := range bytes[k] {
			total += b
		}
		sum := summaries[i]
		if raw {
			tab.Row(k.Mode.String(), k.Paradigm.String(), strconv.Itoa(len(values[k])),
				formatRaw(sum.Center), formatRaw(sum.Lo), formatRaw(sum.Hi), formatRaw(total))
			continue
		}
		rng := "±" + sum.PctRangeString()
		for _, err := range sum.Warnings {
			rng += " " + note(tab, notes, err.Error())
		}
		tab.Row(k.String(), strconv.Itoa(len(values[k])), scaler.Format(sum.Center)+metric.Unit, rng, iounit.Format(total, "B"))
	}
	if len(keys) == 0 && !raw {
		tab.Notes = append(tab.Notes, "no I/O operations")
	}
	return tab
}

// note returns the marker of a footnote with text msg, adding it to
// tab if it is new.
func note(tab *texttab.Table, notes map[string]int, msg string) string {
	n, ok := notes[msg]
	if !ok {
		n = len(notes) + 1
		notes[msg] = n
		tab.Notes = append(tab.Notes, fmt.Sprintf("(%d) %s", n, msg))
	}
	return fmt.Sprintf("(%d)", n)
}

func formatRaw(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return ""
	}
	return iounit.NoOpScaler.Format(v)
}

func writePlot(path string, values map[ioproc.Key][]float64, metric ioproc.Metric) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return ioplot.BoxPlot(f, values, ioplot.Options{Title: metric.Name, Unit: metric.Unit})
}

// dropTime removes the time attribute from log records so output is
// reproducible.
func dropTime(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && len(groups) == 0 {
		return slog.Attr{}
	}
	return a
}
