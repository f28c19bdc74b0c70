// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Iosave stores the I/O operations of event traces in a database.
//
// Usage:
//
//	iosave [flags] trace...
//	iosave [flags] -show uploadid
//
// Iosave correlates and resolves the traces like iostat and stores the
// resulting operations of all files as a single new upload, printing
// its ID. Either all operations are stored or none are. With -show,
// it prints the operations of an existing upload instead.
//
// The database is configured by the environment:
//
//	IOPERF_DB_DRIVER  database driver, sqlite3 (default) or mysql
//	IOPERF_DB_DSN     data source name (default "ioperf.db")
//	IOPERF_LABEL      label to store with uploads
//
// The -driver, -dsn, and -label flags override these.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/caarlos0/env/v11"
	_ "github.com/go-sql-driver/mysql"
	"golang.org/x/exp/slog"
	"golang.org/x/ioperf/correlate"
	"golang.org/x/ioperf/ioop"
	"golang.org/x/ioperf/overlap"
	"golang.org/x/ioperf/storage/db"
	_ "golang.org/x/ioperf/storage/db/sqlite3"
	"golang.org/x/ioperf/tracefmt"
)

func main() {
	if err := iosave(os.Stdout, os.Stderr, os.Args[1:], os.Environ()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		if !errors.Is(err, errLocationsFailed) {
			fmt.Fprintf(os.Stderr, "iosave: %s\n", err)
		}
		os.Exit(1)
	}
}

var errLocationsFailed = errors.New("some locations failed")

// config is the database configuration taken from the environment.
type config struct {
	Driver string `env:"IOPERF_DB_DRIVER" envDefault:"sqlite3"`
	DSN    string `env:"IOPERF_DB_DSN" envDefault:"ioperf.db"`
	Label  string `env:"IOPERF_LABEL"`
}

func parseConfig(environ []string) (config, error) {
	var cfg config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: env.ToMap(environ)}); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	return cfg, nil
}

func iosave(w, wErr io.Writer, args, environ []string) error {
	cfg, err := parseConfig(environ)
	if err != nil {
		return err
	}

	flags := flag.NewFlagSet("iosave", flag.ContinueOnError)
	flags.SetOutput(wErr)
	flags.Usage = func() {
		fmt.Fprintf(flags.Output(), `Usage: iosave [flags] trace...
       iosave [flags] -show uploadid

Flags:
`)
		flags.PrintDefaults()
	}
	flags.StringVar(&cfg.Driver, "driver", cfg.Driver, "database `driver` (sqlite3 or mysql)")
	flags.StringVar(&cfg.DSN, "dsn", cfg.DSN, "data source `name`")
	flags.StringVar(&cfg.Label, "label", cfg.Label, "`label` to store with the upload")
	flagShow := flags.String("show", "", "print the operations of upload `id` instead of storing")
	flagResolve := flags.Bool("resolve", true, "divide overlapping operations of the same mode")
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
	logger := slog.New(slog.NewTextHandler(wErr, &slog.HandlerOptions{Level: level}))

	d, err := db.OpenSQL(cfg.Driver, cfg.DSN)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer d.Close()
	ctx := context.Background()

	if *flagShow != "" {
		if flags.NArg() > 0 {
			return fmt.Errorf("-show does not take trace files")
		}
		ops, err := d.QueryOperations(ctx, *flagShow)
		if err != nil {
			return err
		}
		for _, op := range ops {
			fmt.Fprintf(w, "%v\n", op)
		}
		return nil
	}

	files := &tracefmt.Files{Paths: flags.Args(), AllowStdin: true}
	opts := correlate.Options{AllowTopLevelIO: !*flagStrict, Workers: *flagJobs}
	trace, err := correlate.Process(ctx, files, opts)
	if err != nil {
		return err
	}
	failed := false
	for _, l := range trace.Locations {
		if l.Err != nil {
			failed = true
			logger.Error("location failed", "file", files.InputName(l.Input), "location", l.Location, "err", l.Err)
		}
	}
	for _, err := range trace.SyntaxErrors {
		logger.Error("syntax error", "err", err)
	}
	for _, err := range trace.Warnings() {
		logger.Warn("incomplete trace", "err", err)
	}

	var ops []ioop.Operation
	for _, in := range trace.Inputs() {
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
		for _, locOps := range opsets {
			ops = append(ops, locOps...)
		}
	}

	u, err := store(ctx, d, cfg.Label, ops)
	if err != nil {
		return err
	}
	logger.Debug("stored upload", "upload", u.ID, "driver", cfg.Driver)
	fmt.Fprintf(w, "upload %s: %d operations\n", u.ID, len(ops))

	if failed {
		return errLocationsFailed
	}
	return nil
}

// store saves ops as a new upload labeled label. If the operations
// cannot be inserted, the upload is removed again.
func store(ctx context.Context, d *db.DB, label string, ops []ioop.Operation) (*db.Upload, error) {
	u, err := d.NewUpload(ctx, label)
	if err != nil {
		return nil, err
	}
	if err := u.InsertOperations(ctx, ops); err != nil {
		if derr := d.DeleteUpload(ctx, u.ID); derr != nil {
			return nil, fmt.Errorf("%w (removing upload %s: %v)", err, u.ID, derr)
		}
		return nil, err
	}
	return u, nil
}
