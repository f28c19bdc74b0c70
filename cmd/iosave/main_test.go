// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/ioperf/storage/db"
)

func TestParseConfig(t *testing.T) {
	cfg, err := parseConfig(nil)
	if err != nil {
		t.Fatal(err)
	}
	if want := (config{Driver: "sqlite3", DSN: "ioperf.db"}); cfg != want {
		t.Errorf("default config = %+v, want %+v", cfg, want)
	}

	cfg, err = parseConfig([]string{"IOPERF_DB_DRIVER=mysql", "IOPERF_DB_DSN=u:p@/db", "IOPERF_LABEL=nightly", "UNRELATED=1"})
	if err != nil {
		t.Fatal(err)
	}
	if want := (config{Driver: "mysql", DSN: "u:p@/db", Label: "nightly"}); cfg != want {
		t.Errorf("config = %+v, want %+v", cfg, want)
	}
}

func TestSaveAndShow(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")
	environ := []string{"IOPERF_DB_DSN=" + dsn}

	var out, outErr bytes.Buffer
	trace := filepath.Join("..", "iostat", "testdata", "basic.trace")
	if err := iosave(&out, &outErr, []string{"-label", "basic", trace}, environ); err != nil {
		t.Fatalf("iosave: %v\n%s", err, outErr.String())
	}
	if want := "upload 1: 4 operations\n"; out.String() != want {
		t.Fatalf("iosave printed %q, want %q", out.String(), want)
	}

	out.Reset()
	if err := iosave(&out, &outErr, []string{"-show", "1"}, environ); err != nil {
		t.Fatalf("iosave -show: %v\n%s", err, outErr.String())
	}
	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("iosave -show printed %d lines, want 4:\n%s", len(lines), out.String())
	}
	// Ordered by location, then start time.
	for i, want := range []string{"POSIX read @0 [10, 20)", "POSIX read @0 [30, 50)", "MPI-IO write @0 [60, 100)", "POSIX read @1 [5, 35)"} {
		if !strings.HasPrefix(lines[i], want) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], want)
		}
	}
}

func TestSaveFailedLocation(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")
	var out, outErr bytes.Buffer
	trace := filepath.Join("..", "iostat", "testdata", "broken.trace")
	err := iosave(&out, &outErr, []string{"-dsn", dsn, trace}, nil)
	if !errors.Is(err, errLocationsFailed) {
		t.Fatalf("got error %v, want %v", err, errLocationsFailed)
	}
	// The operations of the good location are still stored.
	if want := "upload 1: 1 operations\n"; out.String() != want {
		t.Errorf("iosave printed %q, want %q", out.String(), want)
	}
	if _, err := os.Stat(dsn); err != nil {
		t.Errorf("database not created: %v", err)
	}
}

func TestShowWithTraces(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")
	var out, outErr bytes.Buffer
	if err := iosave(&out, &outErr, []string{"-dsn", dsn, "-show", "1", "x.trace"}, nil); err == nil {
		t.Errorf("iosave -show with traces: want error")
	}
}

func TestSaveSeparateFiles(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")
	var out, outErr bytes.Buffer
	trace := filepath.Join("..", "iostat", "testdata", "basic.trace")
	if err := iosave(&out, &outErr, []string{"-dsn", dsn, trace, trace}, nil); err != nil {
		t.Fatalf("iosave: %v\n%s", err, outErr.String())
	}
	if want := "upload 1: 8 operations\n"; out.String() != want {
		t.Errorf("iosave printed %q, want %q", out.String(), want)
	}
}

func TestSaveAtomic(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "test.db")
	d, err := db.OpenSQL("sqlite3", dsn)
	if err != nil {
		t.Fatal(err)
	}
	d.Close()
	// Reject the operation of location 1 after those of location 0
	// have been inserted.
	raw, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatal(err)
	}
	_, err = raw.Exec(`CREATE TRIGGER RejectLocation1 BEFORE INSERT ON Operations
WHEN NEW.Location = 1 BEGIN SELECT RAISE(ABORT, 'location 1 rejected'); END`)
	raw.Close()
	if err != nil {
		t.Fatal(err)
	}

	var out, outErr bytes.Buffer
	trace := filepath.Join("..", "iostat", "testdata", "basic.trace")
	err = iosave(&out, &outErr, []string{"-dsn", dsn, trace}, nil)
	if err == nil || !strings.Contains(err.Error(), "location 1 rejected") {
		t.Fatalf("got error %v, want insert failure", err)
	}
	if out.Len() != 0 {
		t.Errorf("iosave printed %q after failing", out.String())
	}

	d, err = db.OpenSQL("sqlite3", dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	if n, err := d.CountUploads(); err != nil || n != 0 {
		t.Errorf("CountUploads() = %d, %v, want 0", n, err)
	}
	if ops, err := d.QueryOperations(context.Background(), "1"); err != nil || len(ops) != 0 {
		t.Errorf("upload 1 holds %d operations (%v), want none", len(ops), err)
	}
}
