// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dbtest opens throwaway databases for tests.
package dbtest

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"flag"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"golang.org/x/ioperf/storage/db"
	_ "golang.org/x/ioperf/storage/db/sqlite3"
)

var mysqlDSN = flag.String("mysql", "", "connect to the MySQL server at `dsn` instead of in-memory SQLite")

// createEmptyMySQLDB makes a new, empty database for the test on the
// server named by *mysqlDSN.
func createEmptyMySQLDB(t *testing.T) (dsn string, cleanup func()) {
	cfg, err := mysql.ParseDSN(*mysqlDSN)
	if err != nil {
		t.Fatalf("parsing -mysql: %v", err)
	}

	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		t.Fatal(err)
	}
	name := "ioperf_test_" + base64.RawURLEncoding.EncodeToString(buf)
	name = sanitize(name)

	cfg.DBName = ""
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE `%s`", name)); err != nil {
		db.Close()
		t.Fatal(err)
	}

	t.Logf("Using database %q", name)

	cfg.DBName = name
	return cfg.FormatDSN(), func() {
		if _, err := db.Exec(fmt.Sprintf("DROP DATABASE `%s`", name)); err != nil {
			t.Error(err)
		}
		db.Close()
	}
}

// sanitize replaces characters that base64url can produce but that
// are awkward in MySQL identifiers.
func sanitize(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c == '-' {
			b[i] = '_'
		}
	}
	return string(b)
}

// NewDB makes a connection to a testing database, either sqlite3 or
// MySQL depending on the -mysql flag. cleanup must be called when
// done with the testing database, instead of calling db.Close()
func NewDB(t *testing.T) (*db.DB, func()) {
	driverName, dataSourceName := "sqlite3", ":memory:"
	var mysqlCleanup func()
	if *mysqlDSN != "" {
		driverName = "mysql"
		dataSourceName, mysqlCleanup = createEmptyMySQLDB(t)
	}
	d, err := db.OpenSQL(driverName, dataSourceName)
	if err != nil {
		if mysqlCleanup != nil {
			mysqlCleanup()
		}
		t.Fatalf("open database: %v", err)
	}

	cleanup := func() {
		d.Close()
		if mysqlCleanup != nil {
			mysqlCleanup()
		}
	}
	// Make sure the database really is empty.
	uploads, err := d.CountUploads()
	if err != nil {
		cleanup()
		t.Fatal(err)
	}
	if uploads != 0 {
		cleanup()
		t.Fatalf("found %d row(s) in Uploads, want 0", uploads)
	}
	return d, cleanup
}
