// Copyright 2016 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package db stores resolved I/O operations in a SQL database.
package db

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"golang.org/x/ioperf/ioop"
)

// DB is a high-level interface to a database of uploaded operations.
// It's safe for concurrent use by multiple goroutines.
type DB struct {
	sql *sql.DB // underlying database connection
	// prepared statements
	insertUpload    *sql.Stmt
	insertOperation *sql.Stmt
}

// OpenSQL creates a DB backed by a SQL database. The parameters are
// the same as the parameters for sql.Open. Only mysql and sqlite3 are
// explicitly supported; other database engines will receive MySQL
// query syntax which may or may not be compatible.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if driverName == "sqlite3" && strings.Contains(dataSourceName, ":memory:") {
		// Every connection to :memory: is a different database.
		db.SetMaxOpenConns(1)
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		db.Close()
		return nil, err
	}
	if err := d.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a connection to driverName.
// This is used by the sqlite3 package to register a ConnectHook.
// It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// createTmpl is the template used to prepare the CREATE statements
// for the database. It is evaluated with . as a map containing one
// entry whose key is the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Uploads (
	UploadID {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}SERIAL PRIMARY KEY AUTO_INCREMENT{{end}},
	Label VARCHAR(255),
	Created BIGINT
);
CREATE TABLE IF NOT EXISTS Operations (
	UploadID BIGINT UNSIGNED,
	OperationID BIGINT UNSIGNED,
	Location BIGINT,
	Mode VARCHAR(16),
	Paradigm VARCHAR(16),
	StartTime BIGINT,
	EndTime BIGINT,
	BytesRequested DOUBLE,
	BytesResult DOUBLE,
	Region VARCHAR(8192),
{{if not .sqlite3}}
	Index (UploadID, Location, StartTime),
{{end}}
	PRIMARY KEY (UploadID, OperationID),
	FOREIGN KEY (UploadID) REFERENCES Uploads(UploadID) ON UPDATE CASCADE ON DELETE CASCADE
);
{{if .sqlite3}}
CREATE INDEX IF NOT EXISTS OperationsLocationStart ON Operations(UploadID, Location, StartTime);
{{end}}
`))

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

// prepareStatements calls db.sql.Prepare on reusable SQL statements.
func (db *DB) prepareStatements() error {
	var err error
	db.insertUpload, err = db.sql.Prepare("INSERT INTO Uploads(Label, Created) VALUES (?, ?)")
	if err != nil {
		return err
	}
	db.insertOperation, err = db.sql.Prepare(`INSERT INTO Operations(UploadID, OperationID, Location, Mode, Paradigm, StartTime, EndTime, BytesRequested, BytesResult, Region)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	return nil
}

// now is a hook for testing
var now = time.Now

// An Upload is a set of operations stored under one upload ID.
type Upload struct {
	// ID identifies the upload for QueryOperations.
	ID string
	// Label is the free-form description given to NewUpload.
	Label string

	// id is the numeric value used as the primary key.
	id int64
	// opid is the index of the next operation to insert.
	opid int64
	// db is the underlying database that this upload is going to.
	db *DB
}

// NewUpload returns an upload for storing new operations.
func (db *DB) NewUpload(ctx context.Context, label string) (*Upload, error) {
	res, err := db.insertUpload.ExecContext(ctx, label, now().Unix())
	if err != nil {
		return nil, err
	}
	i, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Upload{
		ID:    strconv.FormatInt(i, 10),
		Label: label,
		id:    i,
		db:    db,
	}, nil
}

// InsertOperations adds ops to u in a single transaction. Either all
// of ops are stored or none are.
func (u *Upload) InsertOperations(ctx context.Context, ops []ioop.Operation) (err error) {
	tx, err := u.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	stmt := tx.StmtContext(ctx, u.db.insertOperation)
	for i, op := range ops {
		_, err = stmt.ExecContext(ctx, u.id, u.opid+int64(i),
			int64(op.Location), op.Mode.String(), op.Paradigm.String(),
			int64(op.Start), int64(op.End),
			op.BytesRequested, op.BytesResult, op.Region)
		if err != nil {
			return fmt.Errorf("inserting %v: %w", op, err)
		}
	}
	u.opid += int64(len(ops))
	return nil
}

// QueryOperations returns the operations stored under uploadID,
// ordered by location and then by start time.
func (db *DB) QueryOperations(ctx context.Context, uploadID string) ([]ioop.Operation, error) {
	id, err := strconv.ParseInt(uploadID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid upload ID %q", uploadID)
	}
	rows, err := db.sql.QueryContext(ctx, `SELECT Location, Mode, Paradigm, StartTime, EndTime, BytesRequested, BytesResult, Region
FROM Operations WHERE UploadID = ? ORDER BY Location, StartTime, OperationID`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []ioop.Operation
	for rows.Next() {
		var (
			loc, start, end int64
			mode, paradigm  string
			op              ioop.Operation
		)
		if err := rows.Scan(&loc, &mode, &paradigm, &start, &end, &op.BytesRequested, &op.BytesResult, &op.Region); err != nil {
			return nil, err
		}
		if op.Mode, err = ioop.ParseMode(mode); err != nil {
			return nil, err
		}
		if op.Paradigm, err = ioop.ParseParadigm(paradigm); err != nil {
			return nil, err
		}
		op.Location = ioop.Location(uint64(loc))
		op.Start, op.End = ioop.Timestamp(start), ioop.Timestamp(end)
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// CountUploads returns the number of uploads in the database.
func (db *DB) CountUploads() (int, error) {
	var uploads int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM Uploads").Scan(&uploads)
	return uploads, err
}

// DeleteUpload removes an upload and its operations.
func (db *DB) DeleteUpload(ctx context.Context, uploadID string) error {
	id, err := strconv.ParseInt(uploadID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid upload ID %q", uploadID)
	}
	// Delete the operations explicitly in case foreign keys are not
	// enforced by the connection.
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM Operations WHERE UploadID = ?", id); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM Uploads WHERE UploadID = ?", id); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close closes the database connections, releasing any open resources.
func (db *DB) Close() error {
	if err := db.insertUpload.Close(); err != nil {
		return err
	}
	if err := db.insertOperation.Close(); err != nil {
		return err
	}
	return db.sql.Close()
}
