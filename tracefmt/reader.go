// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tracefmt reads and writes a line-oriented text format for
// parallel I/O traces.
//
// Each line is either a configuration line of the form "key: value",
// a comment starting with "#", a blank line, or an event:
//
//	enter      <loc> <time> <region>
//	leave      <loc> <time> <region>
//	iobegin    <loc> <time> <matching-id> <paradigm> <mode> <bytes>
//	iocomplete <loc> <time> <matching-id> <paradigm> <bytes>
//
// Lines with any other verb followed by a location and a time are
// read as events of KindOther. Events must appear in non-decreasing
// time order per location; events of different locations may be
// interleaved arbitrarily.
//
// The "resolution" configuration key gives the number of clock ticks
// per second.
package tracefmt

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode"
	"unicode/utf8"

	"golang.org/x/ioperf/ioop"
)

// A Reader reads the trace format.
//
// Its API is modeled on bufio.Scanner. A Reader retains ownership of
// the Events it returns; a caller that needs to keep an Event beyond
// the next call to Scan should Clone it.
//
// To construct a new Reader, either call NewReader, or call Reset on
// a zeroed Reader.
type Reader struct {
	s   *bufio.Scanner
	err error // current I/O error

	fileName string
	line     int
	input    int

	rec    Record
	event  Event
	config map[string]string

	interns map[string]string
}

// A SyntaxError represents a syntax error on a particular line of a
// trace file. SyntaxErrors are non-fatal: the Reader skips the line
// and continues.
type SyntaxError struct {
	FileName string
	Line     int

	// Input is the index of the input the line was read from. See
	// Event.Input.
	Input int

	// Location is the location named on the offending line, if it
	// could be parsed. HasLocation reports whether it was.
	Location    ioop.Location
	HasLocation bool

	Msg string
	// Err is the underlying error, if any.
	Err error
}

func (e *SyntaxError) Pos() (fileName string, line int) {
	return e.FileName, e.Line
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.FileName, e.Line, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// A Config is a "key: value" configuration line. An empty Value
// deletes the key.
type Config struct {
	Key, Value string

	fileName string
	line     int
}

func (c *Config) Pos() (fileName string, line int) {
	return c.fileName, c.line
}

// A Record is a single record read from a trace file. It may be an
// *Event, a *Config, or a *SyntaxError.
type Record interface {
	// Pos returns the position of this record as a file name and a
	// 1-based line number within that file. If this record was not
	// read from a file, it returns "", 0.
	Pos() (fileName string, line int)
}

var _ Record = (*Event)(nil)
var _ Record = (*Config)(nil)
var _ Record = (*SyntaxError)(nil)

var noResult = &SyntaxError{Msg: "Reader.Scan has not been called"}

// NewReader constructs a reader to parse the trace format from r.
// fileName is used in error messages; it is purely diagnostic.
func NewReader(r io.Reader, fileName string) *Reader {
	reader := new(Reader)
	reader.Reset(r, fileName)
	return reader
}

// Reset resets the reader to begin reading from a new input.
// It also resets all accumulated configuration values.
func (r *Reader) Reset(ior io.Reader, fileName string) {
	r.s = bufio.NewScanner(ior)
	if fileName == "" {
		fileName = "<unknown>"
	}
	r.fileName = fileName
	r.line = 0
	r.input = 0
	r.err = nil
	r.rec = nil
	r.config = make(map[string]string)
	if r.interns == nil {
		r.interns = make(map[string]string)
	}
}

func (r *Reader) newSyntaxError(msg string) *SyntaxError {
	return &SyntaxError{FileName: r.fileName, Line: r.line, Input: r.input, Msg: msg}
}

// Scan advances the reader to the next record and reports whether a
// record was read. The caller should use the Result method to get
// the record. If Scan reaches EOF or an I/O error occurs, it returns
// false, in which case the caller should use the Err method to check
// for errors.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}

	for r.s.Scan() {
		r.line++
		line := bytes.TrimSpace(r.s.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		if key, val, ok := parseKeyValueLine(line); ok {
			keyStr := r.intern(key)
			valStr := string(val)
			if valStr == "" {
				delete(r.config, keyStr)
			} else {
				r.config[keyStr] = valStr
			}
			r.rec = &Config{keyStr, valStr, r.fileName, r.line}
			return true
		}
		if err := r.parseEvent(line); err != nil {
			r.rec = err
			return true
		}
		r.rec = &r.event
		return true
	}

	if err := r.s.Err(); err != nil {
		r.err = fmt.Errorf("%s:%d: %w", r.fileName, r.line, err)
	}
	return false
}

// Result returns the record that was just read by Scan. This is
// either an *Event, a *Config, or a *SyntaxError.
//
// If this returns an *Event, the caller should not retain it, as it
// will be overwritten by the next call to Scan.
func (r *Reader) Result() Record {
	if r.rec == nil {
		return noResult
	}
	return r.rec
}

// Err returns the first non-EOF I/O error that was encountered by the
// Reader.
func (r *Reader) Err() error {
	return r.err
}

// Config returns the configuration accumulated so far from the
// current input. The caller must not modify the returned map.
func (r *Reader) Config() map[string]string {
	return r.config
}

// Resolution returns the clock resolution in ticks per second
// declared by config, or ioop.DefaultResolution if config does not
// declare one.
func Resolution(config map[string]string) (float64, error) {
	s, ok := config["resolution"]
	if !ok {
		return ioop.DefaultResolution, nil
	}
	res, err := strconv.ParseFloat(s, 64)
	if err != nil || res <= 0 {
		return 0, fmt.Errorf("bad clock resolution %q", s)
	}
	return res, nil
}

// parseEvent parses line into r.event.
func (r *Reader) parseEvent(line []byte) *SyntaxError {
	var f []byte
	verb, line := splitField(line)
	kind, known := verbKinds[string(verb)]
	if !known && !isVerb(verb) {
		return r.newSyntaxError(fmt.Sprintf("unknown line %q", verb))
	}

	ev := &r.event
	*ev = Event{Kind: kind, Verb: r.intern(verb), Fields: ev.Fields[:0], fileName: r.fileName, line: r.line, Input: r.input}

	f, line = splitField(line)
	loc, err := strconv.ParseUint(string(f), 10, 64)
	if err != nil {
		return r.newSyntaxError("parsing location: " + numErr(err, f))
	}
	ev.Location = ioop.Location(loc)

	located := func(se *SyntaxError) *SyntaxError {
		se.Location, se.HasLocation = ev.Location, true
		return se
	}

	f, line = splitField(line)
	t, err := strconv.ParseInt(string(f), 10, 64)
	if err != nil {
		return located(r.newSyntaxError("parsing time: " + numErr(err, f)))
	}
	ev.Time = ioop.Timestamp(t)

	switch kind {
	case KindEnter, KindLeave:
		if len(line) == 0 {
			return located(r.newSyntaxError("missing region name"))
		}
		ev.Region = r.intern(line)
		return nil

	case KindOther:
		for len(line) > 0 {
			f, line = splitField(line)
			ev.Fields = append(ev.Fields, string(f))
		}
		return nil
	}

	// I/O events.
	f, line = splitField(line)
	ev.MatchingID, err = strconv.ParseUint(string(f), 10, 64)
	if err != nil {
		return located(r.newSyntaxError("parsing matching id: " + numErr(err, f)))
	}

	f, line = splitField(line)
	ev.Paradigm, err = ioop.ParseParadigm(string(f))
	if err != nil {
		se := located(r.newSyntaxError(err.Error()))
		se.Err = err
		return se
	}

	if kind == KindIoBegin {
		f, line = splitField(line)
		ev.Mode, err = ioop.ParseMode(string(f))
		if err != nil {
			se := located(r.newSyntaxError(err.Error()))
			se.Err = err
			return se
		}
	}

	f, line = splitField(line)
	ev.Bytes, err = strconv.ParseUint(string(f), 10, 64)
	if err != nil {
		return located(r.newSyntaxError("parsing byte count: " + numErr(err, f)))
	}

	if len(line) != 0 {
		return located(r.newSyntaxError("unexpected fields after byte count"))
	}
	return nil
}

func numErr(err error, f []byte) string {
	if len(f) == 0 {
		return "missing field"
	}
	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return ne.Err.Error()
	}
	return err.Error()
}

// isVerb reports whether f can name an event: a lower case letter
// followed by letters, digits, '_' or '.'.
func isVerb(f []byte) bool {
	for i := 0; i < len(f); {
		r, n := utf8.DecodeRune(f[i:])
		if i == 0 && !unicode.IsLower(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' {
			return false
		}
		i += n
	}
	return len(f) > 0
}

// parseKeyValueLine attempts to parse line as a key: val pair,
// with ok reporting whether the line could be parsed.
func parseKeyValueLine(line []byte) (key, val []byte, ok bool) {
	for i := 0; i < len(line); {
		r, n := utf8.DecodeRune(line[i:])
		// key begins with a lower case character ...
		if i == 0 && !unicode.IsLower(r) {
			return
		}
		// and contains no space characters nor upper case
		// characters.
		if unicode.IsSpace(r) || unicode.IsUpper(r) {
			return
		}
		if i > 0 && r == ':' {
			key, val = line[:i], line[i+1:]
			break
		}
		i += n
	}
	if len(key) == 0 {
		return
	}
	val = bytes.TrimLeft(val, " \t")
	return key, val, true
}

func (r *Reader) intern(x []byte) string {
	const maxIntern = 1024
	if s, ok := r.interns[string(x)]; ok {
		return s
	}
	if len(r.interns) >= maxIntern {
		// Evict an arbitrary entry. Which one doesn't affect
		// correctness.
		for k := range r.interns {
			delete(r.interns, k)
			break
		}
	}
	s := string(x)
	r.interns[s] = s
	return s
}

const isSpace uint64 = 1<<'\t' | 1<<'\n' | 1<<'\v' | 1<<'\f' | 1<<'\r' | 1<<' '

// splitField consumes and returns non-whitespace in x as field,
// consumes whitespace following the field, and then returns the
// remaining bytes of x.
func splitField(x []byte) (field, rest []byte) {
	var i int
	for i = 0; i < len(x); {
		if x[i] < utf8.RuneSelf {
			if (isSpace>>x[i])&1 != 0 {
				rest = x[i+1:]
				break
			}
			i++
		} else {
			r, n := utf8.DecodeRune(x[i:])
			if unicode.IsSpace(r) {
				rest = x[i+n:]
				break
			}
			i += n
		}
	}
	field = x[:i]
	rest = bytes.TrimLeftFunc(rest, unicode.IsSpace)
	return
}
