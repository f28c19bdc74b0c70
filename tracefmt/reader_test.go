// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracefmt

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/ioperf/ioop"
)

func parseAll(t *testing.T, data string) ([]Record, *Reader) {
	t.Helper()
	r := NewReader(strings.NewReader(data), "test")
	var out []Record
	for r.Scan() {
		switch rec := r.Result().(type) {
		case *Event:
			ev := rec.Clone()
			// Wipe position information for comparisons.
			ev.fileName, ev.line = "", 0
			if len(ev.Fields) == 0 {
				ev.Fields = nil
			}
			out = append(out, ev)
		case *Config:
			c := *rec
			c.fileName, c.line = "", 0
			out = append(out, &c)
		case *SyntaxError:
			out = append(out, rec)
		default:
			t.Fatalf("unexpected result type %T", rec)
		}
	}
	if err := r.Err(); err != nil {
		t.Fatal("parsing failed: ", err)
	}
	return out, r
}

func other(loc ioop.Location, t ioop.Timestamp, verb string, fields ...string) *Event {
	return &Event{Kind: KindOther, Verb: verb, Location: loc, Time: t, Fields: fields}
}

func TestReader(t *testing.T) {
	for _, test := range []struct {
		name, input string
		want        []Record
	}{
		{
			"basic",
			`# a comment
resolution: 1000

enter 0 1 main
iobegin 0 2 7 POSIX write 4096
iocomplete 0 5 7 POSIX 4000
leave 0 6 main
`,
			[]Record{
				&Config{Key: "resolution", Value: "1000"},
				Enter(0, 1, "main"),
				IoBegin(0, 2, 7, ioop.POSIX, ioop.Write, 4096),
				IoComplete(0, 5, 7, ioop.POSIX, 4000),
				Leave(0, 6, "main"),
			},
		},
		{
			"region with spaces",
			"enter 3 10 MPI_File_write_all (collective)\n",
			[]Record{Enter(3, 10, "MPI_File_write_all (collective)")},
		},
		{
			"other events",
			"metric 1 5 cycles 100\nmpi_send 2 6\n",
			[]Record{
				other(1, 5, "metric", "cycles", "100"),
				other(2, 6, "mpi_send"),
			},
		},
		{
			"mpi-io",
			"iobegin 1 2 3 MPI-IO read 8\niocomplete 1 4 3 MPIIO 8\n",
			[]Record{
				IoBegin(1, 2, 3, ioop.MPIIO, ioop.Read, 8),
				IoComplete(1, 4, 3, ioop.MPIIO, 8),
			},
		},
		{
			"config delete",
			"key: value\nkey:\n",
			[]Record{
				&Config{Key: "key", Value: "value"},
				&Config{Key: "key", Value: ""},
			},
		},
		{
			"syntax errors",
			`Enter 0 1 main
enter x 1 main
enter 0 y main
enter 0 1
iobegin 0 2 z POSIX read 1
iocomplete 0 2 1 POSIX
iocomplete 0 2 1 POSIX 5 6
`,
			[]Record{
				&SyntaxError{FileName: "test", Line: 1, Msg: `unknown line "Enter"`},
				&SyntaxError{FileName: "test", Line: 2, Msg: "parsing location: invalid syntax"},
				&SyntaxError{FileName: "test", Line: 3, Location: 0, HasLocation: true, Msg: "parsing time: invalid syntax"},
				&SyntaxError{FileName: "test", Line: 4, HasLocation: true, Msg: "missing region name"},
				&SyntaxError{FileName: "test", Line: 5, HasLocation: true, Msg: "parsing matching id: invalid syntax"},
				&SyntaxError{FileName: "test", Line: 6, HasLocation: true, Msg: "parsing byte count: missing field"},
				&SyntaxError{FileName: "test", Line: 7, HasLocation: true, Msg: "unexpected fields after byte count"},
			},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got, _ := parseAll(t, test.input)
			if !reflect.DeepEqual(got, test.want) {
				t.Errorf("got:")
				for _, rec := range got {
					t.Errorf("  %#v", rec)
				}
				t.Errorf("want:")
				for _, rec := range test.want {
					t.Errorf("  %#v", rec)
				}
			}
		})
	}
}

func TestReaderUnknownCodes(t *testing.T) {
	got, _ := parseAll(t, "iobegin 4 1 1 NetCDF read 10\niobegin 4 1 2 POSIX append 10\n")
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	for i, rec := range got {
		se, ok := rec.(*SyntaxError)
		if !ok {
			t.Fatalf("record %d: got %T, want *SyntaxError", i, rec)
		}
		if !errors.Is(se, ioop.ErrUnknownParadigmOrMode) {
			t.Errorf("record %d: %v does not wrap ErrUnknownParadigmOrMode", i, se)
		}
		if !se.HasLocation || se.Location != 4 {
			t.Errorf("record %d: location = %d, %v; want 4, true", i, se.Location, se.HasLocation)
		}
	}
}

func TestReaderConfig(t *testing.T) {
	_, r := parseAll(t, "resolution: 100\nunit: ticks\nunit:\n")
	want := map[string]string{"resolution": "100"}
	if !reflect.DeepEqual(r.Config(), want) {
		t.Errorf("Config() = %v, want %v", r.Config(), want)
	}
	res, err := Resolution(r.Config())
	if err != nil || res != 100 {
		t.Errorf("Resolution = %v, %v; want 100", res, err)
	}

	if res, err := Resolution(nil); err != nil || res != ioop.DefaultResolution {
		t.Errorf("Resolution(nil) = %v, %v; want default", res, err)
	}
	for _, bad := range []string{"0", "-5", "fast"} {
		if _, err := Resolution(map[string]string{"resolution": bad}); err == nil {
			t.Errorf("Resolution(%q): want error", bad)
		}
	}
}

func TestReaderReset(t *testing.T) {
	r := NewReader(strings.NewReader("a: 1\nenter 0 1 x\n"), "one")
	for r.Scan() {
	}
	r.Reset(strings.NewReader("leave 0 2 x\n"), "two")
	if len(r.Config()) != 0 {
		t.Errorf("Reset did not clear configuration: %v", r.Config())
	}
	if !r.Scan() {
		t.Fatal("Scan after Reset returned false")
	}
	ev, ok := r.Result().(*Event)
	if !ok {
		t.Fatalf("got %T, want *Event", r.Result())
	}
	if file, line := ev.Pos(); file != "two" || line != 1 {
		t.Errorf("Pos() = %s:%d, want two:1", file, line)
	}
}

func TestReaderNoScan(t *testing.T) {
	r := NewReader(strings.NewReader(""), "")
	if _, ok := r.Result().(*SyntaxError); !ok {
		t.Errorf("Result before Scan: got %T, want *SyntaxError", r.Result())
	}
}
