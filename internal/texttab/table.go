// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package texttab lays out small report tables as fixed-width text,
// CSV, or HTML.
package texttab

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/google/safehtml/template"
)

// Align is the horizontal alignment of a column in text output.
type Align int

const (
	Left Align = iota
	Right
)

// A Table is a heading row followed by data rows.
type Table struct {
	// Title is printed above the table.
	Title string

	Header []string
	Rows   [][]string

	// Align gives the alignment of each column. Columns beyond the
	// end of Align are left-aligned.
	Align []Align

	// Notes are printed after the table.
	Notes []string
}

// New returns a table with the given column headings.
func New(title string, header ...string) *Table {
	return &Table{Title: title, Header: header}
}

// Row appends a data row to t. A row shorter than the header is
// padded with empty cells.
func (t *Table) Row(cells ...string) *Table {
	for len(cells) < len(t.Header) {
		cells = append(cells, "")
	}
	t.Rows = append(t.Rows, cells)
	return t
}

// SetAlign sets the alignment of column col.
func (t *Table) SetAlign(col int, a Align) *Table {
	for len(t.Align) <= col {
		t.Align = append(t.Align, Left)
	}
	t.Align[col] = a
	return t
}

func (t *Table) align(col int) Align {
	if col < len(t.Align) {
		return t.Align[col]
	}
	return Left
}

// Text writes t as fixed-width text. Columns are separated by two
// spaces and trailing spaces are trimmed.
func (t *Table) Text(w io.Writer) error {
	var max []int
	for _, row := range append([][]string{t.Header}, t.Rows...) {
		for len(max) < len(row) {
			max = append(max, 0)
		}
		for i, s := range row {
			if n := utf8.RuneCountInString(s); max[i] < n {
				max[i] = n
			}
		}
	}

	var buf strings.Builder
	if t.Title != "" {
		fmt.Fprintf(&buf, "%s\n", t.Title)
	}
	line := func(row []string) {
		var l strings.Builder
		for i, s := range row {
			if i > 0 {
				l.WriteString("  ")
			}
			pad := max[i] - utf8.RuneCountInString(s)
			if t.align(i) == Right {
				fmt.Fprintf(&l, "%*s%s", pad, "", s)
			} else {
				fmt.Fprintf(&l, "%s%*s", s, pad, "")
			}
		}
		buf.WriteString(strings.TrimRight(l.String(), " "))
		buf.WriteByte('\n')
	}
	line(t.Header)
	for _, row := range t.Rows {
		line(row)
	}
	for _, n := range t.Notes {
		fmt.Fprintf(&buf, "%s\n", n)
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

// CSV writes t as CSV. The title and notes are omitted.
func (t *Table) CSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

var htmlTemplate = template.Must(template.New("").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>I/O statistics</title>
<style>
.iostat { border-collapse: collapse; margin-bottom: 1em; }
.iostat th { text-align: left; border-bottom: 1px solid #666; }
.iostat td { padding: 0em 1em; }
.iostat td.right { text-align: right; }
.iostat caption { text-align: left; font-weight: bold; }
</style>
</head>
<body>
{{range .}}
<table class="iostat">
{{- if .Title}}
<caption>{{.Title}}</caption>
{{- end}}
<tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
{{- $t := .}}
{{- range .Rows}}
<tr>{{range $i, $c := .}}<td{{if $t.IsRight $i}} class="right"{{end}}>{{$c}}</td>{{end}}</tr>
{{- end}}
</table>
{{- range .Notes}}
<p>{{.}}</p>
{{- end}}
{{end}}
</body>
</html>
`))

// IsRight reports whether column col is right-aligned. It is used by
// the HTML template.
func (t *Table) IsRight(col int) bool {
	return t.align(col) == Right
}

// HTML writes tables as a complete HTML document.
func HTML(w io.Writer, tables []*Table) error {
	return htmlTemplate.Execute(w, tables)
}
