// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracefmt

import (
	"bytes"
	"fmt"
	"io"
)

// A Writer writes the trace format.
type Writer struct {
	w   io.Writer
	buf bytes.Buffer

	config map[string]string
}

// NewWriter returns a writer that writes trace records to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, config: make(map[string]string)}
}

// Write writes Record rec to w. A *Config that does not change the
// configuration already written is omitted. *SyntaxErrors are
// ignored.
func (w *Writer) Write(rec Record) error {
	switch rec := rec.(type) {
	case *Event:
		w.buf.WriteString(rec.String())
		w.buf.WriteByte('\n')
	case *Config:
		if have, ok := w.config[rec.Key]; ok && have == rec.Value || !ok && rec.Value == "" {
			return nil
		}
		if rec.Value == "" {
			delete(w.config, rec.Key)
			fmt.Fprintf(&w.buf, "%s:\n", rec.Key)
		} else {
			w.config[rec.Key] = rec.Value
			fmt.Fprintf(&w.buf, "%s: %s\n", rec.Key, rec.Value)
		}
	case *SyntaxError:
		return nil
	default:
		return fmt.Errorf("unknown Record type %T", rec)
	}

	// Write to the buffer can't fail, so we only have to check if
	// this fails.
	_, err := w.w.Write(w.buf.Bytes())
	w.buf.Reset()
	return err
}
