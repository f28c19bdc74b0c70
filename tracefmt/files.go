// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tracefmt

import (
	"os"
)

// A Files reads trace records from a sequence of input files.
//
// Each file is a separate trace. Files numbers its inputs from 0 in
// the order they are opened and stamps every Event and SyntaxError
// with the number of its input, so that location 0 of one file is
// not confused with location 0 of another. Configuration does not
// carry over from one file to the next.
type Files struct {
	// Paths is the list of file names to read in.
	Paths []string

	// AllowStdin indicates that the path "-" should be treated as
	// stdin and if the file list is empty, it should be treated
	// as consisting of stdin.
	//
	// This is generally the desired behavior when the file list
	// comes from command-line flags.
	AllowStdin bool

	// inputs is the sequence of remaining inputs, or nil if this
	// Files has not started yet. Note that this distinguishes nil
	// from length 0.
	inputs []string

	reader  Reader
	file    *os.File
	isStdin bool
	names   []string
	configs []map[string]string
	err     error
}

// init does first-use initialization of f.
func (f *Files) init() {
	f.inputs = []string{}
	if f.AllowStdin && len(f.Paths) == 0 {
		f.inputs = append(f.inputs, "-")
	}
	f.inputs = append(f.inputs, f.Paths...)
}

// Scan advances the reader to the next record in the sequence of
// files and reports whether a record was read. The caller should use
// the Result method to get the record. If Scan reaches the end of the
// file sequence, or if an I/O error occurs, it returns false. In this
// case, the caller should use the Err method to check for errors.
func (f *Files) Scan() bool {
	if f.err != nil {
		return false
	}

	if f.inputs == nil {
		f.init()
	}

	for {
		if f.file == nil {
			// Open the next file.
			if len(f.inputs) == 0 {
				return false
			}
			path := f.inputs[0]
			f.inputs = f.inputs[1:]

			if f.AllowStdin && path == "-" {
				f.isStdin, f.file = true, os.Stdin
			} else {
				file, err := os.Open(path)
				if err != nil {
					f.err = err
					return false
				}
				f.isStdin, f.file = false, file
			}
			f.reader.Reset(f.file, path)
			f.reader.input = len(f.names)
			f.names = append(f.names, path)
			f.configs = append(f.configs, f.reader.Config())
		}

		if f.reader.Scan() {
			return true
		}
		err := f.reader.Err()
		if err != nil {
			f.err = err
			break
		}
		// Just an EOF. Close this file and open the next.
		if !f.isStdin {
			f.file.Close()
		}
		f.file = nil
	}
	return false
}

// Result returns the record that was just read by Scan.
// See Reader.Result.
func (f *Files) Result() Record {
	return f.reader.Result()
}

// Err returns the I/O error that stopped Scan, if any.
// If Scan stopped because it read each file to completion,
// or if Scan has not yet returned false, Err returns nil.
func (f *Files) Err() error {
	return f.err
}

// Config returns the configuration read so far from the current
// input, or from the last input once Scan has returned false.
func (f *Files) Config() map[string]string {
	if len(f.configs) == 0 {
		return map[string]string{}
	}
	return f.configs[len(f.configs)-1]
}

// NumInputs returns the number of inputs opened so far.
func (f *Files) NumInputs() int {
	return len(f.names)
}

// InputName returns the path of input i, as given in Paths.
func (f *Files) InputName(i int) string {
	return f.names[i]
}

// InputConfig returns the configuration read from input i. It is
// complete once Scan has moved past that input.
func (f *Files) InputConfig(i int) map[string]string {
	return f.configs[i]
}
