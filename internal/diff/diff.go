// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package diff compares test outputs.
package diff

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Diff returns a human-readable description of the differences between want and have.
// If the "diff" command is available, it returns the output of unified diff on want and have.
// If the result is non-empty, the strings differ or the diff command failed.
func Diff(want, have string) string {
	if want == have {
		return ""
	}
	if _, err := exec.LookPath("diff"); err != nil {
		return fmt.Sprintf("diff command unavailable\nwant: %q\nhave: %q", want, have)
	}
	d, err := os.MkdirTemp("", "ioperf_test")
	if err != nil {
		return err.Error()
	}
	defer os.RemoveAll(d)

	if err := os.WriteFile(d+"/want", []byte(want), 0666); err != nil {
		return err.Error()
	}
	if err := os.WriteFile(d+"/have", []byte(have), 0666); err != nil {
		return err.Error()
	}

	cmd := "diff"
	if runtime.GOOS == "plan9" {
		cmd = "/bin/ape/diff"
	}

	c := exec.Command(cmd, "-u", "want", "have")
	c.Dir = d
	data, err := c.CombinedOutput()
	if len(data) > 0 {
		// diff exits with a non-zero status when the files don't match.
		// Ignore that failure as long as we get output.
		err = nil
	}
	if err != nil {
		data = append(data, []byte(err.Error())...)
	}
	if len(data) == 0 {
		return fmt.Sprintf("want: %q\nhave: %q", want, have)
	}
	return string(data)
}
