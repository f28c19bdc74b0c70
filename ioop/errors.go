// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ioop

import "errors"

// Errors reported while correlating and resolving I/O operations.
// Callers should test for them with errors.Is, since they are usually
// wrapped with the location and event that caused them.
var (
	// ErrProtocolViolation indicates broken region nesting or an
	// event that is not allowed in the current stack state.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrUnmatchedOperation indicates a completion event with no
	// pending begin event.
	ErrUnmatchedOperation = errors.New("unmatched I/O operation")

	// ErrAmbiguousMatch indicates a completion event that matches
	// more than one pending begin event.
	ErrAmbiguousMatch = errors.New("ambiguous I/O operation match")

	// ErrInvalidInterval indicates an operation whose end does not
	// follow its start.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrPreconditionViolation indicates misuse of an API, such as
	// splitting operations that do not overlap.
	ErrPreconditionViolation = errors.New("precondition violation")

	// ErrUnknownParadigmOrMode indicates a paradigm or mode with no
	// known mapping.
	ErrUnknownParadigmOrMode = errors.New("unknown paradigm or mode")
)
