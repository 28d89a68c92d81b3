package shtest

import "errors"

var (
	// ErrNoRunLines is returned for a script without any RUN: line.
	ErrNoRunLines = errors.New("test has no RUN: line")
	// ErrUnterminatedRun is returned when a RUN: line ending with a continuation
	// is not followed by another RUN: line.
	ErrUnterminatedRun = errors.New("RUN: line continuation is not followed by a RUN: line")
)
