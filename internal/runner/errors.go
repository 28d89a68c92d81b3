package runner

import "errors"

// ErrInterrupted is returned when the run is cancelled before every test was started.
var ErrInterrupted = errors.New("test run interrupted")
