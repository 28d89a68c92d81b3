package shtest

import "time"

// Status is the outcome of a single test.
type Status string

const (
	StatusPass       Status = "PASS"
	StatusFail       Status = "FAIL"
	StatusXFail      Status = "XFAIL"
	StatusXPass      Status = "XPASS"
	StatusUnresolved Status = "UNRESOLVED"
	StatusTimeout    Status = "TIMEOUT"
)

// Statuses lists every status in report order.
func Statuses() []Status {
	return []Status{StatusPass, StatusXFail, StatusFail, StatusXPass, StatusUnresolved, StatusTimeout}
}

// IsFailure reports whether the status fails the run.
func (s Status) IsFailure() bool {
	switch s {
	case StatusFail, StatusXPass, StatusUnresolved, StatusTimeout:
		return true
	default:
		return false
	}
}

// Result captures the outcome of executing one test script.
type Result struct {
	Name          string        `json:"name"`
	RelPath       string        `json:"relPath"`
	Status        Status        `json:"status"`
	FailedCommand string        `json:"failedCommand,omitempty"`
	ExitCode      int           `json:"exitCode"`
	Output        string        `json:"output,omitempty"`
	Duration      time.Duration `json:"duration"`
}
