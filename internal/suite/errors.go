package suite

import "errors"

var (
	// ErrReadDescriptor is returned when the suite descriptor cannot be read.
	ErrReadDescriptor = errors.New("read suite descriptor")
	// ErrParseDescriptor is returned when the suite descriptor is not valid YAML.
	ErrParseDescriptor = errors.New("parse suite descriptor")
	// ErrUnknownFormat is returned for a test format tag the harness does not implement.
	ErrUnknownFormat = errors.New("unknown test format")
	// ErrInvalidSubstitution is returned when a substitution entry has no token or
	// does not declare exactly one of path and value.
	ErrInvalidSubstitution = errors.New("invalid substitution")
)
