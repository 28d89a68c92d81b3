package config

import "errors"

var (
	// ErrMissingObjRoot is returned when no build-output root was supplied.
	ErrMissingObjRoot = errors.New("build-output root is not set (use --obj-root, obj_root or MY_OBJ_ROOT)")
	// ErrInvalidObjRoot is returned when the build-output root is not an existing directory.
	ErrInvalidObjRoot = errors.New("build-output root is not a directory")
	// ErrInvalidConfig is returned when a setting is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")
)
