package template

import "errors"

var (
	// ErrNotFound is returned when no visible template has the requested name.
	ErrNotFound = errors.New("template not found")

	// ErrMissingParam is returned when a required parameter has no value or default.
	ErrMissingParam = errors.New("missing required param")

	// ErrUnknownParam is returned when a value is given for an undeclared parameter.
	ErrUnknownParam = errors.New("unknown param")

	// ErrInvalidParam is returned when a value cannot be converted to its declared type.
	ErrInvalidParam = errors.New("invalid param value")

	// ErrInvalidTemplate is returned when a template definition is malformed.
	ErrInvalidTemplate = errors.New("invalid template")
)
