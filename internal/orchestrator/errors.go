package orchestrator

import "errors"

var (
	// ErrInvalidJob is returned when a job definition does not have the
	// shape [Entry] where Entry is a spec or a list of specs.
	ErrInvalidJob = errors.New("invalid job definition")

	// ErrMissingDependency is returned by New when a required dependency is nil.
	ErrMissingDependency = errors.New("missing orchestrator dependency")

	// ErrDisposed is returned when starting a disposed orchestrator.
	ErrDisposed = errors.New("orchestrator is disposed")
)
