package task

import "errors"

var (
	// ErrInvalidTransition is returned when a status change is not allowed
	// from the task's current status.
	ErrInvalidTransition = errors.New("invalid task status transition")

	// ErrUnknownComponent is returned when a component name is not registered.
	ErrUnknownComponent = errors.New("unknown component")

	// ErrNoStrategy is returned when a definition has neither a command nor a strategy.
	ErrNoStrategy = errors.New("task definition has no command or strategy")

	// ErrDisposed is returned by operations on a disposed task.
	ErrDisposed = errors.New("task is disposed")
)
