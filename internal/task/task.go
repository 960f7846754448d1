package task

import "github.com/oklog/ulid/v2"

// ID uniquely identifies a task within a List.
type ID string

// NewID returns a fresh, time-ordered task ID.
func NewID() ID {
	return ID(ulid.Make().String())
}

// Task is a runnable unit of work with a status lifecycle.
//
// Status moves PENDING -> RUNNING -> {SUCCESS, FAILURE, CANCELED}. Reset
// returns a finished task to PENDING so it can be started again.
type Task interface {
	ID() ID
	Name() string
	Cwd() string
	Env() map[string]string
	Status() Status

	Start()
	Stop()
	Reset()
	Dispose()
	Finalize(status Status)

	IsPending() bool
	IsRunning() bool
	IsComplete() bool
	IsDisposed() bool

	AddComponent(name string) error
	SetIncludeInBundle(include bool)
	IncludeInBundle() bool
}

// Strategy performs the actual work of a task. The owning task calls Start
// after moving to RUNNING; the strategy reports completion through
// t.Finalize. Stop, Reset and Dispose are called by the owning task on the
// matching lifecycle operations.
type Strategy interface {
	Start(t Task) error
	Stop()
	Reset()
	Dispose()
}

// Definition holds the arguments needed to construct a task.
type Definition struct {
	Name       string            `yaml:"name"`
	Cmd        []string          `yaml:"cmd,omitempty"`
	Cwd        string            `yaml:"cwd,omitempty"`
	Env        map[string]string `yaml:"env,omitempty"`
	Components []string          `yaml:"components,omitempty"`

	// Strategy overrides the process strategy normally derived from Cmd.
	Strategy Strategy `yaml:"-"`
}
