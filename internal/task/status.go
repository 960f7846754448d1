package task

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusRunning  Status = "RUNNING"
	StatusCanceled Status = "CANCELED"
	StatusSuccess  Status = "SUCCESS"
	StatusFailure  Status = "FAILURE"
)

// TagPrefix prefixes every status render tag.
const TagPrefix = "Overseer"

// AllStatuses returns every status in declaration order.
func AllStatuses() []Status {
	return []Status{StatusPending, StatusRunning, StatusCanceled, StatusSuccess, StatusFailure}
}

// ParseStatus converts a case-insensitive status name to a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusPending, StatusRunning, StatusCanceled, StatusSuccess, StatusFailure:
		return st, nil
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

func (s Status) String() string { return string(s) }

// IsTerminal reports whether s is CANCELED, SUCCESS or FAILURE.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCanceled, StatusSuccess, StatusFailure:
		return true
	}
	return false
}

// Tag returns the render tag used to style text in this status, e.g.
// "OverseerRUNNING".
func (s Status) Tag() string {
	return TagPrefix + string(s)
}
