package event

import "time"

// Event types published by overseer components.
const (
	TypeTaskStatusChanged = "task.status_changed"
	TypeTaskOutput        = "task.output"
	TypeTemplatesReloaded = "templates.reloaded"
)

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a "category.action" identifier.
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// TaskStatusChangedEvent is emitted whenever a task carrying the status
// broadcast component changes status. Statuses are the upper-case names
// (PENDING, RUNNING, ...).
type TaskStatusChangedEvent struct {
	baseEvent
	TaskID    string
	TaskName  string
	OldStatus string
	NewStatus string
}

// NewTaskStatusChangedEvent creates a TaskStatusChangedEvent.
func NewTaskStatusChangedEvent(taskID, taskName, oldStatus, newStatus string) TaskStatusChangedEvent {
	return TaskStatusChangedEvent{
		baseEvent: newBaseEvent(TypeTaskStatusChanged),
		TaskID:    taskID,
		TaskName:  taskName,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}
}

// TaskOutputEvent carries one line of output from a running process task.
type TaskOutputEvent struct {
	baseEvent
	TaskID string
	Line   string
}

// NewTaskOutputEvent creates a TaskOutputEvent.
func NewTaskOutputEvent(taskID, line string) TaskOutputEvent {
	return TaskOutputEvent{
		baseEvent: newBaseEvent(TypeTaskOutput),
		TaskID:    taskID,
		Line:      line,
	}
}

// TemplatesReloadedEvent is emitted after the template registry re-reads its
// search directories.
type TemplatesReloadedEvent struct {
	baseEvent
	Count int
	Err   error
}

// NewTemplatesReloadedEvent creates a TemplatesReloadedEvent.
func NewTemplatesReloadedEvent(count int, err error) TemplatesReloadedEvent {
	return TemplatesReloadedEvent{
		baseEvent: newBaseEvent(TypeTemplatesReloaded),
		Count:     count,
		Err:       err,
	}
}
