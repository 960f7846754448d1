package orchestrator

import "github.com/willothy/overseer/internal/task"

// SlotState is the construction state of one task spec.
type SlotState int

const (
	// SlotUnresolved has not started construction.
	SlotUnresolved SlotState = iota
	// SlotInFlight is waiting on template lookup or task construction.
	SlotInFlight
	// SlotResolved is bound to a concrete task.
	SlotResolved
)

func (s SlotState) String() string {
	switch s {
	case SlotUnresolved:
		return "unresolved"
	case SlotInFlight:
		return "in-flight"
	case SlotResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Slot is the grid cell for one task spec.
type Slot struct {
	state SlotState
	id    task.ID
}

// Unresolved returns an unresolved slot.
func Unresolved() Slot { return Slot{state: SlotUnresolved} }

// InFlight returns an in-flight slot.
func InFlight() Slot { return Slot{state: SlotInFlight} }

// Resolved returns a slot bound to id.
func Resolved(id task.ID) Slot { return Slot{state: SlotResolved, id: id} }

// State returns the slot's state.
func (s Slot) State() SlotState { return s.state }

// TaskID returns the bound task ID and whether the slot is resolved.
func (s Slot) TaskID() (task.ID, bool) {
	return s.id, s.state == SlotResolved
}

type position struct {
	section, slot int
}
