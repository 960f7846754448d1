package orchestrator

import "github.com/willothy/overseer/internal/task"

// Aggregate reduces the statuses of one section to a single status: the
// first status in order that is not SUCCESS, or SUCCESS if there is none.
// An empty section is SUCCESS.
func Aggregate(statuses []task.Status) task.Status {
	for _, s := range statuses {
		if s != task.StatusSuccess {
			return s
		}
	}
	return task.StatusSuccess
}

// sectionStatus aggregates section i. ready is false while any slot is not
// yet bound to a task. A bound task that can no longer be found counts as
// FAILURE.
func (o *Orchestrator) sectionStatus(i int) (status task.Status, ready bool) {
	statuses := make([]task.Status, 0, len(o.slots[i]))
	for _, slot := range o.slots[i] {
		id, ok := slot.TaskID()
		if !ok {
			return "", false
		}
		t := o.tasks.Get(id)
		if t == nil {
			statuses = append(statuses, task.StatusFailure)
			continue
		}
		statuses = append(statuses, t.Status())
	}
	return Aggregate(statuses), true
}

func (o *Orchestrator) sectionReady(i int) bool {
	for _, slot := range o.slots[i] {
		if slot.State() != SlotResolved {
			return false
		}
	}
	return true
}
