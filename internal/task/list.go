package task

import (
	"slices"
	"sync"
)

// List is the registry of live tasks, in insertion order.
type List struct {
	mu    sync.RWMutex
	tasks map[ID]Task
	order []ID
}

// NewList creates an empty task list.
func NewList() *List {
	return &List{tasks: make(map[ID]Task)}
}

// Add registers t. Adding an ID that is already present replaces the entry.
func (l *List) Add(t Task) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.tasks[t.ID()]; !ok {
		l.order = append(l.order, t.ID())
	}
	l.tasks[t.ID()] = t
}

// Get returns the task with the given ID, or nil.
func (l *List) Get(id ID) Task {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tasks[id]
}

// Remove drops the task with the given ID. It reports whether it was present.
func (l *List) Remove(id ID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.tasks[id]; !ok {
		return false
	}
	delete(l.tasks, id)
	l.order = slices.DeleteFunc(l.order, func(x ID) bool { return x == id })
	return true
}

// All returns every task in insertion order.
func (l *List) All() []Task {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Task, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.tasks[id])
	}
	return out
}

// Bundle returns the tasks that opted into bundling, in insertion order.
// Tasks owned by an orchestrator are excluded.
func (l *List) Bundle() []Task {
	return slices.DeleteFunc(l.All(), func(t Task) bool { return !t.IncludeInBundle() })
}

// Len returns the number of registered tasks.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tasks)
}

// DisposeAll disposes every registered task.
func (l *List) DisposeAll() {
	for _, t := range l.All() {
		t.Dispose()
	}
}
