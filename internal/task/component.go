package task

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/willothy/overseer/internal/event"
	"github.com/willothy/overseer/internal/logging"
)

// Built-in component names.
const (
	// ComponentStatusBroadcast publishes a task.status_changed event on every transition.
	ComponentStatusBroadcast = "on_status_broadcast"
	// ComponentCompleteLog logs the terminal status and run time.
	ComponentCompleteLog = "on_complete_log"
)

// Component is a named behavior attached to a task that observes its status
// transitions. OnStatusChange runs on the goroutine that changed the status
// and must not call back into the task's status-changing methods.
type Component interface {
	Name() string
	OnStatusChange(t Task, from, to Status)
}

// ComponentFactory creates a fresh component instance for one task.
type ComponentFactory func() Component

// Components is a registry of component factories keyed by name.
type Components struct {
	mu        sync.RWMutex
	factories map[string]ComponentFactory
}

// NewComponents returns a registry holding the built-in components. The
// status broadcast publishes on bus; a nil bus makes it a no-op.
func NewComponents(bus *event.Bus, logger *logging.Logger) *Components {
	if logger == nil {
		logger = logging.NopLogger()
	}
	c := &Components{factories: make(map[string]ComponentFactory)}
	c.Register(ComponentStatusBroadcast, func() Component {
		return &statusBroadcast{bus: bus}
	})
	c.Register(ComponentCompleteLog, func() Component {
		return &completeLog{logger: logger}
	})
	return c
}

// Register adds or replaces a component factory.
func (c *Components) Register(name string, factory ComponentFactory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[name] = factory
}

// New instantiates the component registered under name.
func (c *Components) New(name string) (Component, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, name)
	}
	c.mu.RLock()
	factory, ok := c.factories[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, name)
	}
	return factory(), nil
}

// Names returns the registered component names, sorted.
func (c *Components) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.factories))
	for name := range c.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

type statusBroadcast struct {
	bus *event.Bus
}

func (s *statusBroadcast) Name() string { return ComponentStatusBroadcast }

func (s *statusBroadcast) OnStatusChange(t Task, from, to Status) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(event.NewTaskStatusChangedEvent(string(t.ID()), t.Name(), string(from), string(to)))
}

type completeLog struct {
	logger *logging.Logger
}

func (c *completeLog) Name() string { return ComponentCompleteLog }

func (c *completeLog) OnStatusChange(t Task, from, to Status) {
	if !to.IsTerminal() {
		return
	}
	args := []any{"task_id", string(t.ID()), "task", t.Name(), "status", string(to)}
	if d, ok := t.(interface{ Duration() time.Duration }); ok {
		args = append(args, "duration_ms", d.Duration().Milliseconds())
	}
	if to == StatusSuccess {
		c.logger.Info("task finished", args...)
	} else {
		c.logger.Warn("task finished", args...)
	}
}
