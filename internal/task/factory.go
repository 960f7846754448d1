package task

import (
	"errors"
	"fmt"
	"slices"

	"github.com/willothy/overseer/internal/event"
	"github.com/willothy/overseer/internal/logging"
)

// Factory builds tasks from definitions and registers them in a List.
type Factory struct {
	list        *List
	components  *Components
	bus         *event.Bus
	logger      *logging.Logger
	usePTY      bool
	outputLines int
	defaults    []string
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithProcessPTY makes process tasks run under a pseudo-terminal.
func WithProcessPTY(enabled bool) FactoryOption {
	return func(f *Factory) { f.usePTY = enabled }
}

// WithProcessOutputLines sets how many output lines process tasks retain.
func WithProcessOutputLines(n int) FactoryOption {
	return func(f *Factory) { f.outputLines = n }
}

// WithDefaultComponents attaches the named components to every task built.
func WithDefaultComponents(names ...string) FactoryOption {
	return func(f *Factory) { f.defaults = append(f.defaults, names...) }
}

// WithFactoryLogger sets the logger handed to built tasks.
func WithFactoryLogger(l *logging.Logger) FactoryOption {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithFactoryBus publishes process output on bus.
func WithFactoryBus(bus *event.Bus) FactoryOption {
	return func(f *Factory) { f.bus = bus }
}

// NewFactory creates a Factory that registers tasks in list and resolves
// component names through components.
func NewFactory(list *List, components *Components, opts ...FactoryOption) *Factory {
	f := &Factory{
		list:        list,
		components:  components,
		logger:      logging.NopLogger(),
		outputLines: 200,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewTask builds a PENDING task from def and adds it to the list. Without an
// explicit strategy, def.Cmd is run as a process.
func (f *Factory) NewTask(def Definition) (Task, error) {
	if def.Name == "" {
		return nil, errors.New("task definition has no name")
	}

	strategy := def.Strategy
	if strategy == nil {
		if len(def.Cmd) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNoStrategy, def.Name)
		}
		strategy = NewProcessStrategy(def.Cmd, def.Env,
			WithPTY(f.usePTY),
			WithOutputLines(f.outputLines),
			WithOutputBus(f.bus),
			WithProcessLogger(f.logger),
		)
	}

	t := NewBase(def, strategy,
		WithComponentRegistry(f.components),
		WithTaskLogger(f.logger),
		WithDisposeHook(func(id ID) { f.list.Remove(id) }),
	)

	names := slices.Clone(def.Components)
	names = append(names, f.defaults...)
	for _, name := range names {
		if err := t.AddComponent(name); err != nil {
			return nil, fmt.Errorf("failed to build task %q: %w", def.Name, err)
		}
	}

	f.list.Add(t)
	return t, nil
}
