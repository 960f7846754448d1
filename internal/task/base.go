package task

import (
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/willothy/overseer/internal/logging"
)

// Base is the concrete Task implementation. Work is delegated to a Strategy;
// Base owns the status machine and notifies attached components on every
// transition. It is safe for concurrent use.
type Base struct {
	mu sync.Mutex

	id       ID
	name     string
	cwd      string
	env      map[string]string
	strategy Strategy

	status          Status
	disposed        bool
	includeInBundle bool
	startedAt       time.Time
	finishedAt      time.Time

	components []Component
	registry   *Components
	onDispose  func(ID)
	logger     *logging.Logger
}

// BaseOption configures a Base.
type BaseOption func(*Base)

// WithComponentRegistry sets the registry used by AddComponent.
func WithComponentRegistry(r *Components) BaseOption {
	return func(b *Base) { b.registry = r }
}

// WithTaskLogger sets the logger; a task child logger is derived from it.
func WithTaskLogger(l *logging.Logger) BaseOption {
	return func(b *Base) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithDisposeHook registers fn to run once when the task is disposed.
func WithDisposeHook(fn func(ID)) BaseOption {
	return func(b *Base) { b.onDispose = fn }
}

// WithID fixes the task ID instead of generating one.
func WithID(id ID) BaseOption {
	return func(b *Base) { b.id = id }
}

// NewBase creates a PENDING task from def that runs strategy.
func NewBase(def Definition, strategy Strategy, opts ...BaseOption) *Base {
	b := &Base{
		id:              NewID(),
		name:            def.Name,
		cwd:             def.Cwd,
		env:             maps.Clone(def.Env),
		strategy:        strategy,
		status:          StatusPending,
		includeInBundle: true,
		logger:          logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.WithTask(string(b.id), b.name)
	return b
}

func (b *Base) ID() ID       { return b.id }
func (b *Base) Name() string { return b.name }
func (b *Base) Cwd() string  { return b.cwd }

// Env returns a copy of the task's environment overrides.
func (b *Base) Env() map[string]string {
	return maps.Clone(b.env)
}

// Status returns the current status.
func (b *Base) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.status
}

func (b *Base) IsPending() bool  { return b.Status() == StatusPending }
func (b *Base) IsRunning() bool  { return b.Status() == StatusRunning }
func (b *Base) IsComplete() bool { return b.Status().IsTerminal() }

// IsDisposed reports whether Dispose has been called.
func (b *Base) IsDisposed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disposed
}

// Duration returns how long the task ran, or has been running so far.
func (b *Base) Duration() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.startedAt.IsZero():
		return 0
	case b.finishedAt.IsZero():
		return time.Since(b.startedAt)
	default:
		return b.finishedAt.Sub(b.startedAt)
	}
}

// Start moves a PENDING task to RUNNING and hands it to the strategy.
// It is a no-op in any other status. A strategy error finalizes FAILURE.
func (b *Base) Start() {
	b.mu.Lock()
	if b.disposed || b.status != StatusPending {
		b.mu.Unlock()
		return
	}
	b.status = StatusRunning
	b.startedAt = time.Now()
	b.finishedAt = time.Time{}
	b.mu.Unlock()

	b.logger.Debug("task started")
	b.notify(StatusPending, StatusRunning)

	if err := b.strategy.Start(b); err != nil {
		b.logger.Error("task failed to start", "error", err.Error())
		b.Finalize(StatusFailure)
	}
}

// Finalize moves the task to a terminal status. Only RUNNING tasks can be
// finalized, except that a PENDING task may be finalized FAILURE. Other
// calls are ignored.
func (b *Base) Finalize(status Status) {
	b.mu.Lock()
	from := b.status
	if b.disposed || !canFinalize(from, status) {
		b.mu.Unlock()
		b.logger.Debug("ignoring finalize", "from", string(from), "to", string(status))
		return
	}
	b.status = status
	b.finishedAt = time.Now()
	b.mu.Unlock()

	b.notify(from, status)
}

func canFinalize(from, to Status) bool {
	if !to.IsTerminal() {
		return false
	}
	return from == StatusRunning || (from == StatusPending && to == StatusFailure)
}

// Stop cancels a RUNNING task. It is a no-op in any other status.
func (b *Base) Stop() {
	if !b.IsRunning() {
		return
	}
	b.strategy.Stop()
	b.Finalize(StatusCanceled)
}

// Reset returns the task to PENDING, stopping it first if it is running.
func (b *Base) Reset() {
	b.Stop()

	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	from := b.status
	b.status = StatusPending
	b.startedAt = time.Time{}
	b.finishedAt = time.Time{}
	b.mu.Unlock()

	b.strategy.Reset()
	if from != StatusPending {
		b.notify(from, StatusPending)
	}
}

// Dispose stops the task, releases its strategy and runs the dispose hook.
// Only the first call has any effect.
func (b *Base) Dispose() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.disposed = true
	from := b.status
	if from == StatusRunning {
		b.status = StatusCanceled
		b.finishedAt = time.Now()
	}
	b.mu.Unlock()

	if from == StatusRunning {
		b.strategy.Stop()
		b.notify(from, StatusCanceled)
	}
	b.strategy.Dispose()
	b.logger.Debug("task disposed")

	if b.onDispose != nil {
		b.onDispose(b.id)
	}
}

// AddComponent attaches a registered component by name. Adding a component
// that is already attached is a no-op.
func (b *Base) AddComponent(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if slices.ContainsFunc(b.components, func(c Component) bool { return c.Name() == name }) {
		return nil
	}
	c, err := b.registry.New(name)
	if err != nil {
		return err
	}
	b.components = append(b.components, c)
	return nil
}

// Components returns the names of attached components in attach order.
func (b *Base) Components() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, len(b.components))
	for i, c := range b.components {
		names[i] = c.Name()
	}
	return names
}

func (b *Base) SetIncludeInBundle(include bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.includeInBundle = include
}

func (b *Base) IncludeInBundle() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.includeInBundle
}

// Strategy returns the strategy running this task.
func (b *Base) Strategy() Strategy {
	return b.strategy
}

func (b *Base) notify(from, to Status) {
	b.mu.Lock()
	components := slices.Clone(b.components)
	b.mu.Unlock()

	for _, c := range components {
		c.OnStatusChange(b, from, to)
	}
}
