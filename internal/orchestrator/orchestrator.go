package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/willothy/overseer/internal/event"
	"github.com/willothy/overseer/internal/logging"
	"github.com/willothy/overseer/internal/task"
	"github.com/willothy/overseer/internal/template"
)

// TemplateSource finds templates and builds task definitions from them.
// Each callback fires exactly once, on any goroutine; nil means not found
// or not built.
type TemplateSource interface {
	GetByName(ctx context.Context, name string, search template.Search, cb func(*template.Template))
	BuildTaskArgs(ctx context.Context, tmpl *template.Template, opts template.BuildOpts, cb func(*task.Definition))
}

// TaskLookup resolves task IDs to live tasks.
type TaskLookup interface {
	Get(id task.ID) task.Task
}

// TaskFactory constructs and registers tasks.
type TaskFactory interface {
	NewTask(def task.Definition) (task.Task, error)
}

// Surface displays the progress grid.
type Surface interface {
	Update(g Grid)
	Close() error
}

// Deps are the collaborators an Orchestrator needs. Surface and Logger are
// optional.
type Deps struct {
	Templates TemplateSource
	Tasks     TaskLookup
	Factory   TaskFactory
	Bus       *event.Bus
	Loop      Loop
	Surface   Surface
	Logger    *logging.Logger
	// Separator joins grid columns; defaults to DefaultSeparator.
	Separator string
}

// Orchestrator is the task.Strategy of a meta-task that runs a Job.
type Orchestrator struct {
	job   Job
	slots [][]Slot
	// slots whose construction failed; they are retried on the next Start
	failed map[position]bool

	templates TemplateSource
	tasks     TaskLookup
	factory   TaskFactory
	bus       *event.Bus
	loop      Loop
	surface   Surface
	separator string
	base      *logging.Logger
	logger    *logging.Logger

	meta     task.Task
	subID    string
	ctx      context.Context
	cancel   context.CancelFunc
	disposed bool

	gridMu sync.Mutex
	grid   Grid
}

// New creates an orchestrator for job. Every slot starts unresolved.
func New(job Job, deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Templates == nil:
		return nil, fmt.Errorf("%w: templates", ErrMissingDependency)
	case deps.Tasks == nil:
		return nil, fmt.Errorf("%w: tasks", ErrMissingDependency)
	case deps.Factory == nil:
		return nil, fmt.Errorf("%w: factory", ErrMissingDependency)
	case deps.Bus == nil:
		return nil, fmt.Errorf("%w: bus", ErrMissingDependency)
	case deps.Loop == nil:
		return nil, fmt.Errorf("%w: loop", ErrMissingDependency)
	}

	logger := deps.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	separator := deps.Separator
	if separator == "" {
		separator = DefaultSeparator
	}

	slots := make([][]Slot, len(job))
	for i, section := range job {
		slots[i] = make([]Slot, len(section))
		for j := range section {
			slots[i][j] = Unresolved()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		job:       job,
		slots:     slots,
		failed:    make(map[position]bool),
		templates: deps.Templates,
		tasks:     deps.Tasks,
		factory:   deps.Factory,
		bus:       deps.Bus,
		loop:      deps.Loop,
		surface:   deps.Surface,
		separator: separator,
		base:      logger,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	o.grid = o.buildGrid()
	return o, nil
}

// Job returns the job being orchestrated.
func (o *Orchestrator) Job() Job {
	return o.job
}

// Slot returns the slot for section i, spec j.
func (o *Orchestrator) Slot(i, j int) Slot {
	return o.slots[i][j]
}

// Grid returns the most recently rendered progress grid. Safe to call from
// any goroutine.
func (o *Orchestrator) Grid() Grid {
	o.gridMu.Lock()
	defer o.gridMu.Unlock()
	return o.grid
}

// Start begins the job on behalf of meta. Every slot that is not bound to a
// live task starts construction; slots already bound are reused. Start
// then advances as far as the current task statuses allow.
func (o *Orchestrator) Start(meta task.Task) error {
	if o.disposed {
		return ErrDisposed
	}
	o.meta = meta
	o.logger = o.base.WithTask(string(meta.ID()), meta.Name())

	if o.subID == "" {
		o.subID = o.bus.Subscribe(event.TypeTaskStatusChanged, o.onStatusChanged)
	}

	o.logger.Info("job started", "sections", len(o.job), "tasks", o.job.Size())

	for i, section := range o.job {
		for j := range section {
			o.instantiate(i, j)
		}
	}
	o.StartNext()
	return nil
}

// onStatusChanged runs on the publisher's goroutine and only schedules work.
func (o *Orchestrator) onStatusChanged(e event.Event) {
	ev, ok := e.(event.TaskStatusChangedEvent)
	if !ok {
		return
	}
	id := task.ID(ev.TaskID)
	o.loop.Post(func() {
		if o.owns(id) {
			o.StartNext()
		}
	})
}

func (o *Orchestrator) owns(id task.ID) bool {
	for _, section := range o.slots {
		for _, slot := range section {
			if bound, ok := slot.TaskID(); ok && bound == id {
				return true
			}
		}
	}
	return false
}

// StartNext advances the job: it walks the sections in order and acts on
// the first one that has not fully succeeded. A pending section is started,
// a running one is waited on, and a failed or canceled one finalizes the
// meta-task with that status. When every section has succeeded the
// meta-task is finalized SUCCESS. Sections still under construction stop
// the walk. The progress grid is re-rendered on every call.
func (o *Orchestrator) StartNext() {
	defer o.render()

	if o.disposed || o.meta == nil || o.meta.IsComplete() {
		return
	}
	if len(o.job) == 0 {
		o.finalize(task.StatusSuccess)
		return
	}

	for i := range o.job {
		status, ready := o.sectionStatus(i)
		if !ready {
			return
		}

		switch status {
		case task.StatusPending:
			o.logger.Debug("starting section", "section", i)
			o.startSection(i)
			return
		case task.StatusRunning:
			return
		case task.StatusFailure, task.StatusCanceled:
			o.logger.Debug("section did not succeed", "section", i, "status", string(status))
			o.finalize(status)
			return
		case task.StatusSuccess:
			if i == len(o.job)-1 {
				o.finalize(task.StatusSuccess)
			}
		}
	}
}

func (o *Orchestrator) startSection(i int) {
	for _, slot := range o.slots[i] {
		id, _ := slot.TaskID()
		if t := o.tasks.Get(id); t != nil && t.IsPending() {
			t.Start()
		}
	}
}

// finalize completes the meta-task if it is still running. Any other
// outcome than SUCCESS stops the sub-tasks that are still running.
func (o *Orchestrator) finalize(status task.Status) {
	if o.meta == nil || !o.meta.IsRunning() {
		return
	}
	if status == task.StatusSuccess {
		o.logger.Info("job finished", "status", string(status))
	} else {
		o.logger.Warn("job finished", "status", string(status))
	}
	o.meta.Finalize(status)
	if status != task.StatusSuccess {
		o.stopRunning()
	}
}

func (o *Orchestrator) stopRunning() {
	o.eachTask(func(t task.Task) {
		if t.IsRunning() {
			t.Stop()
		}
	})
}

func (o *Orchestrator) eachTask(fn func(task.Task)) {
	for _, section := range o.slots {
		for _, slot := range section {
			id, ok := slot.TaskID()
			if !ok {
				continue
			}
			if t := o.tasks.Get(id); t != nil {
				fn(t)
			}
		}
	}
}

// Stop stops every running sub-task. The meta-task finalizes itself
// CANCELED afterwards.
func (o *Orchestrator) Stop() {
	o.logger.Info("job stopping")
	o.stopRunning()
	o.render()
}

// Reset detaches the meta-task and resets every bound sub-task to PENDING
// so the next Start reuses them.
func (o *Orchestrator) Reset() {
	o.meta = nil
	o.eachTask(func(t task.Task) { t.Reset() })
	o.render()
}

// Dispose cancels outstanding construction, disposes every bound sub-task
// and closes the surface. Later calls do nothing.
func (o *Orchestrator) Dispose() {
	if o.disposed {
		return
	}
	o.render()
	o.disposed = true
	o.cancel()

	if o.subID != "" {
		o.bus.Unsubscribe(o.subID)
		o.subID = ""
	}
	o.eachTask(func(t task.Task) { t.Dispose() })

	if o.surface != nil {
		if err := o.surface.Close(); err != nil {
			o.logger.Warn("failed to close surface", "error", err.Error())
		}
	}
	o.logger.Debug("job disposed")
}
