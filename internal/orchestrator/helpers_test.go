package orchestrator

import (
	"context"
	"maps"
	"testing"

	"github.com/willothy/overseer/internal/event"
	"github.com/willothy/overseer/internal/task"
	"github.com/willothy/overseer/internal/template"
)

// manualLoop queues posted functions until drain is called.
type manualLoop struct {
	queue []func()
}

func (l *manualLoop) Post(fn func()) { l.queue = append(l.queue, fn) }

func (l *manualLoop) drain() {
	for len(l.queue) > 0 {
		fn := l.queue[0]
		l.queue = l.queue[1:]
		fn()
	}
}

type stubStrategy struct {
	starts   int
	stops    int
	resets   int
	disposes int
}

func (s *stubStrategy) Start(task.Task) error { s.starts++; return nil }
func (s *stubStrategy) Stop()                 { s.stops++ }
func (s *stubStrategy) Reset()                { s.resets++ }
func (s *stubStrategy) Dispose()              { s.disposes++ }

// fakeTemplates knows a fixed set of template names. Callbacks fire
// synchronously; the orchestrator must still defer its work to the loop.
type fakeTemplates struct {
	known      map[string]bool
	failBuild  map[string]bool
	env        map[string]string
	lookups    []string
	params     map[string]map[string]any
	strategies map[string][]*stubStrategy
}

func newFakeTemplates(names ...string) *fakeTemplates {
	f := &fakeTemplates{
		known:      make(map[string]bool),
		failBuild:  make(map[string]bool),
		params:     make(map[string]map[string]any),
		strategies: make(map[string][]*stubStrategy),
	}
	for _, n := range names {
		f.known[n] = true
	}
	return f
}

func (f *fakeTemplates) GetByName(ctx context.Context, name string, search template.Search, cb func(*template.Template)) {
	f.lookups = append(f.lookups, name)
	if !f.known[name] {
		cb(nil)
		return
	}
	cb(&template.Template{Name: name})
}

func (f *fakeTemplates) BuildTaskArgs(ctx context.Context, tmpl *template.Template, opts template.BuildOpts, cb func(*task.Definition)) {
	if f.failBuild[tmpl.Name] {
		cb(nil)
		return
	}
	f.params[tmpl.Name] = opts.Params
	s := &stubStrategy{}
	f.strategies[tmpl.Name] = append(f.strategies[tmpl.Name], s)
	cb(&task.Definition{
		Name:     tmpl.Name,
		Cwd:      opts.Search.Dir,
		Env:      maps.Clone(f.env),
		Strategy: s,
	})
}

// strategy returns the most recent strategy built for name.
func (f *fakeTemplates) strategy(t *testing.T, name string) *stubStrategy {
	t.Helper()
	all := f.strategies[name]
	if len(all) == 0 {
		t.Fatalf("no task was built for %q", name)
	}
	return all[len(all)-1]
}

type recordingSurface struct {
	updates int
	last    Grid
	closed  int
}

func (s *recordingSurface) Update(g Grid) { s.updates++; s.last = g }
func (s *recordingSurface) Close() error  { s.closed++; return nil }

type harness struct {
	t         *testing.T
	loop      *manualLoop
	templates *fakeTemplates
	list      *task.List
	bus       *event.Bus
	surface   *recordingSurface
	orch      *Orchestrator
	meta      *task.Base
}

func newHarness(t *testing.T, job Job, templates *fakeTemplates) *harness {
	t.Helper()
	h := &harness{
		t:         t,
		loop:      &manualLoop{},
		templates: templates,
		list:      task.NewList(),
		bus:       event.NewBus(nil),
		surface:   &recordingSurface{},
	}
	components := task.NewComponents(h.bus, nil)
	factory := task.NewFactory(h.list, components)

	orch, err := New(job, Deps{
		Templates: templates,
		Tasks:     h.list,
		Factory:   factory,
		Bus:       h.bus,
		Loop:      h.loop,
		Surface:   h.surface,
	})
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	h.orch = orch
	h.meta = task.NewBase(task.Definition{Name: "job", Cwd: "/work"}, orch,
		task.WithComponentRegistry(components))
	return h
}

func (h *harness) start() {
	h.meta.Start()
	h.loop.drain()
}

func (h *harness) task(i, j int) task.Task {
	h.t.Helper()
	id, ok := h.orch.Slot(i, j).TaskID()
	if !ok {
		h.t.Fatalf("slot (%d, %d) is %s", i, j, h.orch.Slot(i, j).State())
	}
	t := h.list.Get(id)
	if t == nil {
		h.t.Fatalf("slot (%d, %d) task %s not found", i, j, id)
	}
	return t
}

func (h *harness) finish(i, j int, status task.Status) {
	h.t.Helper()
	h.task(i, j).Finalize(status)
	h.loop.drain()
}

func (h *harness) expectStatus(i, j int, want task.Status) {
	h.t.Helper()
	if got := h.task(i, j).Status(); got != want {
		h.t.Errorf("task (%d, %d) status = %s, want %s", i, j, got, want)
	}
}

func (h *harness) expectMeta(want task.Status) {
	h.t.Helper()
	if got := h.meta.Status(); got != want {
		h.t.Errorf("meta status = %s, want %s", got, want)
	}
}

func specs(names ...string) Section {
	s := make(Section, len(names))
	for i, n := range names {
		s[i] = TaskSpec{Name: n}
	}
	return s
}
