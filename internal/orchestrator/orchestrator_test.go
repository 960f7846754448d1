package orchestrator

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/willothy/overseer/internal/event"
	"github.com/willothy/overseer/internal/task"
)

func TestNew_MissingDependencies(t *testing.T) {
	full := func() Deps {
		return Deps{
			Templates: newFakeTemplates(),
			Tasks:     task.NewList(),
			Factory:   task.NewFactory(task.NewList(), task.NewComponents(nil, nil)),
			Bus:       event.NewBus(nil),
			Loop:      &manualLoop{},
		}
	}

	tests := []struct {
		name  string
		strip func(*Deps)
	}{
		{"templates", func(d *Deps) { d.Templates = nil }},
		{"tasks", func(d *Deps) { d.Tasks = nil }},
		{"factory", func(d *Deps) { d.Factory = nil }},
		{"bus", func(d *Deps) { d.Bus = nil }},
		{"loop", func(d *Deps) { d.Loop = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := full()
			tt.strip(&deps)
			if _, err := New(Job{specs("a")}, deps); !errors.Is(err, ErrMissingDependency) {
				t.Errorf("New() error = %v, want ErrMissingDependency", err)
			}
		})
	}

	if _, err := New(Job{specs("a")}, full()); err != nil {
		t.Errorf("New() with all deps = %v", err)
	}
}

func TestOrchestrator_RunsSectionsInOrder(t *testing.T) {
	job := Job{specs("a"), specs("b", "c"), specs("d")}
	h := newHarness(t, job, newFakeTemplates("a", "b", "c", "d"))

	h.start()
	h.expectMeta(task.StatusRunning)
	h.expectStatus(0, 0, task.StatusRunning)
	h.expectStatus(1, 0, task.StatusPending)
	h.expectStatus(1, 1, task.StatusPending)
	h.expectStatus(2, 0, task.StatusPending)

	h.finish(0, 0, task.StatusSuccess)
	h.expectStatus(1, 0, task.StatusRunning)
	h.expectStatus(1, 1, task.StatusRunning)
	h.expectStatus(2, 0, task.StatusPending)

	h.finish(1, 1, task.StatusSuccess)
	h.expectStatus(1, 0, task.StatusRunning)
	h.expectStatus(2, 0, task.StatusPending)

	h.finish(1, 0, task.StatusSuccess)
	h.expectStatus(2, 0, task.StatusRunning)
	h.expectMeta(task.StatusRunning)

	h.finish(2, 0, task.StatusSuccess)
	h.expectMeta(task.StatusSuccess)

	for _, name := range []string{"a", "b", "c", "d"} {
		if s := h.templates.strategy(t, name); s.starts != 1 {
			t.Errorf("%s started %d times, want 1", name, s.starts)
		}
	}
}

func TestOrchestrator_EmptyJobSucceeds(t *testing.T) {
	h := newHarness(t, Job{}, newFakeTemplates())
	h.start()
	h.expectMeta(task.StatusSuccess)
}

func TestOrchestrator_FailFast(t *testing.T) {
	job := Job{specs("a", "b"), specs("c")}
	h := newHarness(t, job, newFakeTemplates("a", "b", "c"))
	h.start()

	h.finish(0, 0, task.StatusFailure)

	h.expectMeta(task.StatusFailure)
	h.expectStatus(0, 1, task.StatusCanceled)
	h.expectStatus(1, 0, task.StatusPending)
	if s := h.templates.strategy(t, "b"); s.stops != 1 {
		t.Errorf("running sibling stopped %d times, want 1", s.stops)
	}
	if s := h.templates.strategy(t, "c"); s.starts != 0 {
		t.Errorf("later section started %d times, want 0", s.starts)
	}
}

func TestOrchestrator_FirstNonSuccessWins(t *testing.T) {
	h := newHarness(t, Job{specs("a", "b", "c")}, newFakeTemplates("a", "b", "c"))
	h.start()

	// a is still running and comes first, so the section keeps running
	h.finish(0, 1, task.StatusCanceled)
	h.expectMeta(task.StatusRunning)
	h.expectStatus(0, 2, task.StatusRunning)

	h.finish(0, 0, task.StatusSuccess)
	h.expectMeta(task.StatusCanceled)
	h.expectStatus(0, 2, task.StatusCanceled)
}

func TestOrchestrator_TemplateNotFound(t *testing.T) {
	job := Job{specs("a"), specs("missing")}
	templates := newFakeTemplates("a")
	h := newHarness(t, job, templates)
	h.start()

	h.expectMeta(task.StatusFailure)
	h.expectStatus(0, 0, task.StatusPending)
	if s := templates.strategy(t, "a"); s.starts != 0 {
		t.Errorf("task started %d times after a failed lookup, want 0", s.starts)
	}
	if st := h.orch.Slot(1, 0).State(); st == SlotResolved {
		t.Errorf("missing template slot state = %s", st)
	}

	// the failed slot is retried on the next run, the built one is reused
	templates.known["missing"] = true
	h.meta.Reset()
	h.start()

	h.expectMeta(task.StatusRunning)
	h.expectStatus(0, 0, task.StatusRunning)
	if len(templates.strategies["a"]) != 1 {
		t.Errorf("a built %d times, want 1", len(templates.strategies["a"]))
	}
	if h.orch.Slot(1, 0).State() != SlotResolved {
		t.Errorf("retried slot state = %s, want resolved", h.orch.Slot(1, 0).State())
	}
}

func TestOrchestrator_BuildCanceled(t *testing.T) {
	templates := newFakeTemplates("a")
	templates.failBuild["a"] = true
	h := newHarness(t, Job{specs("a")}, templates)
	h.start()

	h.expectMeta(task.StatusFailure)
	if h.list.Len() != 0 {
		t.Errorf("list has %d tasks, want 0", h.list.Len())
	}
}

func TestOrchestrator_StartNextIsIdempotent(t *testing.T) {
	job := Job{specs("a"), specs("b", "c")}
	templates := newFakeTemplates("a", "b", "c")
	h := newHarness(t, job, templates)
	h.start()

	for range 5 {
		h.orch.StartNext()
		h.loop.drain()
	}

	if len(templates.lookups) != job.Size() {
		t.Errorf("lookups = %v, want one per spec", templates.lookups)
	}
	if s := templates.strategy(t, "a"); s.starts != 1 {
		t.Errorf("a started %d times, want 1", s.starts)
	}
	h.expectStatus(1, 0, task.StatusPending)

	h.finish(0, 0, task.StatusSuccess)
	h.finish(1, 0, task.StatusSuccess)
	h.finish(1, 1, task.StatusSuccess)
	h.expectMeta(task.StatusSuccess)

	// a complete job ignores further advancement
	h.orch.StartNext()
	h.loop.drain()
	h.expectMeta(task.StatusSuccess)
}

func TestOrchestrator_StartTwiceBeforeConstruction(t *testing.T) {
	job := Job{specs("a"), specs("b", "c")}
	templates := newFakeTemplates("a", "b", "c")
	h := newHarness(t, job, templates)

	h.meta.Start()
	if err := h.orch.Start(h.meta); err != nil {
		t.Fatalf("second Start() = %v", err)
	}
	h.loop.drain()

	if len(templates.lookups) != job.Size() {
		t.Errorf("lookups = %v, want one per spec", templates.lookups)
	}
	if h.list.Len() != job.Size() {
		t.Errorf("list has %d tasks, want %d", h.list.Len(), job.Size())
	}
	if s := templates.strategy(t, "a"); s.starts != 1 {
		t.Errorf("a started %d times, want 1", s.starts)
	}
	h.expectStatus(0, 0, task.StatusRunning)
	h.expectStatus(1, 0, task.StatusPending)
	h.expectStatus(1, 1, task.StatusPending)
}

func TestOrchestrator_ResetReusesTasks(t *testing.T) {
	templates := newFakeTemplates("a", "b")
	h := newHarness(t, Job{specs("a"), specs("b")}, templates)
	h.start()
	h.finish(0, 0, task.StatusSuccess)
	h.finish(1, 0, task.StatusSuccess)
	h.expectMeta(task.StatusSuccess)

	first := h.task(0, 0).ID()

	h.meta.Reset()
	h.loop.drain()
	h.expectStatus(0, 0, task.StatusPending)
	h.expectStatus(1, 0, task.StatusPending)

	h.start()
	if got := h.task(0, 0).ID(); got != first {
		t.Errorf("task ID after reset = %s, want %s", got, first)
	}
	h.expectStatus(0, 0, task.StatusRunning)
	if len(templates.lookups) != 2 {
		t.Errorf("lookups = %v, want no new lookups", templates.lookups)
	}
	if s := templates.strategy(t, "a"); s.starts != 2 || s.resets != 1 {
		t.Errorf("a starts=%d resets=%d, want 2 and 1", s.starts, s.resets)
	}
}

func TestOrchestrator_StopCancelsRunningTasks(t *testing.T) {
	h := newHarness(t, Job{specs("a", "b"), specs("c")}, newFakeTemplates("a", "b", "c"))
	h.start()
	h.finish(0, 1, task.StatusSuccess)

	h.meta.Stop()
	h.loop.drain()

	h.expectMeta(task.StatusCanceled)
	h.expectStatus(0, 0, task.StatusCanceled)
	h.expectStatus(0, 1, task.StatusSuccess)
	h.expectStatus(1, 0, task.StatusPending)
}

func TestOrchestrator_DisposeIsIdempotent(t *testing.T) {
	h := newHarness(t, Job{specs("a", "b"), specs("c")}, newFakeTemplates("a", "b", "c"))
	h.start()

	// one sub-task is already gone before the job is disposed
	h.task(0, 1).Dispose()

	h.meta.Dispose()
	h.meta.Dispose()
	h.orch.Dispose()
	h.loop.drain()

	if h.list.Len() != 0 {
		t.Errorf("list has %d tasks after dispose, want 0", h.list.Len())
	}
	if h.surface.closed != 1 {
		t.Errorf("surface closed %d times, want 1", h.surface.closed)
	}
	if h.bus.SubscriptionCount() != 0 {
		t.Errorf("bus has %d subscriptions after dispose", h.bus.SubscriptionCount())
	}
	for _, name := range []string{"a", "b", "c"} {
		if s := h.templates.strategy(t, name); s.disposes != 1 {
			t.Errorf("%s disposed %d times, want 1", name, s.disposes)
		}
	}
	if err := h.orch.Start(h.meta); !errors.Is(err, ErrDisposed) {
		t.Errorf("Start() after dispose = %v, want ErrDisposed", err)
	}
}

func TestOrchestrator_DisposeDuringConstruction(t *testing.T) {
	templates := newFakeTemplates("a")
	h := newHarness(t, Job{specs("a")}, templates)

	h.meta.Start()
	h.meta.Dispose()
	h.loop.drain()

	if h.list.Len() != 0 {
		t.Errorf("list has %d tasks, want 0", h.list.Len())
	}
	if len(templates.strategies["a"]) != 0 {
		t.Error("task built after the job was disposed")
	}
}

func TestOrchestrator_MissingTaskCountsAsFailure(t *testing.T) {
	h := newHarness(t, Job{specs("a", "b")}, newFakeTemplates("a", "b"))
	h.start()

	h.list.Remove(h.task(0, 1).ID())
	h.finish(0, 0, task.StatusSuccess)

	h.expectMeta(task.StatusFailure)
}

func TestOrchestrator_IgnoresForeignTasks(t *testing.T) {
	h := newHarness(t, Job{specs("a")}, newFakeTemplates("a"))
	h.start()
	before := h.surface.updates

	h.bus.Publish(event.NewTaskStatusChangedEvent("someone-else", "x", "RUNNING", "SUCCESS"))
	h.loop.drain()

	if h.surface.updates != before {
		t.Errorf("foreign status change triggered %d renders", h.surface.updates-before)
	}
	h.expectMeta(task.StatusRunning)
}

func TestOrchestrator_Overrides(t *testing.T) {
	templates := newFakeTemplates("build")
	templates.env = map[string]string{"FROM": "template", "MODE": "debug"}

	job := Job{
		{
			{Name: "build", Cwd: "sub", Env: map[string]string{"MODE": "release"}, Params: map[string]any{"target": "all"}},
			{Name: "build", Cwd: "/abs"},
		},
	}
	h := newHarness(t, job, templates)
	h.start()

	rel := h.task(0, 0)
	if want := filepath.Join("/work", "sub"); rel.Cwd() != want {
		t.Errorf("cwd = %q, want %q", rel.Cwd(), want)
	}
	env := rel.Env()
	if env["MODE"] != "release" || env["FROM"] != "template" {
		t.Errorf("env = %v", env)
	}
	if abs := h.task(0, 1); abs.Cwd() != "/abs" {
		t.Errorf("absolute cwd = %q", abs.Cwd())
	}

	if got := templates.params["build"]; got != nil {
		t.Errorf("second spec params = %v, want nil", got)
	}
}

func TestOrchestrator_ParamsAreCopied(t *testing.T) {
	templates := newFakeTemplates("build")
	params := map[string]any{"target": "all"}
	h := newHarness(t, Job{{{Name: "build", Params: params}}}, templates)
	h.start()

	got := templates.params["build"]
	if got["target"] != "all" {
		t.Fatalf("params = %v", got)
	}
	got["target"] = "mutated"
	if params["target"] != "all" {
		t.Error("template build mutated the job's params")
	}
}

func TestOrchestrator_SubTasksHiddenFromBundle(t *testing.T) {
	h := newHarness(t, Job{specs("a", "b")}, newFakeTemplates("a", "b"))
	h.start()

	if n := len(h.list.Bundle()); n != 0 {
		t.Errorf("bundle has %d sub-tasks, want 0", n)
	}
	comps := h.task(0, 0).(*task.Base).Components()
	found := false
	for _, c := range comps {
		if c == task.ComponentStatusBroadcast {
			found = true
		}
	}
	if !found {
		t.Errorf("components = %v, want %s attached", comps, task.ComponentStatusBroadcast)
	}
}
