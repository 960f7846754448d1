package orchestrator

import (
	"maps"
	"path/filepath"

	"dario.cat/mergo"

	"github.com/willothy/overseer/internal/task"
	"github.com/willothy/overseer/internal/template"
)

// instantiate begins constructing the task for slot (i, j) unless the slot
// is already bound to a live task or has construction under way. Both
// asynchronous steps resume on the loop.
func (o *Orchestrator) instantiate(i, j int) {
	pos := position{i, j}
	slot := o.slots[i][j]
	switch slot.State() {
	case SlotResolved:
		id, _ := slot.TaskID()
		if t := o.tasks.Get(id); t != nil && !t.IsDisposed() {
			return
		}
	case SlotInFlight:
		if !o.failed[pos] {
			return
		}
		delete(o.failed, pos)
	}

	o.slots[i][j] = InFlight()
	spec := o.job[i][j]
	search := template.Search{Dir: o.meta.Cwd()}

	o.templates.GetByName(o.ctx, spec.Name, search, func(tmpl *template.Template) {
		o.loop.Post(func() { o.onTemplate(pos, spec, search, tmpl) })
	})
}

func (o *Orchestrator) onTemplate(pos position, spec TaskSpec, search template.Search, tmpl *template.Template) {
	if o.disposed {
		return
	}
	if tmpl == nil {
		o.logger.Error("template not found", "template", spec.Name, "section", pos.section, "slot", pos.slot)
		o.failSlot(pos)
		return
	}

	opts := template.BuildOpts{Search: search, Params: maps.Clone(spec.Params)}
	o.templates.BuildTaskArgs(o.ctx, tmpl, opts, func(def *task.Definition) {
		o.loop.Post(func() { o.onDefinition(pos, spec, search, def) })
	})
}

func (o *Orchestrator) onDefinition(pos position, spec TaskSpec, search template.Search, def *task.Definition) {
	if o.disposed {
		return
	}
	if def == nil {
		o.logger.Warn("canceled building task", "template", spec.Name, "section", pos.section, "slot", pos.slot)
		o.failSlot(pos)
		return
	}

	if err := applyOverrides(def, spec, search.Dir); err != nil {
		o.logger.Error("failed to apply task overrides", "template", spec.Name, "error", err.Error())
		o.failSlot(pos)
		return
	}

	t, err := o.factory.NewTask(*def)
	if err != nil {
		o.logger.Error("failed to create task", "template", spec.Name, "error", err.Error())
		o.failSlot(pos)
		return
	}
	if err := t.AddComponent(task.ComponentStatusBroadcast); err != nil {
		o.logger.Error("failed to attach status broadcast", "task", t.Name(), "error", err.Error())
		t.Dispose()
		o.failSlot(pos)
		return
	}
	t.SetIncludeInBundle(false)

	o.slots[pos.section][pos.slot] = Resolved(t.ID())
	o.logger.Debug("task created", "template", spec.Name, "task_id", string(t.ID()),
		"section", pos.section, "slot", pos.slot)

	if o.sectionReady(pos.section) {
		o.StartNext()
		return
	}
	o.render()
}

// failSlot records a construction failure and fails the job.
func (o *Orchestrator) failSlot(pos position) {
	o.failed[pos] = true
	o.finalize(task.StatusFailure)
	o.render()
}

// applyOverrides replaces the built cwd with the TaskSpec's, resolving a
// relative one against baseDir, and merges the TaskSpec's env over the built env.
func applyOverrides(def *task.Definition, spec TaskSpec, baseDir string) error {
	if spec.Cwd != "" {
		cwd := spec.Cwd
		if !filepath.IsAbs(cwd) && baseDir != "" {
			cwd = filepath.Join(baseDir, cwd)
		}
		def.Cwd = cwd
	}

	if len(spec.Env) > 0 {
		env := maps.Clone(def.Env)
		if env == nil {
			env = make(map[string]string, len(spec.Env))
		}
		if err := mergo.Merge(&env, spec.Env, mergo.WithOverride); err != nil {
			return err
		}
		def.Env = env
	}
	return nil
}
