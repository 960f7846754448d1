package template

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/willothy/overseer/internal/event"
	"github.com/willothy/overseer/internal/logging"
	"github.com/willothy/overseer/internal/task"
)

// DefaultPattern matches YAML files at any depth.
const DefaultPattern = "**/*.{yaml,yml}"

// Registry holds the known templates and resolves them by name. Lookups and
// builds are offered in a synchronous form and in a callback form whose
// callback always fires exactly once on another goroutine.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Template

	fs          afero.Fs
	dirs        []string
	pattern     string
	shell       string
	maxParallel int
	debounce    time.Duration
	bus         *event.Bus
	logger      *logging.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithFs sets the filesystem templates are read from. Defaults to the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(r *Registry) { r.fs = fs }
}

// WithDirs sets the directories searched by Load, in override order.
func WithDirs(dirs ...string) Option {
	return func(r *Registry) { r.dirs = slices.Clone(dirs) }
}

// WithPattern sets the doublestar pattern matched inside each dir.
func WithPattern(pattern string) Option {
	return func(r *Registry) {
		if pattern != "" {
			r.pattern = pattern
		}
	}
}

// WithShell sets the shell used for string-form commands.
func WithShell(shell string) Option {
	return func(r *Registry) {
		if shell != "" {
			r.shell = shell
		}
	}
}

// WithMaxParallel bounds concurrent file parsing during Load.
func WithMaxParallel(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxParallel = n
		}
	}
}

// WithDebounce sets how long Watch waits for file events to settle.
func WithDebounce(d time.Duration) Option {
	return func(r *Registry) { r.debounce = d }
}

// WithBus publishes a templates.reloaded event after each watched reload.
func WithBus(bus *event.Bus) Option {
	return func(r *Registry) { r.bus = bus }
}

// WithLogger sets the registry logger.
func WithLogger(l *logging.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates a registry holding only the built-in templates. Call
// Load to read template files.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		byName:      make(map[string]*Template),
		fs:          afero.NewOsFs(),
		pattern:     DefaultPattern,
		shell:       "sh",
		maxParallel: 8,
		debounce:    100 * time.Millisecond,
		logger:      logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.WithPhase("templates")

	for _, t := range builtins() {
		if err := r.Register(t); err != nil {
			panic(fmt.Sprintf("builtin template %s: %v", t.Name, err))
		}
	}
	return r
}

// Dirs returns the directories searched by Load.
func (r *Registry) Dirs() []string {
	return slices.Clone(r.dirs)
}

// Register validates t and adds it, replacing any template with the same name.
func (r *Registry) Register(t *Template) error {
	if err := t.compile(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.byName[t.Name]; ok {
		r.logger.Debug("template overridden", "template", t.Name, "previous", prev.Source, "source", t.Source)
	}
	r.byName[t.Name] = t
	return nil
}

// Load replaces the registry contents with the built-in templates plus every
// template file found in the configured dirs. Files that fail to parse are
// logged and skipped; missing dirs are ignored.
func (r *Registry) Load(ctx context.Context) error {
	loaded := builtins()
	for _, dir := range r.dirs {
		found, err := r.loadDir(ctx, dir)
		if err != nil {
			return err
		}
		loaded = append(loaded, found...)
	}

	byName := make(map[string]*Template, len(loaded))
	for _, t := range loaded {
		if err := t.compile(); err != nil {
			r.logger.Warn("skipping invalid template", "source", t.Source, "error", err.Error())
			continue
		}
		if prev, ok := byName[t.Name]; ok {
			r.logger.Debug("template overridden", "template", t.Name, "previous", prev.Source, "source", t.Source)
		}
		byName[t.Name] = t
	}

	r.mu.Lock()
	r.byName = byName
	r.mu.Unlock()

	r.logger.Info("templates loaded", "count", len(byName), "dirs", r.dirs)
	return nil
}

// Len returns the number of registered templates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// Templates returns the templates visible from search, sorted by name.
func (r *Registry) Templates(search Search) []*Template {
	r.mu.RLock()
	all := slices.Collect(maps.Values(r.byName))
	r.mu.RUnlock()

	visible := slices.DeleteFunc(all, func(t *Template) bool { return !t.Visible(search) })
	sort.Slice(visible, func(i, j int) bool { return visible[i].Name < visible[j].Name })
	return visible
}

// Lookup returns the template with the given name if it is visible from search.
func (r *Registry) Lookup(name string, search Search) (*Template, error) {
	r.mu.RLock()
	t, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok || !t.Visible(search) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return t, nil
}

// Build renders a task definition from tmpl using the registry's shell.
func (r *Registry) Build(tmpl *Template, opts BuildOpts) (*task.Definition, error) {
	return tmpl.Build(opts, r.shell)
}

// GetByName looks up a template asynchronously. cb receives nil when the
// template is not found or ctx is done.
func (r *Registry) GetByName(ctx context.Context, name string, search Search, cb func(*Template)) {
	go func() {
		if err := ctx.Err(); err != nil {
			cb(nil)
			return
		}
		t, err := r.Lookup(name, search)
		if err != nil {
			r.logger.Debug("template lookup failed", "template", name, "dir", search.Dir)
			cb(nil)
			return
		}
		cb(t)
	}()
}

// BuildTaskArgs builds a task definition asynchronously. cb receives nil when
// the build fails or ctx is done; the reason is logged.
func (r *Registry) BuildTaskArgs(ctx context.Context, tmpl *Template, opts BuildOpts, cb func(*task.Definition)) {
	go func() {
		if tmpl == nil {
			cb(nil)
			return
		}
		if err := ctx.Err(); err != nil {
			r.logger.Warn("task build canceled", "template", tmpl.Name)
			cb(nil)
			return
		}
		def, err := r.Build(tmpl, opts)
		if err != nil {
			r.logger.Warn("failed to build task", "template", tmpl.Name, "error", err.Error())
			cb(nil)
			return
		}
		cb(def)
	}()
}
