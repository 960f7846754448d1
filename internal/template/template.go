package template

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strconv"
	"strings"
	texttemplate "text/template"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/willothy/overseer/internal/task"
)

// ParamType is the declared type of a template parameter.
type ParamType string

const (
	ParamString ParamType = "string"
	ParamList   ParamType = "list"
	ParamBool   ParamType = "bool"
	ParamNumber ParamType = "number"
)

// Param declares one template parameter.
type Param struct {
	Type     ParamType `yaml:"type"`
	Desc     string    `yaml:"desc,omitempty"`
	Default  any       `yaml:"default,omitempty"`
	Optional bool      `yaml:"optional,omitempty"`
}

// Command is a template's command line. In YAML it is either a string, run
// through the configured shell, or a list of arguments run directly. Every
// part is rendered with text/template against the resolved params.
type Command struct {
	Shell string
	Args  []string
}

// UnmarshalYAML accepts a scalar (shell form) or a sequence (argv form).
func (c *Command) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		c.Shell = node.Value
		return nil
	case yaml.SequenceNode:
		return node.Decode(&c.Args)
	default:
		return fmt.Errorf("line %d: cmd must be a string or a list of strings", node.Line)
	}
}

// MarshalYAML writes the form the command was declared in.
func (c Command) MarshalYAML() (any, error) {
	if c.Shell != "" {
		return c.Shell, nil
	}
	return c.Args, nil
}

// IsZero reports whether no command is set.
func (c Command) IsZero() bool {
	return c.Shell == "" && len(c.Args) == 0
}

// String returns the unrendered command for display.
func (c Command) String() string {
	if c.Shell != "" {
		return c.Shell
	}
	return strings.Join(c.Args, " ")
}

// Condition restricts where a template is offered.
type Condition struct {
	// Dir lists glob patterns; the search dir must match one of them.
	Dir []string `yaml:"dir,omitempty"`
}

// Template describes how to build a task definition from parameters.
type Template struct {
	Name       string            `yaml:"name"`
	Desc       string            `yaml:"desc,omitempty"`
	TaskName   string            `yaml:"task_name,omitempty"`
	Params     map[string]Param  `yaml:"params,omitempty"`
	Cmd        Command           `yaml:"cmd"`
	Cwd        string            `yaml:"cwd,omitempty"`
	Env        map[string]string `yaml:"env,omitempty"`
	Components []string          `yaml:"components,omitempty"`
	Condition  Condition         `yaml:"condition,omitempty"`

	// Source is the file the template was loaded from, or "builtin".
	Source string `yaml:"-"`

	dirGlobs []glob.Glob
}

// Search scopes template lookup to a working directory.
type Search struct {
	Dir string
}

// BuildOpts are the inputs to building a task definition.
type BuildOpts struct {
	Search Search
	Params map[string]any
}

// compile validates the template and prepares its condition globs.
func (t *Template) compile() error {
	if t.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidTemplate)
	}
	if t.Cmd.IsZero() {
		return fmt.Errorf("%w: %s: missing cmd", ErrInvalidTemplate, t.Name)
	}
	for name, p := range t.Params {
		switch p.Type {
		case ParamString, ParamList, ParamBool, ParamNumber:
		case "":
			p.Type = ParamString
			t.Params[name] = p
		default:
			return fmt.Errorf("%w: %s: param %q has unknown type %q", ErrInvalidTemplate, t.Name, name, p.Type)
		}
	}

	t.dirGlobs = t.dirGlobs[:0]
	for _, pattern := range t.Condition.Dir {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return fmt.Errorf("%w: %s: condition.dir %q: %v", ErrInvalidTemplate, t.Name, pattern, err)
		}
		t.dirGlobs = append(t.dirGlobs, g)
	}
	return nil
}

// Visible reports whether the template is offered in the search scope.
func (t *Template) Visible(search Search) bool {
	if len(t.dirGlobs) == 0 {
		return true
	}
	for _, g := range t.dirGlobs {
		if g.Match(search.Dir) {
			return true
		}
	}
	return false
}

// ParamNames returns the declared parameter names, sorted.
func (t *Template) ParamNames() []string {
	names := slices.Collect(maps.Keys(t.Params))
	sort.Strings(names)
	return names
}

// Build renders a task definition. Shell-form commands run as
// `shell -c <cmd>`. An empty cwd falls back to the search dir.
func (t *Template) Build(opts BuildOpts, shell string) (*task.Definition, error) {
	values, err := t.resolveParams(opts.Params)
	if err != nil {
		return nil, err
	}

	render := func(field, text string) (string, error) {
		out, err := renderText(text, values)
		if err != nil {
			return "", fmt.Errorf("%s: rendering %s: %w", t.Name, field, err)
		}
		return out, nil
	}

	var cmd []string
	if t.Cmd.Shell != "" {
		line, err := render("cmd", t.Cmd.Shell)
		if err != nil {
			return nil, err
		}
		cmd = []string{shell, "-c", line}
	} else {
		for i, arg := range t.Cmd.Args {
			out, err := render(fmt.Sprintf("cmd[%d]", i), arg)
			if err != nil {
				return nil, err
			}
			cmd = append(cmd, out)
		}
	}

	name := t.Name
	if t.TaskName != "" {
		if name, err = render("task_name", t.TaskName); err != nil {
			return nil, err
		}
	}

	cwd := opts.Search.Dir
	if t.Cwd != "" {
		if cwd, err = render("cwd", t.Cwd); err != nil {
			return nil, err
		}
	}

	var env map[string]string
	if len(t.Env) > 0 {
		env = make(map[string]string, len(t.Env))
		for k, v := range t.Env {
			if env[k], err = render("env."+k, v); err != nil {
				return nil, err
			}
		}
	}

	return &task.Definition{
		Name:       name,
		Cmd:        cmd,
		Cwd:        cwd,
		Env:        env,
		Components: slices.Clone(t.Components),
	}, nil
}

func (t *Template) resolveParams(given map[string]any) (map[string]any, error) {
	for name := range given {
		if _, ok := t.Params[name]; !ok {
			return nil, fmt.Errorf("%w: %s: %q", ErrUnknownParam, t.Name, name)
		}
	}

	values := make(map[string]any, len(t.Params))
	for _, name := range t.ParamNames() {
		p := t.Params[name]
		raw, ok := given[name]
		if !ok || raw == nil {
			switch {
			case p.Default != nil:
				raw = p.Default
			case p.Optional:
				values[name] = p.Type.zero()
				continue
			default:
				return nil, fmt.Errorf("%w: %s: %q", ErrMissingParam, t.Name, name)
			}
		}
		v, err := p.Type.coerce(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %q: %v", ErrInvalidParam, t.Name, name, err)
		}
		values[name] = v
	}
	return values, nil
}

func (pt ParamType) zero() any {
	switch pt {
	case ParamList:
		return []string{}
	case ParamBool:
		return false
	case ParamNumber:
		return float64(0)
	default:
		return ""
	}
}

func (pt ParamType) coerce(v any) (any, error) {
	switch pt {
	case ParamList:
		switch x := v.(type) {
		case []string:
			return slices.Clone(x), nil
		case []any:
			out := make([]string, len(x))
			for i, item := range x {
				out[i] = fmt.Sprint(item)
			}
			return out, nil
		case string:
			return strings.Fields(x), nil
		}
	case ParamBool:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			return strconv.ParseBool(x)
		}
	case ParamNumber:
		switch x := v.(type) {
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case float64:
			return x, nil
		case string:
			return strconv.ParseFloat(x, 64)
		}
	default:
		switch x := v.(type) {
		case string:
			return x, nil
		case int, int64, float64, bool:
			return fmt.Sprint(x), nil
		case []string:
			return strings.Join(x, " "), nil
		case []any:
			parts := make([]string, len(x))
			for i, item := range x {
				parts[i] = fmt.Sprint(item)
			}
			return strings.Join(parts, " "), nil
		}
	}
	return nil, fmt.Errorf("cannot use %T as %s", v, pt)
}

var funcs = texttemplate.FuncMap{
	"join":  strings.Join,
	"quote": strconv.Quote,
}

func renderText(text string, values map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tmpl, err := texttemplate.New("").Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
