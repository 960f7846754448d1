package orchestrator

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Keys of a mapping spec that are overrides rather than template params.
const (
	keyName = "name"
	keyCwd  = "cwd"
	keyEnv  = "env"
)

// TaskSpec names a template plus the params and overrides used to build one task.
type TaskSpec struct {
	Name   string
	Params map[string]any
	// Cwd, when set, replaces the working directory the template produced.
	Cwd string
	// Env is merged over the environment the template produced.
	Env map[string]string
}

// Section is a set of specs whose tasks run in parallel.
type Section []TaskSpec

// Job is the ordered list of sections to run.
type Job []Section

// Size returns the number of task specs in the job.
func (j Job) Size() int {
	n := 0
	for _, s := range j {
		n += len(s)
	}
	return n
}

// UnmarshalYAML decodes the job grammar through NormalizeJob.
func (j *Job) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	job, err := NormalizeJob(raw)
	if err != nil {
		return err
	}
	*j = job
	return nil
}

// JobFile is the on-disk form of a job.
type JobFile struct {
	Name string `yaml:"name"`
	// Cwd is the directory templates are searched from; relative paths
	// resolve against the job file's directory.
	Cwd   string `yaml:"cwd"`
	Tasks Job    `yaml:"tasks"`
}

// ParseJobFile decodes a job file. The document is either a mapping with
// name, cwd and tasks keys, or a bare list of entries.
func ParseJobFile(data []byte) (*JobFile, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	if len(node.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidJob)
	}

	root := node.Content[0]
	var jf JobFile
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&jf.Tasks); err != nil {
			return nil, err
		}
	case yaml.MappingNode:
		if err := root.Decode(&jf); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: document must be a list of tasks or a mapping", ErrInvalidJob)
	}
	return &jf, nil
}

// ParseJob decodes the job entries from a job file, ignoring its name and cwd.
func ParseJob(data []byte) (Job, error) {
	jf, err := ParseJobFile(data)
	if err != nil {
		return nil, err
	}
	return jf.Tasks, nil
}

// LoadJobFile reads and parses the job file at path. The job name defaults
// to the file name; a relative cwd resolves against the file's directory.
func LoadJobFile(path string) (*JobFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	jf, err := ParseJobFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if jf.Name == "" {
		base := filepath.Base(path)
		jf.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if jf.Cwd != "" && !filepath.IsAbs(jf.Cwd) {
		jf.Cwd = filepath.Join(filepath.Dir(path), jf.Cwd)
	}
	return jf, nil
}

// NormalizeJob converts a decoded job value ([]any of entries) to a Job. An
// entry is a spec, forming a section of one, or a list of specs forming a
// parallel section. A spec is a template name or a mapping with a name key;
// its cwd and env keys are overrides and every other key is a param.
func NormalizeJob(raw any) (Job, error) {
	var entries []any
	switch v := raw.(type) {
	case nil:
		return Job{}, nil
	case []any:
		entries = v
	case []string:
		for _, s := range v {
			entries = append(entries, s)
		}
	case Job:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: job must be a list, got %T", ErrInvalidJob, raw)
	}

	job := make(Job, 0, len(entries))
	for i, entry := range entries {
		switch e := entry.(type) {
		case []any:
			section := make(Section, 0, len(e))
			for j, item := range e {
				if _, nested := item.([]any); nested {
					return nil, fmt.Errorf("%w: entry %d item %d: sections cannot be nested", ErrInvalidJob, i, j)
				}
				spec, err := normalizeSpec(item)
				if err != nil {
					return nil, fmt.Errorf("%w: entry %d item %d: %v", ErrInvalidJob, i, j, err)
				}
				section = append(section, spec)
			}
			job = append(job, section)
		default:
			spec, err := normalizeSpec(e)
			if err != nil {
				return nil, fmt.Errorf("%w: entry %d: %v", ErrInvalidJob, i, err)
			}
			job = append(job, Section{spec})
		}
	}
	return job, nil
}

func normalizeSpec(raw any) (TaskSpec, error) {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return TaskSpec{}, fmt.Errorf("empty template name")
		}
		return TaskSpec{Name: v}, nil
	case TaskSpec:
		if v.Name == "" {
			return TaskSpec{}, fmt.Errorf("empty template name")
		}
		return v, nil
	case map[string]any:
		return specFromMap(v)
	default:
		return TaskSpec{}, fmt.Errorf("spec must be a name or a mapping, got %T", raw)
	}
}

func specFromMap(m map[string]any) (TaskSpec, error) {
	var spec TaskSpec

	name, ok := m[keyName].(string)
	if !ok || name == "" {
		return spec, fmt.Errorf("spec mapping needs a string %q key", keyName)
	}
	spec.Name = name

	if raw, ok := m[keyCwd]; ok {
		cwd, ok := raw.(string)
		if !ok {
			return spec, fmt.Errorf("%s: %q must be a string", name, keyCwd)
		}
		spec.Cwd = cwd
	}

	if raw, ok := m[keyEnv]; ok {
		env, err := toEnv(raw)
		if err != nil {
			return spec, fmt.Errorf("%s: %v", name, err)
		}
		spec.Env = env
	}

	params := maps.Clone(m)
	delete(params, keyName)
	delete(params, keyCwd)
	delete(params, keyEnv)
	if len(params) > 0 {
		spec.Params = params
	}
	return spec, nil
}

func toEnv(raw any) (map[string]string, error) {
	switch v := raw.(type) {
	case map[string]string:
		return maps.Clone(v), nil
	case map[string]any:
		env := make(map[string]string, len(v))
		for k, val := range v {
			switch val.(type) {
			case string, int, int64, float64, bool:
				env[k] = fmt.Sprint(val)
			default:
				return nil, fmt.Errorf("env %q must be a scalar, got %T", k, val)
			}
		}
		return env, nil
	default:
		return nil, fmt.Errorf("%q must be a mapping, got %T", keyEnv, raw)
	}
}
