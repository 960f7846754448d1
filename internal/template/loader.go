package template

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

type fileResult struct {
	path      string
	templates []*Template
	err       error
}

// loadDir parses every file under dir matching the registry pattern. The
// result is ordered by path so overrides are deterministic.
func (r *Registry) loadDir(ctx context.Context, dir string) ([]*Template, error) {
	exists, err := afero.DirExists(r.fs, dir)
	if err != nil || !exists {
		r.logger.Debug("template dir not found", "dir", dir)
		return nil, nil
	}

	fsys := afero.NewIOFS(afero.NewBasePathFs(r.fs, dir))
	matches, err := doublestar.Glob(fsys, r.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to glob %s in %s: %w", r.pattern, dir, err)
	}

	p := pool.NewWithResults[fileResult]().WithContext(ctx).WithMaxGoroutines(r.maxParallel)
	for _, match := range matches {
		path := filepath.Join(dir, filepath.FromSlash(match))
		p.Go(func(ctx context.Context) (fileResult, error) {
			if err := ctx.Err(); err != nil {
				return fileResult{}, err
			}
			templates, err := r.parseFile(path)
			return fileResult{path: path, templates: templates, err: err}, nil
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].path < results[j].path })

	var out []*Template
	for _, res := range results {
		if res.err != nil {
			r.logger.Warn("skipping template file", "path", res.path, "error", res.err.Error())
			continue
		}
		out = append(out, res.templates...)
	}
	return out, nil
}

// parseFile decodes one or more YAML documents from path. A single unnamed
// template takes its name from the file name.
func (r *Registry) parseFile(path string) ([]*Template, error) {
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return nil, err
	}
	return ParseTemplates(data, path)
}

// ParseTemplates decodes the YAML documents in data. source is recorded on
// each template and supplies the name of a lone unnamed template.
func ParseTemplates(data []byte, source string) ([]*Template, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var out []*Template
	for {
		var t Template
		err := dec.Decode(&t)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTemplate, source, err)
		}
		t.Source = source
		out = append(out, &t)
	}

	if len(out) == 1 && out[0].Name == "" {
		base := filepath.Base(source)
		out[0].Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	for _, t := range out {
		if err := t.compile(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
