package template

import (
	"errors"
	"slices"
	"testing"
)

func mustCompile(t *testing.T, tmpl *Template) *Template {
	t.Helper()
	if err := tmpl.compile(); err != nil {
		t.Fatalf("compile() = %v", err)
	}
	return tmpl
}

func TestTemplate_BuildArgv(t *testing.T) {
	tmpl := mustCompile(t, &Template{
		Name: "go-test",
		Params: map[string]Param{
			"pkgs":    {Type: ParamList, Default: []any{"./..."}},
			"race":    {Type: ParamBool, Optional: true},
			"timeout": {Type: ParamNumber, Default: 60},
		},
		Cmd: Command{Args: []string{
			"go", "test", "{{if .race}}-race{{end}}", "-timeout={{.timeout}}s", "{{join .pkgs \" \"}}",
		}},
		Env:        map[string]string{"CGO_ENABLED": "{{if .race}}1{{else}}0{{end}}"},
		Components: []string{"on_complete_log"},
	})

	def, err := tmpl.Build(BuildOpts{
		Search: Search{Dir: "/repo"},
		Params: map[string]any{"race": true, "pkgs": []any{"./a", "./b"}},
	}, "sh")
	if err != nil {
		t.Fatalf("Build() = %v", err)
	}

	want := []string{"go", "test", "-race", "-timeout=60s", "./a ./b"}
	if !slices.Equal(def.Cmd, want) {
		t.Errorf("Cmd = %q, want %q", def.Cmd, want)
	}
	if def.Name != "go-test" || def.Cwd != "/repo" {
		t.Errorf("Name/Cwd = %q/%q", def.Name, def.Cwd)
	}
	if def.Env["CGO_ENABLED"] != "1" {
		t.Errorf("Env = %v", def.Env)
	}
	if !slices.Equal(def.Components, []string{"on_complete_log"}) {
		t.Errorf("Components = %v", def.Components)
	}
}

func TestTemplate_BuildShellForm(t *testing.T) {
	tmpl := mustCompile(t, &Template{
		Name:     "serve",
		TaskName: "serve:{{.port}}",
		Params:   map[string]Param{"port": {Type: ParamNumber}},
		Cmd:      Command{Shell: "python -m http.server {{.port}}"},
		Cwd:      "/srv/{{.port}}",
	})

	def, err := tmpl.Build(BuildOpts{Params: map[string]any{"port": "8080"}}, "bash")
	if err != nil {
		t.Fatalf("Build() = %v", err)
	}
	if !slices.Equal(def.Cmd, []string{"bash", "-c", "python -m http.server 8080"}) {
		t.Errorf("Cmd = %q", def.Cmd)
	}
	if def.Name != "serve:8080" || def.Cwd != "/srv/8080" {
		t.Errorf("Name/Cwd = %q/%q", def.Name, def.Cwd)
	}
}

func TestTemplate_BuildParamErrors(t *testing.T) {
	tmpl := mustCompile(t, &Template{
		Name: "deploy",
		Params: map[string]Param{
			"target": {Type: ParamString},
			"dry":    {Type: ParamBool, Optional: true},
		},
		Cmd: Command{Args: []string{"deploy", "{{.target}}"}},
	})

	tests := []struct {
		name    string
		params  map[string]any
		wantErr error
	}{
		{"missing required", nil, ErrMissingParam},
		{"unknown param", map[string]any{"target": "prod", "region": "eu"}, ErrUnknownParam},
		{"wrong type", map[string]any{"target": "prod", "dry": "perhaps"}, ErrInvalidParam},
		{"map is not a string", map[string]any{"target": map[string]any{}}, ErrInvalidParam},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tmpl.Build(BuildOpts{Params: tt.params}, "sh")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Build() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTemplate_RenderError(t *testing.T) {
	tmpl := mustCompile(t, &Template{Name: "bad", Cmd: Command{Shell: "echo {{.nope}}"}})
	if _, err := tmpl.Build(BuildOpts{}, "sh"); err == nil {
		t.Error("expected error for reference to undeclared param")
	}
}

func TestTemplate_Compile(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    Template
		wantErr bool
	}{
		{"valid", Template{Name: "a", Cmd: Command{Shell: "true"}}, false},
		{"missing name", Template{Cmd: Command{Shell: "true"}}, true},
		{"missing cmd", Template{Name: "a"}, true},
		{"bad param type", Template{Name: "a", Cmd: Command{Shell: "true"}, Params: map[string]Param{"x": {Type: "map"}}}, true},
		{"bad glob", Template{Name: "a", Cmd: Command{Shell: "true"}, Condition: Condition{Dir: []string{"[oops"}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tmpl.compile()
			if (err != nil) != tt.wantErr {
				t.Errorf("compile() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidTemplate) {
				t.Errorf("error %v should wrap ErrInvalidTemplate", err)
			}
		})
	}

	untyped := Template{Name: "a", Cmd: Command{Shell: "true"}, Params: map[string]Param{"x": {}}}
	if err := untyped.compile(); err != nil || untyped.Params["x"].Type != ParamString {
		t.Errorf("untyped params should default to string, got %q (%v)", untyped.Params["x"].Type, err)
	}
}

func TestTemplate_Visible(t *testing.T) {
	tmpl := mustCompile(t, &Template{
		Name:      "npm",
		Cmd:       Command{Shell: "npm test"},
		Condition: Condition{Dir: []string{"/work/web/**", "/tmp/*"}},
	})

	tests := map[string]bool{
		"/work/web/app":      true,
		"/work/web/app/deep": true,
		"/tmp/x":             true,
		"/tmp/x/y":           false,
		"/work/api":          false,
	}
	for dir, want := range tests {
		if got := tmpl.Visible(Search{Dir: dir}); got != want {
			t.Errorf("Visible(%q) = %v, want %v", dir, got, want)
		}
	}

	open := mustCompile(t, &Template{Name: "any", Cmd: Command{Shell: "true"}})
	if !open.Visible(Search{Dir: "/anywhere"}) {
		t.Error("template without conditions should be visible everywhere")
	}
}

func TestParseTemplates(t *testing.T) {
	data := []byte(`
name: build
desc: Build everything
cmd: [make, all]
---
name: lint
cmd: golangci-lint run
params:
  fix:
    type: bool
    optional: true
`)
	got, err := ParseTemplates(data, "/t/tasks.yaml")
	if err != nil {
		t.Fatalf("ParseTemplates() = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d templates, want 2", len(got))
	}
	if !slices.Equal(got[0].Cmd.Args, []string{"make", "all"}) || got[1].Cmd.Shell != "golangci-lint run" {
		t.Errorf("commands = %+v / %+v", got[0].Cmd, got[1].Cmd)
	}
	if got[1].Params["fix"].Type != ParamBool || got[1].Source != "/t/tasks.yaml" {
		t.Errorf("unexpected second template: %+v", got[1])
	}

	single, err := ParseTemplates([]byte("cmd: echo hi\n"), "/t/hello.yml")
	if err != nil {
		t.Fatalf("ParseTemplates() = %v", err)
	}
	if single[0].Name != "hello" {
		t.Errorf("unnamed template name = %q, want hello", single[0].Name)
	}

	if _, err := ParseTemplates([]byte("cmd: {a: b}\n"), "bad.yaml"); !errors.Is(err, ErrInvalidTemplate) {
		t.Errorf("mapping cmd error = %v, want ErrInvalidTemplate", err)
	}
}

func TestBuiltinShell(t *testing.T) {
	r := NewRegistry()
	shell, err := r.Lookup("shell", Search{})
	if err != nil {
		t.Fatalf("Lookup(shell) = %v", err)
	}

	def, err := r.Build(shell, BuildOpts{Params: map[string]any{"cmd": []any{"echo", "hi"}}})
	if err != nil {
		t.Fatalf("Build() = %v", err)
	}
	if !slices.Equal(def.Cmd, []string{"sh", "-c", "echo hi"}) || def.Name != "echo hi" {
		t.Errorf("def = %+v", def)
	}

	def, err = r.Build(shell, BuildOpts{Params: map[string]any{"cmd": "make", "label": "build"}})
	if err != nil {
		t.Fatalf("Build() = %v", err)
	}
	if def.Name != "build" {
		t.Errorf("Name = %q, want build", def.Name)
	}
}
