package template

// BuiltinSource is the Source of templates that ship with overseer.
const BuiltinSource = "builtin"

func builtins() []*Template {
	return []*Template{
		{
			Name:     "shell",
			Desc:     "Run a shell command",
			TaskName: "{{if .label}}{{.label}}{{else}}{{.cmd}}{{end}}",
			Params: map[string]Param{
				"cmd":   {Type: ParamString, Desc: "Command to run; a list is joined with spaces"},
				"label": {Type: ParamString, Desc: "Task name shown in the progress grid", Optional: true},
			},
			Cmd:    Command{Shell: "{{.cmd}}"},
			Source: BuiltinSource,
		},
	}
}
