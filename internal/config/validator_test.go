package config

import (
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{{Field: "test.field", Value: 123, Message: "is invalid"}}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	if errs := Default().Validate(); len(errs) != 0 {
		t.Errorf("Default config should be valid, got errors: %v", errs)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*Config)
		wantField string
	}{
		{
			name:      "empty pattern",
			modify:    func(c *Config) { c.Templates.Pattern = "" },
			wantField: "templates.pattern",
		},
		{
			name:      "malformed pattern",
			modify:    func(c *Config) { c.Templates.Pattern = "**/[.yaml" },
			wantField: "templates.pattern",
		},
		{
			name:      "null byte in dir",
			modify:    func(c *Config) { c.Templates.Dirs = []string{"ok", "bad\x00dir"} },
			wantField: "templates.dirs[1]",
		},
		{
			name:      "zero parallel loads",
			modify:    func(c *Config) { c.Templates.MaxParallelLoads = 0 },
			wantField: "templates.max_parallel_loads",
		},
		{
			name:      "blank shell",
			modify:    func(c *Config) { c.Tasks.Shell = "  " },
			wantField: "tasks.shell",
		},
		{
			name:      "unknown component",
			modify:    func(c *Config) { c.Tasks.DefaultComponents = []string{"on_complete_log", "restart_on_save"} },
			wantField: "tasks.default_components[1]",
		},
		{
			name:      "negative output lines",
			modify:    func(c *Config) { c.Tasks.OutputLines = -1 },
			wantField: "tasks.output_lines",
		},
		{
			name:      "multiline separator",
			modify:    func(c *Config) { c.Render.Separator = "\n" },
			wantField: "render.separator",
		},
		{
			name:      "unknown tui mode",
			modify:    func(c *Config) { c.TUI.Mode = "maybe" },
			wantField: "tui.mode",
		},
		{
			name:      "unknown theme",
			modify:    func(c *Config) { c.TUI.Theme = "neon" },
			wantField: "tui.theme",
		},
		{
			name:      "unknown log level",
			modify:    func(c *Config) { c.Logging.Level = "verbose" },
			wantField: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			errs := cfg.Validate()
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %d: %v", len(errs), errs)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.wantField)
			}
		})
	}
}
