package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}
	if cfg.Render.Separator != " -> " {
		t.Errorf("Render.Separator = %q, want %q", cfg.Render.Separator, " -> ")
	}
	if cfg.Tasks.Shell != "sh" {
		t.Errorf("Tasks.Shell = %q, want %q", cfg.Tasks.Shell, "sh")
	}
	if cfg.TUI.Mode != TUIModeAuto {
		t.Errorf("TUI.Mode = %q, want %q", cfg.TUI.Mode, TUIModeAuto)
	}
	if cfg.Templates.Pattern != "**/*.{yaml,yml}" {
		t.Errorf("Templates.Pattern = %q", cfg.Templates.Pattern)
	}
	if cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be false by default")
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		if got := ConfigDir(); got != "/custom/config/overseer" {
			t.Errorf("ConfigDir() = %q", got)
		}
		if got := ConfigFile(); got != "/custom/config/overseer/config.yaml" {
			t.Errorf("ConfigFile() = %q", got)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		t.Setenv("HOME", "/home/tester")
		if got := ConfigDir(); got != filepath.Join("/home/tester", ".config", "overseer") {
			t.Errorf("ConfigDir() = %q", got)
		}
	})
}

func TestResolveTemplateDirs(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	cfg := TemplatesConfig{Dirs: []string{
		"/abs/templates",
		".overseer",
		"",
		"~/tpl",
		"./.overseer/",
	}}

	got := cfg.ResolveTemplateDirs("/work")
	want := []string{"/abs/templates", "/work/.overseer", "/home/tester/tpl"}

	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ResolveTemplateDirs() = %v, want %v", got, want)
	}
}

func TestResolveLogDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")

	l := LoggingConfig{}
	if got := l.ResolveLogDir(); got != "/cfg/overseer/state" {
		t.Errorf("ResolveLogDir() = %q", got)
	}

	l.Dir = "/var/log/overseer"
	if got := l.ResolveLogDir(); got != "/var/log/overseer" {
		t.Errorf("ResolveLogDir() = %q", got)
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults load cleanly", func(t *testing.T) {
		viper.Reset()
		SetDefaults()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Tasks.OutputLines != 200 {
			t.Errorf("Tasks.OutputLines = %d, want 200", cfg.Tasks.OutputLines)
		}
		if len(cfg.Tasks.DefaultComponents) != 1 || cfg.Tasks.DefaultComponents[0] != "on_complete_log" {
			t.Errorf("Tasks.DefaultComponents = %v", cfg.Tasks.DefaultComponents)
		}
	})

	t.Run("overrides are applied", func(t *testing.T) {
		viper.Reset()
		SetDefaults()
		viper.Set("render.separator", " | ")
		viper.Set("tasks.use_pty", true)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Render.Separator != " | " || !cfg.Tasks.UsePTY {
			t.Errorf("overrides not applied: %+v", cfg)
		}
	})

	t.Run("invalid values return ValidationErrors", func(t *testing.T) {
		viper.Reset()
		SetDefaults()
		viper.Set("tui.mode", "sometimes")

		_, err := Load()
		if err == nil {
			t.Fatal("Load() should fail for invalid tui.mode")
		}
		verrs, ok := err.(ValidationErrors)
		if !ok {
			t.Fatalf("error type = %T, want ValidationErrors", err)
		}
		if verrs[0].Field != "tui.mode" {
			t.Errorf("Field = %q, want tui.mode", verrs[0].Field)
		}
	})

	t.Run("Get falls back to defaults", func(t *testing.T) {
		viper.Reset()
		SetDefaults()
		viper.Set("tasks.shell", "")

		cfg := Get()
		if cfg.Tasks.Shell != "sh" {
			t.Errorf("Get().Tasks.Shell = %q, want default", cfg.Tasks.Shell)
		}
	})

	viper.Reset()
}
