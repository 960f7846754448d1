package config

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/viper"
)

// Config represents the complete overseer configuration
type Config struct {
	Templates TemplatesConfig `mapstructure:"templates"`
	Tasks     TasksConfig     `mapstructure:"tasks"`
	Render    RenderConfig    `mapstructure:"render"`
	TUI       TUIConfig       `mapstructure:"tui"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// TemplatesConfig controls where task templates are discovered
type TemplatesConfig struct {
	// Dirs are searched in order; a template in a later dir replaces one with
	// the same name from an earlier dir. Relative paths resolve against the
	// job's working directory.
	Dirs []string `mapstructure:"dirs"`
	// Pattern is a doublestar glob matched against paths inside each dir
	Pattern string `mapstructure:"pattern"`
	// Watch reloads templates when files in Dirs change
	Watch bool `mapstructure:"watch"`
	// MaxParallelLoads bounds concurrent template file parsing
	MaxParallelLoads int `mapstructure:"max_parallel_loads"`
}

// TasksConfig controls how concrete tasks are built
type TasksConfig struct {
	// Shell runs string-form template commands as `<shell> -c <cmd>`
	Shell string `mapstructure:"shell"`
	// UsePTY runs processes under a pseudo-terminal
	UsePTY bool `mapstructure:"use_pty"`
	// DefaultComponents are attached to every task built from a template
	DefaultComponents []string `mapstructure:"default_components"`
	// OutputLines is how many trailing output lines a process task keeps
	OutputLines int `mapstructure:"output_lines"`
}

// RenderConfig controls the progress grid
type RenderConfig struct {
	// Separator is placed between a cell and the non-empty cell to its right
	Separator string `mapstructure:"separator"`
}

// TUIConfig controls the terminal UI
type TUIConfig struct {
	// Mode is one of "auto", "always", "never". Auto uses the TUI when stdout is a terminal.
	Mode string `mapstructure:"mode"`
	// Theme is a built-in theme name (see ValidThemes)
	Theme string `mapstructure:"theme"`
}

// LoggingConfig controls structured log output
type LoggingConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Level   string `mapstructure:"level"`
	// Dir holds overseer.log; empty means the state dir under ConfigDir
	Dir string `mapstructure:"dir"`
}

// TUI modes
const (
	TUIModeAuto   = "auto"
	TUIModeAlways = "always"
	TUIModeNever  = "never"
)

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Templates: TemplatesConfig{
			Dirs:             []string{filepath.Join(ConfigDir(), "templates"), ".overseer"},
			Pattern:          "**/*.{yaml,yml}",
			Watch:            false,
			MaxParallelLoads: 8,
		},
		Tasks: TasksConfig{
			Shell:             "sh",
			UsePTY:            false,
			DefaultComponents: []string{"on_complete_log"},
			OutputLines:       200,
		},
		Render: RenderConfig{
			Separator: " -> ",
		},
		TUI: TUIConfig{
			Mode:  TUIModeAuto,
			Theme: "default",
		},
		Logging: LoggingConfig{
			Enabled: false,
			Level:   "info",
			Dir:     "",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("templates.dirs", defaults.Templates.Dirs)
	viper.SetDefault("templates.pattern", defaults.Templates.Pattern)
	viper.SetDefault("templates.watch", defaults.Templates.Watch)
	viper.SetDefault("templates.max_parallel_loads", defaults.Templates.MaxParallelLoads)

	viper.SetDefault("tasks.shell", defaults.Tasks.Shell)
	viper.SetDefault("tasks.use_pty", defaults.Tasks.UsePTY)
	viper.SetDefault("tasks.default_components", defaults.Tasks.DefaultComponents)
	viper.SetDefault("tasks.output_lines", defaults.Tasks.OutputLines)

	viper.SetDefault("render.separator", defaults.Render.Separator)

	viper.SetDefault("tui.mode", defaults.TUI.Mode)
	viper.SetDefault("tui.theme", defaults.TUI.Theme)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if it
// cannot be loaded
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ResolveTemplateDirs returns the template dirs with relative entries
// resolved against baseDir. Duplicates are dropped, keeping the first.
func (c *TemplatesConfig) ResolveTemplateDirs(baseDir string) []string {
	dirs := make([]string, 0, len(c.Dirs))
	for _, dir := range c.Dirs {
		if dir == "" {
			continue
		}
		if len(dir) > 1 && dir[0] == '~' && dir[1] == '/' {
			if home, err := os.UserHomeDir(); err == nil {
				dir = filepath.Join(home, dir[2:])
			}
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(baseDir, dir)
		}
		dir = filepath.Clean(dir)
		if !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// ResolveLogDir returns the directory that holds overseer.log
func (c *LoggingConfig) ResolveLogDir() string {
	if c.Dir != "" {
		return c.Dir
	}
	return filepath.Join(ConfigDir(), "state")
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "overseer")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".overseer"
	}
	return filepath.Join(home, ".config", "overseer")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ValidTUIModes returns the list of valid tui.mode values
func ValidTUIModes() []string {
	return []string{TUIModeAuto, TUIModeAlways, TUIModeNever}
}
