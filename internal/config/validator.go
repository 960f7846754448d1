package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "tasks.output_lines")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// KnownComponents lists the component names tasks can be built with.
func KnownComponents() []string {
	return []string{"on_status_broadcast", "on_complete_log"}
}

// ValidThemes lists the built-in TUI themes.
func ValidThemes() []string {
	return []string{"default", "monochrome"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateTemplates()...)
	errors = append(errors, c.validateTasks()...)
	errors = append(errors, c.validateRender()...)
	errors = append(errors, c.validateTUI()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateTemplates() []ValidationError {
	var errors []ValidationError

	if c.Templates.Pattern == "" {
		errors = append(errors, ValidationError{
			Field:   "templates.pattern",
			Value:   c.Templates.Pattern,
			Message: "must not be empty",
		})
	} else if !doublestar.ValidatePattern(c.Templates.Pattern) {
		errors = append(errors, ValidationError{
			Field:   "templates.pattern",
			Value:   c.Templates.Pattern,
			Message: "is not a valid glob pattern",
		})
	}

	for i, dir := range c.Templates.Dirs {
		if strings.ContainsRune(dir, '\x00') {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("templates.dirs[%d]", i),
				Value:   dir,
				Message: "path contains invalid null character",
			})
		}
	}

	if c.Templates.MaxParallelLoads < 1 {
		errors = append(errors, ValidationError{
			Field:   "templates.max_parallel_loads",
			Value:   c.Templates.MaxParallelLoads,
			Message: "must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateTasks() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Tasks.Shell) == "" {
		errors = append(errors, ValidationError{
			Field:   "tasks.shell",
			Value:   c.Tasks.Shell,
			Message: "must not be empty",
		})
	}

	for i, name := range c.Tasks.DefaultComponents {
		if !slices.Contains(KnownComponents(), name) {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("tasks.default_components[%d]", i),
				Value:   name,
				Message: fmt.Sprintf("must be one of: %s", strings.Join(KnownComponents(), ", ")),
			})
		}
	}

	if c.Tasks.OutputLines < 0 {
		errors = append(errors, ValidationError{
			Field:   "tasks.output_lines",
			Value:   c.Tasks.OutputLines,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateRender() []ValidationError {
	if strings.ContainsAny(c.Render.Separator, "\n\r") {
		return []ValidationError{{
			Field:   "render.separator",
			Value:   c.Render.Separator,
			Message: "must not contain line breaks",
		}}
	}
	return nil
}

func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	if !slices.Contains(ValidTUIModes(), c.TUI.Mode) {
		errors = append(errors, ValidationError{
			Field:   "tui.mode",
			Value:   c.TUI.Mode,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidTUIModes(), ", ")),
		})
	}

	if c.TUI.Theme != "" && !slices.Contains(ValidThemes(), c.TUI.Theme) {
		errors = append(errors, ValidationError{
			Field:   "tui.theme",
			Value:   c.TUI.Theme,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidThemes(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		return []ValidationError{{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		}}
	}
	return nil
}
