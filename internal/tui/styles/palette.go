package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/willothy/overseer/internal/task"
)

// Theme names.
const (
	ThemeDefault    = "default"
	ThemeMonochrome = "monochrome"
)

// AvailableThemes returns the built-in theme names.
func AvailableThemes() []string {
	return []string{ThemeDefault, ThemeMonochrome}
}

// Palette is the set of colors a theme is built from.
type Palette struct {
	Primary lipgloss.TerminalColor
	Muted   lipgloss.TerminalColor
	Text    lipgloss.TerminalColor
	Border  lipgloss.TerminalColor
	Error   lipgloss.TerminalColor

	// Status colors, keyed by render tag.
	Status map[string]lipgloss.TerminalColor
}

// DefaultPalette is a dark theme with one color per task status.
func DefaultPalette() Palette {
	return Palette{
		Primary: lipgloss.Color("#A78BFA"), // violet-400
		Muted:   lipgloss.Color("#9CA3AF"),
		Text:    lipgloss.Color("#F9FAFB"),
		Border:  lipgloss.Color("#6B7280"),
		Error:   lipgloss.Color("#F87171"),
		Status: map[string]lipgloss.TerminalColor{
			task.StatusPending.Tag():  lipgloss.Color("#9CA3AF"),
			task.StatusRunning.Tag():  lipgloss.Color("#60A5FA"),
			task.StatusSuccess.Tag():  lipgloss.Color("#10B981"),
			task.StatusFailure.Tag():  lipgloss.Color("#F87171"),
			task.StatusCanceled.Tag(): lipgloss.Color("#FBBF24"),
			TagUnresolved:             lipgloss.Color("#6B7280"),
		},
	}
}

// MonochromePalette uses the terminal's own colors only.
func MonochromePalette() Palette {
	none := lipgloss.NoColor{}
	return Palette{
		Primary: none,
		Muted:   none,
		Text:    none,
		Border:  none,
		Error:   none,
		Status:  map[string]lipgloss.TerminalColor{},
	}
}

// PaletteFor returns the palette of a built-in theme, falling back to the
// default theme for unknown names.
func PaletteFor(theme string) Palette {
	switch theme {
	case ThemeMonochrome:
		return MonochromePalette()
	default:
		return DefaultPalette()
	}
}
