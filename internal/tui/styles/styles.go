// Package styles holds the lipgloss styles of the terminal UI.
package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/willothy/overseer/internal/task"
)

// TagUnresolved matches the render tag of cells whose task is still being
// created.
const TagUnresolved = task.TagPrefix + "Unresolved"

// Styles is the full style set for one theme.
type Styles struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Help    lipgloss.Style
	HelpKey lipgloss.Style
	Error   lipgloss.Style
	Spinner lipgloss.Style
	Output  lipgloss.Style

	status map[string]lipgloss.Style
}

// New builds the styles for theme.
func New(theme string) *Styles {
	p := PaletteFor(theme)

	s := &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Primary),
		Muted: lipgloss.NewStyle().Foreground(p.Muted),
		Help: lipgloss.NewStyle().
			Foreground(p.Muted).
			MarginTop(1),
		HelpKey: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Primary),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Error),
		Spinner: lipgloss.NewStyle().Foreground(p.Primary),
		Output: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border).
			Padding(0, 1),
		status: make(map[string]lipgloss.Style, len(p.Status)),
	}

	for tag, color := range p.Status {
		st := lipgloss.NewStyle().Foreground(color)
		if tag == task.StatusFailure.Tag() || tag == task.StatusRunning.Tag() {
			st = st.Bold(true)
		}
		s.status[tag] = st
	}
	return s
}

// Tag returns the style for a render tag. Unknown tags are unstyled.
func (s *Styles) Tag(tag string) lipgloss.Style {
	if st, ok := s.status[tag]; ok {
		return st
	}
	return lipgloss.NewStyle()
}

// Status returns the style for a task status.
func (s *Styles) Status(status task.Status) lipgloss.Style {
	return s.Tag(status.Tag())
}

// Span is a styled byte range of a line.
type Span struct {
	Tag        string
	Start, End int
}

// Apply styles the spans of line. Spans must be sorted; overlapping or
// out-of-range spans are skipped.
func (s *Styles) Apply(line string, spans []Span) string {
	var b strings.Builder
	pos := 0
	for _, sp := range spans {
		if sp.Start < pos || sp.End > len(line) || sp.Start >= sp.End {
			continue
		}
		b.WriteString(line[pos:sp.Start])
		b.WriteString(s.Tag(sp.Tag).Render(line[sp.Start:sp.End]))
		pos = sp.End
	}
	b.WriteString(line[pos:])
	return b.String()
}
