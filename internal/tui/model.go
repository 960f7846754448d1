package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/willothy/overseer/internal/orchestrator"
	"github.com/willothy/overseer/internal/task"
	"github.com/willothy/overseer/internal/tui/styles"
	"github.com/willothy/overseer/internal/util"
)

// Actions are the job controls bound to keys. Implementations must not
// block; they typically post work to the orchestrator's loop.
type Actions interface {
	Stop()
	Restart()
	Quit()
}

// Messages

// GridMsg carries a freshly rendered progress grid.
type GridMsg struct {
	Grid orchestrator.Grid
}

// StatusMsg reports a status change of a task. Job is set when the task is
// the job's own meta-task.
type StatusMsg struct {
	TaskID task.ID
	Name   string
	Status task.Status
	Job    bool
}

// OutputMsg carries one line of output from a task.
type OutputMsg struct {
	TaskID task.ID
	Line   string
}

type closeMsg struct{}

type outputLine struct {
	taskID task.ID
	text   string
}

// Model is the bubbletea model of the job view.
type Model struct {
	title   string
	status  task.Status
	actions Actions

	styles  *styles.Styles
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	grid       orchestrator.Grid
	names      map[task.ID]string
	output     []outputLine
	maxOutput  int
	showOutput bool

	width int
	done  bool
}

// NewModel creates the model for the job named title.
func NewModel(title string, actions Actions, st *styles.Styles, maxOutput int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = st.Spinner

	return Model{
		title:      title,
		status:     task.StatusPending,
		actions:    actions,
		styles:     st,
		keys:       defaultKeyMap(),
		help:       help.New(),
		spinner:    s,
		names:      make(map[task.ID]string),
		maxOutput:  maxOutput,
		showOutput: maxOutput > 0,
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeypress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case GridMsg:
		m.grid = msg.Grid
		return m, nil

	case StatusMsg:
		m.names[msg.TaskID] = msg.Name
		if msg.Job {
			m.status = msg.Status
		}
		return m, nil

	case OutputMsg:
		if m.maxOutput <= 0 {
			return m, nil
		}
		m.output = append(m.output, outputLine{taskID: msg.TaskID, text: msg.Line})
		if over := len(m.output) - m.maxOutput; over > 0 {
			m.output = m.output[over:]
		}
		return m, nil

	case closeMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.done = true
		if m.actions != nil {
			m.actions.Quit()
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.Stop):
		if m.actions != nil {
			m.actions.Stop()
		}
	case key.Matches(msg, m.keys.Restart):
		if m.actions != nil {
			m.actions.Restart()
		}
	case key.Matches(msg, m.keys.Output):
		m.showOutput = !m.showOutput
	}
	return m, nil
}

// View renders the job header, the progress grid, recent output and help.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	for _, line := range RenderGrid(m.grid, m.styles) {
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.showOutput && len(m.output) > 0 {
		b.WriteString(m.renderOutput())
		b.WriteString("\n")
	}

	if !m.done {
		b.WriteString(m.styles.Help.Render(m.help.View(m.keys)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderHeader() string {
	indicator := m.spinner.View()
	if m.status.IsTerminal() || m.status == task.StatusPending {
		indicator = m.styles.Status(m.status).Render("●")
	}
	status := m.styles.Status(m.status).Render(string(m.status))
	return fmt.Sprintf("%s %s %s", indicator, m.styles.Title.Render(m.title), status)
}

func (m Model) renderOutput() string {
	nameWidth := 0
	for _, l := range m.output {
		nameWidth = max(nameWidth, util.Width(m.taskName(l.taskID)))
	}

	textWidth := 0
	if m.width > 0 {
		// border, padding, name column and separator
		textWidth = m.width - 4 - nameWidth - 3
	}

	lines := make([]string, len(m.output))
	for i, l := range m.output {
		text := l.text
		if textWidth > 0 {
			text = util.TruncateANSI(text, textWidth)
		}
		lines[i] = m.styles.Muted.Render(util.PadRight(m.taskName(l.taskID), nameWidth)) + " | " + text
	}
	return m.styles.Output.Render(strings.Join(lines, "\n"))
}

func (m Model) taskName(id task.ID) string {
	if name, ok := m.names[id]; ok && name != "" {
		return name
	}
	return string(id)
}
