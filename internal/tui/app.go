package tui

import (
	"context"
	"errors"
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/willothy/overseer/internal/event"
	"github.com/willothy/overseer/internal/logging"
	"github.com/willothy/overseer/internal/orchestrator"
	"github.com/willothy/overseer/internal/task"
	"github.com/willothy/overseer/internal/tui/styles"
)

// Options configures an App.
type Options struct {
	Title   string
	Actions Actions
	Bus     *event.Bus
	Theme   string
	// OutputLines is how many recent output lines to show; 0 hides output.
	OutputLines int
	Input       io.Reader
	Output      io.Writer
	Logger      *logging.Logger
}

// App wraps the Bubbletea program. It is an orchestrator.Surface, so the
// orchestrator can push grids to it from its own goroutine.
type App struct {
	program *tea.Program
	bus     *event.Bus
	logger  *logging.Logger

	mu     sync.Mutex
	jobID  task.ID
	closed bool
}

// New creates a new TUI application.
func New(ctx context.Context, opts Options) *App {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	model := NewModel(opts.Title, opts.Actions, styles.New(opts.Theme), opts.OutputLines)

	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}

	return &App{
		program: tea.NewProgram(model, progOpts...),
		bus:     opts.Bus,
		logger:  logger,
	}
}

// SetJobID sets the ID of the job's meta-task, whose status is shown in
// the header.
func (a *App) SetJobID(id task.ID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.jobID = id
}

// Run starts the TUI and blocks until it exits. Task status and output
// events on the bus are forwarded to the view while it runs.
func (a *App) Run() error {
	if a.bus != nil {
		subs := []string{
			a.bus.Subscribe(event.TypeTaskStatusChanged, a.onStatusChanged),
			a.bus.Subscribe(event.TypeTaskOutput, a.onOutput),
		}
		defer func() {
			for _, id := range subs {
				a.bus.Unsubscribe(id)
			}
		}()
	}

	_, err := a.program.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		a.logger.Error("tui exited with error", "error", err.Error())
		return err
	}
	return nil
}

func (a *App) onStatusChanged(e event.Event) {
	ev, ok := e.(event.TaskStatusChangedEvent)
	if !ok {
		return
	}
	id := task.ID(ev.TaskID)

	a.mu.Lock()
	isJob := id == a.jobID
	a.mu.Unlock()

	a.program.Send(StatusMsg{
		TaskID: id,
		Name:   ev.TaskName,
		Status: task.Status(ev.NewStatus),
		Job:    isJob,
	})
}

func (a *App) onOutput(e event.Event) {
	ev, ok := e.(event.TaskOutputEvent)
	if !ok {
		return
	}
	a.program.Send(OutputMsg{TaskID: task.ID(ev.TaskID), Line: ev.Line})
}

// Update implements orchestrator.Surface.
func (a *App) Update(g orchestrator.Grid) {
	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()
	if closed {
		return
	}
	a.program.Send(GridMsg{Grid: g})
}

// Close implements orchestrator.Surface. The program quits after drawing
// the last grid it received.
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	a.program.Send(closeMsg{})
	return nil
}
