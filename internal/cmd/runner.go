package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/willothy/overseer/internal/config"
	"github.com/willothy/overseer/internal/event"
	"github.com/willothy/overseer/internal/logging"
	"github.com/willothy/overseer/internal/orchestrator"
	"github.com/willothy/overseer/internal/task"
	"github.com/willothy/overseer/internal/template"
	"github.com/willothy/overseer/internal/tui"
	"github.com/willothy/overseer/internal/tui/styles"
)

// jobRun is everything needed to run one job to completion.
type jobRun struct {
	Job    *orchestrator.JobFile
	Config *config.Config
	Logger *logging.Logger

	Stdin  io.Reader
	Stdout io.Writer

	// UseTUI shows the interactive view instead of printing grids.
	UseTUI bool
	// KeepOpen keeps the interactive view up after the job finishes.
	KeepOpen bool
	// Color styles printed grids; ignored with UseTUI.
	Color bool
}

// jobResult summarizes a finished job.
type jobResult struct {
	Status   task.Status
	Grid     orchestrator.Grid
	Duration time.Duration
}

// jobControls implements tui.Actions by posting to the orchestrator loop.
type jobControls struct {
	loop   orchestrator.Loop
	meta   task.Task
	cancel context.CancelFunc
}

func (c *jobControls) Stop() {
	c.loop.Post(c.meta.Stop)
}

func (c *jobControls) Restart() {
	c.loop.Post(func() {
		c.meta.Reset()
		c.meta.Start()
	})
}

func (c *jobControls) Quit() {
	c.cancel()
}

// runJob builds the job's collaborators, starts its meta-task and waits
// until the job finishes or ctx is canceled. A canceled run stops every
// running task and reports CANCELED.
func runJob(ctx context.Context, run jobRun) (*jobResult, error) {
	cfg := run.Config
	logger := run.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	logger = logger.WithJob(run.Job.Name)

	cwd := run.Job.Cwd
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		cwd = wd
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bus := event.NewBus(logger)

	registry := template.NewRegistry(
		template.WithDirs(cfg.Templates.ResolveTemplateDirs(cwd)...),
		template.WithPattern(cfg.Templates.Pattern),
		template.WithShell(cfg.Tasks.Shell),
		template.WithMaxParallel(cfg.Templates.MaxParallelLoads),
		template.WithBus(bus),
		template.WithLogger(logger),
	)
	if err := registry.Load(ctx); err != nil {
		return nil, err
	}
	if cfg.Templates.Watch {
		go func() {
			if err := registry.Watch(ctx); err != nil {
				logger.Warn("template watch stopped", "error", err.Error())
			}
		}()
	}

	list := task.NewList()
	factory := task.NewFactory(list, task.NewComponents(bus, logger),
		task.WithProcessPTY(cfg.Tasks.UsePTY),
		task.WithProcessOutputLines(cfg.Tasks.OutputLines),
		task.WithDefaultComponents(cfg.Tasks.DefaultComponents...),
		task.WithFactoryLogger(logger),
		task.WithFactoryBus(bus),
	)

	loop := orchestrator.NewEventLoop(logger)
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = loop.Run(loopCtx)
	}()
	defer func() {
		stopLoop()
		<-loopDone
	}()

	var (
		app      *tui.App
		surface  orchestrator.Surface
		controls = &jobControls{loop: loop, cancel: cancel}
	)
	if run.UseTUI {
		app = tui.New(ctx, tui.Options{
			Title:       run.Job.Name,
			Actions:     controls,
			Bus:         bus,
			Theme:       cfg.TUI.Theme,
			OutputLines: 10,
			Input:       run.Stdin,
			Output:      run.Stdout,
			Logger:      logger,
		})
		surface = app
	} else {
		surface = tui.NewPlainSurface(run.Stdout, newStyles(cfg, run.Color))
	}

	orch, err := orchestrator.New(run.Job.Tasks, orchestrator.Deps{
		Templates: registry,
		Tasks:     list,
		Factory:   factory,
		Bus:       bus,
		Loop:      loop,
		Surface:   surface,
		Logger:    logger,
		Separator: cfg.Render.Separator,
	})
	if err != nil {
		return nil, err
	}

	meta, err := factory.NewTask(task.Definition{
		Name:       run.Job.Name,
		Cwd:        cwd,
		Strategy:   orch,
		Components: []string{task.ComponentStatusBroadcast},
	})
	if err != nil {
		return nil, err
	}
	controls.meta = meta

	finished := make(chan struct{}, 1)
	subID := bus.Subscribe(event.TypeTaskStatusChanged, func(e event.Event) {
		ev, ok := e.(event.TaskStatusChangedEvent)
		if !ok || task.ID(ev.TaskID) != meta.ID() || !task.Status(ev.NewStatus).IsTerminal() {
			return
		}
		select {
		case finished <- struct{}{}:
		default:
		}
	})
	defer bus.Unsubscribe(subID)

	var appWG sync.WaitGroup
	if app != nil {
		app.SetJobID(meta.ID())
		appWG.Add(1)
		go func() {
			defer appWG.Done()
			if err := app.Run(); err != nil {
				logger.Error("tui failed", "error", err.Error())
			}
			cancel()
		}()
	}

	started := time.Now()
	loop.Post(meta.Start)

	waitForJob(ctx, finished, run.UseTUI && run.KeepOpen)

	result := &jobResult{}
	disposeCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	err = loop.Call(disposeCtx, func() {
		meta.Dispose()
		result.Status = meta.Status()
		result.Grid = orch.Grid()
	})
	result.Duration = time.Since(started)
	appWG.Wait()
	if err != nil {
		return nil, fmt.Errorf("failed to dispose job: %w", err)
	}

	logger.Info("job complete", "status", string(result.Status), "duration_ms", result.Duration.Milliseconds())
	return result, nil
}

// waitForJob blocks until the job finishes or ctx is done. With keepOpen
// only ctx ends the wait, so a restarted job keeps running.
func waitForJob(ctx context.Context, finished <-chan struct{}, keepOpen bool) {
	if keepOpen {
		<-ctx.Done()
		return
	}
	select {
	case <-ctx.Done():
	case <-finished:
	}
}

// newStyles returns the styles for plain output, or nil when color is off.
func newStyles(cfg *config.Config, color bool) *styles.Styles {
	if !color {
		return nil
	}
	return styles.New(cfg.TUI.Theme)
}
