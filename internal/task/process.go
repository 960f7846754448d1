package task

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"sort"
	"sync"

	"github.com/creack/pty"

	"github.com/willothy/overseer/internal/event"
	"github.com/willothy/overseer/internal/logging"
)

// ProcessStrategy runs a command as a child process. Exit code 0 finalizes
// SUCCESS, any other exit FAILURE, and a stopped process CANCELED.
type ProcessStrategy struct {
	cmd      []string
	env      map[string]string
	usePTY   bool
	maxLines int
	bus      *event.Bus
	logger   *logging.Logger

	mu      sync.Mutex
	proc    *exec.Cmd
	gen     int
	stopped bool
	output  []string
	done    chan struct{}
}

// ProcessOption configures a ProcessStrategy.
type ProcessOption func(*ProcessStrategy)

// WithPTY runs the process under a pseudo-terminal.
func WithPTY(enabled bool) ProcessOption {
	return func(p *ProcessStrategy) { p.usePTY = enabled }
}

// WithOutputLines sets how many trailing output lines are retained.
func WithOutputLines(n int) ProcessOption {
	return func(p *ProcessStrategy) { p.maxLines = n }
}

// WithOutputBus publishes every output line as a task.output event.
func WithOutputBus(bus *event.Bus) ProcessOption {
	return func(p *ProcessStrategy) { p.bus = bus }
}

// WithProcessLogger sets the logger used for output and exit details.
func WithProcessLogger(l *logging.Logger) ProcessOption {
	return func(p *ProcessStrategy) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProcessStrategy creates a strategy that runs cmd with env layered over
// the current environment.
func NewProcessStrategy(cmd []string, env map[string]string, opts ...ProcessOption) *ProcessStrategy {
	p := &ProcessStrategy{
		cmd:      slices.Clone(cmd),
		env:      env,
		maxLines: 200,
		logger:   logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the process in t's working directory.
func (p *ProcessStrategy) Start(t Task) error {
	if len(p.cmd) == 0 {
		return errors.New("empty command")
	}

	c := exec.Command(p.cmd[0], p.cmd[1:]...)
	c.Dir = t.Cwd()
	c.Env = append(os.Environ(), envList(p.env)...)
	prepareCmd(c, p.usePTY)

	var out io.ReadCloser
	if p.usePTY {
		f, err := pty.Start(c)
		if err != nil {
			return fmt.Errorf("failed to start %q under pty: %w", p.cmd[0], err)
		}
		out = f
	} else {
		r, w, err := os.Pipe()
		if err != nil {
			return fmt.Errorf("failed to create output pipe: %w", err)
		}
		c.Stdout = w
		c.Stderr = w
		if err := c.Start(); err != nil {
			_ = r.Close()
			_ = w.Close()
			return fmt.Errorf("failed to start %q: %w", p.cmd[0], err)
		}
		// the child holds its own copy
		_ = w.Close()
		out = r
	}

	p.mu.Lock()
	p.gen++
	gen := p.gen
	p.proc = c
	p.stopped = false
	p.output = nil
	done := make(chan struct{})
	p.done = done
	p.mu.Unlock()

	logger := p.logger.With("task_id", string(t.ID()), "pid", c.Process.Pid)
	logger.Debug("process started", "cmd", p.cmd)

	go p.wait(t, gen, c, out, done, logger)
	return nil
}

func (p *ProcessStrategy) wait(t Task, gen int, c *exec.Cmd, out io.ReadCloser, done chan struct{}, logger *logging.Logger) {
	defer close(done)

	scanner := bufio.NewScanner(out)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		p.appendLine(t, scanner.Text())
	}
	// a pty returns EIO once the child exits
	if err := scanner.Err(); err != nil && (!p.usePTY || errors.Is(err, bufio.ErrTooLong)) {
		logger.Warn("output reading stopped", "error", err.Error())
	}
	// keep the child from blocking or dying on a full pipe
	_, _ = io.Copy(io.Discard, out)
	_ = out.Close()

	err := c.Wait()

	p.mu.Lock()
	current := p.gen == gen
	stopped := p.stopped
	p.mu.Unlock()
	if !current {
		return
	}

	switch {
	case stopped:
		t.Finalize(StatusCanceled)
	case err != nil:
		logger.Debug("process exited", "error", err.Error())
		t.Finalize(StatusFailure)
	default:
		logger.Debug("process exited", "exit_code", 0)
		t.Finalize(StatusSuccess)
	}
}

func (p *ProcessStrategy) appendLine(t Task, line string) {
	p.mu.Lock()
	if p.maxLines > 0 {
		p.output = append(p.output, line)
		if over := len(p.output) - p.maxLines; over > 0 {
			p.output = slices.Delete(p.output, 0, over)
		}
	}
	p.mu.Unlock()

	if p.bus != nil {
		p.bus.Publish(event.NewTaskOutputEvent(string(t.ID()), line))
	}
}

// Stop kills the running process, if any.
func (p *ProcessStrategy) Stop() {
	p.mu.Lock()
	p.stopped = true
	c := p.proc
	p.mu.Unlock()

	if c == nil || c.Process == nil {
		return
	}
	if err := killProcess(c); err != nil {
		p.logger.Debug("failed to kill process", "error", err.Error())
	}
}

// Reset clears retained output and detaches any previous run, so a late
// exit cannot finalize the next one.
func (p *ProcessStrategy) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.gen++
	p.proc = nil
	p.output = nil
	p.stopped = false
}

// Dispose stops the process.
func (p *ProcessStrategy) Dispose() {
	p.Stop()
}

// Output returns the retained trailing output lines.
func (p *ProcessStrategy) Output() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.output)
}

// Done returns a channel closed when the current run's process has exited
// and its output has been drained. It is nil before the first Start.
func (p *ProcessStrategy) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
