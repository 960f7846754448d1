package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/willothy/overseer/internal/config"
	"github.com/willothy/overseer/internal/logging"
	"github.com/willothy/overseer/internal/orchestrator"
	"github.com/willothy/overseer/internal/task"
)

var runCmd = &cobra.Command{
	Use:   "run [job-file]",
	Short: "Run a job",
	Long: `Run a job from a YAML job file, or from --entry flags.

A job file is either a list of entries or a mapping with name, cwd and
tasks keys. Each entry is a template name, a mapping with a name key plus
params, or a list of those that run in parallel:

  name: release
  tasks:
    - lint
    - [test, vet]
    - name: shell
      cmd: ./deploy.sh
      label: deploy
      env:
        STAGE: prod

Each --entry is one section; separate parallel tasks with commas:

  overseer run -e lint -e test,vet

The command exits non-zero unless the job succeeds.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayP("entry", "e", nil, "section of comma-separated template names (repeatable)")
	runCmd.Flags().String("name", "", "job name (default: job file name)")
	runCmd.Flags().String("cwd", "", "directory templates are searched from (default: current directory)")
	runCmd.Flags().String("tui", "", "use the interactive view: auto, always or never (default from config)")
	runCmd.Flags().Bool("keep-open", false, "keep the interactive view open after the job finishes")
	runCmd.Flags().Bool("watch", false, "reload templates when template files change")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	entries, _ := cmd.Flags().GetStringArray("entry")
	jf, err := loadJob(args, entries)
	if err != nil {
		return err
	}
	if name, _ := cmd.Flags().GetString("name"); name != "" {
		jf.Name = name
	}
	if cwd, _ := cmd.Flags().GetString("cwd"); cwd != "" {
		jf.Cwd = cwd
	}
	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		cfg.Templates.Watch = true
	}

	mode, _ := cmd.Flags().GetString("tui")
	if mode == "" {
		mode = cfg.TUI.Mode
	}
	isTerm := term.IsTerminal(int(os.Stdout.Fd()))
	useTUI, err := resolveTUIMode(mode, isTerm)
	if err != nil {
		return err
	}
	keepOpen, _ := cmd.Flags().GetBool("keep-open")

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := runJob(ctx, jobRun{
		Job:      jf,
		Config:   cfg,
		Logger:   logger,
		Stdin:    cmd.InOrStdin(),
		Stdout:   cmd.OutOrStdout(),
		UseTUI:   useTUI,
		KeepOpen: keepOpen,
		Color:    isTerm,
	})
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), jf.Name, result)
	if result.Status != task.StatusSuccess {
		return fmt.Errorf("job %q finished %s", jf.Name, result.Status)
	}
	return nil
}

// printSummary writes the job's final status and duration.
func printSummary(w io.Writer, name string, result *jobResult) {
	fmt.Fprintf(w, "%s: %s in %s\n", name, result.Status, result.Duration.Round(time.Millisecond))
}

// loadJob reads the job file named in args, or builds a job from entries.
func loadJob(args, entries []string) (*orchestrator.JobFile, error) {
	switch {
	case len(args) == 1 && len(entries) > 0:
		return nil, fmt.Errorf("use either a job file or --entry, not both")
	case len(args) == 1:
		return orchestrator.LoadJobFile(args[0])
	case len(entries) > 0:
		job, err := jobFromEntries(entries)
		if err != nil {
			return nil, err
		}
		return &orchestrator.JobFile{Name: "overseer", Tasks: job}, nil
	default:
		return nil, fmt.Errorf("no job given: pass a job file or at least one --entry")
	}
}

// jobFromEntries turns "a", "b,c" into the job [a, [b, c]].
func jobFromEntries(entries []string) (orchestrator.Job, error) {
	raw := make([]any, 0, len(entries))
	for _, entry := range entries {
		var section []any
		for _, name := range strings.Split(entry, ",") {
			if name = strings.TrimSpace(name); name != "" {
				section = append(section, name)
			}
		}
		if len(section) == 0 {
			return nil, fmt.Errorf("%w: empty entry %q", orchestrator.ErrInvalidJob, entry)
		}
		raw = append(raw, section)
	}
	return orchestrator.NormalizeJob(raw)
}

// resolveTUIMode decides whether to use the interactive view.
func resolveTUIMode(mode string, isTerminal bool) (bool, error) {
	switch mode {
	case config.TUIModeAlways:
		return true, nil
	case config.TUIModeNever:
		return false, nil
	case config.TUIModeAuto, "":
		return isTerminal, nil
	default:
		return false, fmt.Errorf("invalid --tui value %q: must be one of: %s", mode, strings.Join(config.ValidTUIModes(), ", "))
	}
}

// newLogger opens the log file when logging is enabled.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	logger, err := logging.NewLogger(cfg.Logging.ResolveLogDir(), logging.ParseLevel(cfg.Logging.Level))
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	return logger, nil
}
