package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/willothy/overseer/internal/config"
	"github.com/willothy/overseer/internal/template"
)

var templatesCmd = &cobra.Command{
	Use:   "templates [query]",
	Short: "List the templates available to jobs",
	Long: `List the templates visible from a directory. With a query, templates
are fuzzy-matched by name and listed best match first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTemplates,
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.Flags().String("dir", "", "directory to search from (default: current directory)")
}

func runTemplates(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	registry := template.NewRegistry(
		template.WithDirs(cfg.Templates.ResolveTemplateDirs(dir)...),
		template.WithPattern(cfg.Templates.Pattern),
		template.WithShell(cfg.Tasks.Shell),
		template.WithMaxParallel(cfg.Templates.MaxParallelLoads),
	)
	if err := registry.Load(cmd.Context()); err != nil {
		return err
	}

	search := template.Search{Dir: dir}
	var tmpls []*template.Template
	if len(args) == 1 {
		for _, m := range registry.Search(args[0], search) {
			tmpls = append(tmpls, m.Template)
		}
	} else {
		tmpls = registry.Templates(search)
	}

	printTemplates(cmd.OutOrStdout(), tmpls)
	return nil
}

func printTemplates(w io.Writer, tmpls []*template.Template) {
	if len(tmpls) == 0 {
		fmt.Fprintln(w, "No templates found.")
		return
	}

	width := 0
	for _, t := range tmpls {
		width = max(width, len(t.Name))
	}
	for _, t := range tmpls {
		line := fmt.Sprintf("%-*s", width, t.Name)
		if t.Desc != "" {
			line += "  " + t.Desc
		}
		if params := t.ParamNames(); len(params) > 0 {
			line += "  (" + strings.Join(params, ", ") + ")"
		}
		fmt.Fprintln(w, strings.TrimRight(line, " "))
	}
}
