package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/leapstack-labs/schemais/internal/cli/output"
	"github.com/leapstack-labs/schemais/pkg/inspect"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
)

// FixOptions holds options for the fix command.
type FixOptions struct {
	Severity    string
	DryRun      bool // print diffs instead of writing
	Interactive bool // ask before writing each file
}

// NewFixCommand creates the fix command.
func NewFixCommand() *cobra.Command {
	opts := &FixOptions{}
	cmd := &cobra.Command{
		Use:   "fix [paths...]",
		Short: "Rewrite model schema blocks to match db/schema.rb",
		Long: `Apply every available fix: insert missing the_schema_is blocks, correct table
names, add missing columns, remove unknown ones and replace wrong definitions.

Inserted and replaced column lines are copied from db/schema.rb verbatim; the
rest of the model file is left byte-for-byte unchanged. Files that fail to
parse are never rewritten. A missing table has no fix and is still reported.`,
		Example: `  # Fix all models
  schemais fix

  # Show what would change
  schemais fix --dry-run

  # Confirm each file
  schemais fix --interactive app/models`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFix(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Severity, "severity", "warning", "Minimum severity to report and fail on after fixing")
	cmd.Flags().BoolVarP(&opts.DryRun, "dry-run", "n", false, "Print a diff instead of writing files")
	cmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false, "Ask before rewriting each file")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "interactive")

	return cmd
}

func runFix(cmd *cobra.Command, args []string, opts *FixOptions) error {
	threshold, err := parseThreshold(opts.Severity)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd, false)
	if err != nil {
		return err
	}
	defer cleanup()
	r := cmdCtx.Renderer

	paths, err := modelPaths(cmdCtx.Cfg, args)
	if err != nil {
		return err
	}

	results, inspectErr := cmdCtx.Inspector.InspectFiles(cmd.Context(), paths, workers(cmdCtx.Cfg))
	if err := cmd.Context().Err(); err != nil {
		return err
	}

	var ask prompter
	if opts.Interactive {
		ask, err = newPrompter(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = ask.Close() }()
	}
	applyAll, stopped := false, false

	fixed := map[string]bool{}
	remaining := make([]*inspect.FileResult, 0, len(results))
	for _, res := range results {
		if res == nil {
			continue
		}
		out, changed, err := res.Fixed()
		if errors.Is(err, inspect.ErrParseErrors) {
			r.Warn(fmt.Sprintf("%s: not fixed, the file has parse errors", res.Path))
		} else if err != nil {
			r.Warn(fmt.Sprintf("%s: not fixed: %v", res.Path, err))
		}
		if !changed {
			remaining = append(remaining, res)
			continue
		}

		if opts.DryRun || (opts.Interactive && !applyAll && !stopped) {
			if err := printDiff(r, res.Path, res.Source, out); err != nil {
				return err
			}
		}
		write := !opts.DryRun && !stopped
		if opts.Interactive && !applyAll && !stopped {
			a, err := ask.Confirm(fmt.Sprintf("Apply %d fixes to %s? [y/n/a/q] ", countFixes(res), res.Path))
			if err != nil {
				return err
			}
			stopped = a == answerQuit
			applyAll = a == answerAll
			write = a == answerYes || a == answerAll
		}
		if !write && !opts.DryRun {
			remaining = append(remaining, res)
			continue
		}
		if write {
			if err := writeFile(res.Path, out); err != nil {
				return err
			}
			cmdCtx.Logger.Info("fixed file", "path", res.Path, "fixes", countFixes(res))
		}

		fixed[res.Path] = write
		after, err := cmdCtx.Inspector.InspectSource(res.Path, out)
		if err != nil {
			return err
		}
		remaining = append(remaining, after)
	}

	filtered := filterResults(remaining, threshold)
	if err := renderResults(r, filtered, fixed); err != nil {
		return err
	}
	if inspectErr != nil {
		return inspectErr
	}
	if checkSummary(filtered).Issues > 0 {
		return ErrIssuesFound
	}
	return nil
}

func countFixes(res *inspect.FileResult) int {
	n := 0
	for _, d := range res.Diagnostics {
		if d.Fixable() {
			n++
		}
	}
	return n
}

func writeFile(path, content string) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func printDiff(r *output.Renderer, path, before, after string) error {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "a/" + path,
		ToFile:   "b/" + path,
		Context:  3,
	})
	if err != nil {
		return fmt.Errorf("failed to diff %s: %w", path, err)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return nil
	case output.ModeMarkdown:
		r.Println("```diff")
		r.Printf("%s", text)
		r.Println("```")
		return nil
	}

	styles := r.Styles()
	for _, line := range strings.SplitAfter(text, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			r.Printf("%s", styles.Bold.Render(line))
		case strings.HasPrefix(line, "+"):
			r.Printf("%s", styles.Added.Render(line))
		case strings.HasPrefix(line, "-"):
			r.Printf("%s", styles.Removed.Render(line))
		case strings.HasPrefix(line, "@@"):
			r.Printf("%s", styles.Muted.Render(line))
		default:
			r.Printf("%s", line)
		}
	}
	return nil
}
