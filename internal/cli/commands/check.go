package commands

import (
	"time"

	"github.com/spf13/cobra"
)

// CheckOptions holds options for the check command.
type CheckOptions struct {
	Severity string // Minimum severity that fails the run
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}
	cmd := &cobra.Command{
		Use:   "check [paths...]",
		Short: "Compare model schema blocks with db/schema.rb",
		Long: `Check every ActiveRecord model for a the_schema_is block that matches the
table definition in db/schema.rb.

Reports models without a block, wrong table names, and missing, unknown or
differently defined columns. Results are cached per file and reused while the
file, the schema and the configuration are unchanged.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Check app/models
  schemais check

  # Check specific files or directories
  schemais check app/models/user.rb app/models/admin

  # Fail only on errors
  schemais check --severity error

  # Machine-readable output
  schemais check -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Severity, "severity", "warning", "Minimum severity to report and fail on: error, warning, info, hint")

	return cmd
}

func runCheck(cmd *cobra.Command, args []string, opts *CheckOptions) error {
	threshold, err := parseThreshold(opts.Severity)
	if err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd, true)
	if err != nil {
		return err
	}
	defer cleanup()

	paths, err := modelPaths(cmdCtx.Cfg, args)
	if err != nil {
		return err
	}

	start := time.Now()
	var runID string
	if cmdCtx.Store != nil {
		run, err := cmdCtx.Store.BeginRun(cmdCtx.Inspector.SchemaFingerprint())
		if err != nil {
			cmdCtx.Logger.Warn("failed to record run", "error", err)
		} else {
			runID = run.ID
		}
	}

	results, inspectErr := cmdCtx.Inspector.InspectFiles(cmd.Context(), paths, workers(cmdCtx.Cfg))
	if err := cmd.Context().Err(); err != nil {
		return err
	}

	filtered := filterResults(results, threshold)
	summary := checkSummary(filtered)
	cmdCtx.Logger.Info("check finished",
		"files", summary.Files,
		"cached", summary.Cached,
		"issues", summary.Issues,
		"duration", time.Since(start).Round(time.Millisecond))

	if runID != "" {
		if err := cmdCtx.Store.CompleteRun(runID, summary.Files, summary.Issues); err != nil {
			cmdCtx.Logger.Warn("failed to complete run", "error", err)
		}
	}

	if err := renderResults(cmdCtx.Renderer, filtered, nil); err != nil {
		return err
	}
	if inspectErr != nil {
		return inspectErr
	}
	if summary.Issues > 0 {
		return ErrIssuesFound
	}
	return nil
}
