package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/leapstack-labs/schemais/internal/cli/output"
	"github.com/leapstack-labs/schemais/internal/config"
	"github.com/leapstack-labs/schemais/internal/state"
	"github.com/leapstack-labs/schemais/pkg/inspect"
	"github.com/leapstack-labs/schemais/pkg/lint"
	"github.com/leapstack-labs/schemais/pkg/schemacache"
	"github.com/spf13/cobra"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Format string // Output format: text, json
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run a project health check",
		Long: `Check that schemais can find everything it needs and report how far the
models have drifted from db/schema.rb.

The report includes:
- Setup checks for the configuration, schema file and result cache
- One check per rule with the number of findings
- Health score (0-100)
- Actionable recommendations

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run health check
  schemais doctor

  # Output as JSON
  schemais doctor --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json")

	return cmd
}

// Health check statuses.
const (
	statusPass  = "pass"
	statusWarn  = "warn"
	statusError = "error"
)

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary         ProjectSummary `json:"summary"`
	HealthChecks    []HealthCheck  `json:"health_checks"`
	Score           int            `json:"score"`
	Recommendations []string       `json:"recommendations"`
	IssueCount      int            `json:"issue_count"`
}

// ProjectSummary contains project-level statistics.
type ProjectSummary struct {
	Config string `json:"config"`
	Schema string `json:"schema"`
	Tables int    `json:"tables"`
	Files  int    `json:"files"`
	Models int    `json:"models"`
	Cache  string `json:"cache"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Group      string   `json:"group"`
	Status     string   `json:"status"`
	IssueCount int      `json:"issue_count"`
	Details    []string `json:"details,omitempty"`
}

func runDoctor(cmd *cobra.Command, args []string, opts *DoctorOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd, false)
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer
	if opts.Format != "" {
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	}

	out := &DoctorOutput{}
	out.Summary.Config = cfg.File
	if out.Summary.Config == "" {
		out.Summary.Config = "(defaults)"
	}
	out.Summary.Schema = cmdCtx.Inspector.SchemaPath()
	out.Summary.Cache = cacheSummary(cfg)

	out.HealthChecks = append(out.HealthChecks,
		checkSchemaFile(cfg, cmdCtx.Inspector, &out.Summary),
		checkCache(cfg),
	)

	paths, err := modelPaths(cfg, args)
	if err != nil {
		out.HealthChecks = append(out.HealthChecks, HealthCheck{
			ID: "models", Name: "Model files", Group: "setup", Status: statusError, IssueCount: 1,
			Details: []string{err.Error()},
		})
	} else {
		out.Summary.Files = len(paths)
		status := statusPass
		if len(paths) == 0 {
			status = statusWarn
		}
		out.HealthChecks = append(out.HealthChecks, HealthCheck{
			ID: "models", Name: fmt.Sprintf("Model files (%d)", len(paths)), Group: "setup", Status: status,
		})

		results, inspectErr := cmdCtx.Inspector.InspectFiles(cmd.Context(), paths, workers(cfg))
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		if inspectErr != nil {
			cmdCtx.Logger.Warn("inspection incomplete", "error", inspectErr)
		}
		out.Summary.Models = inspect.Summarize(results).Models
		out.HealthChecks = append(out.HealthChecks, ruleChecks(results)...)
	}

	for _, check := range out.HealthChecks {
		out.IssueCount += check.IssueCount
	}
	out.Score = calculateHealthScore(out.HealthChecks, out.Summary.Models)
	out.Recommendations = generateRecommendations(out.HealthChecks)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}
	return nil
}

func checkSchemaFile(cfg *config.Config, insp *inspect.Inspector, summary *ProjectSummary) HealthCheck {
	check := HealthCheck{ID: "schema", Name: "Schema file", Group: "setup", Status: statusPass}
	path := insp.SchemaPath()
	if _, err := os.Stat(path); err != nil {
		check.Status = statusError
		check.IssueCount = 1
		check.Details = []string{err.Error()}
		return check
	}
	tables := schemacache.New().Load(path, cfg.RemoveDefinitions)
	summary.Tables = len(tables)
	if len(tables) == 0 {
		check.Status = statusWarn
		check.IssueCount = 1
		check.Details = []string{"no create_table statements found in " + path}
	}
	if fp := insp.SchemaFingerprint(); fp != "" {
		check.Details = append(check.Details, "fingerprint "+fp[:12])
	}
	return check
}

func cacheSummary(cfg *config.Config) string {
	if cfg.NoCache {
		return "disabled"
	}
	return cfg.CachePath
}

// checkCache inspects an existing result cache without creating one.
func checkCache(cfg *config.Config) HealthCheck {
	check := HealthCheck{ID: "cache", Name: "Result cache", Group: "setup", Status: statusPass}
	if cfg.NoCache {
		check.Details = []string{"disabled"}
		return check
	}
	if _, err := os.Stat(cfg.CachePath); errors.Is(err, fs.ErrNotExist) {
		check.Details = []string{"not created yet"}
		return check
	}
	store := state.NewStore()
	if err := store.Open(cfg.CachePath); err != nil {
		check.Status = statusWarn
		check.IssueCount = 1
		check.Details = []string{err.Error()}
		return check
	}
	defer func() { _ = store.Close() }()
	version, err := store.MigrationVersion()
	if err != nil {
		check.Status = statusWarn
		check.IssueCount = 1
		check.Details = []string{err.Error()}
		return check
	}
	check.Details = []string{fmt.Sprintf("schema version %d", version)}
	return check
}

// ruleChecks produces one check per registered rule.
func ruleChecks(results []*inspect.FileResult) []HealthCheck {
	byRule := map[string]*HealthCheck{}
	var checks []HealthCheck
	for _, def := range lint.GetAll() {
		checks = append(checks, HealthCheck{ID: def.ID, Name: def.Name, Group: def.Group, Status: statusPass})
	}
	for i := range checks {
		byRule[checks[i].ID] = &checks[i]
	}

	for _, res := range results {
		if res == nil {
			continue
		}
		for _, d := range res.Diagnostics {
			check, ok := byRule[d.RuleID]
			if !ok {
				continue
			}
			check.IssueCount++
			check.Details = append(check.Details, fmt.Sprintf("%s:%d: %s", res.Path, d.Location.Span.Start.Line, d.Message))
			switch {
			case d.Severity == lint.SeverityError:
				check.Status = statusError
			case check.Status == statusPass:
				check.Status = statusWarn
			}
		}
	}
	return checks
}

// calculateHealthScore computes a health score from 0-100. Errors count
// double, and each issue weighs less in larger projects.
func calculateHealthScore(checks []HealthCheck, modelCount int) int {
	if len(checks) == 0 {
		return 100
	}

	score := 100.0
	basePenalty := 5.0
	if modelCount > 10 {
		basePenalty = 3.0
	}
	if modelCount > 50 {
		basePenalty = 2.0
	}
	if modelCount > 100 {
		basePenalty = 1.0
	}

	for _, check := range checks {
		switch check.Status {
		case statusError:
			score -= float64(check.IssueCount) * basePenalty * 2
		case statusWarn:
			score -= float64(check.IssueCount) * basePenalty
		}
	}

	return int(max(0, min(100, score)))
}

func generateRecommendations(checks []HealthCheck) []string {
	var recommendations []string
	seen := make(map[string]bool)

	for _, check := range checks {
		if check.IssueCount == 0 {
			continue
		}
		rec := getRecommendation(check.ID)
		if rec != "" && !seen[rec] {
			recommendations = append(recommendations, rec)
			seen[rec] = true
		}
	}
	return recommendations
}

func getRecommendation(id string) string {
	switch id {
	case "schema":
		return "Point --schema (or schema: in .schemais.yaml) at the project's db/schema.rb"
	case "cache":
		return "Delete the result cache file or run with --no-cache"
	case "SI01":
		return "Run 'schemais fix' to add the_schema_is blocks to models that lack one"
	case "SI02":
		return "Run 'schemais fix' to correct table names in the_schema_is blocks"
	case "SI03", "SI04", "SI05":
		return "Run 'schemais fix' to bring column declarations in line with db/schema.rb"
	default:
		return ""
	}
}

func statusIcon(styles *output.Styles, status string) string {
	switch status {
	case statusWarn:
		return styles.Warning.Render("!")
	case statusError:
		return styles.Error.Render("✗")
	default:
		return styles.Success.Render("✓")
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("schemais Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	r.Println(styles.Header2.Render("Project Summary"))
	r.Printf("   Config: %s\n", styles.Path.Render(out.Summary.Config))
	r.Printf("   Schema: %s (%d tables)\n", styles.Path.Render(out.Summary.Schema), out.Summary.Tables)
	r.Printf("   Files: %d | Models: %d | Cache: %s\n", out.Summary.Files, out.Summary.Models, out.Summary.Cache)
	r.Println("")

	r.Println(styles.Header2.Render("Health Checks"))
	r.Println("")

	currentGroup := ""
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		status := fmt.Sprintf("%s %s: %s", statusIcon(styles, check.Status), check.ID, check.Name)
		if check.IssueCount > 0 {
			status += fmt.Sprintf(" (%d issues)", check.IssueCount)
		}
		r.Println("   " + status)

		for i, detail := range check.Details {
			if i >= 3 {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(check.Details)-3)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(styles.Header2.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println("# schemais Health Report")
	r.Println("")

	r.Println("## Project Summary")
	r.Println("")
	r.Printf("- **Config**: %s\n", out.Summary.Config)
	r.Printf("- **Schema**: %s (%d tables)\n", out.Summary.Schema, out.Summary.Tables)
	r.Printf("- **Files**: %d\n", out.Summary.Files)
	r.Printf("- **Models**: %d\n", out.Summary.Models)
	r.Printf("- **Cache**: %s\n", out.Summary.Cache)
	r.Println("")

	r.Println("## Health Checks")
	r.Println("")

	currentGroup := ""
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("### " + titleCaser.String(currentGroup))
			r.Println("")
		}

		r.Printf("- **[%s]** %s: %s", strings.ToUpper(check.Status), check.ID, check.Name)
		if check.IssueCount > 0 {
			r.Printf(" (%d issues)", check.IssueCount)
		}
		r.Println("")

		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}
}
