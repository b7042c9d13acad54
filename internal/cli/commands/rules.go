package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/schemais/internal/cli/output"
	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/lint"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Group   string // Filter by group
	Verbose bool   // Show full documentation
	Format  string // Output format
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules [rule-id]",
		Short: "List available schema rules",
		Long: `List the rules that compare model declarations with db/schema.rb.

A rule can be named by its ID (SI03) or its name (schema.missing_column).
Use --verbose to see the rationale of each rule.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # List all rules
  schemais rules

  # Show details for a specific rule
  schemais rules SI03

  # Output as JSON
  schemais rules --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return showRule(cmd, args[0], opts)
			}
			return listRules(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Group, "group", "g", "", "Filter by group")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "V", false, "Show full documentation")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, json, markdown")

	return cmd
}

func rulesRenderer(cmd *cobra.Command, format string) *output.Renderer {
	cmdCtx := NewCommandContextWithoutInspector(cmd)
	if format != "" {
		return output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(format))
	}
	return cmdCtx.Renderer
}

func listRules(cmd *cobra.Command, opts *RulesOptions) error {
	r := rulesRenderer(cmd, opts.Format)

	var rules []core.RuleInfo
	for _, def := range lint.GetAll() {
		if opts.Group != "" && def.Group != opts.Group {
			continue
		}
		rules = append(rules, def.Info())
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(RulesJSONOutput{Rules: rules, Count: len(rules)})
	case output.ModeMarkdown:
		listRulesMarkdown(r, rules, opts.Verbose)
	default:
		listRulesText(r, rules, opts.Verbose)
	}
	return nil
}

func showRule(cmd *cobra.Command, idOrName string, opts *RulesOptions) error {
	r := rulesRenderer(cmd, opts.Format)

	def, ok := lint.GetByID(idOrName)
	if !ok {
		return fmt.Errorf("rule %q not found", idOrName)
	}
	rule := def.Info()

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(rule)
	case output.ModeMarkdown:
		showRuleMarkdown(r, rule)
	default:
		showRuleText(r, rule)
	}
	return nil
}

// RulesJSONOutput is the JSON output structure for rules listing.
type RulesJSONOutput struct {
	Rules []core.RuleInfo `json:"rules"`
	Count int             `json:"count"`
}

var titleCaser = cases.Title(language.English)

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func listRulesText(r *output.Renderer, rules []core.RuleInfo, verbose bool) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render(fmt.Sprintf("Schema Rules (%d)", len(rules))))
	r.Println("")

	rows := make([][]string, 0, len(rules))
	for _, rule := range rules {
		rows = append(rows, []string{
			rule.ID,
			rule.Name,
			titleCaser.String(rule.Group),
			rule.DefaultSeverity.String(),
			yesNo(rule.Fixable),
		})
	}
	r.Table([]string{"ID", "Name", "Group", "Severity", "Autofix"}, rows)

	if verbose {
		for _, rule := range rules {
			r.Println("")
			r.Println(styles.RuleID.Render(rule.ID) + "  " + rule.Description)
			if rule.Rationale != "" {
				r.Println(styles.Muted.Render("    " + oneLine(rule.Rationale)))
			}
		}
	}

	r.Println("")
	r.Println(styles.Muted.Render("Use 'schemais rules <rule-id>' for detailed documentation"))
}

func listRulesMarkdown(r *output.Renderer, rules []core.RuleInfo, verbose bool) {
	r.Println("# Schema Rules")
	r.Println("")

	currentGroup := ""
	for _, rule := range rules {
		if rule.Group != currentGroup {
			currentGroup = rule.Group
			r.Println("## " + titleCaser.String(currentGroup))
			r.Println("")
		}
		r.Printf("- **%s** - %s (`%s`)\n", rule.ID, rule.Name, rule.DefaultSeverity.String())
		if verbose {
			r.Println("  " + rule.Description)
			if rule.Rationale != "" {
				r.Println("  > " + oneLine(rule.Rationale))
			}
		}
	}
	r.Println("")
}

func showRuleText(r *output.Renderer, rule core.RuleInfo) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render(fmt.Sprintf("%s - %s", rule.ID, rule.Name)))
	r.Println("")

	r.Printf("  %s: %s\n", styles.Bold.Render("Group"), titleCaser.String(rule.Group))
	r.Printf("  %s: %s\n", styles.Bold.Render("Severity"), styles.Severity(rule.DefaultSeverity).Render(rule.DefaultSeverity.String()))
	r.Printf("  %s: %s\n", styles.Bold.Render("Autofix"), yesNo(rule.Fixable))
	r.Println("")

	r.Println(styles.Bold.Render("Description"))
	r.Println("  " + rule.Description)
	r.Println("")

	if rule.Rationale != "" {
		r.Println(styles.Bold.Render("Why This Matters"))
		r.Println("  " + oneLine(rule.Rationale))
		r.Println("")
	}

	if rule.BadExample != "" {
		r.Println(styles.Bold.Render("Bad Example"))
		for _, line := range strings.Split(rule.BadExample, "\n") {
			r.Println(styles.Removed.Render("  " + line))
		}
		r.Println("")
	}

	if rule.GoodExample != "" {
		r.Println(styles.Bold.Render("Good Example"))
		for _, line := range strings.Split(rule.GoodExample, "\n") {
			r.Println(styles.Added.Render("  " + line))
		}
		r.Println("")
	}

	if rule.Fix != "" {
		r.Println(styles.Bold.Render("How to Fix"))
		r.Println("  " + rule.Fix)
		r.Println("")
	}

	if len(rule.ConfigKeys) > 0 {
		r.Println(styles.Bold.Render("Configuration"))
		r.Printf("  Options: %s\n", strings.Join(rule.ConfigKeys, ", "))
	}
}

func showRuleMarkdown(r *output.Renderer, rule core.RuleInfo) {
	r.Printf("# %s - %s\n\n", rule.ID, rule.Name)
	r.Printf("**Group:** %s | **Severity:** `%s` | **Autofix:** %s\n\n",
		titleCaser.String(rule.Group), rule.DefaultSeverity.String(), yesNo(rule.Fixable))
	r.Println(rule.Description)
	r.Println("")

	if rule.Rationale != "" {
		r.Println("## Why This Matters")
		r.Println("")
		r.Println(rule.Rationale)
		r.Println("")
	}

	for _, ex := range []struct{ title, body string }{
		{"Bad Example", rule.BadExample},
		{"Good Example", rule.GoodExample},
	} {
		if ex.body == "" {
			continue
		}
		r.Println("## " + ex.title)
		r.Println("")
		r.Println("```ruby")
		r.Println(ex.body)
		r.Println("```")
		r.Println("")
	}

	if rule.Fix != "" {
		r.Println("## How to Fix")
		r.Println("")
		r.Println(rule.Fix)
		r.Println("")
	}

	if len(rule.ConfigKeys) > 0 {
		r.Println("## Configuration")
		r.Println("")
		r.Printf("Options: `%s`\n", strings.Join(rule.ConfigKeys, "`, `"))
	}
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
