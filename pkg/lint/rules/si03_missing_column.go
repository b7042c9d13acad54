package rules

import (
	"fmt"

	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/lint"
)

const msgMissingColumn = "Column %q definition is missing"

func init() {
	lint.Register(lint.RuleDef{
		ID:          "SI03",
		Name:        "schema.missing_column",
		Group:       GroupSchema,
		Description: "A column of the table is not declared in the_schema_is",
		Severity:    lint.SeverityWarning,
		Kinds:       []core.DiscrepancyKind{core.MissingColumn},
		Check:       checkMissingColumn,
		ConfigKeys:  []string{lint.OptionIgnoreColumns},

		Rationale: `Columns added by a migration but not to the model's declaration make the
declaration lie by omission.`,

		BadExample: `# db/schema.rb has body, user_id and article_id
the_schema_is "comments" do |t|
  t.text     "body"
  t.integer  "user_id"
end`,

		GoodExample: `the_schema_is "comments" do |t|
  t.text     "body"
  t.integer  "user_id"
  t.integer  "article_id"
end`,

		Fix: "The column is copied from db/schema.rb after the nearest column that precedes it there.",
	})
}

func checkMissingColumn(ctx *lint.Context, opts map[string]any) []lint.Diagnostic {
	var diagnostics []lint.Diagnostic
	for _, d := range ctx.Of(core.MissingColumn) {
		if ignored(d, opts) {
			continue
		}
		diagnostics = append(diagnostics, lint.Diagnostic{
			Kind:     d.Kind,
			Message:  fmt.Sprintf(msgMissingColumn, d.Column.Name),
			Location: ctx.Model.Block.Location,
			Fixes:    ctx.Fixes(d, fmt.Sprintf("Declare column %q", d.Column.Name)),
		})
	}
	return diagnostics
}
