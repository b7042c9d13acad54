package rules

import (
	"fmt"

	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/lint"
)

const msgUnknownColumn = "Unknown column %q"

func init() {
	lint.Register(lint.RuleDef{
		ID:          "SI04",
		Name:        "schema.unknown_column",
		Group:       GroupSchema,
		Description: "the_schema_is declares a column the table does not have",
		Severity:    lint.SeverityWarning,
		Kinds:       []core.DiscrepancyKind{core.ExtraColumn},
		Check:       checkUnknownColumn,
		ConfigKeys:  []string{lint.OptionIgnoreColumns},

		Rationale: `A declared column that migrations dropped or renamed sends readers after an
attribute that raises NoMethodError at runtime.`,

		BadExample: `the_schema_is "comments" do |t|
  t.text     "body"
  t.integer  "owner_id"
end`,

		GoodExample: `the_schema_is "comments" do |t|
  t.text     "body"
end`,

		Fix: "The whole line of the column is removed.",
	})
}

func checkUnknownColumn(ctx *lint.Context, opts map[string]any) []lint.Diagnostic {
	var diagnostics []lint.Diagnostic
	for _, d := range ctx.Of(core.ExtraColumn) {
		if ignored(d, opts) {
			continue
		}
		diagnostics = append(diagnostics, lint.Diagnostic{
			Kind:     d.Kind,
			Message:  fmt.Sprintf(msgUnknownColumn, d.Column.Name),
			Location: d.Column.Location,
			Fixes:    ctx.Fixes(d, fmt.Sprintf("Remove column %q", d.Column.Name)),
		})
	}
	return diagnostics
}
