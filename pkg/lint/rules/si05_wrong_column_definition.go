package rules

import (
	"fmt"

	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/lint"
)

const msgWrongDefinition = "Wrong column definition: expected `%s`"

func init() {
	lint.Register(lint.RuleDef{
		ID:          "SI05",
		Name:        "schema.wrong_column_definition",
		Group:       GroupSchema,
		Description: "A declared column differs from the table in type or attributes",
		Severity:    lint.SeverityWarning,
		Kinds:       []core.DiscrepancyKind{core.AttributeMismatch},
		Check:       checkWrongDefinition,
		ConfigKeys:  []string{lint.OptionIgnoreColumns},

		Rationale: `Type, nullability, defaults and limits are compared by value, so only a real
difference is reported: spacing and the order of keyword arguments never are.`,

		BadExample: `t.string   "article_id"`,

		GoodExample: `t.integer  "article_id"`,

		Fix: "The declaration is replaced with the text from db/schema.rb.",
	})
}

func checkWrongDefinition(ctx *lint.Context, opts map[string]any) []lint.Diagnostic {
	var diagnostics []lint.Diagnostic
	for _, d := range ctx.Of(core.AttributeMismatch) {
		if ignored(d, opts) {
			continue
		}
		diagnostics = append(diagnostics, lint.Diagnostic{
			Kind:     d.Kind,
			Message:  fmt.Sprintf(msgWrongDefinition, d.Expected.SourceText),
			Location: d.Column.Location,
			Fixes:    ctx.Fixes(d, fmt.Sprintf("Use the definition of %q from the schema", d.Column.Name)),
		})
	}
	return diagnostics
}
