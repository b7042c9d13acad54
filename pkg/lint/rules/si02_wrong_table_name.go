package rules

import (
	"fmt"

	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/lint"
)

const (
	msgWrongTableName = "The real table name should be %q"
	msgNoTableName    = "Table name is not specified"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "SI02",
		Name:        "schema.wrong_table_name",
		Group:       GroupSchema,
		Description: "the_schema_is names a different table than the model uses, or none",
		Severity:    lint.SeverityWarning,
		Kinds:       []core.DiscrepancyKind{core.WrongTableName},
		Check:       checkTableName,

		Rationale: `The table name in the_schema_is is what a reader greps db/schema.rb for. It has to
be the table the model actually reads, which is self.table_name when set and the tableized class
name otherwise.`,

		BadExample: `class Comment < ApplicationRecord
  the_schema_is "notes" do |t|
  end
end`,

		GoodExample: `class Comment < ApplicationRecord
  the_schema_is "comments" do |t|
  end
end`,
	})
}

func checkTableName(ctx *lint.Context, _ map[string]any) []lint.Diagnostic {
	var diagnostics []lint.Diagnostic
	for _, d := range ctx.Of(core.WrongTableName) {
		diag := lint.Diagnostic{Kind: d.Kind}
		if d.Name == core.NameMismatch && ctx.Model.TableNameLiteral != nil {
			diag.Message = fmt.Sprintf(msgWrongTableName, ctx.Model.TableName)
			diag.Location = ctx.Model.TableNameLiteral.Location
			diag.Fixes = ctx.Fixes(d, "Replace table name")
		} else {
			diag.Message = msgNoTableName
			diag.Location = ctx.Model.Block.Location
			diag.Fixes = ctx.Fixes(d, "Add table name")
		}
		diagnostics = append(diagnostics, diag)
	}
	return diagnostics
}
