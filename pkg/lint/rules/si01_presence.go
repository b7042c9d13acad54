package rules

import (
	"fmt"

	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/lint"
)

const (
	msgNoTable       = "Table %q is not defined in %s"
	msgNoModelSchema = "The schema is not specified in the model (use the_schema_is statement)"
)

func init() {
	lint.Register(lint.RuleDef{
		ID:          "SI01",
		Name:        "schema.presence",
		Group:       GroupSchema,
		Description: "Model has no the_schema_is block, or its table is not in the schema file",
		Severity:    lint.SeverityWarning,
		Kinds:       []core.DiscrepancyKind{core.TableNotFound, core.MissingModelBlock},
		Check:       checkPresence,

		Rationale: `A model without a the_schema_is block hides its columns from anyone reading the
model file. A model whose table is not in db/schema.rb points at a table that migrations never
created, usually after a rename.`,

		BadExample: `class Comment < ApplicationRecord
  belongs_to :user
end`,

		GoodExample: `class Comment < ApplicationRecord
  the_schema_is "comments" do |t|
    t.text     "body"
    t.integer  "user_id"
  end

  belongs_to :user
end`,

		Fix: "A missing block is generated from db/schema.rb. A missing table has no automatic fix: set self.table_name or run the pending migration.",
	})
}

func checkPresence(ctx *lint.Context, _ map[string]any) []lint.Diagnostic {
	var diagnostics []lint.Diagnostic
	for _, d := range ctx.Of(core.TableNotFound, core.MissingModelBlock) {
		diag := lint.Diagnostic{
			Kind:     d.Kind,
			Location: ctx.Model.Class.Location,
		}
		if d.Kind == core.TableNotFound {
			diag.Message = fmt.Sprintf(msgNoTable, ctx.Model.TableName, ctx.SchemaPath)
		} else {
			diag.Message = msgNoModelSchema
			diag.Fixes = ctx.Fixes(d, "Insert the_schema_is block")
		}
		diagnostics = append(diagnostics, diag)
	}
	return diagnostics
}
