// Package reconcile compares a model's declared schema with its table.
package reconcile

import "github.com/leapstack-labs/schemais/pkg/core"

// Reconcile returns the discrepancies between model and table, in reporting
// order. A nil table yields only TableNotFound and a model without a schema
// block yields only MissingModelBlock.
func Reconcile(model *core.ModelDecl, table *core.TableDef) []core.Discrepancy {
	if table == nil {
		return []core.Discrepancy{{Kind: core.TableNotFound}}
	}
	if model.Block == nil {
		return []core.Discrepancy{{Kind: core.MissingModelBlock}}
	}

	var out []core.Discrepancy
	if problem := TableNameProblem(model); problem != core.NameOK {
		out = append(out, core.Discrepancy{Kind: core.WrongTableName, Name: problem})
	}

	for _, col := range table.Columns {
		if model.Column(col.Name) == nil {
			out = append(out, core.Discrepancy{Kind: core.MissingColumn, Column: col})
		}
	}

	for _, col := range model.Columns {
		if table.Column(col.Name) == nil {
			out = append(out, core.Discrepancy{Kind: core.ExtraColumn, Column: col})
		}
	}

	for _, col := range model.Columns {
		expected := table.Column(col.Name)
		if expected != nil && !col.SameDefinition(expected) {
			out = append(out, core.Discrepancy{Kind: core.AttributeMismatch, Column: col, Expected: expected})
		}
	}
	return out
}

// TableNameProblem checks the table name given to the schema block against
// the resolved table name. An argument that is not a literal never matches.
func TableNameProblem(model *core.ModelDecl) core.NameProblem {
	lit := model.TableNameLiteral
	switch {
	case lit == nil:
		return core.NameMissing
	case !lit.Literal || lit.Value != model.TableName:
		return core.NameMismatch
	}
	return core.NameOK
}
