// Package lint maps schema discrepancies onto rules and diagnostics.
//
// # Architecture
//
// Rules are data: a RuleDef names the rule, documents it and carries a
// Check function. Checks receive a Context holding one model, its table and
// the discrepancies the reconciler found between them, and turn the
// discrepancies they own into Diagnostics with optional fixes.
//
// # Rule Registration
//
// Rules register themselves from init() functions when their package is
// imported:
//
//	import _ "github.com/leapstack-labs/schemais/pkg/lint/rules"
//
// # Rule Categories
//
//   - SI01 schema.presence: the table or the the_schema_is block is missing
//   - SI02 schema.wrong_table_name: the block names another table, or none
//   - SI03 schema.missing_column: a table column is not declared
//   - SI04 schema.unknown_column: a declared column is not in the table
//   - SI05 schema.wrong_column_definition: type or attributes differ
//
// # Configuration
//
// Use Config to control which rules are enabled and their severity:
//
//	config := lint.NewConfig()
//	config.Disable("SI04")
//	config.SetSeverity("SI05", core.SeverityError)
//	config.SetRuleOptions("SI03", map[string]any{"ignore_columns": []string{"legacy_id"}})
//
// Every rule accepts the "autofix" option; when false its diagnostics carry
// no fixes.
package lint
