// Package core defines the shared language of schemais.
//
// This package contains:
//   - Column model (ColumnDef, Attribute, Value)
//   - Declarations on both sides (ModelDecl, TableDef)
//   - Reconciliation results (Discrepancy)
//   - Lint metadata (Severity, RuleInfo)
//
// The Golden Rule: pkg/core imports ONLY pkg/token and stdlib.
// All other packages depend on core, not the reverse.
package core
