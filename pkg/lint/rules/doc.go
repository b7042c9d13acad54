// Package rules provides the schema drift rules.
//
// To register all rules with the global lint registry, import this package
// with a blank identifier:
//
//	import _ "github.com/leapstack-labs/schemais/pkg/lint/rules"
package rules

import (
	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/lint"
)

// GroupSchema is the group of every rule in this package.
const GroupSchema = "schema"

// ignored reports whether a column rule was told to skip the column.
func ignored(d core.Discrepancy, opts map[string]any) bool {
	if d.Column == nil {
		return false
	}
	return lint.IgnoresColumn(opts, d.Column.Name)
}
