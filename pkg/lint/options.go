package lint

import "slices"

// Option keys understood by the schema rules.
const (
	OptionAutofix       = "autofix"        // every rule; false drops its fixes
	OptionIgnoreColumns = "ignore_columns" // column rules skip these names
)

// Autofix reports whether a rule may attach fixes. Missing or non-boolean
// values leave autofix on.
func Autofix(opts map[string]any) bool {
	b, ok := opts[OptionAutofix].(bool)
	return !ok || b
}

// IgnoresColumn reports whether name is listed under ignore_columns.
// Values decoded from YAML arrive as []any; non-string items are skipped.
func IgnoresColumn(opts map[string]any, name string) bool {
	switch cols := opts[OptionIgnoreColumns].(type) {
	case []string:
		return slices.Contains(cols, name)
	case []any:
		return slices.Contains(cols, any(name))
	}
	return false
}
