package lint

import (
	"slices"

	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/patch"
	"github.com/leapstack-labs/schemais/pkg/token"
)

// Severity levels, re-exported for rule packages.
const (
	SeverityError   = core.SeverityError
	SeverityWarning = core.SeverityWarning
	SeverityInfo    = core.SeverityInfo
	SeverityHint    = core.SeverityHint
)

// =============================================================================
// Rule Definitions
// =============================================================================

// RuleDef is a data-driven rule definition. Rules are stateless; all
// context comes through the Check parameters.
type RuleDef struct {
	ID          string                 // Unique identifier, e.g., "SI03"
	Name        string                 // Human-readable name, e.g., "schema.missing_column"
	Group       string                 // Category, e.g., "schema"
	Description string                 // Human-readable description
	Severity    core.Severity          // Default severity
	Kinds       []core.DiscrepancyKind // Discrepancy kinds the rule reports
	Check       CheckFunc              // The check function
	ConfigKeys  []string               // Rule-specific option keys

	// Documentation
	Rationale   string
	BadExample  string
	GoodExample string
	Fix         string
}

// CheckFunc turns the discrepancies of a context into diagnostics. The opts
// parameter contains rule-specific options from configuration.
type CheckFunc func(ctx *Context, opts map[string]any) []Diagnostic

// Info returns the rule metadata for documentation and tooling.
func (r RuleDef) Info() core.RuleInfo {
	kinds := make([]string, len(r.Kinds))
	fixable := false
	for i, k := range r.Kinds {
		kinds[i] = k.String()
		fixable = fixable || k != core.TableNotFound
	}
	return core.RuleInfo{
		ID:              r.ID,
		Name:            r.Name,
		Group:           r.Group,
		Description:     r.Description,
		DefaultSeverity: r.Severity,
		ConfigKeys:      append([]string{OptionAutofix}, r.ConfigKeys...),
		Kinds:           kinds,
		Fixable:         fixable,
		Rationale:       r.Rationale,
		BadExample:      r.BadExample,
		GoodExample:     r.GoodExample,
		Fix:             r.Fix,
	}
}

// =============================================================================
// Diagnostics
// =============================================================================

// Diagnostic represents a lint finding.
type Diagnostic struct {
	RuleID   string
	Severity core.Severity
	Message  string
	Kind     core.DiscrepancyKind
	Model    string         // class name of the model
	Location token.Location // anchor of the finding
	Fixes    []Fix          // Optional: absent when no deterministic fix exists
}

// Fixable reports whether the diagnostic carries a fix.
func (d Diagnostic) Fixable() bool {
	return len(d.Fixes) > 0
}

// Fix is a suggested correction.
type Fix struct {
	Description string
	Edits       []patch.Edit
}

// =============================================================================
// Context
// =============================================================================

// Context is everything a rule sees about one model.
type Context struct {
	File          string
	SchemaPath    string
	Model         *core.ModelDecl
	Table         *core.TableDef // nil when the table is not defined
	Discrepancies []core.Discrepancy
	Patch         patch.Options
}

// Of returns the discrepancies of the given kinds, in reporting order.
func (c *Context) Of(kinds ...core.DiscrepancyKind) []core.Discrepancy {
	var out []core.Discrepancy
	for _, d := range c.Discrepancies {
		if slices.Contains(kinds, d.Kind) {
			out = append(out, d)
		}
	}
	return out
}

// Fixes returns the fix for a discrepancy, or nil when there is none.
func (c *Context) Fixes(d core.Discrepancy, description string) []Fix {
	edits := patch.Generate(d, c.Model, c.Table, c.Patch)
	if len(edits) == 0 {
		return nil
	}
	return []Fix{{Description: description, Edits: edits}}
}
