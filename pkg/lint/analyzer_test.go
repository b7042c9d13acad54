package lint

import (
	"testing"

	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/patch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRule(id string, kinds ...core.DiscrepancyKind) RuleDef {
	return RuleDef{
		ID:       id,
		Name:     "test." + id,
		Group:    "test",
		Severity: SeverityWarning,
		Kinds:    kinds,
		Check: func(ctx *Context, _ map[string]any) []Diagnostic {
			var out []Diagnostic
			for _, d := range ctx.Of(kinds...) {
				out = append(out, Diagnostic{
					Kind:    d.Kind,
					Message: d.String(),
					Fixes:   []Fix{{Description: "fix", Edits: []patch.Edit{patch.InsertAt(0, "x")}}},
				})
			}
			return out
		},
	}
}

func testContext() *Context {
	return &Context{
		Model: &core.ModelDecl{ClassName: "Comment", TableName: "comments"},
		Discrepancies: []core.Discrepancy{
			{Kind: core.WrongTableName, Name: core.NameMissing},
			{Kind: core.ExtraColumn, Column: &core.ColumnDef{Name: "a"}},
			{Kind: core.ExtraColumn, Column: &core.ColumnDef{Name: "b"}},
		},
	}
}

func TestAnalyzer_Analyze_Empty(t *testing.T) {
	analyzer := NewAnalyzer(nil)
	assert.Nil(t, analyzer.Analyze(nil))
	assert.Nil(t, analyzer.Analyze(&Context{}))
}

func TestAnalyzer_RuleOrderAndDefaults(t *testing.T) {
	Clear()
	t.Cleanup(Clear)
	Register(testRule("T02", core.ExtraColumn))
	Register(testRule("T01", core.WrongTableName))

	diags := NewAnalyzer(nil).Analyze(testContext())
	require.Len(t, diags, 3)

	assert.Equal(t, "T01", diags[0].RuleID)
	assert.Equal(t, "WrongTableName(NameMissing)", diags[0].Message)
	assert.Equal(t, "T02", diags[1].RuleID)
	assert.Equal(t, "ExtraColumn(a)", diags[1].Message)
	assert.Equal(t, "ExtraColumn(b)", diags[2].Message)

	for _, d := range diags {
		assert.Equal(t, core.SeverityWarning, d.Severity)
		assert.Equal(t, "Comment", d.Model)
		assert.True(t, d.Fixable())
	}
}

func TestAnalyzer_Config(t *testing.T) {
	Clear()
	t.Cleanup(Clear)
	Register(testRule("T01", core.WrongTableName))
	Register(testRule("T02", core.ExtraColumn))

	cfg := NewConfig().
		SetSeverity("T02", core.SeverityError).
		SetRuleOptions("T02", map[string]any{OptionAutofix: false})
	diags := NewAnalyzer(cfg).Analyze(testContext())
	require.Len(t, diags, 3)
	assert.Equal(t, core.SeverityError, diags[1].Severity)
	assert.False(t, diags[1].Fixable())
	assert.True(t, diags[0].Fixable())

	cfg.Disable("T01")
	diags = NewAnalyzer(cfg).Analyze(testContext())
	require.Len(t, diags, 2)
	assert.Equal(t, "T02", diags[0].RuleID)
}

func TestRegistry(t *testing.T) {
	Clear()
	t.Cleanup(Clear)
	Register(testRule("T01", core.TableNotFound))
	Register(testRule("T02", core.ExtraColumn))

	assert.Equal(t, 2, Count())

	rule, ok := GetByID("t01")
	require.True(t, ok)
	assert.Equal(t, "T01", rule.ID)

	rule, ok = GetByID("test.T02")
	require.True(t, ok)
	assert.Equal(t, "T02", rule.ID)

	_, ok = GetByID("missing")
	assert.False(t, ok)

	assert.Len(t, GetByGroup("test"), 2)
	assert.Empty(t, GetByGroup("other"))

	assert.True(t, rule.Info().Fixable)
	notFound, _ := GetByID("T01")
	assert.False(t, notFound.Info().Fixable)
}

func TestConfig_NilSafe(t *testing.T) {
	var cfg *Config
	assert.False(t, cfg.IsDisabled("SI01"))
	assert.Equal(t, core.SeverityHint, cfg.GetSeverity("SI01", core.SeverityHint))
	assert.Nil(t, cfg.GetRuleOptions("SI01"))
}

func TestOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    map[string]any
		autofix bool
		ignored bool
	}{
		{name: "no options", opts: nil, autofix: true},
		{name: "autofix off", opts: map[string]any{OptionAutofix: false}, autofix: false},
		{name: "non-bool autofix", opts: map[string]any{OptionAutofix: "no"}, autofix: true},
		{name: "yaml list", opts: map[string]any{OptionIgnoreColumns: []any{1, "legacy_id"}}, autofix: true, ignored: true},
		{name: "string list", opts: map[string]any{OptionIgnoreColumns: []string{"legacy_id"}}, autofix: true, ignored: true},
		{name: "other column", opts: map[string]any{OptionIgnoreColumns: []string{"body"}}, autofix: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.autofix, Autofix(tt.opts))
			assert.Equal(t, tt.ignored, IgnoresColumn(tt.opts, "legacy_id"))
		})
	}
}
