package rules_test

import (
	"testing"

	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/extract"
	"github.com/leapstack-labs/schemais/pkg/lint"
	_ "github.com/leapstack-labs/schemais/pkg/lint/rules"
	"github.com/leapstack-labs/schemais/pkg/reconcile"
	"github.com/leapstack-labs/schemais/pkg/ruby"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schema = `ActiveRecord::Schema.define(version: 1) do
  create_table "comments", force: :cascade do |t|
    t.text     "body"
    t.integer  "user_id"
    t.integer  "article_id"
  end
end
`

func analyze(t *testing.T, src string, cfg *lint.Config) []lint.Diagnostic {
	t.Helper()
	schemaTree, err := ruby.Parse("db/schema.rb", schema)
	require.NoError(t, err)
	tables := extract.Schema(schemaTree, nil)

	tree, err := ruby.Parse("app/models/comment.rb", src)
	require.NoError(t, err)
	m, ok := extract.Model(tree.Root().Statements()[0], extract.ModelConfig{})
	require.True(t, ok)

	table := tables[m.TableName]
	ctx := &lint.Context{
		File:          "app/models/comment.rb",
		SchemaPath:    "db/schema.rb",
		Model:         m,
		Table:         table,
		Discrepancies: reconcile.Reconcile(m, table),
	}
	return lint.NewAnalyzer(cfg).Analyze(ctx)
}

type finding struct {
	RuleID  string
	Message string
	Fixable bool
}

func findings(diags []lint.Diagnostic) []finding {
	out := make([]finding, len(diags))
	for i, d := range diags {
		out[i] = finding{RuleID: d.RuleID, Message: d.Message, Fixable: d.Fixable()}
	}
	return out
}

func TestRegistered(t *testing.T) {
	ids := make([]string, 0)
	for _, r := range lint.GetAll() {
		ids = append(ids, r.ID)
		assert.Equal(t, "schema", r.Group)
		assert.NotEmpty(t, r.Kinds)
	}
	assert.Equal(t, []string{"SI01", "SI02", "SI03", "SI04", "SI05"}, ids)

	rule, ok := lint.GetByID("schema.unknown_column")
	require.True(t, ok)
	assert.Equal(t, "SI04", rule.ID)

	info := rule.Info()
	assert.True(t, info.Fixable)
	assert.Equal(t, []string{"ExtraColumn"}, info.Kinds)
	assert.Contains(t, info.ConfigKeys, lint.OptionAutofix)
}

func TestMessages(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []finding
	}{
		{
			name: "table not found",
			src:  "class Dog < ApplicationRecord\nend\n",
			want: []finding{{"SI01", `Table "dogs" is not defined in db/schema.rb`, false}},
		},
		{
			name: "no block",
			src:  "class Comment < ApplicationRecord\nend\n",
			want: []finding{{"SI01", "The schema is not specified in the model (use the_schema_is statement)", true}},
		},
		{
			name: "wrong name",
			src:  "class Comment < ApplicationRecord\n  the_schema_is \"notes\" do |t|\n    t.text \"body\"\n    t.integer \"user_id\"\n    t.integer \"article_id\"\n  end\nend\n",
			want: []finding{{"SI02", `The real table name should be "comments"`, true}},
		},
		{
			name: "no name",
			src:  "class Comment < ApplicationRecord\n  the_schema_is do |t|\n    t.text \"body\"\n    t.integer \"user_id\"\n    t.integer \"article_id\"\n  end\nend\n",
			want: []finding{{"SI02", "Table name is not specified", true}},
		},
		{
			name: "column findings",
			src:  "class Comment < ApplicationRecord\n  the_schema_is \"comments\" do |t|\n    t.string \"body\"\n    t.integer \"owner_id\"\n    t.integer \"article_id\"\n  end\nend\n",
			want: []finding{
				{"SI03", `Column "user_id" definition is missing`, true},
				{"SI04", `Unknown column "owner_id"`, true},
				{"SI05", "Wrong column definition: expected `t.text     \"body\"`", true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, findings(analyze(t, tt.src, nil)))
		})
	}
}

func TestAnchors(t *testing.T) {
	src := "class Comment < ApplicationRecord\n  the_schema_is \"notes\" do |t|\n    t.integer \"owner_id\"\n  end\nend\n"
	diags := analyze(t, src, nil)
	require.NotEmpty(t, diags)

	byRule := map[string]lint.Diagnostic{}
	for _, d := range diags {
		if _, seen := byRule[d.RuleID]; !seen {
			byRule[d.RuleID] = d
		}
	}
	assert.Equal(t, 2, byRule["SI02"].Location.Span.Start.Line)
	assert.Equal(t, 17, byRule["SI02"].Location.Span.Start.Column)
	assert.Equal(t, 2, byRule["SI03"].Location.Span.Start.Line)
	assert.Equal(t, 3, byRule["SI03"].Location.Span.Start.Column)
	assert.Equal(t, 3, byRule["SI04"].Location.Span.Start.Line)
	assert.Equal(t, "Comment", byRule["SI04"].Model)
}

func TestConfig(t *testing.T) {
	src := "class Comment < ApplicationRecord\n  the_schema_is \"comments\" do |t|\n    t.string \"body\"\n    t.integer \"owner_id\"\n    t.integer \"legacy_id\"\n  end\nend\n"

	cfg := lint.NewConfig().
		Disable("SI03").
		SetSeverity("SI05", core.SeverityError).
		SetRuleOptions("SI04", map[string]any{"ignore_columns": []any{"legacy_id"}}).
		SetRuleOptions("SI05", map[string]any{"autofix": false})

	diags := analyze(t, src, cfg)
	require.Len(t, diags, 2)

	assert.Equal(t, "SI04", diags[0].RuleID)
	assert.Equal(t, `Unknown column "owner_id"`, diags[0].Message)
	assert.Equal(t, core.SeverityWarning, diags[0].Severity)

	assert.Equal(t, "SI05", diags[1].RuleID)
	assert.Equal(t, core.SeverityError, diags[1].Severity)
	assert.False(t, diags[1].Fixable())
}
