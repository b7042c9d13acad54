package reconcile_test

import (
	"testing"

	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/extract"
	"github.com/leapstack-labs/schemais/pkg/reconcile"
	"github.com/leapstack-labs/schemais/pkg/ruby"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schema = `ActiveRecord::Schema.define(version: 2019_07_14_140223) do
  create_table "comments", force: :cascade do |t|
    t.text     "body"
    t.integer  "user_id"
    t.integer  "article_id"
    t.datetime "created_at", null: false
    t.datetime "updated_at", null: false
  end
end
`

func table(t *testing.T, name string) *core.TableDef {
	t.Helper()
	tree, err := ruby.Parse("db/schema.rb", schema)
	require.NoError(t, err)
	return extract.Schema(tree, nil)[name]
}

func model(t *testing.T, src string) *core.ModelDecl {
	t.Helper()
	tree, err := ruby.Parse("app/models/comment.rb", src)
	require.NoError(t, err)
	m, ok := extract.Model(tree.Root().Statements()[0], extract.ModelConfig{})
	require.True(t, ok)
	return m
}

func kinds(ds []core.Discrepancy) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.String()
	}
	return out
}

func TestReconcile(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  []string
	}{
		{
			name: "in sync, any order and spacing",
			model: `class Comment < ApplicationRecord
  the_schema_is "comments" do |t|
    t.integer "user_id"
    t.text "body"
    t.datetime "updated_at", null:false
    t.datetime "created_at", null: false
    t.integer "article_id"
  end
end
`,
			want: []string{},
		},
		{
			name:  "missing block",
			model: "class Comment < ApplicationRecord\n  belongs_to :user\nend\n",
			want:  []string{"MissingModelBlock"},
		},
		{
			name: "missing column",
			model: `class Comment < ApplicationRecord
  the_schema_is "comments" do |t|
    t.text     "body"
    t.integer  "user_id"
    t.datetime "created_at", null: false
    t.datetime "updated_at", null: false
  end
end
`,
			want: []string{"MissingColumn(article_id)"},
		},
		{
			name: "extra column",
			model: `class Comment < ApplicationRecord
  the_schema_is "comments" do |t|
    t.text     "body"
    t.integer  "user_id"
    t.integer  "article_id"
    t.integer  "owner_id"
    t.datetime "created_at", null: false
    t.datetime "updated_at", null: false
  end
end
`,
			want: []string{"ExtraColumn(owner_id)"},
		},
		{
			name: "wrong type",
			model: `class Comment < ApplicationRecord
  the_schema_is "comments" do |t|
    t.text     "body"
    t.integer  "user_id"
    t.string   "article_id"
    t.datetime "created_at", null: false
    t.datetime "updated_at", null: false
  end
end
`,
			want: []string{"AttributeMismatch(article_id)"},
		},
		{
			name: "everything at once",
			model: `class Comment < ApplicationRecord
  the_schema_is "notes" do |t|
    t.integer  "owner_id"
    t.integer  "user_id", null: true
    t.string   "legacy"
    t.datetime "created_at", null: false
  end
end
`,
			want: []string{
				"WrongTableName(NameMismatch)",
				"MissingColumn(body)",
				"MissingColumn(article_id)",
				"MissingColumn(updated_at)",
				"ExtraColumn(owner_id)",
				"ExtraColumn(legacy)",
				"AttributeMismatch(user_id)",
			},
		},
		{
			name:  "missing table name",
			model: "class Comment < ApplicationRecord\n  the_schema_is do |t|\n    t.text \"body\"\n    t.integer \"user_id\"\n    t.integer \"article_id\"\n    t.datetime \"created_at\", null: false\n    t.datetime \"updated_at\", null: false\n  end\nend\n",
			want:  []string{"WrongTableName(NameMissing)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reconcile.Reconcile(model(t, tt.model), table(t, "comments"))
			assert.Equal(t, tt.want, kinds(got))
		})
	}
}

func TestReconcile_TableNotFound(t *testing.T) {
	m := model(t, "class Dog < ApplicationRecord\n  the_schema_is \"dogs\" do |t|\n  end\nend\n")
	assert.Equal(t, "dogs", m.TableName)

	got := reconcile.Reconcile(m, table(t, m.TableName))
	require.Len(t, got, 1)
	assert.Equal(t, core.TableNotFound, got[0].Kind)
}

func TestReconcile_AttributeMismatchCarriesBothSides(t *testing.T) {
	m := model(t, "class Comment < ApplicationRecord\n  the_schema_is \"comments\" do |t|\n    t.string \"article_id\"\n  end\nend\n")
	var mismatch *core.Discrepancy
	for _, d := range reconcile.Reconcile(m, table(t, "comments")) {
		if d.Kind == core.AttributeMismatch {
			mismatch = &d
		}
	}
	require.NotNil(t, mismatch)
	assert.Equal(t, `t.string "article_id"`, mismatch.Column.SourceText)
	assert.Equal(t, `t.integer  "article_id"`, mismatch.Expected.SourceText)
}

func TestTableNameProblem(t *testing.T) {
	tests := []struct {
		name string
		lit  *core.NameLiteral
		want core.NameProblem
	}{
		{name: "absent", want: core.NameMissing},
		{name: "same", lit: &core.NameLiteral{Value: "comments", Literal: true}, want: core.NameOK},
		{name: "different", lit: &core.NameLiteral{Value: "notes", Literal: true}, want: core.NameMismatch},
		{name: "expression", lit: &core.NameLiteral{Value: "comments"}, want: core.NameMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &core.ModelDecl{TableName: "comments", TableNameLiteral: tt.lit}
			assert.Equal(t, tt.want, reconcile.TableNameProblem(m))
		})
	}
}
