package ruby_test

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/schemais/pkg/ruby"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const commentModel = `class Comment < ApplicationRecord
  the_schema_is "comments" do |t|
    t.text     "body"
    t.datetime "created_at", null: false
  end

  belongs_to :user
end
`

func parse(t *testing.T, src string) *ruby.Tree {
	t.Helper()
	tree, err := ruby.Parse("test.rb", src)
	require.NoError(t, err)
	return tree
}

func TestParse_ModelClass(t *testing.T) {
	tree := parse(t, commentModel)

	stmts := tree.Root().Statements()
	require.Len(t, stmts, 1)
	class := stmts[0]
	assert.Equal(t, ruby.KindClass, class.Kind())
	assert.Equal(t, "Comment", class.Name().ConstPath())
	assert.Equal(t, "ApplicationRecord", class.Superclass().ConstPath())

	body := class.Body().Statements()
	require.Len(t, body, 2)

	block := body[0]
	require.Equal(t, ruby.KindBlock, block.Kind())
	assert.Equal(t, "the_schema_is", block.Call().Method())
	require.Len(t, block.Call().Args(), 1)
	assert.Equal(t, "comments", block.Call().Args()[0].Value())
	assert.Equal(t, []string{"t"}, block.Params())
	assert.Equal(t, "|t|", commentModel[block.ParamsEnd()-3:block.ParamsEnd()])
	assert.Equal(t, "end", commentModel[block.CloseStart():block.CloseStart()+3])

	cols := block.Body().Statements()
	require.Len(t, cols, 2)

	body0 := cols[0]
	assert.Equal(t, ruby.KindSend, body0.Kind())
	assert.Equal(t, "text", body0.Method())
	assert.Equal(t, ruby.KindLVar, body0.Receiver().Kind())
	assert.Equal(t, "t", body0.Receiver().Value())
	assert.Equal(t, ruby.KindStr, body0.Args()[0].Kind())
	assert.Equal(t, "body", body0.Args()[0].Value())

	created := cols[1]
	assert.Equal(t, `t.datetime "created_at", null: false`, created.Source())
	require.Len(t, created.Args(), 2)
	opts := created.Args()[1]
	assert.Equal(t, ruby.KindHash, opts.Kind())
	assert.False(t, opts.Braced())
	require.Len(t, opts.Elements(), 1)
	assert.Equal(t, "null", opts.Elements()[0].Key().Value())
	assert.Equal(t, ruby.KindFalse, opts.Elements()[0].Val().Kind())

	assert.Equal(t, created, body0.NextSibling())
	assert.False(t, created.NextSibling().Valid())
	assert.Equal(t, block, created.Ancestor(ruby.KindBlock))
	assert.Equal(t, class, created.Ancestor(ruby.KindClass))
	assert.Equal(t, 4, created.Span().Start.Line)

	assert.Equal(t, "belongs_to", body[1].Method())
}

func TestParse_AttributeAssignment(t *testing.T) {
	tree := parse(t, "class A < B\n  self.table_name = 'x'\n  self.abstract_class = true\nend\n")

	body := tree.Root().Statements()[0].Body().Statements()
	require.Len(t, body, 2)

	assert.Equal(t, "table_name=", body[0].Method())
	assert.Equal(t, ruby.KindSelf, body[0].Receiver().Kind())
	assert.Equal(t, "x", body[0].Args()[0].Value())

	assert.Equal(t, "abstract_class=", body[1].Method())
	assert.Equal(t, ruby.KindTrue, body[1].Args()[0].Kind())
}

func TestParse_SchemaFile(t *testing.T) {
	src := `ActiveRecord::Schema.define(version: 2019_01_01_000000) do
  create_table "comments", force: :cascade do |t|
    t.text "body"
    t.index ["user_id"], name: "idx"
  end
end
`
	tree := parse(t, src)

	stmts := tree.Root().Statements()
	require.Len(t, stmts, 1)
	define := stmts[0]
	require.Equal(t, ruby.KindBlock, define.Kind())
	assert.Equal(t, "define", define.Call().Method())
	assert.Equal(t, "ActiveRecord::Schema", define.Call().Receiver().ConstPath())

	tables := define.Body().Statements()
	require.Len(t, tables, 1)
	create := tables[0]
	require.Equal(t, ruby.KindBlock, create.Kind())
	assert.Equal(t, "create_table", create.Call().Method())
	assert.Equal(t, "comments", create.Call().Args()[0].Value())
	assert.Equal(t, ruby.KindHash, create.Call().Args()[1].Kind())

	cols := create.Body().Statements()
	require.Len(t, cols, 2)
	assert.Equal(t, "index", cols[1].Method())
	assert.Equal(t, ruby.KindArray, cols[1].Args()[0].Kind())
}

func TestParse_SkipsUnrelatedConstructs(t *testing.T) {
	src := `class User < ApplicationRecord
  # comment with end
  SQL = <<~SQL
    select * from users where x = 'end'
  SQL

  def full_name
    if first
      "#{first} #{last}"
    else
      last
    end
  end

  scope :active, -> { where(active: true) }
end
`
	tree := parse(t, src)

	stmts := tree.Root().Statements()
	require.Len(t, stmts, 1)
	body := stmts[0].Body().Statements()
	require.Len(t, body, 3)

	assert.Equal(t, ruby.KindAssign, body[0].Kind())
	assert.Equal(t, "SQL", body[0].Value())
	assert.Equal(t, ruby.KindDef, body[1].Kind())
	assert.Equal(t, "full_name", body[1].Value())
	assert.Equal(t, ruby.KindSend, body[2].Kind())
	assert.Equal(t, "scope", body[2].Method())
}

func TestParse_LocalVariables(t *testing.T) {
	tree := parse(t, "x = 1\nx\ny\n")

	stmts := tree.Root().Statements()
	require.Len(t, stmts, 3)
	assert.Equal(t, ruby.KindAssign, stmts[0].Kind())
	assert.Equal(t, ruby.KindLVar, stmts[1].Kind())
	assert.Equal(t, ruby.KindSend, stmts[2].Kind())
}

func TestParse_Blocks(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		method string
		params []string
	}{
		{name: "brace block", src: "items.each { |i| puts i }", method: "each", params: []string{"i"}},
		{name: "do block without params", src: "loop do\n  work\nend", method: "loop"},
		{name: "multiline chain", src: "User\n  .where(a: 1)\n  .find_each do |u|\n  end", method: "find_each", params: []string{"u"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := parse(t, tt.src)
			stmts := tree.Root().Statements()
			require.Len(t, stmts, 1)
			require.Equal(t, ruby.KindBlock, stmts[0].Kind())
			assert.Equal(t, tt.method, stmts[0].Call().Method())
			assert.Equal(t, tt.params, stmts[0].Params())
		})
	}
}

func TestParse_RootedConstant(t *testing.T) {
	tree := parse(t, "class Foo < ::ActiveRecord::Base; end")

	class := tree.Root().Statements()[0]
	assert.Equal(t, "::ActiveRecord::Base", class.Superclass().ConstPath())
	assert.Empty(t, class.Body().Statements())
}

func TestParse_MissingEnd(t *testing.T) {
	tree, err := ruby.Parse("broken.rb", "class Foo\n  def x\n")
	require.Error(t, err)

	var perr *ruby.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Message, "missing end")

	require.NotNil(t, tree)
	stmts := tree.Root().Statements()
	require.Len(t, stmts, 1)
	assert.Equal(t, ruby.KindClass, stmts[0].Kind())
}

func TestNode_Statements(t *testing.T) {
	tree := parse(t, "foo")
	stmt := tree.Root().Statements()[0]
	assert.Equal(t, []ruby.Node{stmt}, stmt.Statements())
	assert.Nil(t, ruby.Node{}.Statements())
}
