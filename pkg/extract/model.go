package extract

import (
	"slices"
	"strings"

	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/inflect"
	"github.com/leapstack-labs/schemais/pkg/query"
	"github.com/leapstack-labs/schemais/pkg/ruby"
)

// DefaultBaseClasses are the superclasses that make a class a model.
var DefaultBaseClasses = []string{"ActiveRecord::Base", "ApplicationRecord"}

// SchemaMethod is the class-level call that declares a model's schema.
const SchemaMethod = "the_schema_is"

// ModelConfig controls model detection and table name resolution.
type ModelConfig struct {
	BaseClasses []string // qualified superclass names; DefaultBaseClasses when empty
	TablePrefix string
	Inflector   inflect.Inflector // inflect.Default when nil
	Excluded    []string          // attribute names stripped from every column
}

var (
	abstractClass = query.Send(query.Self(), query.Is("abstract_class="), query.Kind(ruby.KindTrue))

	tableNameAssign = query.Send(query.Self(), query.Is("table_name="),
		query.OneOf(
			query.Str(query.CaptureWord("name", query.AnyWord())),
			query.Sym(query.CaptureWord("name", query.AnyWord())),
		))

	schemaBlock = query.Block(query.Send(query.Nil(), query.Is(SchemaMethod),
		query.Opt(query.Capture("table", query.Any())), query.Rest()))

	scoped = query.Options{SkipNestedScopes: true}
)

// Model extracts the declared schema of a class. The boolean is false when
// the class is not a concrete model: its superclass is not a base class, it
// is abstract, or it only serves as a namespace for nested classes.
func Model(class ruby.Node, cfg ModelConfig) (*core.ModelDecl, bool) {
	if class.Kind() != ruby.KindClass || !isModelBase(class.Superclass(), cfg.BaseClasses) {
		return nil, false
	}
	if len(query.Search(abstractClass, class, scoped)) > 0 || namespaceOnly(class) {
		return nil, false
	}

	m := &core.ModelDecl{
		ClassName: class.Name().ConstPath(),
		TableName: tableName(class, cfg),
		Class: core.ClassAnchor{
			Location:      class.Location(),
			Indent:        class.Span().Start.Column - 1,
			SuperclassEnd: class.Superclass().End(),
		},
	}

	res, ok := query.Last(query.Search(schemaBlock, class, scoped))
	if !ok {
		return m, true
	}
	block := res.Node
	call := block.Call()
	lparen, rparen := call.Parens()
	m.Block = &core.SchemaBlock{
		Location:    block.Location(),
		Indent:      block.Span().Start.Column - 1,
		SelectorEnd: call.SelectorEnd(),
		LParen:      lparen,
		RParen:      rparen,
		ParamsEnd:   block.ParamsEnd(),
		CloseStart:  block.CloseStart(),
		Param:       DefaultParam,
	}
	if ps := block.Params(); len(ps) > 0 {
		m.Block.Param = ps[0]
	}
	if res.Bindings.Has("table") {
		m.TableNameLiteral = nameLiteral(res.Bindings.Node("table"))
	}
	m.Columns = Columns(block, cfg.Excluded)
	return m, true
}

func isModelBase(super ruby.Node, bases []string) bool {
	path := strings.TrimPrefix(super.ConstPath(), "::")
	if path == "" {
		return false
	}
	if len(bases) == 0 {
		bases = DefaultBaseClasses
	}
	return slices.ContainsFunc(bases, func(b string) bool {
		return strings.TrimPrefix(b, "::") == path
	})
}

func namespaceOnly(class ruby.Node) bool {
	stmts := class.Body().Statements()
	if len(stmts) == 0 {
		return false
	}
	for _, s := range stmts {
		if s.Kind() != ruby.KindClass && s.Kind() != ruby.KindModule {
			return false
		}
	}
	return true
}

func tableName(class ruby.Node, cfg ModelConfig) string {
	if res, ok := query.Last(query.Search(tableNameAssign, class, scoped)); ok {
		return res.Bindings.Word("name")
	}
	inf := cfg.Inflector
	if inf == nil {
		inf = inflect.Default{}
	}
	return cfg.TablePrefix + inf.Tableize(inflect.Demodulize(class.Name().ConstPath()))
}

func nameLiteral(n ruby.Node) *core.NameLiteral {
	lit := &core.NameLiteral{Value: n.Source(), Location: n.Location()}
	if n.Kind() == ruby.KindStr || n.Kind() == ruby.KindSym {
		lit.Value = n.Value()
		lit.Literal = true
	}
	return lit
}
