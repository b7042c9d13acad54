package extract

import (
	"slices"
	"strings"

	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/query"
	"github.com/leapstack-labs/schemais/pkg/ruby"
)

// DefaultParam is the block parameter column statements are sent to when a
// block declares none.
const DefaultParam = "t"

// GenericColumn is the selector whose second argument names the type.
const GenericColumn = "column"

// StandardTypes are the column types every adapter supports.
var StandardTypes = []string{
	"bigint", "binary", "boolean", "date", "datetime", "decimal", "numeric",
	"float", "integer", "json", "string", "text", "time", "timestamp", "virtual",
}

// PostgresTypes are the PostgreSQL specific column types.
var PostgresTypes = []string{"jsonb", "inet", "cidr", "macaddr", "hstore", "uuid"}

// ColumnSelectors is the closed set of selectors recognized as columns.
var ColumnSelectors = slices.Concat(StandardTypes, PostgresTypes, []string{GenericColumn})

var columnStatement = query.Send(
	query.OneOf(
		query.LVar(query.CaptureWord("recv", query.AnyWord())),
		query.Send(query.Nil(), query.CaptureWord("recv", query.AnyWord())),
	),
	query.CaptureWord("type", query.In(ColumnSelectors...)),
	query.Str(query.CaptureWord("name", query.AnyWord())),
	query.Opt(query.Capture("type_arg", query.OneOf(query.Sym(), query.Str()))),
	query.Opt(query.Capture("opts", query.Kind(ruby.KindHash))),
)

// Column normalizes one statement sent to the block parameter param. It
// returns false for anything that is not a recognized column definition.
func Column(stmt ruby.Node, param string) (*core.ColumnDef, bool) {
	b, ok := query.Match(columnStatement, stmt)
	if !ok || b.Word("recv") != param {
		return nil, false
	}

	typ := b.Word("type")
	if typ == GenericColumn {
		if !b.Has("type_arg") {
			return nil, false
		}
		typ = b.Node("type_arg").Value()
	} else if b.Has("type_arg") {
		return nil, false
	}

	col := &core.ColumnDef{
		Name:       b.Word("name"),
		Type:       typ,
		SourceText: stmt.Source(),
		Location:   stmt.Location(),
		Indent:     stmt.Span().Start.Column - 1,
	}
	if b.Has("opts") {
		col.Attributes = attributes(b.Node("opts"))
	}
	return col, true
}

// Columns normalizes the statements of a block in order. Names are unique in
// the result: a repeated name keeps its first position with the definition
// of its last occurrence. Attributes named in excluded are stripped.
func Columns(block ruby.Node, excluded []string) []*core.ColumnDef {
	param := DefaultParam
	if ps := block.Params(); len(ps) > 0 {
		param = ps[0]
	}

	var cols []*core.ColumnDef
	index := map[string]int{}
	for _, stmt := range block.Body().Statements() {
		col, ok := Column(stmt, param)
		if !ok {
			continue
		}
		col = col.Without(excluded)
		layout(col, stmt, block)
		if i, seen := index[col.Name]; seen {
			cols[i] = col
			continue
		}
		index[col.Name] = len(cols)
		cols = append(cols, col)
	}
	return cols
}

// layout fills the line range a statement owns inside its block. When the
// statement shares a line with other code the range is the statement itself.
func layout(col *core.ColumnDef, stmt, block ruby.Node) {
	tree := stmt.Tree()
	start, end := stmt.Start(), stmt.End()

	next := block.CloseStart()
	if sib := stmt.NextSibling(); sib.Valid() {
		next = sib.Start()
	}

	lineStart := tree.LineStart(start)
	nextLine := tree.LineStart(next)
	if strings.TrimSpace(tree.Src[lineStart:start]) != "" || nextLine <= start || lineStart < block.ParamsEnd() {
		lineStart, nextLine = start, end
	}
	col.LineStart = lineStart
	col.NextLineStart = nextLine
}

func attributes(hash ruby.Node) []core.Attribute {
	var attrs []core.Attribute
	for _, pair := range hash.Elements() {
		key := pair.Key()
		if key.Kind() != ruby.KindSym && key.Kind() != ruby.KindStr {
			continue
		}
		val := core.OpaqueValue(key.Source())
		if pair.Val().Valid() {
			val = Value(pair.Val())
		}
		attr := core.Attribute{Name: key.Value(), Value: val}
		if i := slices.IndexFunc(attrs, func(a core.Attribute) bool { return a.Name == attr.Name }); i >= 0 {
			attrs[i] = attr
			continue
		}
		attrs = append(attrs, attr)
	}
	return attrs
}

// Value reduces a literal expression to a comparable value. Anything that is
// not a literal becomes an opaque value compared by its normalized source.
func Value(n ruby.Node) core.Value {
	switch n.Kind() {
	case ruby.KindNil:
		return core.NilValue()
	case ruby.KindTrue:
		return core.BoolValue(true)
	case ruby.KindFalse:
		return core.BoolValue(false)
	case ruby.KindInt:
		return core.IntValue(n.Value())
	case ruby.KindFloat:
		return core.FloatValue(n.Value())
	case ruby.KindStr:
		return core.StringValue(n.Value())
	case ruby.KindSym:
		return core.SymbolValue(n.Value())
	case ruby.KindWords:
		return words(n)
	case ruby.KindArray:
		items := make([]core.Value, 0, len(n.Elements()))
		for _, e := range n.Elements() {
			items = append(items, Value(e))
		}
		return core.ArrayValue(items...)
	case ruby.KindHash:
		var pairs []core.HashEntry
		for _, p := range n.Elements() {
			val := core.NilValue()
			if p.Val().Valid() {
				val = Value(p.Val())
			}
			pairs = append(pairs, core.HashEntry{Key: Value(p.Key()), Value: val})
		}
		return core.HashValue(pairs...)
	}
	return core.OpaqueValue(n.Source())
}

// words expands %w[] and %i[] literals into arrays.
func words(n ruby.Node) core.Value {
	src := n.Source()
	symbols := len(src) > 1 && (src[1] == 'i' || src[1] == 'I')
	fields := strings.Fields(n.Value())
	items := make([]core.Value, len(fields))
	for i, f := range fields {
		if symbols {
			items[i] = core.SymbolValue(f)
		} else {
			items[i] = core.StringValue(f)
		}
	}
	return core.ArrayValue(items...)
}
