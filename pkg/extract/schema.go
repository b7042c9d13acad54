package extract

import (
	"slices"

	"github.com/leapstack-labs/schemais/pkg/core"
	"github.com/leapstack-labs/schemais/pkg/query"
	"github.com/leapstack-labs/schemais/pkg/ruby"
)

// Tables maps table names to their definitions.
type Tables map[string]*core.TableDef

// Names returns the table names in the order they appear in the file.
func (t Tables) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		return t[a].Location.Span.Start.Offset - t[b].Location.Span.Start.Offset
	})
	return names
}

var (
	schemaConst = query.Const("ActiveRecord::Schema")

	// ActiveRecord::Schema.define(...) and ActiveRecord::Schema[7.1].define(...)
	schemaDefine = query.Block(query.Send(
		query.OneOf(schemaConst, query.Send(schemaConst, query.Is("[]"), query.Rest())),
		query.Is("define"), query.Rest()))

	createTable = query.Block(query.Send(query.Nil(), query.Is("create_table"),
		query.Str(query.CaptureWord("name", query.AnyWord())), query.Rest()))
)

// Schema extracts every create_table block of a schema file. Only the
// ActiveRecord::Schema.define block is searched when there is one; otherwise
// the whole file is. Attributes named in excluded are stripped from every
// column. A table defined twice keeps its last definition.
func Schema(tree *ruby.Tree, excluded []string) Tables {
	root := tree.Root()
	if res, ok := query.Last(query.Search(schemaDefine, root, query.Options{})); ok {
		root = res.Node
	}

	tables := Tables{}
	for _, res := range query.Search(createTable, root, query.Options{}) {
		name := res.Bindings.Word("name")
		tables[name] = &core.TableDef{
			Name:     name,
			Columns:  Columns(res.Node, excluded),
			Location: res.Node.Location(),
		}
	}
	return tables
}
