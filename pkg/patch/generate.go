package patch

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/schemais/pkg/core"
)

// DefaultIndentWidth is how much deeper a block body is indented than its
// header.
const DefaultIndentWidth = 2

// Options controls generated text.
type Options struct {
	IndentWidth int // DefaultIndentWidth when zero
}

func (o Options) step() int {
	if o.IndentWidth > 0 {
		return o.IndentWidth
	}
	return DefaultIndentWidth
}

// Generate returns the edits that fix one discrepancy. It returns nil when no
// deterministic fix exists, which is always the case for TableNotFound.
func Generate(d core.Discrepancy, model *core.ModelDecl, table *core.TableDef, opts Options) []Edit {
	switch d.Kind {
	case core.MissingModelBlock:
		if table == nil {
			return nil
		}
		return []Edit{schemaBlock(model, table, opts)}
	case core.WrongTableName:
		if model.Block == nil {
			return nil
		}
		return []Edit{tableName(d, model)}
	case core.MissingColumn:
		if model.Block == nil || table == nil || d.Column == nil {
			return nil
		}
		return []Edit{missingColumn(d.Column, model, table, opts)}
	case core.ExtraColumn:
		if d.Column == nil {
			return nil
		}
		return []Edit{DeleteRange(d.Column.LineStart, d.Column.NextLineStart)}
	case core.AttributeMismatch:
		if d.Column == nil || d.Expected == nil {
			return nil
		}
		return []Edit{ReplaceRange(d.Column.Start(), d.Column.End(), d.Expected.SourceText)}
	}
	return nil
}

// GenerateAll returns the merged edits for every discrepancy.
func GenerateAll(ds []core.Discrepancy, model *core.ModelDecl, table *core.TableDef, opts Options) []Edit {
	lists := make([][]Edit, 0, len(ds))
	for _, d := range ds {
		lists = append(lists, Generate(d, model, table, opts))
	}
	return Merge(lists...)
}

// quote renders a table name as a double-quoted Ruby string.
func quote(name string) string {
	return strconv.Quote(name)
}

// schemaBlock inserts a complete the_schema_is block after the superclass.
func schemaBlock(model *core.ModelDecl, table *core.TableDef, opts Options) Edit {
	indent := strings.Repeat(" ", model.Class.Indent+opts.step())
	body := strings.Repeat(" ", opts.step())

	lines := make([]string, 0, len(table.Columns)+2)
	lines = append(lines, indent+"the_schema_is "+quote(table.Name)+" do |t|")
	for _, col := range table.Columns {
		lines = append(lines, indent+body+col.SourceText)
	}
	lines = append(lines, indent+"end")

	return InsertAt(model.Class.SuperclassEnd, "\n"+strings.Join(lines, "\n")+"\n")
}

func tableName(d core.Discrepancy, model *core.ModelDecl) Edit {
	name := quote(model.TableName)
	if d.Name == core.NameMismatch && model.TableNameLiteral != nil {
		span := model.TableNameLiteral.Location.Span
		return ReplaceRange(span.Start.Offset, span.End.Offset, name)
	}
	if b := model.Block; b.LParen >= 0 && b.RParen == b.LParen+1 {
		return InsertAt(b.LParen+1, name)
	}
	return InsertAt(model.Block.SelectorEnd, " "+name)
}

// missingColumn inserts a table column after the nearest model column that
// precedes it in table order, or first in the block when there is none.
func missingColumn(col *core.ColumnDef, model *core.ModelDecl, table *core.TableDef, opts Options) Edit {
	for i := table.Index(col.Name) - 1; i >= 0; i-- {
		if anchor := model.Column(table.Columns[i].Name); anchor != nil {
			return InsertAt(anchor.End(), "\n"+strings.Repeat(" ", anchor.Indent)+col.SourceText)
		}
	}
	indent := strings.Repeat(" ", model.Block.Indent+opts.step())
	return InsertAt(model.Block.ParamsEnd, "\n"+indent+col.SourceText)
}
