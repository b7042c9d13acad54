package core

import "github.com/leapstack-labs/schemais/pkg/token"

// =============================================================================
// ModelDecl
// =============================================================================

// ModelDecl is the schema an ActiveRecord model declares about itself.
type ModelDecl struct {
	ClassName string
	TableName string // resolved: table_name= literal, else prefix + tableized class name
	Columns   []*ColumnDef
	Class     ClassAnchor

	// Block is nil when the model has no the_schema_is block.
	Block *SchemaBlock
	// TableNameLiteral is nil when the block names no table.
	TableNameLiteral *NameLiteral
}

// ClassAnchor locates the class declaration.
type ClassAnchor struct {
	Location      token.Location
	Indent        int // 0-based column of the `class` keyword
	SuperclassEnd int // offset just past the superclass expression
}

// SchemaBlock locates a `the_schema_is ... do |t| ... end` block.
type SchemaBlock struct {
	Location    token.Location
	Indent      int // 0-based column of the block
	SelectorEnd int // offset just past `the_schema_is`
	LParen      int // argument parentheses, -1 when absent
	RParen      int
	ParamsEnd   int // offset just past `|t|`
	CloseStart  int // offset of the closing `end`
	Param       string
}

// NameLiteral is the table name given to the_schema_is.
type NameLiteral struct {
	Value    string
	Literal  bool // false when the argument is not a string or symbol literal
	Location token.Location
}

// Column returns the declared column with the given name.
func (m *ModelDecl) Column(name string) *ColumnDef {
	return findColumn(m.Columns, name)
}

// =============================================================================
// TableDef
// =============================================================================

// TableDef is one create_table block of the authoritative schema.
type TableDef struct {
	Name     string
	Columns  []*ColumnDef // authoritative order
	Location token.Location
}

// Column returns the table column with the given name.
func (t *TableDef) Column(name string) *ColumnDef {
	return findColumn(t.Columns, name)
}

// Index returns the position of the named column, or -1.
func (t *TableDef) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func findColumn(cols []*ColumnDef, name string) *ColumnDef {
	for _, c := range cols {
		if c.Name == name {
			return c
		}
	}
	return nil
}
