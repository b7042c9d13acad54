package core

import "github.com/leapstack-labs/schemais/pkg/token"

// =============================================================================
// ColumnDef
// =============================================================================

// ColumnDef is one typed column declaration, from either side.
type ColumnDef struct {
	Name       string
	Type       string
	Attributes []Attribute // keyword attributes in source order, names unique
	SourceText string      // verbatim statement text
	Location   token.Location

	// Layout of the statement inside its block, used for line-level edits.
	Indent        int // 0-based column of the statement
	LineStart     int // offset of the first byte of the statement's line
	NextLineStart int // line start of the next statement, or of the closing `end`
}

// Attribute is a keyword argument of a column statement.
type Attribute struct {
	Name  string
	Value Value
}

// Start returns the offset of the statement.
func (c *ColumnDef) Start() int { return c.Location.Span.Start.Offset }

// End returns the offset just past the statement.
func (c *ColumnDef) End() int { return c.Location.Span.End.Offset }

// Attr returns the attribute with the given name.
func (c *ColumnDef) Attr(name string) (Value, bool) {
	for _, a := range c.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return Value{}, false
}

// SameDefinition reports whether two columns agree on type and attributes,
// compared by value and irrespective of attribute order or formatting.
func (c *ColumnDef) SameDefinition(o *ColumnDef) bool {
	if CanonicalType(c.Type) != CanonicalType(o.Type) {
		return false
	}
	if len(c.Attributes) != len(o.Attributes) {
		return false
	}
	for _, a := range c.Attributes {
		v, ok := o.Attr(a.Name)
		if !ok || !a.Value.Equal(v) {
			return false
		}
	}
	return true
}

// Without returns a copy of the column with the named attributes removed.
// The verbatim source text is kept as is.
func (c *ColumnDef) Without(names []string) *ColumnDef {
	if len(names) == 0 {
		return c
	}
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := *c
	out.Attributes = nil
	for _, a := range c.Attributes {
		if !drop[a.Name] {
			out.Attributes = append(out.Attributes, a)
		}
	}
	return &out
}

// CanonicalType maps type aliases onto one name: numeric is decimal.
func CanonicalType(t string) string {
	if t == "numeric" {
		return "decimal"
	}
	return t
}
