package core

import "fmt"

// =============================================================================
// Discrepancy
// =============================================================================

// DiscrepancyKind identifies what kind of drift was found.
type DiscrepancyKind int

// Discrepancy kinds, in reporting order.
const (
	TableNotFound DiscrepancyKind = iota
	MissingModelBlock
	WrongTableName
	MissingColumn
	ExtraColumn
	AttributeMismatch
)

var discrepancyNames = [...]string{
	TableNotFound:     "TableNotFound",
	MissingModelBlock: "MissingModelBlock",
	WrongTableName:    "WrongTableName",
	MissingColumn:     "MissingColumn",
	ExtraColumn:       "ExtraColumn",
	AttributeMismatch: "AttributeMismatch",
}

func (k DiscrepancyKind) String() string {
	if int(k) >= 0 && int(k) < len(discrepancyNames) {
		return discrepancyNames[k]
	}
	return fmt.Sprintf("DiscrepancyKind(%d)", int(k))
}

// NameProblem qualifies a WrongTableName discrepancy.
type NameProblem int

// Table name problems.
const (
	NameOK NameProblem = iota
	// NameMismatch: the block names a different table.
	NameMismatch
	// NameMissing: the block names no table at all.
	NameMissing
)

// Discrepancy is one mismatch between a model and its table.
type Discrepancy struct {
	Kind DiscrepancyKind
	Name NameProblem // WrongTableName only

	// Column is the table column for MissingColumn and the model column for
	// ExtraColumn and AttributeMismatch.
	Column *ColumnDef
	// Expected is the table column for AttributeMismatch.
	Expected *ColumnDef
}

// String returns a short description, mostly useful in tests and logs.
func (d Discrepancy) String() string {
	switch d.Kind {
	case WrongTableName:
		if d.Name == NameMissing {
			return "WrongTableName(NameMissing)"
		}
		return "WrongTableName(NameMismatch)"
	case MissingColumn, ExtraColumn, AttributeMismatch:
		if d.Column != nil {
			return fmt.Sprintf("%s(%s)", d.Kind, d.Column.Name)
		}
	}
	return d.Kind.String()
}
