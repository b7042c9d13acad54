// Package patch turns discrepancies into text edits and applies them.
package patch

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrOverlappingEdits is returned by Apply when two edits touch the same
// bytes.
var ErrOverlappingEdits = errors.New("overlapping edits")

// EditKind identifies the operation of an Edit.
type EditKind int

// Edit kinds.
const (
	Insert EditKind = iota
	Delete
	Replace
)

func (k EditKind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	case Replace:
		return "replace"
	}
	return fmt.Sprintf("EditKind(%d)", int(k))
}

// Edit is one change to a source text, in absolute byte offsets. Inserts
// have Start == End.
type Edit struct {
	Kind  EditKind
	Start int
	End   int
	Text  string
}

// InsertAt returns an edit inserting text at offset.
func InsertAt(offset int, text string) Edit {
	return Edit{Kind: Insert, Start: offset, End: offset, Text: text}
}

// DeleteRange returns an edit removing [start, end).
func DeleteRange(start, end int) Edit {
	return Edit{Kind: Delete, Start: start, End: end}
}

// ReplaceRange returns an edit replacing [start, end) with text.
func ReplaceRange(start, end int, text string) Edit {
	return Edit{Kind: Replace, Start: start, End: end, Text: text}
}

func (e Edit) String() string {
	return fmt.Sprintf("%s[%d:%d]%q", e.Kind, e.Start, e.End, e.Text)
}

// Merge flattens edit lists in emission order.
func Merge(lists ...[]Edit) []Edit {
	var out []Edit
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// Apply splices edits into src in one pass. Edits are ordered by offset,
// keeping emission order for inserts at the same offset. Edits that overlap
// are rejected with ErrOverlappingEdits and src is left unchanged.
func Apply(src string, edits []Edit) (string, error) {
	sorted := slices.Clone(edits)
	slices.SortStableFunc(sorted, func(a, b Edit) int {
		return cmp.Or(cmp.Compare(a.Start, b.Start), cmp.Compare(a.End, b.End))
	})

	var b strings.Builder
	b.Grow(len(src))
	pos := 0
	for _, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(src) {
			return src, fmt.Errorf("edit %s out of range for %d bytes", e, len(src))
		}
		if e.Start < pos {
			return src, fmt.Errorf("%w: %s", ErrOverlappingEdits, e)
		}
		b.WriteString(src[pos:e.Start])
		b.WriteString(e.Text)
		pos = e.End
	}
	b.WriteString(src[pos:])
	return b.String(), nil
}
