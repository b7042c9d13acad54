package core

import (
	"strconv"
	"strings"
)

// =============================================================================
// Value
// =============================================================================

// ValueKind identifies the shape of a literal attribute value.
type ValueKind int

// Value kinds.
const (
	ValueNil ValueKind = iota
	ValueBool
	ValueInt
	ValueFloat
	ValueString
	ValueSymbol
	ValueArray
	ValueHash
	// ValueOpaque is any non-literal expression (lambda, constant, call).
	// It is compared by its source text with whitespace removed.
	ValueOpaque
)

// Value is a Ruby literal reduced to something comparable.
type Value struct {
	Kind  ValueKind
	Bool  bool
	Text  string      // numeric text, string/symbol content, normalized opaque source
	Items []Value     // array elements
	Pairs []HashEntry // hash entries in source order
}

// HashEntry is one key/value pair of a hash value.
type HashEntry struct {
	Key   Value
	Value Value
}

// NilValue returns the nil literal.
func NilValue() Value { return Value{Kind: ValueNil} }

// BoolValue returns a boolean literal.
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

// IntValue returns an integer literal from its source digits.
func IntValue(text string) Value { return Value{Kind: ValueInt, Text: text} }

// FloatValue returns a float literal from its source digits.
func FloatValue(text string) Value { return Value{Kind: ValueFloat, Text: text} }

// StringValue returns a string literal.
func StringValue(s string) Value { return Value{Kind: ValueString, Text: s} }

// SymbolValue returns a symbol literal.
func SymbolValue(s string) Value { return Value{Kind: ValueSymbol, Text: s} }

// ArrayValue returns an array literal.
func ArrayValue(items ...Value) Value { return Value{Kind: ValueArray, Items: items} }

// HashValue returns a hash literal.
func HashValue(pairs ...HashEntry) Value { return Value{Kind: ValueHash, Pairs: pairs} }

// OpaqueValue returns an opaque expression, normalizing its source.
func OpaqueValue(source string) Value {
	return Value{Kind: ValueOpaque, Text: NormalizeSource(source)}
}

// Equal reports whether two values are equal by value. Hashes compare
// without regard to entry order, arrays element by element, and integers and
// floats by numeric value.
func (v Value) Equal(o Value) bool {
	if v.isNumeric() && o.isNumeric() {
		return numericEqual(v, o)
	}
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueNil:
		return true
	case ValueBool:
		return v.Bool == o.Bool
	case ValueString, ValueSymbol, ValueOpaque:
		return v.Text == o.Text
	case ValueArray:
		if len(v.Items) != len(o.Items) {
			return false
		}
		for i := range v.Items {
			if !v.Items[i].Equal(o.Items[i]) {
				return false
			}
		}
		return true
	case ValueHash:
		if len(v.Pairs) != len(o.Pairs) {
			return false
		}
		for _, p := range v.Pairs {
			other, ok := o.Lookup(p.Key)
			if !ok || !p.Value.Equal(other) {
				return false
			}
		}
		return true
	}
	return false
}

// Lookup returns the value stored under key in a hash value.
func (v Value) Lookup(key Value) (Value, bool) {
	for _, p := range v.Pairs {
		if p.Key.Equal(key) {
			return p.Value, true
		}
	}
	return Value{}, false
}

func (v Value) isNumeric() bool {
	return v.Kind == ValueInt || v.Kind == ValueFloat
}

func numericEqual(a, b Value) bool {
	if a.Kind == ValueInt && b.Kind == ValueInt {
		x, errX := strconv.ParseInt(a.Text, 0, 64)
		y, errY := strconv.ParseInt(b.Text, 0, 64)
		if errX == nil && errY == nil {
			return x == y
		}
		return a.Text == b.Text
	}
	x, errX := strconv.ParseFloat(a.Text, 64)
	y, errY := strconv.ParseFloat(b.Text, 64)
	if errX != nil || errY != nil {
		return a.Text == b.Text
	}
	return x == y
}

// String renders the value in Ruby literal syntax.
func (v Value) String() string {
	switch v.Kind {
	case ValueNil:
		return "nil"
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	case ValueInt, ValueFloat, ValueOpaque:
		return v.Text
	case ValueString:
		return strconv.Quote(v.Text)
	case ValueSymbol:
		return ":" + v.Text
	case ValueArray:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ValueHash:
		parts := make([]string, len(v.Pairs))
		for i, p := range v.Pairs {
			if p.Key.Kind == ValueSymbol {
				parts[i] = p.Key.Text + ": " + p.Value.String()
			} else {
				parts[i] = p.Key.String() + " => " + p.Value.String()
			}
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return ""
}

// NormalizeSource removes whitespace outside of quoted strings so that two
// expressions differing only in layout compare equal.
func NormalizeSource(src string) string {
	var b strings.Builder
	var quote byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case quote != 0:
			b.WriteByte(c)
			if c == '\\' && i+1 < len(src) {
				i++
				b.WriteByte(src[i])
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
			b.WriteByte(c)
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
