package ruby

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/schemais/pkg/token"
)

// Kind identifies the syntactic category of a node.
type Kind int

// Node kinds.
const (
	KindInvalid Kind = iota
	KindProgram      // top-level statements
	KindBody         // statement sequence of a class, module, def or block
	KindClass        // class Name < Super ... end
	KindSClass       // class << self ... end
	KindModule       // module Name ... end
	KindDef          // def name ... end
	KindSend         // method call, with or without receiver
	KindBlock        // call do |params| ... end, call { |params| ... }
	KindStr          // string literal without interpolation
	KindDStr         // interpolated string or heredoc
	KindSym          // :symbol
	KindInt          // integer literal
	KindFloat        // float literal
	KindRegexp       // regular expression literal
	KindWords        // %w[] / %i[]
	KindTrue         // true
	KindFalse        // false
	KindNil          // nil
	KindSelf         // self
	KindArray        // [a, b]
	KindHash         // {a: 1} or trailing keyword arguments
	KindPair         // key => value, key: value
	KindConst        // Name, Scope::Name, ::Name
	KindLVar         // local variable read
	KindIVar         // @ivar, @@cvar
	KindGVar         // $gvar
	KindAssign       // local, instance or constant assignment
	KindOpaque       // any other construct; only its span and children are kept
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindProgram: "program",
	KindBody:    "body",
	KindClass:   "class",
	KindSClass:  "sclass",
	KindModule:  "module",
	KindDef:     "def",
	KindSend:    "send",
	KindBlock:   "block",
	KindStr:     "str",
	KindDStr:    "dstr",
	KindSym:     "sym",
	KindInt:     "int",
	KindFloat:   "float",
	KindRegexp:  "regexp",
	KindWords:   "words",
	KindTrue:    "true",
	KindFalse:   "false",
	KindNil:     "nil",
	KindSelf:    "self",
	KindArray:   "array",
	KindHash:    "hash",
	KindPair:    "pair",
	KindConst:   "const",
	KindLVar:    "lvar",
	KindIVar:    "ivar",
	KindGVar:    "gvar",
	KindAssign:  "assign",
	KindOpaque:  "opaque",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// node is the immutable tree element. Fields beyond the common header are
// only meaningful for some kinds.
type node struct {
	kind     Kind
	start    int
	end      int
	parent   *node
	children []*node

	value  string  // names and literal values
	recv   *node   // send receiver
	args   []*node // send arguments, array elements, hash pairs
	body   *node   // class, module, def and block body
	call   *node   // block call
	name   *node   // class and module name
	super  *node   // class superclass
	scope  *node   // const scope
	key    *node   // pair key
	val    *node   // pair value
	params []string

	selStart, selEnd int // send selector
	lparen, rparen   int // send argument parentheses, -1 when absent
	openEnd          int // block: end of `do` / `{` token
	paramsEnd        int // block: end of `|params|`, openEnd without params
	closeStart       int // start of the closing `end` / `}`
	braces           bool
	cbase            bool
}

func (n *node) adopt(kids ...*node) {
	for _, k := range kids {
		if k == nil {
			continue
		}
		k.parent = n
		n.children = append(n.children, k)
	}
}

// Tree is a parsed Ruby file.
type Tree struct {
	File  string
	Src   string
	root  *node
	lines *token.LineIndex
}

// Root returns the program node.
func (t *Tree) Root() Node {
	return Node{n: t.root, t: t}
}

// Position converts a byte offset into a line/column position.
func (t *Tree) Position(offset int) token.Position {
	return t.lines.Position(offset)
}

// LineStart returns the offset of the first byte of the line containing offset.
func (t *Tree) LineStart(offset int) int {
	return t.lines.LineStart(offset)
}

// Span returns the span between two byte offsets.
func (t *Tree) Span(start, end int) token.Span {
	return t.lines.Span(start, end)
}

// Node is a read-only handle to a tree node. The zero Node is absent; use
// Valid to test for it. Handles compare equal when they refer to the same node.
type Node struct {
	n *node
	t *Tree
}

func (t *Tree) wrap(n *node) Node {
	if n == nil {
		return Node{}
	}
	return Node{n: n, t: t}
}

func (t *Tree) wrapAll(ns []*node) []Node {
	if len(ns) == 0 {
		return nil
	}
	out := make([]Node, len(ns))
	for i, n := range ns {
		out[i] = Node{n: n, t: t}
	}
	return out
}

// Valid reports whether the handle refers to a node.
func (n Node) Valid() bool { return n.n != nil }

// Kind returns the node kind, KindInvalid for an absent node.
func (n Node) Kind() Kind {
	if n.n == nil {
		return KindInvalid
	}
	return n.n.kind
}

// Tree returns the tree owning the node.
func (n Node) Tree() *Tree { return n.t }

// Start returns the byte offset of the first character of the node.
func (n Node) Start() int { return n.n.start }

// End returns the byte offset just past the node.
func (n Node) End() int { return n.n.end }

// Span returns the node's source range.
func (n Node) Span() token.Span {
	return n.t.lines.Span(n.n.start, n.n.end)
}

// Location returns the node's source range anchored to its file.
func (n Node) Location() token.Location {
	return token.Location{File: n.t.File, Span: n.Span()}
}

// Source returns the exact source text of the node.
func (n Node) Source() string {
	return n.t.Src[n.n.start:n.n.end]
}

// Parent returns the enclosing node.
func (n Node) Parent() Node { return n.t.wrap(n.n.parent) }

// Children returns the direct sub-nodes in source order.
func (n Node) Children() []Node { return n.t.wrapAll(n.n.children) }

// NextSibling returns the node following n in its parent, if any.
func (n Node) NextSibling() Node {
	p := n.n.parent
	if p == nil {
		return Node{}
	}
	for i, c := range p.children {
		if c == n.n && i+1 < len(p.children) {
			return n.t.wrap(p.children[i+1])
		}
	}
	return Node{}
}

// Ancestor returns the nearest enclosing node of one of the given kinds.
func (n Node) Ancestor(kinds ...Kind) Node {
	for p := n.n.parent; p != nil; p = p.parent {
		for _, k := range kinds {
			if p.kind == k {
				return n.t.wrap(p)
			}
		}
	}
	return Node{}
}

// Statements flattens a statement sequence. A body or program yields its
// statements; any other node yields itself.
func (n Node) Statements() []Node {
	switch n.Kind() {
	case KindInvalid:
		return nil
	case KindBody, KindProgram:
		return n.Children()
	}
	return []Node{n}
}

// Value returns the literal value or name carried by the node: the decoded
// content of strings, symbol and variable names, numeric text, constant
// names, method names for sends and defs, and assignment targets.
func (n Node) Value() string {
	if n.n == nil {
		return ""
	}
	return n.n.value
}

// Method returns the selector of a send.
func (n Node) Method() string { return n.Value() }

// Receiver returns the receiver of a send.
func (n Node) Receiver() Node { return n.t.wrap(n.n.recv) }

// Args returns send arguments; trailing keyword arguments form one Hash.
func (n Node) Args() []Node { return n.t.wrapAll(n.n.args) }

// Elements returns array elements or hash pairs.
func (n Node) Elements() []Node { return n.t.wrapAll(n.n.args) }

// SelectorEnd returns the offset just past a send's method name.
func (n Node) SelectorEnd() int { return n.n.selEnd }

// SelectorStart returns the offset of a send's method name.
func (n Node) SelectorStart() int { return n.n.selStart }

// Parens returns the offsets of a send's argument parentheses, or -1, -1.
func (n Node) Parens() (lparen, rparen int) { return n.n.lparen, n.n.rparen }

// Braced reports whether a hash was written with braces.
func (n Node) Braced() bool { return n.n.braces }

// Call returns the method call a block is attached to.
func (n Node) Call() Node { return n.t.wrap(n.n.call) }

// Params returns the names of a block's parameters.
func (n Node) Params() []string { return n.n.params }

// OpenEnd returns the offset just past a block's `do` or `{`.
func (n Node) OpenEnd() int { return n.n.openEnd }

// ParamsEnd returns the offset just past a block's parameter list, or
// OpenEnd when it has none.
func (n Node) ParamsEnd() int { return n.n.paramsEnd }

// CloseStart returns the offset of the closing `end` or `}`.
func (n Node) CloseStart() int { return n.n.closeStart }

// Body returns the statement sequence of a class, module, def or block.
func (n Node) Body() Node { return n.t.wrap(n.n.body) }

// Name returns the constant naming a class or module.
func (n Node) Name() Node { return n.t.wrap(n.n.name) }

// Superclass returns the superclass expression of a class.
func (n Node) Superclass() Node { return n.t.wrap(n.n.super) }

// Scope returns the left side of Scope::Name.
func (n Node) Scope() Node { return n.t.wrap(n.n.scope) }

// CBase reports whether a constant is rooted with a leading ::.
func (n Node) CBase() bool { return n.n.cbase }

// Key returns the key of a pair.
func (n Node) Key() Node { return n.t.wrap(n.n.key) }

// Val returns the value of a pair.
func (n Node) Val() Node { return n.t.wrap(n.n.val) }

// ConstPath renders a constant as A::B, with a leading :: when rooted. It
// returns "" when any segment is not a constant.
func (n Node) ConstPath() string {
	if n.Kind() != KindConst {
		return ""
	}
	var parts []string
	cur := n.n
	for cur != nil && cur.kind == KindConst {
		parts = append(parts, cur.value)
		if cur.cbase {
			parts = append(parts, "")
		}
		cur = cur.scope
	}
	if cur != nil {
		return ""
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "::")
}

// String returns a compact s-expression, mostly useful in tests.
func (n Node) String() string {
	if n.n == nil {
		return "<nil>"
	}
	var b strings.Builder
	n.writeSexp(&b)
	return b.String()
}

func (n Node) writeSexp(b *strings.Builder) {
	b.WriteByte('(')
	b.WriteString(n.n.kind.String())
	if n.n.value != "" {
		fmt.Fprintf(b, " %q", n.n.value)
	}
	for _, c := range n.Children() {
		b.WriteByte(' ')
		c.writeSexp(b)
	}
	b.WriteByte(')')
}
