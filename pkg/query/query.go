// Package query provides structural pattern matching over pkg/ruby trees.
//
// Patterns are ordinary Go values built once, typically as package-level
// variables, and matched many times:
//
//	var tableNameAssign = query.Send(query.Self(), query.Is("table_name="),
//	    query.Str(query.CaptureWord("name", query.AnyWord())))
//
//	for _, r := range query.Search(tableNameAssign, class, query.Options{SkipNestedScopes: true}) {
//	    fmt.Println(r.Bindings.Word("name"))
//	}
//
// Argument and statement lists match positionally. Rest matches any number of
// remaining items and Opt matches zero or one.
package query

import (
	"strings"

	"github.com/leapstack-labs/schemais/pkg/ruby"
)

// Pattern matches a single node.
type Pattern interface {
	match(n ruby.Node, b *Bindings) bool
}

// Word matches a name or literal value: method names, string contents, symbols.
type Word interface {
	matchWord(s string, b *Bindings) bool
}

// Bindings holds the captures of a successful match.
type Bindings struct {
	nodes map[string][]ruby.Node
	words map[string]string
}

// Node returns the first node captured under name.
func (b Bindings) Node(name string) ruby.Node {
	if ns := b.nodes[name]; len(ns) > 0 {
		return ns[0]
	}
	return ruby.Node{}
}

// Nodes returns every node captured under name.
func (b Bindings) Nodes(name string) []ruby.Node {
	return b.nodes[name]
}

// Word returns the word captured under name.
func (b Bindings) Word(name string) string {
	return b.words[name]
}

// Has reports whether anything was captured under name.
func (b Bindings) Has(name string) bool {
	_, okN := b.nodes[name]
	_, okW := b.words[name]
	return okN || okW
}

func (b *Bindings) clone() *Bindings {
	c := &Bindings{}
	if len(b.nodes) > 0 {
		c.nodes = make(map[string][]ruby.Node, len(b.nodes))
		for k, v := range b.nodes {
			c.nodes[k] = v
		}
	}
	if len(b.words) > 0 {
		c.words = make(map[string]string, len(b.words))
		for k, v := range b.words {
			c.words[k] = v
		}
	}
	return c
}

func (b *Bindings) addNodes(name string, ns ...ruby.Node) {
	if b.nodes == nil {
		b.nodes = map[string][]ruby.Node{}
	}
	b.nodes[name] = append(append([]ruby.Node(nil), b.nodes[name]...), ns...)
}

func (b *Bindings) setWord(name, w string) {
	if b.words == nil {
		b.words = map[string]string{}
	}
	b.words[name] = w
}

// Match matches pattern against node.
func Match(p Pattern, n ruby.Node) (Bindings, bool) {
	b := &Bindings{}
	if !p.match(n, b) {
		return Bindings{}, false
	}
	return *b, true
}

// Result is one match found by Search.
type Result struct {
	Node     ruby.Node
	Bindings Bindings
}

// Options controls Search.
type Options struct {
	// SkipNestedScopes stops the walk at class and module declarations
	// below the root. The declarations themselves are still matched.
	SkipNestedScopes bool
}

// Search returns every match of p in the tree rooted at root, in pre-order.
func Search(p Pattern, root ruby.Node, opts Options) []Result {
	var out []Result
	var walk func(n ruby.Node, top bool)
	walk = func(n ruby.Node, top bool) {
		if b, ok := Match(p, n); ok {
			out = append(out, Result{Node: n, Bindings: b})
		}
		if !top && opts.SkipNestedScopes && (n.Kind() == ruby.KindClass || n.Kind() == ruby.KindModule) {
			return
		}
		for _, c := range n.Children() {
			walk(c, false)
		}
	}
	if root.Valid() {
		walk(root, true)
	}
	return out
}

// Last returns the last result, or false when there are none.
func Last(results []Result) (Result, bool) {
	if len(results) == 0 {
		return Result{}, false
	}
	return results[len(results)-1], true
}

// matchSeq matches a pattern list against a node list, expanding Rest and Opt.
func matchSeq(ps []Pattern, ns []ruby.Node, b *Bindings) bool {
	if len(ps) == 0 {
		return len(ns) == 0
	}
	switch p := ps[0].(type) {
	case restPattern:
		for k := len(ns); k >= 0; k-- {
			trial := b.clone()
			if p.capture != "" {
				trial.addNodes(p.capture, ns[:k]...)
			}
			if matchSeq(ps[1:], ns[k:], trial) {
				*b = *trial
				return true
			}
		}
		return false
	case optPattern:
		if len(ns) > 0 {
			trial := b.clone()
			if p.inner.match(ns[0], trial) && matchSeq(ps[1:], ns[1:], trial) {
				*b = *trial
				return true
			}
		}
		return matchSeq(ps[1:], ns, b)
	}
	if len(ns) == 0 {
		return false
	}
	trial := b.clone()
	if ps[0].match(ns[0], trial) && matchSeq(ps[1:], ns[1:], trial) {
		*b = *trial
		return true
	}
	return false
}

// ---------- Node patterns ----------

type anyPattern struct{}

func (anyPattern) match(n ruby.Node, _ *Bindings) bool { return n.Valid() }

// Any matches any present node.
func Any() Pattern { return anyPattern{} }

type nilPattern struct{}

func (nilPattern) match(n ruby.Node, _ *Bindings) bool { return !n.Valid() }

// Nil matches an absent node, such as the receiver of a bare method call.
func Nil() Pattern { return nilPattern{} }

type kindPattern struct{ kind ruby.Kind }

func (p kindPattern) match(n ruby.Node, _ *Bindings) bool { return n.Kind() == p.kind }

// Kind matches any node of the given kind.
func Kind(k ruby.Kind) Pattern { return kindPattern{kind: k} }

// Self matches `self`.
func Self() Pattern { return kindPattern{kind: ruby.KindSelf} }

type valuePattern struct {
	kind ruby.Kind
	word Word
}

func (p valuePattern) match(n ruby.Node, b *Bindings) bool {
	return n.Kind() == p.kind && (p.word == nil || p.word.matchWord(n.Value(), b))
}

func firstWord(ws []Word) Word {
	if len(ws) == 0 {
		return nil
	}
	return ws[0]
}

// Str matches a non-interpolated string literal whose content matches w, or
// any string literal when w is omitted.
func Str(w ...Word) Pattern { return valuePattern{kind: ruby.KindStr, word: firstWord(w)} }

// Sym matches a symbol literal.
func Sym(w ...Word) Pattern { return valuePattern{kind: ruby.KindSym, word: firstWord(w)} }

// LVar matches a local variable read.
func LVar(w ...Word) Pattern { return valuePattern{kind: ruby.KindLVar, word: firstWord(w)} }

type constPattern struct{ path string }

func (p constPattern) match(n ruby.Node, _ *Bindings) bool {
	path := n.ConstPath()
	return path != "" && strings.TrimPrefix(path, "::") == p.path
}

// Const matches a constant by qualified path. A rooted constant (::A::B)
// matches the same path written without the leading ::.
func Const(path string) Pattern { return constPattern{path: strings.TrimPrefix(path, "::")} }

type sendPattern struct {
	recv   Pattern
	method Word
	args   []Pattern
}

func (p sendPattern) match(n ruby.Node, b *Bindings) bool {
	if n.Kind() != ruby.KindSend {
		return false
	}
	return p.recv.match(n.Receiver(), b) &&
		p.method.matchWord(n.Method(), b) &&
		matchSeq(p.args, n.Args(), b)
}

// Send matches a method call by receiver, selector and arguments.
func Send(recv Pattern, method Word, args ...Pattern) Pattern {
	return sendPattern{recv: recv, method: method, args: args}
}

type blockPattern struct {
	call Pattern
	body []Pattern
}

func (p blockPattern) match(n ruby.Node, b *Bindings) bool {
	if n.Kind() != ruby.KindBlock || !p.call.match(n.Call(), b) {
		return false
	}
	if p.body == nil {
		return true
	}
	return matchSeq(p.body, n.Body().Statements(), b)
}

// Block matches a block attached to a call matching call. Body patterns,
// when given, match the block's statements.
func Block(call Pattern, body ...Pattern) Pattern {
	return blockPattern{call: call, body: body}
}

type classPattern struct {
	name  Pattern
	super Pattern
}

func (p classPattern) match(n ruby.Node, b *Bindings) bool {
	return n.Kind() == ruby.KindClass && p.name.match(n.Name(), b) && p.super.match(n.Superclass(), b)
}

// Class matches a class declaration by name and superclass.
func Class(name, super Pattern) Pattern {
	return classPattern{name: name, super: super}
}

type capturePattern struct {
	name  string
	inner Pattern
}

func (p capturePattern) match(n ruby.Node, b *Bindings) bool {
	if !p.inner.match(n, b) {
		return false
	}
	b.addNodes(p.name, n)
	return true
}

// Capture records the node matched by p under name.
func Capture(name string, p Pattern) Pattern { return capturePattern{name: name, inner: p} }

type oneOfPattern struct{ alts []Pattern }

func (p oneOfPattern) match(n ruby.Node, b *Bindings) bool {
	for _, alt := range p.alts {
		trial := b.clone()
		if alt.match(n, trial) {
			*b = *trial
			return true
		}
	}
	return false
}

// OneOf matches when any alternative matches; the first one wins.
func OneOf(alts ...Pattern) Pattern { return oneOfPattern{alts: alts} }

type restPattern struct{ capture string }

func (restPattern) match(ruby.Node, *Bindings) bool { return true }

// Rest matches the remaining items of an argument or statement list.
func Rest() Pattern { return restPattern{} }

// CaptureRest matches like Rest and records the items under name.
func CaptureRest(name string) Pattern { return restPattern{capture: name} }

type optPattern struct{ inner Pattern }

func (p optPattern) match(n ruby.Node, b *Bindings) bool {
	return !n.Valid() || p.inner.match(n, b)
}

// Opt matches zero or one item of a list.
func Opt(p Pattern) Pattern { return optPattern{inner: p} }

// ---------- Word patterns ----------

type isWord struct{ set map[string]bool }

func (w isWord) matchWord(s string, _ *Bindings) bool { return w.set[s] }

// Is matches exactly s.
func Is(s string) Word { return isWord{set: map[string]bool{s: true}} }

// In matches any of the given words.
func In(words ...string) Word {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return isWord{set: set}
}

type anyWord struct{}

func (anyWord) matchWord(string, *Bindings) bool { return true }

// AnyWord matches any word.
func AnyWord() Word { return anyWord{} }

type captureWord struct {
	name  string
	inner Word
}

func (w captureWord) matchWord(s string, b *Bindings) bool {
	if !w.inner.matchWord(s, b) {
		return false
	}
	b.setWord(w.name, s)
	return true
}

// CaptureWord records the word matched by w under name.
func CaptureWord(name string, w Word) Word { return captureWord{name: name, inner: w} }
