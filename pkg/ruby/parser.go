// Package ruby provides a tolerant parser for the subset of Ruby found in
// ActiveRecord model files and db/schema.rb.
//
// # Usage
//
//	tree, err := ruby.Parse("app/models/user.rb", src)
//	if err != nil {
//	    // tree is still usable; err describes the first problem
//	}
//	for _, stmt := range tree.Root().Statements() {
//	    fmt.Println(stmt.Kind(), stmt.Source())
//	}
//
// # Grammar Overview
//
// The parser is recursive descent over a pre-lexed token slice:
//
//	program   → stmts EOF
//	stmts     → { stmt (NEWLINE | ;) }
//	stmt      → expr { (if | unless | while | until | rescue) expr }
//	expr      → [not] operand { binop operand } [= expr]
//	operand   → primary { .name [args] [block] | ::Name | [index] }
//	args      → "(" arglist ")" | arglist        (command call)
//	block     → do [|params|] body end | { [|params|] stmts }
//
// Classes, modules, defs, literals, constants, local variables and method
// calls get their own node kinds. Everything else (operators, control flow,
// lambdas) is kept as an Opaque node with an exact span, so `end` nesting
// stays balanced and every node's source text round-trips.
package ruby

import (
	"fmt"

	"github.com/leapstack-labs/schemais/pkg/token"
)

// Parser parses Ruby source into a Tree.
type Parser struct {
	src      string
	toks     []token.Token
	i        int
	lastEnd  int // end offset of the last consumed token
	errors   []error
	scopes   []scope
	noDo     int // > 0 while `do` belongs to an enclosing command call
	inParams int // > 0 inside a parameter list, where | closes rather than ors
}

type scope struct {
	vars map[string]bool
	hard bool // def, class and module bodies do not see outer locals
}

// NewParser creates a parser for the given source.
func NewParser(src string) *Parser {
	lx := NewLexer(src)
	p := &Parser{
		src:  src,
		toks: lx.Tokens(),
	}
	p.errors = append(p.errors, lx.Errors()...)
	p.pushScope(true)
	return p
}

// Parse parses src and returns the tree. The tree is returned even when an
// error is reported; the error is the first one encountered.
func Parse(file, src string) (*Tree, error) {
	p := NewParser(src)
	root := p.parseProgram()
	tree := &Tree{
		File:  file,
		Src:   src,
		root:  root,
		lines: token.NewLineIndex(src),
	}
	if len(p.errors) > 0 {
		return tree, p.errors[0]
	}
	return tree, nil
}

// Errors returns every lexical and syntax error found.
func (p *Parser) Errors() []error {
	return p.errors
}

// ---------- Token Helpers ----------

func (p *Parser) cur() token.Token {
	return p.toks[p.i]
}

func (p *Parser) peekN(n int) token.Token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	if p.toks[p.i].Type == token.EOF {
		return
	}
	p.lastEnd = p.toks[p.i].End.Offset
	p.i++
}

// check returns true if the current token is of the given type.
func (p *Parser) check(t token.TokenType) bool {
	return p.toks[p.i].Type == t
}

// checkOp returns true if the current token is the operator lit.
func (p *Parser) checkOp(lit string) bool {
	tok := p.toks[p.i]
	return tok.Type == token.OP && tok.Literal == lit
}

// match consumes the current token if it matches and returns true.
func (p *Parser) match(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

// expect consumes the current token if it matches, otherwise adds an error.
func (p *Parser) expect(t token.TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, p.cur().Type, t))
	return false
}

// addError adds a parse error.
func (p *Parser) addError(msg string) {
	p.errors = append(p.errors, &ParseError{
		Pos:     p.cur().Pos,
		Message: msg,
	})
}

func (p *Parser) skipNewlines() {
	for p.check(token.NEWLINE) {
		p.nextToken()
	}
}

func (p *Parser) skipTerms() {
	for p.check(token.NEWLINE) || p.check(token.SEMI) {
		p.nextToken()
	}
}

// ---------- Node Helpers ----------

// newNode creates a node spanning from start to the end of the last consumed token.
func (p *Parser) newNode(kind Kind, start int, kids ...*node) *node {
	end := p.lastEnd
	if end < start {
		end = start
	}
	n := &node{kind: kind, start: start, end: end, lparen: -1, rparen: -1}
	n.adopt(kids...)
	return n
}

func (p *Parser) opaque(start int, kids ...*node) *node {
	return p.newNode(KindOpaque, start, kids...)
}

// ---------- Scope Helpers ----------

func (p *Parser) pushScope(hard bool) {
	p.scopes = append(p.scopes, scope{vars: map[string]bool{}, hard: hard})
}

func (p *Parser) popScope() {
	p.scopes = p.scopes[:len(p.scopes)-1]
}

func (p *Parser) declare(name string) {
	p.scopes[len(p.scopes)-1].vars[name] = true
}

func (p *Parser) isLocal(name string) bool {
	for i := len(p.scopes) - 1; i >= 0; i-- {
		if p.scopes[i].vars[name] {
			return true
		}
		if p.scopes[i].hard {
			return false
		}
	}
	return false
}

// ---------- Program ----------

func (p *Parser) parseProgram() *node {
	root := &node{kind: KindProgram, lparen: -1, rparen: -1, end: len(p.src)}
	for {
		root.adopt(p.parseStatements()...)
		if p.check(token.EOF) {
			break
		}
		// stray terminator at top level
		p.addError(ErrUnbalancedEnd)
		p.nextToken()
	}
	return root
}
