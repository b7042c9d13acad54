package ruby

import (
	"fmt"

	"github.com/leapstack-labs/schemais/pkg/token"
)

// Statement grammar:
//
//	stmts       → { stmt (NEWLINE | ;) }
//	stmt        → mlhs = expr {, expr} | expr { modifier expr }
//	modifier    → if | unless | while | until | rescue
//	body        → stmts { rescue [classes] [=> name] stmts } [else stmts] [ensure stmts]
//	class       → class const_path [< expr] body end | class << expr body end
//	module      → module const_path body end
//	def         → def [singleton .] name [params] (body end | = stmt)

// atTerminator reports whether the current token closes a statement sequence.
func (p *Parser) atTerminator() bool {
	switch p.cur().Type {
	case token.EOF, token.END, token.RBRACE, token.RPAREN, token.RBRACKET,
		token.ELSE, token.ELSIF, token.WHEN, token.IN, token.RESCUE, token.ENSURE, token.THEN:
		return true
	}
	return false
}

// parseStatements parses statements until a terminator. The terminator is
// not consumed.
func (p *Parser) parseStatements() []*node {
	var stmts []*node
	for {
		p.skipTerms()
		if p.atTerminator() {
			return stmts
		}
		before := p.i
		if s := p.parseStatement(); s != nil {
			stmts = append(stmts, s)
		}
		if p.i == before {
			p.nextToken()
		}
	}
}

func (p *Parser) parseStatement() *node {
	start := p.cur().Pos.Offset
	if p.multiAssignAhead() {
		return p.parseMultiAssign()
	}
	n := p.parseExprStmt()
	if n == nil {
		return nil
	}
	for {
		switch p.cur().Type {
		case token.IF, token.UNLESS, token.WHILE, token.UNTIL, token.RESCUE:
			p.nextToken()
			cond := p.parseExprStmt()
			n = p.opaque(start, n, cond)
		default:
			return n
		}
	}
}

// parseExprStmt parses `not` and the low-precedence `and` / `or`.
func (p *Parser) parseExprStmt() *node {
	start := p.cur().Pos.Offset
	n := p.parseNotExpr()
	for n != nil && (p.check(token.AND) || p.check(token.OR)) {
		p.nextToken()
		p.skipNewlines()
		rhs := p.parseNotExpr()
		n = p.opaque(start, n, rhs)
	}
	return n
}

func (p *Parser) parseNotExpr() *node {
	if p.check(token.NOT) {
		start := p.cur().Pos.Offset
		p.nextToken()
		return p.opaque(start, p.parseNotExpr())
	}
	return p.parseExpr()
}

// multiAssignAhead reports whether the current line starts with `a, b = `.
func (p *Parser) multiAssignAhead() bool {
	comma := false
	prev := token.NEWLINE
	for i := p.i; i < len(p.toks); i++ {
		tok := p.toks[i]
		switch tok.Type {
		case token.IDENT, token.IVAR, token.GVAR:
			if prev == token.IDENT || prev == token.IVAR || prev == token.GVAR {
				return false
			}
		case token.LPAREN, token.RPAREN:
		case token.COMMA:
			comma = true
		case token.OP:
			if tok.Literal != "*" {
				return false
			}
		case token.ASSIGN:
			return comma
		default:
			return false
		}
		prev = tok.Type
	}
	return false
}

func (p *Parser) parseMultiAssign() *node {
	start := p.cur().Pos.Offset
	for !p.check(token.ASSIGN) && !p.check(token.EOF) {
		if p.check(token.IDENT) {
			p.declare(p.cur().Value)
		}
		p.nextToken()
	}
	p.expect(token.ASSIGN)
	p.skipNewlines()
	kids := []*node{p.parseExpr()}
	for p.match(token.COMMA) {
		p.skipNewlines()
		kids = append(kids, p.parseExpr())
	}
	return p.opaque(start, kids...)
}

// parseBody parses a statement sequence with optional rescue, else and
// ensure clauses. The body spans from `from` to the start of the closing
// token, which is left unconsumed.
func (p *Parser) parseBody(from int) *node {
	body := &node{kind: KindBody, start: from, lparen: -1, rparen: -1}
	body.adopt(p.parseStatements()...)
	for {
		start := p.cur().Pos.Offset
		switch p.cur().Type {
		case token.RESCUE:
			p.nextToken()
			var kids []*node
			for !p.check(token.NEWLINE) && !p.check(token.SEMI) && !p.check(token.THEN) && !p.check(token.EOF) {
				if p.match(token.ARROW) {
					if p.check(token.IDENT) {
						p.declare(p.cur().Value)
						p.nextToken()
					}
					continue
				}
				if p.match(token.COMMA) {
					p.skipNewlines()
					continue
				}
				before := p.i
				if e := p.parseExpr(); e != nil {
					kids = append(kids, e)
				}
				if p.i == before {
					break
				}
			}
			p.match(token.THEN)
			kids = append(kids, p.parseStatements()...)
			body.adopt(p.opaque(start, kids...))
		case token.ELSE, token.ENSURE:
			p.nextToken()
			body.adopt(p.opaque(start, p.parseStatements()...))
		default:
			body.end = p.cur().Pos.Offset
			if body.end < body.start {
				body.end = body.start
			}
			return body
		}
	}
}

// closeEnd consumes the `end` of a construct and returns its offset.
func (p *Parser) closeEnd(what string) int {
	at := p.cur().Pos.Offset
	if !p.match(token.END) {
		p.addError(fmt.Sprintf(ErrMissingEnd, what))
	}
	return at
}

// parseConstPath parses Name, A::B or ::A::B.
func (p *Parser) parseConstPath() *node {
	start := p.cur().Pos.Offset
	var n *node
	if p.match(token.COLON2) {
		if !p.check(token.CONST) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, p.cur().Type, token.CONST))
			return nil
		}
		name := p.cur().Value
		p.nextToken()
		n = p.newNode(KindConst, start)
		n.value = name
		n.cbase = true
	} else {
		if !p.check(token.CONST) {
			p.addError(fmt.Sprintf(ErrUnexpectedToken, p.cur().Type, token.CONST))
			return nil
		}
		name := p.cur().Value
		p.nextToken()
		n = p.newNode(KindConst, start)
		n.value = name
	}
	for p.check(token.COLON2) && p.peekN(1).Type == token.CONST {
		p.nextToken()
		name := p.cur().Value
		p.nextToken()
		c := p.newNode(KindConst, start, n)
		c.scope = n
		c.value = name
		n = c
	}
	return n
}

func (p *Parser) parseClass() *node {
	start := p.cur().Pos.Offset
	p.nextToken() // class

	if p.checkOp("<<") {
		p.nextToken()
		target := p.parseExpr()
		p.pushScope(true)
		body := p.parseBody(p.lastEnd)
		p.popScope()
		closeStart := p.closeEnd("class")
		n := p.newNode(KindSClass, start, target, body)
		n.body = body
		n.closeStart = closeStart
		return n
	}

	name := p.parseConstPath()
	var super *node
	if p.checkOp("<") {
		p.nextToken()
		super = p.parseExpr()
	}
	p.pushScope(true)
	body := p.parseBody(p.lastEnd)
	p.popScope()
	closeStart := p.closeEnd("class")

	n := p.newNode(KindClass, start, name, super, body)
	n.name = name
	n.super = super
	n.body = body
	n.closeStart = closeStart
	if name != nil {
		n.value = name.value
	}
	return n
}

func (p *Parser) parseModule() *node {
	start := p.cur().Pos.Offset
	p.nextToken() // module
	name := p.parseConstPath()
	p.pushScope(true)
	body := p.parseBody(p.lastEnd)
	p.popScope()
	closeStart := p.closeEnd("module")

	n := p.newNode(KindModule, start, name, body)
	n.name = name
	n.body = body
	n.closeStart = closeStart
	if name != nil {
		n.value = name.value
	}
	return n
}

func (p *Parser) parseDef() *node {
	start := p.cur().Pos.Offset
	p.nextToken() // def

	// singleton receiver: def self.x, def Foo.x
	if t := p.cur().Type; (t == token.SELF || t == token.CONST || t == token.IDENT) && p.peekN(1).Type == token.DOT {
		p.nextToken()
		p.nextToken()
	}

	name := p.cur().Literal
	switch {
	case p.check(token.LBRACKET):
		p.nextToken()
		p.expect(token.RBRACKET)
		name = "[]"
	case p.check(token.NEWLINE) || p.check(token.EOF):
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.cur().Type, "method name"))
	default:
		p.nextToken()
	}
	// setter: def name=(v)
	if p.check(token.ASSIGN) && !p.cur().SpaceBefore && p.peekN(1).Type == token.LPAREN {
		name += "="
		p.nextToken()
	}

	p.pushScope(true)
	defer p.popScope()

	switch {
	case p.check(token.LPAREN):
		p.nextToken()
		p.parseParamNames(func() bool { return p.check(token.RPAREN) })
		p.expect(token.RPAREN)
	case !p.check(token.NEWLINE) && !p.check(token.SEMI) && !p.check(token.ASSIGN):
		p.parseParamNames(func() bool { return p.check(token.NEWLINE) || p.check(token.SEMI) })
	}

	// endless def
	if p.match(token.ASSIGN) {
		p.skipNewlines()
		body := p.parseStatement()
		n := p.newNode(KindDef, start, body)
		n.value = name
		return n
	}

	body := p.parseBody(p.lastEnd)
	closeStart := p.closeEnd("def")
	n := p.newNode(KindDef, start, body)
	n.value = name
	n.body = body
	n.closeStart = closeStart
	return n
}

// parseParamNames consumes a parameter list up to (not including) the token
// for which done reports true and declares every name it finds.
func (p *Parser) parseParamNames(done func() bool) []string {
	var names []string
	p.inParams++
	defer func() { p.inParams-- }()
	for !done() && !p.check(token.EOF) {
		tok := p.cur()
		switch tok.Type {
		case token.IDENT:
			names = append(names, tok.Value)
			p.declare(tok.Value)
			p.nextToken()
		case token.LABEL:
			names = append(names, tok.Value)
			p.declare(tok.Value)
			p.nextToken()
			if !p.check(token.COMMA) && !p.check(token.NEWLINE) && !done() {
				p.parseExpr()
			}
		case token.ASSIGN:
			p.nextToken()
			p.parseExpr()
		case token.LPAREN:
			p.nextToken()
			names = append(names, p.parseParamNames(func() bool { return p.check(token.RPAREN) })...)
			p.expect(token.RPAREN)
		default:
			// commas, splats, block-local separators
			p.nextToken()
		}
	}
	return names
}

// parseConditional parses if, unless, while and until with their bodies.
func (p *Parser) parseConditional() *node {
	start := p.cur().Pos.Offset
	kw := p.cur().Type
	p.nextToken()

	loop := kw == token.WHILE || kw == token.UNTIL
	if loop {
		p.noDo++
	}
	kids := []*node{p.parseExprStmt()}
	if loop {
		p.noDo--
	}
	if !p.match(token.THEN) {
		p.match(token.DO)
	}
	kids = append(kids, p.parseStatements()...)

	for p.check(token.ELSIF) {
		p.nextToken()
		kids = append(kids, p.parseExprStmt())
		p.match(token.THEN)
		kids = append(kids, p.parseStatements()...)
	}
	if p.match(token.ELSE) {
		kids = append(kids, p.parseStatements()...)
	}
	p.closeEnd(kw.String())
	return p.opaque(start, kids...)
}

func (p *Parser) parseCase() *node {
	start := p.cur().Pos.Offset
	p.nextToken() // case

	var kids []*node
	if !p.check(token.NEWLINE) && !p.check(token.SEMI) {
		kids = append(kids, p.parseExprStmt())
	}
	p.skipTerms()
	for p.check(token.WHEN) || p.check(token.IN) {
		pattern := p.check(token.IN)
		p.nextToken()
		if pattern {
			kids = append(kids, p.parseStatement())
		} else {
			kids = append(kids, p.parseExpr())
			for p.match(token.COMMA) {
				p.skipNewlines()
				kids = append(kids, p.parseExpr())
			}
		}
		p.match(token.THEN)
		kids = append(kids, p.parseStatements()...)
	}
	if p.match(token.ELSE) {
		kids = append(kids, p.parseStatements()...)
	}
	p.closeEnd("case")
	return p.opaque(start, kids...)
}

func (p *Parser) parseBegin() *node {
	start := p.cur().Pos.Offset
	p.nextToken() // begin
	body := p.parseBody(p.lastEnd)
	p.closeEnd("begin")
	return p.opaque(start, body)
}

func (p *Parser) parseFor() *node {
	start := p.cur().Pos.Offset
	p.nextToken() // for
	for !p.check(token.IN) && !p.check(token.NEWLINE) && !p.check(token.EOF) {
		if p.check(token.IDENT) {
			p.declare(p.cur().Value)
		}
		p.nextToken()
	}
	p.expect(token.IN)
	p.noDo++
	iter := p.parseExprStmt()
	p.noDo--
	p.match(token.DO)
	kids := append([]*node{iter}, p.parseStatements()...)
	p.closeEnd("for")
	return p.opaque(start, kids...)
}

// parseKeywordCall parses return, break, next, redo, retry, yield and super
// with their optional arguments.
func (p *Parser) parseKeywordCall() *node {
	start := p.cur().Pos.Offset
	kw := p.cur().Type
	p.nextToken()

	var args []*node
	switch {
	case p.check(token.LPAREN) && !p.cur().SpaceBefore:
		p.nextToken()
		args = p.parseArgList(token.RPAREN)
		p.expect(token.RPAREN)
	case p.canStartCommandArg():
		p.noDo++
		args = p.parseArgList(token.EOF)
		p.noDo--
	}
	n := p.opaque(start, args...)
	if kw == token.SUPER || kw == token.YIELD {
		if p.check(token.LBRACE) {
			return p.parseBlock(start, n, token.RBRACE)
		}
		if p.check(token.DO) && p.noDo == 0 {
			return p.parseBlock(start, n, token.END)
		}
	}
	return n
}

func (p *Parser) parseAlias() *node {
	start := p.cur().Pos.Offset
	kw := p.cur().Type
	p.nextToken()
	if kw == token.ALIAS {
		p.nextToken()
		p.nextToken()
		return p.opaque(start)
	}
	// undef a, b
	p.nextToken()
	for p.match(token.COMMA) {
		p.nextToken()
	}
	return p.opaque(start)
}
