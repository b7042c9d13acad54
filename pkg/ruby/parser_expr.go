package ruby

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/schemais/pkg/token"
)

// Expression grammar:
//
//	expr     → unary { binop unary } | target (= | op=) expr
//	unary    → (! | ~ | - | + | * | ** | &) unary | operand
//	operand  → primary { postfix }
//	postfix  → (. | &.) name [args] | :: Name | [args] | block
//	args     → "(" arglist ")" | arglist
//	arglist  → arg { , arg } [, label: expr | expr => expr ...]

var opAssigns = map[string]bool{
	"+=": true, "-=": true, "*=": true, "/=": true, "%=": true, "**=": true,
	"||=": true, "&&=": true, "|=": true, "&=": true, "^=": true, "<<=": true, ">>=": true,
}

// parseExpr parses an operator expression, including assignment.
func (p *Parser) parseExpr() *node {
	start := p.cur().Pos.Offset
	left := p.parseUnary()
	if left == nil {
		return nil
	}
	if p.check(token.ASSIGN) || (p.check(token.OP) && opAssigns[p.cur().Literal]) {
		return p.parseAssignment(start, left)
	}
	for p.isBinaryOp() {
		op := p.cur().Literal
		p.nextToken()
		p.skipNewlines()
		if (op == ".." || op == "...") && !p.canStartExpr() {
			left = p.opaque(start, left)
			continue
		}
		right := p.parseUnary()
		if right != nil && (p.check(token.ASSIGN) || (p.check(token.OP) && opAssigns[p.cur().Literal])) {
			right = p.parseAssignment(right.start, right)
		}
		left = p.opaque(start, left, right)
	}
	return left
}

func (p *Parser) isBinaryOp() bool {
	tok := p.cur()
	switch tok.Type {
	case token.PIPE:
		return p.inParams == 0
	case token.OP:
		if tok.Literal == "!" || tok.Literal == "~" {
			return false
		}
		return !opAssigns[tok.Literal]
	}
	return false
}

// canStartExpr reports whether the current token can begin an expression.
func (p *Parser) canStartExpr() bool {
	switch p.cur().Type {
	case token.EOF, token.NEWLINE, token.SEMI, token.RPAREN, token.RBRACKET, token.RBRACE,
		token.COMMA, token.END, token.THEN, token.DO, token.ARROW, token.PIPE:
		return false
	}
	return true
}

func (p *Parser) parseAssignment(start int, target *node) *node {
	plain := p.check(token.ASSIGN)
	p.nextToken()
	p.skipNewlines()
	rhs := p.parseExpr()

	switch {
	case target.kind == KindLVar || (target.kind == KindSend && target.recv == nil && len(target.args) == 0 && target.lparen < 0):
		p.declare(target.value)
		if !plain {
			return p.opaque(start, target, rhs)
		}
		n := p.newNode(KindAssign, start, rhs)
		n.value = target.value
		return n
	case plain && (target.kind == KindIVar || target.kind == KindGVar || target.kind == KindConst):
		n := p.newNode(KindAssign, start, rhs)
		n.value = p.src[target.start:target.end]
		return n
	case plain && target.kind == KindSend && target.recv != nil && target.lparen < 0 && len(target.args) == 0:
		// attribute writer: recv.name = value
		n := p.newNode(KindSend, start, target.recv, rhs)
		n.value = target.value + "="
		n.recv = target.recv
		n.args = []*node{rhs}
		n.selStart, n.selEnd = target.selStart, target.selEnd
		return n
	case plain && target.kind == KindSend && target.value == "[]":
		args := append(append([]*node{}, target.args...), rhs)
		n := p.newNode(KindSend, start, append([]*node{target.recv}, args...)...)
		n.value = "[]="
		n.recv = target.recv
		n.args = args
		n.selStart, n.selEnd = target.selStart, target.selEnd
		n.lparen, n.rparen = target.lparen, target.rparen
		return n
	}
	return p.opaque(start, target, rhs)
}

func (p *Parser) parseUnary() *node {
	tok := p.cur()
	if tok.Type != token.OP {
		return p.parseOperand()
	}
	start := tok.Pos.Offset
	switch tok.Literal {
	case "-", "+":
		next := p.peekN(1)
		if (next.Type == token.INT || next.Type == token.FLOAT) && !next.SpaceBefore {
			p.nextToken()
			lit := p.parseOperand()
			if lit != nil && (lit.kind == KindInt || lit.kind == KindFloat) {
				lit.start = start
				if tok.Literal == "-" {
					lit.value = "-" + lit.value
				}
			}
			return lit
		}
		fallthrough
	case "!", "~", "*", "**", "&", "..", "...":
		p.nextToken()
		return p.opaque(start, p.parseUnary())
	}
	p.addError(fmt.Sprintf(ErrUnexpectedToken, tok.Literal, "expression"))
	return nil
}

func (p *Parser) parseOperand() *node {
	start := p.cur().Pos.Offset
	n := p.parsePrimary()
	if n == nil {
		return nil
	}
	return p.parsePostfix(start, n)
}

// leadingDotAhead reports whether the newlines at the cursor are followed by
// a method chain continuation (`.name` on the next line).
func (p *Parser) leadingDotAhead() bool {
	for i := p.i; i < len(p.toks); i++ {
		switch p.toks[i].Type {
		case token.NEWLINE:
			continue
		case token.DOT, token.AMPDOT:
			return true
		}
		return false
	}
	return false
}

func (p *Parser) parsePostfix(start int, n *node) *node {
	for {
		tok := p.cur()
		switch {
		case tok.Type == token.NEWLINE && p.leadingDotAhead():
			p.skipNewlines()
		case tok.Type == token.DOT || tok.Type == token.AMPDOT:
			p.nextToken()
			p.skipNewlines()
			n = p.parseMethodCall(start, n)
		case tok.Type == token.COLON2:
			next := p.peekN(1)
			after := p.peekN(2)
			p.nextToken()
			if next.Type == token.CONST && (after.Type != token.LPAREN || after.SpaceBefore) {
				p.nextToken()
				c := p.newNode(KindConst, start, n)
				c.scope = n
				c.value = next.Value
				n = c
			} else {
				n = p.parseMethodCall(start, n)
			}
		case tok.Type == token.LBRACKET && !tok.SpaceBefore:
			n = p.parseIndex(start, n)
		case tok.Type == token.LBRACE && n.kind == KindSend:
			n = p.parseBlock(start, n, token.RBRACE)
		case tok.Type == token.DO && p.noDo == 0 && n.kind == KindSend:
			n = p.parseBlock(start, n, token.END)
		default:
			return n
		}
	}
}

// parseMethodCall parses the selector and arguments following `recv.`.
func (p *Parser) parseMethodCall(start int, recv *node) *node {
	tok := p.cur()
	name := tok.Value
	switch tok.Type {
	case token.IDENT, token.CONST:
	case token.LPAREN:
		// recv.(args)
		return p.parseCallArgs(start, recv, "call", tok.Pos.Offset, tok.Pos.Offset)
	default:
		name = tok.Literal
	}
	p.nextToken()
	return p.parseCallArgs(start, recv, name, tok.Pos.Offset, tok.End.Offset)
}

// parseCallArgs parses optional parenthesized or command arguments and
// builds the send node.
func (p *Parser) parseCallArgs(start int, recv *node, name string, selStart, selEnd int) *node {
	lparen, rparen := -1, -1
	var args []*node
	switch {
	case p.check(token.LPAREN) && !p.cur().SpaceBefore:
		lparen = p.cur().Pos.Offset
		p.nextToken()
		args = p.parseArgList(token.RPAREN)
		rparen = p.cur().Pos.Offset
		p.expect(token.RPAREN)
	case p.canStartCommandArg():
		p.noDo++
		args = p.parseArgList(token.EOF)
		p.noDo--
	}
	n := p.newNode(KindSend, start, recv)
	n.adopt(args...)
	n.value = name
	n.recv = recv
	n.args = args
	n.selStart, n.selEnd = selStart, selEnd
	n.lparen, n.rparen = lparen, rparen
	return n
}

// canStartCommandArg decides whether the token after a method name begins
// an argument of a call written without parentheses.
func (p *Parser) canStartCommandArg() bool {
	tok := p.cur()
	if !tok.SpaceBefore {
		return false
	}
	switch tok.Type {
	case token.IDENT, token.CONST, token.IVAR, token.GVAR, token.INT, token.FLOAT,
		token.STRING, token.SYMBOL, token.REGEXP, token.WORDS, token.LABEL,
		token.LAMBDA, token.LBRACKET, token.LPAREN, token.COLON2,
		token.SELF, token.NIL, token.TRUE, token.FALSE, token.DEFINED, token.NOT,
		token.CASE, token.BEGIN, token.DEF, token.SUPER, token.YIELD:
		return true
	case token.OP:
		switch tok.Literal {
		case "!", "~":
			return true
		case "-", "+", "*", "**", "&", "..", "...":
			return !p.peekN(1).SpaceBefore
		}
	}
	return false
}

// parseArgList parses comma-separated arguments. With closing == EOF the
// list is a command argument list and ends at the first token that is not
// followed by a comma; otherwise it ends at closing, which is not consumed.
// Trailing `key: value` and `key => value` pairs are gathered into one Hash.
func (p *Parser) parseArgList(closing token.TokenType) []*node {
	nested := closing != token.EOF
	if nested {
		saved := p.noDo
		p.noDo = 0
		defer func() { p.noDo = saved }()
		p.skipNewlines()
	}

	var args, pairs []*node
	flush := func() {
		if len(pairs) == 0 {
			return
		}
		h := &node{kind: KindHash, start: pairs[0].start, end: pairs[len(pairs)-1].end, lparen: -1, rparen: -1}
		h.adopt(pairs...)
		h.args = pairs
		args = append(args, h)
		pairs = nil
	}

	for !p.check(token.EOF) && !(nested && p.check(closing)) {
		before := p.i
		start := p.cur().Pos.Offset
		switch {
		case p.check(token.LABEL):
			pairs = append(pairs, p.parseLabelPair())
		case p.checkOp("**"):
			p.nextToken()
			pairs = append(pairs, p.opaque(start, p.parseExpr()))
		default:
			v := p.parseExpr()
			if v == nil || p.i == before {
				return append(args, pairs...)
			}
			if p.match(token.ARROW) {
				p.skipNewlines()
				val := p.parseExpr()
				pair := p.newNode(KindPair, start, v, val)
				pair.key, pair.val = v, val
				pairs = append(pairs, pair)
			} else {
				flush()
				args = append(args, v)
			}
		}
		if nested {
			p.skipNewlines()
		}
		if !p.match(token.COMMA) {
			break
		}
		p.skipNewlines()
	}
	flush()
	return args
}

// parseLabelPair parses `name: value`, `"name": value` and the shorthand `name:`.
func (p *Parser) parseLabelPair() *node {
	tok := p.cur()
	start := tok.Pos.Offset
	p.nextToken()
	key := &node{kind: KindSym, start: start, end: tok.End.Offset - 1, value: tok.Value, lparen: -1, rparen: -1}

	var val *node
	switch p.cur().Type {
	case token.COMMA, token.RPAREN, token.RBRACE, token.RBRACKET, token.EOF:
	case token.NEWLINE:
		if p.nestedNewlineValue() {
			p.skipNewlines()
			val = p.parseExpr()
		}
	default:
		val = p.parseExpr()
	}
	pair := p.newNode(KindPair, start, key, val)
	pair.key, pair.val = key, val
	return pair
}

// nestedNewlineValue reports whether a label at the end of a line takes its
// value from the next line.
func (p *Parser) nestedNewlineValue() bool {
	for i := p.i; i < len(p.toks); i++ {
		switch p.toks[i].Type {
		case token.NEWLINE:
			continue
		case token.RPAREN, token.RBRACE, token.RBRACKET, token.LABEL, token.END, token.EOF:
			return false
		}
		return p.noDo == 0
	}
	return false
}

func (p *Parser) parseIndex(start int, recv *node) *node {
	lb := p.cur().Pos.Offset
	p.nextToken()
	args := p.parseArgList(token.RBRACKET)
	rb := p.cur().Pos.Offset
	p.expect(token.RBRACKET)
	n := p.newNode(KindSend, start, recv)
	n.adopt(args...)
	n.value = "[]"
	n.recv = recv
	n.args = args
	n.selStart, n.selEnd = lb, lb
	n.lparen, n.rparen = lb, rb
	return n
}

// parseBlock attaches a `do … end` or `{ … }` block to call.
func (p *Parser) parseBlock(start int, call *node, closing token.TokenType) *node {
	open := p.cur()
	p.nextToken()

	b := &node{kind: KindBlock, call: call, openEnd: open.End.Offset, lparen: -1, rparen: -1}
	b.paramsEnd = b.openEnd

	p.pushScope(false)
	defer p.popScope()

	switch {
	case p.check(token.PIPE):
		p.nextToken()
		b.params = p.parseParamNames(func() bool { return p.check(token.PIPE) })
		p.expect(token.PIPE)
		b.paramsEnd = p.lastEnd
	case p.checkOp("||"):
		p.nextToken()
		b.paramsEnd = p.lastEnd
	}

	saved := p.noDo
	p.noDo = 0
	body := p.parseBody(b.paramsEnd)
	p.noDo = saved

	b.closeStart = p.cur().Pos.Offset
	if !p.match(closing) {
		p.addError(fmt.Sprintf(ErrMissingEnd, "block"))
	}
	b.start = start
	b.end = p.lastEnd
	b.body = body
	b.adopt(call, body)
	return b
}

func (p *Parser) parsePrimary() *node {
	tok := p.cur()
	start := tok.Pos.Offset

	switch tok.Type {
	case token.INT, token.FLOAT, token.SYMBOL, token.REGEXP, token.WORDS, token.IVAR, token.GVAR:
		p.nextToken()
		n := p.newNode(literalKinds[tok.Type], start)
		n.value = tok.Value
		if tok.Type == token.IVAR || tok.Type == token.GVAR || tok.Type == token.REGEXP {
			n.value = tok.Literal
		}
		return n
	case token.TRUE, token.FALSE, token.NIL, token.SELF:
		p.nextToken()
		return p.newNode(literalKinds[tok.Type], start)
	case token.STRING:
		return p.parseString()
	case token.CONST:
		p.nextToken()
		if p.check(token.LPAREN) && !p.cur().SpaceBefore {
			return p.parseCallArgs(start, nil, tok.Value, start, tok.End.Offset)
		}
		n := p.newNode(KindConst, start)
		n.value = tok.Value
		return n
	case token.COLON2:
		return p.parseConstPath()
	case token.IDENT:
		return p.parseIdentifier()
	case token.LABEL:
		// stray label, e.g. a ternary written `a ? b: c`
		p.nextToken()
		n := p.newNode(KindSym, start)
		n.value = tok.Value
		return n
	case token.LPAREN:
		p.nextToken()
		saved := p.noDo
		p.noDo = 0
		stmts := p.parseStatements()
		p.noDo = saved
		p.expect(token.RPAREN)
		return p.opaque(start, stmts...)
	case token.LBRACKET:
		p.nextToken()
		elems := p.parseArgList(token.RBRACKET)
		p.expect(token.RBRACKET)
		n := p.newNode(KindArray, start, elems...)
		n.args = elems
		return n
	case token.LBRACE:
		return p.parseHash()
	case token.LAMBDA:
		return p.parseLambda()
	case token.CLASS:
		return p.parseClass()
	case token.MODULE:
		return p.parseModule()
	case token.DEF:
		return p.parseDef()
	case token.IF, token.UNLESS, token.WHILE, token.UNTIL:
		return p.parseConditional()
	case token.CASE:
		return p.parseCase()
	case token.BEGIN:
		return p.parseBegin()
	case token.FOR:
		return p.parseFor()
	case token.RETURN, token.BREAK, token.NEXT, token.REDO, token.RETRY, token.YIELD, token.SUPER:
		return p.parseKeywordCall()
	case token.ALIAS, token.UNDEF:
		return p.parseAlias()
	case token.DEFINED, token.NOT:
		p.nextToken()
		return p.opaque(start, p.parseExpr())
	case token.OP:
		return p.parseUnary()
	}

	p.addError(fmt.Sprintf(ErrUnexpectedToken, tok.Type, "expression"))
	return nil
}

var literalKinds = map[token.TokenType]Kind{
	token.INT:    KindInt,
	token.FLOAT:  KindFloat,
	token.SYMBOL: KindSym,
	token.REGEXP: KindRegexp,
	token.WORDS:  KindWords,
	token.IVAR:   KindIVar,
	token.GVAR:   KindGVar,
	token.TRUE:   KindTrue,
	token.FALSE:  KindFalse,
	token.NIL:    KindNil,
	token.SELF:   KindSelf,
}

// parseIdentifier resolves a bare name to a local variable read or a
// receiver-less method call.
func (p *Parser) parseIdentifier() *node {
	tok := p.cur()
	start := tok.Pos.Offset
	p.nextToken()
	paren := p.check(token.LPAREN) && !p.cur().SpaceBefore
	if p.isLocal(tok.Value) && !paren {
		n := p.newNode(KindLVar, start)
		n.value = tok.Value
		return n
	}
	return p.parseCallArgs(start, nil, tok.Value, start, tok.End.Offset)
}

// parseString parses a string literal, joining adjacent literals on the same line.
func (p *Parser) parseString() *node {
	tok := p.cur()
	start := tok.Pos.Offset
	p.nextToken()
	kind := KindStr
	if isInterpolated(tok.Literal) {
		kind = KindDStr
	}
	value := tok.Value
	for p.check(token.STRING) && p.cur().SpaceBefore {
		next := p.cur()
		if isInterpolated(next.Literal) {
			kind = KindDStr
		}
		value += next.Value
		p.nextToken()
	}
	n := p.newNode(kind, start)
	n.value = value
	return n
}

func isInterpolated(lit string) bool {
	if strings.HasPrefix(lit, "<<") {
		return true
	}
	if strings.HasPrefix(lit, "'") || strings.HasPrefix(lit, "%q") {
		return false
	}
	return strings.Contains(lit, "#{")
}

func (p *Parser) parseHash() *node {
	start := p.cur().Pos.Offset
	p.nextToken() // {
	saved := p.noDo
	p.noDo = 0
	defer func() { p.noDo = saved }()

	var pairs []*node
	p.skipNewlines()
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		before := p.i
		pstart := p.cur().Pos.Offset
		switch {
		case p.check(token.LABEL):
			pairs = append(pairs, p.parseLabelPair())
		case p.checkOp("**"):
			p.nextToken()
			pairs = append(pairs, p.opaque(pstart, p.parseExpr()))
		default:
			k := p.parseExpr()
			if p.match(token.ARROW) {
				p.skipNewlines()
				v := p.parseExpr()
				pair := p.newNode(KindPair, pstart, k, v)
				pair.key, pair.val = k, v
				pairs = append(pairs, pair)
			} else if k != nil {
				pairs = append(pairs, p.opaque(pstart, k))
			}
		}
		p.skipNewlines()
		if p.i == before || !p.match(token.COMMA) {
			break
		}
		p.skipNewlines()
	}
	p.expect(token.RBRACE)
	n := p.newNode(KindHash, start, pairs...)
	n.args = pairs
	n.braces = true
	return n
}

// parseLambda parses `->(params) { body }` and `-> do body end`.
func (p *Parser) parseLambda() *node {
	start := p.cur().Pos.Offset
	p.nextToken() // ->
	p.pushScope(false)
	defer p.popScope()

	if p.match(token.LPAREN) {
		p.parseParamNames(func() bool { return p.check(token.RPAREN) })
		p.expect(token.RPAREN)
	} else {
		p.parseParamNames(func() bool {
			return p.check(token.LBRACE) || p.check(token.DO) || p.check(token.NEWLINE)
		})
	}

	closing := token.RBRACE
	if p.check(token.DO) {
		closing = token.END
	} else if !p.check(token.LBRACE) {
		p.addError(fmt.Sprintf(ErrUnexpectedToken, p.cur().Type, token.LBRACE))
		return p.opaque(start)
	}
	p.nextToken()
	saved := p.noDo
	p.noDo = 0
	body := p.parseBody(p.lastEnd)
	p.noDo = saved
	if !p.match(closing) {
		p.addError(fmt.Sprintf(ErrMissingEnd, "lambda"))
	}
	return p.opaque(start, body)
}
