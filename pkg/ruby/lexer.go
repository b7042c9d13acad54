package ruby

import (
	"strings"

	"github.com/leapstack-labs/schemais/pkg/token"
)

// Lexer tokenizes Ruby source.
//
// It recognizes enough of the language to keep `end` nesting, string and
// heredoc boundaries, and comments straight; operators it does not care about
// are returned as token.OP with their literal text.
type Lexer struct {
	input string
	pos   int
	lines *token.LineIndex

	prev     token.TokenType // type of the last emitted token
	heredocs []heredoc       // heredocs whose bodies start after the next newline
	errors   []error
}

type heredoc struct {
	id       string
	indented bool // <<~ or <<-: terminator may be indented
}

// multi-character operators, longest first
var operators = []string{
	"**=", "<=>", "===", "...", "<<=", ">>=", "&&=", "||=",
	"**", "==", "!=", ">=", "<=", "&&", "||", "<<", ">>", "=~", "!~",
	"+=", "-=", "*=", "/=", "%=", "|=", "&=", "^=", "..", "::", "->", "=>", "&.",
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		lines: token.NewLineIndex(input),
		prev:  token.NEWLINE,
	}
}

// Errors returns lexical errors collected so far.
func (l *Lexer) Errors() []error {
	return l.errors
}

// Tokens scans the whole input. The last token is always EOF.
func (l *Lexer) Tokens() []token.Token {
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks
		}
	}
}

func (l *Lexer) peekAt(i int) byte {
	if l.pos+i >= len(l.input) || l.pos+i < 0 {
		return 0
	}
	return l.input[l.pos+i]
}

func (l *Lexer) atLineStart() bool {
	return l.pos == 0 || l.input[l.pos-1] == '\n'
}

// skipSpace skips blanks, comments, line continuations and =begin/=end
// blocks. Newlines are left in place since they terminate statements.
func (l *Lexer) skipSpace() bool {
	skipped := false
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			l.pos++
		case c == '\\' && l.peekAt(1) == '\n':
			l.pos += 2
		case c == '#':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
		case c == '=' && l.atLineStart() && strings.HasPrefix(l.input[l.pos:], "=begin"):
			l.skipEmbeddedDoc()
		default:
			return skipped
		}
		skipped = true
	}
	return skipped
}

func (l *Lexer) skipEmbeddedDoc() {
	for l.pos < len(l.input) {
		nl := strings.IndexByte(l.input[l.pos:], '\n')
		if nl < 0 {
			l.pos = len(l.input)
			return
		}
		l.pos += nl + 1
		if strings.HasPrefix(l.input[l.pos:], "=end") {
			nl = strings.IndexByte(l.input[l.pos:], '\n')
			if nl < 0 {
				l.pos = len(l.input)
			} else {
				l.pos += nl
			}
			return
		}
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() token.Token {
	space := l.skipSpace()
	start := l.pos

	if l.pos >= len(l.input) || (l.atLineStart() && strings.HasPrefix(l.input[l.pos:], "__END__")) {
		l.pos = len(l.input)
		return l.emit(token.EOF, start, "", space)
	}

	c := l.input[l.pos]
	switch {
	case c == '\n':
		l.pos++
		l.skipHeredocBodies()
		return l.emit(token.NEWLINE, start, "", space)
	case c == ';':
		l.pos++
		return l.emit(token.SEMI, start, "", space)
	case isIdentStart(c):
		return l.readWord(start, space)
	case isDigit(c):
		return l.readNumber(start, space)
	case c == '"' || c == '`':
		val := l.readQuoted(c, true)
		return l.stringOrLabel(start, val, space)
	case c == '\'':
		val := l.readQuoted('\'', false)
		return l.stringOrLabel(start, val, space)
	case c == '@':
		l.pos++
		if l.peekAt(0) == '@' {
			l.pos++
		}
		l.readIdentChars()
		return l.emit(token.IVAR, start, "", space)
	case c == '$':
		l.pos++
		if isIdentStart(l.peekAt(0)) {
			l.readIdentChars()
		} else if l.pos < len(l.input) {
			l.pos++
		}
		return l.emit(token.GVAR, start, "", space)
	case c == ':':
		return l.readColon(start, space)
	case c == '/' && l.literalAllowed(space):
		l.readRegexp()
		return l.emit(token.REGEXP, start, "", space)
	case c == '%' && l.literalAllowed(space) && l.percentLiteralAhead():
		return l.readPercentLiteral(start, space)
	case c == '<' && l.heredocAhead(space):
		return l.readHeredocMarker(start, space)
	}
	return l.readOperator(start, space)
}

func (l *Lexer) emit(t token.TokenType, start int, value string, space bool) token.Token {
	l.prev = t
	return token.Token{
		Type:        t,
		Literal:     l.input[start:l.pos],
		Value:       value,
		Pos:         l.lines.Position(start),
		End:         l.lines.Position(l.pos),
		SpaceBefore: space,
	}
}

// literalAllowed decides whether an ambiguous character (/ %) starts a
// literal rather than an operator.
func (l *Lexer) literalAllowed(space bool) bool {
	if !l.prev.IsValueEnd() {
		return true
	}
	next := l.peekAt(1)
	return l.prev == token.IDENT && space && next != ' ' && next != '=' && next != '\n'
}

func (l *Lexer) readIdentChars() {
	for l.pos < len(l.input) && isIdentChar(l.input[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) readWord(start int, space bool) token.Token {
	l.readIdentChars()
	if c := l.peekAt(0); (c == '?' || c == '!') && l.peekAt(1) != '=' && l.peekAt(1) != ':' {
		l.pos++
	}
	word := l.input[start:l.pos]

	// label (`null: false`), but never the first half of `A::B`
	if l.peekAt(0) == ':' && l.peekAt(1) != ':' && l.prev != token.DOT && l.prev != token.AMPDOT {
		l.pos++
		return l.emit(token.LABEL, start, word, space)
	}

	if l.prev == token.DOT || l.prev == token.AMPDOT {
		return l.emit(token.IDENT, start, word, space)
	}
	if word == "defined" && l.peekAt(0) == '?' {
		l.pos++
		return l.emit(token.DEFINED, start, "", space)
	}
	if isUpper(word[0]) {
		return l.emit(token.CONST, start, word, space)
	}
	return l.emit(token.LookupIdent(word), start, word, space)
}

func (l *Lexer) readNumber(start int, space bool) token.Token {
	typ := token.INT
	if l.peekAt(0) == '0' && strings.ContainsRune("xXbBoO", rune(l.peekAt(1))) {
		l.pos += 2
		for l.pos < len(l.input) && (isHexDigit(l.input[l.pos]) || l.input[l.pos] == '_') {
			l.pos++
		}
		return l.emit(typ, start, strings.ReplaceAll(l.input[start:l.pos], "_", ""), space)
	}
	l.readDigits()
	if l.peekAt(0) == '.' && isDigit(l.peekAt(1)) {
		typ = token.FLOAT
		l.pos++
		l.readDigits()
	}
	if c := l.peekAt(0); c == 'e' || c == 'E' {
		next := l.peekAt(1)
		if isDigit(next) || ((next == '-' || next == '+') && isDigit(l.peekAt(2))) {
			typ = token.FLOAT
			l.pos += 2
			l.readDigits()
		}
	}
	value := strings.ReplaceAll(l.input[start:l.pos], "_", "")
	if c := l.peekAt(0); c == 'r' || c == 'i' {
		l.pos++
	}
	return l.emit(typ, start, value, space)
}

func (l *Lexer) readDigits() {
	for l.pos < len(l.input) && (isDigit(l.input[l.pos]) || l.input[l.pos] == '_') {
		l.pos++
	}
}

// stringOrLabel turns `"key": value` into a label.
func (l *Lexer) stringOrLabel(start int, val string, space bool) token.Token {
	if l.peekAt(0) == ':' && l.peekAt(1) != ':' && l.prev != token.OP {
		l.pos++
		return l.emit(token.LABEL, start, val, space)
	}
	return l.emit(token.STRING, start, val, space)
}

// readQuoted consumes a quoted literal starting at the opening quote and
// returns its decoded content.
func (l *Lexer) readQuoted(quote byte, interpolate bool) string {
	return l.readDelimited(quote, quote, interpolate)
}

func (l *Lexer) readDelimited(open, closing byte, interpolate bool) string {
	l.pos++ // opening delimiter
	var b strings.Builder
	depth := 0
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == '\\' && l.pos+1 < len(l.input):
			next := l.input[l.pos+1]
			l.pos += 2
			if interpolate {
				b.WriteByte(unescape(next))
			} else {
				if next != closing && next != '\\' {
					b.WriteByte('\\')
				}
				b.WriteByte(next)
			}
			continue
		case interpolate && c == '#' && l.peekAt(1) == '{':
			from := l.pos
			l.pos += 2
			l.skipInterpolation()
			b.WriteString(l.input[from:l.pos])
			continue
		case c == open && open != closing:
			depth++
		case c == closing:
			if depth == 0 {
				l.pos++
				return b.String()
			}
			depth--
		}
		b.WriteByte(c)
		l.pos++
	}
	l.errors = append(l.errors, &LexError{Pos: l.lines.Position(l.pos), Message: ErrUnterminatedString})
	return b.String()
}

// skipInterpolation consumes the body of #{...} including nested braces and strings.
func (l *Lexer) skipInterpolation() {
	depth := 1
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				l.pos++
				return
			}
		case '"', '\'', '`':
			l.readQuoted(c, c != '\'')
			continue
		}
		l.pos++
	}
}

func (l *Lexer) readColon(start int, space bool) token.Token {
	next := l.peekAt(1)
	switch {
	case next == ':':
		l.pos += 2
		return l.emit(token.COLON2, start, "", space)
	case next == '"' || next == '\'':
		l.pos++
		val := l.readQuoted(next, next == '"')
		return l.emit(token.SYMBOL, start, val, space)
	case isIdentStart(next) || next == '@' || next == '$':
		l.pos++
		from := l.pos
		for l.pos < len(l.input) && (isIdentChar(l.input[l.pos]) || l.input[l.pos] == '@' || l.input[l.pos] == '$') {
			l.pos++
		}
		if c := l.peekAt(0); (c == '?' || c == '!' || c == '=') && l.peekAt(1) != '=' && l.peekAt(1) != '>' && l.peekAt(1) != '~' {
			l.pos++
		}
		return l.emit(token.SYMBOL, start, l.input[from:l.pos], space)
	case !space || !l.prev.IsValueEnd():
		// operator symbols such as :+ or :[]
		for _, op := range []string{"[]=", "[]", "<=>", "===", "==", "=~", "!=", "<<", ">>", "<=", ">=", "**", "+@", "-@", "+", "-", "*", "/", "%", "<", ">", "!", "~", "&", "|", "^"} {
			if strings.HasPrefix(l.input[l.pos+1:], op) {
				l.pos += 1 + len(op)
				return l.emit(token.SYMBOL, start, op, space)
			}
		}
	}
	l.pos++
	return l.emit(token.OP, start, "", space)
}

func (l *Lexer) readRegexp() {
	l.pos++ // opening slash
	inClass := false
	for l.pos < len(l.input) {
		c := l.input[l.pos]
		switch {
		case c == '\\':
			l.pos += 2
			continue
		case c == '#' && l.peekAt(1) == '{':
			l.pos += 2
			l.skipInterpolation()
			continue
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			l.pos++
			for l.pos < len(l.input) && strings.IndexByte("imxounse", l.input[l.pos]) >= 0 {
				l.pos++
			}
			return
		case c == '\n':
			l.errors = append(l.errors, &LexError{Pos: l.lines.Position(l.pos), Message: ErrUnterminatedRegexp})
			return
		}
		l.pos++
	}
}

func (l *Lexer) percentLiteralAhead() bool {
	c := l.peekAt(1)
	if strings.IndexByte("wWiIqQrs", c) >= 0 {
		return isPercentDelimiter(l.peekAt(2))
	}
	return c == '(' || c == '[' || c == '{' || c == '<' || c == '|' || c == '!'
}

func (l *Lexer) readPercentLiteral(start int, space bool) token.Token {
	l.pos++ // %
	kind := byte('Q')
	if c := l.peekAt(0); isLetter(c) {
		kind = c
		l.pos++
	}
	open := l.peekAt(0)
	closing := open
	switch open {
	case '(':
		closing = ')'
	case '[':
		closing = ']'
	case '{':
		closing = '}'
	case '<':
		closing = '>'
	}
	interpolate := kind == 'Q' || kind == 'W' || kind == 'I' || kind == 'r'
	val := l.readDelimited(open, closing, interpolate)
	switch kind {
	case 'w', 'W', 'i', 'I':
		return l.emit(token.WORDS, start, val, space)
	case 'r':
		for l.pos < len(l.input) && strings.IndexByte("imxounse", l.input[l.pos]) >= 0 {
			l.pos++
		}
		return l.emit(token.REGEXP, start, val, space)
	case 's':
		return l.emit(token.SYMBOL, start, val, space)
	}
	return l.emit(token.STRING, start, val, space)
}

func (l *Lexer) heredocAhead(space bool) bool {
	if l.peekAt(1) != '<' {
		return false
	}
	i := 2
	if c := l.peekAt(i); c == '~' || c == '-' {
		i++
	}
	c := l.peekAt(i)
	if !(isIdentStart(c) || c == '"' || c == '\'' || c == '`') {
		return false
	}
	if l.prev == token.CLASS {
		return false
	}
	if !l.prev.IsValueEnd() {
		return true
	}
	return l.prev == token.IDENT && space
}

func (l *Lexer) readHeredocMarker(start int, space bool) token.Token {
	l.pos += 2
	indented := false
	if c := l.peekAt(0); c == '~' || c == '-' {
		indented = true
		l.pos++
	}
	var id string
	if c := l.peekAt(0); c == '"' || c == '\'' || c == '`' {
		id = l.readQuoted(c, false)
	} else {
		from := l.pos
		l.readIdentChars()
		id = l.input[from:l.pos]
	}
	l.heredocs = append(l.heredocs, heredoc{id: id, indented: indented})
	return l.emit(token.STRING, start, "", space)
}

// skipHeredocBodies runs right after a newline and consumes the bodies of
// every heredoc opened on the line that just ended.
func (l *Lexer) skipHeredocBodies() {
	for _, h := range l.heredocs {
		for l.pos < len(l.input) {
			nl := strings.IndexByte(l.input[l.pos:], '\n')
			var line string
			if nl < 0 {
				line = l.input[l.pos:]
				l.pos = len(l.input)
			} else {
				line = l.input[l.pos : l.pos+nl]
				l.pos += nl + 1
			}
			line = strings.TrimRight(line, "\r")
			if h.indented {
				line = strings.TrimLeft(line, " \t")
			}
			if line == h.id {
				break
			}
		}
	}
	l.heredocs = nil
}

func (l *Lexer) readOperator(start int, space bool) token.Token {
	rest := l.input[l.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			l.pos += len(op)
			switch op {
			case "::":
				return l.emit(token.COLON2, start, "", space)
			case "->":
				return l.emit(token.LAMBDA, start, "", space)
			case "=>":
				return l.emit(token.ARROW, start, "", space)
			case "&.":
				return l.emit(token.AMPDOT, start, "", space)
			}
			return l.emit(token.OP, start, op, space)
		}
	}

	c := l.input[l.pos]
	l.pos++
	switch c {
	case '.':
		return l.emit(token.DOT, start, "", space)
	case ',':
		return l.emit(token.COMMA, start, "", space)
	case '(':
		return l.emit(token.LPAREN, start, "", space)
	case ')':
		return l.emit(token.RPAREN, start, "", space)
	case '[':
		return l.emit(token.LBRACKET, start, "", space)
	case ']':
		return l.emit(token.RBRACKET, start, "", space)
	case '{':
		return l.emit(token.LBRACE, start, "", space)
	case '}':
		return l.emit(token.RBRACE, start, "", space)
	case '|':
		return l.emit(token.PIPE, start, "", space)
	case '=':
		return l.emit(token.ASSIGN, start, "", space)
	case '+', '-', '*', '/', '%', '<', '>', '!', '~', '&', '^', '?', ':':
		return l.emit(token.OP, start, string(c), space)
	}
	l.errors = append(l.errors, &LexError{Pos: l.lines.Position(start), Message: ErrIllegalCharacter})
	return l.emit(token.ILLEGAL, start, "", space)
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	case 's':
		return ' '
	case 'e':
		return 0x1b
	}
	return c
}

func isPercentDelimiter(c byte) bool {
	return c == '(' || c == '[' || c == '{' || c == '<' || c == '|' || c == '!' || c == '/'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isUpper(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return isLetter(c) || c == '_' || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
