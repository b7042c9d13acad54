// Package token defines the token types for Ruby source scanning.
//
// Only the subset of Ruby needed to read ActiveRecord models and schema.rb
// files is distinguished; every other operator collapses into OP and keeps
// its literal text.
package token

import "fmt"

// TokenType represents the type of a lexical token.
//
//nolint:revive // Accept stutter as token.TokenType is clear and widely used
type TokenType int32

const (
	// Special tokens
	EOF TokenType = iota
	ILLEGAL
	NEWLINE // statement-terminating newline
	SEMI    // ;

	// Names
	IDENT // local variable or method name, may end in ? or !
	CONST // capitalized constant name
	IVAR  // @ivar or @@cvar
	GVAR  // $global
	LABEL // name: inside argument lists and hashes

	// Literals
	INT    // 42, 0x2a, 1_000
	FLOAT  // 4.2, 1e3
	STRING // "x", 'x', %q(x), heredoc
	SYMBOL // :x, :"x"
	REGEXP // /x/
	WORDS  // %w[a b], %i[a b]

	// Punctuation
	DOT      // .
	AMPDOT   // &.
	COLON2   // ::
	COMMA    // ,
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	LBRACE   // {
	RBRACE   // }
	PIPE     // |
	ASSIGN   // =
	ARROW    // =>
	LAMBDA   // ->
	OP       // any other operator, see Literal

	// Keywords (alphabetical)
	ALIAS
	AND
	BEGIN
	BREAK
	CASE
	CLASS
	DEF
	DEFINED
	DO
	ELSE
	ELSIF
	END
	ENSURE
	FALSE
	FOR
	IF
	IN
	MODULE
	NEXT
	NIL
	NOT
	OR
	REDO
	RESCUE
	RETRY
	RETURN
	SELF
	SUPER
	THEN
	TRUE
	UNDEF
	UNLESS
	UNTIL
	WHEN
	WHILE
	YIELD
)

// String returns a human-readable representation of the token type.
func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var tokenNames = map[TokenType]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",
	NEWLINE: "NEWLINE",
	SEMI:    ";",

	IDENT: "IDENT",
	CONST: "CONST",
	IVAR:  "IVAR",
	GVAR:  "GVAR",
	LABEL: "LABEL",

	INT:    "INT",
	FLOAT:  "FLOAT",
	STRING: "STRING",
	SYMBOL: "SYMBOL",
	REGEXP: "REGEXP",
	WORDS:  "WORDS",

	DOT:      ".",
	AMPDOT:   "&.",
	COLON2:   "::",
	COMMA:    ",",
	LPAREN:   "(",
	RPAREN:   ")",
	LBRACKET: "[",
	RBRACKET: "]",
	LBRACE:   "{",
	RBRACE:   "}",
	PIPE:     "|",
	ASSIGN:   "=",
	ARROW:    "=>",
	LAMBDA:   "->",
	OP:       "OP",

	ALIAS:   "alias",
	AND:     "and",
	BEGIN:   "begin",
	BREAK:   "break",
	CASE:    "case",
	CLASS:   "class",
	DEF:     "def",
	DEFINED: "defined?",
	DO:      "do",
	ELSE:    "else",
	ELSIF:   "elsif",
	END:     "end",
	ENSURE:  "ensure",
	FALSE:   "false",
	FOR:     "for",
	IF:      "if",
	IN:      "in",
	MODULE:  "module",
	NEXT:    "next",
	NIL:     "nil",
	NOT:     "not",
	OR:      "or",
	REDO:    "redo",
	RESCUE:  "rescue",
	RETRY:   "retry",
	RETURN:  "return",
	SELF:    "self",
	SUPER:   "super",
	THEN:    "then",
	TRUE:    "true",
	UNDEF:   "undef",
	UNLESS:  "unless",
	UNTIL:   "until",
	WHEN:    "when",
	WHILE:   "while",
	YIELD:   "yield",
}

var keywords = map[string]TokenType{
	"alias":    ALIAS,
	"and":      AND,
	"begin":    BEGIN,
	"break":    BREAK,
	"case":     CASE,
	"class":    CLASS,
	"def":      DEF,
	"defined?": DEFINED,
	"do":       DO,
	"else":     ELSE,
	"elsif":    ELSIF,
	"end":      END,
	"ensure":   ENSURE,
	"false":    FALSE,
	"for":      FOR,
	"if":       IF,
	"in":       IN,
	"module":   MODULE,
	"next":     NEXT,
	"nil":      NIL,
	"not":      NOT,
	"or":       OR,
	"redo":     REDO,
	"rescue":   RESCUE,
	"retry":    RETRY,
	"return":   RETURN,
	"self":     SELF,
	"super":    SUPER,
	"then":     THEN,
	"true":     TRUE,
	"undef":    UNDEF,
	"unless":   UNLESS,
	"until":    UNTIL,
	"when":     WHEN,
	"while":    WHILE,
	"yield":    YIELD,
}

// LookupIdent returns the keyword token type for ident, or IDENT.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t TokenType) bool {
	return t >= ALIAS && t <= YIELD
}

// Token represents a lexical token with position information.
type Token struct {
	Type    TokenType
	Literal string // raw source text of the token
	Value   string // decoded value for strings, symbols and labels
	Pos     Position
	End     Position
	// SpaceBefore is true when whitespace separates this token from the previous one.
	SpaceBefore bool
}

// IsValueEnd reports whether a token of this type can end an operand, which
// is what decides whether a following / or << starts a literal.
func (t TokenType) IsValueEnd() bool {
	switch t {
	case IDENT, CONST, IVAR, GVAR, INT, FLOAT, STRING, SYMBOL, REGEXP, WORDS,
		RPAREN, RBRACKET, RBRACE, END, SELF, NIL, TRUE, FALSE:
		return true
	}
	return false
}
