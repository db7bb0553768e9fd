// Package token defines the closed set of lexical token kinds.
package token

import "github.com/nova-lang/nova/internal/source"

type Type int

const (
	ILLEGAL Type = iota
	EOF
	NEWLINE

	// Literals
	INT
	FLOAT
	BIG_INT
	RATIONAL
	STRING
	INTERP_STRING
	FORMAT_STRING
	CHAR
	BYTES_STRING
	BYTES_HEX

	// Identifiers
	IDENT       // lowercase-leading: variables, functions
	IDENT_UPPER // uppercase-leading: type/constructor names

	// Keywords
	FN
	LET
	CONST
	RETURN
	IF
	ELSE
	MATCH
	WHILE
	FOR
	IN
	BREAK
	CONTINUE
	ASYNC
	AWAIT
	IMPORT
	EXPORT
	TYPE
	STRUCT
	ENUM
	TRUE
	FALSE
	MUT
	WHERE

	// Operators
	ASSIGN
	PLUS
	MINUS
	ASTERISK
	SLASH
	PERCENT
	POWER
	BANG
	AMPERSAND
	CARET
	PIPE
	TILDE
	LSHIFT
	RSHIFT

	PLUS_ASSIGN
	MINUS_ASSIGN
	ASTERISK_ASSIGN
	SLASH_ASSIGN
	PERCENT_ASSIGN
	POWER_ASSIGN

	EQ
	NOT_EQ
	LT
	LTE
	GT
	GTE

	AND // &&
	OR  // ||

	ARROW      // ->
	DOT_DOT    // ..
	ELLIPSIS   // ...
	QUESTION
	NULL_COALESCE  // ??
	OPTIONAL_CHAIN // ?.

	// Delimiters
	COMMA
	DOT
	COLON
	SEMICOLON
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
)

var keywords = map[string]Type{
	"fn":       FN,
	"let":      LET,
	"const":    CONST,
	"return":   RETURN,
	"if":       IF,
	"else":     ELSE,
	"match":    MATCH,
	"while":    WHILE,
	"for":      FOR,
	"in":       IN,
	"break":    BREAK,
	"continue": CONTINUE,
	"async":    ASYNC,
	"await":    AWAIT,
	"import":   IMPORT,
	"export":   EXPORT,
	"type":     TYPE,
	"struct":   STRUCT,
	"enum":     ENUM,
	"true":     TRUE,
	"false":    FALSE,
	"mut":      MUT,
	"where":    WHERE,
}

// Lookup classifies a lowercase-leading identifier as a keyword or IDENT.
func Lookup(ident string) Type {
	if t, ok := keywords[ident]; ok {
		return t
	}
	return IDENT
}

// Token is a single lexeme: its tag, literal payload, and source span.
// Re-rendering the token stream (joining each Lexeme in order) yields the
// original source up to whitespace/comment normalization.
type Token struct {
	Type    Type
	Lexeme  string // verbatim source text (post-escape-decoding for strings)
	Literal any    // int64, float64, *big.Int, *big.Rat, string, rune, or nil
	Span    source.Span
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "UNKNOWN"
}

var typeNames = map[Type]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF", NEWLINE: "NEWLINE",
	INT: "INT", FLOAT: "FLOAT", BIG_INT: "BIG_INT", RATIONAL: "RATIONAL",
	STRING: "STRING", INTERP_STRING: "INTERP_STRING", FORMAT_STRING: "FORMAT_STRING",
	CHAR: "CHAR", BYTES_STRING: "BYTES_STRING", BYTES_HEX: "BYTES_HEX",
	IDENT: "IDENT", IDENT_UPPER: "IDENT_UPPER",
	FN: "fn", LET: "let", CONST: "const", RETURN: "return", IF: "if", ELSE: "else",
	MATCH: "match", WHILE: "while", FOR: "for", IN: "in", BREAK: "break", CONTINUE: "continue",
	ASYNC: "async", AWAIT: "await", IMPORT: "import", EXPORT: "export", TYPE: "type",
	STRUCT: "struct", ENUM: "enum", TRUE: "true", FALSE: "false", MUT: "mut", WHERE: "where",
	ASSIGN: "=", PLUS: "+", MINUS: "-", ASTERISK: "*", SLASH: "/", PERCENT: "%", POWER: "**",
	BANG: "!", AMPERSAND: "&", CARET: "^", PIPE: "|", TILDE: "~", LSHIFT: "<<", RSHIFT: ">>",
	PLUS_ASSIGN: "+=", MINUS_ASSIGN: "-=", ASTERISK_ASSIGN: "*=", SLASH_ASSIGN: "/=",
	PERCENT_ASSIGN: "%=", POWER_ASSIGN: "**=",
	EQ: "==", NOT_EQ: "!=", LT: "<", LTE: "<=", GT: ">", GTE: ">=",
	AND: "&&", OR: "||", ARROW: "->", DOT_DOT: "..", ELLIPSIS: "...",
	QUESTION: "?", NULL_COALESCE: "??", OPTIONAL_CHAIN: "?.",
	COMMA: ",", DOT: ".", COLON: ":", SEMICOLON: ";",
	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}", LBRACKET: "[", RBRACKET: "]",
}
