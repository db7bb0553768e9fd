package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nova-lang/nova/internal/source"
	"github.com/nova-lang/nova/internal/token"
)

func tokenize(t *testing.T, src string) ([]token.Token, *Lexer) {
	t.Helper()
	unit := source.NewUnit(1, "<test>", src)
	l := New(unit)
	return l.Tokenize(), l
}

func TestNextToken_Operators(t *testing.T) {
	toks, l := tokenize(t, "let x = 1 + 2 ** 3 -> y")
	require.Empty(t, l.Diagnostics.Diagnostics())

	want := []token.Type{
		token.LET, token.IDENT, token.ASSIGN, token.INT, token.PLUS, token.INT,
		token.POWER, token.INT, token.ARROW, token.IDENT, token.EOF,
	}
	got := make([]token.Type, len(toks))
	for i, tk := range toks {
		got[i] = tk.Type
	}
	require.Equal(t, want, got)
}

func TestNextToken_UnterminatedStringRecovers(t *testing.T) {
	toks, l := tokenize(t, "\"abc\nlet y = 1")
	require.NotEmpty(t, l.Diagnostics.Diagnostics())
	// Lexing continues after the diagnostic: we still see LET further on.
	var sawLet bool
	for _, tk := range toks {
		if tk.Type == token.LET {
			sawLet = true
		}
	}
	require.True(t, sawLet)
}

func TestNextToken_IllegalCharacterRecovers(t *testing.T) {
	toks, l := tokenize(t, "let x = 1 ` 2")
	require.Len(t, l.Diagnostics.Diagnostics(), 1)
	require.Equal(t, source.SeverityError, l.Diagnostics.Diagnostics()[0].Severity)

	var sawSecondInt bool
	for _, tk := range toks {
		if tk.Type == token.INT && tk.Literal == int64(2) {
			sawSecondInt = true
		}
	}
	require.True(t, sawSecondInt)
}

// TestRoundTrip checks's lexer invariant: joining every token's lexeme
// in order reproduces the source up to whitespace/comment normalization.
func TestRoundTrip(t *testing.T) {
	src := "fn add(a, b) { a + b }"
	toks, _ := tokenize(t, src)
	var rebuilt string
	for _, tk := range toks {
		if tk.Type == token.EOF {
			continue
		}
		if rebuilt != "" {
			rebuilt += " "
		}
		rebuilt += tk.Lexeme
	}
	require.Equal(t, "fn add ( a , b ) { a + b }", rebuilt)
}

func TestBigIntOverflow(t *testing.T) {
	toks, l := tokenize(t, "99999999999999999999999999")
	require.Len(t, l.Diagnostics.Diagnostics(), 1)
	require.Equal(t, source.SeverityWarning, l.Diagnostics.Diagnostics()[0].Severity)
	require.Equal(t, token.BIG_INT, toks[0].Type)
}
