package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tenor-lang/tenor/internal/lexer"
)

func kinds(toks []lexer.Spanned) []lexer.Kind {
	out := make([]lexer.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Token.Kind
	}
	return out
}

func TestLexPunctuationAndOperators(t *testing.T) {
	toks, err := lexer.Lex(`{ } [ ] ( ) : , . = != < <= > >= *`, "t.tenor")
	require.NoError(t, err)
	require.Equal(t, []lexer.Kind{
		lexer.LBrace, lexer.RBrace, lexer.LBracket, lexer.RBracket,
		lexer.LParen, lexer.RParen, lexer.Colon, lexer.Comma, lexer.Dot,
		lexer.Eq, lexer.Neq, lexer.Lt, lexer.Lte, lexer.Gt, lexer.Gte,
		lexer.Star, lexer.Eof,
	}, kinds(toks))
}

func TestLexUnicodeLogicalOperators(t *testing.T) {
	toks, err := lexer.Lex("∧ ∨ ¬ ∀ ∃ ∈", "t.tenor")
	require.NoError(t, err)
	require.Equal(t, []lexer.Kind{
		lexer.And, lexer.Or, lexer.Not, lexer.Forall, lexer.Exists, lexer.In, lexer.Eof,
	}, kinds(toks))
}

func TestLexNumerals(t *testing.T) {
	toks, err := lexer.Lex("42 3.14", "t.tenor")
	require.NoError(t, err)
	require.Equal(t, lexer.Int, toks[0].Token.Kind)
	require.Equal(t, int64(42), toks[0].Token.IntVal)
	// Decimal literals survive as source strings, never parsed as floats.
	require.Equal(t, lexer.Float, toks[1].Token.Kind)
	require.Equal(t, "3.14", toks[1].Token.FloatVal)
}

func TestLexStringEscapes(t *testing.T) {
	toks, err := lexer.Lex(`"a\"b\\c\nd\te"`, "t.tenor")
	require.NoError(t, err)
	require.Equal(t, lexer.Str, toks[0].Token.Kind)
	require.Equal(t, "a\"b\\c\nd\te", toks[0].Token.StrVal)
}

func TestLexNewlineInsideStringFails(t *testing.T) {
	_, err := lexer.Lex("\"ab\ncd\"", "t.tenor")
	require.Error(t, err)
}

func TestLexUnterminatedString(t *testing.T) {
	_, err := lexer.Lex(`fact f { source: "oops`, "t.tenor")
	require.Error(t, err)
	require.Contains(t, err.Error(), "t.tenor")
}

func TestLexCommentsIncrementLines(t *testing.T) {
	src := "// line comment\nfoo /* block\nspanning */ bar"
	toks, err := lexer.Lex(src, "t.tenor")
	require.NoError(t, err)
	require.Equal(t, lexer.Word, toks[0].Token.Kind)
	require.Equal(t, "foo", toks[0].Token.WordVal)
	require.Equal(t, uint32(2), toks[0].Line)
	require.Equal(t, "bar", toks[1].Token.WordVal)
	require.Equal(t, uint32(3), toks[1].Line)
}

func TestLexIdentifierMustStartNonDigit(t *testing.T) {
	toks, err := lexer.Lex("abc_123 x9", "t.tenor")
	require.NoError(t, err)
	require.Equal(t, "abc_123", toks[0].Token.WordVal)
	require.Equal(t, "x9", toks[1].Token.WordVal)
}

func TestLexArrowSugar(t *testing.T) {
	a, err := lexer.Lex("(draft -> submitted)", "t.tenor")
	require.NoError(t, err)
	b, err := lexer.Lex("(draft, submitted)", "t.tenor")
	require.NoError(t, err)
	require.Len(t, a, len(b))
}
