package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavrukin/sinter-lang/internal/diagnostics"
	"github.com/mavrukin/sinter-lang/internal/position"
)

func tokenize(t *testing.T, src string) ([]Token, *diagnostics.Bag) {
	t.Helper()
	bag := diagnostics.NewBag()
	file := position.NewSourceFile("test.sn", src)
	return New(file, bag).Tokenize(), bag
}

func kinds(tokens []Token) []TokenKind {
	out := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	tokens, bag := tokenize(t, "class Point extends Shape implements Printable")
	require.False(t, bag.HasErrors())
	assert.Equal(t, []TokenKind{
		TokenClass, TokenIdent, TokenExtends, TokenIdent,
		TokenImplements, TokenIdent, TokenEOF,
	}, kinds(tokens))
	assert.Equal(t, "Point", tokens[1].Lexeme)
}

func TestNumericLiterals(t *testing.T) {
	tokens, bag := tokenize(t, "42 3.14 0")
	require.False(t, bag.HasErrors())
	assert.Equal(t, TokenIntLit, tokens[0].Kind)
	assert.Equal(t, "42", tokens[0].Lexeme)
	assert.Equal(t, TokenFloatLit, tokens[1].Kind)
	assert.Equal(t, "3.14", tokens[1].Lexeme)
	assert.Equal(t, TokenIntLit, tokens[2].Kind)
}

func TestStringLiteralEscapes(t *testing.T) {
	tokens, bag := tokenize(t, `"line\n" 'tab\t'`)
	require.False(t, bag.HasErrors())
	assert.Equal(t, TokenStringLit, tokens[0].Kind)
	assert.Equal(t, "line\n", tokens[0].Lexeme)
	assert.Equal(t, "tab\t", tokens[1].Lexeme)
}

func TestDStringLiteral(t *testing.T) {
	tokens, bag := tokenize(t, `var msg: str = D"The count is: {count}";`)
	require.False(t, bag.HasErrors())

	var dstr *Token
	for i := range tokens {
		if tokens[i].Kind == TokenDStringLit {
			dstr = &tokens[i]
		}
	}
	require.NotNil(t, dstr, "expected a d-string token")
	assert.Equal(t, "The count is: {count}", dstr.Lexeme)
}

func TestDPrefixedIdentifierIsNotDString(t *testing.T) {
	tokens, bag := tokenize(t, "var Data: int;")
	require.False(t, bag.HasErrors())
	assert.Equal(t, TokenIdent, tokens[1].Kind)
	assert.Equal(t, "Data", tokens[1].Lexeme)
}

func TestAnnotationToken(t *testing.T) {
	tokens, bag := tokenize(t, "@attribute(read_only, serializable) var id: int;")
	require.False(t, bag.HasErrors())
	assert.Equal(t, TokenAnnotation, tokens[0].Kind)
	assert.Equal(t, "read_only, serializable", tokens[0].Lexeme)

	bare, bag := tokenize(t, "@attribute var id: int;")
	require.False(t, bag.HasErrors())
	assert.Equal(t, TokenAnnotation, bare[0].Kind)
	assert.Equal(t, "", bare[0].Lexeme)
}

func TestOperators(t *testing.T) {
	tokens, bag := tokenize(t, "-> ++ -- += == != <= >= && || * &")
	require.False(t, bag.HasErrors())
	assert.Equal(t, []TokenKind{
		TokenArrow, TokenInc, TokenDec, TokenPlusAssign, TokenEq, TokenNeq,
		TokenLe, TokenGe, TokenAndAnd, TokenOrOr, TokenStar, TokenAmp, TokenEOF,
	}, kinds(tokens))
}

func TestCommentsSkipped(t *testing.T) {
	src := `
// line comment
var x: int; /* block
   comment */ var y: int;
`
	tokens, bag := tokenize(t, src)
	require.False(t, bag.HasErrors())
	assert.Equal(t, []TokenKind{
		TokenVar, TokenIdent, TokenColon, TokenTypeInt, TokenSemicolon,
		TokenVar, TokenIdent, TokenColon, TokenTypeInt, TokenSemicolon,
		TokenEOF,
	}, kinds(tokens))
}

func TestPositionTracking(t *testing.T) {
	tokens, bag := tokenize(t, "var\n  count: int;")
	require.False(t, bag.HasErrors())

	assert.Equal(t, 1, tokens[0].Span.Start.Line)
	assert.Equal(t, 1, tokens[0].Span.Start.Column)
	assert.Equal(t, 2, tokens[1].Span.Start.Line)
	assert.Equal(t, 3, tokens[1].Span.Start.Column)
}

func TestInvalidInputProducesDiagnostics(t *testing.T) {
	_, bag := tokenize(t, "var x = `;")
	assert.True(t, bag.HasErrors())

	_, bag = tokenize(t, `var s: str = "unterminated`)
	assert.True(t, bag.HasErrors())

	_, bag = tokenize(t, "@attribute(read_only var x: int;")
	assert.True(t, bag.HasErrors())
}

func TestLexerNeverStops(t *testing.T) {
	// A bad character must not prevent later tokens from scanning.
	tokens, bag := tokenize(t, "var ` x")
	assert.True(t, bag.HasErrors())

	got := kinds(tokens)
	assert.Contains(t, got, TokenVar)
	assert.Contains(t, got, TokenIdent)
	assert.Equal(t, TokenEOF, got[len(got)-1])
}
