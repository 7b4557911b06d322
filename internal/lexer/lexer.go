// Package lexer turns Sinter source text into a token stream. The
// lexer never aborts: malformed input produces TokenError tokens and
// a diagnostic, and scanning continues at the next character.
package lexer

import (
	"strings"

	"github.com/mavrukin/sinter-lang/internal/diagnostics"
	"github.com/mavrukin/sinter-lang/internal/position"
)

// Lexer scans one source file.
type Lexer struct {
	file   *position.SourceFile
	src    string
	offset int
	line   int
	column int
	bag    *diagnostics.Bag
}

// New creates a lexer over the given source file, reporting problems
// into bag.
func New(file *position.SourceFile, bag *diagnostics.Bag) *Lexer {
	return &Lexer{
		file:   file,
		src:    file.Content,
		line:   1,
		column: 1,
		bag:    bag,
	}
}

// Tokenize scans the whole file and returns the token stream,
// terminated by an EOF token.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		tok := l.Next()
		tokens = append(tokens, tok)
		if tok.Kind == TokenEOF {
			return tokens
		}
	}
}

func (l *Lexer) pos() position.Position {
	return position.Position{
		Filename: l.file.Filename,
		Line:     l.line,
		Column:   l.column,
		Offset:   l.offset,
	}
}

func (l *Lexer) peek() byte {
	if l.offset >= len(l.src) {
		return 0
	}
	return l.src[l.offset]
}

func (l *Lexer) peekAt(n int) byte {
	if l.offset+n >= len(l.src) {
		return 0
	}
	return l.src[l.offset+n]
}

func (l *Lexer) advance() byte {
	ch := l.src[l.offset]
	l.offset++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}

func (l *Lexer) skipWhitespaceAndComments() {
	for l.offset < len(l.src) {
		switch ch := l.peek(); {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()
		case ch == '/' && l.peekAt(1) == '/':
			for l.offset < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
		case ch == '/' && l.peekAt(1) == '*':
			start := l.pos()
			l.advance()
			l.advance()
			closed := false
			for l.offset < len(l.src) {
				if l.peek() == '*' && l.peekAt(1) == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				l.advance()
			}
			if !closed {
				l.bag.Errorf(diagnostics.CategoryLexical, diagnostics.CodeInvalidToken,
					position.NewSpan(start, l.pos()), "unterminated block comment")
			}
		default:
			return
		}
	}
}

// Next scans and returns the next token.
func (l *Lexer) Next() Token {
	l.skipWhitespaceAndComments()

	start := l.pos()
	if l.offset >= len(l.src) {
		return Token{Kind: TokenEOF, Span: position.NewSpan(start, start)}
	}

	ch := l.peek()

	switch {
	case isDigit(ch):
		return l.scanNumber(start)
	case ch == 'D' && (l.peekAt(1) == '"' || l.peekAt(1) == '\''):
		return l.scanDString(start)
	case isIdentStart(ch):
		return l.scanIdent(start)
	case ch == '"' || ch == '\'':
		return l.scanString(start, ch, TokenStringLit)
	case ch == '@':
		return l.scanAnnotation(start)
	}

	return l.scanOperator(start)
}

func (l *Lexer) make(kind TokenKind, start position.Position, lexeme string) Token {
	return Token{Kind: kind, Lexeme: lexeme, Span: position.NewSpan(start, l.pos())}
}

func (l *Lexer) scanIdent(start position.Position) Token {
	for l.offset < len(l.src) && isIdentPart(l.peek()) {
		l.advance()
	}
	text := l.src[start.Offset:l.offset]
	if kind, ok := keywords[text]; ok {
		return l.make(kind, start, text)
	}
	return l.make(TokenIdent, start, text)
}

func (l *Lexer) scanNumber(start position.Position) Token {
	for l.offset < len(l.src) && isDigit(l.peek()) {
		l.advance()
	}
	kind := TokenIntLit
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		kind = TokenFloatLit
		l.advance()
		for l.offset < len(l.src) && isDigit(l.peek()) {
			l.advance()
		}
	}
	return l.make(kind, start, l.src[start.Offset:l.offset])
}

// scanString scans a quoted literal, unescaping as it goes.
func (l *Lexer) scanString(start position.Position, quote byte, kind TokenKind) Token {
	l.advance() // opening quote
	var sb strings.Builder
	for l.offset < len(l.src) {
		ch := l.peek()
		if ch == quote {
			l.advance()
			return l.make(kind, start, sb.String())
		}
		if ch == '\n' {
			break
		}
		if ch == '\\' {
			l.advance()
			if l.offset >= len(l.src) {
				break
			}
			switch esc := l.advance(); esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '\'', '"':
				sb.WriteByte(esc)
			case '0':
				sb.WriteByte(0)
			default:
				l.bag.Errorf(diagnostics.CategoryLexical, diagnostics.CodeInvalidToken,
					position.NewSpan(start, l.pos()), "unknown escape sequence '\\%c'", esc)
				sb.WriteByte(esc)
			}
			continue
		}
		sb.WriteByte(ch)
		l.advance()
	}
	l.bag.Errorf(diagnostics.CategoryLexical, diagnostics.CodeInvalidToken,
		position.NewSpan(start, l.pos()), "unterminated string literal")
	return l.make(TokenError, start, sb.String())
}

// scanDString scans D"..." keeping the raw template text so the
// {name} substitution slots survive for the parser.
func (l *Lexer) scanDString(start position.Position) Token {
	l.advance() // the D prefix
	quote := l.peek()
	tok := l.scanString(l.pos(), quote, TokenDStringLit)
	tok.Span = position.NewSpan(start, tok.Span.End)
	if tok.Kind == TokenError {
		return tok
	}
	tok.Kind = TokenDStringLit
	return tok
}

// scanAnnotation scans an @name(...) marker as a single token whose
// lexeme is the text between the parentheses, or "" for a bare @name.
func (l *Lexer) scanAnnotation(start position.Position) Token {
	l.advance() // '@'
	if !isIdentStart(l.peek()) {
		l.bag.Errorf(diagnostics.CategoryLexical, diagnostics.CodeInvalidToken,
			position.NewSpan(start, l.pos()), "expected annotation name after '@'")
		return l.make(TokenError, start, "@")
	}
	nameStart := l.offset
	for l.offset < len(l.src) && isIdentPart(l.peek()) {
		l.advance()
	}
	name := l.src[nameStart:l.offset]
	if name != "attribute" {
		l.bag.Errorf(diagnostics.CategoryLexical, diagnostics.CodeInvalidToken,
			position.NewSpan(start, l.pos()), "unknown annotation '@%s'", name)
	}

	body := ""
	if l.peek() == '(' {
		l.advance()
		bodyStart := l.offset
		for l.offset < len(l.src) && l.peek() != ')' {
			l.advance()
		}
		if l.peek() != ')' {
			l.bag.Errorf(diagnostics.CategoryLexical, diagnostics.CodeInvalidToken,
				position.NewSpan(start, l.pos()), "unterminated annotation")
			return l.make(TokenError, start, "")
		}
		body = l.src[bodyStart:l.offset]
		l.advance()
	}
	return l.make(TokenAnnotation, start, body)
}

func (l *Lexer) scanOperator(start position.Position) Token {
	ch := l.advance()

	two := func(next byte, withNext, alone TokenKind) Token {
		if l.peek() == next {
			l.advance()
			return l.make(withNext, start, l.src[start.Offset:l.offset])
		}
		return l.make(alone, start, string(ch))
	}

	switch ch {
	case '+':
		if l.peek() == '+' {
			l.advance()
			return l.make(TokenInc, start, "++")
		}
		return two('=', TokenPlusAssign, TokenPlus)
	case '-':
		switch l.peek() {
		case '-':
			l.advance()
			return l.make(TokenDec, start, "--")
		case '>':
			l.advance()
			return l.make(TokenArrow, start, "->")
		}
		return two('=', TokenMinusAssign, TokenMinus)
	case '*':
		return two('=', TokenStarAssign, TokenStar)
	case '/':
		return two('=', TokenSlashAssign, TokenSlash)
	case '%':
		return l.make(TokenPercent, start, "%")
	case '=':
		return two('=', TokenEq, TokenAssign)
	case '!':
		return two('=', TokenNeq, TokenNot)
	case '<':
		return two('=', TokenLe, TokenLt)
	case '>':
		return two('=', TokenGe, TokenGt)
	case '&':
		return two('&', TokenAndAnd, TokenAmp)
	case '|':
		if l.peek() == '|' {
			l.advance()
			return l.make(TokenOrOr, start, "||")
		}
	case '(':
		return l.make(TokenLParen, start, "(")
	case ')':
		return l.make(TokenRParen, start, ")")
	case '{':
		return l.make(TokenLBrace, start, "{")
	case '}':
		return l.make(TokenRBrace, start, "}")
	case '[':
		return l.make(TokenLBracket, start, "[")
	case ']':
		return l.make(TokenRBracket, start, "]")
	case ',':
		return l.make(TokenComma, start, ",")
	case ';':
		return l.make(TokenSemicolon, start, ";")
	case ':':
		return l.make(TokenColon, start, ":")
	case '.':
		return l.make(TokenDot, start, ".")
	}

	l.bag.Errorf(diagnostics.CategoryLexical, diagnostics.CodeInvalidToken,
		position.NewSpan(start, l.pos()), "unexpected character %q", ch)
	return l.make(TokenError, start, string(ch))
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool { return isIdentStart(ch) || isDigit(ch) }
