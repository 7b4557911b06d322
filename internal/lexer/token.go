package lexer

import (
	"fmt"

	"github.com/mavrukin/sinter-lang/internal/position"
)

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenError

	// Identifiers and literals.
	TokenIdent
	TokenIntLit
	TokenFloatLit
	TokenStringLit
	TokenDStringLit
	TokenAnnotation // whole @attribute(...) marker, one token

	// Keywords.
	TokenClass
	TokenInterface
	TokenFunction
	TokenMethod
	TokenParametrized
	TokenExtends
	TokenImplements
	TokenPrivate
	TokenProtected
	TokenPublic
	TokenVar
	TokenConst
	TokenReturn
	TokenIf
	TokenElse
	TokenWhile
	TokenFor
	TokenIn
	TokenBreak
	TokenContinue
	TokenTrue
	TokenFalse
	TokenNull
	TokenNew
	TokenPrint
	TokenPrintln

	// Type keywords.
	TokenTypeInt
	TokenTypeFloat
	TokenTypeDouble
	TokenTypeBoolean
	TokenTypeStr
	TokenTypeVoid

	// Operators.
	TokenAssign       // =
	TokenPlus         // +
	TokenMinus        // -
	TokenStar         // * (multiply, pointer, dereference)
	TokenSlash        // /
	TokenPercent      // %
	TokenEq           // ==
	TokenNeq          // !=
	TokenLt           // <
	TokenGt           // >
	TokenLe           // <=
	TokenGe           // >=
	TokenAndAnd       // &&
	TokenOrOr         // ||
	TokenNot          // !
	TokenAmp          // & (address-of)
	TokenArrow        // ->
	TokenInc          // ++
	TokenDec          // --
	TokenPlusAssign   // +=
	TokenMinusAssign  // -=
	TokenStarAssign   // *=
	TokenSlashAssign  // /=

	// Punctuation.
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
	TokenComma
	TokenSemicolon
	TokenColon
	TokenDot
)

var kindNames = map[TokenKind]string{
	TokenEOF:          "EOF",
	TokenError:        "error",
	TokenIdent:        "identifier",
	TokenIntLit:       "integer literal",
	TokenFloatLit:     "float literal",
	TokenStringLit:    "string literal",
	TokenDStringLit:   "d-string literal",
	TokenAnnotation:   "annotation",
	TokenClass:        "'class'",
	TokenInterface:    "'interface'",
	TokenFunction:     "'function'",
	TokenMethod:       "'method'",
	TokenParametrized: "'parametrized'",
	TokenExtends:      "'extends'",
	TokenImplements:   "'implements'",
	TokenPrivate:      "'private'",
	TokenProtected:    "'protected'",
	TokenPublic:       "'public'",
	TokenVar:          "'var'",
	TokenConst:        "'const'",
	TokenReturn:       "'return'",
	TokenIf:           "'if'",
	TokenElse:         "'else'",
	TokenWhile:        "'while'",
	TokenFor:          "'for'",
	TokenIn:           "'in'",
	TokenBreak:        "'break'",
	TokenContinue:     "'continue'",
	TokenTrue:         "'true'",
	TokenFalse:        "'false'",
	TokenNull:         "'null'",
	TokenNew:          "'new'",
	TokenPrint:        "'print'",
	TokenPrintln:      "'println'",
	TokenTypeInt:      "'int'",
	TokenTypeFloat:    "'float'",
	TokenTypeDouble:   "'double'",
	TokenTypeBoolean:  "'boolean'",
	TokenTypeStr:      "'str'",
	TokenTypeVoid:     "'void'",
	TokenAssign:       "'='",
	TokenPlus:         "'+'",
	TokenMinus:        "'-'",
	TokenStar:         "'*'",
	TokenSlash:        "'/'",
	TokenPercent:      "'%'",
	TokenEq:           "'=='",
	TokenNeq:          "'!='",
	TokenLt:           "'<'",
	TokenGt:           "'>'",
	TokenLe:           "'<='",
	TokenGe:           "'>='",
	TokenAndAnd:       "'&&'",
	TokenOrOr:         "'||'",
	TokenNot:          "'!'",
	TokenAmp:          "'&'",
	TokenArrow:        "'->'",
	TokenInc:          "'++'",
	TokenDec:          "'--'",
	TokenPlusAssign:   "'+='",
	TokenMinusAssign:  "'-='",
	TokenStarAssign:   "'*='",
	TokenSlashAssign:  "'/='",
	TokenLParen:       "'('",
	TokenRParen:       "')'",
	TokenLBrace:       "'{'",
	TokenRBrace:       "'}'",
	TokenLBracket:     "'['",
	TokenRBracket:     "']'",
	TokenComma:        "','",
	TokenSemicolon:    "';'",
	TokenColon:        "':'",
	TokenDot:          "'.'",
}

// String returns the display name of the token kind
func (k TokenKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

var keywords = map[string]TokenKind{
	"class":        TokenClass,
	"interface":    TokenInterface,
	"function":     TokenFunction,
	"method":       TokenMethod,
	"parametrized": TokenParametrized,
	"extends":      TokenExtends,
	"implements":   TokenImplements,
	"private":      TokenPrivate,
	"protected":    TokenProtected,
	"public":       TokenPublic,
	"var":          TokenVar,
	"const":        TokenConst,
	"return":       TokenReturn,
	"if":           TokenIf,
	"else":         TokenElse,
	"while":        TokenWhile,
	"for":          TokenFor,
	"in":           TokenIn,
	"break":        TokenBreak,
	"continue":     TokenContinue,
	"true":         TokenTrue,
	"false":        TokenFalse,
	"null":         TokenNull,
	"new":          TokenNew,
	"print":        TokenPrint,
	"println":      TokenPrintln,
	"int":          TokenTypeInt,
	"float":        TokenTypeFloat,
	"double":       TokenTypeDouble,
	"boolean":      TokenTypeBoolean,
	"str":          TokenTypeStr,
	"void":         TokenTypeVoid,
}

// Token is one lexical unit of a Sinter source file.
type Token struct {
	Kind   TokenKind
	Lexeme string // literal/identifier text; for string kinds the unescaped value
	Span   position.Span
}

// String renders the token for debug output (--tokens flag).
func (t Token) String() string {
	switch t.Kind {
	case TokenIdent, TokenIntLit, TokenFloatLit:
		return fmt.Sprintf("%s(%s) at %s", t.Kind, t.Lexeme, t.Span.Start)
	case TokenStringLit, TokenDStringLit, TokenAnnotation:
		return fmt.Sprintf("%s(%q) at %s", t.Kind, t.Lexeme, t.Span.Start)
	default:
		return fmt.Sprintf("%s at %s", t.Kind, t.Span.Start)
	}
}

// IsTypeKeyword reports whether the token can start a type name.
func (t Token) IsTypeKeyword() bool {
	switch t.Kind {
	case TokenTypeInt, TokenTypeFloat, TokenTypeDouble, TokenTypeBoolean, TokenTypeStr, TokenTypeVoid:
		return true
	}
	return false
}
