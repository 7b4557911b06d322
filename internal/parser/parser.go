// Package parser builds a Sinter AST from the lexer's token stream.
// It is a hand-written recursive-descent parser with declaration-level
// recovery: a syntax error abandons the current top-level declaration
// and resynchronizes at the next one, so a single mistake does not
// hide the rest of the file.
package parser

import (
	"github.com/mavrukin/sinter-lang/internal/ast"
	"github.com/mavrukin/sinter-lang/internal/diagnostics"
	"github.com/mavrukin/sinter-lang/internal/lexer"
	"github.com/mavrukin/sinter-lang/internal/position"
)

// Parser consumes one token stream.
type Parser struct {
	tokens []lexer.Token
	pos    int
	bag    *diagnostics.Bag
}

// syntaxAbort is the panic sentinel used for declaration-level
// recovery. Only raised after the diagnostic has been recorded.
type syntaxAbort struct{}

// New creates a parser over tokens, reporting problems into bag.
func New(tokens []lexer.Token, bag *diagnostics.Bag) *Parser {
	return &Parser{tokens: tokens, bag: bag}
}

// Parse parses a whole compilation unit.
func Parse(file *position.SourceFile, bag *diagnostics.Bag) *ast.Program {
	tokens := lexer.New(file, bag).Tokenize()
	return New(tokens, bag).ParseProgram()
}

func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *Parser) peek() lexer.Token {
	if p.pos+1 >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) at(kind lexer.TokenKind) bool {
	return p.current().Kind == kind
}

func (p *Parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

// accept consumes the current token if it has the given kind.
func (p *Parser) accept(kind lexer.TokenKind) bool {
	if p.at(kind) {
		p.advance()
		return true
	}
	return false
}

// expect consumes a token of the given kind or aborts the current
// declaration with a diagnostic.
func (p *Parser) expect(kind lexer.TokenKind) lexer.Token {
	if p.at(kind) {
		return p.advance()
	}
	p.errorf("expected %s, found %s", kind, p.current().Kind)
	panic(syntaxAbort{})
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.bag.Errorf(diagnostics.CategorySyntax, diagnostics.CodeSyntaxError,
		p.current().Span, format, args...)
}

// sync skips tokens until the next plausible top-level declaration.
func (p *Parser) sync() {
	for !p.at(lexer.TokenEOF) {
		switch p.current().Kind {
		case lexer.TokenClass, lexer.TokenInterface, lexer.TokenFunction:
			return
		}
		p.advance()
	}
}

// ParseProgram parses until EOF.
func (p *Parser) ParseProgram() *ast.Program {
	start := p.current().Span
	prog := &ast.Program{}

	for !p.at(lexer.TokenEOF) {
		decl := p.parseTopLevel()
		if decl != nil {
			prog.Decls = append(prog.Decls, decl)
		}
	}

	prog.Spn = start.Union(p.current().Span)
	return prog
}

func (p *Parser) parseTopLevel() (decl ast.Decl) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(syntaxAbort); !ok {
				panic(r)
			}
			decl = nil
			p.sync()
		}
	}()

	switch p.current().Kind {
	case lexer.TokenClass:
		return p.parseClass()
	case lexer.TokenInterface:
		return p.parseInterface()
	case lexer.TokenFunction:
		return p.parseFunction()
	default:
		p.errorf("expected declaration, found %s", p.current().Kind)
		p.advance()
		p.sync()
		return nil
	}
}

// parseType parses a type name with optional pointer stars.
func (p *Parser) parseType() *ast.TypeRef {
	tok := p.current()
	if tok.Kind != lexer.TokenIdent && !tok.IsTypeKeyword() {
		p.errorf("expected type name, found %s", tok.Kind)
		panic(syntaxAbort{})
	}
	p.advance()

	ref := &ast.TypeRef{Base: ast.At(tok.Span), Name: tok.Lexeme}
	for p.at(lexer.TokenStar) {
		star := p.advance()
		ref.Stars++
		ref.Spn = ref.Spn.Union(star.Span)
	}
	return ref
}

func (p *Parser) parseClass() *ast.ClassDecl {
	start := p.expect(lexer.TokenClass)
	name := p.expect(lexer.TokenIdent)

	decl := &ast.ClassDecl{Base: ast.At(start.Span), Name: name.Lexeme}

	if p.accept(lexer.TokenParametrized) {
		p.expect(lexer.TokenLt)
		for !p.at(lexer.TokenGt) && !p.at(lexer.TokenEOF) {
			param := p.expect(lexer.TokenIdent)
			decl.TypeParams = append(decl.TypeParams, param.Lexeme)
			if !p.accept(lexer.TokenComma) {
				break
			}
		}
		p.expect(lexer.TokenGt)
	}

	if p.accept(lexer.TokenExtends) {
		base := p.expect(lexer.TokenIdent)
		decl.Extends = base.Lexeme
	}

	if p.accept(lexer.TokenImplements) {
		for {
			iface := p.expect(lexer.TokenIdent)
			decl.Implements = append(decl.Implements, iface.Lexeme)
			if !p.accept(lexer.TokenComma) {
				break
			}
		}
	}

	p.expect(lexer.TokenLBrace)

	// Members before the first visibility block are public.
	visibility := ast.VisibilityPublic
	for !p.at(lexer.TokenRBrace) && !p.at(lexer.TokenEOF) {
		switch p.current().Kind {
		case lexer.TokenPrivate:
			p.advance()
			p.expect(lexer.TokenColon)
			visibility = ast.VisibilityPrivate
		case lexer.TokenProtected:
			p.advance()
			p.expect(lexer.TokenColon)
			visibility = ast.VisibilityProtected
		case lexer.TokenPublic:
			p.advance()
			p.expect(lexer.TokenColon)
			visibility = ast.VisibilityPublic
		default:
			p.parseClassMember(decl, visibility)
		}
	}

	end := p.expect(lexer.TokenRBrace)
	decl.Spn = start.Span.Union(end.Span)
	return decl
}

func (p *Parser) parseClassMember(class *ast.ClassDecl, visibility ast.Visibility) {
	var annotation *ast.Annotation
	if p.at(lexer.TokenAnnotation) {
		tok := p.advance()
		parsed, unknown := ast.ParseAnnotation(tok.Lexeme, tok.Span)
		for _, flag := range unknown {
			p.bag.Errorf(diagnostics.CategoryAnnotation, diagnostics.CodeAnnotationConflict,
				tok.Span, "unknown annotation flag '%s'", flag)
		}
		annotation = parsed
	}

	switch p.current().Kind {
	case lexer.TokenMethod, lexer.TokenFunction:
		if annotation != nil {
			p.bag.Errorf(diagnostics.CategoryAnnotation, diagnostics.CodeAnnotationConflict,
				annotation.Span(), "annotations apply to fields, not methods")
		}
		class.Methods = append(class.Methods, p.parseMethod(visibility))
	case lexer.TokenVar, lexer.TokenConst:
		class.Fields = append(class.Fields, p.parseField(visibility, annotation))
	default:
		p.errorf("expected field or method declaration, found %s", p.current().Kind)
		panic(syntaxAbort{})
	}
}

func (p *Parser) parseField(visibility ast.Visibility, annotation *ast.Annotation) *ast.FieldDecl {
	start := p.current()
	isConst := p.at(lexer.TokenConst)
	p.advance() // var or const

	name := p.expect(lexer.TokenIdent)
	p.expect(lexer.TokenColon)
	typ := p.parseType()

	field := &ast.FieldDecl{
		Base:       ast.At(start.Span.Union(typ.Span())),
		Name:       name.Lexeme,
		Type:       typ,
		Const:      isConst,
		Annotation: annotation,
		Visibility: visibility,
	}
	if p.accept(lexer.TokenAssign) {
		field.Init = p.parseExpr()
	}
	// Trailing semicolons on fields are optional.
	p.accept(lexer.TokenSemicolon)
	return field
}

func (p *Parser) parseMethod(visibility ast.Visibility) *ast.MethodDecl {
	start := p.current()
	isStatic := p.at(lexer.TokenFunction)
	p.advance() // method or function

	name := p.expect(lexer.TokenIdent)
	params := p.parseParams()
	p.expect(lexer.TokenArrow)
	result := p.parseType()
	body := p.parseBlock()

	return &ast.MethodDecl{
		Base:       ast.At(start.Span.Union(body.Span())),
		Name:       name.Lexeme,
		Params:     params,
		Result:     result,
		Body:       body,
		Static:     isStatic,
		Visibility: visibility,
	}
}

func (p *Parser) parseInterface() *ast.InterfaceDecl {
	start := p.expect(lexer.TokenInterface)
	name := p.expect(lexer.TokenIdent)
	p.expect(lexer.TokenLBrace)

	decl := &ast.InterfaceDecl{Base: ast.At(start.Span), Name: name.Lexeme}
	for !p.at(lexer.TokenRBrace) && !p.at(lexer.TokenEOF) {
		p.expect(lexer.TokenMethod)
		mname := p.expect(lexer.TokenIdent)
		params := p.parseParams()
		p.expect(lexer.TokenArrow)
		result := p.parseType()
		end := p.expect(lexer.TokenSemicolon)

		decl.Methods = append(decl.Methods, &ast.MethodSig{
			Base:   ast.At(mname.Span.Union(end.Span)),
			Name:   mname.Lexeme,
			Params: params,
			Result: result,
		})
	}

	end := p.expect(lexer.TokenRBrace)
	decl.Spn = start.Span.Union(end.Span)
	return decl
}

func (p *Parser) parseFunction() *ast.FunctionDecl {
	start := p.expect(lexer.TokenFunction)
	name := p.expect(lexer.TokenIdent)
	params := p.parseParams()
	p.expect(lexer.TokenArrow)
	result := p.parseType()
	body := p.parseBlock()

	return &ast.FunctionDecl{
		Base:   ast.At(start.Span.Union(body.Span())),
		Name:   name.Lexeme,
		Params: params,
		Result: result,
		Body:   body,
	}
}

func (p *Parser) parseParams() []*ast.Param {
	p.expect(lexer.TokenLParen)
	var params []*ast.Param
	for !p.at(lexer.TokenRParen) && !p.at(lexer.TokenEOF) {
		name := p.expect(lexer.TokenIdent)
		p.expect(lexer.TokenColon)
		typ := p.parseType()
		params = append(params, &ast.Param{
			Base: ast.At(name.Span.Union(typ.Span())),
			Name: name.Lexeme,
			Type: typ,
		})
		if !p.accept(lexer.TokenComma) {
			break
		}
	}
	p.expect(lexer.TokenRParen)
	return params
}
