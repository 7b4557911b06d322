package parser

import (
	"github.com/mavrukin/sinter-lang/internal/ast"
	"github.com/mavrukin/sinter-lang/internal/lexer"
)

func (p *Parser) parseBlock() *ast.BlockStmt {
	start := p.expect(lexer.TokenLBrace)
	block := &ast.BlockStmt{Base: ast.At(start.Span)}
	for !p.at(lexer.TokenRBrace) && !p.at(lexer.TokenEOF) {
		block.Stmts = append(block.Stmts, p.parseStmt())
	}
	end := p.expect(lexer.TokenRBrace)
	block.Spn = start.Span.Union(end.Span)
	return block
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.current().Kind {
	case lexer.TokenReturn:
		return p.parseReturn()
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenWhile:
		return p.parseWhile()
	case lexer.TokenFor:
		return p.parseFor()
	case lexer.TokenVar:
		return p.parseVarDecl()
	case lexer.TokenBreak:
		tok := p.advance()
		end := p.expect(lexer.TokenSemicolon)
		return &ast.BreakStmt{Base: ast.At(tok.Span.Union(end.Span))}
	case lexer.TokenContinue:
		tok := p.advance()
		end := p.expect(lexer.TokenSemicolon)
		return &ast.ContinueStmt{Base: ast.At(tok.Span.Union(end.Span))}
	case lexer.TokenPrint:
		return p.parsePrint(false)
	case lexer.TokenPrintln:
		return p.parsePrint(true)
	default:
		expr := p.parseExpr()
		end := p.expect(lexer.TokenSemicolon)
		return &ast.ExprStmt{Base: ast.At(expr.Span().Union(end.Span)), X: expr}
	}
}

func (p *Parser) parseVarDecl() *ast.VarDeclStmt {
	start := p.expect(lexer.TokenVar)
	name := p.expect(lexer.TokenIdent)
	p.expect(lexer.TokenColon)
	typ := p.parseType()

	stmt := &ast.VarDeclStmt{
		Base: ast.At(start.Span),
		Name: name.Lexeme,
		Type: typ,
	}
	if p.accept(lexer.TokenAssign) {
		stmt.Init = p.parseExpr()
	}
	end := p.expect(lexer.TokenSemicolon)
	stmt.Spn = start.Span.Union(end.Span)
	return stmt
}

func (p *Parser) parseReturn() *ast.ReturnStmt {
	start := p.expect(lexer.TokenReturn)
	stmt := &ast.ReturnStmt{Base: ast.At(start.Span)}
	if !p.at(lexer.TokenSemicolon) {
		stmt.Value = p.parseExpr()
	}
	end := p.expect(lexer.TokenSemicolon)
	stmt.Spn = start.Span.Union(end.Span)
	return stmt
}

func (p *Parser) parseIf() *ast.IfStmt {
	start := p.expect(lexer.TokenIf)
	p.expect(lexer.TokenLParen)
	cond := p.parseExpr()
	p.expect(lexer.TokenRParen)
	then := p.parseBlock()

	stmt := &ast.IfStmt{
		Base: ast.At(start.Span.Union(then.Span())),
		Cond: cond,
		Then: then,
	}
	if p.accept(lexer.TokenElse) {
		stmt.Else = p.parseBlock()
		stmt.Spn = stmt.Spn.Union(stmt.Else.Span())
	}
	return stmt
}

func (p *Parser) parseWhile() *ast.WhileStmt {
	start := p.expect(lexer.TokenWhile)
	p.expect(lexer.TokenLParen)
	cond := p.parseExpr()
	p.expect(lexer.TokenRParen)
	body := p.parseBlock()

	return &ast.WhileStmt{
		Base: ast.At(start.Span.Union(body.Span())),
		Cond: cond,
		Body: body,
	}
}

// parseFor parses the three-clause loop. The init clause may declare
// an induction variable, which is scoped to the loop.
func (p *Parser) parseFor() *ast.ForStmt {
	start := p.expect(lexer.TokenFor)
	p.expect(lexer.TokenLParen)

	stmt := &ast.ForStmt{Base: ast.At(start.Span)}

	if !p.at(lexer.TokenSemicolon) {
		if p.at(lexer.TokenVar) {
			stmt.Init = p.parseForInit()
		} else {
			expr := p.parseExpr()
			stmt.Init = &ast.ExprStmt{Base: ast.At(expr.Span()), X: expr}
			p.expect(lexer.TokenSemicolon)
		}
	} else {
		p.expect(lexer.TokenSemicolon)
	}

	if !p.at(lexer.TokenSemicolon) {
		stmt.Cond = p.parseExpr()
	}
	p.expect(lexer.TokenSemicolon)

	if !p.at(lexer.TokenRParen) {
		stmt.Post = p.parseExpr()
	}
	p.expect(lexer.TokenRParen)

	stmt.Body = p.parseBlock()
	stmt.Spn = start.Span.Union(stmt.Body.Span())
	return stmt
}

// parseForInit parses `var name: type [= expr];` inside a for header.
func (p *Parser) parseForInit() *ast.VarDeclStmt {
	start := p.expect(lexer.TokenVar)
	name := p.expect(lexer.TokenIdent)
	p.expect(lexer.TokenColon)
	typ := p.parseType()

	decl := &ast.VarDeclStmt{
		Base: ast.At(start.Span.Union(typ.Span())),
		Name: name.Lexeme,
		Type: typ,
	}
	if p.accept(lexer.TokenAssign) {
		decl.Init = p.parseExpr()
		decl.Spn = decl.Spn.Union(decl.Init.Span())
	}
	p.expect(lexer.TokenSemicolon)
	return decl
}

func (p *Parser) parsePrint(newline bool) *ast.PrintStmt {
	start := p.advance() // print or println
	p.expect(lexer.TokenLParen)

	stmt := &ast.PrintStmt{Base: ast.At(start.Span), Newline: newline}
	for !p.at(lexer.TokenRParen) && !p.at(lexer.TokenEOF) {
		stmt.Args = append(stmt.Args, p.parseExpr())
		if !p.accept(lexer.TokenComma) {
			break
		}
	}
	p.expect(lexer.TokenRParen)
	end := p.expect(lexer.TokenSemicolon)
	stmt.Spn = start.Span.Union(end.Span)
	return stmt
}
