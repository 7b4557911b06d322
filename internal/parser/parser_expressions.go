package parser

import (
	"strconv"

	"github.com/mavrukin/sinter-lang/internal/ast"
	"github.com/mavrukin/sinter-lang/internal/diagnostics"
	"github.com/mavrukin/sinter-lang/internal/lexer"
	"github.com/mavrukin/sinter-lang/internal/position"
)

// Expression grammar, loosest binding first:
// assignment, ||, &&, == !=, < > <= >=, + -, * / %, unary, postfix.

func (p *Parser) parseExpr() ast.Expr {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() ast.Expr {
	left := p.parseLogicalOr()

	switch p.current().Kind {
	case lexer.TokenAssign:
		p.advance()
		right := p.parseAssignment()
		return &ast.AssignExpr{
			Base:   ast.At(left.Span().Union(right.Span())),
			Target: left,
			Value:  right,
		}
	case lexer.TokenPlusAssign, lexer.TokenMinusAssign, lexer.TokenStarAssign, lexer.TokenSlashAssign:
		// Compound assignment desugars to target = target op value.
		op := p.advance()
		right := p.parseAssignment()
		span := left.Span().Union(right.Span())
		return &ast.AssignExpr{
			Base:   ast.At(span),
			Target: left,
			Value: &ast.BinaryExpr{
				Base: ast.At(span),
				Op:   op.Lexeme[:1],
				X:    left,
				Y:    right,
			},
		}
	}
	return left
}

// binaryLevel parses one precedence tier of left-associative
// operators.
func (p *Parser) binaryLevel(next func() ast.Expr, kinds ...lexer.TokenKind) ast.Expr {
	left := next()
	for {
		matched := false
		for _, kind := range kinds {
			if p.at(kind) {
				op := p.advance()
				right := next()
				left = &ast.BinaryExpr{
					Base: ast.At(left.Span().Union(right.Span())),
					Op:   op.Lexeme,
					X:    left,
					Y:    right,
				}
				matched = true
				break
			}
		}
		if !matched {
			return left
		}
	}
}

func (p *Parser) parseLogicalOr() ast.Expr {
	return p.binaryLevel(p.parseLogicalAnd, lexer.TokenOrOr)
}

func (p *Parser) parseLogicalAnd() ast.Expr {
	return p.binaryLevel(p.parseEquality, lexer.TokenAndAnd)
}

func (p *Parser) parseEquality() ast.Expr {
	return p.binaryLevel(p.parseRelational, lexer.TokenEq, lexer.TokenNeq)
}

func (p *Parser) parseRelational() ast.Expr {
	return p.binaryLevel(p.parseAdditive, lexer.TokenLt, lexer.TokenGt, lexer.TokenLe, lexer.TokenGe)
}

func (p *Parser) parseAdditive() ast.Expr {
	return p.binaryLevel(p.parseMultiplicative, lexer.TokenPlus, lexer.TokenMinus)
}

func (p *Parser) parseMultiplicative() ast.Expr {
	return p.binaryLevel(p.parseUnary, lexer.TokenStar, lexer.TokenSlash, lexer.TokenPercent)
}

func (p *Parser) parseUnary() ast.Expr {
	switch p.current().Kind {
	case lexer.TokenNot, lexer.TokenMinus, lexer.TokenStar, lexer.TokenAmp:
		op := p.advance()
		operand := p.parseUnary()
		return &ast.UnaryExpr{
			Base: ast.At(op.Span.Union(operand.Span())),
			Op:   op.Lexeme,
			X:    operand,
		}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()

	for {
		switch p.current().Kind {
		case lexer.TokenDot:
			p.advance()
			member := p.current()
			// Class.new() spells allocation as a member call.
			switch member.Kind {
			case lexer.TokenNew, lexer.TokenIdent:
				p.advance()
			default:
				p.errorf("expected member name, found %s", member.Kind)
				panic(syntaxAbort{})
			}
			expr = &ast.MemberExpr{
				Base:   ast.At(expr.Span().Union(member.Span)),
				X:      expr,
				Member: member.Lexeme,
			}
		case lexer.TokenLParen:
			p.advance()
			var args []ast.Expr
			for !p.at(lexer.TokenRParen) && !p.at(lexer.TokenEOF) {
				args = append(args, p.parseExpr())
				if !p.accept(lexer.TokenComma) {
					break
				}
			}
			end := p.expect(lexer.TokenRParen)
			expr = p.finishCall(expr, args, expr.Span().Union(end.Span))
		case lexer.TokenInc, lexer.TokenDec:
			op := p.advance()
			expr = &ast.UnaryExpr{
				Base:    ast.At(expr.Span().Union(op.Span)),
				Op:      op.Lexeme,
				X:       expr,
				Postfix: true,
			}
		default:
			return expr
		}
	}
}

// finishCall normalizes `ClassName.new(...)` into a NewExpr; every
// other callee stays a plain call.
func (p *Parser) finishCall(callee ast.Expr, args []ast.Expr, span position.Span) ast.Expr {
	if member, ok := callee.(*ast.MemberExpr); ok && member.Member == "new" {
		if ident, ok := member.X.(*ast.Ident); ok {
			return &ast.NewExpr{Base: ast.At(span), Class: ident.Name, Args: args}
		}
	}
	return &ast.CallExpr{Base: ast.At(span), Callee: callee, Args: args}
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.current()

	switch tok.Kind {
	case lexer.TokenIdent:
		p.advance()
		return &ast.Ident{Base: ast.At(tok.Span), Name: tok.Lexeme}

	case lexer.TokenIntLit:
		p.advance()
		value, err := strconv.ParseInt(tok.Lexeme, 10, 64)
		if err != nil {
			p.bag.Errorf(diagnostics.CategorySyntax, diagnostics.CodeSyntaxError,
				tok.Span, "integer literal %s out of range", tok.Lexeme)
		}
		return &ast.IntLit{Base: ast.At(tok.Span), Value: value, Text: tok.Lexeme}

	case lexer.TokenFloatLit:
		p.advance()
		value, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			p.bag.Errorf(diagnostics.CategorySyntax, diagnostics.CodeSyntaxError,
				tok.Span, "malformed float literal %s", tok.Lexeme)
		}
		return &ast.FloatLit{Base: ast.At(tok.Span), Value: value, Text: tok.Lexeme}

	case lexer.TokenStringLit:
		p.advance()
		return &ast.StringLit{Base: ast.At(tok.Span), Value: tok.Lexeme}

	case lexer.TokenDStringLit:
		p.advance()
		return &ast.DStringLit{
			Base:     ast.At(tok.Span),
			Template: tok.Lexeme,
			Refs:     ast.TemplateRefs(tok.Lexeme),
		}

	case lexer.TokenTrue, lexer.TokenFalse:
		p.advance()
		return &ast.BoolLit{Base: ast.At(tok.Span), Value: tok.Kind == lexer.TokenTrue}

	case lexer.TokenNull:
		p.advance()
		return &ast.NullLit{Base: ast.At(tok.Span)}

	case lexer.TokenNew:
		return p.parseNewExpr()

	case lexer.TokenLParen:
		p.advance()
		expr := p.parseExpr()
		p.expect(lexer.TokenRParen)
		return expr
	}

	p.errorf("expected expression, found %s", tok.Kind)
	panic(syntaxAbort{})
}

// parseNewExpr parses the prefix allocation form `new Class(...)`.
func (p *Parser) parseNewExpr() ast.Expr {
	start := p.expect(lexer.TokenNew)
	class := p.expect(lexer.TokenIdent)

	p.expect(lexer.TokenLParen)
	var args []ast.Expr
	for !p.at(lexer.TokenRParen) && !p.at(lexer.TokenEOF) {
		args = append(args, p.parseExpr())
		if !p.accept(lexer.TokenComma) {
			break
		}
	}
	end := p.expect(lexer.TokenRParen)

	return &ast.NewExpr{
		Base:  ast.At(start.Span.Union(end.Span)),
		Class: class.Lexeme,
		Args:  args,
	}
}
