package resolver

import (
	"github.com/mavrukin/sinter-lang/internal/ast"
	"github.com/mavrukin/sinter-lang/internal/diagnostics"
)

// bodyContext carries the state threaded through one body walk.
type bodyContext struct {
	scope *Scope
	class *ClassInfo // nil in free functions and static methods
}

// resolveBodies is the final pass: open a scope per function, block
// and loop header, and bind every identifier use.
func (r *Resolver) resolveBodies(prog *ast.Program) {
	if r.res.VarSymbols == nil {
		r.res.VarSymbols = make(map[*ast.VarDeclStmt]*Symbol)
		r.res.ParamSymbols = make(map[*ast.Param]*Symbol)
		r.res.DStringRefs = make(map[*ast.DStringLit][]*Symbol)
	}

	for _, class := range r.res.ClassList {
		for _, field := range class.Decl.Fields {
			if field.Init != nil {
				r.walkExpr(field.Init, &bodyContext{scope: class.Scope, class: class})
			}
		}
		for _, method := range class.Decl.Methods {
			ctx := &bodyContext{class: class}
			if method.Static {
				// Static methods see the class's type parameters but
				// not its instance fields.
				ctx.scope = NewScope(ScopeFunction, r.res.Global)
				ctx.class = nil
			} else {
				ctx.scope = NewScope(ScopeFunction, class.Scope)
			}
			r.walkCallable(method.Params, method.Body, ctx)
		}
	}

	for _, fn := range r.res.FuncList {
		ctx := &bodyContext{scope: NewScope(ScopeFunction, r.res.Global)}
		r.walkCallable(fn.Decl.Params, fn.Decl.Body, ctx)
	}
}

func (r *Resolver) walkCallable(params []*ast.Param, body *ast.BlockStmt, ctx *bodyContext) {
	for _, p := range params {
		var classScope *Scope
		if ctx.class != nil {
			classScope = ctx.class.Scope
		}
		sym := &Symbol{
			Name: p.Name,
			Kind: SymbolParam,
			Type: r.resolveTypeRef(p.Type, classScope),
			Decl: p,
			Span: p.Span(),
		}
		if prev := ctx.scope.Define(sym); prev != nil {
			r.errorf(diagnostics.CodeDuplicateDeclaration, p,
				"duplicate parameter '%s'", p.Name)
			continue
		}
		r.res.ParamSymbols[p] = sym
	}
	if body != nil {
		r.walkBlockInto(body, ctx)
	}
}

// walkBlockInto walks the block's statements in the current scope.
// Used where the caller already opened the scope (function bodies,
// loop bodies).
func (r *Resolver) walkBlockInto(block *ast.BlockStmt, ctx *bodyContext) {
	for _, stmt := range block.Stmts {
		r.walkStmt(stmt, ctx)
	}
}

func (r *Resolver) walkStmt(stmt ast.Stmt, ctx *bodyContext) {
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		inner := &bodyContext{scope: NewScope(ScopeBlock, ctx.scope), class: ctx.class}
		r.walkBlockInto(s, inner)

	case *ast.VarDeclStmt:
		// The initializer resolves before the name is introduced, so
		// `var x: int = x;` refers to an outer x or fails.
		if s.Init != nil {
			r.walkExpr(s.Init, ctx)
		}
		var classScope *Scope
		if ctx.class != nil {
			classScope = ctx.class.Scope
		}
		sym := &Symbol{
			Name: s.Name,
			Kind: SymbolVar,
			Type: r.resolveTypeRef(s.Type, classScope),
			Decl: s,
			Span: s.Span(),
		}
		if prev := ctx.scope.Define(sym); prev != nil {
			r.errorf(diagnostics.CodeDuplicateDeclaration, s,
				"'%s' is already declared in this scope", s.Name)
			return
		}
		r.res.VarSymbols[s] = sym

	case *ast.ExprStmt:
		r.walkExpr(s.X, ctx)

	case *ast.ReturnStmt:
		if s.Value != nil {
			r.walkExpr(s.Value, ctx)
		}

	case *ast.IfStmt:
		r.walkExpr(s.Cond, ctx)
		r.walkStmt(s.Then, ctx)
		if s.Else != nil {
			r.walkStmt(s.Else, ctx)
		}

	case *ast.WhileStmt:
		r.walkExpr(s.Cond, ctx)
		r.walkStmt(s.Body, ctx)

	case *ast.ForStmt:
		// The loop header opens its own scope so the induction
		// variable is invisible after the loop.
		header := &bodyContext{scope: NewScope(ScopeLoop, ctx.scope), class: ctx.class}
		if s.Init != nil {
			r.walkStmt(s.Init, header)
		}
		if s.Cond != nil {
			r.walkExpr(s.Cond, header)
		}
		if s.Post != nil {
			r.walkExpr(s.Post, header)
		}
		body := &bodyContext{scope: NewScope(ScopeBlock, header.scope), class: ctx.class}
		r.walkBlockInto(s.Body, body)

	case *ast.PrintStmt:
		for _, arg := range s.Args {
			r.walkExpr(arg, ctx)
		}

	case *ast.BreakStmt, *ast.ContinueStmt:
		// Loop context is validated by the type checker.
	}
}

func (r *Resolver) walkExpr(expr ast.Expr, ctx *bodyContext) {
	switch e := expr.(type) {
	case *ast.Ident:
		sym := ctx.scope.Lookup(e.Name)
		if sym == nil {
			r.errorf(diagnostics.CodeUnresolvedReference, e,
				"undefined identifier '%s'", e.Name)
			return
		}
		r.res.Bindings[e] = sym

	case *ast.BinaryExpr:
		r.walkExpr(e.X, ctx)
		r.walkExpr(e.Y, ctx)

	case *ast.UnaryExpr:
		r.walkExpr(e.X, ctx)

	case *ast.AssignExpr:
		r.walkExpr(e.Target, ctx)
		r.walkExpr(e.Value, ctx)

	case *ast.MemberExpr:
		r.walkExpr(e.X, ctx)

	case *ast.CallExpr:
		if callee, ok := e.Callee.(*ast.Ident); ok {
			r.resolveCallee(callee, ctx)
		} else {
			r.walkExpr(e.Callee, ctx)
		}
		for _, arg := range e.Args {
			r.walkExpr(arg, ctx)
		}

	case *ast.NewExpr:
		if _, ok := r.res.Classes[e.Class]; !ok {
			if _, isIface := r.res.Interfaces[e.Class]; isIface {
				r.errorf(diagnostics.CodeUnresolvedReference, e,
					"cannot instantiate interface '%s'", e.Class)
			} else {
				r.errorf(diagnostics.CodeUnresolvedReference, e,
					"unknown class '%s'", e.Class)
			}
		}
		for _, arg := range e.Args {
			r.walkExpr(arg, ctx)
		}

	case *ast.DStringLit:
		// Every substitution slot must name a variable visible at
		// the literal's position.
		var syms []*Symbol
		for _, name := range e.Refs {
			sym := ctx.scope.Lookup(name)
			if sym == nil {
				r.errorf(diagnostics.CodeUnresolvedReference, e,
					"d-string references undefined variable '%s'", name)
				continue
			}
			syms = append(syms, sym)
		}
		r.res.DStringRefs[e] = syms

	case *ast.IntLit, *ast.FloatLit, *ast.StringLit, *ast.BoolLit, *ast.NullLit:
		// Literals bind nothing.
	}
}

// resolveCallee binds an unqualified call target. Lookup order: the
// lexical scope chain (which puts class fields ahead of globals),
// then the enclosing class's methods including inherited ones, then
// free functions.
func (r *Resolver) resolveCallee(ident *ast.Ident, ctx *bodyContext) {
	for scope := ctx.scope; scope != nil; scope = scope.Parent {
		if sym := scope.LookupLocal(ident.Name); sym != nil {
			r.res.Bindings[ident] = sym
			return
		}
		// At the class level, methods resolve ahead of anything the
		// global scope might hold under the same name.
		if scope.Kind == ScopeClass && ctx.class != nil {
			if ms := ctx.class.LookupMethod(ident.Name); ms != nil {
				r.res.Bindings[ident] = &Symbol{
					Name: ident.Name,
					Kind: SymbolMethod,
					Decl: ms[0].Decl,
					Span: ident.Span(),
				}
				return
			}
		}
	}
	r.errorf(diagnostics.CodeUnresolvedReference, ident,
		"undefined function or method '%s'", ident.Name)
}
