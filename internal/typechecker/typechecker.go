// Package typechecker assigns a type to every expression and verifies
// statement well-formedness: assignment compatibility, condition
// types, call signatures, interface conformance and return paths.
// There is no implicit numeric coercion anywhere; int and float never
// mix silently.
package typechecker

import (
	"strings"

	"github.com/mavrukin/sinter-lang/internal/ast"
	"github.com/mavrukin/sinter-lang/internal/cfg"
	"github.com/mavrukin/sinter-lang/internal/diagnostics"
	"github.com/mavrukin/sinter-lang/internal/resolver"
	"github.com/mavrukin/sinter-lang/internal/types"
)

// CalleeKind discriminates resolved call targets.
type CalleeKind int

const (
	CalleeFunction CalleeKind = iota
	CalleeMethod
	CalleeInterface
	CalleeStatic
	CalleeBuiltin
	CalleeAccessor
)

// Callee is the resolved target of one call expression, recorded for
// the code generator.
type Callee struct {
	Kind     CalleeKind
	Function *resolver.FunctionInfo
	Method   *resolver.MethodInfo
	Builtin  string              // release, clean, as_json, as_xml, from_json, from_xml
	Class    *resolver.ClassInfo // receiver class for methods, statics and builtins

	// Interface dispatch: the receiver's static type is an interface
	// pointer, resolved at run time through the itable.
	Iface       *resolver.InterfaceInfo
	IfaceMethod *resolver.MethodSigInfo

	// Accessor dispatch: a call to a get/set accessor synthesized
	// from a field annotation. Class is the declaring class.
	Field    *resolver.Symbol
	Accessor string
}

// Info is the type checker's output.
type Info struct {
	// Types maps every checked expression to its type.
	Types map[ast.Expr]*types.Type
	// Callees maps each call to its resolved target.
	Callees map[*ast.CallExpr]*Callee
	// Graphs caches the control-flow graph built per callable body,
	// reused by the cleanup validator.
	Graphs map[*ast.BlockStmt]*cfg.Graph
}

// TypeOf returns the recorded type of expr, or nil.
func (i *Info) TypeOf(expr ast.Expr) *types.Type {
	return i.Types[expr]
}

// Checker walks one resolved program.
type Checker struct {
	res *resolver.Resolution
	bag *diagnostics.Bag
	reg *types.Registry
	info *Info

	// Per-body state.
	result    *types.Type
	class     *resolver.ClassInfo // nil in free functions and statics
	loopDepth int
}

// Check verifies the resolved program and returns the type info.
func Check(res *resolver.Resolution, bag *diagnostics.Bag) *Info {
	c := &Checker{
		res: res,
		bag: bag,
		reg: res.Registry,
		info: &Info{
			Types:   make(map[ast.Expr]*types.Type),
			Callees: make(map[*ast.CallExpr]*Callee),
			Graphs:  make(map[*ast.BlockStmt]*cfg.Graph),
		},
	}

	for _, class := range res.ClassList {
		c.checkClass(class)
	}
	for _, fn := range res.FuncList {
		c.checkCallable(fn.Decl.Body, fn.Sig.Result, nil, fn.Decl)
	}
	return c.info
}

func (c *Checker) errorf(code diagnostics.Code, node ast.Node, format string, args ...interface{}) {
	c.bag.Errorf(diagnostics.CategoryType, code, node.Span(), format, args...)
}

func (c *Checker) checkClass(class *resolver.ClassInfo) {
	c.checkFieldInitializers(class)
	c.checkConformance(class)

	for _, method := range class.Decl.Methods {
		info := c.methodInfoFor(class, method)
		if info == nil {
			continue // duplicate dropped by the resolver
		}
		owner := class
		if method.Static {
			owner = nil
		}
		c.checkCallable(method.Body, info.Sig.Result, owner, method)
	}
}

func (c *Checker) methodInfoFor(class *resolver.ClassInfo, decl *ast.MethodDecl) *resolver.MethodInfo {
	for _, m := range class.Methods[decl.Name] {
		if m.Decl == decl {
			return m
		}
	}
	return nil
}

// checkFieldInitializers verifies that every field initializer is a
// constant of the field's type. Allocation happens in generated
// constructors, so only constant defaults are permitted.
func (c *Checker) checkFieldInitializers(class *resolver.ClassInfo) {
	for i, field := range class.Decl.Fields {
		if i >= len(class.Fields) {
			break
		}
		sym := class.LookupField(field.Name)
		if field.Init == nil || sym == nil || sym.Type == nil {
			continue
		}
		if !isConstant(field.Init) {
			c.errorf(diagnostics.CodeTypeMismatch, field.Init,
				"field '%s' initializer must be a constant", field.Name)
			continue
		}
		got := c.checkExprExpecting(field.Init, sym.Type)
		if got != nil && !c.assignable(sym.Type, got) {
			c.errorf(diagnostics.CodeTypeMismatch, field.Init,
				"cannot initialize field '%s' of type '%s' with '%s'", field.Name, sym.Type, got)
		}
	}
}

func isConstant(expr ast.Expr) bool {
	switch expr.(type) {
	case *ast.IntLit, *ast.FloatLit, *ast.StringLit, *ast.BoolLit, *ast.NullLit:
		return true
	}
	return false
}

// checkConformance verifies every implemented interface, reporting
// one diagnostic per missing or mismatched method. Inherited method
// definitions satisfy an interface.
func (c *Checker) checkConformance(class *resolver.ClassInfo) {
	for _, iface := range class.Interfaces {
		for _, want := range iface.Methods {
			candidates := class.LookupMethod(want.Decl.Name)
			if len(candidates) == 0 {
				c.errorf(diagnostics.CodeInterfaceConformance, class.Decl,
					"class '%s' does not implement method '%s%s' of interface '%s'",
					class.Decl.Name, want.Decl.Name, want.Sig, iface.Decl.Name)
				continue
			}
			matched := false
			for _, m := range candidates {
				if m.Sig.Equal(want.Sig) && !m.Decl.Static {
					matched = true
					break
				}
			}
			if !matched {
				var got []string
				for _, m := range candidates {
					got = append(got, m.Sig.String())
				}
				c.errorf(diagnostics.CodeInterfaceConformance, class.Decl,
					"class '%s' implements '%s' with wrong signature: interface requires '%s%s', class defines '%s%s'",
					class.Decl.Name, iface.Decl.Name,
					want.Decl.Name, want.Sig, want.Decl.Name, strings.Join(got, "', '"))
			}
		}
	}
}

// checkCallable checks one body against its declared result type.
func (c *Checker) checkCallable(body *ast.BlockStmt, result *types.Type, class *resolver.ClassInfo, decl ast.Node) {
	if body == nil {
		return
	}
	c.result = result
	c.class = class
	c.loopDepth = 0

	c.checkBlock(body)

	graph := cfg.Build(body)
	c.info.Graphs[body] = graph
	if result != nil && result.Kind != types.KindVoid && graph.FallsToExit() {
		c.bag.Errorf(diagnostics.CategoryType, diagnostics.CodeMissingReturn, decl.Span(),
			"missing return: not all paths return a value of type '%s'", result)
	}
}

func (c *Checker) checkBlock(block *ast.BlockStmt) {
	for _, stmt := range block.Stmts {
		c.checkStmt(stmt)
	}
}

func (c *Checker) checkStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		c.checkBlock(s)

	case *ast.VarDeclStmt:
		sym := c.res.VarSymbols[s]
		if sym == nil || sym.Type == nil {
			if s.Init != nil {
				c.checkExpr(s.Init)
			}
			return
		}
		if s.Init != nil {
			got := c.checkExprExpecting(s.Init, sym.Type)
			if got != nil && !c.assignable(sym.Type, got) {
				c.errorf(diagnostics.CodeTypeMismatch, s.Init,
					"cannot assign '%s' to variable '%s' of type '%s'", got, s.Name, sym.Type)
			}
		}

	case *ast.ExprStmt:
		c.checkExpr(s.X)

	case *ast.ReturnStmt:
		c.checkReturn(s)

	case *ast.IfStmt:
		c.checkCondition(s.Cond, "if")
		c.checkBlock(s.Then)
		if s.Else != nil {
			c.checkBlock(s.Else)
		}

	case *ast.WhileStmt:
		c.checkCondition(s.Cond, "while")
		c.loopDepth++
		c.checkBlock(s.Body)
		c.loopDepth--

	case *ast.ForStmt:
		if s.Init != nil {
			c.checkStmt(s.Init)
		}
		if s.Cond != nil {
			c.checkCondition(s.Cond, "for")
		}
		if s.Post != nil {
			c.checkExpr(s.Post)
		}
		c.loopDepth++
		c.checkBlock(s.Body)
		c.loopDepth--

	case *ast.BreakStmt:
		if c.loopDepth == 0 {
			c.errorf(diagnostics.CodeTypeMismatch, s, "break outside of a loop")
		}

	case *ast.ContinueStmt:
		if c.loopDepth == 0 {
			c.errorf(diagnostics.CodeTypeMismatch, s, "continue outside of a loop")
		}

	case *ast.PrintStmt:
		for _, arg := range s.Args {
			if t := c.checkExpr(arg); t != nil && t.Kind == types.KindVoid {
				c.errorf(diagnostics.CodeTypeMismatch, arg, "cannot print a void value")
			}
		}
	}
}

func (c *Checker) checkCondition(cond ast.Expr, construct string) {
	t := c.checkExpr(cond)
	if t != nil && t.Kind != types.KindBoolean {
		c.errorf(diagnostics.CodeTypeMismatch, cond,
			"%s condition must be 'boolean', found '%s'", construct, t)
	}
}

func (c *Checker) checkReturn(s *ast.ReturnStmt) {
	if c.result == nil {
		return
	}
	if s.Value == nil {
		if c.result.Kind != types.KindVoid {
			c.errorf(diagnostics.CodeTypeMismatch, s,
				"missing return value: expected '%s'", c.result)
		}
		return
	}
	if c.result.Kind == types.KindVoid {
		c.errorf(diagnostics.CodeTypeMismatch, s, "void function cannot return a value")
		return
	}
	got := c.checkExprExpecting(s.Value, c.result)
	if got != nil && !c.assignable(c.result, got) {
		c.errorf(diagnostics.CodeTypeMismatch, s,
			"cannot return '%s' from a function returning '%s'", got, c.result)
	}
}

// assignable reports whether a value of type src may flow into a
// location of type dst.
func (c *Checker) assignable(dst, src *types.Type) bool {
	if dst == nil || src == nil {
		return false
	}
	if dst == src {
		return true
	}
	// null is assignable to every pointer type.
	if src.Kind == types.KindNull && dst.Kind == types.KindPointer {
		return true
	}
	// Reading a d-string yields its rendered text.
	if src.Kind == types.KindDStr && dst.Kind == types.KindStr {
		return true
	}
	// Pointer assignability follows nominal subtyping of the pointees.
	if dst.Kind == types.KindPointer && src.Kind == types.KindPointer {
		return c.subtypeOf(dst.Elem, src.Elem)
	}
	return c.subtypeOf(dst, src)
}

// subtypeOf reports whether src is dst or below dst in the nominal
// hierarchy: class extends chain, or class implementing an interface.
func (c *Checker) subtypeOf(dst, src *types.Type) bool {
	if dst == src {
		return true
	}
	if src.Kind != types.KindClass {
		return false
	}
	srcClass := c.res.Classes[src.Name]
	if srcClass == nil {
		return false
	}
	switch dst.Kind {
	case types.KindClass:
		dstClass := c.res.Classes[dst.Name]
		return dstClass != nil && srcClass.HasAncestor(dstClass)
	case types.KindInterface:
		dstIface := c.res.Interfaces[dst.Name]
		return dstIface != nil && srcClass.ImplementsInterface(dstIface)
	}
	return false
}
