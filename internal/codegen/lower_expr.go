package codegen

import (
	"strconv"

	"github.com/mavrukin/sinter-lang/internal/annotations"
	"github.com/mavrukin/sinter-lang/internal/ast"
	"github.com/mavrukin/sinter-lang/internal/ir"
	"github.com/mavrukin/sinter-lang/internal/resolver"
	"github.com/mavrukin/sinter-lang/internal/typechecker"
	"github.com/mavrukin/sinter-lang/internal/types"
)

var binOpcodes = map[string]string{
	"+": "add", "-": "sub", "*": "mul", "/": "div", "%": "mod",
	"==": "eq", "!=": "ne",
	"<": "lt", "<=": "le", ">": "gt", ">=": "ge",
}

// lowerExpr lowers one expression and returns the register holding
// its value, or "" for void expressions.
func (b *fnBuilder) lowerExpr(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.IntLit:
		dst := b.temp()
		b.emit(ir.Const{Dst: dst, Type: "int", Value: strconv.FormatInt(e.Value, 10)})
		return dst

	case *ast.FloatLit:
		typ := "double"
		if t := b.typeOf(e); t != nil {
			typ = t.String()
		}
		dst := b.temp()
		b.emit(ir.Const{Dst: dst, Type: typ, Value: e.Text})
		return dst

	case *ast.StringLit:
		dst := b.temp()
		b.emit(ir.Const{Dst: dst, Type: "str", Value: e.Value})
		return dst

	case *ast.BoolLit:
		dst := b.temp()
		b.emit(ir.Const{Dst: dst, Type: "boolean", Value: strconv.FormatBool(e.Value)})
		return dst

	case *ast.NullLit:
		dst := b.temp()
		b.emit(ir.Const{Dst: dst, Type: "null", Value: "null"})
		return dst

	case *ast.DStringLit:
		return b.lowerDString(e)

	case *ast.Ident:
		return b.lowerIdent(e)

	case *ast.MemberExpr:
		obj := b.lowerExpr(e.X)
		return b.loadField(obj, b.staticClass(e.X), e.Member, e)

	case *ast.UnaryExpr:
		return b.lowerUnary(e)

	case *ast.BinaryExpr:
		return b.lowerBinary(e)

	case *ast.AssignExpr:
		b.lowerAssign(e)
		return ""

	case *ast.CallExpr:
		return b.lowerCall(e)

	case *ast.NewExpr:
		return b.lowerNew(e)
	}

	b.internal(expr, "unhandled expression %T", expr)
	return b.temp()
}

func (b *fnBuilder) lowerIdent(e *ast.Ident) string {
	sym := b.g.res.Bindings[e]
	if sym == nil {
		b.internal(e, "unbound identifier '%s'", e.Name)
		return b.temp()
	}
	switch sym.Kind {
	case resolver.SymbolVar, resolver.SymbolParam:
		dst := b.temp()
		b.emit(ir.Load{Dst: dst, Addr: b.slot(sym)})
		return dst
	case resolver.SymbolField:
		return b.loadField("%this", b.class, e.Name, e)
	}
	b.internal(e, "'%s' has no value", e.Name)
	return b.temp()
}

// loadField reads a field of an object. Derived fields have no
// stored value; reading one calls its computing method.
func (b *fnBuilder) loadField(obj string, class *resolver.ClassInfo, name string, at ast.Node) string {
	if plan := b.fieldPlan(class, name); plan != nil && plan.Derived != nil {
		dst := b.temp()
		b.emit(ir.Call{Dst: dst, Callee: b.g.methSyms[plan.Derived], Args: []string{obj}})
		return dst
	}
	className := ""
	if class != nil {
		className = class.Decl.Name
	}
	addr := b.temp()
	dst := b.temp()
	b.emit(ir.FieldAddr{Dst: addr, Obj: obj, Class: className, Field: name})
	b.emit(ir.Load{Dst: dst, Addr: addr})
	return dst
}

// fieldPlan finds the annotation plan for a possibly inherited field.
func (b *fnBuilder) fieldPlan(class *resolver.ClassInfo, name string) *annotations.FieldPlan {
	for cur := class; cur != nil; cur = cur.Super {
		if plan := b.g.meta.PlanFor(cur, name); plan != nil {
			return plan
		}
	}
	return nil
}

// staticClass resolves the class a member access statically binds
// to, auto-dereferencing one pointer level like the type checker.
func (b *fnBuilder) staticClass(recv ast.Expr) *resolver.ClassInfo {
	t := b.typeOf(recv)
	if t == nil {
		return nil
	}
	if t.Kind == types.KindPointer {
		t = t.Elem
	}
	if t.Kind != types.KindClass {
		return nil
	}
	return b.g.res.Classes[t.Name]
}

func (b *fnBuilder) lowerDString(e *ast.DStringLit) string {
	syms := b.g.res.DStringRefs[e]
	refs := make([]ir.DStrRef, 0, len(syms))
	for i, sym := range syms {
		if i >= len(e.Refs) {
			break
		}
		var addr string
		switch sym.Kind {
		case resolver.SymbolField:
			addr = b.temp()
			className := ""
			if b.class != nil {
				className = b.class.Decl.Name
			}
			b.emit(ir.FieldAddr{Dst: addr, Obj: "%this", Class: className, Field: sym.Name})
		default:
			addr = b.slot(sym)
		}
		refs = append(refs, ir.DStrRef{Name: e.Refs[i], Addr: addr})
	}
	dst := b.temp()
	b.emit(ir.DStrNew{Dst: dst, Template: e.Template, Refs: refs})
	return dst
}

func (b *fnBuilder) lowerUnary(e *ast.UnaryExpr) string {
	if e.Postfix {
		// i++ / i-- load, bump, store, yield the old value.
		addr, _ := b.lvalueAddr(e.X)
		old := b.temp()
		one := b.temp()
		next := b.temp()
		opc := "add"
		if e.Op == "--" {
			opc = "sub"
		}
		b.emit(ir.Load{Dst: old, Addr: addr})
		b.emit(ir.Const{Dst: one, Type: "int", Value: "1"})
		b.emit(ir.Bin{Opc: opc, Type: "int", Dst: next, LHS: old, RHS: one})
		b.emit(ir.Store{Addr: addr, Src: next})
		return old
	}

	switch e.Op {
	case "!":
		src := b.lowerExpr(e.X)
		dst := b.temp()
		b.emit(ir.Un{Opc: "not", Dst: dst, Src: src})
		return dst
	case "-":
		src := b.lowerExpr(e.X)
		dst := b.temp()
		b.emit(ir.Un{Opc: "neg", Dst: dst, Src: src})
		return dst
	case "*", "&":
		// Objects are reference values in the IR; dereference and
		// address-of collapse to the operand itself.
		return b.lowerExpr(e.X)
	}
	b.internal(e, "unhandled unary operator '%s'", e.Op)
	return b.temp()
}

func (b *fnBuilder) lowerBinary(e *ast.BinaryExpr) string {
	if e.Op == "&&" || e.Op == "||" {
		return b.lowerShortCircuit(e)
	}

	if e.Op == "+" {
		if t := b.typeOf(e); t != nil && t.Kind == types.KindStr {
			return b.lowerConcat(e)
		}
	}

	lhs := b.lowerExpr(e.X)
	rhs := b.lowerExpr(e.Y)
	opc, ok := binOpcodes[e.Op]
	if !ok {
		b.internal(e, "unhandled binary operator '%s'", e.Op)
		opc = "add"
	}
	dst := b.temp()
	b.emit(ir.Bin{Opc: opc, Type: b.operandType(e.X), Dst: dst, LHS: lhs, RHS: rhs})
	return dst
}

// operandType names the evaluation type of a binary operation for
// the instruction encoding.
func (b *fnBuilder) operandType(operand ast.Expr) string {
	t := b.typeOf(operand)
	if t == nil {
		return "int"
	}
	switch t.Kind {
	case types.KindPointer, types.KindNull:
		return "ptr"
	}
	return t.String()
}

// lowerShortCircuit lowers && and || through a result slot so the
// right operand only evaluates when it can still decide the outcome.
func (b *fnBuilder) lowerShortCircuit(e *ast.BinaryExpr) string {
	slot := b.tempSlot("sc")
	rhsL := b.label("sc.rhs")
	endL := b.label("sc.end")

	lhs := b.lowerExpr(e.X)
	b.emit(ir.Store{Addr: slot, Src: lhs})
	if e.Op == "&&" {
		b.emit(ir.BrCond{Cond: lhs, True: rhsL, False: endL})
	} else {
		b.emit(ir.BrCond{Cond: lhs, True: endL, False: rhsL})
	}

	b.newBlock(rhsL)
	rhs := b.lowerExpr(e.Y)
	b.emit(ir.Store{Addr: slot, Src: rhs})
	b.emit(ir.Br{Target: endL})

	b.newBlock(endL)
	dst := b.temp()
	b.emit(ir.Load{Dst: dst, Addr: slot})
	return dst
}

func (b *fnBuilder) lowerConcat(e *ast.BinaryExpr) string {
	lhs := b.lowerRead(e.X)
	rhs := b.lowerRead(e.Y)
	dst := b.temp()
	b.emit(ir.Call{Dst: dst, Callee: "rt.str_concat", Args: []string{lhs, rhs}})
	return dst
}

func (b *fnBuilder) lowerAssign(e *ast.AssignExpr) {
	addr, want := b.lvalueAddr(e.Target)
	value := b.lowerCoerced(e.Value, want)
	b.emit(ir.Store{Addr: addr, Src: value})
}

// lvalueAddr lowers an assignable expression to its address register
// and static type.
func (b *fnBuilder) lvalueAddr(target ast.Expr) (string, *types.Type) {
	switch t := target.(type) {
	case *ast.Ident:
		sym := b.g.res.Bindings[t]
		if sym == nil {
			b.internal(t, "unbound identifier '%s'", t.Name)
			return b.temp(), nil
		}
		if sym.Kind == resolver.SymbolField {
			className := ""
			if b.class != nil {
				className = b.class.Decl.Name
			}
			addr := b.temp()
			b.emit(ir.FieldAddr{Dst: addr, Obj: "%this", Class: className, Field: sym.Name})
			return addr, sym.Type
		}
		return b.slot(sym), sym.Type

	case *ast.MemberExpr:
		obj := b.lowerExpr(t.X)
		class := b.staticClass(t.X)
		className := ""
		if class != nil {
			className = class.Decl.Name
		}
		addr := b.temp()
		b.emit(ir.FieldAddr{Dst: addr, Obj: obj, Class: className, Field: t.Member})
		return addr, b.typeOf(t)

	case *ast.UnaryExpr:
		if t.Op == "*" && !t.Postfix {
			return b.lvalueAddr(t.X)
		}
	}
	b.internal(target, "expression is not assignable")
	return b.temp(), nil
}

func (b *fnBuilder) lowerCall(e *ast.CallExpr) string {
	callee := b.g.info.Callees[e]
	if callee == nil {
		b.internal(e, "call has no resolved target")
		return b.temp()
	}

	switch callee.Kind {
	case typechecker.CalleeFunction:
		args := b.lowerArgs(e.Args, callee.Function.Sig.Params)
		return b.emitCall(b.g.fnSyms[callee.Function], args, callee.Function.Sig.Result)

	case typechecker.CalleeMethod:
		recv := b.receiver(e)
		args := append([]string{recv}, b.lowerArgs(e.Args, callee.Method.Sig.Params)...)
		return b.emitCall(b.g.methSyms[callee.Method], args, callee.Method.Sig.Result)

	case typechecker.CalleeStatic:
		args := b.lowerArgs(e.Args, callee.Method.Sig.Params)
		return b.emitCall(b.g.methSyms[callee.Method], args, callee.Method.Sig.Result)

	case typechecker.CalleeInterface:
		recv := b.receiver(e)
		args := b.lowerArgs(e.Args, callee.IfaceMethod.Sig.Params)
		var dst string
		if r := callee.IfaceMethod.Sig.Result; r != nil && r.Kind != types.KindVoid {
			dst = b.temp()
		}
		b.emit(ir.CallVirt{
			Dst:       dst,
			Obj:       recv,
			Interface: callee.Iface.Decl.Name,
			Method:    callee.IfaceMethod.Decl.Name,
			Args:      args,
		})
		return dst

	case typechecker.CalleeBuiltin:
		return b.lowerBuiltin(e, callee)

	case typechecker.CalleeAccessor:
		recv := b.receiver(e)
		name := callee.Class.Decl.Name + "." + callee.Accessor
		if len(e.Args) == 0 {
			dst := b.temp()
			b.emit(ir.Call{Dst: dst, Callee: name, Args: []string{recv}})
			return dst
		}
		value := b.lowerCoerced(e.Args[0], callee.Field.Type)
		b.emit(ir.Call{Callee: name, Args: []string{recv, value}})
		return ""
	}

	b.internal(e, "unhandled callee kind")
	return b.temp()
}

// receiver lowers the object a method call dispatches on. A bare
// identifier callee is an unqualified call on the current instance.
func (b *fnBuilder) receiver(e *ast.CallExpr) string {
	if m, ok := e.Callee.(*ast.MemberExpr); ok {
		return b.lowerExpr(m.X)
	}
	return "%this"
}

func (b *fnBuilder) lowerArgs(args []ast.Expr, params []*types.Type) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		var want *types.Type
		if i < len(params) {
			want = params[i]
		}
		out[i] = b.lowerCoerced(arg, want)
	}
	return out
}

func (b *fnBuilder) emitCall(name string, args []string, result *types.Type) string {
	var dst string
	if result != nil && result.Kind != types.KindVoid {
		dst = b.temp()
	}
	b.emit(ir.Call{Dst: dst, Callee: name, Args: args})
	return dst
}

func (b *fnBuilder) lowerBuiltin(e *ast.CallExpr, callee *typechecker.Callee) string {
	member, _ := e.Callee.(*ast.MemberExpr)

	switch callee.Builtin {
	case "release":
		// Ownership transfer is purely static; nothing runs.
		return ""

	case "clean":
		if member == nil {
			return ""
		}
		obj := b.lowerExpr(member.X)
		if callee.Class != nil {
			b.emit(ir.Call{Callee: callee.Class.Decl.Name + ".$cleanup", Args: []string{obj}})
			b.emit(ir.Free{Src: obj, Class: callee.Class.Decl.Name})
		} else {
			b.emit(ir.Free{Src: obj})
		}
		return ""

	case "as_json", "as_xml":
		if member == nil {
			return b.temp()
		}
		obj := b.lowerExpr(member.X)
		dst := b.temp()
		b.emit(ir.Call{Dst: dst, Callee: "rt." + callee.Builtin, Args: []string{obj}})
		return dst

	case "from_json", "from_xml":
		cls := b.temp()
		className := ""
		if callee.Class != nil {
			className = callee.Class.Decl.Name
		}
		b.emit(ir.Const{Dst: cls, Type: "str", Value: className})
		args := []string{cls}
		if len(e.Args) > 0 {
			args = append(args, b.lowerCoerced(e.Args[0], b.g.res.Registry.Str()))
		}
		dst := b.temp()
		b.emit(ir.Call{Dst: dst, Callee: "rt." + callee.Builtin, Args: args})
		return dst
	}

	b.internal(e, "unhandled builtin '%s'", callee.Builtin)
	return b.temp()
}

// lowerNew allocates an instance and applies the declared field
// initializers of the whole inheritance chain.
func (b *fnBuilder) lowerNew(e *ast.NewExpr) string {
	class := b.g.res.Classes[e.Class]
	dst := b.temp()
	b.emit(ir.Alloc{Dst: dst, Class: e.Class})
	if class == nil {
		return dst
	}

	var chain []*resolver.ClassInfo
	for cur := class; cur != nil; cur = cur.Super {
		chain = append([]*resolver.ClassInfo{cur}, chain...)
	}
	for _, c := range chain {
		for _, field := range c.Decl.Fields {
			if field.Init == nil {
				continue
			}
			sym := c.Scope.LookupLocal(field.Name)
			var want *types.Type
			if sym != nil {
				want = sym.Type
			}
			value := b.lowerCoerced(field.Init, want)
			addr := b.temp()
			b.emit(ir.FieldAddr{Dst: addr, Obj: dst, Class: c.Decl.Name, Field: field.Name})
			b.emit(ir.Store{Addr: addr, Src: value})
		}
	}
	return dst
}
