package typechecker

import (
	"strings"

	"github.com/mavrukin/sinter-lang/internal/ast"
	"github.com/mavrukin/sinter-lang/internal/diagnostics"
	"github.com/mavrukin/sinter-lang/internal/resolver"
	"github.com/mavrukin/sinter-lang/internal/types"
)

// checkExpr types one expression, records the result and returns it.
// A nil return means the expression (or a subexpression) failed and
// was already reported.
func (c *Checker) checkExpr(expr ast.Expr) *types.Type {
	t := c.typeExpr(expr)
	if t != nil {
		c.info.Types[expr] = t
	}
	return t
}

// checkExprExpecting types expr in a context expecting want. The only
// context effect is on floating literals, which take the expected
// floating width; nothing else adapts.
func (c *Checker) checkExprExpecting(expr ast.Expr, want *types.Type) *types.Type {
	if _, ok := expr.(*ast.FloatLit); ok && want != nil &&
		(want.Kind == types.KindFloat || want.Kind == types.KindDouble) {
		c.info.Types[expr] = want
		return want
	}
	return c.checkExpr(expr)
}

func (c *Checker) typeExpr(expr ast.Expr) *types.Type {
	switch e := expr.(type) {
	case *ast.IntLit:
		return c.reg.Int()
	case *ast.FloatLit:
		// Floating literals default to double; context may narrow
		// them to float (checkExprExpecting).
		return c.reg.Double()
	case *ast.StringLit:
		return c.reg.Str()
	case *ast.DStringLit:
		return c.reg.DStr()
	case *ast.BoolLit:
		return c.reg.Boolean()
	case *ast.NullLit:
		return c.reg.Null()

	case *ast.Ident:
		sym := c.res.Bindings[e]
		if sym == nil {
			return nil // unresolved, already reported
		}
		switch sym.Kind {
		case resolver.SymbolClass, resolver.SymbolInterface:
			c.errorf(diagnostics.CodeTypeMismatch, e,
				"%s '%s' cannot be used as a value", sym.Kind, e.Name)
			return nil
		case resolver.SymbolFunction, resolver.SymbolMethod:
			c.errorf(diagnostics.CodeTypeMismatch, e,
				"%s '%s' must be called", sym.Kind, e.Name)
			return nil
		case resolver.SymbolField:
			// Inherited fields resolve through the class scope chain;
			// a private field of an ancestor is still off limits.
			if c.class != nil {
				c.checkFieldVisibility(e, c.class, sym)
			}
		}
		return sym.Type

	case *ast.BinaryExpr:
		return c.typeBinary(e)

	case *ast.UnaryExpr:
		return c.typeUnary(e)

	case *ast.AssignExpr:
		return c.typeAssign(e)

	case *ast.MemberExpr:
		return c.typeMember(e)

	case *ast.CallExpr:
		return c.typeCall(e)

	case *ast.NewExpr:
		class, ok := c.res.Classes[e.Class]
		if !ok {
			return nil // unresolved, already reported
		}
		if len(e.Args) > 0 {
			c.errorf(diagnostics.CodeTypeMismatch, e,
				"'%s.new' takes no arguments; fields initialize from their declared defaults", e.Class)
		}
		for _, arg := range e.Args {
			c.checkExpr(arg)
		}
		return c.reg.PointerTo(class.Type)
	}
	return nil
}

func (c *Checker) typeBinary(e *ast.BinaryExpr) *types.Type {
	switch e.Op {
	case "&&", "||":
		for _, side := range []ast.Expr{e.X, e.Y} {
			if t := c.checkExpr(side); t != nil && t.Kind != types.KindBoolean {
				c.errorf(diagnostics.CodeTypeMismatch, side,
					"operator '%s' requires 'boolean' operands, found '%s'", e.Op, t)
			}
		}
		return c.reg.Boolean()

	case "==", "!=":
		left := c.checkExpr(e.X)
		right := c.checkExprExpecting(e.Y, left)
		if left == nil || right == nil {
			return c.reg.Boolean()
		}
		if !c.comparable(left, right) {
			c.errorf(diagnostics.CodeTypeMismatch, e,
				"cannot compare '%s' with '%s'", left, right)
		}
		return c.reg.Boolean()

	case "<", ">", "<=", ">=":
		left := c.checkExpr(e.X)
		right := c.checkExprExpecting(e.Y, left)
		if left != nil && right != nil && (left != right || !left.IsNumeric()) {
			c.errorf(diagnostics.CodeTypeMismatch, e,
				"operator '%s' requires matching numeric operands, found '%s' and '%s'",
				e.Op, left, right)
		}
		return c.reg.Boolean()

	case "+", "-", "*", "/":
		left := c.checkExpr(e.X)
		right := c.checkExprExpecting(e.Y, left)
		if left == nil || right == nil {
			return nil
		}
		// Adapt a left-hand literal to the right side: 1.0 + x.
		if _, ok := e.X.(*ast.FloatLit); ok && right.IsNumeric() && right.Kind != types.KindInt {
			left = right
			c.info.Types[e.X] = left
		}
		if e.Op == "+" && left.Kind == types.KindStr && right.Kind == types.KindStr {
			return c.reg.Str()
		}
		if left != right || !left.IsNumeric() {
			c.errorf(diagnostics.CodeTypeMismatch, e,
				"operator '%s' requires matching numeric operands, found '%s' and '%s'; no implicit conversion",
				e.Op, left, right)
			return nil
		}
		return left

	case "%":
		left := c.checkExpr(e.X)
		right := c.checkExpr(e.Y)
		if (left != nil && left.Kind != types.KindInt) || (right != nil && right.Kind != types.KindInt) {
			c.errorf(diagnostics.CodeTypeMismatch, e,
				"operator '%%' requires 'int' operands")
		}
		return c.reg.Int()
	}

	c.bag.Internalf(diagnostics.CategoryType, e.Span(), "unknown binary operator '%s'", e.Op)
	return nil
}

// comparable reports whether == / != applies to the operand pair.
func (c *Checker) comparable(left, right *types.Type) bool {
	if left == right {
		return left.Kind != types.KindVoid
	}
	if left.Kind == types.KindNull && right.Kind == types.KindPointer {
		return true
	}
	if right.Kind == types.KindNull && left.Kind == types.KindPointer {
		return true
	}
	return false
}

func (c *Checker) typeUnary(e *ast.UnaryExpr) *types.Type {
	operand := c.checkExpr(e.X)

	if e.Postfix {
		// x++ / x--
		if !c.isLValue(e.X) {
			c.errorf(diagnostics.CodeTypeMismatch, e, "'%s' requires an assignable operand", e.Op)
		}
		if operand != nil && operand.Kind != types.KindInt {
			c.errorf(diagnostics.CodeTypeMismatch, e,
				"'%s' requires an 'int' operand, found '%s'", e.Op, operand)
			return nil
		}
		return operand
	}

	switch e.Op {
	case "!":
		if operand != nil && operand.Kind != types.KindBoolean {
			c.errorf(diagnostics.CodeTypeMismatch, e,
				"operator '!' requires a 'boolean' operand, found '%s'", operand)
		}
		return c.reg.Boolean()

	case "-":
		if operand != nil && !operand.IsNumeric() {
			c.errorf(diagnostics.CodeTypeMismatch, e,
				"operator '-' requires a numeric operand, found '%s'", operand)
			return nil
		}
		return operand

	case "*":
		if operand == nil {
			return nil
		}
		if operand.Kind != types.KindPointer {
			c.errorf(diagnostics.CodeTypeMismatch, e,
				"cannot dereference non-pointer type '%s'", operand)
			return nil
		}
		return operand.Elem

	case "&":
		if operand == nil {
			return nil
		}
		if !c.isLValue(e.X) {
			c.errorf(diagnostics.CodeTypeMismatch, e,
				"cannot take the address of this expression")
			return nil
		}
		if !operand.IsNamed() {
			c.errorf(diagnostics.CodeTypeMismatch, e,
				"cannot form a pointer to primitive type '%s'", operand)
			return nil
		}
		return c.reg.PointerTo(operand)
	}

	c.bag.Internalf(diagnostics.CategoryType, e.Span(), "unknown unary operator '%s'", e.Op)
	return nil
}

// isLValue reports whether the expression names a storage location.
func (c *Checker) isLValue(expr ast.Expr) bool {
	switch e := expr.(type) {
	case *ast.Ident:
		sym := c.res.Bindings[e]
		if sym == nil {
			return true // unresolved; avoid a second diagnostic
		}
		switch sym.Kind {
		case resolver.SymbolVar, resolver.SymbolParam, resolver.SymbolField:
			return true
		}
		return false
	case *ast.MemberExpr:
		return true
	case *ast.UnaryExpr:
		return e.Op == "*" && !e.Postfix
	}
	return false
}

func (c *Checker) typeAssign(e *ast.AssignExpr) *types.Type {
	target := c.checkExpr(e.Target)

	if !c.isLValue(e.Target) {
		c.errorf(diagnostics.CodeTypeMismatch, e.Target, "cannot assign to this expression")
	} else if sym := c.constTarget(e.Target); sym != nil {
		c.errorf(diagnostics.CodeTypeMismatch, e.Target,
			"cannot assign to const %s '%s'", sym.Kind, sym.Name)
	}

	value := c.checkExprExpecting(e.Value, target)
	if target != nil && value != nil && !c.assignable(target, value) {
		c.errorf(diagnostics.CodeTypeMismatch, e,
			"cannot assign '%s' to '%s'", value, target)
	}
	return c.reg.Void()
}

// constTarget returns the const symbol an assignment writes to, if any.
func (c *Checker) constTarget(expr ast.Expr) *resolver.Symbol {
	switch e := expr.(type) {
	case *ast.Ident:
		if sym := c.res.Bindings[e]; sym != nil && sym.Const {
			return sym
		}
	case *ast.MemberExpr:
		if class := c.receiverClass(e.X); class != nil {
			if sym := class.LookupField(e.Member); sym != nil && sym.Const {
				return sym
			}
		}
	}
	return nil
}

// receiverClass resolves the class a member access goes through,
// auto-dereferencing one pointer level, as in p.x for p: Point*.
func (c *Checker) receiverClass(recv ast.Expr) *resolver.ClassInfo {
	t := c.info.Types[recv]
	if t == nil {
		return nil
	}
	if t.Kind == types.KindPointer {
		t = t.Elem
	}
	if t.Kind != types.KindClass {
		return nil
	}
	return c.res.Classes[t.Name]
}

func (c *Checker) typeMember(e *ast.MemberExpr) *types.Type {
	// Static member reads (ClassName.x) are only meaningful as call
	// targets, which typeCall intercepts before we get here.
	if ident, ok := e.X.(*ast.Ident); ok {
		if sym := c.res.Bindings[ident]; sym != nil && sym.Kind == resolver.SymbolClass {
			c.errorf(diagnostics.CodeTypeMismatch, e,
				"'%s.%s' is not a value; classes expose only methods statically", ident.Name, e.Member)
			return nil
		}
	}

	recv := c.checkExpr(e.X)
	if recv == nil {
		return nil
	}

	class := c.receiverClass(e.X)
	if class == nil {
		c.errorf(diagnostics.CodeTypeMismatch, e.X,
			"type '%s' has no members", recv)
		return nil
	}

	field := class.LookupField(e.Member)
	if field == nil {
		c.errorf(diagnostics.CodeUndefinedField, e,
			"class '%s' has no field '%s'", class.Decl.Name, e.Member)
		return nil
	}
	c.checkFieldVisibility(e, class, field)
	return field.Type
}

// checkFieldVisibility enforces private/protected access on a member
// reference from the current checking context.
func (c *Checker) checkFieldVisibility(node ast.Node, class *resolver.ClassInfo, field *resolver.Symbol) {
	switch field.Visibility {
	case ast.VisibilityPublic:
		return
	case ast.VisibilityPrivate:
		if c.class == nil || c.declaringClass(class, field) != c.class {
			c.errorf(diagnostics.CodeVisibility, node,
				"field '%s' of class '%s' is private", field.Name, class.Decl.Name)
		}
	case ast.VisibilityProtected:
		decl := c.declaringClass(class, field)
		if c.class == nil || (c.class != decl && !c.class.HasAncestor(decl)) {
			c.errorf(diagnostics.CodeVisibility, node,
				"field '%s' of class '%s' is protected", field.Name, class.Decl.Name)
		}
	}
}

// declaringClass walks up from class to the class that actually
// declares the field symbol.
func (c *Checker) declaringClass(class *resolver.ClassInfo, field *resolver.Symbol) *resolver.ClassInfo {
	for cur := class; cur != nil; cur = cur.Super {
		if cur.Scope.LookupLocal(field.Name) == field {
			return cur
		}
	}
	return class
}

func (c *Checker) typeCall(e *ast.CallExpr) *types.Type {
	switch callee := e.Callee.(type) {
	case *ast.Ident:
		return c.typeDirectCall(e, callee)
	case *ast.MemberExpr:
		return c.typeMemberCall(e, callee)
	}
	c.errorf(diagnostics.CodeTypeMismatch, e.Callee, "expression is not callable")
	for _, arg := range e.Args {
		c.checkExpr(arg)
	}
	return nil
}

// typeDirectCall handles unqualified calls: free functions and
// unqualified method calls inside a class body.
func (c *Checker) typeDirectCall(e *ast.CallExpr, callee *ast.Ident) *types.Type {
	sym := c.res.Bindings[callee]
	if sym == nil {
		for _, arg := range e.Args {
			c.checkExpr(arg)
		}
		return nil // unresolved, already reported
	}

	switch sym.Kind {
	case resolver.SymbolFunction:
		fns := c.res.LookupFunction(callee.Name)
		match, result := c.resolveOverload(e, callee.Name, functionCandidates(fns))
		if match >= 0 {
			c.info.Callees[e] = &Callee{Kind: CalleeFunction, Function: fns[match]}
		}
		return result

	case resolver.SymbolMethod:
		if c.class == nil {
			c.errorf(diagnostics.CodeUndefinedMethod, e,
				"method '%s' requires an instance", callee.Name)
			return nil
		}
		ms := c.class.LookupMethod(callee.Name)
		match, result := c.resolveOverload(e, callee.Name, methodCandidates(ms))
		if match >= 0 {
			c.info.Callees[e] = &Callee{Kind: CalleeMethod, Method: ms[match], Class: c.class}
		}
		return result
	}

	c.errorf(diagnostics.CodeTypeMismatch, e.Callee,
		"%s '%s' is not callable", sym.Kind, sym.Name)
	for _, arg := range e.Args {
		c.checkExpr(arg)
	}
	return nil
}

func (c *Checker) typeMemberCall(e *ast.CallExpr, callee *ast.MemberExpr) *types.Type {
	// Static call: ClassName.method(...) or ClassName.from_json(...)
	if ident, ok := callee.X.(*ast.Ident); ok {
		if sym := c.res.Bindings[ident]; sym != nil && sym.Kind == resolver.SymbolClass {
			return c.typeStaticCall(e, callee, c.res.Classes[ident.Name])
		}
	}

	recv := c.checkExpr(callee.X)
	if recv == nil {
		for _, arg := range e.Args {
			c.checkExpr(arg)
		}
		return nil
	}

	// Pointer lifecycle and serialization builtins.
	if result := c.typeBuiltinCall(e, callee, recv); result != nil {
		return result
	}

	class := c.receiverClass(callee.X)
	if class == nil {
		if iface := c.receiverInterface(callee.X); iface != nil {
			return c.typeInterfaceCall(e, callee, iface)
		}
		c.errorf(diagnostics.CodeUndefinedMethod, callee,
			"type '%s' has no method '%s'", recv, callee.Member)
		for _, arg := range e.Args {
			c.checkExpr(arg)
		}
		return nil
	}

	ms := instanceMethods(class.LookupMethod(callee.Member))
	if len(ms) == 0 {
		if result, ok := c.typeAccessorCall(e, callee, class); ok {
			return result
		}
		c.errorf(diagnostics.CodeUndefinedMethod, callee,
			"class '%s' has no method '%s'", class.Decl.Name, callee.Member)
		for _, arg := range e.Args {
			c.checkExpr(arg)
		}
		return nil
	}

	c.checkMethodVisibility(callee, class, ms[0])
	match, result := c.resolveOverload(e, callee.Member, methodCandidates(ms))
	if match >= 0 {
		c.info.Callees[e] = &Callee{Kind: CalleeMethod, Method: ms[match], Class: class}
	}
	return result
}

// typeAccessorCall recognizes calls to accessors synthesized from
// field annotations: getCount() for an @attribute field 'count', and
// setCount(v) unless the annotation suppresses the setter.
func (c *Checker) typeAccessorCall(e *ast.CallExpr, callee *ast.MemberExpr,
	class *resolver.ClassInfo) (*types.Type, bool) {

	name := callee.Member
	var prefix string
	switch {
	case strings.HasPrefix(name, "get"):
		prefix = "get"
	case strings.HasPrefix(name, "set"):
		prefix = "set"
	default:
		return nil, false
	}
	rest := name[len(prefix):]
	if rest == "" {
		return nil, false
	}
	fieldName := strings.ToLower(rest[:1]) + rest[1:]

	sym, ann, owner := c.annotatedField(class, fieldName)
	if sym == nil || ann == nil || ann.Derived {
		return nil, false
	}
	if prefix == "get" && ann.WriteOnly {
		return nil, false
	}
	if prefix == "set" && (ann.ReadOnly || sym.Const) {
		return nil, false
	}

	record := func() {
		c.info.Callees[e] = &Callee{
			Kind: CalleeAccessor, Class: owner, Field: sym, Accessor: name,
		}
	}

	if prefix == "get" {
		if len(e.Args) != 0 {
			c.errorf(diagnostics.CodeTypeMismatch, e, "'%s' takes no arguments", name)
		}
		record()
		return sym.Type, true
	}

	if len(e.Args) != 1 {
		c.errorf(diagnostics.CodeTypeMismatch, e,
			"'%s' takes one '%s' argument", name, sym.Type)
		record()
		return c.reg.Void(), true
	}
	got := c.checkExprExpecting(e.Args[0], sym.Type)
	if got != nil && !c.assignable(sym.Type, got) {
		c.errorf(diagnostics.CodeTypeMismatch, e.Args[0],
			"cannot pass '%s' to '%s', expected '%s'", got, name, sym.Type)
	}
	record()
	return c.reg.Void(), true
}

// annotatedField finds a possibly inherited annotated field and its
// declaring class.
func (c *Checker) annotatedField(class *resolver.ClassInfo, name string) (
	*resolver.Symbol, *ast.Annotation, *resolver.ClassInfo) {

	for cur := class; cur != nil; cur = cur.Super {
		for _, f := range cur.Decl.Fields {
			if f.Name != name {
				continue
			}
			sym := cur.Scope.LookupLocal(name)
			if sym == nil || sym.Kind != resolver.SymbolField {
				return nil, nil, nil
			}
			return sym, f.Annotation, cur
		}
	}
	return nil, nil, nil
}

// typeBuiltinCall recognizes release/clean/as_json/as_xml on class
// pointers. It returns nil when the member is not a builtin.
func (c *Checker) typeBuiltinCall(e *ast.CallExpr, callee *ast.MemberExpr, recv *types.Type) *types.Type {
	switch callee.Member {
	case "release", "clean":
		if recv.Kind != types.KindPointer {
			c.errorf(diagnostics.CodeTypeMismatch, callee,
				"'%s' applies to pointers, found '%s'", callee.Member, recv)
			return c.reg.Void()
		}
		if len(e.Args) != 0 {
			c.errorf(diagnostics.CodeTypeMismatch, e, "'%s' takes no arguments", callee.Member)
		}
		c.info.Callees[e] = &Callee{
			Kind:    CalleeBuiltin,
			Builtin: callee.Member,
			Class:   c.receiverClass(callee.X),
		}
		return c.reg.Void()

	case "as_json", "as_xml":
		class := c.receiverClass(callee.X)
		if class == nil {
			return nil
		}
		if len(e.Args) != 0 {
			c.errorf(diagnostics.CodeTypeMismatch, e, "'%s' takes no arguments", callee.Member)
		}
		c.info.Callees[e] = &Callee{Kind: CalleeBuiltin, Builtin: callee.Member, Class: class}
		return c.reg.Str()
	}
	return nil
}

// receiverInterface resolves an interface-typed member receiver,
// auto-dereferencing one pointer level.
func (c *Checker) receiverInterface(recv ast.Expr) *resolver.InterfaceInfo {
	t := c.info.Types[recv]
	if t == nil {
		return nil
	}
	if t.Kind == types.KindPointer {
		t = t.Elem
	}
	if t.Kind != types.KindInterface {
		return nil
	}
	return c.res.Interfaces[t.Name]
}

// typeInterfaceCall resolves a call through an interface-typed
// receiver; dispatch happens through the itable at run time.
func (c *Checker) typeInterfaceCall(e *ast.CallExpr, callee *ast.MemberExpr, iface *resolver.InterfaceInfo) *types.Type {
	var candidates []types.Signature
	var methods []*resolver.MethodSigInfo
	for _, m := range iface.Methods {
		if m.Decl.Name == callee.Member {
			candidates = append(candidates, m.Sig)
			methods = append(methods, m)
		}
	}
	if len(candidates) == 0 {
		c.errorf(diagnostics.CodeUndefinedMethod, callee,
			"interface '%s' has no method '%s'", iface.Decl.Name, callee.Member)
		for _, arg := range e.Args {
			c.checkExpr(arg)
		}
		return nil
	}
	match, result := c.resolveOverload(e, callee.Member, candidates)
	if match >= 0 {
		c.info.Callees[e] = &Callee{Kind: CalleeInterface, Iface: iface, IfaceMethod: methods[match]}
	}
	return result
}

// typeStaticCall handles ClassName.method(...) plus the generated
// deserializers from_json/from_xml.
func (c *Checker) typeStaticCall(e *ast.CallExpr, callee *ast.MemberExpr, class *resolver.ClassInfo) *types.Type {
	switch callee.Member {
	case "from_json", "from_xml":
		if len(e.Args) != 1 {
			c.errorf(diagnostics.CodeTypeMismatch, e,
				"'%s.%s' takes exactly one 'str' argument", class.Decl.Name, callee.Member)
		}
		for _, arg := range e.Args {
			if t := c.checkExpr(arg); t != nil && t.Kind != types.KindStr && t.Kind != types.KindDStr {
				c.errorf(diagnostics.CodeTypeMismatch, arg,
					"'%s' argument must be 'str', found '%s'", callee.Member, t)
			}
		}
		c.info.Callees[e] = &Callee{Kind: CalleeBuiltin, Builtin: callee.Member, Class: class}
		return c.reg.PointerTo(class.Type)
	}

	var statics []*resolver.MethodInfo
	for _, m := range class.LookupMethod(callee.Member) {
		if m.Decl.Static {
			statics = append(statics, m)
		}
	}
	if len(statics) == 0 {
		c.errorf(diagnostics.CodeUndefinedMethod, callee,
			"class '%s' has no static method '%s'", class.Decl.Name, callee.Member)
		for _, arg := range e.Args {
			c.checkExpr(arg)
		}
		return nil
	}
	match, result := c.resolveOverload(e, callee.Member, methodCandidates(statics))
	if match >= 0 {
		c.info.Callees[e] = &Callee{Kind: CalleeStatic, Method: statics[match], Class: class}
	}
	return result
}

func (c *Checker) checkMethodVisibility(node ast.Node, class *resolver.ClassInfo, m *resolver.MethodInfo) {
	switch m.Decl.Visibility {
	case ast.VisibilityPrivate:
		if c.class != m.Owner {
			c.errorf(diagnostics.CodeVisibility, node,
				"method '%s' of class '%s' is private", m.Decl.Name, class.Decl.Name)
		}
	case ast.VisibilityProtected:
		if c.class != m.Owner && (c.class == nil || !c.class.HasAncestor(m.Owner)) {
			c.errorf(diagnostics.CodeVisibility, node,
				"method '%s' of class '%s' is protected", m.Decl.Name, class.Decl.Name)
		}
	}
}

// resolveOverload picks the single candidate whose signature matches
// the call's arguments exactly (arity plus per-parameter type; no
// numeric widening). Returns the candidate index and result type, or
// (-1, nil) after reporting the candidate set.
func (c *Checker) resolveOverload(e *ast.CallExpr, name string, candidates []types.Signature) (int, *types.Type) {
	argTypes := make([]*types.Type, len(e.Args))
	for i, arg := range e.Args {
		argTypes[i] = c.checkExpr(arg)
	}

	match := -1
	for idx, sig := range candidates {
		if len(sig.Params) != len(e.Args) {
			continue
		}
		ok := true
		for i, param := range sig.Params {
			got := argTypes[i]
			// Floating literals adapt to the parameter's width.
			if _, isLit := e.Args[i].(*ast.FloatLit); isLit &&
				(param.Kind == types.KindFloat || param.Kind == types.KindDouble) {
				got = param
			}
			if got == nil || !c.assignable(param, got) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		if match >= 0 {
			c.errorf(diagnostics.CodeUndefinedMethod, e,
				"ambiguous call to '%s'; candidates: %s", name, candidateList(candidates))
			return -1, nil
		}
		match = idx
	}

	if match < 0 {
		c.errorf(diagnostics.CodeUndefinedMethod, e,
			"no overload of '%s' matches (%s); candidates: %s",
			name, typeList(argTypes), candidateList(candidates))
		return -1, nil
	}

	// Re-record adapted literal argument types.
	sig := candidates[match]
	for i, arg := range e.Args {
		if _, isLit := arg.(*ast.FloatLit); isLit {
			c.info.Types[arg] = sig.Params[i]
		}
	}
	return match, sig.Result
}

func functionCandidates(fns []*resolver.FunctionInfo) []types.Signature {
	sigs := make([]types.Signature, len(fns))
	for i, f := range fns {
		sigs[i] = f.Sig
	}
	return sigs
}

func methodCandidates(ms []*resolver.MethodInfo) []types.Signature {
	sigs := make([]types.Signature, len(ms))
	for i, m := range ms {
		sigs[i] = m.Sig
	}
	return sigs
}

func instanceMethods(ms []*resolver.MethodInfo) []*resolver.MethodInfo {
	var out []*resolver.MethodInfo
	for _, m := range ms {
		if !m.Decl.Static {
			out = append(out, m)
		}
	}
	return out
}

func candidateList(sigs []types.Signature) string {
	parts := make([]string, len(sigs))
	for i, s := range sigs {
		parts[i] = "'" + s.String() + "'"
	}
	return strings.Join(parts, ", ")
}

func typeList(ts []*types.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
