// Package resolver builds the symbol table for one compilation unit.
// It runs two passes over the AST: pass one registers every top-level
// class, interface and function name so forward references work; pass
// two resolves member signatures and walks every body, binding each
// identifier use to the nearest enclosing declaration. It also checks
// the inheritance graph for cycles.
package resolver

import (
	"strings"

	"github.com/mavrukin/sinter-lang/internal/ast"
	"github.com/mavrukin/sinter-lang/internal/diagnostics"
	"github.com/mavrukin/sinter-lang/internal/types"
)

// MethodInfo is a resolved method of a class.
type MethodInfo struct {
	Decl  *ast.MethodDecl
	Sig   types.Signature
	Owner *ClassInfo
}

// MethodSigInfo is a resolved interface method signature.
type MethodSigInfo struct {
	Decl *ast.MethodSig
	Sig  types.Signature
}

// FunctionInfo is a resolved free function.
type FunctionInfo struct {
	Decl *ast.FunctionDecl
	Sig  types.Signature
}

// ClassInfo aggregates everything the later stages need to know about
// one class.
type ClassInfo struct {
	Decl       *ast.ClassDecl
	Type       *types.Type
	Super      *ClassInfo
	Interfaces []*InterfaceInfo
	Scope      *Scope    // class scope holding field symbols
	Fields     []*Symbol // declaration order
	Methods    map[string][]*MethodInfo
}

// HasAncestor reports whether other appears on the extends chain.
func (c *ClassInfo) HasAncestor(other *ClassInfo) bool {
	for cur := c.Super; cur != nil; cur = cur.Super {
		if cur == other {
			return true
		}
	}
	return false
}

// ImplementsInterface reports whether the class or any ancestor
// declares the interface.
func (c *ClassInfo) ImplementsInterface(iface *InterfaceInfo) bool {
	for cur := c; cur != nil; cur = cur.Super {
		for _, impl := range cur.Interfaces {
			if impl == iface {
				return true
			}
		}
	}
	return false
}

// AllInterfaces returns the interfaces implemented by the class and
// its ancestors, nearest declaration first, without duplicates.
func (c *ClassInfo) AllInterfaces() []*InterfaceInfo {
	var out []*InterfaceInfo
	seen := make(map[*InterfaceInfo]bool)
	for cur := c; cur != nil; cur = cur.Super {
		for _, iface := range cur.Interfaces {
			if !seen[iface] {
				seen[iface] = true
				out = append(out, iface)
			}
		}
	}
	return out
}

// LookupMethod returns the method candidates for name on the class or
// its ancestors. The nearest class's overloads win outright; an
// overriding class hides the whole inherited group.
func (c *ClassInfo) LookupMethod(name string) []*MethodInfo {
	for cur := c; cur != nil; cur = cur.Super {
		if ms, ok := cur.Methods[name]; ok {
			return ms
		}
	}
	return nil
}

// LookupField returns the field symbol for name on the class or its
// ancestors.
func (c *ClassInfo) LookupField(name string) *Symbol {
	for cur := c; cur != nil; cur = cur.Super {
		if sym := cur.Scope.LookupLocal(name); sym != nil && sym.Kind == SymbolField {
			return sym
		}
	}
	return nil
}

// InterfaceInfo aggregates one resolved interface.
type InterfaceInfo struct {
	Decl    *ast.InterfaceDecl
	Type    *types.Type
	Methods []*MethodSigInfo
}

// Resolution is the resolver's output, consumed by the type checker
// and every later stage.
type Resolution struct {
	Registry   *types.Registry
	Global     *Scope
	Classes    map[string]*ClassInfo
	ClassList  []*ClassInfo // declaration order
	Interfaces map[string]*InterfaceInfo
	Functions  map[string][]*FunctionInfo
	FuncList   []*FunctionInfo // declaration order

	// Bindings maps every resolved identifier use to its symbol.
	Bindings map[*ast.Ident]*Symbol
	// EnclosingClassOf maps each method declaration to its class.
	EnclosingClassOf map[*ast.MethodDecl]*ClassInfo
	// VarSymbols and ParamSymbols map declarations to the symbols
	// the resolver created for them.
	VarSymbols   map[*ast.VarDeclStmt]*Symbol
	ParamSymbols map[*ast.Param]*Symbol
	// DStringRefs maps each d-string literal to the symbols its
	// substitution slots resolved to, in template order.
	DStringRefs map[*ast.DStringLit][]*Symbol
}

// LookupFunction returns the free-function candidates for name.
func (r *Resolution) LookupFunction(name string) []*FunctionInfo {
	return r.Functions[name]
}

// Resolver walks one program.
type Resolver struct {
	bag *diagnostics.Bag
	reg *types.Registry
	res *Resolution

	// Declaration-order lists captured in pass one.
	ifaceList    []*InterfaceInfo
	funcDeclList []*ast.FunctionDecl
}

// Resolve builds the resolution for prog, reporting problems into bag.
func Resolve(prog *ast.Program, bag *diagnostics.Bag) *Resolution {
	reg := types.NewRegistry()
	r := &Resolver{
		bag: bag,
		reg: reg,
		res: &Resolution{
			Registry:         reg,
			Global:           NewScope(ScopeGlobal, nil),
			Classes:          make(map[string]*ClassInfo),
			Interfaces:       make(map[string]*InterfaceInfo),
			Functions:        make(map[string][]*FunctionInfo),
			Bindings:         make(map[*ast.Ident]*Symbol),
			EnclosingClassOf: make(map[*ast.MethodDecl]*ClassInfo),
		},
	}

	r.registerTopLevel(prog)
	r.linkInheritance()
	r.detectCycles()
	r.chainClassScopes()
	r.resolveMembers()
	r.resolveBodies(prog)
	return r.res
}

func (r *Resolver) errorf(code diagnostics.Code, node ast.Node, format string, args ...interface{}) {
	r.bag.Errorf(diagnostics.CategoryResolution, code, node.Span(), format, args...)
}

// registerTopLevel is pass one: every top-level name becomes visible
// before any body is examined, so forward references resolve.
func (r *Resolver) registerTopLevel(prog *ast.Program) {
	for _, decl := range prog.Decls {
		switch d := decl.(type) {
		case *ast.ClassDecl:
			if r.redeclared(d.Name, d) {
				continue
			}
			info := &ClassInfo{
				Decl:    d,
				Type:    r.reg.Declare(d.Name, types.KindClass),
				Scope:   NewScope(ScopeClass, r.res.Global),
				Methods: make(map[string][]*MethodInfo),
			}
			r.res.Classes[d.Name] = info
			r.res.ClassList = append(r.res.ClassList, info)
			r.res.Global.Define(&Symbol{
				Name: d.Name, Kind: SymbolClass, Decl: d, Span: d.Span(),
			})

		case *ast.InterfaceDecl:
			if r.redeclared(d.Name, d) {
				continue
			}
			info := &InterfaceInfo{
				Decl: d,
				Type: r.reg.Declare(d.Name, types.KindInterface),
			}
			r.res.Interfaces[d.Name] = info
			r.ifaceList = append(r.ifaceList, info)
			r.res.Global.Define(&Symbol{
				Name: d.Name, Kind: SymbolInterface, Decl: d, Span: d.Span(),
			})

		case *ast.FunctionDecl:
			// Functions may overload; identical signatures are
			// rejected later once parameter types are resolved.
			if prev := r.res.Global.LookupLocal(d.Name); prev != nil && prev.Kind != SymbolFunction {
				r.errorf(diagnostics.CodeDuplicateDeclaration, d,
					"'%s' is already declared as a %s", d.Name, prev.Kind)
				continue
			}
			r.res.Global.Define(&Symbol{
				Name: d.Name, Kind: SymbolFunction, Decl: d, Span: d.Span(),
			})
			r.funcDeclList = append(r.funcDeclList, d)
		}
	}
}

func (r *Resolver) redeclared(name string, node ast.Node) bool {
	if prev := r.res.Global.LookupLocal(name); prev != nil {
		r.errorf(diagnostics.CodeDuplicateDeclaration, node,
			"'%s' is already declared as a %s", name, prev.Kind)
		return true
	}
	return false
}

// linkInheritance resolves extends/implements names to their infos.
func (r *Resolver) linkInheritance() {
	for _, class := range r.res.ClassList {
		d := class.Decl
		if d.Extends != "" {
			if super, ok := r.res.Classes[d.Extends]; ok {
				class.Super = super
			} else if _, isIface := r.res.Interfaces[d.Extends]; isIface {
				r.errorf(diagnostics.CodeUnresolvedReference, d,
					"class '%s' cannot extend interface '%s'; use implements", d.Name, d.Extends)
			} else {
				r.errorf(diagnostics.CodeUnresolvedReference, d,
					"unknown base class '%s'", d.Extends)
			}
		}
		for _, name := range d.Implements {
			if iface, ok := r.res.Interfaces[name]; ok {
				class.Interfaces = append(class.Interfaces, iface)
			} else if _, isClass := r.res.Classes[name]; isClass {
				r.errorf(diagnostics.CodeUnresolvedReference, d,
					"class '%s' cannot implement class '%s'; use extends", d.Name, name)
			} else {
				r.errorf(diagnostics.CodeUnresolvedReference, d,
					"unknown interface '%s'", name)
			}
		}
	}
}

// chainClassScopes re-parents each class scope onto its superclass's
// scope, so a method body's lookup chain walks the whole inheritance
// chain before reaching the globals. Inherited fields then resolve
// unqualified. Runs after cycle detection, which guarantees the chain
// is finite.
func (r *Resolver) chainClassScopes() {
	for _, class := range r.res.ClassList {
		if class.Super != nil {
			class.Scope.Parent = class.Super.Scope
		}
	}
}

// detectCycles colors the extends graph: an edge into a gray class is
// a cycle. Interfaces carry no outgoing edges so only the class chain
// can loop.
func (r *Resolver) detectCycles() {
	const (
		white = iota
		gray
		black
	)
	colors := make(map[*ClassInfo]int)

	var visit func(c *ClassInfo, trail []string) bool
	visit = func(c *ClassInfo, trail []string) bool {
		switch colors[c] {
		case gray:
			r.errorf(diagnostics.CodeCyclicInheritance, c.Decl,
				"cyclic inheritance: %s", strings.Join(append(trail, c.Decl.Name), " -> "))
			return false
		case black:
			return true
		}
		colors[c] = gray
		ok := true
		if c.Super != nil {
			ok = visit(c.Super, append(trail, c.Decl.Name))
		}
		colors[c] = black
		if !ok {
			// Break the loop so later stages see an acyclic chain.
			c.Super = nil
		}
		return ok
	}

	for _, class := range r.res.ClassList {
		visit(class, nil)
	}
}

// resolveTypeRef turns a syntactic type reference into an interned
// type. Pointer stars may only wrap class or interface types.
func (r *Resolver) resolveTypeRef(ref *ast.TypeRef, extra *Scope) *types.Type {
	base := r.reg.Lookup(ref.Name)
	if base == nil && extra != nil {
		if sym := extra.Lookup(ref.Name); sym != nil && sym.Kind == SymbolTypeParam {
			base = sym.Type
		}
	}
	if base == nil {
		r.errorf(diagnostics.CodeUnresolvedReference, ref, "unknown type '%s'", ref.Name)
		return nil
	}
	if ref.Stars > 0 && !base.IsNamed() && base.Kind != types.KindTypeParam {
		r.errorf(diagnostics.CodeInvalidPointerType, ref,
			"pointer to primitive type '%s' is not allowed", base)
		return nil
	}
	for i := 0; i < ref.Stars; i++ {
		base = r.reg.PointerTo(base)
	}
	return base
}

// resolveMembers is pass two over declarations: field types, method
// signatures, interface signatures. Bodies are not entered yet.
func (r *Resolver) resolveMembers() {
	for _, iface := range r.ifaceList {
		for _, sig := range iface.Decl.Methods {
			iface.Methods = append(iface.Methods, &MethodSigInfo{
				Decl: sig,
				Sig:  r.resolveSignature(sig.Params, sig.Result, nil),
			})
		}
	}

	for _, class := range r.res.ClassList {
		for _, tp := range class.Decl.TypeParams {
			sym := &Symbol{
				Name: tp,
				Kind: SymbolTypeParam,
				Type: r.reg.Declare(class.Decl.Name+"."+tp, types.KindTypeParam),
				Decl: class.Decl,
				Span: class.Decl.Span(),
			}
			if prev := class.Scope.Define(sym); prev != nil {
				r.errorf(diagnostics.CodeDuplicateDeclaration, class.Decl,
					"duplicate type parameter '%s'", tp)
			}
		}

		for _, field := range class.Decl.Fields {
			typ := r.resolveTypeRef(field.Type, class.Scope)
			sym := &Symbol{
				Name:       field.Name,
				Kind:       SymbolField,
				Type:       typ,
				Decl:       field,
				Visibility: field.Visibility,
				Const:      field.Const,
				Span:       field.Span(),
			}
			if prev := class.Scope.Define(sym); prev != nil {
				r.errorf(diagnostics.CodeDuplicateDeclaration, field,
					"field '%s' is already declared in class '%s'", field.Name, class.Decl.Name)
				continue
			}
			class.Fields = append(class.Fields, sym)
		}

		for _, method := range class.Decl.Methods {
			info := &MethodInfo{
				Decl:  method,
				Sig:   r.resolveSignature(method.Params, method.Result, class.Scope),
				Owner: class,
			}
			if r.duplicateCallable(methodSigs(class.Methods[method.Name]), info.Sig) {
				r.errorf(diagnostics.CodeDuplicateDeclaration, method,
					"method '%s%s' is already declared in class '%s'",
					method.Name, info.Sig, class.Decl.Name)
				continue
			}
			class.Methods[method.Name] = append(class.Methods[method.Name], info)
			r.res.EnclosingClassOf[method] = class
		}
	}

	for _, decl := range r.funcDeclList {
		info := &FunctionInfo{
			Decl: decl,
			Sig:  r.resolveSignature(decl.Params, decl.Result, nil),
		}
		if r.duplicateCallable(functionSigs(r.res.Functions[decl.Name]), info.Sig) {
			r.errorf(diagnostics.CodeDuplicateDeclaration, decl,
				"function '%s%s' is already declared", decl.Name, info.Sig)
			continue
		}
		r.res.Functions[decl.Name] = append(r.res.Functions[decl.Name], info)
		r.res.FuncList = append(r.res.FuncList, info)
	}
}

func methodSigs(ms []*MethodInfo) []types.Signature {
	sigs := make([]types.Signature, len(ms))
	for i, m := range ms {
		sigs[i] = m.Sig
	}
	return sigs
}

func functionSigs(fs []*FunctionInfo) []types.Signature {
	sigs := make([]types.Signature, len(fs))
	for i, f := range fs {
		sigs[i] = f.Sig
	}
	return sigs
}

func (r *Resolver) resolveSignature(params []*ast.Param, result *ast.TypeRef, scope *Scope) types.Signature {
	sig := types.Signature{Result: r.resolveTypeRef(result, scope)}
	if sig.Result == nil {
		sig.Result = r.reg.Void()
	}
	for _, p := range params {
		t := r.resolveTypeRef(p.Type, scope)
		if t == nil {
			t = r.reg.Void()
		}
		sig.Params = append(sig.Params, t)
	}
	return sig
}

func (r *Resolver) duplicateCallable(existing []types.Signature, sig types.Signature) bool {
	for _, prev := range existing {
		if prev.Equal(sig) {
			return true
		}
	}
	return false
}

