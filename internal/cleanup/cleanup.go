// Package cleanup proves that every pointer produced by an allocation
// is released on all control-flow paths before its function exits.
// The analysis is a forward must dataflow over the control-flow graph:
// each tracked binding carries a set of possible ownership states, and
// joins at merge points take the union. A binding that may still be
// owned at an exit leaks. Both release() and clean() discharge the
// obligation and end the binding's useful life: a later dereference or
// re-release on any reachable path is an error. Copying the raw
// pointer value (returning it, passing it along) is not a dereference
// and stays legal, which is how release() hands ownership out.
package cleanup

import (
	"github.com/mavrukin/sinter-lang/internal/ast"
	"github.com/mavrukin/sinter-lang/internal/cfg"
	"github.com/mavrukin/sinter-lang/internal/diagnostics"
	"github.com/mavrukin/sinter-lang/internal/position"
	"github.com/mavrukin/sinter-lang/internal/resolver"
	"github.com/mavrukin/sinter-lang/internal/typechecker"
	"github.com/mavrukin/sinter-lang/internal/types"
)

// Ownership states form a bitmask so a merge point can record that a
// binding is, say, owned on one path and released on another.
const (
	stateUnowned uint8 = 1 << iota
	stateOwned
	stateReleased
)

type state map[*resolver.Symbol]uint8

func (s state) clone() state {
	out := make(state, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (s state) join(other state) bool {
	changed := false
	for sym, bits := range other {
		if s[sym]|bits != s[sym] {
			s[sym] |= bits
			changed = true
		}
	}
	return changed
}

// Validate runs the cleanup analysis over every function and method
// body in the resolved program.
func Validate(res *resolver.Resolution, info *typechecker.Info, bag *diagnostics.Bag) {
	v := &validator{res: res, info: info, bag: bag}

	for _, fn := range res.FuncList {
		v.checkBody(fn.Decl.Body, fn.Decl.Params)
	}
	for _, class := range res.ClassList {
		for _, method := range class.Decl.Methods {
			v.checkBody(method.Body, method.Params)
		}
	}
}

type validator struct {
	res  *resolver.Resolution
	info *typechecker.Info
	bag  *diagnostics.Bag

	// Per-body analysis state.
	graph     *cfg.Graph
	in        map[*cfg.Block]state
	allocSite map[*resolver.Symbol]position.Span
	reported  map[position.Span]bool
}

func (v *validator) errorf(code diagnostics.Code, span position.Span, format string, args ...interface{}) {
	v.bag.Errorf(diagnostics.CategoryCleanup, code, span, format, args...)
}

func (v *validator) checkBody(body *ast.BlockStmt, params []*ast.Param) {
	if body == nil {
		return
	}
	graph := v.info.Graphs[body]
	if graph == nil {
		graph = cfg.Build(body)
	}

	v.graph = graph
	v.in = make(map[*cfg.Block]state)
	v.allocSite = make(map[*resolver.Symbol]position.Span)
	v.reported = make(map[position.Span]bool)

	entry := make(state)
	for _, p := range params {
		if sym := v.res.ParamSymbols[p]; sym != nil && isClassPointer(sym.Type) {
			entry[sym] = stateUnowned
		}
	}
	v.in[graph.Entry] = entry

	v.solve()
	v.report()
}

// solve iterates transfer functions to a fixed point. No diagnostics
// are emitted here; states are not yet stable.
func (v *validator) solve() {
	changed := true
	for changed {
		changed = false
		for _, block := range v.graph.Blocks {
			inState, ok := v.in[block]
			if !ok {
				continue // not yet reached
			}
			out := inState.clone()
			for _, node := range block.Nodes {
				v.transfer(out, node, nil)
			}
			for _, succ := range block.Succs {
				cur, seen := v.in[succ]
				if !seen {
					v.in[succ] = out.clone()
					changed = true
					continue
				}
				if cur.join(out) {
					changed = true
				}
			}
		}
	}
}

// report replays every reachable block against its stable in-state,
// emitting use/release diagnostics, then checks exit states for leaks.
func (v *validator) report() {
	for _, block := range v.graph.Blocks {
		inState, ok := v.in[block]
		if !ok {
			continue
		}
		cur := inState.clone()
		sink := &diagSink{v: v}
		for _, node := range block.Nodes {
			v.transfer(cur, node, sink)
		}
	}

	// A binding that may still be owned when the function exits was
	// not released on every path. One report per allocation site.
	leaked := make(map[position.Span]*resolver.Symbol)
	for _, pred := range v.graph.Exit.Preds {
		inState, ok := v.in[pred]
		if !ok {
			continue
		}
		cur := inState.clone()
		for _, node := range pred.Nodes {
			v.transfer(cur, node, nil)
		}
		for sym, bits := range cur {
			if bits&stateOwned != 0 {
				if site, has := v.allocSite[sym]; has {
					leaked[site] = sym
				}
			}
		}
	}
	for site, sym := range leaked {
		v.errorf(diagnostics.CodeUnreleasedPointer, site,
			"pointer '%s' allocated here is not released on every path; call '%s.release()' or '%s.clean()' before the function exits",
			sym.Name, sym.Name, sym.Name)
	}
}

// diagSink marks the reporting pass; a nil sink means transfer runs
// silently during fixed-point iteration.
type diagSink struct {
	v *validator
}

func (d *diagSink) useAfterRelease(sym *resolver.Symbol, node ast.Node) {
	key := node.Span()
	if d.v.reported[key] {
		return
	}
	d.v.reported[key] = true
	d.v.errorf(diagnostics.CodeUseAfterRelease, key,
		"pointer '%s' may already be released here", sym.Name)
}

func (d *diagSink) doubleRelease(sym *resolver.Symbol, node ast.Node) {
	key := node.Span()
	if d.v.reported[key] {
		return
	}
	d.v.reported[key] = true
	d.v.errorf(diagnostics.CodeDoubleRelease, key,
		"pointer '%s' may be released twice", sym.Name)
}

func (d *diagSink) overwriteOwned(sym *resolver.Symbol, node ast.Node) {
	key := node.Span()
	if d.v.reported[key] {
		return
	}
	d.v.reported[key] = true
	d.v.errorf(diagnostics.CodeUnreleasedPointer, key,
		"pointer '%s' may still be owned when it is overwritten; call '%s.release()' or '%s.clean()' first",
		sym.Name, sym.Name, sym.Name)
}

// transfer applies one CFG node to the state. When sink is non-nil
// the node's uses are also checked against the incoming state.
func (v *validator) transfer(cur state, node ast.Node, sink *diagSink) {
	switch n := node.(type) {
	case *ast.VarDeclStmt:
		sym := v.res.VarSymbols[n]
		if n.Init != nil {
			v.scanExpr(cur, n.Init, sink)
		}
		if sym == nil || !isClassPointer(sym.Type) {
			return
		}
		if alloc, ok := allocation(n.Init); ok {
			cur[sym] = stateOwned
			v.allocSite[sym] = alloc.Span()
		} else {
			cur[sym] = stateUnowned
		}

	case *ast.ExprStmt:
		v.scanExpr(cur, n.X, sink)

	case *ast.ReturnStmt:
		if n.Value != nil {
			v.scanExpr(cur, n.Value, sink)
		}

	case *ast.PrintStmt:
		for _, arg := range n.Args {
			v.scanExpr(cur, arg, sink)
		}

	case ast.Expr:
		// Loop and branch conditions appear as bare expressions.
		v.scanExpr(cur, n, sink)
	}
}

// scanExpr walks an expression, applying release transitions and
// checking every dereference of a tracked binding. Bare reads of the
// pointer value itself are legal in any state.
func (v *validator) scanExpr(cur state, expr ast.Expr, sink *diagSink) {
	switch e := expr.(type) {
	case *ast.BinaryExpr:
		v.scanExpr(cur, e.X, sink)
		v.scanExpr(cur, e.Y, sink)

	case *ast.UnaryExpr:
		if e.Op == "*" && !e.Postfix {
			if ident, ok := e.X.(*ast.Ident); ok {
				v.checkUse(cur, ident, sink)
			}
		}
		v.scanExpr(cur, e.X, sink)

	case *ast.AssignExpr:
		v.scanExpr(cur, e.Value, sink)
		if target, ok := e.Target.(*ast.Ident); ok {
			sym := v.res.Bindings[target]
			if sym != nil && trackable(sym) && isClassPointer(sym.Type) {
				// Overwriting a still-owned binding drops its only
				// handle; the first allocation can never be released.
				if cur[sym]&stateOwned != 0 && sink != nil {
					sink.overwriteOwned(sym, e)
				}
				if alloc, isAlloc := allocation(e.Value); isAlloc {
					cur[sym] = stateOwned
					v.allocSite[sym] = alloc.Span()
				} else {
					cur[sym] = stateUnowned
				}
				return
			}
		}
		v.scanExpr(cur, e.Target, sink)

	case *ast.MemberExpr:
		if ident, ok := e.X.(*ast.Ident); ok {
			v.checkUse(cur, ident, sink)
		}
		v.scanExpr(cur, e.X, sink)

	case *ast.CallExpr:
		if v.applyRelease(cur, e, sink) {
			return
		}
		v.scanExpr(cur, e.Callee, sink)
		for _, arg := range e.Args {
			// Passing a pointer does not transfer ownership; the
			// argument is still this function's obligation.
			v.scanExpr(cur, arg, sink)
		}

	case *ast.NewExpr:
		for _, arg := range e.Args {
			v.scanExpr(cur, arg, sink)
		}

	case *ast.DStringLit:
		// Referenced variables are read lazily at render time; a
		// released pointer snapshot is checked like any other read.
		for _, sym := range v.res.DStringRefs[e] {
			if sym != nil && cur[sym]&stateReleased != 0 && sink != nil {
				sink.useAfterRelease(sym, e)
			}
		}
	}
}

// applyRelease handles p.release() / p.clean() on a tracked binding.
// Returns true when the call was a release transition.
func (v *validator) applyRelease(cur state, call *ast.CallExpr, sink *diagSink) bool {
	callee := v.info.Callees[call]
	if callee == nil || callee.Kind != typechecker.CalleeBuiltin {
		return false
	}
	if callee.Builtin != "release" && callee.Builtin != "clean" {
		return false
	}
	member, ok := call.Callee.(*ast.MemberExpr)
	if !ok {
		return false
	}
	recv, ok := member.X.(*ast.Ident)
	if !ok {
		// Releasing a field or a computed pointer is the owning
		// class's concern; nothing tracked here changes.
		v.scanExpr(cur, member.X, sink)
		return true
	}
	sym := v.res.Bindings[recv]
	if sym == nil || !trackable(sym) {
		return true
	}
	bits, tracked := cur[sym]
	if !tracked {
		return true
	}
	if bits&stateReleased != 0 && sink != nil {
		sink.doubleRelease(sym, call)
	}
	cur[sym] = stateReleased
	return true
}

// checkUse reports a dereference of a binding that may already be
// released.
func (v *validator) checkUse(cur state, ident *ast.Ident, sink *diagSink) {
	if sink == nil {
		return
	}
	sym := v.res.Bindings[ident]
	if sym == nil || !trackable(sym) {
		return
	}
	if cur[sym]&stateReleased != 0 {
		sink.useAfterRelease(sym, ident)
	}
}

// allocation reports whether the expression produces a fresh owned
// pointer: a direct T.new() / new T() allocation.
func allocation(expr ast.Expr) (*ast.NewExpr, bool) {
	n, ok := expr.(*ast.NewExpr)
	return n, ok
}

func trackable(sym *resolver.Symbol) bool {
	return sym.Kind == resolver.SymbolVar || sym.Kind == resolver.SymbolParam
}

func isClassPointer(t *types.Type) bool {
	return t != nil && t.Kind == types.KindPointer
}
