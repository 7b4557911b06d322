// Package codegen lowers a resolved, typed and validated program to
// the flat IR. Classes become fixed-layout records with one itable
// slot per implemented interface; itables are the only dynamic
// dispatch path. new lowers to alloc plus declared-initializer
// stores; clean lowers to the class's generated cleanup routine plus
// free; release is purely a static transfer and emits nothing.
package codegen

import (
	"fmt"
	"strings"

	"github.com/mavrukin/sinter-lang/internal/annotations"
	"github.com/mavrukin/sinter-lang/internal/ast"
	"github.com/mavrukin/sinter-lang/internal/diagnostics"
	"github.com/mavrukin/sinter-lang/internal/ir"
	"github.com/mavrukin/sinter-lang/internal/resolver"
	"github.com/mavrukin/sinter-lang/internal/typechecker"
	"github.com/mavrukin/sinter-lang/internal/types"
)

// Generator lowers one compilation unit.
type Generator struct {
	res  *resolver.Resolution
	info *typechecker.Info
	meta *annotations.Metadata
	bag  *diagnostics.Bag
	mod  *ir.Module

	fnSyms   map[*resolver.FunctionInfo]string
	methSyms map[*resolver.MethodInfo]string
}

// Generate lowers the program into one IR module.
func Generate(res *resolver.Resolution, info *typechecker.Info, meta *annotations.Metadata,
	bag *diagnostics.Bag, moduleName string) *ir.Module {

	g := &Generator{
		res:      res,
		info:     info,
		meta:     meta,
		bag:      bag,
		mod:      &ir.Module{Name: moduleName},
		fnSyms:   make(map[*resolver.FunctionInfo]string),
		methSyms: make(map[*resolver.MethodInfo]string),
	}

	g.assignSymbols()

	for _, class := range res.ClassList {
		g.mod.Classes = append(g.mod.Classes, g.classLayout(class))
	}
	for _, class := range res.ClassList {
		g.emitClass(class)
	}
	for _, fn := range res.FuncList {
		g.emitFunction(g.fnSyms[fn], fn.Decl.Params, fn.Sig, fn.Decl.Body, nil)
	}
	return g.mod
}

// assignSymbols names every generated function up front so call sites
// can reference forward declarations. Overloads get a suffix built
// from their parameter types.
func (g *Generator) assignSymbols() {
	byName := make(map[string][]*resolver.FunctionInfo)
	for _, fn := range g.res.FuncList {
		byName[fn.Decl.Name] = append(byName[fn.Decl.Name], fn)
	}
	for _, fn := range g.res.FuncList {
		name := fn.Decl.Name
		if len(byName[name]) > 1 {
			name += overloadSuffix(fn.Sig)
		}
		g.fnSyms[fn] = name
	}

	for _, class := range g.res.ClassList {
		for _, decl := range class.Decl.Methods {
			info := g.methodInfo(class, decl)
			if info == nil {
				continue
			}
			name := class.Decl.Name + "." + decl.Name
			if len(class.Methods[decl.Name]) > 1 {
				name += overloadSuffix(info.Sig)
			}
			g.methSyms[info] = name
		}
	}
}

func (g *Generator) methodInfo(class *resolver.ClassInfo, decl *ast.MethodDecl) *resolver.MethodInfo {
	for _, m := range class.Methods[decl.Name] {
		if m.Decl == decl {
			return m
		}
	}
	return nil
}

func overloadSuffix(sig types.Signature) string {
	if len(sig.Params) == 0 {
		return "$void"
	}
	parts := make([]string, len(sig.Params))
	for i, p := range sig.Params {
		parts[i] = strings.ReplaceAll(p.String(), "*", "p")
	}
	return "$" + strings.Join(parts, "$")
}

// layoutFields returns every stored field of a class, inherited
// first, each in its declaring class's declaration order.
func layoutFields(class *resolver.ClassInfo) []*resolver.Symbol {
	var chain []*resolver.ClassInfo
	for cur := class; cur != nil; cur = cur.Super {
		chain = append([]*resolver.ClassInfo{cur}, chain...)
	}
	var out []*resolver.Symbol
	for _, c := range chain {
		out = append(out, c.Fields...)
	}
	return out
}

func (g *Generator) classLayout(class *resolver.ClassInfo) *ir.Class {
	layout := &ir.Class{Name: class.Decl.Name}

	offset := 0
	for _, sym := range layoutFields(class) {
		if sym.Type == nil {
			continue
		}
		layout.Fields = append(layout.Fields, ir.Field{
			Name:   sym.Name,
			Type:   sym.Type.String(),
			Offset: offset,
		})
		offset += sym.Type.Size()
	}

	for _, iface := range class.AllInterfaces() {
		itable := &ir.Itable{Interface: iface.Decl.Name}
		for _, want := range iface.Methods {
			impl := g.implementing(class, want)
			slot := ir.ItableSlot{Method: want.Decl.Name}
			if impl != nil {
				slot.Impl = g.methSyms[impl]
			}
			itable.Slots = append(itable.Slots, slot)
		}
		layout.Itables = append(layout.Itables, itable)
		offset += types.WordSize
	}
	layout.Size = offset

	if meta := g.meta.Classes[class]; meta != nil {
		for _, plan := range meta.Serial {
			s := ir.SerialField{Name: plan.Decl.Name}
			if plan.Sym != nil && plan.Sym.Type != nil {
				s.Type = plan.Sym.Type.String()
				if t := plan.Sym.Type; t.Kind == types.KindPointer && t.Elem.Kind == types.KindClass {
					s.Class = t.Elem.Name
				}
			}
			if plan.Derived != nil {
				s.Derived = g.methSyms[plan.Derived]
			}
			layout.Serial = append(layout.Serial, s)
		}
	}
	return layout
}

// implementing finds the class method bound into an itable slot.
func (g *Generator) implementing(class *resolver.ClassInfo, want *resolver.MethodSigInfo) *resolver.MethodInfo {
	for _, m := range class.LookupMethod(want.Decl.Name) {
		if !m.Decl.Static && m.Sig.Equal(want.Sig) {
			return m
		}
	}
	return nil
}

// emitClass lowers a class's methods, synthesized accessors and its
// cleanup routine.
func (g *Generator) emitClass(class *resolver.ClassInfo) {
	for _, decl := range class.Decl.Methods {
		info := g.methodInfo(class, decl)
		if info == nil {
			continue
		}
		owner := class
		if decl.Static {
			owner = nil
		}
		g.emitFunction(g.methSyms[info], decl.Params, info.Sig, decl.Body, owner)
	}

	if meta := g.meta.Classes[class]; meta != nil {
		for _, plan := range meta.Fields {
			g.emitAccessors(class, plan)
		}
	}
	g.emitCleanup(class)
}

// emitAccessors synthesizes getField/setField bodies requested by the
// annotation processor.
func (g *Generator) emitAccessors(class *resolver.ClassInfo, plan *annotations.FieldPlan) {
	if plan.Sym == nil || plan.Sym.Type == nil {
		return
	}
	fieldType := plan.Sym.Type.String()

	if plan.SynthGetter {
		g.mod.Functions = append(g.mod.Functions, &ir.Function{
			Name:   class.Decl.Name + "." + plan.GetterName(),
			Params: []string{"%this"},
			Result: fieldType,
			Blocks: []*ir.BasicBlock{{Label: "entry", Insns: []ir.Insn{
				ir.FieldAddr{Dst: "%f.addr", Obj: "%this", Class: class.Decl.Name, Field: plan.Decl.Name},
				ir.Load{Dst: "%v", Addr: "%f.addr"},
				ir.Ret{Src: "%v"},
			}}},
		})
	}
	if plan.SynthSetter {
		g.mod.Functions = append(g.mod.Functions, &ir.Function{
			Name:   class.Decl.Name + "." + plan.SetterName(),
			Params: []string{"%this", "%value"},
			Result: "void",
			Blocks: []*ir.BasicBlock{{Label: "entry", Insns: []ir.Insn{
				ir.FieldAddr{Dst: "%f.addr", Obj: "%this", Class: class.Decl.Name, Field: plan.Decl.Name},
				ir.Store{Addr: "%f.addr", Src: "%value"},
				ir.Ret{},
			}}},
		})
	}
}

// emitCleanup generates ClassName.$cleanup, which discharges the
// class's own obligation for its pointer fields before the record is
// freed.
func (g *Generator) emitCleanup(class *resolver.ClassInfo) {
	fn := &ir.Function{
		Name:   class.Decl.Name + ".$cleanup",
		Params: []string{"%this"},
		Result: "void",
	}
	entry := &ir.BasicBlock{Label: "entry"}
	fn.Blocks = append(fn.Blocks, entry)
	cur := entry

	n := 0
	for _, sym := range layoutFields(class) {
		t := sym.Type
		if t == nil || t.Kind != types.KindPointer || t.Elem.Kind != types.KindClass {
			continue
		}
		n++
		fReg := fmt.Sprintf("%%f%d", n)
		cur.Insns = append(cur.Insns,
			ir.FieldAddr{Dst: fReg + ".addr", Obj: "%this", Class: class.Decl.Name, Field: sym.Name},
			ir.Load{Dst: fReg, Addr: fReg + ".addr"},
			ir.Const{Dst: fReg + ".null", Type: "null", Value: "null"},
			ir.Bin{Opc: "eq", Type: "ptr", Dst: fReg + ".isnull", LHS: fReg, RHS: fReg + ".null"},
			ir.BrCond{Cond: fReg + ".isnull", True: fmt.Sprintf("skip%d", n), False: fmt.Sprintf("drop%d", n)},
		)
		drop := &ir.BasicBlock{Label: fmt.Sprintf("drop%d", n), Insns: []ir.Insn{
			ir.Call{Callee: t.Elem.Name + ".$cleanup", Args: []string{fReg}},
			ir.Free{Src: fReg, Class: t.Elem.Name},
			ir.Br{Target: fmt.Sprintf("skip%d", n)},
		}}
		next := &ir.BasicBlock{Label: fmt.Sprintf("skip%d", n)}
		fn.Blocks = append(fn.Blocks, drop, next)
		cur = next
	}
	cur.Insns = append(cur.Insns, ir.Ret{})
	g.mod.Functions = append(g.mod.Functions, fn)
}
