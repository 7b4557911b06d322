package codegen

import (
	"fmt"

	"github.com/mavrukin/sinter-lang/internal/ast"
	"github.com/mavrukin/sinter-lang/internal/diagnostics"
	"github.com/mavrukin/sinter-lang/internal/ir"
	"github.com/mavrukin/sinter-lang/internal/resolver"
	"github.com/mavrukin/sinter-lang/internal/types"
)

type loopLabels struct {
	continueTo string
	breakTo    string
}

// fnBuilder lowers one callable body. Locals live in %name.addr
// slots; expression results in %tN temporaries.
type fnBuilder struct {
	g      *Generator
	fn     *ir.Function
	cur    *ir.BasicBlock
	class  *resolver.ClassInfo // receiver class, nil for free and static functions
	tmps   int
	labels int
	slots  map[*resolver.Symbol]string
	used   map[string]int
	loops  []loopLabels
}

func (g *Generator) emitFunction(name string, params []*ast.Param, sig types.Signature,
	body *ast.BlockStmt, class *resolver.ClassInfo) {

	result := "void"
	if sig.Result != nil {
		result = sig.Result.String()
	}
	fn := &ir.Function{Name: name, Result: result}
	if class != nil {
		fn.Params = append(fn.Params, "%this")
	}
	b := &fnBuilder{
		g:     g,
		fn:    fn,
		class: class,
		slots: make(map[*resolver.Symbol]string),
		used:  make(map[string]int),
	}
	b.newBlock("entry")

	for _, p := range params {
		reg := "%" + p.Name
		fn.Params = append(fn.Params, reg)
		if sym := g.res.ParamSymbols[p]; sym != nil {
			b.emit(ir.Store{Addr: b.slot(sym), Src: reg})
		}
	}

	if body != nil {
		b.lowerBlock(body)
	}
	b.emit(ir.Ret{})
	g.mod.Functions = append(g.mod.Functions, fn)
}

func (b *fnBuilder) newBlock(label string) *ir.BasicBlock {
	blk := &ir.BasicBlock{Label: label}
	b.fn.Blocks = append(b.fn.Blocks, blk)
	b.cur = blk
	return blk
}

func (b *fnBuilder) emit(insn ir.Insn) {
	b.cur.Insns = append(b.cur.Insns, insn)
}

func (b *fnBuilder) temp() string {
	b.tmps++
	return fmt.Sprintf("%%t%d", b.tmps)
}

func (b *fnBuilder) label(prefix string) string {
	b.labels++
	return fmt.Sprintf("%s%d", prefix, b.labels)
}

// tempSlot returns a fresh compiler-introduced address register,
// numbered from the temp counter so register names never depend on
// how many labels were minted.
func (b *fnBuilder) tempSlot(name string) string {
	b.tmps++
	return fmt.Sprintf("%%%s%d.addr", name, b.tmps)
}

// slot returns the address register of a local binding, keeping
// shadowed names distinct.
func (b *fnBuilder) slot(sym *resolver.Symbol) string {
	if s, ok := b.slots[sym]; ok {
		return s
	}
	b.used[sym.Name]++
	name := "%" + sym.Name
	if n := b.used[sym.Name]; n > 1 {
		name = fmt.Sprintf("%%%s.%d", sym.Name, n)
	}
	s := name + ".addr"
	b.slots[sym] = s
	return s
}

func (b *fnBuilder) internal(node ast.Node, format string, args ...interface{}) {
	b.g.bag.Internalf(diagnostics.CategoryCodegen, node.Span(), format, args...)
}

func (b *fnBuilder) typeOf(expr ast.Expr) *types.Type {
	return b.g.info.TypeOf(expr)
}

func (b *fnBuilder) lowerBlock(block *ast.BlockStmt) {
	for _, stmt := range block.Stmts {
		b.lowerStmt(stmt)
	}
}

func (b *fnBuilder) lowerStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		b.lowerBlock(s)

	case *ast.VarDeclStmt:
		sym := b.g.res.VarSymbols[s]
		if sym == nil || sym.Type == nil {
			return
		}
		var value string
		if s.Init != nil {
			value = b.lowerCoerced(s.Init, sym.Type)
		} else {
			value = b.zeroValue(sym.Type)
		}
		b.emit(ir.Store{Addr: b.slot(sym), Src: value})

	case *ast.ExprStmt:
		b.lowerExpr(s.X)

	case *ast.ReturnStmt:
		if s.Value == nil {
			b.emit(ir.Ret{})
			return
		}
		value := b.lowerCoerced(s.Value, b.resultType())
		b.emit(ir.Ret{Src: value})

	case *ast.IfStmt:
		b.lowerIf(s)

	case *ast.WhileStmt:
		b.lowerWhile(s)

	case *ast.ForStmt:
		b.lowerFor(s)

	case *ast.BreakStmt:
		if len(b.loops) > 0 {
			b.emit(ir.Br{Target: b.loops[len(b.loops)-1].breakTo})
		}

	case *ast.ContinueStmt:
		if len(b.loops) > 0 {
			b.emit(ir.Br{Target: b.loops[len(b.loops)-1].continueTo})
		}

	case *ast.PrintStmt:
		args := make([]string, len(s.Args))
		for i, arg := range s.Args {
			args[i] = b.lowerRead(arg)
		}
		callee := "rt.print"
		if s.Newline {
			callee = "rt.println"
		}
		b.emit(ir.Call{Callee: callee, Args: args})
	}
}

func (b *fnBuilder) resultType() *types.Type {
	// Result strings round-trip losslessly for coercion purposes;
	// only the d_str/str distinction matters here.
	if b.fn.Result == "str" {
		return b.g.res.Registry.Str()
	}
	return nil
}

func (b *fnBuilder) lowerIf(s *ast.IfStmt) {
	cond := b.lowerExpr(s.Cond)
	thenL := b.label("then")
	endL := b.label("endif")
	elseL := endL
	if s.Else != nil {
		elseL = b.label("else")
	}
	b.emit(ir.BrCond{Cond: cond, True: thenL, False: elseL})

	b.newBlock(thenL)
	b.lowerBlock(s.Then)
	b.emit(ir.Br{Target: endL})

	if s.Else != nil {
		b.newBlock(elseL)
		b.lowerBlock(s.Else)
		b.emit(ir.Br{Target: endL})
	}
	b.newBlock(endL)
}

func (b *fnBuilder) lowerWhile(s *ast.WhileStmt) {
	condL := b.label("while.cond")
	bodyL := b.label("while.body")
	endL := b.label("while.end")

	b.emit(ir.Br{Target: condL})
	b.newBlock(condL)
	cond := b.lowerExpr(s.Cond)
	b.emit(ir.BrCond{Cond: cond, True: bodyL, False: endL})

	b.newBlock(bodyL)
	b.loops = append(b.loops, loopLabels{continueTo: condL, breakTo: endL})
	b.lowerBlock(s.Body)
	b.loops = b.loops[:len(b.loops)-1]
	b.emit(ir.Br{Target: condL})

	b.newBlock(endL)
}

func (b *fnBuilder) lowerFor(s *ast.ForStmt) {
	condL := b.label("for.cond")
	bodyL := b.label("for.body")
	postL := b.label("for.post")
	endL := b.label("for.end")

	if s.Init != nil {
		b.lowerStmt(s.Init)
	}
	b.emit(ir.Br{Target: condL})

	b.newBlock(condL)
	if s.Cond != nil {
		cond := b.lowerExpr(s.Cond)
		b.emit(ir.BrCond{Cond: cond, True: bodyL, False: endL})
	} else {
		b.emit(ir.Br{Target: bodyL})
	}

	b.newBlock(bodyL)
	b.loops = append(b.loops, loopLabels{continueTo: postL, breakTo: endL})
	b.lowerBlock(s.Body)
	b.loops = b.loops[:len(b.loops)-1]
	b.emit(ir.Br{Target: postL})

	b.newBlock(postL)
	if s.Post != nil {
		b.lowerExpr(s.Post)
	}
	b.emit(ir.Br{Target: condL})

	b.newBlock(endL)
}

func (b *fnBuilder) zeroValue(t *types.Type) string {
	dst := b.temp()
	switch t.Kind {
	case types.KindInt:
		b.emit(ir.Const{Dst: dst, Type: "int", Value: "0"})
	case types.KindFloat, types.KindDouble:
		b.emit(ir.Const{Dst: dst, Type: t.String(), Value: "0"})
	case types.KindBoolean:
		b.emit(ir.Const{Dst: dst, Type: "boolean", Value: "false"})
	case types.KindStr:
		b.emit(ir.Const{Dst: dst, Type: "str", Value: ""})
	default:
		b.emit(ir.Const{Dst: dst, Type: "null", Value: "null"})
	}
	return dst
}

// lowerCoerced lowers an expression into a context of the given type,
// inserting the d-string read when a d_str flows into a str slot.
func (b *fnBuilder) lowerCoerced(expr ast.Expr, want *types.Type) string {
	reg := b.lowerExpr(expr)
	if want == nil || want.Kind != types.KindStr {
		return reg
	}
	if t := b.typeOf(expr); t != nil && t.Kind == types.KindDStr {
		dst := b.temp()
		b.emit(ir.DStrRead{Dst: dst, Src: reg})
		return dst
	}
	return reg
}

// lowerRead lowers an expression for an observing context (print,
// concatenation): d-strings are rendered, everything else passes
// through.
func (b *fnBuilder) lowerRead(expr ast.Expr) string {
	reg := b.lowerExpr(expr)
	if t := b.typeOf(expr); t != nil && t.Kind == types.KindDStr {
		dst := b.temp()
		b.emit(ir.DStrRead{Dst: dst, Src: reg})
		return dst
	}
	return reg
}
