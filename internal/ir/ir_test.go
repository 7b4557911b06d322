package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fibModule is an iterative Fibonacci lowered by hand, exercising the
// address-slot convention, loops and conditional branches.
func fibModule() *Module {
	return &Module{
		Name: "fib",
		Functions: []*Function{{
			Name:   "fib",
			Params: []string{"%n"},
			Result: "int",
			Blocks: []*BasicBlock{
				{Label: "entry", Insns: []Insn{
					Const{Dst: "%zero", Type: "int", Value: "0"},
					Const{Dst: "%one", Type: "int", Value: "1"},
					Store{Addr: "%a.addr", Src: "%zero"},
					Store{Addr: "%b.addr", Src: "%one"},
					Store{Addr: "%i.addr", Src: "%zero"},
					Br{Target: "loop"},
				}},
				{Label: "loop", Insns: []Insn{
					Load{Dst: "%i", Addr: "%i.addr"},
					Bin{Opc: "lt", Type: "int", Dst: "%cmp", LHS: "%i", RHS: "%n"},
					BrCond{Cond: "%cmp", True: "body", False: "done"},
				}},
				{Label: "body", Insns: []Insn{
					Load{Dst: "%a", Addr: "%a.addr"},
					Load{Dst: "%b", Addr: "%b.addr"},
					Bin{Opc: "add", Type: "int", Dst: "%next", LHS: "%a", RHS: "%b"},
					Store{Addr: "%a.addr", Src: "%b"},
					Store{Addr: "%b.addr", Src: "%next"},
					Bin{Opc: "add", Type: "int", Dst: "%i2", LHS: "%i", RHS: "%one"},
					Store{Addr: "%i.addr", Src: "%i2"},
					Br{Target: "loop"},
				}},
				{Label: "done", Insns: []Insn{
					Load{Dst: "%r", Addr: "%a.addr"},
					Ret{Src: "%r"},
				}},
			},
		}},
	}
}

func TestInterpFibonacci(t *testing.T) {
	in := NewInterp(fibModule())
	got, err := in.Run("fib", int32(10))
	require.NoError(t, err)
	assert.Equal(t, int32(55), got)

	got, err = in.Run("fib", int32(40))
	require.NoError(t, err)
	assert.Equal(t, int32(102334155), got)
}

func TestInterpIntWrapsAt32Bits(t *testing.T) {
	in := NewInterp(fibModule())
	got, err := in.Run("fib", int32(47))
	require.NoError(t, err)
	// fib(47) = 2971215073 exceeds int32 range and wraps, silently.
	assert.Equal(t, int32(-1323752223), got)
}

func TestInterpItableDispatch(t *testing.T) {
	mod := &Module{
		Name: "shapes",
		Classes: []*Class{{
			Name:   "Square",
			Fields: []Field{{Name: "side", Type: "int", Offset: 0}},
			Itables: []*Itable{{
				Interface: "Shape",
				Slots:     []ItableSlot{{Method: "area", Impl: "Square.area"}},
			}},
			Size: 12,
		}},
		Functions: []*Function{
			{
				Name:   "Square.area",
				Params: []string{"%this"},
				Result: "int",
				Blocks: []*BasicBlock{{Label: "entry", Insns: []Insn{
					FieldAddr{Dst: "%s.addr", Obj: "%this", Class: "Square", Field: "side"},
					Load{Dst: "%s", Addr: "%s.addr"},
					Bin{Opc: "mul", Type: "int", Dst: "%r", LHS: "%s", RHS: "%s"},
					Ret{Src: "%r"},
				}}},
			},
			{
				Name:   "main",
				Result: "int",
				Blocks: []*BasicBlock{{Label: "entry", Insns: []Insn{
					Alloc{Dst: "%sq", Class: "Square"},
					Const{Dst: "%five", Type: "int", Value: "5"},
					FieldAddr{Dst: "%f.addr", Obj: "%sq", Class: "Square", Field: "side"},
					Store{Addr: "%f.addr", Src: "%five"},
					CallVirt{Dst: "%a", Obj: "%sq", Interface: "Shape", Method: "area"},
					Free{Src: "%sq", Class: "Square"},
					Ret{Src: "%a"},
				}}},
			},
		},
	}

	in := NewInterp(mod)
	got, err := in.Run("main")
	require.NoError(t, err)
	assert.Equal(t, int32(25), got)
}

func TestInterpUseAfterFreeFails(t *testing.T) {
	mod := &Module{
		Name:    "uaf",
		Classes: []*Class{{Name: "Box", Fields: []Field{{Name: "v", Type: "int"}}}},
		Functions: []*Function{{
			Name: "main",
			Blocks: []*BasicBlock{{Label: "entry", Insns: []Insn{
				Alloc{Dst: "%b", Class: "Box"},
				Free{Src: "%b", Class: "Box"},
				FieldAddr{Dst: "%v.addr", Obj: "%b", Class: "Box", Field: "v"},
				Ret{},
			}}},
		}},
	}
	in := NewInterp(mod)
	_, err := in.Run("main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "freed")
}

func TestInterpDStringLaziness(t *testing.T) {
	mod := &Module{
		Name: "dstr",
		Functions: []*Function{{
			Name: "main",
			Blocks: []*BasicBlock{{Label: "entry", Insns: []Insn{
				Const{Dst: "%c0", Type: "int", Value: "1"},
				Store{Addr: "%count.addr", Src: "%c0"},
				DStrNew{Dst: "%d", Template: "count is {count}", Refs: []DStrRef{{Name: "count", Addr: "%count.addr"}}},
				DStrRead{Dst: "%t1", Src: "%d"},
				Call{Callee: "rt.println", Args: []string{"%t1"}},
				Const{Dst: "%c9", Type: "int", Value: "9"},
				Store{Addr: "%count.addr", Src: "%c9"},
				DStrRead{Dst: "%t2", Src: "%d"},
				Call{Callee: "rt.println", Args: []string{"%t2"}},
				Ret{},
			}}},
		}},
	}
	in := NewInterp(mod)
	_, err := in.Run("main")
	require.NoError(t, err)
	assert.Equal(t, "count is 1\ncount is 9\n", in.Output())
}

func TestInterpPrint(t *testing.T) {
	mod := &Module{
		Name: "hello",
		Functions: []*Function{{
			Name: "main",
			Blocks: []*BasicBlock{{Label: "entry", Insns: []Insn{
				Const{Dst: "%msg", Type: "str", Value: "hello"},
				Const{Dst: "%n", Type: "int", Value: "42"},
				Call{Callee: "rt.println", Args: []string{"%msg", "%n"}},
				Ret{},
			}}},
		}},
	}
	in := NewInterp(mod)
	_, err := in.Run("main")
	require.NoError(t, err)
	assert.Equal(t, "hello 42\n", in.Output())
}

func TestModuleRendering(t *testing.T) {
	mod := fibModule()
	text := mod.String()
	assert.Contains(t, text, "module fib")
	assert.Contains(t, text, "func fib(%n) -> int")
	assert.Contains(t, text, "entry:")
	assert.Contains(t, text, "br_cond %cmp, body, done")
	assert.Contains(t, text, "%next = add int %a, %b")
}

func TestClassRendering(t *testing.T) {
	c := &Class{
		Name:   "Point",
		Fields: []Field{{Name: "x", Type: "int", Offset: 0}, {Name: "y", Type: "int", Offset: 4}},
		Serial: []SerialField{{Name: "x", Type: "int"}},
		Itables: []*Itable{{
			Interface: "Printable",
			Slots:     []ItableSlot{{Method: "show", Impl: "Point.show"}},
		}},
		Size: 16,
	}
	text := c.String()
	assert.Contains(t, text, "class Point size=16")
	assert.Contains(t, text, "field y: int @4")
	assert.Contains(t, text, "serial x: int")
	assert.Contains(t, text, "itable Printable { show -> Point.show }")
}

func TestInterpDivisionByZero(t *testing.T) {
	mod := &Module{
		Name: "div0",
		Functions: []*Function{{
			Name:   "main",
			Result: "int",
			Blocks: []*BasicBlock{{Label: "entry", Insns: []Insn{
				Const{Dst: "%a", Type: "int", Value: "1"},
				Const{Dst: "%b", Type: "int", Value: "0"},
				Bin{Opc: "div", Type: "int", Dst: "%r", LHS: "%a", RHS: "%b"},
				Ret{Src: "%r"},
			}}},
		}},
	}
	in := NewInterp(mod)
	_, err := in.Run("main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
}

func TestSerializationHooks(t *testing.T) {
	mod := &Module{
		Name: "serial",
		Classes: []*Class{{
			Name:   "Person",
			Fields: []Field{{Name: "name", Type: "str"}, {Name: "age", Type: "int", Offset: 8}},
			Serial: []SerialField{{Name: "name", Type: "str"}, {Name: "age", Type: "int"}},
		}},
		Functions: []*Function{{
			Name:   "main",
			Result: "str",
			Blocks: []*BasicBlock{{Label: "entry", Insns: []Insn{
				Alloc{Dst: "%p", Class: "Person"},
				Const{Dst: "%nm", Type: "str", Value: "Ada"},
				FieldAddr{Dst: "%n.addr", Obj: "%p", Class: "Person", Field: "name"},
				Store{Addr: "%n.addr", Src: "%nm"},
				Const{Dst: "%age", Type: "int", Value: "36"},
				FieldAddr{Dst: "%a.addr", Obj: "%p", Class: "Person", Field: "age"},
				Store{Addr: "%a.addr", Src: "%age"},
				Call{Dst: "%json", Callee: "rt.as_json", Args: []string{"%p"}},
				Const{Dst: "%cls", Type: "str", Value: "Person"},
				Call{Dst: "%q", Callee: "rt.from_json", Args: []string{"%cls", "%json"}},
				FieldAddr{Dst: "%qa.addr", Obj: "%q", Class: "Person", Field: "age"},
				Load{Dst: "%qa", Addr: "%qa.addr"},
				Call{Callee: "rt.println", Args: []string{"%qa"}},
				Ret{Src: "%json"},
			}}},
		}},
	}
	in := NewInterp(mod)
	got, err := in.Run("main")
	require.NoError(t, err)
	assert.Equal(t, `{"name": "Ada", "age": 36}`, got)
	assert.Equal(t, "36\n", in.Output())
}
