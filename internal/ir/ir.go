// Package ir defines the flat intermediate representation the
// compiler lowers to. A module holds class layouts, interface tables
// and functions of basic blocks; instructions are target-agnostic and
// render to a stable textual form. Interface tables are the only
// dynamic dispatch mechanism.
package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Module bundles the lowered output of one compilation unit.
type Module struct {
	Name      string
	Classes   []*Class
	Functions []*Function
}

// Lookup returns the function with the given name, or nil.
func (m *Module) Lookup(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Class is the fixed record layout of one source class: fields in
// declaration order, then one pointer-sized slot per implemented
// interface holding that interface's method table.
type Class struct {
	Name    string
	Fields  []Field
	Itables []*Itable
	Serial  []SerialField
	Size    int
}

// FieldOffset returns the byte offset of a field, or -1.
func (c *Class) FieldOffset(name string) int {
	for _, f := range c.Fields {
		if f.Name == name {
			return f.Offset
		}
	}
	return -1
}

// Field is one slot of a class record.
type Field struct {
	Name   string
	Type   string
	Offset int
}

// SerialField is one entry of a class's serialization metadata, in
// field declaration order. Derived names the computing function for
// derived fields; Class names the pointee class of class-typed
// fields.
type SerialField struct {
	Name    string
	Type    string
	Class   string
	Derived string
}

// Itable binds an interface's methods, in interface declaration
// order, to one class's implementations.
type Itable struct {
	Interface string
	Slots     []ItableSlot
}

// ItableSlot pairs an interface method name with the implementing
// function symbol.
type ItableSlot struct {
	Method string
	Impl   string
}

// Function is a sequence of basic blocks. Instance methods take the
// receiver as their first parameter.
type Function struct {
	Name   string
	Params []string
	Result string
	Blocks []*BasicBlock
}

// Block returns the block with the given label, or nil.
func (f *Function) Block(label string) *BasicBlock {
	for _, b := range f.Blocks {
		if b.Label == label {
			return b
		}
	}
	return nil
}

// BasicBlock holds a linear run of instructions ending in a branch,
// return, or fallthrough into the next block.
type BasicBlock struct {
	Label string
	Insns []Insn
}

// Insn is one IR instruction.
type Insn interface {
	Op() string
	String() string
}

// Const materializes a literal into a temporary.
type Const struct {
	Dst   string
	Value string
	Type  string
}

func (Const) Op() string       { return "const" }
func (i Const) String() string { return fmt.Sprintf("%s = const %s %s", i.Dst, i.Type, i.Value) }

// Mov copies a value between slots.
type Mov struct{ Dst, Src string }

func (Mov) Op() string       { return "mov" }
func (i Mov) String() string { return fmt.Sprintf("%s = mov %s", i.Dst, i.Src) }

// Bin is a two-operand arithmetic, comparison or logical instruction.
// Opc is one of add, sub, mul, div, mod, and, or, eq, ne, lt, le, gt,
// ge. Integer arithmetic wraps at 32 bits.
type Bin struct {
	Opc  string
	Dst  string
	Type string
	LHS  string
	RHS  string
}

func (i Bin) Op() string { return i.Opc }
func (i Bin) String() string {
	return fmt.Sprintf("%s = %s %s %s, %s", i.Dst, i.Opc, i.Type, i.LHS, i.RHS)
}

// Un is a one-operand instruction: neg or not.
type Un struct {
	Opc string
	Dst string
	Src string
}

func (i Un) Op() string     { return i.Opc }
func (i Un) String() string { return fmt.Sprintf("%s = %s %s", i.Dst, i.Opc, i.Src) }

// Load reads through an address slot.
type Load struct{ Dst, Addr string }

func (Load) Op() string       { return "load" }
func (i Load) String() string { return fmt.Sprintf("%s = load %s", i.Dst, i.Addr) }

// Store writes through an address slot.
type Store struct{ Addr, Src string }

func (Store) Op() string       { return "store" }
func (i Store) String() string { return fmt.Sprintf("store %s, %s", i.Addr, i.Src) }

// Alloc allocates one class record and default-initializes it.
type Alloc struct {
	Dst   string
	Class string
}

func (Alloc) Op() string       { return "alloc" }
func (i Alloc) String() string { return fmt.Sprintf("%s = alloc %s", i.Dst, i.Class) }

// Free releases a class record's storage.
type Free struct {
	Src   string
	Class string
}

func (Free) Op() string       { return "free" }
func (i Free) String() string { return fmt.Sprintf("free %s %s", i.Class, i.Src) }

// FieldAddr computes the address of a field slot in an object.
type FieldAddr struct {
	Dst   string
	Obj   string
	Class string
	Field string
}

func (FieldAddr) Op() string { return "fieldaddr" }
func (i FieldAddr) String() string {
	return fmt.Sprintf("%s = fieldaddr %s, %s.%s", i.Dst, i.Obj, i.Class, i.Field)
}

// Call is a direct call to a generated function or a runtime hook
// (rt.* symbols). Dst is empty for void calls.
type Call struct {
	Dst    string
	Callee string
	Args   []string
}

func (Call) Op() string { return "call" }
func (i Call) String() string {
	if i.Dst == "" {
		return fmt.Sprintf("call %s(%s)", i.Callee, strings.Join(i.Args, ", "))
	}
	return fmt.Sprintf("%s = call %s(%s)", i.Dst, i.Callee, strings.Join(i.Args, ", "))
}

// CallVirt dispatches through the receiver's interface table.
type CallVirt struct {
	Dst       string
	Obj       string
	Interface string
	Method    string
	Args      []string
}

func (CallVirt) Op() string { return "callvirt" }
func (i CallVirt) String() string {
	out := fmt.Sprintf("callvirt %s[%s.%s](%s)", i.Obj, i.Interface, i.Method,
		strings.Join(i.Args, ", "))
	if i.Dst != "" {
		out = i.Dst + " = " + out
	}
	return out
}

// DStrNew builds a dynamic string record from a template and the
// address slots of the variables it references.
type DStrNew struct {
	Dst      string
	Template string
	Refs     []DStrRef
}

// DStrRef names one template substitution and the address slot it
// observes.
type DStrRef struct {
	Name string
	Addr string
}

func (DStrNew) Op() string { return "dstr_new" }
func (i DStrNew) String() string {
	refs := make([]string, len(i.Refs))
	for idx, r := range i.Refs {
		refs[idx] = r.Name + "=" + r.Addr
	}
	return fmt.Sprintf("%s = dstr_new %s, [%s]", i.Dst,
		strconv.Quote(i.Template), strings.Join(refs, ", "))
}

// DStrRead re-renders a dynamic string if any referenced variable
// changed since the last read, and yields the rendered text.
type DStrRead struct{ Dst, Src string }

func (DStrRead) Op() string       { return "dstr_read" }
func (i DStrRead) String() string { return fmt.Sprintf("%s = dstr_read %s", i.Dst, i.Src) }

// Br jumps unconditionally.
type Br struct{ Target string }

func (Br) Op() string       { return "br" }
func (i Br) String() string { return "br " + i.Target }

// BrCond branches on a boolean value.
type BrCond struct{ Cond, True, False string }

func (BrCond) Op() string       { return "br_cond" }
func (i BrCond) String() string { return fmt.Sprintf("br_cond %s, %s, %s", i.Cond, i.True, i.False) }

// Ret leaves the function. Src is empty for void returns.
type Ret struct{ Src string }

func (Ret) Op() string { return "ret" }
func (i Ret) String() string {
	if i.Src == "" {
		return "ret"
	}
	return "ret " + i.Src
}

// String renders the whole module in its stable textual form.
func (m *Module) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "module %s\n", m.Name)
	for _, c := range m.Classes {
		b.WriteString("\n")
		b.WriteString(c.String())
	}
	for _, f := range m.Functions {
		b.WriteString("\n")
		b.WriteString(f.String())
	}
	return b.String()
}

func (c *Class) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "class %s size=%d {\n", c.Name, c.Size)
	for _, f := range c.Fields {
		fmt.Fprintf(&b, "  field %s: %s @%d\n", f.Name, f.Type, f.Offset)
	}
	for _, s := range c.Serial {
		if s.Derived != "" {
			fmt.Fprintf(&b, "  serial %s: %s via %s\n", s.Name, s.Type, s.Derived)
		} else {
			fmt.Fprintf(&b, "  serial %s: %s\n", s.Name, s.Type)
		}
	}
	for _, it := range c.Itables {
		fmt.Fprintf(&b, "  itable %s {", it.Interface)
		for i, slot := range it.Slots {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, " %s -> %s", slot.Method, slot.Impl)
		}
		b.WriteString(" }\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func (f *Function) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "func %s(%s)", f.Name, strings.Join(f.Params, ", "))
	if f.Result != "" && f.Result != "void" {
		fmt.Fprintf(&b, " -> %s", f.Result)
	}
	b.WriteString(" {\n")
	for _, blk := range f.Blocks {
		fmt.Fprintf(&b, "%s:\n", blk.Label)
		for _, insn := range blk.Insns {
			fmt.Fprintf(&b, "  %s\n", insn.String())
		}
	}
	b.WriteString("}\n")
	return b.String()
}
