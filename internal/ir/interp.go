package ir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mavrukin/sinter-lang/internal/runtime"
)

// Interp executes a lowered module against the runtime model. It is
// the reference backend: tests run generated IR through it to pin the
// observable semantics a native backend must reproduce.
type Interp struct {
	mod *Module
	reg runtime.Registry
	out strings.Builder
}

// NewInterp prepares a module for execution.
func NewInterp(mod *Module) *Interp {
	reg := make(runtime.Registry, len(mod.Classes))
	for _, c := range mod.Classes {
		desc := &runtime.Descriptor{Name: c.Name}
		for _, f := range c.Fields {
			desc.Fields = append(desc.Fields, runtime.FieldDesc{Name: f.Name, Type: f.Type})
		}
		for _, s := range c.Serial {
			desc.Serial = append(desc.Serial, runtime.SerialDesc{
				Name: s.Name, Type: s.Type, Class: s.Class, Derived: s.Derived,
			})
		}
		reg[c.Name] = desc
	}
	return &Interp{mod: mod, reg: reg}
}

// Output returns everything print/println wrote so far.
func (in *Interp) Output() string { return in.out.String() }

// Run invokes a function by name.
func (in *Interp) Run(name string, args ...runtime.Value) (runtime.Value, error) {
	fn := in.mod.Lookup(name)
	if fn == nil {
		return nil, fmt.Errorf("function %s not found", name)
	}
	return in.call(fn, args)
}

// CallDerived evaluates a derived field's computing method for the
// serialization walkers.
func (in *Interp) CallDerived(obj *runtime.Object, fn string) (runtime.Value, error) {
	return in.Run(fn, obj)
}

// cellRef is a mutable storage location. Local variable slots and
// field addresses both satisfy it, and both serve as d-string
// observation points.
type cellRef interface {
	runtime.Slot
	Set(runtime.Value)
}

type varCell struct{ v runtime.Value }

func (c *varCell) Get() runtime.Value  { return c.v }
func (c *varCell) Set(v runtime.Value) { c.v = v }

type fieldCell struct {
	obj   *runtime.Object
	field string
}

func (c *fieldCell) Get() runtime.Value  { return c.obj.Fields[c.field] }
func (c *fieldCell) Set(v runtime.Value) { c.obj.Fields[c.field] = v }

type frame struct {
	regs map[string]runtime.Value
}

func (f *frame) get(name string) (runtime.Value, error) {
	v, ok := f.regs[name]
	if !ok {
		return nil, fmt.Errorf("undefined register %s", name)
	}
	return v, nil
}

func (in *Interp) call(fn *Function, args []runtime.Value) (runtime.Value, error) {
	if len(args) != len(fn.Params) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", fn.Name, len(fn.Params), len(args))
	}
	fr := &frame{regs: make(map[string]runtime.Value)}
	for i, p := range fn.Params {
		fr.regs[p] = args[i]
	}
	if len(fn.Blocks) == 0 {
		return nil, nil
	}

	blockIdx := 0
	for {
		block := fn.Blocks[blockIdx]
		jumped := false
		for _, insn := range block.Insns {
			switch i := insn.(type) {
			case Br:
				idx, err := in.blockIndex(fn, i.Target)
				if err != nil {
					return nil, err
				}
				blockIdx, jumped = idx, true

			case BrCond:
				v, err := fr.get(i.Cond)
				if err != nil {
					return nil, err
				}
				cond, ok := v.(bool)
				if !ok {
					return nil, fmt.Errorf("br_cond on non-boolean %v", v)
				}
				target := i.True
				if !cond {
					target = i.False
				}
				idx, err := in.blockIndex(fn, target)
				if err != nil {
					return nil, err
				}
				blockIdx, jumped = idx, true

			case Ret:
				if i.Src == "" {
					return nil, nil
				}
				return fr.get(i.Src)

			default:
				if err := in.exec(fr, insn); err != nil {
					return nil, fmt.Errorf("%s: %s: %w", fn.Name, insn, err)
				}
			}
			if jumped {
				break
			}
		}
		if !jumped {
			blockIdx++
			if blockIdx >= len(fn.Blocks) {
				return nil, nil
			}
		}
	}
}

func (in *Interp) blockIndex(fn *Function, label string) (int, error) {
	for idx, b := range fn.Blocks {
		if b.Label == label {
			return idx, nil
		}
	}
	return 0, fmt.Errorf("label %s not found in %s", label, fn.Name)
}

func (in *Interp) exec(fr *frame, insn Insn) error {
	switch i := insn.(type) {
	case Const:
		v, err := parseConst(i.Type, i.Value)
		if err != nil {
			return err
		}
		fr.regs[i.Dst] = v

	case Mov:
		v, err := fr.get(i.Src)
		if err != nil {
			return err
		}
		fr.regs[i.Dst] = v

	case Bin:
		lhs, err := fr.get(i.LHS)
		if err != nil {
			return err
		}
		rhs, err := fr.get(i.RHS)
		if err != nil {
			return err
		}
		v, err := evalBin(i.Opc, i.Type, lhs, rhs)
		if err != nil {
			return err
		}
		fr.regs[i.Dst] = v

	case Un:
		v, err := fr.get(i.Src)
		if err != nil {
			return err
		}
		switch i.Opc {
		case "neg":
			switch x := v.(type) {
			case int32:
				fr.regs[i.Dst] = -x
			case float64:
				fr.regs[i.Dst] = -x
			default:
				return fmt.Errorf("neg on %v", v)
			}
		case "not":
			b, ok := v.(bool)
			if !ok {
				return fmt.Errorf("not on %v", v)
			}
			fr.regs[i.Dst] = !b
		default:
			return fmt.Errorf("unknown unary op %s", i.Opc)
		}

	case Load:
		cell, err := in.cellAt(fr, i.Addr)
		if err != nil {
			return err
		}
		fr.regs[i.Dst] = cell.Get()

	case Store:
		v, err := fr.get(i.Src)
		if err != nil {
			return err
		}
		cell, ok := fr.regs[i.Addr].(cellRef)
		if !ok {
			cell = &varCell{}
			fr.regs[i.Addr] = cell
		}
		cell.Set(v)

	case Alloc:
		desc := in.reg[i.Class]
		if desc == nil {
			return fmt.Errorf("unknown class %s", i.Class)
		}
		fr.regs[i.Dst] = runtime.NewObject(desc)

	case Free:
		obj, err := in.objectAt(fr, i.Src)
		if err != nil {
			return err
		}
		obj.Freed = true

	case FieldAddr:
		obj, err := in.objectAt(fr, i.Obj)
		if err != nil {
			return err
		}
		fr.regs[i.Dst] = &fieldCell{obj: obj, field: i.Field}

	case Call:
		return in.execCall(fr, i)

	case CallVirt:
		obj, err := in.objectAt(fr, i.Obj)
		if err != nil {
			return err
		}
		impl, err := in.dispatch(obj, i.Interface, i.Method)
		if err != nil {
			return err
		}
		args := []runtime.Value{obj}
		for _, a := range i.Args {
			v, err := fr.get(a)
			if err != nil {
				return err
			}
			args = append(args, v)
		}
		ret, err := in.call(impl, args)
		if err != nil {
			return err
		}
		if i.Dst != "" {
			fr.regs[i.Dst] = ret
		}

	case DStrNew:
		refs := make([]runtime.Ref, len(i.Refs))
		for idx, ref := range i.Refs {
			cell, err := in.cellAt(fr, ref.Addr)
			if err != nil {
				return err
			}
			refs[idx] = runtime.Ref{Name: ref.Name, Slot: cell}
		}
		fr.regs[i.Dst] = runtime.NewDString(i.Template, refs)

	case DStrRead:
		v, err := fr.get(i.Src)
		if err != nil {
			return err
		}
		d, ok := v.(*runtime.DString)
		if !ok {
			return fmt.Errorf("dstr_read on %v", v)
		}
		fr.regs[i.Dst] = d.Read()

	default:
		return fmt.Errorf("unknown instruction %s", insn.Op())
	}
	return nil
}

func (in *Interp) cellAt(fr *frame, addr string) (cellRef, error) {
	v, err := fr.get(addr)
	if err != nil {
		return nil, err
	}
	cell, ok := v.(cellRef)
	if !ok {
		return nil, fmt.Errorf("%s is not an address", addr)
	}
	return cell, nil
}

func (in *Interp) objectAt(fr *frame, reg string) (*runtime.Object, error) {
	v, err := fr.get(reg)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("null pointer dereference via %s", reg)
	}
	obj, ok := v.(*runtime.Object)
	if !ok {
		return nil, fmt.Errorf("%s does not hold an object", reg)
	}
	if obj.Freed {
		return nil, fmt.Errorf("use of freed %s object via %s", obj.Class.Name, reg)
	}
	return obj, nil
}

func (in *Interp) dispatch(obj *runtime.Object, iface, method string) (*Function, error) {
	for _, c := range in.mod.Classes {
		if c.Name != obj.Class.Name {
			continue
		}
		for _, it := range c.Itables {
			if it.Interface != iface {
				continue
			}
			for _, slot := range it.Slots {
				if slot.Method == method {
					fn := in.mod.Lookup(slot.Impl)
					if fn == nil {
						return nil, fmt.Errorf("itable slot %s unbound", slot.Impl)
					}
					return fn, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("class %s has no %s.%s itable entry", obj.Class.Name, iface, method)
}

func (in *Interp) execCall(fr *frame, i Call) error {
	args := make([]runtime.Value, len(i.Args))
	for idx, a := range i.Args {
		v, err := fr.get(a)
		if err != nil {
			return err
		}
		args[idx] = v
	}

	if strings.HasPrefix(i.Callee, "rt.") {
		ret, err := in.runtimeCall(i.Callee, args)
		if err != nil {
			return err
		}
		if i.Dst != "" {
			fr.regs[i.Dst] = ret
		}
		return nil
	}

	fn := in.mod.Lookup(i.Callee)
	if fn == nil {
		return fmt.Errorf("call to undefined function %s", i.Callee)
	}
	ret, err := in.call(fn, args)
	if err != nil {
		return err
	}
	if i.Dst != "" {
		fr.regs[i.Dst] = ret
	}
	return nil
}

func (in *Interp) runtimeCall(name string, args []runtime.Value) (runtime.Value, error) {
	switch name {
	case "rt.print", "rt.println":
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = runtime.Format(a)
		}
		in.out.WriteString(strings.Join(parts, " "))
		if name == "rt.println" {
			in.out.WriteString("\n")
		}
		return nil, nil

	case "rt.str_concat":
		if len(args) != 2 {
			return nil, fmt.Errorf("rt.str_concat arity")
		}
		return runtime.Format(args[0]) + runtime.Format(args[1]), nil

	case "rt.as_json", "rt.as_xml":
		obj, ok := args[0].(*runtime.Object)
		if !ok {
			return nil, fmt.Errorf("%s on non-object", name)
		}
		if name == "rt.as_json" {
			return runtimeString(runtime.AsJSON(obj, in.reg, in))
		}
		return runtimeString(runtime.AsXML(obj, in.reg, in))

	case "rt.from_json", "rt.from_xml":
		if len(args) != 2 {
			return nil, fmt.Errorf("%s arity", name)
		}
		class, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("%s class name", name)
		}
		input, ok := args[1].(string)
		if !ok {
			return nil, fmt.Errorf("%s input must be str", name)
		}
		desc := in.reg[class]
		if desc == nil {
			return nil, fmt.Errorf("unknown class %s", class)
		}
		if name == "rt.from_json" {
			return runtime.FromJSON(desc, input, in.reg)
		}
		return runtime.FromXML(desc, input, in.reg)
	}
	return nil, fmt.Errorf("unknown runtime hook %s", name)
}

func runtimeString(s string, err error) (runtime.Value, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

func parseConst(typ, value string) (runtime.Value, error) {
	switch typ {
	case "int":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad int constant %q", value)
		}
		return int32(n), nil
	case "float", "double":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("bad float constant %q", value)
		}
		return f, nil
	case "boolean":
		return value == "true", nil
	case "str":
		return value, nil
	case "null":
		return nil, nil
	}
	return nil, fmt.Errorf("bad constant type %s", typ)
}

func evalBin(opc, typ string, lhs, rhs runtime.Value) (runtime.Value, error) {
	switch opc {
	case "eq":
		return lhs == rhs, nil
	case "ne":
		return lhs != rhs, nil
	case "and", "or":
		a, aok := lhs.(bool)
		b, bok := rhs.(bool)
		if !aok || !bok {
			return nil, fmt.Errorf("%s on non-boolean", opc)
		}
		if opc == "and" {
			return a && b, nil
		}
		return a || b, nil
	}

	if typ == "str" && opc == "add" {
		a, aok := lhs.(string)
		b, bok := rhs.(string)
		if !aok || !bok {
			return nil, fmt.Errorf("str add on %v, %v", lhs, rhs)
		}
		return a + b, nil
	}

	switch typ {
	case "int":
		a, aok := lhs.(int32)
		b, bok := rhs.(int32)
		if !aok || !bok {
			return nil, fmt.Errorf("int %s on %v, %v", opc, lhs, rhs)
		}
		switch opc {
		// Arithmetic wraps at 32 bits by construction.
		case "add":
			return a + b, nil
		case "sub":
			return a - b, nil
		case "mul":
			return a * b, nil
		case "div":
			if b == 0 {
				return nil, fmt.Errorf("integer division by zero")
			}
			return a / b, nil
		case "mod":
			if b == 0 {
				return nil, fmt.Errorf("integer modulo by zero")
			}
			return a % b, nil
		case "lt":
			return a < b, nil
		case "le":
			return a <= b, nil
		case "gt":
			return a > b, nil
		case "ge":
			return a >= b, nil
		}

	case "float", "double":
		a, aok := lhs.(float64)
		b, bok := rhs.(float64)
		if !aok || !bok {
			return nil, fmt.Errorf("%s %s on %v, %v", typ, opc, lhs, rhs)
		}
		switch opc {
		case "add":
			return a + b, nil
		case "sub":
			return a - b, nil
		case "mul":
			return a * b, nil
		case "div":
			return a / b, nil
		case "lt":
			return a < b, nil
		case "le":
			return a <= b, nil
		case "gt":
			return a > b, nil
		case "ge":
			return a >= b, nil
		}
	}
	return nil, fmt.Errorf("unsupported %s %s", typ, opc)
}
