// Package runtime models the values generated programs manipulate at
// run time: class instances, dynamic strings and the serialization
// walkers behind as_json/as_xml/from_json/from_xml. The reference
// interpreter executes lowered modules against this model; a native
// backend would implement the same contracts in its runtime library.
package runtime

import (
	"fmt"
	"strconv"
)

// Value is any runtime value: int32, float64, bool, string, *Object,
// *DString, or nil for null.
type Value interface{}

// Slot is a readable storage location, used by dynamic strings to
// observe the variables they reference.
type Slot interface {
	Get() Value
}

// FieldDesc describes one stored slot of a class.
type FieldDesc struct {
	Name string
	Type string
}

// SerialDesc is one entry of a class's serialization metadata, in
// field declaration order. Derived names the computing function for
// derived fields and is empty for stored ones.
type SerialDesc struct {
	Name    string
	Type    string
	Class   string // pointee class name for class-typed fields, else ""
	Derived string
}

// Descriptor is the runtime shape of one class.
type Descriptor struct {
	Name   string
	Fields []FieldDesc
	Serial []SerialDesc
}

// Registry maps class names to descriptors for one loaded module.
type Registry map[string]*Descriptor

// Object is one heap-allocated class instance.
type Object struct {
	Class  *Descriptor
	Fields map[string]Value
	Freed  bool
}

// NewObject allocates an instance with zero-valued fields. Declared
// initializers are stored by the generated constructor code, not
// here.
func NewObject(desc *Descriptor) *Object {
	obj := &Object{Class: desc, Fields: make(map[string]Value, len(desc.Fields))}
	for _, f := range desc.Fields {
		obj.Fields[f.Name] = ZeroValue(f.Type)
	}
	return obj
}

// ZeroValue returns the default value of a lowered type.
func ZeroValue(typ string) Value {
	switch typ {
	case "int":
		return int32(0)
	case "float", "double":
		return float64(0)
	case "boolean":
		return false
	case "str":
		return ""
	default:
		// Pointers and d-strings start null.
		return nil
	}
}

// Format renders a value the way print and d-string substitution do.
func Format(v Value) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	case *DString:
		return x.Read()
	case *Object:
		return fmt.Sprintf("<%s@%p>", x.Class.Name, x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
