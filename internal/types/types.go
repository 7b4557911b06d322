// Package types defines the Sinter type representation. Types are
// interned in a Registry so that equality is pointer identity: two
// mentions of Point* resolve to the same *Type.
package types

import "strings"

// Kind discriminates the type representation.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
	KindDouble
	KindBoolean
	KindStr
	KindDStr
	KindVoid
	KindNull
	KindClass
	KindInterface
	KindPointer
	KindTypeParam
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindBoolean:
		return "boolean"
	case KindStr:
		return "str"
	case KindDStr:
		return "d_str"
	case KindVoid:
		return "void"
	case KindNull:
		return "null"
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindPointer:
		return "pointer"
	case KindTypeParam:
		return "type parameter"
	default:
		return "unknown"
	}
}

// Type is one Sinter type. Named types (classes, interfaces, type
// parameters) carry their Name; pointer types carry the pointed-to
// type in Elem.
type Type struct {
	Kind Kind
	Name string
	Elem *Type // pointee, set only for KindPointer
}

// String renders the type as written in source.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind == KindPointer {
		return t.Elem.String() + "*"
	}
	if t.Name != "" {
		return t.Name
	}
	return t.Kind.String()
}

// IsNumeric reports whether the type supports arithmetic operators.
func (t *Type) IsNumeric() bool {
	switch t.Kind {
	case KindInt, KindFloat, KindDouble:
		return true
	}
	return false
}

// IsPointer reports whether the type is a pointer.
func (t *Type) IsPointer() bool { return t.Kind == KindPointer }

// IsNamed reports whether the type is a class or interface.
func (t *Type) IsNamed() bool {
	return t.Kind == KindClass || t.Kind == KindInterface
}

// Sizes of primitive values in the emitted layout, in bytes.
// Pointers and str/d_str handles are pointer sized.
const (
	WordSize = 8
)

// Size returns the layout size of a value of this type.
func (t *Type) Size() int {
	switch t.Kind {
	case KindInt, KindFloat, KindBoolean:
		return 4
	case KindDouble:
		return 8
	case KindVoid:
		return 0
	default:
		return WordSize
	}
}

// Registry interns types for one compilation unit.
type Registry struct {
	primitives map[Kind]*Type
	named      map[string]*Type
	pointers   map[*Type]*Type
}

// NewRegistry creates a registry pre-populated with the primitives.
func NewRegistry() *Registry {
	r := &Registry{
		primitives: make(map[Kind]*Type),
		named:      make(map[string]*Type),
		pointers:   make(map[*Type]*Type),
	}
	for _, k := range []Kind{KindInt, KindFloat, KindDouble, KindBoolean, KindStr, KindDStr, KindVoid, KindNull} {
		r.primitives[k] = &Type{Kind: k}
	}
	return r
}

// Primitive returns the interned primitive of the given kind.
func (r *Registry) Primitive(k Kind) *Type { return r.primitives[k] }

// Convenience accessors for the common primitives.
func (r *Registry) Int() *Type     { return r.primitives[KindInt] }
func (r *Registry) Float() *Type   { return r.primitives[KindFloat] }
func (r *Registry) Double() *Type  { return r.primitives[KindDouble] }
func (r *Registry) Boolean() *Type { return r.primitives[KindBoolean] }
func (r *Registry) Str() *Type     { return r.primitives[KindStr] }
func (r *Registry) DStr() *Type    { return r.primitives[KindDStr] }
func (r *Registry) Void() *Type    { return r.primitives[KindVoid] }
func (r *Registry) Null() *Type    { return r.primitives[KindNull] }

// Declare interns a class, interface, or type-parameter type under
// its name. Declaring the same name twice returns the first interned
// type regardless of kind; duplicate detection is the resolver's job.
func (r *Registry) Declare(name string, kind Kind) *Type {
	if t, ok := r.named[name]; ok {
		return t
	}
	t := &Type{Kind: kind, Name: name}
	r.named[name] = t
	return t
}

// Lookup resolves a source-level type name. Primitive keywords map
// to their interned primitives; anything else must have been declared.
func (r *Registry) Lookup(name string) *Type {
	switch name {
	case "int":
		return r.Int()
	case "float":
		return r.Float()
	case "double":
		return r.Double()
	case "boolean":
		return r.Boolean()
	case "str":
		return r.Str()
	case "d_str":
		return r.DStr()
	case "void":
		return r.Void()
	}
	return r.named[name]
}

// PointerTo returns the interned pointer type to elem.
func (r *Registry) PointerTo(elem *Type) *Type {
	if t, ok := r.pointers[elem]; ok {
		return t
	}
	t := &Type{Kind: KindPointer, Elem: elem}
	r.pointers[elem] = t
	return t
}

// Signature is a callable's shape, used for overload resolution and
// interface conformance checks.
type Signature struct {
	Params []*Type
	Result *Type
}

// Equal reports exact signature equality: same arity, identical
// parameter types in order, identical result type.
func (s Signature) Equal(other Signature) bool {
	if len(s.Params) != len(other.Params) || s.Result != other.Result {
		return false
	}
	for i := range s.Params {
		if s.Params[i] != other.Params[i] {
			return false
		}
	}
	return true
}

// String renders the signature like (int, Point*) -> void.
func (s Signature) String() string {
	parts := make([]string, len(s.Params))
	for i, p := range s.Params {
		parts[i] = p.String()
	}
	return "(" + strings.Join(parts, ", ") + ") -> " + s.Result.String()
}
