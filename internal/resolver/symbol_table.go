package resolver

import (
	"fmt"

	"github.com/mavrukin/sinter-lang/internal/ast"
	"github.com/mavrukin/sinter-lang/internal/position"
	"github.com/mavrukin/sinter-lang/internal/types"
)

// SymbolKind identifies what a symbol names.
type SymbolKind int

const (
	SymbolClass SymbolKind = iota
	SymbolInterface
	SymbolFunction
	SymbolMethod
	SymbolField
	SymbolParam
	SymbolVar
	SymbolTypeParam
)

// String returns the symbol kind name
func (k SymbolKind) String() string {
	switch k {
	case SymbolClass:
		return "class"
	case SymbolInterface:
		return "interface"
	case SymbolFunction:
		return "function"
	case SymbolMethod:
		return "method"
	case SymbolField:
		return "field"
	case SymbolParam:
		return "parameter"
	case SymbolVar:
		return "variable"
	case SymbolTypeParam:
		return "type parameter"
	default:
		return "unknown"
	}
}

// Symbol is one named entity: a declaration plus its resolved type.
type Symbol struct {
	Name       string
	Kind       SymbolKind
	Type       *types.Type // value type; nil for classes, interfaces and callables
	Decl       ast.Node
	Visibility ast.Visibility
	Const      bool
	Span       position.Span
}

func (s *Symbol) String() string {
	return fmt.Sprintf("%s %s", s.Kind, s.Name)
}

// ScopeKind identifies what construct opened a scope.
type ScopeKind int

const (
	ScopeGlobal ScopeKind = iota
	ScopeClass
	ScopeFunction
	ScopeLoop
	ScopeBlock
)

// String returns the scope kind name
func (k ScopeKind) String() string {
	switch k {
	case ScopeGlobal:
		return "global"
	case ScopeClass:
		return "class"
	case ScopeFunction:
		return "function"
	case ScopeLoop:
		return "loop"
	case ScopeBlock:
		return "block"
	default:
		return "unknown"
	}
}

// Scope is one level of the lexical scope tree. Lookup walks outward
// to the parent; shadowing an outer binding is legal, redefining a
// name within one scope is not.
type Scope struct {
	Kind    ScopeKind
	Parent  *Scope
	symbols map[string]*Symbol
}

// NewScope creates a scope nested in parent (nil for the global scope).
func NewScope(kind ScopeKind, parent *Scope) *Scope {
	return &Scope{
		Kind:    kind,
		Parent:  parent,
		symbols: make(map[string]*Symbol),
	}
}

// Define installs a symbol. It returns the previous symbol when the
// name is already bound in this exact scope.
func (s *Scope) Define(sym *Symbol) *Symbol {
	if prev, ok := s.symbols[sym.Name]; ok {
		return prev
	}
	s.symbols[sym.Name] = sym
	return nil
}

// LookupLocal finds a name in this scope only.
func (s *Scope) LookupLocal(name string) *Symbol {
	return s.symbols[name]
}

// Lookup finds a name here or in any enclosing scope; the innermost
// binding wins.
func (s *Scope) Lookup(name string) *Symbol {
	for scope := s; scope != nil; scope = scope.Parent {
		if sym, ok := scope.symbols[name]; ok {
			return sym
		}
	}
	return nil
}

// EnclosingClass returns the nearest class scope, or nil outside one.
func (s *Scope) EnclosingClass() *Scope {
	for scope := s; scope != nil; scope = scope.Parent {
		if scope.Kind == ScopeClass {
			return scope
		}
	}
	return nil
}
