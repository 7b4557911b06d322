// Package ast defines the abstract syntax tree for Sinter source
// programs. The tree is immutable after parsing: later pipeline
// stages attach their results in side tables keyed by node identity
// instead of mutating nodes.
package ast

import (
	"fmt"
	"strings"

	"github.com/mavrukin/sinter-lang/internal/position"
)

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() position.Span
}

// Decl is a top-level or class-member declaration.
type Decl interface {
	Node
	declNode()
}

// Stmt is a statement inside a function or method body.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is an expression that produces a value.
type Expr interface {
	Node
	exprNode()
}

// Base carries the source span shared by every AST node.
type Base struct {
	Spn position.Span
}

func (b Base) Span() position.Span { return b.Spn }

// At builds the embedded span carrier for a node.
func At(span position.Span) Base {
	return Base{Spn: span}
}

// Visibility of a class member, set by the enclosing visibility block.
type Visibility int

const (
	// Members before any visibility block default to public.
	VisibilityPublic Visibility = iota
	VisibilityProtected
	VisibilityPrivate
)

// String returns the visibility keyword
func (v Visibility) String() string {
	switch v {
	case VisibilityPublic:
		return "public"
	case VisibilityProtected:
		return "protected"
	case VisibilityPrivate:
		return "private"
	default:
		return "unknown"
	}
}

// TypeRef is a syntactic reference to a type: a base name plus zero
// or more pointer stars, e.g. "Point**".
type TypeRef struct {
	Base
	Name  string
	Stars int
}

// String renders the reference as written in source.
func (t *TypeRef) String() string {
	return t.Name + strings.Repeat("*", t.Stars)
}

// Program is the root of one compilation unit.
type Program struct {
	Base
	Decls []Decl
}

// ClassDecl declares a class, its inheritance clause and its members.
// Fields and Methods each preserve declaration order.
type ClassDecl struct {
	Base
	Name       string
	TypeParams []string
	Extends    string // empty when the class has no superclass
	Implements []string
	Fields     []*FieldDecl
	Methods    []*MethodDecl
}

func (*ClassDecl) declNode() {}

// InterfaceDecl declares an interface: method signatures only.
type InterfaceDecl struct {
	Base
	Name    string
	Methods []*MethodSig
}

func (*InterfaceDecl) declNode() {}

// MethodSig is a bodiless method signature inside an interface.
type MethodSig struct {
	Base
	Name   string
	Params []*Param
	Result *TypeRef
}

// FunctionDecl declares a free function at the top level.
type FunctionDecl struct {
	Base
	Name   string
	Params []*Param
	Result *TypeRef
	Body   *BlockStmt
}

func (*FunctionDecl) declNode() {}

// MethodDecl declares a method inside a class. Static methods are
// introduced with the `function` keyword, instance methods with
// `method`.
type MethodDecl struct {
	Base
	Name       string
	Params     []*Param
	Result     *TypeRef
	Body       *BlockStmt
	Static     bool
	Visibility Visibility
}

func (*MethodDecl) declNode() {}

// FieldDecl declares a class field.
type FieldDecl struct {
	Base
	Name       string
	Type       *TypeRef
	Const      bool
	Init       Expr // nil when the field has no initializer
	Annotation *Annotation
	Visibility Visibility
}

func (*FieldDecl) declNode() {}

// Param is one function or method parameter.
type Param struct {
	Base
	Name string
	Type *TypeRef
}

// Statements.

// BlockStmt is a brace-delimited statement list; it opens a scope.
type BlockStmt struct {
	Base
	Stmts []Stmt
}

func (*BlockStmt) stmtNode() {}

// VarDeclStmt declares a local variable.
type VarDeclStmt struct {
	Base
	Name string
	Type *TypeRef
	Init Expr // nil when the variable is not initialized
}

func (*VarDeclStmt) stmtNode() {}

// ExprStmt evaluates an expression for its effect.
type ExprStmt struct {
	Base
	X Expr
}

func (*ExprStmt) stmtNode() {}

// ReturnStmt returns from the enclosing function or method.
type ReturnStmt struct {
	Base
	Value Expr // nil for a bare return in a void function
}

func (*ReturnStmt) stmtNode() {}

// IfStmt is a conditional with an optional else block.
type IfStmt struct {
	Base
	Cond Expr
	Then *BlockStmt
	Else *BlockStmt // nil when absent
}

func (*IfStmt) stmtNode() {}

// WhileStmt loops while the condition holds.
type WhileStmt struct {
	Base
	Cond Expr
	Body *BlockStmt
}

func (*WhileStmt) stmtNode() {}

// ForStmt is the traditional three-clause loop. The init clause and
// the induction variable it may declare are scoped to the loop.
type ForStmt struct {
	Base
	Init Stmt // nil, *VarDeclStmt, or *ExprStmt
	Cond Expr // nil means loop forever
	Post Expr // nil when absent
	Body *BlockStmt
}

func (*ForStmt) stmtNode() {}

// BreakStmt exits the nearest enclosing loop.
type BreakStmt struct {
	Base
}

func (*BreakStmt) stmtNode() {}

// ContinueStmt jumps to the next iteration of the nearest loop.
type ContinueStmt struct {
	Base
}

func (*ContinueStmt) stmtNode() {}

// PrintStmt is the built-in print/println statement.
type PrintStmt struct {
	Base
	Args    []Expr
	Newline bool
}

func (*PrintStmt) stmtNode() {}

// Expressions.

// Ident is a bare identifier reference.
type Ident struct {
	Base
	Name string
}

func (*Ident) exprNode() {}

// IntLit is an integer literal. Value keeps the full parsed number;
// the type checker applies 32-bit semantics.
type IntLit struct {
	Base
	Value int64
	Text  string
}

func (*IntLit) exprNode() {}

// FloatLit is a floating-point literal.
type FloatLit struct {
	Base
	Value float64
	Text  string
}

func (*FloatLit) exprNode() {}

// StringLit is an ordinary string literal, already unescaped.
type StringLit struct {
	Base
	Value string
}

func (*StringLit) exprNode() {}

// DStringLit is a dynamic string literal D"...". Refs lists the
// referenced variable names in template order.
type DStringLit struct {
	Base
	Template string
	Refs     []string
}

func (*DStringLit) exprNode() {}

// BoolLit is true or false.
type BoolLit struct {
	Base
	Value bool
}

func (*BoolLit) exprNode() {}

// NullLit is the null pointer literal.
type NullLit struct {
	Base
}

func (*NullLit) exprNode() {}

// BinaryExpr applies a binary operator.
type BinaryExpr struct {
	Base
	Op string
	X  Expr
	Y  Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr applies a prefix operator (!, -, *, &) or a postfix
// increment/decrement.
type UnaryExpr struct {
	Base
	Op      string
	X       Expr
	Postfix bool
}

func (*UnaryExpr) exprNode() {}

// AssignExpr assigns Value to Target. It produces no value; it is an
// expression only so it can appear in a for-loop post clause.
type AssignExpr struct {
	Base
	Target Expr
	Value  Expr
}

func (*AssignExpr) exprNode() {}

// MemberExpr selects a member of an object: p.x
type MemberExpr struct {
	Base
	X      Expr
	Member string
}

func (*MemberExpr) exprNode() {}

// CallExpr calls a function or a method: f(a), p.move(1, 2)
type CallExpr struct {
	Base
	Callee Expr
	Args   []Expr
}

func (*CallExpr) exprNode() {}

// NewExpr allocates a class instance: Point.new() or new Point().
type NewExpr struct {
	Base
	Class string
	Args  []Expr
}

func (*NewExpr) exprNode() {}

// Annotation is the parsed form of a field's @attribute(...) marker.
// A bare @attribute has every flag false and requests both accessors.
type Annotation struct {
	Base
	ReadOnly     bool
	WriteOnly    bool
	Derived      bool
	Serializable bool
}

// ParseAnnotation parses the textual body of an @attribute marker,
// e.g. "read_only, serializable". Unknown flag names are returned so
// the caller can report them.
func ParseAnnotation(text string, span position.Span) (*Annotation, []string) {
	a := &Annotation{Base: At(span)}
	var unknown []string

	text = strings.TrimSpace(text)
	if text == "" {
		return a, nil
	}

	for _, part := range strings.Split(text, ",") {
		flag := strings.TrimSpace(part)
		// Accept both bare flags and flag=true spellings.
		if i := strings.IndexByte(flag, '='); i >= 0 {
			value := strings.TrimSpace(flag[i+1:])
			flag = strings.TrimSpace(flag[:i])
			if value != "true" {
				unknown = append(unknown, fmt.Sprintf("%s=%s", flag, value))
				continue
			}
		}
		switch flag {
		case "read_only":
			a.ReadOnly = true
		case "write_only":
			a.WriteOnly = true
		case "derived":
			a.Derived = true
		case "serializable":
			a.Serializable = true
		case "":
		default:
			unknown = append(unknown, flag)
		}
	}
	return a, unknown
}
