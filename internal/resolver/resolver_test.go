package resolver

import (
	"strings"
	"testing"

	"github.com/mavrukin/sinter-lang/internal/ast"
	"github.com/mavrukin/sinter-lang/internal/diagnostics"
	"github.com/mavrukin/sinter-lang/internal/parser"
	"github.com/mavrukin/sinter-lang/internal/position"
	"github.com/mavrukin/sinter-lang/internal/types"
)

func resolveSource(t *testing.T, src string) (*Resolution, *diagnostics.Bag) {
	t.Helper()
	bag := diagnostics.NewBag()
	file := position.NewSourceFile("test.sn", src)
	prog := parser.Parse(file, bag)
	if bag.HasErrors() {
		t.Fatalf("parse failed:\n%s", bag.Report(nil))
	}
	return Resolve(prog, bag), bag
}

func resolveOK(t *testing.T, src string) *Resolution {
	t.Helper()
	res, bag := resolveSource(t, src)
	if bag.HasErrors() {
		t.Fatalf("unexpected resolution errors:\n%s", bag.Report(nil))
	}
	return res
}

func TestForwardReference(t *testing.T) {
	// Point is declared after its use site.
	resolveOK(t, `
function origin() -> void {
    var p: Point* = Point.new();
    p.clean();
}

class Point {
    var x: int = 0;
}
`)
}

func TestDuplicateTopLevelDeclaration(t *testing.T) {
	_, bag := resolveSource(t, `
class Point { }
class Point { }
`)
	if !bag.HasErrors() {
		t.Fatal("expected duplicate declaration error")
	}
	if len(bag.ByCode(diagnostics.CodeDuplicateDeclaration)) != 1 {
		t.Errorf("expected exactly one DuplicateDeclarationError, got:\n%s", bag.Report(nil))
	}
}

func TestUndefinedIdentifier(t *testing.T) {
	_, bag := resolveSource(t, `
function main() -> void {
    var x: int = missing;
}
`)
	diags := bag.ByCode(diagnostics.CodeUnresolvedReference)
	if len(diags) != 1 || !strings.Contains(diags[0].Message, "'missing'") {
		t.Fatalf("expected UnresolvedReferenceError for 'missing', got:\n%s", bag.Report(nil))
	}
}

func TestShadowingIsLegal(t *testing.T) {
	res := resolveOK(t, `
function main() -> void {
    var x: int = 1;
    if (true) {
        var x: str = "inner";
    }
}
`)
	// Two distinct symbols named x must exist.
	count := 0
	for _, sym := range res.VarSymbols {
		if sym.Name == "x" {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected 2 symbols named x, got %d", count)
	}
}

func TestDuplicateInSameScope(t *testing.T) {
	_, bag := resolveSource(t, `
function main() -> void {
    var x: int = 1;
    var x: int = 2;
}
`)
	if len(bag.ByCode(diagnostics.CodeDuplicateDeclaration)) != 1 {
		t.Fatalf("expected DuplicateDeclarationError, got:\n%s", bag.Report(nil))
	}
}

func TestLoopVariableScopedToLoop(t *testing.T) {
	_, bag := resolveSource(t, `
function main() -> void {
    for (var i: int = 0; i < 3; i = i + 1) {
    }
    var x: int = i;
}
`)
	if len(bag.ByCode(diagnostics.CodeUnresolvedReference)) != 1 {
		t.Fatalf("induction variable must not escape the loop:\n%s", bag.Report(nil))
	}
}

func TestFieldVisibleUnqualifiedInMethods(t *testing.T) {
	res := resolveOK(t, `
class Counter {
private:
    var count: int = 0;
public:
    method bump() -> void {
        count = count + 1;
    }
}
`)
	// Every binding of `count` inside the method resolves to the field.
	found := false
	for ident, sym := range res.Bindings {
		if ident.Name == "count" {
			found = true
			if sym.Kind != SymbolField {
				t.Errorf("count bound to %s, want field", sym.Kind)
			}
		}
	}
	if !found {
		t.Fatal("no binding recorded for count")
	}
}

func TestFieldShadowsGlobalInMethodBody(t *testing.T) {
	// The enclosing class's field scope is checked before the global
	// scope, so the unqualified name picks the field.
	res := resolveOK(t, `
function value() -> int {
    return 1;
}

class Holder {
    var value: int = 2;

    method read() -> int {
        return value;
    }
}
`)
	for ident, sym := range res.Bindings {
		if ident.Name == "value" && sym.Kind != SymbolField {
			t.Errorf("value bound to %s, want field", sym.Kind)
		}
	}
}

func TestParameterShadowsField(t *testing.T) {
	res := resolveOK(t, `
class Box {
    var size: int = 0;

    method resize(size: int) -> void {
        var copy: int = size;
    }
}
`)
	for ident, sym := range res.Bindings {
		if ident.Name == "size" && sym.Kind != SymbolParam {
			t.Errorf("size bound to %s, want parameter (innermost binding wins)", sym.Kind)
		}
	}
}

func TestInheritedFieldVisibleUnqualified(t *testing.T) {
	res := resolveOK(t, `
class Base {
protected:
    var tag: int = 0;
}

class Derived extends Base {
public:
    method read() -> int {
        return tag;
    }
}
`)
	want := res.Classes["Base"].LookupField("tag")
	if want == nil {
		t.Fatal("Base must declare tag")
	}
	found := false
	for ident, sym := range res.Bindings {
		if ident.Name == "tag" {
			found = true
			if sym != want {
				t.Errorf("tag bound to %v, want the inherited field symbol", sym)
			}
		}
	}
	if !found {
		t.Fatal("no binding recorded for tag")
	}
}

func TestGrandparentFieldVisibleUnqualified(t *testing.T) {
	res := resolveOK(t, `
class A {
protected:
    var n: int = 1;
}

class B extends A {
}

class C extends B {
public:
    method value() -> int {
        return n;
    }
}
`)
	for ident, sym := range res.Bindings {
		if ident.Name == "n" && sym.Kind != SymbolField {
			t.Errorf("n bound to %s, want field from the inheritance chain", sym.Kind)
		}
	}
}

func TestInheritanceLinking(t *testing.T) {
	res := resolveOK(t, `
interface Shape {
    method getArea() -> double;
}

class Base implements Shape {
    method getArea() -> double {
        return 0.0;
    }
}

class Derived extends Base {
}
`)
	derived := res.Classes["Derived"]
	base := res.Classes["Base"]
	shape := res.Interfaces["Shape"]

	if derived.Super != base {
		t.Fatal("Derived.Super not linked to Base")
	}
	if !derived.HasAncestor(base) {
		t.Error("HasAncestor(Base) = false")
	}
	if !derived.ImplementsInterface(shape) {
		t.Error("inherited interface not visible from Derived")
	}
	if ms := derived.LookupMethod("getArea"); len(ms) != 1 {
		t.Errorf("inherited method lookup failed, got %d candidates", len(ms))
	}
}

func TestCyclicInheritance(t *testing.T) {
	_, bag := resolveSource(t, `
class A extends B { }
class B extends C { }
class C extends A { }
`)
	diags := bag.ByCode(diagnostics.CodeCyclicInheritance)
	if len(diags) == 0 {
		t.Fatalf("expected CyclicInheritanceError:\n%s", bag.Report(nil))
	}
	if !strings.Contains(diags[0].Message, "->") {
		t.Errorf("cycle message should show the chain, got %q", diags[0].Message)
	}
}

func TestExtendsInterfaceRejected(t *testing.T) {
	_, bag := resolveSource(t, `
interface I { }
class C extends I { }
`)
	if !bag.HasErrors() {
		t.Fatal("extending an interface must be an error")
	}
}

func TestPointerToPrimitiveRejected(t *testing.T) {
	_, bag := resolveSource(t, `
function main() -> void {
    var p: int* = null;
}
`)
	if len(bag.ByCode(diagnostics.CodeInvalidPointerType)) != 1 {
		t.Fatalf("expected InvalidPointerTypeError:\n%s", bag.Report(nil))
	}
}

func TestMethodResolvesAheadOfGlobalFunction(t *testing.T) {
	res := resolveOK(t, `
function reset() -> void {
}

class Gauge {
    var level: int = 0;

    method reset() -> void {
    }

    method drain() -> void {
        reset();
    }
}
`)
	for ident, sym := range res.Bindings {
		if ident.Name == "reset" && sym.Kind != SymbolMethod {
			t.Errorf("reset bound to %s inside method body, want method", sym.Kind)
		}
	}
}

func TestDStringRefsResolved(t *testing.T) {
	res := resolveOK(t, `
function main() -> void {
    var count: int = 0;
    var msg: str = D"The count is: {count}";
}
`)
	var lit *ast.DStringLit
	for l := range res.DStringRefs {
		lit = l
	}
	if lit == nil {
		t.Fatal("no d-string refs recorded")
	}
	syms := res.DStringRefs[lit]
	if len(syms) != 1 || syms[0].Name != "count" || syms[0].Type.Kind != types.KindInt {
		t.Errorf("unexpected d-string refs: %v", syms)
	}
}

func TestDStringUndefinedRef(t *testing.T) {
	_, bag := resolveSource(t, `
function main() -> void {
    var msg: str = D"value is {nothing}";
}
`)
	if len(bag.ByCode(diagnostics.CodeUnresolvedReference)) != 1 {
		t.Fatalf("expected UnresolvedReferenceError for d-string ref:\n%s", bag.Report(nil))
	}
}

func TestDuplicateMethodSignature(t *testing.T) {
	_, bag := resolveSource(t, `
class C {
    method f(a: int) -> void { }
    method f(a: int) -> void { }
}
`)
	if len(bag.ByCode(diagnostics.CodeDuplicateDeclaration)) != 1 {
		t.Fatalf("expected duplicate method error:\n%s", bag.Report(nil))
	}
}

func TestOverloadedMethodsAllowed(t *testing.T) {
	res := resolveOK(t, `
class C {
    method f(a: int) -> void { }
    method f(a: str) -> void { }
}
`)
	if ms := res.Classes["C"].LookupMethod("f"); len(ms) != 2 {
		t.Errorf("expected 2 overloads, got %d", len(ms))
	}
}
