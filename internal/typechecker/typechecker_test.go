package typechecker

import (
	"strings"
	"testing"

	"github.com/mavrukin/sinter-lang/internal/diagnostics"
	"github.com/mavrukin/sinter-lang/internal/parser"
	"github.com/mavrukin/sinter-lang/internal/position"
	"github.com/mavrukin/sinter-lang/internal/resolver"
)

func checkSource(t *testing.T, src string) (*Info, *diagnostics.Bag) {
	t.Helper()
	bag := diagnostics.NewBag()
	file := position.NewSourceFile("test.sn", src)
	prog := parser.Parse(file, bag)
	if bag.HasErrors() {
		t.Fatalf("parse failed:\n%s", bag.Report(nil))
	}
	res := resolver.Resolve(prog, bag)
	if bag.HasErrors() {
		t.Fatalf("resolution failed:\n%s", bag.Report(nil))
	}
	return Check(res, bag), bag
}

func checkOK(t *testing.T, src string) *Info {
	t.Helper()
	info, bag := checkSource(t, src)
	if bag.HasErrors() {
		t.Fatalf("unexpected type errors:\n%s", bag.Report(nil))
	}
	return info
}

func wantCode(t *testing.T, bag *diagnostics.Bag, code diagnostics.Code) {
	t.Helper()
	if len(bag.ByCode(code)) == 0 {
		t.Errorf("expected a %s diagnostic, got:\n%s", code, bag.Report(nil))
	}
}

func TestWellTypedProgram(t *testing.T) {
	checkOK(t, `
class Counter {
    var count: int = 0;

    method bump() -> void {
        count = count + 1;
    }

    method value() -> int {
        return count;
    }
}

function main() -> void {
    var c: Counter* = Counter.new();
    c.bump();
    println(c.value());
    c.clean();
}
`)
}

func TestNoImplicitNumericCoercion(t *testing.T) {
	_, bag := checkSource(t, `
function mix(a: int, b: float) -> float {
    return a + b;
}
`)
	wantCode(t, bag, diagnostics.CodeTypeMismatch)
}

func TestIntToFloatAssignmentRejected(t *testing.T) {
	_, bag := checkSource(t, `
function f() -> void {
    var x: float = 3;
}
`)
	wantCode(t, bag, diagnostics.CodeTypeMismatch)
}

func TestFloatLiteralAdaptsToDouble(t *testing.T) {
	checkOK(t, `
function half() -> double {
    return 0.5;
}

function halfF() -> float {
    return 0.5;
}
`)
}

func TestConditionMustBeBoolean(t *testing.T) {
	_, bag := checkSource(t, `
function f(n: int) -> void {
    if (n) {
        println(n);
    }
}
`)
	wantCode(t, bag, diagnostics.CodeTypeMismatch)
}

func TestConformanceWrongReturnType(t *testing.T) {
	// getArea is required to return double; an int definition does
	// not satisfy the interface.
	_, bag := checkSource(t, `
interface Shape {
    method getArea() -> double;
}

class Square implements Shape {
    var side: int = 1;

    method getArea() -> int {
        return side * side;
    }
}
`)
	wantCode(t, bag, diagnostics.CodeInterfaceConformance)
	diags := bag.ByCode(diagnostics.CodeInterfaceConformance)
	if len(diags) != 1 {
		t.Fatalf("expected one conformance error, got %d", len(diags))
	}
	msg := diags[0].Message
	if !strings.Contains(msg, "double") || !strings.Contains(msg, "int") {
		t.Errorf("conformance error should name both signatures, got: %s", msg)
	}
}

func TestConformanceMissingMethod(t *testing.T) {
	_, bag := checkSource(t, `
interface Shape {
    method getArea() -> double;
    method getPerimeter() -> double;
}

class Square implements Shape {
    method getArea() -> double {
        return 1.0;
    }
}
`)
	wantCode(t, bag, diagnostics.CodeInterfaceConformance)
}

func TestConformanceViaInheritedMethod(t *testing.T) {
	checkOK(t, `
interface Shape {
    method getArea() -> double;
}

class Base {
    method getArea() -> double {
        return 0.0;
    }
}

class Derived extends Base implements Shape {
}
`)
}

func TestMissingReturnOnOnePath(t *testing.T) {
	_, bag := checkSource(t, `
function sign(n: int) -> int {
    if (n > 0) {
        return 1;
    }
}
`)
	wantCode(t, bag, diagnostics.CodeMissingReturn)
}

func TestAllPathsReturn(t *testing.T) {
	checkOK(t, `
function sign(n: int) -> int {
    if (n > 0) {
        return 1;
    } else {
        return 0;
    }
}
`)
}

func TestVoidFunctionNeedsNoReturn(t *testing.T) {
	checkOK(t, `
function log(msg: str) -> void {
    println(msg);
}
`)
}

func TestReturnValueFromVoidFunction(t *testing.T) {
	_, bag := checkSource(t, `
function f() -> void {
    return 1;
}
`)
	wantCode(t, bag, diagnostics.CodeTypeMismatch)
}

func TestExactOverloadMatch(t *testing.T) {
	info := checkOK(t, `
function describe(n: int) -> str {
    return "int";
}

function describe(f: float) -> str {
    return "float";
}

function main() -> void {
    println(describe(1));
}
`)
	if len(info.Callees) == 0 {
		t.Error("expected call targets to be recorded")
	}
}

func TestNoMatchingOverload(t *testing.T) {
	_, bag := checkSource(t, `
function describe(n: int) -> str {
    return "int";
}

function main() -> void {
    println(describe(true));
}
`)
	wantCode(t, bag, diagnostics.CodeUndefinedMethod)
}

func TestUndefinedMethodOnClass(t *testing.T) {
	_, bag := checkSource(t, `
class Point {
    var x: int = 0;
}

function f() -> void {
    var p: Point* = Point.new();
    p.translate(1);
    p.clean();
}
`)
	wantCode(t, bag, diagnostics.CodeUndefinedMethod)
}

func TestNullAssignableToPointerOnly(t *testing.T) {
	checkOK(t, `
class Node {
    var next: Node* = null;
}
`)
	_, bag := checkSource(t, `
function f() -> void {
    var n: int = null;
}
`)
	wantCode(t, bag, diagnostics.CodeTypeMismatch)
}

func TestPointerSubtyping(t *testing.T) {
	checkOK(t, `
class Animal {
    method speak() -> str {
        return "...";
    }
}

class Dog extends Animal {
}

function f() -> void {
    var a: Animal* = Dog.new();
    println(a.speak());
    a.clean();
}
`)
}

func TestPointerSubtypingRejectsUpward(t *testing.T) {
	_, bag := checkSource(t, `
class Animal { }
class Dog extends Animal { }

function f() -> void {
    var d: Dog* = Animal.new();
    d.clean();
}
`)
	wantCode(t, bag, diagnostics.CodeTypeMismatch)
}

func TestDStringReadsAsStr(t *testing.T) {
	checkOK(t, `
function greet(name: str) -> str {
    var msg: d_str = D"hello {name}";
    return msg;
}
`)
}

func TestConstAssignmentRejected(t *testing.T) {
	_, bag := checkSource(t, `
class Circle {
    const PI: double = 3.14159;

    method reset() -> void {
        PI = 0.0;
    }
}
`)
	wantCode(t, bag, diagnostics.CodeTypeMismatch)
}

func TestFieldInitializerMustBeConstant(t *testing.T) {
	_, bag := checkSource(t, `
function seed() -> int {
    return 42;
}

class Box {
    var n: int = seed();
}
`)
	wantCode(t, bag, diagnostics.CodeTypeMismatch)
}

func TestPrivateFieldInaccessible(t *testing.T) {
	_, bag := checkSource(t, `
class Account {
private:
    var balance: int = 0;
}

function f() -> void {
    var a: Account* = Account.new();
    println(a.balance);
    a.clean();
}
`)
	wantCode(t, bag, diagnostics.CodeVisibility)
}

func TestProtectedFieldVisibleInSubclass(t *testing.T) {
	checkOK(t, `
class Base {
protected:
    var n: int = 0;
}

class Derived extends Base {
public:
    method value() -> int {
        return n;
    }
}
`)
}

func TestPrivateFieldHiddenFromSubclass(t *testing.T) {
	_, bag := checkSource(t, `
class Base {
private:
    var secret: int = 0;
}

class Derived extends Base {
public:
    method leak() -> int {
        return secret;
    }
}
`)
	wantCode(t, bag, diagnostics.CodeVisibility)
}

func TestBreakOutsideLoop(t *testing.T) {
	_, bag := checkSource(t, `
function f() -> void {
    break;
}
`)
	wantCode(t, bag, diagnostics.CodeTypeMismatch)
}

func TestModuloRequiresInt(t *testing.T) {
	_, bag := checkSource(t, `
function f(x: float) -> float {
    return x % 2.0;
}
`)
	wantCode(t, bag, diagnostics.CodeTypeMismatch)
}

func TestSerializationBuiltins(t *testing.T) {
	info := checkOK(t, `
class Point {
    @attribute(serializable)
    var x: int = 0;
}

function roundtrip() -> void {
    var p: Point* = Point.new();
    var text: str = p.as_json();
    var q: Point* = Point.from_json(text);
    p.clean();
    q.clean();
}
`)
	found := 0
	for _, callee := range info.Callees {
		if callee.Kind == CalleeBuiltin &&
			(callee.Builtin == "as_json" || callee.Builtin == "from_json") {
			found++
		}
	}
	if found != 2 {
		t.Errorf("expected as_json and from_json callees, found %d", found)
	}
}

func TestStaticMethodCall(t *testing.T) {
	info := checkOK(t, `
class MathUtil {
    function square(n: int) -> int {
        return n * n;
    }
}

function main() -> void {
    println(MathUtil.square(7));
}
`)
	found := false
	for _, callee := range info.Callees {
		if callee.Kind == CalleeStatic {
			found = true
		}
	}
	if !found {
		t.Error("expected a static callee to be recorded")
	}
}

func TestStaticMethodDoesNotSatisfyInterface(t *testing.T) {
	_, bag := checkSource(t, `
interface Named {
    method name() -> str;
}

class Widget implements Named {
    function name() -> str {
        return "widget";
    }
}
`)
	wantCode(t, bag, diagnostics.CodeInterfaceConformance)
}

func TestEqualityPointerNull(t *testing.T) {
	checkOK(t, `
class Node {
    var next: Node* = null;

    method isLast() -> boolean {
        return next == null;
    }
}
`)
}

func TestInterfaceDispatchCall(t *testing.T) {
	info := checkOK(t, `
interface Shape {
    method getArea() -> double;
}

class Square implements Shape {
    var side: double = 1.0;

    method getArea() -> double {
        return side * side;
    }
}

function measure(s: Shape*) -> double {
    return s.getArea();
}

function main() -> void {
    var sq: Square* = Square.new();
    println(measure(sq));
    sq.clean();
}
`)
	found := false
	for _, callee := range info.Callees {
		if callee.Kind == CalleeInterface {
			found = true
			if callee.Iface.Decl.Name != "Shape" {
				t.Errorf("wrong interface: %s", callee.Iface.Decl.Name)
			}
		}
	}
	if !found {
		t.Error("expected an interface-dispatch callee")
	}
}

func TestGraphsRecordedPerBody(t *testing.T) {
	info := checkOK(t, `
function a() -> int {
    return 1;
}

function b() -> int {
    return 2;
}
`)
	if len(info.Graphs) != 2 {
		t.Errorf("expected 2 cached control-flow graphs, got %d", len(info.Graphs))
	}
}
