package compiler

import (
	"strings"
	"testing"

	"github.com/mavrukin/sinter-lang/internal/diagnostics"
	"github.com/mavrukin/sinter-lang/internal/ir"
)

func TestCompileCleanProgram(t *testing.T) {
	a := Compile("point.sn", `
class Point {
    var x: int = 0;
    var y: int = 0;

    method moveTo(nx: int, ny: int) -> void {
        x = nx;
        y = ny;
    }
}

function main() -> void {
    var p: Point* = Point.new();
    p.moveTo(3, 4);
    p.clean();
}
`)
	if !a.OK() {
		t.Fatalf("expected a clean compile:\n%s", a.Bag.Report(nil))
	}
	if a.Module == nil {
		t.Fatal("clean compile should produce an IR module")
	}
	if a.Module.Name != "point" {
		t.Errorf("module name: got %s, want point", a.Module.Name)
	}
	in := ir.NewInterp(a.Module)
	if _, err := in.Run("main"); err != nil {
		t.Fatalf("generated module does not run: %v", err)
	}
}

func TestSyntaxErrorBlocksResolution(t *testing.T) {
	a := Compile("bad.sn", `function main() -> void { var := ; }`)
	if a.OK() {
		t.Fatal("expected syntax errors")
	}
	if a.Resolution != nil {
		t.Error("resolution must not run after syntax errors")
	}
	if a.Module != nil {
		t.Error("no module after syntax errors")
	}
}

func TestTypeErrorBlocksLaterStages(t *testing.T) {
	a := Compile("bad.sn", `
function main() -> void {
    var n: int = 1;
    var f: double = 2.0;
    var bad: int = n + f;
}
`)
	if a.OK() {
		t.Fatal("expected a type error")
	}
	if len(a.Bag.ByCode(diagnostics.CodeTypeMismatch)) == 0 {
		t.Errorf("expected TypeMismatchError:\n%s", a.Bag.Report(nil))
	}
	if a.Metadata != nil || a.Module != nil {
		t.Error("annotation processing and codegen must not run after type errors")
	}
}

func TestCleanupErrorBlocksCodegen(t *testing.T) {
	a := Compile("leak.sn", `
class Point {
    var x: int = 0;
}

function main() -> void {
    var p: Point* = Point.new();
}
`)
	if a.OK() {
		t.Fatal("expected a cleanup error")
	}
	if len(a.Bag.ByCode(diagnostics.CodeUnreleasedPointer)) != 1 {
		t.Errorf("expected exactly one UnreleasedPointerError:\n%s", a.Bag.Report(nil))
	}
	if a.Module != nil {
		t.Error("codegen must not run after cleanup errors")
	}
}

func TestStageAccumulatesAllItsDiagnostics(t *testing.T) {
	// Two independent type errors in one unit; the type checker must
	// report both before aborting the pipeline.
	a := Compile("bad.sn", `
function main() -> void {
    var a: int = true;
    var b: boolean = 3;
}
`)
	if a.Bag.ErrorCount() < 2 {
		t.Errorf("expected both type errors reported, got:\n%s", a.Bag.Report(nil))
	}
}

func TestWarningsDoNotBlockEmission(t *testing.T) {
	a := Compile("warn.sn", `
class Sensor {
    var temperature: double = 0.0;

    @attribute(derived, read_only)
    var status: str = "";

    method status() -> str {
        return "NORMAL";
    }
}

function main() -> void {
}
`)
	if !a.OK() {
		t.Fatalf("redundant annotation must stay a warning:\n%s", a.Bag.Report(nil))
	}
	if a.Bag.Len() == 0 {
		t.Error("expected a redundancy warning")
	}
	if a.Module == nil {
		t.Error("warnings alone must not block emission")
	}
}

func TestModuleNameDerivation(t *testing.T) {
	cases := map[string]string{
		"examples/point.sn": "point",
		"fib.sn":            "fib",
		"main":              "main",
		"":                  "main",
	}
	for unit, want := range cases {
		if got := moduleName(unit); got != want {
			t.Errorf("moduleName(%q) = %q, want %q", unit, got, want)
		}
	}
}

func TestCompileFileMissing(t *testing.T) {
	if _, err := CompileFile("does/not/exist.sn"); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestEmittedIRIsTextual(t *testing.T) {
	a := Compile("fib.sn", `
function fib(n: int) -> int {
    if (n < 2) {
        return n;
    }
    return fib(n - 1) + fib(n - 2);
}

function main() -> void {
    println(fib(10));
}
`)
	if !a.OK() {
		t.Fatalf("unexpected errors:\n%s", a.Bag.Report(nil))
	}
	text := a.Module.String()
	for _, want := range []string{"module fib", "func fib", "func main"} {
		if !strings.Contains(text, want) {
			t.Errorf("IR text missing %q:\n%s", want, text)
		}
	}
}
