package annotations

import (
	"strings"
	"testing"

	"github.com/mavrukin/sinter-lang/internal/diagnostics"
	"github.com/mavrukin/sinter-lang/internal/parser"
	"github.com/mavrukin/sinter-lang/internal/position"
	"github.com/mavrukin/sinter-lang/internal/resolver"
)

func processSource(t *testing.T, src string) (*Metadata, *resolver.Resolution, *diagnostics.Bag) {
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
	return Process(res, bag), res, bag
}

func TestBareAttributeSynthesizesBothAccessors(t *testing.T) {
	meta, res, bag := processSource(t, `
class Point {
    @attribute
    var x: int = 0;
}
`)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors:\n%s", bag.Report(nil))
	}
	plan := meta.PlanFor(res.Classes["Point"], "x")
	if plan == nil {
		t.Fatal("missing field plan for Point.x")
	}
	if !plan.SynthGetter || !plan.SynthSetter {
		t.Errorf("bare @attribute should synthesize both accessors, got getter=%v setter=%v",
			plan.SynthGetter, plan.SynthSetter)
	}
	if plan.GetterName() != "getX" || plan.SetterName() != "setX" {
		t.Errorf("accessor names: got %s/%s", plan.GetterName(), plan.SetterName())
	}
}

func TestUnannotatedFieldGetsNothing(t *testing.T) {
	meta, res, _ := processSource(t, `
class Point {
    var x: int = 0;
}
`)
	plan := meta.PlanFor(res.Classes["Point"], "x")
	if plan.SynthGetter || plan.SynthSetter || plan.Serializable {
		t.Error("unannotated field should carry no obligations")
	}
}

func TestReadOnlySynthesizesGetterOnly(t *testing.T) {
	meta, res, bag := processSource(t, `
class Config {
    @attribute(read_only)
    var limit: int = 100;
}
`)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors:\n%s", bag.Report(nil))
	}
	plan := meta.PlanFor(res.Classes["Config"], "limit")
	if !plan.SynthGetter || plan.SynthSetter {
		t.Errorf("read_only should synthesize getter only, got getter=%v setter=%v",
			plan.SynthGetter, plan.SynthSetter)
	}
}

func TestReadOnlyRejectsUserSetter(t *testing.T) {
	_, _, bag := processSource(t, `
class Config {
    @attribute(read_only)
    var limit: int = 100;

    method setLimit(v: int) -> void {
        limit = v;
    }
}
`)
	if len(bag.ByCode(diagnostics.CodeAnnotationConflict)) == 0 {
		t.Errorf("expected AnnotationConflictError for user-defined setter:\n%s", bag.Report(nil))
	}
}

func TestWriteOnlyRejectsUserGetter(t *testing.T) {
	_, _, bag := processSource(t, `
class Secret {
    @attribute(write_only)
    var token: str = "";

    method getToken() -> str {
        return token;
    }
}
`)
	if len(bag.ByCode(diagnostics.CodeAnnotationConflict)) == 0 {
		t.Errorf("expected AnnotationConflictError for user-defined getter:\n%s", bag.Report(nil))
	}
}

func TestConflictingFlagsOneCombinedError(t *testing.T) {
	_, _, bag := processSource(t, `
class Bad {
    @attribute(read_only, write_only)
    var x: int = 0;
}
`)
	diags := bag.ByCode(diagnostics.CodeAnnotationConflict)
	if len(diags) != 1 {
		t.Fatalf("expected exactly one combined conflict error, got %d:\n%s",
			len(diags), bag.Report(nil))
	}
	msg := diags[0].Message
	if !strings.Contains(msg, "read_only") || !strings.Contains(msg, "write_only") {
		t.Errorf("combined error should name every conflicting flag, got: %s", msg)
	}
}

func TestDerivedRequiresComputingMethod(t *testing.T) {
	_, _, bag := processSource(t, `
class Sensor {
    @attribute(derived)
    var status: str = "";
}
`)
	if len(bag.ByCode(diagnostics.CodeAnnotationObligation)) == 0 {
		t.Errorf("expected obligation error for missing derived method:\n%s", bag.Report(nil))
	}
}

func TestDerivedMethodSatisfiesObligation(t *testing.T) {
	meta, res, bag := processSource(t, `
class Sensor {
    var temperature: double = 0.0;

    @attribute(derived)
    var status: str = "";

    method status() -> str {
        if (temperature > 100.0) {
            return "HOT";
        }
        return "NORMAL";
    }
}
`)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors:\n%s", bag.Report(nil))
	}
	plan := meta.PlanFor(res.Classes["Sensor"], "status")
	if plan.Derived == nil {
		t.Fatal("derived plan should record the computing method")
	}
	if plan.Derived.Decl.Name != "status" {
		t.Errorf("wrong derived method: %s", plan.Derived.Decl.Name)
	}
	if plan.SynthGetter || plan.SynthSetter {
		t.Error("derived fields synthesize no accessors")
	}
}

func TestDerivedMethodWrongSignatureRejected(t *testing.T) {
	_, _, bag := processSource(t, `
class Sensor {
    @attribute(derived)
    var status: str = "";

    method status(verbose: boolean) -> str {
        return "NORMAL";
    }
}
`)
	if len(bag.ByCode(diagnostics.CodeAnnotationObligation)) == 0 {
		t.Errorf("expected obligation error for wrong derived signature:\n%s", bag.Report(nil))
	}
}

func TestSerializableFieldsInDeclaredOrder(t *testing.T) {
	meta, res, bag := processSource(t, `
class Person {
    @attribute(serializable)
    var name: str = "";

    var internalId: int = 0;

    @attribute(serializable)
    var age: int = 0;
}
`)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors:\n%s", bag.Report(nil))
	}
	serial := meta.Classes[res.Classes["Person"]].Serial
	if len(serial) != 2 {
		t.Fatalf("expected 2 serializable fields, got %d", len(serial))
	}
	if serial[0].Decl.Name != "name" || serial[1].Decl.Name != "age" {
		t.Errorf("serialization order must follow declaration order, got %s then %s",
			serial[0].Decl.Name, serial[1].Decl.Name)
	}
}

func TestSerializableDerivedField(t *testing.T) {
	meta, res, bag := processSource(t, `
class Sensor {
    @attribute(derived, serializable)
    var status: str = "";

    method status() -> str {
        return "NORMAL";
    }
}
`)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors:\n%s", bag.Report(nil))
	}
	serial := meta.Classes[res.Classes["Sensor"]].Serial
	if len(serial) != 1 || serial[0].Derived == nil {
		t.Error("serializable derived field should appear in the serial list with its method")
	}
}

func TestRedundantReadOnlyOnDerivedWarns(t *testing.T) {
	_, _, bag := processSource(t, `
class Sensor {
    @attribute(derived, read_only)
    var status: str = "";

    method status() -> str {
        return "NORMAL";
    }
}
`)
	if bag.HasErrors() {
		t.Fatalf("redundancy must be a warning, not an error:\n%s", bag.Report(nil))
	}
	if len(bag.ByCode(diagnostics.CodeAnnotationRedundant)) == 0 {
		t.Error("expected a redundancy warning for read_only on a derived field")
	}
}

func TestUserDefinedGetterSuppressesSynthesis(t *testing.T) {
	meta, res, bag := processSource(t, `
class Point {
    @attribute
    var x: int = 0;

    method getX() -> int {
        return x;
    }
}
`)
	if bag.HasErrors() {
		t.Fatalf("unexpected errors:\n%s", bag.Report(nil))
	}
	plan := meta.PlanFor(res.Classes["Point"], "x")
	if plan.SynthGetter {
		t.Error("user-defined getter should suppress synthesis")
	}
	if !plan.SynthSetter {
		t.Error("setter should still be synthesized")
	}
}
