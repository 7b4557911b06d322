package diagnostics

import (
	"strings"
	"testing"

	"github.com/mavrukin/sinter-lang/internal/position"
)

func spanAt(line, col, offset int) position.Span {
	start := position.Position{Filename: "t.sn", Line: line, Column: col, Offset: offset}
	end := start
	end.Column++
	end.Offset++
	return position.NewSpan(start, end)
}

func TestBagSeverityGating(t *testing.T) {
	bag := NewBag()
	bag.Warnf(CategoryAnnotation, CodeAnnotationRedundant, spanAt(1, 1, 0), "redundant flag")
	if bag.HasErrors() {
		t.Fatal("warnings alone must not block the next stage")
	}

	bag.Errorf(CategoryType, CodeTypeMismatch, spanAt(2, 1, 10), "cannot assign 'float' to 'int'")
	if !bag.HasErrors() {
		t.Fatal("expected HasErrors after error diagnostic")
	}
	if bag.ErrorCount() != 1 {
		t.Errorf("ErrorCount() = %d, want 1", bag.ErrorCount())
	}
	if bag.Len() != 2 {
		t.Errorf("Len() = %d, want 2", bag.Len())
	}
}

func TestBagSortedByPosition(t *testing.T) {
	bag := NewBag()
	bag.Errorf(CategoryResolution, CodeUnresolvedReference, spanAt(9, 5, 90), "undefined identifier 'z'")
	bag.Errorf(CategoryResolution, CodeDuplicateDeclaration, spanAt(2, 1, 10), "duplicate declaration of 'x'")

	all := bag.All()
	if all[0].Code != CodeDuplicateDeclaration || all[1].Code != CodeUnresolvedReference {
		t.Errorf("diagnostics not ordered by position: %v", all)
	}
}

func TestByCode(t *testing.T) {
	bag := NewBag()
	bag.Errorf(CategoryCleanup, CodeUnreleasedPointer, spanAt(3, 9, 30), "pointer 'p' not released")
	bag.Errorf(CategoryCleanup, CodeDoubleRelease, spanAt(5, 9, 50), "pointer 'q' released twice")

	leaks := bag.ByCode(CodeUnreleasedPointer)
	if len(leaks) != 1 || !strings.Contains(leaks[0].Message, "'p'") {
		t.Errorf("ByCode(UnreleasedPointer) = %v", leaks)
	}
}

func TestReportIncludesSourceLine(t *testing.T) {
	sm := position.NewSourceMap()
	sm.AddFile("t.sn", "var a: int = true;\n")

	bag := NewBag()
	bag.Errorf(CategoryType, CodeTypeMismatch, spanAt(1, 14, 13), "cannot assign 'boolean' to 'int'")

	report := bag.Report(sm)
	if !strings.Contains(report, "var a: int = true;") {
		t.Errorf("report missing source line:\n%s", report)
	}
	if !strings.Contains(report, "^") {
		t.Errorf("report missing caret marker:\n%s", report)
	}
	if !strings.Contains(report, "TypeMismatchError") {
		t.Errorf("report missing diagnostic code:\n%s", report)
	}
}

func TestSeverityAndCategoryNames(t *testing.T) {
	if SeverityWarning.String() != "warning" || SeverityError.String() != "error" {
		t.Error("unexpected severity names")
	}
	if CategoryCleanup.String() != "cleanup" || CategoryCodegen.String() != "codegen" {
		t.Error("unexpected category names")
	}
}
