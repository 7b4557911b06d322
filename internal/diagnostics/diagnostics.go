// Package diagnostics defines the diagnostic model shared by every
// stage of the Sinter compiler. Stages accumulate diagnostics into a
// Bag instead of aborting on the first problem, so the user gets one
// complete report per compilation unit.
package diagnostics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mavrukin/sinter-lang/internal/position"
)

// Severity classifies how a diagnostic affects the pipeline. Errors
// block the next stage from running; warnings never block emission.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
	// SeverityInternal marks an invariant violation inside the
	// compiler itself. Always fatal.
	SeverityInternal
)

// String returns the severity name
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityInternal:
		return "internal error"
	default:
		return "unknown"
	}
}

// Category identifies the pipeline stage family a diagnostic belongs to.
type Category int

const (
	CategoryLexical Category = iota
	CategorySyntax
	CategoryResolution
	CategoryType
	CategoryAnnotation
	CategoryCleanup
	CategoryCodegen
)

// String returns the category name
func (c Category) String() string {
	switch c {
	case CategoryLexical:
		return "lexical"
	case CategorySyntax:
		return "syntax"
	case CategoryResolution:
		return "resolution"
	case CategoryType:
		return "type"
	case CategoryAnnotation:
		return "annotation"
	case CategoryCleanup:
		return "cleanup"
	case CategoryCodegen:
		return "codegen"
	default:
		return "unknown"
	}
}

// Code is the stable machine-readable name of a diagnostic kind.
type Code string

const (
	CodeInvalidToken         Code = "InvalidToken"
	CodeSyntaxError          Code = "SyntaxError"
	CodeUnresolvedReference  Code = "UnresolvedReferenceError"
	CodeDuplicateDeclaration Code = "DuplicateDeclarationError"
	CodeCyclicInheritance    Code = "CyclicInheritanceError"
	CodeInvalidPointerType   Code = "InvalidPointerTypeError"
	CodeTypeMismatch         Code = "TypeMismatchError"
	CodeInterfaceConformance Code = "InterfaceConformanceError"
	CodeUndefinedMethod      Code = "UndefinedMethodError"
	CodeUndefinedField       Code = "UndefinedFieldError"
	CodeVisibility           Code = "VisibilityError"
	CodeMissingReturn        Code = "MissingReturnError"
	CodeAnnotationConflict   Code = "AnnotationConflictError"
	CodeAnnotationObligation Code = "AnnotationObligationError"
	CodeAnnotationRedundant  Code = "AnnotationRedundancyWarning"
	CodeUnreleasedPointer    Code = "UnreleasedPointerError"
	CodeUseAfterRelease      Code = "UseAfterReleaseError"
	CodeDoubleRelease        Code = "DoubleReleaseError"
	CodeInternal             Code = "InternalError"
)

// Diagnostic is a single compiler message tied to a source span.
type Diagnostic struct {
	Severity Severity
	Category Category
	Code     Code
	Message  string
	Span     position.Span
}

// String renders the diagnostic in file:line:col form.
func (d Diagnostic) String() string {
	if d.Span.IsValid() {
		return fmt.Sprintf("%s: %s: %s: %s [%s]",
			d.Span.Start.String(), d.Severity, d.Category, d.Message, d.Code)
	}
	return fmt.Sprintf("%s: %s: %s [%s]", d.Severity, d.Category, d.Message, d.Code)
}

// Bag accumulates diagnostics for one compilation unit.
type Bag struct {
	diags []Diagnostic
}

// NewBag creates an empty diagnostic bag.
func NewBag() *Bag {
	return &Bag{}
}

// Add appends a diagnostic.
func (b *Bag) Add(d Diagnostic) {
	b.diags = append(b.diags, d)
}

// Errorf records an error-severity diagnostic.
func (b *Bag) Errorf(cat Category, code Code, span position.Span, format string, args ...interface{}) {
	b.Add(Diagnostic{
		Severity: SeverityError,
		Category: cat,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	})
}

// Warnf records a warning-severity diagnostic.
func (b *Bag) Warnf(cat Category, code Code, span position.Span, format string, args ...interface{}) {
	b.Add(Diagnostic{
		Severity: SeverityWarning,
		Category: cat,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	})
}

// Internalf records an internal invariant violation.
func (b *Bag) Internalf(cat Category, span position.Span, format string, args ...interface{}) {
	b.Add(Diagnostic{
		Severity: SeverityInternal,
		Category: cat,
		Code:     CodeInternal,
		Message:  fmt.Sprintf(format, args...),
		Span:     span,
	})
}

// HasErrors returns true if any diagnostic blocks the next stage.
func (b *Bag) HasErrors() bool {
	for _, d := range b.diags {
		if d.Severity >= SeverityError {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of error-or-worse diagnostics.
func (b *Bag) ErrorCount() int {
	n := 0
	for _, d := range b.diags {
		if d.Severity >= SeverityError {
			n++
		}
	}
	return n
}

// Len returns the total number of diagnostics.
func (b *Bag) Len() int {
	return len(b.diags)
}

// All returns the diagnostics sorted by source position, then
// insertion order for equal positions. The sort is stable so a stage
// that emits several messages for one span keeps their order.
func (b *Bag) All() []Diagnostic {
	out := make([]Diagnostic, len(b.diags))
	copy(out, b.diags)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Span.Start.Before(out[j].Span.Start)
	})
	return out
}

// ByCode returns every diagnostic carrying the given code.
func (b *Bag) ByCode(code Code) []Diagnostic {
	var out []Diagnostic
	for _, d := range b.diags {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// Report renders all diagnostics as a human-readable block. When a
// source map is supplied, each message is followed by the offending
// line and a caret marker.
func (b *Bag) Report(sm *position.SourceMap) string {
	var sb strings.Builder
	for _, d := range b.All() {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
		if sm == nil || !d.Span.IsValid() {
			continue
		}
		line := sm.GetLine(d.Span.Start)
		if line == "" {
			continue
		}
		sb.WriteString("    ")
		sb.WriteString(line)
		sb.WriteByte('\n')
		sb.WriteString("    ")
		for i := 1; i < d.Span.Start.Column; i++ {
			sb.WriteByte(' ')
		}
		sb.WriteString("^\n")
	}
	return sb.String()
}
