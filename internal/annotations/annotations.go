// Package annotations turns field-level @attribute metadata into the
// obligations code generation acts on: which accessors to synthesize,
// which user-defined methods must exist, and which fields take part in
// serialization. Conflicting flags on one field produce a single
// combined diagnostic.
package annotations

import (
	"strings"

	"github.com/mavrukin/sinter-lang/internal/ast"
	"github.com/mavrukin/sinter-lang/internal/diagnostics"
	"github.com/mavrukin/sinter-lang/internal/resolver"
	"github.com/mavrukin/sinter-lang/internal/types"
)

// FieldPlan is the processed annotation state of one field.
type FieldPlan struct {
	Decl *ast.FieldDecl
	Sym  *resolver.Symbol

	// SynthGetter / SynthSetter request accessor synthesis during
	// code generation. Both are false for unannotated and derived
	// fields.
	SynthGetter bool
	SynthSetter bool

	// Derived is the user-defined method that computes the field's
	// value. Non-nil exactly for derived=true fields that passed
	// validation.
	Derived *resolver.MethodInfo

	Serializable bool
}

// GetterName returns the synthesized getter name for the field,
// e.g. getTemperature.
func (p *FieldPlan) GetterName() string { return accessorName("get", p.Decl.Name) }

// SetterName returns the synthesized setter name for the field.
func (p *FieldPlan) SetterName() string { return accessorName("set", p.Decl.Name) }

// ClassMeta aggregates the field plans of one class.
type ClassMeta struct {
	Class *resolver.ClassInfo
	// Fields holds one plan per declared field, in declaration order.
	Fields []*FieldPlan
	// Serial is the serializable subset of Fields, declaration order
	// preserved. as_json/as_xml walk exactly this list.
	Serial []*FieldPlan
}

// Metadata is the annotation processor's output, consumed by codegen.
type Metadata struct {
	Classes map[*resolver.ClassInfo]*ClassMeta
}

// PlanFor returns the field plan for a field of class, or nil.
func (m *Metadata) PlanFor(class *resolver.ClassInfo, field string) *FieldPlan {
	meta := m.Classes[class]
	if meta == nil {
		return nil
	}
	for _, p := range meta.Fields {
		if p.Decl.Name == field {
			return p
		}
	}
	return nil
}

// Process validates every field annotation in the resolved program
// and computes per-class synthesis and serialization metadata.
func Process(res *resolver.Resolution, bag *diagnostics.Bag) *Metadata {
	pr := &processor{res: res, bag: bag}
	meta := &Metadata{Classes: make(map[*resolver.ClassInfo]*ClassMeta)}
	for _, class := range res.ClassList {
		meta.Classes[class] = pr.processClass(class)
	}
	return meta
}

type processor struct {
	res *resolver.Resolution
	bag *diagnostics.Bag
}

func (pr *processor) errorf(code diagnostics.Code, node ast.Node, format string, args ...interface{}) {
	pr.bag.Errorf(diagnostics.CategoryAnnotation, code, node.Span(), format, args...)
}

func (pr *processor) warnf(code diagnostics.Code, node ast.Node, format string, args ...interface{}) {
	pr.bag.Warnf(diagnostics.CategoryAnnotation, code, node.Span(), format, args...)
}

func (pr *processor) processClass(class *resolver.ClassInfo) *ClassMeta {
	meta := &ClassMeta{Class: class}
	for _, field := range class.Decl.Fields {
		plan := pr.processField(class, field)
		meta.Fields = append(meta.Fields, plan)
		if plan.Serializable {
			meta.Serial = append(meta.Serial, plan)
		}
	}
	return meta
}

func (pr *processor) processField(class *resolver.ClassInfo, field *ast.FieldDecl) *FieldPlan {
	plan := &FieldPlan{Decl: field, Sym: class.LookupField(field.Name)}
	ann := field.Annotation
	if ann == nil {
		return plan
	}

	if conflicts := conflictingFlags(ann); len(conflicts) > 0 {
		pr.errorf(diagnostics.CodeAnnotationConflict, ann,
			"conflicting annotation flags on field '%s': %s",
			field.Name, strings.Join(conflicts, ", "))
		return plan
	}

	plan.Serializable = ann.Serializable

	switch {
	case ann.Derived:
		plan.Derived = pr.requireDerivedMethod(class, field)
		if ann.ReadOnly {
			pr.warnf(diagnostics.CodeAnnotationRedundant, ann,
				"read_only is redundant on derived field '%s'; derived fields have no setter", field.Name)
		}

	case ann.ReadOnly:
		plan.SynthGetter = true
		pr.rejectUserAccessor(class, field, accessorName("set", field.Name), "read_only")

	case ann.WriteOnly:
		plan.SynthSetter = true
		pr.rejectUserAccessor(class, field, accessorName("get", field.Name), "write_only")

	default:
		// Bare @attribute, or serializable alone: both accessors,
		// unless the user already defined one.
		plan.SynthGetter = !pr.userDefines(class, accessorName("get", field.Name))
		plan.SynthSetter = !pr.userDefines(class, accessorName("set", field.Name))
		if field.Const && plan.SynthSetter {
			plan.SynthSetter = false
			pr.warnf(diagnostics.CodeAnnotationRedundant, ann,
				"no setter synthesized for const field '%s'", field.Name)
		}
	}
	return plan
}

// conflictingFlags returns every flag involved in a mutual-exclusion
// violation, in canonical order, or nil. All conflicts surface in one
// diagnostic rather than a cascade.
func conflictingFlags(ann *ast.Annotation) []string {
	bad := map[string]bool{}
	if ann.ReadOnly && ann.WriteOnly {
		bad["read_only"], bad["write_only"] = true, true
	}
	if ann.Derived && ann.WriteOnly {
		bad["derived"], bad["write_only"] = true, true
	}
	var out []string
	for _, name := range []string{"read_only", "write_only", "derived"} {
		if bad[name] {
			out = append(out, name)
		}
	}
	return out
}

// requireDerivedMethod checks that the class defines the computing
// method a derived field demands: same name as the field, no
// parameters, returning the field's type.
func (pr *processor) requireDerivedMethod(class *resolver.ClassInfo, field *ast.FieldDecl) *resolver.MethodInfo {
	want := types.Signature{Result: fieldType(class, field)}
	for _, m := range class.Methods[field.Name] {
		if m.Decl.Static {
			continue
		}
		if len(m.Sig.Params) == 0 && m.Sig.Result == want.Result {
			return m
		}
	}
	pr.errorf(diagnostics.CodeAnnotationObligation, field,
		"derived field '%s' requires class '%s' to define 'method %s() -> %s'",
		field.Name, class.Decl.Name, field.Name, want.Result)
	return nil
}

func fieldType(class *resolver.ClassInfo, field *ast.FieldDecl) *types.Type {
	if sym := class.LookupField(field.Name); sym != nil {
		return sym.Type
	}
	return nil
}

// rejectUserAccessor reports a user-defined accessor that the
// annotation forbids.
func (pr *processor) rejectUserAccessor(class *resolver.ClassInfo, field *ast.FieldDecl, name, flag string) {
	if !pr.userDefines(class, name) {
		return
	}
	pr.errorf(diagnostics.CodeAnnotationConflict, field,
		"field '%s' is %s; user-defined '%s' is not allowed", field.Name, flag, name)
}

// userDefines reports whether the class itself (not an ancestor)
// declares a method with the given name.
func (pr *processor) userDefines(class *resolver.ClassInfo, name string) bool {
	return len(class.Methods[name]) > 0
}

func accessorName(prefix, field string) string {
	if field == "" {
		return prefix
	}
	return prefix + strings.ToUpper(field[:1]) + field[1:]
}
