// Package compiler orchestrates the pipeline over one compilation
// unit: lex, parse, resolve, type check, annotation processing,
// cleanup validation, code generation. Every stage runs to completion
// across the whole unit and accumulates diagnostics; a stage that
// produced any error keeps the later stages from running. Units share
// no state, so independent files may compile concurrently.
package compiler

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mavrukin/sinter-lang/internal/annotations"
	"github.com/mavrukin/sinter-lang/internal/ast"
	"github.com/mavrukin/sinter-lang/internal/cleanup"
	"github.com/mavrukin/sinter-lang/internal/codegen"
	"github.com/mavrukin/sinter-lang/internal/diagnostics"
	"github.com/mavrukin/sinter-lang/internal/ir"
	"github.com/mavrukin/sinter-lang/internal/lexer"
	"github.com/mavrukin/sinter-lang/internal/parser"
	"github.com/mavrukin/sinter-lang/internal/position"
	"github.com/mavrukin/sinter-lang/internal/resolver"
	"github.com/mavrukin/sinter-lang/internal/typechecker"
)

// Artifacts collects everything the pipeline produced for one unit.
// Later fields stay nil when an earlier stage reported errors.
type Artifacts struct {
	File       *position.SourceFile
	Tokens     []lexer.Token
	Program    *ast.Program
	Resolution *resolver.Resolution
	Info       *typechecker.Info
	Metadata   *annotations.Metadata
	Module     *ir.Module
	Bag        *diagnostics.Bag
}

// OK reports a diagnostic-free-of-errors compilation. Warnings alone
// do not block emission.
func (a *Artifacts) OK() bool { return !a.Bag.HasErrors() }

// Compile runs source text through the full pipeline. name labels the
// unit in diagnostics and names the IR module.
func Compile(name, src string) *Artifacts {
	bag := diagnostics.NewBag()
	file := position.NewSourceFile(name, src)
	a := &Artifacts{File: file, Bag: bag}

	a.Tokens = lexer.New(file, bag).Tokenize()
	if bag.HasErrors() {
		return a
	}

	a.Program = parser.New(a.Tokens, bag).ParseProgram()
	if bag.HasErrors() {
		return a
	}

	a.Resolution = resolver.Resolve(a.Program, bag)
	if bag.HasErrors() {
		return a
	}

	a.Info = typechecker.Check(a.Resolution, bag)
	if bag.HasErrors() {
		return a
	}

	a.Metadata = annotations.Process(a.Resolution, bag)
	if bag.HasErrors() {
		return a
	}

	cleanup.Validate(a.Resolution, a.Info, bag)
	if bag.HasErrors() {
		return a
	}

	a.Module = codegen.Generate(a.Resolution, a.Info, a.Metadata, bag, moduleName(name))
	return a
}

// CompileFile reads and compiles one source file.
func CompileFile(path string) (*Artifacts, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Compile(path, string(src)), nil
}

// moduleName derives the IR module name from the unit name:
// "examples/point.sn" becomes "point".
func moduleName(unit string) string {
	base := filepath.Base(unit)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" || base == "." {
		return "main"
	}
	return base
}
