package cfg

import (
	"testing"

	"github.com/mavrukin/sinter-lang/internal/ast"
	"github.com/mavrukin/sinter-lang/internal/diagnostics"
	"github.com/mavrukin/sinter-lang/internal/parser"
	"github.com/mavrukin/sinter-lang/internal/position"
)

// buildFor parses a single function and builds its graph.
func buildFor(t *testing.T, body string) *Graph {
	t.Helper()
	bag := diagnostics.NewBag()
	src := "function f() -> void {\n" + body + "\n}\n"
	file := position.NewSourceFile("test.sn", src)
	prog := parser.Parse(file, bag)
	if bag.HasErrors() {
		t.Fatalf("parse failed:\n%s", bag.Report(nil))
	}
	fn := prog.Decls[0].(*ast.FunctionDecl)
	return Build(fn.Body)
}

func TestStraightLine(t *testing.T) {
	g := buildFor(t, `
    var a: int = 1;
    var b: int = 2;
`)
	if !g.FallsToExit() {
		t.Error("straight-line body must fall to exit")
	}
	if len(g.Entry.Nodes) != 2 {
		t.Errorf("entry block has %d nodes, want 2", len(g.Entry.Nodes))
	}
}

func TestReturnTerminates(t *testing.T) {
	g := buildFor(t, `
    return;
`)
	if g.FallsToExit() {
		t.Error("return-only body must not fall to exit")
	}
	if len(g.Exit.Preds) != 1 || g.Exit.Preds[0].Term != TermReturn {
		t.Errorf("exit predecessors wrong:\n%s", g)
	}
}

func TestIfWithoutElseFallsThrough(t *testing.T) {
	g := buildFor(t, `
    if (true) {
        return;
    }
`)
	// The false edge skips the then block and reaches exit.
	if !g.FallsToExit() {
		t.Errorf("if without else must keep a fallthrough path:\n%s", g)
	}
}

func TestIfElseBothReturn(t *testing.T) {
	g := buildFor(t, `
    if (true) {
        return;
    } else {
        return;
    }
`)
	if g.FallsToExit() {
		t.Errorf("both branches return, no fallthrough expected:\n%s", g)
	}
}

func TestWhileLoopShape(t *testing.T) {
	g := buildFor(t, `
    var i: int = 0;
    while (i < 10) {
        i = i + 1;
    }
`)
	// Find the condition block: two successors, TermCond.
	var header *Block
	for _, b := range g.Blocks {
		if b.Term == TermCond {
			header = b
		}
	}
	if header == nil {
		t.Fatalf("no condition block:\n%s", g)
	}
	if len(header.Succs) != 2 {
		t.Fatalf("loop header has %d successors, want 2", len(header.Succs))
	}
	// The body must loop back to the header.
	body := header.Succs[0]
	foundBack := false
	for _, s := range body.Succs {
		if s == header {
			foundBack = true
		}
	}
	if !foundBack {
		t.Errorf("loop body does not branch back to header:\n%s", g)
	}
}

func TestForLoopContinueTargetsPost(t *testing.T) {
	g := buildFor(t, `
    for (var i: int = 0; i < 3; i = i + 1) {
        continue;
    }
`)
	var cont *Block
	for _, b := range g.Blocks {
		if b.Term == TermContinue {
			cont = b
		}
	}
	if cont == nil {
		t.Fatalf("no continue block:\n%s", g)
	}
	// continue's target must hold the post expression, not the header.
	target := cont.Succs[0]
	if len(target.Nodes) != 1 {
		t.Errorf("continue target should hold the post clause:\n%s", g)
	}
}

func TestBreakReachesAfterLoop(t *testing.T) {
	g := buildFor(t, `
    while (true) {
        break;
    }
    var x: int = 1;
`)
	var brk *Block
	for _, b := range g.Blocks {
		if b.Term == TermBreak {
			brk = b
		}
	}
	if brk == nil {
		t.Fatalf("no break block:\n%s", g)
	}
	after := brk.Succs[0]
	reachable := g.Reachable()
	if !reachable[after] {
		t.Error("break target must be reachable")
	}
}

func TestUnreachableAfterReturn(t *testing.T) {
	g := buildFor(t, `
    return;
    var dead: int = 1;
`)
	reachable := g.Reachable()
	for _, b := range g.Blocks {
		for _, n := range b.Nodes {
			if decl, ok := n.(*ast.VarDeclStmt); ok && decl.Name == "dead" && reachable[b] {
				t.Error("code after return must be unreachable")
			}
		}
	}
}
