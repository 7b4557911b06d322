// Package cfg builds control-flow graphs over Sinter function bodies.
// The same graph serves two analyses: the type checker's return-path
// check and the pointer cleanup validator's ownership dataflow.
package cfg

import (
	"fmt"
	"strings"

	"github.com/mavrukin/sinter-lang/internal/ast"
)

// TermKind records how a basic block ends.
type TermKind int

const (
	// TermFall falls through to the single successor.
	TermFall TermKind = iota
	// TermCond branches on the last condition node; successor 0 is
	// the true edge, successor 1 the false edge.
	TermCond
	// TermReturn leaves the function; the only successor is Exit.
	TermReturn
	// TermBreak and TermContinue jump to the loop exit or header.
	TermBreak
	TermContinue
	// TermLoop is the unconditional back or entry edge of a loop.
	TermLoop
)

// String returns the terminator name
func (k TermKind) String() string {
	switch k {
	case TermFall:
		return "fall"
	case TermCond:
		return "cond"
	case TermReturn:
		return "return"
	case TermBreak:
		return "break"
	case TermContinue:
		return "continue"
	case TermLoop:
		return "loop"
	default:
		return "unknown"
	}
}

// Block is one basic block. Nodes holds the statements and condition
// expressions evaluated in the block, in evaluation order.
type Block struct {
	ID    int
	Nodes []ast.Node
	Succs []*Block
	Preds []*Block
	Term  TermKind
}

func (b *Block) addSucc(s *Block) {
	b.Succs = append(b.Succs, s)
	s.Preds = append(s.Preds, b)
}

// Graph is the control-flow graph of one function body. Entry has no
// predecessors; Exit collects every return and the final fallthrough.
type Graph struct {
	Blocks []*Block
	Entry  *Block
	Exit   *Block
}

// Reachable returns the set of blocks reachable from Entry.
func (g *Graph) Reachable() map[*Block]bool {
	seen := make(map[*Block]bool)
	stack := []*Block{g.Entry}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[b] {
			continue
		}
		seen[b] = true
		stack = append(stack, b.Succs...)
	}
	return seen
}

// FallsToExit reports whether some reachable path reaches Exit by
// plain fallthrough rather than a return statement. A non-void
// function with such a path is missing a return.
func (g *Graph) FallsToExit() bool {
	reachable := g.Reachable()
	for _, pred := range g.Exit.Preds {
		if reachable[pred] && pred.Term != TermReturn {
			return true
		}
	}
	return false
}

// String renders the graph for debugging.
func (g *Graph) String() string {
	var sb strings.Builder
	for _, b := range g.Blocks {
		tag := ""
		if b == g.Entry {
			tag = " (entry)"
		}
		if b == g.Exit {
			tag = " (exit)"
		}
		succs := make([]string, len(b.Succs))
		for i, s := range b.Succs {
			succs[i] = fmt.Sprintf("b%d", s.ID)
		}
		fmt.Fprintf(&sb, "b%d%s: %d nodes, %s -> [%s]\n",
			b.ID, tag, len(b.Nodes), b.Term, strings.Join(succs, ", "))
	}
	return sb.String()
}

// loopFrame tracks the jump targets of one enclosing loop.
type loopFrame struct {
	breakTarget    *Block
	continueTarget *Block
}

type builder struct {
	graph *Graph
	loops []loopFrame
}

// Build constructs the graph for one function body.
func Build(body *ast.BlockStmt) *Graph {
	b := &builder{graph: &Graph{}}
	b.graph.Entry = b.newBlock()
	b.graph.Exit = b.newBlock()

	end := b.buildStmts(body.Stmts, b.graph.Entry)
	if end != nil {
		end.Term = TermFall
		end.addSucc(b.graph.Exit)
	}
	return b.graph
}

func (b *builder) newBlock() *Block {
	blk := &Block{ID: len(b.graph.Blocks)}
	b.graph.Blocks = append(b.graph.Blocks, blk)
	return blk
}

// buildStmts threads the statement list through cur and returns the
// open block at the end, or nil when control cannot fall through.
func (b *builder) buildStmts(stmts []ast.Stmt, cur *Block) *Block {
	for _, stmt := range stmts {
		if cur == nil {
			// Unreachable code after return/break/continue still
			// gets blocks so its nodes can be analyzed, but nothing
			// links to them.
			cur = b.newBlock()
		}
		cur = b.buildStmt(stmt, cur)
	}
	return cur
}

func (b *builder) buildStmt(stmt ast.Stmt, cur *Block) *Block {
	switch s := stmt.(type) {
	case *ast.BlockStmt:
		return b.buildStmts(s.Stmts, cur)

	case *ast.ReturnStmt:
		cur.Nodes = append(cur.Nodes, s)
		cur.Term = TermReturn
		cur.addSucc(b.graph.Exit)
		return nil

	case *ast.BreakStmt:
		if len(b.loops) == 0 {
			// Validated by the type checker; treat as fallthrough.
			cur.Nodes = append(cur.Nodes, s)
			return cur
		}
		cur.Term = TermBreak
		cur.addSucc(b.loops[len(b.loops)-1].breakTarget)
		return nil

	case *ast.ContinueStmt:
		if len(b.loops) == 0 {
			cur.Nodes = append(cur.Nodes, s)
			return cur
		}
		cur.Term = TermContinue
		cur.addSucc(b.loops[len(b.loops)-1].continueTarget)
		return nil

	case *ast.IfStmt:
		cur.Nodes = append(cur.Nodes, s.Cond)
		cur.Term = TermCond

		then := b.newBlock()
		cur.addSucc(then)
		thenEnd := b.buildStmts(s.Then.Stmts, then)

		var elseEnd *Block
		if s.Else != nil {
			els := b.newBlock()
			cur.addSucc(els)
			elseEnd = b.buildStmts(s.Else.Stmts, els)
		}

		if s.Else == nil {
			join := b.newBlock()
			cur.addSucc(join) // false edge skips the then block
			if thenEnd != nil {
				thenEnd.Term = TermFall
				thenEnd.addSucc(join)
			}
			return join
		}
		if thenEnd == nil && elseEnd == nil {
			return nil
		}
		join := b.newBlock()
		if thenEnd != nil {
			thenEnd.Term = TermFall
			thenEnd.addSucc(join)
		}
		if elseEnd != nil {
			elseEnd.Term = TermFall
			elseEnd.addSucc(join)
		}
		return join

	case *ast.WhileStmt:
		header := b.newBlock()
		cur.Term = TermLoop
		cur.addSucc(header)
		header.Nodes = append(header.Nodes, s.Cond)
		header.Term = TermCond

		body := b.newBlock()
		header.addSucc(body)
		after := b.newBlock()
		header.addSucc(after)

		b.loops = append(b.loops, loopFrame{breakTarget: after, continueTarget: header})
		bodyEnd := b.buildStmts(s.Body.Stmts, body)
		b.loops = b.loops[:len(b.loops)-1]

		if bodyEnd != nil {
			bodyEnd.Term = TermLoop
			bodyEnd.addSucc(header)
		}
		return after

	case *ast.ForStmt:
		if s.Init != nil {
			cur = b.buildStmt(s.Init, cur)
		}

		header := b.newBlock()
		cur.Term = TermLoop
		cur.addSucc(header)

		body := b.newBlock()
		after := b.newBlock()
		if s.Cond != nil {
			header.Nodes = append(header.Nodes, s.Cond)
			header.Term = TermCond
			header.addSucc(body)
			header.addSucc(after)
		} else {
			header.Term = TermFall
			header.addSucc(body)
		}

		// continue jumps to the post clause when there is one.
		latch := header
		if s.Post != nil {
			latch = b.newBlock()
			latch.Nodes = append(latch.Nodes, s.Post)
			latch.Term = TermLoop
			latch.addSucc(header)
		}

		b.loops = append(b.loops, loopFrame{breakTarget: after, continueTarget: latch})
		bodyEnd := b.buildStmts(s.Body.Stmts, body)
		b.loops = b.loops[:len(b.loops)-1]

		if bodyEnd != nil {
			bodyEnd.Term = TermLoop
			bodyEnd.addSucc(latch)
		}
		return after

	default:
		// Straight-line statement.
		cur.Nodes = append(cur.Nodes, stmt)
		return cur
	}
}
