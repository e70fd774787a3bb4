package pathwalk

import (
	"bytes"
	"fmt"
)

// Func is the IR form of a function: basic blocks over a flat slice with
// index-based successor edges. Immutable once built.
type Func struct {
	Name   string
	Params []Param
	Blocks []*Block
}

// Entry returns the entry block of the function.
func (f *Func) Entry() *Block { return f.Blocks[0] }

// Dump returns a printable listing of all blocks.
func (f *Func) Dump() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "func %s\n", f.Name)
	for _, b := range f.Blocks {
		fmt.Fprintf(&buf, "b%d:\n", b.Index)
		for _, stmt := range b.Stmts {
			fmt.Fprintf(&buf, "\t%s\n", stmt)
		}
		fmt.Fprintf(&buf, "\t%s\n", b.Term)
	}
	return buf.String()
}

// Block is a basic block: straight-line statements plus one terminator.
type Block struct {
	Index int
	Stmts []Stmt
	Term  Terminator
}

// Succs returns the labeled successor edges of the block.
func (b *Block) Succs() []Edge {
	switch term := b.Term.(type) {
	case *Jump:
		return []Edge{{Label: EdgeNext, To: term.To}}
	case *Branch:
		return []Edge{{Label: EdgeTrue, To: term.True}, {Label: EdgeFalse, To: term.False}}
	case *LoopTest:
		return []Edge{{Label: EdgeLoopContinue, To: term.Body}, {Label: EdgeLoopExit, To: term.Exit}}
	default:
		return nil
	}
}

// EdgeLabel classifies a successor edge by outcome.
type EdgeLabel int

// Edge labels.
const (
	EdgeNext EdgeLabel = iota
	EdgeTrue
	EdgeFalse
	EdgeLoopContinue
	EdgeLoopExit
)

var edgeLabelNames = [...]string{
	EdgeNext:         "next",
	EdgeTrue:         "true",
	EdgeFalse:        "false",
	EdgeLoopContinue: "loop-continue",
	EdgeLoopExit:     "loop-exit",
}

// String returns the string representation of the label.
func (l EdgeLabel) String() string {
	if l >= 0 && int(l) < len(edgeLabelNames) {
		return edgeLabelNames[l]
	}
	return fmt.Sprintf("EdgeLabel<%d>", int(l))
}

// Edge is one labeled successor of a block.
type Edge struct {
	Label EdgeLabel
	To    int
}

// Terminator ends a basic block.
type Terminator interface {
	terminator()
	String() string
}

func (*Jump) terminator()     {}
func (*Branch) terminator()   {}
func (*LoopTest) terminator() {}
func (*Return) terminator()   {}
func (*Raise) terminator()    {}

// Jump transfers control unconditionally.
type Jump struct {
	To int
}

// String returns the string representation of the terminator.
func (t *Jump) String() string { return fmt.Sprintf("jump b%d", t.To) }

// Branch transfers control based on a condition.
type Branch struct {
	Cond  Expr
	True  int
	False int
}

// String returns the string representation of the terminator.
func (t *Branch) String() string {
	return fmt.Sprintf("branch %s b%d b%d", t.Cond, t.True, t.False)
}

// LoopTest is the header test of a loop. It forks like a Branch except the
// explorer counts iterations per header and removes the continue edge at the
// unrolling limit.
type LoopTest struct {
	Cond Expr
	Body int
	Exit int
}

// String returns the string representation of the terminator.
func (t *LoopTest) String() string {
	return fmt.Sprintf("loop %s b%d b%d", t.Cond, t.Body, t.Exit)
}

// Return terminates the function normally. Value may be nil.
type Return struct {
	Value Expr
}

// String returns the string representation of the terminator.
func (t *Return) String() string {
	if t.Value == nil {
		return "return"
	}
	return fmt.Sprintf("return %s", t.Value)
}

// Raise terminates the function with a named error kind.
type Raise struct {
	Kind  string
	Value Expr
}

// String returns the string representation of the terminator.
func (t *Raise) String() string { return fmt.Sprintf("raise %s", t.Kind) }

// BuildFunc lowers a normalized function AST into IR. Statement order is
// preserved; every control construct becomes blocks and labeled edges.
// Returns a BuildError if a top-level construct cannot be lowered.
func BuildFunc(decl *FuncDecl) (*Func, error) {
	if decl == nil {
		return nil, &BuildError{Reason: "nil function declaration"}
	} else if decl.Name == "" {
		return nil, &BuildError{Reason: "function has no name"}
	}

	seen := make(map[string]struct{}, len(decl.Params))
	for _, p := range decl.Params {
		if p.Name == "" {
			return nil, &BuildError{Func: decl.Name, Reason: "unnamed parameter"}
		} else if _, ok := seen[p.Name]; ok {
			return nil, &BuildError{Func: decl.Name, Reason: fmt.Sprintf("duplicate parameter: %s", p.Name)}
		}
		seen[p.Name] = struct{}{}
	}

	b := &irBuilder{fn: &Func{Name: decl.Name, Params: decl.Params}}
	entry := b.newBlock()
	end, err := b.lowerStmts(decl.Body, entry)
	if err != nil {
		return nil, err
	}

	// A fall-off-the-end block returns nothing.
	if end.Term == nil {
		end.Term = &Return{}
	}
	return b.fn, nil
}

// irBuilder carries the block list under construction.
type irBuilder struct {
	fn  *Func
	tmp int
}

// newBlock appends a fresh block to the function.
func (b *irBuilder) newBlock() *Block {
	blk := &Block{Index: len(b.fn.Blocks)}
	b.fn.Blocks = append(b.fn.Blocks, blk)
	return blk
}

// tempName returns a builder-owned name that cannot collide with source
// identifiers.
func (b *irBuilder) tempName() string {
	name := fmt.Sprintf("ret!%d", b.tmp)
	b.tmp++
	return name
}

// lowerStmts lowers a statement list starting in cur. Returns the block the
// straight-line flow ends in; its terminator is nil unless the list ended in
// a return or raise.
func (b *irBuilder) lowerStmts(stmts []Stmt, cur *Block) (*Block, error) {
	for _, stmt := range stmts {
		// Statements after a terminator are unreachable; drop them rather
		// than produce blocks no edge can reach.
		if cur.Term != nil {
			break
		}

		switch stmt := stmt.(type) {
		case *AssignStmt, *ExprStmt, *OpaqueStmt:
			cur.Stmts = append(cur.Stmts, stmt)

		case *ReturnStmt:
			// Returned calls become a temp assignment so the explorer only
			// ever inlines direct assignment call sites.
			if call, ok := stmt.Value.(*CallExpr); ok {
				tmp := b.tempName()
				cur.Stmts = append(cur.Stmts, &AssignStmt{Name: tmp, Value: call})
				cur.Term = &Return{Value: &Ident{Name: tmp}}
				break
			}
			cur.Term = &Return{Value: stmt.Value}

		case *RaiseStmt:
			if stmt.Kind == "" {
				return nil, &BuildError{Func: b.fn.Name, Reason: "raise statement without error kind"}
			}
			cur.Term = &Raise{Kind: stmt.Kind, Value: stmt.Value}

		case *IfStmt:
			if stmt.Cond == nil {
				return nil, &BuildError{Func: b.fn.Name, Reason: "if statement without condition"}
			}

			thenBlk := b.newBlock()
			elseBlk := b.newBlock()
			cur.Term = &Branch{Cond: stmt.Cond, True: thenBlk.Index, False: elseBlk.Index}

			thenEnd, err := b.lowerStmts(stmt.Then, thenBlk)
			if err != nil {
				return nil, err
			}
			elseEnd, err := b.lowerStmts(stmt.Else, elseBlk)
			if err != nil {
				return nil, err
			}

			// Join the arms unless both terminated.
			if thenEnd.Term != nil && elseEnd.Term != nil {
				cur = thenEnd // flow cannot continue; any block will do
				continue
			}
			join := b.newBlock()
			if thenEnd.Term == nil {
				thenEnd.Term = &Jump{To: join.Index}
			}
			if elseEnd.Term == nil {
				elseEnd.Term = &Jump{To: join.Index}
			}
			cur = join

		case *WhileStmt:
			if stmt.Cond == nil {
				return nil, &BuildError{Func: b.fn.Name, Reason: "while statement without condition"}
			}

			header := b.newBlock()
			cur.Term = &Jump{To: header.Index}

			body := b.newBlock()
			exit := b.newBlock()
			header.Term = &LoopTest{Cond: stmt.Cond, Body: body.Index, Exit: exit.Index}

			bodyEnd, err := b.lowerStmts(stmt.Body, body)
			if err != nil {
				return nil, err
			}
			if bodyEnd.Term == nil {
				bodyEnd.Term = &Jump{To: header.Index}
			}
			cur = exit

		case nil:
			return nil, &BuildError{Func: b.fn.Name, Reason: "nil statement"}

		default:
			return nil, &BuildError{Func: b.fn.Name, Reason: fmt.Sprintf("cannot lower statement: %T", stmt)}
		}
	}
	return cur, nil
}

// Program is a set of built functions addressable by name. The explorer uses
// it to resolve call sites for inlining.
type Program struct {
	funcs map[string]*Func
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{funcs: make(map[string]*Func)}
}

// Add registers fn with the program. Replaces any previous function with the
// same name.
func (p *Program) Add(fn *Func) {
	p.funcs[fn.Name] = fn
}

// Resolve returns the function with the given name, or nil.
func (p *Program) Resolve(name string) *Func {
	if p == nil {
		return nil
	}
	return p.funcs[name]
}
