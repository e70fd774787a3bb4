package pathwalk_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/pathwalk/pathwalk"
)

func TestBuildFunc(t *testing.T) {
	t.Run("IfElseJoin", func(t *testing.T) {
		fn := mustBuildFunc(t, &pathwalk.FuncDecl{
			Name:   "f",
			Params: []pathwalk.Param{{Name: "x", Domain: pathwalk.DomainInt}},
			Body: []pathwalk.Stmt{
				&pathwalk.IfStmt{
					Cond: &pathwalk.BinaryExpr{Op: pathwalk.OpGT, X: &pathwalk.Ident{Name: "x"}, Y: &pathwalk.IntLit{Value: 0}},
					Then: []pathwalk.Stmt{&pathwalk.AssignStmt{Name: "y", Value: &pathwalk.IntLit{Value: 1}}},
					Else: []pathwalk.Stmt{&pathwalk.AssignStmt{Name: "y", Value: &pathwalk.IntLit{Value: 2}}},
				},
				&pathwalk.ReturnStmt{Value: &pathwalk.Ident{Name: "y"}},
			},
		})

		// Entry, then, else, join.
		if got, want := len(fn.Blocks), 4; got != want {
			t.Fatalf("got %d blocks, want %d", got, want)
		}
		branch, ok := fn.Entry().Term.(*pathwalk.Branch)
		if !ok {
			t.Fatalf("entry terminator: %T", fn.Entry().Term)
		}
		// Both arms jump to the join block holding the return.
		thenJump := fn.Blocks[branch.True].Term.(*pathwalk.Jump)
		elseJump := fn.Blocks[branch.False].Term.(*pathwalk.Jump)
		if thenJump.To != elseJump.To {
			t.Fatalf("arms join at b%d and b%d", thenJump.To, elseJump.To)
		}
		if _, ok := fn.Blocks[thenJump.To].Term.(*pathwalk.Return); !ok {
			t.Fatalf("join terminator: %T", fn.Blocks[thenJump.To].Term)
		}
	})

	t.Run("While", func(t *testing.T) {
		fn := mustBuildFunc(t, &pathwalk.FuncDecl{
			Name:   "f",
			Params: []pathwalk.Param{{Name: "n", Domain: pathwalk.DomainInt}},
			Body: []pathwalk.Stmt{
				&pathwalk.WhileStmt{
					Cond: &pathwalk.BinaryExpr{Op: pathwalk.OpGT, X: &pathwalk.Ident{Name: "n"}, Y: &pathwalk.IntLit{Value: 0}},
					Body: []pathwalk.Stmt{&pathwalk.AssignStmt{
						Name:  "n",
						Value: &pathwalk.BinaryExpr{Op: pathwalk.OpSub, X: &pathwalk.Ident{Name: "n"}, Y: &pathwalk.IntLit{Value: 1}},
					}},
				},
				&pathwalk.ReturnStmt{Value: &pathwalk.Ident{Name: "n"}},
			},
		})

		var header *pathwalk.Block
		for _, b := range fn.Blocks {
			if _, ok := b.Term.(*pathwalk.LoopTest); ok {
				header = b
			}
		}
		if header == nil {
			t.Fatalf("no loop header:\n%s", fn.Dump())
		}
		test := header.Term.(*pathwalk.LoopTest)

		// The body jumps back to the header.
		back, ok := fn.Blocks[test.Body].Term.(*pathwalk.Jump)
		if !ok || back.To != header.Index {
			t.Fatalf("body does not return to header:\n%s", fn.Dump())
		}
	})

	t.Run("UnreachableDropped", func(t *testing.T) {
		fn := mustBuildFunc(t, &pathwalk.FuncDecl{
			Name: "f",
			Body: []pathwalk.Stmt{
				&pathwalk.ReturnStmt{Value: &pathwalk.IntLit{Value: 1}},
				&pathwalk.AssignStmt{Name: "x", Value: &pathwalk.IntLit{Value: 2}},
			},
		})
		if got := len(fn.Entry().Stmts); got != 0 {
			t.Fatalf("got %d statements after return, want 0", got)
		}
	})

	t.Run("ReturnedCallRewritten", func(t *testing.T) {
		fn := mustBuildFunc(t, &pathwalk.FuncDecl{
			Name: "f",
			Body: []pathwalk.Stmt{
				&pathwalk.ReturnStmt{Value: &pathwalk.CallExpr{Func: "g", Args: []pathwalk.Expr{&pathwalk.IntLit{Value: 1}}}},
			},
		})
		if got := len(fn.Entry().Stmts); got != 1 {
			t.Fatalf("got %d statements, want 1", got)
		}
		assign, ok := fn.Entry().Stmts[0].(*pathwalk.AssignStmt)
		if !ok {
			t.Fatalf("statement: %T", fn.Entry().Stmts[0])
		}
		ret := fn.Entry().Term.(*pathwalk.Return)
		if ident, ok := ret.Value.(*pathwalk.Ident); !ok || ident.Name != assign.Name {
			t.Fatalf("return does not read the call temp: %s", ret)
		}
	})

	t.Run("FallOffEndReturns", func(t *testing.T) {
		fn := mustBuildFunc(t, &pathwalk.FuncDecl{
			Name: "f",
			Body: []pathwalk.Stmt{&pathwalk.AssignStmt{Name: "x", Value: &pathwalk.IntLit{Value: 1}}},
		})
		ret, ok := fn.Entry().Term.(*pathwalk.Return)
		if !ok || ret.Value != nil {
			t.Fatalf("terminator: %s", fn.Entry().Term)
		}
	})

	t.Run("ErrDuplicateParam", func(t *testing.T) {
		_, err := pathwalk.BuildFunc(&pathwalk.FuncDecl{
			Name:   "f",
			Params: []pathwalk.Param{{Name: "x"}, {Name: "x"}},
		})
		var buildErr *pathwalk.BuildError
		if err == nil {
			t.Fatal("expected error")
		} else if !errors.As(err, &buildErr) {
			t.Fatalf("unexpected error type: %T", err)
		} else if !strings.Contains(buildErr.Reason, "duplicate parameter") {
			t.Fatalf("unexpected reason: %s", buildErr.Reason)
		}
	})

	t.Run("ErrNilDecl", func(t *testing.T) {
		if _, err := pathwalk.BuildFunc(nil); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("ErrIfWithoutCond", func(t *testing.T) {
		_, err := pathwalk.BuildFunc(&pathwalk.FuncDecl{
			Name: "f",
			Body: []pathwalk.Stmt{&pathwalk.IfStmt{}},
		})
		if err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestProgram_Resolve(t *testing.T) {
	prog := pathwalk.NewProgram()
	fn := mustBuildFunc(t, &pathwalk.FuncDecl{Name: "f"})
	prog.Add(fn)

	if got := prog.Resolve("f"); got != fn {
		t.Fatal("function not resolved")
	}
	if got := prog.Resolve("g"); got != nil {
		t.Fatal("unexpected resolution")
	}

	var nilProg *pathwalk.Program
	if got := nilProg.Resolve("f"); got != nil {
		t.Fatal("nil program resolved a function")
	}
}

// mustBuildFunc builds a function declaration or fails the test.
func mustBuildFunc(tb testing.TB, decl *pathwalk.FuncDecl) *pathwalk.Func {
	tb.Helper()
	fn, err := pathwalk.BuildFunc(decl)
	if err != nil {
		tb.Fatal(err)
	}
	return fn
}
