package pathwalk_test

import (
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pathwalk/pathwalk"
)

func TestNewBinaryTerm_Add(t *testing.T) {
	t.Run("FoldInt", func(t *testing.T) {
		got := pathwalk.NewBinaryTerm(pathwalk.ADD, pathwalk.NewIntTerm(2), pathwalk.NewIntTerm(3))
		if got, want := got.String(), `5`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})

	t.Run("FoldReal", func(t *testing.T) {
		got := pathwalk.NewBinaryTerm(pathwalk.ADD, pathwalk.NewRealTerm(big.NewRat(1, 2)), pathwalk.NewRealTerm(big.NewRat(1, 4)))
		if got, want := got.String(), `3/4`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})

	t.Run("ZeroElided", func(t *testing.T) {
		x := pathwalk.NewVarTerm("x", 0, pathwalk.DomainInt)
		if got := pathwalk.NewBinaryTerm(pathwalk.ADD, pathwalk.NewIntTerm(0), x); got != pathwalk.Term(x) {
			t.Fatalf("got %s, want x", got)
		}
		if got := pathwalk.NewBinaryTerm(pathwalk.ADD, x, pathwalk.NewIntTerm(0)); got != pathwalk.Term(x) {
			t.Fatalf("got %s, want x", got)
		}
	})

	t.Run("ConstMovedToLHS", func(t *testing.T) {
		x := pathwalk.NewVarTerm("x", 0, pathwalk.DomainInt)
		got := pathwalk.NewBinaryTerm(pathwalk.ADD, x, pathwalk.NewIntTerm(2))
		if got, want := got.String(), `(add 2 x)`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})

	t.Run("ConstMerged", func(t *testing.T) {
		// 1 + (2 + x) collapses the constants.
		x := pathwalk.NewVarTerm("x", 0, pathwalk.DomainInt)
		inner := pathwalk.NewBinaryTerm(pathwalk.ADD, pathwalk.NewIntTerm(2), x)
		got := pathwalk.NewBinaryTerm(pathwalk.ADD, pathwalk.NewIntTerm(1), inner)
		if got, want := got.String(), `(add 3 x)`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})
}

func TestNewBinaryTerm_Sub(t *testing.T) {
	x := pathwalk.NewVarTerm("x", 0, pathwalk.DomainInt)

	t.Run("SelfIsZero", func(t *testing.T) {
		got := pathwalk.NewBinaryTerm(pathwalk.SUB, x, pathwalk.NewVarTerm("x", 0, pathwalk.DomainInt))
		if got, want := got.String(), `0`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})

	t.Run("ZeroRHSElided", func(t *testing.T) {
		if got := pathwalk.NewBinaryTerm(pathwalk.SUB, x, pathwalk.NewIntTerm(0)); got != pathwalk.Term(x) {
			t.Fatalf("got %s, want x", got)
		}
	})
}

func TestNewBinaryTerm_DivMod(t *testing.T) {
	t.Run("FoldEuclidean", func(t *testing.T) {
		// -7 = 2*(-4) + 1 under Euclidean division.
		q := pathwalk.NewBinaryTerm(pathwalk.DIV, pathwalk.NewIntTerm(-7), pathwalk.NewIntTerm(2))
		if got, want := q.String(), `-4`; got != want {
			t.Fatalf("quotient: got %s, want %s", got, want)
		}
		r := pathwalk.NewBinaryTerm(pathwalk.MOD, pathwalk.NewIntTerm(-7), pathwalk.NewIntTerm(2))
		if got, want := r.String(), `1`; got != want {
			t.Fatalf("remainder: got %s, want %s", got, want)
		}
	})

	t.Run("ZeroDivisorUnfolded", func(t *testing.T) {
		got := pathwalk.NewBinaryTerm(pathwalk.DIV, pathwalk.NewIntTerm(1), pathwalk.NewIntTerm(0))
		if got, want := got.String(), `(div 1 0)`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})

	t.Run("FoldReal", func(t *testing.T) {
		got := pathwalk.NewBinaryTerm(pathwalk.DIV, pathwalk.NewRealTerm(big.NewRat(1, 1)), pathwalk.NewRealTerm(big.NewRat(3, 1)))
		if got, want := got.String(), `1/3`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})
}

func TestNewBinaryTerm_Eq(t *testing.T) {
	x := pathwalk.NewVarTerm("x", 0, pathwalk.DomainBool)

	t.Run("TrueElided", func(t *testing.T) {
		if got := pathwalk.NewBinaryTerm(pathwalk.EQ, x, pathwalk.NewBoolTerm(true)); got != pathwalk.Term(x) {
			t.Fatalf("got %s, want x", got)
		}
	})

	t.Run("FalseNegates", func(t *testing.T) {
		got := pathwalk.NewBinaryTerm(pathwalk.EQ, pathwalk.NewBoolTerm(false), x)
		if got, want := got.String(), `(not x)`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})

	t.Run("SelfIsTrue", func(t *testing.T) {
		n := pathwalk.NewVarTerm("n", 2, pathwalk.DomainInt)
		got := pathwalk.NewBinaryTerm(pathwalk.EQ, n, pathwalk.NewVarTerm("n", 2, pathwalk.DomainInt))
		if !pathwalk.IsTrueTerm(got) {
			t.Fatalf("got %s, want true", got)
		}
	})

	t.Run("NERewrites", func(t *testing.T) {
		n := pathwalk.NewVarTerm("n", 0, pathwalk.DomainInt)
		got := pathwalk.NewBinaryTerm(pathwalk.NE, n, pathwalk.NewIntTerm(0))
		if got, want := got.String(), `(not (eq 0 n))`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})
}

func TestNewBinaryTerm_Ordering(t *testing.T) {
	x := pathwalk.NewVarTerm("x", 0, pathwalk.DomainInt)

	t.Run("GTReverses", func(t *testing.T) {
		got := pathwalk.NewBinaryTerm(pathwalk.GT, x, pathwalk.NewIntTerm(5))
		if got, want := got.String(), `(lt 5 x)`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})

	t.Run("FoldString", func(t *testing.T) {
		got := pathwalk.NewBinaryTerm(pathwalk.LT, pathwalk.NewStrTerm("abc"), pathwalk.NewStrTerm("abd"))
		if !pathwalk.IsTrueTerm(got) {
			t.Fatalf("got %s, want true", got)
		}
	})

	t.Run("SelfLEIsTrue", func(t *testing.T) {
		got := pathwalk.NewBinaryTerm(pathwalk.LE, x, pathwalk.NewVarTerm("x", 0, pathwalk.DomainInt))
		if !pathwalk.IsTrueTerm(got) {
			t.Fatalf("got %s, want true", got)
		}
	})
}

func TestNewBinaryTerm_Logic(t *testing.T) {
	x := pathwalk.NewVarTerm("x", 0, pathwalk.DomainBool)

	if got := pathwalk.NewBinaryTerm(pathwalk.AND, pathwalk.NewBoolTerm(true), x); got != pathwalk.Term(x) {
		t.Fatalf("and(true,x): got %s, want x", got)
	}
	if got := pathwalk.NewBinaryTerm(pathwalk.AND, x, pathwalk.NewBoolTerm(false)); !pathwalk.IsFalseTerm(got) {
		t.Fatalf("and(x,false): got %s, want false", got)
	}
	if got := pathwalk.NewBinaryTerm(pathwalk.OR, x, pathwalk.NewBoolTerm(true)); !pathwalk.IsTrueTerm(got) {
		t.Fatalf("or(x,true): got %s, want true", got)
	}
	if got := pathwalk.NewBinaryTerm(pathwalk.OR, pathwalk.NewBoolTerm(false), x); got != pathwalk.Term(x) {
		t.Fatalf("or(false,x): got %s, want x", got)
	}
}

func TestNewBinaryTerm_Strings(t *testing.T) {
	s := pathwalk.NewVarTerm("s", 0, pathwalk.DomainString)

	t.Run("ConcatFold", func(t *testing.T) {
		got := pathwalk.NewBinaryTerm(pathwalk.CONCAT, pathwalk.NewStrTerm("ab"), pathwalk.NewStrTerm("cd"))
		if got, want := got.String(), `"abcd"`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})

	t.Run("ConcatEmptyElided", func(t *testing.T) {
		if got := pathwalk.NewBinaryTerm(pathwalk.CONCAT, pathwalk.NewStrTerm(""), s); got != pathwalk.Term(s) {
			t.Fatalf("got %s, want s", got)
		}
	})

	t.Run("ContainsFold", func(t *testing.T) {
		got := pathwalk.NewBinaryTerm(pathwalk.CONTAINS, pathwalk.NewStrTerm("hello"), pathwalk.NewStrTerm("ell"))
		if !pathwalk.IsTrueTerm(got) {
			t.Fatalf("got %s, want true", got)
		}
	})

	t.Run("EmptyPrefixAlwaysTrue", func(t *testing.T) {
		got := pathwalk.NewBinaryTerm(pathwalk.HASPREFIX, s, pathwalk.NewStrTerm(""))
		if !pathwalk.IsTrueTerm(got) {
			t.Fatalf("got %s, want true", got)
		}
	})
}

func TestNewLenTerm(t *testing.T) {
	if got, want := pathwalk.NewLenTerm(pathwalk.NewStrTerm("abc")).String(), `3`; got != want {
		t.Fatalf("got %s, want %s", got, want)
	}

	seq := pathwalk.NewSeqTerm(pathwalk.DomainInt, pathwalk.NewIntTerm(1), pathwalk.NewIntTerm(2))
	if got, want := pathwalk.NewLenTerm(seq).String(), `2`; got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestNewAtTerm(t *testing.T) {
	t.Run("FoldStr", func(t *testing.T) {
		got := pathwalk.NewAtTerm(pathwalk.NewStrTerm("abc"), pathwalk.NewIntTerm(1), pathwalk.DomainString)
		if got, want := got.String(), `"b"`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})

	t.Run("OutOfRangeUnfolded", func(t *testing.T) {
		got := pathwalk.NewAtTerm(pathwalk.NewStrTerm("abc"), pathwalk.NewIntTerm(9), pathwalk.DomainString)
		if got, want := got.String(), `(at "abc" 9)`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})
}

func TestNewNotTerm(t *testing.T) {
	x := pathwalk.NewVarTerm("x", 0, pathwalk.DomainBool)
	if got := pathwalk.NewNotTerm(pathwalk.NewNotTerm(x)); got != pathwalk.Term(x) {
		t.Fatalf("double negation: got %s, want x", got)
	}
	if got := pathwalk.NewNotTerm(pathwalk.NewBoolTerm(true)); !pathwalk.IsFalseTerm(got) {
		t.Fatalf("got %s, want false", got)
	}
}

func TestNewIteTerm(t *testing.T) {
	x := pathwalk.NewVarTerm("x", 0, pathwalk.DomainInt)
	y := pathwalk.NewVarTerm("y", 0, pathwalk.DomainInt)
	cond := pathwalk.NewVarTerm("c", 0, pathwalk.DomainBool)

	if got := pathwalk.NewIteTerm(pathwalk.NewBoolTerm(true), x, y); got != pathwalk.Term(x) {
		t.Fatalf("got %s, want x", got)
	}
	if got := pathwalk.NewIteTerm(cond, x, pathwalk.NewVarTerm("x", 0, pathwalk.DomainInt)); got != pathwalk.Term(x) {
		t.Fatalf("equal arms: got %s, want x", got)
	}
}

func TestFindVars(t *testing.T) {
	x0 := pathwalk.NewVarTerm("x", 0, pathwalk.DomainInt)
	x1 := pathwalk.NewVarTerm("x", 1, pathwalk.DomainInt)
	a := pathwalk.NewVarTerm("a", 0, pathwalk.DomainInt)

	terms := []pathwalk.Term{
		pathwalk.NewBinaryTerm(pathwalk.LT, x1, x0),
		pathwalk.NewBinaryTerm(pathwalk.EQ, a, x0),
	}
	got := pathwalk.FindVars(terms...)
	want := []*pathwalk.VarTerm{a, x0, x1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected vars (-want +got):\n%s", diff)
	}
}

func TestFindVars_EmptySeq(t *testing.T) {
	// Comparing against an empty list literal is valid input; collecting its
	// variables must not fault on the zero-length element slice.
	xs := pathwalk.NewVarTerm("xs", 0, pathwalk.DomainSeq)
	eq := pathwalk.NewBinaryTerm(pathwalk.EQ, pathwalk.NewSeqTerm(pathwalk.DomainInt), xs)

	got := pathwalk.FindVars(eq)
	want := []*pathwalk.VarTerm{xs}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected vars (-want +got):\n%s", diff)
	}
}

func TestWalkTerm_NoMutation(t *testing.T) {
	x := pathwalk.NewVarTerm("x", 0, pathwalk.DomainInt)
	orig := pathwalk.NewBinaryTerm(pathwalk.ADD, x, pathwalk.NewVarTerm("y", 0, pathwalk.DomainInt))

	ev := pathwalk.NewTermEvaluator(map[string]pathwalk.Term{
		"x": pathwalk.NewIntTerm(1),
		"y": pathwalk.NewIntTerm(2),
	})
	result, err := ev.Evaluate(orig)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := result.String(), `3`; got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
	// The input term is unchanged.
	if got, want := orig.String(), `(add x y)`; got != want {
		t.Fatalf("original mutated: %s, want %s", got, want)
	}
}

func TestTermEvaluator(t *testing.T) {
	t.Run("MissingVar", func(t *testing.T) {
		ev := pathwalk.NewTermEvaluator(map[string]pathwalk.Term{})
		if _, err := ev.Evaluate(pathwalk.NewVarTerm("x", 0, pathwalk.DomainInt)); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("Ite", func(t *testing.T) {
		x := pathwalk.NewVarTerm("x", 0, pathwalk.DomainInt)
		term := pathwalk.NewIteTerm(
			pathwalk.NewBinaryTerm(pathwalk.LT, x, pathwalk.NewIntTerm(0)),
			pathwalk.NewIntTerm(-1),
			pathwalk.NewIntTerm(1),
		)
		ev := pathwalk.NewTermEvaluator(map[string]pathwalk.Term{"x": pathwalk.NewIntTerm(-5)})
		result, err := ev.Evaluate(term)
		if err != nil {
			t.Fatal(err)
		}
		if got, want := result.String(), `-1`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})
}

func TestCompareTerm(t *testing.T) {
	a := pathwalk.NewIntTerm(1)
	b := pathwalk.NewVarTerm("x", 0, pathwalk.DomainInt)

	if got := pathwalk.CompareTerm(a, b); got != -1 {
		t.Fatalf("const vs var: got %d, want -1", got)
	}
	if got := pathwalk.CompareTerm(b, a); got != 1 {
		t.Fatalf("var vs const: got %d, want 1", got)
	}
	if got := pathwalk.CompareTerm(b, pathwalk.NewVarTerm("x", 0, pathwalk.DomainInt)); got != 0 {
		t.Fatalf("equal vars: got %d, want 0", got)
	}
	if got := pathwalk.CompareTerm(b, pathwalk.NewVarTerm("x", 1, pathwalk.DomainInt)); got != -1 {
		t.Fatalf("generation order: got %d, want -1", got)
	}
}
