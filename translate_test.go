package pathwalk_test

import (
	"math/big"
	"strings"
	"testing"

	"github.com/pathwalk/pathwalk"
)

func bigRat(a, b int64) *big.Rat { return big.NewRat(a, b) }

func TestTranslator_Translate(t *testing.T) {
	tr := pathwalk.NewTranslator(pathwalk.TranslateOptions{Features: pathwalk.FeatureSeq})

	t.Run("Ident", func(t *testing.T) {
		state := pathwalk.NewState()
		_, state = state.FreshVar("x", pathwalk.DomainInt)

		out := mustTranslate(t, tr, state, &pathwalk.Ident{Name: "x"})
		if got, want := out.Term.String(), `x`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})

	t.Run("Arith", func(t *testing.T) {
		state := pathwalk.NewState()
		_, state = state.FreshVar("x", pathwalk.DomainInt)

		out := mustTranslate(t, tr, state, &pathwalk.BinaryExpr{
			Op: pathwalk.OpAdd,
			X:  &pathwalk.Ident{Name: "x"},
			Y:  &pathwalk.IntLit{Value: 3},
		})
		if got, want := out.Term.String(), `(add 3 x)`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
		if len(out.Hazards) != 0 {
			t.Fatalf("unexpected hazards: %v", out.Hazards)
		}
	})

	t.Run("MixedPromotes", func(t *testing.T) {
		state := pathwalk.NewState()
		_, state = state.FreshVar("x", pathwalk.DomainInt)

		out := mustTranslate(t, tr, state, &pathwalk.BinaryExpr{
			Op: pathwalk.OpMul,
			X:  &pathwalk.Ident{Name: "x"},
			Y:  &pathwalk.RealLit{Value: bigRat(1, 2)},
		})
		if got := pathwalk.TermDomain(out.Term); got != pathwalk.DomainReal {
			t.Fatalf("got domain %s, want real", got)
		}
	})

	t.Run("DivHazard", func(t *testing.T) {
		state := pathwalk.NewState()
		_, state = state.FreshVar("a", pathwalk.DomainInt)
		_, state = state.FreshVar("b", pathwalk.DomainInt)

		out := mustTranslate(t, tr, state, &pathwalk.BinaryExpr{
			Op: pathwalk.OpDiv,
			X:  &pathwalk.Ident{Name: "a"},
			Y:  &pathwalk.Ident{Name: "b"},
		})
		if got := len(out.Hazards); got != 1 {
			t.Fatalf("got %d hazards, want 1", got)
		}
		h := out.Hazards[0]
		if h.Kind != pathwalk.HazardDivZero {
			t.Fatalf("got kind %s", h.Kind)
		}
		if got, want := h.Cond.String(), `(eq 0 b)`; got != want {
			t.Fatalf("got cond %s, want %s", got, want)
		}
	})

	t.Run("DivByConstHasNoHazard", func(t *testing.T) {
		state := pathwalk.NewState()
		_, state = state.FreshVar("a", pathwalk.DomainInt)

		out := mustTranslate(t, tr, state, &pathwalk.BinaryExpr{
			Op: pathwalk.OpDiv,
			X:  &pathwalk.Ident{Name: "a"},
			Y:  &pathwalk.IntLit{Value: 4},
		})
		if got := len(out.Hazards); got != 0 {
			t.Fatalf("got %d hazards, want 0", got)
		}
	})

	t.Run("IndexHazard", func(t *testing.T) {
		state := pathwalk.NewState()
		_, state = state.FreshVar("s", pathwalk.DomainString)
		_, state = state.FreshVar("i", pathwalk.DomainInt)

		out := mustTranslate(t, tr, state, &pathwalk.IndexExpr{
			X:     &pathwalk.Ident{Name: "s"},
			Index: &pathwalk.Ident{Name: "i"},
		})
		if got := len(out.Hazards); got != 1 {
			t.Fatalf("got %d hazards, want 1", got)
		}
		if got := out.Hazards[0].Kind; got != pathwalk.HazardIndexRange {
			t.Fatalf("got kind %s", got)
		}
		if got := pathwalk.TermDomain(out.Term); got != pathwalk.DomainString {
			t.Fatalf("got element domain %s, want string", got)
		}
	})

	t.Run("OpaqueDegrade", func(t *testing.T) {
		state := pathwalk.NewState()
		out := mustTranslate(t, tr, state, &pathwalk.OpaqueExpr{Text: "yield x"})

		if _, ok := out.Term.(*pathwalk.VarTerm); !ok {
			t.Fatalf("got %T, want fresh variable", out.Term)
		}
		if got := len(out.Notes); got != 1 {
			t.Fatalf("got %d notes, want 1", got)
		}
		if !strings.Contains(out.Notes[0], "yield x") {
			t.Fatalf("note does not name the construct: %s", out.Notes[0])
		}
	})

	t.Run("OpaqueVarsAreDistinct", func(t *testing.T) {
		state := pathwalk.NewState()
		out1 := mustTranslate(t, tr, state, &pathwalk.OpaqueExpr{Text: "a"})
		out2 := mustTranslate(t, tr, out1.State, &pathwalk.OpaqueExpr{Text: "b"})

		v1 := out1.Term.(*pathwalk.VarTerm)
		v2 := out2.Term.(*pathwalk.VarTerm)
		if v1.Symbol() == v2.Symbol() {
			t.Fatalf("opaque stand-ins collide: %s", v1.Symbol())
		}
	})

	t.Run("Builtins", func(t *testing.T) {
		state := pathwalk.NewState()
		_, state = state.FreshVar("s", pathwalk.DomainString)

		out := mustTranslate(t, tr, state, &pathwalk.CallExpr{
			Func: "len",
			Args: []pathwalk.Expr{&pathwalk.Ident{Name: "s"}},
		})
		if got, want := out.Term.String(), `(len s)`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}

		out = mustTranslate(t, tr, state, &pathwalk.CallExpr{
			Func: "has_prefix",
			Args: []pathwalk.Expr{&pathwalk.Ident{Name: "s"}, &pathwalk.StringLit{Value: "db:"}},
		})
		if got, want := out.Term.String(), `(has-prefix s "db:")`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})

	t.Run("SeqMembership", func(t *testing.T) {
		state := pathwalk.NewState()
		_, state = state.FreshVar("x", pathwalk.DomainInt)

		out := mustTranslate(t, tr, state, &pathwalk.BinaryExpr{
			Op: pathwalk.OpIn,
			X:  &pathwalk.Ident{Name: "x"},
			Y:  &pathwalk.ListLit{Elems: []pathwalk.Expr{&pathwalk.IntLit{Value: 1}, &pathwalk.IntLit{Value: 2}}},
		})
		// Membership over a literal list unrolls to a disjunction of
		// equalities.
		if got := pathwalk.TermDomain(out.Term); got != pathwalk.DomainBool {
			t.Fatalf("got domain %s, want bool", got)
		}
		if !strings.Contains(out.Term.String(), "eq") {
			t.Fatalf("unexpected term: %s", out.Term)
		}
	})

	t.Run("SeqDisabledDegrades", func(t *testing.T) {
		bare := pathwalk.NewTranslator(pathwalk.TranslateOptions{})
		out := mustTranslate(t, bare, pathwalk.NewState(), &pathwalk.ListLit{
			Elems: []pathwalk.Expr{&pathwalk.IntLit{Value: 1}},
		})
		if _, ok := out.Term.(*pathwalk.VarTerm); !ok {
			t.Fatalf("got %T, want opaque variable", out.Term)
		}
	})
}

func TestTranslator_TranslateBool(t *testing.T) {
	tr := pathwalk.NewTranslator(pathwalk.TranslateOptions{})

	t.Run("IntTruthiness", func(t *testing.T) {
		state := pathwalk.NewState()
		_, state = state.FreshVar("x", pathwalk.DomainInt)

		out, err := tr.TranslateBool(state, &pathwalk.Ident{Name: "x"})
		if err != nil {
			t.Fatal(err)
		}
		if got, want := out.Term.String(), `(not (eq 0 x))`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})

	t.Run("StringTruthiness", func(t *testing.T) {
		state := pathwalk.NewState()
		_, state = state.FreshVar("s", pathwalk.DomainString)

		out, err := tr.TranslateBool(state, &pathwalk.Ident{Name: "s"})
		if err != nil {
			t.Fatal(err)
		}
		if got, want := out.Term.String(), `(lt 0 (len s))`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})
}

func TestTranslator_DivisionModes(t *testing.T) {
	newState := func() *pathwalk.State {
		state := pathwalk.NewState()
		_, state = state.FreshVar("a", pathwalk.DomainInt)
		_, state = state.FreshVar("b", pathwalk.DomainInt)
		return state
	}
	div := &pathwalk.BinaryExpr{Op: pathwalk.OpDiv, X: &pathwalk.Ident{Name: "a"}, Y: &pathwalk.Ident{Name: "b"}}

	t.Run("Euclid", func(t *testing.T) {
		tr := pathwalk.NewTranslator(pathwalk.TranslateOptions{Division: pathwalk.DivEuclid})
		out := mustTranslate(t, tr, newState(), div)
		if got, want := out.Term.String(), `(div a b)`; got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})

	t.Run("Floor", func(t *testing.T) {
		tr := pathwalk.NewTranslator(pathwalk.TranslateOptions{Division: pathwalk.DivFloor})
		out := mustTranslate(t, tr, newState(), div)
		// The floored quotient is encoded on top of the Euclidean operators.
		s := out.Term.String()
		if !strings.Contains(s, "ite") || !strings.Contains(s, "mod") {
			t.Fatalf("unexpected encoding: %s", s)
		}
	})

	t.Run("Trunc", func(t *testing.T) {
		tr := pathwalk.NewTranslator(pathwalk.TranslateOptions{Division: pathwalk.DivTrunc})
		out := mustTranslate(t, tr, newState(), &pathwalk.BinaryExpr{
			Op: pathwalk.OpMod, X: &pathwalk.Ident{Name: "a"}, Y: &pathwalk.Ident{Name: "b"},
		})
		s := out.Term.String()
		if !strings.Contains(s, "ite") || !strings.Contains(s, "mod") {
			t.Fatalf("unexpected encoding: %s", s)
		}
	})
}

// mustTranslate translates an expression or fails the test.
func mustTranslate(tb testing.TB, tr *pathwalk.Translator, state *pathwalk.State, x pathwalk.Expr) *pathwalk.Translation {
	tb.Helper()
	out, err := tr.Translate(state, x)
	if err != nil {
		tb.Fatal(err)
	}
	return out
}
