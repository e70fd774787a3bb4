package pathwalk

import (
	"fmt"
	"math/big"
)

// Hazard kinds attached by the translator.
const (
	HazardDivZero    = "div-by-zero"
	HazardIndexRange = "index-out-of-range"
)

// Hazard is a latent runtime error discovered while translating an
// expression: the condition under which evaluating it would fault. The
// explorer forks an error path for each feasible hazard and assumes the
// negation on the surviving path.
type Hazard struct {
	Kind string
	Cond Term
}

// DivisionMode selects the integer division semantics the translator encodes.
type DivisionMode int

const (
	// DivFloor rounds the quotient toward negative infinity; the remainder
	// takes the sign of the divisor.
	DivFloor DivisionMode = iota

	// DivTrunc rounds the quotient toward zero; the remainder takes the sign
	// of the dividend.
	DivTrunc

	// DivEuclid keeps the solver's native semantics: the remainder is always
	// non-negative.
	DivEuclid
)

// NumericMode selects how mixed int/real operands are handled.
type NumericMode int

const (
	// NumPromote widens the integer operand to the real theory.
	NumPromote NumericMode = iota

	// NumStrict treats mixed operands as unsupported and degrades the
	// expression to an opaque value.
	NumStrict
)

// TranslateOptions configures a Translator.
type TranslateOptions struct {
	Division DivisionMode
	Numeric  NumericMode
	Features FeatureSet
}

// Translator lowers expressions to solver terms under a fixed option set.
// It is stateless and safe to share across paths.
type Translator struct {
	opts TranslateOptions
}

// NewTranslator returns a translator with the given options.
func NewTranslator(opts TranslateOptions) *Translator {
	return &Translator{opts: opts}
}

// Translation is the outcome of translating one expression: the resulting
// term, the state threaded through opaque variable allocation, the hazards
// found, and a note per construct that degraded to an opaque value.
type Translation struct {
	Term    Term
	State   *State
	Hazards []Hazard
	Notes   []string
}

// Translate lowers x against the bindings in state. Unsupported constructs
// degrade to fresh opaque variables and are never fatal; only a nil
// expression is an error.
func (tr *Translator) Translate(state *State, x Expr) (*Translation, error) {
	return tr.TranslateIn(state, "", x)
}

// TranslateIn is Translate with identifier lookups qualified by a scope
// prefix. The explorer uses it to keep inlined call frames from colliding
// with caller variables.
func (tr *Translator) TranslateIn(state *State, scope string, x Expr) (*Translation, error) {
	if x == nil {
		return nil, &BuildError{Reason: "nil expression"}
	}
	w := &translation{tr: tr, state: state, scope: scope}
	t := w.expr(x)
	return &Translation{Term: t, State: w.state, Hazards: w.hazards, Notes: w.notes}, nil
}

// TranslateBool lowers x and coerces the result to the boolean domain using
// truthiness rules: numbers are true when non-zero, strings and sequences
// when non-empty.
func (tr *Translator) TranslateBool(state *State, x Expr) (*Translation, error) {
	return tr.TranslateBoolIn(state, "", x)
}

// TranslateBoolIn is TranslateBool with a scope prefix.
func (tr *Translator) TranslateBoolIn(state *State, scope string, x Expr) (*Translation, error) {
	out, err := tr.TranslateIn(state, scope, x)
	if err != nil {
		return nil, err
	}
	w := &translation{tr: tr, state: out.State, scope: scope, hazards: out.Hazards, notes: out.Notes}
	t := w.truthy(out.Term)
	return &Translation{Term: t, State: w.state, Hazards: w.hazards, Notes: w.notes}, nil
}

// translation accumulates one Translate call.
type translation struct {
	tr      *Translator
	state   *State
	scope   string
	hazards []Hazard
	notes   []string
}

func (w *translation) expr(x Expr) Term {
	switch x := x.(type) {
	case *Ident:
		if t, ok := w.state.Lookup(w.scope + x.Name); ok {
			return t
		}
		// Unbound names become symbolic rather than failing the path.
		return w.opaque(x.Name, DomainInt)

	case *IntLit:
		return NewIntTerm(x.Value)
	case *RealLit:
		return NewRealTerm(x.Value)
	case *BoolLit:
		return NewBoolTerm(x.Value)
	case *StringLit:
		return NewStrTerm(x.Value)

	case *ListLit:
		if !w.tr.opts.Features.Enabled(FeatureSeq) {
			return w.opaque(x.String(), DomainSeq)
		}
		elems := make([]Term, len(x.Elems))
		for i, e := range x.Elems {
			elems[i] = w.expr(e)
		}
		elem := DomainInt
		if len(elems) > 0 {
			elem = TermDomain(elems[0])
		}
		return NewSeqTerm(elem, elems...)

	case *BinaryExpr:
		return w.binary(x)
	case *UnaryExpr:
		return w.unary(x)
	case *CallExpr:
		return w.call(x)
	case *IndexExpr:
		return w.index(x)

	case *OpaqueExpr:
		return w.opaque(x.Text, DomainInt)

	default:
		return w.opaque(fmt.Sprintf("%T", x), DomainInt)
	}
}

func (w *translation) binary(x *BinaryExpr) Term {
	switch x.Op {
	case OpAnd:
		lhs := w.truthy(w.expr(x.X))
		rhs := w.truthy(w.expr(x.Y))
		return NewBinaryTerm(AND, lhs, rhs)
	case OpOr:
		lhs := w.truthy(w.expr(x.X))
		rhs := w.truthy(w.expr(x.Y))
		return NewBinaryTerm(OR, lhs, rhs)
	case OpIn:
		return w.membership(x)
	}

	lhs, rhs := w.expr(x.X), w.expr(x.Y)

	switch x.Op {
	case OpAdd:
		if TermDomain(lhs) == DomainString || TermDomain(rhs) == DomainString {
			return NewBinaryTerm(CONCAT, lhs, rhs)
		}
		if TermDomain(lhs) == DomainSeq && TermDomain(rhs) == DomainSeq {
			return NewBinaryTerm(CONCAT, lhs, rhs)
		}
		return w.arith(ADD, lhs, rhs, x)
	case OpSub:
		return w.arith(SUB, lhs, rhs, x)
	case OpMul:
		return w.arith(MUL, lhs, rhs, x)
	case OpDiv:
		return w.divide(lhs, rhs, x, false)
	case OpMod:
		return w.divide(lhs, rhs, x, true)

	case OpEQ:
		return w.compare(EQ, lhs, rhs, x)
	case OpNE:
		return w.compare(NE, lhs, rhs, x)
	case OpLT:
		return w.compare(LT, lhs, rhs, x)
	case OpLE:
		return w.compare(LE, lhs, rhs, x)
	case OpGT:
		return w.compare(GT, lhs, rhs, x)
	case OpGE:
		return w.compare(GE, lhs, rhs, x)

	default:
		return w.opaque(x.String(), DomainInt)
	}
}

func (w *translation) arith(op BinaryOp, lhs, rhs Term, x *BinaryExpr) Term {
	lhs, rhs, ok := w.coerce(lhs, rhs)
	if !ok {
		return w.opaque(x.String(), TermDomain(lhs))
	}
	return NewBinaryTerm(op, lhs, rhs)
}

func (w *translation) compare(op BinaryOp, lhs, rhs Term, x *BinaryExpr) Term {
	lhs, rhs, ok := w.coerce(lhs, rhs)
	if !ok {
		return w.opaque(x.String(), DomainBool)
	}
	return NewBinaryTerm(op, lhs, rhs)
}

func (w *translation) unary(x *UnaryExpr) Term {
	switch x.Op {
	case OpNot:
		return NewNotTerm(w.truthy(w.expr(x.X)))
	case OpNeg:
		t := w.expr(x.X)
		switch TermDomain(t) {
		case DomainReal:
			return NewBinaryTerm(SUB, NewRealTerm(ratZero()), t)
		default:
			return NewBinaryTerm(SUB, NewIntTerm(0), t)
		}
	default:
		return w.opaque(x.String(), DomainInt)
	}
}

// call translates the builtin function set. Program-level calls are inlined
// by the explorer before translation; anything that reaches here unresolved
// degrades to an opaque value.
func (w *translation) call(x *CallExpr) Term {
	switch x.Func {
	case "len":
		if len(x.Args) == 1 {
			return NewLenTerm(w.expr(x.Args[0]))
		}
	case "contains":
		if len(x.Args) == 2 {
			return NewBinaryTerm(CONTAINS, w.expr(x.Args[0]), w.expr(x.Args[1]))
		}
	case "has_prefix", "startswith":
		if len(x.Args) == 2 {
			return NewBinaryTerm(HASPREFIX, w.expr(x.Args[0]), w.expr(x.Args[1]))
		}
	case "has_suffix", "endswith":
		if len(x.Args) == 2 {
			return NewBinaryTerm(HASSUFFIX, w.expr(x.Args[0]), w.expr(x.Args[1]))
		}
	case "float", "to_real":
		if len(x.Args) == 1 {
			return NewToRealTerm(w.expr(x.Args[0]))
		}
	case "abs":
		if len(x.Args) == 1 {
			t := w.expr(x.Args[0])
			zero := Term(NewIntTerm(0))
			if TermDomain(t) == DomainReal {
				zero = NewRealTerm(ratZero())
			}
			return NewIteTerm(
				NewBinaryTerm(LT, t, zero),
				NewBinaryTerm(SUB, zero, t),
				t,
			)
		}
	}
	return w.opaque(x.String(), DomainInt)
}

func (w *translation) index(x *IndexExpr) Term {
	seq := w.expr(x.X)
	index := w.expr(x.Index)

	elem := DomainInt
	switch TermDomain(seq) {
	case DomainString:
		elem = DomainString
	case DomainSeq:
		if seq, ok := seq.(*SeqTerm); ok {
			elem = seq.Elem
		}
	default:
		return w.opaque(x.String(), DomainInt)
	}

	w.hazard(HazardIndexRange, NewBinaryTerm(OR,
		NewBinaryTerm(LT, index, NewIntTerm(0)),
		NewBinaryTerm(GE, index, NewLenTerm(seq)),
	))
	return NewAtTerm(seq, index, elem)
}

// membership translates `x in y` for strings and constant-length sequences.
func (w *translation) membership(x *BinaryExpr) Term {
	needle := w.expr(x.X)
	hay := w.expr(x.Y)

	switch TermDomain(hay) {
	case DomainString:
		return NewBinaryTerm(CONTAINS, hay, needle)
	case DomainSeq:
		if hay, ok := hay.(*SeqTerm); ok {
			found := Term(NewBoolTerm(false))
			for _, e := range hay.Elems {
				found = NewBinaryTerm(OR, found, NewBinaryTerm(EQ, needle, e))
			}
			return found
		}
	}
	return w.opaque(x.String(), DomainBool)
}

// divide encodes division or remainder in the configured mode and records
// the divide-by-zero hazard unless the divisor is a non-zero constant.
func (w *translation) divide(lhs, rhs Term, x *BinaryExpr, mod bool) Term {
	lhs, rhs, ok := w.coerce(lhs, rhs)
	if !ok {
		return w.opaque(x.String(), TermDomain(lhs))
	}

	switch TermDomain(rhs) {
	case DomainInt:
		w.hazard(HazardDivZero, NewBinaryTerm(EQ, rhs, NewIntTerm(0)))
		if mod {
			return w.intMod(lhs, rhs)
		}
		return w.intDiv(lhs, rhs)
	case DomainReal:
		w.hazard(HazardDivZero, NewBinaryTerm(EQ, rhs, NewRealTerm(ratZero())))
		if mod {
			return w.opaque(x.String(), DomainReal)
		}
		return NewBinaryTerm(DIV, lhs, rhs)
	default:
		return w.opaque(x.String(), DomainInt)
	}
}

// intDiv encodes integer division for the configured mode on top of the
// solver's Euclidean operators.
func (w *translation) intDiv(a, b Term) Term {
	switch w.tr.opts.Division {
	case DivEuclid:
		return NewBinaryTerm(DIV, a, b)
	case DivFloor:
		// floor(a/b) = (a - fmod(a,b)) / b
		return NewBinaryTerm(DIV, NewBinaryTerm(SUB, a, w.floorMod(a, b)), b)
	case DivTrunc:
		return NewBinaryTerm(DIV, NewBinaryTerm(SUB, a, w.truncMod(a, b)), b)
	default:
		panic("unreachable")
	}
}

func (w *translation) intMod(a, b Term) Term {
	switch w.tr.opts.Division {
	case DivEuclid:
		return NewBinaryTerm(MOD, a, b)
	case DivFloor:
		return w.floorMod(a, b)
	case DivTrunc:
		return w.truncMod(a, b)
	default:
		panic("unreachable")
	}
}

// floorMod maps the Euclidean remainder onto the floored one: when the
// remainder is non-zero and the divisor negative, shift it by the divisor.
func (w *translation) floorMod(a, b Term) Term {
	m := NewBinaryTerm(MOD, a, b)
	return NewIteTerm(
		NewBinaryTerm(AND,
			NewBinaryTerm(NE, m, NewIntTerm(0)),
			NewBinaryTerm(LT, b, NewIntTerm(0)),
		),
		NewBinaryTerm(ADD, m, b),
		m,
	)
}

// truncMod maps the Euclidean remainder onto the truncated one: when the
// remainder is non-zero and the dividend negative, shift it by |divisor|.
func (w *translation) truncMod(a, b Term) Term {
	m := NewBinaryTerm(MOD, a, b)
	abs := NewIteTerm(
		NewBinaryTerm(LT, b, NewIntTerm(0)),
		NewBinaryTerm(SUB, NewIntTerm(0), b),
		b,
	)
	return NewIteTerm(
		NewBinaryTerm(AND,
			NewBinaryTerm(NE, m, NewIntTerm(0)),
			NewBinaryTerm(LT, a, NewIntTerm(0)),
		),
		NewBinaryTerm(SUB, m, abs),
		m,
	)
}

// coerce reconciles the numeric domains of two operands. Returns false when
// the domains disagree and cannot be promoted; the caller degrades the whole
// expression rather than hand the solver an ill-sorted term.
func (w *translation) coerce(lhs, rhs Term) (Term, Term, bool) {
	ld, rd := TermDomain(lhs), TermDomain(rhs)
	if ld == rd {
		return lhs, rhs, true
	}

	mixed := (ld == DomainInt && rd == DomainReal) || (ld == DomainReal && rd == DomainInt)
	if mixed && w.tr.opts.Numeric == NumPromote {
		return NewToRealTerm(lhs), NewToRealTerm(rhs), true
	}
	return lhs, rhs, false
}

// truthy coerces a term to the boolean domain.
func (w *translation) truthy(t Term) Term {
	switch TermDomain(t) {
	case DomainBool:
		return t
	case DomainInt:
		return NewBinaryTerm(NE, t, NewIntTerm(0))
	case DomainReal:
		return NewBinaryTerm(NE, t, NewRealTerm(ratZero()))
	case DomainString, DomainSeq:
		return NewBinaryTerm(GT, NewLenTerm(t), NewIntTerm(0))
	default:
		return w.opaque(t.String(), DomainBool)
	}
}

// opaque allocates a fresh unconstrained variable standing in for an
// untranslatable construct and records a note for the path report.
func (w *translation) opaque(construct string, domain Domain) Term {
	if domain == DomainAny {
		domain = DomainInt
	}
	t, state := w.state.NewVar("opaque!", domain)
	w.state = state
	w.notes = append(w.notes, (&UnsupportedConstruct{Construct: construct}).Error())
	return t
}

func (w *translation) hazard(kind string, cond Term) {
	if IsFalseTerm(cond) {
		return // divisor or bound is a safe constant
	}
	w.hazards = append(w.hazards, Hazard{Kind: kind, Cond: cond})
}

func ratZero() *big.Rat { return new(big.Rat) }
