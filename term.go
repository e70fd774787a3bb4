package pathwalk

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// Term represents a solver-theory term.
type Term interface {
	term()
	String() string
}

func (*IntTerm) term()    {}
func (*RealTerm) term()   {}
func (*BoolTerm) term()   {}
func (*StrTerm) term()    {}
func (*VarTerm) term()    {}
func (*SeqTerm) term()    {}
func (*LenTerm) term()    {}
func (*AtTerm) term()     {}
func (*ToRealTerm) term() {}
func (*NotTerm) term()    {}
func (*IteTerm) term()    {}
func (*BinaryTerm) term() {}

// TermDomain returns the value domain of the term.
func TermDomain(t Term) Domain {
	switch t := t.(type) {
	case *IntTerm:
		return DomainInt
	case *RealTerm:
		return DomainReal
	case *BoolTerm:
		return DomainBool
	case *StrTerm:
		return DomainString
	case *VarTerm:
		return t.Domain
	case *SeqTerm:
		return DomainSeq
	case *LenTerm:
		return DomainInt
	case *AtTerm:
		return t.Elem
	case *ToRealTerm:
		return DomainReal
	case *NotTerm:
		return DomainBool
	case *IteTerm:
		return TermDomain(t.Then)
	case *BinaryTerm:
		if t.Op.IsCompare() || t.Op.IsLogical() || t.Op == CONTAINS || t.Op == HASPREFIX || t.Op == HASSUFFIX {
			return DomainBool
		}
		return TermDomain(t.LHS)
	default:
		panic("unreachable")
	}
}

// BinaryOp represents a binary term operation.
type BinaryOp int

// BinaryTerm operations.
const (
	arithmetic_op_begin = BinaryOp(iota)
	ADD
	SUB
	MUL
	DIV
	MOD
	arithmetic_op_end

	compare_op_begin
	EQ
	NE
	LT
	LE
	GT
	GE
	compare_op_end

	logical_op_begin
	AND
	OR
	logical_op_end

	seq_op_begin
	CONCAT
	CONTAINS
	HASPREFIX
	HASSUFFIX
	seq_op_end
)

var binaryOps = [...]string{
	ADD:       "add",
	SUB:       "sub",
	MUL:       "mul",
	DIV:       "div",
	MOD:       "mod",
	EQ:        "eq",
	NE:        "ne",
	LT:        "lt",
	LE:        "le",
	GT:        "gt",
	GE:        "ge",
	AND:       "and",
	OR:        "or",
	CONCAT:    "concat",
	CONTAINS:  "contains",
	HASPREFIX: "has-prefix",
	HASSUFFIX: "has-suffix",
}

// String returns the string representation of the operation.
func (op BinaryOp) String() string {
	if op >= 0 && op < BinaryOp(len(binaryOps)) && binaryOps[op] != "" {
		return binaryOps[op]
	}
	return fmt.Sprintf("BinaryOp<%d>", op)
}

// IsArithmetic returns true if op is an arithmetic operator.
func (op BinaryOp) IsArithmetic() bool {
	return op > arithmetic_op_begin && op < arithmetic_op_end
}

// IsCompare returns true if op is a comparison operator.
func (op BinaryOp) IsCompare() bool {
	return op > compare_op_begin && op < compare_op_end
}

// IsLogical returns true if op is a logical operator.
func (op BinaryOp) IsLogical() bool {
	return op > logical_op_begin && op < logical_op_end
}

// IntTerm is an exact integer constant.
type IntTerm struct {
	Value *big.Int
}

// NewIntTerm returns an integer constant term.
func NewIntTerm(v int64) *IntTerm {
	return &IntTerm{Value: big.NewInt(v)}
}

// NewBigIntTerm returns an integer constant term from a big integer.
func NewBigIntTerm(v *big.Int) *IntTerm {
	return &IntTerm{Value: new(big.Int).Set(v)}
}

// String returns the string representation of the term.
func (t *IntTerm) String() string { return t.Value.String() }

// Sign returns -1, 0, or +1 depending on the sign of the constant.
func (t *IntTerm) Sign() int { return t.Value.Sign() }

// RealTerm is an exact rational constant.
type RealTerm struct {
	Value *big.Rat
}

// NewRealTerm returns a real constant term.
func NewRealTerm(v *big.Rat) *RealTerm {
	return &RealTerm{Value: new(big.Rat).Set(v)}
}

// String returns the string representation of the term.
func (t *RealTerm) String() string { return t.Value.RatString() }

// BoolTerm is a boolean constant.
type BoolTerm struct {
	Value bool
}

// NewBoolTerm returns a boolean constant term.
func NewBoolTerm(v bool) *BoolTerm { return &BoolTerm{Value: v} }

// String returns the string representation of the term.
func (t *BoolTerm) String() string { return fmt.Sprintf("%v", t.Value) }

// StrTerm is a string constant.
type StrTerm struct {
	Value string
}

// NewStrTerm returns a string constant term.
func NewStrTerm(v string) *StrTerm { return &StrTerm{Value: v} }

// String returns the string representation of the term.
func (t *StrTerm) String() string { return fmt.Sprintf("%q", t.Value) }

// VarTerm is a symbolic variable: a name, a value domain, and a generation
// counter distinguishing successive assignments within and across forks.
type VarTerm struct {
	Name   string
	Gen    int
	Domain Domain
}

// NewVarTerm returns a new symbolic variable term.
func NewVarTerm(name string, gen int, domain Domain) *VarTerm {
	return &VarTerm{Name: name, Gen: gen, Domain: domain}
}

// Symbol returns the solver symbol for the variable. Generation zero renders
// as the bare name so that entry parameters keep their source names.
func (t *VarTerm) Symbol() string {
	if t.Gen == 0 {
		return t.Name
	}
	return fmt.Sprintf("%s#%d", t.Name, t.Gen)
}

// String returns the string representation of the term.
func (t *VarTerm) String() string { return t.Symbol() }

// SeqTerm is a sequence construction from element terms.
type SeqTerm struct {
	Elems []Term
	Elem  Domain
}

// NewSeqTerm returns a sequence term over elements of the given domain.
func NewSeqTerm(elem Domain, elems ...Term) *SeqTerm {
	return &SeqTerm{Elems: elems, Elem: elem}
}

// String returns the string representation of the term.
func (t *SeqTerm) String() string {
	var buf bytes.Buffer
	buf.WriteString("(seq")
	for _, e := range t.Elems {
		buf.WriteRune(' ')
		buf.WriteString(e.String())
	}
	buf.WriteRune(')')
	return buf.String()
}

// LenTerm is the length of a string or sequence.
type LenTerm struct {
	X Term
}

// NewLenTerm returns the length of a string or sequence term, folding
// constants.
func NewLenTerm(x Term) Term {
	switch x := x.(type) {
	case *StrTerm:
		return NewIntTerm(int64(len(x.Value)))
	case *SeqTerm:
		return NewIntTerm(int64(len(x.Elems)))
	}
	return &LenTerm{X: x}
}

// String returns the string representation of the term.
func (t *LenTerm) String() string { return fmt.Sprintf("(len %s)", t.X) }

// AtTerm selects one element of a string or sequence.
type AtTerm struct {
	Seq   Term
	Index Term
	Elem  Domain
}

// NewAtTerm returns the element of seq at index, folding constant in-range
// selections. Out-of-range constant selections are left symbolic; the
// translator emits the bounds hazard alongside.
func NewAtTerm(seq, index Term, elem Domain) Term {
	if index, ok := index.(*IntTerm); ok && index.Value.IsInt64() {
		i := index.Value.Int64()
		switch seq := seq.(type) {
		case *StrTerm:
			if i >= 0 && i < int64(len(seq.Value)) {
				return NewStrTerm(string(seq.Value[i]))
			}
		case *SeqTerm:
			if i >= 0 && i < int64(len(seq.Elems)) {
				return seq.Elems[i]
			}
		}
	}
	return &AtTerm{Seq: seq, Index: index, Elem: elem}
}

// String returns the string representation of the term.
func (t *AtTerm) String() string { return fmt.Sprintf("(at %s %s)", t.Seq, t.Index) }

// ToRealTerm promotes an integer term to the real theory.
type ToRealTerm struct {
	X Term
}

// NewToRealTerm returns x promoted to the real theory, folding constants.
func NewToRealTerm(x Term) Term {
	switch x := x.(type) {
	case *IntTerm:
		return NewRealTerm(new(big.Rat).SetInt(x.Value))
	case *RealTerm:
		return x
	}
	return &ToRealTerm{X: x}
}

// String returns the string representation of the term.
func (t *ToRealTerm) String() string { return fmt.Sprintf("(to-real %s)", t.X) }

// NotTerm is the logical negation of a boolean term.
type NotTerm struct {
	X Term
}

// NewNotTerm returns the negation of x, folding constants and double
// negation.
func NewNotTerm(x Term) Term {
	switch x := x.(type) {
	case *BoolTerm:
		return NewBoolTerm(!x.Value)
	case *NotTerm:
		return x.X
	}
	return &NotTerm{X: x}
}

// String returns the string representation of the term.
func (t *NotTerm) String() string { return fmt.Sprintf("(not %s)", t.X) }

// IteTerm is an if-then-else over two same-domain terms.
type IteTerm struct {
	Cond Term
	Then Term
	Else Term
}

// NewIteTerm returns an if-then-else term, folding constant conditions.
func NewIteTerm(cond, then, els Term) Term {
	if cond, ok := cond.(*BoolTerm); ok {
		if cond.Value {
			return then
		}
		return els
	}
	if CompareTerm(then, els) == 0 {
		return then
	}
	return &IteTerm{Cond: cond, Then: then, Else: els}
}

// String returns the string representation of the term.
func (t *IteTerm) String() string {
	return fmt.Sprintf("(ite %s %s %s)", t.Cond, t.Then, t.Else)
}

// BinaryTerm represents an operation on two terms.
type BinaryTerm struct {
	Op  BinaryOp
	LHS Term
	RHS Term
}

// NewBinaryTerm returns a new term for the given operation, folding
// constants and normalizing where possible.
func NewBinaryTerm(op BinaryOp, lhs, rhs Term) Term {
	switch op {
	// Arithmetic operators
	case ADD:
		return newAddTerm(lhs, rhs)
	case SUB:
		return newSubTerm(lhs, rhs)
	case MUL:
		return newMulTerm(lhs, rhs)
	case DIV:
		return newDivTerm(lhs, rhs)
	case MOD:
		return newModTerm(lhs, rhs)

	// Comparison operators
	case EQ:
		return newEqTerm(lhs, rhs)
	case NE:
		return NewNotTerm(newEqTerm(lhs, rhs))
	case LT:
		return newLtTerm(lhs, rhs)
	case GT:
		return newLtTerm(rhs, lhs) // reverse
	case LE:
		return newLeTerm(lhs, rhs)
	case GE:
		return newLeTerm(rhs, lhs) // reverse

	// Logical operators
	case AND:
		return newAndTerm(lhs, rhs)
	case OR:
		return newOrTerm(lhs, rhs)

	// String & sequence operators
	case CONCAT:
		return newConcatTerm(lhs, rhs)
	case CONTAINS:
		return newContainsTerm(lhs, rhs)
	case HASPREFIX:
		return newHasPrefixTerm(lhs, rhs)
	case HASSUFFIX:
		return newHasSuffixTerm(lhs, rhs)

	default:
		panic("unreachable")
	}
}

// String returns the string representation of the term.
func (t *BinaryTerm) String() string {
	return fmt.Sprintf("(%s %s %s)", t.Op, t.LHS, t.RHS)
}

// newAddTerm returns the term representing the sum of lhs & rhs.
func newAddTerm(lhs, rhs Term) Term {
	// Move constant term to left hand side.
	if !IsConstTerm(lhs) && IsConstTerm(rhs) {
		lhs, rhs = rhs, lhs
	}

	switch lhs := lhs.(type) {
	case *IntTerm:
		if lhs.Sign() == 0 {
			return rhs
		} else if rhs, ok := rhs.(*IntTerm); ok {
			return &IntTerm{Value: new(big.Int).Add(lhs.Value, rhs.Value)}
		}
		// Merge constant LHS with constant in RHS binary term.
		if rhs, ok := rhs.(*BinaryTerm); ok && IsConstTerm(rhs.LHS) {
			if rhs.Op == ADD { // X + (Y+z) == (X+Y) + z
				return NewBinaryTerm(ADD, NewBinaryTerm(ADD, lhs, rhs.LHS), rhs.RHS)
			} else if rhs.Op == SUB { // X + (Y-z) == (X+Y) - z
				return NewBinaryTerm(SUB, NewBinaryTerm(ADD, lhs, rhs.LHS), rhs.RHS)
			}
		}
	case *RealTerm:
		if lhs.Value.Sign() == 0 {
			return rhs
		} else if rhs, ok := rhs.(*RealTerm); ok {
			return &RealTerm{Value: new(big.Rat).Add(lhs.Value, rhs.Value)}
		}
	}
	return &BinaryTerm{Op: ADD, LHS: lhs, RHS: rhs}
}

// newSubTerm returns a term representing the difference of lhs & rhs.
func newSubTerm(lhs, rhs Term) Term {
	// Subtracting a value from itself is zero.
	if CompareTerm(lhs, rhs) == 0 {
		if TermDomain(lhs) == DomainReal {
			return NewRealTerm(new(big.Rat))
		}
		return NewIntTerm(0)
	}

	if lhs, ok := lhs.(*IntTerm); ok {
		if rhs, ok := rhs.(*IntTerm); ok {
			return &IntTerm{Value: new(big.Int).Sub(lhs.Value, rhs.Value)}
		}
	}
	if lhs, ok := lhs.(*RealTerm); ok {
		if rhs, ok := rhs.(*RealTerm); ok {
			return &RealTerm{Value: new(big.Rat).Sub(lhs.Value, rhs.Value)}
		}
	}

	// Subtracting zero is a no-op.
	if rhs, ok := rhs.(*IntTerm); ok && rhs.Sign() == 0 {
		return lhs
	}
	if rhs, ok := rhs.(*RealTerm); ok && rhs.Value.Sign() == 0 {
		return lhs
	}
	return &BinaryTerm{Op: SUB, LHS: lhs, RHS: rhs}
}

// newMulTerm returns a term that represents the product of lhs & rhs.
func newMulTerm(lhs, rhs Term) Term {
	// If constant is on right side, swap to left side.
	if IsConstTerm(rhs) && !IsConstTerm(lhs) {
		lhs, rhs = rhs, lhs
	}

	switch lhs := lhs.(type) {
	case *IntTerm:
		if rhs, ok := rhs.(*IntTerm); ok {
			return &IntTerm{Value: new(big.Int).Mul(lhs.Value, rhs.Value)}
		}
		// Optimize multiplication with a constant 1 or 0.
		if lhs.Value.IsInt64() {
			switch lhs.Value.Int64() {
			case 0:
				return lhs
			case 1:
				return rhs
			}
		}
	case *RealTerm:
		if rhs, ok := rhs.(*RealTerm); ok {
			return &RealTerm{Value: new(big.Rat).Mul(lhs.Value, rhs.Value)}
		}
	}
	return &BinaryTerm{Op: MUL, LHS: lhs, RHS: rhs}
}

// newDivTerm returns a term representing the division of lhs by rhs.
// Division by a constant zero is left symbolic; the translator emits the
// divide-by-zero hazard alongside, so the folded value is never observed.
func newDivTerm(lhs, rhs Term) Term {
	if lhs, ok := lhs.(*IntTerm); ok {
		if rhs, ok := rhs.(*IntTerm); ok && rhs.Sign() != 0 {
			q, _ := euclidDivMod(lhs.Value, rhs.Value)
			return &IntTerm{Value: q}
		}
	}
	if lhs, ok := lhs.(*RealTerm); ok {
		if rhs, ok := rhs.(*RealTerm); ok && rhs.Value.Sign() != 0 {
			return &RealTerm{Value: new(big.Rat).Quo(lhs.Value, rhs.Value)}
		}
	}
	// Dividing by one is a no-op.
	if rhs, ok := rhs.(*IntTerm); ok && rhs.Value.IsInt64() && rhs.Value.Int64() == 1 {
		return lhs
	}
	return &BinaryTerm{Op: DIV, LHS: lhs, RHS: rhs}
}

// newModTerm returns a term representing the remainder of lhs divided by rhs.
func newModTerm(lhs, rhs Term) Term {
	if lhs, ok := lhs.(*IntTerm); ok {
		if rhs, ok := rhs.(*IntTerm); ok && rhs.Sign() != 0 {
			_, r := euclidDivMod(lhs.Value, rhs.Value)
			return &IntTerm{Value: r}
		}
	}
	return &BinaryTerm{Op: MOD, LHS: lhs, RHS: rhs}
}

// euclidDivMod returns the Euclidean quotient and remainder of a and b,
// matching the solver's integer division semantics (0 <= r < |b|).
func euclidDivMod(a, b *big.Int) (q, r *big.Int) {
	q, r = new(big.Int), new(big.Int)
	q.DivMod(a, b, r)
	return q, r
}

// newEqTerm returns a term that represents the equality of lhs and rhs.
func newEqTerm(lhs, rhs Term) Term {
	// If constant is on right side, swap to left side.
	if !IsConstTerm(lhs) && IsConstTerm(rhs) {
		lhs, rhs = rhs, lhs
	}

	switch lhs := lhs.(type) {
	case *IntTerm:
		if rhs, ok := rhs.(*IntTerm); ok {
			return NewBoolTerm(lhs.Value.Cmp(rhs.Value) == 0)
		}
		// X = Y + z => X - Y = z
		if rhs, ok := rhs.(*BinaryTerm); ok && IsConstTerm(rhs.LHS) {
			switch rhs.Op {
			case ADD:
				return NewBinaryTerm(EQ, NewBinaryTerm(SUB, lhs, rhs.LHS), rhs.RHS)
			case SUB: // X = Y - z => Y - X = z
				return NewBinaryTerm(EQ, NewBinaryTerm(SUB, rhs.LHS, lhs), rhs.RHS)
			}
		}
	case *RealTerm:
		if rhs, ok := rhs.(*RealTerm); ok {
			return NewBoolTerm(lhs.Value.Cmp(rhs.Value) == 0)
		}
	case *BoolTerm:
		if rhs, ok := rhs.(*BoolTerm); ok {
			return NewBoolTerm(lhs.Value == rhs.Value)
		}
		// true == X => X; false == X => !X
		if lhs.Value {
			return rhs
		}
		return NewNotTerm(rhs)
	case *StrTerm:
		if rhs, ok := rhs.(*StrTerm); ok {
			return NewBoolTerm(lhs.Value == rhs.Value)
		}
	}

	if CompareTerm(lhs, rhs) == 0 {
		return NewBoolTerm(true)
	}
	return &BinaryTerm{Op: EQ, LHS: lhs, RHS: rhs}
}

// newLtTerm returns a term representing lhs < rhs.
func newLtTerm(lhs, rhs Term) Term {
	if lhs, ok := lhs.(*IntTerm); ok {
		if rhs, ok := rhs.(*IntTerm); ok {
			return NewBoolTerm(lhs.Value.Cmp(rhs.Value) < 0)
		}
	}
	if lhs, ok := lhs.(*RealTerm); ok {
		if rhs, ok := rhs.(*RealTerm); ok {
			return NewBoolTerm(lhs.Value.Cmp(rhs.Value) < 0)
		}
	}
	if lhs, ok := lhs.(*StrTerm); ok {
		if rhs, ok := rhs.(*StrTerm); ok {
			return NewBoolTerm(lhs.Value < rhs.Value)
		}
	}
	if CompareTerm(lhs, rhs) == 0 {
		return NewBoolTerm(false)
	}
	return &BinaryTerm{Op: LT, LHS: lhs, RHS: rhs}
}

// newLeTerm returns a term representing lhs <= rhs.
func newLeTerm(lhs, rhs Term) Term {
	if lhs, ok := lhs.(*IntTerm); ok {
		if rhs, ok := rhs.(*IntTerm); ok {
			return NewBoolTerm(lhs.Value.Cmp(rhs.Value) <= 0)
		}
	}
	if lhs, ok := lhs.(*RealTerm); ok {
		if rhs, ok := rhs.(*RealTerm); ok {
			return NewBoolTerm(lhs.Value.Cmp(rhs.Value) <= 0)
		}
	}
	if lhs, ok := lhs.(*StrTerm); ok {
		if rhs, ok := rhs.(*StrTerm); ok {
			return NewBoolTerm(lhs.Value <= rhs.Value)
		}
	}
	if CompareTerm(lhs, rhs) == 0 {
		return NewBoolTerm(true)
	}
	return &BinaryTerm{Op: LE, LHS: lhs, RHS: rhs}
}

// newAndTerm returns the logical conjunction of lhs & rhs.
func newAndTerm(lhs, rhs Term) Term {
	if lhs, ok := lhs.(*BoolTerm); ok {
		if !lhs.Value {
			return lhs
		}
		return rhs
	}
	if rhs, ok := rhs.(*BoolTerm); ok {
		if !rhs.Value {
			return rhs
		}
		return lhs
	}
	return &BinaryTerm{Op: AND, LHS: lhs, RHS: rhs}
}

// newOrTerm returns the logical disjunction of lhs & rhs.
func newOrTerm(lhs, rhs Term) Term {
	if lhs, ok := lhs.(*BoolTerm); ok {
		if lhs.Value {
			return lhs
		}
		return rhs
	}
	if rhs, ok := rhs.(*BoolTerm); ok {
		if rhs.Value {
			return rhs
		}
		return lhs
	}
	return &BinaryTerm{Op: OR, LHS: lhs, RHS: rhs}
}

// newConcatTerm returns the concatenation of two strings or sequences.
func newConcatTerm(lhs, rhs Term) Term {
	if lhs, ok := lhs.(*StrTerm); ok {
		if lhs.Value == "" {
			return rhs
		}
		if rhs, ok := rhs.(*StrTerm); ok {
			return NewStrTerm(lhs.Value + rhs.Value)
		}
	}
	if rhs, ok := rhs.(*StrTerm); ok && rhs.Value == "" {
		return lhs
	}
	if lhs, ok := lhs.(*SeqTerm); ok {
		if rhs, ok := rhs.(*SeqTerm); ok {
			elems := make([]Term, 0, len(lhs.Elems)+len(rhs.Elems))
			elems = append(elems, lhs.Elems...)
			elems = append(elems, rhs.Elems...)
			return NewSeqTerm(lhs.Elem, elems...)
		}
	}
	return &BinaryTerm{Op: CONCAT, LHS: lhs, RHS: rhs}
}

// newContainsTerm returns a term stating that lhs contains rhs.
func newContainsTerm(lhs, rhs Term) Term {
	if lhs, ok := lhs.(*StrTerm); ok {
		if rhs, ok := rhs.(*StrTerm); ok {
			return NewBoolTerm(strings.Contains(lhs.Value, rhs.Value))
		}
	}
	if rhs, ok := rhs.(*StrTerm); ok && rhs.Value == "" {
		return NewBoolTerm(true)
	}
	return &BinaryTerm{Op: CONTAINS, LHS: lhs, RHS: rhs}
}

// newHasPrefixTerm returns a term stating that lhs starts with rhs.
func newHasPrefixTerm(lhs, rhs Term) Term {
	if lhs, ok := lhs.(*StrTerm); ok {
		if rhs, ok := rhs.(*StrTerm); ok {
			return NewBoolTerm(strings.HasPrefix(lhs.Value, rhs.Value))
		}
	}
	if rhs, ok := rhs.(*StrTerm); ok && rhs.Value == "" {
		return NewBoolTerm(true)
	}
	return &BinaryTerm{Op: HASPREFIX, LHS: lhs, RHS: rhs}
}

// newHasSuffixTerm returns a term stating that lhs ends with rhs.
func newHasSuffixTerm(lhs, rhs Term) Term {
	if lhs, ok := lhs.(*StrTerm); ok {
		if rhs, ok := rhs.(*StrTerm); ok {
			return NewBoolTerm(strings.HasSuffix(lhs.Value, rhs.Value))
		}
	}
	if rhs, ok := rhs.(*StrTerm); ok && rhs.Value == "" {
		return NewBoolTerm(true)
	}
	return &BinaryTerm{Op: HASSUFFIX, LHS: lhs, RHS: rhs}
}

// IsConstTerm returns true if t is a constant.
func IsConstTerm(t Term) bool {
	switch t := t.(type) {
	case *IntTerm, *RealTerm, *BoolTerm, *StrTerm:
		return true
	case *SeqTerm:
		for _, e := range t.Elems {
			if !IsConstTerm(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// IsTrueTerm returns true if t is the constant true.
func IsTrueTerm(t Term) bool {
	tmp, ok := t.(*BoolTerm)
	return ok && tmp.Value
}

// IsFalseTerm returns true if t is the constant false.
func IsFalseTerm(t Term) bool {
	tmp, ok := t.(*BoolTerm)
	return ok && !tmp.Value
}

// CompareTerm returns an integer comparing two terms.
// The result will be 0 if a==b, -1 if a < b, and +1 if a > b.
func CompareTerm(a, b Term) int {
	if a == nil && b != nil {
		return -1
	} else if a != nil && b == nil {
		return 1
	} else if a == nil && b == nil {
		return 0
	}

	if ak, bk := termKind(a), termKind(b); ak < bk {
		return -1
	} else if ak > bk {
		return 1
	}

	switch a := a.(type) {
	case *IntTerm:
		return a.Value.Cmp(b.(*IntTerm).Value)
	case *RealTerm:
		return a.Value.Cmp(b.(*RealTerm).Value)
	case *BoolTerm:
		return compareBool(a.Value, b.(*BoolTerm).Value)
	case *StrTerm:
		return strings.Compare(a.Value, b.(*StrTerm).Value)
	case *VarTerm:
		return compareVarTerm(a, b.(*VarTerm))
	case *SeqTerm:
		return compareSeqTerm(a, b.(*SeqTerm))
	case *LenTerm:
		return CompareTerm(a.X, b.(*LenTerm).X)
	case *AtTerm:
		if cmp := CompareTerm(a.Seq, b.(*AtTerm).Seq); cmp != 0 {
			return cmp
		}
		return CompareTerm(a.Index, b.(*AtTerm).Index)
	case *ToRealTerm:
		return CompareTerm(a.X, b.(*ToRealTerm).X)
	case *NotTerm:
		return CompareTerm(a.X, b.(*NotTerm).X)
	case *IteTerm:
		return compareIteTerm(a, b.(*IteTerm))
	case *BinaryTerm:
		return compareBinaryTerm(a, b.(*BinaryTerm))
	default:
		panic("unreachable")
	}
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	} else if !a {
		return -1
	}
	return 1
}

func compareVarTerm(a, b *VarTerm) int {
	if cmp := strings.Compare(a.Name, b.Name); cmp != 0 {
		return cmp
	}
	if a.Gen < b.Gen {
		return -1
	} else if a.Gen > b.Gen {
		return 1
	}
	return 0
}

func compareSeqTerm(a, b *SeqTerm) int {
	if len(a.Elems) < len(b.Elems) {
		return -1
	} else if len(a.Elems) > len(b.Elems) {
		return 1
	}
	for i := range a.Elems {
		if cmp := CompareTerm(a.Elems[i], b.Elems[i]); cmp != 0 {
			return cmp
		}
	}
	return 0
}

func compareIteTerm(a, b *IteTerm) int {
	if cmp := CompareTerm(a.Cond, b.Cond); cmp != 0 {
		return cmp
	}
	if cmp := CompareTerm(a.Then, b.Then); cmp != 0 {
		return cmp
	}
	return CompareTerm(a.Else, b.Else)
}

func compareBinaryTerm(a, b *BinaryTerm) int {
	if a.Op < b.Op {
		return -1
	} else if a.Op > b.Op {
		return 1
	}
	if cmp := CompareTerm(a.LHS, b.LHS); cmp != 0 {
		return cmp
	}
	return CompareTerm(a.RHS, b.RHS)
}

// termKind returns a numeric value for the type of term.
// Only used internally for equality checks and sorting.
func termKind(t Term) int {
	switch t.(type) {
	case *IntTerm:
		return 1
	case *RealTerm:
		return 2
	case *BoolTerm:
		return 3
	case *StrTerm:
		return 4
	case *VarTerm:
		return 5
	case *SeqTerm:
		return 6
	case *LenTerm:
		return 7
	case *AtTerm:
		return 8
	case *ToRealTerm:
		return 9
	case *NotTerm:
		return 10
	case *IteTerm:
		return 11
	case *BinaryTerm:
		return 12
	default:
		panic("unreachable")
	}
}

// TermVisitor represents a visitor that can be passed to WalkTerm().
type TermVisitor interface {
	// Executed for every visited node. Return a different term to replace it.
	Visit(t Term) (Term, TermVisitor)
}

// WalkTerm traverses t depth-first. Replaced children produce rebuilt parent
// nodes; the input term is never mutated, so terms shared between forked
// states stay isolated.
func WalkTerm(v TermVisitor, t Term) Term {
	other, v := v.Visit(t)
	if v == nil {
		return other
	}

	switch t := other.(type) {
	case *IntTerm, *RealTerm, *BoolTerm, *StrTerm, *VarTerm:
		return t
	case *SeqTerm:
		elems := t.Elems
		replaced := false
		for i, e := range t.Elems {
			if w := WalkTerm(v, e); w != e {
				if !replaced {
					elems = append([]Term(nil), t.Elems...)
					replaced = true
				}
				elems[i] = w
			}
		}
		if !replaced {
			return t
		}
		return NewSeqTerm(t.Elem, elems...)
	case *LenTerm:
		if x := WalkTerm(v, t.X); x != t.X {
			return NewLenTerm(x)
		}
		return t
	case *AtTerm:
		seq, index := WalkTerm(v, t.Seq), WalkTerm(v, t.Index)
		if seq != t.Seq || index != t.Index {
			return NewAtTerm(seq, index, t.Elem)
		}
		return t
	case *ToRealTerm:
		if x := WalkTerm(v, t.X); x != t.X {
			return NewToRealTerm(x)
		}
		return t
	case *NotTerm:
		if x := WalkTerm(v, t.X); x != t.X {
			return NewNotTerm(x)
		}
		return t
	case *IteTerm:
		cond, then, els := WalkTerm(v, t.Cond), WalkTerm(v, t.Then), WalkTerm(v, t.Else)
		if cond != t.Cond || then != t.Then || els != t.Else {
			return NewIteTerm(cond, then, els)
		}
		return t
	case *BinaryTerm:
		lhs, rhs := WalkTerm(v, t.LHS), WalkTerm(v, t.RHS)
		if lhs != t.LHS || rhs != t.RHS {
			return NewBinaryTerm(t.Op, lhs, rhs)
		}
		return t
	default:
		panic("unreachable")
	}
}

// FindVars returns all symbolic variables in the given terms, sorted by
// name and generation with duplicates removed.
func FindVars(terms ...Term) []*VarTerm {
	v := newVarTermVisitor()
	for _, t := range terms {
		WalkTerm(v, t)
	}

	a := make([]*VarTerm, 0, len(v.m))
	for _, t := range v.m {
		a = append(a, t)
	}
	sort.Slice(a, func(i, j int) bool { return compareVarTerm(a[i], a[j]) == -1 })

	return a
}

type varTermVisitor struct {
	m map[string]*VarTerm
}

func newVarTermVisitor() *varTermVisitor {
	return &varTermVisitor{m: make(map[string]*VarTerm)}
}

func (v *varTermVisitor) Visit(t Term) (Term, TermVisitor) {
	if t, ok := t.(*VarTerm); ok {
		if _, ok := v.m[t.Symbol()]; !ok {
			v.m[t.Symbol()] = t
		}
	}
	return t, v
}

// TermEvaluator evaluates terms using known variable values.
type TermEvaluator struct {
	m map[string]Term // mapping of variable symbol to constant term
}

// NewTermEvaluator returns a new instance of TermEvaluator with the given
// symbol/constant mapping.
func NewTermEvaluator(m map[string]Term) *TermEvaluator {
	for symbol, t := range m {
		assert(IsConstTerm(t), "non-constant binding: %s", symbol)
	}
	return &TermEvaluator{m: m}
}

// Evaluate evaluates t to a constant term.
// Returns an error if an unknown variable is encountered or the term does
// not reduce to a constant.
func (te *TermEvaluator) Evaluate(t Term) (Term, error) {
	result := WalkTerm(&evalVisitor{te: te}, t)
	if !IsConstTerm(result) {
		return nil, fmt.Errorf("term did not reduce to a constant: %s", result)
	}
	return result, nil
}

type evalVisitor struct {
	te *TermEvaluator
}

func (v *evalVisitor) Visit(t Term) (Term, TermVisitor) {
	if t, ok := t.(*VarTerm); ok {
		if value, ok := v.te.m[t.Symbol()]; ok {
			return value, nil
		}
		return t, nil
	}
	return t, v
}
