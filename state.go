package pathwalk

import (
	"bytes"
	"fmt"

	"github.com/benbjohnson/immutable"
)

// State is one point in the exploration: variable bindings, the ordered path
// condition, per-loop iteration counts, and the inlining depth. It is a pure
// value. Every mutating method returns a derived state and leaves the
// receiver untouched, so sibling forks can never observe each other.
type State struct {
	bindings *immutable.SortedMap // variable name -> Term
	gens     *immutable.SortedMap // variable name -> next generation int
	loops    *immutable.SortedMap // loop key -> iteration count
	pc       []Term               // ordered path condition, append-only
	depth    int                  // call-inlining depth
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		bindings: immutable.NewSortedMap(&stringComparer{}),
		gens:     immutable.NewSortedMap(&stringComparer{}),
		loops:    immutable.NewSortedMap(&stringComparer{}),
	}
}

// clone returns a shallow copy of s. The immutable maps are shared; the path
// condition is copied so appends on one copy are invisible to the other.
func (s *State) clone() *State {
	other := *s
	other.pc = make([]Term, len(s.pc), len(s.pc)+1)
	copy(other.pc, s.pc)
	return &other
}

// Fork returns two independent successor states.
func (s *State) Fork() (*State, *State) {
	return s.clone(), s.clone()
}

// Lookup returns the term bound to name.
func (s *State) Lookup(name string) (Term, bool) {
	v, ok := s.bindings.Get(name)
	if !ok {
		return nil, false
	}
	return v.(Term), true
}

// Assign returns a state with name bound to t.
func (s *State) Assign(name string, t Term) *State {
	assert(t != nil, "assign %q: nil term", name)
	other := s.clone()
	other.bindings = s.bindings.Set(name, t)
	return other
}

// FreshVar allocates a new symbolic variable for name in the given domain and
// returns it together with the state that binds it. Each allocation for the
// same name gets the next generation so earlier uses keep their old value.
func (s *State) FreshVar(name string, domain Domain) (*VarTerm, *State) {
	gen := 0
	if v, ok := s.gens.Get(name); ok {
		gen = v.(int)
	}

	t := NewVarTerm(name, gen, domain)
	other := s.clone()
	other.bindings = s.bindings.Set(name, t)
	other.gens = s.gens.Set(name, gen+1)
	return t, other
}

// NewVar allocates a symbolic variable for name without binding it. Used for
// opaque stand-ins that must not shadow a source variable.
func (s *State) NewVar(name string, domain Domain) (*VarTerm, *State) {
	gen := 0
	if v, ok := s.gens.Get(name); ok {
		gen = v.(int)
	}
	other := s.clone()
	other.gens = s.gens.Set(name, gen+1)
	return NewVarTerm(name, gen, domain), other
}

// AddConstraint returns a state with t appended to the path condition.
// Conjunctions are split into their operands so each conjunct is visible to
// the solver and the reporter individually. Constant true is dropped.
func (s *State) AddConstraint(t Term) *State {
	if IsTrueTerm(t) {
		return s
	}
	if t, ok := t.(*BinaryTerm); ok && t.Op == AND {
		return s.AddConstraint(t.LHS).AddConstraint(t.RHS)
	}
	other := s.clone()
	other.pc = append(other.pc, t)
	return other
}

// Constraints returns the ordered path condition.
func (s *State) Constraints() []Term { return s.pc }

// HasFalseConstraint returns true if any conjunct folded to constant false.
// Such a state is unreachable without consulting the solver.
func (s *State) HasFalseConstraint() bool {
	for _, t := range s.pc {
		if IsFalseTerm(t) {
			return true
		}
	}
	return false
}

// LoopIter returns the iteration count recorded for the loop key.
func (s *State) LoopIter(key string) int {
	if v, ok := s.loops.Get(key); ok {
		return v.(int)
	}
	return 0
}

// IncLoopIter returns a state with the loop key's iteration count advanced.
func (s *State) IncLoopIter(key string) *State {
	other := s.clone()
	other.loops = s.loops.Set(key, s.LoopIter(key)+1)
	return other
}

// Depth returns the current call-inlining depth.
func (s *State) Depth() int { return s.depth }

// IncDepth returns a state one inlining level deeper.
func (s *State) IncDepth() *State {
	other := s.clone()
	other.depth = s.depth + 1
	return other
}

// DecDepth returns a state one inlining level shallower.
func (s *State) DecDepth() *State {
	assert(s.depth > 0, "depth underflow")
	other := s.clone()
	other.depth = s.depth - 1
	return other
}

// Vars returns the symbolic variables referenced by the path condition,
// sorted and deduplicated.
func (s *State) Vars() []*VarTerm {
	return FindVars(s.pc...)
}

// String returns a printable listing of the state.
func (s *State) String() string {
	var buf bytes.Buffer
	buf.WriteString("state{\n")
	for itr := s.bindings.Iterator(); !itr.Done(); {
		k, v := itr.Next()
		fmt.Fprintf(&buf, "\t%s = %s\n", k, v.(Term))
	}
	for _, t := range s.pc {
		fmt.Fprintf(&buf, "\tassume %s\n", t)
	}
	buf.WriteString("}")
	return buf.String()
}

// stringComparer orders string keys for the immutable maps.
type stringComparer struct{}

// Compare returns an integer comparing two string keys.
func (c *stringComparer) Compare(a, b interface{}) int {
	as, bs := a.(string), b.(string)
	if as < bs {
		return -1
	} else if as > bs {
		return 1
	}
	return 0
}
